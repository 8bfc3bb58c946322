// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層から利用する。
type MetricsCollector interface {
	RecordTokenExchangeSuccess()
	RecordTokenExchangeFailure()
	RecordPublishSuccess()
	RecordPublishFailure(reason string)
	RecordGenerationSuccess()
	RecordGenerationFailure()
	RecordGenerationLatency(duration time.Duration)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	tokenExchangeSuccess prometheus.Counter
	tokenExchangeFail    prometheus.Counter
	publishSuccess       prometheus.Counter
	publishFail          *prometheus.CounterVec
	generationSuccess    prometheus.Counter
	generationFail       prometheus.Counter
	generationLatency    prometheus.Histogram
	httpStatus           *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		tokenExchangeSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "postdeck_token_exchange_success_total",
			Help: "LinkedInトークン交換成功の合計数",
		}),
		tokenExchangeFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "postdeck_token_exchange_fail_total",
			Help: "LinkedInトークン交換失敗の合計数",
		}),
		publishSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "postdeck_publish_success_total",
			Help: "LinkedIn投稿成功の合計数",
		}),
		publishFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "postdeck_publish_fail_total",
			Help: "LinkedIn投稿失敗の理由別合計数",
		}, []string{"reason"}),
		generationSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "postdeck_generation_success_total",
			Help: "AI生成成功の合計数",
		}),
		generationFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "postdeck_generation_fail_total",
			Help: "AI生成失敗の合計数",
		}),
		generationLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "postdeck_generation_latency_seconds",
			Help:    "AI生成のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "postdeck_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.tokenExchangeSuccess,
		c.tokenExchangeFail,
		c.publishSuccess,
		c.publishFail,
		c.generationSuccess,
		c.generationFail,
		c.generationLatency,
		c.httpStatus,
	)

	return c
}

// RecordTokenExchangeSuccess はトークン交換成功を記録する。
func (c *Collector) RecordTokenExchangeSuccess() {
	c.tokenExchangeSuccess.Inc()
}

// RecordTokenExchangeFailure はトークン交換失敗を記録する。
func (c *Collector) RecordTokenExchangeFailure() {
	c.tokenExchangeFail.Inc()
}

// RecordPublishSuccess は投稿成功を記録する。
func (c *Collector) RecordPublishSuccess() {
	c.publishSuccess.Inc()
}

// RecordPublishFailure は投稿失敗を理由付きで記録する。
func (c *Collector) RecordPublishFailure(reason string) {
	c.publishFail.WithLabelValues(reason).Inc()
}

// RecordGenerationSuccess はAI生成成功を記録する。
func (c *Collector) RecordGenerationSuccess() {
	c.generationSuccess.Inc()
}

// RecordGenerationFailure はAI生成失敗を記録する。
func (c *Collector) RecordGenerationFailure() {
	c.generationFail.Inc()
}

// RecordGenerationLatency はAI生成のレイテンシを記録する。
func (c *Collector) RecordGenerationLatency(duration time.Duration) {
	c.generationLatency.Observe(duration.Seconds())
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
