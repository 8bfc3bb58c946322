package draft

import (
	"sync"
)

// Hub はユーザーごとの下書き変更通知を配信するインプロセスのハブ。
// SSEエンドポイントが購読し、下書きの作成・更新・削除・公開時に通知を受け取る。
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[chan struct{}]struct{} // userID -> 購読チャネル集合
}

// NewHub はHubを生成する。
func NewHub() *Hub {
	return &Hub{
		subs: make(map[string]map[chan struct{}]struct{}),
	}
}

// Subscribe は指定ユーザーの変更通知チャネルを返す。
// 返されたcancelを呼ぶと購読が解除され、チャネルはクローズされる。
func (h *Hub) Subscribe(userID string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	h.mu.Lock()
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[chan struct{}]struct{})
	}
	h.subs[userID][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if set, ok := h.subs[userID]; ok {
			if _, subscribed := set[ch]; subscribed {
				delete(set, ch)
				close(ch)
				if len(set) == 0 {
					delete(h.subs, userID)
				}
			}
		}
	}

	return ch, cancel
}

// Notify は指定ユーザーの全購読者に変更を通知する。
// 購読者のバッファが埋まっている場合は通知をスキップする
// （未処理の通知が既にあるため取りこぼしにはならない）。
func (h *Hub) Notify(userID string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[userID] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
