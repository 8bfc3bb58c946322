// Package articlestore はMongoDBからの記事取得を提供する。
package articlestore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hitoshi/postdeck/internal/model"
)

// defaultListLimit は一覧取得の上限件数。
const defaultListLimit = 50

// ErrArticleNotFound は記事が見つからない場合のエラー。
var ErrArticleNotFound = fmt.Errorf("article not found")

// ErrInvalidArticleID は記事IDの形式が不正な場合のエラー。
var ErrInvalidArticleID = fmt.Errorf("invalid article ID")

// MongoStore はMongoDBの記事コレクションへの読み取りアクセスを提供する。
// クライアントは最初のリクエスト時に一度だけ接続され、以降は再利用される。
type MongoStore struct {
	uri        string
	database   string
	collection string

	once    sync.Once
	client  *mongo.Client
	connErr error
}

// NewMongoStore はMongoStoreを生成する。接続はまだ行わない。
func NewMongoStore(uri, database, collection string) *MongoStore {
	return &MongoStore{
		uri:        uri,
		database:   database,
		collection: collection,
	}
}

// connect は初回呼び出し時にMongoDBへ接続し、以降はキャッシュされた
// クライアントを返す。接続失敗もキャッシュされる。
func (s *MongoStore) connect(ctx context.Context) (*mongo.Collection, error) {
	s.once.Do(func() {
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		s.client, s.connErr = mongo.Connect(connectCtx, options.Client().ApplyURI(s.uri))
	})
	if s.connErr != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", s.connErr)
	}
	return s.client.Database(s.database).Collection(s.collection), nil
}

// Close はMongoDBクライアントを切断する。未接続の場合は何もしない。
func (s *MongoStore) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

// articleDoc はMongoDB上の記事ドキュメント。
type articleDoc struct {
	ID        primitive.ObjectID `bson:"_id"`
	Title     string             `bson:"title"`
	URL       string             `bson:"url"`
	Source    string             `bson:"source"`
	Content   string             `bson:"content"`
	CreatedAt time.Time          `bson:"created_at"`
}

func (d *articleDoc) toModel() *model.Article {
	return &model.Article{
		ID:        d.ID.Hex(),
		Title:     d.Title,
		URL:       d.URL,
		Source:    d.Source,
		Content:   d.Content,
		CreatedAt: d.CreatedAt,
	}
}

// ListRecent は最新の記事をcreated_at降順で最大50件返す。
func (s *MongoStore) ListRecent(ctx context.Context) ([]*model.Article, error) {
	coll, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(defaultListLimit)

	cursor, err := coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find articles: %w", err)
	}
	defer cursor.Close(ctx)

	articles := []*model.Article{}
	for cursor.Next(ctx) {
		var doc articleDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode article: %w", err)
		}
		articles = append(articles, doc.toModel())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate articles: %w", err)
	}

	return articles, nil
}

// FindByID は指定IDの記事を取得する。
// IDがObjectIDとして不正な場合はErrInvalidArticleID、
// 記事が存在しない場合はErrArticleNotFoundを返す。
func (s *MongoStore) FindByID(ctx context.Context, id string) (*model.Article, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrInvalidArticleID
	}

	coll, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}

	var doc articleDoc
	err = coll.FindOne(ctx, bson.D{{Key: "_id", Value: objectID}}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, ErrArticleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find article: %w", err)
	}

	return doc.toModel(), nil
}
