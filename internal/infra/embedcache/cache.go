// Package embedcache はクエリ Embedding の LRU キャッシュを提供する
package embedcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Embedder はキャッシュ対象の Embedding クライアント
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	BatchEmbed(ctx context.Context, texts []string) ([][]float32, error)
	ModelName() string
}

// Observer はキャッシュのヒット・ミスを受け取るインターフェース
type Observer interface {
	ObserveEmbeddingCache(hit bool)
}

type nopObserver struct{}

func (nopObserver) ObserveEmbeddingCache(bool) {}

// CachingEmbedder は Embed の結果をテキスト単位でキャッシュする。
// 1回の質問生成で同じ履歴書を繰り返し検索クエリにするため、2回目以降は外部呼び出しを省く。
// BatchEmbed（インデックス構築）はキャッシュせずにそのまま委譲する。
type CachingEmbedder struct {
	next     Embedder
	cache    *lru.Cache[string, []float32]
	observer Observer
	logger   *slog.Logger
}

// Option は CachingEmbedder のオプション設定
type Option func(*CachingEmbedder)

// WithLogger はロガーを設定する
func WithLogger(logger *slog.Logger) Option {
	return func(c *CachingEmbedder) {
		c.logger = logger
	}
}

// WithObserver はヒット・ミスの記録先を設定する
func WithObserver(observer Observer) Option {
	return func(c *CachingEmbedder) {
		c.observer = observer
	}
}

// New は最大 size 件を保持する CachingEmbedder を作成する
func New(next Embedder, size int, opts ...Option) (*CachingEmbedder, error) {
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding cache: %w", err)
	}

	c := &CachingEmbedder{
		next:     next,
		cache:    cache,
		observer: nopObserver{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.observer == nil {
		c.observer = nopObserver{}
	}
	return c, nil
}

// Embed はキャッシュにあればそれを返し、なければ委譲先を呼び出して結果を保存する。
// 失敗した結果はキャッシュしない。
func (c *CachingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := c.key(text)
	if vector, ok := c.cache.Get(key); ok {
		c.observer.ObserveEmbeddingCache(true)
		return slices.Clone(vector), nil
	}
	c.observer.ObserveEmbeddingCache(false)

	vector, err := c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	c.cache.Add(key, slices.Clone(vector))
	c.logger.Debug("query embedding cached", "entries", c.cache.Len())
	return vector, nil
}

// BatchEmbed は委譲先をそのまま呼び出す
func (c *CachingEmbedder) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	return c.next.BatchEmbed(ctx, texts)
}

// ModelName は委譲先のモデル名を返す
func (c *CachingEmbedder) ModelName() string {
	return c.next.ModelName()
}

// Len はキャッシュ済みの件数を返す
func (c *CachingEmbedder) Len() int {
	return c.cache.Len()
}

// key はモデル名とテキストから固定長のキーを作る
func (c *CachingEmbedder) key(text string) string {
	sum := sha256.Sum256([]byte(c.next.ModelName() + "\x00" + text))
	return hex.EncodeToString(sum[:])
}
