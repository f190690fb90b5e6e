package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jinford/interview-rag/internal/core/vectorindex"
)

const (
	// DefaultTopK は k 未指定時に取得する件数
	DefaultTopK = 3

	// Separator は取得したドキュメント同士を連結する区切り
	Separator = "\n\n---\n\n"

	// NoContext は該当ドキュメントがない場合に返す文字列
	NoContext = "No relevant context found."
)

// Embedder は単一テキストのEmbedding生成インターフェース
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Searcher は最近傍探索インターフェース
type Searcher interface {
	Search(query []float32, k int) ([]vectorindex.Hit, error)
}

// Retriever はクエリに近いコーパスを取得し、プロンプト用のテキストに整形する
type Retriever struct {
	embedder Embedder
	index    Searcher
	topK     int
	logger   *slog.Logger
}

// RetrieverOption は Retriever のオプション設定
type RetrieverOption func(*Retriever)

// WithRetrieverLogger は Retriever にロガーを設定する
func WithRetrieverLogger(logger *slog.Logger) RetrieverOption {
	return func(r *Retriever) {
		r.logger = logger
	}
}

// WithDefaultTopK は k 未指定時の取得件数を上書きする
func WithDefaultTopK(k int) RetrieverOption {
	return func(r *Retriever) {
		if k > 0 {
			r.topK = k
		}
	}
}

// NewRetriever は新しい Retriever を作成する
func NewRetriever(embedder Embedder, index Searcher, opts ...RetrieverOption) *Retriever {
	r := &Retriever{
		embedder: embedder,
		index:    index,
		topK:     DefaultTopK,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Retrieve はクエリを埋め込んで上位 k 件を検索し、本文を区切り文字で連結して返す。
// k <= 0 の場合はデフォルト件数を使う。結果が0件の場合は NoContext を返す。
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) (string, error) {
	hits, err := r.Search(ctx, query, k)
	if err != nil {
		return "", err
	}
	return JoinHits(hits), nil
}

// Search はクエリを埋め込んで上位 k 件のヒットを返す
func (r *Retriever) Search(ctx context.Context, query string, k int) ([]vectorindex.Hit, error) {
	if k <= 0 {
		k = r.topK
	}

	queryVector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	hits, err := r.index.Search(queryVector, k)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	r.logger.Debug("context retrieved", "k", k, "hits", len(hits))
	return hits, nil
}

// JoinHits はヒットした本文を区切り文字で連結する
func JoinHits(hits []vectorindex.Hit) string {
	if len(hits) == 0 {
		return NoContext
	}
	parts := make([]string, 0, len(hits))
	for _, h := range hits {
		parts = append(parts, h.Document)
	}
	return strings.Join(parts, Separator)
}
