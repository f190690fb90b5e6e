package vectorindex

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jinford/interview-rag/internal/core/apperror"
	"github.com/jinford/interview-rag/internal/core/corpus"
)

// Embedder はバッチでEmbeddingを生成するインターフェース
type Embedder interface {
	// BatchEmbed は入力と同じ順序でベクトルを返す
	BatchEmbed(ctx context.Context, texts []string) ([][]float32, error)
	// ModelName はモデル名を返す
	ModelName() string
}

// CorpusLoader はコーパスを読み込むインターフェース
type CorpusLoader interface {
	Load(ctx context.Context, dir string) ([]corpus.Document, error)
}

// Builder はコーパスからインデックスを構築し、永続化ファイルとの読み書きを担う
type Builder struct {
	loader    CorpusLoader
	embedder  Embedder
	store     *Store
	corpusDir string
	logger    *slog.Logger
}

// BuilderOption は Builder のオプション設定
type BuilderOption func(*Builder)

// WithBuilderLogger は Builder にロガーを設定する
func WithBuilderLogger(logger *slog.Logger) BuilderOption {
	return func(b *Builder) {
		b.logger = logger
	}
}

// NewBuilder は新しい Builder を作成する
func NewBuilder(loader CorpusLoader, embedder Embedder, store *Store, corpusDir string, opts ...BuilderOption) *Builder {
	b := &Builder{
		loader:    loader,
		embedder:  embedder,
		store:     store,
		corpusDir: corpusDir,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	return b
}

// Build はコーパス全体を1回のバッチで埋め込み、インデックスを作成して保存する。
// Embedding が全件成功した場合にのみファイルを書き出す。
func (b *Builder) Build(ctx context.Context) (*Index, error) {
	b.logger.Info("building vector index", "corpusDir", b.corpusDir, "path", b.store.Path())

	docs, err := b.loader.Load(ctx, b.corpusDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load corpus: %w", err)
	}
	contents := corpus.Contents(docs)

	vectors, err := b.embedder.BatchEmbed(ctx, contents)
	if err != nil {
		return nil, fmt.Errorf("failed to embed corpus: %w", err)
	}
	if len(vectors) != len(contents) {
		return nil, apperror.Upstream("embeddings", fmt.Errorf("got %d vectors for %d documents", len(vectors), len(contents)))
	}
	if len(vectors[0]) == 0 {
		return nil, apperror.Upstream("embeddings", fmt.Errorf("empty embedding vector"))
	}

	// 最初のレスポンスの次元をインデックスの次元とする
	idx, err := New(len(vectors[0]))
	if err != nil {
		return nil, err
	}
	if err := idx.Add(vectors, contents); err != nil {
		return nil, fmt.Errorf("failed to populate index: %w", err)
	}

	if err := b.store.Save(idx, b.embedder.ModelName()); err != nil {
		return nil, fmt.Errorf("failed to persist index: %w", err)
	}

	b.logger.Info("vector index built",
		"documents", idx.Len(),
		"dimension", idx.Dimension(),
		"model", b.embedder.ModelName(),
	)
	return idx, nil
}

// LoadOrBuild は保存済みファイルがあれば読み込み、なければ Build する
func (b *Builder) LoadOrBuild(ctx context.Context) (*Index, error) {
	exists, err := b.store.Exists()
	if err != nil {
		return nil, err
	}
	if !exists {
		b.logger.Info("no vector index found, building one", "path", b.store.Path())
		return b.Build(ctx)
	}

	idx, model, err := b.store.Load()
	if err != nil {
		return nil, err
	}

	if model != b.embedder.ModelName() {
		// 次元が異なる場合は検索時にエラーになる
		b.logger.Warn("vector index was built with a different embedding model",
			"indexModel", model,
			"configuredModel", b.embedder.ModelName(),
			"path", b.store.Path(),
		)
	}

	b.logger.Info("vector index loaded",
		"documents", idx.Len(),
		"dimension", idx.Dimension(),
		"path", b.store.Path(),
	)
	return idx, nil
}
