package openai

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/openai/openai-go/v3"

	"github.com/jinford/interview-rag/internal/core/apperror"
	"github.com/jinford/interview-rag/internal/core/retrieval"
	"github.com/jinford/interview-rag/internal/core/vectorindex"
)

const (
	// DefaultEmbeddingModel はモデル未指定時のデフォルトモデル
	DefaultEmbeddingModel = "text-embedding-3-small"

	// MaxBatchSize は1回のリクエストに含められる入力数の上限
	MaxBatchSize = 2048
)

// Embedder は OpenAI API を使用してテキストをベクトルに変換する
type Embedder struct {
	client    openai.Client
	model     string
	dimension int
	timeout   time.Duration
	observer  UpstreamObserver
}

type embedderOptions struct {
	model     string
	dimension int
	baseURL   string
	timeout   time.Duration
	observer  UpstreamObserver
}

// EmbedderOption は Embedder のオプション設定
type EmbedderOption func(*embedderOptions)

// WithEmbeddingModel はモデル名を上書きする
func WithEmbeddingModel(model string) EmbedderOption {
	return func(o *embedderOptions) {
		o.model = model
	}
}

// WithEmbeddingDimension はベクトル次元を指定する。0 の場合はモデルのデフォルト次元
func WithEmbeddingDimension(dimension int) EmbedderOption {
	return func(o *embedderOptions) {
		o.dimension = dimension
	}
}

// WithEmbeddingBaseURL はAPIのベースURLを上書きする
func WithEmbeddingBaseURL(baseURL string) EmbedderOption {
	return func(o *embedderOptions) {
		o.baseURL = baseURL
	}
}

// WithEmbeddingTimeout はAPIコールのタイムアウトを設定する
func WithEmbeddingTimeout(timeout time.Duration) EmbedderOption {
	return func(o *embedderOptions) {
		o.timeout = timeout
	}
}

// WithEmbeddingObserver は呼び出し結果の通知先を設定する
func WithEmbeddingObserver(observer UpstreamObserver) EmbedderOption {
	return func(o *embedderOptions) {
		o.observer = observer
	}
}

// NewEmbedder は新しい Embedder を作成する
func NewEmbedder(apiKey string, opts ...EmbedderOption) (*Embedder, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}

	options := embedderOptions{
		model:    DefaultEmbeddingModel,
		timeout:  DefaultTimeout,
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.observer == nil {
		options.observer = nopObserver{}
	}

	return &Embedder{
		client:    openai.NewClient(requestOptions(apiKey, options.baseURL)...),
		model:     options.model,
		dimension: options.dimension,
		timeout:   options.timeout,
		observer:  options.observer,
	}, nil
}

// Embed は単一テキストの Embedding を生成する
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := e.BatchEmbed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// BatchEmbed は1回のリクエストで全テキストの Embedding を生成し、入力と同じ順序で返す。
// 一部でも失敗した場合は全体を失敗とする。
func (e *Embedder) BatchEmbed(ctx context.Context, texts []string) (vectors [][]float32, err error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("no texts provided")
	}
	if len(texts) > MaxBatchSize {
		return nil, fmt.Errorf("batch size %d exceeds maximum of %d", len(texts), MaxBatchSize)
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		e.observer.ObserveUpstream(opEmbeddings, time.Since(start), err)
	}()

	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(e.model),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
	}
	if e.dimension > 0 {
		params.Dimensions = openai.Int(int64(e.dimension))
	}

	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, apperror.Upstream("embeddings", err)
	}

	if len(resp.Data) != len(texts) {
		return nil, apperror.Upstream("embeddings", fmt.Errorf("got %d embeddings for %d inputs", len(resp.Data), len(texts)))
	}

	data := resp.Data
	sort.SliceStable(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	vectors = make([][]float32, len(data))
	for i, d := range data {
		if len(d.Embedding) == 0 {
			return nil, apperror.Upstream("embeddings", fmt.Errorf("empty embedding at index %d", d.Index))
		}
		vector := make([]float32, len(d.Embedding))
		for j, v := range d.Embedding {
			vector[j] = float32(v)
		}
		vectors[i] = vector
	}

	return vectors, nil
}

// ModelName はモデル名を返す
func (e *Embedder) ModelName() string {
	return e.model
}

// Dimension は指定されたベクトル次元数を返す（0 はモデルのデフォルト）
func (e *Embedder) Dimension() int {
	return e.dimension
}

// インターフェース実装の確認
var (
	_ vectorindex.Embedder = (*Embedder)(nil)
	_ retrieval.Embedder   = (*Embedder)(nil)
)
