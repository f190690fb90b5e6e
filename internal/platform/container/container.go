package container

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pkoukk/tiktoken-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/jinford/interview-rag/internal/core/corpus"
	"github.com/jinford/interview-rag/internal/core/interview"
	"github.com/jinford/interview-rag/internal/core/retrieval"
	"github.com/jinford/interview-rag/internal/core/vectorindex"
	"github.com/jinford/interview-rag/internal/infra/embedcache"
	"github.com/jinford/interview-rag/internal/infra/openai"
	"github.com/jinford/interview-rag/internal/platform/config"
	"github.com/jinford/interview-rag/internal/platform/metrics"
)

// Embedder はインデックス構築と検索の両方で使う Embedding クライアント
type Embedder interface {
	vectorindex.Embedder
	retrieval.Embedder
}

// ServiceContainer はアプリケーションの依存関係を保持する。
// 構築時にインデックスをロード（なければ構築）し、以降は読み取り専用で共有する。
type ServiceContainer struct {
	Config           *config.Config
	Index            *vectorindex.Index
	Retriever        *retrieval.Retriever
	InterviewService *interview.InterviewService
	Metrics          *metrics.Metrics
	Registry         *prometheus.Registry

	logger *slog.Logger
}

type containerOptions struct {
	logger       *slog.Logger
	embedder     Embedder
	llmClient    interview.LLMClient
	tokenCounter interview.TokenCounter
	registry     *prometheus.Registry
	rebuildIndex bool
}

// ContainerOption は ServiceContainer 構築時のオプション
type ContainerOption func(*containerOptions)

// WithContainerLogger はロガーを差し替える
func WithContainerLogger(logger *slog.Logger) ContainerOption {
	return func(opts *containerOptions) {
		opts.logger = logger
	}
}

// WithContainerEmbedder はカスタム Embedder を注入する
func WithContainerEmbedder(embedder Embedder) ContainerOption {
	return func(opts *containerOptions) {
		opts.embedder = embedder
	}
}

// WithContainerLLMClient は LLM クライアントを差し替える
func WithContainerLLMClient(client interview.LLMClient) ContainerOption {
	return func(opts *containerOptions) {
		opts.llmClient = client
	}
}

// WithContainerTokenCounter は TokenCounter を差し替える
func WithContainerTokenCounter(counter interview.TokenCounter) ContainerOption {
	return func(opts *containerOptions) {
		opts.tokenCounter = counter
	}
}

// WithContainerRegistry はメトリクスの登録先を差し替える
func WithContainerRegistry(reg *prometheus.Registry) ContainerOption {
	return func(opts *containerOptions) {
		opts.registry = reg
	}
}

// WithRebuildIndex は既存のインデックスファイルを無視して再構築する
func WithRebuildIndex() ContainerOption {
	return func(opts *containerOptions) {
		opts.rebuildIndex = true
	}
}

// NewContainer は設定からコンテナを生成する。
func NewContainer(ctx context.Context, cfg *config.Config, opts ...ContainerOption) (*ServiceContainer, error) {
	options := containerOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	registry := options.registry
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	appMetrics := metrics.New(registry)

	// Embedder (OpenAI)
	embedder := options.embedder
	if embedder == nil {
		openaiEmbedder, err := openai.NewEmbedder(
			cfg.OpenAI.APIKey,
			openai.WithEmbeddingModel(cfg.OpenAI.EmbeddingModel),
			openai.WithEmbeddingBaseURL(cfg.OpenAI.BaseURL),
			openai.WithEmbeddingTimeout(cfg.OpenAI.Timeout),
			openai.WithEmbeddingObserver(appMetrics),
		)
		if err != nil {
			return nil, fmt.Errorf("Embedder 初期化に失敗しました: %w", err)
		}
		embedder = openaiEmbedder
	}

	// 質問ごとに同じ履歴書で検索するため、クエリ Embedding をキャッシュする
	if cfg.OpenAI.CacheSize > 0 {
		cached, err := embedcache.New(embedder, cfg.OpenAI.CacheSize,
			embedcache.WithLogger(options.logger),
			embedcache.WithObserver(appMetrics),
		)
		if err != nil {
			return nil, fmt.Errorf("Embedding キャッシュ初期化に失敗しました: %w", err)
		}
		embedder = cached
	}

	// LLMClient (OpenAI)
	llmClient := options.llmClient
	if llmClient == nil {
		openaiClient, err := openai.NewClient(
			cfg.OpenAI.APIKey,
			openai.WithChatModel(cfg.OpenAI.ChatModel),
			openai.WithBaseURL(cfg.OpenAI.BaseURL),
			openai.WithTimeout(cfg.OpenAI.Timeout),
			openai.WithObserver(appMetrics),
		)
		if err != nil {
			return nil, fmt.Errorf("OpenAI LLMクライアント初期化に失敗しました: %w", err)
		}
		llmClient = openaiClient
	}

	tokenCounter := options.tokenCounter
	if tokenCounter == nil {
		counter, err := newTokenCounter()
		if err != nil {
			// トークン数はデバッグログ用途のみのため、取得できなくても継続する
			options.logger.Warn("TokenCounter を無効化します", "error", err)
		} else {
			tokenCounter = counter
		}
	}

	// VectorIndex（ファイルがあればロード、なければコーパスから構築）
	loader := corpus.NewLoader(corpus.WithLoaderLogger(options.logger))
	store := vectorindex.NewStore(cfg.Corpus.IndexPath)
	builder := vectorindex.NewBuilder(loader, embedder, store, cfg.Corpus.Dir,
		vectorindex.WithBuilderLogger(options.logger),
	)

	var (
		index *vectorindex.Index
		err   error
	)
	if options.rebuildIndex {
		index, err = builder.Build(ctx)
	} else {
		index, err = builder.LoadOrBuild(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("インデックスの準備に失敗しました: %w", err)
	}
	appMetrics.SetIndexDocuments(index.Len())

	failurePolicy, err := interview.ParseFailurePolicy(cfg.Interview.FailurePolicy)
	if err != nil {
		return nil, fmt.Errorf("設定が不正です: %w", err)
	}

	// Retriever
	retriever := retrieval.NewRetriever(embedder, index,
		retrieval.WithRetrieverLogger(options.logger),
		retrieval.WithDefaultTopK(cfg.Retrieval.TopK),
	)

	// QuestionGenerator / TranscriptScorer
	generatorOpts := []interview.GeneratorOption{
		interview.WithGeneratorLogger(options.logger),
		interview.WithContextK(cfg.Retrieval.TopK),
	}
	scorerOpts := []interview.ScorerOption{
		interview.WithScorerLogger(options.logger),
	}
	if tokenCounter != nil {
		generatorOpts = append(generatorOpts, interview.WithGeneratorTokenCounter(tokenCounter))
		scorerOpts = append(scorerOpts, interview.WithScorerTokenCounter(tokenCounter))
	}
	generator := interview.NewQuestionGenerator(retriever, llmClient, generatorOpts...)
	scorer := interview.NewTranscriptScorer(llmClient, scorerOpts...)

	// InterviewService
	interviewService := interview.NewInterviewService(generator, scorer,
		interview.WithInterviewLogger(options.logger),
		interview.WithFailurePolicy(failurePolicy),
		interview.WithQuestionCount(cfg.Interview.QuestionCount),
		interview.WithRecorder(appMetrics),
	)

	return &ServiceContainer{
		Config:           cfg,
		Index:            index,
		Retriever:        retriever,
		InterviewService: interviewService,
		Metrics:          appMetrics,
		Registry:         registry,
		logger:           options.logger,
	}, nil
}

// Close は内部リソースを解放する。現状は保持するリソースがない。
func (c *ServiceContainer) Close() {}

// Logger はロガーを返す。
func (c *ServiceContainer) Logger() *slog.Logger {
	if c == nil || c.logger == nil {
		return slog.Default()
	}
	return c.logger
}

// tokenCounter は tiktoken を利用した TokenCounter 実装。
type tokenCounter struct {
	encoding *tiktoken.Tiktoken
}

func newTokenCounter() (*tokenCounter, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("failed to load tiktoken encoding: %w", err)
	}
	return &tokenCounter{encoding: enc}, nil
}

func (t *tokenCounter) CountTokens(text string) int {
	if t.encoding == nil {
		return 0
	}
	return len(t.encoding.Encode(text, nil, nil))
}
