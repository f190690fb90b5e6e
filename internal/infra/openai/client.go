package openai

import (
	"context"
	"errors"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/jinford/interview-rag/internal/core/apperror"
	"github.com/jinford/interview-rag/internal/core/interview"
)

const (
	// DefaultChatModel はデフォルトで使用するOpenAIチャットモデル
	DefaultChatModel = "gpt-4o-mini"

	// DefaultTimeout はAPI呼び出しのデフォルトタイムアウト
	DefaultTimeout = 60 * time.Second

	opChatCompletion = "chat_completion"
	opEmbeddings     = "embeddings"
)

var (
	// ErrAPIKeyNotSet はAPIキーが設定されていない場合のエラー
	ErrAPIKeyNotSet = errors.New("OpenAI API key not set: please set OPENAI_API_KEY environment variable")

	// ErrNoChoices はレスポンスに生成結果が含まれない場合のエラー
	ErrNoChoices = errors.New("no completion choices returned")
)

// UpstreamObserver は外部API呼び出しの結果を受け取るインターフェース
type UpstreamObserver interface {
	ObserveUpstream(operation string, duration time.Duration, err error)
}

type nopObserver struct{}

func (nopObserver) ObserveUpstream(string, time.Duration, error) {}

// Client は OpenAI Chat Completions API を使用した LLM クライアント実装。
// 失敗時のリトライは行わない（SDK の自動リトライも無効化する）。
type Client struct {
	client   openai.Client
	model    string
	timeout  time.Duration
	observer UpstreamObserver
}

type clientOptions struct {
	model    string
	baseURL  string
	timeout  time.Duration
	observer UpstreamObserver
}

// ClientOption は Client のオプション設定
type ClientOption func(*clientOptions)

// WithChatModel はモデル名を上書きする
func WithChatModel(model string) ClientOption {
	return func(o *clientOptions) {
		o.model = model
	}
}

// WithBaseURL はAPIのベースURLを上書きする（互換APIやテスト用）
func WithBaseURL(baseURL string) ClientOption {
	return func(o *clientOptions) {
		o.baseURL = baseURL
	}
}

// WithTimeout はAPIコールのタイムアウトを設定する
func WithTimeout(timeout time.Duration) ClientOption {
	return func(o *clientOptions) {
		o.timeout = timeout
	}
}

// WithObserver は呼び出し結果の通知先を設定する
func WithObserver(observer UpstreamObserver) ClientOption {
	return func(o *clientOptions) {
		o.observer = observer
	}
}

// NewClient はAPIキーを指定して Client を作成する
func NewClient(apiKey string, opts ...ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}

	options := clientOptions{
		model:    DefaultChatModel,
		timeout:  DefaultTimeout,
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.observer == nil {
		options.observer = nopObserver{}
	}

	return &Client{
		client:   openai.NewClient(requestOptions(apiKey, options.baseURL)...),
		model:    options.model,
		timeout:  options.timeout,
		observer: options.observer,
	}, nil
}

// ModelName はモデル名を返す
func (c *Client) ModelName() string {
	return c.model
}

// GenerateCompletion はプロンプトを唯一のメッセージとしてテキストを生成する
func (c *Client) GenerateCompletion(ctx context.Context, req interview.CompletionRequest) (resp interview.CompletionResponse, err error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		c.observer.ObserveUpstream(opChatCompletion, time.Since(start), err)
	}()

	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.Prompt),
		},
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return interview.CompletionResponse{}, apperror.Upstream("chat completion", err)
	}

	if len(completion.Choices) == 0 {
		return interview.CompletionResponse{}, apperror.Upstream("chat completion", ErrNoChoices)
	}

	return interview.CompletionResponse{
		Content:    completion.Choices[0].Message.Content,
		TokensUsed: int(completion.Usage.TotalTokens),
		Model:      completion.Model,
	}, nil
}

func requestOptions(apiKey, baseURL string) []option.RequestOption {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return opts
}

// インターフェース実装の確認
var _ interview.LLMClient = (*Client)(nil)
