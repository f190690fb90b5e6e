package interview

import "context"

// LLMClient はLLM通信インターフェース
type LLMClient interface {
	GenerateCompletion(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
}

// ContextRetriever はクエリに関連するコーパスをテキストで返すインターフェース
type ContextRetriever interface {
	Retrieve(ctx context.Context, query string, k int) (string, error)
}

// TokenCounter はプロンプトのトークン数を数えるインターフェース
type TokenCounter interface {
	CountTokens(text string) int
}

// Recorder は面接処理の計測値を記録するインターフェース
type Recorder interface {
	QuestionGenerated()
	QuestionFailed()
	EvaluationCompleted(err error)
}

type nopRecorder struct{}

func (nopRecorder) QuestionGenerated()          {}
func (nopRecorder) QuestionFailed()             {}
func (nopRecorder) EvaluationCompleted(_ error) {}
