package interview

import (
	"context"
	"fmt"
	"log/slog"
)

const (
	// QuestionMaxTokens は質問生成の出力トークン上限
	QuestionMaxTokens = 150
	// QuestionTemperature は質問生成のサンプリング温度（話題のばらつきを優先）
	QuestionTemperature = 0.7
	// QuestionContextK は質問生成時に取得するコーパス件数
	QuestionContextK = 3
)

// QuestionGenerator は履歴書と取得コンテキストから質問を1つ生成する
type QuestionGenerator struct {
	retriever    ContextRetriever
	llm          LLMClient
	tokenCounter TokenCounter
	contextK     int
	logger       *slog.Logger
}

// GeneratorOption は QuestionGenerator のオプション設定
type GeneratorOption func(*QuestionGenerator)

// WithGeneratorLogger は QuestionGenerator にロガーを設定する
func WithGeneratorLogger(logger *slog.Logger) GeneratorOption {
	return func(g *QuestionGenerator) {
		g.logger = logger
	}
}

// WithGeneratorTokenCounter はプロンプトのトークン数計測を有効にする
func WithGeneratorTokenCounter(counter TokenCounter) GeneratorOption {
	return func(g *QuestionGenerator) {
		g.tokenCounter = counter
	}
}

// WithContextK は取得するコーパス件数を上書きする
func WithContextK(k int) GeneratorOption {
	return func(g *QuestionGenerator) {
		if k > 0 {
			g.contextK = k
		}
	}
}

// NewQuestionGenerator は新しい QuestionGenerator を作成する
func NewQuestionGenerator(retriever ContextRetriever, llm LLMClient, opts ...GeneratorOption) *QuestionGenerator {
	g := &QuestionGenerator{
		retriever: retriever,
		llm:       llm,
		contextK:  QuestionContextK,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	return g
}

// Generate は既出の質問を避けるよう指示したプロンプトで新しい質問を1つ生成する。
// 検索クエリには履歴書全文を、プロンプトには先頭 ResumeExcerptLimit 文字を使う。
func (g *QuestionGenerator) Generate(ctx context.Context, resume string, asked []string) (string, error) {
	retrieved, err := g.retriever.Retrieve(ctx, resume, g.contextK)
	if err != nil {
		return "", fmt.Errorf("failed to retrieve context: %w", err)
	}

	prompt, err := BuildQuestionPrompt(ResumeExcerpt(resume), retrieved, asked)
	if err != nil {
		return "", err
	}

	if g.tokenCounter != nil {
		g.logger.Debug("question prompt built",
			"promptTokens", g.tokenCounter.CountTokens(prompt),
			"asked", len(asked),
		)
	}

	resp, err := g.llm.GenerateCompletion(ctx, CompletionRequest{
		Prompt:      prompt,
		MaxTokens:   QuestionMaxTokens,
		Temperature: QuestionTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate question: %w", err)
	}

	question := CleanQuestion(resp.Content)
	g.logger.Debug("question generated",
		"tokensUsed", resp.TokensUsed,
		"questionLength", len(question),
	)
	return question, nil
}
