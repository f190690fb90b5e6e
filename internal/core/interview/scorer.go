package interview

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

const (
	// EvaluationMaxTokens は採点の出力トークン上限
	EvaluationMaxTokens = 400
	// EvaluationTemperature は採点のサンプリング温度（一貫性を優先）
	EvaluationTemperature = 0.3
)

// TranscriptScorer は面接記録全体をLLMで採点する
type TranscriptScorer struct {
	llm          LLMClient
	tokenCounter TokenCounter
	logger       *slog.Logger
}

// ScorerOption は TranscriptScorer のオプション設定
type ScorerOption func(*TranscriptScorer)

// WithScorerLogger は TranscriptScorer にロガーを設定する
func WithScorerLogger(logger *slog.Logger) ScorerOption {
	return func(s *TranscriptScorer) {
		s.logger = logger
	}
}

// WithScorerTokenCounter はプロンプトのトークン数計測を有効にする
func WithScorerTokenCounter(counter TokenCounter) ScorerOption {
	return func(s *TranscriptScorer) {
		s.tokenCounter = counter
	}
}

// NewTranscriptScorer は新しい TranscriptScorer を作成する
func NewTranscriptScorer(llm LLMClient, opts ...ScorerOption) *TranscriptScorer {
	s := &TranscriptScorer{
		llm:    llm,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Score は面接記録を採点し、LLMの出力を前後の空白のみ除いてそのまま返す。
// 記録が空でもローカルで打ち切らず、空の記録としてLLMを呼び出す。
func (s *TranscriptScorer) Score(ctx context.Context, pairs []QAPair) (string, error) {
	prompt, err := BuildEvaluationPrompt(pairs)
	if err != nil {
		return "", err
	}

	if s.tokenCounter != nil {
		s.logger.Debug("evaluation prompt built",
			"promptTokens", s.tokenCounter.CountTokens(prompt),
			"pairs", len(pairs),
		)
	}

	resp, err := s.llm.GenerateCompletion(ctx, CompletionRequest{
		Prompt:      prompt,
		MaxTokens:   EvaluationMaxTokens,
		Temperature: EvaluationTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to evaluate transcript: %w", err)
	}

	return strings.TrimSpace(resp.Content), nil
}
