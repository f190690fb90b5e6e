package interview

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jinford/interview-rag/internal/core/apperror"
)

// Generator は質問を1つ生成するインターフェース
type Generator interface {
	Generate(ctx context.Context, resume string, asked []string) (string, error)
}

// Scorer は面接記録を採点するインターフェース
type Scorer interface {
	Score(ctx context.Context, pairs []QAPair) (string, error)
}

// InterviewService は面接の質問生成と採点のビジネスロジックを提供する。
// セッション状態は保持せず、既出の質問と面接記録はすべて呼び出し側が渡す。
type InterviewService struct {
	generator     Generator
	scorer        Scorer
	failurePolicy FailurePolicy
	questionCount int
	recorder      Recorder
	logger        *slog.Logger
}

// InterviewServiceOption は InterviewService のオプション設定
type InterviewServiceOption func(*InterviewService)

// WithInterviewLogger は InterviewService にロガーを設定する
func WithInterviewLogger(logger *slog.Logger) InterviewServiceOption {
	return func(s *InterviewService) {
		s.logger = logger
	}
}

// WithFailurePolicy は質問生成失敗時の扱いを設定する
func WithFailurePolicy(policy FailurePolicy) InterviewServiceOption {
	return func(s *InterviewService) {
		s.failurePolicy = policy
	}
}

// WithQuestionCount は GenerateParams.Count 未指定時の質問数を設定する
func WithQuestionCount(n int) InterviewServiceOption {
	return func(s *InterviewService) {
		if n > 0 {
			s.questionCount = n
		}
	}
}

// WithRecorder は計測値の記録先を設定する
func WithRecorder(recorder Recorder) InterviewServiceOption {
	return func(s *InterviewService) {
		s.recorder = recorder
	}
}

// NewInterviewService は新しい InterviewService を作成する
func NewInterviewService(generator Generator, scorer Scorer, opts ...InterviewServiceOption) *InterviewService {
	svc := &InterviewService{
		generator:     generator,
		scorer:        scorer,
		failurePolicy: FailurePolicyAbort,
		questionCount: DefaultQuestionCount,
		recorder:      nopRecorder{},
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	if svc.recorder == nil {
		svc.recorder = nopRecorder{}
	}
	return svc
}

// GenerateQuestions は質問を逐次生成する。
// N 回目の呼び出しには 1..N-1 回目で生成された質問がすべて渡される。
// FailurePolicyAbort では最初の失敗でエラーを返し、FailurePolicySkip では失敗を飛ばして続行する。
func (s *InterviewService) GenerateQuestions(ctx context.Context, params GenerateParams) (*GenerateResult, error) {
	if strings.TrimSpace(params.Resume) == "" {
		return nil, apperror.InvalidInput("resume is required")
	}

	count := params.Count
	if count <= 0 {
		count = s.questionCount
	}
	difficulty := params.Difficulty.OrElse(DefaultDifficulty)
	resume := WithDifficulty(params.Resume, difficulty)

	s.logger.Info("generating interview questions",
		"count", count,
		"difficulty", difficulty,
		"failurePolicy", string(s.failurePolicy),
		"resumeLength", len(params.Resume),
	)

	result := &GenerateResult{Questions: make([]string, 0, count)}
	var lastErr error
	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// 生成済みの質問をスナップショットとして渡す
		asked := make([]string, len(result.Questions))
		copy(asked, result.Questions)
		question, err := s.generator.Generate(ctx, resume, asked)
		if err != nil {
			s.recorder.QuestionFailed()
			if s.failurePolicy != FailurePolicySkip {
				return nil, fmt.Errorf("question %d of %d: %w", i+1, count, err)
			}
			s.logger.Warn("question generation failed, skipping",
				"index", i+1,
				"error", err,
			)
			result.Failures++
			lastErr = err
			continue
		}

		s.recorder.QuestionGenerated()
		result.Questions = append(result.Questions, question)
	}

	if len(result.Questions) == 0 && lastErr != nil {
		return nil, fmt.Errorf("all %d question generation calls failed: %w", count, lastErr)
	}

	s.logger.Info("interview questions generated",
		"questions", len(result.Questions),
		"failures", result.Failures,
	)
	return result, nil
}

// Evaluate は面接記録を採点し、生テキストと抽出結果を返す
func (s *InterviewService) Evaluate(ctx context.Context, pairs []QAPair) (*Evaluation, error) {
	s.logger.Info("evaluating interview transcript", "pairs", len(pairs))

	raw, err := s.scorer.Score(ctx, pairs)
	s.recorder.EvaluationCompleted(err)
	if err != nil {
		return nil, err
	}

	summary := ParseEvaluation(raw)
	s.logger.Info("interview transcript evaluated",
		"scoreParsed", summary.Score.IsPresent(),
		"feedbackPoints", len(summary.Feedback),
	)

	return &Evaluation{Raw: raw, Summary: summary}, nil
}
