package interview

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/interview-rag/internal/core/apperror"
)

type recordingGenerator struct {
	failOn  map[int]error
	resumes []string
	asked   [][]string
}

func (g *recordingGenerator) Generate(ctx context.Context, resume string, asked []string) (string, error) {
	call := len(g.asked) + 1
	g.resumes = append(g.resumes, resume)
	g.asked = append(g.asked, asked)
	if err, ok := g.failOn[call]; ok {
		return "", err
	}
	return fmt.Sprintf("question %d", call), nil
}

type stubScorer struct {
	raw   string
	err   error
	pairs [][]QAPair
}

func (s *stubScorer) Score(ctx context.Context, pairs []QAPair) (string, error) {
	s.pairs = append(s.pairs, pairs)
	return s.raw, s.err
}

type countingRecorder struct {
	generated   int
	failed      int
	evaluations int
	evalErrors  int
}

func (r *countingRecorder) QuestionGenerated() { r.generated++ }
func (r *countingRecorder) QuestionFailed()    { r.failed++ }
func (r *countingRecorder) EvaluationCompleted(err error) {
	r.evaluations++
	if err != nil {
		r.evalErrors++
	}
}

func TestInterviewService_AskedListGrowsStrictly(t *testing.T) {
	gen := &recordingGenerator{}
	recorder := &countingRecorder{}
	svc := NewInterviewService(gen, &stubScorer{}, WithInterviewLogger(discardLogger()), WithRecorder(recorder))

	result, err := svc.GenerateQuestions(context.Background(), GenerateParams{Resume: "resume"})
	require.NoError(t, err)

	require.Len(t, result.Questions, DefaultQuestionCount)
	require.Len(t, gen.asked, DefaultQuestionCount)
	for n, asked := range gen.asked {
		// n 回目（0始まり）の呼び出しにはそれまでの n 個の質問が渡される
		assert.Equal(t, result.Questions[:n], asked, "call %d", n+1)
	}
	assert.Zero(t, result.Failures)
	assert.Equal(t, DefaultQuestionCount, recorder.generated)
}

func TestInterviewService_DifficultyHint(t *testing.T) {
	gen := &recordingGenerator{}
	svc := NewInterviewService(gen, &stubScorer{}, WithInterviewLogger(discardLogger()))

	_, err := svc.GenerateQuestions(context.Background(), GenerateParams{Resume: "resume", Count: 1})
	require.NoError(t, err)
	assert.Equal(t, "resume\nDifficulty: mixed", gen.resumes[0])

	_, err = svc.GenerateQuestions(context.Background(), GenerateParams{
		Resume:     "resume",
		Difficulty: mo.Some("hard"),
		Count:      1,
	})
	require.NoError(t, err)
	assert.Equal(t, "resume\nDifficulty: hard", gen.resumes[1])
}

func TestInterviewService_QuestionCountOption(t *testing.T) {
	gen := &recordingGenerator{}
	svc := NewInterviewService(gen, &stubScorer{}, WithQuestionCount(3), WithInterviewLogger(discardLogger()))

	result, err := svc.GenerateQuestions(context.Background(), GenerateParams{Resume: "resume"})
	require.NoError(t, err)
	assert.Len(t, result.Questions, 3)
}

func TestInterviewService_AbortPolicyStopsAtFirstFailure(t *testing.T) {
	gen := &recordingGenerator{failOn: map[int]error{
		4: apperror.Upstream("chat completion", errors.New("502 bad gateway")),
	}}
	recorder := &countingRecorder{}
	svc := NewInterviewService(gen, &stubScorer{},
		WithFailurePolicy(FailurePolicyAbort),
		WithRecorder(recorder),
		WithInterviewLogger(discardLogger()),
	)

	result, err := svc.GenerateQuestions(context.Background(), GenerateParams{Resume: "resume"})
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, apperror.IsUpstream(err))
	assert.Contains(t, err.Error(), "question 4 of 10")
	assert.Len(t, gen.asked, 4)
	assert.Equal(t, 3, recorder.generated)
	assert.Equal(t, 1, recorder.failed)
}

func TestInterviewService_SkipPolicyDegradesToFewerQuestions(t *testing.T) {
	gen := &recordingGenerator{failOn: map[int]error{
		2: apperror.Upstream("chat completion", errors.New("timeout")),
		7: apperror.Upstream("chat completion", errors.New("timeout")),
	}}
	svc := NewInterviewService(gen, &stubScorer{},
		WithFailurePolicy(FailurePolicySkip),
		WithInterviewLogger(discardLogger()),
	)

	result, err := svc.GenerateQuestions(context.Background(), GenerateParams{Resume: "resume"})
	require.NoError(t, err)
	assert.Len(t, result.Questions, 8)
	assert.Equal(t, 2, result.Failures)
	assert.Len(t, gen.asked, 10)
	// 失敗した呼び出しの後も既出リストは成功分だけで構成される
	assert.Equal(t, []string{"question 1"}, gen.asked[2])
}

func TestInterviewService_SkipPolicyAllFailed(t *testing.T) {
	failOn := map[int]error{}
	for i := 1; i <= 3; i++ {
		failOn[i] = apperror.Upstream("chat completion", errors.New("down"))
	}
	gen := &recordingGenerator{failOn: failOn}
	svc := NewInterviewService(gen, &stubScorer{},
		WithFailurePolicy(FailurePolicySkip),
		WithInterviewLogger(discardLogger()),
	)

	_, err := svc.GenerateQuestions(context.Background(), GenerateParams{Resume: "resume", Count: 3})
	require.Error(t, err)
	assert.True(t, apperror.IsUpstream(err))
}

func TestInterviewService_EmptyResume(t *testing.T) {
	gen := &recordingGenerator{}
	svc := NewInterviewService(gen, &stubScorer{}, WithInterviewLogger(discardLogger()))

	_, err := svc.GenerateQuestions(context.Background(), GenerateParams{Resume: "  \n"})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
	assert.Empty(t, gen.asked)
}

func TestInterviewService_CanceledContext(t *testing.T) {
	gen := &recordingGenerator{}
	svc := NewInterviewService(gen, &stubScorer{}, WithInterviewLogger(discardLogger()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.GenerateQuestions(ctx, GenerateParams{Resume: "resume"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, gen.asked)
}

func TestInterviewService_Evaluate(t *testing.T) {
	scorer := &stubScorer{raw: "Score: 72/100\n- Solid basics.\nRecommendation: Needs improvement"}
	recorder := &countingRecorder{}
	svc := NewInterviewService(&recordingGenerator{}, scorer, WithRecorder(recorder), WithInterviewLogger(discardLogger()))

	pairs := []QAPair{{Question: "q1", Answer: "a1"}}
	eval, err := svc.Evaluate(context.Background(), pairs)
	require.NoError(t, err)

	assert.Equal(t, scorer.raw, eval.Raw)
	assert.Equal(t, 72, eval.Summary.Score.MustGet())
	assert.Equal(t, []string{"Solid basics."}, eval.Summary.Feedback)
	assert.Equal(t, "Needs improvement", eval.Summary.Recommendation)
	assert.Equal(t, [][]QAPair{pairs}, scorer.pairs)
	assert.Equal(t, 1, recorder.evaluations)
}

func TestInterviewService_EvaluateEmptyTranscriptCallsScorer(t *testing.T) {
	scorer := &stubScorer{raw: "No answers to evaluate."}
	svc := NewInterviewService(&recordingGenerator{}, scorer, WithInterviewLogger(discardLogger()))

	eval, err := svc.Evaluate(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "No answers to evaluate.", eval.Raw)
	assert.True(t, eval.Summary.Score.IsAbsent())
	assert.Len(t, scorer.pairs, 1)
}

func TestInterviewService_EvaluateFailure(t *testing.T) {
	scorer := &stubScorer{err: apperror.Upstream("chat completion", errors.New("boom"))}
	recorder := &countingRecorder{}
	svc := NewInterviewService(&recordingGenerator{}, scorer, WithRecorder(recorder), WithInterviewLogger(discardLogger()))

	_, err := svc.Evaluate(context.Background(), nil)
	assert.True(t, apperror.IsUpstream(err))
	assert.Equal(t, 1, recorder.evalErrors)
}

func TestParseFailurePolicy(t *testing.T) {
	p, err := ParseFailurePolicy("")
	require.NoError(t, err)
	assert.Equal(t, FailurePolicyAbort, p)

	p, err = ParseFailurePolicy(" SKIP ")
	require.NoError(t, err)
	assert.Equal(t, FailurePolicySkip, p)

	_, err = ParseFailurePolicy("retry")
	assert.Error(t, err)
}
