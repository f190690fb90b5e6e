package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/interview-rag/internal/core/apperror"
	"github.com/jinford/interview-rag/internal/core/interview"
)

type stubService struct {
	generateParams []interview.GenerateParams
	evaluatePairs  [][]interview.QAPair

	result     *interview.GenerateResult
	evaluation *interview.Evaluation
	err        error
}

func (s *stubService) GenerateQuestions(ctx context.Context, params interview.GenerateParams) (*interview.GenerateResult, error) {
	s.generateParams = append(s.generateParams, params)
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func (s *stubService) Evaluate(ctx context.Context, pairs []interview.QAPair) (*interview.Evaluation, error) {
	s.evaluatePairs = append(s.evaluatePairs, pairs)
	if s.err != nil {
		return nil, s.err
	}
	return s.evaluation, nil
}

type stubIndex struct{}

func (stubIndex) Len() int       { return 7 }
func (stubIndex) Dimension() int { return 1536 }

type recordedRequest struct {
	method string
	route  string
	status int
}

type stubObserver struct {
	requests []recordedRequest
}

func (o *stubObserver) ObserveHTTPRequest(method, route string, status int, _ time.Duration) {
	o.requests = append(o.requests, recordedRequest{method: method, route: route, status: status})
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRouter(svc InterviewService, opts ...RouterOption) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(svc, stubIndex{}, WithHandlerLogger(discardLogger()))
	return NewRouter(h, append([]RouterOption{WithRouterLogger(discardLogger())}, opts...)...)
}

func multipartResume(t *testing.T, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("resume", "resume.txt")
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &body, w.FormDataContentType()
}

func TestGenerateQuestions_OK(t *testing.T) {
	svc := &stubService{result: &interview.GenerateResult{Questions: []string{"Q1?", "Q2?"}}}
	router := newTestRouter(svc)

	body, contentType := multipartResume(t, []byte("Go engineer\xff resume"))
	req := httptest.NewRequest(http.MethodPost, "/generate_questions/?difficulty=hard", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"questions":["Q1?","Q2?"]}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	require.Len(t, svc.generateParams, 1)
	// 不正な UTF-8 バイトは取り除かれる
	assert.Equal(t, "Go engineer resume", svc.generateParams[0].Resume)
	assert.Equal(t, mo.Some("hard"), svc.generateParams[0].Difficulty)
}

func TestGenerateQuestions_DefaultDifficultyIsAbsent(t *testing.T) {
	svc := &stubService{result: &interview.GenerateResult{Questions: []string{"Q1?"}}}
	router := newTestRouter(svc)

	body, contentType := multipartResume(t, []byte("resume"))
	req := httptest.NewRequest(http.MethodPost, "/generate_questions/", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, svc.generateParams, 1)
	assert.True(t, svc.generateParams[0].Difficulty.IsAbsent())
}

func TestGenerateQuestions_MissingFile(t *testing.T) {
	svc := &stubService{}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/generate_questions/", strings.NewReader(""))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "resume file is required")
	assert.Empty(t, svc.generateParams)
}

func TestGenerateQuestions_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"upstream", apperror.Upstream("chat completion", errors.New("rate limited")), http.StatusBadGateway},
		{"not found", apperror.NotFound("corpus directory %q", "data"), http.StatusNotFound},
		{"invalid input", apperror.InvalidInput("resume is required"), http.StatusBadRequest},
		{"internal", errors.New("disk full"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(&stubService{err: tt.err})

			body, contentType := multipartResume(t, []byte("resume"))
			req := httptest.NewRequest(http.MethodPost, "/generate_questions/", body)
			req.Header.Set("Content-Type", contentType)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var resp map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.err.Error(), resp["error"])
		})
	}
}

func TestEvaluate_OK(t *testing.T) {
	raw := "Score: 64/100\n- Good fundamentals.\nRecommendation: Needs improvement"
	svc := &stubService{evaluation: &interview.Evaluation{
		Raw: raw,
		Summary: interview.EvaluationSummary{
			Score:          mo.Some(64),
			Feedback:       []string{"Good fundamentals."},
			Recommendation: "Needs improvement",
		},
	}}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/evaluate/",
		strings.NewReader(`{"qa_pairs":[{"question":"What is a channel?","answer":"A typed conduit."}]}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Score   string `json:"score"`
		Summary struct {
			Score          *int     `json:"score"`
			Feedback       []string `json:"feedback"`
			Recommendation string   `json:"recommendation"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, raw, resp.Score)
	require.NotNil(t, resp.Summary.Score)
	assert.Equal(t, 64, *resp.Summary.Score)
	assert.Equal(t, []string{"Good fundamentals."}, resp.Summary.Feedback)
	assert.Equal(t, "Needs improvement", resp.Summary.Recommendation)

	require.Len(t, svc.evaluatePairs, 1)
	assert.Equal(t, []interview.QAPair{{Question: "What is a channel?", Answer: "A typed conduit."}}, svc.evaluatePairs[0])
}

func TestEvaluate_EmptyTranscriptIsForwarded(t *testing.T) {
	svc := &stubService{evaluation: &interview.Evaluation{Raw: "Nothing to evaluate."}}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/evaluate/", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"score":"Nothing to evaluate.","summary":{"score":null,"feedback":[]}}`, rec.Body.String())
	require.Len(t, svc.evaluatePairs, 1)
	assert.Empty(t, svc.evaluatePairs[0])
}

func TestEvaluate_MalformedBody(t *testing.T) {
	svc := &stubService{}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/evaluate/", strings.NewReader(`{"qa_pairs":`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, svc.evaluatePairs)
}

func TestHealth(t *testing.T) {
	router := newTestRouter(&stubService{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","documents":7,"dimension":1536}`, rec.Body.String())
}
