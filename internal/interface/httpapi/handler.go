package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/samber/mo"

	"github.com/jinford/interview-rag/internal/core/apperror"
	"github.com/jinford/interview-rag/internal/core/interview"
)

// MaxResumeBytes はアップロードされる履歴書の最大サイズ
const MaxResumeBytes = 5 << 20

// InterviewService はHTTPハンドラが利用する面接ロジック
type InterviewService interface {
	GenerateQuestions(ctx context.Context, params interview.GenerateParams) (*interview.GenerateResult, error)
	Evaluate(ctx context.Context, pairs []interview.QAPair) (*interview.Evaluation, error)
}

// IndexInfo はヘルスチェックで返すインデックス情報
type IndexInfo interface {
	Len() int
	Dimension() int
}

// Handler は面接APIのHTTPハンドラ
type Handler struct {
	service InterviewService
	index   IndexInfo
	logger  *slog.Logger
}

// HandlerOption は Handler のオプション設定
type HandlerOption func(*Handler)

// WithHandlerLogger は Handler にロガーを設定する
func WithHandlerLogger(logger *slog.Logger) HandlerOption {
	return func(h *Handler) {
		h.logger = logger
	}
}

// NewHandler は新しい Handler を作成する
func NewHandler(service InterviewService, index IndexInfo, opts ...HandlerOption) *Handler {
	h := &Handler{
		service: service,
		index:   index,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	return h
}

type generateQuestionsResponse struct {
	Questions []string `json:"questions"`
	Failures  int      `json:"failures,omitempty"`
}

type evaluateRequest struct {
	QAPairs []interview.QAPair `json:"qa_pairs"`
}

type evaluationSummaryResponse struct {
	Score          *int     `json:"score"`
	Feedback       []string `json:"feedback"`
	Recommendation string   `json:"recommendation,omitempty"`
}

type evaluateResponse struct {
	Score   string                    `json:"score"`
	Summary evaluationSummaryResponse `json:"summary"`
}

type healthResponse struct {
	Status    string `json:"status"`
	Documents int    `json:"documents"`
	Dimension int    `json:"dimension"`
}

// GenerateQuestions は POST /generate_questions/ を処理する
func (h *Handler) GenerateQuestions(c *gin.Context) {
	resume, err := readResume(c)
	if err != nil {
		h.writeError(c, err)
		return
	}

	params := interview.GenerateParams{Resume: resume}
	if difficulty := strings.TrimSpace(c.Query("difficulty")); difficulty != "" {
		params.Difficulty = mo.Some(difficulty)
	}

	result, err := h.service.GenerateQuestions(c.Request.Context(), params)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, generateQuestionsResponse{
		Questions: result.Questions,
		Failures:  result.Failures,
	})
}

// Evaluate は POST /evaluate/ を処理する
func (h *Handler) Evaluate(c *gin.Context) {
	var req evaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, apperror.InvalidInput("invalid request body: %v", err))
		return
	}
	if req.QAPairs == nil {
		req.QAPairs = []interview.QAPair{}
	}

	eval, err := h.service.Evaluate(c.Request.Context(), req.QAPairs)
	if err != nil {
		h.writeError(c, err)
		return
	}

	feedback := eval.Summary.Feedback
	if feedback == nil {
		feedback = []string{}
	}
	var score *int
	if v, ok := eval.Summary.Score.Get(); ok {
		score = &v
	}
	c.JSON(http.StatusOK, evaluateResponse{
		Score: eval.Raw,
		Summary: evaluationSummaryResponse{
			Score:          score,
			Feedback:       feedback,
			Recommendation: eval.Summary.Recommendation,
		},
	})
}

// Health は GET /healthz を処理する
func (h *Handler) Health(c *gin.Context) {
	resp := healthResponse{Status: "ok"}
	if h.index != nil {
		resp.Documents = h.index.Len()
		resp.Dimension = h.index.Dimension()
	}
	c.JSON(http.StatusOK, resp)
}

// readResume は multipart の resume フィールドを UTF-8 テキストとして読み込む。
// 不正なバイト列は取り除く。
func readResume(c *gin.Context) (string, error) {
	fileHeader, err := c.FormFile("resume")
	if err != nil {
		return "", apperror.InvalidInput("resume file is required: %v", err)
	}

	f, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded resume: %w", err)
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, MaxResumeBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to read uploaded resume: %w", err)
	}
	if len(content) > MaxResumeBytes {
		return "", apperror.InvalidInput("resume exceeds %d bytes", MaxResumeBytes)
	}

	return strings.ToValidUTF8(string(content), ""), nil
}

// writeError はエラー種別に応じたステータスコードでレスポンスを返す
func (h *Handler) writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			"path", c.FullPath(),
			"status", status,
			"requestID", c.GetString(requestIDKey),
			"error", err,
		)
	} else {
		h.logger.Warn("request rejected",
			"path", c.FullPath(),
			"status", status,
			"requestID", c.GetString(requestIDKey),
			"error", err,
		)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, apperror.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperror.ErrUpstream):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
