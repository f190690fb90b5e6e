package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader はリクエストIDを伝搬するヘッダ名
	RequestIDHeader = "X-Request-ID"

	requestIDKey = "requestID"
)

// RequestObserver はHTTPリクエストの計測値を受け取るインターフェース
type RequestObserver interface {
	ObserveHTTPRequest(method, route string, status int, duration time.Duration)
}

type routerOptions struct {
	logger         *slog.Logger
	observer       RequestObserver
	metricsHandler http.Handler
}

// RouterOption はルーター構築時のオプション
type RouterOption func(*routerOptions)

// WithRouterLogger はアクセスログの出力先を設定する
func WithRouterLogger(logger *slog.Logger) RouterOption {
	return func(o *routerOptions) {
		o.logger = logger
	}
}

// WithRequestObserver はリクエスト計測の記録先を設定する
func WithRequestObserver(observer RequestObserver) RouterOption {
	return func(o *routerOptions) {
		o.observer = observer
	}
}

// WithMetricsHandler は GET /metrics で公開するハンドラを設定する
func WithMetricsHandler(handler http.Handler) RouterOption {
	return func(o *routerOptions) {
		o.metricsHandler = handler
	}
}

// NewRouter は面接APIのルーターを作成する
func NewRouter(h *Handler, opts ...RouterOption) *gin.Engine {
	options := routerOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestID())
	router.Use(cors())
	router.Use(accessLog(options.logger, options.observer))

	router.POST("/generate_questions/", h.GenerateQuestions)
	router.POST("/evaluate/", h.Evaluate)
	router.GET("/healthz", h.Health)
	if options.metricsHandler != nil {
		router.GET("/metrics", gin.WrapH(options.metricsHandler))
	}

	return router
}

// requestID は受信したリクエストIDを引き継ぎ、なければ採番してレスポンスに付与する
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// cors は全オリジンからのアクセスを許可する
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "*")
		c.Header("Access-Control-Allow-Headers", "*")
		c.Header("Access-Control-Expose-Headers", RequestIDHeader)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// accessLog はリクエストごとに構造化ログを出力し、計測値を記録する
func accessLog(logger *slog.Logger, observer RequestObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start)
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()

		logger.Info("http request",
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"duration", duration,
			"requestID", c.GetString(requestIDKey),
		)
		if observer != nil {
			observer.ObserveHTTPRequest(c.Request.Method, route, status, duration)
		}
	}
}
