// Package metrics は面接シミュレーターの Prometheus メトリクスを提供する
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "interview_rag"

const (
	outcomeSuccess = "success"
	outcomeError   = "error"
)

// Metrics はアプリケーションのメトリクスを保持する
type Metrics struct {
	UpstreamCalls    *prometheus.CounterVec
	UpstreamDuration *prometheus.HistogramVec

	QuestionsGenerated prometheus.Counter
	QuestionsFailed    prometheus.Counter
	Evaluations        *prometheus.CounterVec

	IndexDocuments prometheus.Gauge

	EmbeddingCache *prometheus.CounterVec

	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New は reg にメトリクスを登録して返す。reg が nil の場合は登録しない
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		UpstreamCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_calls_total",
			Help:      "Total number of embedding and chat completion calls",
		}, []string{"operation", "outcome"}),
		UpstreamDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_call_duration_seconds",
			Help:      "Duration of embedding and chat completion calls in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		}, []string{"operation", "outcome"}),

		QuestionsGenerated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "questions_generated_total",
			Help:      "Total number of interview questions generated",
		}),
		QuestionsFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "question_failures_total",
			Help:      "Total number of failed question generation calls",
		}),
		Evaluations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Total number of transcript evaluations",
		}, []string{"outcome"}),

		IndexDocuments: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "index_documents",
			Help:      "Number of documents in the loaded vector index",
		}),

		EmbeddingCache: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_cache_lookups_total",
			Help:      "Total number of query embedding cache lookups",
		}, []string{"result"}),

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		}, []string{"method", "route"}),
	}
}

// ObserveUpstream は外部API呼び出しの結果を記録する
func (m *Metrics) ObserveUpstream(operation string, duration time.Duration, err error) {
	outcome := outcomeOf(err)
	m.UpstreamCalls.WithLabelValues(operation, outcome).Inc()
	m.UpstreamDuration.WithLabelValues(operation, outcome).Observe(duration.Seconds())
}

// QuestionGenerated は質問生成の成功を記録する
func (m *Metrics) QuestionGenerated() {
	m.QuestionsGenerated.Inc()
}

// QuestionFailed は質問生成の失敗を記録する
func (m *Metrics) QuestionFailed() {
	m.QuestionsFailed.Inc()
}

// EvaluationCompleted は採点の結果を記録する
func (m *Metrics) EvaluationCompleted(err error) {
	m.Evaluations.WithLabelValues(outcomeOf(err)).Inc()
}

// SetIndexDocuments はインデックスの文書数を記録する
func (m *Metrics) SetIndexDocuments(n int) {
	m.IndexDocuments.Set(float64(n))
}

// ObserveEmbeddingCache はクエリ Embedding キャッシュの参照結果を記録する
func (m *Metrics) ObserveEmbeddingCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.EmbeddingCache.WithLabelValues(result).Inc()
}

// ObserveHTTPRequest はHTTPリクエストの結果を記録する
func (m *Metrics) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func outcomeOf(err error) string {
	if err != nil {
		return outcomeError
	}
	return outcomeSuccess
}
