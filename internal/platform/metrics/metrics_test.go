package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/interview-rag/internal/core/interview"
	"github.com/jinford/interview-rag/internal/infra/embedcache"
	"github.com/jinford/interview-rag/internal/infra/openai"
)

var (
	_ interview.Recorder      = (*Metrics)(nil)
	_ openai.UpstreamObserver = (*Metrics)(nil)
	_ embedcache.Observer     = (*Metrics)(nil)
)

func TestNew_RegistersOnRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.QuestionGenerated()
	m.SetIndexDocuments(4)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "interview_rag_questions_generated_total")
	assert.Contains(t, names, "interview_rag_index_documents")
}

func TestNew_NilRegistry(t *testing.T) {
	m := New(nil)
	assert.NotPanics(t, func() { m.QuestionFailed() })
}

func TestObserveUpstream(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveUpstream("embeddings", 120*time.Millisecond, nil)
	m.ObserveUpstream("chat_completion", time.Second, errors.New("502"))
	m.ObserveUpstream("chat_completion", time.Second, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.UpstreamCalls.WithLabelValues("embeddings", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UpstreamCalls.WithLabelValues("chat_completion", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UpstreamCalls.WithLabelValues("chat_completion", "success")))
}

func TestRecorder(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.QuestionGenerated()
	m.QuestionGenerated()
	m.QuestionFailed()
	m.EvaluationCompleted(nil)
	m.EvaluationCompleted(errors.New("boom"))
	m.SetIndexDocuments(12)
	m.ObserveHTTPRequest("POST", "/evaluate/", 502, time.Second)
	m.ObserveEmbeddingCache(true)
	m.ObserveEmbeddingCache(false)
	m.ObserveEmbeddingCache(true)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.QuestionsGenerated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QuestionsFailed))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Evaluations.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Evaluations.WithLabelValues("error")))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.IndexDocuments))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("POST", "/evaluate/", "502")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.EmbeddingCache.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EmbeddingCache.WithLabelValues("miss")))
}
