package container

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/interview-rag/internal/core/apperror"
	"github.com/jinford/interview-rag/internal/core/interview"
	"github.com/jinford/interview-rag/internal/platform/config"
)

// keywordEmbedder は "go" と "python" の出現有無で2次元ベクトルを作るスタブ
type keywordEmbedder struct {
	batchCalls int
}

func (e *keywordEmbedder) vector(text string) []float32 {
	lower := strings.ToLower(text)
	v := []float32{0, 0}
	if strings.Contains(lower, "go") {
		v[0] = 1
	}
	if strings.Contains(lower, "python") {
		v[1] = 1
	}
	return v
}

func (e *keywordEmbedder) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	e.batchCalls++
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vector(t)
	}
	return out, nil
}

func (e *keywordEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return e.vector(text), nil
}

func (e *keywordEmbedder) ModelName() string { return "keyword" }

type echoLLM struct {
	prompts []string
}

func (l *echoLLM) GenerateCompletion(ctx context.Context, req interview.CompletionRequest) (interview.CompletionResponse, error) {
	l.prompts = append(l.prompts, req.Prompt)
	return interview.CompletionResponse{Content: "Question: Explain goroutines."}, nil
}

type fixedCounter struct{}

func (fixedCounter) CountTokens(string) int { return 1 }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	corpusDir := filepath.Join(dir, "data")
	require.NoError(t, os.MkdirAll(corpusDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(corpusDir, "a.txt"), []byte("Go concurrency uses goroutines."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(corpusDir, "b.txt"), []byte("Python has a GIL."), 0o644))

	return &config.Config{
		Corpus:    config.CorpusConfig{Dir: corpusDir, IndexPath: filepath.Join(dir, "index.gob")},
		Retrieval: config.RetrievalConfig{TopK: 1},
		Interview: config.InterviewConfig{QuestionCount: 2, FailurePolicy: "abort"},
	}
}

func newTestContainer(t *testing.T, cfg *config.Config, embedder *keywordEmbedder, llm *echoLLM, extra ...ContainerOption) (*ServiceContainer, error) {
	t.Helper()
	opts := []ContainerOption{
		WithContainerLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithContainerEmbedder(embedder),
		WithContainerLLMClient(llm),
		WithContainerTokenCounter(fixedCounter{}),
		WithContainerRegistry(prometheus.NewRegistry()),
	}
	return NewContainer(context.Background(), cfg, append(opts, extra...)...)
}

func TestNewContainer_BuildsAndPersistsIndex(t *testing.T) {
	cfg := testConfig(t)
	embedder := &keywordEmbedder{}
	llm := &echoLLM{}

	c, err := newTestContainer(t, cfg, embedder, llm)
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, 2, c.Index.Len())
	assert.Equal(t, 2, c.Index.Dimension())
	assert.FileExists(t, cfg.Corpus.IndexPath)
	assert.Equal(t, 1, embedder.batchCalls)

	// 2回目はファイルからロードされ、Embedding は呼ばれない
	c2, err := newTestContainer(t, cfg, embedder, llm)
	require.NoError(t, err)
	assert.Equal(t, 2, c2.Index.Len())
	assert.Equal(t, 1, embedder.batchCalls)

	// 再構築指定時は必ず Embedding し直す
	_, err = newTestContainer(t, cfg, embedder, llm, WithRebuildIndex())
	require.NoError(t, err)
	assert.Equal(t, 2, embedder.batchCalls)
}

func TestNewContainer_WiresInterviewService(t *testing.T) {
	cfg := testConfig(t)
	llm := &echoLLM{}

	c, err := newTestContainer(t, cfg, &keywordEmbedder{}, llm)
	require.NoError(t, err)

	result, err := c.InterviewService.GenerateQuestions(context.Background(), interview.GenerateParams{
		Resume: "Backend engineer, 5 years of Go.",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Explain goroutines.", "Explain goroutines."}, result.Questions)
	require.Len(t, llm.prompts, 2)
	assert.Contains(t, llm.prompts[0], "Go concurrency uses goroutines.")
	assert.NotContains(t, llm.prompts[0], "Python has a GIL.")
}

func TestNewContainer_MissingCorpus(t *testing.T) {
	cfg := testConfig(t)
	cfg.Corpus.Dir = filepath.Join(t.TempDir(), "missing")

	_, err := newTestContainer(t, cfg, &keywordEmbedder{}, &echoLLM{})
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}

func TestNewContainer_InvalidFailurePolicy(t *testing.T) {
	cfg := testConfig(t)
	cfg.Interview.FailurePolicy = "retry"

	_, err := newTestContainer(t, cfg, &keywordEmbedder{}, &echoLLM{})
	assert.Error(t, err)
}

func TestNewContainer_RequiresAPIKeyWithoutOverrides(t *testing.T) {
	cfg := testConfig(t)

	_, err := NewContainer(context.Background(), cfg,
		WithContainerLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithContainerRegistry(prometheus.NewRegistry()),
	)
	assert.Error(t, err)
}
