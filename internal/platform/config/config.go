package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持します
type Config struct {
	// OpenAI設定（Embeddings + Chat）
	OpenAI OpenAIConfig

	// コーパスとインデックスの配置
	Corpus CorpusConfig

	// 検索設定
	Retrieval RetrievalConfig

	// 面接設定
	Interview InterviewConfig

	// HTTPサーバー設定
	HTTP HTTPConfig

	// ログ設定
	Log LogConfig
}

// OpenAIConfig はOpenAI API設定
type OpenAIConfig struct {
	APIKey         string
	BaseURL        string // 空の場合はSDKのデフォルト
	EmbeddingModel string
	ChatModel      string
	Timeout        time.Duration
	CacheSize      int // クエリ Embedding のキャッシュ件数（0 で無効）
}

// CorpusConfig はコーパスディレクトリとインデックスファイルの設定
type CorpusConfig struct {
	Dir       string
	IndexPath string
}

// RetrievalConfig は検索設定
type RetrievalConfig struct {
	TopK int
}

// InterviewConfig は質問生成の設定
type InterviewConfig struct {
	QuestionCount int
	FailurePolicy string // "abort" or "skip"
}

// HTTPConfig はHTTPサーバー設定
type HTTPConfig struct {
	Port int
}

// LogConfig はログ設定
type LogConfig struct {
	Level  string
	Format string // "json" or "text"
}

// Load は環境変数または.envファイルから設定を読み込みます
func Load(envFilePath string) (*Config, error) {
	// .envファイルが存在する場合は読み込む
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			// ファイルが存在しない場合はエラーとしない（環境変数のみで動作可能）
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load .env file: %w", err)
			}
		}
	}

	cfg := &Config{
		OpenAI: OpenAIConfig{
			APIKey:         getEnv("OPENAI_API_KEY", ""),
			BaseURL:        getEnv("OPENAI_BASE_URL", ""),
			EmbeddingModel: getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
			ChatModel:      getEnv("OPENAI_CHAT_MODEL", "gpt-4o-mini"),
			Timeout:        time.Duration(getEnvAsInt("OPENAI_TIMEOUT_SECONDS", 60)) * time.Second,
			CacheSize:      getEnvAsInt("EMBEDDING_CACHE_SIZE", 256),
		},
		Corpus: CorpusConfig{
			Dir:       getEnv("CORPUS_DIR", "data"),
			IndexPath: getEnv("INDEX_PATH", "faiss_index.gob"),
		},
		Retrieval: RetrievalConfig{
			TopK: getEnvAsInt("RETRIEVAL_TOP_K", 3),
		},
		Interview: InterviewConfig{
			QuestionCount: getEnvAsInt("INTERVIEW_QUESTION_COUNT", 10),
			FailurePolicy: getEnv("INTERVIEW_FAILURE_POLICY", "abort"),
		},
		HTTP: HTTPConfig{
			Port: getEnvAsInt("HTTP_PORT", 8000),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt は環境変数を整数として取得します
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
