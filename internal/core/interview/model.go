package interview

import (
	"fmt"
	"strings"

	"github.com/samber/mo"
)

const (
	// DefaultQuestionCount は1回の面接で生成する質問数
	DefaultQuestionCount = 10

	// DefaultDifficulty は難易度ヒント未指定時の値
	DefaultDifficulty = "mixed"
)

// QAPair は質問と回答の組を表す
type QAPair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// GenerateParams は質問生成のパラメータを表す
type GenerateParams struct {
	Resume     string            // 履歴書テキスト
	Difficulty mo.Option[string] // 難易度ヒント（デフォルト: mixed）
	Count      int               // 生成する質問数（デフォルト: 10）
}

// GenerateResult は質問生成の結果を表す
type GenerateResult struct {
	Questions []string // 生成順の質問
	Failures  int      // FailurePolicySkip でスキップされた呼び出し数
}

// Evaluation は採点結果を表す
type Evaluation struct {
	Raw     string            // LLMの出力そのまま
	Summary EvaluationSummary // Raw から抽出した構造化ビュー
}

// EvaluationSummary は採点テキストから抽出できた項目を表す。
// 抽出できなかった項目はゼロ値（Score は None）のまま。
type EvaluationSummary struct {
	Score          mo.Option[int]
	Feedback       []string
	Recommendation string
}

// FailurePolicy は質問生成ループで1回の呼び出しが失敗したときの扱い
type FailurePolicy string

const (
	// FailurePolicyAbort は最初の失敗でループ全体を中断する
	FailurePolicyAbort FailurePolicy = "abort"
	// FailurePolicySkip は失敗した呼び出しを飛ばし、質問数が減ることを許容する
	FailurePolicySkip FailurePolicy = "skip"
)

// ParseFailurePolicy は文字列から FailurePolicy を解釈する
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch FailurePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", FailurePolicyAbort:
		return FailurePolicyAbort, nil
	case FailurePolicySkip:
		return FailurePolicySkip, nil
	default:
		return "", fmt.Errorf("unknown failure policy: %q", s)
	}
}

// CompletionRequest はLLMへの生成リクエスト
type CompletionRequest struct {
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// CompletionResponse はLLMからの生成レスポンス
type CompletionResponse struct {
	Content    string
	TokensUsed int
	Model      string
}
