package interview

import "strings"

const (
	expectedAnswerMarker = "Expected Answer:"
	boilerplateHeading   = "New Technical Interview Question"
	questionLabel        = "Question:"
)

// CleanQuestion はLLMの生出力から質問文だけを取り出す。
// "Expected Answer:" 以降を切り捨て、定型見出しとラベルを除去して空白をトリムする。
func CleanQuestion(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if i := strings.Index(cleaned, expectedAnswerMarker); i >= 0 {
		cleaned = cleaned[:i]
	}
	cleaned = strings.ReplaceAll(cleaned, boilerplateHeading, "")
	cleaned = strings.ReplaceAll(cleaned, questionLabel, "")
	return strings.TrimSpace(cleaned)
}
