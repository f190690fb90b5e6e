package interview

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ResumeExcerptLimit はプロンプトに埋め込む履歴書の最大文字数
const ResumeExcerptLimit = 2500

// BuildQuestionPrompt は質問生成用のプロンプトを構築する
func BuildQuestionPrompt(resumeExcerpt, retrievedContext string, asked []string) (string, error) {
	askedJSON, err := marshalJSON(nonNil(asked), false)
	if err != nil {
		return "", fmt.Errorf("failed to encode asked questions: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("\nYou are an AI interviewer for AI Engineer candidates.\n\n")

	sb.WriteString("Resume:\n")
	sb.WriteString(resumeExcerpt)
	sb.WriteString("\n\n")

	sb.WriteString("Relevant context:\n")
	sb.WriteString(retrievedContext)
	sb.WriteString("\n\n")

	sb.WriteString("Already asked questions:\n")
	sb.WriteString(askedJSON)
	sb.WriteString("\n\n")

	sb.WriteString("Generate ONE new technical interview question.\n")
	sb.WriteString("Vary difficulty (easy/medium/hard) and cover different areas\n")
	sb.WriteString("(ML, DL, NLP, AI concepts, math, system design).\n")
	sb.WriteString("Avoid repeating topics.\n")

	return sb.String(), nil
}

// BuildEvaluationPrompt は採点用のプロンプトを構築する
func BuildEvaluationPrompt(pairs []QAPair) (string, error) {
	transcript, err := marshalJSON(nonNil(pairs), true)
	if err != nil {
		return "", fmt.Errorf("failed to encode transcript: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("\nYou are an AI interview evaluator.\n")
	sb.WriteString("Evaluate the following AI Engineer interview based on clarity, correctness, and technical understanding.\n\n")

	sb.WriteString("Rules:\n")
	sb.WriteString("- Give a numeric score (0-100).\n")
	sb.WriteString("- Highlight positives even if the answers are weak.\n")
	sb.WriteString("- Provide 3-5 short, constructive feedback points.\n")
	sb.WriteString("- End with a one-line recommendation (e.g. \"Strong candidate\", \"Needs improvement\", etc.)\n\n")

	sb.WriteString("Interview transcript:\n")
	sb.WriteString(transcript)
	sb.WriteString("\n")

	return sb.String(), nil
}

// ResumeExcerpt は履歴書の先頭 ResumeExcerptLimit 文字を返す
func ResumeExcerpt(resume string) string {
	return truncateRunes(resume, ResumeExcerptLimit)
}

// WithDifficulty は難易度ヒントを履歴書テキストの末尾に付与する
func WithDifficulty(resume, difficulty string) string {
	if difficulty == "" {
		return resume
	}
	return resume + "\nDifficulty: " + difficulty
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == limit {
			return s[:i]
		}
		count++
	}
	return s
}

// marshalJSON はHTMLエスケープせずにJSON文字列を返す
func marshalJSON(v any, indent bool) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
