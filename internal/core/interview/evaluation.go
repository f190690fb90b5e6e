package interview

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/samber/mo"
)

var (
	// "78/100" 形式
	scoreOutOfRe = regexp.MustCompile(`\b(\d{1,3})\s*/\s*100\b`)
	// "Score: 78" 形式
	scoreLabelRe = regexp.MustCompile(`(?i)\bscore\b[^0-9\n]{0,20}?(\d{1,3})\b`)
	// "- item", "* item", "• item", "1. item", "2) item"
	bulletRe = regexp.MustCompile(`^\s*(?:[-*•]|\d{1,2}[.)])\s+(.+?)\s*$`)
	// "Recommendation: ..."
	recommendationRe = regexp.MustCompile(`(?i)^\s*(?:[-*•]\s*)?\**\s*(?:final\s+)?recommendation\s*\**\s*[:：]\s*\**\s*(.+?)\s*$`)
	// "Score: ...", "Overall score - ..."
	scoreLineRe = regexp.MustCompile(`(?i)^(?:overall\s+|numeric\s+|final\s+)?score\b`)
)

// ParseEvaluation は採点テキストから点数・フィードバック・推薦文をベストエフォートで抽出する。
// 形式が想定と異なる場合、該当項目は空のまま返す（Score は None）。
func ParseEvaluation(raw string) EvaluationSummary {
	summary := EvaluationSummary{Score: parseScore(raw)}

	var lastPlain string
	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if m := recommendationRe.FindStringSubmatch(trimmed); m != nil {
			summary.Recommendation = stripEmphasis(m[1])
			continue
		}

		if isScoreLine(trimmed) {
			continue
		}

		if m := bulletRe.FindStringSubmatch(trimmed); m != nil {
			summary.Feedback = append(summary.Feedback, stripEmphasis(m[1]))
			// 推薦文はフィードバック一覧より後ろの行から選ぶ
			lastPlain = ""
			continue
		}

		lastPlain = trimmed
	}

	if summary.Recommendation == "" && lastPlain != "" {
		summary.Recommendation = stripEmphasis(lastPlain)
	}

	return summary
}

func parseScore(raw string) mo.Option[int] {
	for _, re := range []*regexp.Regexp{scoreOutOfRe, scoreLabelRe} {
		for _, m := range re.FindAllStringSubmatch(raw, -1) {
			n, err := strconv.Atoi(m[1])
			if err != nil || n < 0 || n > 100 {
				continue
			}
			return mo.Some(n)
		}
	}
	return mo.None[int]()
}

func isScoreLine(line string) bool {
	return scoreLineRe.MatchString(stripEmphasis(strings.TrimLeft(line, "#-*• ")))
}

func stripEmphasis(s string) string {
	s = strings.ReplaceAll(s, "**", "")
	return strings.TrimSpace(strings.Trim(s, "\"_"))
}
