package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"

	"github.com/jinford/interview-rag/internal/core/interview"
)

// EvaluateAction は面接記録ファイルを採点するコマンドのアクション
func EvaluateAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	transcriptPath := cmd.String("transcript")

	pairs, err := readTranscript(transcriptPath)
	if err != nil {
		return err
	}

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	eval, err := appCtx.Container.InterviewService.Evaluate(ctx, pairs)
	if err != nil {
		return fmt.Errorf("採点に失敗: %w", err)
	}

	displayEvaluation(cmd.Root().Writer, eval)
	return nil
}

// readTranscript は {"qa_pairs": [...]} 形式または質問と回答の配列を読み込む
func readTranscript(path string) ([]interview.QAPair, error) {
	if path == "" {
		return nil, fmt.Errorf("面接記録ファイルを指定してください")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("面接記録の読み込みに失敗: %w", err)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var pairs []interview.QAPair
		if err := json.Unmarshal(trimmed, &pairs); err != nil {
			return nil, fmt.Errorf("面接記録のパースに失敗: %w", err)
		}
		return nonNilPairs(pairs), nil
	}

	var req struct {
		QAPairs []interview.QAPair `json:"qa_pairs"`
	}
	if err := json.Unmarshal(trimmed, &req); err != nil {
		return nil, fmt.Errorf("面接記録のパースに失敗: %w", err)
	}
	return nonNilPairs(req.QAPairs), nil
}

func nonNilPairs(pairs []interview.QAPair) []interview.QAPair {
	if pairs == nil {
		return []interview.QAPair{}
	}
	return pairs
}

// displayEvaluation は採点結果の生テキストと抽出結果を表示します
func displayEvaluation(w io.Writer, eval *interview.Evaluation) {
	fmt.Fprintln(w, eval.Raw)

	summary := eval.Summary
	fmt.Fprintln(w, "\n=== 採点サマリー ===")

	table := tablewriter.NewWriter(w)
	table.Header("項目", "値")

	score := "-"
	if v, ok := summary.Score.Get(); ok {
		score = fmt.Sprintf("%d/100", v)
	}
	table.Append("スコア", score)

	recommendation := summary.Recommendation
	if recommendation == "" {
		recommendation = "-"
	}
	table.Append("推奨", recommendation)
	table.Append("フィードバック数", fmt.Sprintf("%d", len(summary.Feedback)))

	table.Render()

	for _, f := range summary.Feedback {
		fmt.Fprintf(w, "- %s\n", f)
	}
}
