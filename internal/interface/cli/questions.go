package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/samber/mo"
	"github.com/urfave/cli/v3"

	"github.com/jinford/interview-rag/internal/core/interview"
)

// QuestionsAction は履歴書ファイルから面接質問を生成するコマンドのアクション
func QuestionsAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	resumePath := cmd.String("resume")
	difficulty := strings.TrimSpace(cmd.String("difficulty"))
	count := int(cmd.Int("count"))

	resume, err := readResumeFile(resumePath)
	if err != nil {
		return err
	}

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	params := interview.GenerateParams{Resume: resume, Count: count}
	if difficulty != "" {
		params.Difficulty = mo.Some(difficulty)
	}

	result, err := appCtx.Container.InterviewService.GenerateQuestions(ctx, params)
	if err != nil {
		return fmt.Errorf("質問生成に失敗: %w", err)
	}

	displayQuestions(cmd.Root().Writer, result)
	return nil
}

// readResumeFile は履歴書を UTF-8 テキストとして読み込む。不正なバイト列は取り除く
func readResumeFile(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("履歴書ファイルを指定してください")
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("履歴書の読み込みに失敗: %w", err)
	}
	return strings.ToValidUTF8(string(content), ""), nil
}

// displayQuestions は生成された質問を番号付きで表示します
func displayQuestions(w io.Writer, result *interview.GenerateResult) {
	for i, q := range result.Questions {
		fmt.Fprintf(w, "%d. %s\n", i+1, q)
	}
	if result.Failures > 0 {
		fmt.Fprintf(w, "\n⚠ %d 件の質問生成に失敗しスキップしました\n", result.Failures)
	}
}
