package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"

	"github.com/jinford/interview-rag/internal/core/vectorindex"
	"github.com/jinford/interview-rag/internal/platform/container"
)

const previewRunes = 80

// IndexBuildAction はコーパスからインデックスを再構築するコマンドのアクション
func IndexBuildAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")

	appCtx, err := NewAppContext(ctx, envFile, container.WithRebuildIndex())
	if err != nil {
		return err
	}
	defer appCtx.Close()

	idx := appCtx.Container.Index
	fmt.Fprintf(cmd.Root().Writer, "%d 件の文書をインデックス化しました（次元: %d）: %s\n",
		idx.Len(), idx.Dimension(), appCtx.Config.Corpus.IndexPath)
	return nil
}

// IndexSearchAction はクエリに近い文書を表示するコマンドのアクション
func IndexSearchAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	query := cmd.String("query")
	k := int(cmd.Int("k"))

	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("検索クエリを指定してください")
	}

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	hits, err := appCtx.Container.Retriever.Search(ctx, query, k)
	if err != nil {
		return fmt.Errorf("検索に失敗: %w", err)
	}

	displayHits(cmd.Root().Writer, hits)
	return nil
}

// displayHits は検索結果をテーブル形式で表示します
func displayHits(w io.Writer, hits []vectorindex.Hit) {
	if len(hits) == 0 {
		fmt.Fprintln(w, "該当する文書はありませんでした")
		return
	}

	table := tablewriter.NewWriter(w)
	table.Header("順位", "位置", "距離", "内容")

	for i, hit := range hits {
		table.Append(
			fmt.Sprintf("%d", i+1),
			fmt.Sprintf("%d", hit.Position),
			fmt.Sprintf("%.4f", hit.Distance),
			preview(hit.Document, previewRunes),
		)
	}

	table.Render()
}

// preview は改行を詰めた先頭 limit 文字を返す
func preview(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
