package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	appcli "github.com/jinford/interview-rag/internal/interface/cli"
)

func envFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "env",
		Usage: "環境変数ファイルパス",
		Value: ".env",
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 構造化ログの設定（設定読み込み後に LOG_LEVEL / LOG_FORMAT で置き換わる）
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	app := &cli.Command{
		Name:  "interview-rag",
		Usage: "履歴書とコーパス検索にもとづく技術面接シミュレーター",
		Commands: []*cli.Command{
			{
				Name:  "server",
				Usage: "サーバ関連コマンド",
				Commands: []*cli.Command{
					{
						Name:  "start",
						Usage: "HTTPサーバを起動",
						Flags: []cli.Flag{
							envFlag(),
							&cli.IntFlag{
								Name:  "port",
								Usage: "HTTPポート（省略時は HTTP_PORT またはデフォルトの8000）",
								Value: 8000,
							},
						},
						Action: appcli.ServerStartAction,
					},
				},
			},
			{
				Name:  "index",
				Usage: "インデックス管理コマンド",
				Commands: []*cli.Command{
					{
						Name:   "build",
						Usage:  "コーパスからインデックスを再構築",
						Flags:  []cli.Flag{envFlag()},
						Action: appcli.IndexBuildAction,
					},
					{
						Name:  "search",
						Usage: "クエリに近い文書を検索",
						Flags: []cli.Flag{
							envFlag(),
							&cli.StringFlag{
								Name:     "query",
								Usage:    "検索クエリ",
								Required: true,
							},
							&cli.IntFlag{
								Name:  "k",
								Usage: "取得件数（省略時は RETRIEVAL_TOP_K）",
							},
						},
						Action: appcli.IndexSearchAction,
					},
				},
			},
			{
				Name:  "questions",
				Usage: "履歴書から面接質問を生成",
				Flags: []cli.Flag{
					envFlag(),
					&cli.StringFlag{
						Name:     "resume",
						Usage:    "履歴書テキストファイル",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "difficulty",
						Usage: "難易度（省略時は mixed）",
					},
					&cli.IntFlag{
						Name:  "count",
						Usage: "質問数（省略時は INTERVIEW_QUESTION_COUNT）",
					},
				},
				Action: appcli.QuestionsAction,
			},
			{
				Name:  "evaluate",
				Usage: "面接記録を採点",
				Flags: []cli.Flag{
					envFlag(),
					&cli.StringFlag{
						Name:     "transcript",
						Usage:    `面接記録JSONファイル（{"qa_pairs": [...]} 形式）`,
						Required: true,
					},
				},
				Action: appcli.EvaluateAction,
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
