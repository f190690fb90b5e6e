package cli

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v3"

	"github.com/jinford/interview-rag/internal/interface/httpapi"
)

// ServerStartAction はHTTPサーバを起動するコマンドのアクション
func ServerStartAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")

	// 共通コンテキストの初期化（インデックスのロードまたは構築を含む）
	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	port := appCtx.Config.HTTP.Port
	if cmd.IsSet("port") {
		port = int(cmd.Int("port"))
	}

	cont := appCtx.Container
	logger := appCtx.Logger()

	gin.SetMode(gin.ReleaseMode)
	handler := httpapi.NewHandler(cont.InterviewService, cont.Index, httpapi.WithHandlerLogger(logger))
	router := httpapi.NewRouter(handler,
		httpapi.WithRouterLogger(logger),
		httpapi.WithRequestObserver(cont.Metrics),
		httpapi.WithMetricsHandler(promhttp.HandlerFor(cont.Registry, promhttp.HandlerOpts{})),
	)

	logger.Info("面接APIサーバを起動します",
		"port", port,
		"documents", cont.Index.Len(),
		"dimension", cont.Index.Dimension(),
	)

	return httpapi.NewServer(port, router, logger).Run(ctx)
}
