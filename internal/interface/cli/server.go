package cli

import (
	"context"

	"github.com/urfave/cli/v3"

	httpapi "github.com/jinford/claim-rag/internal/interface/http"
)

// ServerStartAction はHTTPサーバを起動するコマンドのアクション
func ServerStartAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")

	// 共通コンテキストの初期化
	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	cfg := appCtx.Config
	port := cfg.Server.Port
	if cmd.IsSet("port") {
		port = cmd.Int("port")
	}

	c := appCtx.Container
	handler := httpapi.NewClaimHandler(c.Pipeline, c.SearchService, c.ReviewService, c.Database())
	router := httpapi.NewRouter(httpapi.RouterConfig{
		Handler:        handler,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		Logger:         appCtx.Logger(),
	})

	server := httpapi.NewServer(port, router, httpapi.WithServerLogger(appCtx.Logger()))
	return server.Run(ctx)
}
