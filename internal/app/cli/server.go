package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/jinford/support-rag/internal/app/web"
)

// ServerStartAction はHTTPサーバーを起動するコマンドのアクション
func ServerStartAction(ctx context.Context, cmd *cli.Command) error {
	port := cmd.Int("port")
	envFile := cmd.String("env")

	// 共通コンテキストの初期化
	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	// --port 未指定時は設定値を使う
	if port == 0 {
		port = appCtx.Container.Config.HTTP.Port
	}

	server, err := web.NewServer(appCtx.Container, fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("サーバーの初期化に失敗: %w", err)
	}

	if err := server.Run(ctx); err != nil {
		slog.Error("サーバーの実行に失敗しました", "error", err)
		return err
	}

	return nil
}
