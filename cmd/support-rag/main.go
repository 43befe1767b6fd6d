package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	clipkg "github.com/jinford/support-rag/internal/app/cli"
	"github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 構造化ログの設定
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	app := &cli.Command{
		Name:  "support-rag",
		Usage: "サポートドキュメント向けRAG型QAシステム",
		Commands: []*cli.Command{
			{
				Name:  "server",
				Usage: "サーバー管理コマンド",
				Commands: []*cli.Command{
					{
						Name:  "start",
						Usage: "HTTPサーバーを起動",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "env",
								Usage: "環境変数ファイルパス",
								Value: ".env",
							},
							&cli.IntFlag{
								Name:  "port",
								Usage: "待ち受けポート（未指定時は設定値）",
							},
						},
						Action: clipkg.ServerStartAction,
					},
				},
			},
			{
				Name:  "document",
				Usage: "ドキュメント管理コマンド",
				Commands: []*cli.Command{
					{
						Name:      "process",
						Usage:     "ファイルを取り込みベクトル化",
						ArgsUsage: "<file> [<file>...]",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "env",
								Usage: "環境変数ファイルパス",
								Value: ".env",
							},
						},
						Action: clipkg.DocumentProcessAction,
					},
					{
						Name:  "list",
						Usage: "登録済みドキュメント一覧を表示",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "env",
								Usage: "環境変数ファイルパス",
								Value: ".env",
							},
						},
						Action: clipkg.DocumentListAction,
					},
				},
			},
			{
				Name:      "ask",
				Usage:     "ドキュメントに基づいて質問に回答",
				ArgsUsage: "<question>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "env",
						Usage: "環境変数ファイルパス",
						Value: ".env",
					},
					&cli.StringFlag{
						Name:     "session",
						Usage:    "セッションID",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "model",
						Usage: "チャットモデル名（未指定時は設定値）",
					},
					&cli.FloatFlag{
						Name:  "temperature",
						Usage: "サンプリング温度",
						Value: 0.1,
					},
					&cli.BoolFlag{
						Name:  "show-sources",
						Usage: "参照ソースを表示",
					},
				},
				Action: clipkg.AskAction,
			},
			{
				Name:  "session",
				Usage: "セッション管理コマンド",
				Commands: []*cli.Command{
					{
						Name:  "history",
						Usage: "会話履歴を表示",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "env",
								Usage: "環境変数ファイルパス",
								Value: ".env",
							},
							&cli.StringFlag{
								Name:     "session",
								Usage:    "セッションID",
								Required: true,
							},
							&cli.IntFlag{
								Name:  "limit",
								Usage: "表示件数の上限",
							},
						},
						Action: clipkg.SessionHistoryAction,
					},
					{
						Name:  "stats",
						Usage: "セッション統計を表示",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "env",
								Usage: "環境変数ファイルパス",
								Value: ".env",
							},
							&cli.StringFlag{
								Name:     "session",
								Usage:    "セッションID",
								Required: true,
							},
						},
						Action: clipkg.SessionStatsAction,
					},
					{
						Name:  "clear",
						Usage: "会話履歴を消去",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "env",
								Usage: "環境変数ファイルパス",
								Value: ".env",
							},
							&cli.StringFlag{
								Name:     "session",
								Usage:    "セッションID",
								Required: true,
							},
						},
						Action: clipkg.SessionClearAction,
					},
				},
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
