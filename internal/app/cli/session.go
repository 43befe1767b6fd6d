package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"
)

// SessionHistoryAction は会話履歴を表示するコマンドのアクション
func SessionHistoryAction(ctx context.Context, cmd *cli.Command) error {
	sessionID := cmd.String("session")
	limit := cmd.Int("limit")
	envFile := cmd.String("env")

	// 共通コンテキストの初期化
	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	turns, err := appCtx.Container.SessionService.History(ctx, sessionID, limit)
	if err != nil {
		return fmt.Errorf("会話履歴の取得に失敗: %w", err)
	}

	if len(turns) == 0 {
		fmt.Println("会話履歴はありません")
		return nil
	}

	for i, turn := range turns {
		fmt.Printf("--- [%d] %s ---\n", i+1, turn.CreatedAt.Format("2006-01-02 15:04:05"))
		fmt.Printf("Q: %s\n", turn.Question)
		fmt.Printf("A: %s\n", turn.Answer)
		fmt.Printf("信頼度: %.2f / モデル: %s\n\n", turn.Confidence, turn.Model)
	}

	return nil
}

// SessionStatsAction はセッション統計を表示するコマンドのアクション
func SessionStatsAction(ctx context.Context, cmd *cli.Command) error {
	sessionID := cmd.String("session")
	envFile := cmd.String("env")

	// 共通コンテキストの初期化
	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	stats, err := appCtx.Container.SessionService.Stats(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("セッション統計の取得に失敗: %w", err)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Session ID", "Questions", "Created At", "Last Activity")
	table.Append(
		stats.SessionID,
		fmt.Sprintf("%d", stats.TotalQuestions),
		formatStatsTime(stats.CreatedAt),
		formatStatsTime(stats.LastActivity),
	)
	table.Render()

	return nil
}

// formatStatsTime はゼロ値の時刻を「-」として整形する
func formatStatsTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04:05")
}

// SessionClearAction は会話履歴を消去するコマンドのアクション
func SessionClearAction(ctx context.Context, cmd *cli.Command) error {
	sessionID := cmd.String("session")
	envFile := cmd.String("env")

	slog.Info("会話履歴の消去を開始", "sessionID", sessionID)

	// 共通コンテキストの初期化
	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	if err := appCtx.Container.SessionService.ClearHistory(ctx, sessionID); err != nil {
		slog.Error("会話履歴の消去に失敗しました", "error", err)
		return err
	}

	fmt.Printf("セッション %s の会話履歴を消去しました\n", sessionID)
	return nil
}
