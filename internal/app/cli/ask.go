package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samber/mo"
	"github.com/urfave/cli/v3"

	"github.com/jinford/support-rag/internal/core/rag"
	"github.com/jinford/support-rag/internal/core/session"
)

// AskAction は質問応答コマンドのアクション
func AskAction(ctx context.Context, cmd *cli.Command) error {
	// フラグの取得
	sessionID := cmd.String("session")
	model := cmd.String("model")
	temperature := cmd.Float("temperature")
	showSources := cmd.Bool("show-sources")
	envFile := cmd.String("env")

	// 質問文の取得
	question := cmd.Args().First()
	if question == "" {
		return fmt.Errorf("質問文を指定してください")
	}

	slog.Info("質問応答を開始",
		"session", sessionID,
		"question", question,
		"showSources", showSources,
	)

	// 共通コンテキストの初期化
	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	// 質問応答処理を実行
	result, err := executeAsk(ctx, appCtx, sessionID, question, model, temperature)
	if err != nil {
		slog.Error("質問応答に失敗しました", "error", err)
		return err
	}

	// 結果出力
	fmt.Println(result.Answer)
	fmt.Printf("\n信頼度: %.2f\n", result.Confidence)

	// --show-sourcesフラグが指定されている場合、参照ソースも出力
	if showSources && len(result.Sources) > 0 {
		fmt.Println("\n--- 参照ソース ---")
		for i, source := range result.Sources {
			fmt.Printf("[%d] %s (チャンク %d)\n    %s\n",
				i+1,
				source.SourceName,
				source.ChunkIndex,
				source.Preview,
			)
		}
	}

	slog.Info("質問応答が完了しました")
	return nil
}

// executeAsk は会話履歴を復元したうえで質問応答処理を実行し、結果を永続化する
func executeAsk(ctx context.Context, appCtx *AppContext, sessionID, question, model string, temperature float64) (*rag.Result, error) {
	cont := appCtx.Container

	// 1. セッションを取得または作成
	slog.Info("セッションを取得します", "sessionID", sessionID)
	sess, err := cont.SessionService.GetOrCreate(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("セッション取得に失敗: %w", err)
	}

	// 2. 永続化された会話履歴をセッションメモリに復元
	turns, err := cont.SessionService.History(ctx, sess.SessionID, 0)
	if err != nil {
		return nil, fmt.Errorf("会話履歴の取得に失敗: %w", err)
	}

	sctx := rag.NewSessionContext(sess.SessionID)
	for _, turn := range turns {
		sctx.Remember(turn.Question, turn.Answer)
	}

	slog.Info("会話履歴を復元しました", "sessionID", sess.SessionID, "turns", sctx.Len())

	// 3. 質問応答を実行
	params := rag.Params{
		Question:    question,
		Model:       model,
		Temperature: temperature,
		TopK:        mo.None[int](),
	}

	result, err := cont.AnswerService.Answer(ctx, sctx, params)
	if err != nil {
		return nil, fmt.Errorf("質問応答に失敗: %w", err)
	}

	// 4. 会話ターンを永続化
	turn := &session.Turn{
		SessionID:   sess.SessionID,
		Question:    question,
		Answer:      result.Answer,
		Confidence:  result.Confidence,
		Sources:     result.Sources,
		Model:       result.Model,
		Temperature: result.Temperature,
	}
	if err := cont.SessionService.RecordTurn(ctx, turn); err != nil {
		return nil, fmt.Errorf("会話ターンの保存に失敗: %w", err)
	}

	slog.Info("質問応答処理完了",
		"sessionID", sess.SessionID,
		"answerLength", len(result.Answer),
		"sources", len(result.Sources),
		"confidence", result.Confidence,
	)

	return result, nil
}
