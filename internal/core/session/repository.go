package session

import (
	"context"

	"github.com/samber/mo"
)

// Repository はセッションと会話履歴の永続化インターフェース
type Repository interface {
	// GetSession はセッションIDでセッションを検索する
	GetSession(ctx context.Context, sessionID string) (mo.Option[*Session], error)

	// CreateSession は新しいセッション行を作成する
	CreateSession(ctx context.Context, sessionID string) (*Session, error)

	// TouchSession は最終アクティビティ時刻を更新する
	TouchSession(ctx context.Context, sessionID string) error

	// SaveTurn は会話レコードの保存とセッションの質問カウンタ加算を
	// 単一トランザクションで実行する
	SaveTurn(ctx context.Context, turn *Turn) error

	// ListTurns はセッションの会話履歴を古い順に最大limit件返す
	ListTurns(ctx context.Context, sessionID string, limit int) ([]*Turn, error)

	// ClearTurns は会話履歴を削除し、質問カウンタをゼロに戻す
	ClearTurns(ctx context.Context, sessionID string) error
}
