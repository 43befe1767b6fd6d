package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/mo"

	"github.com/jinford/support-rag/internal/core/session"
)

// SessionRepository は session.Repository を実装する PostgreSQL リポジトリです
type SessionRepository struct {
	pool     *pgxpool.Pool
	provider *TransactionProvider
}

// NewSessionRepository は新しい SessionRepository を作成します
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{
		pool:     pool,
		provider: NewTransactionProvider(pool),
	}
}

// コンパイル時の型チェック
var _ session.Repository = (*SessionRepository)(nil)

// GetSession はセッションIDでセッションを検索する
func (r *SessionRepository) GetSession(ctx context.Context, sessionID string) (mo.Option[*session.Session], error) {
	const query = `
		SELECT session_id, created_at, last_activity, total_questions
		FROM chat_sessions
		WHERE session_id = $1`

	var (
		sess  session.Session
		total int32
	)
	err := r.pool.QueryRow(ctx, query, sessionID).Scan(&sess.SessionID, &sess.CreatedAt, &sess.LastActivity, &total)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return mo.None[*session.Session](), nil
		}
		return mo.None[*session.Session](), fmt.Errorf("failed to get session: %w", err)
	}
	sess.TotalQuestions = int(total)
	return mo.Some(&sess), nil
}

// CreateSession は新しいセッション行を作成する
func (r *SessionRepository) CreateSession(ctx context.Context, sessionID string) (*session.Session, error) {
	const query = `
		INSERT INTO chat_sessions (session_id, created_at, last_activity, total_questions)
		VALUES ($1, now(), now(), 0)
		RETURNING created_at, last_activity`

	sess := session.Session{SessionID: sessionID}
	if err := r.pool.QueryRow(ctx, query, sessionID).Scan(&sess.CreatedAt, &sess.LastActivity); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return &sess, nil
}

// TouchSession は最終アクティビティ時刻を更新する
func (r *SessionRepository) TouchSession(ctx context.Context, sessionID string) error {
	const query = `UPDATE chat_sessions SET last_activity = now() WHERE session_id = $1`
	if _, err := r.pool.Exec(ctx, query, sessionID); err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	return nil
}

// SaveTurn は会話レコードの挿入と質問カウンタの加算を単一トランザクションで行う。
// これにより total_questions は保存済みレコード数と常に一致する。
func (r *SessionRepository) SaveTurn(ctx context.Context, turn *session.Turn) error {
	sources, err := json.Marshal(turn.Sources)
	if err != nil {
		return fmt.Errorf("failed to marshal sources: %w", err)
	}

	return r.provider.Transact(ctx, func(tx pgx.Tx) error {
		const insertTurn = `
			INSERT INTO conversations (session_id, question, answer, confidence, sources, model, temperature, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, now())`

		if _, err := tx.Exec(ctx, insertTurn,
			turn.SessionID,
			turn.Question,
			turn.Answer,
			turn.Confidence,
			sources,
			turn.Model,
			turn.Temperature,
		); err != nil {
			return fmt.Errorf("failed to insert conversation: %w", err)
		}

		const bumpCounter = `
			UPDATE chat_sessions
			SET total_questions = total_questions + 1, last_activity = now()
			WHERE session_id = $1`

		if _, err := tx.Exec(ctx, bumpCounter, turn.SessionID); err != nil {
			return fmt.Errorf("failed to update session counter: %w", err)
		}
		return nil
	})
}

// ListTurns はセッションの会話履歴を古い順に最大limit件返す。
// 直近limit件を取得してから時系列順に並べ替える。
func (r *SessionRepository) ListTurns(ctx context.Context, sessionID string, limit int) ([]*session.Turn, error) {
	const query = `
		SELECT session_id, question, answer, confidence, sources, model, temperature, created_at
		FROM (
			SELECT id, session_id, question, answer, confidence, sources, model, temperature, created_at
			FROM conversations
			WHERE session_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		) recent
		ORDER BY created_at ASC, id ASC`

	rows, err := r.pool.Query(ctx, query, sessionID, int32(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list turns: %w", err)
	}
	defer rows.Close()

	var turns []*session.Turn
	for rows.Next() {
		var (
			turn    session.Turn
			sources []byte
		)
		if err := rows.Scan(
			&turn.SessionID,
			&turn.Question,
			&turn.Answer,
			&turn.Confidence,
			&sources,
			&turn.Model,
			&turn.Temperature,
			&turn.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		if len(sources) > 0 {
			if err := json.Unmarshal(sources, &turn.Sources); err != nil {
				return nil, fmt.Errorf("failed to unmarshal sources: %w", err)
			}
		}
		turns = append(turns, &turn)
	}
	return turns, rows.Err()
}

// ClearTurns は会話履歴を削除し、質問カウンタをゼロに戻す
func (r *SessionRepository) ClearTurns(ctx context.Context, sessionID string) error {
	return r.provider.Transact(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM conversations WHERE session_id = $1`, sessionID); err != nil {
			return fmt.Errorf("failed to delete conversations: %w", err)
		}

		const resetCounter = `
			UPDATE chat_sessions
			SET total_questions = 0, last_activity = now()
			WHERE session_id = $1`

		if _, err := tx.Exec(ctx, resetCounter, sessionID); err != nil {
			return fmt.Errorf("failed to reset session counter: %w", err)
		}
		return nil
	})
}
