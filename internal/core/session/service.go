package session

import (
	"context"
	"fmt"
	"log/slog"
)

// DefaultHistoryLimit は履歴取得件数のデフォルト値
const DefaultHistoryLimit = 50

// Service はセッションと会話履歴のビジネスロジックを提供する
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// ServiceOption は Service のオプション設定
type ServiceOption func(*Service)

// WithLogger は Service にロガーを設定する
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService は新しいServiceを作成する
func NewService(repo Repository, opts ...ServiceOption) *Service {
	svc := &Service{
		repo:   repo,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	return svc
}

// GetOrCreate はセッションを取得し、存在しなければ作成する。
// 既存セッションの場合は最終アクティビティを更新する。
func (s *Service) GetOrCreate(ctx context.Context, sessionID string) (*Session, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session id is required")
	}

	existing, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if sess, ok := existing.Get(); ok {
		if err := s.repo.TouchSession(ctx, sessionID); err != nil {
			return nil, fmt.Errorf("failed to touch session: %w", err)
		}
		return sess, nil
	}

	sess, err := s.repo.CreateSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	s.logger.Info("session created", "sessionID", sessionID)
	return sess, nil
}

// RecordTurn はセッションの存在を保証したうえで会話レコードを保存する。
// カウンタ加算と挿入は永続化層のトランザクション内で行われるため、
// セッションの total_questions は保存済みレコード数と常に一致する。
func (s *Service) RecordTurn(ctx context.Context, turn *Turn) error {
	if turn.SessionID == "" {
		return fmt.Errorf("session id is required")
	}

	if _, err := s.GetOrCreate(ctx, turn.SessionID); err != nil {
		return err
	}

	if err := s.repo.SaveTurn(ctx, turn); err != nil {
		return fmt.Errorf("failed to save turn: %w", err)
	}

	s.logger.Info("turn recorded",
		"sessionID", turn.SessionID,
		"confidence", turn.Confidence,
		"model", turn.Model,
	)
	return nil
}

// History はセッションの会話履歴を古い順に返す
func (s *Service) History(ctx context.Context, sessionID string, limit int) ([]*Turn, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	turns, err := s.repo.ListTurns(ctx, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list turns: %w", err)
	}
	return turns, nil
}

// Stats はセッションの統計情報を返す。
// 未知のセッションはカウンタゼロの統計として扱う。
func (s *Service) Stats(ctx context.Context, sessionID string) (*Stats, error) {
	existing, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	sess, ok := existing.Get()
	if !ok {
		return &Stats{SessionID: sessionID}, nil
	}
	return &Stats{
		SessionID:      sess.SessionID,
		TotalQuestions: sess.TotalQuestions,
		CreatedAt:      sess.CreatedAt,
		LastActivity:   sess.LastActivity,
	}, nil
}

// ClearHistory はセッションの会話履歴を消去する。セッション行は残る。
func (s *Service) ClearHistory(ctx context.Context, sessionID string) error {
	if err := s.repo.ClearTurns(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	s.logger.Info("session history cleared", "sessionID", sessionID)
	return nil
}
