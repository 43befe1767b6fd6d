// Package web はブラウザ向けのQA画面とJSON APIを提供する
package web

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/jinford/support-rag/internal/core/rag"
	"github.com/jinford/support-rag/internal/platform/container"
)

//go:embed templates/*
var templatesFS embed.FS

const (
	readTimeout     = 15 * time.Second
	writeTimeout    = 120 * time.Second
	shutdownTimeout = 5 * time.Second

	// マルチパートアップロードの最大サイズ (32MB)
	maxUploadBytes = 32 << 20
)

// Server はQA画面とAPIを提供するHTTPサーバー
type Server struct {
	container *container.ServiceContainer
	logger    *slog.Logger
	templates *template.Template
	addr      string

	// ブラウザセッションごとの会話メモリ
	mu       sync.Mutex
	sessions map[string]*rag.SessionContext
}

// NewServer はHTTPサーバーを作成する
func NewServer(cont *container.ServiceContainer, addr string) (*Server, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("テンプレートの読み込みに失敗: %w", err)
	}

	return &Server{
		container: cont,
		logger:    cont.Logger(),
		templates: tmpl,
		addr:      addr,
		sessions:  make(map[string]*rag.SessionContext),
	}, nil
}

// Handler はルーティング済みのHTTPハンドラを返す
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// UI
	mux.HandleFunc("GET /{$}", s.handleIndex)

	// API
	mux.HandleFunc("POST /api/documents", s.handleUpload)
	mux.HandleFunc("GET /api/documents", s.handleListDocuments)
	mux.HandleFunc("POST /api/ask", s.handleAsk)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("POST /api/reset", s.handleReset)
	mux.HandleFunc("GET /api/health", s.handleHealth)

	return s.loggingMiddleware(mux)
}

// Run はHTTPサーバーを起動し、コンテキストのキャンセルで graceful shutdown する
func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	s.logger.Info("HTTPサーバーを起動します", "addr", s.addr)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("サーバーの停止に失敗: %w", err)
		}
		s.logger.Info("HTTPサーバーを停止しました")
		return nil
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("サーバーの起動に失敗: %w", err)
		}
		return nil
	}
}

// sessionContext はブラウザセッションの会話メモリを取得する。
// 初回アクセス時は永続化された履歴からメモリを復元する。
func (s *Server) sessionContext(ctx context.Context, sessionID string) (*rag.SessionContext, error) {
	s.mu.Lock()
	if sctx, ok := s.sessions[sessionID]; ok {
		s.mu.Unlock()
		return sctx, nil
	}
	s.mu.Unlock()

	turns, err := s.container.SessionService.History(ctx, sessionID, 0)
	if err != nil {
		return nil, err
	}

	sctx := rag.NewSessionContext(sessionID)
	for _, turn := range turns {
		sctx.Remember(turn.Question, turn.Answer)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// 並行リクエストで先に登録されていればそちらを使う
	if existing, ok := s.sessions[sessionID]; ok {
		return existing, nil
	}
	s.sessions[sessionID] = sctx
	return sctx, nil
}

// dropSessionContext はブラウザセッションの会話メモリを破棄する
func (s *Server) dropSessionContext(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

// loggingMiddleware はリクエストごとにアクセスログを出力する
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("HTTPリクエスト",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start).String(),
		)
	})
}
