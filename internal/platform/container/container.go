package container

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jinford/support-rag/internal/core/chunk"
	"github.com/jinford/support-rag/internal/core/extract"
	"github.com/jinford/support-rag/internal/core/ingestion"
	"github.com/jinford/support-rag/internal/core/rag"
	"github.com/jinford/support-rag/internal/core/session"
	"github.com/jinford/support-rag/internal/infra/openai"
	"github.com/jinford/support-rag/internal/infra/postgres"
	"github.com/jinford/support-rag/internal/platform/config"
	"github.com/jinford/support-rag/internal/platform/database"
)

// ServiceContainer はアプリケーションの依存関係を束ねて保持する
type ServiceContainer struct {
	IngestionService *ingestion.Service
	AnswerService    *rag.Service
	SessionService   *session.Service

	Config *config.Config

	logger *slog.Logger
	db     *database.DB
}

// NewContainer は設定からすべての依存を組み立てる。
// DBへ接続し、スキーマを冪等に適用した状態で返す。
func NewContainer(ctx context.Context, logger *slog.Logger, cfg *config.Config) (*ServiceContainer, error) {
	if cfg.OpenAI.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}

	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.ApplySchema(ctx, cfg.OpenAI.EmbeddingDimension); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	splitter, err := chunk.NewSplitter()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create splitter: %w", err)
	}

	llm, err := openai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.ChatModel)
	if err != nil {
		db.Close()
		return nil, err
	}

	embedder := openai.NewEmbedder(cfg.OpenAI.APIKey,
		openai.WithEmbeddingModel(cfg.OpenAI.EmbeddingModel),
		openai.WithEmbeddingDimension(cfg.OpenAI.EmbeddingDimension),
	)

	documentRepo := postgres.NewDocumentRepository(db.Pool)
	searchRepo := postgres.NewSearchRepository(db.Pool)
	sessionRepo := postgres.NewSessionRepository(db.Pool)

	return &ServiceContainer{
		IngestionService: ingestion.NewService(
			extract.NewExtractor(),
			splitter,
			embedder,
			documentRepo,
			ingestion.WithLogger(logger),
		),
		AnswerService: rag.NewService(
			embedder,
			searchRepo,
			llm,
			rag.WithLogger(logger),
			rag.WithTokenCounter(splitter),
		),
		SessionService: session.NewService(
			sessionRepo,
			session.WithLogger(logger),
		),
		Config: cfg,
		logger: logger,
		db:     db,
	}, nil
}

// Logger はコンテナのロガーを返す
func (c *ServiceContainer) Logger() *slog.Logger {
	if c.logger == nil {
		return slog.Default()
	}
	return c.logger
}

// Close はコンテナが保持するリソースをクリーンアップする
func (c *ServiceContainer) Close() {
	if c.db != nil {
		c.db.Close()
	}
}
