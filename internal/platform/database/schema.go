package database

import (
	"context"
	"fmt"
)

// ApplySchema はスキーマを冪等に適用します。
// 埋め込み次元は設定依存のため、DDLは次元を受け取って組み立てる。
func (db *DB) ApplySchema(ctx context.Context, embeddingDimension int) error {
	if embeddingDimension <= 0 {
		return fmt.Errorf("invalid embedding dimension: %d", embeddingDimension)
	}

	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS documents (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			file_type TEXT NOT NULL,
			content_hash TEXT NOT NULL UNIQUE,
			chunk_count INTEGER NOT NULL,
			uploaded_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			processed BOOLEAN NOT NULL DEFAULT FALSE
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS document_chunks (
			id UUID PRIMARY KEY,
			document_id UUID NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			source_name TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			file_type TEXT NOT NULL,
			content TEXT NOT NULL,
			embedding vector(%d) NOT NULL,
			UNIQUE (document_id, chunk_index)
		)`, embeddingDimension),
		`CREATE INDEX IF NOT EXISTS idx_document_chunks_embedding
			ON document_chunks USING hnsw (embedding vector_cosine_ops)`,
		`CREATE TABLE IF NOT EXISTS chat_sessions (
			id BIGSERIAL PRIMARY KEY,
			session_id TEXT NOT NULL UNIQUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			last_activity TIMESTAMPTZ NOT NULL DEFAULT now(),
			total_questions INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS conversations (
			id BIGSERIAL PRIMARY KEY,
			session_id TEXT NOT NULL,
			question TEXT NOT NULL,
			answer TEXT NOT NULL,
			confidence DOUBLE PRECISION NOT NULL,
			sources JSONB,
			model TEXT NOT NULL,
			temperature DOUBLE PRECISION NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_session
			ON conversations (session_id, created_at)`,
	}

	for _, stmt := range statements {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
