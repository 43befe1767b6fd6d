package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/jinford/support-rag/internal/core/rag"
)

// SearchRepository は rag.Retriever を実装する PostgreSQL リポジトリ。
// pgvector のコサイン距離で最近傍チャンクを検索する。
type SearchRepository struct {
	pool *pgxpool.Pool
}

// NewSearchRepository は新しい SearchRepository を返す。
func NewSearchRepository(pool *pgxpool.Pool) *SearchRepository {
	return &SearchRepository{pool: pool}
}

var _ rag.Retriever = (*SearchRepository)(nil)

// Search はクエリベクトルに近いチャンクを関連度順に最大k件返す
func (r *SearchRepository) Search(ctx context.Context, vector []float32, k int) ([]*rag.RetrievedChunk, error) {
	const query = `
		SELECT source_name, chunk_index, file_type, content, 1 - (embedding <=> $1) AS score
		FROM document_chunks
		ORDER BY embedding <=> $1
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, pgvector.NewVector(vector), int32(k))
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}
	defer rows.Close()

	var chunks []*rag.RetrievedChunk
	for rows.Next() {
		var (
			chunk      rag.RetrievedChunk
			chunkIndex int32
		)
		if err := rows.Scan(&chunk.SourceName, &chunkIndex, &chunk.FileType, &chunk.Content, &chunk.Score); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		chunk.ChunkIndex = int(chunkIndex)
		chunks = append(chunks, &chunk)
	}
	return chunks, rows.Err()
}

// Count はインデックス済みチャンクの総数を返す
func (r *SearchRepository) Count(ctx context.Context) (int, error) {
	var count int64
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM document_chunks`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return int(count), nil
}
