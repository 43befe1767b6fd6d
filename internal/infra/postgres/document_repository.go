package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	"github.com/samber/mo"

	"github.com/jinford/support-rag/internal/core/ingestion"
)

// DocumentRepository は ingestion.Repository を実装する PostgreSQL リポジトリです
type DocumentRepository struct {
	pool     *pgxpool.Pool
	provider *TransactionProvider
}

// NewDocumentRepository は新しい DocumentRepository を作成します
func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{
		pool:     pool,
		provider: NewTransactionProvider(pool),
	}
}

// コンパイル時の型チェック
var _ ingestion.Repository = (*DocumentRepository)(nil)

// FindDocumentByHash はコンテンツハッシュで文書を検索する
func (r *DocumentRepository) FindDocumentByHash(ctx context.Context, hash string) (mo.Option[*ingestion.Document], error) {
	const query = `
		SELECT id, name, file_type, content_hash, chunk_count, uploaded_at, processed
		FROM documents
		WHERE content_hash = $1`

	doc, err := scanDocument(r.pool.QueryRow(ctx, query, hash))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return mo.None[*ingestion.Document](), nil
		}
		return mo.None[*ingestion.Document](), fmt.Errorf("failed to find document by hash: %w", err)
	}
	return mo.Some(doc), nil
}

// SaveDocumentWithChunks は文書メタデータとチャンク一式を単一トランザクションで保存する
func (r *DocumentRepository) SaveDocumentWithChunks(ctx context.Context, doc *ingestion.Document, chunks []*ingestion.DocumentChunk) error {
	return r.provider.Transact(ctx, func(tx pgx.Tx) error {
		const insertDoc = `
			INSERT INTO documents (id, name, file_type, content_hash, chunk_count, uploaded_at, processed)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`

		if _, err := tx.Exec(ctx, insertDoc,
			UUIDToPgtype(doc.ID),
			doc.Name,
			doc.FileType,
			doc.ContentHash,
			int32(doc.ChunkCount),
			doc.UploadedAt,
			doc.Processed,
		); err != nil {
			return fmt.Errorf("failed to insert document: %w", err)
		}

		const insertChunk = `
			INSERT INTO document_chunks (id, document_id, source_name, chunk_index, file_type, content, embedding)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`

		batch := &pgx.Batch{}
		for _, chunk := range chunks {
			batch.Queue(insertChunk,
				UUIDToPgtype(chunk.ID),
				UUIDToPgtype(chunk.DocumentID),
				chunk.SourceName,
				int32(chunk.ChunkIndex),
				chunk.FileType,
				chunk.Content,
				pgvector.NewVector(chunk.Embedding),
			)
		}

		results := tx.SendBatch(ctx, batch)
		defer results.Close()
		for range chunks {
			if _, err := results.Exec(); err != nil {
				return fmt.Errorf("failed to insert chunk: %w", err)
			}
		}
		return results.Close()
	})
}

// ListDocuments は処理済み文書をアップロード順に返す
func (r *DocumentRepository) ListDocuments(ctx context.Context) ([]*ingestion.Document, error) {
	const query = `
		SELECT id, name, file_type, content_hash, chunk_count, uploaded_at, processed
		FROM documents
		WHERE processed
		ORDER BY uploaded_at, name`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []*ingestion.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// CountChunks はインデックス済みチャンクの総数を返す
func (r *DocumentRepository) CountChunks(ctx context.Context) (int, error) {
	var count int64
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM document_chunks`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return int(count), nil
}

func scanDocument(row pgx.Row) (*ingestion.Document, error) {
	var (
		doc        ingestion.Document
		id         pgtype.UUID
		chunkCount int32
	)
	if err := row.Scan(&id, &doc.Name, &doc.FileType, &doc.ContentHash, &chunkCount, &doc.UploadedAt, &doc.Processed); err != nil {
		return nil, err
	}
	doc.ID = PgtypeToUUID(id)
	doc.ChunkCount = int(chunkCount)
	return &doc, nil
}
