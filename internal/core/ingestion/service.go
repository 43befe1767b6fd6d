package ingestion

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Service は文書取り込みパイプラインを提供する。
// 抽出 → ハッシュ重複排除 → 分割 → 埋め込み → 保存 を1ファイルずつ直列に実行する。
type Service struct {
	extractor Extractor
	splitter  Splitter
	embedder  Embedder
	repo      Repository
	logger    *slog.Logger
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
func NewService(extractor Extractor, splitter Splitter, embedder Embedder, repo Repository, opts ...ServiceOption) *Service {
	svc := &Service{
		extractor: extractor,
		splitter:  splitter,
		embedder:  embedder,
		repo:      repo,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	return svc
}

// ProcessFiles は複数ファイルを順に処理する。
// 1件の失敗でバッチを止めず、そのファイルを失敗として記録して続行する。
// 戻り値の Files は入力と同じ順序で、ファイルごとの進捗報告に使う。
func (s *Service) ProcessFiles(ctx context.Context, files []UploadFile) (*BatchResult, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("no files provided")
	}

	result := &BatchResult{Files: make([]FileResult, 0, len(files))}
	for _, file := range files {
		fr := s.processFile(ctx, file)
		result.Files = append(result.Files, fr)

		switch fr.Status {
		case FileProcessed:
			result.Processed++
			result.TotalChunks += fr.ChunkCount
		case FileSkipped:
			result.Skipped++
		case FileFailed:
			result.Failed++
		}

		s.logger.Info("file processed",
			"name", fr.Name,
			"status", fr.Status,
			"chunks", fr.ChunkCount,
		)
	}

	return result, nil
}

// processFile は1ファイル分のパイプラインを実行する
func (s *Service) processFile(ctx context.Context, file UploadFile) FileResult {
	text, err := s.extractToText(ctx, file)
	if err != nil {
		return FileResult{Name: file.Name, Status: FileFailed, Error: err.Error()}
	}
	if strings.TrimSpace(text) == "" {
		return FileResult{Name: file.Name, Status: FileFailed, Error: "no text content extracted"}
	}

	hash := contentHash(file.Data)
	existing, err := s.repo.FindDocumentByHash(ctx, hash)
	if err != nil {
		return FileResult{Name: file.Name, Status: FileFailed, Error: fmt.Sprintf("failed to check for duplicate: %v", err)}
	}
	if doc, ok := existing.Get(); ok {
		s.logger.Info("duplicate document skipped", "name", file.Name, "existing", doc.Name)
		return FileResult{Name: file.Name, Status: FileSkipped, ChunkCount: doc.ChunkCount}
	}

	pieces := s.splitter.Split(text)
	if len(pieces) == 0 {
		return FileResult{Name: file.Name, Status: FileFailed, Error: "no chunks produced"}
	}

	s.logger.Info("document split",
		"name", file.Name,
		"chunks", len(pieces),
		"tokens", sum(s.splitter.Stats(pieces)),
	)

	vectors, err := s.embedAll(ctx, pieces)
	if err != nil {
		return FileResult{Name: file.Name, Status: FileFailed, Error: fmt.Sprintf("failed to embed chunks: %v", err)}
	}

	fileType := strings.ToLower(filepath.Ext(file.Name))
	doc := &Document{
		ID:          uuid.New(),
		Name:        file.Name,
		FileType:    fileType,
		ContentHash: hash,
		ChunkCount:  len(pieces),
		UploadedAt:  time.Now().UTC(),
		Processed:   true,
	}

	chunks := make([]*DocumentChunk, 0, len(pieces))
	for i, piece := range pieces {
		chunks = append(chunks, &DocumentChunk{
			ID:         uuid.New(),
			DocumentID: doc.ID,
			SourceName: doc.Name,
			ChunkIndex: i,
			FileType:   fileType,
			Content:    piece,
			Embedding:  vectors[i],
		})
	}

	if err := s.repo.SaveDocumentWithChunks(ctx, doc, chunks); err != nil {
		return FileResult{Name: file.Name, Status: FileFailed, Error: fmt.Sprintf("failed to persist document: %v", err)}
	}

	return FileResult{Name: file.Name, Status: FileProcessed, ChunkCount: len(chunks)}
}

// extractToText はアップロードバイト列を一時ファイル経由でテキスト化する
func (s *Service) extractToText(ctx context.Context, file UploadFile) (string, error) {
	tmp, err := os.CreateTemp("", "upload-*"+filepath.Ext(file.Name))
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(file.Data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}

	return s.extractor.Extract(ctx, tmp.Name(), file.Name)
}

// embedAll はチャンク本文をバッチ上限に収めながら順に埋め込む
func (s *Service) embedAll(ctx context.Context, pieces []string) ([][]float32, error) {
	batchSize := s.embedder.MaxBatchSize()
	if batchSize <= 0 {
		batchSize = len(pieces)
	}

	vectors := make([][]float32, 0, len(pieces))
	for start := 0; start < len(pieces); start += batchSize {
		end := start + batchSize
		if end > len(pieces) {
			end = len(pieces)
		}
		batch, err := s.embedder.BatchEmbed(ctx, pieces[start:end])
		if err != nil {
			return nil, err
		}
		if len(batch) != end-start {
			return nil, fmt.Errorf("embedding count mismatch: want %d, got %d", end-start, len(batch))
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

// ListDocuments は処理済み文書の一覧を返す
func (s *Service) ListDocuments(ctx context.Context) ([]*Document, error) {
	docs, err := s.repo.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return docs, nil
}

// Stats はナレッジベースの文書数とチャンク数を返す
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	docs, err := s.repo.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}
	chunks, err := s.repo.CountChunks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count chunks: %w", err)
	}
	return &Stats{DocumentCount: len(docs), ChunkCount: chunks}, nil
}

// contentHash はアップロード内容のSHA-256ハッシュを返す
func contentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func sum(values []int) int {
	total := 0
	for _, v := range values {
		total += v
	}
	return total
}
