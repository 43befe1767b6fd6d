package ingestion

import (
	"context"

	"github.com/samber/mo"
)

// Repository は文書とチャンクの永続化インターフェース
type Repository interface {
	// FindDocumentByHash はコンテンツハッシュで文書を検索する
	FindDocumentByHash(ctx context.Context, hash string) (mo.Option[*Document], error)

	// SaveDocumentWithChunks は文書メタデータとチャンク一式を単一トランザクションで保存する
	SaveDocumentWithChunks(ctx context.Context, doc *Document, chunks []*DocumentChunk) error

	// ListDocuments は処理済み文書をアップロード順に返す
	ListDocuments(ctx context.Context) ([]*Document, error)

	// CountChunks はインデックス済みチャンクの総数を返す
	CountChunks(ctx context.Context) (int, error)
}

// Extractor はファイルから生テキストを抽出するインターフェース
type Extractor interface {
	Extract(ctx context.Context, path string, name string) (string, error)
}

// Splitter はテキストをチャンクに分割するインターフェース
type Splitter interface {
	Split(text string) []string
	Stats(chunks []string) []int
}

// Embedder はテキストをベクトルに変換するインターフェース
type Embedder interface {
	BatchEmbed(ctx context.Context, texts []string) ([][]float32, error)
	MaxBatchSize() int
}
