package ingestion

import (
	"time"

	"github.com/google/uuid"
)

// Document は取り込み済み文書のメタデータを表す
type Document struct {
	ID          uuid.UUID
	Name        string
	FileType    string
	ContentHash string
	ChunkCount  int
	UploadedAt  time.Time
	Processed   bool
}

// DocumentChunk は文書から切り出した1チャンクを表す。
// 生成後は不変で、ベクトルとともに索引に保存される。
type DocumentChunk struct {
	ID         uuid.UUID
	DocumentID uuid.UUID
	SourceName string    // 取り込み元ファイル名
	ChunkIndex int       // ファイル内での位置（ファイル内で一意）
	FileType   string    // ファイル種別（.pdf など）
	Content    string    // チャンク本文
	Embedding  []float32 // 埋め込みベクトル
}

// UploadFile はアップロードされた1ファイル（表示名と生バイト列）
type UploadFile struct {
	Name string
	Data []byte
}

// FileStatus はファイル単位の処理結果ステータス
type FileStatus string

const (
	// FileProcessed は抽出・分割・索引化まで完了した状態
	FileProcessed FileStatus = "processed"
	// FileSkipped は同一ハッシュの文書が既に存在したためスキップした状態
	FileSkipped FileStatus = "skipped"
	// FileFailed は処理に失敗した状態
	FileFailed FileStatus = "failed"
)

// FileResult はファイル単位の処理結果。
// 複数ファイル処理では1件の失敗で他を止めず、結果を個別に報告する。
type FileResult struct {
	Name       string     `json:"name"`
	Status     FileStatus `json:"status"`
	ChunkCount int        `json:"chunk_count"`
	Error      string     `json:"error,omitempty"`
}

// BatchResult は複数ファイル処理の集計結果
type BatchResult struct {
	Files       []FileResult `json:"files"`
	Processed   int          `json:"processed"`
	Skipped     int          `json:"skipped"`
	Failed      int          `json:"failed"`
	TotalChunks int          `json:"total_chunks"`
}

// Stats はナレッジベースの統計情報
type Stats struct {
	DocumentCount int `json:"document_count"`
	ChunkCount    int `json:"chunk_count"`
}
