package rag

import "github.com/samber/mo"

// DefaultTopK は検索するチャンク数のデフォルト値
const DefaultTopK = 3

// Params は質問応答のパラメータを表す
type Params struct {
	Question    string         // ユーザーの質問文
	Model       string         // 生成に使用するモデル名
	Temperature float64        // サンプリング温度（0 = 決定的、1 = 最も多様）
	TopK        mo.Option[int] // 検索するチャンク数（デフォルト: 3）
}

// Result は質問応答の結果を表す
type Result struct {
	Answer      string     // LLMによる回答
	Sources     []Citation // 参照したチャンクの引用情報
	Confidence  float64    // ヒューリスティックな信頼度スコア [0,1]
	Model       string     // 実際に使用したモデル名
	Temperature float64    // 実際に使用した温度
}

// Citation は回答の根拠となったチャンクの引用を表す
type Citation struct {
	SourceName string `json:"source_name"` // 取り込み元ファイル名
	ChunkIndex int    `json:"chunk_index"` // ファイル内のチャンク位置
	Preview    string `json:"preview"`     // チャンク先頭のプレビュー（最大150文字）
}

// RetrievedChunk はベクトル検索で取得したチャンクを表す
type RetrievedChunk struct {
	SourceName string  // 取り込み元ファイル名
	ChunkIndex int     // ファイル内のチャンク位置
	FileType   string  // ファイル種別（.pdf など）
	Content    string  // チャンク本文
	Score      float64 // 関連度スコア
}

// CompletionRequest はテキスト生成のリクエストを表す
type CompletionRequest struct {
	Prompt      string
	Model       string
	Temperature float64
}

// CompletionResponse はテキスト生成のレスポンスを表す
type CompletionResponse struct {
	Content    string
	Model      string
	TokensUsed int
}
