package session

import (
	"time"

	"github.com/jinford/support-rag/internal/core/rag"
)

// Session はチャットセッションを表す。
// 削除されることはなく、履歴のクリア時も行そのものは残る。
type Session struct {
	SessionID      string
	CreatedAt      time.Time
	LastActivity   time.Time
	TotalQuestions int
}

// Turn は1往復分の質問応答レコードを表す。作成後は不変。
type Turn struct {
	SessionID   string         `json:"session_id"`
	Question    string         `json:"question"`
	Answer      string         `json:"answer"`
	Confidence  float64        `json:"confidence"`
	Sources     []rag.Citation `json:"sources"`
	Model       string         `json:"model"`
	Temperature float64        `json:"temperature"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Stats はセッションの統計情報
type Stats struct {
	SessionID      string    `json:"session_id"`
	TotalQuestions int       `json:"total_questions"`
	CreatedAt      time.Time `json:"created_at"`
	LastActivity   time.Time `json:"last_activity"`
}
