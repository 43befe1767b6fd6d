package rag

import "sync"

// MemoryTurn は会話メモリに保持する1往復分の質問と回答
type MemoryTurn struct {
	Question string
	Answer   string
}

// SessionContext はセッション単位の会話状態を保持する。
// グローバルな状態を持たず、呼び出しごとに明示的に渡す。
// 1セッションへの書き込みは直列だが、ハンドラ間の共有に備えてロックで保護する。
type SessionContext struct {
	mu        sync.Mutex
	sessionID string
	turns     []MemoryTurn
}

// NewSessionContext は新しいSessionContextを作成する
func NewSessionContext(sessionID string) *SessionContext {
	return &SessionContext{sessionID: sessionID}
}

// SessionID はセッションIDを返す
func (c *SessionContext) SessionID() string {
	return c.sessionID
}

// Remember は質問と回答のペアをメモリ末尾に追加する
func (c *SessionContext) Remember(question, answer string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = append(c.turns, MemoryTurn{Question: question, Answer: answer})
}

// Turns は会話メモリのコピーを古い順で返す
func (c *SessionContext) Turns() []MemoryTurn {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]MemoryTurn, len(c.turns))
	copy(out, c.turns)
	return out
}

// Len は保持している往復数を返す
func (c *SessionContext) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.turns)
}

// Reset は会話メモリを明示的に消去する
func (c *SessionContext) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = nil
}
