package rag_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/support-rag/internal/core/rag"
)

func TestConfidence(t *testing.T) {
	tests := []struct {
		name      string
		retrieved int
		want      float64
	}{
		{name: "根拠ゼロ", retrieved: 0, want: 0.3},
		{name: "根拠1件", retrieved: 1, want: 0.8},
		{name: "根拠2件", retrieved: 2, want: 0.9},
		{name: "根拠3件で上限", retrieved: 3, want: 0.95},
		{name: "根拠10件でも上限", retrieved: 10, want: 0.95},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, rag.Confidence(tt.retrieved), 1e-9)
		})
	}
}

func TestBuildCitation_ShortContent(t *testing.T) {
	chunk := &rag.RetrievedChunk{
		SourceName: "faq.pdf",
		ChunkIndex: 2,
		Content:    "Short answer.",
	}

	citation := rag.BuildCitation(chunk)

	assert.Equal(t, "faq.pdf", citation.SourceName)
	assert.Equal(t, 2, citation.ChunkIndex)
	assert.Equal(t, "Short answer.", citation.Preview)
}

func TestBuildCitation_TruncatesLongContent(t *testing.T) {
	content := strings.Repeat("a", 300)
	chunk := &rag.RetrievedChunk{
		SourceName: "manual.txt",
		ChunkIndex: 0,
		Content:    content,
	}

	citation := rag.BuildCitation(chunk)

	assert.Equal(t, strings.Repeat("a", 150)+"...", citation.Preview)
}

func TestBuildCitation_TruncatesByRunes(t *testing.T) {
	// マルチバイト文字でも文字数単位で切り詰める
	content := strings.Repeat("あ", 200)
	chunk := &rag.RetrievedChunk{
		SourceName: "guide.docx",
		ChunkIndex: 1,
		Content:    content,
	}

	citation := rag.BuildCitation(chunk)

	assert.Equal(t, strings.Repeat("あ", 150)+"...", citation.Preview)
}

func TestBuildPrompt_WithContext(t *testing.T) {
	chunks := []*rag.RetrievedChunk{
		{SourceName: "faq.pdf", ChunkIndex: 3, Content: "Refunds take 5 business days."},
		{SourceName: "policy.txt", ChunkIndex: 0, Content: "Contact support for exceptions."},
	}
	memory := []rag.MemoryTurn{
		{Question: "How do I request a refund?", Answer: "Use the billing portal."},
	}

	prompt := rag.BuildPrompt("How long does it take?", memory, chunks)

	assert.Contains(t, prompt, "customer support assistant")
	assert.Contains(t, prompt, "Conversation so far:")
	assert.Contains(t, prompt, "Customer: How do I request a refund?")
	assert.Contains(t, prompt, "Assistant: Use the billing portal.")
	assert.Contains(t, prompt, "[1] faq.pdf (chunk 3)")
	assert.Contains(t, prompt, "[2] policy.txt (chunk 0)")
	assert.Contains(t, prompt, "Refunds take 5 business days.")
	assert.True(t, strings.HasSuffix(prompt, "Question: How long does it take?\n\nAnswer:"))
}

func TestBuildPrompt_NoContext(t *testing.T) {
	prompt := rag.BuildPrompt("What is the SLA?", nil, nil)

	assert.Contains(t, prompt, "(no matching context found)")
	assert.NotContains(t, prompt, "Conversation so far:")
}

func TestSessionContext(t *testing.T) {
	sctx := rag.NewSessionContext("sess-1")
	require.Equal(t, "sess-1", sctx.SessionID())
	require.Equal(t, 0, sctx.Len())

	sctx.Remember("q1", "a1")
	sctx.Remember("q2", "a2")
	require.Equal(t, 2, sctx.Len())

	turns := sctx.Turns()
	require.Len(t, turns, 2)
	assert.Equal(t, rag.MemoryTurn{Question: "q1", Answer: "a1"}, turns[0])
	assert.Equal(t, rag.MemoryTurn{Question: "q2", Answer: "a2"}, turns[1])

	// Turns はコピーを返す
	turns[0].Question = "mutated"
	assert.Equal(t, "q1", sctx.Turns()[0].Question)

	sctx.Reset()
	assert.Equal(t, 0, sctx.Len())
	assert.Empty(t, sctx.Turns())
}
