package rag_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/support-rag/internal/core/rag"
)

type mockEmbedder struct {
	EmbedFunc func(ctx context.Context, text string) ([]float32, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return m.EmbedFunc(ctx, text)
}

type mockRetriever struct {
	SearchFunc func(ctx context.Context, vector []float32, k int) ([]*rag.RetrievedChunk, error)
	CountFunc  func(ctx context.Context) (int, error)
}

func (m *mockRetriever) Search(ctx context.Context, vector []float32, k int) ([]*rag.RetrievedChunk, error) {
	return m.SearchFunc(ctx, vector, k)
}

func (m *mockRetriever) Count(ctx context.Context) (int, error) {
	return m.CountFunc(ctx)
}

type mockLLM struct {
	GenerateFunc func(ctx context.Context, req rag.CompletionRequest) (rag.CompletionResponse, error)
}

func (m *mockLLM) GenerateCompletion(ctx context.Context, req rag.CompletionRequest) (rag.CompletionResponse, error) {
	return m.GenerateFunc(ctx, req)
}

type fixedTokenCounter struct {
	perText int
}

func (c *fixedTokenCounter) CountTokens(text string) int {
	return c.perText
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestService_Answer_Success(t *testing.T) {
	// Setup
	ctx := context.Background()

	retrieved := []*rag.RetrievedChunk{
		{SourceName: "faq.pdf", ChunkIndex: 1, Content: "Refunds take 5 business days.", Score: 0.92},
		{SourceName: "faq.pdf", ChunkIndex: 2, Content: strings.Repeat("long ", 50), Score: 0.85},
	}

	var capturedPrompt string
	embedder := &mockEmbedder{
		EmbedFunc: func(ctx context.Context, text string) ([]float32, error) {
			assert.Equal(t, "How long do refunds take?", text)
			return []float32{0.1, 0.2}, nil
		},
	}
	retriever := &mockRetriever{
		CountFunc: func(ctx context.Context) (int, error) { return 42, nil },
		SearchFunc: func(ctx context.Context, vector []float32, k int) ([]*rag.RetrievedChunk, error) {
			assert.Equal(t, []float32{0.1, 0.2}, vector)
			assert.Equal(t, rag.DefaultTopK, k)
			return retrieved, nil
		},
	}
	llm := &mockLLM{
		GenerateFunc: func(ctx context.Context, req rag.CompletionRequest) (rag.CompletionResponse, error) {
			capturedPrompt = req.Prompt
			assert.Equal(t, "gpt-4o-mini", req.Model)
			assert.InDelta(t, 0.1, req.Temperature, 1e-9)
			return rag.CompletionResponse{Content: "About 5 business days.", Model: "gpt-4o-mini", TokensUsed: 20}, nil
		},
	}

	service := rag.NewService(embedder, retriever, llm, rag.WithLogger(testLogger()))
	sctx := rag.NewSessionContext("sess-1")

	// Execute
	result, err := service.Answer(ctx, sctx, rag.Params{
		Question:    "How long do refunds take?",
		Model:       "gpt-4o-mini",
		Temperature: 0.1,
		TopK:        mo.None[int](),
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "About 5 business days.", result.Answer)
	assert.InDelta(t, 0.9, result.Confidence, 1e-9)
	assert.Equal(t, "gpt-4o-mini", result.Model)

	require.Len(t, result.Sources, 2)
	assert.Equal(t, "faq.pdf", result.Sources[0].SourceName)
	assert.Equal(t, 1, result.Sources[0].ChunkIndex)
	assert.Equal(t, "Refunds take 5 business days.", result.Sources[0].Preview)
	assert.True(t, strings.HasSuffix(result.Sources[1].Preview, "..."))

	// プロンプトに検索結果が含まれる
	assert.Contains(t, capturedPrompt, "[1] faq.pdf (chunk 1)")

	// 今回の往復がメモリに追記される
	turns := sctx.Turns()
	require.Len(t, turns, 1)
	assert.Equal(t, "How long do refunds take?", turns[0].Question)
	assert.Equal(t, "About 5 business days.", turns[0].Answer)
}

func TestService_Answer_EmptyQuestion(t *testing.T) {
	service := rag.NewService(&mockEmbedder{}, &mockRetriever{}, &mockLLM{}, rag.WithLogger(testLogger()))
	sctx := rag.NewSessionContext("sess-1")

	result, err := service.Answer(context.Background(), sctx, rag.Params{TopK: mo.None[int]()})

	require.Error(t, err)
	assert.ErrorIs(t, err, rag.ErrEmptyQuestion)
	assert.Nil(t, result)
}

func TestService_Answer_IndexNotReady(t *testing.T) {
	retriever := &mockRetriever{
		CountFunc: func(ctx context.Context) (int, error) { return 0, nil },
	}
	service := rag.NewService(&mockEmbedder{}, retriever, &mockLLM{}, rag.WithLogger(testLogger()))
	sctx := rag.NewSessionContext("sess-1")

	result, err := service.Answer(context.Background(), sctx, rag.Params{
		Question: "Anything indexed?",
		TopK:     mo.None[int](),
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, rag.ErrIndexNotReady)
	assert.Nil(t, result)
	assert.Equal(t, 0, sctx.Len())
}

func TestService_Answer_NoMatches(t *testing.T) {
	// インデックスは存在するが、検索結果がゼロ件のケース
	embedder := &mockEmbedder{
		EmbedFunc: func(ctx context.Context, text string) ([]float32, error) {
			return []float32{0.5}, nil
		},
	}
	retriever := &mockRetriever{
		CountFunc: func(ctx context.Context) (int, error) { return 10, nil },
		SearchFunc: func(ctx context.Context, vector []float32, k int) ([]*rag.RetrievedChunk, error) {
			return nil, nil
		},
	}
	var capturedPrompt string
	llm := &mockLLM{
		GenerateFunc: func(ctx context.Context, req rag.CompletionRequest) (rag.CompletionResponse, error) {
			capturedPrompt = req.Prompt
			return rag.CompletionResponse{Content: "I could not find that in the documentation."}, nil
		},
	}

	service := rag.NewService(embedder, retriever, llm, rag.WithLogger(testLogger()))
	sctx := rag.NewSessionContext("sess-1")

	result, err := service.Answer(context.Background(), sctx, rag.Params{
		Question: "Totally unrelated question",
		TopK:     mo.None[int](),
	})

	require.NoError(t, err)
	assert.InDelta(t, 0.3, result.Confidence, 1e-9)
	assert.Empty(t, result.Sources)
	assert.Contains(t, capturedPrompt, "(no matching context found)")
}

func TestService_Answer_CustomTopK(t *testing.T) {
	embedder := &mockEmbedder{
		EmbedFunc: func(ctx context.Context, text string) ([]float32, error) {
			return []float32{0.5}, nil
		},
	}
	var capturedK int
	retriever := &mockRetriever{
		CountFunc: func(ctx context.Context) (int, error) { return 10, nil },
		SearchFunc: func(ctx context.Context, vector []float32, k int) ([]*rag.RetrievedChunk, error) {
			capturedK = k
			return nil, nil
		},
	}
	llm := &mockLLM{
		GenerateFunc: func(ctx context.Context, req rag.CompletionRequest) (rag.CompletionResponse, error) {
			return rag.CompletionResponse{Content: "ok"}, nil
		},
	}

	service := rag.NewService(embedder, retriever, llm, rag.WithLogger(testLogger()))
	sctx := rag.NewSessionContext("sess-1")

	_, err := service.Answer(context.Background(), sctx, rag.Params{
		Question: "q",
		TopK:     mo.Some(7),
	})

	require.NoError(t, err)
	assert.Equal(t, 7, capturedK)
}

func TestService_Answer_MemoryFoldedByBudget(t *testing.T) {
	// 各ターンが予算を大きく超えるトークン数の場合、古い履歴から落とされる
	embedder := &mockEmbedder{
		EmbedFunc: func(ctx context.Context, text string) ([]float32, error) {
			return []float32{0.5}, nil
		},
	}
	retriever := &mockRetriever{
		CountFunc: func(ctx context.Context) (int, error) { return 10, nil },
		SearchFunc: func(ctx context.Context, vector []float32, k int) ([]*rag.RetrievedChunk, error) {
			return nil, nil
		},
	}
	var capturedPrompt string
	llm := &mockLLM{
		GenerateFunc: func(ctx context.Context, req rag.CompletionRequest) (rag.CompletionResponse, error) {
			capturedPrompt = req.Prompt
			return rag.CompletionResponse{Content: "ok"}, nil
		},
	}

	service := rag.NewService(embedder, retriever, llm,
		rag.WithLogger(testLogger()),
		rag.WithTokenCounter(&fixedTokenCounter{perText: 5000}),
	)

	sctx := rag.NewSessionContext("sess-1")
	sctx.Remember("old question", "old answer")
	sctx.Remember("recent question", "recent answer")

	_, err := service.Answer(context.Background(), sctx, rag.Params{
		Question: "new question",
		TopK:     mo.None[int](),
	})

	require.NoError(t, err)
	assert.NotContains(t, capturedPrompt, "old question")
	assert.NotContains(t, capturedPrompt, "recent question")
}

func TestService_Answer_RetrievalError(t *testing.T) {
	expectedErr := errors.New("connection refused")
	embedder := &mockEmbedder{
		EmbedFunc: func(ctx context.Context, text string) ([]float32, error) {
			return []float32{0.5}, nil
		},
	}
	retriever := &mockRetriever{
		CountFunc: func(ctx context.Context) (int, error) { return 10, nil },
		SearchFunc: func(ctx context.Context, vector []float32, k int) ([]*rag.RetrievedChunk, error) {
			return nil, expectedErr
		},
	}

	service := rag.NewService(embedder, retriever, &mockLLM{}, rag.WithLogger(testLogger()))
	sctx := rag.NewSessionContext("sess-1")

	result, err := service.Answer(context.Background(), sctx, rag.Params{
		Question: "q",
		TopK:     mo.None[int](),
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, expectedErr)
	assert.Nil(t, result)
	assert.Equal(t, 0, sctx.Len())
}
