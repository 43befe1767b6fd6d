package openai_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/support-rag/internal/infra/openai"
)

func TestNewEmbedder_Defaults(t *testing.T) {
	e := openai.NewEmbedder("test-key")

	assert.Equal(t, openai.DefaultEmbeddingModel, e.ModelName())
	assert.Equal(t, openai.DefaultEmbeddingDimension, e.Dimension())
	assert.Equal(t, 100, e.MaxBatchSize())
}

func TestNewEmbedder_Options(t *testing.T) {
	e := openai.NewEmbedder("test-key",
		openai.WithEmbeddingModel("text-embedding-3-large"),
		openai.WithEmbeddingDimension(3072),
	)

	assert.Equal(t, "text-embedding-3-large", e.ModelName())
	assert.Equal(t, 3072, e.Dimension())
}

func TestEmbedder_BatchEmbed_Validation(t *testing.T) {
	e := openai.NewEmbedder("test-key")
	ctx := context.Background()

	// 空入力はAPIを呼ばずにエラー
	_, err := e.BatchEmbed(ctx, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no texts provided")

	// バッチ上限超過もAPIを呼ばずにエラー
	texts := make([]string, 101)
	for i := range texts {
		texts[i] = "text"
	}
	_, err = e.BatchEmbed(ctx, texts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch size exceeds maximum")
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	_, err := openai.NewClient("", "gpt-4o-mini")
	require.Error(t, err)
	assert.ErrorIs(t, err, openai.ErrAPIKeyNotSet)
}

func TestNewClient_DefaultModel(t *testing.T) {
	c, err := openai.NewClient("test-key", "")
	require.NoError(t, err)
	assert.Equal(t, openai.DefaultModel, c.ModelName())
}
