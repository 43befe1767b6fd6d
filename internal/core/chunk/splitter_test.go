package chunk_test

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/support-rag/internal/core/chunk"
)

// longestOverlap は a の接尾辞と b の接頭辞が一致する最大長を返す
func longestOverlap(a, b string) int {
	max := len(a)
	if len(b) < max {
		max = len(b)
	}
	for k := max; k > 0; k-- {
		if a[len(a)-k:] == b[:k] {
			return k
		}
	}
	return 0
}

func TestNewSplitter_Defaults(t *testing.T) {
	s, err := chunk.NewSplitter()
	require.NoError(t, err)

	assert.Equal(t, chunk.DefaultChunkSize, s.ChunkSize())
	assert.Equal(t, chunk.DefaultOverlap, s.Overlap())
}

func TestNewSplitter_OverlapTooLarge(t *testing.T) {
	_, err := chunk.NewSplitter(chunk.WithChunkSize(100), chunk.WithOverlap(100))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overlap")
}

func TestSplit_EmptyText(t *testing.T) {
	s, err := chunk.NewSplitter()
	require.NoError(t, err)

	assert.Nil(t, s.Split(""))
	assert.Nil(t, s.Split("   \n\t  "))
}

func TestSplit_ShortText(t *testing.T) {
	s, err := chunk.NewSplitter()
	require.NoError(t, err)

	text := "短いテキストは分割されずそのまま1チャンクになる"
	chunks := s.Split(text)

	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0])
}

func TestSplit_ParagraphBoundaries(t *testing.T) {
	// 段落がチャンクサイズに収まる場合は段落区切りが優先される
	s, err := chunk.NewSplitter(chunk.WithChunkSize(100), chunk.WithOverlap(20))
	require.NoError(t, err)

	var paragraphs []string
	for i := 0; i < 6; i++ {
		paragraphs = append(paragraphs, fmt.Sprintf("paragraph %d "+strings.Repeat("x", 50), i))
	}
	text := strings.Join(paragraphs, "\n\n")

	chunks := s.Split(text)
	require.Greater(t, len(chunks), 1)

	for _, c := range chunks {
		// 段落は分断されない
		assert.NotContains(t, c, "xp")
	}
}

func TestSplit_OverlapProperty(t *testing.T) {
	s, err := chunk.NewSplitter(chunk.WithChunkSize(200), chunk.WithOverlap(40))
	require.NoError(t, err)

	// 空白区切りの単語列: 連続するチャンクはオーバーラップ分を共有する
	var words []string
	for i := 0; i < 200; i++ {
		words = append(words, fmt.Sprintf("word%03d", i))
	}
	text := strings.Join(words, " ")

	chunks := s.Split(text)
	require.Greater(t, len(chunks), 2)

	for i := 1; i < len(chunks); i++ {
		overlap := longestOverlap(chunks[i-1], chunks[i])
		assert.GreaterOrEqual(t, overlap, s.Overlap(),
			"chunk %d and %d should share at least %d characters", i-1, i, s.Overlap())
	}
}

func TestSplit_HardSplit(t *testing.T) {
	s, err := chunk.NewSplitter(chunk.WithChunkSize(100), chunk.WithOverlap(20))
	require.NoError(t, err)

	// 区切り文字を一切含まない長大なテキスト
	text := strings.Repeat("a", 450)
	chunks := s.Split(text)

	require.Greater(t, len(chunks), 1)
	for i, c := range chunks {
		assert.LessOrEqual(t, len(c), s.ChunkSize(), "chunk %d exceeds target size", i)
	}

	// 固定幅分割では隣接チャンクがちょうどオーバーラップ分を共有する
	for i := 1; i < len(chunks); i++ {
		assert.GreaterOrEqual(t, longestOverlap(chunks[i-1], chunks[i]), s.Overlap())
	}

	// 全チャンクを繋ぐと元テキストを完全に被覆している
	step := s.ChunkSize() - s.Overlap()
	covered := 0
	for i, c := range chunks {
		start := i * step
		assert.Equal(t, text[start:start+len(c)], c)
		covered = start + len(c)
	}
	assert.Equal(t, len(text), covered)
}

// longestRuneOverlap は a の接尾辞と b の接頭辞が一致する最大の文字数を返す
func longestRuneOverlap(a, b string) int {
	ar, br := []rune(a), []rune(b)
	max := len(ar)
	if len(br) < max {
		max = len(br)
	}
	for k := max; k > 0; k-- {
		if string(ar[len(ar)-k:]) == string(br[:k]) {
			return k
		}
	}
	return 0
}

func TestSplit_MultibyteTextKeepsRuneBoundaries(t *testing.T) {
	s, err := chunk.NewSplitter()
	require.NoError(t, err)

	// 区切り文字を含まない日本語の長文。バイト境界で切るとルーンが分断される
	text := strings.Repeat("パスワードの再設定は設定画面から行えます。", 120)
	chunks := s.Split(text)

	require.Greater(t, len(chunks), 1)
	for i, c := range chunks {
		assert.True(t, utf8.ValidString(c), "chunk %d contains invalid UTF-8", i)
		assert.LessOrEqual(t, utf8.RuneCountInString(c), s.ChunkSize(),
			"chunk %d exceeds target size in characters", i)
	}

	// 隣接チャンクは文字数でオーバーラップ分を共有する
	for i := 1; i < len(chunks); i++ {
		assert.GreaterOrEqual(t, longestRuneOverlap(chunks[i-1], chunks[i]), s.Overlap())
	}
}

func TestSplit_MultibyteParagraphsMeasuredInRunes(t *testing.T) {
	// 1段落120文字（バイト数では360）が6段落。チャンクサイズは文字数で
	// 数えるため2段落ずつ詰め合わされる。バイト数で測っていれば
	// 2段落(722バイト)は300を超えて詰め合わせ不可能
	s, err := chunk.NewSplitter(chunk.WithChunkSize(300), chunk.WithOverlap(60))
	require.NoError(t, err)

	para := strings.Repeat("あ", 120)
	paragraphs := []string{para, para, para, para, para, para}
	text := strings.Join(paragraphs, "\n\n")

	chunks := s.Split(text)

	require.Len(t, chunks, 5)
	for i, c := range chunks {
		assert.Equal(t, para+"\n\n"+para, c, "chunk %d", i)
		assert.True(t, utf8.ValidString(c))
		assert.LessOrEqual(t, utf8.RuneCountInString(c), s.ChunkSize())
		assert.Greater(t, len(c), s.ChunkSize(), "byte length may exceed the character target")
	}
}

func TestSplit_Deterministic(t *testing.T) {
	s, err := chunk.NewSplitter(chunk.WithChunkSize(150), chunk.WithOverlap(30))
	require.NoError(t, err)

	var sb strings.Builder
	for i := 0; i < 50; i++ {
		sb.WriteString(fmt.Sprintf("sentence number %d ends here. ", i))
	}
	text := sb.String()

	first := s.Split(text)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, s.Split(text))
	}
}

func TestSplit_ContentPreserved(t *testing.T) {
	s, err := chunk.NewSplitter(chunk.WithChunkSize(120), chunk.WithOverlap(24))
	require.NoError(t, err)

	var words []string
	for i := 0; i < 100; i++ {
		words = append(words, fmt.Sprintf("token%02d", i%60))
	}
	text := strings.Join(words, " ")

	chunks := s.Split(text)
	require.NotEmpty(t, chunks)

	// 各チャンクは元テキストの部分文字列
	for i, c := range chunks {
		assert.Contains(t, text, c, "chunk %d is not a substring of the input", i)
	}

	// 先頭チャンクは入力の先頭から、末尾チャンクは入力の末尾まで
	assert.True(t, strings.HasPrefix(text, chunks[0]))
	assert.True(t, strings.HasSuffix(text, chunks[len(chunks)-1]))
}

func TestCountTokens(t *testing.T) {
	s, err := chunk.NewSplitter()
	require.NoError(t, err)

	assert.Equal(t, 0, s.CountTokens(""))
	assert.Greater(t, s.CountTokens("How do I reset my password?"), 0)
}

func TestStats(t *testing.T) {
	s, err := chunk.NewSplitter()
	require.NoError(t, err)

	counts := s.Stats([]string{"first chunk", "second chunk text"})
	require.Len(t, counts, 2)
	for _, c := range counts {
		assert.Greater(t, c, 0)
	}
}
