package chunk

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

const (
	// DefaultChunkSize は1チャンクの目標文字数
	DefaultChunkSize = 1000
	// DefaultOverlap は連続チャンク間で共有する文字数
	DefaultOverlap = 200
)

// DefaultSeparators は分割に使用する区切り文字の優先順位リスト。
// 段落 → 改行 → 文末 → 空白 → 任意位置 の順で試行する。
func DefaultSeparators() []string {
	return []string{"\n\n", "\n", ". ", " ", ""}
}

// Splitter はテキストをオーバーラップ付きのチャンクに再帰的に分割します
type Splitter struct {
	encoder    *tiktoken.Tiktoken
	separators []string
	chunkSize  int // 目標文字数
	overlap    int // オーバーラップ文字数
}

// SplitterOption は Splitter のオプション設定
type SplitterOption func(*Splitter)

// WithChunkSize は目標チャンクサイズを上書きする
func WithChunkSize(size int) SplitterOption {
	return func(s *Splitter) {
		s.chunkSize = size
	}
}

// WithOverlap はオーバーラップ文字数を上書きする
func WithOverlap(overlap int) SplitterOption {
	return func(s *Splitter) {
		s.overlap = overlap
	}
}

// WithSeparators は区切り文字の優先順位リストを上書きする
func WithSeparators(separators []string) SplitterOption {
	return func(s *Splitter) {
		s.separators = separators
	}
}

// NewSplitter は新しいSplitterを作成します
func NewSplitter(opts ...SplitterOption) (*Splitter, error) {
	// cl100k_baseエンコーダを使用（text-embedding-3-smallと互換）
	encoder, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("failed to get tiktoken encoder: %w", err)
	}

	s := &Splitter{
		encoder:    encoder,
		separators: DefaultSeparators(),
		chunkSize:  DefaultChunkSize,
		overlap:    DefaultOverlap,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.overlap >= s.chunkSize {
		return nil, fmt.Errorf("overlap (%d) must be smaller than chunk size (%d)", s.overlap, s.chunkSize)
	}

	return s, nil
}

// Split はテキストをチャンクに分割します。
// 同一の入力と設定に対して常に同一のチャンク列を返す（決定的）。
func (s *Splitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return s.splitRecursive(text, s.separators)
}

// splitRecursive はテキスト中に存在する最も優先度の高い区切り文字で分割し、
// 目標サイズを超える断片はより細かい区切り文字で再帰的に分割します
func (s *Splitter) splitRecursive(text string, separators []string) []string {
	if utf8.RuneCountInString(text) <= s.chunkSize {
		return []string{text}
	}

	sep := ""
	var finer []string
	for i, cand := range separators {
		if cand == "" {
			break
		}
		if strings.Contains(text, cand) {
			sep = cand
			finer = separators[i+1:]
			break
		}
	}

	// どの区切り文字も含まれない場合は固定幅で分割する
	if sep == "" {
		return s.hardSplit(text)
	}

	pieces := make([]string, 0)
	for _, p := range strings.Split(text, sep) {
		if p != "" {
			pieces = append(pieces, p)
		}
	}

	var chunks []string
	var run []string
	for _, piece := range pieces {
		if utf8.RuneCountInString(piece) <= s.chunkSize {
			run = append(run, piece)
			continue
		}
		// 大きすぎる断片: ここまでの断片をまとめてから、細かい区切りで再帰
		if len(run) > 0 {
			chunks = append(chunks, s.mergePieces(run, sep)...)
			run = nil
		}
		chunks = append(chunks, s.splitRecursive(piece, finer)...)
	}
	if len(run) > 0 {
		chunks = append(chunks, s.mergePieces(run, sep)...)
	}

	return chunks
}

// mergePieces は小さな断片を目標サイズまで詰め合わせてチャンク化します。
// チャンク境界では直前のチャンク末尾の断片をオーバーラップ分だけ引き継ぐ。
// 長さはすべて文字（ルーン）数で数える。
func (s *Splitter) mergePieces(pieces []string, sep string) []string {
	var chunks []string
	var cur []string
	curLen := 0
	sepLen := utf8.RuneCountInString(sep)

	appendLen := func(piece string) int {
		if len(cur) == 0 {
			return utf8.RuneCountInString(piece)
		}
		return sepLen + utf8.RuneCountInString(piece)
	}

	for _, piece := range pieces {
		if curLen+appendLen(piece) > s.chunkSize && len(cur) > 0 {
			chunks = append(chunks, strings.Join(cur, sep))
			cur, curLen = s.overlapTail(cur, sep)
		}
		curLen += appendLen(piece)
		cur = append(cur, piece)
	}
	if len(cur) > 0 {
		chunks = append(chunks, strings.Join(cur, sep))
	}

	return chunks
}

// overlapTail はチャンク末尾からオーバーラップ分の断片を取り出します。
// 合計がオーバーラップ文字数に達するまで末尾から断片を残す。
func (s *Splitter) overlapTail(pieces []string, sep string) ([]string, int) {
	var keep []string
	keepLen := 0
	sepLen := utf8.RuneCountInString(sep)
	for i := len(pieces) - 1; i >= 0; i-- {
		if keepLen >= s.overlap {
			break
		}
		if len(keep) > 0 {
			keepLen += sepLen
		}
		keepLen += utf8.RuneCountInString(pieces[i])
		keep = append([]string{pieces[i]}, keep...)
	}
	// すべての断片を残すとチャンクが前進しないため、少なくとも1つは手放す
	if len(keep) == len(pieces) && len(pieces) > 1 {
		keepLen -= utf8.RuneCountInString(keep[0]) + sepLen
		keep = keep[1:]
	}
	return keep, keepLen
}

// hardSplit は区切り文字が見つからないテキストを固定幅の窓で分割します。
// ルーン境界で切るため、マルチバイト文字が分断されることはない。
func (s *Splitter) hardSplit(text string) []string {
	runes := []rune(text)
	step := s.chunkSize - s.overlap
	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + s.chunkSize
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			break
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}

// ChunkSize は目標チャンクサイズを返す
func (s *Splitter) ChunkSize() int {
	return s.chunkSize
}

// Overlap はオーバーラップ文字数を返す
func (s *Splitter) Overlap() int {
	return s.overlap
}

// CountTokens はテキストのcl100k_baseトークン数を返します
func (s *Splitter) CountTokens(text string) int {
	return len(s.encoder.Encode(text, nil, nil))
}

// Stats は各チャンクのトークン数を返します（取り込み時のログ用）
func (s *Splitter) Stats(chunks []string) []int {
	counts := make([]int, len(chunks))
	for i, c := range chunks {
		counts[i] = s.CountTokens(c)
	}
	return counts
}
