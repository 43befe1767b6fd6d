// Package extract はアップロードされたファイルから生テキストを抽出する。
// 対応形式は PDF / TXT / DOCX の3種類で、拡張子でディスパッチする。
package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat は対応していないファイル形式のエラー
var ErrUnsupportedFormat = errors.New("unsupported file format")

// Extractor はファイル形式ごとの抽出処理を束ねる
type Extractor struct{}

// NewExtractor は新しいExtractorを作成する
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Supported は対応しているファイル拡張子を返す
func (e *Extractor) Supported() []string {
	return []string{".pdf", ".txt", ".docx"}
}

// Extract はファイルから生テキストを抽出する。
// path は読み取り対象の実ファイル、name は拡張子判定に使う表示名。
// 未対応の拡張子のときは ErrUnsupportedFormat を返し、内容は一切取り込まない。
func (e *Extractor) Extract(ctx context.Context, path string, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".pdf":
		return extractPDF(path)
	case ".txt":
		return extractText(path)
	case ".docx":
		return extractDOCX(path)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

// extractText はUTF-8テキストファイルをそのまま読み込む
func extractText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read text file: %w", err)
	}
	return string(data), nil
}
