package rag

import "errors"

var (
	// ErrIndexNotReady はチャンクが1件もインデックスされていない状態で
	// 質問応答を呼び出した場合のエラー
	ErrIndexNotReady = errors.New("vector index not built yet: process documents before asking questions")

	// ErrEmptyQuestion は質問文が空の場合のエラー
	ErrEmptyQuestion = errors.New("question is required")
)
