package rag

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// previewLimit は引用プレビューの最大文字数
	previewLimit = 150

	// memoryTokenBudget はプロンプトに含める会話履歴の最大トークン数
	memoryTokenBudget = 2000
)

// TokenCounter はテキストのトークン数をカウントするインターフェース
type TokenCounter interface {
	CountTokens(text string) int
}

// BuildPrompt はカスタマーサポート向け質問応答のプロンプトを構築する
func BuildPrompt(question string, memory []MemoryTurn, chunks []*RetrievedChunk) string {
	var sb strings.Builder

	// サポートアシスタントとしての回答ポリシー
	sb.WriteString("You are a helpful AI customer support assistant. ")
	sb.WriteString("Use the following context to answer the customer's question. ")
	sb.WriteString("If you cannot find the answer in the context, politely say so and suggest contacting human support.\n\n")

	sb.WriteString("Instructions:\n")
	sb.WriteString("1. Provide accurate, helpful answers based only on the context\n")
	sb.WriteString("2. Be polite and professional\n")
	sb.WriteString("3. If uncertain, acknowledge the limitation\n")
	sb.WriteString("4. Suggest next steps when appropriate\n")
	sb.WriteString("5. Keep responses concise but complete\n\n")

	if len(memory) > 0 {
		sb.WriteString("Conversation so far:\n")
		for _, turn := range memory {
			sb.WriteString(fmt.Sprintf("Customer: %s\n", turn.Question))
			sb.WriteString(fmt.Sprintf("Assistant: %s\n", turn.Answer))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("Context:\n")
	if len(chunks) > 0 {
		for i, chunk := range chunks {
			sb.WriteString(fmt.Sprintf("[%d] %s (chunk %d)\n", i+1, chunk.SourceName, chunk.ChunkIndex))
			sb.WriteString(chunk.Content)
			sb.WriteString("\n\n")
		}
	} else {
		sb.WriteString("(no matching context found)\n\n")
	}

	sb.WriteString("Question: ")
	sb.WriteString(question)
	sb.WriteString("\n\nAnswer:")

	return sb.String()
}

// foldMemory は会話履歴をトークン予算内に収める。
// 予算を超える場合は古い往復から順に落とす。
func foldMemory(turns []MemoryTurn, counter TokenCounter, budget int) []MemoryTurn {
	if counter == nil || len(turns) == 0 {
		return turns
	}

	total := 0
	costs := make([]int, len(turns))
	for i, turn := range turns {
		costs[i] = counter.CountTokens(turn.Question) + counter.CountTokens(turn.Answer)
		total += costs[i]
	}

	start := 0
	for start < len(turns) && total > budget {
		total -= costs[start]
		start++
	}
	return turns[start:]
}

// Confidence は検索で得られた根拠の件数から信頼度スコアを算出する。
// 根拠ゼロで0.3、それ以外は min(0.7 + 0.1×件数, 0.95)。
// 較正された確率ではなく意図的に粗い代理指標であり、そのまま保存している。
func Confidence(retrieved int) float64 {
	if retrieved == 0 {
		return 0.3
	}
	score := 0.7 + 0.1*float64(retrieved)
	if score > 0.95 {
		score = 0.95
	}
	return score
}

// BuildCitation はチャンクから引用情報を作成する。
// プレビューは先頭150文字で、切り詰めた場合は末尾に省略記号を付ける。
func BuildCitation(chunk *RetrievedChunk) Citation {
	return Citation{
		SourceName: chunk.SourceName,
		ChunkIndex: chunk.ChunkIndex,
		Preview:    previewText(chunk.Content),
	}
}

func previewText(text string) string {
	if utf8.RuneCountInString(text) <= previewLimit {
		return text
	}
	runes := []rune(text)
	return string(runes[:previewLimit]) + "..."
}
