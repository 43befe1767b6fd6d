package rag

import (
	"context"
	"fmt"
	"log/slog"
)

// Embedder は質問文をベクトルに変換するインターフェース
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Retriever はベクトル索引への問い合わせインターフェース
type Retriever interface {
	// Search はクエリベクトルに近いチャンクを関連度順に最大k件返す
	Search(ctx context.Context, vector []float32, k int) ([]*RetrievedChunk, error)
	// Count はインデックス済みチャンクの総数を返す
	Count(ctx context.Context) (int, error)
}

// LLMClient はテキスト生成APIへの通信インターフェース
type LLMClient interface {
	GenerateCompletion(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
}

// Service は文書ベース質問応答のオーケストレーションを提供する
type Service struct {
	embedder     Embedder
	retriever    Retriever
	llm          LLMClient
	tokenCounter TokenCounter
	logger       *slog.Logger
}

// ServiceOption は Service のオプション設定
type ServiceOption func(*Service)

// WithLogger は Service にロガーを設定する
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithTokenCounter は会話履歴の予算管理に使うトークンカウンタを設定する
func WithTokenCounter(counter TokenCounter) ServiceOption {
	return func(s *Service) {
		s.tokenCounter = counter
	}
}

// NewService は新しいServiceを作成する
func NewService(embedder Embedder, retriever Retriever, llm LLMClient, opts ...ServiceOption) *Service {
	svc := &Service{
		embedder:  embedder,
		retriever: retriever,
		llm:       llm,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	return svc
}

// Answer は質問に対してRAGベースで回答を生成する。
// 会話メモリはsctxが所有し、成功時に今回の往復を追記する。
func (s *Service) Answer(ctx context.Context, sctx *SessionContext, params Params) (*Result, error) {
	if params.Question == "" {
		return nil, ErrEmptyQuestion
	}
	topK := params.TopK.OrElse(DefaultTopK)
	if topK <= 0 {
		topK = DefaultTopK
	}

	// 前提条件: ベクトル索引が構築済みであること
	indexed, err := s.retriever.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check index state: %w", err)
	}
	if indexed == 0 {
		return nil, ErrIndexNotReady
	}

	s.logger.Info("retrieving context",
		"sessionID", sctx.SessionID(),
		"topK", topK,
		"indexedChunks", indexed,
	)

	vector, err := s.embedder.Embed(ctx, params.Question)
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}

	chunks, err := s.retriever.Search(ctx, vector, topK)
	if err != nil {
		return nil, fmt.Errorf("retrieval failed: %w", err)
	}

	memory := foldMemory(sctx.Turns(), s.tokenCounter, memoryTokenBudget)
	prompt := BuildPrompt(params.Question, memory, chunks)

	s.logger.Info("generating answer",
		"sessionID", sctx.SessionID(),
		"model", params.Model,
		"temperature", params.Temperature,
		"retrieved", len(chunks),
		"memoryTurns", len(memory),
	)

	resp, err := s.llm.GenerateCompletion(ctx, CompletionRequest{
		Prompt:      prompt,
		Model:       params.Model,
		Temperature: params.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate answer: %w", err)
	}

	citations := make([]Citation, 0, len(chunks))
	for _, chunk := range chunks {
		citations = append(citations, BuildCitation(chunk))
	}

	sctx.Remember(params.Question, resp.Content)

	// 実際に使用されたモデル名を結果に反映する
	model := resp.Model
	if model == "" {
		model = params.Model
	}

	result := &Result{
		Answer:      resp.Content,
		Sources:     citations,
		Confidence:  Confidence(len(chunks)),
		Model:       model,
		Temperature: params.Temperature,
	}

	s.logger.Info("answer generated",
		"sessionID", sctx.SessionID(),
		"answerLength", len(result.Answer),
		"sources", len(result.Sources),
		"confidence", result.Confidence,
	)

	return result, nil
}
