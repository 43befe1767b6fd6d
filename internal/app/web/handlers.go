package web

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/google/uuid"
	"github.com/samber/mo"

	"github.com/jinford/support-rag/internal/core/ingestion"
	"github.com/jinford/support-rag/internal/core/rag"
	"github.com/jinford/support-rag/internal/core/session"
)

type askRequest struct {
	Question    string   `json:"question"`
	SessionID   string   `json:"session_id"`
	Model       string   `json:"model,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	TopK        *int     `json:"top_k,omitempty"`
}

type askResponse struct {
	Answer      string         `json:"answer"`
	Sources     []rag.Citation `json:"sources"`
	Confidence  float64        `json:"confidence"`
	Model       string         `json:"model"`
	Temperature float64        `json:"temperature"`
	SessionID   string         `json:"session_id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// handleIndex はQA画面を表示する
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{
		"SessionID": uuid.NewString(),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		s.logger.Error("テンプレートの描画に失敗しました", "error", err)
	}
}

// handleUpload はアップロードされたファイルを取り込む
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.writeError(w, http.StatusBadRequest, "マルチパートフォームの解析に失敗しました")
		return
	}

	fileHeaders := r.MultipartForm.File["files"]
	if len(fileHeaders) == 0 {
		s.writeError(w, http.StatusBadRequest, "ファイルが指定されていません")
		return
	}

	// 1ファイルの読み込み失敗でバッチ全体を止めず、失敗として記録して続行する
	var readFailures []ingestion.FileResult
	files := make([]ingestion.UploadFile, 0, len(fileHeaders))
	for _, header := range fileHeaders {
		data, err := readUploadFile(header)
		if err != nil {
			s.logger.Warn("アップロードファイルの読み込みに失敗しました", "name", header.Filename, "error", err)
			readFailures = append(readFailures, ingestion.FileResult{
				Name:   header.Filename,
				Status: ingestion.FileFailed,
				Error:  err.Error(),
			})
			continue
		}
		files = append(files, ingestion.UploadFile{
			Name: header.Filename,
			Data: data,
		})
	}

	result := &ingestion.BatchResult{}
	if len(files) > 0 {
		var err error
		result, err = s.container.IngestionService.ProcessFiles(r.Context(), files)
		if err != nil {
			s.logger.Error("ドキュメント取り込みに失敗しました", "error", err)
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	result.Files = append(result.Files, readFailures...)
	result.Failed += len(readFailures)

	s.writeJSON(w, http.StatusOK, result)
}

func readUploadFile(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// handleListDocuments は登録済みドキュメントの一覧と統計を返す
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.container.IngestionService.ListDocuments(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	stats, err := s.container.IngestionService.Stats(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"documents":      docs,
		"document_count": stats.DocumentCount,
		"chunk_count":    stats.ChunkCount,
	})
}

// handleAsk は質問に回答し、会話ターンを永続化する
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "リクエストボディの解析に失敗しました")
		return
	}

	if req.SessionID == "" {
		s.writeError(w, http.StatusBadRequest, "session_id は必須です")
		return
	}

	ctx := r.Context()

	sess, err := s.container.SessionService.GetOrCreate(ctx, req.SessionID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	sctx, err := s.sessionContext(ctx, sess.SessionID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	params := rag.Params{
		Question: req.Question,
		Model:    req.Model,
		TopK:     mo.None[int](),
	}
	if req.Temperature != nil {
		params.Temperature = *req.Temperature
	} else {
		params.Temperature = s.container.Config.OpenAI.Temperature
	}
	if req.TopK != nil {
		params.TopK = mo.Some(*req.TopK)
	}

	result, err := s.container.AnswerService.Answer(ctx, sctx, params)
	if err != nil {
		switch {
		case errors.Is(err, rag.ErrEmptyQuestion):
			s.writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, rag.ErrIndexNotReady):
			s.writeError(w, http.StatusConflict, err.Error())
		default:
			s.logger.Error("質問応答に失敗しました", "error", err)
			s.writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	turn := &session.Turn{
		SessionID:   sess.SessionID,
		Question:    req.Question,
		Answer:      result.Answer,
		Confidence:  result.Confidence,
		Sources:     result.Sources,
		Model:       result.Model,
		Temperature: result.Temperature,
	}
	if err := s.container.SessionService.RecordTurn(ctx, turn); err != nil {
		s.logger.Error("会話ターンの保存に失敗しました", "error", err)
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, askResponse{
		Answer:      result.Answer,
		Sources:     result.Sources,
		Confidence:  result.Confidence,
		Model:       result.Model,
		Temperature: result.Temperature,
		SessionID:   sess.SessionID,
	})
}

// handleHistory はセッションの会話履歴を返す
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		s.writeError(w, http.StatusBadRequest, "session_id は必須です")
		return
	}

	turns, err := s.container.SessionService.History(r.Context(), sessionID, 0)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"session_id": sessionID,
		"turns":      turns,
	})
}

// handleStats はセッション統計を返す
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		s.writeError(w, http.StatusBadRequest, "session_id は必須です")
		return
	}

	stats, err := s.container.SessionService.Stats(r.Context(), sessionID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, stats)
}

// handleReset はセッションの会話履歴とメモリを消去する
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "リクエストボディの解析に失敗しました")
		return
	}
	if req.SessionID == "" {
		s.writeError(w, http.StatusBadRequest, "session_id は必須です")
		return
	}

	if err := s.container.SessionService.ClearHistory(r.Context(), req.SessionID); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.dropSessionContext(req.SessionID)

	s.writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// handleHealth はヘルスチェックに応答する
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("レスポンスの書き込みに失敗しました", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, errorResponse{Error: message})
}
