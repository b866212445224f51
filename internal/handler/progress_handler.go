package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/netfrix/backend/internal/middleware"
	"github.com/netfrix/backend/internal/model"
)

// ProgressServiceInterface は進捗ハンドラーが必要とするサービスインターフェース。
type ProgressServiceInterface interface {
	Report(ctx context.Context, identityID, contentID string, seconds int) error
	Fetch(ctx context.Context, identityID, contentID string) (int, error)
}

// ProgressHandler は視聴進捗のHTTPハンドラー。
// 識別子はIdentityMiddlewareが解決したものを使い、
// 認証済みユーザーと匿名訪問者を区別せずに扱う。
type ProgressHandler struct {
	service ProgressServiceInterface
}

// NewProgressHandler はProgressHandlerを生成する。
func NewProgressHandler(service ProgressServiceInterface) *ProgressHandler {
	return &ProgressHandler{service: service}
}

// reportProgressRequest は進捗記録リクエストのボディ。
// timeは秒。クライアントは小数を送ることがあるため浮動小数で受けて切り捨てる。
type reportProgressRequest struct {
	ContentID string   `json:"contentId"`
	Time      *float64 `json:"time"`
}

// Report は視聴位置の記録を処理する。
// POST /progress
func (h *ProgressHandler) Report(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		middleware.WriteInternalServerError(w)
		return
	}

	var req reportProgressRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Time == nil {
		handleServiceError(w, model.NewValidationError("timeは必須です"))
		return
	}
	// 切り捨て前に判定する。-0.5のような負の小数は切り捨てると0になり素通りしてしまう
	if *req.Time < 0 {
		handleServiceError(w, model.NewValidationError("timeは0以上で指定してください"))
		return
	}

	if err := h.service.Report(r.Context(), identity.ID, req.ContentID, int(*req.Time)); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// Get は視聴位置を返す。記録がない場合はtime=0。
// GET /progress/{contentId}
func (h *ProgressHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		middleware.WriteInternalServerError(w)
		return
	}

	contentID := chi.URLParam(r, "contentId")

	seconds, err := h.service.Fetch(r.Context(), identity.ID, contentID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"time":    seconds,
	})
}
