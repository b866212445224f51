package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/netfrix/backend/internal/announcement"
	"github.com/netfrix/backend/internal/content"
	"github.com/netfrix/backend/internal/model"
)

// StatsCounter は管理ダッシュボードの集計カウンターインターフェース。
type StatsCounter interface {
	Count(ctx context.Context) (int, error)
}

// AdminHandler は管理エンドポイントのHTTPハンドラー。
// ルーター側でRequireAuth + RequireAdminを通過済みのリクエストのみが届く。
type AdminHandler struct {
	contents      ContentServiceInterface
	announcements AnnouncementServiceInterface
	userCount     StatsCounter
	contentCount  StatsCounter
	progressCount StatsCounter
}

// NewAdminHandler はAdminHandlerを生成する。
func NewAdminHandler(
	contents ContentServiceInterface,
	announcements AnnouncementServiceInterface,
	userCount, contentCount, progressCount StatsCounter,
) *AdminHandler {
	return &AdminHandler{
		contents:      contents,
		announcements: announcements,
		userCount:     userCount,
		contentCount:  contentCount,
		progressCount: progressCount,
	}
}

// contentRequest はコンテンツ作成・更新リクエストのボディ。
type contentRequest struct {
	Title       string         `json:"title"`
	Kind        string         `json:"kind"`
	Description string         `json:"description"`
	PosterURL   string         `json:"posterUrl"`
	Seasons     []model.Season `json:"seasons"`
}

func (req *contentRequest) toInput() content.CreateInput {
	return content.CreateInput{
		Title:       req.Title,
		Kind:        model.ContentKind(req.Kind),
		Description: req.Description,
		PosterURL:   req.PosterURL,
		Seasons:     req.Seasons,
	}
}

// CreateContent はコンテンツの新規作成を処理する。
// POST /admin/contents
func (h *AdminHandler) CreateContent(w http.ResponseWriter, r *http.Request) {
	var req contentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	c, err := h.contents.Create(r.Context(), req.toInput())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toContentResponse(c))
}

// UpdateContent はコンテンツの更新を処理する。
// PUT /admin/contents/{id}
func (h *AdminHandler) UpdateContent(w http.ResponseWriter, r *http.Request) {
	var req contentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	c, err := h.contents.Update(r.Context(), chi.URLParam(r, "id"), req.toInput())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toContentResponse(c))
}

// DeleteContent はコンテンツの削除を処理する。
// DELETE /admin/contents/{id}
func (h *AdminHandler) DeleteContent(w http.ResponseWriter, r *http.Request) {
	if err := h.contents.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// announcementRequest はお知らせ作成・更新リクエストのボディ。
type announcementRequest struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	Type     string `json:"type"`
	Priority string `json:"priority"`
	IsActive bool   `json:"isActive"`
}

func (req *announcementRequest) toInput() announcement.Input {
	return announcement.Input{
		Title:    req.Title,
		Body:     req.Body,
		Type:     model.AnnouncementType(req.Type),
		Priority: model.AnnouncementPriority(req.Priority),
		IsActive: req.IsActive,
	}
}

// ListAnnouncements は非表示を含む全お知らせを返す。
// GET /admin/announcements
func (h *AdminHandler) ListAnnouncements(w http.ResponseWriter, r *http.Request) {
	items, err := h.announcements.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]announcementResponse, 0, len(items))
	for _, a := range items {
		responses = append(responses, toAnnouncementResponse(a))
	}
	writeJSON(w, http.StatusOK, map[string]any{"announcements": responses})
}

// CreateAnnouncement はお知らせの新規作成を処理する。
// POST /admin/announcements
func (h *AdminHandler) CreateAnnouncement(w http.ResponseWriter, r *http.Request) {
	var req announcementRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	a, err := h.announcements.Create(r.Context(), req.toInput())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAnnouncementResponse(a))
}

// UpdateAnnouncement はお知らせの更新を処理する。
// PUT /admin/announcements/{id}
func (h *AdminHandler) UpdateAnnouncement(w http.ResponseWriter, r *http.Request) {
	var req announcementRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	a, err := h.announcements.Update(r.Context(), chi.URLParam(r, "id"), req.toInput())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAnnouncementResponse(a))
}

// DeleteAnnouncement はお知らせの削除を処理する。
// DELETE /admin/announcements/{id}
func (h *AdminHandler) DeleteAnnouncement(w http.ResponseWriter, r *http.Request) {
	if err := h.announcements.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// Stats は登録ユーザー・コンテンツ・進捗レコードの件数を返す。
// GET /admin/stats
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	users, err := h.userCount.Count(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	contents, err := h.contentCount.Count(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	progress, err := h.progressCount.Count(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"users":    users,
		"contents": contents,
		"progress": progress,
	})
}
