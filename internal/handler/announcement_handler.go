package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/netfrix/backend/internal/announcement"
	"github.com/netfrix/backend/internal/model"
)

// AnnouncementServiceInterface はお知らせハンドラーが必要とするサービスインターフェース。
type AnnouncementServiceInterface interface {
	ListActive(ctx context.Context) ([]*model.Announcement, error)
	List(ctx context.Context) ([]*model.Announcement, error)
	Create(ctx context.Context, in announcement.Input) (*model.Announcement, error)
	Update(ctx context.Context, id string, in announcement.Input) (*model.Announcement, error)
	Delete(ctx context.Context, id string) error
}

// AnnouncementHandler はお知らせ閲覧のHTTPハンドラー。
type AnnouncementHandler struct {
	service AnnouncementServiceInterface
}

// NewAnnouncementHandler はAnnouncementHandlerを生成する。
func NewAnnouncementHandler(service AnnouncementServiceInterface) *AnnouncementHandler {
	return &AnnouncementHandler{service: service}
}

// announcementResponse はお知らせのAPIレスポンス。
type announcementResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Type      string    `json:"type"`
	Priority  string    `json:"priority"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

func toAnnouncementResponse(a *model.Announcement) announcementResponse {
	return announcementResponse{
		ID:        a.ID,
		Title:     a.Title,
		Body:      a.Body,
		Type:      string(a.Type),
		Priority:  string(a.Priority),
		IsActive:  a.IsActive,
		CreatedAt: a.CreatedAt,
	}
}

// ListActive は有効なお知らせを優先度順で返す。
// GET /announcements
func (h *AnnouncementHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListActive(r.Context())
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
