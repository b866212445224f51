package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/netfrix/backend/internal/content"
	"github.com/netfrix/backend/internal/model"
)

// ContentServiceInterface はカタログハンドラーが必要とするサービスインターフェース。
type ContentServiceInterface interface {
	Get(ctx context.Context, id string) (*model.Content, error)
	List(ctx context.Context) ([]*model.Content, error)
	Create(ctx context.Context, in content.CreateInput) (*model.Content, error)
	Update(ctx context.Context, id string, in content.CreateInput) (*model.Content, error)
	Delete(ctx context.Context, id string) error
}

// ContentHandler はカタログ閲覧のHTTPハンドラー。
type ContentHandler struct {
	service ContentServiceInterface
}

// NewContentHandler はContentHandlerを生成する。
func NewContentHandler(service ContentServiceInterface) *ContentHandler {
	return &ContentHandler{service: service}
}

// contentResponse はカタログエントリのAPIレスポンス。
type contentResponse struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Kind        string         `json:"kind"`
	Description string         `json:"description"`
	PosterURL   string         `json:"posterUrl"`
	Seasons     []model.Season `json:"seasons,omitempty"`
}

func toContentResponse(c *model.Content) contentResponse {
	return contentResponse{
		ID:          c.ID,
		Title:       c.Title,
		Kind:        string(c.Kind),
		Description: c.Description,
		PosterURL:   c.PosterURL,
		Seasons:     c.Seasons,
	}
}

// List はカタログ一覧を返す。
// GET /contents
func (h *ContentHandler) List(w http.ResponseWriter, r *http.Request) {
	contents, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]contentResponse, 0, len(contents))
	for _, c := range contents {
		responses = append(responses, toContentResponse(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{"contents": responses})
}

// Get はカタログエントリの詳細を返す。
// GET /contents/{id}
func (h *ContentHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toContentResponse(c))
}
