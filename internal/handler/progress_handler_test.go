package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/netfrix/backend/internal/middleware"
	"github.com/netfrix/backend/internal/model"
)

const testContentID = "3f1c8a52-9f0e-4b7d-a611-2d6c3e9b0f44"

// mockProgressService はProgressServiceInterfaceのモック実装。
type mockProgressService struct {
	reportFunc func(ctx context.Context, identityID, contentID string, seconds int) error
	fetchFunc  func(ctx context.Context, identityID, contentID string) (int, error)
}

func (m *mockProgressService) Report(ctx context.Context, identityID, contentID string, seconds int) error {
	if m.reportFunc != nil {
		return m.reportFunc(ctx, identityID, contentID, seconds)
	}
	return nil
}

func (m *mockProgressService) Fetch(ctx context.Context, identityID, contentID string) (int, error) {
	if m.fetchFunc != nil {
		return m.fetchFunc(ctx, identityID, contentID)
	}
	return 0, nil
}

func withIdentity(req *http.Request, id string) *http.Request {
	return req.WithContext(middleware.ContextWithIdentity(req.Context(), &middleware.Identity{ID: id}))
}

func TestProgressHandler_Report(t *testing.T) {
	var gotIdentity, gotContent string
	var gotSeconds int
	svc := &mockProgressService{
		reportFunc: func(ctx context.Context, identityID, contentID string, seconds int) error {
			gotIdentity, gotContent, gotSeconds = identityID, contentID, seconds
			return nil
		},
	}
	h := NewProgressHandler(svc)

	buf, _ := json.Marshal(map[string]any{"contentId": testContentID, "time": 154.9})
	req := withIdentity(httptest.NewRequest(http.MethodPost, "/progress", bytes.NewReader(buf)), "visitor-1")
	rec := httptest.NewRecorder()
	h.Report(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if gotIdentity != "visitor-1" || gotContent != testContentID {
		t.Errorf("identity=%q content=%q", gotIdentity, gotContent)
	}
	// 小数は秒へ切り捨てる
	if gotSeconds != 154 {
		t.Errorf("seconds = %d, want 154", gotSeconds)
	}
}

func TestProgressHandler_Report_MissingTime(t *testing.T) {
	h := NewProgressHandler(&mockProgressService{})

	buf, _ := json.Marshal(map[string]any{"contentId": testContentID})
	req := withIdentity(httptest.NewRequest(http.MethodPost, "/progress", bytes.NewReader(buf)), "visitor-1")
	rec := httptest.NewRecorder()
	h.Report(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestProgressHandler_Report_NegativeFractionRejected(t *testing.T) {
	called := false
	svc := &mockProgressService{
		reportFunc: func(ctx context.Context, identityID, contentID string, seconds int) error {
			called = true
			return nil
		},
	}
	h := NewProgressHandler(svc)

	// -0.5は切り捨てると0になるため、切り捨て前に拒否する必要がある
	buf, _ := json.Marshal(map[string]any{"contentId": testContentID, "time": -0.5})
	req := withIdentity(httptest.NewRequest(http.MethodPost, "/progress", bytes.NewReader(buf)), "visitor-1")
	rec := httptest.NewRecorder()
	h.Report(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if called {
		t.Error("負のtimeがサービスまで到達した")
	}
}

func TestProgressHandler_Report_ValidationError(t *testing.T) {
	svc := &mockProgressService{
		reportFunc: func(ctx context.Context, identityID, contentID string, seconds int) error {
			return model.NewValidationError("contentIdの形式が不正です")
		},
	}
	h := NewProgressHandler(svc)

	buf, _ := json.Marshal(map[string]any{"contentId": "not-a-uuid", "time": 10})
	req := withIdentity(httptest.NewRequest(http.MethodPost, "/progress", bytes.NewReader(buf)), "visitor-1")
	rec := httptest.NewRecorder()
	h.Report(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestProgressHandler_Get(t *testing.T) {
	svc := &mockProgressService{
		fetchFunc: func(ctx context.Context, identityID, contentID string) (int, error) {
			return 300, nil
		},
	}
	h := NewProgressHandler(svc)

	req := withIdentity(httptest.NewRequest(http.MethodGet, "/progress/"+testContentID, nil), "visitor-1")
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("contentId", testContentID)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	rec := httptest.NewRecorder()
	h.Get(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]any
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["time"] != float64(300) {
		t.Errorf("time = %v, want 300", body["time"])
	}
}

func TestProgressHandler_MissingIdentityIs500(t *testing.T) {
	h := NewProgressHandler(&mockProgressService{})

	// IdentityMiddlewareを通っていないリクエストは設定ミス
	req := httptest.NewRequest(http.MethodGet, "/progress/"+testContentID, nil)
	rec := httptest.NewRecorder()
	h.Get(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}
