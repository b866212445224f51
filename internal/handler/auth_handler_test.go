package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/netfrix/backend/internal/middleware"
	"github.com/netfrix/backend/internal/model"
)

// mockAuthService はAuthServiceInterfaceのモック実装。
type mockAuthService struct {
	signupFunc func(ctx context.Context, email, password, name string) error
	loginFunc  func(ctx context.Context, email, password string) error
	verifyFunc func(ctx context.Context, email, code string) (*model.User, string, error)
	forgotFunc func(ctx context.Context, email string) error
	resetFunc  func(ctx context.Context, email, code, newPassword string) error
}

func (m *mockAuthService) Signup(ctx context.Context, email, password, name string) error {
	if m.signupFunc != nil {
		return m.signupFunc(ctx, email, password, name)
	}
	return nil
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) error {
	if m.loginFunc != nil {
		return m.loginFunc(ctx, email, password)
	}
	return nil
}

func (m *mockAuthService) VerifyAndIssueSession(ctx context.Context, email, code string) (*model.User, string, error) {
	if m.verifyFunc != nil {
		return m.verifyFunc(ctx, email, code)
	}
	return &model.User{ID: "user-1", Email: email, Role: model.RoleUser}, "signed-token", nil
}

func (m *mockAuthService) ForgotPassword(ctx context.Context, email string) error {
	if m.forgotFunc != nil {
		return m.forgotFunc(ctx, email)
	}
	return nil
}

func (m *mockAuthService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if m.resetFunc != nil {
		return m.resetFunc(ctx, email, code, newPassword)
	}
	return nil
}

// mockMerger はProgressMergerのモック実装。
type mockMerger struct {
	merged [][2]string
}

func (m *mockMerger) Merge(ctx context.Context, fromID, toID string) error {
	m.merged = append(m.merged, [2]string{fromID, toID})
	return nil
}

// mockUserFinder はUserFinderのモック実装。
type mockUserFinder struct {
	findFunc func(ctx context.Context, id string) (*model.User, error)
}

func (m *mockUserFinder) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findFunc != nil {
		return m.findFunc(ctx, id)
	}
	return nil, nil
}

func newTestAuthHandler(svc AuthServiceInterface, merger ProgressMerger, users UserFinder) *AuthHandler {
	if merger == nil {
		merger = &mockMerger{}
	}
	if users == nil {
		users = &mockUserFinder{}
	}
	return NewAuthHandler(svc, merger, users, AuthHandlerConfig{
		CookieSecure:  false,
		SessionMaxAge: 7 * 24 * 3600,
	})
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	buf, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("リクエストのJSON化に失敗: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(buf))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestAuthHandler_Signup_Success(t *testing.T) {
	h := newTestAuthHandler(&mockAuthService{}, nil, nil)

	rec := postJSON(t, h.Signup, "/signup", map[string]string{
		"email":    "a@x.com",
		"password": "secret123",
		"name":     "A",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]any
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["success"] != true {
		t.Errorf("body = %v", body)
	}
}

func TestAuthHandler_Signup_Validation(t *testing.T) {
	h := newTestAuthHandler(&mockAuthService{}, nil, nil)

	tests := []struct {
		name string
		body map[string]string
	}{
		{"emailなし", map[string]string{"password": "secret123", "name": "A"}},
		{"不正なemail", map[string]string{"email": "not-an-email", "password": "secret123", "name": "A"}},
		{"短いpassword", map[string]string{"email": "a@x.com", "password": "abc", "name": "A"}},
		{"nameなし", map[string]string{"email": "a@x.com", "password": "secret123"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, h.Signup, "/signup", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
			var body map[string]string
			json.Unmarshal(rec.Body.Bytes(), &body)
			if body["error"] == "" {
				t.Error("errorフィールドが空")
			}
		})
	}
}

func TestAuthHandler_Signup_Conflict(t *testing.T) {
	svc := &mockAuthService{
		signupFunc: func(ctx context.Context, email, password, name string) error {
			return model.NewUserExistsError()
		},
	}
	h := newTestAuthHandler(svc, nil, nil)

	rec := postJSON(t, h.Signup, "/signup", map[string]string{
		"email":    "a@x.com",
		"password": "secret123",
		"name":     "A",
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestAuthHandler_Login_RequireOtp(t *testing.T) {
	h := newTestAuthHandler(&mockAuthService{}, nil, nil)

	rec := postJSON(t, h.Login, "/login", map[string]string{
		"email":    "a@x.com",
		"password": "secret123",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]any
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["requireOtp"] != true {
		t.Errorf("requireOtp = %v, want true", body["requireOtp"])
	}
}

func TestAuthHandler_Login_ErrorStatuses(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"認証失敗", model.NewInvalidCredentialsError(), http.StatusUnauthorized},
		{"外部IdPユーザー", model.NewWrongAuthMethodError(), http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockAuthService{
				loginFunc: func(ctx context.Context, email, password string) error {
					return tt.err
				},
			}
			h := newTestAuthHandler(svc, nil, nil)
			rec := postJSON(t, h.Login, "/login", map[string]string{
				"email":    "a@x.com",
				"password": "secret123",
			})
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestAuthHandler_Verify_SetsSessionCookie(t *testing.T) {
	h := newTestAuthHandler(&mockAuthService{}, nil, nil)

	rec := postJSON(t, h.Verify, "/verify", map[string]string{
		"email": "a@x.com",
		"code":  "123456",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var sessionCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookieName {
			sessionCookie = c
		}
	}
	if sessionCookie == nil {
		t.Fatal("セッションCookieが設定されていない")
	}
	if sessionCookie.Value != "signed-token" {
		t.Errorf("Cookie値 = %q", sessionCookie.Value)
	}
	if !sessionCookie.HttpOnly {
		t.Error("セッションCookieがHttpOnlyでない")
	}
	if sessionCookie.SameSite != http.SameSiteLaxMode {
		t.Error("セッションCookieがSameSite=Laxでない")
	}
	if sessionCookie.Path != "/" {
		t.Errorf("Cookie Path = %q, want /", sessionCookie.Path)
	}

	var body map[string]any
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["role"] != "user" {
		t.Errorf("role = %v, want user", body["role"])
	}
}

func TestAuthHandler_Verify_CookieDomainApplied(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, &mockMerger{}, &mockUserFinder{}, AuthHandlerConfig{
		CookieDomain:  "example.com",
		SessionMaxAge: 3600,
	})

	rec := postJSON(t, h.Verify, "/verify", map[string]string{
		"email": "a@x.com",
		"code":  "123456",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookieName {
			if c.Domain != "example.com" {
				t.Errorf("Cookie Domain = %q, want example.com", c.Domain)
			}
			return
		}
	}
	t.Fatal("セッションCookieが設定されていない")
}

func TestAuthHandler_Verify_MergesVisitorProgress(t *testing.T) {
	merger := &mockMerger{}
	h := newTestAuthHandler(&mockAuthService{}, merger, nil)

	buf, _ := json.Marshal(map[string]string{"email": "a@x.com", "code": "123456"})
	req := httptest.NewRequest(http.MethodPost, "/verify", bytes.NewReader(buf))
	req.AddCookie(&http.Cookie{Name: middleware.VisitorCookieName, Value: "visitor-9"})
	rec := httptest.NewRecorder()
	h.Verify(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(merger.merged) != 1 || merger.merged[0] != [2]string{"visitor-9", "user-1"} {
		t.Errorf("統合呼び出し = %v, want [[visitor-9 user-1]]", merger.merged)
	}
}

func TestAuthHandler_Verify_WrongCode(t *testing.T) {
	svc := &mockAuthService{
		verifyFunc: func(ctx context.Context, email, code string) (*model.User, string, error) {
			return nil, "", model.NewOTPInvalidOrExpiredError()
		},
	}
	h := newTestAuthHandler(svc, nil, nil)

	rec := postJSON(t, h.Verify, "/verify", map[string]string{
		"email": "a@x.com",
		"code":  "000000",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookieName {
			t.Error("検証失敗なのにセッションCookieが設定された")
		}
	}
}

func TestAuthHandler_Logout_ClearsCookie(t *testing.T) {
	h := newTestAuthHandler(&mockAuthService{}, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	rec := httptest.NewRecorder()
	h.Logout(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var sessionCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookieName {
			sessionCookie = c
		}
	}
	if sessionCookie == nil {
		t.Fatal("セッションCookieのクリアが設定されていない")
	}
	if sessionCookie.MaxAge != -1 {
		t.Errorf("MaxAge = %d, want -1", sessionCookie.MaxAge)
	}
}

func TestAuthHandler_Session_Authenticated(t *testing.T) {
	users := &mockUserFinder{
		findFunc: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, Email: "a@x.com", Name: "A", Role: model.RoleUser}, nil
		},
	}
	h := newTestAuthHandler(&mockAuthService{}, nil, users)

	req := httptest.NewRequest(http.MethodGet, "/session", nil)
	req = req.WithContext(middleware.ContextWithIdentity(req.Context(), &middleware.Identity{
		ID:            "user-1",
		Email:         "a@x.com",
		Role:          model.RoleUser,
		Authenticated: true,
	}))
	rec := httptest.NewRecorder()
	h.Session(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		User map[string]string `json:"user"`
	}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body.User["email"] != "a@x.com" || body.User["role"] != "user" || body.User["name"] != "A" {
		t.Errorf("user = %v", body.User)
	}
}

func TestAuthHandler_Session_Anonymous(t *testing.T) {
	h := newTestAuthHandler(&mockAuthService{}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/session", nil)
	req = req.WithContext(middleware.ContextWithIdentity(req.Context(), &middleware.Identity{
		ID: "visitor-1",
	}))
	rec := httptest.NewRecorder()
	h.Session(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	var body map[string]any
	json.Unmarshal(rec.Body.Bytes(), &body)
	if user, ok := body["user"]; !ok || user != nil {
		t.Errorf("user = %v, want null", body["user"])
	}
	if body["error"] == "" {
		t.Error("errorフィールドが空")
	}
}
