package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/netfrix/backend/internal/middleware"
	"github.com/netfrix/backend/internal/model"
)

// passwordMinLength はパスワードの最低文字数。
const passwordMinLength = 6

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Signup(ctx context.Context, email, password, name string) error
	Login(ctx context.Context, email, password string) error
	VerifyAndIssueSession(ctx context.Context, email, code string) (*model.User, string, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, code, newPassword string) error
}

// ProgressMerger は訪問者進捗の統合インターフェース。
// ログイン成功時に匿名進捗をユーザーへ引き継ぐために使う。
type ProgressMerger interface {
	Merge(ctx context.Context, fromID, toID string) error
}

// UserFinder はセッション表示用のユーザー取得インターフェース。
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	BaseURL       string // OAuthコールバック後のリダイレクト先
	CookieDomain  string // 空の場合はホストオンリーCookie
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// sessionCookie はセッションCookieを構成する。クリア時はmaxAgeに-1を渡す。
func sessionCookie(config AuthHandlerConfig, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    value,
		Path:     "/",
		Domain:   config.CookieDomain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

// AuthHandler は認証フローのHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	merger  ProgressMerger
	users   UserFinder
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, merger ProgressMerger, users UserFinder, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		merger:  merger,
		users:   users,
		config:  config,
	}
}

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type verifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"newPassword"`
}

// validEmail はメールアドレスの簡易形式チェック。
// 厳密なRFC検証はせず、コード配信が成立しうる形だけを確認する。
func validEmail(email string) bool {
	at := strings.Index(email, "@")
	return at > 0 && at < len(email)-1 && !strings.ContainsAny(email, " \t")
}

// Signup は新規ユーザー登録を処理する。
// POST /signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if !validEmail(req.Email) {
		handleServiceError(w, model.NewValidationError("emailの形式が不正です"))
		return
	}
	if len(req.Password) < passwordMinLength {
		handleServiceError(w, model.NewValidationError("passwordは6文字以上で指定してください"))
		return
	}
	if req.Name == "" {
		handleServiceError(w, model.NewValidationError("nameは必須です"))
		return
	}

	if err := h.service.Signup(r.Context(), req.Email, req.Password, req.Name); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// Login はパスワード照合とコード発行を処理する。
// 成功してもセッションはまだ発行せず、コード検証を要求する。
// POST /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.Email == "" || req.Password == "" {
		handleServiceError(w, model.NewValidationError("emailとpasswordは必須です"))
		return
	}

	if err := h.service.Login(r.Context(), req.Email, req.Password); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"requireOtp": true,
	})
}

// Verify は確認コードを検証し、セッションCookieを設定する。
// リクエストに訪問者Cookieが付いている場合は匿名進捗をユーザーへ統合する。
// POST /verify
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.Email == "" || req.Code == "" {
		handleServiceError(w, model.NewValidationError("emailとcodeは必須です"))
		return
	}

	user, token, err := h.service.VerifyAndIssueSession(r.Context(), req.Email, req.Code)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	// 訪問者として記録した進捗の引き継ぎ。失敗しても認証は成立させる
	if cookie, err := r.Cookie(middleware.VisitorCookieName); err == nil && cookie.Value != "" {
		if mergeErr := h.merger.Merge(r.Context(), cookie.Value, user.ID); mergeErr != nil {
			slog.Error("進捗の統合に失敗しました",
				slog.String("error", mergeErr.Error()),
				slog.String("user_id", user.ID),
			)
		}
	}

	http.SetCookie(w, sessionCookie(h.config, token, h.config.SessionMaxAge))

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"role":    user.Role,
	})
}

// ForgotPassword はパスワード再設定用のコード発行を処理する。
// POST /forgot-password
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if !validEmail(req.Email) {
		handleServiceError(w, model.NewValidationError("emailの形式が不正です"))
		return
	}

	if err := h.service.ForgotPassword(r.Context(), req.Email); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// ResetPassword は検証済みコードを前提にパスワードを差し替える。
// POST /reset-password
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.Email == "" || req.Code == "" {
		handleServiceError(w, model.NewValidationError("emailとcodeは必須です"))
		return
	}
	if len(req.NewPassword) < passwordMinLength {
		handleServiceError(w, model.NewValidationError("newPasswordは6文字以上で指定してください"))
		return
	}

	if err := h.service.ResetPassword(r.Context(), req.Email, req.Code, req.NewPassword); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// Logout はセッションCookieをクリアする。
// トークンは失効させない（ステートレス設計の既知の制約）。
// POST /logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, sessionCookie(h.config, "", -1))

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// Session は現在のログインユーザー情報を返す。
// 未認証の場合は401と{user:null}を返す。
// GET /session
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil || !identity.Authenticated {
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"user":  nil,
			"error": "認証されていません。",
		})
		return
	}

	user, err := h.users.FindByID(r.Context(), identity.ID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if user == nil {
		// トークンは有効だがユーザーレコードがない（論理削除等）
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"user":  nil,
			"error": "認証されていません。",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user": map[string]any{
			"name":  user.Name,
			"email": user.Email,
			"role":  user.Role,
		},
	})
}
