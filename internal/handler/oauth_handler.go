package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"

	"github.com/netfrix/backend/internal/auth"
	"github.com/netfrix/backend/internal/middleware"
	"github.com/netfrix/backend/internal/model"
)

// oauthStateCookie はOAuthのCSRF対策用stateを保持するCookie名。
const oauthStateCookie = "nfx-oauth-state"

// OAuthSessionIssuer は外部IdPユーザー情報からのセッション発行インターフェース。
type OAuthSessionIssuer interface {
	LoginWithOAuth(ctx context.Context, info *auth.OAuthUserInfo) (*model.User, string, error)
}

// OAuthHandler は外部IdP経由ログインのHTTPハンドラー。
// ここで作成されたユーザーはパスワードを持たず、以後もIdP経由でログインする。
type OAuthHandler struct {
	provider auth.OAuthProvider
	service  OAuthSessionIssuer
	merger   ProgressMerger
	config   AuthHandlerConfig
}

// NewOAuthHandler はOAuthHandlerを生成する。
func NewOAuthHandler(provider auth.OAuthProvider, service OAuthSessionIssuer, merger ProgressMerger, config AuthHandlerConfig) *OAuthHandler {
	return &OAuthHandler{
		provider: provider,
		service:  service,
		merger:   merger,
		config:   config,
	}
}

// generateState はCSRF対策用のランダムなstate値を生成する。
func generateState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// Login はIdPの認証画面へリダイレクトする。
// GET /auth/google
func (h *OAuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	state, err := generateState()
	if err != nil {
		slog.Error("stateの生成に失敗しました", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	// stateをCookieに保存（CSRF対策）
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10分
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.provider.GetLoginURL(state), http.StatusTemporaryRedirect)
}

// Callback はIdPからのコールバックを処理し、セッションCookieを設定する。
// 訪問者Cookieが付いている場合は匿名進捗をユーザーへ統合する。
// GET /auth/google/callback?code=xxx&state=yyy
func (h *OAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	// 1. stateの検証（CSRF対策）
	state := r.URL.Query().Get("state")
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || state == "" || stateCookie.Value != state {
		slog.Warn("OAuth stateが一致しません")
		middleware.WriteErrorResponse(w, http.StatusBadRequest, "認証リクエストが不正です。最初からやり直してください。")
		return
	}

	// stateクッキーを削除
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	// 2. 認可コードの取得と交換
	code := r.URL.Query().Get("code")
	if code == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, "認可コードがありません。")
		return
	}

	info, err := h.provider.ExchangeCode(r.Context(), code)
	if err != nil {
		slog.Error("認可コードの交換に失敗しました", slog.String("error", err.Error()))
		middleware.WriteErrorResponse(w, http.StatusBadGateway, "外部プロバイダーでの認証に失敗しました。")
		return
	}

	// 3. ユーザーの解決（未登録ならパスワードレスで自動作成）とトークン発行
	user, token, err := h.service.LoginWithOAuth(r.Context(), info)
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

	// 4. セッションCookieを設定してフロントエンドへ戻す
	http.SetCookie(w, sessionCookie(h.config, token, h.config.SessionMaxAge))
	http.Redirect(w, r, h.config.BaseURL, http.StatusTemporaryRedirect)
}
