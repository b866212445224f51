// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/netfrix/backend/internal/auth"
	"github.com/netfrix/backend/internal/model"
)

const (
	// SessionCookieName はセッショントークンを運ぶCookie名。
	SessionCookieName = "nfx-session"
	// VisitorCookieName は匿名訪問者IDを運ぶCookie名。
	VisitorCookieName = "nfx-uid"
)

// TokenVerifier はセッショントークンの検証インターフェース。
type TokenVerifier interface {
	Verify(token string) (*auth.SessionClaims, error)
}

// Identity はリクエストごとに解決された識別子。
// 認証済みの場合はユーザーID、そうでなければ訪問者IDを持つ。
// どのリクエストも必ずいずれかの安定した識別子に解決される。
type Identity struct {
	ID            string
	Email         string
	Role          model.Role
	Authenticated bool
}

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var identityContextKey = contextKey("identity")

// NewIdentityMiddleware はリクエストの識別子を解決するミドルウェアを返す。
// 解決順序: 有効なセッショントークン → 認証済みユーザー、
// それ以外 → 訪問者Cookie（なければ新規発行してSet-Cookieする）。
// 不正・期限切れのトークンはエラーにせず、トークンなしと同様に扱う。
func NewIdentityMiddleware(verifier TokenVerifier, visitorMaxAge time.Duration, secure bool) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := resolveIdentity(r, verifier)

			if identity == nil {
				// 訪問者Cookieもない初回アクセス: 新しい訪問者IDを発行する
				visitorID := uuid.New().String()
				http.SetCookie(w, &http.Cookie{
					Name:     VisitorCookieName,
					Value:    visitorID,
					Path:     "/",
					MaxAge:   int(visitorMaxAge.Seconds()),
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
				identity = &Identity{ID: visitorID}
			}

			ctx := context.WithValue(r.Context(), identityContextKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// resolveIdentity はCookieから識別子を解決する。どちらのCookieもない場合はnil。
func resolveIdentity(r *http.Request, verifier TokenVerifier) *Identity {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		if claims, err := verifier.Verify(cookie.Value); err == nil {
			return &Identity{
				ID:            claims.Subject,
				Email:         claims.Email,
				Role:          model.Role(claims.Role),
				Authenticated: true,
			}
		}
		// 検証失敗はトークンなしと同じ扱いで匿名側へフォールバックする
	}

	if cookie, err := r.Cookie(VisitorCookieName); err == nil && cookie.Value != "" {
		return &Identity{ID: cookie.Value}
	}

	return nil
}

// IdentityFromContext はリクエストコンテキストから識別子を取得する。
// IdentityMiddlewareを通過したリクエストでのみ有効。
func IdentityFromContext(ctx context.Context) (*Identity, error) {
	identity, ok := ctx.Value(identityContextKey).(*Identity)
	if !ok || identity == nil {
		return nil, fmt.Errorf("identity not found in context")
	}
	return identity, nil
}

// ContextWithIdentity はコンテキストに識別子を注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}

// NewRequireAuthMiddleware は認証済みユーザーのみを通すミドルウェアを返す。
// 匿名識別子へはフォールバックせず、401で拒否する。
func NewRequireAuthMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := IdentityFromContext(r.Context())
			if err != nil || !identity.Authenticated {
				apiErr := model.NewAuthRequiredError()
				WriteErrorResponse(w, http.StatusUnauthorized, apiErr.Message)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// NewRequireAdminMiddleware は管理者ロールのみを通すミドルウェアを返す。
// RequireAuthの後に配置すること。
func NewRequireAdminMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := IdentityFromContext(r.Context())
			if err != nil || !identity.Authenticated || identity.Role != model.RoleAdmin {
				apiErr := model.NewAdminRequiredError()
				WriteErrorResponse(w, http.StatusForbidden, apiErr.Message)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
