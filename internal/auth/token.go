// Package auth はサインアップからログイン、パスワード再設定までの認証フローと
// JWTセッショントークンの発行・検証を提供する。
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims はセッショントークンのJWTクレーム。
// subにユーザーIDを格納し、emailとroleを併せて埋め込む。
type SessionClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer はHS256署名のセッショントークンを発行・検証する。
type TokenIssuer struct {
	secret []byte
	maxAge time.Duration
	now    func() time.Time // テストで時刻を注入するためのフック
}

// NewTokenIssuer はTokenIssuerを生成する。
func NewTokenIssuer(secret string, maxAge time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret: []byte(secret),
		maxAge: maxAge,
		now:    time.Now,
	}
}

// Issue はユーザー情報を埋め込んだ署名付きトークンを発行する。
func (t *TokenIssuer) Issue(userID, email, role string) (string, error) {
	now := t.now()
	claims := SessionClaims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.maxAge)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("トークンの署名に失敗しました: %w", err)
	}
	return signed, nil
}

// Verify はトークンを検証し、クレームを返す。
// 署名不正・期限切れ・アルゴリズム不一致はいずれもエラーになる。
func (t *TokenIssuer) Verify(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (interface{}, error) {
			return t.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, fmt.Errorf("トークンの検証に失敗しました: %w", err)
	}
	return claims, nil
}

// MaxAge はトークンの有効期間を返す。Cookie属性の設定用。
func (t *TokenIssuer) MaxAge() time.Duration {
	return t.maxAge
}
