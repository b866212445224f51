package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestTokenIssuer_IssueAndVerify(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", 7*24*time.Hour)

	token, err := issuer.Issue("user-1", "user@example.com", "user")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	claims, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if claims.Subject != "user-1" {
		t.Errorf("sub = %q, want user-1", claims.Subject)
	}
	if claims.Email != "user@example.com" {
		t.Errorf("email = %q, want user@example.com", claims.Email)
	}
	if claims.Role != "user" {
		t.Errorf("role = %q, want user", claims.Role)
	}
}

func TestTokenIssuer_Verify_Expired(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", 7*24*time.Hour)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	issuer.now = func() time.Time { return base }

	token, err := issuer.Issue("user-1", "user@example.com", "user")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	// 有効期限の1秒後に進める
	issuer.now = func() time.Time { return base.Add(7*24*time.Hour + time.Second) }

	if _, err := issuer.Verify(token); err == nil {
		t.Error("期限切れトークンの検証が成功した")
	}
}

func TestTokenIssuer_Verify_WrongSecret(t *testing.T) {
	issuer := NewTokenIssuer("secret-a", 7*24*time.Hour)
	token, err := issuer.Issue("user-1", "user@example.com", "user")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	other := NewTokenIssuer("secret-b", 7*24*time.Hour)
	if _, err := other.Verify(token); err == nil {
		t.Error("異なる鍵で署名されたトークンの検証が成功した")
	}
}

func TestTokenIssuer_Verify_Malformed(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", 7*24*time.Hour)

	for _, token := range []string{"", "garbage", "a.b.c"} {
		if _, err := issuer.Verify(token); err == nil {
			t.Errorf("不正なトークン %q の検証が成功した", token)
		}
	}
}

func TestTokenIssuer_Verify_RejectsNoneAlgorithm(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", 7*24*time.Hour)

	// alg=noneのトークンは署名検証なしでは受け入れない
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, SessionClaims{
		Email: "user@example.com",
		Role:  "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("テストトークンの生成に失敗: %v", err)
	}

	if _, err := issuer.Verify(token); err == nil {
		t.Error("alg=noneのトークンの検証が成功した")
	}
}
