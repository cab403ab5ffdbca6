package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func serveWithToken(token string) int {
	req := httptest.NewRequest(http.MethodPost, "/admin/reload", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	IsAdmin(okHandler()).ServeHTTP(rec, req)
	return rec.Code
}

func TestGenerateAndValidate(t *testing.T) {
	t.Setenv("ADMIN_JWT_SECRET", "test-secret")

	token, err := GenerateJWT("ops", RoleAdmin, time.Minute)
	if err != nil {
		t.Fatalf("GenerateJWT returned error: %v", err)
	}
	claims, err := ValidateJWT(token)
	if err != nil {
		t.Fatalf("ValidateJWT returned error: %v", err)
	}
	if claims["sub"] != "ops" || claims["role"] != RoleAdmin {
		t.Fatalf("claims = %v, want sub=ops role=admin", claims)
	}
}

func TestValidateRejectsBadTokens(t *testing.T) {
	t.Setenv("ADMIN_JWT_SECRET", "test-secret")

	// A non-positive ttl selects the default, so the expired token is built by hand.
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"role": RoleAdmin,
		"iss":  issuer,
		"exp":  time.Now().Add(-time.Minute).Unix(),
	}).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign expired token: %v", err)
	}

	otherKey, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"role": RoleAdmin,
		"iss":  issuer,
		"exp":  time.Now().Add(time.Minute).Unix(),
	}).SignedString([]byte("other-secret"))
	if err != nil {
		t.Fatalf("sign foreign token: %v", err)
	}

	for name, token := range map[string]string{
		"expired":   expired,
		"wrong key": otherKey,
		"garbage":   "not.a.token",
	} {
		if _, err := ValidateJWT(token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("%s: ValidateJWT error = %v, want ErrInvalidToken", name, err)
		}
	}
}

func TestIsAdmin(t *testing.T) {
	t.Setenv("ADMIN_JWT_SECRET", "test-secret")

	admin, err := GenerateJWT("ops", RoleAdmin, time.Minute)
	if err != nil {
		t.Fatalf("GenerateJWT returned error: %v", err)
	}
	viewer, err := GenerateJWT("dash", "viewer", time.Minute)
	if err != nil {
		t.Fatalf("GenerateJWT returned error: %v", err)
	}

	tests := map[string]struct {
		token string
		want  int
	}{
		"admin":    {admin, http.StatusNoContent},
		"viewer":   {viewer, http.StatusForbidden},
		"missing":  {"", http.StatusUnauthorized},
		"tampered": {admin + "x", http.StatusUnauthorized},
	}
	for name, tt := range tests {
		if got := serveWithToken(tt.token); got != tt.want {
			t.Fatalf("%s: status = %d, want %d", name, got, tt.want)
		}
	}
}

func TestIsAdminDisabledWithoutSecret(t *testing.T) {
	t.Setenv("ADMIN_JWT_SECRET", "")

	if got := serveWithToken("anything"); got != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", got, http.StatusServiceUnavailable)
	}
	if _, err := GenerateJWT("ops", RoleAdmin, time.Minute); !errors.Is(err, ErrNoSecret) {
		t.Fatalf("GenerateJWT error = %v, want ErrNoSecret", err)
	}
}
