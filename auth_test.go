package main

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func newTestAuth(t *testing.T, secret string, db *DB) *AdminAuth {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	a, err := NewAdminAuth(AdminConfig{
		Username:     "admin",
		PasswordHash: string(hash),
		JWTSecret:    secret,
		TokenTTL:     "1h",
	}, db, zap.NewNop().Sugar())
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func TestLoginAndValidate(t *testing.T) {
	a := newTestAuth(t, "test-secret", nil)

	tok, err := a.Login("admin", "secret", "1.2.3.4")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	user, err := a.ValidateToken(tok)
	if err != nil || user != "admin" {
		t.Errorf("ValidateToken = %q, %v", user, err)
	}

	if _, err := a.Login("admin", "wrong", "1.2.3.4"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: err = %v", err)
	}
	if _, err := a.Login("someone", "secret", "1.2.3.4"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong user: err = %v", err)
	}
}

func TestValidateTokenRejects(t *testing.T) {
	a := newTestAuth(t, "test-secret", nil)
	sign := func(secret string, claims jwt.MapClaims) string {
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		if err != nil {
			t.Fatal(err)
		}
		return tok
	}
	exp := time.Now().Add(time.Hour).Unix()

	tests := []struct {
		name  string
		token string
	}{
		{"other secret", sign("other", jwt.MapClaims{"usr": "admin", "role": adminRole, "exp": exp})},
		{"wrong role", sign("test-secret", jwt.MapClaims{"usr": "admin", "role": "player", "exp": exp})},
		{"no user", sign("test-secret", jwt.MapClaims{"role": adminRole, "exp": exp})},
		{"expired", sign("test-secret", jwt.MapClaims{"usr": "admin", "role": adminRole, "exp": time.Now().Add(-time.Hour).Unix()})},
		{"not a jwt", "abc.def.ghi"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := a.ValidateToken(tt.token); err == nil {
				t.Error("expected rejection")
			}
		})
	}

	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"usr": "admin", "role": adminRole}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	if _, err := a.ValidateToken(none); err == nil {
		t.Error("unsigned token accepted")
	}
}

func TestLoginRateLimit(t *testing.T) {
	a := newTestAuth(t, "test-secret", nil)
	for i := 0; i < maxLoginAttempts; i++ {
		a.Login("admin", "wrong", "9.9.9.9")
	}
	if _, err := a.Login("admin", "secret", "9.9.9.9"); !errors.Is(err, ErrTooManyAttempts) {
		t.Errorf("err = %v, want ErrTooManyAttempts", err)
	}
	if _, err := a.Login("admin", "secret", "8.8.8.8"); err != nil {
		t.Errorf("other IPs are unaffected, got %v", err)
	}
}

func TestAdminAuthDisabled(t *testing.T) {
	var nilAuth *AdminAuth
	if nilAuth.Enabled() {
		t.Error("nil auth reports enabled")
	}
	a, err := NewAdminAuth(AdminConfig{Username: "admin", JWTSecret: "x"}, nil, zap.NewNop().Sugar())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := a.Login("admin", "", "1.1.1.1"); !errors.Is(err, ErrAdminDisabled) {
		t.Errorf("err = %v, want ErrAdminDisabled", err)
	}
}

// Tokens survive a restart when the secret comes from the settings table
func TestSecretPersistedInDB(t *testing.T) {
	db, err := OpenDB(filepath.Join(t.TempDir(), "auth.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	first := newTestAuth(t, "", db)
	tok, err := first.Login("admin", "secret", "1.1.1.1")
	if err != nil {
		t.Fatal(err)
	}
	if db.GetSetting(jwtSecretKey) == "" {
		t.Fatal("secret not stored")
	}

	second := newTestAuth(t, "", db)
	if _, err := second.ValidateToken(tok); err != nil {
		t.Errorf("token from the previous instance rejected: %v", err)
	}
}
