package api

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestIssueAndParseToken(t *testing.T) {
	token, err := IssueToken(testSecret, "stage-display", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}

	claims, err := ParseToken(token, testSecret)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.Subject != "stage-display" {
		t.Errorf("Subject = %q, want stage-display", claims.Subject)
	}
	if claims.Issuer != tokenIssuer {
		t.Errorf("Issuer = %q, want %q", claims.Issuer, tokenIssuer)
	}
	if claims.ID == "" {
		t.Error("ID claim is empty")
	}
}

func TestIssueToken_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		subject string
		ttl     time.Duration
	}{
		{"no secret", "", "x", time.Hour},
		{"no subject", testSecret, "", time.Hour},
		{"zero ttl", testSecret, "x", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := IssueToken(tt.secret, tt.subject, tt.ttl); err == nil {
				t.Error("IssueToken() expected error")
			}
		})
	}

	if _, err := IssueToken("", "x", time.Hour); !errors.Is(err, ErrNoSecret) {
		t.Errorf("IssueToken(no secret) error = %v, want ErrNoSecret", err)
	}
}

func TestParseToken_Rejects(t *testing.T) {
	sign := func(method jwt.SigningMethod, key any, claims jwt.RegisteredClaims) string {
		t.Helper()
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		if err != nil {
			t.Fatalf("SignedString() error = %v", err)
		}
		return s
	}
	now := time.Now()
	good := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   "overlay",
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}

	expired := good
	expired.ExpiresAt = jwt.NewNumericDate(now.Add(-time.Minute))

	noExpiry := good
	noExpiry.ExpiresAt = nil

	otherIssuer := good
	otherIssuer.Issuer = "someone-else"

	noSubject := good
	noSubject.Subject = ""

	tests := []struct {
		name  string
		token string
	}{
		{"expired", sign(jwt.SigningMethodHS256, []byte(testSecret), expired)},
		{"no expiry", sign(jwt.SigningMethodHS256, []byte(testSecret), noExpiry)},
		{"other issuer", sign(jwt.SigningMethodHS256, []byte(testSecret), otherIssuer)},
		{"no subject", sign(jwt.SigningMethodHS256, []byte(testSecret), noSubject)},
		{"wrong algorithm", sign(jwt.SigningMethodHS512, []byte(testSecret), good)},
		{"wrong secret", sign(jwt.SigningMethodHS256, []byte("another-secret-of-sufficient-length!"), good)},
		{"not a token", "abc.def.ghi"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseToken(tt.token, testSecret); !errors.Is(err, ErrTokenInvalid) {
				t.Errorf("ParseToken() error = %v, want ErrTokenInvalid", err)
			}
		})
	}
}
