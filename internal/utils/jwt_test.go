package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestNewAccessToken(t *testing.T) {
	tok, err := NewAccessToken("s3cret", "user-1", "STAFF", time.Minute)
	if err != nil {
		t.Fatalf("NewAccessToken: %v", err)
	}
	parsed, err := jwt.Parse(tok.Token, func(*jwt.Token) (interface{}, error) { return []byte("s3cret"), nil })
	if err != nil || !parsed.Valid {
		t.Fatalf("parse: %v", err)
	}
	claims := parsed.Claims.(jwt.MapClaims)
	if claims["sub"] != "user-1" || claims["role"] != "STAFF" {
		t.Errorf("claims = %v", claims)
	}
	if time.Until(tok.Exp) > time.Minute {
		t.Errorf("Exp = %v", tok.Exp)
	}
}

func TestNewAccessToken_NoRole(t *testing.T) {
	tok, err := NewAccessToken("s3cret", "user-1", "", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	parsed, _ := jwt.Parse(tok.Token, func(*jwt.Token) (interface{}, error) { return []byte("s3cret"), nil })
	if _, ok := parsed.Claims.(jwt.MapClaims)["role"]; ok {
		t.Error("role claim should be omitted")
	}
}

func TestRandomHex(t *testing.T) {
	a, err := RandomHex(16)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := RandomHex(16)
	if len(a) != 32 || a == b {
		t.Errorf("RandomHex = %q, %q", a, b)
	}
}
