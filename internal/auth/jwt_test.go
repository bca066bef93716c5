package auth

import (
	"ShelfAPI/internal/config"
	"crypto"
	"crypto/hmac"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"testing"
	"time"
)

func TestHS256ValidateToken(t *testing.T) {
	now := time.Unix(1730000000, 0)
	cfg := config.JWTConfig{
		ValidationType: "HS256",
		Issuer:         "auth-service",
		Audience:       "shelf-api",
		HMACSecret:     "super-secret",
		ClockSkewSec:   0,
	}

	v, err := NewJWTValidator(cfg)
	if err != nil {
		t.Fatalf("NewJWTValidator failed: %v", err)
	}
	v.now = func() time.Time { return now }

	token := buildHS256Token(t, cfg.HMACSecret, map[string]any{
		"iss":     cfg.Issuer,
		"aud":     cfg.Audience,
		"iat":     now.Unix() - 10,
		"nbf":     now.Unix() - 5,
		"exp":     now.Unix() + 30,
		"user_id": 7,
	})

	claims, err := v.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims["user_id"] != float64(7) {
		t.Fatalf("unexpected user_id: %v", claims["user_id"])
	}
}

func TestValidateTokenOptionalClaims(t *testing.T) {
	now := time.Unix(1730000000, 0)
	cfg := config.JWTConfig{ValidationType: "HS256", HMACSecret: "super-secret"}

	v, err := NewJWTValidator(cfg)
	if err != nil {
		t.Fatalf("NewJWTValidator failed: %v", err)
	}
	v.now = func() time.Time { return now }

	token := buildHS256Token(t, cfg.HMACSecret, map[string]any{"exp": now.Unix() + 30, "user_id": 1})
	if _, err := v.ValidateToken(token); err != nil {
		t.Fatalf("issuer, audience, nbf and iat must be optional: %v", err)
	}

	noExp := buildHS256Token(t, cfg.HMACSecret, map[string]any{"user_id": 1})
	if _, err := v.ValidateToken(noExp); err == nil {
		t.Fatalf("exp must stay required")
	}

	forged := buildHS256Token(t, "other-secret", map[string]any{"exp": now.Unix() + 30})
	if _, err := v.ValidateToken(forged); !errors.Is(err, ErrSignature) {
		t.Fatalf("expected signature error, got %v", err)
	}
}

func TestValidateTokenWrongIssuer(t *testing.T) {
	now := time.Unix(1730000000, 0)
	cfg := config.JWTConfig{ValidationType: "HS256", HMACSecret: "s", Issuer: "auth-service"}
	v, err := NewJWTValidator(cfg)
	if err != nil {
		t.Fatalf("NewJWTValidator failed: %v", err)
	}
	v.now = func() time.Time { return now }

	token := buildHS256Token(t, "s", map[string]any{"iss": "someone-else", "exp": now.Unix() + 30})
	if _, err := v.ValidateToken(token); !errors.Is(err, ErrClaims) {
		t.Fatalf("expected issuer error, got %v", err)
	}
}

func TestValidateTokenExpired(t *testing.T) {
	now := time.Unix(1730000000, 0)
	cfg := config.JWTConfig{
		ValidationType: "HS256",
		Issuer:         "auth-service",
		Audience:       "shelf-api",
		HMACSecret:     "super-secret",
		ClockSkewSec:   0,
	}

	v, err := NewJWTValidator(cfg)
	if err != nil {
		t.Fatalf("NewJWTValidator failed: %v", err)
	}
	v.now = func() time.Time { return now }

	token := buildHS256Token(t, cfg.HMACSecret, map[string]any{
		"iss": cfg.Issuer,
		"aud": cfg.Audience,
		"iat": now.Unix() - 20,
		"nbf": now.Unix() - 20,
		"exp": now.Unix() - 1,
	})

	if _, err := v.ValidateToken(token); err == nil {
		t.Fatalf("expected expired error")
	}
}

func TestRS256ValidateToken(t *testing.T) {
	now := time.Unix(1730000000, 0)
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}

	pubDER, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		t.Fatalf("MarshalPKIXPublicKey failed: %v", err)
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})

	cfg := config.JWTConfig{
		ValidationType: "RS256",
		Issuer:         "auth-service",
		Audience:       "shelf-api",
		PublicKeyPEM:   string(pubPEM),
		ClockSkewSec:   0,
	}

	v, err := NewJWTValidator(cfg)
	if err != nil {
		t.Fatalf("NewJWTValidator failed: %v", err)
	}
	v.now = func() time.Time { return now }

	token := buildRS256Token(t, priv, map[string]any{
		"iss": cfg.Issuer,
		"aud": cfg.Audience,
		"iat": now.Unix() - 10,
		"nbf": now.Unix() - 10,
		"exp": now.Unix() + 60,
	})

	if _, err := v.ValidateToken(token); err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
}

func buildHS256Token(t *testing.T, secret string, claims map[string]any) string {
	t.Helper()
	header := map[string]any{"alg": "HS256", "typ": "JWT"}
	headerPart := encodePart(t, header)
	claimsPart := encodePart(t, claims)
	signingInput := headerPart + "." + claimsPart

	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(signingInput))
	signature := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	return signingInput + "." + signature
}

func buildRS256Token(t *testing.T, priv *rsa.PrivateKey, claims map[string]any) string {
	t.Helper()
	header := map[string]any{"alg": "RS256", "typ": "JWT"}
	headerPart := encodePart(t, header)
	claimsPart := encodePart(t, claims)
	signingInput := headerPart + "." + claimsPart

	hash := sha256.Sum256([]byte(signingInput))
	sig, err := rsa.SignPKCS1v15(rand.Reader, priv, crypto.SHA256, hash[:])
	if err != nil {
		t.Fatalf("SignPKCS1v15 failed: %v", err)
	}
	signature := base64.RawURLEncoding.EncodeToString(sig)
	return signingInput + "." + signature
}

func encodePart(t *testing.T, data map[string]any) string {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw)
}

func TestValidateTokenRejects(t *testing.T) {
	now := time.Unix(1730000000, 0)
	cfg := config.JWTConfig{ValidationType: "HS256", HMACSecret: "s", Audience: "shelf-api", ClockSkewSec: 10}
	v, err := NewJWTValidator(cfg)
	if err != nil {
		t.Fatalf("NewJWTValidator failed: %v", err)
	}
	v.now = func() time.Time { return now }

	valid := buildHS256Token(t, "s", map[string]any{"aud": []string{"other", "shelf-api"}, "exp": now.Unix() - 5})
	if _, err := v.ValidateToken(valid); err != nil {
		t.Fatalf("audience list within skew must pass: %v", err)
	}

	cases := []struct {
		name  string
		token string
		want  error
	}{
		{"two segments", "a.b", ErrMalformed},
		{"four segments", "a.b.c.d", ErrMalformed},
		{"wrong audience", buildHS256Token(t, "s", map[string]any{"aud": "other", "exp": now.Unix() + 30}), ErrClaims},
		{"not yet valid", buildHS256Token(t, "s", map[string]any{"aud": "shelf-api", "exp": now.Unix() + 90, "nbf": now.Unix() + 60}), ErrClaims},
		{"issued in the future", buildHS256Token(t, "s", map[string]any{"aud": "shelf-api", "exp": now.Unix() + 90, "iat": now.Unix() + 60}), ErrClaims},
		{"exp not a number", buildHS256Token(t, "s", map[string]any{"aud": "shelf-api", "exp": true}), ErrClaims},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := v.ValidateToken(tc.token); !errors.Is(err, tc.want) {
				t.Fatalf("want %v, got %v", tc.want, err)
			}
		})
	}
}

func TestNewJWTValidatorRejectsConfig(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}
	pubDER, _ := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	rsaPEM := string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER}))

	for _, cfg := range []config.JWTConfig{
		{},
		{ValidationType: "HS256"},
		{ValidationType: "none", HMACSecret: "s"},
		{ValidationType: "RS256"},
		{ValidationType: "RS256", PublicKeyPEM: "not pem"},
		{ValidationType: "ES256", PublicKeyPEM: rsaPEM},
	} {
		if _, err := NewJWTValidator(cfg); err == nil {
			t.Errorf("config %+v must be rejected", cfg)
		}
	}
}
