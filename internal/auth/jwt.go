package auth

import (
	"ShelfAPI/internal/config"
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/hmac"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"
)

var (
	ErrMalformed = errors.New("malformed jwt")
	ErrSignature = errors.New("invalid jwt signature")
	ErrClaims    = errors.New("invalid jwt claims")
)

// verifier checks the signature of one algorithm.
type verifier interface {
	alg() string
	verify(signingInput, signature []byte) error
}

type hmacVerifier struct{ key []byte }

func (hmacVerifier) alg() string { return "HS256" }

func (h hmacVerifier) verify(input, sig []byte) error {
	mac := hmac.New(sha256.New, h.key)
	mac.Write(input)
	if !hmac.Equal(mac.Sum(nil), sig) {
		return ErrSignature
	}
	return nil
}

type rsaVerifier struct{ key *rsa.PublicKey }

func (rsaVerifier) alg() string { return "RS256" }

func (r rsaVerifier) verify(input, sig []byte) error {
	sum := sha256.Sum256(input)
	if rsa.VerifyPKCS1v15(r.key, crypto.SHA256, sum[:], sig) != nil {
		return ErrSignature
	}
	return nil
}

type ecdsaVerifier struct{ key *ecdsa.PublicKey }

func (ecdsaVerifier) alg() string { return "ES256" }

// ES256 signatures are r||s, 32 bytes each.
func (e ecdsaVerifier) verify(input, sig []byte) error {
	if len(sig) != 64 {
		return ErrSignature
	}
	sum := sha256.Sum256(input)
	r, s := new(big.Int).SetBytes(sig[:32]), new(big.Int).SetBytes(sig[32:])
	if !ecdsa.Verify(e.key, sum[:], r, s) {
		return ErrSignature
	}
	return nil
}

// JWTValidator checks bearer tokens issued by the external auth service.
// It never issues tokens.
type JWTValidator struct {
	verifier verifier
	issuer   string
	audience string
	skew     time.Duration
	now      func() time.Time
}

func NewJWTValidator(cfg config.JWTConfig) (*JWTValidator, error) {
	v := &JWTValidator{
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		skew:     time.Duration(max(cfg.ClockSkewSec, 0)) * time.Second,
		now:      time.Now,
	}

	switch alg := strings.ToUpper(strings.TrimSpace(cfg.ValidationType)); alg {
	case "":
		return nil, errors.New("jwt validation type is required")
	case "HS256":
		if cfg.HMACSecret == "" {
			return nil, errors.New("jwt hmac secret is required for HS256")
		}
		v.verifier = hmacVerifier{key: []byte(cfg.HMACSecret)}
	case "RS256", "ES256":
		pub, err := loadPublicKey(cfg)
		if err != nil {
			return nil, err
		}
		if v.verifier, err = verifierFor(alg, pub); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported jwt validation type: %s", cfg.ValidationType)
	}
	return v, nil
}

func verifierFor(alg string, pub crypto.PublicKey) (verifier, error) {
	switch key := pub.(type) {
	case *rsa.PublicKey:
		if alg == "RS256" {
			return rsaVerifier{key: key}, nil
		}
	case *ecdsa.PublicKey:
		if alg == "ES256" {
			return ecdsaVerifier{key: key}, nil
		}
	}
	return nil, fmt.Errorf("jwt public key does not match %s", alg)
}

// ValidateToken verifies token and returns its claims. Numbers in the
// claims decode as float64.
func (v *JWTValidator) ValidateToken(token string) (map[string]any, error) {
	head, payload, sig, ok := split(token)
	if !ok {
		return nil, fmt.Errorf("%w: want three segments", ErrMalformed)
	}

	var header struct {
		Alg string `json:"alg"`
	}
	if err := decodeSegment(head, &header); err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrMalformed, err)
	}
	if !strings.EqualFold(header.Alg, v.verifier.alg()) {
		return nil, fmt.Errorf("%w: unexpected alg %q", ErrMalformed, header.Alg)
	}
	signature, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil {
		return nil, fmt.Errorf("%w: signature encoding", ErrMalformed)
	}
	if err := v.verifier.verify([]byte(head+"."+payload), signature); err != nil {
		return nil, err
	}

	var claims map[string]any
	if err := decodeSegment(payload, &claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClaims, err)
	}
	var reg registered
	if err := decodeSegment(payload, &reg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClaims, err)
	}
	if err := v.check(reg); err != nil {
		return nil, err
	}
	return claims, nil
}

func split(token string) (head, payload, sig string, ok bool) {
	head, rest, ok := strings.Cut(token, ".")
	if !ok {
		return "", "", "", false
	}
	payload, sig, ok = strings.Cut(rest, ".")
	if !ok || strings.Contains(sig, ".") {
		return "", "", "", false
	}
	return head, payload, sig, true
}

// registered holds the claims the validator enforces. exp is required,
// nbf and iat are checked only when present.
type registered struct {
	Issuer    string       `json:"iss"`
	Audience  audience     `json:"aud"`
	Expires   *json.Number `json:"exp"`
	NotBefore *json.Number `json:"nbf"`
	IssuedAt  *json.Number `json:"iat"`
}

func (v *JWTValidator) check(reg registered) error {
	now := v.now()
	if v.issuer != "" && reg.Issuer != v.issuer {
		return fmt.Errorf("%w: issuer", ErrClaims)
	}
	if v.audience != "" && !reg.Audience.contains(v.audience) {
		return fmt.Errorf("%w: audience", ErrClaims)
	}

	if reg.Expires == nil {
		return fmt.Errorf("%w: exp is required", ErrClaims)
	}
	exp, err := unixTime(*reg.Expires)
	if err != nil {
		return fmt.Errorf("%w: exp", ErrClaims)
	}
	if now.After(exp.Add(v.skew)) {
		return fmt.Errorf("%w: token is expired", ErrClaims)
	}
	if reg.NotBefore != nil {
		nbf, err := unixTime(*reg.NotBefore)
		if err != nil {
			return fmt.Errorf("%w: nbf", ErrClaims)
		}
		if now.Add(v.skew).Before(nbf) {
			return fmt.Errorf("%w: token is not valid yet", ErrClaims)
		}
	}
	if reg.IssuedAt != nil {
		iat, err := unixTime(*reg.IssuedAt)
		if err != nil {
			return fmt.Errorf("%w: iat", ErrClaims)
		}
		if iat.After(now.Add(v.skew)) {
			return fmt.Errorf("%w: token issued in the future", ErrClaims)
		}
	}
	return nil
}

func unixTime(n json.Number) (time.Time, error) {
	f, err := n.Float64()
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(int64(f), 0), nil
}

// audience accepts both the string and the array form of "aud".
type audience []string

func (a *audience) UnmarshalJSON(data []byte) error {
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("[")) {
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*a = list
		return nil
	}
	var one string
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	*a = audience{one}
	return nil
}

func (a audience) contains(want string) bool {
	for _, s := range a {
		if s == want {
			return true
		}
	}
	return false
}

func decodeSegment(segment string, out any) error {
	payload, err := base64.RawURLEncoding.DecodeString(segment)
	if err != nil {
		return err
	}
	return json.Unmarshal(payload, out)
}

// loadPublicKey reads a PKIX, PKCS#1 or certificate PEM, inline or from a file.
func loadPublicKey(cfg config.JWTConfig) (crypto.PublicKey, error) {
	keyPEM := strings.TrimSpace(cfg.PublicKeyPEM)
	if keyPEM == "" && strings.TrimSpace(cfg.PublicKeyPath) != "" {
		data, err := os.ReadFile(cfg.PublicKeyPath)
		if err != nil {
			return nil, fmt.Errorf("read jwt public key: %w", err)
		}
		keyPEM = string(data)
	}
	if keyPEM == "" {
		return nil, errors.New("jwt public key is required")
	}

	block, _ := pem.Decode([]byte(keyPEM))
	if block == nil {
		return nil, errors.New("invalid jwt public key pem")
	}
	if pub, err := x509.ParsePKIXPublicKey(block.Bytes); err == nil {
		return pub, nil
	}
	if pub, err := x509.ParsePKCS1PublicKey(block.Bytes); err == nil {
		return pub, nil
	}
	if cert, err := x509.ParseCertificate(block.Bytes); err == nil {
		return cert.PublicKey, nil
	}
	return nil, errors.New("unsupported jwt public key format")
}
