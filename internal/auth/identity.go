package auth

import (
	"ShelfAPI/internal/apperr"
	"ShelfAPI/internal/logger"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
)

type contextKey string

const identityContextKey contextKey = "identity"

// Identity is the caller a request runs as. The zero value is anonymous.
type Identity struct {
	UserID        int64
	Username      string
	Authenticated bool
}

func User(id int64) Identity {
	return Identity{UserID: id, Authenticated: true}
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, id)
}

func FromContext(ctx context.Context) Identity {
	id, _ := ctx.Value(identityContextKey).(Identity)
	return id
}

// IdentityFromClaims reads the user id from claim, falling back to "sub".
func IdentityFromClaims(claims map[string]any, claim string) (Identity, error) {
	if claim == "" {
		claim = "user_id"
	}
	raw, ok := claims[claim]
	if !ok {
		raw, ok = claims["sub"]
	}
	if !ok {
		return Identity{}, fmt.Errorf("jwt has no %s claim", claim)
	}

	var id int64
	switch v := raw.(type) {
	case float64:
		if v != math.Trunc(v) {
			return Identity{}, fmt.Errorf("invalid jwt claim %s", claim)
		}
		id = int64(v)
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return Identity{}, fmt.Errorf("invalid jwt claim %s", claim)
		}
		id = n
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Identity{}, fmt.Errorf("invalid jwt claim %s", claim)
		}
		id = n
	default:
		return Identity{}, fmt.Errorf("invalid jwt claim %s", claim)
	}

	username, _ := claims["username"].(string)
	return Identity{UserID: id, Username: username, Authenticated: true}, nil
}

// Middleware resolves "Authorization: Bearer <jwt>" into an Identity. A
// request without the header runs anonymously; a bad token is rejected
// with 401. A nil validator treats every request as anonymous.
func Middleware(v *JWTValidator, claim string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := strings.TrimSpace(r.Header.Get("Authorization"))
			if v == nil || header == "" {
				next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), Identity{})))
				return
			}

			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				reject(w, r, "authorization header must use the Bearer scheme")
				return
			}
			claims, err := v.ValidateToken(strings.TrimSpace(token))
			if err != nil {
				reject(w, r, err.Error())
				return
			}
			id, err := IdentityFromClaims(claims, claim)
			if err != nil {
				reject(w, r, err.Error())
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

func reject(w http.ResponseWriter, r *http.Request, reason string) {
	logger.Warn("auth_rejected", map[string]any{
		"path":   r.URL.Path,
		"reason": reason,
	})
	err := apperr.Unauthorized("invalid token")
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
	w.WriteHeader(apperr.KindOf(err).Status())
	_ = json.NewEncoder(w).Encode(apperr.Body(err))
}
