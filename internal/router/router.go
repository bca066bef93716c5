package router

import (
	"ShelfAPI/internal/apperr"
	"ShelfAPI/internal/auth"
	"ShelfAPI/internal/config"
	"ShelfAPI/internal/handler"
	"ShelfAPI/internal/logger"
	"ShelfAPI/internal/resources"
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// Pinger is a dependency reported by /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Resources *resources.Set
	// Validator checks bearer tokens; nil serves every request anonymously.
	Validator *auth.JWTValidator
	Checks    map[string]Pinger
}

// New registers the routes of every resource: {path}/ for the collection
// and {path}/{id}/ for one item, trailing slash optional.
func New(cfg *config.Config, deps Deps) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		handler.WriteError(w, apperr.NotFound("%s", "no such endpoint"))
	})
	r.HandleFunc("/healthz", healthz(deps.Checks)).Methods(http.MethodGet)

	api := r.NewRoute().Subrouter()
	api.Use(auth.Middleware(deps.Validator, cfg.Auth.JWT.IdentityClaim))
	if deps.Resources != nil {
		for _, v := range deps.Resources.Views() {
			h := handler.NewResource(v)
			path := v.Resource().Path
			api.HandleFunc(path+"{slash:/?}", h.Collection)
			api.HandleFunc(path+"/{id}{slash:/?}", h.Item)
			logger.Debug("route_registered", map[string]any{"resource": v.Resource().Name, "path": path})
		}
	}

	return withRequestID(withLogging(withCORS(cfg.CORS.AllowOrigin, cfg.CORS.AllowCredentials, r)))
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

type requestIDKey struct{}

// RequestID returns the id withRequestID attached to the request.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		fields := map[string]any{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      sw.status,
			"duration_ms": time.Since(start).Milliseconds(),
			"request_id":  RequestID(r.Context()),
		}
		switch {
		case sw.status >= 500:
			logger.Error("response", fields)
		case sw.status >= 400:
			logger.Warn("response", fields)
		default:
			logger.Info("response", fields)
		}
	})
}

func healthz(checks map[string]Pinger) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		report := make(map[string]string, len(names))
		for _, name := range names {
			if err := checks[name].Ping(ctx); err != nil {
				status = http.StatusServiceUnavailable
				report[name] = err.Error()
				logger.Warn("health_check_failed", map[string]any{"check": name, "error": err.Error()})
				continue
			}
			report[name] = "ok"
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": http.StatusText(status),
			"checks": report,
		})
	}
}
