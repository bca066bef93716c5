package handler

import (
	"ShelfAPI/internal/apperr"
	"ShelfAPI/internal/auth"
	"ShelfAPI/internal/logger"
	"ShelfAPI/internal/view"
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"
)

const maxBodyBytes = 1 << 20

// Resource exposes one view over HTTP. The item routes carry the primary
// key in the "id" route variable.
type Resource struct {
	view *view.View
}

func NewResource(v *view.View) *Resource {
	return &Resource{view: v}
}

// Collection serves GET (list) and POST (create) on the resource path.
func (h *Resource) Collection(w http.ResponseWriter, r *http.Request) {
	id := auth.FromContext(r.Context())
	switch r.Method {
	case http.MethodGet:
		data, err := h.view.List(r.Context(), id, r.URL.Query())
		h.respond(w, r, http.StatusOK, data, err)
	case http.MethodPost:
		payload, err := readPayload(w, r)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		data, err := h.view.Create(r.Context(), id, payload)
		h.respond(w, r, http.StatusCreated, data, err)
	default:
		h.fail(w, r, apperr.MethodNotAllowed(r.Method))
	}
}

// Item serves GET, PUT, PATCH and DELETE on {path}/{id}.
func (h *Resource) Item(w http.ResponseWriter, r *http.Request) {
	id := auth.FromContext(r.Context())
	pk := mux.Vars(r)["id"]
	switch r.Method {
	case http.MethodGet:
		data, err := h.view.Retrieve(r.Context(), id, pk)
		h.respond(w, r, http.StatusOK, data, err)
	case http.MethodPut, http.MethodPatch:
		payload, err := readPayload(w, r)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		data, err := h.view.Update(r.Context(), id, pk, payload, r.Method == http.MethodPatch)
		h.respond(w, r, http.StatusOK, data, err)
	case http.MethodDelete:
		if err := h.view.Destroy(r.Context(), id, pk); err != nil {
			h.fail(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		h.fail(w, r, apperr.MethodNotAllowed(r.Method))
	}
}

// readPayload decodes a JSON object body. Numbers stay json.Number so the
// field types decide how they are read. An empty body is an empty object.
func readPayload(w http.ResponseWriter, r *http.Request) (map[string]any, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apperr.Validation("%s", "request body is too large")
		}
		return nil, apperr.Validation("%s", "failed to read body")
	}
	payload := map[string]any{}
	if len(bytes.TrimSpace(body)) == 0 {
		return payload, nil
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return nil, apperr.Validation("%s", "invalid JSON body: "+err.Error())
	}
	if dec.More() {
		return nil, apperr.Validation("%s", "invalid JSON body: trailing data")
	}
	return payload, nil
}

func (h *Resource) respond(w http.ResponseWriter, r *http.Request, status int, data []byte, err error) {
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logger.Error("write_response_failed", map[string]any{
			"resource": h.view.Resource().Name,
			"error":    err.Error(),
		})
	}
}

func (h *Resource) fail(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal {
		logger.Error("request_failed", map[string]any{
			"resource": h.view.Resource().Name,
			"method":   r.Method,
			"path":     r.URL.Path,
			"error":    err.Error(),
		})
	}
	WriteError(w, err)
}

// WriteError renders err as a structured JSON body with its status.
func WriteError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apperr.KindOf(err).Status())
	_ = json.NewEncoder(w).Encode(apperr.Body(err))
}
