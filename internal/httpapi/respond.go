package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"tasknest.org/internal/access"
	"tasknest.org/internal/auth"
	"tasknest.org/internal/todo"
)

// envelope is the uniform response body: code mirrors the HTTP status,
// message is human-readable, data carries the payload.
type envelope struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	Data      any    `json:"data"`
	Warning   string `json:"warning,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func writeEnvelope(w http.ResponseWriter, r *http.Request, code int, message string, data any) {
	writeEnvelopeWarn(w, r, code, message, data, "")
}

func writeEnvelopeWarn(w http.ResponseWriter, r *http.Request, code int, message string, data any, warning string) {
	writeJSON(w, code, envelope{
		Code:      code,
		Message:   message,
		Data:      data,
		Warning:   warning,
		RequestID: RequestIDFromContext(r.Context()),
	})
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	writeEnvelope(w, r, code, msg, nil)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

// handleDomainError maps sentinel errors from the access and todo
// subsystems onto HTTP statuses.
func handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, access.ErrInvalidInput), errors.Is(err, todo.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, access.ErrUnauthorized), errors.Is(err, access.ErrInvalidToken), errors.Is(err, auth.ErrInvalidToken):
		writeError(w, r, http.StatusUnauthorized, err.Error())
	case errors.Is(err, access.ErrForbidden):
		writeError(w, r, http.StatusForbidden, err.Error())
	case errors.Is(err, access.ErrNotFound), errors.Is(err, todo.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, access.ErrConflict):
		writeError(w, r, http.StatusConflict, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}
