package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"timetrack/internal/core"
	applog "timetrack/internal/log"
	"timetrack/internal/middleware/trace"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

type message struct {
	Msg string `json:"msg"`
}

type dataResponse struct {
	Msg  string `json:"msg"`
	Data any    `json:"data"`
}

// FieldIssue is one entry of a validation failure body.
type FieldIssue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type validationResponse struct {
	Msg    string       `json:"msg"`
	Errors []FieldIssue `json:"errors"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, message{Msg: msg})
}

func writeValidation(w http.ResponseWriter, issues []FieldIssue) {
	writeJSON(w, http.StatusBadRequest, validationResponse{Msg: "Validation error", Errors: issues})
}

// statusFor maps a domain error kind to its HTTP status.
func statusFor(kind core.Kind) int {
	switch kind {
	case core.KindInvalidFormat, core.KindInvalidRange, core.KindOverlap, core.KindValidation:
		return http.StatusBadRequest
	case core.KindUnauthorized:
		return http.StatusUnauthorized
	case core.KindNotFound:
		return http.StatusNotFound
	case core.KindConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// writeError answers err. Field-level validation errors use the validation
// body; other domain errors carry their message; anything else is logged
// and hidden behind a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ce *core.Error
	if !errors.As(err, &ce) || ce.Kind == core.KindPartialFailure {
		fields := applog.NewFields().WithRequestID(trace.GetRequestID(r.Context()))
		if ce != nil {
			fields[applog.FieldErrorKind] = string(ce.Kind)
		}
		applog.NewStructuredLogger(applog.FromContext(r.Context())).
			LogError(r.Context(), "Request failed", err, applog.ComponentHTTP, r.Method+" "+r.URL.Path, fields)
		if ce != nil && ce.Message != "" {
			writeMessage(w, http.StatusInternalServerError, ce.Message)
			return
		}
		writeMessage(w, http.StatusInternalServerError, "Server error")
		return
	}

	status := statusFor(ce.Kind)
	if ce.Field != "" && status == http.StatusBadRequest {
		writeValidation(w, []FieldIssue{{Field: ce.Field, Message: ce.Message}})
		return
	}
	msg := ce.Message
	if msg == "" {
		msg = http.StatusText(status)
	}
	writeMessage(w, status, msg)
}

// decodeJSON reads a size-limited JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	return true
}
