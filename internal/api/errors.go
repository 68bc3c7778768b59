package api

import (
	"encoding/json"
	"net/http"

	"github.com/nerrad567/rfsocket-core/internal/apperr"
)

// Error types beyond the apperr kinds. They only ever appear on the wire.
const (
	ErrTypeUnauthenticated = "UNAUTHENTICATED"
	ErrTypeInternal        = "INTERNAL_ERROR"
)

// envelope wraps every JSON response body.
type envelope struct {
	OK    any       `json:"rsc_ok,omitempty"`
	Error *apiError `json:"rsc_error,omitempty"`
}

// apiError is the wire form of a failure. It matches apperr.Error's JSON.
type apiError struct {
	Type    string              `json:"type"`
	Message string              `json:"message"`
	Fields  []apperr.FieldError `json:"fields"`
}

var kindStatus = map[apperr.Kind]int{
	apperr.KindNotFound:         http.StatusNotFound,
	apperr.KindSocketError:      http.StatusInternalServerError,
	apperr.KindInvalidRequest:   http.StatusBadRequest,
	apperr.KindPermissionDenied: http.StatusForbidden,
}

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeOK writes a success envelope. A nil slice is sent as [].
func writeOK(w http.ResponseWriter, status int, v any) {
	if v == nil {
		v = []any{}
	}
	writeJSON(w, status, envelope{OK: v})
}

// writeError writes a failure envelope with no field detail.
func writeError(w http.ResponseWriter, status int, typ, message string) {
	writeJSON(w, status, envelope{Error: &apiError{
		Type:    typ,
		Message: message,
		Fields:  []apperr.FieldError{},
	}})
}

// writeAppError maps err to a status and failure envelope. Unclassified
// errors are logged by the caller and reported without their cause.
func writeAppError(w http.ResponseWriter, err error) {
	e, ok := apperr.As(err)
	if !ok {
		writeInternalError(w, "internal server error")
		return
	}

	status, ok := kindStatus[e.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	fields := e.Fields
	if fields == nil {
		fields = []apperr.FieldError{}
	}
	writeJSON(w, status, envelope{Error: &apiError{
		Type:    e.Kind.String(),
		Message: e.Message,
		Fields:  fields,
	}})
}

// writeBadRequest writes a 400 error with a single offending field.
func writeBadRequest(w http.ResponseWriter, message, field string, reason apperr.Reason) {
	writeAppError(w, apperr.Invalid(message).AddField(field, reason))
}

// writeUnauthorized writes a 401 error response.
func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="rfsocket"`)
	writeError(w, http.StatusUnauthorized, ErrTypeUnauthenticated, message)
}

// writeForbidden writes a 403 error response.
func writeForbidden(w http.ResponseWriter, message string) {
	writeAppError(w, apperr.New(apperr.KindPermissionDenied, message))
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrTypeInternal, message)
}
