// Package httputil holds the JSON envelope shared by every handler.
package httputil

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
)

// Generic error codes. Domain codes live in errors.go.
const (
	ErrCodeBadRequest       = "BAD_REQUEST"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	ErrCodeInternal         = "INTERNAL_ERROR"
)

const maxBodyBytes = 1 << 20

// ErrorResponse is the body of every non-2xx response:
// {"error": {"code": "ERROR_CODE", "message": "Human readable message"}}
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Status is already on the wire.
		log.Printf("[HTTP] Encode response FAILED: status=%d err=%v", status, err)
	}
}

// DecodeJSON reads at most 1MB of JSON body into v. Unknown fields are
// accepted so older app builds keep working.
func DecodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
}

func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}

func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

func WriteBadRequestWithCode(w http.ResponseWriter, code, message string) {
	WriteError(w, http.StatusBadRequest, code, message)
}

func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// WriteUnauthorizedWithCode lets the app tell an expired token (refresh and
// retry) from an invalid one (sign in again).
func WriteUnauthorizedWithCode(w http.ResponseWriter, code, message string) {
	WriteError(w, http.StatusUnauthorized, code, message)
}

func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// WriteMessage writes {"message": msg} with 200 OK.
func WriteMessage(w http.ResponseWriter, msg string) {
	WriteJSON(w, http.StatusOK, map[string]string{"message": msg})
}

// NotFound and MethodNotAllowed keep unmatched routes in the JSON envelope.
func NotFound(w http.ResponseWriter, r *http.Request) {
	WriteError(w, http.StatusNotFound, ErrCodeNotFound, "Route not found")
}

func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	WriteError(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "Method not allowed")
}
