// responses.go -- Package-wide HTTP response helpers.
//
// Shared by handlers, middleware, and the board pages. Messages are fixed
// ASCII strings - no user-controlled input is interpolated.
package auth

import (
	"net/http"
)

// InternalServerError logs the error and returns a generic 500 page.
// Never exposes internal error details to prevent information leakage.
func InternalServerError(w http.ResponseWriter, r *http.Request, err error) {
	logError(r, "internal server error", "error", err)
	plain(w, http.StatusInternalServerError, "internal server error")
}

// BadRequest returns a 400 page with the given message.
// Use for malformed input that has no friendlier redirect.
func BadRequest(w http.ResponseWriter, r *http.Request, message string) {
	logDebug(r, "bad request", "message", message)
	plain(w, http.StatusBadRequest, message)
}

// ServiceUnavailable returns a 503 page. Used when a feature is switched off by configuration.
func ServiceUnavailable(w http.ResponseWriter, message string) {
	plain(w, http.StatusServiceUnavailable, message)
}

// plain writes a text/plain response with nosniff.
func plain(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	w.Write([]byte(message + "\n"))
}
