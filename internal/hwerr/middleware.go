package hwerr

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// envelope is the stable wire shape for every API error response.
type envelope struct {
	Error   string `json:"error"`
	Details string `json:"details"`
	Code    string `json:"code"`
}

// WriteJSON serializes err as the standard error envelope with the
// status code its Kind maps to.
func WriteJSON(w http.ResponseWriter, err error) {
	status := Status(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{
		Error:   http.StatusText(status),
		Details: PublicDetails(err),
		Code:    Code(err),
	})
}

// Recover wraps a handler so that a panic is logged and converted into
// a 500 response instead of unwinding across the request boundary.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered", "panic", rec, "path", r.URL.Path)
					WriteJSON(w, New(KindInternal, "internal error"))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
