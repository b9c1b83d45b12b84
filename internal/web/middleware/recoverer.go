package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/Guilhermefoliveira/csv-validador/internal/logging"
)

// Recoverer converts a panic during request handling into a single 500
// failure message. Unexpected failures stay out of the structured
// critical/warning/row-error report channels.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logging.FromContext(r.Context()).Error("panic recovered",
					"panic", rec,
					"path", r.URL.Path,
					"stack", string(debug.Stack()),
				)
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
