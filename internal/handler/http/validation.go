package http

import (
	"net/http"
)

// InputValidation caps request inputs before any handler runs: the
// Authorization header at 8KB, the URI path at 2KB, and the body at 10MB.
// Signed admin tokens stay well under 1KB, so the header cap only trips on
// hostile input. The body cap covers POST /website-settings and the Q&A
// endpoint, whose payloads are small JSON documents.
func InputValidation() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if len(authHeader) > 8192 {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":"authorization header too large"}`))
				return
			}

			if len(r.URL.Path) > 2048 {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusRequestURITooLong)
				_, _ = w.Write([]byte(`{"error":"URI too long"}`))
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, 10<<20)

			next.ServeHTTP(w, r)
		})
	}
}
