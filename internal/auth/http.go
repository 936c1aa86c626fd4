package auth

import "net/http"

// Middleware resolves the caller from the Authorization header and stores it
// in the request context. Requests without a valid identity pass through
// anonymously; the gate rejects them per operation.
func Middleware(gate *Gate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if u := gate.Resolve(r.Context(), r.Header.Get("Authorization")); u != nil {
				r = r.WithContext(WithUser(r.Context(), u))
			}
			next.ServeHTTP(w, r)
		})
	}
}
