package middleware

import (
	"net/http"
	"strings"
)

// Browser-facing CORS policy of the function endpoints.
var (
	CORSAllowedHeaders = []string{"authorization", "x-client-info", "apikey", "content-type"}
	CORSAllowedMethods = []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}
)

// CORS allows any origin and answers OPTIONS preflight with 200 and an
// empty body before routing.
func CORS(next http.Handler) http.Handler {
	headers := strings.Join(CORSAllowedHeaders, ", ")
	methods := strings.Join(CORSAllowedMethods, ", ")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Headers", headers)
		h.Set("Access-Control-Allow-Methods", methods)
		h.Set("Access-Control-Expose-Headers", RequestIDHeader)

		if r.Method == http.MethodOptions {
			h.Set("Access-Control-Max-Age", "86400")
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
