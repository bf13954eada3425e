package main

import (
	"net/http"
	"strings"

	"github.com/samber/lo"
)

// corsMiddleware sets CORS headers on every response, error responses
// included, so browsers on another port can read cover and state replies.
// origins is a comma-separated list; "*" or an empty list allows any origin.
func corsMiddleware(origins string, next http.Handler) http.Handler {
	allowed := lo.FilterMap(strings.Split(origins, ","), func(o string, _ int) (string, bool) {
		o = strings.TrimSpace(o)
		return o, o != ""
	})
	allowAll := len(allowed) == 0 || lo.Contains(allowed, "*")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		switch {
		case allowAll:
			w.Header().Set("Access-Control-Allow-Origin", "*")
		case lo.Contains(allowed, origin):
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
