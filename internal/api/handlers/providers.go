package handlers

import (
	"net/http"

	"github.com/aifeed/aifeed/internal/ai"
)

// ListProviders handles GET /api/providers. Credentials are never part of
// the response.
func ListProviders(reg ai.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out := reg
		if out == nil {
			out = ai.Registry{}
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// Health handles GET /healthz.
func Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
