package http

import (
	"log"
	"net/http"
	"strings"

	"github.com/stagegate/stagegate/internal/release"
)

// GET /cron/release-results
// Invoked by an external periodic scheduler; safe to call repeatedly. When
// token is non-empty the caller must present it as a bearer token.
func ReleaseResultsHandler(p *release.Processor, token string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if token != "" {
			h := r.Header.Get("Authorization")
			if strings.TrimPrefix(h, "Bearer ") != token {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
		}
		n, err := p.Run(r.Context())
		if err != nil {
			log.Printf("result release failed: %v", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]int{"released": n})
	}
}
