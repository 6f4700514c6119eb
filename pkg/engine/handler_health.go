// Informational endpoints of the standalone server.

package engine

import (
	"net/http"
	"os"
	"time"

	"github.com/hemaweb/featmock/pkg/httputil"
	"github.com/hemaweb/featmock/pkg/registry"
)

// processStart backs the /health uptime, which covers the whole process the
// way the frontend tooling reports it.
var processStart = time.Now()

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"uptime":      time.Since(processStart).Seconds(),
		"environment": s.cfg.Server.Environment,
	})
}

// handleMockInfo reports per-feature route counts from a fresh collection.
func (s *Server) handleMockInfo(w http.ResponseWriter, r *http.Request) {
	namespaces, err := s.collector.Collect(r.Context())
	if err != nil {
		s.log.Error("mock info collection failed", "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "failed to collect mock info", err.Error())
		return
	}

	info := registry.Summary(namespaces)
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"features":    info.Features,
		"totalRoutes": info.TotalRoutes,
		"environment": map[string]string{
			"VITE_MOCK_INCLUDE": os.Getenv("VITE_MOCK_INCLUDE"),
			"VITE_MOCK_EXCLUDE": os.Getenv("VITE_MOCK_EXCLUDE"),
			"NODE_ENV":          os.Getenv("NODE_ENV"),
		},
	})
}
