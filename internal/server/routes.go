// -----------------------------------------------------------------------
// Last Modified: Friday, 21st August 2026 9:12:41 am
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Service root (description + route listing)
	mux.HandleFunc("/", s.app.APIHandler.RootHandler)

	// Liveness probe outside the /api prefix
	mux.HandleFunc("/health", s.app.APIHandler.HealthHandler)

	// API routes - Exchanges
	mux.HandleFunc("/api/exchanges", s.app.MarketHandler.ListExchangesHandler)

	// API routes - Export control
	mux.HandleFunc("/api/export", s.handleExportRoute)
	mux.HandleFunc("/api/export/status", s.app.ExportHandler.ExportStatusHandler)

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// Dataset routes - /api/{exchange}/{dataset} plus 404 for everything
	// else under /api/. Exact-match patterns above take precedence.
	mux.HandleFunc("/api/", s.handleMarketRoutes)

	return mux
}

// handleExportRoute routes /api/export requests
func (s *Server) handleExportRoute(w http.ResponseWriter, r *http.Request) {
	routeByMethod(w, r, methodRouter{
		"POST": s.app.ExportHandler.TriggerExportHandler,
	})
}

// handleMarketRoutes routes dataset requests under /api/
func (s *Server) handleMarketRoutes(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api"), "/")

	// Only /{exchange}/{dataset} is a dataset route
	if len(strings.Split(path, "/")) != 2 {
		s.app.APIHandler.NotFoundHandler(w, r)
		return
	}

	routeByMethod(w, r, methodRouter{
		"GET": s.app.MarketHandler.GetDatasetHandler,
	})
}
