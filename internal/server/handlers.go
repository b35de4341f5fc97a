package server

import (
	"net/http"
)

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":      "healthy",
		"version":     "1.0.0",
		"service":     "corrscope",
		"initialized": s.engine != nil && s.engine.Initialized(),
	}

	writeJSON(w, http.StatusOK, response, s.log)
}
