package endpoints

import (
	"net/http"
	"os"

	"github.com/doodlesbykumbi/ws-lock/pkg/server"
)

// DefaultVersion is reported when WSLOCK_VERSION_DISPLAY is unset
const DefaultVersion = "0.1.0"

// StatusResponse is the body of GET /
type StatusResponse struct {
	Version string `json:"version"`
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// RegisterStatusEndpoints registers the status and health endpoints
func RegisterStatusEndpoints(s *server.Server) {
	s.Router.HandleFunc("/", handleStatus()).Methods("GET")
	s.Router.HandleFunc("/health", handleHealth(s)).Methods("GET")
}

func handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		version := os.Getenv("WSLOCK_VERSION_DISPLAY")
		if version == "" {
			version = DefaultVersion
		}
		respondWithJSON(w, http.StatusOK, StatusResponse{Version: version})
	}
}

func handleHealth(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.HealthStore.CheckConnectivity(r.Context()); err != nil {
			s.Log.Warn().Err(err).Msg("health check failed")
			respondWithJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Error: "database unreachable"})
			return
		}
		respondWithJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
	}
}
