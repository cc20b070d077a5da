package endpoints

import (
	"github.com/doodlesbykumbi/ws-lock/pkg/server"
)

// RegisterAll registers all API endpoints on the server
func RegisterAll(srv *server.Server) {
	RegisterStatusEndpoints(srv)
	RegisterLockEndpoints(srv)
}
