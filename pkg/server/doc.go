// Package server provides the HTTP server for the lock service.
//
// The Server holds the stores, the broadcast router and the per-process
// collaborators (gate, visibility resolver, reconciliation engine) that
// every connection shares. It uses gorilla/mux for routing and wraps the
// router in OpenTelemetry, proxy header and access log middleware.
//
// # Server Setup
//
//	srv := server.NewServer(stores, registry, hub, cfg, log)
//	endpoints.RegisterAll(srv)
//	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
//	    log.Fatal().Err(err).Msg("server failed")
//	}
//
// # Shutdown
//
// Shutdown stops the listener, then cancels every session context so that
// open connections are closed with a going-away status and their locks are
// released and broadcast, and waits for them to finish.
//
// # Endpoints
//
// Endpoints are registered via the endpoints subpackage:
//
//   - GET /ws/locks - lock session over WebSocket
//   - GET /locks - active locks visible to the caller
//   - GET / - service version
//   - GET /health - store connectivity
package server
