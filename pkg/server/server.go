package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/doodlesbykumbi/ws-lock/pkg/authenticator"
	"github.com/doodlesbykumbi/ws-lock/pkg/authz"
	"github.com/doodlesbykumbi/ws-lock/pkg/broadcast"
	"github.com/doodlesbykumbi/ws-lock/pkg/config"
	"github.com/doodlesbykumbi/ws-lock/pkg/logging"
	"github.com/doodlesbykumbi/ws-lock/pkg/reconcile"
	"github.com/doodlesbykumbi/ws-lock/pkg/server/store"
	"github.com/doodlesbykumbi/ws-lock/pkg/session"
	"github.com/doodlesbykumbi/ws-lock/pkg/telemetry"
	"github.com/doodlesbykumbi/ws-lock/pkg/visibility"
)

// Stores groups the persistence backends the server reads and writes.
type Stores struct {
	Locks      store.LockStore
	Visibility store.VisibilityStore
	Identity   store.IdentityStore
	Health     store.HealthStore
}

type Server struct {
	LockStore       store.LockStore
	VisibilityStore store.VisibilityStore
	IdentityStore   store.IdentityStore
	HealthStore     store.HealthStore

	Authenticator authenticator.Authenticator
	Broadcast     broadcast.Router
	Gate          *authz.Gate
	Resolver      *visibility.Resolver
	Engine        *reconcile.Engine

	Router *mux.Router
	Config *config.Config
	Log    zerolog.Logger

	srv *http.Server

	// base is canceled on Shutdown; every session context derives from it
	base     context.Context
	stop     context.CancelFunc
	sessions sync.WaitGroup
}

func NewServer(
	stores Stores,
	auth authenticator.Authenticator,
	router broadcast.Router,
	cfg *config.Config,
	log zerolog.Logger,
) *Server {
	base, stop := context.WithCancel(context.Background())
	s := &Server{
		LockStore:       stores.Locks,
		VisibilityStore: stores.Visibility,
		IdentityStore:   stores.Identity,
		HealthStore:     stores.Health,
		Authenticator:   auth,
		Broadcast:       router,
		Gate:            authz.NewGate(cfg.RequiredPermissions...),
		Resolver:        visibility.NewResolver(stores.Visibility),
		Engine:          reconcile.NewEngine(stores.Locks),
		Router:          mux.NewRouter().UseEncodedPath(),
		Config:          cfg,
		Log:             log,
		base:            base,
		stop:            stop,
	}

	s.srv = &http.Server{
		Handler: s.Handler(),
		Addr:    cfg.Address(),
		// No read or write timeouts: hijacked websocket connections keep the
		// deadlines set on the underlying conn.
		ReadHeaderTimeout: 15 * time.Second,
	}
	return s
}

// Handler returns the router wrapped in tracing, proxy header and access
// log middleware.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.Router
	h = telemetry.HTTPMiddleware()(h)
	h = handlers.CombinedLoggingHandler(logging.Writer(s.Log, zerolog.InfoLevel), h)
	return handlers.ProxyHeaders(h)
}

// SessionDeps returns the collaborators shared by every connection.
func (s *Server) SessionDeps() session.Deps {
	return session.Deps{
		Gate:     s.Gate,
		Resolver: s.Resolver,
		Engine:   s.Engine,
		Router:   s.Broadcast,
	}
}

// SessionConfig returns per-connection tuning from the configuration.
func (s *Server) SessionConfig() session.Config {
	return session.Config{
		SendBuffer:     s.Config.SendBuffer,
		WriteTimeout:   s.Config.WriteTimeout,
		CleanupTimeout: s.Config.CleanupTimeout,
	}
}

// SessionContext derives a context for one connection that is canceled
// when parent is or when the server shuts down. Callers must call done
// once the session has finished.
func (s *Server) SessionContext(parent context.Context) (ctx context.Context, done func()) {
	s.sessions.Add(1)
	ctx, cancel := context.WithCancel(parent)
	unregister := context.AfterFunc(s.base, cancel)
	return ctx, func() {
		unregister()
		cancel()
		s.sessions.Done()
	}
}

func (s *Server) Start() error {
	s.Log.Info().Str("address", s.srv.Addr).Msg("listening")
	return s.srv.ListenAndServe()
}

// Serve accepts connections on l. Used by tests that listen on port 0.
func (s *Server) Serve(l net.Listener) error {
	return s.srv.Serve(l)
}

// Shutdown stops accepting requests, closes every open connection with a
// going-away status and waits for their locks to be released.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.srv.Shutdown(ctx)
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}
	s.stop()

	finished := make(chan struct{})
	go func() {
		s.sessions.Wait()
		close(finished)
	}()
	select {
	case <-finished:
	case <-ctx.Done():
		return errors.Join(err, ctx.Err())
	}
	return err
}
