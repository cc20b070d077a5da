package endpoints

import (
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/doodlesbykumbi/ws-lock/pkg/identity"
	"github.com/doodlesbykumbi/ws-lock/pkg/server"
	"github.com/doodlesbykumbi/ws-lock/pkg/server/middleware"
	"github.com/doodlesbykumbi/ws-lock/pkg/session"
)

// LockResponse is one active lock in the GET /locks snapshot
type LockResponse struct {
	Item     int64     `json:"item"`
	User     int64     `json:"user"`
	Category string    `json:"category"`
	Since    time.Time `json:"since"`
}

// RegisterLockEndpoints registers the lock socket and the lock snapshot
func RegisterLockEndpoints(s *server.Server) {
	auth := middleware.NewTokenAuthenticator(s.Authenticator, s.IdentityStore, s.Log)

	r := s.Router.NewRoute().Subrouter()
	r.Use(auth.Middleware)

	r.HandleFunc("/ws/locks", handleLockSocket(s)).Methods("GET")
	r.HandleFunc("/locks", handleListLocks(s)).Methods("GET")
}

func handleLockSocket(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := identity.Get(r.Context())

		sess := session.New(id, s.SessionDeps(), s.SessionConfig(), s.Log)
		if err := sess.Authorize(); err != nil {
			respondWithError(w, http.StatusForbidden, "forbidden")
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: s.Config.AllowedOrigins,
		})
		if err != nil {
			// Accept has already written the response
			s.Log.Info().Err(err).Str("conn_id", sess.ID).Msg("websocket handshake failed")
			return
		}
		conn.SetReadLimit(s.Config.MaxMessageBytes)

		ctx, done := s.SessionContext(r.Context())
		defer done()

		if err := sess.Run(ctx, session.NewWSConn(conn)); err != nil && !errors.Is(err, session.ErrClosed) {
			s.Log.Error().Err(err).Str("conn_id", sess.ID).Msg("session ended with error")
		}
	}
}

func handleListLocks(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := identity.Get(r.Context())
		if !s.Gate.Authorize(id) {
			respondWithError(w, http.StatusForbidden, "forbidden")
			return
		}

		types, err := s.Resolver.ResolveSubscriptions(r.Context(), id)
		if err != nil {
			s.Log.Error().Err(err).Int64("user_id", id.ID).Msg("failed to resolve visible categories")
			respondWithError(w, http.StatusInternalServerError, "internal error")
			return
		}

		response := []LockResponse{}
		if len(types) > 0 {
			locks, err := s.LockStore.ListActiveLocks(r.Context(), types)
			if err != nil {
				s.Log.Error().Err(err).Msg("failed to list locks")
				respondWithError(w, http.StatusInternalServerError, "internal error")
				return
			}
			for _, l := range locks {
				response = append(response, LockResponse{
					Item:     l.ItemID,
					User:     l.UserID,
					Category: l.ItemType.String(),
					Since:    l.CreatedAt,
				})
			}
		}

		respondWithJSON(w, http.StatusOK, response)
	}
}
