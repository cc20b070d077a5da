package middleware

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/doodlesbykumbi/ws-lock/pkg/authenticator"
	"github.com/doodlesbykumbi/ws-lock/pkg/identity"
	"github.com/doodlesbykumbi/ws-lock/pkg/server/store"
)

// TokenQueryParam carries the token for clients that cannot set headers on
// a WebSocket handshake.
const TokenQueryParam = "token"

// TokenAuthenticator is middleware that turns a bearer token into an
// identity on the request context
type TokenAuthenticator struct {
	Authenticator authenticator.Authenticator
	Identities    store.IdentityStore
	Log           zerolog.Logger
}

// NewTokenAuthenticator creates a new token authenticator middleware
func NewTokenAuthenticator(auth authenticator.Authenticator, identities store.IdentityStore, log zerolog.Logger) *TokenAuthenticator {
	return &TokenAuthenticator{Authenticator: auth, Identities: identities, Log: log}
}

// TokenFromRequest returns the token from an "Authorization: Bearer" header,
// falling back to the token query parameter.
func TokenFromRequest(r *http.Request) (string, bool) {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			return "", false
		}
		token = strings.TrimSpace(token)
		return token, token != ""
	}
	token := r.URL.Query().Get(TokenQueryParam)
	return token, token != ""
}

// ClientIP returns the host part of the request's remote address.
func ClientIP(r *http.Request) net.IP {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return net.ParseIP(host)
}

// Middleware returns an HTTP middleware that authenticates the request
func (a *TokenAuthenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := TokenFromRequest(r)
		if !ok {
			WriteError(w, http.StatusUnauthorized, "authorization missing")
			return
		}

		ip := ClientIP(r)
		clientIP := ""
		if ip != nil {
			clientIP = ip.String()
		}

		res, err := a.Authenticator.Authenticate(r.Context(), authenticator.Input{
			Credentials: []byte(token),
			ClientIP:    clientIP,
		})
		if err != nil {
			a.Log.Debug().Err(err).Str("client_ip", clientIP).Msg("authentication failed")
			WriteError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		id, err := a.Identities.LoadIdentity(r.Context(), res.UserID)
		if errors.Is(err, store.ErrUserNotFound) {
			WriteError(w, http.StatusUnauthorized, "unknown user")
			return
		}
		if err != nil {
			a.Log.Error().Err(err).Int64("user_id", res.UserID).Msg("failed to load identity")
			WriteError(w, http.StatusInternalServerError, "internal error")
			return
		}
		id.WithRemoteIP(ip).WithTokenTimes(res.IssuedAt, res.ExpiresAt)

		next.ServeHTTP(w, r.WithContext(identity.Set(r.Context(), id)))
	})
}

// WriteError writes a JSON error body
func WriteError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
