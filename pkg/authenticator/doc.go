// Package authenticator defines how a connecting client proves who it is.
//
// An Authenticator turns raw credentials taken from the handshake request
// into the numeric id of a user. Loading that user's groups and permissions
// is the job of the identity store; authorization is the job of package
// authz.
//
// # Built-in Authenticators
//
//   - authn-jwt: HS256 bearer tokens, see [github.com/doodlesbykumbi/ws-lock/pkg/authenticator/authn_jwt]
package authenticator
