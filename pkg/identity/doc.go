// Package identity carries the authenticated principal behind a connection.
//
// An Identity combines what the user store knows about a user (active flag,
// groups, effective permissions) with request context such as the remote
// address and token timestamps.
//
//	id, err := identityStore.LoadIdentity(ctx, claims.UserID)
//	id.WithRemoteIP(clientIP).WithTokenTimes(claims.IssuedAt, claims.ExpiresAt)
//	ctx = identity.Set(ctx, id)
//
//	id, ok := identity.Get(ctx)
//
// A nil *Identity, or one with Authenticated unset, is the anonymous
// principal. Every predicate on Identity is nil-safe.
package identity
