// Package authn_jwt authenticates connections with HS256 bearer tokens whose
// subject is the numeric user id.
package authn_jwt

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/doodlesbykumbi/ws-lock/pkg/authenticator"
)

const Name = "authn-jwt"

// Config holds JWT authenticator configuration
type Config struct {
	// Secret is the HMAC key; at least 32 bytes is recommended
	Secret string
	// Issuer is the expected (and issued) iss claim
	Issuer string
	// TTL is the lifetime of tokens minted by Issue
	TTL time.Duration
}

// Authenticator implements JWT authentication
type Authenticator struct {
	config Config
}

var _ authenticator.Authenticator = (*Authenticator)(nil)

// New creates a new JWT authenticator
func New(config Config) *Authenticator {
	if config.TTL <= 0 {
		config.TTL = 8 * time.Hour
	}
	return &Authenticator{config: config}
}

// Name returns the authenticator name
func (a *Authenticator) Name() string {
	return Name
}

// Issue mints a signed token for userID.
func (a *Authenticator) Issue(userID int64) (string, error) {
	if a.config.Secret == "" {
		return "", errors.New("jwt secret is not configured")
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		Issuer:    a.config.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.config.TTL)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(a.config.Secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Authenticate validates a JWT token and returns the user it was issued to
func (a *Authenticator) Authenticate(ctx context.Context, input authenticator.Input) (*authenticator.Result, error) {
	tokenString := string(input.Credentials)
	if tokenString == "" {
		return nil, fmt.Errorf("%w: JWT token is required", authenticator.ErrInvalidCredentials)
	}
	if a.config.Secret == "" {
		return nil, fmt.Errorf("%w: jwt secret is not configured", authenticator.ErrInvalidCredentials)
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256"}), jwt.WithExpirationRequired()}
	if a.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.config.Issuer))
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return []byte(a.config.Secret), nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", authenticator.ErrInvalidCredentials, err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("%w: invalid token", authenticator.ErrInvalidCredentials)
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return nil, fmt.Errorf("%w: subject %q is not a user id", authenticator.ErrInvalidCredentials, claims.Subject)
	}

	res := &authenticator.Result{UserID: userID}
	if claims.IssuedAt != nil {
		res.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		res.ExpiresAt = claims.ExpiresAt.Time
	}
	return res, nil
}
