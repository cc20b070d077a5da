package authenticator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticAuth struct {
	name   string
	userID int64
	err    error
}

func (s staticAuth) Name() string { return s.name }

func (s staticAuth) Authenticate(ctx context.Context, input Input) (*Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &Result{UserID: s.userID}, nil
}

func TestRegistry_Authenticate(t *testing.T) {
	t.Run("empty registry rejects", func(t *testing.T) {
		_, err := NewRegistry().Authenticate(context.Background(), Input{})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("first success wins", func(t *testing.T) {
		r := NewRegistry(
			staticAuth{name: "a", err: ErrInvalidCredentials},
			staticAuth{name: "b", userID: 42},
		)
		res, err := r.Authenticate(context.Background(), Input{Credentials: []byte("x")})
		require.NoError(t, err)
		assert.Equal(t, int64(42), res.UserID)
	})

	t.Run("foreign errors are wrapped", func(t *testing.T) {
		r := NewRegistry(staticAuth{name: "a", err: errors.New("boom")})
		_, err := r.Authenticate(context.Background(), Input{})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
		assert.Contains(t, err.Error(), "boom")
	})
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()
	r.Register(staticAuth{name: "a"})
	r.Register(staticAuth{name: "b"})
	r.Register(staticAuth{name: "a", userID: 9})

	assert.Equal(t, []string{"a", "b"}, r.Installed())

	a, ok := r.Get("a")
	require.True(t, ok)
	res, err := a.Authenticate(context.Background(), Input{})
	require.NoError(t, err)
	assert.Equal(t, int64(9), res.UserID)

	_, ok = r.Get("missing")
	assert.False(t, ok)
}
