package visibility

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/doodlesbykumbi/ws-lock/pkg/identity"
	"github.com/doodlesbykumbi/ws-lock/pkg/model"
)

type mockVisibilityStore struct {
	mock.Mock
}

func (m *mockVisibilityStore) LookupVisibleCategories(ctx context.Context, id *identity.Identity) ([]model.ItemType, error) {
	args := m.Called(ctx, id)
	types, _ := args.Get(0).([]model.ItemType)
	return types, args.Error(1)
}

func TestResolveSubscriptions(t *testing.T) {
	ctx := context.Background()
	id := identity.New(2, "baz", true, []int64{2})

	s := &mockVisibilityStore{}
	s.On("LookupVisibleCategories", ctx, id).
		Return([]model.ItemType{model.ItemTypeBaz, model.ItemTypeFoo, model.ItemTypeBaz}, nil)

	types, err := NewResolver(s).ResolveSubscriptions(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []model.ItemType{model.ItemTypeFoo, model.ItemTypeBaz}, types)
	s.AssertExpectations(t)
}

func TestResolveSubscriptions_Inactive(t *testing.T) {
	s := &mockVisibilityStore{}
	r := NewResolver(s)

	for name, id := range map[string]*identity.Identity{
		"nil":             nil,
		"inactive":        identity.New(1, "bar", false, nil),
		"unauthenticated": {ID: 1, Active: true},
	} {
		t.Run(name, func(t *testing.T) {
			types, err := r.ResolveSubscriptions(context.Background(), id)
			require.NoError(t, err)
			assert.Empty(t, types)
		})
	}
	s.AssertNotCalled(t, "LookupVisibleCategories", mock.Anything, mock.Anything)
}

func TestResolveSubscriptions_StoreError(t *testing.T) {
	ctx := context.Background()
	id := identity.New(1, "bar", true, nil)

	s := &mockVisibilityStore{}
	s.On("LookupVisibleCategories", ctx, id).Return(nil, errors.New("connection refused"))

	_, err := NewResolver(s).ResolveSubscriptions(ctx, id)
	assert.ErrorContains(t, err, "connection refused")
}
