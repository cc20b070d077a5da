package broadcast

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/doodlesbykumbi/ws-lock/pkg/model"
	"github.com/doodlesbykumbi/ws-lock/pkg/server/store"
)

func lock(item int64, t model.ItemType, user int64, locked bool) store.Lock {
	return store.Lock{ItemID: item, ItemType: t, UserID: user, Locked: locked}
}

func TestTopic(t *testing.T) {
	assert.Equal(t, "type-2", Topic(model.ItemTypeFoo))
	assert.Equal(t, []string{"type-1", "type-4"}, Topics([]model.ItemType{model.ItemTypeBoo, model.ItemTypeBaz}))
}

func TestGroupByCategory(t *testing.T) {
	batches := GroupByCategory([]store.Lock{
		lock(7, model.ItemTypeBaz, 2, false),
		lock(3, model.ItemTypeFoo, 2, true),
		lock(8, model.ItemTypeBaz, 2, true),
	})

	assert.Equal(t, []Batch{
		{Category: model.ItemTypeBaz, Changes: []Change{{7, 2, false}, {8, 2, true}}},
		{Category: model.ItemTypeFoo, Changes: []Change{{3, 2, true}}},
	}, batches)

	assert.Empty(t, GroupByCategory(nil))
}

func TestPublishLocks(t *testing.T) {
	h := NewHub()
	foo := h.Subscribe([]string{"type-2"}, 4)
	baz := h.Subscribe([]string{"type-4"}, 4)
	p := NewPublisher(h, zerolog.Nop())

	err := p.PublishLocks(context.Background(), []store.Lock{
		lock(3, model.ItemTypeFoo, 5, true),
		lock(7, model.ItemTypeBaz, 5, true),
	})
	require.NoError(t, err)

	assert.JSONEq(t, `[{"item":3,"user":5,"locked":true}]`, string(receive(t, foo).Payload))
	assert.JSONEq(t, `[{"item":7,"user":5,"locked":true}]`, string(receive(t, baz).Payload))
}

func TestPublishLocks_NothingToPublish(t *testing.T) {
	r := &mockRouter{}
	p := NewPublisher(r, zerolog.Nop())

	require.NoError(t, p.PublishLocks(context.Background(), nil))
	r.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestPublishLocks_ContinuesAfterFailure(t *testing.T) {
	r := &mockRouter{}
	r.On("Publish", mock.Anything, "type-2", mock.Anything).Return(errors.New("broker down"))
	r.On("Publish", mock.Anything, "type-4", mock.Anything).Return(nil)
	p := NewPublisher(r, zerolog.Nop())

	err := p.PublishLocks(context.Background(), []store.Lock{
		lock(3, model.ItemTypeFoo, 5, false),
		lock(7, model.ItemTypeBaz, 5, false),
	})
	assert.ErrorContains(t, err, "broker down")
	r.AssertExpectations(t)
}

type mockRouter struct {
	mock.Mock
}

func (m *mockRouter) Subscribe(topics []string, buffer int) *Subscription {
	return m.Called(topics, buffer).Get(0).(*Subscription)
}

func (m *mockRouter) Unsubscribe(sub *Subscription) {
	m.Called(sub)
}

func (m *mockRouter) Publish(ctx context.Context, topic string, payload []byte) error {
	return m.Called(ctx, topic, payload).Error(0)
}

func (m *mockRouter) Close() error {
	return m.Called().Error(0)
}
