package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doodlesbykumbi/ws-lock/pkg/audit"
	"github.com/doodlesbykumbi/ws-lock/pkg/authz"
	"github.com/doodlesbykumbi/ws-lock/pkg/broadcast"
	"github.com/doodlesbykumbi/ws-lock/pkg/fixtures"
	"github.com/doodlesbykumbi/ws-lock/pkg/identity"
	"github.com/doodlesbykumbi/ws-lock/pkg/model"
	"github.com/doodlesbykumbi/ws-lock/pkg/reconcile"
	"github.com/doodlesbykumbi/ws-lock/pkg/server/store"
	"github.com/doodlesbykumbi/ws-lock/pkg/server/store/memory"
	"github.com/doodlesbykumbi/ws-lock/pkg/visibility"
)

const seed = `
groups:
  - name: bar
    visible: [FOO]
  - name: baz
    visible: [FOO, BAZ]
    permissions: [view_itemlock, add_itemlock, change_itemlock, view_item]
users:
  - id: 1
    username: bar
    groups: [bar]
    permissions: [view_itemlock, add_itemlock, change_itemlock, view_item]
  - id: 2
    username: baz
    groups: [baz]
  - id: 3
    username: viewer
    groups: [bar]
    permissions: [view_item]
items:
  - id: 3
    type: FOO
  - id: 4
    type: FOO
  - id: 7
    type: BAZ
`

const (
	barID = 1
	bazID = 2
)

type recorder struct {
	mu     sync.Mutex
	events []audit.Event
}

func (r *recorder) record(e audit.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) byID(msgID string) []audit.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []audit.Event
	for _, e := range r.events {
		if e.MessageID() == msgID {
			out = append(out, e)
		}
	}
	return out
}

type harness struct {
	store *memory.Store
	deps  Deps
	audit *recorder
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	f, err := fixtures.Parse([]byte(seed))
	require.NoError(t, err)
	s := memory.FromFixture(f)
	return newHarnessWithStore(s, s)
}

func newHarnessWithStore(s *memory.Store, locks store.LockStore) *harness {
	rec := &recorder{}
	return &harness{
		store: s,
		audit: rec,
		deps: Deps{
			Gate:     authz.NewGate(authz.DefaultRequiredPermissions...),
			Resolver: visibility.NewResolver(s),
			Engine:   reconcile.NewEngine(locks),
			Router:   broadcast.NewHub(),
			Audit:    rec.record,
		},
	}
}

type running struct {
	conn    *fakeConn
	session *Session
	done    chan error
}

func (h *harness) connect(t *testing.T, ctx context.Context, userID int64) *running {
	t.Helper()
	id, err := h.store.LoadIdentity(ctx, userID)
	require.NoError(t, err)

	r := &running{
		conn:    newFakeConn(),
		session: New(id, h.deps, Config{SendBuffer: 8}, zerolog.Nop()),
		done:    make(chan error, 1),
	}
	go func() { r.done <- r.session.Run(ctx, r.conn) }()

	require.Eventually(t, func() bool { return r.session.State() == StateActive }, 2*time.Second, 5*time.Millisecond)
	return r
}

func (r *running) wait(t *testing.T) error {
	t.Helper()
	select {
	case err := <-r.done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("session did not finish")
	}
	return nil
}

func activeLocks(t *testing.T, s *memory.Store) []store.Lock {
	t.Helper()
	locks, err := s.ListActiveLocks(context.Background(), model.ItemTypeValues())
	require.NoError(t, err)
	return locks
}

func TestSession_LockThenUnlockIsBroadcast(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.connect(t, ctx, bazID)
	b := h.connect(t, ctx, barID)

	b.conn.send(t, `{"items": [3]}`)
	assert.JSONEq(t, `[{"item":3,"user":1,"locked":true}]`, a.conn.receive(t))
	assert.JSONEq(t, `[{"item":3,"user":1,"locked":true}]`, b.conn.receive(t))

	b.conn.send(t, `{"items": []}`)
	assert.JSONEq(t, `[{"item":3,"user":1,"locked":false}]`, a.conn.receive(t))
	assert.JSONEq(t, `[{"item":3,"user":1,"locked":false}]`, b.conn.receive(t))

	assert.Empty(t, activeLocks(t, h.store))
	assert.Len(t, h.audit.byID("lock"), 2)
}

func TestSession_InvisibleCategoryNotDelivered(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.connect(t, ctx, bazID)
	b := h.connect(t, ctx, barID)

	a.conn.send(t, `{"items": [7]}`)
	assert.JSONEq(t, `[{"item":7,"user":2,"locked":true}]`, a.conn.receive(t))
	b.conn.assertSilent(t)
}

func TestSession_OneMessagePerCategory(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.connect(t, ctx, bazID)
	b := h.connect(t, ctx, barID)

	a.conn.send(t, `{"items": [3, 7]}`)
	assert.JSONEq(t, `[{"item":3,"user":2,"locked":true}]`, b.conn.receive(t))
	b.conn.assertSilent(t)

	got := []string{a.conn.receive(t), a.conn.receive(t)}
	assert.ElementsMatch(t, []string{
		`[{"item":3,"user":2,"locked":true}]`,
		`[{"item":7,"user":2,"locked":true}]`,
	}, got)
}

func TestSession_ConflictIsSilent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.connect(t, ctx, bazID)
	b := h.connect(t, ctx, barID)

	b.conn.send(t, `{"items": [3]}`)
	a.conn.receive(t)
	b.conn.receive(t)

	a.conn.send(t, `{"items": [3]}`)
	a.conn.assertSilent(t)
	b.conn.assertSilent(t)

	locks := activeLocks(t, h.store)
	require.Len(t, locks, 1)
	assert.Equal(t, int64(barID), locks[0].UserID)
}

func TestSession_RepeatIsSilent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	b := h.connect(t, ctx, barID)

	b.conn.send(t, `{"items": [3]}`)
	b.conn.receive(t)
	b.conn.send(t, `{"items": [3]}`)
	b.conn.assertSilent(t)
}

func TestSession_MalformedMessagesIgnored(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	b := h.connect(t, ctx, barID)

	b.conn.send(t, `not json`)
	b.conn.send(t, `{"items": 3}`)
	b.conn.send(t, `{"items": [3, "4", 4.5]}`)
	assert.JSONEq(t, `[{"item":3,"user":1,"locked":true}]`, b.conn.receive(t))
	b.conn.assertSilent(t)
	assert.Equal(t, StateActive, b.session.State())
}

func TestSession_DisconnectReleasesLocks(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.connect(t, ctx, bazID)
	b := h.connect(t, ctx, barID)

	b.conn.send(t, `{"items": [3, 4]}`)
	a.conn.receive(t)

	b.conn.hangup()
	require.NoError(t, b.wait(t))
	assert.JSONEq(t,
		`[{"item":3,"user":1,"locked":false},{"item":4,"user":1,"locked":false}]`,
		a.conn.receive(t))

	assert.Empty(t, activeLocks(t, h.store))
	assert.Equal(t, StateClosed, b.session.State())

	disconnects := h.audit.byID("disconnect")
	require.Len(t, disconnects, 1)
	assert.Equal(t, 2, disconnects[0].(audit.DisconnectEvent).Released)
}

func TestSession_ShutdownReleasesLocks(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	b := h.connect(t, ctx, barID)

	b.conn.send(t, `{"items": [3]}`)
	b.conn.receive(t)

	cancel()
	require.NoError(t, b.wait(t))
	assert.Equal(t, websocket.StatusGoingAway, b.conn.closeCode())
	assert.Empty(t, activeLocks(t, h.store))
}

func TestSession_WriteFailureCloses(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.connect(t, ctx, bazID)
	b := h.connect(t, ctx, barID)

	a.conn.send(t, `{"items": [7]}`)
	a.conn.receive(t)

	a.conn.mu.Lock()
	a.conn.writeErr = errors.New("broken pipe")
	a.conn.mu.Unlock()

	b.conn.send(t, `{"items": [3]}`)
	require.NoError(t, a.wait(t))
	assert.Equal(t, websocket.StatusInternalError, a.conn.closeCode())

	locks := activeLocks(t, h.store)
	require.Len(t, locks, 1)
	assert.Equal(t, int64(3), locks[0].ItemID)
}

func TestSession_Unauthorized(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id, err := h.store.LoadIdentity(ctx, 3)
	require.NoError(t, err)

	s := New(id, h.deps, Config{}, zerolog.Nop())
	conn := newFakeConn()

	assert.ErrorIs(t, s.Run(ctx, conn), ErrUnauthorized)
	assert.Equal(t, websocket.StatusPolicyViolation, conn.closeCode())
	assert.Equal(t, StateClosed, s.State())
	assert.Empty(t, conn.out)

	refused := h.audit.byID("connect")
	require.Len(t, refused, 1)
	assert.False(t, refused[0].(audit.ConnectEvent).Success)

	assert.ErrorIs(t, s.Run(ctx, newFakeConn()), ErrClosed)
	assert.ErrorIs(t, s.Authorize(), ErrClosed)
}

func TestSession_NilIdentityUnauthorized(t *testing.T) {
	h := newHarness(t)
	s := New(nil, h.deps, Config{}, zerolog.Nop())
	assert.ErrorIs(t, s.Authorize(), ErrUnauthorized)
}

func TestSession_AuthorizeBeforeRun(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id, err := h.store.LoadIdentity(ctx, barID)
	require.NoError(t, err)

	s := New(id, h.deps, Config{}, zerolog.Nop())
	require.NoError(t, s.Authorize())
	assert.Equal(t, StateAuthorized, s.State())
	require.NoError(t, s.Authorize())
}

// failingStore lets reads through but fails every lock transaction.
type failingStore struct {
	*memory.Store
}

func (f failingStore) Transaction(context.Context, func(store.LockTx) error) error {
	return errors.New("could not serialize access")
}

func TestSession_PersistenceFailureCloses(t *testing.T) {
	base := newHarness(t).store
	h := newHarnessWithStore(base, failingStore{base})
	ctx := context.Background()
	b := h.connect(t, ctx, barID)

	b.conn.send(t, `{"items": [3]}`)
	err := b.wait(t)
	assert.ErrorIs(t, err, reconcile.ErrPersistence)
	assert.Equal(t, websocket.StatusInternalError, b.conn.closeCode())
	assert.Equal(t, StateClosed, b.session.State())

	disconnects := h.audit.byID("disconnect")
	require.Len(t, disconnects, 1)
	assert.False(t, disconnects[0].(audit.DisconnectEvent).Success)
}

func TestSession_Identity(t *testing.T) {
	id := identity.New(9, "x", true, nil)
	s := New(id, Deps{Router: broadcast.NewHub()}, Config{}, zerolog.Nop())
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, StateConnecting, s.State())
	assert.Contains(t, s.String(), "user 9")
}
