// Package memory is an in-process implementation of the store interfaces.
// It backs development servers started without a database and the unit
// tests of the packages above the store.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/doodlesbykumbi/ws-lock/pkg/fixtures"
	"github.com/doodlesbykumbi/ws-lock/pkg/identity"
	"github.com/doodlesbykumbi/ws-lock/pkg/model"
	"github.com/doodlesbykumbi/ws-lock/pkg/server/store"
)

type user struct {
	model.User
	groups []int64
	perms  []string
}

// Store holds users, visibility grants, items and locks in memory. All
// lock transactions are serialized by a single mutex.
type Store struct {
	mu sync.Mutex

	users      map[int64]*user
	groupNames map[string]int64
	groupPerms map[int64][]string
	visible    map[int64][]model.ItemType
	items      map[int64]model.ItemType
	locks      []store.Lock
	nextLockID int64

	now func() time.Time
}

var (
	_ store.LockStore       = (*Store)(nil)
	_ store.VisibilityStore = (*Store)(nil)
	_ store.IdentityStore   = (*Store)(nil)
	_ store.HealthStore     = (*Store)(nil)
)

// New returns an empty store
func New() *Store {
	return &Store{
		users:      make(map[int64]*user),
		groupNames: make(map[string]int64),
		groupPerms: make(map[int64][]string),
		visible:    make(map[int64][]model.ItemType),
		items:      make(map[int64]model.ItemType),
		nextLockID: 1,
		now:        time.Now,
	}
}

// FromFixture returns a store seeded with f
func FromFixture(f *fixtures.Fixture) *Store {
	s := New()
	s.Load(f)
	return s
}

// Load adds the contents of f to the store.
func (s *Store) Load(f *fixtures.Fixture) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, g := range f.Groups {
		gid, ok := s.groupNames[g.Name]
		if !ok {
			gid = int64(len(s.groupNames) + 1)
			s.groupNames[g.Name] = gid
		}
		s.visible[gid] = append(s.visible[gid], g.Visible...)
		s.groupPerms[gid] = append(s.groupPerms[gid], g.Permissions...)
	}
	for _, u := range f.Users {
		rec := &user{
			User: model.User{
				ID:          u.ID,
				Username:    u.Username,
				IsActive:    u.IsActive(),
				IsSuperuser: u.Superuser,
			},
			perms: u.Permissions,
		}
		for _, g := range u.Groups {
			rec.groups = append(rec.groups, s.groupNames[g])
		}
		s.users[u.ID] = rec
	}
	for _, it := range f.Items {
		s.items[it.ID] = it.Type
	}
}

// AddItem registers an item of the given type.
func (s *Store) AddItem(id int64, t model.ItemType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[id] = t
}

// Locks returns a copy of every lock row, active or not.
func (s *Store) Locks() []store.Lock {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.Lock, len(s.locks))
	copy(out, s.locks)
	return out
}

func (s *Store) visibleTypes(userID int64) map[model.ItemType]bool {
	out := map[model.ItemType]bool{}
	u, ok := s.users[userID]
	if !ok {
		return out
	}
	for _, gid := range u.groups {
		for _, t := range s.visible[gid] {
			out[t] = true
		}
	}
	return out
}

func sortByItem(locks []store.Lock) {
	sort.Slice(locks, func(i, j int) bool { return locks[i].ItemID < locks[j].ItemID })
}

// LookupVisibleCategories implements store.VisibilityStore
func (s *Store) LookupVisibleCategories(_ context.Context, id *identity.Identity) ([]model.ItemType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.ItemType
	for t := range s.visibleTypes(id.ID) {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// LoadIdentity implements store.IdentityStore
func (s *Store) LoadIdentity(_ context.Context, userID int64) (*identity.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	perms := append([]string{}, u.perms...)
	for _, gid := range u.groups {
		perms = append(perms, s.groupPerms[gid]...)
	}
	id := identity.New(u.ID, u.Username, u.IsActive, append([]int64{}, u.groups...), perms...)
	id.Superuser = u.IsSuperuser
	return id, nil
}

// CheckConnectivity implements store.HealthStore
func (s *Store) CheckConnectivity(context.Context) error {
	return nil
}

// Transaction implements store.LockStore. The lock table is restored when
// fn returns an error.
func (s *Store) Transaction(ctx context.Context, fn func(tx store.LockTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := make([]store.Lock, len(s.locks))
	copy(snapshot, s.locks)
	nextID := s.nextLockID

	if err := fn(&lockTx{s: s}); err != nil {
		s.locks = snapshot
		s.nextLockID = nextID
		return err
	}
	return nil
}

// ListActiveLocks implements store.LockStore
func (s *Store) ListActiveLocks(_ context.Context, types []model.ItemType) ([]store.Lock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	want := make(map[model.ItemType]bool, len(types))
	for _, t := range types {
		want[t] = true
	}
	var out []store.Lock
	for _, l := range s.locks {
		if l.Locked && want[l.ItemType] {
			out = append(out, l)
		}
	}
	sortByItem(out)
	return out, nil
}

// ClearLocks implements store.LockStore
func (s *Store) ClearLocks(_ context.Context, userID int64) ([]store.Lock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deactivate(userID, nil), nil
}

// deactivate releases active locks of userID (all users when 0) on items
// not in keep. Callers hold mu.
func (s *Store) deactivate(userID int64, keep map[int64]bool) []store.Lock {
	now := s.now()
	var out []store.Lock
	for i := range s.locks {
		l := &s.locks[i]
		if !l.Locked || (userID != 0 && l.UserID != userID) || keep[l.ItemID] {
			continue
		}
		l.Locked = false
		l.UpdatedAt = now
		out = append(out, *l)
	}
	sortByItem(out)
	return out
}

type lockTx struct {
	s *Store
}

func (tx *lockTx) Validate(id *identity.Identity, itemIDs []int64) ([]int64, error) {
	visible := tx.s.visibleTypes(id.ID)
	seen := map[int64]bool{}
	var out []int64
	for _, itemID := range itemIDs {
		t, ok := tx.s.items[itemID]
		if !ok || !visible[t] || seen[itemID] {
			continue
		}
		seen[itemID] = true
		out = append(out, itemID)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (tx *lockTx) CurrentActiveLocks(id *identity.Identity) ([]store.Lock, error) {
	var out []store.Lock
	for _, l := range tx.s.locks {
		if l.Locked && l.UserID == id.ID {
			out = append(out, l)
		}
	}
	sortByItem(out)
	return out, nil
}

func (tx *lockTx) Release(id *identity.Identity, keep []int64) ([]store.Lock, error) {
	k := make(map[int64]bool, len(keep))
	for _, itemID := range keep {
		k[itemID] = true
	}
	return tx.s.deactivate(id.ID, k), nil
}

func (tx *lockTx) Acquire(id *identity.Identity, itemIDs []int64) ([]store.Lock, error) {
	held := map[int64]bool{}
	for _, l := range tx.s.locks {
		if l.Locked {
			held[l.ItemID] = true
		}
	}

	ids := append([]int64{}, itemIDs...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	now := tx.s.now()
	var out []store.Lock
	for _, itemID := range ids {
		t, ok := tx.s.items[itemID]
		if !ok || held[itemID] {
			continue
		}
		held[itemID] = true
		l := store.Lock{
			ID:        tx.s.nextLockID,
			ItemID:    itemID,
			ItemType:  t,
			UserID:    id.ID,
			Locked:    true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		tx.s.nextLockID++
		tx.s.locks = append(tx.s.locks, l)
		out = append(out, l)
	}
	return out, nil
}

func (tx *lockTx) ReleaseAll(id *identity.Identity) ([]store.Lock, error) {
	return tx.s.deactivate(id.ID, nil), nil
}
