package gorm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doodlesbykumbi/ws-lock/pkg/identity"
	"github.com/doodlesbykumbi/ws-lock/pkg/model"
	"github.com/doodlesbykumbi/ws-lock/pkg/server/store"
)

func TestLockStore_Validate(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewLockStore(db)
	user := identity.New(5, "bar", true, nil)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT DISTINCT i.id FROM items i`).
		WithArgs(int64(5), int64(3), int64(7), int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
	mock.ExpectCommit()

	var valid []int64
	err := s.Transaction(context.Background(), func(tx store.LockTx) error {
		var err error
		valid, err = tx.Validate(user, []int64{3, 7, 99})
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, valid)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockStore_ValidateEmpty(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewLockStore(db)

	mock.ExpectBegin()
	mock.ExpectCommit()

	err := s.Transaction(context.Background(), func(tx store.LockTx) error {
		valid, err := tx.Validate(identity.New(5, "bar", true, nil), nil)
		assert.Empty(t, valid)
		return err
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockStore_Release(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewLockStore(db)
	user := identity.New(5, "bar", true, nil)
	created := time.Now().Add(-time.Minute)

	mock.ExpectBegin()
	mock.ExpectQuery(`WHERE il.locked AND il.user_id = \$1 AND il.item_id NOT IN \(\$2\) ORDER BY il.item_id FOR UPDATE OF il`).
		WithArgs(int64(5), int64(3)).
		WillReturnRows(sqlmock.NewRows(lockColumns).
			AddRow(11, 4, int(model.ItemTypeFoo), 5, true, created, created))
	mock.ExpectExec(`UPDATE "item_locks" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	var released []store.Lock
	err := s.Transaction(context.Background(), func(tx store.LockTx) error {
		var err error
		released, err = tx.Release(user, []int64{3})
		return err
	})
	require.NoError(t, err)
	require.Len(t, released, 1)
	assert.Equal(t, int64(4), released[0].ItemID)
	assert.Equal(t, model.ItemTypeFoo, released[0].ItemType)
	assert.False(t, released[0].Locked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockStore_ReleaseNothingHeld(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewLockStore(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM item_locks il JOIN items i`).
		WillReturnRows(sqlmock.NewRows(lockColumns))
	mock.ExpectCommit()

	err := s.Transaction(context.Background(), func(tx store.LockTx) error {
		released, err := tx.ReleaseAll(identity.New(5, "bar", true, nil))
		assert.Empty(t, released)
		return err
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockStore_Acquire(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewLockStore(db)
	user := identity.New(5, "bar", true, nil)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "items" WHERE id IN \(\$1,\$2\) ORDER BY id FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "item_type"}).
			AddRow(3, int(model.ItemTypeFoo)).
			AddRow(7, int(model.ItemTypeBaz)))
	mock.ExpectQuery(`SELECT "item_id" FROM "item_locks" WHERE item_id IN \(\$1,\$2\) AND locked`).
		WillReturnRows(sqlmock.NewRows([]string{"item_id"}).AddRow(7))
	mock.ExpectQuery(`INSERT INTO "item_locks"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(21))
	mock.ExpectCommit()

	var acquired []store.Lock
	err := s.Transaction(context.Background(), func(tx store.LockTx) error {
		var err error
		acquired, err = tx.Acquire(user, []int64{3, 7})
		return err
	})
	require.NoError(t, err)
	require.Len(t, acquired, 1)
	assert.Equal(t, int64(21), acquired[0].ID)
	assert.Equal(t, int64(3), acquired[0].ItemID)
	assert.Equal(t, int64(5), acquired[0].UserID)
	assert.Equal(t, model.ItemTypeFoo, acquired[0].ItemType)
	assert.True(t, acquired[0].Locked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockStore_AcquireAllTaken(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewLockStore(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM "items"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "item_type"}).AddRow(3, int(model.ItemTypeFoo)))
	mock.ExpectQuery(`FROM "item_locks"`).
		WillReturnRows(sqlmock.NewRows([]string{"item_id"}).AddRow(3))
	mock.ExpectCommit()

	err := s.Transaction(context.Background(), func(tx store.LockTx) error {
		acquired, err := tx.Acquire(identity.New(6, "baz", true, nil), []int64{3})
		assert.Empty(t, acquired)
		return err
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockStore_TransactionRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewLockStore(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM item_locks il JOIN items i`).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := s.Transaction(context.Background(), func(tx store.LockTx) error {
		_, err := tx.CurrentActiveLocks(identity.New(5, "bar", true, nil))
		return err
	})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockStore_ListActiveLocks(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewLockStore(db)
	now := time.Now()

	locks, err := s.ListActiveLocks(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, locks)

	mock.ExpectQuery(`WHERE il.locked AND i.item_type IN \(\$1,\$2\)`).
		WithArgs(int(model.ItemTypeFoo), int(model.ItemTypeBaz)).
		WillReturnRows(sqlmock.NewRows(lockColumns).
			AddRow(1, 3, int(model.ItemTypeFoo), 5, true, now, now).
			AddRow(2, 7, int(model.ItemTypeBaz), 6, true, now, now))

	locks, err = s.ListActiveLocks(context.Background(), []model.ItemType{model.ItemTypeFoo, model.ItemTypeBaz})
	require.NoError(t, err)
	require.Len(t, locks, 2)
	assert.Equal(t, int64(7), locks[1].ItemID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockStore_ClearLocksAllUsers(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewLockStore(db)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`WHERE il.locked ORDER BY il.item_id FOR UPDATE OF il`).
		WillReturnRows(sqlmock.NewRows(lockColumns).
			AddRow(1, 3, int(model.ItemTypeFoo), 5, true, now, now).
			AddRow(2, 7, int(model.ItemTypeBaz), 6, true, now, now))
	mock.ExpectExec(`UPDATE "item_locks" SET`).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	cleared, err := s.ClearLocks(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, cleared, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}
