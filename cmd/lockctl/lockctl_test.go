package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doodlesbykumbi/ws-lock/pkg/config"
	"github.com/doodlesbykumbi/ws-lock/pkg/model"
	"github.com/doodlesbykumbi/ws-lock/pkg/server/store"
)

func TestParseItemTypes(t *testing.T) {
	all, err := parseItemTypes(nil)
	require.NoError(t, err)
	assert.Equal(t, model.ItemTypeValues(), all)

	types, err := parseItemTypes([]string{"FOO", " baz "})
	require.NoError(t, err)
	assert.Equal(t, []model.ItemType{model.ItemTypeFoo, model.ItemTypeBaz}, types)

	_, err = parseItemTypes([]string{"QUX"})
	assert.ErrorContains(t, err, `unknown item type "QUX"`)
}

func TestPrintLocks(t *testing.T) {
	lockedAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	locks := []store.Lock{
		{ItemID: 3, ItemType: model.ItemTypeFoo, UserID: 1, Locked: true, CreatedAt: lockedAt},
		{ItemID: 7, ItemType: model.ItemTypeBaz, UserID: 2, Locked: true, CreatedAt: lockedAt},
	}

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, printLocks(&buf, locks, "text"))
		out := buf.String()
		assert.Contains(t, out, "ITEM")
		assert.Contains(t, out, "FOO")
		assert.Contains(t, out, "2024-03-01T12:00:00Z")
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, printLocks(&buf, locks, "json"))
		var rows []lockRow
		require.NoError(t, json.Unmarshal(buf.Bytes(), &rows))
		require.Len(t, rows, 2)
		assert.Equal(t, "BAZ", rows[1].Type)
		assert.Equal(t, int64(2), rows[1].User)
	})

	t.Run("empty", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, printLocks(&buf, nil, "text"))
		assert.Equal(t, "No active locks\n", buf.String())
	})

	t.Run("unknown format", func(t *testing.T) {
		assert.Error(t, printLocks(&bytes.Buffer{}, locks, "yaml"))
	})
}

func TestPrintConfiguration(t *testing.T) {
	cfg, err := config.LoadFile(filepath.Join(t.TempDir(), config.ConfigFileName))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, printConfiguration(&buf, cfg, "json"))
	assert.True(t, json.Valid(buf.Bytes()))

	buf.Reset()
	require.NoError(t, printConfiguration(&buf, cfg, "text"))
	assert.Contains(t, buf.String(), "broadcast_backend")

	assert.Error(t, printConfiguration(&buf, cfg, "xml"))
}

func TestMigrationVersion(t *testing.T) {
	v, ok := migrationVersion("20240101000004_create_item_locks.up.sql")
	assert.True(t, ok)
	assert.Equal(t, uint(20240101000004), v)

	_, ok = migrationVersion("README.md")
	assert.False(t, ok)
}

func TestWaitForServer(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	require.NoError(t, waitForServer(ts.URL, 5, time.Millisecond))
	assert.Equal(t, int32(3), calls.Load())
}

func TestWaitForServer_GivesUp(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	err := waitForServer(ts.URL, 2, time.Millisecond)
	assert.ErrorContains(t, err, "not ready after 2 attempts")
}
