package benchmark

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/doodlesbykumbi/ws-lock/pkg/audit"
	"github.com/doodlesbykumbi/ws-lock/pkg/authenticator"
	"github.com/doodlesbykumbi/ws-lock/pkg/authenticator/authn_jwt"
	"github.com/doodlesbykumbi/ws-lock/pkg/broadcast"
	"github.com/doodlesbykumbi/ws-lock/pkg/config"
	"github.com/doodlesbykumbi/ws-lock/pkg/fixtures"
	"github.com/doodlesbykumbi/ws-lock/pkg/model"
	"github.com/doodlesbykumbi/ws-lock/pkg/reconcile"
	"github.com/doodlesbykumbi/ws-lock/pkg/server"
	"github.com/doodlesbykumbi/ws-lock/pkg/server/endpoints"
	"github.com/doodlesbykumbi/ws-lock/pkg/server/store"
	"github.com/doodlesbykumbi/ws-lock/pkg/server/store/memory"
)

const items = 1000

func TestMain(m *testing.M) {
	audit.SetEnabled(false)
	os.Exit(m.Run())
}

func seededStore(b *testing.B) *memory.Store {
	b.Helper()
	f := &fixtures.Fixture{
		Groups: []fixtures.Group{{Name: "editors", Visible: model.ItemTypeValues()}},
		Users: []fixtures.User{{
			ID:          1,
			Username:    "editor",
			Groups:      []string{"editors"},
			Permissions: []string{model.PermViewItemLock, model.PermAddItemLock, model.PermChangeItemLock, model.PermViewItem},
		}},
	}
	st := memory.FromFixture(f)
	types := model.ItemTypeValues()
	for i := int64(1); i <= items; i++ {
		st.AddItem(i, types[int(i)%len(types)])
	}
	return st
}

func BenchmarkReconcile(b *testing.B) {
	ctx := context.Background()

	b.Run("Memory store: switch between two items", func(b *testing.B) {
		st := seededStore(b)
		engine := reconcile.NewEngine(st)
		id, err := st.LoadIdentity(ctx, 1)
		if err != nil {
			b.Fatal(err)
		}

		b.ReportAllocs()
		b.ResetTimer()

		for i := 0; i < b.N; i++ {
			_, _ = engine.Reconcile(ctx, id, []int64{int64(i%2) + 1})
		}
	})

	b.Run("Memory store: rotate a window of 10 items", func(b *testing.B) {
		st := seededStore(b)
		engine := reconcile.NewEngine(st)
		id, err := st.LoadIdentity(ctx, 1)
		if err != nil {
			b.Fatal(err)
		}
		window := make([]int64, 10)

		b.ReportAllocs()
		b.ResetTimer()

		for i := 0; i < b.N; i++ {
			for j := range window {
				window[j] = int64((i+j)%items) + 1
			}
			_, _ = engine.Reconcile(ctx, id, window)
		}
	})
}

func BenchmarkPublish(b *testing.B) {
	ctx := context.Background()
	changes := []store.Lock{
		{ItemID: 3, UserID: 1, ItemType: model.ItemTypeFoo, Locked: false},
		{ItemID: 4, UserID: 1, ItemType: model.ItemTypeFoo, Locked: true},
		{ItemID: 7, UserID: 1, ItemType: model.ItemTypeBaz, Locked: true},
	}

	for _, subscribers := range []int{1, 100} {
		b.Run(fmt.Sprintf("Hub: %d subscribers", subscribers), func(b *testing.B) {
			hub := broadcast.NewHub()
			defer func() { _ = hub.Close() }()

			topics := broadcast.Topics(model.ItemTypeValues())
			for i := 0; i < subscribers; i++ {
				sub := hub.Subscribe(topics, 16)
				go func() {
					for range sub.C {
					}
				}()
			}
			pub := broadcast.NewPublisher(hub, zerolog.Nop())

			b.ReportAllocs()
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				_ = pub.PublishLocks(ctx, changes)
			}
		})
	}
}

func BenchmarkListLocksHandler(b *testing.B) {
	st := seededStore(b)
	ctx := context.Background()
	id, err := st.LoadIdentity(ctx, 1)
	if err != nil {
		b.Fatal(err)
	}
	window := make([]int64, 0, 100)
	for i := int64(1); i <= 100; i++ {
		window = append(window, i)
	}
	if _, err := reconcile.NewEngine(st).Reconcile(ctx, id, window); err != nil {
		b.Fatal(err)
	}

	cfg, err := config.LoadFile(filepath.Join(b.TempDir(), config.ConfigFileName))
	if err != nil {
		b.Fatal(err)
	}
	jwtAuth := authn_jwt.New(authn_jwt.Config{Secret: "benchmark-secret-benchmark-secret", TTL: time.Hour})
	srv := server.NewServer(
		server.Stores{Locks: st, Visibility: st, Identity: st, Health: st},
		authenticator.NewRegistry(jwtAuth),
		broadcast.NewHub(),
		cfg,
		zerolog.Nop(),
	)
	endpoints.RegisterAll(srv)
	handler := srv.Handler()

	token, err := jwtAuth.Issue(1)
	if err != nil {
		b.Fatal(err)
	}

	b.Run("GET /locks", func(b *testing.B) {
		b.ReportAllocs()
		b.ResetTimer()

		for i := 0; i < b.N; i++ {
			r := httptest.NewRequest("GET", "/locks", nil)
			r.Header.Add("Authorization", "Bearer "+token)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)
			if w.Code != http.StatusOK {
				b.Fatalf("unexpected status %d", w.Code)
			}
		}
	})
}
