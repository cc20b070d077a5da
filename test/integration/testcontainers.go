package integration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"

	"github.com/doodlesbykumbi/ws-lock/pkg/authenticator/authn_jwt"
	"github.com/doodlesbykumbi/ws-lock/pkg/db"
)

const (
	testJWTSecret = "integration-secret-integration-secret"
	testJWTIssuer = "ws-lock"
)

// TestContext holds all the resources needed for integration tests
type TestContext struct {
	DB          *gorm.DB
	RawDB       *sql.DB
	Container   testcontainers.Container
	DatabaseURL string
	Tokens      *authn_jwt.Authenticator
	HTTPClient  *http.Client
	Server      *ServerInstance
}

// NewTestContext creates a new test context with PostgreSQL testcontainer.
// Modes:
//   - Binary mode (default): Set WSLOCK_BINARY to the path of the lockctl binary
//   - Inline mode: Set WSLOCK_INLINE=1 to run the server in-process (no binary needed)
func NewTestContext(ctx context.Context) (*TestContext, error) {
	projectRoot, err := findProjectRoot()
	if err != nil {
		return nil, fmt.Errorf("failed to find project root: %w", err)
	}
	migrationsDir := filepath.Join(projectRoot, "db", "migrations")

	inlineMode := os.Getenv("WSLOCK_INLINE") == "1"
	binaryPath := os.Getenv("WSLOCK_BINARY")

	if !inlineMode && binaryPath == "" {
		return nil, fmt.Errorf("Either WSLOCK_BINARY or WSLOCK_INLINE=1 is required.\n\nBinary mode:\n  go build -o lockctl ./cmd/lockctl\n  INTEGRATION_TEST=1 WSLOCK_BINARY=$(pwd)/lockctl go test -v ./test/integration/...\n\nInline mode:\n  INTEGRATION_TEST=1 WSLOCK_INLINE=1 go test -v ./test/integration/...")
	}
	if !inlineMode {
		if _, err := os.Stat(binaryPath); err != nil {
			return nil, fmt.Errorf("WSLOCK_BINARY path does not exist: %s", binaryPath)
		}
		log.Printf("Using binary: %s", binaryPath)
	} else {
		log.Println("Using inline server mode")
	}

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("wslock_test"),
		tcpostgres.WithUsername("wslock"),
		tcpostgres.WithPassword("wslock"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	if err := runMigrations(migrationsDir, connStr); err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	gdb, err := db.Connect(db.Config{URL: connStr})
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, err
	}
	rawDB, err := gdb.DB()
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to get raw db: %w", err)
	}

	tc := &TestContext{
		DB:          gdb,
		RawDB:       rawDB,
		Container:   pgContainer,
		DatabaseURL: connStr,
		Tokens: authn_jwt.New(authn_jwt.Config{
			Secret: testJWTSecret,
			Issuer: testJWTIssuer,
			TTL:    time.Hour,
		}),
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}

	if inlineMode {
		tc.Server, err = startInlineServer(gdb)
	} else {
		tc.Server, err = startBinaryServer(binaryPath, connStr)
	}
	if err != nil {
		tc.Close(ctx)
		return nil, err
	}
	return tc, nil
}

// Close cleans up all test resources
func (tc *TestContext) Close(ctx context.Context) {
	if tc.Server != nil {
		tc.Server.Stop()
	}
	if tc.RawDB != nil {
		_ = tc.RawDB.Close()
	}
	if tc.Container != nil {
		_ = tc.Container.Terminate(ctx)
	}
}

// Reset removes all lock rows so scenarios start from a clean slate.
func (tc *TestContext) Reset(ctx context.Context) error {
	return tc.DB.WithContext(ctx).Exec(`DELETE FROM item_locks`).Error
}

// findProjectRoot locates the project root directory
func findProjectRoot() (string, error) {
	paths := []string{
		"../..",
		"..",
		".",
	}

	for _, p := range paths {
		goMod := filepath.Join(p, "go.mod")
		if _, err := os.Stat(goMod); err == nil {
			return filepath.Abs(p)
		}
	}

	return "", fmt.Errorf("project root not found (looking for go.mod)")
}

// runMigrations applies the schema with the same migrator lockctl uses
func runMigrations(migrationsDir, dbURL string) error {
	m, err := migrate.New("file://"+migrationsDir, db.MigrationsURL(dbURL))
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
