package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/ws-lock/pkg/authenticator"
	"github.com/doodlesbykumbi/ws-lock/pkg/authenticator/authn_jwt"
	"github.com/doodlesbykumbi/ws-lock/pkg/broadcast"
	"github.com/doodlesbykumbi/ws-lock/pkg/config"
	"github.com/doodlesbykumbi/ws-lock/pkg/db"
	"github.com/doodlesbykumbi/ws-lock/pkg/fixtures"
	"github.com/doodlesbykumbi/ws-lock/pkg/server"
	"github.com/doodlesbykumbi/ws-lock/pkg/server/endpoints"
	gormstore "github.com/doodlesbykumbi/ws-lock/pkg/server/store/gorm"
	"github.com/doodlesbykumbi/ws-lock/pkg/server/store/memory"
	"github.com/doodlesbykumbi/ws-lock/pkg/telemetry"
)

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the lock server",
	Long: `Run the lock server.

The server stores locks in PostgreSQL (DATABASE_URL). Without DATABASE_URL,
--fixtures runs it on an in-memory store loaded from a fixtures file, which
is lost on exit.

By default, database migrations are run on startup. Use --no-migrate to skip.

Example:
  lockctl server
  lockctl server -p 9000 -b 0.0.0.0
  lockctl server --fixtures fixtures.yml`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, log := loadLogger()

		if cmd.Flags().Changed("port") {
			cfg.Port, _ = cmd.Flags().GetInt("port")
		}
		if cmd.Flags().Changed("bind-address") {
			cfg.BindAddress, _ = cmd.Flags().GetString("bind-address")
		}
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
			os.Exit(1)
		}

		noMigrate, _ := cmd.Flags().GetBool("no-migrate")
		fixturesPath, _ := cmd.Flags().GetString("fixtures")

		if err := runServer(cfg, log, !noMigrate, fixturesPath); err != nil {
			log.Error().Err(err).Msg("server failed")
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().IntP("port", "p", 8000, "server listen port (overrides configuration)")
	serverCmd.Flags().StringP("bind-address", "b", "127.0.0.1", "server bind address (overrides configuration)")
	serverCmd.Flags().Bool("no-migrate", false, "skip running database migrations on start")
	serverCmd.Flags().String("fixtures", "", "serve from an in-memory store loaded from this fixtures file when DATABASE_URL is unset")
}

func runServer(cfg *config.Config, log zerolog.Logger, migrate bool, fixturesPath string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.TelemetryEnabled {
		shutdownTracing, err := telemetry.Init(ctx, log)
		if err != nil {
			return fmt.Errorf("failed to initialize tracing: %w", err)
		}
		defer func() {
			tctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdownTracing(tctx)
		}()
	}

	stores, err := openStores(log, migrate, fixturesPath)
	if err != nil {
		return err
	}

	router, err := openRouter(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = router.Close() }()

	registry := authenticator.NewRegistry(authn_jwt.New(authn_jwt.Config{
		Secret: cfg.JWTSecret,
		Issuer: cfg.JWTIssuer,
		TTL:    cfg.TokenTTL,
	}))

	srv := server.NewServer(stores, registry, router, cfg, log)
	endpoints.RegisterAll(srv)

	go watchConfiguration(ctx, cfg.ConfigFilePath(), log)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), cfg.CleanupTimeout+5*time.Second)
	defer cancel()
	return srv.Shutdown(sctx)
}

func openStores(log zerolog.Logger, migrate bool, fixturesPath string) (server.Stores, error) {
	if db.URL() == "" {
		if fixturesPath == "" {
			return server.Stores{}, fmt.Errorf("DATABASE_URL environment variable is required (or --fixtures for an in-memory store)")
		}
		f, err := fixtures.Load(fixturesPath)
		if err != nil {
			return server.Stores{}, err
		}
		log.Warn().Str("fixtures", fixturesPath).Msg("using in-memory store; locks are lost on exit")
		st := memory.FromFixture(f)
		return server.Stores{Locks: st, Visibility: st, Identity: st, Health: st}, nil
	}

	if migrate {
		log.Info().Msg("running database migrations")
		if err := runMigrations(); err != nil {
			return server.Stores{}, fmt.Errorf("migration failed: %w", err)
		}
	}

	database, err := connectDB(log)
	if err != nil {
		return server.Stores{}, err
	}
	return server.Stores{
		Locks:      gormstore.NewLockStore(database),
		Visibility: gormstore.NewVisibilityStore(database),
		Identity:   gormstore.NewIdentityStore(database),
		Health:     gormstore.NewHealthStore(database),
	}, nil
}

func openRouter(ctx context.Context, cfg *config.Config, log zerolog.Logger) (broadcast.Router, error) {
	log = log.With().Str("broadcast", cfg.BroadcastBackend).Logger()

	switch cfg.BroadcastBackend {
	case config.BackendRedis:
		return broadcast.DialRedisRouter(ctx, cfg.RedisAddr, os.Getenv(config.EnvPrefix+"REDIS_PASSWORD"), 0, cfg.RedisChannelPrefix, log)
	case config.BackendAMQP:
		return broadcast.DialAMQP(cfg.AMQPURL, cfg.AMQPExchange, log)
	default:
		return broadcast.NewHub(), nil
	}
}

// watchConfiguration logs configuration file changes. Settings are read
// at startup only, so a change takes effect on restart.
func watchConfiguration(ctx context.Context, path string, log zerolog.Logger) {
	err := config.Watch(ctx, path, func(cfg *config.Config, err error) {
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("configuration reload failed")
			return
		}
		if err := cfg.Validate(); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("configuration file changed but is invalid")
			return
		}
		log.Info().Str("path", path).Msg("configuration file changed; restart to apply")
	})
	if err != nil {
		log.Debug().Err(err).Str("path", path).Msg("not watching configuration file")
	}
}
