package integration

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/doodlesbykumbi/ws-lock/pkg/audit"
	"github.com/doodlesbykumbi/ws-lock/pkg/authenticator"
	"github.com/doodlesbykumbi/ws-lock/pkg/authenticator/authn_jwt"
	"github.com/doodlesbykumbi/ws-lock/pkg/broadcast"
	"github.com/doodlesbykumbi/ws-lock/pkg/config"
	"github.com/doodlesbykumbi/ws-lock/pkg/server"
	"github.com/doodlesbykumbi/ws-lock/pkg/server/endpoints"
	gormstore "github.com/doodlesbykumbi/ws-lock/pkg/server/store/gorm"
)

// ServerInstance represents a running lock server
type ServerInstance struct {
	Server        *server.Server
	ServerURL     string
	Port          int
	router        broadcast.Router
	serverProcess *exec.Cmd
	cancel        context.CancelFunc
}

// startInlineServer starts the server in-process (no binary needed)
func startInlineServer(gdb *gorm.DB) (*ServerInstance, error) {
	audit.SetEnabled(false)

	cfg, err := config.LoadFile(os.DevNull)
	if err != nil {
		return nil, err
	}
	cfg.JWTSecret = testJWTSecret
	cfg.JWTIssuer = testJWTIssuer

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to create listener: %w", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port

	hub := broadcast.NewHub()
	s := server.NewServer(
		server.Stores{
			Locks:      gormstore.NewLockStore(gdb),
			Visibility: gormstore.NewVisibilityStore(gdb),
			Identity:   gormstore.NewIdentityStore(gdb),
			Health:     gormstore.NewHealthStore(gdb),
		},
		authenticator.NewRegistry(authn_jwt.New(authn_jwt.Config{Secret: testJWTSecret, Issuer: testJWTIssuer})),
		hub,
		cfg,
		zerolog.New(os.Stderr).Level(zerolog.WarnLevel),
	)
	endpoints.RegisterAll(s)

	instance := &ServerInstance{
		Server:    s,
		ServerURL: fmt.Sprintf("http://127.0.0.1:%d", port),
		Port:      port,
		router:    hub,
	}

	go func() {
		_ = s.Serve(listener)
	}()

	if err := waitForServer(instance.ServerURL, 10*time.Second); err != nil {
		instance.Stop()
		return nil, fmt.Errorf("server failed to become ready: %w", err)
	}
	return instance, nil
}

// startBinaryServer starts the lockctl server binary
func startBinaryServer(binaryPath, dbURL string) (*ServerInstance, error) {
	port, err := freePort()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	// Migrations already ran in the test setup
	cmd := exec.CommandContext(ctx, binaryPath, "server", "--no-migrate", "-b", "127.0.0.1", "-p", strconv.Itoa(port))
	cmd.Env = append(os.Environ(),
		"DATABASE_URL="+dbURL,
		"WSLOCK_JWT_SECRET="+testJWTSecret,
		"WSLOCK_JWT_ISSUER="+testJWTIssuer,
		"WSLOCK_AUDIT_ENABLED=false",
		"WSLOCK_CONFIG_PATH="+os.TempDir(),
	)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start binary: %w", err)
	}

	instance := &ServerInstance{
		ServerURL:     fmt.Sprintf("http://127.0.0.1:%d", port),
		Port:          port,
		serverProcess: cmd,
		cancel:        cancel,
	}
	if err := waitForServer(instance.ServerURL, 30*time.Second); err != nil {
		instance.Stop()
		return nil, fmt.Errorf("server failed to become ready: %w", err)
	}
	return instance, nil
}

// WebSocketURL returns the lock socket URL
func (i *ServerInstance) WebSocketURL() string {
	return fmt.Sprintf("ws://127.0.0.1:%d/ws/locks", i.Port)
}

// Stop shuts the server down
func (i *ServerInstance) Stop() {
	if i.Server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = i.Server.Shutdown(ctx)
	}
	if i.router != nil {
		_ = i.router.Close()
	}
	if i.cancel != nil {
		i.cancel()
	}
	if i.serverProcess != nil && i.serverProcess.Process != nil {
		_ = i.serverProcess.Wait()
	}
}

func freePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer func() { _ = l.Close() }()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// waitForServer polls the server until it responds or times out
func waitForServer(serverURL string, timeout time.Duration) error {
	client := &http.Client{Timeout: time.Second}
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := client.Get(serverURL + "/health")
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("server did not become ready within %v", timeout)
}
