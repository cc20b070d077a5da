// Package session drives one client connection from authorization to
// close: it subscribes the connection to its visible categories, runs a
// reconciliation pass per inbound message, forwards broadcasts, and
// releases the connection's locks when it goes away.
package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/doodlesbykumbi/ws-lock/pkg/audit"
	"github.com/doodlesbykumbi/ws-lock/pkg/authz"
	"github.com/doodlesbykumbi/ws-lock/pkg/broadcast"
	"github.com/doodlesbykumbi/ws-lock/pkg/identity"
	"github.com/doodlesbykumbi/ws-lock/pkg/reconcile"
	"github.com/doodlesbykumbi/ws-lock/pkg/server/store"
	"github.com/doodlesbykumbi/ws-lock/pkg/telemetry"
	"github.com/doodlesbykumbi/ws-lock/pkg/visibility"
)

var (
	// ErrUnauthorized is returned when the identity fails the gate
	ErrUnauthorized = errors.New("connection not authorized")
	// ErrClosed is returned when Run is called on a finished session
	ErrClosed = errors.New("session closed")
)

var tracer = otel.Tracer("github.com/doodlesbykumbi/ws-lock/pkg/session")

const (
	DefaultWriteTimeout   = 5 * time.Second
	DefaultCleanupTimeout = 10 * time.Second
)

// Config tunes a session
type Config struct {
	SendBuffer     int
	WriteTimeout   time.Duration
	CleanupTimeout time.Duration
}

// Deps are the collaborators shared by all sessions of a server
type Deps struct {
	Gate     *authz.Gate
	Resolver *visibility.Resolver
	Engine   *reconcile.Engine
	Router   broadcast.Router
	// Audit receives audit events. Defaults to audit.Log.
	Audit func(audit.Event)
}

// Session is one client connection
type Session struct {
	ID       string
	identity *identity.Identity
	deps     Deps
	cfg      Config
	pub      *broadcast.Publisher
	log      zerolog.Logger

	mu    sync.Mutex
	state State
}

// New returns a session in StateConnecting for id.
func New(id *identity.Identity, deps Deps, cfg Config, log zerolog.Logger) *Session {
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.CleanupTimeout <= 0 {
		cfg.CleanupTimeout = DefaultCleanupTimeout
	}
	if deps.Audit == nil {
		deps.Audit = audit.Log
	}

	connID := uuid.NewString()
	l := log.With().Str("conn_id", connID)
	if id != nil {
		l = l.Int64("user_id", id.ID)
	}
	logger := l.Logger()

	return &Session{
		ID:       connID,
		identity: id,
		deps:     deps,
		cfg:      cfg,
		pub:      broadcast.NewPublisher(deps.Router, logger),
		log:      logger,
		state:    StateConnecting,
	}
}

// State returns the current lifecycle stage.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	prev := s.state
	s.state = st
	s.mu.Unlock()
	s.log.Debug().Stringer("from", prev).Stringer("to", st).Msg("session state changed")
}

func (s *Session) userID() string {
	if s.identity == nil {
		return "anonymous"
	}
	return strconv.FormatInt(s.identity.ID, 10)
}

func (s *Session) clientIP() string {
	if s.identity == nil || s.identity.RemoteIP == nil {
		return ""
	}
	return s.identity.RemoteIP.String()
}

// Authorize moves a connecting session to StateAuthorized, or closes it and
// returns ErrUnauthorized. Callers use it to refuse the handshake before
// any transport exists.
func (s *Session) Authorize() error {
	switch st := s.State(); st {
	case StateConnecting:
	case StateClosed:
		return ErrClosed
	default:
		return nil
	}

	if !s.deps.Gate.Authorize(s.identity) {
		s.setState(StateClosed)
		s.deps.Audit(audit.ConnectEvent{
			UserID:       s.userID(),
			ClientIP:     s.clientIP(),
			ConnID:       s.ID,
			Success:      false,
			ErrorMessage: "missing required permissions",
		})
		s.log.Info().Msg("connection refused")
		return ErrUnauthorized
	}
	s.setState(StateAuthorized)
	return nil
}

// Run serves conn until the client goes away, ctx is canceled or a
// persistence failure occurs. Whatever the cause, the session's locks are
// released and broadcast before Run returns. A clean close returns nil.
func (s *Session) Run(ctx context.Context, conn Conn) (err error) {
	if s.State() == StateClosed {
		return ErrClosed
	}
	if err := s.Authorize(); err != nil {
		_ = conn.Close(websocket.StatusPolicyViolation, "unauthorized")
		return err
	}

	ctx, span := tracer.Start(ctx, "lock.session")
	defer span.End()
	span.SetAttributes(
		attribute.String("conn.id", s.ID),
		attribute.Int64("user.id", s.identity.ID),
	)
	if traceID := telemetry.TraceID(ctx); traceID != "" {
		s.log = s.log.With().Str("trace_id", traceID).Logger()
	}

	sub, err := s.subscribe(ctx)
	if err != nil {
		s.setState(StateClosed)
		span.RecordError(err)
		span.SetStatus(codes.Error, "subscribe failed")
		_ = conn.Close(websocket.StatusInternalError, "internal error")
		return err
	}

	// Reads outlive ctx so that a canceled request does not tear the
	// transport down before the close frame is sent.
	readCtx, cancelRead := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelRead()

	code, reason, err := s.serve(ctx, readCtx, conn, sub)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, reason)
	}

	s.cleanup(ctx)
	s.deps.Router.Unsubscribe(sub)
	s.setState(StateClosed)
	_ = conn.Close(code, reason)
	return err
}

func (s *Session) subscribe(ctx context.Context) (*broadcast.Subscription, error) {
	types, err := s.deps.Resolver.ResolveSubscriptions(ctx, s.identity)
	if err != nil {
		return nil, err
	}
	topics := broadcast.Topics(types)
	sub := s.deps.Router.Subscribe(topics, s.cfg.SendBuffer)
	s.setState(StateSubscribed)

	s.deps.Audit(audit.ConnectEvent{
		UserID:     s.userID(),
		ClientIP:   s.clientIP(),
		ConnID:     s.ID,
		Categories: topics,
		Success:    true,
	})
	s.log.Info().Strs("topics", topics).Msg("connection subscribed")
	return sub, nil
}

// serve is the active loop. Only this goroutine writes to conn.
func (s *Session) serve(ctx, readCtx context.Context, conn Conn, sub *broadcast.Subscription) (websocket.StatusCode, string, error) {
	inbound := make(chan []byte)
	readErr := make(chan error, 1)
	go func() {
		for {
			data, err := conn.Read(readCtx)
			if err != nil {
				readErr <- err
				return
			}
			select {
			case inbound <- data:
			case <-readCtx.Done():
				return
			}
		}
	}()

	s.setState(StateActive)

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("server shutting down, closing connection")
			return websocket.StatusGoingAway, "server shutting down", nil

		case err := <-readErr:
			if status := websocket.CloseStatus(err); status != -1 {
				s.log.Info().Int("status", int(status)).Msg("client closed connection")
			} else {
				s.log.Info().Err(err).Msg("connection read failed")
			}
			return websocket.StatusNormalClosure, "", nil

		case data := <-inbound:
			if err := s.handle(ctx, data); err != nil {
				if ctx.Err() != nil {
					return websocket.StatusGoingAway, "server shutting down", nil
				}
				s.log.Error().Err(err).Msg("reconciliation failed, closing connection")
				return websocket.StatusInternalError, "internal error", err
			}

		case msg, ok := <-sub.C:
			if !ok {
				return websocket.StatusGoingAway, "broadcast closed", nil
			}
			wctx, cancel := context.WithTimeout(ctx, s.cfg.WriteTimeout)
			err := conn.Write(wctx, msg.Payload)
			cancel()
			if err != nil {
				s.log.Info().Err(err).Str("topic", msg.Topic).Msg("connection write failed")
				return websocket.StatusInternalError, "write failed", nil
			}
		}
	}
}

// handle runs one reconciliation pass. Malformed messages are ignored.
func (s *Session) handle(ctx context.Context, data []byte) error {
	items, ok := parseItems(data)
	if !ok {
		s.log.Debug().Int("bytes", len(data)).Msg("ignoring malformed message")
		return nil
	}

	changes, err := s.deps.Engine.Reconcile(ctx, s.identity, items)
	if err != nil {
		return err
	}
	s.log.Debug().Int("desired", len(items)).Int("changes", len(changes)).Msg("reconciled locks")
	s.publish(ctx, changes)
	return nil
}

func (s *Session) publish(ctx context.Context, changes []store.Lock) {
	if len(changes) == 0 {
		return
	}
	for _, l := range changes {
		s.deps.Audit(audit.LockEvent{
			UserID:   s.userID(),
			ClientIP: s.clientIP(),
			ConnID:   s.ID,
			ItemID:   l.ItemID,
			Category: l.ItemType.String(),
			Locked:   l.Locked,
		})
	}
	// Publish failures are logged by the publisher; delivery is best effort.
	_ = s.pub.PublishLocks(ctx, changes)
}

// cleanup releases every lock the session holds. It runs detached from ctx
// so it completes even when the connection context is already canceled.
func (s *Session) cleanup(ctx context.Context) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.CleanupTimeout)
	defer cancel()

	released, err := s.deps.Engine.ReleaseAll(cctx, s.identity)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to release locks on disconnect")
		s.deps.Audit(audit.DisconnectEvent{
			UserID:       s.userID(),
			ClientIP:     s.clientIP(),
			ConnID:       s.ID,
			Success:      false,
			ErrorMessage: err.Error(),
		})
		return
	}
	s.publish(cctx, released)

	s.deps.Audit(audit.DisconnectEvent{
		UserID:   s.userID(),
		ClientIP: s.clientIP(),
		ConnID:   s.ID,
		Released: len(released),
		Success:  true,
	})
	s.log.Info().Int("released", len(released)).Msg("connection closed")
}

// String is used in logs.
func (s *Session) String() string {
	return fmt.Sprintf("session %s (user %s, %s)", s.ID, s.userID(), s.State())
}
