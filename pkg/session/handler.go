package session

import (
	"context"
	"errors"
	"fmt"
	"html"
	"os"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/harun/logstream/internal/observability"
	"github.com/harun/logstream/internal/tracing"
	"github.com/harun/logstream/pkg/access"
	"github.com/harun/logstream/pkg/logtail"
	"github.com/rs/zerolog"
)

// Conn is the message channel a session runs over.
type Conn interface {
	Send(ctx context.Context, text string) error
	// Receive returns the next inbound message. A deadline on ctx bounds the
	// wait.
	Receive(ctx context.Context) (string, error)
	Close() error
	RemoteAddr() string
	// Done is closed once the peer has disconnected or Close was called.
	Done() <-chan struct{}
}

// State is a session lifecycle state.
type State string

const (
	StateConnected    State = "connected"
	StateValidating   State = "validating"
	StateSnapshotSent State = "snapshot_sent"
	StateTailing      State = "tailing"
	StateClosed       State = "closed"
)

// Session is the per-connection state. It is only touched by the goroutine
// serving the connection.
type Session struct {
	RemoteAddr    string
	RequestPath   string
	ResolvedPath  string
	Tail          bool
	State         State
	ConnectedAt   time.Time
	LastHeartbeat time.Time
}

// Config holds handler configuration
type Config struct {
	Roots             *access.Roots
	NumLines          int
	PollInterval      time.Duration
	HeartbeatInterval time.Duration
	HeartbeatTimeout  time.Duration
	Clock             clock.Clock
	Logger            zerolog.Logger
}

// Handler runs the log streaming protocol for one connection at a time; a
// single Handler serves any number of connections concurrently.
type Handler struct {
	roots  *access.Roots
	lines  int
	cfg    Config
	clock  clock.Clock
	logger zerolog.Logger
}

// NewHandler creates a new session handler
func NewHandler(cfg Config) (*Handler, error) {
	if cfg.Roots == nil {
		return nil, fmt.Errorf("allowed roots are required")
	}
	if cfg.NumLines <= 0 {
		cfg.NumLines = logtail.DefaultLines
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}

	return &Handler{
		roots:  cfg.Roots,
		lines:  cfg.NumLines,
		cfg:    cfg,
		clock:  cfg.Clock,
		logger: cfg.Logger,
	}, nil
}

// ErrorPayload formats a rejection message the way clients display it.
func ErrorPayload(message string) string {
	return fmt.Sprintf(`<font color="red"><strong>%s</strong></font>`, html.EscapeString(message))
}

// Serve runs one session to completion: validate the request path, send the
// snapshot and, when requested, follow the file. The connection is closed
// before Serve returns. The returned error is the one that ended the session,
// or nil when it ended normally.
func (h *Handler) Serve(ctx context.Context, conn Conn, requestPath string) error {
	sess := &Session{
		RemoteAddr:  conn.RemoteAddr(),
		RequestPath: requestPath,
		State:       StateConnected,
		ConnectedAt: h.clock.Now(),
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-conn.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	logger := tracing.LoggerFromContext(ctx, h.logger)
	logger.Info().
		Str("address", sess.RemoteAddr).
		Str("path", sess.RequestPath).
		Msg("Client connected")

	observability.SessionStarted()
	started := h.clock.Now()

	err := h.run(ctx, conn, sess, logger)
	if closeErr := conn.Close(); closeErr != nil {
		logger.Debug().Err(closeErr).Str("address", sess.RemoteAddr).Msg("Failed to close connection")
	}
	sess.State = StateClosed

	outcome := classify(err)
	observability.SessionEnded(outcome, h.clock.Since(started))

	event := logger.Info().
		Str("address", sess.RemoteAddr).
		Str("path", sess.RequestPath).
		Str("outcome", outcome)
	if err != nil {
		event = event.Err(err)
	}
	event.Msg("Client disconnected")

	return err
}

func (h *Handler) run(ctx context.Context, conn Conn, sess *Session, logger zerolog.Logger) error {
	sess.State = StateValidating
	req, err := h.roots.Validate(sess.RequestPath)
	if err != nil {
		if access.KindOf(err) != 0 {
			h.reject(ctx, conn, err, logger)
		}
		return err
	}
	sess.ResolvedPath = req.Path
	sess.Tail = req.Tail

	file, err := os.Open(req.Path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer file.Close()

	snapshot, err := logtail.Snapshot(file, h.lines)
	if err != nil {
		return err
	}
	if err := conn.Send(ctx, snapshot); err != nil {
		return fmt.Errorf("failed to send snapshot: %w", err)
	}
	observability.AddBytesSent("snapshot", len(snapshot))
	sess.State = StateSnapshotSent

	if !sess.Tail {
		return nil
	}

	sess.State = StateTailing
	sess.LastHeartbeat = h.clock.Now()
	follower := logtail.NewFollower(logtail.Config{
		PollInterval:      h.cfg.PollInterval,
		HeartbeatInterval: h.cfg.HeartbeatInterval,
		HeartbeatTimeout:  h.cfg.HeartbeatTimeout,
		Clock:             h.clock,
		Logger:            logger,
		OnSend: func(n int) {
			observability.AddBytesSent("tail", n)
		},
		OnHeartbeat: func(at time.Time, err error) {
			sess.LastHeartbeat = at
			observability.RecordHeartbeat(err == nil)
		},
	})

	err = follower.Follow(ctx, file, conn)

	// The peer going away is how tailing normally ends.
	select {
	case <-conn.Done():
		return nil
	default:
	}
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// reject sends the error payload for a classified rejection. Delivery is
// best effort.
func (h *Handler) reject(ctx context.Context, conn Conn, err error, logger zerolog.Logger) {
	if sendErr := conn.Send(ctx, ErrorPayload(err.Error())); sendErr != nil {
		logger.Debug().Err(sendErr).Msg("Failed to send error payload")
	}
}

func classify(err error) string {
	switch {
	case err == nil:
		return "ok"
	case access.KindOf(err) == access.KindBadRequest:
		return "bad_request"
	case access.KindOf(err) == access.KindForbidden:
		return "forbidden"
	case access.KindOf(err) == access.KindNotFound:
		return "not_found"
	case errors.Is(err, logtail.ErrLivenessFailure):
		return "liveness_failure"
	case errors.Is(err, logtail.ErrRead):
		return "io_error"
	default:
		return "error"
	}
}
