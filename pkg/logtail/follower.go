package logtail

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
	"unicode/utf8"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Heartbeat payloads.
const (
	PingPayload = "ping"
	PongPayload = "pong"
)

const (
	DefaultPollInterval      = time.Second
	DefaultHeartbeatInterval = 15 * time.Second
	DefaultHeartbeatTimeout  = 5 * time.Second
	DefaultChunkSize         = 64 * 1024
)

// Channel is the message channel a follower writes to and reads heartbeat
// replies from.
type Channel interface {
	Send(ctx context.Context, text string) error
	Receive(ctx context.Context) (string, error)
}

// Config holds follower configuration
type Config struct {
	PollInterval      time.Duration
	HeartbeatInterval time.Duration
	HeartbeatTimeout  time.Duration
	ChunkSize         int
	Clock             clock.Clock
	Logger            zerolog.Logger

	// OnSend is called with the size of every markup payload delivered.
	OnSend func(bytes int)
	// OnHeartbeat is called after every probe attempt with its outcome.
	OnHeartbeat func(at time.Time, err error)
}

// Follower streams bytes appended to a file and probes the peer with
// heartbeats while doing so.
type Follower struct {
	cfg Config
}

// NewFollower creates a follower, filling unset fields with defaults.
func NewFollower(cfg Config) *Follower {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if cfg.HeartbeatTimeout <= 0 {
		cfg.HeartbeatTimeout = DefaultHeartbeatTimeout
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	return &Follower{cfg: cfg}
}

// Follow delivers new content read from r until ctx is cancelled, a read or
// send fails, or a heartbeat probe fails. It never returns nil.
func (f *Follower) Follow(ctx context.Context, r io.Reader, ch Channel) error {
	group, gctx := errgroup.WithContext(ctx)

	// The heartbeat interval counts from the start of the follow.
	beat := f.cfg.Clock.Timer(f.cfg.HeartbeatInterval)
	defer beat.Stop()

	group.Go(func() error {
		return f.poll(gctx, r, ch)
	})
	group.Go(func() error {
		return f.heartbeat(gctx, ch, beat)
	})

	return group.Wait()
}

func (f *Follower) poll(ctx context.Context, r io.Reader, ch Channel) error {
	buf := make([]byte, f.cfg.ChunkSize)
	var pending []byte

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := r.Read(buf)
		if n > 0 {
			data := append(pending, buf[:n]...)
			complete, rest := splitIncomplete(data)
			pending = append([]byte(nil), rest...)

			if len(complete) > 0 {
				markup := toMarkup(string(complete))
				if sendErr := ch.Send(ctx, markup); sendErr != nil {
					return fmt.Errorf("failed to send tail content: %w", sendErr)
				}
				if f.cfg.OnSend != nil {
					f.cfg.OnSend(len(markup))
				}
			}
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: %w", ErrRead, err)
		}
		if n > 0 {
			continue
		}

		if err := f.wait(ctx, f.cfg.PollInterval); err != nil {
			return err
		}
	}
}

func (f *Follower) wait(ctx context.Context, d time.Duration) error {
	timer := f.cfg.Clock.Timer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (f *Follower) heartbeat(ctx context.Context, ch Channel, timer *clock.Timer) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		err := f.probe(ctx, ch)
		if err == nil {
			timer.Reset(f.cfg.HeartbeatInterval)
		}
		if f.cfg.OnHeartbeat != nil {
			f.cfg.OnHeartbeat(f.cfg.Clock.Now(), err)
		}
		if err != nil {
			return err
		}
	}
}

// probe sends a ping and waits for the next inbound message, which must be
// exactly pong. The timeout starts when the ping is sent.
func (f *Follower) probe(ctx context.Context, ch Channel) error {
	waitCtx, cancel := f.cfg.Clock.WithTimeout(ctx, f.cfg.HeartbeatTimeout)
	defer cancel()

	if err := ch.Send(ctx, PingPayload); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: send: %w", ErrLivenessFailure, err)
	}

	reply, err := ch.Receive(waitCtx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %w", ErrLivenessFailure, err)
	}
	if reply != PongPayload {
		return fmt.Errorf("%w: unexpected reply %q", ErrLivenessFailure, truncate(reply, 32))
	}

	f.cfg.Logger.Debug().Msg("Heartbeat acknowledged")
	return nil
}

// splitIncomplete separates a trailing, not yet complete UTF-8 sequence from
// data so it can be prefixed to the next read.
func splitIncomplete(data []byte) ([]byte, []byte) {
	for i := len(data) - 1; i >= 0 && i >= len(data)-utf8.UTFMax; i-- {
		if !utf8.RuneStart(data[i]) {
			continue
		}
		if utf8.FullRune(data[i:]) {
			return data, nil
		}
		return data[:i], data[i:]
	}
	return data, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
