// Package messenger delivers messages to consumer contexts that may
// not be listening yet, retrying with a capped exponential backoff.
package messenger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/codeGROOVE-dev/groupcheck/pkg/messaging"
)

// ErrTargetGone is returned when the delivery target no longer exists;
// retrying cannot help.
var ErrTargetGone = errors.New("delivery target gone")

const (
	defaultMaxAttempts = 3
	defaultReadyWait   = time.Second

	baseDelay = time.Second
	maxDelay  = 5 * time.Second
)

// Transport sends a message to a named target.
type Transport interface {
	Send(ctx context.Context, target string, msg messaging.Message) error
}

// Directory reports whether a target exists and is ready to receive.
type Directory interface {
	Lookup(target string) (exists, ready bool)
}

// Messenger wraps a transport with retry delivery.
type Messenger struct {
	transport   Transport
	directory   Directory
	logger      *slog.Logger
	maxAttempts int
	readyWait   time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
}

// Option configures a Messenger.
type Option func(*Messenger)

// WithMaxAttempts overrides the delivery attempt bound.
func WithMaxAttempts(n int) Option {
	return func(m *Messenger) { m.maxAttempts = n }
}

// WithSleep overrides the wait primitive. Used in tests.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(m *Messenger) { m.sleep = sleep }
}

// New creates a Messenger over a transport and target directory.
func New(transport Transport, directory Directory, logger *slog.Logger, opts ...Option) *Messenger {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Messenger{
		transport:   transport,
		directory:   directory,
		logger:      logger,
		maxAttempts: defaultMaxAttempts,
		readyWait:   defaultReadyWait,
		sleep:       sleepContext,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Deliver sends a message, retrying transient failures. Between
// attempts it backs off, then re-checks the target: one that
// disappeared ends delivery with ErrTargetGone, and one that exists
// but is not yet ready gets one extra wait before the retry.
func (m *Messenger) Deliver(ctx context.Context, target string, msg messaging.Message) error {
	var lastErr error
	for attempt := 1; attempt <= m.maxAttempts; attempt++ {
		lastErr = m.transport.Send(ctx, target, msg)
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, messaging.ErrNoSubscriber) {
			return fmt.Errorf("%w: %s", ErrTargetGone, target)
		}
		if attempt == m.maxAttempts {
			break
		}

		delay := backoffDelay(attempt)
		m.logger.Debug("delivery failed, backing off",
			"target", target, "attempt", attempt, "delay", delay, "error", lastErr)
		if err := m.sleep(ctx, delay); err != nil {
			return err
		}

		exists, ready := m.directory.Lookup(target)
		if !exists {
			return fmt.Errorf("%w: %s", ErrTargetGone, target)
		}
		if !ready {
			m.logger.Debug("target not ready, waiting", "target", target, "attempt", attempt)
			if err := m.sleep(ctx, m.readyWait); err != nil {
				return err
			}
		}
	}
	return fmt.Errorf("deliver to %s after %d attempts: %w", target, m.maxAttempts, lastErr)
}

// backoffDelay doubles per attempt, capped at maxDelay.
func backoffDelay(attempt int) time.Duration {
	d := baseDelay << (attempt - 1)
	if d > maxDelay {
		return maxDelay
	}
	return d
}
