// Package daemon runs the long-lived coordinator: it listens on the
// message bus, reacts to detected profiles and check requests, and
// kicks the queue periodically.
package daemon

import (
	"context"
	"log/slog"
	"time"

	"github.com/codeGROOVE-dev/groupcheck/pkg/facebook"
	"github.com/codeGROOVE-dev/groupcheck/pkg/messaging"
)

// Context is the bus subscription name for the daemon itself.
const Context = "daemon"

// Queue is the scheduler surface the daemon drives.
type Queue interface {
	AddToQueue(ctx context.Context, identifier, userName string) (int, error)
	ProcessQueue(ctx context.Context) error
	AutoDetectEnabled() bool
}

// Deliverer forwards messages to consumer contexts with retry.
type Deliverer interface {
	Deliver(ctx context.Context, target string, msg messaging.Message) error
}

// Daemon coordinates the bus, the queue, and notification forwarding.
type Daemon struct {
	bus            *messaging.Bus
	queue          Queue
	deliverer      Deliverer
	logger         *slog.Logger
	interval       time.Duration
	sidebarContext string
}

// New creates a Daemon. interval is the periodic queue kick period.
func New(bus *messaging.Bus, queue Queue, deliverer Deliverer, logger *slog.Logger, interval time.Duration, sidebarContext string) *Daemon {
	if logger == nil {
		logger = slog.Default()
	}
	return &Daemon{
		bus:            bus,
		queue:          queue,
		deliverer:      deliverer,
		logger:         logger,
		interval:       interval,
		sidebarContext: sidebarContext,
	}
}

// Run processes bus messages and periodic kicks until ctx ends. The
// queue is kicked once at startup so checks stranded by a previous
// process run immediately.
func (d *Daemon) Run(ctx context.Context) error {
	ch := d.bus.Subscribe(Context)
	d.bus.SetReady(Context, true)
	defer d.bus.Unsubscribe(Context)

	d.kickQueue(ctx)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("daemon stopping")
			return ctx.Err()
		case <-ticker.C:
			d.kickQueue(ctx)
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			d.handle(ctx, msg)
		}
	}
}

func (d *Daemon) kickQueue(ctx context.Context) {
	if err := d.queue.ProcessQueue(ctx); err != nil {
		d.logger.Error("queue processing failed", "error", err)
	}
}

func (d *Daemon) handle(ctx context.Context, msg messaging.Message) {
	d.logger.Debug("handling message", "type", msg.Type)

	switch msg.Type {
	case messaging.TypeUserProfileDetected:
		if !d.queue.AutoDetectEnabled() {
			d.logger.Debug("auto detect disabled, ignoring detected profile")
			return
		}
		// The payload carries the detected profile in UserName; it may
		// be a username, an id, or a full profile URL.
		identifier := facebook.ExtractIdentifier(msg.UserName)
		if identifier == "" {
			d.logger.Warn("detected profile with empty identifier")
			return
		}
		if _, err := d.queue.AddToQueue(ctx, identifier, ""); err != nil {
			d.logger.Warn("queueing detected profile failed", "identifier", identifier, "error", err)
		}

	case messaging.TypeProcessQueue:
		d.kickQueue(ctx)

	case messaging.TypeNotification, messaging.TypeCheckMembership, messaging.TypeUserAndGroupID:
		// Display and direct-check messages are forwarded verbatim to
		// the sidebar consumer, which owns acting on them.
		if err := d.deliverer.Deliver(ctx, d.sidebarContext, msg); err != nil {
			d.logger.Warn("forwarding failed", "type", msg.Type, "error", err)
		}

	default:
		d.logger.Warn("unknown message type", "type", msg.Type)
	}
}
