// Package messaging defines the message vocabulary and an in-process
// bus connecting the scheduler, daemon, and notification consumers.
package messaging

import (
	"context"
	"errors"
	"sync"
)

// Message types understood by the daemon and its consumers.
const (
	TypeUserProfileDetected = "USER_PROFILE_DETECTED"
	TypeProcessQueue        = "PROCESS_QUEUE"
	TypeNotification        = "NOTIFICATION"
	TypeCheckMembership     = "CHECK_MEMBERSHIP"
	TypeUserAndGroupID      = "USER_AND_GROUP_ID"
)

// Message is the envelope exchanged between components. Fields are
// populated per type; unused fields stay empty.
type Message struct {
	Type     string `json:"type"`
	Title    string `json:"title,omitempty"`
	Message  string `json:"message,omitempty"`
	UserName string `json:"userName,omitempty"`
	GroupID  string `json:"groupId,omitempty"`
	UserID   string `json:"userId,omitempty"`
}

// ErrNoSubscriber is returned when a send targets a context nobody has
// subscribed to.
var ErrNoSubscriber = errors.New("no subscriber for target")

// subscriber is one registered consumer endpoint.
type subscriber struct {
	ch    chan Message
	ready bool
}

// Bus routes messages to named subscriber contexts. Consumers subscribe
// under a context name and flip to ready once their receive loop runs.
type Bus struct {
	mu   sync.Mutex
	subs map[string]*subscriber
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string]*subscriber)}
}

// Subscribe registers a consumer context and returns its receive channel.
// A second subscribe under the same name replaces the first.
func (b *Bus) Subscribe(target string) <-chan Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	sub := &subscriber{ch: make(chan Message, 16)}
	b.subs[target] = sub
	return sub.ch
}

// SetReady marks a subscribed context as ready to receive.
func (b *Bus) SetReady(target string, ready bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub, ok := b.subs[target]; ok {
		sub.ready = ready
	}
}

// Unsubscribe removes a context and closes its channel.
func (b *Bus) Unsubscribe(target string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub, ok := b.subs[target]; ok {
		close(sub.ch)
		delete(b.subs, target)
	}
}

// Lookup reports whether a target exists and whether it is ready.
func (b *Bus) Lookup(target string) (exists, ready bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sub, ok := b.subs[target]
	if !ok {
		return false, false
	}
	return true, sub.ready
}

// Send delivers a message to a target context. Blocks when the target
// buffer is full until the consumer drains it or ctx ends.
func (b *Bus) Send(ctx context.Context, target string, msg Message) error {
	b.mu.Lock()
	sub, ok := b.subs[target]
	b.mu.Unlock()
	if !ok {
		return ErrNoSubscriber
	}

	select {
	case sub.ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
