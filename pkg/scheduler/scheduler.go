// Package scheduler owns the persistent check queue: membership checks
// are queued per user and group pair, processed in bounded batches, and
// survive process restarts through a state store.
package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/codeGROOVE-dev/groupcheck/pkg/profile"
	"github.com/codeGROOVE-dev/groupcheck/pkg/store"
)

// Queue item lifecycle states.
const (
	StatusPending    = "PENDING"
	StatusProcessing = "PROCESSING"
	StatusCompleted  = "COMPLETED"
	StatusError      = "ERROR"
)

const (
	defaultBatchSize       = 5
	defaultRequeueDelay    = 100 * time.Millisecond
	defaultMaxRecentChecks = 200

	stateBlob = "state"
)

// CheckQueueItem is one pending membership check.
type CheckQueueItem struct {
	ID       string    `json:"id"`
	UserID   string    `json:"userId"`
	UserName string    `json:"userName,omitempty"`
	GroupID  string    `json:"groupId"`
	Status   string    `json:"status"`
	Priority int       `json:"priority,omitempty"`
	AddedAt  time.Time `json:"addedAt"`
}

// AppState is the whole persisted application state. It is replaced as
// a unit on every mutation.
type AppState struct {
	Queue           []CheckQueueItem             `json:"checkQueue"`
	Groups          []profile.GroupInfo          `json:"groups"`
	RecentChecks    []profile.MembershipStatus   `json:"recentChecks"`
	Users           map[string]*profile.UserInfo `json:"users"`
	AutoDetect      bool                         `json:"autoDetect"`
	MaxRecentChecks int                          `json:"maxRecentChecks"`
	IsProcessing    bool                         `json:"isProcessing"`
}

// Resolver turns a profile identifier into user information.
type Resolver interface {
	Resolve(ctx context.Context, identifier string) (*profile.UserInfo, error)
}

// Classifier determines a user's role in a group.
type Classifier interface {
	Membership(ctx context.Context, userID, groupID string) (profile.Role, error)
}

// Notifier delivers user-facing notifications.
type Notifier interface {
	Notify(ctx context.Context, title, message string) error
}

// Scheduler coordinates queueing, batch processing, and state persistence.
type Scheduler struct {
	mu    sync.Mutex
	state AppState

	store      store.Store
	resolver   Resolver
	classifier Classifier
	notifier   Notifier
	logger     *slog.Logger

	// processing guards against overlapping batch runs.
	processing atomic.Bool

	batchSize    int
	requeueDelay time.Duration

	now      func() time.Time
	schedule func(d time.Duration, fn func())
	nextID   atomic.Int64
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithBatchSize overrides the per-run batch bound.
func WithBatchSize(n int) Option {
	return func(s *Scheduler) { s.batchSize = n }
}

// WithRequeueDelay overrides the pause before a follow-up batch run.
func WithRequeueDelay(d time.Duration) Option {
	return func(s *Scheduler) { s.requeueDelay = d }
}

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithScheduleFunc overrides deferred execution. Used in tests to make
// async triggering synchronous or inert.
func WithScheduleFunc(schedule func(d time.Duration, fn func())) Option {
	return func(s *Scheduler) { s.schedule = schedule }
}

// New creates a Scheduler, rehydrating state from the store. A missing
// blob starts fresh; a corrupt blob is an error so stale state is never
// silently discarded.
func New(st store.Store, resolver Resolver, classifier Classifier, notifier Notifier, logger *slog.Logger, opts ...Option) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		store:        st,
		resolver:     resolver,
		classifier:   classifier,
		notifier:     notifier,
		logger:       logger,
		batchSize:    defaultBatchSize,
		requeueDelay: defaultRequeueDelay,
		now:          time.Now,
		state: AppState{
			AutoDetect:      true,
			MaxRecentChecks: defaultMaxRecentChecks,
			Users:           make(map[string]*profile.UserInfo),
		},
	}
	s.schedule = func(d time.Duration, fn func()) { time.AfterFunc(d, fn) }
	for _, opt := range opts {
		opt(s)
	}

	data, err := st.Load(stateBlob)
	switch {
	case errors.Is(err, store.ErrNotFound):
		// First run.
	case err != nil:
		return nil, fmt.Errorf("load state: %w", err)
	default:
		if err := json.Unmarshal(data, &s.state); err != nil {
			return nil, fmt.Errorf("decode state: %w", err)
		}
		if s.state.Users == nil {
			s.state.Users = make(map[string]*profile.UserInfo)
		}
		if s.state.MaxRecentChecks <= 0 {
			s.state.MaxRecentChecks = defaultMaxRecentChecks
		}
		s.recoverOrphans()
	}

	return s, nil
}

// recoverOrphans resets items a previous process left mid-batch. They
// stay in the queue and run again on the next batch.
func (s *Scheduler) recoverOrphans() {
	s.state.IsProcessing = false
	for i := range s.state.Queue {
		if s.state.Queue[i].Status == StatusProcessing {
			s.logger.Warn("recovering orphaned queue item",
				"id", s.state.Queue[i].ID,
				"user_id", s.state.Queue[i].UserID,
				"group_id", s.state.Queue[i].GroupID)
			s.state.Queue[i].Status = StatusPending
		}
	}
}

// persistLocked saves the whole state. Callers must hold mu. Persistence
// failures are logged, not propagated: in-memory state stays canonical.
func (s *Scheduler) persistLocked() {
	data, err := json.Marshal(&s.state)
	if err != nil {
		s.logger.Error("state marshal failed", "error", err)
		return
	}
	if err := s.store.Save(stateBlob, data); err != nil {
		s.logger.Error("state save failed", "error", err)
	}
}

// newItemID returns a process-unique queue item id.
func (s *Scheduler) newItemID(userID, groupID string) string {
	return fmt.Sprintf("%s-%s-%d-%d", userID, groupID, s.now().UnixMilli(), s.nextID.Add(1))
}

// Snapshot returns a deep copy of the current state for inspection.
func (s *Scheduler) Snapshot() AppState {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := s.state
	cp.Queue = append([]CheckQueueItem(nil), s.state.Queue...)
	cp.Groups = append([]profile.GroupInfo(nil), s.state.Groups...)
	cp.RecentChecks = append([]profile.MembershipStatus(nil), s.state.RecentChecks...)
	cp.Users = make(map[string]*profile.UserInfo, len(s.state.Users))
	for id, u := range s.state.Users {
		uc := *u
		cp.Users[id] = &uc
	}
	return cp
}

// AutoDetectEnabled reports whether detected profiles should be queued.
func (s *Scheduler) AutoDetectEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.AutoDetect
}

// SetAutoDetect toggles automatic queueing of detected profiles.
func (s *Scheduler) SetAutoDetect(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.AutoDetect = enabled
	s.persistLocked()
}

// SetMaxRecentChecks bounds the recent check history, trimming the
// existing history when the new bound is smaller.
func (s *Scheduler) SetMaxRecentChecks(n int) {
	if n <= 0 {
		n = defaultMaxRecentChecks
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.MaxRecentChecks = n
	if len(s.state.RecentChecks) > n {
		s.state.RecentChecks = s.state.RecentChecks[:n]
	}
	s.persistLocked()
}

// SetNotifier replaces the notification sink. Call before any checks
// run; the notifier is not guarded by the state mutex.
func (s *Scheduler) SetNotifier(n Notifier) {
	s.notifier = n
}

// notify delivers a notification, logging delivery failures.
func (s *Scheduler) notify(ctx context.Context, title, message string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, title, message); err != nil {
		s.logger.Warn("notification delivery failed", "title", title, "error", err)
	}
}
