package scheduler

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/codeGROOVE-dev/groupcheck/pkg/profile"
)

// AddToQueue resolves a profile identifier and enqueues one check per
// configured group, skipping pairs already queued. Returns the number
// of items added. A failed resolution notifies the user and adds
// nothing.
func (s *Scheduler) AddToQueue(ctx context.Context, identifier, userName string) (int, error) {
	user, err := s.resolver.Resolve(ctx, identifier)
	if err != nil {
		s.logger.Warn("profile resolution failed", "identifier", identifier, "error", err)
		s.notify(ctx, "User Not Found",
			fmt.Sprintf("Could not find a Facebook profile for %q", identifier))
		return 0, fmt.Errorf("resolve %q: %w", identifier, err)
	}
	if userName == "" {
		userName = user.Name
	}

	s.mu.Lock()
	s.state.Users[user.ID] = user

	added := 0
	for _, group := range s.state.Groups {
		if s.pairQueuedLocked(user.ID, group.ID) {
			continue
		}
		s.state.Queue = append(s.state.Queue, CheckQueueItem{
			ID:       s.newItemID(user.ID, group.ID),
			UserID:   user.ID,
			UserName: userName,
			GroupID:  group.ID,
			Status:   StatusPending,
			AddedAt:  s.now(),
		})
		added++
	}
	if added > 0 {
		s.persistLocked()
	}
	s.mu.Unlock()

	s.logger.Info("profile queued", "user_id", user.ID, "items_added", added)

	if added > 0 {
		bg := context.WithoutCancel(ctx)
		s.schedule(0, func() {
			if err := s.ProcessQueue(bg); err != nil {
				s.logger.Error("queue processing failed", "error", err)
			}
		})
	}
	return added, nil
}

// pairQueuedLocked reports whether any queue item exists for a user and
// group pair, whatever its status. A retained ERROR item blocks
// re-adding until it is removed from the queue.
func (s *Scheduler) pairQueuedLocked(userID, groupID string) bool {
	for i := range s.state.Queue {
		if s.state.Queue[i].UserID == userID && s.state.Queue[i].GroupID == groupID {
			return true
		}
	}
	return false
}

// RemoveFromQueue deletes a queue item by id.
func (s *Scheduler) RemoveFromQueue(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.state.Queue {
		if s.state.Queue[i].ID == id {
			s.state.Queue = append(s.state.Queue[:i], s.state.Queue[i+1:]...)
			s.persistLocked()
			return true
		}
	}
	return false
}

// ProcessQueue runs one batch of pending checks. At most one run is
// active at a time; overlapping calls return immediately. When pending
// items remain after the batch, a follow-up run is scheduled.
func (s *Scheduler) ProcessQueue(ctx context.Context) error {
	if !s.processing.CompareAndSwap(false, true) {
		s.logger.Debug("queue processing already active")
		return nil
	}
	defer s.processing.Store(false)

	batch := s.takeBatch()
	if len(batch) == 0 {
		return nil
	}
	s.logger.Info("processing queue batch", "size", len(batch))

	// One goroutine per item; item failures settle as ERROR status and
	// never abort the batch.
	results := make([]profile.MembershipStatus, len(batch))
	errs := make([]error, len(batch))
	var g errgroup.Group
	g.SetLimit(s.batchSize)
	for i, item := range batch {
		g.Go(func() error {
			results[i], errs[i] = s.CheckSingleMembership(ctx, item)
			return nil
		})
	}
	g.Wait() //nolint:errcheck // goroutines always return nil

	pendingRemain := s.settleBatch(batch, errs)

	if pendingRemain {
		bg := context.WithoutCancel(ctx)
		s.schedule(s.requeueDelay, func() {
			if err := s.ProcessQueue(bg); err != nil {
				s.logger.Error("queue processing failed", "error", err)
			}
		})
	}
	return nil
}

// takeBatch selects up to batchSize pending items in insertion order and
// marks them PROCESSING.
func (s *Scheduler) takeBatch() []CheckQueueItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	var batch []CheckQueueItem
	for i := range s.state.Queue {
		if len(batch) == s.batchSize {
			break
		}
		if s.state.Queue[i].Status != StatusPending {
			continue
		}
		s.state.Queue[i].Status = StatusProcessing
		batch = append(batch, s.state.Queue[i])
	}
	if len(batch) > 0 {
		s.state.IsProcessing = true
		s.persistLocked()
	}
	return batch
}

// settleBatch records final statuses, purges completed items, and
// reports whether pending items remain.
func (s *Scheduler) settleBatch(batch []CheckQueueItem, errs []error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, item := range batch {
		status := StatusCompleted
		if errs[i] != nil {
			status = StatusError
			s.logger.Warn("queue item failed",
				"id", item.ID, "user_id", item.UserID, "group_id", item.GroupID, "error", errs[i])
		}
		for j := range s.state.Queue {
			if s.state.Queue[j].ID == item.ID {
				s.state.Queue[j].Status = status
				break
			}
		}
	}

	// Completed items carry no further information; their results live
	// in the recent check history.
	kept := s.state.Queue[:0]
	pendingRemain := false
	for _, item := range s.state.Queue {
		if item.Status == StatusCompleted {
			continue
		}
		if item.Status == StatusPending {
			pendingRemain = true
		}
		kept = append(kept, item)
	}
	s.state.Queue = kept
	s.state.IsProcessing = false
	s.persistLocked()
	return pendingRemain
}

// Drain processes batches until no pending or running items remain.
// Used by one-shot command runs where nothing else drives the queue.
func (s *Scheduler) Drain(ctx context.Context) error {
	for {
		if err := s.ProcessQueue(ctx); err != nil {
			return err
		}
		busy := false
		s.mu.Lock()
		for i := range s.state.Queue {
			if s.state.Queue[i].Status == StatusPending || s.state.Queue[i].Status == StatusProcessing {
				busy = true
				break
			}
		}
		s.mu.Unlock()
		if !busy {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.requeueDelay):
		}
	}
}

// CheckSingleMembership runs one check: ensures user info is resolved,
// classifies the role, and records the result in the recent history.
// The returned status is recorded even when the classification fails.
func (s *Scheduler) CheckSingleMembership(ctx context.Context, item CheckQueueItem) (profile.MembershipStatus, error) {
	// Profile resolution and classification hit different pages; run
	// them concurrently when the user is not yet cached.
	userCh := make(chan *profile.UserInfo, 1)
	go func() { userCh <- s.ensureUser(ctx, item.UserID) }()

	role, err := s.classifier.Membership(ctx, item.UserID, item.GroupID)
	user := <-userCh

	status := profile.MembershipStatus{
		UserID:    item.UserID,
		GroupID:   item.GroupID,
		CheckedAt: s.now(),
		UserInfo:  user,
		GroupInfo: s.groupByID(item.GroupID),
	}
	if err != nil {
		status.Status = profile.CheckError
		s.AddRecentCheck(status)
		return status, fmt.Errorf("membership check %s/%s: %w", item.UserID, item.GroupID, err)
	}
	status.Status = role.CheckStatus()
	s.AddRecentCheck(status)

	s.notifyResult(ctx, item.UserName, status, role)
	return status, nil
}

// ensureUser returns cached user info, resolving and caching it when
// absent. Resolution failure is tolerated: the check proceeds with the
// bare id.
func (s *Scheduler) ensureUser(ctx context.Context, userID string) *profile.UserInfo {
	s.mu.Lock()
	user := s.state.Users[userID]
	s.mu.Unlock()
	if user != nil {
		return user
	}

	resolved, err := s.resolver.Resolve(ctx, userID)
	if err != nil {
		s.logger.Debug("user info resolution failed", "user_id", userID, "error", err)
		return &profile.UserInfo{ID: userID}
	}

	s.mu.Lock()
	s.state.Users[userID] = resolved
	s.persistLocked()
	s.mu.Unlock()
	return resolved
}

// groupByID returns a copy of the configured group or nil.
func (s *Scheduler) groupByID(groupID string) *profile.GroupInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.state.Groups {
		if s.state.Groups[i].ID == groupID {
			g := s.state.Groups[i]
			return &g
		}
	}
	return nil
}

func (s *Scheduler) notifyResult(ctx context.Context, userName string, status profile.MembershipStatus, role profile.Role) {
	name := userName
	if name == "" && status.UserInfo != nil && status.UserInfo.Name != "" {
		name = status.UserInfo.Name
	}
	if name == "" {
		name = status.UserID
	}
	groupName := status.GroupID
	if status.GroupInfo != nil && status.GroupInfo.Name != "" {
		groupName = status.GroupInfo.Name
	}

	var message string
	switch role {
	case profile.RoleAdmin:
		message = fmt.Sprintf("%s is an admin of %s", name, groupName)
	case profile.RoleModerator:
		message = fmt.Sprintf("%s is a moderator of %s", name, groupName)
	case profile.RoleMember:
		message = fmt.Sprintf("%s is a member of %s", name, groupName)
	case profile.RoleNotMember:
		message = fmt.Sprintf("%s is not a member of %s", name, groupName)
	default:
		message = fmt.Sprintf("%s in %s: %s", name, groupName, role)
	}
	s.notify(ctx, "Membership Check", message)
}
