package scheduler

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/codeGROOVE-dev/groupcheck/pkg/profile"
)

// ErrNoGroups is returned when a check is requested with no groups
// configured.
var ErrNoGroups = errors.New("no groups configured")

// CheckUserMembership checks a user against every configured group at
// once, bypassing the queue. Placeholder CHECKING entries appear in the
// recent history immediately and are replaced as each group settles.
func (s *Scheduler) CheckUserMembership(ctx context.Context, identifier string) ([]profile.MembershipStatus, error) {
	s.mu.Lock()
	groups := append([]profile.GroupInfo(nil), s.state.Groups...)
	s.mu.Unlock()

	if len(groups) == 0 {
		s.notify(ctx, "No Groups Configured",
			"Add at least one group before running a membership check")
		return nil, ErrNoGroups
	}

	user, err := s.resolver.Resolve(ctx, identifier)
	if err != nil {
		s.notify(ctx, "User Not Found",
			fmt.Sprintf("Could not find a Facebook profile for %q", identifier))
		return nil, fmt.Errorf("resolve %q: %w", identifier, err)
	}

	s.mu.Lock()
	s.state.Users[user.ID] = user
	s.mu.Unlock()

	for i := range groups {
		s.AddRecentCheck(profile.MembershipStatus{
			UserID:    user.ID,
			GroupID:   groups[i].ID,
			Status:    profile.CheckChecking,
			CheckedAt: s.now(),
			UserInfo:  user,
			GroupInfo: &groups[i],
		})
	}

	results := make([]profile.MembershipStatus, len(groups))
	var g errgroup.Group
	for i, group := range groups {
		g.Go(func() error {
			role, err := s.classifier.Membership(ctx, user.ID, group.ID)
			status := profile.MembershipStatus{
				UserID:    user.ID,
				GroupID:   group.ID,
				CheckedAt: s.now(),
				UserInfo:  user,
				GroupInfo: &groups[i],
			}
			if err != nil {
				s.logger.Warn("membership check failed",
					"user_id", user.ID, "group_id", group.ID, "error", err)
				status.Status = profile.CheckError
			} else {
				status.Status = role.CheckStatus()
			}
			s.AddRecentCheck(status)
			results[i] = status
			return nil
		})
	}
	g.Wait() //nolint:errcheck // goroutines always return nil

	name := user.Name
	if name == "" {
		name = user.ID
	}
	s.notify(ctx, "Check Complete",
		fmt.Sprintf("Checked %s against %d group(s)", name, len(groups)))
	return results, nil
}

// AddRecentCheck records a check result at the head of the history,
// replacing any earlier entry for the same user and group pair, and
// trims the history to its bound.
func (s *Scheduler) AddRecentCheck(status profile.MembershipStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.state.RecentChecks[:0]
	for _, rc := range s.state.RecentChecks {
		if rc.UserID == status.UserID && rc.GroupID == status.GroupID {
			continue
		}
		kept = append(kept, rc)
	}

	s.state.RecentChecks = append([]profile.MembershipStatus{status}, kept...)
	if len(s.state.RecentChecks) > s.state.MaxRecentChecks {
		s.state.RecentChecks = s.state.RecentChecks[:s.state.MaxRecentChecks]
	}
	s.persistLocked()
}

// RecentChecks returns a copy of the recent check history, newest first.
func (s *Scheduler) RecentChecks() []profile.MembershipStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]profile.MembershipStatus(nil), s.state.RecentChecks...)
}

// ClearRecentChecks empties the check history.
func (s *Scheduler) ClearRecentChecks() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.RecentChecks = nil
	s.persistLocked()
}
