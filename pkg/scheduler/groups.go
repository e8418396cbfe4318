package scheduler

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/codeGROOVE-dev/groupcheck/pkg/profile"
)

// Groups returns a copy of the configured groups.
func (s *Scheduler) Groups() []profile.GroupInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]profile.GroupInfo(nil), s.state.Groups...)
}

// AddGroup adds a group to the watch list. Re-adding an existing id
// replaces the entry, last write wins.
func (s *Scheduler) AddGroup(group profile.GroupInfo) error {
	if group.ID == "" {
		return errors.New("group id required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.state.Groups {
		if s.state.Groups[i].ID == group.ID {
			s.state.Groups[i] = group
			s.persistLocked()
			return nil
		}
	}
	s.state.Groups = append(s.state.Groups, group)
	s.persistLocked()
	return nil
}

// RemoveGroup deletes a group by id, along with its queued checks.
func (s *Scheduler) RemoveGroup(groupID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	found := false
	kept := s.state.Groups[:0]
	for _, g := range s.state.Groups {
		if g.ID == groupID {
			found = true
			continue
		}
		kept = append(kept, g)
	}
	if !found {
		return false
	}
	s.state.Groups = kept

	queue := s.state.Queue[:0]
	for _, item := range s.state.Queue {
		if item.GroupID == groupID {
			continue
		}
		queue = append(queue, item)
	}
	s.state.Queue = queue
	s.persistLocked()
	return true
}

// UpdateGroup replaces a configured group's details by id.
func (s *Scheduler) UpdateGroup(group profile.GroupInfo) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.state.Groups {
		if s.state.Groups[i].ID == group.ID {
			s.state.Groups[i] = group
			s.persistLocked()
			return true
		}
	}
	return false
}

// ClearGroups removes all configured groups and any queued checks.
func (s *Scheduler) ClearGroups() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Groups = nil
	s.state.Queue = nil
	s.persistLocked()
}

// ImportGroups merges a JSON group list into the configuration.
// Existing ids are updated in place, new ids appended. Returns the
// number of groups in the import.
func (s *Scheduler) ImportGroups(data []byte) (int, error) {
	var groups []profile.GroupInfo
	if err := json.Unmarshal(data, &groups); err != nil {
		return 0, fmt.Errorf("decode group import: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range groups {
		if g.ID == "" {
			continue
		}
		updated := false
		for i := range s.state.Groups {
			if s.state.Groups[i].ID == g.ID {
				s.state.Groups[i] = g
				updated = true
				break
			}
		}
		if !updated {
			s.state.Groups = append(s.state.Groups, g)
		}
	}
	s.persistLocked()
	return len(groups), nil
}

// ExportGroups serializes the configured groups as indented JSON.
func (s *Scheduler) ExportGroups() ([]byte, error) {
	s.mu.Lock()
	groups := append([]profile.GroupInfo(nil), s.state.Groups...)
	s.mu.Unlock()
	data, err := json.MarshalIndent(groups, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode group export: %w", err)
	}
	return data, nil
}
