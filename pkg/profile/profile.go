// Package profile defines the common types for Facebook user and group
// membership extraction.
package profile

import (
	"errors"
	"time"
)

// Common errors returned by the extraction packages.
var (
	ErrAuthRequired    = errors.New("authentication required")
	ErrNoCookies       = errors.New("no cookies available")
	ErrProfileNotFound = errors.New("profile not found")
	ErrRateLimited     = errors.New("rate limited")
)

// Role is the membership relationship a user holds in a group.
type Role string

// Roles, most specific first. NOT_MEMBER is both a role and the
// classifier default when no indicator matches.
const (
	RoleAdmin     Role = "ADMIN"
	RoleModerator Role = "MODERATOR"
	RoleMember    Role = "MEMBER"
	RoleNotMember Role = "NOT_MEMBER"
)

// CheckStatus is the recorded outcome of one membership check: a Role,
// ERROR when the check failed, or the transient CHECKING placeholder
// written before the real result is known.
type CheckStatus string

// Non-role check outcomes.
const (
	CheckError    CheckStatus = "ERROR"
	CheckChecking CheckStatus = "CHECKING"
)

// CheckStatus converts a role into its recorded form.
func (r Role) CheckStatus() CheckStatus { return CheckStatus(r) }

// Images holds the image URLs extracted from a profile page.
type Images struct {
	Cover  string `json:"cover,omitempty"`
	Avatar string `json:"avatar,omitempty"`
}

// UserInfo is the structured record extracted from a profile page.
// ID is the only required field; the fallback extraction path produces
// an id-only record. Treated as immutable once created.
type UserInfo struct {
	ID            string `json:"id"`
	Name          string `json:"name,omitempty"`
	AlternateName string `json:"alternateName,omitempty"`
	Gender        string `json:"gender,omitempty"`
	URL           string `json:"url,omitempty"`
	Images        Images `json:"images"`
}

// GroupInfo is a user-managed group entry, unique by ID within the
// group collection. Re-adding an ID replaces the previous entry.
type GroupInfo struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	URL    string `json:"url"`
	Avatar string `json:"avatar,omitempty"`
}

// MembershipStatus records the result of checking one (user, group)
// pair. GroupInfo is a denormalized snapshot of the group at check time.
type MembershipStatus struct {
	UserID    string      `json:"userId"`
	GroupID   string      `json:"groupId"`
	Status    CheckStatus `json:"status"`
	CheckedAt time.Time   `json:"checkedAt"`
	UserInfo  *UserInfo   `json:"userInfo,omitempty"`
	GroupInfo *GroupInfo  `json:"groupInfo,omitempty"`
}
