package facebook

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/groupcheck/pkg/httpcache"
	"github.com/codeGROOVE-dev/groupcheck/pkg/profile"
)

// introCardPattern isolates the profile intro card span, which carries
// the rendered role text when the viewing session is a group admin.
var introCardPattern = regexp.MustCompile(
	`(?s)"profile_intro_card":\s*\{.*?"context_items":\s*\{.*?"nodes":\s*\[.*?\].*?\}`)

// membershipPattern is the structural fallback: a membership object with
// a join timestamp appears on member pages even when the intro card is
// missing.
var membershipPattern = regexp.MustCompile(`(?s)"membership":\s*\{.*?"added_time":\s*\d+`)

// roleIndicator pairs the two encodings Facebook serves for the same
// Vietnamese role phrase. Raw script blocks carry the unicode-escaped
// form, server-rendered markup the plain form.
type roleIndicator struct {
	escaped string
	plain   string
	role    profile.Role
}

// roleIndicators are checked in order. NOT_MEMBER must come first:
// "không phải là thành viên của" contains the member phrase as a
// substring, so a member check on a non-member page would match.
var roleIndicators = []roleIndicator{
	{
		escaped: `kh\u00f4ng ph\u1ea3i l\u00e0 th\u00e0nh vi\u00ean c\u1ee7a`,
		plain:   "không phải là thành viên của",
		role:    profile.RoleNotMember,
	},
	{
		escaped: `Qu\u1ea3n tr\u1ecb vi\u00ean c\u1ee7a`,
		plain:   "Quản trị viên của",
		role:    profile.RoleAdmin,
	},
	{
		escaped: `Ng\u01b0\u1eddi ki\u1ec3m duy\u1ec7t c\u1ee7a`,
		plain:   "Người kiểm duyệt của",
		role:    profile.RoleModerator,
	},
	{
		escaped: `Th\u00e0nh vi\u00ean c\u1ee7a`,
		plain:   "Thành viên của",
		role:    profile.RoleMember,
	},
}

// Membership fetches the group member page for a user and classifies
// their role in the group. Requires an authenticated session: anonymous
// fetches see a login wall and classify as NOT_MEMBER.
func (c *Client) Membership(ctx context.Context, userID, groupID string) (profile.Role, error) {
	memberURL := fmt.Sprintf("%s/groups/%s/user/%s/", c.baseURL, groupID, userID)

	c.logger.InfoContext(ctx, "fetching group member page",
		"user_id", userID, "group_id", groupID, "url", memberURL)

	req, err := newRequest(ctx, memberURL)
	if err != nil {
		return "", err
	}

	body, err := httpcache.FetchURLWithValidator(ctx, c.cache, c.httpClient, req, c.logger, isMemberPage)
	if err != nil {
		return "", fmt.Errorf("member page fetch failed: %w", err)
	}

	role := classifyMembership(string(body))
	c.logger.InfoContext(ctx, "membership classified",
		"user_id", userID, "group_id", groupID, "role", role)
	return role, nil
}

// isMemberPage reports whether a response body carries either
// classification structure. Login-wall shells carry neither and must
// not be cached.
func isMemberPage(body []byte) bool {
	return introCardPattern.Match(body) || membershipPattern.Match(body)
}

// classifyMembership determines a role from a member page body.
//
// The intro card span is authoritative when present: indicators are
// checked inside it in precedence order, and a span with no indicator
// at all means the page rendered without role text, which only happens
// for non-members. The added_time fallback applies only when the span
// itself is absent.
func classifyMembership(html string) profile.Role {
	if span := introCardPattern.FindString(html); span != "" {
		for _, ind := range roleIndicators {
			if strings.Contains(span, ind.escaped) || strings.Contains(span, ind.plain) {
				return ind.role
			}
		}
		return profile.RoleNotMember
	}

	if membershipPattern.MatchString(html) {
		return profile.RoleMember
	}

	return profile.RoleNotMember
}

// MembershipStatus runs a single membership check and packages the
// result as a timestamped status record.
func (c *Client) MembershipStatus(ctx context.Context, userID, groupID string) (profile.MembershipStatus, error) {
	role, err := c.Membership(ctx, userID, groupID)
	if err != nil {
		return profile.MembershipStatus{
			UserID:    userID,
			GroupID:   groupID,
			Status:    profile.CheckError,
			CheckedAt: time.Now(),
		}, err
	}
	return profile.MembershipStatus{
		UserID:    userID,
		GroupID:   groupID,
		Status:    role.CheckStatus(),
		CheckedAt: time.Now(),
	}, nil
}
