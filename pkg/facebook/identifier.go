package facebook

import (
	"net/url"
	"regexp"
	"strings"
)

// groupUserPattern matches the member page path /groups/<groupId>/user/<userId>.
// The captured id is the user, not the group.
var groupUserPattern = regexp.MustCompile(`/groups/\d+/user/(\d+)`)

// excludedSlugs are reserved platform route names that can never be usernames.
var excludedSlugs = map[string]bool{
	"groups":      true,
	"pages":       true,
	"watch":       true,
	"marketplace": true,
	"friends":     true,
	"events":      true,
	"gaming":      true,
	"login":       true,
	"help":        true,
	"settings":    true,
	"photo":       true,
	"photo.php":   true,
	"story.php":   true,
	"videos":      true,
	"reels":       true,
}

// ExtractIdentifier normalizes free-form input (numeric id, username, or
// profile URL) into a canonical identifier. It never fails: when no URL
// structure is recognized it returns the trimmed input unchanged.
func ExtractIdentifier(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ""
	}

	// Treat the input as a potential URL, assuming https when no scheme
	// is present.
	raw := trimmed
	if !strings.HasPrefix(raw, "http") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err == nil && strings.Contains(u.Hostname(), "facebook.com") {
		// Pattern: /groups/{groupId}/user/{userId}
		if m := groupUserPattern.FindStringSubmatch(u.Path); m != nil {
			return m[1]
		}

		// Pattern: /profile.php?id={userId}
		if u.Path == "/profile.php" {
			if id := u.Query().Get("id"); id != "" {
				return id
			}
		}

		// Pattern: /{username}
		for _, part := range strings.Split(u.Path, "/") {
			if part == "" {
				continue
			}
			if !excludedSlugs[part] && !strings.Contains(part, ".php") {
				return part
			}
			// Only the first non-empty segment is a username candidate.
			break
		}
	}

	// Not a recognizable URL, assume it is already a raw id or username.
	return trimmed
}
