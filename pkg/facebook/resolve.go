package facebook

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/codeGROOVE-dev/groupcheck/pkg/httpcache"
	"github.com/codeGROOVE-dev/groupcheck/pkg/profile"
)

// headerRendererMarker is a structural key unique to the profile-header
// rendering. The user object we want is a sibling inside the same
// renderer object.
const headerRendererMarker = `"XFBProfileEntityConvergenceHeaderRenderer"`

// fallbackIDPatterns recover just the numeric id when the header
// renderer is absent, in precedence order.
var fallbackIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`"props":\{[^{}]*?"userID":"(\d+)"`),
	regexp.MustCompile(`"userID":"(\d+)"`),
	regexp.MustCompile(`"actorID":"(\d+)"`),
}

// Resolve fetches the profile page for an identifier and extracts a
// UserInfo record. One fetch, no internal retries beyond the transport
// layer; returns profile.ErrProfileNotFound when no id can be recovered.
func (c *Client) Resolve(ctx context.Context, identifier string) (*profile.UserInfo, error) {
	profileURL := fmt.Sprintf("%s/%s/", c.baseURL, identifier)

	c.logger.InfoContext(ctx, "fetching facebook profile", "identifier", identifier, "url", profileURL)

	req, err := newRequest(ctx, profileURL)
	if err != nil {
		return nil, err
	}

	// Shell pages served to logged-out or rate-limited sessions carry
	// none of the extraction markers; keep them out of the cache.
	body, err := httpcache.FetchURLWithValidator(ctx, c.cache, c.httpClient, req, c.logger, isProfilePage)
	if err != nil {
		return nil, fmt.Errorf("profile fetch failed: %w", err)
	}

	info := parseUserInfo(string(body), c.logger)
	if info == nil {
		return nil, profile.ErrProfileNotFound
	}
	return info, nil
}

// isProfilePage reports whether a response body contains any of the
// markers the extraction strategies look for.
func isProfilePage(body []byte) bool {
	s := string(body)
	return strings.Contains(s, headerRendererMarker) ||
		strings.Contains(s, `"userID":"`) ||
		strings.Contains(s, `"actorID":"`)
}

// userAttempt is one extraction strategy. It returns nil on no match;
// strategies never raise for malformed documents.
type userAttempt func(html string) *profile.UserInfo

// userAttempts are tried in order, first success wins. A future markup
// change only needs a new attempt at the front.
var userAttempts = []userAttempt{headerRendererUser, fallbackIDUser}

func parseUserInfo(html string, logger *slog.Logger) *profile.UserInfo {
	for _, attempt := range userAttempts {
		if info := attempt(html); info != nil {
			logger.Debug("facebook profile parsed",
				"id", info.ID, "name", info.Name, "partial", info.Name == "")
			return info
		}
	}
	logger.Debug("no user information found in profile page")
	return nil
}

// rawUser mirrors the shape of the embedded user object.
type rawUser struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	AlternateName string `json:"alternate_name"`
	Gender        string `json:"gender"`
	URL           string `json:"url"`
	CoverPhoto    struct {
		Photo struct {
			Image struct {
				URI string `json:"uri"`
			} `json:"image"`
		} `json:"photo"`
	} `json:"cover_photo"`
	ProfilePicLarge struct {
		URI string `json:"uri"`
	} `json:"profilePicLarge"`
}

// headerRendererUser isolates the nested "user" object next to the
// header renderer marker via balanced-brace scanning and decodes it.
func headerRendererUser(html string) *profile.UserInfo {
	markerIdx := strings.Index(html, headerRendererMarker)
	if markerIdx < 0 {
		return nil
	}

	// Scan backward to the start of the enclosing renderer object.
	rendererStart := strings.LastIndex(html[:markerIdx], "{")
	if rendererStart < 0 {
		return nil
	}

	keyIdx := strings.Index(html[rendererStart:], `"user":`)
	if keyIdx < 0 {
		return nil
	}

	objStart := strings.Index(html[rendererStart+keyIdx:], "{")
	if objStart < 0 {
		return nil
	}
	objStart += rendererStart + keyIdx

	userJSON, ok := balancedObject(html, objStart)
	if !ok {
		return nil
	}

	var raw rawUser
	if err := json.Unmarshal([]byte(userJSON), &raw); err != nil {
		// Malformed embedded JSON is a no-match, not an error.
		return nil
	}
	if raw.ID == "" {
		return nil
	}

	return &profile.UserInfo{
		ID:            raw.ID,
		Name:          raw.Name,
		AlternateName: raw.AlternateName,
		Gender:        raw.Gender,
		URL:           raw.URL,
		Images: profile.Images{
			Cover:  raw.CoverPhoto.Photo.Image.URI,
			Avatar: raw.ProfilePicLarge.URI,
		},
	}
}

// balancedObject returns the substring spanning the object that opens
// at start, tracking nesting depth across braces. ok is false when the
// object never closes.
func balancedObject(s string, start int) (string, bool) {
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// fallbackIDUser recovers just the numeric id. Ids must be non-zero and
// longer than 5 digits to guard against accidental short numeric matches.
func fallbackIDUser(html string) *profile.UserInfo {
	for _, pattern := range fallbackIDPatterns {
		m := pattern.FindStringSubmatch(html)
		if m == nil {
			continue
		}
		id := m[1]
		if id == "0" || len(id) <= 5 {
			continue
		}
		return &profile.UserInfo{ID: id}
	}
	return nil
}
