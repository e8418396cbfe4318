package facebook

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/codeGROOVE-dev/groupcheck/pkg/profile"
)

func introCard(text string) string {
	return fmt.Sprintf(
		`{"profile_intro_card": {"context_items": {"nodes": [{"title": {"text": "%s Nhóm Thử Nghiệm"}}]}}}`,
		text)
}

func TestClassifyMembership(t *testing.T) {
	tests := []struct {
		name string
		html string
		want profile.Role
	}{
		{
			name: "admin plain text",
			html: introCard("Quản trị viên của"),
			want: profile.RoleAdmin,
		},
		{
			name: "moderator plain text",
			html: introCard("Người kiểm duyệt của"),
			want: profile.RoleModerator,
		},
		{
			name: "member plain text",
			html: introCard("Thành viên của"),
			want: profile.RoleMember,
		},
		{
			name: "not member plain text",
			html: introCard("không phải là thành viên của"),
			want: profile.RoleNotMember,
		},
		{
			name: "admin escaped text",
			html: introCard(`Qu\u1ea3n tr\u1ecb vi\u00ean c\u1ee7a`),
			want: profile.RoleAdmin,
		},
		{
			name: "not member escaped text",
			html: introCard(`kh\u00f4ng ph\u1ea3i l\u00e0 th\u00e0nh vi\u00ean c\u1ee7a`),
			want: profile.RoleNotMember,
		},
		{
			name: "member escaped text",
			html: introCard(`Th\u00e0nh vi\u00ean c\u1ee7a`),
			want: profile.RoleMember,
		},
		{
			// The not-member phrase contains the member phrase; precedence
			// must keep the longer phrase from being misread.
			name: "not member beats member substring",
			html: introCard("không phải là thành viên của") + introCard("Quản trị viên của"),
			want: profile.RoleNotMember,
		},
		{
			name: "intro card without indicator",
			html: introCard("some unrelated locale text"),
			want: profile.RoleNotMember,
		},
		{
			name: "added_time fallback when card absent",
			html: `{"membership": {"state": "ACTIVE", "added_time": 1699999999}}`,
			want: profile.RoleMember,
		},
		{
			name: "fallback ignored when card present",
			html: introCard("plain text") + `{"membership": {"added_time": 1699999999}}`,
			want: profile.RoleNotMember,
		},
		{
			name: "empty page",
			html: "<html></html>",
			want: profile.RoleNotMember,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyMembership(tt.html); got != tt.want {
				t.Errorf("classifyMembership() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMembership(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/groups/111/user/100001234567890/":
			fmt.Fprint(w, introCard("Quản trị viên của")) //nolint:errcheck // test server
		case "/groups/222/user/100001234567890/":
			fmt.Fprint(w, `{"membership": {"added_time": 1699999999}}`) //nolint:errcheck // test server
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client := &Client{
		httpClient: &http.Client{Timeout: 5 * time.Second},
		logger:     slog.Default(),
		baseURL:    srv.URL,
	}

	role, err := client.Membership(context.Background(), "100001234567890", "111")
	if err != nil {
		t.Fatalf("Membership failed: %v", err)
	}
	if role != profile.RoleAdmin {
		t.Errorf("role = %q, want %q", role, profile.RoleAdmin)
	}

	role, err = client.Membership(context.Background(), "100001234567890", "222")
	if err != nil {
		t.Fatalf("Membership failed: %v", err)
	}
	if role != profile.RoleMember {
		t.Errorf("role = %q, want %q", role, profile.RoleMember)
	}

	if _, err = client.Membership(context.Background(), "100001234567890", "333"); err == nil {
		t.Error("expected error for 404 member page")
	}
}

func TestMembershipStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, introCard("Thành viên của")) //nolint:errcheck // test server
	}))
	defer srv.Close()

	client := &Client{
		httpClient: &http.Client{Timeout: 5 * time.Second},
		logger:     slog.Default(),
		baseURL:    srv.URL,
	}

	status, err := client.MembershipStatus(context.Background(), "100001234567890", "111")
	if err != nil {
		t.Fatalf("MembershipStatus failed: %v", err)
	}
	if status.Status != profile.RoleMember.CheckStatus() {
		t.Errorf("status = %q, want %q", status.Status, profile.RoleMember)
	}
	if status.UserID != "100001234567890" || status.GroupID != "111" {
		t.Errorf("ids not carried through: %+v", status)
	}
	if status.CheckedAt.IsZero() {
		t.Error("CheckedAt not set")
	}
}
