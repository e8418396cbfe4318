package facebook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/codeGROOVE-dev/groupcheck/pkg/profile"
)

const rendererPage = `<html><script>{"data":{"profile_header":{` +
	`"__typename":"XFBProfileEntityConvergenceHeaderRenderer",` +
	`"user":{"id":"100001234567890","name":"Nguyen Van A",` +
	`"alternate_name":"Anh A","gender":"MALE",` +
	`"url":"https://www.facebook.com/nguyen.van.a",` +
	`"cover_photo":{"photo":{"image":{"uri":"https://cdn.example/cover.jpg"}}},` +
	`"profilePicLarge":{"uri":"https://cdn.example/avatar.jpg"}}}}}</script></html>`

func TestHeaderRendererUser(t *testing.T) {
	got := headerRendererUser(rendererPage)
	if got == nil {
		t.Fatal("headerRendererUser returned nil for renderer page")
	}

	want := &profile.UserInfo{
		ID:            "100001234567890",
		Name:          "Nguyen Van A",
		AlternateName: "Anh A",
		Gender:        "MALE",
		URL:           "https://www.facebook.com/nguyen.van.a",
		Images: profile.Images{
			Cover:  "https://cdn.example/cover.jpg",
			Avatar: "https://cdn.example/avatar.jpg",
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("user info mismatch (-want +got):\n%s", diff)
	}
}

func TestHeaderRendererUserNoMarker(t *testing.T) {
	if got := headerRendererUser(`<html>{"userID":"100001234567890"}</html>`); got != nil {
		t.Errorf("expected nil without renderer marker, got %+v", got)
	}
}

func TestHeaderRendererUserUnclosedObject(t *testing.T) {
	page := `{"__typename":"XFBProfileEntityConvergenceHeaderRenderer","user":{"id":"100001234567890"`
	if got := headerRendererUser(page); got != nil {
		t.Errorf("expected nil for unclosed user object, got %+v", got)
	}
}

func TestFallbackIDUser(t *testing.T) {
	tests := []struct {
		name   string
		html   string
		wantID string
	}{
		{
			name:   "props userID preferred",
			html:   `{"props":{"foo":1,"userID":"100001234567890"},"userID":"999999999"}`,
			wantID: "100001234567890",
		},
		{
			name:   "bare userID",
			html:   `{"userID":"100001234567890"}`,
			wantID: "100001234567890",
		},
		{
			name:   "actorID last resort",
			html:   `{"actorID":"100001234567890"}`,
			wantID: "100001234567890",
		},
		{
			name:   "zero id rejected, next pattern wins",
			html:   `{"userID":"0","actorID":"100001234567890"}`,
			wantID: "100001234567890",
		},
		{
			name:   "short id rejected",
			html:   `{"userID":"12345"}`,
			wantID: "",
		},
		{
			name:   "no match",
			html:   `<html>nothing here</html>`,
			wantID: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := fallbackIDUser(tt.html)
			if tt.wantID == "" {
				if got != nil {
					t.Errorf("expected nil, got %+v", got)
				}
				return
			}
			if got == nil || got.ID != tt.wantID {
				t.Errorf("fallbackIDUser() = %+v, want ID %q", got, tt.wantID)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/nguyen.van.a/":
			fmt.Fprint(w, rendererPage) //nolint:errcheck // test server
		case "/fallback.user/":
			fmt.Fprint(w, `<html>{"userID":"100009876543210"}</html>`) //nolint:errcheck // test server
		default:
			fmt.Fprint(w, `<html>login wall</html>`) //nolint:errcheck // test server
		}
	}))
	defer srv.Close()

	client := &Client{
		httpClient: &http.Client{Timeout: 5 * time.Second},
		logger:     slog.Default(),
		baseURL:    srv.URL,
	}

	info, err := client.Resolve(context.Background(), "nguyen.van.a")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if info.ID != "100001234567890" || info.Name != "Nguyen Van A" {
		t.Errorf("Resolve() = %+v, want full profile", info)
	}

	info, err = client.Resolve(context.Background(), "fallback.user")
	if err != nil {
		t.Fatalf("Resolve fallback failed: %v", err)
	}
	if info.ID != "100009876543210" || info.Name != "" {
		t.Errorf("Resolve() = %+v, want id-only partial", info)
	}

	_, err = client.Resolve(context.Background(), "nobody")
	if !errors.Is(err, profile.ErrProfileNotFound) {
		t.Errorf("Resolve() err = %v, want ErrProfileNotFound", err)
	}
}
