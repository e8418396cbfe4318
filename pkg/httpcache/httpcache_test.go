package httpcache

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestURLToKey(t *testing.T) {
	k1 := URLToKey("https://www.facebook.com/someone/")
	k2 := URLToKey("https://www.facebook.com/someone/")
	k3 := URLToKey("https://www.facebook.com/someone-else/")

	if k1 != k2 {
		t.Error("same URL should produce same key")
	}
	if k1 == k3 {
		t.Error("different URLs should produce different keys")
	}
	if len(k1) != 64 {
		t.Errorf("key length = %d, want 64 hex chars", len(k1))
	}
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"rate limited", &HTTPError{StatusCode: http.StatusTooManyRequests}, true},
		{"server error", &HTTPError{StatusCode: http.StatusInternalServerError}, true},
		{"bad gateway", &HTTPError{StatusCode: http.StatusBadGateway}, true},
		{"not found", &HTTPError{StatusCode: http.StatusNotFound}, false},
		{"forbidden", &HTTPError{StatusCode: http.StatusForbidden}, false},
		{"network error", context.DeadlineExceeded, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRetryableError(tt.err); got != tt.want {
				t.Errorf("isRetryableError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestFetchURLNoCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("hello")) //nolint:errcheck // test server
	}))
	defer srv.Close()

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL, http.NoBody)
	if err != nil {
		t.Fatalf("request creation failed: %v", err)
	}

	body, err := FetchURL(context.Background(), nil, srv.Client(), req, nil)
	if err != nil {
		t.Fatalf("FetchURL failed: %v", err)
	}
	if string(body) != "hello" {
		t.Errorf("body = %q, want %q", body, "hello")
	}
}

func TestFetchURLHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL, http.NoBody)
	if err != nil {
		t.Fatalf("request creation failed: %v", err)
	}

	_, err = FetchURL(context.Background(), nil, srv.Client(), req, nil)
	if err == nil {
		t.Fatal("expected error for 404 response")
	}
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusNotFound {
		t.Errorf("err = %v, want HTTPError with status 404", err)
	}
}
