// Package facebook resolves Facebook profiles and classifies group
// membership roles by interpreting the platform's rendered pages.
// Note: Facebook delivers locale-variant, versioned markup, so
// extraction is layered pattern matching with explicit fallbacks.
package facebook

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/groupcheck/pkg/auth"
	"github.com/codeGROOVE-dev/groupcheck/pkg/httpcache"
)

const defaultBaseURL = "https://www.facebook.com"

// Match returns true if the URL points at the Facebook platform.
func Match(urlStr string) bool {
	return strings.Contains(strings.ToLower(urlStr), "facebook.com")
}

// AuthRequired returns true because group member pages are only
// rendered for a logged-in session.
func AuthRequired() bool { return true }

// Client fetches Facebook pages with the reused browser session.
type Client struct {
	httpClient *http.Client
	cache      httpcache.Cacher
	logger     *slog.Logger
	baseURL    string
}

// Option configures a Client.
type Option func(*config)

type config struct {
	cookies        map[string]string
	cache          httpcache.Cacher
	logger         *slog.Logger
	browserCookies bool
}

// WithCookies sets explicit session cookie values.
func WithCookies(cookies map[string]string) Option {
	return func(c *config) { c.cookies = cookies }
}

// WithBrowserCookies enables reading cookies from browser stores.
func WithBrowserCookies() Option {
	return func(c *config) { c.browserCookies = true }
}

// WithHTTPCache sets the HTTP cache.
func WithHTTPCache(httpCache httpcache.Cacher) Option {
	return func(c *config) { c.cache = httpCache }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// New creates a Facebook client.
// Cookie sources are checked in order: WithCookies > environment > browser.
// A client without cookies still works for public profile pages, but
// membership pages will classify everything as NOT_MEMBER.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &config{logger: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}

	var sources []auth.Source
	if len(cfg.cookies) > 0 {
		sources = append(sources, auth.NewStaticSource(cfg.cookies))
	}
	sources = append(sources, auth.EnvSource{})
	if cfg.browserCookies {
		sources = append(sources, auth.NewBrowserSource(cfg.logger))
	}

	cookies, err := auth.ChainSources(ctx, sources...)
	if err != nil {
		return nil, fmt.Errorf("cookie retrieval failed: %w", err)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	if len(cookies) > 0 {
		jar, err := auth.NewCookieJar(auth.Domain, cookies)
		if err != nil {
			return nil, fmt.Errorf("cookie jar creation failed: %w", err)
		}
		client.Jar = jar
		cfg.logger.InfoContext(ctx, "facebook client created", "cookie_count", len(cookies))
	} else {
		cfg.logger.WarnContext(ctx, "no facebook session cookies found, fetching unauthenticated",
			"env_vars", auth.EnvVarNames())
	}

	return &Client{
		httpClient: client,
		cache:      cfg.cache,
		logger:     cfg.logger,
		baseURL:    defaultBaseURL,
	}, nil
}

func newRequest(ctx context.Context, urlStr string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("request creation failed: %w", err)
	}
	setHeaders(req)
	return req, nil
}

func setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", httpcache.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
}
