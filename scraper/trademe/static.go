package trademe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"trademe-analyzer/config"
	"trademe-analyzer/dom"
	"trademe-analyzer/utils"
)

const (
	userAgent    = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	maxPageBytes = 8 << 20
)

// ErrNoPage is returned by Snapshot before any page was opened.
var ErrNoPage = errors.New("trademe: no page loaded")

// ErrNoNextPage is returned by NextPage when the page has no next control.
var ErrNoNextPage = errors.New("trademe: no next page")

// Static fetches result pages over plain HTTP, or reads a saved page from
// disk. Static pages carry no layout, so every node reports an unmeasured
// extent. Pagination follows the href of the page's next control.
type Static struct {
	cfg     *config.Config
	logger  *utils.Logger
	client  *http.Client
	limiter *rate.Limiter
	retry   *utils.RetryConfig

	mu  sync.Mutex
	doc *dom.HTMLDocument
}

// StaticOption configures a Static host.
type StaticOption func(*Static)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) StaticOption {
	return func(s *Static) { s.client = c }
}

// WithRetryDelay sets the first back-off delay between fetch attempts.
func WithRetryDelay(d time.Duration) StaticOption {
	return func(s *Static) { s.retry.BaseDelay = d }
}

// NewStatic creates a Static host paced to one request per RateLimitMs.
func NewStatic(cfg *config.Config, logger *utils.Logger, opts ...StaticOption) *Static {
	limit := rate.Inf
	if cfg.RateLimitMs > 0 {
		limit = rate.Every(time.Duration(cfg.RateLimitMs) * time.Millisecond)
	}
	s := &Static{
		cfg:    cfg,
		logger: logger,
		client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(limit, 1),
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open fetches pageURL and makes it the current page.
func (s *Static) Open(ctx context.Context, pageURL string) error {
	var body []byte
	err := s.retry.Do(ctx, "fetch "+pageURL, func() error {
		var err error
		body, err = s.fetch(ctx, pageURL)
		return err
	})
	if err != nil {
		return err
	}

	doc, err := dom.Parse(bytes.NewReader(body), pageURL)
	if err != nil {
		return err
	}
	s.setPage(doc)
	s.logger.Info("[static] Loaded %s (%d bytes)", pageURL, len(body))
	return nil
}

// OpenFile reads a saved page. pageURL is the address the page was saved
// from and may be empty.
func (s *Static) OpenFile(path, pageURL string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("trademe: open %s: %w", path, err)
	}
	defer f.Close()

	doc, err := dom.Parse(io.LimitReader(f, maxPageBytes), pageURL)
	if err != nil {
		return err
	}
	s.setPage(doc)
	s.logger.Info("[static] Loaded %s", path)
	return nil
}

// Snapshot returns the current page.
func (s *Static) Snapshot(ctx context.Context) (dom.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return nil, ErrNoPage
	}
	return s.doc, nil
}

// HasNextPage reports whether the current page links to a next page.
func (s *Static) HasNextPage(ctx context.Context) bool {
	return s.nextURL() != ""
}

// NextPage fetches the page the next control points at.
func (s *Static) NextPage(ctx context.Context) error {
	next := s.nextURL()
	if next == "" {
		return ErrNoNextPage
	}
	return s.Open(ctx, next)
}

func (s *Static) nextURL() string {
	s.mu.Lock()
	doc := s.doc
	s.mu.Unlock()
	if doc == nil {
		return ""
	}
	href := nextHref(doc)
	if href == "" {
		return ""
	}
	return resolveAgainst(href, doc.URL(), s.cfg.SiteURL)
}

func (s *Static) setPage(doc *dom.HTMLDocument) {
	s.mu.Lock()
	s.doc = doc
	s.mu.Unlock()
}

func (s *Static) fetch(ctx context.Context, pageURL string) ([]byte, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "en-NZ,en;q=0.9")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: unexpected status %d", pageURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}
