package trademe

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/chromedp"

	"trademe-analyzer/config"
	"trademe-analyzer/dom"
	"trademe-analyzer/utils"
)

// snapshotJS serializes a clone of the live page. Every cloned element is
// stamped with the rendered size of its live counterpart so layout survives
// the trip through HTML; the live page itself is never modified.
const snapshotJS = `
(function() {
	var live = document.documentElement;
	var clone = live.cloneNode(true);
	var src = live.querySelectorAll('*');
	var dst = clone.querySelectorAll('*');
	for (var i = 0; i < src.length && i < dst.length; i++) {
		var r = src[i].getBoundingClientRect();
		var style = window.getComputedStyle(src[i]);
		var w = r.width, h = r.height;
		if (style.display === 'none' || style.visibility === 'hidden') {
			w = 0; h = 0;
		}
		dst[i].setAttribute('%[1]s', String(w));
		dst[i].setAttribute('%[2]s', String(h));
	}
	clone.setAttribute('%[3]s', document.readyState);
	return {html: clone.outerHTML, url: location.href, title: document.title};
})()
`

// nextControlJS defines findNext, which returns the first enabled next control.
const nextControlJS = `
function findNext(sels, text) {
	for (var i = 0; i < sels.length; i++) {
		var el = document.querySelector(sels[i]);
		if (el && !el.disabled && !el.classList.contains('disabled') && el.getAttribute('aria-disabled') !== 'true') {
			return el;
		}
	}
	var links = document.querySelectorAll('a');
	for (var j = 0; j < links.length; j++) {
		if (links[j].textContent.trim() === text && !links[j].classList.contains('disabled')) {
			return links[j];
		}
	}
	return null;
}
`

type pageSnapshot struct {
	HTML  string `json:"html"`
	URL   string `json:"url"`
	Title string `json:"title"`
}

// Browser drives a headless Chrome tab. It renders the page, so snapshots
// carry real element sizes, and it paginates by clicking the next control.
type Browser struct {
	cfg    *config.Config
	logger *utils.Logger
	retry  *utils.RetryConfig

	tab         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
}

// NewBrowser starts the browser process and opens an empty tab.
func NewBrowser(cfg *config.Config, logger *utils.Logger) (*Browser, error) {
	chromeBin := findChromeBinary(cfg.ChromeBin)
	logger.Info("[browser] Using browser binary: %s", chromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.WindowSize(1366, 900),
		chromedp.UserAgent(userAgent),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)

	// Suppress chromedp log noise
	tab, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	if err := chromedp.Run(tab); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	return &Browser{
		cfg:    cfg,
		logger: logger,
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
		tab:         tab,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
	}, nil
}

// Open navigates the tab to pageURL and waits for the body to exist.
func (b *Browser) Open(ctx context.Context, pageURL string) error {
	b.logger.Info("[browser] Opening %s", pageURL)
	return b.retry.Do(ctx, "navigate "+pageURL, func() error {
		return b.run(ctx,
			chromedp.Navigate(pageURL),
			chromedp.WaitReady("body", chromedp.ByQuery),
		)
	})
}

// Snapshot captures the current page with its rendered geometry.
func (b *Browser) Snapshot(ctx context.Context) (dom.Document, error) {
	var snap pageSnapshot
	script := fmt.Sprintf(snapshotJS, dom.WidthAttr, dom.HeightAttr, dom.ReadyAttr)
	if err := b.run(ctx, chromedp.Evaluate(script, &snap)); err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	doc, err := dom.ParseString(snap.HTML, snap.URL)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// HasNextPage reports whether an enabled next control is on the page.
func (b *Browser) HasNextPage(ctx context.Context) bool {
	var found bool
	if err := b.run(ctx, chromedp.Evaluate(nextScript("return findNext(sels, text) !== null;"), &found)); err != nil {
		b.logger.Warn("[browser] next page check failed: %v", err)
		return false
	}
	return found
}

// NextPage clicks the next control. The caller waits for the new page to settle.
func (b *Browser) NextPage(ctx context.Context) error {
	var clicked bool
	script := nextScript("var el = findNext(sels, text); if (!el) return false; el.click(); return true;")
	if err := b.run(ctx, chromedp.Evaluate(script, &clicked)); err != nil {
		return fmt.Errorf("click next: %w", err)
	}
	if !clicked {
		return ErrNoNextPage
	}
	return nil
}

// Close shuts the tab and the browser process.
func (b *Browser) Close() error {
	b.cancelTab()
	b.cancelAlloc()
	return nil
}

// run executes actions on the tab, abandoning them when ctx is done.
func (b *Browser) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(b.tab)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func nextScript(body string) string {
	sels, _ := json.Marshal(nextSelectors)
	text, _ := json.Marshal(nextLinkText)
	return fmt.Sprintf("(function(sels, text) {\n%s\n%s\n})(%s, %s)", nextControlJS, body, sels, text)
}

// findChromeBinary locates Chrome/Chromium binary.
func findChromeBinary(override string) string {
	if override != "" {
		return override
	}
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
