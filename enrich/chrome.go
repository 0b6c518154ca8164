package enrich

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/chromedp"
)

const pageTimeout = 45 * time.Second

// extractScript reads Open Graph tags first, which listing portals fill for
// link previews, then falls back to the page itself.
const extractScript = `
(function() {
	function meta(name) {
		var el = document.querySelector('meta[property="' + name + '"]') ||
		         document.querySelector('meta[name="' + name + '"]');
		return el ? (el.getAttribute('content') || '').trim() : '';
	}
	var result = {
		title: meta('og:title'),
		image: meta('og:image'),
		description: meta('og:description') || meta('description')
	};
	if (!result.title) {
		var h1 = document.querySelector('h1');
		result.title = h1 ? h1.innerText.trim() : document.title.trim();
	}
	if (!result.image) {
		var img = document.querySelector('main img[src^="http"]') || document.querySelector('img[src^="http"]');
		if (img) result.image = img.getAttribute('src');
	}
	result.description = result.description.substring(0, 1000);
	return result;
})()
`

// ChromeFetcher renders listing pages in one shared headless browser.
type ChromeFetcher struct {
	browserCtx context.Context
	cancel     context.CancelFunc
}

// NewChromeFetcher starts headless Chrome. chromeBin may be empty, in which
// case the usual install locations are searched.
func NewChromeFetcher(chromeBin string) (*ChromeFetcher, error) {
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 "+
			"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	// Start the browser now so a missing binary fails at startup.
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("enrich: start browser: %w", err)
	}

	return &ChromeFetcher{
		browserCtx: browserCtx,
		cancel: func() {
			cancelBrowser()
			cancelAlloc()
		},
	}, nil
}

// Fetch opens url in a new tab and extracts its details.
func (f *ChromeFetcher) Fetch(ctx context.Context, url string) (*PageDetails, error) {
	tabCtx, cancelTab := chromedp.NewContext(f.browserCtx)
	defer cancelTab()

	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, pageTimeout)
	defer cancelTimeout()

	stop := context.AfterFunc(ctx, cancelTimeout)
	defer stop()

	var details PageDetails
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Evaluate(extractScript, &details),
	)
	if err != nil {
		return nil, fmt.Errorf("chromedp %s: %w", url, err)
	}
	return &details, nil
}

// Close shuts the browser down.
func (f *ChromeFetcher) Close() {
	f.cancel()
}

// findChromeBinary locates a Chrome/Chromium binary.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	for _, name := range []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	for _, p := range []string{"/usr/bin/chromium", "/snap/bin/chromium", "/opt/google/chrome/google-chrome"} {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
