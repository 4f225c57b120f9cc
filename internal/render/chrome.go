package render

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

const (
	// navigationTimeout bounds one full render pass.
	navigationTimeout = 45 * time.Second

	// settleDelay gives JavaScript-heavy platforms time to finish
	// client-side rendering after load.
	settleDelay = 2 * time.Second
)

// ChromeRenderer drives a headless Chrome instance. One renderer owns one
// browser allocator; each RenderPage call runs in a fresh tab context.
type ChromeRenderer struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

// NewChromeRenderer launches a headless browser allocator.
func NewChromeRenderer() *ChromeRenderer {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
	return &ChromeRenderer{allocCtx: allocCtx, allocCancel: cancel}
}

// RenderPage navigates to url at the given viewport and captures the DOM
// snapshot, outgoing links, SEO metadata, theme sample and a screenshot.
func (r *ChromeRenderer) RenderPage(ctx context.Context, url string, vp Viewport) (*Result, error) {
	tabCtx, cancelTab := chromedp.NewContext(r.allocCtx)
	defer cancelTab()

	runCtx, cancel := context.WithTimeout(tabCtx, navigationTimeout)
	defer cancel()

	// Propagate caller cancellation into the tab.
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-runCtx.Done():
		}
	}()

	res := &Result{URL: url, Viewport: vp}

	err := chromedp.Run(runCtx,
		chromedp.EmulateViewport(vp.Width, vp.Height),
		chromedp.Navigate(url),
		chromedp.Sleep(settleDelay),
		chromedp.OuterHTML("html", &res.HTML, chromedp.ByQuery),
		chromedp.Evaluate(domSnapshotJS, &res.Root),
		chromedp.Evaluate(linksJS, &res.Links),
		chromedp.Evaluate(seoSnapshotJS, &res.SEO),
		chromedp.Evaluate(themeSnapshotJS, &res.Theme),
		chromedp.CaptureScreenshot(&res.Screenshot),
	)
	if err != nil {
		return nil, fmt.Errorf("render %s at %s: %w", url, vp.Name, err)
	}

	return res, nil
}

// Close shuts the browser allocator down.
func (r *ChromeRenderer) Close() error {
	r.allocCancel()
	return nil
}
