package extractor

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/time/rate"

	"github.com/siteporter/siteporter-backend/internal/migration/domain"
	"github.com/siteporter/siteporter-backend/internal/render"
)

// crawler performs bounded breadth-first link discovery using the
// renderer, so that navigation injected at runtime is visible too.
type crawler struct {
	renderer render.Renderer
	limiter  *rate.Limiter
}

func newCrawler(renderer render.Renderer) *crawler {
	return &crawler{
		renderer: renderer,
		// One page fetch per second with a small burst keeps the crawl
		// polite toward the source host.
		limiter: rate.NewLimiter(rate.Limit(1), 3),
	}
}

// discover walks internal links breadth-first from rootURL, bounded by
// limits. A failure on the root page is fatal; failures on deeper pages
// only stop their own branch.
func (c *crawler) discover(ctx context.Context, rootURL string, limits Limits) ([]PageRef, error) {
	root, err := normalizeURL(rootURL, rootURL)
	if err != nil {
		return nil, fmt.Errorf("parse root url: %w", err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	rootRes, err := c.renderer.RenderPage(ctx, root, render.ViewportDesktop)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRootUnreachable, err)
	}

	refs := []PageRef{{URL: root, Depth: 0, IsHomepage: true, Order: 0}}
	seen := map[string]bool{root: true}

	type queued struct {
		url   string
		depth int
		links []string
	}
	frontier := []queued{{url: root, depth: 0, links: rootRes.Links}}

	for len(frontier) > 0 && len(refs) < limits.MaxPages {
		next := frontier[0]
		frontier = frontier[1:]

		if next.depth >= limits.MaxDepth {
			continue
		}

		for _, link := range next.links {
			if len(refs) >= limits.MaxPages {
				break
			}
			normalized, err := normalizeURL(root, link)
			if err != nil || normalized == "" || seen[normalized] {
				continue
			}
			if !sameSite(root, normalized) {
				continue
			}
			seen[normalized] = true
			refs = append(refs, PageRef{
				URL:   normalized,
				Depth: next.depth + 1,
				Order: len(refs),
			})

			// Only follow links on pages that still have depth budget
			// below them.
			if next.depth+1 >= limits.MaxDepth {
				continue
			}
			if err := c.limiter.Wait(ctx); err != nil {
				return refs, err
			}
			res, err := c.renderer.RenderPage(ctx, normalized, render.ViewportDesktop)
			if err != nil {
				// Isolated: the page will fail again during extraction
				// and be recorded there.
				continue
			}
			frontier = append(frontier, queued{url: normalized, depth: next.depth + 1, links: res.Links})
		}
	}

	return refs, nil
}

// normalizeURL resolves ref against base and strips query, fragment and
// trailing slash so the same page dedupes to one key.
func normalizeURL(base, ref string) (string, error) {
	if strings.TrimSpace(ref) == "" {
		return "", fmt.Errorf("empty url")
	}
	if strings.HasPrefix(ref, "#") || strings.HasPrefix(ref, "mailto:") ||
		strings.HasPrefix(ref, "tel:") || strings.HasPrefix(ref, "javascript:") {
		return "", fmt.Errorf("non-page url")
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	u, err := baseURL.Parse(ref)
	if err != nil {
		return "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	u.RawQuery = ""
	u.Fragment = ""
	u.Path = strings.TrimSuffix(u.Path, "/")
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String(), nil
}

// sameSite reports whether two normalized URLs live on the same
// registrable host, treating the www prefix as equivalent.
func sameSite(a, b string) bool {
	ua, err := url.Parse(a)
	if err != nil {
		return false
	}
	ub, err := url.Parse(b)
	if err != nil {
		return false
	}
	return stripWWW(ua.Hostname()) == stripWWW(ub.Hostname())
}

func stripWWW(host string) string {
	return strings.TrimPrefix(strings.ToLower(host), "www.")
}
