package adapters

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	scrapeerrors "maps-scraper/pkg/errors"

	"github.com/PuerkitoBio/goquery"
)

// HarvestTarget describes one search results view to scroll and scan.
type HarvestTarget struct {
	SearchURL string
	BaseURL   string
	// ScrollContainers are tried in order; the first that exists is scrolled.
	ScrollContainers []string
	// LinkPattern is the path fragment every record link contains.
	LinkPattern string
	Settle      time.Duration
	ScrollPause time.Duration
}

// searchWithRetry harvests target, restarting the session on crashes.
// Errors other than an exhausted session are logged and yield no links.
func (b *BaseAdapter) searchWithRetry(ctx context.Context, target HarvestTarget) ([]string, error) {
	var links []string
	err := b.withSessionRetry("search", func() error {
		var err error
		links, err = b.harvest(ctx, target)
		return err
	})
	if err != nil {
		if scrapeerrors.IsSessionFatal(err) {
			return nil, err
		}
		b.logger.Warnf("%s: search %s failed: %v", b.name, target.SearchURL, err)
		return []string{}, nil
	}
	return links, nil
}

// harvest loads the search view, scrolls it until it stops growing and
// collects the record links it renders.
func (b *BaseAdapter) harvest(ctx context.Context, target HarvestTarget) ([]string, error) {
	startTime := time.Now()
	b.logger.Debugf("%s: loading search page %s", b.name, target.SearchURL)

	if err := b.session.NavigateAndSettle(target.SearchURL, target.Settle); err != nil {
		return nil, err
	}
	if err := b.scrollResults(ctx, target); err != nil {
		return nil, err
	}

	html, err := b.session.PageHTML()
	if err != nil {
		return nil, err
	}
	doc, err := b.ParseHTML(html)
	if err != nil {
		return nil, scrapeerrors.NewExtraction(b.name, "failed to parse search page", err)
	}

	links, err := b.collectLinks(doc, target)
	if err != nil {
		return nil, err
	}
	if limit := b.config.MaxPlacesPerSearch; limit > 0 && len(links) > limit {
		links = links[:limit]
	}

	b.logger.Debugf("%s: harvested %d links in %v", b.name, len(links), time.Since(startTime))
	return links, nil
}

// scrollResults scrolls the first available container until two consecutive
// height measurements match or MaxScrollAttempts is spent. A missing
// container skips scrolling. Only session-fatal errors are returned.
func (b *BaseAdapter) scrollResults(ctx context.Context, target HarvestTarget) error {
	selector, lastHeight, err := b.findScrollContainer(target.ScrollContainers)
	if err != nil || selector == "" {
		return err
	}

	for attempt := 1; attempt <= b.config.MaxScrollAttempts; attempt++ {
		if ctx.Err() != nil {
			b.logger.Debugf("%s: scrolling interrupted after %d attempts", b.name, attempt-1)
			return nil
		}

		if err := b.session.ScrollToBottom(selector); err != nil {
			return sessionFatalOnly(err)
		}
		sleepContext(ctx, target.ScrollPause)

		height, found, err := b.session.ScrollHeight(selector)
		if err != nil || !found {
			return sessionFatalOnly(err)
		}
		b.logger.Debugf("%s: scroll attempt %d, height %d", b.name, attempt, height)
		if height == lastHeight {
			return nil
		}
		lastHeight = height
	}
	return nil
}

func (b *BaseAdapter) findScrollContainer(selectors []string) (string, int64, error) {
	for _, selector := range selectors {
		height, found, err := b.session.ScrollHeight(selector)
		if err != nil {
			if scrapeerrors.IsSessionFatal(err) {
				return "", 0, err
			}
			continue
		}
		if found {
			return selector, height, nil
		}
	}
	b.logger.Debugf("%s: no scroll container found, using first render", b.name)
	return "", 0, nil
}

// collectLinks scans doc for anchors whose normalized URL contains the
// record pattern, deduplicated in document order.
func (b *BaseAdapter) collectLinks(doc *goquery.Document, target HarvestTarget) ([]string, error) {
	base, err := url.Parse(target.BaseURL)
	if err != nil {
		return nil, scrapeerrors.NewConfiguration(fmt.Sprintf("invalid base URL %q", target.BaseURL), err)
	}

	var links []string
	doc.Find(`a[href*="` + target.LinkPattern + `"]`).Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		link := NormalizeLink(base, href)
		if link == "" {
			return
		}
		if u, err := url.Parse(link); err != nil || !strings.Contains(u.Path, target.LinkPattern) {
			return
		}
		links = append(links, link)
	})
	return b.RemoveDuplicateURLs(links), nil
}

func sessionFatalOnly(err error) error {
	if scrapeerrors.IsSessionFatal(err) {
		return err
	}
	return nil
}

// sleepContext pauses for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
