package adapters

import (
	"errors"
	"net/url"
	"strings"

	"maps-scraper/internal/types"
	scrapeerrors "maps-scraper/pkg/errors"

	"github.com/PuerkitoBio/goquery"
)

// BaseAdapter holds what every provider adapter shares: configuration,
// logging and the single browser session the adapter owns.
type BaseAdapter struct {
	config  *types.Config
	logger  types.Logger
	session types.Session
	name    string
}

// NewBaseAdapter creates a base adapter around an already opened session.
func NewBaseAdapter(config *types.Config, logger types.Logger, session types.Session, name string) *BaseAdapter {
	return &BaseAdapter{
		config:  config,
		logger:  logger,
		session: session,
		name:    name,
	}
}

// Name returns the provider name used as the record source label.
func (b *BaseAdapter) Name() string {
	return b.name
}

// ParseHTML parses HTML content into a goquery document
func (b *BaseAdapter) ParseHTML(html string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

// RemoveDuplicateURLs removes duplicate URLs from the slice, keeping the
// first occurrence of each.
func (b *BaseAdapter) RemoveDuplicateURLs(urls []string) []string {
	seen := make(map[string]bool)
	var uniqueURLs []string

	for _, u := range urls {
		if !seen[u] {
			seen[u] = true
			uniqueURLs = append(uniqueURLs, u)
		}
	}

	return uniqueURLs
}

// withSessionRetry runs fn, restarting the session and running it again
// whenever it fails with a session-fatal error, up to CrashRetryBudget
// attempts in total. Any other error is returned immediately.
func (b *BaseAdapter) withSessionRetry(op string, fn func() error) error {
	budget := b.config.CrashRetryBudget
	if budget < 1 {
		budget = 1
	}

	var err error
	for attempt := 1; attempt <= budget; attempt++ {
		err = fn()
		if !retryable(err) {
			return err
		}
		if attempt == budget {
			break
		}

		b.logger.Warnf("%s: browser session lost during %s (attempt %d/%d): %v", b.name, op, attempt, budget, err)
		if restartErr := b.session.Restart(); restartErr != nil {
			return restartErr
		}
	}
	return err
}

// retryable reports whether err is a ScrapeError worth a session restart.
func retryable(err error) bool {
	var se *scrapeerrors.ScrapeError
	return errors.As(err, &se) && se.IsRetryable()
}

// Close releases the browser session.
func (b *BaseAdapter) Close() error {
	if b.session == nil {
		return nil
	}
	return b.session.Close()
}

// Config returns the config field of the BaseAdapter
func (b *BaseAdapter) Config() *types.Config {
	return b.config
}

// NormalizeLink resolves href against base and strips the query string and
// fragment. It returns "" for hrefs that cannot be parsed or are not http(s).
func NormalizeLink(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}

	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}

	resolved.RawQuery = ""
	resolved.ForceQuery = false
	resolved.Fragment = ""
	resolved.RawFragment = ""
	return resolved.String()
}
