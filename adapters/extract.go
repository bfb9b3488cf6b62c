package adapters

import (
	"time"

	"maps-scraper/internal/types"
	scrapeerrors "maps-scraper/pkg/errors"
)

// nudgeOffset is how far the record page is scrolled so lazy panels render
const nudgeOffset = 300

// extractWithRetry loads link and evaluates table against it, restarting
// the session and retrying on crashes. Other failures are returned as is.
func (b *BaseAdapter) extractWithRetry(link string, settle time.Duration, table FieldTable) (*types.PlaceRecord, error) {
	var record *types.PlaceRecord
	err := b.withSessionRetry("extract", func() error {
		var err error
		record, err = b.extract(link, settle, table)
		return err
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (b *BaseAdapter) extract(link string, settle time.Duration, table FieldTable) (*types.PlaceRecord, error) {
	startTime := time.Now()

	if err := b.session.NavigateAndSettle(link, settle); err != nil {
		return nil, err
	}

	if err := b.session.ScrollWindowTo(nudgeOffset); err != nil {
		b.logger.Debugf("%s: nudge scroll failed on %s: %v", b.name, link, err)
	} else {
		time.Sleep(b.config.NudgePause)
	}

	html, err := b.session.PageHTML()
	if err != nil {
		return nil, err
	}
	doc, err := b.ParseHTML(html)
	if err != nil {
		return nil, scrapeerrors.NewExtraction(b.name, "failed to parse record page", err)
	}

	record := table.Extract(doc, link)
	b.logger.Debugf("%s: extracted %q from %s in %v", b.name, record.Title, link, time.Since(startTime))
	return record, nil
}
