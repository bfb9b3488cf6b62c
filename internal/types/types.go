package types

import (
	"context"
	"time"
)

// PlaceRecord represents one business listing extracted from a map provider.
// Text fields use the empty string for "not found"; numeric fields use nil.
type PlaceRecord struct {
	Title       string   `json:"title,omitempty"`
	Rating      *float64 `json:"rating,omitempty"`
	ReviewCount *int     `json:"reviews,omitempty"`
	Category    string   `json:"category,omitempty"`
	Address     string   `json:"address,omitempty"`
	Website     string   `json:"website,omitempty"`
	Phone       string   `json:"phone,omitempty"`
	Link        string   `json:"link"`

	// Context attached when the record is accepted into a run
	City        string `json:"city,omitempty"`
	Country     string `json:"country,omitempty"`
	SearchQuery string `json:"search_query,omitempty"`
	Source      string `json:"source,omitempty"`
}

// IdentityKey returns the title|phone|address key used to treat two records
// as the same business.
func (p PlaceRecord) IdentityKey() string {
	return p.Title + "|" + p.Phone + "|" + p.Address
}

// Session is one live browser session. Calls are synchronous and are not
// interrupted by run cancellation; each one is bounded by the configured
// timeouts instead.
type Session interface {
	// NavigateAndSettle loads url and then sleeps for settle.
	NavigateAndSettle(url string, settle time.Duration) error

	// ScrollHeight reports the scrollHeight of the first element matching
	// selector. found is false when no element matches.
	ScrollHeight(selector string) (height int64, found bool, err error)

	// ScrollToBottom scrolls the first element matching selector to its end.
	ScrollToBottom(selector string) error

	// ScrollWindowTo scrolls the top-level window to the given offset.
	ScrollWindowTo(y int) error

	// PageHTML returns the outer HTML of the rendered document.
	PageHTML() (string, error)

	// Restart force-quits the browser, waits the cooldown and opens a new
	// one with the same configuration.
	Restart() error

	// Close tears the session down. Safe to call more than once.
	Close() error
}

// ProviderAdapter is the capability the engine drives for each map provider.
type ProviderAdapter interface {
	// Name is the source label attached to accepted records.
	Name() string

	// SupportsCityFilter reports whether ExtractPlaceData honours cityFilter.
	SupportsCityFilter() bool

	// SearchPlaces harvests candidate record links for one search. An error
	// is returned only when the session died and could not be recovered.
	SearchPlaces(ctx context.Context, query, city, country string) ([]string, error)

	// ExtractPlaceData loads a single record page. A nil record with a nil
	// error means the record was filtered out.
	ExtractPlaceData(link, cityFilter string) (*PlaceRecord, error)

	// Close releases the adapter's browser session.
	Close() error
}

// Logger defines the logging interface
type Logger interface {
	Debug(args ...interface{})
	Info(args ...interface{})
	Warn(args ...interface{})
	Error(args ...interface{})
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}
