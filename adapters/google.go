package adapters

import (
	"context"
	"net/url"
	"strings"

	"maps-scraper/internal/types"
)

// GoogleName is the source label for Google Maps records
const GoogleName = "google"

const (
	googleBaseURL     = "https://www.google.com"
	googleSearchURL   = "https://www.google.com/maps/search/"
	googlePlacePath   = "/maps/place/"
	googleFeedLocator = `div[role="feed"]`
)

// googleFields covers the place panel in the languages it has been seen in.
var googleFields = FieldTable{
	Title: FieldStrategy{
		Fallbacks: []Fallback{
			{Selector: "h1.DUwDvf"},
			{Selector: `h1[class*="fontHeadline"]`},
			{Selector: "h1"},
		},
		Normalize: NormalizeText,
	},
	Rating: FieldStrategy{
		Fallbacks: []Fallback{
			{Selector: `div.F7nice span[aria-hidden="true"]`},
			{Selector: "div.F7nice > span > span"},
		},
		Normalize: NormalizeRating,
	},
	Reviews: FieldStrategy{
		Fallbacks: []Fallback{
			{Selector: `div.F7nice span[aria-label*="reviews"]`, Attr: "aria-label"},
			{Selector: `div.F7nice span[aria-label*="yorum"]`, Attr: "aria-label"},
			{Selector: `div.F7nice span[aria-label*="отзыв"]`, Attr: "aria-label"},
			{Selector: `button[jsaction*="reviewChart"]`},
		},
		Normalize: NormalizeReviewCount,
	},
	Category: FieldStrategy{
		Fallbacks: []Fallback{
			{Selector: "button.DkEaL"},
			{Selector: "span.DkEaL"},
		},
		Normalize: NormalizeText,
	},
	Address: FieldStrategy{
		Fallbacks: []Fallback{
			{Selector: `button[data-item-id="address"]`, Attr: "aria-label"},
			{Selector: `button[data-item-id="address"]`},
			{Selector: `button[data-tooltip="Copy address"]`, Attr: "aria-label"},
			{Selector: `[data-item-id="address"] div.fontBodyMedium`},
		},
		Normalize: NormalizeAddress,
	},
	Phone: FieldStrategy{
		Fallbacks: []Fallback{
			{Selector: `button[data-item-id^="phone:tel"]`, Attr: "aria-label"},
			{Selector: `button[data-tooltip="Copy phone number"]`, Attr: "aria-label"},
			{Selector: `[data-item-id*="phone"] div.fontBodyMedium`},
			{Selector: `button[aria-label*="Phone"]`, Attr: "aria-label"},
			{Selector: `button[aria-label*="Telefon"]`, Attr: "aria-label"},
			{Selector: `a[href^="tel:"]`, Attr: "href"},
		},
		Normalize: NormalizePhone,
	},
	Website: WebsiteStrategy{
		Fallbacks: []Fallback{
			{Selector: `a[data-item-id="authority"]`},
			{Selector: `a[data-tooltip="Open website"]`},
			{Selector: `a[aria-label*="Website"]`},
			{Selector: `a[aria-label*="İnternet sitesi"]`},
			{Selector: `a[aria-label*="Сайт"]`},
		},
		ExcludeHosts: []string{"google"},
	},
}

// GoogleAdapter scrapes Google Maps search results and place panels.
type GoogleAdapter struct {
	*BaseAdapter
	fields FieldTable
}

// NewGoogleAdapter creates a Google Maps adapter that drives session.
func NewGoogleAdapter(config *types.Config, logger types.Logger, session types.Session) *GoogleAdapter {
	return &GoogleAdapter{
		BaseAdapter: NewBaseAdapter(config, logger, session, GoogleName),
		fields:      googleFields,
	}
}

// SupportsCityFilter returns false; Google searches are already city scoped.
func (g *GoogleAdapter) SupportsCityFilter() bool {
	return false
}

// SearchURL builds the results URL for "query in city, country".
func (g *GoogleAdapter) SearchURL(query, city, country string) string {
	text := query
	if city != "" {
		text += " in " + city
	}
	if country != "" {
		text += ", " + country
	}
	return googleSearchURL + url.QueryEscape(strings.TrimSpace(text))
}

// SearchPlaces returns place links for one search
func (g *GoogleAdapter) SearchPlaces(ctx context.Context, query, city, country string) ([]string, error) {
	return g.searchWithRetry(ctx, HarvestTarget{
		SearchURL:        g.SearchURL(query, city, country),
		BaseURL:          googleBaseURL,
		ScrollContainers: []string{googleFeedLocator},
		LinkPattern:      googlePlacePath,
		Settle:           g.Config().Google.SearchSettle,
		ScrollPause:      g.Config().Google.ScrollPause,
	})
}

// ExtractPlaceData extracts one place. cityFilter is ignored.
func (g *GoogleAdapter) ExtractPlaceData(link, cityFilter string) (*types.PlaceRecord, error) {
	return g.extractWithRetry(link, g.Config().Google.ExtractSettle, g.fields)
}
