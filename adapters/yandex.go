package adapters

import (
	"context"
	"net/url"
	"strings"

	"maps-scraper/internal/types"
)

// YandexName is the source label for Yandex Maps records
const YandexName = "yandex"

const (
	yandexBaseURL   = "https://yandex.ru"
	yandexSearchURL = "https://yandex.ru/maps/?text="
	yandexOrgPath   = "/org/"
)

var yandexScrollContainers = []string{
	"div.scroll__container",
	`div[class*="scroll"]`,
}

var yandexFields = FieldTable{
	Title: FieldStrategy{
		Fallbacks: []Fallback{
			{Selector: "h1.orgpage-header-view__header"},
			{Selector: `h1[class*="title"]`},
			{Selector: "h1"},
		},
		Normalize: NormalizeText,
	},
	Rating: FieldStrategy{
		Fallbacks: []Fallback{
			{Selector: "span.business-rating-badge-view__rating-text"},
			{Selector: `span[class*="rating-badge"]`},
			{Selector: "div.business-summary-rating-badge-view__rating"},
			{Selector: `div[class*="rating"]`},
		},
		Normalize: NormalizeRating,
	},
	Reviews: FieldStrategy{
		Fallbacks: []Fallback{
			{Selector: "span.business-header-rating-view__text"},
			{Selector: `span[class*="reviews"]`},
			{Selector: `a[class*="reviews"]`},
		},
		Normalize: NormalizeReviewCount,
	},
	Category: FieldStrategy{
		Fallbacks: []Fallback{
			{Selector: "a.business-categories-view__category"},
			{Selector: `div[class*="rubric"]`},
			{Selector: `span[class*="category"]`},
		},
		Normalize: NormalizeText,
	},
	Address: FieldStrategy{
		Fallbacks: []Fallback{
			{Selector: "a.business-contacts-view__address-link"},
			{Selector: "div.orgpage-header-view__address"},
			{Selector: `a[class*="address"]`},
			{Selector: `div[class*="address"]`},
			{Selector: `span[class*="address"]`},
		},
		Normalize: NormalizeAddress,
	},
	Phone: FieldStrategy{
		Fallbacks: []Fallback{
			{Selector: `a[href^="tel:"]`, Attr: "href"},
			{Selector: "div.orgpage-phones-view__phone-number"},
			{Selector: `span[class*="phone"]`},
			{Selector: `div[class*="phone"]`},
		},
		Normalize: NormalizePhone,
	},
	Website: WebsiteStrategy{
		Fallbacks: []Fallback{
			{Selector: "a.business-urls-view__link"},
			{Selector: `a[class*="website"]`},
			{Selector: `a[class*="link"][href*="http"]`},
		},
		ExcludeHosts:       []string{"yandex", "ya.ru"},
		DeprioritizeSocial: true,
	},
}

// YandexAdapter scrapes Yandex Maps. Its searches are not strictly city
// scoped, so it honours the city filter on extraction.
type YandexAdapter struct {
	*BaseAdapter
	fields FieldTable
}

// NewYandexAdapter creates a Yandex Maps adapter that drives session.
func NewYandexAdapter(config *types.Config, logger types.Logger, session types.Session) *YandexAdapter {
	return &YandexAdapter{
		BaseAdapter: NewBaseAdapter(config, logger, session, YandexName),
		fields:      yandexFields,
	}
}

// SupportsCityFilter returns true.
func (y *YandexAdapter) SupportsCityFilter() bool {
	return true
}

// SearchURL builds the results URL for "query city". The country is not
// part of Yandex queries.
func (y *YandexAdapter) SearchURL(query, city, country string) string {
	return yandexSearchURL + url.QueryEscape(strings.TrimSpace(query+" "+city))
}

// SearchPlaces returns organization links for one search
func (y *YandexAdapter) SearchPlaces(ctx context.Context, query, city, country string) ([]string, error) {
	return y.searchWithRetry(ctx, HarvestTarget{
		SearchURL:        y.SearchURL(query, city, country),
		BaseURL:          yandexBaseURL,
		ScrollContainers: yandexScrollContainers,
		LinkPattern:      yandexOrgPath,
		Settle:           y.Config().Yandex.SearchSettle,
		ScrollPause:      y.Config().Yandex.ScrollPause,
	})
}

// ExtractPlaceData extracts one organization. When cityFilter is set and the
// address does not mention it, the record is dropped with a nil error.
func (y *YandexAdapter) ExtractPlaceData(link, cityFilter string) (*types.PlaceRecord, error) {
	record, err := y.extractWithRetry(link, y.Config().Yandex.ExtractSettle, y.fields)
	if err != nil || record == nil {
		return nil, err
	}

	if cityFilter != "" && !strings.Contains(strings.ToLower(record.Address), strings.ToLower(cityFilter)) {
		y.logger.Debugf("%s: dropping %s, address %q is outside %s", y.name, link, record.Address, cityFilter)
		return nil, nil
	}
	return record, nil
}
