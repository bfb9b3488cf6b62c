package adapters

import (
	"net/url"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"maps-scraper/internal/types"

	"github.com/PuerkitoBio/goquery"
)

// minAddressLength is the rune count an address must exceed to be kept
const minAddressLength = 10

// captionTexts are button and label captions providers render inside
// address and phone elements, in the languages seen so far.
var captionTexts = []string{
	"Address:", "Adres:", "Адрес:", "Adresse:", "Dirección:", "Indirizzo:",
	"Phone:", "Telefon:", "Телефон:", "Téléphone:", "Teléfono:",
	"Show phone", "Показать телефон", "Показать номер",
	"Telefonu göster", "Numarayı göster",
	"Show more", "Ещё", "Daha fazla", "Mehr anzeigen",
}

// socialDomains are skipped in favour of a business's own site where the
// provider asks for it.
var socialDomains = []string{
	"vk.com", "instagram.com", "facebook.com", "t.me", "ok.ru", "wa.me",
	"whatsapp", "youtube.com", "twitter.com", "x.com", "tiktok.com",
}

// Fallback is one locator of a field strategy. An empty Attr reads the
// element text.
type Fallback struct {
	Selector string
	Attr     string
}

// FieldStrategy is an ordered list of fallbacks. Every element matched by a
// fallback is passed through Normalize in document order; the first value it
// accepts wins.
type FieldStrategy struct {
	Fallbacks []Fallback
	Normalize func(raw string) (string, bool)
}

// Extract evaluates the strategy against doc and returns "" when nothing
// qualifies.
func (f FieldStrategy) Extract(doc *goquery.Document) string {
	normalize := f.Normalize
	if normalize == nil {
		normalize = NormalizeText
	}

	for _, fb := range f.Fallbacks {
		var value string
		doc.Find(fb.Selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			raw, ok := readFallback(s, fb.Attr)
			if !ok {
				return true
			}
			if v, ok := normalize(raw); ok {
				value = v
				return false
			}
			return true
		})
		if value != "" {
			return value
		}
	}
	return ""
}

// WebsiteStrategy picks an external website among the hrefs matched by its
// fallbacks. Hosts in ExcludeHosts never qualify; when DeprioritizeSocial is
// set a social-media link is used only if no other link qualifies.
type WebsiteStrategy struct {
	Fallbacks          []Fallback
	ExcludeHosts       []string
	DeprioritizeSocial bool
}

// Extract returns the chosen website or "".
func (w WebsiteStrategy) Extract(doc *goquery.Document) string {
	var social string
	for _, fb := range w.Fallbacks {
		attr := fb.Attr
		if attr == "" {
			attr = "href"
		}

		var chosen string
		doc.Find(fb.Selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			href, ok := s.Attr(attr)
			if !ok {
				return true
			}
			site, ok := w.qualify(href)
			if !ok {
				return true
			}
			if w.DeprioritizeSocial && IsSocialHost(hostOf(site)) {
				if social == "" {
					social = site
				}
				return true
			}
			chosen = site
			return false
		})
		if chosen != "" {
			return chosen
		}
	}
	return social
}

func (w WebsiteStrategy) qualify(href string) (string, bool) {
	site := UnwrapRedirect(strings.TrimSpace(href))
	u, err := url.Parse(site)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", false
	}
	host := strings.ToLower(u.Hostname())
	for _, excluded := range w.ExcludeHosts {
		if hostMatches(host, excluded) {
			return "", false
		}
	}
	return site, true
}

// FieldTable is the full set of field strategies for one provider layout.
type FieldTable struct {
	Title    FieldStrategy
	Rating   FieldStrategy
	Reviews  FieldStrategy
	Category FieldStrategy
	Address  FieldStrategy
	Phone    FieldStrategy
	Website  WebsiteStrategy
}

// Extract builds a record from doc. Fields that no fallback satisfies are
// left empty; the record itself is always returned.
func (t FieldTable) Extract(doc *goquery.Document, link string) *types.PlaceRecord {
	record := &types.PlaceRecord{
		Title:    t.Title.Extract(doc),
		Category: t.Category.Extract(doc),
		Address:  t.Address.Extract(doc),
		Phone:    t.Phone.Extract(doc),
		Website:  t.Website.Extract(doc),
		Link:     link,
	}

	if v := t.Rating.Extract(doc); v != "" {
		if rating, err := strconv.ParseFloat(v, 64); err == nil {
			record.Rating = &rating
		}
	}
	if v := t.Reviews.Extract(doc); v != "" {
		if count, err := strconv.Atoi(v); err == nil {
			record.ReviewCount = &count
		}
	}
	return record
}

func readFallback(s *goquery.Selection, attr string) (string, bool) {
	if attr == "" {
		return s.Text(), true
	}
	return s.Attr(attr)
}

// NormalizeText collapses whitespace and rejects empty values.
func NormalizeText(raw string) (string, bool) {
	text := strings.Join(strings.Fields(raw), " ")
	return text, text != ""
}

// NormalizeRating converts a locale-formatted rating such as "4,5" or
// "4.5 (120)" into dot-decimal form.
func NormalizeRating(raw string) (string, bool) {
	fields := strings.Fields(strings.ReplaceAll(raw, ",", "."))
	if len(fields) == 0 {
		return "", false
	}
	token := fields[0]
	rating, err := strconv.ParseFloat(token, 64)
	if err != nil || rating < 0 || rating > 5 {
		return "", false
	}
	return token, true
}

// NormalizeReviewCount keeps only the digits of raw.
func NormalizeReviewCount(raw string) (string, bool) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)
	return digits, digits != ""
}

// NormalizePhone strips captions and a tel: prefix; the remainder must
// contain at least one digit.
func NormalizePhone(raw string) (string, bool) {
	text := strings.TrimSpace(raw)
	if len(text) >= 4 && strings.EqualFold(text[:4], "tel:") {
		text = text[4:]
	}
	text, ok := NormalizeText(StripCaptions(text))
	if !ok || !strings.ContainsFunc(text, unicode.IsDigit) {
		return "", false
	}
	return text, true
}

// NormalizeAddress strips captions and rejects values of ten runes or fewer.
func NormalizeAddress(raw string) (string, bool) {
	text, ok := NormalizeText(StripCaptions(raw))
	if !ok || utf8.RuneCountInString(text) <= minAddressLength {
		return "", false
	}
	return text, true
}

// StripCaptions removes known caption texts and the separators left behind.
func StripCaptions(text string) string {
	for _, caption := range captionTexts {
		text = strings.ReplaceAll(text, caption, " ")
	}
	return strings.TrimFunc(text, func(r rune) bool {
		return unicode.IsSpace(r) || r == ':' || r == '·' || r == ','
	})
}

// UnwrapRedirect returns the target of a google.com/url?q= redirect, or href
// unchanged.
func UnwrapRedirect(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if hostMatches(strings.ToLower(u.Hostname()), "google") && u.Path == "/url" {
		if target := u.Query().Get("q"); target != "" {
			return target
		}
	}
	return href
}

// IsSocialHost reports whether host belongs to a known social network.
func IsSocialHost(host string) bool {
	host = strings.ToLower(host)
	for _, domain := range socialDomains {
		if !strings.Contains(domain, ".") {
			if strings.Contains(host, domain) {
				return true
			}
			continue
		}
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

// hostMatches reports whether host is pattern or a subdomain of it. A pattern
// without a dot matches any label, so "google" covers google.com.tr.
func hostMatches(host, pattern string) bool {
	if strings.Contains(pattern, ".") {
		return host == pattern || strings.HasSuffix(host, "."+pattern)
	}
	for _, label := range strings.Split(host, ".") {
		if label == pattern {
			return true
		}
	}
	return false
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
