package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maps-scraper/internal/types"
	scrapeerrors "maps-scraper/pkg/errors"
	"maps-scraper/store"
)

// fakeAdapter serves links per "query|city" and records per link.
type fakeAdapter struct {
	name       string
	cityFilter bool
	links      map[string][]string
	records    map[string]types.PlaceRecord
	searchErr  map[string]error

	// hooks run before the corresponding call returns
	onSearch  func(query, city string)
	onExtract func(link string)

	searches    []string
	extracted   []string
	cityFilters []string
	closed      bool
}

func (f *fakeAdapter) Name() string             { return f.name }
func (f *fakeAdapter) SupportsCityFilter() bool { return f.cityFilter }

func (f *fakeAdapter) SearchPlaces(_ context.Context, query, city, _ string) ([]string, error) {
	key := query + "|" + city
	f.searches = append(f.searches, key)
	if f.onSearch != nil {
		f.onSearch(query, city)
	}
	if err := f.searchErr[key]; err != nil {
		return nil, err
	}
	return f.links[key], nil
}

func (f *fakeAdapter) ExtractPlaceData(link, cityFilter string) (*types.PlaceRecord, error) {
	f.extracted = append(f.extracted, link)
	f.cityFilters = append(f.cityFilters, cityFilter)
	if f.onExtract != nil {
		f.onExtract(link)
	}
	r, ok := f.records[link]
	if !ok {
		return nil, scrapeerrors.NewNavigation(f.name, "not found", nil)
	}
	if r.Title == "filtered" {
		return nil, nil
	}
	return &r, nil
}

func (f *fakeAdapter) Close() error {
	f.closed = true
	return nil
}

// recordingSink keeps a copy of every write.
type recordingSink struct {
	writes [][]types.PlaceRecord
	err    error
}

func (s *recordingSink) WriteAll(records []types.PlaceRecord) error {
	s.writes = append(s.writes, append([]types.PlaceRecord(nil), records...))
	return s.err
}

func (s *recordingSink) last() []types.PlaceRecord {
	if len(s.writes) == 0 {
		return nil
	}
	return s.writes[len(s.writes)-1]
}

func testConfig() *types.Config {
	return types.DefaultConfig()
}

func factoryFor(adapters ...*fakeAdapter) Factory {
	byName := make(map[string]*fakeAdapter)
	for _, a := range adapters {
		byName[a.name] = a
	}
	return func(provider string) (types.ProviderAdapter, error) {
		a, ok := byName[provider]
		if !ok {
			return nil, scrapeerrors.NewConfiguration("unknown provider "+provider, nil)
		}
		return a, nil
	}
}

func newEngine(config *types.Config, sink *recordingSink, adapters ...*fakeAdapter) *Engine {
	var providers []string
	for _, a := range adapters {
		providers = append(providers, a.name)
	}
	var out store.Sink
	if sink != nil {
		out = sink
	}
	return New(config, logrus.New(), providers, factoryFor(adapters...), out)
}

// manyPlaces returns n links for one search, each with a distinct record.
func manyPlaces(provider, key string, n int) *fakeAdapter {
	a := &fakeAdapter{
		name:    provider,
		links:   map[string][]string{key: nil},
		records: make(map[string]types.PlaceRecord),
	}
	for i := 0; i < n; i++ {
		link := fmt.Sprintf("https://%s.example/place/%d", provider, i)
		a.links[key] = append(a.links[key], link)
		a.records[link] = types.PlaceRecord{
			Title:   fmt.Sprintf("Place %d", i),
			Phone:   fmt.Sprintf("+1 555 %04d", i),
			Address: fmt.Sprintf("%d Long Example Street", i),
			Link:    link,
		}
	}
	return a
}

func TestRun_IdentityKeysAreUnique(t *testing.T) {
	same := types.PlaceRecord{Title: "Cafe", Phone: "+1 555 0100", Address: "1 Main Street, Springfield"}
	adapter := &fakeAdapter{
		name: "google",
		links: map[string][]string{
			"cafe|Springfield":   {"https://g/1", "https://g/2"},
			"coffee|Springfield": {"https://g/1", "https://g/3", "https://g/4"},
		},
		records: map[string]types.PlaceRecord{
			"https://g/1": same,
			"https://g/2": {Title: "Bakery", Address: "2 Main Street, Springfield"},
			"https://g/3": same,
			"https://g/4": {Title: "Tea House"},
		},
	}
	sink := &recordingSink{}
	eng := newEngine(testConfig(), sink, adapter)

	result, err := eng.Run(context.Background(), Job{
		Cities:  []string{"Springfield"},
		Queries: []string{"cafe", "coffee"},
		Country: "USA",
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.Accepted)
	assert.Equal(t, 1, result.Duplicates)
	keys := make(map[string]bool)
	for _, r := range result.Records {
		assert.False(t, keys[r.IdentityKey()], "duplicate key %s", r.IdentityKey())
		keys[r.IdentityKey()] = true
	}

	// g/1 was accepted by the first query, so the second query skips it
	assert.Equal(t, []string{"https://g/1", "https://g/2", "https://g/3", "https://g/4"}, adapter.extracted)

	first := result.Records[0]
	assert.Equal(t, "Springfield", first.City)
	assert.Equal(t, "USA", first.Country)
	assert.Equal(t, "cafe", first.SearchQuery)
	assert.Equal(t, "google", first.Source)
	assert.True(t, adapter.closed)
	assert.Equal(t, result.Records, sink.last())
}

func TestRun_SeededWithoutNewLinks(t *testing.T) {
	var seed []types.PlaceRecord
	for i := 0; i < 7; i++ {
		seed = append(seed, types.PlaceRecord{
			Title: fmt.Sprintf("Place %d", i),
			Phone: fmt.Sprintf("+1 555 %04d", i),
			Link:  fmt.Sprintf("https://g/%d", i),
		})
	}
	adapter := &fakeAdapter{name: "google"}
	sink := &recordingSink{}
	eng := newEngine(testConfig(), sink, adapter)

	assert.Equal(t, 7, eng.Seed(seed))
	result, err := eng.Run(context.Background(), Job{Cities: []string{"A"}, Queries: []string{"q"}})
	require.NoError(t, err)

	assert.Len(t, result.Records, 7)
	assert.Equal(t, 7, result.Seeded)
	assert.Equal(t, 0, result.Accepted)
	assert.Len(t, sink.last(), 7)
}

func TestRun_SeededIdentitiesAreNotReadded(t *testing.T) {
	adapter := manyPlaces("google", "q|A", 3)
	eng := newEngine(testConfig(), &recordingSink{}, adapter)
	eng.Seed([]types.PlaceRecord{adapter.records["https://google.example/place/1"]})

	result, err := eng.Run(context.Background(), Job{Cities: []string{"A"}, Queries: []string{"q"}})
	require.NoError(t, err)

	assert.Len(t, result.Records, 3)
	assert.Equal(t, 2, result.Accepted)
	assert.Equal(t, 1, result.Duplicates)
	// seeded links are not marked seen, so the page is still visited
	assert.Len(t, adapter.extracted, 3)
}

func TestRun_CheckpointEveryFifty(t *testing.T) {
	tests := []struct {
		name        string
		places      int
		checkpoints int
	}{
		{"49 records", 49, 0},
		{"50 records", 50, 1},
		{"101 records", 101, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &recordingSink{}
			eng := newEngine(testConfig(), sink, manyPlaces("google", "q|A", tt.places))

			result, err := eng.Run(context.Background(), Job{Cities: []string{"A"}, Queries: []string{"q"}})
			require.NoError(t, err)

			assert.Equal(t, tt.checkpoints, result.Checkpoints)
			// checkpoints plus the final flush
			require.Len(t, sink.writes, tt.checkpoints+1)
			if tt.checkpoints > 0 {
				assert.Len(t, sink.writes[0], 50)
			}
			assert.Len(t, sink.last(), tt.places)
		})
	}
}

func TestRun_CheckpointCountsOnlyThisRun(t *testing.T) {
	var seed []types.PlaceRecord
	for i := 0; i < 10; i++ {
		seed = append(seed, types.PlaceRecord{Title: fmt.Sprintf("Old %d", i)})
	}
	sink := &recordingSink{}
	eng := newEngine(testConfig(), sink, manyPlaces("google", "q|A", 45))
	eng.Seed(seed)

	result, err := eng.Run(context.Background(), Job{Cities: []string{"A"}, Queries: []string{"q"}})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Checkpoints)
	assert.Len(t, result.Records, 55)
}

func TestRun_CheckpointFailureDoesNotStopRun(t *testing.T) {
	sink := &recordingSink{err: errors.New("disk full")}
	eng := newEngine(testConfig(), sink, manyPlaces("google", "q|A", 60))

	result, err := eng.Run(context.Background(), Job{Cities: []string{"A"}, Queries: []string{"q"}})
	require.Error(t, err)
	assert.Equal(t, 60, result.Accepted)
	assert.Equal(t, 0, result.Checkpoints)
	assert.Len(t, sink.writes, 2)
}

func TestRun_ProvidersRunSequentially(t *testing.T) {
	var events []string
	google := &fakeAdapter{name: "google"}
	yandex := &fakeAdapter{name: "yandex"}
	open := factoryFor(google, yandex)

	eng := New(testConfig(), logrus.New(), []string{"google", "yandex"}, func(p string) (types.ProviderAdapter, error) {
		events = append(events, "open "+p)
		a, err := open(p)
		return &closeRecorder{ProviderAdapter: a, events: &events}, err
	}, nil)

	_, err := eng.Run(context.Background(), Job{Cities: []string{"A", "B"}, Queries: []string{"q1", "q2"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"open google", "close google", "open yandex", "close yandex"}, events)
	assert.Equal(t, []string{"q1|A", "q2|A", "q1|B", "q2|B"}, google.searches)
	assert.Equal(t, google.searches, yandex.searches)
}

type closeRecorder struct {
	types.ProviderAdapter
	events *[]string
}

func (c *closeRecorder) Close() error {
	*c.events = append(*c.events, "close "+c.Name())
	return c.ProviderAdapter.Close()
}

func TestRun_CityFilterOnlyWhenSupported(t *testing.T) {
	google := &fakeAdapter{
		name:    "google",
		links:   map[string][]string{"q|Kazan": {"https://g/1"}},
		records: map[string]types.PlaceRecord{"https://g/1": {Title: "G"}},
	}
	yandex := &fakeAdapter{
		name:       "yandex",
		cityFilter: true,
		links:      map[string][]string{"q|Kazan": {"https://y/1", "https://y/2"}},
		records: map[string]types.PlaceRecord{
			"https://y/1": {Title: "Y"},
			"https://y/2": {Title: "filtered"},
		},
	}
	eng := newEngine(testConfig(), nil, google, yandex)

	result, err := eng.Run(context.Background(), Job{Cities: []string{"Kazan"}, Queries: []string{"q"}})
	require.NoError(t, err)

	assert.Equal(t, []string{""}, google.cityFilters)
	assert.Equal(t, []string{"Kazan", "Kazan"}, yandex.cityFilters)
	assert.Equal(t, 1, result.Skipped)
	assert.Len(t, result.Records, 2)
}

func TestRun_FailuresAreAbandonedNotFatal(t *testing.T) {
	adapter := &fakeAdapter{
		name: "google",
		links: map[string][]string{
			"q|B": {"https://g/missing", "https://g/ok"},
		},
		records: map[string]types.PlaceRecord{"https://g/ok": {Title: "OK"}},
		searchErr: map[string]error{
			"q|A": scrapeerrors.NewSession("google", "browser session lost", errors.New("tab crashed")),
		},
	}
	eng := newEngine(testConfig(), &recordingSink{}, adapter)

	result, err := eng.Run(context.Background(), Job{Cities: []string{"A", "B"}, Queries: []string{"q"}})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Failed)
	assert.Equal(t, 1, result.Accepted)
	assert.Equal(t, []string{"q|A", "q|B"}, adapter.searches)
}

func TestRun_LinkScope(t *testing.T) {
	shared := "https://shared/1"
	build := func(name string) *fakeAdapter {
		return &fakeAdapter{
			name:    name,
			links:   map[string][]string{"q|A": {shared}},
			records: map[string]types.PlaceRecord{shared: {Title: "Shared " + name}},
		}
	}

	google, yandex := build("google"), build("yandex")
	eng := newEngine(testConfig(), nil, google, yandex)
	_, err := eng.Run(context.Background(), Job{Cities: []string{"A"}, Queries: []string{"q"}})
	require.NoError(t, err)
	assert.Len(t, google.extracted, 1)
	assert.Empty(t, yandex.extracted)

	config := testConfig()
	config.LinkScope = types.LinkScopeProvider
	google, yandex = build("google"), build("yandex")
	eng = newEngine(config, nil, google, yandex)
	result, err := eng.Run(context.Background(), Job{Cities: []string{"A"}, Queries: []string{"q"}})
	require.NoError(t, err)
	assert.Len(t, google.extracted, 1)
	assert.Len(t, yandex.extracted, 1)
	assert.Len(t, result.Records, 2)
}

func TestRun_SeenLinksUseHarvestedLink(t *testing.T) {
	adapter := &fakeAdapter{
		name: "google",
		links: map[string][]string{
			"a|A": {"https://g/1"},
			"b|A": {"https://g/1", "https://g/2"},
		},
		records: map[string]types.PlaceRecord{
			"https://g/1": {Title: "Cafe", Link: "https://g/1/canonical"},
			"https://g/2": {Title: "Bakery"},
		},
	}
	eng := newEngine(testConfig(), nil, adapter)

	result, err := eng.Run(context.Background(), Job{Cities: []string{"A"}, Queries: []string{"a", "b"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"https://g/1", "https://g/2"}, adapter.extracted)
	assert.Equal(t, 0, result.Duplicates)
	require.Len(t, result.Records, 2)
	assert.Equal(t, "https://g/1/canonical", result.Records[0].Link)
	// an empty record link is filled from the harvested one
	assert.Equal(t, "https://g/2", result.Records[1].Link)
}

func TestRun_InterruptFlushes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	adapter := manyPlaces("google", "q|A", 5)
	// cancel while the second record is in flight; it still completes
	adapter.onExtract = func(link string) {
		if link == "https://google.example/place/1" {
			cancel()
		}
	}
	sink := &recordingSink{}
	eng := newEngine(testConfig(), sink, adapter)

	result, err := eng.Run(ctx, Job{Cities: []string{"A", "B"}, Queries: []string{"q"}})
	require.NoError(t, err)

	assert.True(t, result.Interrupted)
	assert.Equal(t, 2, result.Accepted)
	assert.Len(t, adapter.extracted, 2)
	assert.Equal(t, []string{"q|A"}, adapter.searches)
	require.Len(t, sink.writes, 1)
	assert.Len(t, sink.last(), 2)
	assert.True(t, adapter.closed)
}

func TestRun_PanicStillFlushes(t *testing.T) {
	adapter := manyPlaces("google", "q|A", 3)
	adapter.onExtract = func(link string) {
		if link == "https://google.example/place/2" {
			panic("boom")
		}
	}
	sink := &recordingSink{}
	eng := newEngine(testConfig(), sink, adapter)

	assert.PanicsWithValue(t, "boom", func() {
		_, _ = eng.Run(context.Background(), Job{Cities: []string{"A"}, Queries: []string{"q"}})
	})
	require.Len(t, sink.writes, 1)
	assert.Len(t, sink.last(), 2)
	assert.True(t, adapter.closed)
}

func TestRun_OpenFailureStillFlushes(t *testing.T) {
	sink := &recordingSink{}
	eng := New(testConfig(), logrus.New(), []string{"google"}, func(string) (types.ProviderAdapter, error) {
		return nil, scrapeerrors.NewConfiguration("no compatible browser found", nil)
	}, sink)
	eng.Seed([]types.PlaceRecord{{Title: "Old"}})

	_, err := eng.Run(context.Background(), Job{Cities: []string{"A"}, Queries: []string{"q"}})
	require.Error(t, err)
	assert.True(t, scrapeerrors.IsConfiguration(err))
	assert.Len(t, sink.last(), 1)
}

func TestRun_MultiProviderGroupsByPhone(t *testing.T) {
	google := &fakeAdapter{
		name:  "google",
		links: map[string][]string{"q|A": {"https://g/1", "https://g/2", "https://g/3"}},
		records: map[string]types.PlaceRecord{
			"https://g/1": {Title: "G1", Phone: "+1 555-0100"},
			"https://g/2": {Title: "G2"},
			"https://g/3": {Title: "G3", Phone: "+1 555-0200"},
		},
	}
	yandex := &fakeAdapter{
		name:  "yandex",
		links: map[string][]string{"q|A": {"https://y/1", "https://y/2", "https://y/3"}},
		records: map[string]types.PlaceRecord{
			"https://y/1": {Title: "Y1", Phone: "+1 (555) 0200"},
			"https://y/2": {Title: "Y2"},
			"https://y/3": {Title: "Y3", Phone: "+15550100"},
		},
	}
	eng := newEngine(testConfig(), nil, google, yandex)

	result, err := eng.Run(context.Background(), Job{Cities: []string{"A"}, Queries: []string{"q"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"G1", "Y3", "G3", "Y1", "G2", "Y2"}, titles(result.Records))
}

func titles(records []types.PlaceRecord) []string {
	var out []string
	for _, r := range records {
		out = append(out, r.Title)
	}
	return out
}
