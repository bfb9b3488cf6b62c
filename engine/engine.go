package engine

import (
	"context"
	"fmt"
	"time"

	"maps-scraper/internal/types"
	scrapeerrors "maps-scraper/pkg/errors"
	"maps-scraper/store"
)

// Factory opens the adapter for a provider. The engine opens one adapter at
// a time and closes it before opening the next.
type Factory func(provider string) (types.ProviderAdapter, error)

// Job is the set of searches to run for every provider.
type Job struct {
	Cities  []string
	Queries []string
	Country string
}

// Result summarizes a run.
type Result struct {
	Records     []types.PlaceRecord
	Seeded      int
	Accepted    int
	Duplicates  int
	Failed      int
	Skipped     int
	Checkpoints int
	Interrupted bool
}

// Engine sweeps every provider, city and query combination, deduplicates
// the extracted records and keeps the sink up to date with the dataset.
type Engine struct {
	config    *types.Config
	logger    types.Logger
	providers []string
	open      Factory
	sink      store.Sink
	state     *RunState
}

// New creates an engine. providers is in priority order; sink may be nil.
func New(config *types.Config, logger types.Logger, providers []string, open Factory, sink store.Sink) *Engine {
	return &Engine{
		config:    config,
		logger:    logger,
		providers: providers,
		open:      open,
		sink:      sink,
		state:     NewRunState(),
	}
}

// Seed adds records from a previous run. Their identity keys count as seen;
// their links do not.
func (e *Engine) Seed(records []types.PlaceRecord) int {
	for _, r := range records {
		e.state.seed(r)
	}
	e.logger.Infof("Seeded %d records from a previous run", len(records))
	return len(records)
}

// Run processes every work item and always finishes by writing the full
// dataset to the sink, including when ctx is cancelled or a panic unwinds.
// The returned error is non-nil only for failures that stop the run, such as
// a provider that cannot be opened, or for a failed final write.
func (e *Engine) Run(ctx context.Context, job Job) (result *Result, err error) {
	startTime := time.Now()
	result = &Result{Seeded: e.state.seeded}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Errorf("Run aborted by panic, flushing %d records: %v", len(e.state.records), r)
			_ = e.finalize(result)
			panic(r)
		}
		if flushErr := e.finalize(result); flushErr != nil && err == nil {
			err = flushErr
		}
		e.logger.Infof("Run finished in %v: %d records (%d new, %d duplicates, %d failed, %d skipped)",
			time.Since(startTime), len(result.Records), result.Accepted, result.Duplicates, result.Failed, result.Skipped)
	}()

	for _, provider := range e.providers {
		if ctx.Err() != nil {
			break
		}
		if err := e.runProvider(ctx, provider, job, result); err != nil {
			return result, err
		}
	}

	result.Interrupted = ctx.Err() != nil
	if result.Interrupted {
		e.logger.Warnf("Run interrupted, saving collected data")
	}
	return result, nil
}

func (e *Engine) runProvider(ctx context.Context, provider string, job Job, result *Result) error {
	adapter, err := e.open(provider)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", provider, err)
	}
	defer func() {
		if err := adapter.Close(); err != nil {
			e.logger.Debugf("Closing %s: %v", provider, err)
		}
	}()

	if e.config.LinkScope == types.LinkScopeProvider {
		e.state.resetLinks()
	}

	e.logger.Infof("Starting %s: %d cities, %d queries", provider, len(job.Cities), len(job.Queries))
	for _, city := range job.Cities {
		for _, query := range job.Queries {
			if ctx.Err() != nil {
				return nil
			}
			e.processItem(ctx, adapter, workItem{
				provider: provider,
				city:     city,
				query:    query,
				country:  job.Country,
			}, result)
		}
	}
	return nil
}

type workItem struct {
	provider string
	city     string
	query    string
	country  string
}

func (e *Engine) processItem(ctx context.Context, adapter types.ProviderAdapter, item workItem, result *Result) {
	links, err := adapter.SearchPlaces(ctx, item.query, item.city, item.country)
	if err != nil {
		e.logger.Warnf("Abandoning %s search %q in %s: %v", item.provider, item.query, item.city, err)
		result.Failed++
		return
	}

	fresh := e.state.unseenLinks(links)
	e.logger.Infof("%s: %q in %s, found %d places (%d new)", item.provider, item.query, item.city, len(links), len(fresh))

	var cityFilter string
	if adapter.SupportsCityFilter() {
		cityFilter = item.city
	}

	for _, link := range fresh {
		if ctx.Err() != nil {
			return
		}

		record, err := adapter.ExtractPlaceData(link, cityFilter)
		if err != nil {
			result.Failed++
			if scrapeerrors.IsSessionFatal(err) {
				e.logger.Warnf("Abandoning %s: %v", link, err)
			} else {
				e.logger.Debugf("Failed to extract %s: %v", link, err)
			}
			continue
		}
		if record == nil {
			result.Skipped++
			continue
		}

		if record.Link == "" {
			record.Link = link
		}
		record.City = item.city
		record.Country = item.country
		record.SearchQuery = item.query
		record.Source = adapter.Name()

		if !e.state.accept(*record, link) {
			result.Duplicates++
			e.logger.Debugf("Duplicate %q from %s", record.Title, link)
			continue
		}
		result.Accepted++

		if e.state.acceptedThisRun%e.config.CheckpointEvery == 0 {
			e.checkpoint(result)
		}
	}
}

// checkpoint rewrites the whole accumulated dataset. A failure is logged and
// the run goes on; the next checkpoint or the final flush retries.
func (e *Engine) checkpoint(result *Result) {
	if e.sink == nil {
		return
	}
	if err := e.sink.WriteAll(e.state.snapshot()); err != nil {
		e.logger.Warnf("Checkpoint failed: %v", err)
		return
	}
	result.Checkpoints++
	e.logger.Infof("Checkpoint saved: %d records", len(e.state.records))
}

func (e *Engine) finalize(result *Result) error {
	records := e.state.snapshot()
	if len(e.providers) > 1 {
		records = GroupByPhone(records, e.providers)
	}
	result.Records = records

	if e.sink == nil {
		return nil
	}
	if len(records) == 0 {
		e.logger.Infof("No records collected, nothing to save")
		return nil
	}
	if err := e.sink.WriteAll(records); err != nil {
		e.logger.Errorf("Final save failed: %v", err)
		return err
	}
	e.logger.Infof("Saved %d records", len(records))
	return nil
}
