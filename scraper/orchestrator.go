package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"netflix-pricing/browser"
	"netflix-pricing/export"
	"netflix-pricing/models"
)

// DefaultBatchSize is the number of tabs scraped concurrently
const DefaultBatchSize = 5

// OrchestratorOptions controls batching of a run
type OrchestratorOptions struct {
	BatchSize int
	// Countries restricts the run to these labels (case-insensitive), in discovery order
	Countries []string
}

// Orchestrator discovers the countries, scrapes them batch by batch and
// exports the collected records. It owns the browser and closes it when the
// run ends.
type Orchestrator struct {
	browser  browser.Browser
	scraper  *CountryScraper
	exporter export.Exporter
	opts     OrchestratorOptions
	metrics  *Metrics
	logger   logrus.FieldLogger
}

// NewOrchestrator creates an Orchestrator. exporter and metrics may be nil.
func NewOrchestrator(b browser.Browser, cs *CountryScraper, exporter export.Exporter, opts OrchestratorOptions, metrics *Metrics, logger logrus.FieldLogger) *Orchestrator {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Orchestrator{
		browser:  b,
		scraper:  cs,
		exporter: exporter,
		opts:     opts,
		metrics:  metrics,
		logger:   logger,
	}
}

// ChunkCountries splits countries into consecutive batches of at most size
// labels. A non-positive size uses DefaultBatchSize.
func ChunkCountries(countries []string, size int) [][]string {
	if size <= 0 {
		size = DefaultBatchSize
	}
	batches := make([][]string, 0, (len(countries)+size-1)/size)
	for start := 0; start < len(countries); start += size {
		end := min(start+size, len(countries))
		batches = append(batches, countries[start:end])
	}
	return batches
}

// Run performs one full scrape. Records come back in country order, and
// within a country in page order. The browser is closed before exporting.
func (o *Orchestrator) Run(ctx context.Context) (models.RunSummary, []models.PriceRecord, error) {
	started := time.Now()

	countries, err := o.discover(ctx)
	if err != nil {
		o.closeBrowser()
		return models.RunSummary{StartedAt: started, FinishedAt: time.Now()}, nil, err
	}

	fmt.Fprintf(o.scraper.progress, "🌍 Found %d countries\n", len(countries))

	if len(o.opts.Countries) > 0 {
		countries = countries.Filter(o.opts.Countries)
		o.logger.WithField("countries", len(countries)).Info("country list restricted")
	}

	batches := ChunkCountries(countries, o.opts.BatchSize)
	var records []models.PriceRecord
	for i, batch := range batches {
		if err := ctx.Err(); err != nil {
			o.closeBrowser()
			return models.RunSummary{StartedAt: started, FinishedAt: time.Now()}, nil, fmt.Errorf("run interrupted before batch %d: %w", i+1, err)
		}

		o.logger.WithFields(logrus.Fields{
			"batch":     i + 1,
			"batches":   len(batches),
			"countries": len(batch),
		}).Info("scraping batch")

		records = append(records, o.runBatch(ctx, batch)...)
	}

	o.closeBrowser()

	summary := models.Summarize(countries, records)
	summary.StartedAt = started
	summary.FinishedAt = time.Now()

	if o.exporter != nil {
		if err := export.ExportRun(ctx, o.exporter, summary, records); err != nil {
			return summary, records, fmt.Errorf("export failed: %w", err)
		}
	}

	o.logger.WithFields(logrus.Fields{
		"countries":     summary.Countries,
		"records":       summary.Records,
		"ok":            summary.OK,
		"not_available": summary.NotAvailable,
		"errors":        summary.Errors,
		"duration":      summary.Duration().Round(time.Second).String(),
	}).Info("run finished")

	return summary, records, nil
}

func (o *Orchestrator) discover(ctx context.Context) (models.CountryList, error) {
	page, err := o.browser.NewPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open bootstrap page: %w", err)
	}
	defer func() {
		if err := page.Close(); err != nil {
			o.logger.WithError(err).Warn("failed to close bootstrap page")
		}
	}()

	return o.scraper.DiscoverCountries(ctx, page)
}

// runBatch opens one tab per country, scrapes all of them concurrently and
// closes every tab once the slowest one is done.
func (o *Orchestrator) runBatch(ctx context.Context, batch []string) []models.PriceRecord {
	pages := make([]browser.PageHandle, len(batch))
	results := make([][]models.PriceRecord, len(batch))

	for i, country := range batch {
		page, err := o.browser.NewPage(ctx)
		if err != nil {
			results[i] = o.scraper.fail(country, stepFailed(StepNavigationFailed, "new_page", err))
			o.metrics.ObserveCountry(results[i], 0)
			continue
		}
		o.metrics.TabOpened()
		pages[i] = page
	}

	var g errgroup.Group
	for i, country := range batch {
		if pages[i] == nil {
			continue
		}
		g.Go(func() error {
			results[i] = o.scraper.Scrape(ctx, country, pages[i])
			return nil
		})
	}
	_ = g.Wait()

	for i, page := range pages {
		if page == nil {
			continue
		}
		if err := page.Close(); err != nil {
			o.logger.WithError(err).WithField("country", batch[i]).Warn("failed to close tab")
		}
		o.metrics.TabClosed()
	}
	o.metrics.IncBatch()

	var records []models.PriceRecord
	for _, r := range results {
		records = append(records, r...)
	}
	return records
}

func (o *Orchestrator) closeBrowser() {
	if err := o.browser.Close(); err != nil {
		o.logger.WithError(err).Warn("failed to close browser")
	}
}
