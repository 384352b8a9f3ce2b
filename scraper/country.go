package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"netflix-pricing/browser"
	"netflix-pricing/models"
	"netflix-pricing/parser"
)

// Options drives the help page interaction
type Options struct {
	URL              string
	CountriesExpr    string // JavaScript expression yielding [{label: ...}, ...]
	ConsentSelector  string
	DropdownSelector string
	InputSelector    string
	HeadingTag       string
	HeadingText      string

	NavigationTimeout time.Duration
	ConsentTimeout    time.Duration
	SelectorTimeout   time.Duration
	InputTimeout      time.Duration
	LoadDelay         time.Duration // wait after navigation before interacting
	SettleDelay       time.Duration // wait after selecting a country
	BootstrapDelay    time.Duration // wait after navigation before reading the country list

	Documents parser.DocumentFactory
	Progress  io.Writer
}

// DefaultOptions returns the settings for https://help.netflix.com/en/node/24926
func DefaultOptions() Options {
	return Options{
		URL:               "https://help.netflix.com/en/node/24926",
		CountriesExpr:     "window.netflix.data.article.allCountries",
		ConsentSelector:   "#onetrust-accept-btn-handler",
		DropdownSelector:  "div.css-hlgwow",
		InputSelector:     "input[type=text]",
		HeadingTag:        "h3",
		HeadingText:       "Pricing",
		NavigationTimeout: 60 * time.Second,
		ConsentTimeout:    3 * time.Second,
		SelectorTimeout:   5 * time.Second,
		InputTimeout:      30 * time.Second,
		LoadDelay:         2 * time.Second,
		SettleDelay:       3 * time.Second,
		BootstrapDelay:    3 * time.Second,
	}
}

// CountryScraper runs the select-country-and-read-prices sequence on one tab
type CountryScraper struct {
	opts     Options
	progress io.Writer
	metrics  *Metrics
	logger   logrus.FieldLogger
}

// NewCountryScraper creates a CountryScraper. metrics may be nil.
func NewCountryScraper(opts Options, metrics *Metrics, logger logrus.FieldLogger) *CountryScraper {
	if opts.Documents == nil {
		opts.Documents = parser.GoqueryFactory(opts.HeadingTag)
	}
	progress := opts.Progress
	if progress == nil {
		progress = os.Stdout
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &CountryScraper{
		opts:     opts,
		progress: &syncWriter{w: progress},
		metrics:  metrics,
		logger:   logger,
	}
}

// Scrape returns the price records of country read through page. It never
// fails: failures come back as a single ERROR record and a missing pricing
// section as a single N/A record.
func (cs *CountryScraper) Scrape(ctx context.Context, country string, page browser.PageHandle) (records []models.PriceRecord) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			records = cs.fail(country, stepFailed(StepInteractionFailed, "panic", fmt.Errorf("%v", r)))
		}
		cs.metrics.ObserveCountry(records, time.Since(start))
	}()

	if res := cs.open(ctx, page, cs.opts.LoadDelay); res.Fatal() {
		return cs.fail(country, res)
	}

	if res := cs.dismissConsent(ctx, page); !res.OK() {
		cs.logger.WithField("country", country).WithError(res.Err).Debug("cookie banner not dismissed")
	}

	if res := cs.selectCountry(ctx, page, country); res.Fatal() {
		return cs.fail(country, res)
	}

	html, err := page.Content(ctx)
	if err != nil {
		return cs.fail(country, stepFailed(StepInteractionFailed, "content", err))
	}

	doc, err := cs.opts.Documents(html)
	if err != nil {
		return cs.fail(country, stepFailed(StepInteractionFailed, "parse", err))
	}

	records = parser.BuildRecords(country, doc, cs.opts.HeadingText)

	fmt.Fprintf(cs.progress, "✅ %s\n", country)
	cs.logger.WithFields(logrus.Fields{
		"country": country,
		"records": len(records),
		"plan":    records[0].Plan,
	}).Debug("country scraped")

	return records
}

// DiscoverCountries reads the country list exposed by the help page script
func (cs *CountryScraper) DiscoverCountries(ctx context.Context, page browser.PageHandle) (models.CountryList, error) {
	if res := cs.open(ctx, page, cs.opts.BootstrapDelay); res.Fatal() {
		return nil, fmt.Errorf("failed to open help page: %w", res.Err)
	}

	if res := cs.dismissConsent(ctx, page); !res.OK() {
		cs.logger.WithError(res.Err).Debug("cookie banner not dismissed on bootstrap page")
	}

	raw, err := page.Evaluate(ctx, cs.opts.CountriesExpr)
	if err != nil {
		return nil, fmt.Errorf("failed to read country list: %w", err)
	}

	var entries []struct {
		Label string `json:"label"`
	}
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("failed to decode country list: %w", err)
	}

	labels := make([]string, 0, len(entries))
	for _, e := range entries {
		labels = append(labels, e.Label)
	}

	countries := models.NewCountryList(labels)
	if len(countries) == 0 {
		return nil, ErrNoCountries
	}
	return countries, nil
}

func (cs *CountryScraper) open(ctx context.Context, page browser.PageHandle, delay time.Duration) StepResult {
	if err := page.Navigate(ctx, cs.opts.URL, cs.opts.NavigationTimeout); err != nil {
		return stepFailed(StepNavigationFailed, "navigate", err)
	}
	if err := wait(ctx, delay); err != nil {
		return stepFailed(StepNavigationFailed, "load", err)
	}
	return stepOK("navigate")
}

func (cs *CountryScraper) dismissConsent(ctx context.Context, page browser.PageHandle) StepResult {
	if err := page.Click(ctx, cs.opts.ConsentSelector, cs.opts.ConsentTimeout); err != nil {
		return stepFailed(StepConsentDismissFailed, "consent", err)
	}
	return stepOK("consent")
}

// selectCountry types the label into the country selector. Labels are used
// verbatim, so a label that prefixes another may select either.
func (cs *CountryScraper) selectCountry(ctx context.Context, page browser.PageHandle, country string) StepResult {
	if err := page.Click(ctx, cs.opts.DropdownSelector, cs.opts.SelectorTimeout); err != nil {
		return stepFailed(StepInteractionFailed, "dropdown", err)
	}
	if err := page.Fill(ctx, cs.opts.InputSelector, country, cs.opts.InputTimeout); err != nil {
		return stepFailed(StepInteractionFailed, "input", err)
	}
	if err := page.PressKey(ctx, browser.KeyEnter); err != nil {
		return stepFailed(StepInteractionFailed, "enter", err)
	}
	if err := wait(ctx, cs.opts.SettleDelay); err != nil {
		return stepFailed(StepInteractionFailed, "settle", err)
	}
	return stepOK("select")
}

func (cs *CountryScraper) fail(country string, res StepResult) []models.PriceRecord {
	cs.metrics.IncStepFailure(res)
	fmt.Fprintf(cs.progress, "❌ Error: %s — %s\n", country, res.Message())
	cs.logger.WithFields(logrus.Fields{
		"country": country,
		"step":    res.Step,
		"status":  res.Status.String(),
	}).WithError(res.Err).Warn("country scrape failed")
	return []models.PriceRecord{models.ErrorRecord(country, res.Message())}
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// syncWriter serializes progress lines written from concurrent scrapes
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
