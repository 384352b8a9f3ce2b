package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"netflix-pricing/browser"
	"netflix-pricing/models"
)

// fakeSite plays the help page for every tab it hands out. Tab 0 is the
// first page opened, normally the bootstrap page.
type fakeSite struct {
	mu sync.Mutex

	countriesJSON string
	evaluateErr   error
	consentErr    error
	pricing       map[string]string // country -> rendered HTML
	navigateErr   map[int]error     // tab index -> navigation error
	newPageErr    map[int]error
	panicOn       map[string]bool // Content panics for these countries

	tabs    int
	open    int
	maxOpen int
	events  []string
	closed  bool
}

func newFakeSite(countries ...string) *fakeSite {
	s := &fakeSite{
		pricing:     map[string]string{},
		navigateErr: map[int]error{},
		newPageErr:  map[int]error{},
		panicOn:     map[string]bool{},
	}
	s.countriesJSON = countriesJSON(countries...)
	return s
}

func countriesJSON(labels ...string) string {
	var b bytes.Buffer
	b.WriteString("[")
	for i, l := range labels {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, `{"label":%q,"value":"%d"}`, l, i)
	}
	b.WriteString("]")
	return b.String()
}

func pricingHTML(items ...string) string {
	var b bytes.Buffer
	b.WriteString(`<html><body><h1>Plans and Pricing</h1><h3>Pricing (local)</h3><ul>`)
	for _, it := range items {
		fmt.Fprintf(&b, "<li>%s</li>", it)
	}
	b.WriteString(`</ul></body></html>`)
	return b.String()
}

func (s *fakeSite) NewPage(ctx context.Context) (browser.PageHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.tabs
	s.tabs++
	if err := s.newPageErr[idx]; err != nil {
		s.events = append(s.events, fmt.Sprintf("fail:%d", idx))
		return nil, err
	}

	s.open++
	s.maxOpen = max(s.maxOpen, s.open)
	s.events = append(s.events, fmt.Sprintf("open:%d", idx))
	return &fakePage{site: s, idx: idx}, nil
}

func (s *fakeSite) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.events = append(s.events, "browser:close")
	return nil
}

func (s *fakeSite) Events() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events...)
}

type fakePage struct {
	site     *fakeSite
	idx      int
	typed    string
	selected string
	closed   bool
}

func (p *fakePage) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	p.site.mu.Lock()
	defer p.site.mu.Unlock()
	return p.site.navigateErr[p.idx]
}

func (p *fakePage) Click(ctx context.Context, selector string, timeout time.Duration) error {
	p.site.mu.Lock()
	defer p.site.mu.Unlock()
	if selector == DefaultOptions().ConsentSelector {
		return p.site.consentErr
	}
	return nil
}

func (p *fakePage) Fill(ctx context.Context, selector, text string, timeout time.Duration) error {
	p.typed = text
	return nil
}

func (p *fakePage) PressKey(ctx context.Context, key browser.Key) error {
	if key == browser.KeyEnter {
		p.selected = p.typed
	}
	return nil
}

func (p *fakePage) Evaluate(ctx context.Context, expr string) (string, error) {
	p.site.mu.Lock()
	defer p.site.mu.Unlock()
	if p.site.evaluateErr != nil {
		return "", p.site.evaluateErr
	}
	return p.site.countriesJSON, nil
}

func (p *fakePage) Content(ctx context.Context) (string, error) {
	p.site.mu.Lock()
	html, ok := p.site.pricing[p.selected]
	boom := p.site.panicOn[p.selected]
	p.site.mu.Unlock()

	if boom {
		panic("target detached")
	}
	if !ok {
		return `<html><body><h3>Other plans</h3><p>Not offered here.</p></body></html>`, nil
	}
	return html, nil
}

func (p *fakePage) Close() error {
	p.site.mu.Lock()
	defer p.site.mu.Unlock()
	if p.closed {
		return errors.New("already closed")
	}
	p.closed = true
	p.site.open--
	p.site.events = append(p.site.events, fmt.Sprintf("close:%d", p.idx))
	return nil
}

type captureExporter struct {
	calls   int
	records []models.PriceRecord
	err     error
}

func (c *captureExporter) Export(ctx context.Context, records []models.PriceRecord) error {
	c.calls++
	c.records = records
	return c.err
}

// runExporter also receives the run summary
type runExporter struct {
	captureExporter
	summaries []models.RunSummary
}

func (r *runExporter) ExportRun(ctx context.Context, summary models.RunSummary, records []models.PriceRecord) error {
	r.summaries = append(r.summaries, summary)
	r.records = records
	return r.err
}

func testOptions(progress *bytes.Buffer) Options {
	opts := DefaultOptions()
	opts.LoadDelay = 0
	opts.SettleDelay = 0
	opts.BootstrapDelay = 0
	opts.Progress = progress
	return opts
}

func testLogger() logrus.FieldLogger {
	logger, _ := test.NewNullLogger()
	return logger
}
