package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"netflix-pricing/browser"
	"netflix-pricing/config"
	"netflix-pricing/db"
	"netflix-pricing/export"
	"netflix-pricing/notify"
	"netflix-pricing/scheduler"
	"netflix-pricing/scraper"
	"netflix-pricing/sheets"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	output := flag.String("output", "", "Output .xlsx file (overrides config)")
	batch := flag.Int("batch", 0, "Number of countries scraped in parallel (overrides config)")
	interval := flag.Duration("interval", 0, "Repeat the run every interval, e.g. 24h (0 runs once)")
	metricsAddr := flag.String("metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
	headed := flag.Bool("headed", false, "Show the browser window")
	countries := flag.String("countries", "", "Comma-separated country labels to scrape (default: all)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	applyFlags(cfg, *output, *batch, *interval, *metricsAddr, *headed, *countries)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		return 1
	}
	if err := configureLogging(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	logger := newModuleLogger("main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := scraper.NewMetrics()
	if cfg.Metrics.Addr != "" {
		go serveMetrics(ctx, cfg.Metrics.Addr, metrics, newModuleLogger("metrics"))
	}

	exporter, closeExporters := buildExporter(ctx, cfg)
	defer closeExporters()

	notifier := buildNotifier(cfg)

	job := func(ctx context.Context) error {
		return runOnce(ctx, cfg, exporter, notifier, metrics)
	}

	if cfg.Schedule.Interval == 0 {
		if err := job(ctx); err != nil {
			logger.WithError(err).Error("run failed")
			return 1
		}
		return 0
	}

	sched := scheduler.NewScheduler(ctx, job, cfg.Schedule.Interval, newModuleLogger("scheduler"))
	sched.Start()
	logger.WithField("interval", cfg.Schedule.Interval.String()).Info("scheduler started")

	<-ctx.Done()
	sched.Stop()
	return 0
}

func applyFlags(cfg *config.Config, output string, batch int, interval time.Duration, metricsAddr string, headed bool, countries string) {
	if output != "" {
		cfg.Output.File = output
	}
	if batch != 0 {
		cfg.Scraper.BatchSize = batch
	}
	if interval != 0 {
		cfg.Schedule.Interval = interval
	}
	if metricsAddr != "" {
		cfg.Metrics.Addr = metricsAddr
	}
	if headed {
		cfg.Browser.Headless = false
	}
	if countries != "" {
		var list []string
		for _, c := range strings.Split(countries, ",") {
			if c = strings.TrimSpace(c); c != "" {
				list = append(list, c)
			}
		}
		cfg.Scraper.Countries = list
	}
}

// runOnce launches a browser, scrapes every country and exports the records
func runOnce(ctx context.Context, cfg *config.Config, exporter export.Exporter, notifier *notify.Telegram, metrics *scraper.Metrics) error {
	logger := newModuleLogger("orchestrator")

	b, err := browser.Launch(browserOptions(cfg), newModuleLogger("browser"))
	if err != nil {
		notifyFailure(notifier, err)
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	cs := scraper.NewCountryScraper(scraperOptions(cfg), metrics, newModuleLogger("scraper"))
	orchestrator := scraper.NewOrchestrator(b, cs, exporter, scraper.OrchestratorOptions{
		BatchSize: cfg.Scraper.BatchSize,
		Countries: cfg.Scraper.Countries,
	}, metrics, logger)

	summary, records, err := orchestrator.Run(ctx)
	if err != nil {
		notifyFailure(notifier, err)
		return err
	}

	fmt.Printf("\n✅ Saved %d records for %d countries to %s\n", summary.Records, summary.Countries, cfg.Output.File)

	if notifier != nil {
		if err := notifier.NotifyRun(summary, records, cfg.Output.File); err != nil {
			logger.WithError(err).Warn("failed to send run summary")
		}
	}
	return nil
}

func notifyFailure(notifier *notify.Telegram, runErr error) {
	if notifier == nil || errors.Is(runErr, context.Canceled) {
		return
	}
	if err := notifier.NotifyFailure(runErr); err != nil {
		newModuleLogger("notify").WithError(err).Warn("failed to send failure notice")
	}
}

func browserOptions(cfg *config.Config) browser.Options {
	opts := browser.DefaultOptions()
	opts.Headless = cfg.Browser.Headless
	opts.Bin = cfg.Browser.Bin
	opts.UserDataDir = cfg.Browser.UserDataDir
	return opts
}

func scraperOptions(cfg *config.Config) scraper.Options {
	s := cfg.Scraper
	opts := scraper.DefaultOptions()
	opts.URL = s.URL
	opts.CountriesExpr = s.CountriesExpr
	opts.ConsentSelector = s.ConsentSelector
	opts.DropdownSelector = s.DropdownSelector
	opts.InputSelector = s.InputSelector
	opts.HeadingTag = s.HeadingTag
	opts.HeadingText = s.HeadingText
	opts.NavigationTimeout = s.NavigationTimeout
	opts.ConsentTimeout = s.ConsentTimeout
	opts.SelectorTimeout = s.SelectorTimeout
	opts.InputTimeout = s.InputTimeout
	opts.LoadDelay = s.LoadDelay
	opts.SettleDelay = s.SettleDelay
	opts.BootstrapDelay = s.BootstrapDelay
	opts.Progress = os.Stdout
	return opts
}

// buildExporter returns the xlsx writer plus whichever of Google Sheets and
// PostgreSQL are configured. Optional exporters that fail to initialize are
// skipped with a warning.
func buildExporter(ctx context.Context, cfg *config.Config) (export.Exporter, func()) {
	logger := newModuleLogger("export")
	multi := &export.Multi{
		Primary: export.NewXLSXWriter(cfg.Output.File, cfg.Output.Sheet, logger),
		Strict:  cfg.Output.Strict,
		Logger:  logger,
	}
	closers := []func(){}

	if cfg.Sheets.SpreadsheetURL != "" {
		spreadsheetID := sheets.ExtractSpreadsheetID(cfg.Sheets.SpreadsheetURL)
		writer, err := sheets.NewWriter(ctx, spreadsheetID, cfg.Sheets.Credentials, newModuleLogger("sheets"))
		if err != nil {
			logger.WithError(err).Warn("Google Sheets export disabled")
		} else {
			multi.Secondary = append(multi.Secondary, writer)
		}
	}

	if cfg.Database.Configured() {
		database, err := db.NewDB(ctx, cfg.Database.URL, newModuleLogger("db"))
		if err != nil {
			logger.WithError(err).Warn("database export disabled")
		} else {
			multi.Secondary = append(multi.Secondary, database)
			closers = append(closers, func() { database.Close() })
		}
	}

	return multi, func() {
		for _, c := range closers {
			c()
		}
	}
}

func buildNotifier(cfg *config.Config) *notify.Telegram {
	if cfg.Telegram.Token == "" {
		return nil
	}
	logger := newModuleLogger("notify")
	tg, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, logger)
	if err != nil {
		logger.WithError(err).Warn("Telegram notifications disabled")
		return nil
	}
	return tg
}

func serveMetrics(ctx context.Context, addr string, metrics *scraper.Metrics, logger logrus.FieldLogger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.WithField("addr", addr).Info("serving metrics")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Error("metrics server stopped")
	}
}
