package export

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"netflix-pricing/models"
)

// Exporter persists the records of a finished run
type Exporter interface {
	Export(ctx context.Context, records []models.PriceRecord) error
}

// RunExporter is implemented by exporters that also store the run summary
type RunExporter interface {
	ExportRun(ctx context.Context, summary models.RunSummary, records []models.PriceRecord) error
}

// ExporterFunc adapts a function to Exporter
type ExporterFunc func(ctx context.Context, records []models.PriceRecord) error

// Export implements Exporter
func (f ExporterFunc) Export(ctx context.Context, records []models.PriceRecord) error {
	return f(ctx, records)
}

// ExportRun hands summary and records to e, through ExportRun when e
// implements RunExporter and through Export otherwise
func ExportRun(ctx context.Context, e Exporter, summary models.RunSummary, records []models.PriceRecord) error {
	if re, ok := e.(RunExporter); ok {
		return re.ExportRun(ctx, summary, records)
	}
	return e.Export(ctx, records)
}

// Multi writes to a primary exporter and then to optional secondary ones.
// A primary failure stops the export. Secondary failures are logged and only
// returned when Strict is set.
type Multi struct {
	Primary   Exporter
	Secondary []Exporter
	Strict    bool
	Logger    logrus.FieldLogger
}

// Export implements Exporter
func (m *Multi) Export(ctx context.Context, records []models.PriceRecord) error {
	return m.each(func(e Exporter) error {
		return e.Export(ctx, records)
	})
}

// ExportRun implements RunExporter, passing the summary on to every
// exporter that accepts it
func (m *Multi) ExportRun(ctx context.Context, summary models.RunSummary, records []models.PriceRecord) error {
	return m.each(func(e Exporter) error {
		return ExportRun(ctx, e, summary, records)
	})
}

func (m *Multi) each(export func(e Exporter) error) error {
	logger := m.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	if m.Primary != nil {
		if err := export(m.Primary); err != nil {
			return fmt.Errorf("primary export failed: %w", err)
		}
	}

	var errs []error
	for _, e := range m.Secondary {
		if err := export(e); err != nil {
			logger.WithError(err).WithField("exporter", fmt.Sprintf("%T", e)).Warn("secondary export failed")
			errs = append(errs, err)
		}
	}

	if m.Strict {
		return errors.Join(errs...)
	}
	return nil
}
