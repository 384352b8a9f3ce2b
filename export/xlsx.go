package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"netflix-pricing/models"
)

// DefaultFile is the spreadsheet written at the end of a run
const DefaultFile = "netflix_pricing_by_country.xlsx"

// DefaultSheet is the name of the single worksheet
const DefaultSheet = "Sheet1"

// XLSXWriter writes all records to one worksheet of a new .xlsx file
type XLSXWriter struct {
	path   string
	sheet  string
	logger logrus.FieldLogger
}

// NewXLSXWriter creates a writer for path. Existing files are overwritten.
func NewXLSXWriter(path, sheet string, logger logrus.FieldLogger) *XLSXWriter {
	if path == "" {
		path = DefaultFile
	}
	if sheet == "" {
		sheet = DefaultSheet
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &XLSXWriter{path: path, sheet: sheet, logger: logger}
}

// Path returns the output file path
func (w *XLSXWriter) Path() string {
	return w.path
}

// Export implements Exporter
func (w *XLSXWriter) Export(ctx context.Context, records []models.PriceRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if dir := filepath.Dir(w.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f := excelize.NewFile()
	defer f.Close()

	if w.sheet != DefaultSheet {
		if err := f.SetSheetName(DefaultSheet, w.sheet); err != nil {
			return fmt.Errorf("failed to name sheet: %w", err)
		}
	}

	sw, err := f.NewStreamWriter(w.sheet)
	if err != nil {
		return fmt.Errorf("failed to open sheet writer: %w", err)
	}

	if err := sw.SetRow("A1", toCells(models.Columns)); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, r := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, toCells(r.Row())); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w", err)
	}

	if err := f.SaveAs(w.path); err != nil {
		return fmt.Errorf("failed to save %s: %w", w.path, err)
	}

	w.logger.WithFields(logrus.Fields{
		"file":    w.path,
		"records": len(records),
	}).Info("spreadsheet written")
	return nil
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}
