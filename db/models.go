package db

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"netflix-pricing/models"
)

// Run is one stored scrape
type Run struct {
	ID           int
	StartedAt    time.Time
	FinishedAt   time.Time
	Countries    int
	Records      int
	OK           int
	NotAvailable int
	Errors       int
	CreatedAt    time.Time
}

// Export stores the records as a new run. Without a summary the run gets
// counts derived from the records and the current time as both start and
// finish. Callers that know the run timing use ExportRun.
func (db *DB) Export(ctx context.Context, records []models.PriceRecord) error {
	countries := make([]string, 0, len(records))
	for _, r := range records {
		countries = append(countries, r.Country)
	}
	summary := models.Summarize(models.NewCountryList(countries), records)
	summary.FinishedAt = time.Now()
	summary.StartedAt = summary.FinishedAt

	return db.ExportRun(ctx, summary, records)
}

// ExportRun stores the run with its summary and logs the plans whose price
// moved since the previously stored run. It implements export.RunExporter.
func (db *DB) ExportRun(ctx context.Context, summary models.RunSummary, records []models.PriceRecord) error {
	prev, err := db.previousRecords(ctx)
	if err != nil {
		db.logger.WithError(err).Warn("failed to load previous run, skipping price comparison")
	}

	runID, err := db.SaveRun(ctx, summary, records)
	if err != nil {
		return err
	}

	if prev != nil {
		logPriceChanges(db.logger.WithField("run_id", runID), models.PriceChanges(prev, records))
	}
	return nil
}

// previousRecords returns the records of the latest stored run, or nil when
// nothing is stored yet
func (db *DB) previousRecords(ctx context.Context) ([]models.PriceRecord, error) {
	latest, err := db.LatestRun(ctx)
	if err != nil || latest == nil {
		return nil, err
	}
	records, err := db.RecordsForRun(ctx, latest.ID)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []models.PriceRecord{}
	}
	return records, nil
}

func logPriceChanges(logger logrus.FieldLogger, changes []models.PriceChange) {
	for _, c := range changes {
		logger.WithFields(logrus.Fields{
			"country": c.Country,
			"plan":    c.Plan,
			"old":     c.Old,
			"new":     c.New,
		}).Info("price changed")
	}
	logger.WithField("changes", len(changes)).Info("compared with previous run")
}

// SaveRun inserts the run and all its records in one transaction and returns the run ID
func (db *DB) SaveRun(ctx context.Context, summary models.RunSummary, records []models.PriceRecord) (int, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var runID int
	err = tx.QueryRowContext(ctx, `
		INSERT INTO pricing_runs (started_at, finished_at, countries, records, ok_countries, na_countries, error_countries)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, summary.StartedAt, summary.FinishedAt, summary.Countries, summary.Records,
		summary.OK, summary.NotAvailable, summary.Errors).Scan(&runID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO price_records (run_id, position, country, plan, price, currency, amount_text, amount, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i, r := range records {
		_, err := stmt.ExecContext(ctx, runID, i, r.Country, r.Plan, r.Price, r.Currency, r.Amount, amountValue(r.Amount), r.Note)
		if err != nil {
			return 0, fmt.Errorf("failed to insert record (country=%s, plan=%s): %w", r.Country, r.Plan, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	db.logger.WithFields(logrus.Fields{
		"run_id":  runID,
		"records": len(records),
	}).Info("run stored")
	return runID, nil
}

// LatestRun returns the most recent run, or nil when none is stored
func (db *DB) LatestRun(ctx context.Context) (*Run, error) {
	var run Run
	err := db.conn.QueryRowContext(ctx, `
		SELECT id, started_at, finished_at, countries, records, ok_countries, na_countries, error_countries, created_at
		FROM pricing_runs
		ORDER BY id DESC
		LIMIT 1
	`).Scan(
		&run.ID, &run.StartedAt, &run.FinishedAt, &run.Countries, &run.Records,
		&run.OK, &run.NotAvailable, &run.Errors, &run.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// RecordsForRun returns the records of a run in their original order
func (db *DB) RecordsForRun(ctx context.Context, runID int) ([]models.PriceRecord, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT country, plan, price, currency, amount_text, note
		FROM price_records
		WHERE run_id = $1
		ORDER BY position ASC
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.PriceRecord
	for rows.Next() {
		var r models.PriceRecord
		if err := rows.Scan(&r.Country, &r.Plan, &r.Price, &r.Currency, &r.Amount, &r.Note); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// amountValue converts an amount to a NUMERIC column value. Amounts that do
// not parse (empty, "1.299.00") are stored as NULL.
func amountValue(amount string) sql.NullFloat64 {
	if amount == "" {
		return sql.NullFloat64{}
	}
	v, err := strconv.ParseFloat(amount, 64)
	if err != nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}
