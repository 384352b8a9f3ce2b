package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"netflix-pricing/models"
)

// Writer exports price records to a new tab of a Google spreadsheet
type Writer struct {
	service       *sheets.Service
	spreadsheetID string
	now           func() time.Time
	logger        logrus.FieldLogger
}

// NewWriter creates a writer authenticated with a service account. The
// credentials come from credentialsPath, or from GOOGLE_SHEETS_CREDENTIALS
// when the path is empty. The variable may hold either the JSON itself or a
// path to it.
func NewWriter(ctx context.Context, spreadsheetID, credentialsPath string, logger logrus.FieldLogger) (*Writer, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet ID is empty")
	}

	credsJSON, err := loadCredentials(credentialsPath)
	if err != nil {
		return nil, err
	}

	var creds struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(credsJSON, &creds); err != nil {
		return nil, fmt.Errorf("invalid credentials JSON: %w", err)
	}
	if creds.Type != "service_account" {
		return nil, fmt.Errorf("credentials must be a service account JSON file (type: service_account), got type: %q", creds.Type)
	}

	service, err := sheets.NewService(ctx, option.WithCredentialsJSON(credsJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return NewWriterWithService(service, spreadsheetID, logger), nil
}

// NewWriterWithService wraps an existing Sheets service
func NewWriterWithService(service *sheets.Service, spreadsheetID string, logger logrus.FieldLogger) *Writer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Writer{
		service:       service,
		spreadsheetID: spreadsheetID,
		now:           time.Now,
		logger:        logger,
	}
}

func loadCredentials(path string) ([]byte, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read credentials file: %w", err)
		}
		return data, nil
	}

	env := strings.TrimSpace(os.Getenv("GOOGLE_SHEETS_CREDENTIALS"))
	if env == "" {
		return nil, fmt.Errorf("credentials not found: no credentials path and GOOGLE_SHEETS_CREDENTIALS is empty")
	}
	if !strings.HasPrefix(env, "{") {
		data, err := os.ReadFile(env)
		if err != nil {
			return nil, fmt.Errorf("failed to read credentials file from GOOGLE_SHEETS_CREDENTIALS: %w", err)
		}
		return data, nil
	}
	return []byte(env), nil
}

// Export writes records to a new sheet named Pricing_<timestamp>
func (w *Writer) Export(ctx context.Context, records []models.PriceRecord) error {
	name := fmt.Sprintf("Pricing_%s", w.now().Format("20060102_150405"))
	_, _, err := w.CreateSheetAndWriteRecords(ctx, name, records)
	return err
}

// CreateSheetAndWriteRecords inserts a sheet at index 0 and writes the header
// and one row per record. It returns the sanitized sheet name and the sheet ID.
func (w *Writer) CreateSheetAndWriteRecords(ctx context.Context, sheetName string, records []models.PriceRecord) (string, int64, error) {
	sheetName = sanitizeSheetName(sheetName)

	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{
			{
				AddSheet: &sheets.AddSheetRequest{
					Properties: &sheets.SheetProperties{
						Title: sheetName,
						Index: 0,
						// Index 0 is the zero value and would be dropped from the JSON
						ForceSendFields: []string{"Index"},
					},
				},
			},
		},
	}

	resp, err := w.service.Spreadsheets.BatchUpdate(w.spreadsheetID, req).Context(ctx).Do()
	if err != nil {
		return "", 0, fmt.Errorf("failed to create sheet: %w", err)
	}

	var sheetID int64
	if len(resp.Replies) > 0 && resp.Replies[0].AddSheet != nil && resp.Replies[0].AddSheet.Properties != nil {
		sheetID = resp.Replies[0].AddSheet.Properties.SheetId
	}

	values := make([][]interface{}, 0, len(records)+1)
	values = append(values, toValues(models.Columns))
	for _, r := range records {
		values = append(values, toValues(r.Row()))
	}

	_, err = w.service.Spreadsheets.Values.Update(w.spreadsheetID, fmt.Sprintf("'%s'!A1", sheetName), &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return "", 0, fmt.Errorf("failed to write to sheet: %w", err)
	}

	w.logger.WithFields(logrus.Fields{
		"sheet":    sheetName,
		"sheet_id": sheetID,
		"records":  len(records),
	}).Info("records written to Google Sheets")

	return sheetName, sheetID, nil
}

func toValues(cells []string) []interface{} {
	row := make([]interface{}, len(cells))
	for i, c := range cells {
		row[i] = c
	}
	return row
}

// sanitizeSheetName replaces the characters Sheets rejects in tab names
func sanitizeSheetName(name string) string {
	result := strings.NewReplacer("/", "_", "\\", "_", "?", "_", "*", "_", "[", "_", "]", "_", "'", "_").Replace(name)
	result = strings.TrimSpace(result)
	if len(result) > 100 {
		result = result[:100]
	}
	if result == "" {
		result = "Pricing"
	}
	return result
}

// ExtractSpreadsheetID returns the ID in a URL such as
// https://docs.google.com/spreadsheets/d/<id>/edit?usp=sharing.
// A bare ID is returned unchanged.
func ExtractSpreadsheetID(url string) string {
	url = strings.TrimSpace(url)
	_, idPart, found := strings.Cut(url, "/d/")
	if !found {
		if strings.ContainsAny(url, "/?") {
			return ""
		}
		return url
	}

	if idx := strings.IndexAny(idPart, "/?#"); idx != -1 {
		idPart = idPart[:idx]
	}
	return idPart
}
