package parser

import (
	"strings"

	"netflix-pricing/models"
)

// PlanRow is one "Plan: price" list item of the pricing section
type PlanRow struct {
	Plan      string
	PriceText string
}

// ExtractPricingRows locates the pricing heading and reads the list that follows it.
// found is false when no heading contains headingText. Items without a colon are skipped.
func ExtractPricingRows(doc DocumentView, headingText string) (rows []PlanRow, found bool) {
	heading, ok := doc.FindHeadingContaining(headingText)
	if !ok {
		return nil, false
	}

	list, ok := doc.NextList(heading)
	if !ok {
		return nil, true
	}

	for _, item := range doc.ListItems(list) {
		plan, price, ok := strings.Cut(strings.TrimSpace(item), ":")
		if !ok {
			continue
		}
		rows = append(rows, PlanRow{
			Plan:      strings.TrimSpace(plan),
			PriceText: strings.TrimSpace(price),
		})
	}

	return rows, true
}

// BuildRecords turns the pricing section of doc into price records for country.
// It always returns at least one record: the N/A record stands in when the
// section is missing or has no usable rows.
func BuildRecords(country string, doc DocumentView, headingText string) []models.PriceRecord {
	rows, _ := ExtractPricingRows(doc, headingText)

	records := make([]models.PriceRecord, 0, len(rows))
	for _, row := range rows {
		currency, amount, note := ExtractPriceDetails(row.PriceText)
		records = append(records, models.PriceRecord{
			Country:  country,
			Plan:     row.Plan,
			Price:    row.PriceText,
			Currency: currency,
			Amount:   amount,
			Note:     note,
		})
	}

	if len(records) == 0 {
		records = append(records, models.NotAvailableRecord(country))
	}
	return records
}
