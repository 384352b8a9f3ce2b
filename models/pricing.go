package models

import (
	"strings"
	"time"
)

const (
	// PlanNotAvailable marks a country whose page has no pricing section
	PlanNotAvailable = "N/A"
	// PlanError marks a country whose scrape failed
	PlanError = "ERROR"
	// CurrencyUnknown is used when price text has no currency token
	CurrencyUnknown = "Unknown"
)

// Columns is the header row of every tabular export, in column order
var Columns = []string{"Country", "Plan", "Price", "Currency", "Amount", "Note"}

// PriceRecord represents one plan price for one country
type PriceRecord struct {
	Country  string
	Plan     string
	Price    string // Price text as shown on the page, or the error message for ERROR rows
	Currency string // Currency symbol/code ($, €, Rs, ...)
	Amount   string // Digits with thousands separators stripped; never contains a comma
	Note     string // Qualifier found after "/month"
}

// Row returns the record fields in Columns order
func (r PriceRecord) Row() []string {
	return []string{r.Country, r.Plan, r.Price, r.Currency, r.Amount, r.Note}
}

// IsError reports whether the record stands for a failed scrape
func (r PriceRecord) IsError() bool {
	return r.Plan == PlanError
}

// IsNotAvailable reports whether the record stands for a page without pricing data
func (r PriceRecord) IsNotAvailable() bool {
	return r.Plan == PlanNotAvailable
}

// NotAvailableRecord builds the fallback record for a country without pricing rows
func NotAvailableRecord(country string) PriceRecord {
	return PriceRecord{
		Country: country,
		Plan:    PlanNotAvailable,
		Price:   PlanNotAvailable,
	}
}

// ErrorRecord builds the record for a country whose scrape failed
func ErrorRecord(country, message string) PriceRecord {
	return PriceRecord{
		Country: country,
		Plan:    PlanError,
		Price:   message,
	}
}

// CountryList is the ordered list of country labels discovered on the help page
type CountryList []string

// NewCountryList keeps the first occurrence of each non-empty label, in order
func NewCountryList(labels []string) CountryList {
	seen := make(map[string]bool, len(labels))
	list := make(CountryList, 0, len(labels))
	for _, label := range labels {
		label = strings.TrimSpace(label)
		if label == "" || seen[label] {
			continue
		}
		seen[label] = true
		list = append(list, label)
	}
	return list
}

// Filter returns the countries contained in allow, keeping list order.
// An empty allow list returns the list unchanged.
func (l CountryList) Filter(allow []string) CountryList {
	if len(allow) == 0 {
		return l
	}
	wanted := make(map[string]bool, len(allow))
	for _, a := range allow {
		wanted[strings.ToLower(strings.TrimSpace(a))] = true
	}
	var out CountryList
	for _, c := range l {
		if wanted[strings.ToLower(c)] {
			out = append(out, c)
		}
	}
	return out
}

// RunSummary describes the outcome of one full scrape
type RunSummary struct {
	Countries    int
	Records      int
	OK           int // countries with at least one priced plan
	NotAvailable int
	Errors       int
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Duration returns how long the run took
func (s RunSummary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

// Summarize counts per-country outcomes. A country is classified by its first record.
func Summarize(countries CountryList, records []PriceRecord) RunSummary {
	summary := RunSummary{
		Countries: len(countries),
		Records:   len(records),
	}

	classified := make(map[string]bool, len(countries))
	for _, r := range records {
		if classified[r.Country] {
			continue
		}
		classified[r.Country] = true
		switch {
		case r.IsError():
			summary.Errors++
		case r.IsNotAvailable():
			summary.NotAvailable++
		default:
			summary.OK++
		}
	}
	return summary
}

// FailedCountries lists the countries with an ERROR record, in record order
func FailedCountries(records []PriceRecord) []string {
	var failed []string
	for _, r := range records {
		if r.IsError() {
			failed = append(failed, r.Country)
		}
	}
	return failed
}
