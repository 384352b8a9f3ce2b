package models

import (
	"reflect"
	"testing"
)

func TestNewCountryList(t *testing.T) {
	got := NewCountryList([]string{"Canada", " Brazil ", "", "Canada", "Japan"})
	want := CountryList{"Canada", "Brazil", "Japan"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("NewCountryList() = %v, want %v", got, want)
	}
}

func TestCountryListFilter(t *testing.T) {
	list := CountryList{"Canada", "Brazil", "Japan"}

	if got := list.Filter(nil); !reflect.DeepEqual(got, list) {
		t.Errorf("Filter(nil) = %v, want %v", got, list)
	}

	got := list.Filter([]string{"japan", "Canada", "Wakanda"})
	want := CountryList{"Canada", "Japan"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Filter() = %v, want %v", got, want)
	}
}

func TestRecordConstructors(t *testing.T) {
	na := NotAvailableRecord("Cuba")
	if na.Plan != "N/A" || na.Price != "N/A" || na.Currency != "" || na.Amount != "" || na.Note != "" {
		t.Errorf("unexpected N/A record: %+v", na)
	}
	if !na.IsNotAvailable() || na.IsError() {
		t.Errorf("N/A record misclassified: %+v", na)
	}

	e := ErrorRecord("Wakanda", "timeout")
	if e.Plan != "ERROR" || e.Price != "timeout" || e.Currency != "" {
		t.Errorf("unexpected error record: %+v", e)
	}
	if !e.IsError() {
		t.Errorf("error record misclassified: %+v", e)
	}
}

func TestRowMatchesColumns(t *testing.T) {
	r := PriceRecord{Country: "Canada", Plan: "Standard", Price: "$16.49/month", Currency: "$", Amount: "16.49"}
	row := r.Row()
	if len(row) != len(Columns) {
		t.Fatalf("row has %d fields, want %d", len(row), len(Columns))
	}
	if row[0] != "Canada" || row[4] != "16.49" || row[5] != "" {
		t.Errorf("unexpected row: %v", row)
	}
}

func TestSummarize(t *testing.T) {
	countries := CountryList{"Canada", "Cuba", "Wakanda"}
	records := []PriceRecord{
		{Country: "Canada", Plan: "Basic"},
		{Country: "Canada", Plan: "Standard"},
		NotAvailableRecord("Cuba"),
		ErrorRecord("Wakanda", "boom"),
	}

	s := Summarize(countries, records)
	if s.Countries != 3 || s.Records != 4 || s.OK != 1 || s.NotAvailable != 1 || s.Errors != 1 {
		t.Errorf("Summarize() = %+v", s)
	}
}

func TestFailedCountries(t *testing.T) {
	records := []PriceRecord{
		{Country: "Canada", Plan: "Basic"},
		ErrorRecord("Wakanda", "boom"),
		NotAvailableRecord("Cuba"),
		ErrorRecord("Atlantis", "timeout"),
	}
	got := FailedCountries(records)
	if len(got) != 2 || got[0] != "Wakanda" || got[1] != "Atlantis" {
		t.Errorf("FailedCountries() = %v", got)
	}
	if FailedCountries(nil) != nil {
		t.Error("FailedCountries(nil) != nil")
	}
}
