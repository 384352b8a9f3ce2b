package notify

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"netflix-pricing/models"
)

func TestFormatSummary(t *testing.T) {
	start := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	summary := models.RunSummary{
		Countries:    3,
		Records:      5,
		OK:           1,
		NotAvailable: 1,
		Errors:       1,
		StartedAt:    start,
		FinishedAt:   start.Add(95 * time.Second),
	}

	got := FormatSummary(summary, []string{"Wakanda"}, "netflix_pricing_by_country.xlsx")
	want := "🌍 Netflix pricing: 3 countries, 5 records\n" +
		"✅ Priced: 1\n" +
		"➖ No pricing section: 1\n" +
		"❌ Errors: 1\n" +
		"⏱ Duration: 1m35s\n" +
		"\nFailed: Wakanda\n" +
		"\n📄 netflix_pricing_by_country.xlsx"
	if got != want {
		t.Errorf("FormatSummary() =\n%s\nwant\n%s", got, want)
	}
}

func TestFormatSummaryTruncatesFailures(t *testing.T) {
	var failed []string
	for i := 0; i < 25; i++ {
		failed = append(failed, fmt.Sprintf("C%d", i))
	}

	got := FormatSummary(models.RunSummary{Errors: 25}, failed, "")
	if !strings.Contains(got, "C19 and 5 more") {
		t.Errorf("FormatSummary() = %q, want truncated failure list", got)
	}
	if strings.Contains(got, "C20") || strings.Contains(got, "Duration") || strings.Contains(got, "📄") {
		t.Errorf("FormatSummary() = %q", got)
	}
}

// botAPI answers the Bot API methods the notifier uses
type botAPI struct {
	mu       sync.Mutex
	messages []string
	chatIDs  []string
}

func (a *botAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, "/getMe"):
		fmt.Fprint(w, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Pricing","username":"pricing_bot"}}`)
	case strings.HasSuffix(r.URL.Path, "/sendMessage"):
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		a.mu.Lock()
		a.messages = append(a.messages, r.PostForm.Get("text"))
		a.chatIDs = append(a.chatIDs, r.PostForm.Get("chat_id"))
		a.mu.Unlock()
		fmt.Fprint(w, `{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":42,"type":"private"},"text":"ok"}}`)
	default:
		fmt.Fprint(w, `{"ok":false,"error_code":404,"description":"Not Found"}`)
	}
}

func newTestTelegram(t *testing.T) (*Telegram, *botAPI) {
	t.Helper()
	api := &botAPI{}
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)

	tg, err := NewTelegramWithEndpoint("TOKEN", server.URL+"/bot%s/%s", server.Client(), 42, nil)
	if err != nil {
		t.Fatalf("NewTelegramWithEndpoint() error = %v", err)
	}
	return tg, api
}

func TestTelegramNotifyRun(t *testing.T) {
	tg, api := newTestTelegram(t)

	records := []models.PriceRecord{
		{Country: "Canada", Plan: "Standard"},
		models.ErrorRecord("Wakanda", "timeout"),
	}
	summary := models.Summarize(models.CountryList{"Canada", "Wakanda"}, records)

	if err := tg.NotifyRun(summary, records, "out.xlsx"); err != nil {
		t.Fatalf("NotifyRun() error = %v", err)
	}
	if err := tg.NotifyFailure(errors.New("no countries found")); err != nil {
		t.Fatalf("NotifyFailure() error = %v", err)
	}

	if len(api.messages) != 2 {
		t.Fatalf("sent %d messages, want 2", len(api.messages))
	}
	if api.chatIDs[0] != "42" {
		t.Errorf("chat_id = %q, want 42", api.chatIDs[0])
	}
	if !strings.Contains(api.messages[0], "Failed: Wakanda") || !strings.Contains(api.messages[0], "out.xlsx") {
		t.Errorf("summary message = %q", api.messages[0])
	}
	if api.messages[1] != "❌ Netflix pricing run failed: no countries found" {
		t.Errorf("failure message = %q", api.messages[1])
	}
}

func TestNewTelegramValidation(t *testing.T) {
	if _, err := NewTelegram("", 42, nil); err == nil {
		t.Error("NewTelegram() with empty token succeeded")
	}
	if _, err := NewTelegram("TOKEN", 0, nil); err == nil {
		t.Error("NewTelegram() with empty chat ID succeeded")
	}
}
