package notify

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"netflix-pricing/models"
)

// maxListedFailures caps the countries named in a summary message
const maxListedFailures = 20

// Telegram sends run summaries to one chat
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger logrus.FieldLogger
}

// NewTelegram creates a notifier for the bot token and chat
func NewTelegram(token string, chatID int64, logger logrus.FieldLogger) (*Telegram, error) {
	return NewTelegramWithEndpoint(token, tgbotapi.APIEndpoint, http.DefaultClient, chatID, logger)
}

// NewTelegramWithEndpoint creates a notifier that talks to a custom Bot API
// endpoint, formatted like tgbotapi.APIEndpoint
func NewTelegramWithEndpoint(token, endpoint string, client *http.Client, chatID int64, logger logrus.FieldLogger) (*Telegram, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token is empty")
	}
	if chatID == 0 {
		return nil, fmt.Errorf("telegram chat ID is empty")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	logger.WithField("bot", bot.Self.UserName).Info("telegram notifier ready")
	return &Telegram{bot: bot, chatID: chatID, logger: logger}, nil
}

// NotifyRun sends the summary of a finished run
func (t *Telegram) NotifyRun(summary models.RunSummary, records []models.PriceRecord, outputFile string) error {
	return t.send(FormatSummary(summary, models.FailedCountries(records), outputFile))
}

// NotifyFailure reports a run that could not complete
func (t *Telegram) NotifyFailure(err error) error {
	return t.send(fmt.Sprintf("❌ Netflix pricing run failed: %v", err))
}

func (t *Telegram) send(text string) error {
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	t.logger.WithField("chat_id", t.chatID).Debug("telegram message sent")
	return nil
}

// FormatSummary renders a run summary as a plain text message
func FormatSummary(summary models.RunSummary, failed []string, outputFile string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "🌍 Netflix pricing: %d countries, %d records\n", summary.Countries, summary.Records)
	fmt.Fprintf(&b, "✅ Priced: %d\n", summary.OK)
	fmt.Fprintf(&b, "➖ No pricing section: %d\n", summary.NotAvailable)
	fmt.Fprintf(&b, "❌ Errors: %d\n", summary.Errors)

	if !summary.StartedAt.IsZero() && !summary.FinishedAt.IsZero() {
		fmt.Fprintf(&b, "⏱ Duration: %s\n", summary.Duration().Round(time.Second))
	}

	if len(failed) > 0 {
		listed := failed
		if len(listed) > maxListedFailures {
			listed = listed[:maxListedFailures]
		}
		fmt.Fprintf(&b, "\nFailed: %s", strings.Join(listed, ", "))
		if more := len(failed) - len(listed); more > 0 {
			fmt.Fprintf(&b, " and %d more", more)
		}
		b.WriteString("\n")
	}

	if outputFile != "" {
		fmt.Fprintf(&b, "\n📄 %s", outputFile)
	}

	return strings.TrimRight(b.String(), "\n")
}
