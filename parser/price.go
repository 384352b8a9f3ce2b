package parser

import (
	"regexp"
	"strings"

	"netflix-pricing/models"
)

var (
	// "/month", "/ month", "/Month", also with non-breaking spaces
	monthMarkerRegex = regexp.MustCompile(`(?i)/[\s\p{Z}]*month`)
	// first run of digits, commas and periods that holds at least one digit
	amountRegex = regexp.MustCompile(`[\d,.]*\d[\d,.]*`)
	// first run of anything that is not a digit, space, comma or period
	currencyRegex = regexp.MustCompile(`[^\d\s\p{Z},.]+`)
)

// ExtractPriceDetails splits a price cell such as "€13,99 / month for new members"
// into currency, amount and the note that follows the "/month" marker.
//
// Text without "month" in it is passed through as the note with an Unknown
// currency. Only the first number and the first currency token are used, so a
// struck-through original price followed by a discounted one yields the original.
func ExtractPriceDetails(priceText string) (currency, amount, note string) {
	if priceText == "" || !strings.Contains(strings.ToLower(priceText), "month") {
		return models.CurrencyUnknown, "", priceText
	}

	text := strings.TrimSpace(priceText)

	pricePart, notePart := text, ""
	if loc := monthMarkerRegex.FindStringIndex(text); loc != nil {
		pricePart = text[:loc[0]]
		notePart = text[loc[1]:]
	}
	pricePart = strings.TrimSpace(pricePart)
	note = strings.TrimSpace(notePart)

	amount = normalizeAmount(amountRegex.FindString(pricePart))

	currency = currencyRegex.FindString(pricePart)
	if currency == "" {
		currency = models.CurrencyUnknown
	}

	return currency, amount, note
}

// normalizeAmount removes thousands separators. A comma that is the rightmost
// separator and is followed by one or two digits (13,99) or that follows a
// period (1.299,00) is a decimal comma and becomes a period.
func normalizeAmount(raw string) string {
	raw = strings.Trim(raw, ".,")
	if raw == "" {
		return ""
	}

	lastComma := strings.LastIndex(raw, ",")
	lastDot := strings.LastIndex(raw, ".")

	if lastComma > lastDot {
		fraction := raw[lastComma+1:]
		if lastDot >= 0 || (len(fraction) <= 2 && strings.Count(raw, ",") == 1) {
			whole := strings.NewReplacer(",", "", ".", "").Replace(raw[:lastComma])
			return whole + "." + fraction
		}
	}

	return strings.ReplaceAll(raw, ",", "")
}
