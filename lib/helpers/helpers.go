package helpers

import (
	"fmt"
	"html"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const markdownV2Special = "\\_*[]()~`>#+-=|{}.!"

func EscapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if strings.ContainsRune(markdownV2Special, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func EscapeHTML(text string) string {
	return html.EscapeString(text)
}

// DisplayName picks the first name, then @username, then a generic fallback.
func DisplayName(firstName, userName, fallback string) string {
	if firstName != "" {
		return firstName
	}
	if userName != "" {
		return "@" + userName
	}
	return fallback
}

func FormatPriceUS(price float64, escapeMarkdown bool) string {
	decimals := 6

	if price >= 1000 {
		decimals = 0
	} else if price > 1.2 {
		decimals = 2
	} else if price < 0.00001 {
		decimals = 8
	}

	p := message.NewPrinter(language.English)
	formatted := p.Sprintf("%.*f", decimals, price)

	if escapeMarkdown {
		return EscapeMarkdownV2(formatted)
	}
	return formatted
}

// FormatAmount renders large market figures (cap, volume) rounded to units
// with thousands separators.
func FormatAmount(amount float64, escapeMarkdown bool) string {
	formatted := humanize.CommafWithDigits(math.Round(amount), 0)
	if escapeMarkdown {
		return EscapeMarkdownV2(formatted)
	}
	return formatted
}

func FormatPercent(change float64, escapeMarkdown bool) string {
	formatted := fmt.Sprintf("%.2f", change)
	if escapeMarkdown {
		return EscapeMarkdownV2(formatted)
	}
	return formatted
}

// TrendIcon returns the chart emoji matching the sign of a price change.
func TrendIcon(change float64) string {
	if change >= 0 {
		return "📈"
	}
	return "📉"
}
