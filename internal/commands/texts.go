// Package commands builds the replies of the bot commands. Texts are
// MarkdownV2 unless stated otherwise, with every user-provided value escaped.
package commands

import (
	"fmt"
	"strings"

	"canaro-bot/internal/price"
	"canaro-bot/internal/quota"
	"canaro-bot/lib/helpers"
	"canaro-bot/lib/translation"
)

const adminsFallback = "@admins"

// mdf translates a format string, escapes it for MarkdownV2 and fills in
// args, which must already be valid MarkdownV2.
func mdf(msgID string, args ...interface{}) string {
	return fmt.Sprintf(helpers.EscapeMarkdownV2(translation.Get(msgID)), args...)
}

func bold(text string) string {
	return "*" + helpers.EscapeMarkdownV2(text) + "*"
}

func code(text string) string {
	r := strings.NewReplacer("\\", "\\\\", "`", "\\`")
	return "`" + r.Replace(text) + "`"
}

func Start(name, groupName string) string {
	return mdf("Hello %s! Welcome to %s. Use /ayuda to see the commands.",
		helpers.EscapeMarkdownV2(name), bold(groupName))
}

func Help() string {
	lines := []string{
		"ℹ️ " + bold(translation.Get("Available commands:")),
		"",
		mdf("/noticias [word] - Latest headlines, optionally filtered by a word."),
		mdf("/precio <coin> [currency] [period] - Price and chart (e.g. %s).", code("/precio btc eur 7d")),
		mdf("/reportar <reason> - Report something to the administrators."),
		mdf("/multimedia - Check how many media files you can still send today."),
		mdf("/ayuda - Show this list of commands."),
	}
	return strings.Join(lines, "\n")
}

// Report announces a report. mentions are MarkdownV2 links to the chat
// administrators; when there are none a generic tag is used.
func Report(reporter, reason string, mentions []string) string {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = translation.Get("No reason given")
	}

	notified := helpers.EscapeMarkdownV2(adminsFallback)
	if len(mentions) > 0 {
		notified = strings.Join(mentions, " ")
	}

	return "📣 " + mdf("%s has sent a report.", bold(reporter)) + "\n" +
		bold(translation.Get("Reason:")) + " " + helpers.EscapeMarkdownV2(reason) + "\n" +
		mdf("Admins notified: %s", notified)
}

// Mention links to a Telegram user by id.
func Mention(name string, userID int64) string {
	return fmt.Sprintf("[%s](tg://user?id=%d)", helpers.EscapeMarkdownV2(name), userID)
}

func MediaStatus(count, limit int) string {
	return "📷 " + bold(translation.Get("Media available:")) + "\n\n" +
		mdf("You have sent %d of %d files today.", count, limit) + "\n" +
		mdf("You have %d left.", quota.Remaining(count, limit))
}

func MediaLimitReached(name string, limit int) string {
	return "⚠️ " + mdf("%s, you reached the daily limit of %d media files.", bold(name), limit)
}

func Welcome(name, groupName string, limit int) string {
	lines := []string{
		mdf("Welcome %s to %s 🚀!", helpers.EscapeMarkdownV2(name), bold(groupName)),
		"",
		mdf("Rules:"),
		"• " + mdf("Respect everyone."),
		"• " + mdf("No spam or advertising."),
		"• " + mdf("Content related to crypto and AI."),
		"• " + mdf("Media limit: %d per day.", limit),
		"",
		mdf("Type /ayuda to see the commands."),
	}
	return strings.Join(lines, "\n")
}

func BlockedWarning(name string) string {
	return "⚠️ " + mdf("%s, your message was removed for offensive language.", bold(name))
}

func PriceUsage() string {
	return mdf("Usage: %s (e.g. %s)", code("/precio <coin> [currency] [period]"), code("/precio btc eur 7d"))
}

func LookupFailed() string {
	return "❌ " + mdf("Could not retrieve the information. Check the symbol or try again later.")
}

func PriceCooldown(coin string, minutes int) string {
	return "⏳ " + mdf("%s was already requested here less than %d minutes ago, see the answer above.",
		bold(strings.ToUpper(coin)), minutes)
}

// PriceCaption renders a quote. period is shown only when non-empty.
func PriceCaption(q *price.Quote, period string) string {
	cur := helpers.EscapeMarkdownV2(strings.ToUpper(q.Currency))

	lines := []string{
		"💰 " + bold(translation.Translate("Price of %s (%s)", q.Name, strings.ToUpper(q.Symbol))),
		"",
		"• " + bold(translation.Get("Current price:")) + " " +
			helpers.FormatPriceUS(q.Price, true) + " " + cur + " " + helpers.TrendIcon(q.Change24h),
		"• " + bold(translation.Get("24h change:")) + " " + helpers.FormatPercent(q.Change24h, true) + "\\%",
		"• " + bold(translation.Get("Market cap:")) + " " + helpers.FormatAmount(q.MarketCap, true) + " " + cur,
		"• " + bold(translation.Get("Volume (24h):")) + " " + helpers.FormatAmount(q.Volume24h, true) + " " + cur,
	}
	if period != "" {
		lines = append(lines, "• "+bold(translation.Get("Period:"))+" "+helpers.EscapeMarkdownV2(period))
	}
	return strings.Join(lines, "\n")
}
