package commands

import (
	"strings"

	"canaro-bot/internal/news"
	"canaro-bot/lib/helpers"
	"canaro-bot/lib/translation"
)

// NewsHTML lists headlines as HTML links. HTML keeps feed URLs intact where
// MarkdownV2 would need every one of them escaped.
func NewsHTML(items []news.Item, keyword string) string {
	header := "<b>📰 " + helpers.EscapeHTML(translation.Get("Latest headlines")) + "</b>"
	if keyword = strings.TrimSpace(keyword); keyword != "" {
		header += " - " + helpers.EscapeHTML(translation.Get("filter:")) + " <i>" + helpers.EscapeHTML(keyword) + "</i>"
	}

	lines := make([]string, 0, len(items)+1)
	lines = append(lines, header)
	for _, it := range items {
		lines = append(lines, `• <a href="`+helpers.EscapeHTML(it.Link)+`">`+helpers.EscapeHTML(it.Title)+`</a>`)
	}
	return strings.Join(lines, "\n")
}

// NoHeadlines is the MarkdownV2 reply when nothing could be listed.
func NoHeadlines(keyword string) string {
	text := "📰 " + mdf("No headlines found right now.")
	if keyword = strings.TrimSpace(keyword); keyword != "" {
		text += " " + mdf("(filter: %s)", helpers.EscapeMarkdownV2(keyword))
	}
	return text
}
