package translation

import (
	"github.com/leonelquinteros/gotext"
)

// Configure loads the gettext catalogue for lang from localesDir.
// Unknown languages fall back to the English message ids.
func Configure(localesDir, lang string) {
	gotext.Configure(localesDir, lang, "default")
}

// GetLanguage returns the active catalogue language, "en" when none loaded.
func GetLanguage() string {
	lang := gotext.GetLanguage()

	if lang == "und" || lang == "" {
		return "en"
	}

	return lang
}

// Get returns the translation of msgID with its verbs left in place, for
// callers that escape the text before formatting it.
func Get(msgID string) string {
	var vars []interface{}
	return gotext.Get(msgID, vars...)
}

// Translate returns the translation of msgID formatted with vars.
func Translate(msgID string, vars ...interface{}) string {
	return gotext.Get(msgID, vars...)
}
