package commands

import (
	"regexp"
	"strings"

	"canaro-bot/internal/price"
)

const defaultPeriod = "1d"

var currencyPattern = regexp.MustCompile(`^[a-z]{3,5}$`)

// PriceArgs are the parsed arguments of /precio.
type PriceArgs struct {
	Coin     string
	Currency string
	Period   string
	Days     int
}

// ParsePriceArgs reads `<coin> [currency] [period]`. A currency that does not
// look like a 3-5 letter code, or an unknown period, silently keeps the
// default. Coin is empty when no argument was given.
func ParsePriceArgs(args []string, defaultCurrency string) PriceArgs {
	parsed := PriceArgs{
		Currency: strings.ToLower(defaultCurrency),
		Period:   defaultPeriod,
		Days:     price.Periods[defaultPeriod],
	}
	if len(args) == 0 {
		return parsed
	}

	parsed.Coin = strings.ToLower(strings.TrimSpace(args[0]))

	if len(args) >= 2 {
		if cur := strings.ToLower(strings.TrimSpace(args[1])); currencyPattern.MatchString(cur) {
			parsed.Currency = cur
		}
	}
	if len(args) >= 3 {
		period := strings.ToLower(strings.TrimSpace(args[2]))
		if days, ok := price.Periods[period]; ok {
			parsed.Period = period
			parsed.Days = days
		}
	}
	return parsed
}
