package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"canaro-bot/internal/chart"
	"canaro-bot/internal/price"
)

const chartCacheTTL = 5 * time.Minute

// PriceResult is the reply to /precio. Chart is nil when the provider has no
// history for the pair or the chart could not be drawn.
type PriceResult struct {
	Quote   *price.Quote
	Caption string
	Chart   []byte
}

type PriceCommand struct {
	provider price.Provider
	renderer *chart.Renderer
	cache    *chartCache
	now      func() time.Time
}

func NewPriceCommand(provider price.Provider, renderer *chart.Renderer) *PriceCommand {
	return &PriceCommand{
		provider: provider,
		renderer: renderer,
		cache:    newChartCache(chartCacheTTL),
		now:      time.Now,
	}
}

// Run fetches the quote and, when possible, the chart for args. Only the quote
// lookup can fail the command; chart problems are logged and dropped.
func (c *PriceCommand) Run(ctx context.Context, args PriceArgs) (*PriceResult, error) {
	log.Debugf("processing command /precio with arguments %+v", args)

	quote, err := c.provider.Lookup(ctx, args.Coin, args.Currency)
	if err != nil {
		return nil, errors.Wrapf(err, "command /precio %s", args.Coin)
	}

	return &PriceResult{
		Quote:   quote,
		Caption: PriceCaption(quote, args.Period),
		Chart:   c.chart(ctx, quote, args),
	}, nil
}

func (c *PriceCommand) chart(ctx context.Context, quote *price.Quote, args PriceArgs) []byte {
	history, ok := c.provider.(price.HistoryProvider)
	if !ok || c.renderer == nil {
		return nil
	}

	key := strings.Join([]string{c.provider.Name(), quote.ID, strings.ToLower(quote.Currency), args.Period}, "|")
	if data, found := c.cache.get(key, c.now()); found {
		log.Debugf("returning cached chart for %s", key)
		return data
	}

	points, err := history.History(ctx, quote.ID, quote.Currency, args.Days)
	if err != nil {
		log.Warnf("price history for %s failed: %v", quote.ID, err)
		return nil
	}
	if len(points) == 0 {
		return nil
	}

	title := fmt.Sprintf("%s (%s) %s - %s", quote.Name, quote.Symbol, strings.ToUpper(quote.Currency), args.Period)
	data, err := c.renderer.Render(title, points)
	if err != nil {
		log.Warnf("rendering chart for %s failed: %v", quote.ID, err)
		return nil
	}

	c.cache.set(key, data, c.now())
	return data
}
