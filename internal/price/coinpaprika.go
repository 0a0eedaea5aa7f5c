package price

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/coinpaprika/coinpaprika-api-go-client/v2/coinpaprika"
	"github.com/pkg/errors"
)

// CoinPaprikaAliases maps common tickers to CoinPaprika coin ids.
var CoinPaprikaAliases = map[string]string{
	"btc":   "btc-bitcoin",
	"eth":   "eth-ethereum",
	"sol":   "sol-solana",
	"ada":   "ada-cardano",
	"xrp":   "xrp-xrp",
	"doge":  "doge-dogecoin",
	"matic": "matic-polygon",
}

// paprikaAPI is the slice of the CoinPaprika client the provider uses,
// already translated to this package's types.
type paprikaAPI interface {
	searchCoins(query string) ([]Candidate, error)
	ticker(id, currency string) (*Quote, error)
	history(id string, start time.Time, interval, quote string) ([]Point, error)
}

// CoinPaprika is an identity-based provider backed by the official client.
type CoinPaprika struct {
	api      paprikaAPI
	resolver *Resolver
	now      func() time.Time
}

func NewCoinPaprika(client *http.Client, apiKey string) *CoinPaprika {
	var pc *coinpaprika.Client
	if apiKey != "" {
		pc = coinpaprika.NewClient(client, coinpaprika.WithAPIKey(apiKey))
	} else {
		pc = coinpaprika.NewClient(client)
	}
	return newCoinPaprika(paprikaClient{client: pc})
}

func newCoinPaprika(api paprikaAPI) *CoinPaprika {
	p := &CoinPaprika{api: api, now: time.Now}
	p.resolver = NewResolver(CoinPaprikaAliases, func(_ context.Context, query string) ([]Candidate, error) {
		candidates, err := p.api.searchCoins(query)
		if err != nil {
			return nil, &ProviderError{Provider: p.Name(), Op: "search", Err: err}
		}
		return candidates, nil
	})
	return p
}

func (p *CoinPaprika) Name() string { return "coinpaprika" }

func (p *CoinPaprika) Lookup(ctx context.Context, query, currency string) (*Quote, error) {
	id, err := p.resolver.Resolve(ctx, query)
	if err != nil {
		return nil, err
	}

	q, err := p.api.ticker(id, strings.ToUpper(currency))
	if err != nil {
		if IsNotFound(err) {
			return nil, err
		}
		return nil, &ProviderError{Provider: p.Name(), Op: "ticker", Err: err}
	}
	return q, nil
}

// History only supports USD and BTC quotes; other currencies get no chart.
func (p *CoinPaprika) History(_ context.Context, id, currency string, days int) ([]Point, error) {
	cur := strings.ToLower(currency)
	if cur != "usd" && cur != "btc" {
		return nil, nil
	}

	interval := "1h"
	if days > 7 {
		interval = "1d"
	}
	points, err := p.api.history(id, p.now().AddDate(0, 0, -days), interval, cur)
	if err != nil {
		return nil, &ProviderError{Provider: p.Name(), Op: "historical tickers", Err: err}
	}
	return points, nil
}

type paprikaClient struct {
	client *coinpaprika.Client
}

func (c paprikaClient) searchCoins(query string) ([]Candidate, error) {
	result, err := c.client.Search.Search(&coinpaprika.SearchOptions{Query: query, Categories: "currencies"})
	if err != nil {
		return nil, errors.Wrap(err, "search")
	}

	var candidates []Candidate
	for _, coin := range result.Currencies {
		candidates = append(candidates, Candidate{
			ID:     deref(coin.ID),
			Symbol: deref(coin.Symbol),
			Name:   deref(coin.Name),
		})
	}
	return candidates, nil
}

func (c paprikaClient) ticker(id, currency string) (*Quote, error) {
	t, err := c.client.Tickers.GetByID(id, &coinpaprika.TickersOptions{Quotes: currency})
	if err != nil {
		return nil, errors.Wrapf(err, "ticker %s", id)
	}

	q, ok := t.Quotes[currency]
	if !ok || q.Price == nil {
		return nil, errors.Wrapf(ErrNotFound, "no %s quote for %s", currency, id)
	}

	return &Quote{
		ID:        deref(t.ID),
		Symbol:    deref(t.Symbol),
		Name:      deref(t.Name),
		Currency:  currency,
		Price:     *q.Price,
		Change24h: derefFloat(q.PercentChange24h),
		MarketCap: derefFloat(q.MarketCap),
		Volume24h: derefFloat(q.Volume24h),
	}, nil
}

func (c paprikaClient) history(id string, start time.Time, interval, quote string) ([]Point, error) {
	tickers, err := c.client.Tickers.GetHistoricalTickersByID(id, &coinpaprika.TickersHistoricalOptions{
		Start:    start,
		Interval: interval,
		Quote:    quote,
		Limit:    5000,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "historical tickers %s", id)
	}

	points := make([]Point, 0, len(tickers))
	for _, t := range tickers {
		if t.Timestamp == nil || t.Price == nil {
			continue
		}
		points = append(points, Point{Time: *t.Timestamp, Price: *t.Price})
	}
	return points, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefFloat(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
