package price

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

const coinMarketCapBaseURL = "https://pro-api.coinmarketcap.com"

// CoinMarketCap is a symbol-based provider: the query is used verbatim as an
// upper-case ticker symbol.
type CoinMarketCap struct {
	client *http.Client
	opts   options
}

func NewCoinMarketCap(client *http.Client, opts ...Option) *CoinMarketCap {
	return &CoinMarketCap{client: client, opts: buildOptions(coinMarketCapBaseURL, opts)}
}

func (c *CoinMarketCap) Name() string { return "coinmarketcap" }

type cmcQuotesResponse struct {
	Data map[string]struct {
		Name   string `json:"name"`
		Symbol string `json:"symbol"`
		Slug   string `json:"slug"`
		Quote  map[string]struct {
			Price            float64 `json:"price"`
			Volume24h        float64 `json:"volume_24h"`
			PercentChange24h float64 `json:"percent_change_24h"`
			MarketCap        float64 `json:"market_cap"`
		} `json:"quote"`
	} `json:"data"`
}

func (c *CoinMarketCap) Lookup(ctx context.Context, query, currency string) (*Quote, error) {
	symbol := strings.ToUpper(strings.TrimSpace(query))
	convert := strings.ToUpper(currency)
	if symbol == "" {
		return nil, ErrNotFound
	}

	params := url.Values{"symbol": {symbol}, "convert": {convert}}
	u := c.opts.baseURL + "/v1/cryptocurrency/quotes/latest?" + params.Encode()

	header := http.Header{}
	header.Set("X-CMC_PRO_API_KEY", c.opts.apiKey)

	var res cmcQuotesResponse
	if err := getJSON(ctx, c.client, c.Name(), "quotes latest", u, header, &res); err != nil {
		return nil, err
	}

	coin, ok := res.Data[symbol]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "symbol %s", symbol)
	}
	q, ok := coin.Quote[convert]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "no %s quote for %s", convert, symbol)
	}

	return &Quote{
		ID:        coin.Slug,
		Symbol:    coin.Symbol,
		Name:      coin.Name,
		Currency:  convert,
		Price:     q.Price,
		Change24h: q.PercentChange24h,
		MarketCap: q.MarketCap,
		Volume24h: q.Volume24h,
	}, nil
}
