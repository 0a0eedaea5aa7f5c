package price

import (
	"context"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const coinGeckoBaseURL = "https://api.coingecko.com/api/v3"

// CoinGeckoAliases short-circuits the most common tickers without a search.
var CoinGeckoAliases = map[string]string{
	"pi":         "pi-network",
	"pi-network": "pi-network",
	"pinetwork":  "pi-network",
	"btc":        "bitcoin",
	"eth":        "ethereum",
	"sol":        "solana",
	"ada":        "cardano",
	"xrp":        "ripple",
	"doge":       "dogecoin",
	"matic":      "polygon",
}

// CoinGecko is an identity-based provider: queries go through the alias
// table and the search endpoint before the quote is fetched by id.
type CoinGecko struct {
	client   *http.Client
	opts     options
	resolver *Resolver
}

func NewCoinGecko(client *http.Client, opts ...Option) *CoinGecko {
	c := &CoinGecko{
		client: client,
		opts:   buildOptions(coinGeckoBaseURL, opts),
	}
	c.resolver = NewResolver(CoinGeckoAliases, c.search)
	return c
}

func (c *CoinGecko) Name() string { return "coingecko" }

func (c *CoinGecko) header() http.Header {
	h := http.Header{}
	if c.opts.apiKey != "" {
		h.Set("x-cg-demo-api-key", c.opts.apiKey)
	}
	return h
}

type geckoSearchResponse struct {
	Coins []struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Symbol string `json:"symbol"`
	} `json:"coins"`
}

func (c *CoinGecko) search(ctx context.Context, query string) ([]Candidate, error) {
	u := c.opts.baseURL + "/search?query=" + url.QueryEscape(query)

	var res geckoSearchResponse
	if err := getJSON(ctx, c.client, c.Name(), "search", u, c.header(), &res); err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(res.Coins))
	for _, coin := range res.Coins {
		candidates = append(candidates, Candidate{ID: coin.ID, Symbol: coin.Symbol, Name: coin.Name})
	}
	log.Debugf("coingecko search %q returned %d coins", query, len(candidates))
	return candidates, nil
}

type geckoCoinResponse struct {
	ID         string `json:"id"`
	Symbol     string `json:"symbol"`
	Name       string `json:"name"`
	MarketData *struct {
		CurrentPrice                       map[string]float64 `json:"current_price"`
		MarketCap                          map[string]float64 `json:"market_cap"`
		TotalVolume                        map[string]float64 `json:"total_volume"`
		PriceChangePercentage24hInCurrency map[string]float64 `json:"price_change_percentage_24h_in_currency"`
	} `json:"market_data"`
}

// Lookup resolves query and fetches the coin's market data in currency.
func (c *CoinGecko) Lookup(ctx context.Context, query, currency string) (*Quote, error) {
	id, err := c.resolver.Resolve(ctx, query)
	if err != nil {
		return nil, err
	}

	vs := strings.ToLower(currency)
	params := url.Values{
		"localization":   {"false"},
		"tickers":        {"false"},
		"market_data":    {"true"},
		"community_data": {"false"},
		"developer_data": {"false"},
		"sparkline":      {"false"},
	}
	u := c.opts.baseURL + "/coins/" + url.PathEscape(id) + "?" + params.Encode()

	var res geckoCoinResponse
	if err := getJSON(ctx, c.client, c.Name(), "coin detail", u, c.header(), &res); err != nil {
		return nil, err
	}
	if res.MarketData == nil {
		return nil, &ProviderError{Provider: c.Name(), Op: "coin detail", Err: errors.New("response without market data")}
	}

	p, ok := res.MarketData.CurrentPrice[vs]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "no %s price for %s", vs, id)
	}

	return &Quote{
		ID:        res.ID,
		Symbol:    strings.ToUpper(res.Symbol),
		Name:      res.Name,
		Currency:  strings.ToUpper(vs),
		Price:     p,
		Change24h: res.MarketData.PriceChangePercentage24hInCurrency[vs],
		MarketCap: res.MarketData.MarketCap[vs],
		Volume24h: res.MarketData.TotalVolume[vs],
	}, nil
}

type geckoMarketChart struct {
	Prices [][]float64 `json:"prices"`
}

// History returns price samples for the last days days, oldest first.
func (c *CoinGecko) History(ctx context.Context, id, currency string, days int) ([]Point, error) {
	params := url.Values{
		"vs_currency": {strings.ToLower(currency)},
		"days":        {strconv.Itoa(days)},
	}
	u := c.opts.baseURL + "/coins/" + url.PathEscape(id) + "/market_chart?" + params.Encode()

	var res geckoMarketChart
	if err := getJSON(ctx, c.client, c.Name(), "market chart", u, c.header(), &res); err != nil {
		return nil, err
	}

	points := make([]Point, 0, len(res.Prices))
	for _, sample := range res.Prices {
		if len(sample) < 2 {
			continue
		}
		points = append(points, Point{Time: time.UnixMilli(int64(sample[0])).UTC(), Price: sample[1]})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Time.Before(points[j].Time) })
	return points, nil
}
