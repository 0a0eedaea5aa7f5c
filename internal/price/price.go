// Package price resolves coin queries and fetches market quotes from
// third-party providers.
package price

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// ErrNotFound means the query resolved to no known asset, or the provider has
// no quote for it in the requested currency.
var ErrNotFound = errors.New("coin not found")

// ProviderError wraps every transport, status and decoding failure.
type ProviderError struct {
	Provider string
	Op       string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func (e *ProviderError) Cause() error { return e.Err }

// Quote is a snapshot of one asset's market data in one currency.
type Quote struct {
	ID        string
	Symbol    string
	Name      string
	Currency  string
	Price     float64
	Change24h float64
	MarketCap float64
	Volume24h float64
}

// Point is one sample of a price history.
type Point struct {
	Time  time.Time
	Price float64
}

// Provider looks up the current quote for a free-text coin query.
type Provider interface {
	Name() string
	Lookup(ctx context.Context, query, currency string) (*Quote, error)
}

// HistoryProvider is implemented by providers that can chart past prices.
type HistoryProvider interface {
	History(ctx context.Context, id, currency string, days int) ([]Point, error)
}

// Periods are the accepted lookback windows, in days.
var Periods = map[string]int{
	"1d":   1,
	"7d":   7,
	"30d":  30,
	"90d":  90,
	"180d": 180,
	"365d": 365,
}

// IsNotFound reports whether err is (or wraps) ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

type options struct {
	baseURL string
	apiKey  string
}

// Option configures a provider.
type Option func(*options)

// WithBaseURL points a provider at another host (tests, proxies).
func WithBaseURL(url string) Option {
	return func(o *options) {
		o.baseURL = strings.TrimRight(url, "/")
	}
}

// WithAPIKey sets the provider API key.
func WithAPIKey(key string) Option {
	return func(o *options) {
		o.apiKey = key
	}
}

func buildOptions(defaultBaseURL string, opts []Option) options {
	o := options{baseURL: defaultBaseURL}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// getJSON performs a GET and decodes a 2xx JSON body into out. A 404 is
// reported as ErrNotFound; anything else that goes wrong is a ProviderError.
func getJSON(ctx context.Context, client *http.Client, provider, op, url string, header http.Header, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &ProviderError{Provider: provider, Op: op, Err: errors.Wrap(err, "create request")}
	}
	req.Header.Set("Accept", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return &ProviderError{Provider: provider, Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &ProviderError{Provider: provider, Op: op, Err: errors.Errorf("unexpected status %d", resp.StatusCode)}
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, 10*1024*1024)).Decode(out); err != nil {
		return &ProviderError{Provider: provider, Op: op, Err: errors.Wrap(err, "decode response")}
	}
	return nil
}
