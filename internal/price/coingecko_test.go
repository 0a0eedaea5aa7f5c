package price

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

const bitcoinDetail = `{
  "id": "bitcoin",
  "symbol": "btc",
  "name": "Bitcoin",
  "market_data": {
    "current_price": {"eur": 58000.5, "usd": 63000},
    "market_cap": {"eur": 1140000000000},
    "total_volume": {"eur": 21000000000},
    "price_change_percentage_24h_in_currency": {"eur": -1.25}
  }
}`

func newGeckoServer(t *testing.T, handler http.HandlerFunc) (*CoinGecko, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewCoinGecko(&http.Client{Timeout: 5 * time.Second}, WithBaseURL(srv.URL)), srv
}

func TestCoinGeckoLookupAliasWithoutSearch(t *testing.T) {
	gecko, _ := newGeckoServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/coins/bitcoin":
			if got := r.URL.Query().Get("market_data"); got != "true" {
				t.Errorf("market_data = %q, want true", got)
			}
			fmt.Fprint(w, bitcoinDetail)
		case "/search":
			t.Errorf("search endpoint must not be called for an alias")
			http.Error(w, "unexpected", http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	})

	got, err := gecko.Lookup(context.Background(), "btc", "eur")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}

	want := &Quote{
		ID:        "bitcoin",
		Symbol:    "BTC",
		Name:      "Bitcoin",
		Currency:  "EUR",
		Price:     58000.5,
		Change24h: -1.25,
		MarketCap: 1140000000000,
		Volume24h: 21000000000,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("quote mismatch (-want +got):\n%s", diff)
	}
}

func TestCoinGeckoLookupViaSearch(t *testing.T) {
	gecko, _ := newGeckoServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/search":
			if q := r.URL.Query().Get("query"); q != "kas" {
				t.Errorf("query = %q, want kas", q)
			}
			fmt.Fprint(w, `{"coins":[{"id":"kaspa-classic","symbol":"KASC","name":"Kaspa Classic"},{"id":"kaspa","symbol":"KAS","name":"Kaspa"}]}`)
		case "/coins/kaspa":
			fmt.Fprint(w, `{"id":"kaspa","symbol":"kas","name":"Kaspa","market_data":{"current_price":{"usd":0.12},"market_cap":{"usd":3},"total_volume":{"usd":4},"price_change_percentage_24h_in_currency":{"usd":2.5}}}`)
		default:
			http.NotFound(w, r)
		}
	})

	got, err := gecko.Lookup(context.Background(), "KAS", "usd")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got.ID != "kaspa" || got.Price != 0.12 || got.Currency != "USD" {
		t.Errorf("unexpected quote: %+v", got)
	}
}

func TestCoinGeckoLookupErrors(t *testing.T) {
	tests := []struct {
		name         string
		handler      http.HandlerFunc
		query        string
		currency     string
		wantNotFound bool
	}{
		{
			name: "empty search",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"coins":[]}`)
			},
			query:        "zzzz",
			currency:     "eur",
			wantNotFound: true,
		},
		{
			name: "unknown currency",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, bitcoinDetail)
			},
			query:        "btc",
			currency:     "xyz",
			wantNotFound: true,
		},
		{
			name: "coin 404",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.NotFound(w, r)
			},
			query:        "btc",
			currency:     "eur",
			wantNotFound: true,
		},
		{
			name: "rate limited",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
			},
			query:    "btc",
			currency: "eur",
		},
		{
			name: "malformed payload",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"id": `)
			},
			query:    "btc",
			currency: "eur",
		},
		{
			name: "missing market data",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"id":"bitcoin"}`)
			},
			query:    "btc",
			currency: "eur",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gecko, _ := newGeckoServer(t, tt.handler)
			_, err := gecko.Lookup(context.Background(), tt.query, tt.currency)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantNotFound {
				if !IsNotFound(err) {
					t.Errorf("error = %v, want ErrNotFound", err)
				}
				return
			}
			var perr *ProviderError
			if !errors.As(err, &perr) {
				t.Errorf("error = %v, want *ProviderError", err)
			}
		})
	}
}

func TestCoinGeckoTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	gecko := NewCoinGecko(&http.Client{Timeout: time.Second}, WithBaseURL(srv.URL))
	_, err := gecko.Lookup(context.Background(), "btc", "eur")
	var perr *ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("error = %v, want *ProviderError", err)
	}
	if perr.Provider != "coingecko" {
		t.Errorf("Provider = %q", perr.Provider)
	}
}

func TestCoinGeckoHistory(t *testing.T) {
	gecko, _ := newGeckoServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/coins/bitcoin/market_chart" {
			http.NotFound(w, r)
			return
		}
		q := r.URL.Query()
		if q.Get("vs_currency") != "eur" || q.Get("days") != "7" {
			t.Errorf("unexpected params: %s", r.URL.RawQuery)
		}
		fmt.Fprint(w, `{"prices":[[1715335200000, 2.0],[1715331600000, 1.0],[1715338800000]]}`)
	})

	got, err := gecko.History(context.Background(), "bitcoin", "EUR", 7)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	want := []Point{
		{Time: time.UnixMilli(1715331600000).UTC(), Price: 1.0},
		{Time: time.UnixMilli(1715335200000).UTC(), Price: 2.0},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}
}

func TestProviderErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	err := &ProviderError{Provider: "p", Op: "op", Err: inner}
	if !errors.Is(err, inner) {
		t.Error("ProviderError does not unwrap")
	}
	if !strings.Contains(err.Error(), "p op: boom") {
		t.Errorf("Error() = %q", err.Error())
	}
}
