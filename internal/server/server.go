// Package server exposes health, Prometheus metrics and the merged news feed
// over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"canaro-bot/internal/news"
)

// HeadlinesFunc returns the current merged headlines.
type HeadlinesFunc func(ctx context.Context) []news.Item

const newsCacheTTL = 5 * time.Minute

// headlinesCache serves one merged headline list for ttl before fetching the
// feeds again. The lock is held while fetching so concurrent readers wait for
// a single refresh.
type headlinesCache struct {
	mu        sync.Mutex
	ttl       time.Duration
	fetch     HeadlinesFunc
	now       func() time.Time
	items     []news.Item
	fetchedAt time.Time
}

func newHeadlinesCache(fetch HeadlinesFunc, ttl time.Duration) *headlinesCache {
	return &headlinesCache{ttl: ttl, fetch: fetch, now: time.Now}
}

func (c *headlinesCache) get(ctx context.Context) []news.Item {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if c.items != nil && now.Sub(c.fetchedAt) < c.ttl {
		return c.items
	}

	items := c.fetch(ctx)
	if items == nil {
		items = []news.Item{}
	}
	c.items, c.fetchedAt = items, now
	return items
}

type Server struct {
	httpServer *http.Server
}

func NewRouter(gatherer prometheus.Gatherer, headlines HeadlinesFunc, feedTitle string) *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/health", healthCheckHandler).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	if headlines != nil {
		router.HandleFunc("/news.xml", newsHandler(newHeadlinesCache(headlines, newsCacheTTL), feedTitle)).Methods(http.MethodGet)
	}
	return router
}

func New(port int, handler http.Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      handler,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Start blocks until the server stops. A clean Shutdown is not an error.
func (s *Server) Start() error {
	log.Infof("Launching metrics and health endpoint on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func healthCheckHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func newsHandler(cache *headlinesCache, title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		link := fmt.Sprintf("%s://%s/news.xml", scheme, r.Host)

		feed := news.ToFeed(title, link, "Latest crypto and AI headlines", cache.get(r.Context()), time.Now().UTC())
		rss, err := feed.ToRss()
		if err != nil {
			log.Errorf("Error converting feed to RSS: %v", err)
			http.Error(w, "Failed to generate RSS", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
		w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(newsCacheTTL.Seconds())))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(rss))
	}
}
