// Package news merges headlines from several RSS/Atom feeds.
package news

import (
	"context"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

const maxFeedSize = 5 * 1024 * 1024

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Item is one headline. Published is zero when the feed date could not be
// parsed, so such items sort after every dated one.
type Item struct {
	Title     string
	Link      string
	Published time.Time
}

// Aggregator downloads feeds and merges their headlines.
type Aggregator struct {
	client    HTTPClient
	userAgent string
}

func New(client HTTPClient, userAgent string) *Aggregator {
	return &Aggregator{client: client, userAgent: userAgent}
}

// Aggregate fetches every feed concurrently and returns the merged headlines,
// newest first, filtered by keyword (case-insensitive, on the title),
// deduplicated by link and cut to maxItems when maxItems > 0. A feed that
// fails is logged and skipped. The result is never nil.
func (a *Aggregator) Aggregate(ctx context.Context, feedURLs []string, keyword string, maxItems int) []Item {
	perFeed := make([][]Item, len(feedURLs))

	var wg sync.WaitGroup
	for i, url := range feedURLs {
		wg.Add(1)
		go func(i int, url string) {
			defer wg.Done()
			items, err := a.Fetch(ctx, url)
			if err != nil {
				log.Warnf("news feed %s failed: %v", url, err)
				return
			}
			perFeed[i] = items
		}(i, strings.TrimSpace(url))
	}
	wg.Wait()

	var all []Item
	for _, items := range perFeed {
		all = append(all, items...)
	}

	return Merge(all, keyword, maxItems)
}

// Merge applies the keyword filter, ordering, deduplication and truncation to
// items already in feed order. The input slice is not modified.
func Merge(items []Item, keyword string, maxItems int) []Item {
	items = append([]Item(nil), items...)
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	if keyword != "" {
		items = lo.Filter(items, func(it Item, _ int) bool {
			return strings.Contains(strings.ToLower(it.Title), keyword)
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Published.After(items[j].Published)
	})

	items = lo.UniqBy(items, func(it Item) string { return it.Link })

	if maxItems > 0 && len(items) > maxItems {
		items = items[:maxItems]
	}
	if items == nil {
		items = []Item{}
	}
	return items
}

// Fetch downloads one feed and returns its headlines in document order.
func (a *Aggregator) Fetch(ctx context.Context, url string) ([]Item, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	if a.userAgent != "" {
		req.Header.Set("User-Agent", a.userAgent)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "http get")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedSize))
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}

	return Parse(string(body))
}

// Parse reads an RSS document, or an Atom document when it carries no RSS
// items. Atom entries are dated by their updated timestamp, falling back to
// published.
func Parse(body string) ([]Item, error) {
	feed, err := gofeed.NewParser().ParseString(body)
	if err != nil {
		return nil, errors.Wrap(err, "parse feed")
	}

	items := make([]Item, 0, len(feed.Items))
	for _, it := range feed.Items {
		items = append(items, Item{
			Title:     strings.TrimSpace(it.Title),
			Link:      strings.TrimSpace(itemLink(it)),
			Published: itemTime(feed.FeedType, it),
		})
	}
	return items, nil
}

func itemLink(it *gofeed.Item) string {
	if it.Link != "" {
		return it.Link
	}
	if len(it.Links) > 0 {
		return it.Links[0]
	}
	return ""
}

func itemTime(feedType string, it *gofeed.Item) time.Time {
	first, second := it.PublishedParsed, it.UpdatedParsed
	if feedType == "atom" {
		first, second = second, first
	}
	switch {
	case first != nil:
		return first.UTC()
	case second != nil:
		return second.UTC()
	}
	return time.Time{}
}
