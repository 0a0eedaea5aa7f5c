package news

import (
	"time"

	"github.com/gorilla/feeds"
)

// ToFeed republishes merged headlines as a single feed.
func ToFeed(title, link, description string, items []Item, now time.Time) *feeds.Feed {
	feed := &feeds.Feed{
		Title:       title,
		Link:        &feeds.Link{Href: link},
		Description: description,
		Created:     now,
		Updated:     now,
	}

	for _, it := range items {
		feed.Items = append(feed.Items, &feeds.Item{
			Title:   it.Title,
			Link:    &feeds.Link{Href: it.Link},
			Id:      it.Link,
			Created: it.Published,
		})
	}
	return feed
}
