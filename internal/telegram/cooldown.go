package telegram

import (
	"strconv"
	"sync"
	"time"
)

type lastAnswer struct {
	at        time.Time
	messageID int
}

// cooldown remembers when a price was last answered per chat and coin.
type cooldown struct {
	mu     sync.Mutex
	window time.Duration
	last   map[string]lastAnswer
}

func newCooldown(window time.Duration) *cooldown {
	return &cooldown{window: window, last: make(map[string]lastAnswer)}
}

func cooldownKey(chatID int64, coin string) string {
	return strconv.FormatInt(chatID, 10) + "|" + coin
}

// recent returns the id of the earlier answer when it is still inside the
// window. Expired entries are dropped.
func (c *cooldown) recent(key string, now time.Time) (int, bool) {
	if c.window <= 0 {
		return 0, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	prev, ok := c.last[key]
	if !ok {
		return 0, false
	}
	if now.Sub(prev.at) >= c.window {
		delete(c.last, key)
		return 0, false
	}
	return prev.messageID, true
}

func (c *cooldown) record(key string, messageID int, now time.Time) {
	if c.window <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for k, prev := range c.last {
		if now.Sub(prev.at) >= c.window {
			delete(c.last, k)
		}
	}
	c.last[key] = lastAnswer{at: now, messageID: messageID}
}
