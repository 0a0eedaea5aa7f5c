// Package quota counts media messages per chat, per user and per UTC day.
package quota

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"canaro-bot/internal/types"
)

const (
	DefaultLimit = 5
	dateLayout   = "2006-01-02"
)

// Tracker enforces the daily media limit on top of a Store.
//
// Get and Set are separate store calls, so two media messages from the same
// user arriving at the same instant can both be accepted at limit-1. The
// overshoot is at most one message per race and is tolerated.
type Tracker struct {
	store Store
	limit int
}

func NewTracker(store Store, limit int) *Tracker {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Tracker{store: store, limit: limit}
}

func (t *Tracker) Limit() int {
	return t.limit
}

// DateOf returns the UTC calendar date of now.
func DateOf(now time.Time) string {
	return now.UTC().Format(dateLayout)
}

// current returns the live record for key at now, rolled over to a zero count
// when the stored one belongs to another day.
func (t *Tracker) current(ctx context.Context, key Key, now time.Time) (types.DailyQuota, error) {
	today := DateOf(now)

	q, ok, err := t.store.Get(ctx, key)
	if err != nil {
		return types.DailyQuota{}, errors.Wrap(err, "load quota")
	}
	if !ok || q.Date != today {
		q = types.DailyQuota{ChatID: key.ChatID, UserID: key.UserID, Date: today}
	}
	return q, nil
}

// CheckAndIncrement accepts one more media message if the user is under the
// limit, returning the count after the call. A rejected call leaves the
// record untouched.
func (t *Tracker) CheckAndIncrement(ctx context.Context, chatID, userID int64, now time.Time) (bool, int, error) {
	q, err := t.current(ctx, Key{ChatID: chatID, UserID: userID}, now)
	if err != nil {
		return false, 0, err
	}

	if q.Count >= t.limit {
		return false, q.Count, nil
	}

	q.Count++
	if err := t.store.Set(ctx, q); err != nil {
		return false, q.Count - 1, errors.Wrap(err, "save quota")
	}
	return true, q.Count, nil
}

// Status reports the count used today and the limit without writing.
func (t *Tracker) Status(ctx context.Context, chatID, userID int64, now time.Time) (int, int, error) {
	q, err := t.current(ctx, Key{ChatID: chatID, UserID: userID}, now)
	if err != nil {
		return 0, t.limit, err
	}
	return q.Count, t.limit, nil
}

// Remaining is limit minus count, floored at zero.
func Remaining(count, limit int) int {
	if count >= limit {
		return 0
	}
	return limit - count
}
