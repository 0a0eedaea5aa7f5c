package quota

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"canaro-bot/internal/types"
)

var day1 = time.Date(2024, 5, 10, 9, 30, 0, 0, time.UTC)

func TestCheckAndIncrementUnderLimit(t *testing.T) {
	ctx := context.Background()
	tr := NewTracker(NewMemoryStore(), 5)

	count, limit, err := tr.Status(ctx, 1, 42, day1)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if count != 0 || limit != 5 {
		t.Fatalf("Status = (%d, %d), want (0, 5)", count, limit)
	}

	for i := 1; i < 5; i++ {
		accepted, after, err := tr.CheckAndIncrement(ctx, 1, 42, day1)
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if !accepted {
			t.Errorf("call %d rejected", i)
		}
		if after != i {
			t.Errorf("call %d count = %d, want %d", i, after, i)
		}
	}
}

func TestCheckAndIncrementAtLimit(t *testing.T) {
	ctx := context.Background()
	tr := NewTracker(NewMemoryStore(), 3)

	for i := 0; i < 3; i++ {
		if ok, _, _ := tr.CheckAndIncrement(ctx, 1, 42, day1); !ok {
			t.Fatalf("call %d rejected before limit", i)
		}
	}

	for i := 0; i < 10; i++ {
		accepted, after, err := tr.CheckAndIncrement(ctx, 1, 42, day1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if accepted {
			t.Errorf("call past limit accepted")
		}
		if after != 3 {
			t.Errorf("count after rejection = %d, want 3", after)
		}
	}

	count, _, _ := tr.Status(ctx, 1, 42, day1)
	if count != 3 {
		t.Errorf("Status count = %d, want 3", count)
	}
}

func TestDateRolloverResetsCount(t *testing.T) {
	ctx := context.Background()
	tr := NewTracker(NewMemoryStore(), 2)

	tr.CheckAndIncrement(ctx, 1, 42, day1)
	tr.CheckAndIncrement(ctx, 1, 42, day1)
	if ok, _, _ := tr.CheckAndIncrement(ctx, 1, 42, day1); ok {
		t.Fatal("expected rejection at limit")
	}

	day2 := day1.Add(24 * time.Hour)
	count, _, _ := tr.Status(ctx, 1, 42, day2)
	if count != 0 {
		t.Errorf("Status on new day = %d, want 0", count)
	}

	accepted, after, err := tr.CheckAndIncrement(ctx, 1, 42, day2)
	if err != nil || !accepted || after != 1 {
		t.Errorf("first call on new day = (%v, %d, %v), want (true, 1, nil)", accepted, after, err)
	}
}

func TestRolloverUsesUTCDate(t *testing.T) {
	ctx := context.Background()
	tr := NewTracker(NewMemoryStore(), 1)

	madrid := time.FixedZone("CEST", 2*3600)
	// 01:00 local on the 11th is still the 10th in UTC.
	late := time.Date(2024, 5, 11, 1, 0, 0, 0, madrid)

	tr.CheckAndIncrement(ctx, 1, 42, day1)
	if ok, _, _ := tr.CheckAndIncrement(ctx, 1, 42, late); ok {
		t.Error("same UTC day should still be over the limit")
	}
}

func TestStatusDoesNotWrite(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	tr := NewTracker(store, 5)

	if _, _, err := tr.Status(ctx, 7, 8, day1); err != nil {
		t.Fatalf("Status: %v", err)
	}
	if _, ok, _ := store.Get(ctx, Key{ChatID: 7, UserID: 8}); ok {
		t.Error("Status created a record")
	}

	store.Set(ctx, types.DailyQuota{ChatID: 7, UserID: 8, Date: "2024-05-09", Count: 5})
	tr.Status(ctx, 7, 8, day1)
	got, _, _ := store.Get(ctx, Key{ChatID: 7, UserID: 8})
	want := types.DailyQuota{ChatID: 7, UserID: 8, Date: "2024-05-09", Count: 5}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("stale record mutated by Status (-want +got):\n%s", diff)
	}
}

func TestKeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	tr := NewTracker(NewMemoryStore(), 1)

	tr.CheckAndIncrement(ctx, 1, 42, day1)

	if ok, _, _ := tr.CheckAndIncrement(ctx, 2, 42, day1); !ok {
		t.Error("same user in another chat should have its own quota")
	}
	if ok, _, _ := tr.CheckAndIncrement(ctx, 1, 43, day1); !ok {
		t.Error("another user in the same chat should have its own quota")
	}
}

func TestNewTrackerDefaultsLimit(t *testing.T) {
	if got := NewTracker(NewMemoryStore(), 0).Limit(); got != DefaultLimit {
		t.Errorf("Limit = %d, want %d", got, DefaultLimit)
	}
}

type failingStore struct{}

func (failingStore) Get(context.Context, Key) (types.DailyQuota, bool, error) {
	return types.DailyQuota{}, false, errors.New("backend down")
}

func (failingStore) Set(context.Context, types.DailyQuota) error {
	return errors.New("backend down")
}

func TestStoreErrorsAreReturned(t *testing.T) {
	tr := NewTracker(failingStore{}, 5)
	accepted, _, err := tr.CheckAndIncrement(context.Background(), 1, 1, day1)
	if err == nil {
		t.Fatal("expected error")
	}
	if accepted {
		t.Error("accepted despite store failure")
	}
}

func TestRemaining(t *testing.T) {
	tests := []struct{ count, limit, want int }{
		{0, 5, 5},
		{3, 5, 2},
		{5, 5, 0},
		{7, 5, 0},
	}
	for _, tt := range tests {
		if got := Remaining(tt.count, tt.limit); got != tt.want {
			t.Errorf("Remaining(%d, %d) = %d, want %d", tt.count, tt.limit, got, tt.want)
		}
	}
}
