package watchlist

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/desertthunder/reeltrack/internal/models"
	"github.com/desertthunder/reeltrack/internal/query"
	"github.com/desertthunder/reeltrack/internal/shared"
	tu "github.com/desertthunder/reeltrack/internal/testing"
)

type memoryWatchlist struct {
	mu     sync.Mutex
	items  map[string]models.WatchStatus
	checks int
	fail   error
}

func newMemoryWatchlist() *memoryWatchlist {
	return &memoryWatchlist{items: make(map[string]models.WatchStatus)}
}

func (m *memoryWatchlist) Watchlist(context.Context) ([]models.WatchlistItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.WatchlistItem, 0, len(m.items))
	for id, status := range m.items {
		out = append(out, models.WatchlistItem{ContentID: id, Status: status})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ContentID < out[j].ContentID })
	return out, nil
}

func (m *memoryWatchlist) WatchlistExists(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checks++
	_, ok := m.items[id]
	return ok, nil
}

func (m *memoryWatchlist) AddToWatchlist(_ context.Context, id string, status models.WatchStatus) (*models.WatchlistItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	m.items[id] = status
	return &models.WatchlistItem{ContentID: id, Status: status}, nil
}

func (m *memoryWatchlist) UpdateWatchlist(_ context.Context, id string, status models.WatchStatus) (*models.WatchlistItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return nil, shared.ErrNotFound
	}
	m.items[id] = status
	return &models.WatchlistItem{ContentID: id, Status: status}, nil
}

func (m *memoryWatchlist) RemoveFromWatchlist(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func TestKeys(t *testing.T) {
	if got := ExistsKey("movie-1"); got != "watchlist:exists:movie-1" {
		t.Errorf("unexpected exists key %q", got)
	}
}

func TestTracker(t *testing.T) {
	ctx := context.Background()

	t.Run("Add Then Exists", func(t *testing.T) {
		server := newMemoryWatchlist()
		tracker := NewTracker(query.New(), server)

		if ok, _ := tracker.Exists(ctx, "movie-1"); ok {
			t.Fatal("expected movie-1 to be absent")
		}
		if _, err := tracker.Add(ctx, "movie-1", models.StatusToWatch); err != nil {
			t.Fatalf("Add returned error: %v", err)
		}
		if ok, _ := tracker.Exists(ctx, "movie-1"); !ok {
			t.Error("expected movie-1 to exist after add")
		}
	})

	t.Run("Trackers Sharing A Cache Agree", func(t *testing.T) {
		server := newMemoryWatchlist()
		cache := query.New()
		detail := NewTracker(cache, server)
		card := NewTracker(cache, server)

		card.Exists(ctx, "movie-1")
		detail.Add(ctx, "movie-1", models.StatusWatched)

		if ok, _ := card.Exists(ctx, "movie-1"); !ok {
			t.Error("second tracker must see the first tracker's add")
		}
		items, _ := card.List(ctx)
		if len(items) != 1 || items[0].Status != models.StatusWatched {
			t.Errorf("unexpected list %+v", items)
		}
	})

	t.Run("Exists Is Cached", func(t *testing.T) {
		server := newMemoryWatchlist()
		tracker := NewTracker(query.New(), server)

		tracker.Exists(ctx, "movie-1")
		tracker.Exists(ctx, "movie-1")
		if server.checks != 1 {
			t.Errorf("expected one backend check, got %d", server.checks)
		}
	})

	t.Run("Failed Mutation Still Invalidates", func(t *testing.T) {
		server := newMemoryWatchlist()
		cache := query.New()
		tracker := NewTracker(cache, server)
		tracker.Exists(ctx, "movie-1")

		server.fail = errors.New("backend unavailable")
		if _, err := tracker.Add(ctx, "movie-1", models.StatusToWatch); err == nil {
			t.Fatal("expected add to fail")
		}

		if e, _ := cache.Peek(ExistsKey("movie-1")); !e.Stale {
			t.Error("expected exists key to be invalidated after a failed add")
		}
	})

	t.Run("Remove Unknown Returns Error", func(t *testing.T) {
		tracker := NewTracker(query.New(), newMemoryWatchlist())
		tu.AssertErrorIs(t, tracker.Remove(ctx, "nope"), shared.ErrNotFound)
		tu.AssertErrorIs(t, tracker.Remove(ctx, " "), shared.ErrMissingArgument)
	})

	t.Run("Toggle", func(t *testing.T) {
		tracker := NewTracker(query.New(), newMemoryWatchlist())

		if in, err := tracker.Toggle(ctx, "series-2"); err != nil || !in {
			t.Fatalf("expected toggle on, got %v, %v", in, err)
		}
		if in, err := tracker.Toggle(ctx, "series-2"); err != nil || in {
			t.Fatalf("expected toggle off, got %v, %v", in, err)
		}
	})
}
