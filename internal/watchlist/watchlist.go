// Package watchlist keeps watchlist membership consistent across every view of the client.
//
// Membership of a content item is cached under a single key, [ExistsKey], whatever view asked for
// it. Any completed mutation invalidates that key and [ListKey], so every [Tracker] sharing a
// [query.Cache] refetches on its next read.
package watchlist

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/reeltrack/internal/models"
	"github.com/desertthunder/reeltrack/internal/query"
	"github.com/desertthunder/reeltrack/internal/shared"
)

// ListKey is the query key of the caller's watchlist.
const ListKey = "watchlist:list"

// ExistsKey is the query key of contentID's membership.
func ExistsKey(contentID string) string {
	return query.Key("watchlist", "exists", contentID)
}

// Mutator talks to the watchlist API.
type Mutator interface {
	Watchlist(ctx context.Context) ([]models.WatchlistItem, error)
	WatchlistExists(ctx context.Context, contentID string) (bool, error)
	AddToWatchlist(ctx context.Context, contentID string, status models.WatchStatus) (*models.WatchlistItem, error)
	UpdateWatchlist(ctx context.Context, contentID string, status models.WatchStatus) (*models.WatchlistItem, error)
	RemoveFromWatchlist(ctx context.Context, contentID string) error
}

// Tracker reads and mutates watchlist state through a shared cache.
type Tracker struct {
	cache   *query.Cache
	mutator Mutator
}

// NewTracker creates a tracker over cache.
func NewTracker(cache *query.Cache, mutator Mutator) *Tracker {
	return &Tracker{cache: cache, mutator: mutator}
}

func validID(contentID string) error {
	if strings.TrimSpace(contentID) == "" {
		return fmt.Errorf("%w: content id", shared.ErrMissingArgument)
	}
	return nil
}

// Exists reports whether contentID is on the watchlist, fetching on a miss.
func (t *Tracker) Exists(ctx context.Context, contentID string) (bool, error) {
	if err := validID(contentID); err != nil {
		return false, err
	}
	return query.Get(ctx, t.cache, ExistsKey(contentID), func(ctx context.Context) (bool, error) {
		return t.mutator.WatchlistExists(ctx, contentID)
	})
}

// List returns the watchlist.
func (t *Tracker) List(ctx context.Context) ([]models.WatchlistItem, error) {
	return query.Get(ctx, t.cache, ListKey, t.mutator.Watchlist)
}

// Add saves contentID with status.
func (t *Tracker) Add(ctx context.Context, contentID string, status models.WatchStatus) (*models.WatchlistItem, error) {
	if err := validID(contentID); err != nil {
		return nil, err
	}
	defer t.settle(contentID)
	return t.mutator.AddToWatchlist(ctx, contentID, status)
}

// SetStatus changes the status of a saved item.
func (t *Tracker) SetStatus(ctx context.Context, contentID string, status models.WatchStatus) (*models.WatchlistItem, error) {
	if err := validID(contentID); err != nil {
		return nil, err
	}
	defer t.settle(contentID)
	return t.mutator.UpdateWatchlist(ctx, contentID, status)
}

// Remove deletes contentID from the watchlist.
func (t *Tracker) Remove(ctx context.Context, contentID string) error {
	if err := validID(contentID); err != nil {
		return err
	}
	defer t.settle(contentID)
	return t.mutator.RemoveFromWatchlist(ctx, contentID)
}

// Toggle adds contentID when absent and removes it otherwise. It returns the new membership.
func (t *Tracker) Toggle(ctx context.Context, contentID string) (bool, error) {
	exists, err := t.Exists(ctx, contentID)
	if err != nil {
		return false, err
	}
	if exists {
		return false, t.Remove(ctx, contentID)
	}
	if _, err := t.Add(ctx, contentID, models.StatusToWatch); err != nil {
		return false, err
	}
	return true, nil
}

// settle invalidates the keys a mutation may have changed, whether or not it succeeded.
func (t *Tracker) settle(contentID string) {
	t.cache.Invalidate(ExistsKey(contentID))
	t.cache.Invalidate(ListKey)
}
