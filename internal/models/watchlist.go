package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/reeltrack/internal/shared"
)

// WatchStatus tags a watchlist entry.
type WatchStatus string

const (
	StatusToWatch WatchStatus = "TO_WATCH"
	StatusWatched WatchStatus = "WATCHED"
)

// ParseWatchStatus validates raw. An empty value defaults to [StatusToWatch].
func ParseWatchStatus(raw string) (WatchStatus, error) {
	switch s := WatchStatus(strings.ToUpper(strings.TrimSpace(raw))); s {
	case "":
		return StatusToWatch, nil
	case StatusToWatch, StatusWatched:
		return s, nil
	default:
		return "", fmt.Errorf("%w: unknown watch status %q", shared.ErrInvalidInput, raw)
	}
}

// WatchlistItem is one saved entry in a user's watchlist.
type WatchlistItem struct {
	ContentID string      `json:"contentId"`
	Status    WatchStatus `json:"status"`
	Content   *Content    `json:"content,omitempty"`
	AddedAt   time.Time   `json:"addedAt,omitzero"`
}

// Title returns the content title, falling back to the content ID.
func (w WatchlistItem) Title() string {
	if w.Content != nil && w.Content.Title != "" {
		return w.Content.Title
	}
	return w.ContentID
}
