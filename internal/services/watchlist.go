package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/desertthunder/reeltrack/internal/models"
	"github.com/desertthunder/reeltrack/internal/shared"
)

func watchlistPath(contentID string) (string, error) {
	if strings.TrimSpace(contentID) == "" {
		return "", fmt.Errorf("%w: content id", shared.ErrMissingArgument)
	}
	return "/watchlist/" + url.PathEscape(contentID), nil
}

// Watchlist returns the token user's watchlist.
func (b *BackendService) Watchlist(ctx context.Context, token string) ([]models.WatchlistItem, error) {
	var out []models.WatchlistItem
	err := b.do(ctx, request{endpoint: "watchlist.list", method: http.MethodGet, path: "/watchlist", token: token}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// WatchlistExists reports whether contentID is in the token user's watchlist.
func (b *BackendService) WatchlistExists(ctx context.Context, token, contentID string) (bool, error) {
	path, err := watchlistPath(contentID)
	if err != nil {
		return false, err
	}

	var out struct {
		Exists bool `json:"exists"`
	}
	err = b.do(ctx, request{endpoint: "watchlist.exists", method: http.MethodGet, path: path + "/exists", token: token}, &out)
	if err != nil {
		return false, err
	}
	return out.Exists, nil
}

// AddToWatchlist saves contentID with status.
func (b *BackendService) AddToWatchlist(ctx context.Context, token, contentID string, status models.WatchStatus) (*models.WatchlistItem, error) {
	return b.writeWatchlist(ctx, "watchlist.add", http.MethodPost, token, contentID, status)
}

// UpdateWatchlist changes the status of a saved entry.
func (b *BackendService) UpdateWatchlist(ctx context.Context, token, contentID string, status models.WatchStatus) (*models.WatchlistItem, error) {
	return b.writeWatchlist(ctx, "watchlist.update", http.MethodPatch, token, contentID, status)
}

func (b *BackendService) writeWatchlist(ctx context.Context, endpoint, method, token, contentID string, status models.WatchStatus) (*models.WatchlistItem, error) {
	path, err := watchlistPath(contentID)
	if err != nil {
		return nil, err
	}
	if status == "" {
		status = models.StatusToWatch
	}

	out := models.WatchlistItem{ContentID: contentID, Status: status}
	err = b.do(ctx, request{
		endpoint: endpoint, method: method, path: path, token: token,
		body: map[string]models.WatchStatus{"status": status},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// RemoveFromWatchlist deletes contentID from the token user's watchlist.
func (b *BackendService) RemoveFromWatchlist(ctx context.Context, token, contentID string) error {
	path, err := watchlistPath(contentID)
	if err != nil {
		return err
	}
	return b.do(ctx, request{endpoint: "watchlist.remove", method: http.MethodDelete, path: path, token: token}, nil)
}
