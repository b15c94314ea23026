package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/reeltrack/internal/shared"
)

// ContentType is the kind of catalog entity.
type ContentType string

const (
	ContentMovie   ContentType = "movie"
	ContentSeries  ContentType = "series"
	ContentSeason  ContentType = "season"
	ContentEpisode ContentType = "episode"
)

// ParseContentType validates a listing type. Only movies and series have popular listings.
//
// An empty string defaults to [ContentMovie].
func ParseContentType(raw string) (ContentType, error) {
	switch ContentType(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ContentMovie:
		return ContentMovie, nil
	case ContentSeries:
		return ContentSeries, nil
	default:
		return "", fmt.Errorf("%w: unknown content type %q", shared.ErrInvalidInput, raw)
	}
}

// Content is a catalog entity as returned by the backend.
type Content struct {
	ID          string      `json:"id"`
	Type        ContentType `json:"type"`
	Title       string      `json:"title"`
	Overview    string      `json:"overview,omitempty"`
	PosterURL   string      `json:"posterUrl,omitempty"`
	BackdropURL string      `json:"backdropUrl,omitempty"`
	ReleaseDate string      `json:"releaseDate,omitempty"`
	Rating      float64     `json:"rating,omitempty"`
	Popularity  float64     `json:"popularity,omitempty"`
	UpdatedAt   time.Time   `json:"updatedAt,omitzero"`
}

// Year returns the four digit release year, or an empty string when unknown.
func (c Content) Year() string {
	if len(c.ReleaseDate) >= 4 {
		return c.ReleaseDate[:4]
	}
	return ""
}

// Path is the canonical page path for this content.
func (c Content) Path() string {
	return "/content/" + c.ID
}

// ContentPage is one page of a paginated catalog listing.
type ContentPage struct {
	Items      []Content `json:"items"`
	Page       int       `json:"page"`
	TotalPages int       `json:"totalPages"`
}

// Last reports whether no further pages exist.
func (p ContentPage) Last() bool {
	return len(p.Items) == 0 || (p.TotalPages > 0 && p.Page >= p.TotalPages)
}
