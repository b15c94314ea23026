package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/reeltrack/internal/models"
)

var (
	_ list.Item = contentItem{}
	_ list.Item = reviewItem{}
	_ list.Item = watchItem{}
)

// contentItem wraps [models.Content] to implement [list.Item].
type contentItem struct {
	content models.Content
}

func (i contentItem) FilterValue() string { return i.content.Title }
func (i contentItem) Title() string       { return i.content.Title }
func (i contentItem) Description() string {
	parts := []string{kindLabel(i.content.Type)}
	if y := i.content.Year(); y != "" {
		parts = append(parts, y)
	}
	if i.content.Rating > 0 {
		parts = append(parts, fmt.Sprintf("★ %.1f", i.content.Rating))
	}
	return strings.Join(parts, " • ")
}

// reviewItem wraps [models.Review] to implement [list.Item].
type reviewItem struct {
	review models.Review
}

func (i reviewItem) FilterValue() string { return i.review.Author }
func (i reviewItem) Title() string {
	return fmt.Sprintf("%s · %d/10", i.review.Author, i.review.Rating)
}
func (i reviewItem) Description() string {
	like, dislike := "👍", "👎"
	switch i.review.Reaction() {
	case models.ReactionLike:
		like = "[👍]"
	case models.ReactionDislike:
		dislike = "[👎]"
	}
	return fmt.Sprintf("%s %d  %s %d • %s", like, i.review.Likes, dislike, i.review.Dislikes, i.review.Body)
}

// watchItem wraps [models.WatchlistItem] to implement [list.Item].
type watchItem struct {
	item models.WatchlistItem
}

func (i watchItem) FilterValue() string { return i.item.Title() }
func (i watchItem) Title() string       { return i.item.Title() }
func (i watchItem) Description() string {
	status := "To watch"
	if i.item.Status == models.StatusWatched {
		status = "Watched"
	}
	if !i.item.AddedAt.IsZero() {
		status = fmt.Sprintf("%s • added %s", status, i.item.AddedAt.Format("Jan 2, 2006"))
	}
	return status
}

func kindLabel(ct models.ContentType) string {
	if ct == models.ContentSeries {
		return "Series"
	}
	return "Movie"
}
