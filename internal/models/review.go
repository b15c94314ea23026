package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/reeltrack/internal/shared"
)

// ReactionType is a reaction a user can send for a review.
type ReactionType string

const (
	ReactionLike    ReactionType = "LIKE"
	ReactionDislike ReactionType = "DISLIKE"
	// ReactionUndo removes the caller's current reaction. It is never stored on a review.
	ReactionUndo ReactionType = "UNDO"
)

// Valid reports whether r is one of the three reaction values.
func (r ReactionType) Valid() bool {
	switch r {
	case ReactionLike, ReactionDislike, ReactionUndo:
		return true
	}
	return false
}

// ParseReactionType normalizes raw and returns [shared.ErrInvalidInput] for unknown values.
func ParseReactionType(raw string) (ReactionType, error) {
	r := ReactionType(strings.ToUpper(strings.TrimSpace(raw)))
	if !r.Valid() {
		return "", fmt.Errorf("%w: unknown reaction %q", shared.ErrInvalidInput, raw)
	}
	return r, nil
}

// Review is a user review of a content item. UserReaction is nil when the caller has not reacted
// or is anonymous.
type Review struct {
	ReviewID     string        `json:"reviewId"`
	ContentID    string        `json:"contentId"`
	Author       string        `json:"author"`
	Rating       int           `json:"rating"`
	Body         string        `json:"body"`
	Likes        int           `json:"likes"`
	Dislikes     int           `json:"dislikes"`
	UserReaction *ReactionType `json:"userReaction"`
	CreatedAt    time.Time     `json:"createdAt,omitzero"`
}

// Reaction returns the caller's reaction or an empty string.
func (r Review) Reaction() ReactionType {
	if r.UserReaction == nil {
		return ""
	}
	return *r.UserReaction
}

// ReactionIntent is an in-flight reaction the user asked for.
type ReactionIntent struct {
	ReviewID string       `json:"reviewId"`
	Desired  ReactionType `json:"type"`
}

// NewReview is the body for creating a review.
type NewReview struct {
	ContentID string `json:"contentId"`
	Rating    int    `json:"rating"`
	Body      string `json:"body"`
}

// Validate checks the required fields and the 1-10 rating range.
func (n NewReview) Validate() error {
	if strings.TrimSpace(n.ContentID) == "" {
		return fmt.Errorf("%w: contentId is required", shared.ErrMissingArgument)
	}
	if strings.TrimSpace(n.Body) == "" {
		return fmt.Errorf("%w: body is required", shared.ErrMissingArgument)
	}
	if n.Rating < 1 || n.Rating > 10 {
		return fmt.Errorf("%w: rating must be between 1 and 10", shared.ErrInvalidInput)
	}
	return nil
}
