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

// Reviews lists reviews for contentID. With a token the backend fills in UserReaction.
func (b *BackendService) Reviews(ctx context.Context, token, contentID string) ([]models.Review, error) {
	if strings.TrimSpace(contentID) == "" {
		return nil, fmt.Errorf("%w: content id", shared.ErrMissingArgument)
	}
	q := url.Values{}
	q.Set("contentId", contentID)

	var out []models.Review
	err := b.do(ctx, request{
		endpoint: "reviews.list", method: http.MethodGet, path: "/reviews", query: q, token: token,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CreateReview posts a new review as the token's user.
func (b *BackendService) CreateReview(ctx context.Context, token string, review models.NewReview) (*models.Review, error) {
	if err := review.Validate(); err != nil {
		return nil, err
	}

	var out models.Review
	err := b.do(ctx, request{
		endpoint: "reviews.create", method: http.MethodPost, path: "/reviews", token: token, body: review,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteReview removes one of the token user's reviews.
func (b *BackendService) DeleteReview(ctx context.Context, token, reviewID string) error {
	if strings.TrimSpace(reviewID) == "" {
		return fmt.Errorf("%w: review id", shared.ErrMissingArgument)
	}
	return b.do(ctx, request{
		endpoint: "reviews.delete", method: http.MethodDelete, path: "/reviews/" + url.PathEscape(reviewID), token: token,
	}, nil)
}

// React records a reaction. The returned review is nil when the backend sends no body.
func (b *BackendService) React(ctx context.Context, token, reviewID string, reaction models.ReactionType) (*models.Review, error) {
	if strings.TrimSpace(reviewID) == "" {
		return nil, fmt.Errorf("%w: review id", shared.ErrMissingArgument)
	}
	if !reaction.Valid() {
		return nil, fmt.Errorf("%w: unknown reaction %q", shared.ErrInvalidInput, reaction)
	}

	var out *models.Review
	err := b.do(ctx, request{
		endpoint: "reviews.react",
		method:   http.MethodPost,
		path:     "/reviews/" + url.PathEscape(reviewID) + "/reaction",
		token:    token,
		body:     map[string]models.ReactionType{"type": reaction},
	}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}
