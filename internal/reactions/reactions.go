// Package reactions applies like and dislike clicks optimistically.
//
// A click updates an overlay on top of the cached review at once and sends the mutation in the
// background. Each click bumps the review's generation; only the result of the newest click may
// settle the overlay. On success the review list is invalidated and refetched. On failure the
// overlay is dropped, which shows the cached pre-click state again, and the user is notified.
//
// Mutations for one review are sent in click order, so the backend ends on the last intent.
package reactions

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/reeltrack/internal/models"
	"github.com/desertthunder/reeltrack/internal/query"
	"github.com/desertthunder/reeltrack/internal/shared"
)

// Mutator sends a reaction to the server.
type Mutator interface {
	React(ctx context.Context, reviewID string, reaction models.ReactionType) (*models.Review, error)
}

// Notifier surfaces failures to the user.
type Notifier interface {
	Notify(message string)
}

// NotifierFunc adapts a function to [Notifier].
type NotifierFunc func(message string)

func (f NotifierFunc) Notify(message string) { f(message) }

// KeyFunc builds the query key of a content item's review list.
type KeyFunc func(contentID string) string

// ReviewsKey is the default [KeyFunc].
func ReviewsKey(contentID string) string {
	return query.Key("reviews", contentID)
}

type overlay struct {
	review     models.Review
	generation uint64
}

// Handler tracks optimistic reactions for one client session.
type Handler struct {
	cache    *query.Cache
	mutator  Mutator
	notifier Notifier
	key      KeyFunc
	logger   *log.Logger

	mu       sync.Mutex
	overlays map[string]overlay
	gens     map[string]uint64
	tails    map[string]chan struct{}
	applied  map[string]bool // a superseded send succeeded, so the cached list is behind the server
	wg       sync.WaitGroup
}

// Option configures a [Handler].
type Option func(*Handler)

// WithKeyFunc overrides the review list key.
func WithKeyFunc(fn KeyFunc) Option {
	return func(h *Handler) { h.key = fn }
}

// NewHandler creates a handler. notifier may be nil.
func NewHandler(cache *query.Cache, mutator Mutator, notifier Notifier, logger *log.Logger, opts ...Option) *Handler {
	h := &Handler{
		cache:    cache,
		mutator:  mutator,
		notifier: notifier,
		key:      ReviewsKey,
		logger:   shared.WithLogger(logger, "component", "reactions"),
		overlays: make(map[string]overlay),
		gens:     make(map[string]uint64),
		tails:    make(map[string]chan struct{}),
		applied:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Apply returns review after the user clicks clicked, and the intent to send. Clicking the current
// reaction removes it.
func Apply(review models.Review, clicked models.ReactionType) (models.Review, models.ReactionType) {
	out := review
	current := review.Reaction()

	switch current {
	case models.ReactionLike:
		out.Likes = max(0, out.Likes-1)
	case models.ReactionDislike:
		out.Dislikes = max(0, out.Dislikes-1)
	}

	if current == clicked {
		out.UserReaction = nil
		return out, models.ReactionUndo
	}

	switch clicked {
	case models.ReactionLike:
		out.Likes++
	case models.ReactionDislike:
		out.Dislikes++
	}
	reaction := clicked
	out.UserReaction = &reaction
	return out, clicked
}

// React records a click on review and returns the optimistic state. Only LIKE and DISLIKE are
// accepted; UNDO is derived from clicking the current reaction.
func (h *Handler) React(ctx context.Context, review models.Review, clicked models.ReactionType) (models.Review, error) {
	if clicked != models.ReactionLike && clicked != models.ReactionDislike {
		return review, fmt.Errorf("%w: reaction must be LIKE or DISLIKE", shared.ErrInvalidInput)
	}
	if review.ReviewID == "" {
		return review, fmt.Errorf("%w: review id", shared.ErrMissingArgument)
	}

	id := review.ReviewID

	h.mu.Lock()
	displayed := review
	if ov, ok := h.overlays[id]; ok {
		displayed = ov.review
	}
	next, intent := Apply(displayed, clicked)

	gen := h.gens[id] + 1
	h.gens[id] = gen
	h.overlays[id] = overlay{review: next, generation: gen}

	prev := h.tails[id]
	done := make(chan struct{})
	h.tails[id] = done
	h.wg.Add(1)
	h.mu.Unlock()

	go h.mutate(context.WithoutCancel(ctx), review.ContentID, id, intent, gen, prev, done)
	return next, nil
}

func (h *Handler) mutate(ctx context.Context, contentID, reviewID string, intent models.ReactionType, gen uint64, prev <-chan struct{}, done chan struct{}) {
	defer h.wg.Done()
	defer close(done)

	if prev != nil {
		<-prev
	}

	_, err := h.mutator.React(ctx, reviewID, intent)

	h.mu.Lock()
	if h.tails[reviewID] == done {
		delete(h.tails, reviewID)
	}
	if h.gens[reviewID] != gen {
		if err == nil {
			h.applied[reviewID] = true
		}
		h.mu.Unlock()
		h.logger.Debug("discarding superseded reaction result", "review", reviewID, "generation", gen)
		return
	}
	delete(h.overlays, reviewID)
	behind := h.applied[reviewID]
	delete(h.applied, reviewID)
	h.mu.Unlock()

	if err != nil {
		h.logger.Warn("reaction failed", "review", reviewID, "intent", intent, "error", err)
		if h.notifier != nil {
			h.notifier.Notify(fmt.Sprintf("Could not update reaction: %v", err))
		}
		if behind {
			h.cache.Invalidate(h.key(contentID))
		}
		return
	}
	h.cache.Invalidate(h.key(contentID))
}

// View returns review with any pending overlay applied.
func (h *Handler) View(review models.Review) models.Review {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ov, ok := h.overlays[review.ReviewID]; ok {
		return ov.review
	}
	return review
}

// ViewAll applies [Handler.View] to every review.
func (h *Handler) ViewAll(reviews []models.Review) []models.Review {
	out := make([]models.Review, len(reviews))
	for i, r := range reviews {
		out[i] = h.View(r)
	}
	return out
}

// Reviews reads a content item's reviews through the query cache and applies pending overlays.
func (h *Handler) Reviews(ctx context.Context, contentID string, fetch func(context.Context) ([]models.Review, error)) ([]models.Review, error) {
	reviews, err := query.Get(ctx, h.cache, h.key(contentID), fetch)
	if err != nil {
		return nil, err
	}
	return h.ViewAll(reviews), nil
}

// Pending reports whether a reaction for reviewID is in flight.
func (h *Handler) Pending(reviewID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.overlays[reviewID]
	return ok
}

// Wait blocks until every in-flight mutation has settled.
func (h *Handler) Wait() {
	h.wg.Wait()
}
