package reactions

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/reeltrack/internal/models"
	"github.com/desertthunder/reeltrack/internal/query"
	"github.com/desertthunder/reeltrack/internal/shared"
	tu "github.com/desertthunder/reeltrack/internal/testing"
)

// fakeServer applies reactions to a single review and can hold or fail individual calls.
type fakeServer struct {
	mu      sync.Mutex
	review  models.Review
	intents []models.ReactionType
	fail    map[int]error
	gates   map[int]chan struct{}
}

func newFakeServer(review models.Review) *fakeServer {
	return &fakeServer{review: review, fail: make(map[int]error), gates: make(map[int]chan struct{})}
}

func (s *fakeServer) hold(call int) chan struct{} {
	gate := make(chan struct{})
	s.mu.Lock()
	s.gates[call] = gate
	s.mu.Unlock()
	return gate
}

func (s *fakeServer) React(_ context.Context, reviewID string, reaction models.ReactionType) (*models.Review, error) {
	s.mu.Lock()
	call := len(s.intents)
	s.intents = append(s.intents, reaction)
	gate := s.gates[call]
	err := s.fail[call]
	s.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	clicked := reaction
	if reaction == models.ReactionUndo {
		clicked = s.review.Reaction()
	}
	if clicked != "" {
		s.review, _ = Apply(s.review, clicked)
	}
	out := s.review
	return &out, nil
}

func (s *fakeServer) fetch(context.Context) ([]models.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return []models.Review{s.review}, nil
}

func (s *fakeServer) sent() []models.ReactionType {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ReactionType(nil), s.intents...)
}

type notices struct {
	mu   sync.Mutex
	msgs []string
}

func (n *notices) Notify(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
}

func (n *notices) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.msgs)
}

func reaction(r models.ReactionType) *models.ReactionType { return &r }

func setup(t *testing.T, review models.Review) (*Handler, *fakeServer, *notices, *query.Cache) {
	t.Helper()
	server := newFakeServer(review)
	cache := query.New()
	n := &notices{}
	h := NewHandler(cache, server, n, log.New(io.Discard))

	if _, err := h.Reviews(context.Background(), review.ContentID, server.fetch); err != nil {
		t.Fatalf("failed to load reviews: %v", err)
	}
	return h, server, n, cache
}

func TestApply(t *testing.T) {
	tc := []struct {
		name         string
		review       models.Review
		clicked      models.ReactionType
		wantIntent   models.ReactionType
		wantReaction models.ReactionType
		wantLikes    int
		wantDislikes int
	}{
		{"Add Like", models.Review{Likes: 2}, models.ReactionLike, models.ReactionLike, models.ReactionLike, 3, 0},
		{"Toggle Off", models.Review{Likes: 2, UserReaction: reaction(models.ReactionLike)}, models.ReactionLike, models.ReactionUndo, "", 1, 0},
		{"Swap", models.Review{Likes: 2, Dislikes: 1, UserReaction: reaction(models.ReactionLike)}, models.ReactionDislike, models.ReactionDislike, models.ReactionDislike, 1, 2},
		{"Never Negative", models.Review{UserReaction: reaction(models.ReactionDislike)}, models.ReactionLike, models.ReactionLike, models.ReactionLike, 1, 0},
		{"Toggle Off At Zero", models.Review{UserReaction: reaction(models.ReactionLike)}, models.ReactionLike, models.ReactionUndo, "", 0, 0},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got, intent := Apply(tt.review, tt.clicked)
			if intent != tt.wantIntent {
				t.Errorf("intent = %s, want %s", intent, tt.wantIntent)
			}
			if got.Reaction() != tt.wantReaction {
				t.Errorf("reaction = %q, want %q", got.Reaction(), tt.wantReaction)
			}
			if got.Likes != tt.wantLikes || got.Dislikes != tt.wantDislikes {
				t.Errorf("counts = %d/%d, want %d/%d", got.Likes, got.Dislikes, tt.wantLikes, tt.wantDislikes)
			}
		})
	}

	t.Run("Does Not Alias Input", func(t *testing.T) {
		original := models.Review{UserReaction: reaction(models.ReactionLike), Likes: 1}
		Apply(original, models.ReactionDislike)
		if original.Reaction() != models.ReactionLike || original.Likes != 1 {
			t.Errorf("input review was modified: %+v", original)
		}
	})
}

func TestHandler_React(t *testing.T) {
	ctx := context.Background()
	base := models.Review{ReviewID: "review-1", ContentID: "movie-1", Likes: 3, Dislikes: 1}

	t.Run("Rejects Undo And Unknown Values", func(t *testing.T) {
		h, _, _, _ := setup(t, base)
		_, err := h.React(ctx, base, models.ReactionUndo)
		tu.AssertErrorIs(t, err, shared.ErrInvalidInput)
		_, err = h.React(ctx, base, "LOVE")
		tu.AssertErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("Optimistic Then Authoritative", func(t *testing.T) {
		h, server, _, _ := setup(t, base)
		gate := server.hold(0)

		got, err := h.React(ctx, base, models.ReactionLike)
		if err != nil {
			t.Fatalf("React returned error: %v", err)
		}
		if got.Likes != 4 || got.Reaction() != models.ReactionLike {
			t.Errorf("expected optimistic like, got %+v", got)
		}
		if !h.Pending(base.ReviewID) {
			t.Error("expected reaction to be pending")
		}
		if v := h.View(base); v.Likes != 4 {
			t.Errorf("expected View to show overlay, got %d likes", v.Likes)
		}

		close(gate)
		h.Wait()

		if h.Pending(base.ReviewID) {
			t.Error("expected overlay to be cleared")
		}
		reviews, err := h.Reviews(ctx, base.ContentID, server.fetch)
		if err != nil {
			t.Fatalf("Reviews returned error: %v", err)
		}
		if reviews[0].Likes != 4 || reviews[0].Reaction() != models.ReactionLike {
			t.Errorf("expected refetched server state, got %+v", reviews[0])
		}
	})

	t.Run("Like Then Dislike Ends On Dislike", func(t *testing.T) {
		h, server, n, _ := setup(t, base)
		gate := server.hold(0)

		h.React(ctx, base, models.ReactionLike)
		got, _ := h.React(ctx, base, models.ReactionDislike)
		if got.Reaction() != models.ReactionDislike || got.Likes != 3 || got.Dislikes != 2 {
			t.Errorf("expected swap from overlay, got %+v", got)
		}

		close(gate)
		h.Wait()

		sent := server.sent()
		if len(sent) != 2 || sent[0] != models.ReactionLike || sent[1] != models.ReactionDislike {
			t.Errorf("expected LIKE then DISLIKE to be sent in order, got %v", sent)
		}
		reviews, _ := h.Reviews(ctx, base.ContentID, server.fetch)
		if reviews[0].Reaction() != models.ReactionDislike || reviews[0].Dislikes != 2 || reviews[0].Likes != 3 {
			t.Errorf("expected final DISLIKE state, got %+v", reviews[0])
		}
		if n.count() != 0 {
			t.Errorf("expected no notifications, got %d", n.count())
		}
	})

	t.Run("Failure Reverts Exactly", func(t *testing.T) {
		liked := base
		liked.UserReaction = reaction(models.ReactionLike)
		h, server, n, cache := setup(t, liked)
		server.fail[0] = errors.New("backend unavailable")

		got, _ := h.React(ctx, liked, models.ReactionLike)
		if got.Likes != 2 || got.UserReaction != nil {
			t.Errorf("expected optimistic undo, got %+v", got)
		}
		h.Wait()

		if v := h.View(liked); v.Likes != liked.Likes || v.Reaction() != models.ReactionLike {
			t.Errorf("expected pre-click state, got %+v", v)
		}
		if n.count() != 1 {
			t.Errorf("expected one failure notification, got %d", n.count())
		}
		if e, _ := cache.Peek(ReviewsKey(liked.ContentID)); e.Stale {
			t.Error("failed reaction must not invalidate the review list")
		}
	})

	t.Run("Superseded Failure Is Ignored", func(t *testing.T) {
		h, server, n, _ := setup(t, base)
		server.fail[0] = errors.New("timeout")
		gate := server.hold(0)

		h.React(ctx, base, models.ReactionLike)
		h.React(ctx, base, models.ReactionLike)
		close(gate)
		h.Wait()

		if n.count() != 0 {
			t.Errorf("stale failure must not notify, got %d notifications", n.count())
		}
		if sent := server.sent(); len(sent) != 2 || sent[1] != models.ReactionUndo {
			t.Errorf("expected LIKE then UNDO, got %v", sent)
		}
		reviews, _ := h.Reviews(ctx, base.ContentID, server.fetch)
		if reviews[0].UserReaction != nil || reviews[0].Likes != base.Likes {
			t.Errorf("expected untouched review, got %+v", reviews[0])
		}
	})

	t.Run("Superseded Success Then Failure Refetches", func(t *testing.T) {
		h, server, n, cache := setup(t, base)
		server.fail[1] = errors.New("backend unavailable")
		gate := server.hold(0)

		liked, _ := h.React(ctx, base, models.ReactionLike)
		h.React(ctx, base, models.ReactionDislike)
		close(gate)
		h.Wait()

		if n.count() != 1 {
			t.Errorf("expected one failure notification, got %d", n.count())
		}
		if e, _ := cache.Peek(ReviewsKey(base.ContentID)); !e.Stale {
			t.Error("expected the review list to be invalidated")
		}
		reviews, _ := h.Reviews(ctx, base.ContentID, server.fetch)
		got := reviews[0]
		if got.Reaction() != models.ReactionLike || got.Likes != liked.Likes || got.Dislikes != liked.Dislikes {
			t.Errorf("expected the liked state the server holds, got %+v", got)
		}
	})
}
