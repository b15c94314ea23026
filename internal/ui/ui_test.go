package ui

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/reeltrack/internal/models"
	"github.com/desertthunder/reeltrack/internal/reactions"
	"github.com/desertthunder/reeltrack/internal/shared"
	"github.com/desertthunder/reeltrack/internal/store"
)

// fakeAPI is an in-memory backend for the TUI.
type fakeAPI struct {
	mu        sync.Mutex
	content   map[models.ContentType][]models.Content
	reviews   map[string][]models.Review
	watchlist map[string]models.WatchlistItem
	failReact bool
	reacts    []models.ReactionType
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		content: map[models.ContentType][]models.Content{
			models.ContentMovie: {
				{ID: "movie-1", Type: models.ContentMovie, Title: "Arrival", ReleaseDate: "2016-11-11", Overview: "Linguists meet visitors."},
				{ID: "movie-2", Type: models.ContentMovie, Title: "Heat"},
			},
			models.ContentSeries: {
				{ID: "series-1", Type: models.ContentSeries, Title: "Severance"},
			},
		},
		reviews: map[string][]models.Review{
			"movie-1": {{ReviewID: "review-1", ContentID: "movie-1", Author: "Grace", Rating: 9, Body: "Stunning", Likes: 2}},
		},
		watchlist: map[string]models.WatchlistItem{},
	}
}

func (f *fakeAPI) Popular(_ context.Context, ct models.ContentType, page int) (*models.ContentPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &models.ContentPage{Items: f.content[ct], Page: page, TotalPages: 1}, nil
}

func (f *fakeAPI) Reviews(_ context.Context, contentID string) ([]models.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Review(nil), f.reviews[contentID]...), nil
}

func (f *fakeAPI) React(_ context.Context, reviewID string, reaction models.ReactionType) (*models.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reacts = append(f.reacts, reaction)
	if f.failReact {
		return nil, fmt.Errorf("%w: backend down", shared.ErrServiceUnavailable)
	}
	for contentID, list := range f.reviews {
		for i, r := range list {
			if r.ReviewID != reviewID {
				continue
			}
			clicked := reaction
			if reaction == models.ReactionUndo {
				clicked = r.Reaction()
			}
			next, _ := reactions.Apply(r, clicked)
			f.reviews[contentID][i] = next
			return &next, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (f *fakeAPI) Watchlist(context.Context) ([]models.WatchlistItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.WatchlistItem, 0, len(f.watchlist))
	for _, item := range f.watchlist {
		out = append(out, item)
	}
	return out, nil
}

func (f *fakeAPI) WatchlistExists(_ context.Context, contentID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.watchlist[contentID]
	return ok, nil
}

func (f *fakeAPI) AddToWatchlist(_ context.Context, contentID string, status models.WatchStatus) (*models.WatchlistItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item := models.WatchlistItem{ContentID: contentID, Status: status}
	f.watchlist[contentID] = item
	return &item, nil
}

func (f *fakeAPI) UpdateWatchlist(_ context.Context, contentID string, status models.WatchStatus) (*models.WatchlistItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.watchlist[contentID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	item.Status = status
	f.watchlist[contentID] = item
	return &item, nil
}

func (f *fakeAPI) RemoveFromWatchlist(_ context.Context, contentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.watchlist[contentID]; !ok {
		return shared.ErrNotFound
	}
	delete(f.watchlist, contentID)
	return nil
}

// drain runs cmd and feeds every resulting TUI message back into m.
func drain(t *testing.T, m *Model, cmd tea.Cmd) {
	t.Helper()
	if cmd == nil {
		return
	}
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		for _, c := range msg {
			drain(t, m, c)
		}
	case Msg:
		_, next := m.Update(msg)
		drain(t, m, next)
	}
}

func press(t *testing.T, m *Model, k string) tea.Cmd {
	t.Helper()
	var msg tea.KeyMsg
	switch k {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
	_, cmd := m.Update(msg)
	return cmd
}

func setupModel(t *testing.T) (*Model, *fakeAPI, *[]string) {
	t.Helper()
	api := newFakeAPI()
	var opened []string
	m := NewModel(context.Background(), api, Config{
		SiteURL: "https://reeltrack.example.com/",
		Open: func(url string) error {
			opened = append(opened, url)
			return nil
		},
	})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	drain(t, m, m.Init())
	return m, api, &opened
}

func openArrival(t *testing.T, m *Model) {
	t.Helper()
	drain(t, m, press(t, m, "enter"))
	if m.view != DetailView || m.selected == nil || m.selected.ID != "movie-1" {
		t.Fatalf("expected detail of movie-1, got view %d", m.view)
	}
}

func selectedReview(t *testing.T, m *Model) models.Review {
	t.Helper()
	item, ok := m.reviewList.SelectedItem().(reviewItem)
	if !ok {
		t.Fatal("expected a selected review")
	}
	return item.review
}

func TestModel(t *testing.T) {
	t.Run("Loads Movies And Switches To Series", func(t *testing.T) {
		m, _, _ := setupModel(t)
		if got := len(m.contentList.Items()); got != 2 {
			t.Fatalf("expected 2 movies, got %d", got)
		}
		if !strings.Contains(m.View(), "Arrival") {
			t.Error("expected movie titles in the view")
		}

		drain(t, m, press(t, m, "tab"))
		if m.contentType != models.ContentSeries || len(m.contentList.Items()) != 1 {
			t.Errorf("expected series list, got %d items", len(m.contentList.Items()))
		}
	})

	t.Run("Detail Tracks Current Series", func(t *testing.T) {
		m, _, _ := setupModel(t)
		openArrival(t, m)

		if current := m.app.Series.Get(); current == nil || current.ID != "movie-1" {
			t.Error("expected the app store to hold the open title")
		}
		if !strings.Contains(m.View(), "Arrival (2016)") {
			t.Error("expected heading with year")
		}

		press(t, m, "esc")
		if m.view != ContentListView || m.app.Series.Get() != nil {
			t.Error("expected back to the list with no current title")
		}
	})

	t.Run("Like Is Optimistic Then Authoritative", func(t *testing.T) {
		m, api, _ := setupModel(t)
		openArrival(t, m)

		cmd := press(t, m, "l")
		if r := selectedReview(t, m); r.Likes != 3 || r.Reaction() != models.ReactionLike {
			t.Errorf("expected optimistic like, got %+v", r)
		}

		drain(t, m, cmd)
		if r := selectedReview(t, m); r.Likes != 3 || r.Reaction() != models.ReactionLike {
			t.Errorf("expected server state after settle, got %+v", r)
		}
		if len(api.reacts) != 1 || api.reacts[0] != models.ReactionLike {
			t.Errorf("expected one LIKE sent, got %v", api.reacts)
		}

		drain(t, m, press(t, m, "l"))
		if r := selectedReview(t, m); r.Likes != 2 || r.UserReaction != nil {
			t.Errorf("expected like toggled off, got %+v", r)
		}
		if api.reacts[1] != models.ReactionUndo {
			t.Errorf("expected UNDO on second click, got %v", api.reacts)
		}
	})

	t.Run("Failed Reaction Reverts And Notifies", func(t *testing.T) {
		m, api, _ := setupModel(t)
		api.failReact = true
		openArrival(t, m)

		cmd := press(t, m, "d")
		if r := selectedReview(t, m); r.Dislikes != 1 {
			t.Errorf("expected optimistic dislike, got %+v", r)
		}

		drain(t, m, cmd)
		if r := selectedReview(t, m); r.Dislikes != 0 || r.Likes != 2 || r.UserReaction != nil {
			t.Errorf("expected pre-click state restored, got %+v", r)
		}
		if !strings.Contains(m.View(), "Could not update reaction") {
			t.Error("expected failure notice in the view")
		}
	})

	t.Run("Watchlist Toggle", func(t *testing.T) {
		m, api, _ := setupModel(t)
		openArrival(t, m)

		drain(t, m, press(t, m, "w"))
		if !m.inWatchlist {
			t.Error("expected title on the watchlist")
		}
		if _, ok := api.watchlist["movie-1"]; !ok {
			t.Error("expected backend to hold the title")
		}
		if !strings.Contains(m.View(), "Added to your watchlist") {
			t.Error("expected success notice")
		}

		drain(t, m, press(t, m, "w"))
		if m.inWatchlist {
			t.Error("expected title removed")
		}
	})

	t.Run("Focus Mode", func(t *testing.T) {
		m, _, _ := setupModel(t)
		openArrival(t, m)

		press(t, m, "f")
		if !m.app.UI.Get().FocusMode {
			t.Fatal("expected focus mode on")
		}
		view := m.View()
		if !strings.Contains(view, "focus mode") || strings.Contains(view, "Grace") {
			t.Error("expected reviews hidden in focus mode")
		}

		press(t, m, "f")
		if m.app.UI.Get().FocusMode {
			t.Error("expected focus mode off")
		}
	})

	t.Run("Open In Browser", func(t *testing.T) {
		m, _, opened := setupModel(t)
		openArrival(t, m)

		press(t, m, "o")
		if len(*opened) != 1 || (*opened)[0] != "https://reeltrack.example.com/content/movie-1" {
			t.Errorf("unexpected opened urls %v", *opened)
		}
	})

	t.Run("Watchlist View", func(t *testing.T) {
		m, api, _ := setupModel(t)
		api.watchlist["movie-2"] = models.WatchlistItem{ContentID: "movie-2", Status: models.StatusToWatch}

		drain(t, m, press(t, m, "v"))
		if m.view != WatchlistView || len(m.watchList.Items()) != 1 {
			t.Fatalf("expected one saved title, got %d", len(m.watchList.Items()))
		}

		drain(t, m, press(t, m, "x"))
		if len(api.watchlist) != 0 || len(m.watchList.Items()) != 0 {
			t.Error("expected title removed")
		}
		if !strings.Contains(m.View(), "Nothing saved yet.") {
			t.Error("expected empty state")
		}
	})

	t.Run("Uses App From Context", func(t *testing.T) {
		app := store.NewApp()
		m := NewModel(store.WithApp(context.Background(), app), newFakeAPI(), Config{})
		if m.app != app {
			t.Error("expected the context app to be used")
		}
	})
}
