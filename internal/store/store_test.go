package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/reeltrack/internal/models"
)

func TestStore(t *testing.T) {
	t.Run("Get Set Update", func(t *testing.T) {
		s := New(1)
		s.Set(2)
		s.Update(func(v int) int { return v * 10 })
		if s.Get() != 20 {
			t.Errorf("expected 20, got %d", s.Get())
		}
	})

	t.Run("Subscribe And Unsubscribe", func(t *testing.T) {
		s := New("a")
		var seen []string
		unsubscribe := s.Subscribe(func(v string) { seen = append(seen, v) })

		s.Set("b")
		s.Set("c")
		unsubscribe()
		s.Set("d")

		if len(seen) != 2 || seen[0] != "b" || seen[1] != "c" {
			t.Errorf("unexpected notifications %v", seen)
		}
	})

	t.Run("Listener May Read Store", func(t *testing.T) {
		s := New(0)
		var got int
		s.Subscribe(func(int) { got = s.Get() })
		s.Set(5)
		if got != 5 {
			t.Errorf("expected listener to read 5, got %d", got)
		}
	})

	t.Run("Concurrent Updates", func(t *testing.T) {
		s := New(0)
		var wg sync.WaitGroup
		for range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				s.Update(func(v int) int { return v + 1 })
			}()
		}
		wg.Wait()
		if s.Get() != 50 {
			t.Errorf("expected 50, got %d", s.Get())
		}
	})

	t.Run("Concurrent Updates Notify In Order", func(t *testing.T) {
		s := New(0)
		var mu sync.Mutex
		var seen []int
		s.Subscribe(func(v int) {
			mu.Lock()
			seen = append(seen, v)
			mu.Unlock()
		})

		var wg sync.WaitGroup
		for range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				s.Update(func(v int) int { return v + 1 })
			}()
		}
		wg.Wait()

		mu.Lock()
		defer mu.Unlock()
		for i := 1; i < len(seen); i++ {
			if seen[i] <= seen[i-1] {
				t.Fatalf("listener saw %d after %d", seen[i], seen[i-1])
			}
		}
		if len(seen) == 0 || seen[len(seen)-1] != s.Get() {
			t.Errorf("expected last notification to match Get() = %d, got %v", s.Get(), seen)
		}
	})
}

func TestNotices(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	n := NewNotices()
	n.now = func() time.Time { return now }

	first := n.Push(NoticeInfo, "Saved")
	now = now.Add(10 * time.Second)
	n.Notify("Could not update reaction")

	if got := n.Active(0); len(got) != 2 {
		t.Fatalf("expected 2 notices, got %d", len(got))
	}
	if got := n.Active(5 * time.Second); len(got) != 1 || got[0].Kind != NoticeError {
		t.Errorf("expected only the recent error notice, got %+v", got)
	}

	latest, ok := n.Latest(0)
	if !ok || latest.Message != "Could not update reaction" {
		t.Errorf("unexpected latest notice %+v", latest)
	}

	n.Dismiss(first)
	if got := n.Active(0); len(got) != 1 || got[0].ID == first {
		t.Errorf("expected first notice dismissed, got %+v", got)
	}
}

func TestApp(t *testing.T) {
	app := NewApp()
	app.User.Set(&models.User{ID: "user-1", Name: "Ada"})

	if !app.ToggleFocus() || !app.UI.Get().FocusMode {
		t.Error("expected focus mode on")
	}
	if app.ToggleFocus() {
		t.Error("expected focus mode off")
	}

	ctx := WithApp(context.Background(), app)
	got, ok := FromContext(ctx)
	if !ok || got.User.Get().Name != "Ada" {
		t.Error("expected app from context")
	}
	if _, ok := FromContext(context.Background()); ok {
		t.Error("expected no app in empty context")
	}
}
