package store

import (
	"context"
	"slices"
	"sync/atomic"
	"time"

	"github.com/desertthunder/reeltrack/internal/models"
)

// NoticeKind classifies a notice.
type NoticeKind string

const (
	NoticeInfo    NoticeKind = "info"
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
)

// Notice is a dismissable transient message.
type Notice struct {
	ID        int64
	Kind      NoticeKind
	Message   string
	CreatedAt time.Time
}

// Notices is a queue of notices shown to the user.
type Notices struct {
	*Store[[]Notice]
	next atomic.Int64
	now  func() time.Time
}

// NewNotices creates an empty queue.
func NewNotices() *Notices {
	return &Notices{Store: New[[]Notice](nil), now: time.Now}
}

// Push appends a notice and returns its id.
func (n *Notices) Push(kind NoticeKind, message string) int64 {
	id := n.next.Add(1)
	notice := Notice{ID: id, Kind: kind, Message: message, CreatedAt: n.now()}
	n.Update(func(list []Notice) []Notice {
		return append(slices.Clone(list), notice)
	})
	return id
}

// Notify pushes an error notice.
func (n *Notices) Notify(message string) {
	n.Push(NoticeError, message)
}

// Dismiss removes the notice with id.
func (n *Notices) Dismiss(id int64) {
	n.Update(func(list []Notice) []Notice {
		return slices.DeleteFunc(slices.Clone(list), func(x Notice) bool { return x.ID == id })
	})
}

// Active returns notices younger than ttl, newest last. A zero ttl returns every notice.
func (n *Notices) Active(ttl time.Duration) []Notice {
	list := n.Get()
	if ttl <= 0 {
		return list
	}
	cutoff := n.now().Add(-ttl)
	out := make([]Notice, 0, len(list))
	for _, x := range list {
		if x.CreatedAt.After(cutoff) {
			out = append(out, x)
		}
	}
	return out
}

// Latest returns the newest active notice.
func (n *Notices) Latest(ttl time.Duration) (Notice, bool) {
	active := n.Active(ttl)
	if len(active) == 0 {
		return Notice{}, false
	}
	return active[len(active)-1], true
}

// UIState holds presentation toggles.
type UIState struct {
	FocusMode bool
}

// App groups every store for one client session.
type App struct {
	User    *Store[*models.User]
	Series  *Store[*models.Content]
	UI      *Store[UIState]
	Notices *Notices
}

// NewApp creates empty stores.
func NewApp() *App {
	return &App{
		User:    New[*models.User](nil),
		Series:  New[*models.Content](nil),
		UI:      New(UIState{}),
		Notices: NewNotices(),
	}
}

// ToggleFocus flips focus mode and returns the new value.
func (a *App) ToggleFocus() bool {
	var focus bool
	a.UI.Update(func(s UIState) UIState {
		s.FocusMode = !s.FocusMode
		focus = s.FocusMode
		return s
	})
	return focus
}

type appKey struct{}

// WithApp returns a context carrying app.
func WithApp(ctx context.Context, app *App) context.Context {
	return context.WithValue(ctx, appKey{}, app)
}

// FromContext returns the app stored by [WithApp].
func FromContext(ctx context.Context) (*App, bool) {
	app, ok := ctx.Value(appKey{}).(*App)
	return app, ok
}
