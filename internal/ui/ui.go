package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/desertthunder/reeltrack/internal/models"
	"github.com/desertthunder/reeltrack/internal/query"
	"github.com/desertthunder/reeltrack/internal/reactions"
	"github.com/desertthunder/reeltrack/internal/shared"
	"github.com/desertthunder/reeltrack/internal/store"
	"github.com/desertthunder/reeltrack/internal/watchlist"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ContentListView ViewState = iota
	DetailView
	WatchlistView
)

// noticeTTL is how long a notice stays on the notice line.
const noticeTTL = 6 * time.Second

// API is the slice of the local API the TUI uses. [client.Client] implements it.
type API interface {
	reactions.Mutator
	watchlist.Mutator
	Popular(ctx context.Context, ct models.ContentType, page int) (*models.ContentPage, error)
	Reviews(ctx context.Context, contentID string) ([]models.Review, error)
}

// Config carries the optional collaborators of a [Model].
type Config struct {
	SiteURL string
	App     *store.App         // defaults to the app in ctx, then a new one
	Cache   *query.Cache       // defaults to a cache with a one minute stale time
	Open    func(string) error // defaults to [shared.OpenBrowser]
	Logger  *log.Logger
}

// Model represents the TUI application state.
type Model struct {
	ctx       context.Context
	view      ViewState
	api       API
	app       *store.App
	cache     *query.Cache
	reactions *reactions.Handler
	tracker   *watchlist.Tracker
	siteURL   string
	open      func(string) error
	logger    *log.Logger

	width       int
	height      int
	contentType models.ContentType
	contentList list.Model
	reviewList  list.Model
	watchList   list.Model
	selected    *models.Content
	inWatchlist bool
	loading     bool
	err         error
	help        help.Model
	keys        keyMap
}

// NewModel creates a new TUI model backed by api.
func NewModel(ctx context.Context, api API, cfg Config) *Model {
	app := cfg.App
	if app == nil {
		if fromCtx, ok := store.FromContext(ctx); ok {
			app = fromCtx
		} else {
			app = store.NewApp()
		}
	}
	cache := cfg.Cache
	if cache == nil {
		cache = query.New(query.WithStaleTime(time.Minute))
	}
	open := cfg.Open
	if open == nil {
		open = shared.OpenBrowser
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	newList := func(title string) list.Model {
		l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
		l.Title = title
		l.SetShowHelp(false)
		return l
	}

	return &Model{
		ctx:         store.WithApp(ctx, app),
		view:        ContentListView,
		api:         api,
		app:         app,
		cache:       cache,
		reactions:   reactions.NewHandler(cache, api, app.Notices, logger),
		tracker:     watchlist.NewTracker(cache, api),
		siteURL:     strings.TrimRight(cfg.SiteURL, "/"),
		open:        open,
		logger:      shared.WithLogger(logger, "component", "tui"),
		contentType: models.ContentMovie,
		contentList: newList("Popular movies"),
		reviewList:  newList("Reviews"),
		watchList:   newList("Your watchlist"),
		help:        help.New(),
		keys:        newKeyMap(),
	}
}

// Init fetches the first page of popular movies.
func (m *Model) Init() tea.Cmd {
	return m.fetchContent(m.contentType)
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.contentList.SetSize(msg.Width-4, msg.Height-8)
		m.reviewList.SetSize(msg.Width-4, msg.Height-14)
		m.watchList.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case ContentListView:
			return m.handleContentListKeys(msg)
		case DetailView:
			return m.handleDetailKeys(msg)
		case WatchlistView:
			return m.handleWatchlistKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateLists(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgContentFetched:
		data := msg.data.(contentPayload)
		m.loading = false
		if data.err != nil {
			m.err = data.err
			return m, nil
		}
		m.err = nil
		items := make([]list.Item, len(data.page.Items))
		for i, c := range data.page.Items {
			items[i] = contentItem{content: c}
		}
		m.contentList.Title = "Popular " + strings.ToLower(kindLabel(data.kind)) + "s"
		return m, m.contentList.SetItems(items)

	case MsgReviewsFetched:
		data := msg.data.(reviewsPayload)
		if m.selected == nil || data.contentID != m.selected.ID {
			return m, nil
		}
		if data.err != nil {
			m.notifyError("Could not load reviews", data.err)
			return m, nil
		}
		return m, m.setReviews(data.reviews)

	case MsgWatchStateFetched:
		data := msg.data.(watchStatePayload)
		if m.selected == nil || data.contentID != m.selected.ID {
			return m, nil
		}
		if data.err != nil {
			// Anonymous sessions have no watchlist.
			if !errors.Is(data.err, shared.ErrNotAuthenticated) {
				m.notifyError("Could not load watchlist state", data.err)
			}
			return m, nil
		}
		m.inWatchlist = data.exists
		return m, nil

	case MsgWatchToggled:
		data := msg.data.(watchStatePayload)
		if data.err != nil {
			m.notifyError("Could not update watchlist", data.err)
			return m, m.fetchWatchState(data.contentID)
		}
		if m.selected != nil && data.contentID == m.selected.ID {
			m.inWatchlist = data.exists
		}
		if data.exists {
			m.app.Notices.Push(store.NoticeSuccess, "Added to your watchlist")
		} else {
			m.app.Notices.Push(store.NoticeInfo, "Removed from your watchlist")
		}
		return m, nil

	case MsgWatchlistFetched:
		data := msg.data.(watchlistPayload)
		m.loading = false
		if data.err != nil {
			m.notifyError("Could not load watchlist", data.err)
			return m, nil
		}
		items := make([]list.Item, len(data.items))
		for i, it := range data.items {
			items[i] = watchItem{item: it}
		}
		return m, m.watchList.SetItems(items)

	case MsgWatchRemoved:
		data := msg.data.(watchStatePayload)
		if data.err != nil {
			m.notifyError("Could not remove title", data.err)
		}
		return m, m.fetchWatchlist()
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	var body string
	switch m.view {
	case ContentListView:
		body = m.renderContentList()
	case DetailView:
		body = m.renderDetail()
	case WatchlistView:
		body = m.renderWatchlist()
	}

	if line := m.renderNotice(); line != "" {
		body = fmt.Sprintf("%s\n%s", body, line)
	}
	return body
}

func (m *Model) handleContentListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.contentList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.contentList, cmd = m.contentList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.tab):
		if m.contentType == models.ContentMovie {
			m.contentType = models.ContentSeries
		} else {
			m.contentType = models.ContentMovie
		}
		m.contentList.ResetSelected()
		return m, m.fetchContent(m.contentType)
	case key.Matches(msg, m.keys.refresh):
		m.cache.Invalidate(query.PopularKey(string(m.contentType), 1))
		return m, m.fetchContent(m.contentType)
	case key.Matches(msg, m.keys.watchlist):
		m.view = WatchlistView
		return m, m.fetchWatchlist()
	case key.Matches(msg, m.keys.enter):
		if item, ok := m.contentList.SelectedItem().(contentItem); ok {
			return m, m.openDetail(item.content)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.contentList, cmd = m.contentList.Update(msg)
	return m, cmd
}

func (m *Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = ContentListView
		m.selected = nil
		m.app.Series.Set(nil)
		return m, nil
	case key.Matches(msg, m.keys.like):
		return m, m.react(models.ReactionLike)
	case key.Matches(msg, m.keys.dislike):
		return m, m.react(models.ReactionDislike)
	case key.Matches(msg, m.keys.watch):
		return m, m.toggleWatchlist()
	case key.Matches(msg, m.keys.focus):
		m.app.ToggleFocus()
		return m, nil
	case key.Matches(msg, m.keys.open):
		if m.selected != nil {
			if err := m.open(m.siteURL + m.selected.Path()); err != nil {
				m.notifyError("Could not open browser", err)
			}
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.reviewList, cmd = m.reviewList.Update(msg)
	return m, cmd
}

func (m *Model) handleWatchlistKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = ContentListView
		return m, nil
	case key.Matches(msg, m.keys.remove):
		if item, ok := m.watchList.SelectedItem().(watchItem); ok {
			return m, m.removeFromWatchlist(item.item.ContentID)
		}
		return m, nil
	case key.Matches(msg, m.keys.enter):
		if item, ok := m.watchList.SelectedItem().(watchItem); ok {
			content := models.Content{ID: item.item.ContentID, Title: item.item.Title()}
			if item.item.Content != nil {
				content = *item.item.Content
			}
			return m, m.openDetail(content)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.watchList, cmd = m.watchList.Update(msg)
	return m, cmd
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case ContentListView:
		m.contentList, cmd = m.contentList.Update(msg)
	case DetailView:
		m.reviewList, cmd = m.reviewList.Update(msg)
	case WatchlistView:
		m.watchList, cmd = m.watchList.Update(msg)
	}
	return m, cmd
}

func (m *Model) notifyError(prefix string, err error) {
	m.logger.Warn(prefix, "error", err)
	m.app.Notices.Notify(fmt.Sprintf("%s: %v", prefix, err))
}

func (m *Model) setReviews(reviews []models.Review) tea.Cmd {
	items := make([]list.Item, len(reviews))
	for i, r := range reviews {
		items[i] = reviewItem{review: r}
	}
	return m.reviewList.SetItems(items)
}

func (m *Model) openDetail(content models.Content) tea.Cmd {
	m.selected = &content
	m.inWatchlist = false
	m.view = DetailView
	m.app.Series.Set(&content)
	m.reviewList.Title = "Reviews of " + content.Title
	m.reviewList.ResetSelected()
	m.reviewList.SetItems(nil)
	return tea.Batch(m.fetchReviews(content.ID), m.fetchWatchState(content.ID))
}

// react applies the click optimistically and refetches once the mutation settles.
func (m *Model) react(clicked models.ReactionType) tea.Cmd {
	item, ok := m.reviewList.SelectedItem().(reviewItem)
	if !ok || m.selected == nil {
		return nil
	}

	next, err := m.reactions.React(m.ctx, item.review, clicked)
	if err != nil {
		m.notifyError("Could not react", err)
		return nil
	}

	contentID := m.selected.ID
	setCmd := m.reviewList.SetItem(m.reviewList.Index(), reviewItem{review: next})
	settle := func() tea.Msg {
		m.reactions.Wait()
		reviews, err := m.reactions.Reviews(m.ctx, contentID, m.reviewsFetcher(contentID))
		return reviewsFetchedMsg(contentID, reviews, err)
	}
	return tea.Batch(setCmd, settle)
}

func (m *Model) reviewsFetcher(contentID string) func(context.Context) ([]models.Review, error) {
	return func(ctx context.Context) ([]models.Review, error) {
		return m.api.Reviews(ctx, contentID)
	}
}

func (m *Model) fetchContent(ct models.ContentType) tea.Cmd {
	m.loading = true
	return func() tea.Msg {
		page, err := query.Get(m.ctx, m.cache, query.PopularKey(string(ct), 1), func(ctx context.Context) (*models.ContentPage, error) {
			return m.api.Popular(ctx, ct, 1)
		})
		return contentFetchedMsg(ct, page, err)
	}
}

func (m *Model) fetchReviews(contentID string) tea.Cmd {
	return func() tea.Msg {
		reviews, err := m.reactions.Reviews(m.ctx, contentID, m.reviewsFetcher(contentID))
		return reviewsFetchedMsg(contentID, reviews, err)
	}
}

func (m *Model) fetchWatchState(contentID string) tea.Cmd {
	return func() tea.Msg {
		exists, err := m.tracker.Exists(m.ctx, contentID)
		return watchStateMsg(MsgWatchStateFetched, contentID, exists, err)
	}
}

func (m *Model) toggleWatchlist() tea.Cmd {
	if m.selected == nil {
		return nil
	}
	contentID := m.selected.ID
	return func() tea.Msg {
		exists, err := m.tracker.Toggle(m.ctx, contentID)
		return watchStateMsg(MsgWatchToggled, contentID, exists, err)
	}
}

func (m *Model) fetchWatchlist() tea.Cmd {
	m.loading = true
	return func() tea.Msg {
		items, err := m.tracker.List(m.ctx)
		return watchlistFetchedMsg(items, err)
	}
}

func (m *Model) removeFromWatchlist(contentID string) tea.Cmd {
	return func() tea.Msg {
		return watchRemovedMsg(contentID, m.tracker.Remove(m.ctx, contentID))
	}
}

func (m *Model) renderContentList() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress r to retry, q to quit", m.err))
	}
	helpKeys := []key.Binding{m.keys.enter, m.keys.tab, m.keys.watchlist, m.keys.quit}
	return fmt.Sprintf("%s\n\n%s", m.contentList.View(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderDetail() string {
	if m.selected == nil {
		return ""
	}
	c := m.selected

	heading := c.Title
	if y := c.Year(); y != "" {
		heading = fmt.Sprintf("%s (%s)", heading, y)
	}

	var b strings.Builder
	b.WriteString(styles.title.Render(heading))
	b.WriteString("\n")

	meta := kindLabel(c.Type)
	if c.Rating > 0 {
		meta = fmt.Sprintf("%s • ★ %.1f", meta, c.Rating)
	}
	if m.inWatchlist {
		meta += " • " + styles.ok.Render("on your watchlist")
	}
	b.WriteString(meta + "\n")

	if m.app.UI.Get().FocusMode {
		if c.Overview != "" {
			b.WriteString("\n" + styles.body.Render(c.Overview) + "\n")
		}
		b.WriteString("\n" + styles.help.Render("focus mode, press f to show reviews") + "\n")
		return b.String()
	}

	if c.Overview != "" {
		b.WriteString(styles.body.Render(summary(c.Overview, 240)) + "\n")
	}
	b.WriteString("\n" + m.reviewList.View() + "\n\n")

	helpKeys := []key.Binding{m.keys.like, m.keys.dislike, m.keys.watch, m.keys.focus, m.keys.open, m.keys.back}
	b.WriteString(m.help.ShortHelpView(helpKeys))
	return b.String()
}

func (m *Model) renderWatchlist() string {
	if len(m.watchList.Items()) == 0 && !m.loading {
		return fmt.Sprintf("%s\n\nNothing saved yet.\n\n%s",
			styles.title.Render("Your watchlist"),
			m.help.ShortHelpView([]key.Binding{m.keys.back, m.keys.quit}))
	}
	helpKeys := []key.Binding{m.keys.enter, m.keys.remove, m.keys.back, m.keys.quit}
	return fmt.Sprintf("%s\n\n%s", m.watchList.View(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderNotice() string {
	notice, ok := m.app.Notices.Latest(noticeTTL)
	if !ok {
		return ""
	}
	switch notice.Kind {
	case store.NoticeError:
		return styles.err.Render(notice.Message)
	case store.NoticeSuccess:
		return styles.ok.Render(notice.Message)
	default:
		return styles.warn.Render(notice.Message)
	}
}

// summary truncates s to n runes.
func summary(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n])) + "…"
}
