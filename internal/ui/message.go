package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/reeltrack/internal/models"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgContentFetched MsgKind = iota
	MsgReviewsFetched
	MsgWatchStateFetched
	MsgWatchlistFetched
	MsgWatchToggled
	MsgWatchRemoved
)

type contentPayload struct {
	kind models.ContentType
	page *models.ContentPage
	err  error
}

type reviewsPayload struct {
	contentID string
	reviews   []models.Review
	err       error
}

type watchStatePayload struct {
	contentID string
	exists    bool
	err       error
}

type watchlistPayload struct {
	items []models.WatchlistItem
	err   error
}

// contentFetchedMsg is the constructor for [MsgContentFetched]
func contentFetchedMsg(ct models.ContentType, page *models.ContentPage, err error) Msg {
	return Msg{kind: MsgContentFetched, data: contentPayload{ct, page, err}}
}

// reviewsFetchedMsg is the constructor for [MsgReviewsFetched]
func reviewsFetchedMsg(contentID string, reviews []models.Review, err error) Msg {
	return Msg{kind: MsgReviewsFetched, data: reviewsPayload{contentID, reviews, err}}
}

// watchStateMsg is the constructor for [MsgWatchStateFetched] and [MsgWatchToggled]
func watchStateMsg(kind MsgKind, contentID string, exists bool, err error) Msg {
	return Msg{kind: kind, data: watchStatePayload{contentID, exists, err}}
}

// watchlistFetchedMsg is the constructor for [MsgWatchlistFetched]
func watchlistFetchedMsg(items []models.WatchlistItem, err error) Msg {
	return Msg{kind: MsgWatchlistFetched, data: watchlistPayload{items, err}}
}

// watchRemovedMsg is the constructor for [MsgWatchRemoved]
func watchRemovedMsg(contentID string, err error) Msg {
	return Msg{kind: MsgWatchRemoved, data: watchStatePayload{contentID: contentID, err: err}}
}
