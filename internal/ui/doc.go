// Package ui implements an interactive terminal client using bubbletea's Elm architecture.
//
// The TUI has three views:
//  1. [ContentListView] : Browse popular movies, tab switches to series
//  2. [DetailView] : Read a title's reviews, react to them and manage the watchlist
//  3. [WatchlistView] : Review saved titles
//
// The [Model] implements bubbletea's Init/Update/View pattern and receives results through the Msg
// union type. Reads go through a shared query cache. Reactions are applied optimistically by a
// [reactions.Handler] and settle in the background; failures surface on the notice line.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, q) with contextual help displayed via
// charmbracelet/bubbles/help.
package ui
