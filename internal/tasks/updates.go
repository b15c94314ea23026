package tasks

import (
	"fmt"

	"github.com/desertthunder/reeltrack/internal/sitemap"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or server logs for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	WarmStart Phase = iota
	BuildFeed
	BuildIndex
	WarmDone
)

func (p Phase) String() string {
	switch p {
	case WarmStart:
		return "warm_start"
	case BuildFeed:
		return "build_feed"
	case BuildIndex:
		return "build_index"
	case WarmDone:
		return "warm_done"
	default:
		return ""
	}
}

func warmStartUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WarmStart,
		Step:    0,
		Total:   total,
		Message: fmt.Sprintf("Warming %d sitemap feeds...", total),
	}
}

func feedBuiltUpdate(step, total int, feed *sitemap.Feed) ProgressUpdate {
	msg := fmt.Sprintf("[%d/%d] ✓ %s (%d urls)", step, total, feed.Category, feed.URLs)
	if feed.Fallback {
		msg = fmt.Sprintf("[%d/%d] ! %s fell back to static pages", step, total, feed.Category)
	}
	return ProgressUpdate{
		Phase:   BuildFeed,
		Step:    step,
		Total:   total,
		Message: msg,
		Data:    feed,
	}
}

func feedFailedUpdate(step, total int, category sitemap.Category, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   BuildFeed,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, category, err),
	}
}

func warmDoneUpdate(result *WarmResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WarmDone,
		Step:    result.Built,
		Total:   result.Built + result.Failed,
		Message: fmt.Sprintf("Sitemaps warmed: %d built, %d fallback, %d failed", result.Built, result.Fallbacks, result.Failed),
		Data:    result,
	}
}
