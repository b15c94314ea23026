// package formatter exports a watchlist to CSV, Markdown or plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/desertthunder/reeltrack/internal/models"
	"github.com/desertthunder/reeltrack/internal/shared"
)

// Format is an export file format.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "md"
	FormatText     Format = "txt"
)

// ParseFormat accepts csv, md/markdown and txt/text.
func ParseFormat(raw string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "csv":
		return FormatCSV, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "txt", "text":
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w: unknown export format %q (want csv, md or txt)", shared.ErrInvalidFlag, raw)
	}
}

func statusLabel(s models.WatchStatus) string {
	if s == models.StatusWatched {
		return "Watched"
	}
	return "To watch"
}

func addedDate(item models.WatchlistItem) string {
	if item.AddedAt.IsZero() {
		return ""
	}
	return item.AddedAt.Format("2006-01-02")
}

// ExportToCSV renders items with columns: Content ID, Title, Type, Year, Status, Added
func ExportToCSV(items []models.WatchlistItem) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Content ID", "Title", "Type", "Year", "Status", "Added"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, item := range items {
		var kind, year string
		if item.Content != nil {
			kind, year = string(item.Content.Type), item.Content.Year()
		}
		record := []string{item.ContentID, item.Title(), kind, year, string(item.Status), addedDate(item)}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportToMarkdown renders items as a Markdown document grouped by status. Links point at siteURL
// when it is set.
func ExportToMarkdown(items []models.WatchlistItem, owner, siteURL string) ([]byte, error) {
	var buf bytes.Buffer

	title := "Watchlist"
	if owner != "" {
		title = owner + "'s watchlist"
	}
	fmt.Fprintf(&buf, "# %s\n\n", title)
	fmt.Fprintf(&buf, "**Titles**: %d\n\n", len(items))

	siteURL = strings.TrimRight(siteURL, "/")
	for _, status := range []models.WatchStatus{models.StatusToWatch, models.StatusWatched} {
		var section []models.WatchlistItem
		for _, item := range items {
			if item.Status == status {
				section = append(section, item)
			}
		}
		if len(section) == 0 {
			continue
		}

		fmt.Fprintf(&buf, "## %s\n\n", statusLabel(status))
		for i, item := range section {
			name := item.Title()
			if item.Content != nil && item.Content.Year() != "" {
				name += " (" + item.Content.Year() + ")"
			}
			if siteURL != "" {
				name = fmt.Sprintf("[%s](%s/content/%s)", name, siteURL, item.ContentID)
			}
			fmt.Fprintf(&buf, "%d. %s\n", i+1, name)
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// ExportToText renders items as plain text
func ExportToText(items []models.WatchlistItem) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Watchlist: %d titles\n\n", len(items))
	for i, item := range items {
		fmt.Fprintf(&buf, "%d. %s [%s]\n", i+1, item.Title(), statusLabel(item.Status))
	}
	return buf.Bytes(), nil
}

// ExportOptions adds context to the Markdown export.
type ExportOptions struct {
	Owner   string
	SiteURL string
}

// DefaultFilename is watchlist.<format>.
func DefaultFilename(f Format) string {
	return "watchlist." + string(f)
}

// WriteExport renders items in format and writes them to path, which defaults to
// [DefaultFilename]. It returns the path written.
func WriteExport(items []models.WatchlistItem, format Format, path string, opts ExportOptions) (string, error) {
	if path == "" {
		path = DefaultFilename(format)
	}

	var (
		data []byte
		err  error
	)
	switch format {
	case FormatCSV:
		data, err = ExportToCSV(items)
	case FormatMarkdown:
		data, err = ExportToMarkdown(items, opts.Owner, opts.SiteURL)
	case FormatText:
		data, err = ExportToText(items)
	default:
		return "", fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidFlag, format)
	}
	if err != nil {
		return "", fmt.Errorf("failed to generate %s: %w", format, err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}
	return path, nil
}
