package formatter

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/reeltrack/internal/models"
	"github.com/desertthunder/reeltrack/internal/shared"
	th "github.com/desertthunder/reeltrack/internal/testing"
)

func sampleItems() []models.WatchlistItem {
	return []models.WatchlistItem{
		{
			ContentID: "movie-1",
			Status:    models.StatusToWatch,
			AddedAt:   time.Date(2025, 2, 14, 9, 0, 0, 0, time.UTC),
			Content: &models.Content{
				ID: "movie-1", Type: models.ContentMovie, Title: "Heat, Reprise", ReleaseDate: "1995-12-15",
			},
		},
		{
			ContentID: "series-4",
			Status:    models.StatusWatched,
			Content:   &models.Content{ID: "series-4", Type: models.ContentSeries, Title: "Slow Horses"},
		},
		{ContentID: "movie-9", Status: models.StatusToWatch},
	}
}

func TestExporters(t *testing.T) {
	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(sampleItems())
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		output := string(data)
		if !strings.HasPrefix(output, "Content ID,Title,Type,Year,Status,Added\n") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, `movie-1,"Heat, Reprise",movie,1995,TO_WATCH,2025-02-14`) {
			t.Errorf("CSV row not quoted or incomplete, got: %s", output)
		}
		if !strings.Contains(output, "movie-9,movie-9,,,TO_WATCH,") {
			t.Errorf("items without content should fall back to the id, got: %s", output)
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		t.Run("with site links", func(t *testing.T) {
			data, err := ExportToMarkdown(sampleItems(), "Ada", "https://reeltrack.example.com/")
			if err != nil {
				t.Fatalf("ExportToMarkdown failed: %v", err)
			}

			output := string(data)
			for _, want := range []string{
				"# Ada's watchlist",
				"**Titles**: 3",
				"## To watch",
				"1. [Heat, Reprise (1995)](https://reeltrack.example.com/content/movie-1)",
				"## Watched",
				"1. [Slow Horses](https://reeltrack.example.com/content/series-4)",
			} {
				if !strings.Contains(output, want) {
					t.Errorf("Markdown missing %q, got:\n%s", want, output)
				}
			}
		})

		t.Run("without owner or site", func(t *testing.T) {
			data, _ := ExportToMarkdown(sampleItems()[2:], "", "")
			output := string(data)
			if !strings.Contains(output, "# Watchlist") || !strings.Contains(output, "1. movie-9") {
				t.Errorf("unexpected markdown:\n%s", output)
			}
			if strings.Contains(output, "## Watched") {
				t.Error("empty sections should be omitted")
			}
		})
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(sampleItems())
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "Watchlist: 3 titles") {
			t.Errorf("text missing summary, got: %s", output)
		}
		if !strings.Contains(output, "2. Slow Horses [Watched]") {
			t.Errorf("text missing watched item, got: %s", output)
		}
	})
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		raw  string
		want Format
	}{
		{"csv", FormatCSV},
		{"MD", FormatMarkdown},
		{"markdown", FormatMarkdown},
		{"txt", FormatText},
		{" text ", FormatText},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.raw)
		if err != nil || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", tt.raw, got, err, tt.want)
		}
	}

	_, err := ParseFormat("xlsx")
	th.AssertErrorIs(t, err, shared.ErrInvalidFlag)
}

func TestWriteExport(t *testing.T) {
	t.Run("WithDefaultPath", func(t *testing.T) {
		t.Chdir(t.TempDir())

		path, err := WriteExport(sampleItems(), FormatCSV, "", ExportOptions{})
		if err != nil {
			t.Fatalf("WriteExport failed: %v", err)
		}
		if path != "watchlist.csv" {
			t.Errorf("expected default filename, got %q", path)
		}
		th.AssertFileExists(t, path)
	})

	t.Run("WithCustomPath", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "mine.md")

		got, err := WriteExport(sampleItems(), FormatMarkdown, path, ExportOptions{Owner: "Ada"})
		if err != nil {
			t.Fatalf("WriteExport failed: %v", err)
		}
		if got != path {
			t.Errorf("expected %q, got %q", path, got)
		}
		if content := th.MustReadFile(t, path); !strings.Contains(content, "# Ada's watchlist") {
			t.Errorf("unexpected file content:\n%s", content)
		}
	})

	t.Run("UnknownFormat", func(t *testing.T) {
		_, err := WriteExport(nil, Format("pdf"), filepath.Join(t.TempDir(), "x"), ExportOptions{})
		th.AssertErrorIs(t, err, shared.ErrInvalidFlag)
	})

	t.Run("UnwritablePath", func(t *testing.T) {
		_, err := WriteExport(nil, FormatText, filepath.Join(t.TempDir(), "missing", "dir", "out.txt"), ExportOptions{})
		if err == nil {
			t.Error("expected write error")
		}
	})
}
