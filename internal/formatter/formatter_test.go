package formatter

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/djq/internal/models"
	"github.com/desertthunder/djq/internal/shared"
	th "github.com/desertthunder/djq/internal/testing"
)

var exportedAt = time.Date(2024, 6, 1, 23, 0, 0, 0, time.UTC)

func sampleRequests() []models.SongRequest {
	created := time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC)
	return []models.SongRequest{
		{
			ID:             "req-1",
			SongTitle:      "Blinding Lights",
			Artist:         "The Weeknd",
			SongLink:       "https://example.test/blinding",
			RequesterName:  "Sam",
			SpecialMessage: "For the birthday crew",
			Status:         models.StatusPending,
			Priority:       1,
			CreatedAt:      created,
			UpdatedAt:      created,
		},
		{
			ID:        "req-2",
			SongTitle: "Levitating, Remix",
			Status:    models.StatusPlaying,
			Priority:  2,
			CreatedAt: created.Add(time.Minute),
			UpdatedAt: created.Add(time.Minute),
		},
	}
}

func TestExporters(t *testing.T) {
	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(sampleRequests())
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		output := string(data)

		if !strings.HasPrefix(output, "ID,Status,Priority,Title,Artist,Link,Requester,Message,Created,Updated\n") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, "req-1,pending,1,Blinding Lights,The Weeknd") {
			t.Errorf("CSV missing first request, got: %s", output)
		}
		if !strings.Contains(output, `"Levitating, Remix"`) {
			t.Errorf("CSV should quote titles containing commas, got: %s", output)
		}
		if !strings.Contains(output, "2024-06-01T20:00:00Z") {
			t.Errorf("CSV missing RFC3339 timestamp, got: %s", output)
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		data, err := ExportToMarkdown(sampleRequests(), exportedAt)
		if err != nil {
			t.Fatalf("ExportToMarkdown failed: %v", err)
		}

		output := string(data)
		for _, want := range []string{
			"# Song Requests",
			"**Requests**: 2",
			"## Pending (1)",
			"1. [**Blinding Lights**](https://example.test/blinding) - The Weeknd (requested by Sam)",
			"   > For the birthday crew",
			"## Playing (1)",
			"## Rejected (0)",
			"_None_",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("Markdown missing %q, got:\n%s", want, output)
			}
		}
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(sampleRequests())
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "1. [pending] Blinding Lights - The Weeknd (Sam)") {
			t.Errorf("text missing first request, got:\n%s", output)
		}
		if !strings.Contains(output, "2. [playing] Levitating, Remix\n") {
			t.Errorf("text missing second request, got:\n%s", output)
		}
	})

	t.Run("ExportToJSON", func(t *testing.T) {
		data, err := ExportToJSON(sampleRequests())
		if err != nil {
			t.Fatalf("ExportToJSON failed: %v", err)
		}

		var decoded []map[string]any
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(decoded) != 2 || decoded[0]["song_title"] != "Blinding Lights" {
			t.Errorf("unexpected JSON: %s", data)
		}

		empty, _ := ExportToJSON(nil)
		if strings.TrimSpace(string(empty)) != "[]" {
			t.Errorf("expected empty array, got %s", empty)
		}
	})
}

func TestParseFormat(t *testing.T) {
	tt := []struct {
		in   string
		want Format
	}{
		{"csv", FormatCSV},
		{"MD", FormatMarkdown},
		{"markdown", FormatMarkdown},
		{"text", FormatText},
		{"json", FormatJSON},
	}

	for _, tc := range tt {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseFormat(tc.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("expected %s, got %s", tc.want, got)
			}
		})
	}

	if _, err := ParseFormat("xml"); !errors.Is(err, shared.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestWriteExport(t *testing.T) {
	t.Run("Explicit Path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "exports", "queue.csv")

		written, err := WriteExport(FormatCSV, sampleRequests(), path, exportedAt)
		if err != nil {
			t.Fatalf("WriteExport failed: %v", err)
		}
		if written != path {
			t.Errorf("expected %s, got %s", path, written)
		}

		th.AssertFileExists(t, path)
		if content := th.MustReadFile(t, path); !strings.Contains(content, "Blinding Lights") {
			t.Errorf("export file missing content: %s", content)
		}
	})

	t.Run("Default Path", func(t *testing.T) {
		wd := th.MustGetwd(t)
		th.MustChdir(t, t.TempDir())
		defer th.MustChdir(t, wd)

		written, err := WriteExport(FormatMarkdown, sampleRequests(), "", exportedAt)
		if err != nil {
			t.Fatalf("WriteExport failed: %v", err)
		}
		if written != "song_requests.md" {
			t.Errorf("expected song_requests.md, got %s", written)
		}
		th.AssertFileExists(t, written)
	})
}
