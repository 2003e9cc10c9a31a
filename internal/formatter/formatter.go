// package formatter provides functions to export the song request queue to various formats (CSV, Markdown, plain text, JSON)
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/djq/internal/models"
	"github.com/desertthunder/djq/internal/shared"
)

// Format names an export format.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "txt"
	FormatJSON     Format = "json"
)

// ParseFormat converts s to a [Format]. "md" and "text" are accepted as aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "txt", "text":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unsupported export format %q (csv, markdown, txt, json)", shared.ErrInvalidArgument, s)
	}
}

// Extension returns the file extension for the format, including the dot.
func (f Format) Extension() string {
	switch f {
	case FormatMarkdown:
		return ".md"
	case FormatText:
		return ".txt"
	default:
		return "." + string(f)
	}
}

// Export renders requests in the given format.
func Export(format Format, requests []models.SongRequest, generatedAt time.Time) ([]byte, error) {
	switch format {
	case FormatCSV:
		return ExportToCSV(requests)
	case FormatMarkdown:
		return ExportToMarkdown(requests, generatedAt)
	case FormatText:
		return ExportToText(requests)
	case FormatJSON:
		return ExportToJSON(requests)
	default:
		return nil, fmt.Errorf("%w: unsupported export format %q", shared.ErrInvalidArgument, format)
	}
}

// ExportToCSV converts requests to CSV with columns: ID, Status, Priority, Title, Artist, Link, Requester, Message, Created, Updated
func ExportToCSV(requests []models.SongRequest) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Status", "Priority", "Title", "Artist", "Link", "Requester", "Message", "Created", "Updated"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, r := range requests {
		record := []string{
			r.ID,
			string(r.Status),
			strconv.Itoa(r.Priority),
			r.SongTitle,
			r.Artist,
			r.SongLink,
			r.RequesterName,
			r.SpecialMessage,
			r.CreatedAt.UTC().Format(time.RFC3339),
			r.UpdatedAt.UTC().Format(time.RFC3339),
		}
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

// ExportToMarkdown renders one section per status, pending first, in queue order.
func ExportToMarkdown(requests []models.SongRequest, generatedAt time.Time) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Song Requests\n\n")
	if !generatedAt.IsZero() {
		buf.WriteString(fmt.Sprintf("**Exported**: %s\n", generatedAt.UTC().Format(time.RFC1123)))
	}
	buf.WriteString(fmt.Sprintf("**Requests**: %d\n", len(requests)))

	for _, status := range models.Statuses {
		group := models.FilterByStatus(requests, status)
		buf.WriteString(fmt.Sprintf("\n## %s (%d)\n\n", titleCase(string(status)), len(group)))
		if len(group) == 0 {
			buf.WriteString("_None_\n")
			continue
		}

		for i, r := range group {
			buf.WriteString(fmt.Sprintf("%d. %s", i+1, markdownTitle(r)))
			if r.RequesterName != "" {
				buf.WriteString(fmt.Sprintf(" (requested by %s)", r.RequesterName))
			}
			buf.WriteString("\n")
			if r.SpecialMessage != "" {
				buf.WriteString(fmt.Sprintf("   > %s\n", r.SpecialMessage))
			}
		}
	}

	return buf.Bytes(), nil
}

// ExportToText renders one line per request: "<n>. [status] Title - Artist".
func ExportToText(requests []models.SongRequest) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Song requests: %d\n\n", len(requests)))
	for i, r := range requests {
		buf.WriteString(fmt.Sprintf("%d. [%s] %s", i+1, r.Status, r.Label()))
		if r.RequesterName != "" {
			buf.WriteString(fmt.Sprintf(" (%s)", r.RequesterName))
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// ExportToJSON renders requests as an indented JSON array.
func ExportToJSON(requests []models.SongRequest) ([]byte, error) {
	if requests == nil {
		requests = []models.SongRequest{}
	}
	data, err := json.MarshalIndent(requests, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// WriteExport renders requests and writes them to path, creating parent directories.
//
// An empty path defaults to "song_requests" plus the format's extension.
func WriteExport(format Format, requests []models.SongRequest, path string, generatedAt time.Time) (string, error) {
	if path == "" {
		path = "song_requests" + format.Extension()
	}

	data, err := Export(format, requests, generatedAt)
	if err != nil {
		return "", fmt.Errorf("failed to generate %s: %w", format, err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	return path, nil
}

func markdownTitle(r models.SongRequest) string {
	title := "**" + r.SongTitle + "**"
	if r.SongLink != "" {
		title = fmt.Sprintf("[%s](%s)", title, r.SongLink)
	}
	if r.Artist != "" {
		title += " - " + r.Artist
	}
	return title
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
