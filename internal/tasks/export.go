package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/desertthunder/djq/internal/formatter"
	"github.com/desertthunder/djq/internal/models"
)

const (
	defaultWorkers = 4
	maxWorkers     = 8
	manifestName   = "export_manifest.json"
)

// ExportOpts contains configuration for a per-status export.
type ExportOpts struct {
	Formats     []formatter.Format // Formats written for every status (default: csv)
	OutputDir   string             // Output directory (default: djq_export_{epoch})
	NumWorkers  int                // Concurrent writers (default: 4, max: 8)
	GeneratedAt time.Time          // Timestamp stamped into the manifest and Markdown files
}

// ExportJob renders one status view in one format.
type ExportJob struct {
	Status   models.Status
	Format   formatter.Format
	Requests []models.SongRequest
}

// ExportFileResult describes one written (or failed) file.
type ExportFileResult struct {
	Status  models.Status    `json:"status"`
	Format  formatter.Format `json:"format"`
	Path    string           `json:"path,omitempty"`
	Count   int              `json:"count"`
	Success bool             `json:"success"`
	Error   string           `json:"error,omitempty"`
}

// ExportResult summarizes an export run.
type ExportResult struct {
	OutputDirectory string             `json:"output_directory"`
	GeneratedAt     time.Time          `json:"generated_at"`
	Counts          map[string]int     `json:"counts"`
	Files           []ExportFileResult `json:"files"`
	Successful      int                `json:"successful"`
	Failed          int                `json:"failed"`
	ManifestPath    string             `json:"-"`
}

// ExportByStatus writes every status view of requests in every requested format.
//
// Each view is in queue order. Files are named {status}{ext}. A failed file does not stop the others;
// the manifest records each outcome and is written last.
func ExportByStatus(
	ctx context.Context,
	requests []models.SongRequest,
	opts ExportOpts,
	prog chan<- ProgressUpdate,
) (*ExportResult, error) {
	opts.Formats = uniqueFormats(opts.Formats)
	if len(opts.Formats) == 0 {
		opts.Formats = []formatter.Format{formatter.FormatCSV}
	}
	if opts.GeneratedAt.IsZero() {
		opts.GeneratedAt = time.Now().UTC()
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("djq_export_%d", opts.GeneratedAt.Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = defaultWorkers
	}
	if opts.NumWorkers > maxWorkers {
		opts.NumWorkers = maxWorkers
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	jobs := make([]ExportJob, 0, len(models.Statuses)*len(opts.Formats))
	counts := make(map[string]int, len(models.Statuses))
	for _, status := range models.Statuses {
		view := models.FilterByStatus(requests, status)
		models.SortRequests(view)
		counts[status.String()] = len(view)

		for _, format := range opts.Formats {
			jobs = append(jobs, ExportJob{Status: status, Format: format, Requests: view})
		}
	}

	result := &ExportResult{
		OutputDirectory: opts.OutputDir,
		GeneratedAt:     opts.GeneratedAt,
		Counts:          counts,
		Files:           make([]ExportFileResult, 0, len(jobs)),
	}

	sendProgress(prog, prepareExportUpdate(len(jobs), opts.OutputDir))

	queue := make(chan ExportJob, len(jobs))
	results := make(chan ExportFileResult, len(jobs))

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go exportWorker(ctx, &wg, queue, results, opts)
	}

	for _, job := range jobs {
		queue <- job
	}
	close(queue)

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Files = append(result.Files, res)

		if res.Success {
			result.Successful++
			sendProgress(prog, exportCompletedUpdate(completed, len(jobs), res))
		} else {
			result.Failed++
			sendProgress(prog, exportFailedUpdate(completed, len(jobs), res.Status, res.Format, fmt.Errorf("%s", res.Error)))
		}
	}

	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("export cancelled: %w", err)
	}

	sort.Slice(result.Files, func(i, j int) bool {
		a, b := result.Files[i], result.Files[j]
		if a.Status != b.Status {
			return statusIndex(a.Status) < statusIndex(b.Status)
		}
		return a.Format < b.Format
	})

	manifestPath := filepath.Join(opts.OutputDir, manifestName)
	if err := writeManifest(result, manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	sendProgress(prog, manifestUpdate(manifestPath))

	return result, nil
}

// exportWorker renders jobs until the queue closes or ctx is cancelled.
func exportWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	jobs <-chan ExportJob,
	results chan<- ExportFileResult,
	opts ExportOpts,
) {
	defer wg.Done()

	for job := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		results <- exportJob(job, opts)
	}
}

func exportJob(job ExportJob, opts ExportOpts) ExportFileResult {
	res := ExportFileResult{Status: job.Status, Format: job.Format, Count: len(job.Requests)}

	path := filepath.Join(opts.OutputDir, job.Status.String()+job.Format.Extension())
	written, err := formatter.WriteExport(job.Format, job.Requests, path, opts.GeneratedAt)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	res.Path = written
	res.Success = true
	return res
}

func writeManifest(result *ExportResult, path string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}

func statusIndex(s models.Status) int {
	for i, status := range models.Statuses {
		if status == s {
			return i
		}
	}
	return len(models.Statuses)
}

// uniqueFormats drops repeated formats, keeping the first occurrence, so no two workers write the same file.
func uniqueFormats(formats []formatter.Format) []formatter.Format {
	seen := make(map[formatter.Format]bool, len(formats))
	out := make([]formatter.Format, 0, len(formats))
	for _, f := range formats {
		if seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}
