package tasks

import (
	"fmt"

	"github.com/desertthunder/djq/internal/formatter"
	"github.com/desertthunder/djq/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	PrepareExport Phase = iota
	ExportStatus
	WriteManifest
)

func (p Phase) String() string {
	switch p {
	case PrepareExport:
		return "prepare_export"
	case ExportStatus:
		return "export_status"
	case WriteManifest:
		return "write_manifest"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func prepareExportUpdate(total int, dir string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PrepareExport,
		Step:    0,
		Total:   total,
		Message: fmt.Sprintf("Exporting %d files to %s...", total, dir),
	}
}

func exportCompletedUpdate(step, total int, res ExportFileResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportStatus,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d requests)", step, total, res.Path, res.Count),
		Data:    res,
	}
}

func exportFailedUpdate(step, total int, status models.Status, format formatter.Format, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportStatus,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s %s: %v", step, total, status, format, err),
	}
}

func manifestUpdate(path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteManifest,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Manifest written to %s", path),
	}
}
