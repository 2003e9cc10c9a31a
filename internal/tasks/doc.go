// Package tasks runs long-running queue jobs with non-blocking progress reporting.
//
// [ExportByStatus] archives a queue snapshot as one file per status and format, rendered by a small
// worker pool, and writes an export_manifest.json describing every file. Progress is reported as
// [ProgressUpdate] values on an optional channel; sends never block, so a slow or absent reader only
// drops updates.
package tasks
