package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/djq/internal/formatter"
	"github.com/desertthunder/djq/internal/models"
	"github.com/desertthunder/djq/internal/shared"
	"github.com/desertthunder/djq/internal/tasks"
)

// RequestsSubmit creates a pending request at the end of the queue.
func (r *Runner) RequestsSubmit(ctx context.Context, cmd *cli.Command) error {
	req := models.NewSongRequest{
		SongTitle:      cmd.String("title"),
		Artist:         cmd.String("artist"),
		SongLink:       cmd.String("link"),
		RequesterName:  cmd.String("requester"),
		SpecialMessage: cmd.String("message"),
	}
	if cmd.IsSet("priority") {
		priority := int(cmd.Int("priority"))
		req.Priority = &priority
	}

	manager, err := r.open(ctx)
	if err != nil {
		return err
	}

	created, err := manager.Submit(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to submit request: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(created, true)
	}

	pos := len(manager.ViewFor(models.StatusPending))
	return r.writePlain("✓ Queued %s (id %s, #%d in line)\n", created.Label(), created.ID, pos)
}

// RequestsList prints requests in queue order, optionally filtered by status.
func (r *Runner) RequestsList(ctx context.Context, cmd *cli.Command) error {
	var status models.Status
	if s := cmd.String("status"); s != "" {
		parsed, err := models.ParseStatus(s)
		if err != nil {
			return fmt.Errorf("%w: %w", shared.ErrInvalidArgument, err)
		}
		status = parsed
	}

	manager, err := r.open(ctx)
	if err != nil {
		return err
	}

	requests := manager.Snapshot()
	if status != "" {
		requests = manager.ViewFor(status)
	}

	if cmd.Bool("json") {
		return r.writeJSON(requests, cmd.Bool("pretty"))
	}

	if len(requests) == 0 {
		if r.isTTY {
			return r.writePlain("No requests.\n")
		}
		return nil
	}

	return r.writePlain("%s", renderRequests(requests, r.isTTY))
}

// RequestsSetStatus applies a status transition to one request.
func (r *Runner) RequestsSetStatus(ctx context.Context, cmd *cli.Command) error {
	return r.setStatus(ctx, cmd.StringArg("id"), cmd.StringArg("status"))
}

// statusShortcut binds a fixed target status, for play / reject / complete.
func (r *Runner) statusShortcut(status string) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		return r.setStatus(ctx, cmd.StringArg("id"), status)
	}
}

func (r *Runner) setStatus(ctx context.Context, id, value string) error {
	if id == "" {
		return fmt.Errorf("%w: request id is required", shared.ErrMissingArgument)
	}
	status, err := models.ParseStatus(value)
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrInvalidArgument, err)
	}

	manager, err := r.open(ctx)
	if err != nil {
		return err
	}

	before, _ := manager.Find(id)
	updated, err := manager.SetStatus(ctx, id, status)
	if err != nil {
		return fmt.Errorf("failed to set status: %w", err)
	}

	if before.Status == updated.Status {
		return r.writePlain("• %s is already %s\n", updated.Label(), updated.Status)
	}
	return r.writePlain("✓ %s: %s → %s\n", updated.Label(), before.Status, updated.Status)
}

// RequestsMove moves a pending request one place up or down.
func (r *Runner) RequestsMove(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: request id is required", shared.ErrMissingArgument)
	}
	direction, err := models.ParseDirection(cmd.StringArg("direction"))
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrInvalidArgument, err)
	}

	manager, err := r.open(ctx)
	if err != nil {
		return err
	}

	moved, err := manager.Reorder(ctx, id, direction)
	if err != nil {
		return fmt.Errorf("failed to move request: %w", err)
	}

	pending := manager.ViewFor(models.StatusPending)
	pos := 0
	for i, p := range pending {
		if p.ID == id {
			pos = i + 1
			break
		}
	}

	if !moved {
		return r.writePlain("• Request %s is already #%d of %d\n", id, pos, len(pending))
	}
	return r.writePlain("✓ Moved request %s %s to #%d of %d\n", id, direction, pos, len(pending))
}

// RequestsDelete removes a request from the store. The lifecycle manager never deletes, so this goes to the store directly.
func (r *Runner) RequestsDelete(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: request id is required", shared.ErrMissingArgument)
	}

	store, err := r.openStore()
	if err != nil {
		return err
	}

	if err := store.Delete(ctx, id); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return err
		}
		return fmt.Errorf("%w: failed to delete request: %w", shared.ErrStoreUnavailable, err)
	}

	if r.manager != nil {
		if err := r.manager.Refresh(ctx); err != nil {
			r.logger.Warn("snapshot not refreshed after delete", "error", err)
		}
	}

	r.logger.Info("request deleted", "id", id)
	return r.writePlain("✓ Deleted request %s\n", id)
}

// RequestsExport writes the queue to a file, or one file per status with --split.
func (r *Runner) RequestsExport(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	manager, err := r.open(ctx)
	if err != nil {
		return err
	}
	requests := manager.Snapshot()
	now := time.Now().UTC()

	if !cmd.Bool("split") {
		path, err := formatter.WriteExport(format, requests, cmd.String("output"), now)
		if err != nil {
			return err
		}
		return r.writePlain("✓ Exported %d requests to %s\n", len(requests), path)
	}

	formats := []formatter.Format{format}
	for _, extra := range cmd.StringSlice("also") {
		for _, name := range strings.Split(extra, ",") {
			f, err := formatter.ParseFormat(name)
			if err != nil {
				return err
			}
			formats = append(formats, f)
		}
	}

	prog := make(chan tasks.ProgressUpdate, 64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range prog {
			r.logger.Info(update.Message, "phase", update.Phase)
		}
	}()

	result, err := tasks.ExportByStatus(ctx, requests, tasks.ExportOpts{
		Formats:     formats,
		OutputDir:   cmd.String("output"),
		GeneratedAt: now,
	}, prog)
	close(prog)
	<-done

	if err != nil {
		return err
	}
	if result.Failed > 0 {
		return fmt.Errorf("%d of %d export files failed, see %s", result.Failed, len(result.Files), result.ManifestPath)
	}
	return r.writePlain("✓ Exported %d files to %s\n", result.Successful, result.OutputDirectory)
}
