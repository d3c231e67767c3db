package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/rankify/internal/models"
	"github.com/desertthunder/rankify/internal/repositories"
	"github.com/desertthunder/rankify/internal/shared"
	"github.com/urfave/cli/v3"
)

type runView struct {
	ID            string                `json:"id"`
	Sequence      int                   `json:"sequence"`
	PlaylistID    string                `json:"playlist_id,omitempty"`
	PlaylistName  string                `json:"playlist_name"`
	Artist        string                `json:"artist"`
	Requested     int                   `json:"requested"`
	Resolved      int                   `json:"resolved"`
	Added         int                   `json:"added"`
	FailedBatches int                   `json:"failed_batches"`
	DryRun        bool                  `json:"dry_run"`
	StartedAt     time.Time             `json:"started_at"`
	CompletedAt   time.Time             `json:"completed_at"`
	Items         []models.RunItem      `json:"items,omitempty"`
	Failures      []models.BatchFailure `json:"failures,omitempty"`
}

func newRunView(run *models.Run) runView {
	return runView{
		ID:            run.ID(),
		Sequence:      run.Sequence(),
		PlaylistID:    run.PlaylistID(),
		PlaylistName:  run.PlaylistName(),
		Artist:        run.Artist(),
		Requested:     run.Requested(),
		Resolved:      run.Resolved(),
		Added:         run.Added(),
		FailedBatches: run.FailedBatches(),
		DryRun:        run.DryRun(),
		StartedAt:     run.StartedAt(),
		CompletedAt:   run.CompletedAt(),
		Items:         run.Items(),
		Failures:      run.Failures(),
	}
}

// History lists recorded runs, newest first, or shows a single run with its per-title items.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	cfg, err := r.resolveConfig(cmd)
	if err != nil {
		return err
	}

	db, err := shared.OpenHistoryDatabase(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer closeDatabase(r, db)

	repo := repositories.NewRunRepository(db)
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")

	if id := cmd.String("id"); id != "" {
		run, err := repo.Get(id)
		if errors.Is(err, repositories.ErrRunNotFound) {
			return fmt.Errorf("%w: no run with ID %s", shared.ErrInvalidArgument, id)
		}
		if err != nil {
			return err
		}
		if useJSON {
			return r.writeJSON(newRunView(run), pretty)
		}
		r.writeRun(run)
		return nil
	}

	criteria := map[string]any{"limit": cmd.Int("limit")}
	if name := cmd.String("playlist"); name != "" {
		criteria["playlist_name"] = name
	}

	runs, err := repo.List(criteria)
	if err != nil {
		return err
	}

	if useJSON {
		views := make([]runView, len(runs))
		for i, run := range runs {
			views[i] = newRunView(run)
		}
		return r.writeJSON(views, pretty)
	}

	if len(runs) == 0 {
		return r.writePlain("No runs recorded in %s\n", cfg.Database.Path)
	}

	r.writePlain("Found %d runs:\n\n", len(runs))
	for _, run := range runs {
		mode := ""
		if run.DryRun() {
			mode = " " + r.palette.Warn("(dry run)")
		}
		r.writePlain("%d. %s%s\n", run.Sequence(), run.PlaylistName(), mode)
		r.writePlain("   ID: %s\n", run.ID())
		r.writePlain("   Started: %s (%s)\n", run.StartedAt().Local().Format(time.DateTime), run.Duration().Round(time.Millisecond))
		r.writePlain("   Added: %d/%d (resolved %d, failed batches %d)\n\n",
			run.Added(), run.Requested(), run.Resolved(), run.FailedBatches())
	}
	return nil
}

func (r *Runner) writeRun(run *models.Run) {
	r.writePlainHeader(run.PlaylistName())
	r.writePlain("ID: %s\n", run.ID())
	if run.PlaylistID() != "" {
		r.writePlain("Playlist ID: %s\n", run.PlaylistID())
	}
	r.writePlain("Artist: %s\n", run.Artist())
	r.writePlain("Started: %s\n", run.StartedAt().Local().Format(time.DateTime))
	r.writePlain("Resolved: %d/%d, Added: %d\n\n", run.Resolved(), run.Requested(), run.Added())

	for _, item := range run.Items() {
		if item.Resolved() {
			r.writePlain("%s %s. %s -> %s\n", r.palette.OK("✓"), item.Rank, item.Title, item.TrackURI)
		} else {
			r.writePlain("%s %s. %s (%s)\n", r.palette.Err("✗"), item.Rank, item.Title, item.Reason)
		}
	}

	for _, f := range run.Failures() {
		r.writePlain("%s batch %d (%d tracks): %s\n", r.palette.Err("✗"), f.Index, f.Size, f.Error)
	}
}
