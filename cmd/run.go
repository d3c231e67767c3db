package main

import (
	"bytes"
	"context"
	"database/sql"

	"github.com/desertthunder/rankify/internal/formatter"
	"github.com/desertthunder/rankify/internal/repositories"
	"github.com/desertthunder/rankify/internal/shared"
	"github.com/desertthunder/rankify/internal/tasks"
	"github.com/desertthunder/rankify/internal/ui"
	"github.com/urfave/cli/v3"
)

// Run executes the full pipeline: authenticate, create the playlist, resolve every title and add the matches.
//
// Progress is streamed while the run is in flight and the summary is rendered once it finishes.
// Machine-readable formats send progress to stderr so stdout carries only the summary.
// An interrupted run still prints its partial summary before the error is returned.
func (r *Runner) Run(ctx context.Context, cmd *cli.Command) error {
	cfg, err := r.resolveConfig(cmd)
	if err != nil {
		return err
	}
	applyRunFlags(cfg, cmd)

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	opts := []tasks.PipelineOption{
		tasks.WithDryRun(cmd.Bool("dry-run")),
		tasks.WithLogger(r.logger),
	}

	if !cmd.Bool("no-history") && cfg.Database.Path != "" {
		db, err := shared.OpenHistoryDatabase(cfg.Database)
		if err != nil {
			r.logger.Warn("run history disabled", "path", cfg.Database.Path, "error", err)
		} else {
			defer closeDatabase(r, db)
			recorder := repositories.NewRunRecorderAdapter(repositories.NewRunRepository(db))
			opts = append(opts, tasks.WithRecorder(recorder))
		}
	}

	progressOut := r.output
	if format != formatter.Text && format != formatter.Markdown {
		progressOut = r.errOutput
	}
	reporter := ui.NewReporter(progressOut, r.errOutput, r.palette)

	progress := make(chan tasks.ProgressUpdate)
	done := make(chan struct{})
	go func() {
		reporter.Consume(progress)
		close(done)
	}()

	pipeline := tasks.NewPipeline(cfg, r.catalogProvider(cfg), opts...)
	summary, runErr := pipeline.Run(ctx, progress)
	close(progress)
	<-done

	if summary == nil {
		return runErr
	}

	out, err := formatter.Summary(summary, format)
	if err != nil {
		return err
	}
	if !bytes.HasSuffix(out, []byte("\n")) {
		out = append(out, '\n')
	}
	if format == formatter.Text || format == formatter.Markdown {
		out = append([]byte("\n"), out...)
	}
	if err := r.writeBytes(out); err != nil {
		return err
	}
	return runErr
}

// applyRunFlags overrides configuration values with flags the user actually set.
func applyRunFlags(cfg *shared.Config, cmd *cli.Command) {
	if cmd.IsSet("input") {
		cfg.Input.Path = cmd.String("input")
	}
	if cmd.IsSet("artist") {
		cfg.Playlist.Artist = cmd.String("artist")
	}
	if cmd.IsSet("name") {
		cfg.Playlist.Name = cmd.String("name")
	}
	if cmd.IsSet("description") {
		cfg.Playlist.Description = cmd.String("description")
	}
	if cmd.IsSet("public") {
		cfg.Playlist.Visibility = shared.VisibilityString(cmd.Bool("public"))
	}
	if cmd.IsSet("batch-size") {
		cfg.Pipeline.BatchSize = cmd.Int("batch-size")
	}
	if cmd.IsSet("workers") {
		cfg.Pipeline.Workers = cmd.Int("workers")
	}
	if cmd.IsSet("search-limit") {
		cfg.Pipeline.SearchLimit = cmd.Int("search-limit")
	}
}

func closeDatabase(r *Runner, db *sql.DB) {
	if err := db.Close(); err != nil {
		r.logger.Warn("failed to close history database", "error", err)
	}
}
