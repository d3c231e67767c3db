package main

import (
	"context"

	"github.com/desertthunder/rankify/internal/formatter"
	"github.com/desertthunder/rankify/internal/ranking"
	"github.com/desertthunder/rankify/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Parse reads the ranking file and prints each entry with the query it would be searched with.
//
// No credentials are needed, so this is the quickest way to check a ranking file before a run.
func (r *Runner) Parse(ctx context.Context, cmd *cli.Command) error {
	cfg, err := r.resolveConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.IsSet("input") {
		cfg.Input.Path = cmd.String("input")
	}
	if cmd.IsSet("artist") {
		cfg.Playlist.Artist = cmd.String("artist")
	}

	entries, err := ranking.ReadFile(cfg.Input.Path)
	if err != nil {
		return err
	}
	r.logger.Debug("parsed ranking", "path", cfg.Input.Path, "entries", len(entries))

	resolver := tasks.NewResolver(nil, cfg.Playlist.Artist, cfg.Pipeline.SearchLimit)
	query := func(title string) string {
		return resolver.Query(ranking.Normalize(title))
	}

	if cmd.Bool("json") {
		out, err := formatter.EntriesToJSON(entries, query)
		if err != nil {
			return err
		}
		return r.writeBytes(append(out, '\n'))
	}

	out, err := formatter.EntriesToText(entries, query)
	if err != nil {
		return err
	}
	return r.writeBytes(out)
}
