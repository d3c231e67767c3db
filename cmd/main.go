package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/desertthunder/rankify/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	runner := NewRunner(RunnerOpts{
		Logger:  logger,
		Palette: detectPalette(os.Stdout, os.Getenv),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	if err := newApp(runner).Run(ctx, os.Args); err != nil {
		stop()
		logger.Fatalf("application error: %v", err)
	}
	stop()
}

func newApp(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "rankify",
		Usage:   "Build a Spotify playlist from a ranked list of song titles",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable debug logging",
			},
		},
		Commands: r.register(),
	}
}
