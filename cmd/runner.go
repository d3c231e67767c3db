package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/rankify/internal/server"
	"github.com/desertthunder/rankify/internal/services"
	"github.com/desertthunder/rankify/internal/shared"
	"github.com/desertthunder/rankify/internal/tasks"
	"github.com/desertthunder/rankify/internal/ui"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config    *shared.Config
	provider  tasks.CatalogProvider
	authorize services.Authorizer
	logger    *log.Logger
	output    io.Writer
	errOutput io.Writer
	palette   *ui.Palette
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Config, Provider and Authorizer are normally left nil: the config is resolved per command from --config and the
// environment, and the provider talks to Spotify through the browser flow.
type RunnerOpts struct {
	Config     *shared.Config
	Provider   tasks.CatalogProvider
	Authorizer services.Authorizer
	Logger     *log.Logger
	Output     io.Writer
	ErrOutput  io.Writer
	Palette    *ui.Palette
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.ErrOutput == nil {
		opts.ErrOutput = os.Stderr
	}
	if opts.Palette == nil {
		opts.Palette = ui.PlainPalette()
	}

	return &Runner{
		config:    opts.Config,
		provider:  opts.Provider,
		authorize: opts.Authorizer,
		logger:    opts.Logger,
		output:    opts.Output,
		errOutput: opts.ErrOutput,
		palette:   opts.Palette,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		runCommand, parseCommand, authCommand, historyCommand, setupCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// detectPalette returns a styled palette only when f is a terminal and NO_COLOR is unset.
func detectPalette(f *os.File, getenv func(string) string) *ui.Palette {
	if getenv("NO_COLOR") != "" {
		return ui.PlainPalette()
	}
	if isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()) {
		return ui.DefaultPalette
	}
	return ui.PlainPalette()
}

// resolveConfig returns a private copy of the effective configuration and applies its log level.
func (r *Runner) resolveConfig(cmd *cli.Command) (*shared.Config, error) {
	var cfg *shared.Config
	if r.config != nil {
		copied := *r.config
		cfg = &copied
	} else {
		resolved, err := shared.ResolveConfig(cmd.String("config"))
		if err != nil {
			return nil, err
		}
		cfg = resolved
	}

	if cfg.Log.Level != "" {
		shared.SetLogLevel(r.logger, cfg.Log.Level)
	}
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, "debug")
	}
	return cfg, nil
}

// catalogProvider returns the injected provider or a Spotify provider backed by the token file.
func (r *Runner) catalogProvider(cfg *shared.Config) tasks.CatalogProvider {
	if r.provider != nil {
		return r.provider
	}
	tokens := services.NewTokenStore(cfg.Credentials.Spotify.TokenPath)
	return services.NewSpotifyProvider(tokens, r.authorizer(cfg), cfg.Pipeline.SearchRate, r.logger)
}

func (r *Runner) authorizer(cfg *shared.Config) services.Authorizer {
	if r.authorize != nil {
		return r.authorize
	}
	flow := server.NewBrowserFlow(cfg.Server.Host, cfg.Server.Port, r.errOutput, r.logger)
	return flow.Authorize
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writeBytes(data []byte) error {
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", r.palette.Title(title))
	r.writePlain("═══════════════════════════════════════\n")
}
