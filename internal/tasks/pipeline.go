package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/rankify/internal/ranking"
	"github.com/desertthunder/rankify/internal/services"
	"github.com/desertthunder/rankify/internal/shared"
)

// CatalogProvider supplies an authenticated catalog for a set of credentials.
type CatalogProvider interface {
	Catalog(ctx context.Context, creds services.Credentials) (services.Catalog, error)
}

// RunRecorder persists a finished run. Implemented by repositories.RunRecorderAdapter.
type RunRecorder interface {
	Record(summary *Summary) error
}

// Summary is the final report of a run.
type Summary struct {
	RunID            string             `json:"run_id"`
	Playlist         *services.Playlist `json:"playlist,omitempty"`
	Artist           string             `json:"artist,omitempty"`
	Requested        int                `json:"requested"`
	Resolved         int                `json:"resolved"`
	Added            int                `json:"added"`
	UnresolvedTitles []string           `json:"unresolved_titles"`
	FailedBatches    []BatchFailure     `json:"failed_batches"`
	Outcomes         []Outcome          `json:"outcomes"`
	StartedAt        time.Time          `json:"started_at"`
	CompletedAt      time.Time          `json:"completed_at"`
	DryRun           bool               `json:"dry_run"`
}

// Pipeline wires the parser, resolver and populator into a single run.
type Pipeline struct {
	cfg      *shared.Config
	provider CatalogProvider
	recorder RunRecorder
	dryRun   bool
	logger   *log.Logger
	now      func() time.Time
}

// PipelineOption configures a [Pipeline].
type PipelineOption func(*Pipeline)

// WithDryRun identifies and searches but never creates a playlist or adds tracks.
func WithDryRun(dryRun bool) PipelineOption {
	return func(p *Pipeline) { p.dryRun = dryRun }
}

// WithRecorder records every completed run. Recording failures are logged only.
func WithRecorder(r RunRecorder) PipelineOption {
	return func(p *Pipeline) { p.recorder = r }
}

// WithLogger sets the pipeline's logger.
func WithLogger(l *log.Logger) PipelineOption {
	return func(p *Pipeline) { p.logger = l }
}

// NewPipeline creates a pipeline for cfg. The provider is not called until [Pipeline.Run].
func NewPipeline(cfg *shared.Config, provider CatalogProvider, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		cfg:      cfg,
		provider: provider,
		logger:   shared.NewLogger(nil),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes the whole pipeline.
//
// Configuration, input and authentication problems are returned before any playlist is touched.
// Per-title and per-batch failures are recorded in the [Summary] and never fail the run.
// A run that resolves nothing still succeeds with zero additions.
//
// When ctx is cancelled mid-run the partial summary is returned together with the context error
// and nothing is recorded.
func (p *Pipeline) Run(ctx context.Context, progress chan<- ProgressUpdate) (*Summary, error) {
	if p.cfg == nil {
		return nil, fmt.Errorf("%w: no configuration", shared.ErrMissingConfig)
	}
	if p.provider == nil {
		return nil, fmt.Errorf("%w: no catalog provider", shared.ErrServiceUnavailable)
	}

	if err := p.cfg.Validate(); err != nil {
		return nil, err
	}

	entries, err := ranking.ReadFile(p.cfg.Input.Path)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		RunID:     shared.GenerateID(),
		Artist:    p.cfg.Playlist.Artist,
		Requested:        len(entries),
		UnresolvedTitles: []string{},
		FailedBatches:    []BatchFailure{},
		StartedAt:        p.now(),
		DryRun:           p.dryRun,
	}
	logger := shared.WithLogger(p.logger, "run", summary.RunID)
	logger.Debug("parsed ranking", "path", p.cfg.Input.Path, "entries", len(entries))

	catalog, err := p.provider.Catalog(ctx, services.CredentialsFromConfig(p.cfg))
	if err != nil {
		var cfgErr *shared.ConfigurationError
		if errors.As(err, &cfgErr) || errors.Is(err, shared.ErrAuthFailed) || errors.Is(err, shared.ErrNotAuthenticated) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}

	user, err := catalog.Identify(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to identify user: %w", err)
	}
	sendProgress(ctx, progress, loggedInUpdate(user))

	playlist := &services.Playlist{
		Name:        p.cfg.Playlist.Name,
		Description: p.cfg.Playlist.Description,
		Public:      p.cfg.Playlist.Public(),
	}
	if p.dryRun {
		sendProgress(ctx, progress, dryRunPlaylistUpdate(playlist.Name))
	} else {
		playlist, err = catalog.CreatePlaylist(ctx, user.ID, playlist.Name, playlist.Description, playlist.Public)
		if err != nil {
			return nil, fmt.Errorf("failed to create playlist: %w", err)
		}
		sendProgress(ctx, progress, playlistCreatedUpdate(playlist))
	}
	summary.Playlist = playlist

	resolver := NewResolver(catalog, p.cfg.Playlist.Artist, p.cfg.Pipeline.SearchLimit)
	summary.Outcomes = resolver.ResolveAll(ctx, entries, p.cfg.Pipeline.Workers, progress)

	ids := ResolvedIDs(summary.Outcomes)
	summary.Resolved = len(ids)
	summary.UnresolvedTitles = UnresolvedTitles(summary.Outcomes)
	logger.Debug("resolved titles", "resolved", summary.Resolved, "unresolved", len(summary.UnresolvedTitles))

	switch {
	case len(ids) == 0:
		sendProgress(ctx, progress, noTracksUpdate())
	case p.dryRun:
		logger.Info("dry run, skipping playlist population", "tracks", len(ids))
	default:
		report := NewPopulator(catalog, p.cfg.Pipeline.BatchSize).Populate(ctx, playlist.ID, ids, progress)
		summary.Added = report.Added
		summary.FailedBatches = append(summary.FailedBatches, report.Failed...)
		sendProgress(ctx, progress, completedUpdate(summary))
	}

	summary.CompletedAt = p.now()

	if err := ctx.Err(); err != nil {
		logger.Warn("run interrupted", "playlist", playlist.ID, "added", summary.Added)
		return summary, fmt.Errorf("run interrupted: %w", err)
	}

	if p.recorder != nil {
		if err := p.recorder.Record(summary); err != nil {
			logger.Warn("failed to record run", "error", err)
		}
	}

	return summary, nil
}
