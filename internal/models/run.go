package models

import (
	"fmt"
	"time"

	"github.com/desertthunder/rankify/internal/shared"
)

// Run is one recorded pipeline invocation.
type Run struct {
	id            string
	sequence      int
	playlistID    string
	playlistName  string
	artist        string
	requested     int
	resolved      int
	added         int
	failedBatches int
	dryRun        bool
	startedAt     time.Time
	completedAt   time.Time
	createdAt     time.Time
	updatedAt     time.Time
	deletedAt     *time.Time

	items    []RunItem
	failures []BatchFailure
}

// RunItem is the outcome for one ranked title, stored in input order.
type RunItem struct {
	Position int    `json:"position"`
	Rank     string `json:"rank"`
	Title    string `json:"title"`
	Query    string `json:"query"`
	TrackURI string `json:"track_uri,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// Resolved reports whether the title matched a track.
func (i RunItem) Resolved() bool { return i.TrackURI != "" }

// BatchFailure is a failed append recorded for a run.
type BatchFailure struct {
	Index int    `json:"index"`
	Size  int    `json:"size"`
	Error string `json:"error"`
}

// NewRun creates a run with creation timestamps set to now.
func NewRun(playlistName, artist string, startedAt time.Time) *Run {
	now := time.Now()
	return &Run{
		playlistName: playlistName,
		artist:       artist,
		startedAt:    startedAt,
		completedAt:  startedAt,
		createdAt:    now,
		updatedAt:    now,
	}
}

func (r *Run) ID() string                 { return r.id }
func (r *Run) Sequence() int              { return r.sequence }
func (r *Run) PlaylistID() string         { return r.playlistID }
func (r *Run) PlaylistName() string       { return r.playlistName }
func (r *Run) Artist() string             { return r.artist }
func (r *Run) Requested() int             { return r.requested }
func (r *Run) Resolved() int              { return r.resolved }
func (r *Run) Added() int                 { return r.added }
func (r *Run) FailedBatches() int         { return r.failedBatches }
func (r *Run) DryRun() bool               { return r.dryRun }
func (r *Run) StartedAt() time.Time       { return r.startedAt }
func (r *Run) CompletedAt() time.Time     { return r.completedAt }
func (r *Run) CreatedAt() time.Time       { return r.createdAt }
func (r *Run) UpdatedAt() time.Time       { return r.updatedAt }
func (r *Run) DeletedAt() *time.Time      { return r.deletedAt }
func (r *Run) Items() []RunItem           { return r.items }
func (r *Run) Failures() []BatchFailure   { return r.failures }
func (r *Run) Duration() time.Duration    { return r.completedAt.Sub(r.startedAt) }
func (r *Run) SetID(id string)            { r.id = id }
func (r *Run) SetSequence(seq int)        { r.sequence = seq }
func (r *Run) SetPlaylistID(id string)    { r.playlistID = id }
func (r *Run) SetDryRun(dryRun bool)      { r.dryRun = dryRun }
func (r *Run) SetCompletedAt(t time.Time) { r.completedAt = t }
func (r *Run) SetCreatedAt(t time.Time)   { r.createdAt = t }
func (r *Run) SetUpdatedAt(t time.Time)   { r.updatedAt = t }
func (r *Run) SetDeletedAt(t *time.Time)  { r.deletedAt = t }

// SetCounts sets the summary counters. failedBatches is overwritten by [Run.SetFailures].
func (r *Run) SetCounts(requested, resolved, added, failedBatches int) {
	r.requested = requested
	r.resolved = resolved
	r.added = added
	r.failedBatches = failedBatches
}

// SetItems replaces the per-title outcomes.
func (r *Run) SetItems(items []RunItem) { r.items = items }

// SetFailures replaces the failed batches and updates the failure count.
func (r *Run) SetFailures(failures []BatchFailure) {
	r.failures = failures
	r.failedBatches = len(failures)
}

// Validate checks the run's counters are consistent.
func (r *Run) Validate() error {
	switch {
	case r.playlistName == "":
		return fmt.Errorf("%w: playlist name is required", shared.ErrInvalidInput)
	case r.requested < 0 || r.resolved < 0 || r.added < 0:
		return fmt.Errorf("%w: counts must not be negative", shared.ErrInvalidInput)
	case r.resolved > r.requested:
		return fmt.Errorf("%w: resolved (%d) exceeds requested (%d)", shared.ErrInvalidInput, r.resolved, r.requested)
	case r.added > r.resolved:
		return fmt.Errorf("%w: added (%d) exceeds resolved (%d)", shared.ErrInvalidInput, r.added, r.resolved)
	case r.completedAt.Before(r.startedAt):
		return fmt.Errorf("%w: run completed before it started", shared.ErrInvalidInput)
	}
	return nil
}
