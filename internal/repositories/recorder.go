package repositories

import (
	"fmt"

	"github.com/desertthunder/rankify/internal/models"
	"github.com/desertthunder/rankify/internal/tasks"
)

// RunRecorderAdapter adapts [RunRepository] to the [tasks.RunRecorder] interface.
type RunRecorderAdapter struct {
	repo *RunRepository
}

// NewRunRecorderAdapter creates a new adapter for the given repository.
func NewRunRecorderAdapter(repo *RunRepository) *RunRecorderAdapter {
	return &RunRecorderAdapter{repo: repo}
}

// Record persists a finished run summary under its run ID.
func (a *RunRecorderAdapter) Record(summary *tasks.Summary) error {
	if summary == nil {
		return fmt.Errorf("nil summary")
	}
	return a.repo.Create(RunFromSummary(summary))
}

// RunFromSummary converts a pipeline summary into a persistable [models.Run].
func RunFromSummary(summary *tasks.Summary) *models.Run {
	name := ""
	playlistID := ""
	if summary.Playlist != nil {
		name = summary.Playlist.Name
		playlistID = summary.Playlist.ID
	}

	items := make([]models.RunItem, len(summary.Outcomes))
	for i, o := range summary.Outcomes {
		items[i] = models.RunItem{
			Position: i + 1,
			Rank:     o.Entry.Rank,
			Title:    o.Entry.Title,
			Query:    o.Query,
			TrackURI: o.TrackID,
			Reason:   o.Reason,
		}
	}

	failures := make([]models.BatchFailure, len(summary.FailedBatches))
	for i, f := range summary.FailedBatches {
		failures[i] = models.BatchFailure{Index: f.Index, Size: f.Size, Error: f.Error}
	}

	run := models.NewRun(name, summary.Artist, summary.StartedAt)
	run.SetID(summary.RunID)
	run.SetPlaylistID(playlistID)
	run.SetDryRun(summary.DryRun)
	run.SetCompletedAt(summary.CompletedAt)
	run.SetCounts(summary.Requested, summary.Resolved, summary.Added, 0)
	run.SetItems(items)
	run.SetFailures(failures)
	return run
}
