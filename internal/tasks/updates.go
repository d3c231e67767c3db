package tasks

import (
	"context"
	"fmt"

	"github.com/desertthunder/rankify/internal/services"
)

// ProgressUpdate represents a progress event during a run.
//
// Used to send real-time updates to the CLI for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Failed  bool   // Failure or warning line; the CLI writes these to stderr
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	Authenticate Phase = iota
	CreatePlaylist
	ResolveTracks
	AddTracks
	Complete
)

func (p Phase) String() string {
	switch p {
	case Authenticate:
		return "authenticate"
	case CreatePlaylist:
		return "create_playlist"
	case ResolveTracks:
		return "resolve_tracks"
	case AddTracks:
		return "add_tracks"
	case Complete:
		return "complete"
	default:
		return ""
	}
}

// sendProgress delivers update unless progress is nil.
//
// The send blocks until the receiver takes it or ctx is done, so lines are never silently dropped.
func sendProgress(ctx context.Context, progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	case <-ctx.Done():
	}
}

func loggedInUpdate(user *services.User) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Authenticate,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Logged in as: %s | User ID: %s", user.DisplayName, user.ID),
		Data:    user,
	}
}

func playlistCreatedUpdate(pl *services.Playlist) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreatePlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Playlist '%s' created with ID: %s", pl.Name, pl.ID),
		Data:    pl,
	}
}

func dryRunPlaylistUpdate(name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreatePlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Dry run: playlist '%s' not created", name),
	}
}

func outcomeUpdate(step, total int, o Outcome) ProgressUpdate {
	update := ProgressUpdate{
		Phase: ResolveTracks,
		Step:  step,
		Total: total,
		Data:  o,
	}

	switch {
	case o.Resolved():
		update.Message = fmt.Sprintf("[%d/%d] Added: %s", step, total, o.Query)
	case o.Err != nil:
		update.Failed = true
		update.Message = fmt.Sprintf("[%d/%d] %v", step, total, o.Err)
	default:
		update.Failed = true
		update.Message = fmt.Sprintf("[%d/%d] Song not found: %s", step, total, o.Entry.Title)
	}
	return update
}

func batchAddedUpdate(index, total, size int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   AddTracks,
		Step:    index,
		Total:   total,
		Message: fmt.Sprintf("Added batch %d (%d tracks)", index, size),
	}
}

func batchFailedUpdate(total int, failure BatchFailure) ProgressUpdate {
	return ProgressUpdate{
		Phase:   AddTracks,
		Step:    failure.Index,
		Total:   total,
		Message: failure.Error,
		Failed:  true,
		Data:    failure,
	}
}

func completedUpdate(summary *Summary) ProgressUpdate {
	name := ""
	if summary.Playlist != nil {
		name = summary.Playlist.Name
	}
	return ProgressUpdate{
		Phase:   Complete,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Added %d tracks to playlist '%s'.", summary.Added, name),
		Data:    summary,
	}
}

func noTracksUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   Complete,
		Step:    1,
		Total:   1,
		Message: "No tracks were added to the playlist.",
		Failed:  true,
	}
}
