package tasks

import (
	"context"
	"strings"

	"github.com/desertthunder/rankify/internal/ranking"
	"github.com/desertthunder/rankify/internal/services"
	"github.com/desertthunder/rankify/internal/shared"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultSearchLimit = 10
	MaxSearchLimit     = 50
	DefaultWorkers     = 4
	MaxWorkers         = 16
)

// ReasonNotFound is the [Outcome.Reason] for a search that returned no results.
const ReasonNotFound = "not found"

// Outcome is the result of resolving one ranked entry.
//
// Exactly one of TrackID or Reason is set.
type Outcome struct {
	Entry   ranking.Entry `json:"entry"`
	Query   string        `json:"query"`              // Normalized title
	TrackID string        `json:"track_id,omitempty"` // Catalog URI of the first-ranked result
	Reason  string        `json:"reason,omitempty"`
	Err     error         `json:"-"` // *shared.ResolutionError when the search itself failed
}

// Resolved reports whether the entry matched a track.
func (o Outcome) Resolved() bool {
	return o.TrackID != ""
}

// Resolver maps a ranked title to a catalog track identifier with a single search.
//
// The first result returned by the catalog wins; no secondary scoring is applied.
type Resolver struct {
	catalog services.Catalog
	artist  string
	limit   int
}

// NewResolver creates a resolver that scopes every search to artist. limit is clamped to [1, 50] and
// defaults to 10 when zero.
func NewResolver(catalog services.Catalog, artist string, limit int) *Resolver {
	if limit == 0 {
		limit = DefaultSearchLimit
	}
	return &Resolver{
		catalog: catalog,
		artist:  strings.TrimSpace(artist),
		limit:   max(1, min(limit, MaxSearchLimit)),
	}
}

// Query builds the catalog search string for an already normalized title.
func (r *Resolver) Query(normalized string) string {
	if r.artist == "" {
		return "track:" + normalized
	}
	return "track:" + normalized + " artist:" + r.artist
}

// Resolve normalizes entry.Title and searches for it. Failures are captured in the outcome, never returned.
func (r *Resolver) Resolve(ctx context.Context, entry ranking.Entry) Outcome {
	normalized := ranking.Normalize(entry.Title)
	outcome := Outcome{Entry: entry, Query: normalized}

	if err := ctx.Err(); err != nil {
		outcome.Reason = err.Error()
		outcome.Err = &shared.ResolutionError{Title: entry.Title, Query: r.Query(normalized), Err: err}
		return outcome
	}

	query := r.Query(normalized)
	tracks, err := r.catalog.Search(ctx, query, services.SearchTrack, r.limit)
	if err != nil {
		outcome.Reason = err.Error()
		outcome.Err = &shared.ResolutionError{Title: entry.Title, Query: query, Err: err}
		return outcome
	}

	if len(tracks) == 0 || tracks[0].URI == "" {
		outcome.Reason = ReasonNotFound
		return outcome
	}

	outcome.TrackID = tracks[0].URI
	return outcome
}

// ResolveAll resolves entries on at most workers goroutines and returns outcomes in input order.
//
// A progress update is sent as each outcome completes, so updates arrive in completion order.
func (r *Resolver) ResolveAll(ctx context.Context, entries []ranking.Entry, workers int, progress chan<- ProgressUpdate) []Outcome {
	if workers == 0 {
		workers = DefaultWorkers
	}
	workers = max(1, min(workers, MaxWorkers))

	outcomes := make([]Outcome, len(entries))
	total := len(entries)

	var g errgroup.Group
	g.SetLimit(workers)

	for i, entry := range entries {
		g.Go(func() error {
			outcome := r.Resolve(ctx, entry)
			outcomes[i] = outcome
			sendProgress(ctx, progress, outcomeUpdate(i+1, total, outcome))
			return nil
		})
	}

	_ = g.Wait()
	return outcomes
}

// ResolvedIDs returns the track identifiers of resolved outcomes, in order.
func ResolvedIDs(outcomes []Outcome) []string {
	ids := make([]string, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Resolved() {
			ids = append(ids, o.TrackID)
		}
	}
	return ids
}

// UnresolvedTitles returns the raw titles of unresolved outcomes, in order.
func UnresolvedTitles(outcomes []Outcome) []string {
	titles := []string{}
	for _, o := range outcomes {
		if !o.Resolved() {
			titles = append(titles, o.Entry.Title)
		}
	}
	return titles
}
