package tasks

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/desertthunder/rankify/internal/ranking"
	"github.com/desertthunder/rankify/internal/services"
	"github.com/desertthunder/rankify/internal/shared"
	tu "github.com/desertthunder/rankify/internal/testing"
)

func TestResolver(t *testing.T) {
	ctx := context.Background()

	t.Run("Query", func(t *testing.T) {
		tests := []struct {
			name   string
			artist string
			want   string
		}{
			{"With Artist", "Taylor Swift", "track:Cardigan artist:Taylor Swift"},
			{"Without Artist", "", "track:Cardigan"},
			{"Blank Artist", "   ", "track:Cardigan"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				r := NewResolver(tu.NewFakeCatalog(), tt.artist, 10)
				if got := r.Query("Cardigan"); got != tt.want {
					t.Errorf("expected %q, got %q", tt.want, got)
				}
			})
		}
	})

	t.Run("Limit Clamping", func(t *testing.T) {
		tests := []struct{ in, want int }{
			{0, DefaultSearchLimit},
			{-3, 1},
			{1, 1},
			{25, 25},
			{500, MaxSearchLimit},
		}
		for _, tt := range tests {
			if got := NewResolver(nil, "", tt.in).limit; got != tt.want {
				t.Errorf("NewResolver limit %d: expected %d, got %d", tt.in, tt.want, got)
			}
		}
	})

	t.Run("First Result Wins", func(t *testing.T) {
		fake := tu.NewFakeCatalog()
		fake.AddTrack("track:Cardigan artist:Taylor Swift", "spotify:track:first", "Cardigan")
		fake.AddTrack("track:Cardigan artist:Taylor Swift", "spotify:track:second", "Cardigan (Live)")

		outcome := NewResolver(fake, "Taylor Swift", 10).Resolve(ctx, ranking.Entry{Line: 2, Rank: "1", Title: "Cardigan (feat. Bon Iver)"})
		if !outcome.Resolved() {
			t.Fatalf("expected resolved outcome, got %+v", outcome)
		}
		if outcome.TrackID != "spotify:track:first" {
			t.Errorf("expected first result, got %q", outcome.TrackID)
		}
		if outcome.Query != "Cardigan" {
			t.Errorf("expected normalized query, got %q", outcome.Query)
		}
	})

	t.Run("Not Found", func(t *testing.T) {
		outcome := NewResolver(tu.NewFakeCatalog(), "Taylor Swift", 10).Resolve(ctx, ranking.Entry{Title: "Nope"})
		if outcome.Resolved() {
			t.Fatal("expected unresolved outcome")
		}
		if outcome.Reason != ReasonNotFound {
			t.Errorf("expected reason %q, got %q", ReasonNotFound, outcome.Reason)
		}
		if outcome.Err != nil {
			t.Errorf("expected no error, got %v", outcome.Err)
		}
	})

	t.Run("Search Error Is Captured", func(t *testing.T) {
		fake := tu.NewFakeCatalog()
		fake.SearchErrors = map[string]error{"track:Boom artist:Taylor Swift": errors.New("rate limited")}

		outcome := NewResolver(fake, "Taylor Swift", 10).Resolve(ctx, ranking.Entry{Title: "Boom"})
		if outcome.Resolved() {
			t.Fatal("expected unresolved outcome")
		}
		if outcome.Reason != "rate limited" {
			t.Errorf("expected error text as reason, got %q", outcome.Reason)
		}

		var resErr *shared.ResolutionError
		if !errors.As(outcome.Err, &resErr) {
			t.Fatalf("expected ResolutionError, got %v", outcome.Err)
		}
		if resErr.Title != "Boom" || resErr.Query != "track:Boom artist:Taylor Swift" {
			t.Errorf("unexpected resolution error %+v", resErr)
		}
	})

	t.Run("Canceled Context Issues No Call", func(t *testing.T) {
		fake := tu.NewFakeCatalog()
		canceled, cancel := context.WithCancel(ctx)
		cancel()

		outcome := NewResolver(fake, "Taylor Swift", 10).Resolve(canceled, ranking.Entry{Title: "August"})
		if outcome.Resolved() {
			t.Fatal("expected unresolved outcome")
		}
		if !errors.Is(outcome.Err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", outcome.Err)
		}
		if len(fake.Searches()) != 0 {
			t.Errorf("expected no search, got %d", len(fake.Searches()))
		}
	})
}

func TestResolveAll(t *testing.T) {
	ctx := context.Background()

	t.Run("Preserves Input Order", func(t *testing.T) {
		const n = 40
		fake := tu.NewFakeCatalog()
		fake.Lookup = func(query string) ([]services.Track, error) {
			var i int
			fmt.Sscanf(query, "track:Song %d", &i)
			return []services.Track{{URI: fmt.Sprintf("spotify:track:%d", i)}}, nil
		}
		// Earlier entries finish last.
		fake.SearchDelay = func(query string) time.Duration {
			var i int
			fmt.Sscanf(query, "track:Song %d", &i)
			return time.Duration(n-i) * time.Millisecond
		}

		entries := make([]ranking.Entry, n)
		for i := range entries {
			entries[i] = ranking.Entry{Line: i + 1, Rank: fmt.Sprint(i + 1), Title: fmt.Sprintf("Song %d", i)}
		}

		for _, workers := range []int{1, 4, 16} {
			outcomes := NewResolver(fake, "", 10).ResolveAll(ctx, entries, workers, nil)
			if len(outcomes) != n {
				t.Fatalf("expected %d outcomes, got %d", n, len(outcomes))
			}
			for i, o := range outcomes {
				if o.Entry.Title != entries[i].Title {
					t.Fatalf("workers=%d: outcome %d is for %q", workers, i, o.Entry.Title)
				}
				if want := fmt.Sprintf("spotify:track:%d", i); o.TrackID != want {
					t.Fatalf("workers=%d: outcome %d has %q, want %q", workers, i, o.TrackID, want)
				}
			}
		}
	})

	t.Run("One Outcome Per Entry With Progress", func(t *testing.T) {
		fake := tu.NewFakeCatalog()
		fake.AddTrack("track:August", "spotify:track:a", "August")

		entries := []ranking.Entry{{Title: "August"}, {Title: "Missing"}}
		progress := make(chan ProgressUpdate, len(entries))

		outcomes := NewResolver(fake, "", 10).ResolveAll(ctx, entries, 2, progress)
		close(progress)

		if len(outcomes) != 2 || !outcomes[0].Resolved() || outcomes[1].Resolved() {
			t.Fatalf("unexpected outcomes %+v", outcomes)
		}

		failed := 0
		count := 0
		for u := range progress {
			count++
			if u.Phase != ResolveTracks {
				t.Errorf("expected resolve phase, got %v", u.Phase)
			}
			if u.Failed {
				failed++
			}
		}
		if count != 2 || failed != 1 {
			t.Errorf("expected 2 updates with 1 failure, got %d and %d", count, failed)
		}
	})

	t.Run("Empty", func(t *testing.T) {
		outcomes := NewResolver(tu.NewFakeCatalog(), "", 10).ResolveAll(ctx, nil, 4, nil)
		if len(outcomes) != 0 {
			t.Errorf("expected no outcomes, got %d", len(outcomes))
		}
	})
}

func TestOutcomeHelpers(t *testing.T) {
	outcomes := []Outcome{
		{Entry: ranking.Entry{Title: "A"}, TrackID: "spotify:track:a"},
		{Entry: ranking.Entry{Title: "B"}, Reason: ReasonNotFound},
		{Entry: ranking.Entry{Title: "C"}, TrackID: "spotify:track:c"},
	}

	ids := ResolvedIDs(outcomes)
	if len(ids) != 2 || ids[0] != "spotify:track:a" || ids[1] != "spotify:track:c" {
		t.Errorf("unexpected ids %v", ids)
	}

	titles := UnresolvedTitles(outcomes)
	if len(titles) != 1 || titles[0] != "B" {
		t.Errorf("unexpected titles %v", titles)
	}
}
