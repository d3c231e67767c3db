package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/rankify/internal/services"
	"github.com/desertthunder/rankify/internal/shared"
	tu "github.com/desertthunder/rankify/internal/testing"
	"golang.org/x/oauth2"
)

type harness struct {
	runner   *Runner
	config   *shared.Config
	fake     *tu.FakeCatalog
	provider *tu.FakeProvider
	out      *bytes.Buffer
	errOut   *bytes.Buffer
}

func newHarness(t *testing.T, titles ...string) *harness {
	t.Helper()
	dir := t.TempDir()

	cfg := shared.DefaultConfig()
	cfg.Credentials.Spotify.ClientID = "id"
	cfg.Credentials.Spotify.ClientSecret = "secret"
	cfg.Credentials.Spotify.RedirectURI = "http://127.0.0.1:8888/callback"
	cfg.Credentials.Spotify.TokenPath = filepath.Join(dir, "token.toml")
	cfg.Database.Path = ""
	cfg.Input.Path = tu.WriteRanking(t, titles...)
	cfg.Log.Level = "error"

	fake := tu.NewFakeCatalog()
	provider := &tu.FakeProvider{Fake: fake}
	h := &harness{
		config:   cfg,
		fake:     fake,
		provider: provider,
		out:      &bytes.Buffer{},
		errOut:   &bytes.Buffer{},
	}
	h.runner = NewRunner(RunnerOpts{
		Config:    cfg,
		Provider:  provider,
		Logger:    shared.NewLogger(&strings.Builder{}),
		Output:    h.out,
		ErrOutput: h.errOut,
	})
	return h
}

func (h *harness) run(args ...string) error {
	return newApp(h.runner).Run(context.Background(), append([]string{"rankify"}, args...))
}

func TestRunCommand(t *testing.T) {
	t.Run("streams progress and prints the summary", func(t *testing.T) {
		h := newHarness(t, "Cardigan", "Nope")
		h.fake.AddTrack("track:Cardigan artist:Taylor Swift", "spotify:track:cardigan", "Cardigan")

		if err := h.run("run"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		out := h.out.String()
		for _, want := range []string{
			"✓ Logged in as: Mollie | User ID: mollie",
			"✓ Playlist 'Taylor Swift Ranking' created with ID: pl1",
			"✓ [1/2] Added: Cardigan",
			"✓ Added batch 1 (1 tracks)",
			"Requested: 2",
			"Added: 1",
			"  - Nope",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("expected stdout to contain %q, got:\n%s", want, out)
			}
		}
		if !strings.Contains(h.errOut.String(), "✗ [2/2] Song not found: Nope") {
			t.Errorf("expected miss on stderr, got %q", h.errOut.String())
		}

		appends := h.fake.Appends()
		if len(appends) != 1 || len(appends[0]) != 1 || appends[0][0] != "spotify:track:cardigan" {
			t.Errorf("unexpected appends: %v", appends)
		}
	})

	t.Run("flags override configuration", func(t *testing.T) {
		h := newHarness(t, "One", "Two", "Three")
		for _, title := range []string{"One", "Two", "Three"} {
			h.fake.AddTrack("track:"+title+" artist:Someone", "spotify:track:"+strings.ToLower(title), title)
		}

		err := h.run("run", "--name", "Custom", "--description", "desc", "--artist", "Someone", "--public", "--batch-size", "1", "--workers", "2")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		created := h.fake.Created()
		if len(created) != 1 {
			t.Fatalf("expected 1 playlist, got %d", len(created))
		}
		if created[0].Name != "Custom" || created[0].Description != "desc" || !created[0].Public {
			t.Errorf("unexpected playlist: %+v", created[0])
		}
		if n := len(h.fake.Appends()); n != 3 {
			t.Errorf("expected 3 single-track batches, got %d", n)
		}
		if creds := h.provider.Credentials(); len(creds) != 1 || creds[0].ClientID != "id" {
			t.Errorf("unexpected credentials: %+v", creds)
		}
		if h.config.Playlist.Name != "Taylor Swift Ranking" {
			t.Error("flags must not mutate the runner's base config")
		}
	})

	t.Run("json format keeps stdout machine-readable", func(t *testing.T) {
		h := newHarness(t, "August")
		h.fake.AddTrack("track:August artist:Taylor Swift", "spotify:track:august", "August")

		if err := h.run("run", "--format", "json"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var summary map[string]any
		if err := json.Unmarshal(h.out.Bytes(), &summary); err != nil {
			t.Fatalf("stdout is not JSON: %v\n%s", err, h.out.String())
		}
		if summary["added"] != float64(1) {
			t.Errorf("expected added=1, got %v", summary["added"])
		}
		for _, key := range []string{"unresolved_titles", "failed_batches"} {
			if list, ok := summary[key].([]any); !ok || len(list) != 0 {
				t.Errorf("expected %s to be an empty list, got %#v", key, summary[key])
			}
		}
		if !strings.Contains(h.errOut.String(), "✓ Logged in as") {
			t.Errorf("expected progress on stderr, got %q", h.errOut.String())
		}
	})

	t.Run("dry run creates nothing", func(t *testing.T) {
		h := newHarness(t, "August")
		h.fake.AddTrack("track:August artist:Taylor Swift", "spotify:track:august", "August")

		if err := h.run("run", "--dry-run"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(h.fake.Created()) != 0 || len(h.fake.Appends()) != 0 {
			t.Error("dry run must not create or modify playlists")
		}
		if !strings.Contains(h.out.String(), "dry run") {
			t.Errorf("expected dry run notice, got %q", h.out.String())
		}
	})

	t.Run("missing credentials fail before contacting the provider", func(t *testing.T) {
		h := newHarness(t, "August")
		h.config.Credentials.Spotify.ClientSecret = ""
		h.config.Database.Path = filepath.Join(t.TempDir(), "history.db")

		err := h.run("run")
		var cfgErr *shared.ConfigurationError
		if !errors.As(err, &cfgErr) {
			t.Fatalf("expected ConfigurationError, got %v", err)
		}
		if h.provider.Calls() != 0 || h.fake.Calls() != 0 {
			t.Error("expected no provider or catalog calls")
		}
		if _, err := os.Stat(h.config.Database.Path); !os.IsNotExist(err) {
			t.Error("expected no history database for an invalid configuration")
		}
	})

	t.Run("interrupted run prints the partial summary and fails", func(t *testing.T) {
		h := newHarness(t, "August", "Nope", "Later")
		h.config.Pipeline.Workers = 1
		h.config.Database.Path = filepath.Join(t.TempDir(), "history.db")
		h.fake.AddTrack("track:August artist:Taylor Swift", "spotify:track:august", "August")

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		h.fake.Lookup = func(string) ([]services.Track, error) {
			cancel()
			return nil, nil
		}

		err := newApp(h.runner).Run(ctx, []string{"rankify", "run"})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if !strings.Contains(h.out.String(), "Requested: 3") {
			t.Errorf("expected partial summary, got:\n%s", h.out.String())
		}
		if len(h.fake.Appends()) != 0 {
			t.Errorf("expected no appends after cancellation, got %v", h.fake.Appends())
		}

		h.out.Reset()
		if err := h.run("history", "--json"); err != nil {
			t.Fatalf("history failed: %v", err)
		}
		var runs []runView
		if err := json.Unmarshal(h.out.Bytes(), &runs); err != nil {
			t.Fatalf("history output is not JSON: %v", err)
		}
		if len(runs) != 0 {
			t.Errorf("expected interrupted run to be left out of history, got %d", len(runs))
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		h := newHarness(t, "August")
		if err := h.run("run", "--format", "xml"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
		if h.provider.Calls() != 0 {
			t.Error("expected no provider calls")
		}
	})

	t.Run("records history", func(t *testing.T) {
		h := newHarness(t, "Cardigan", "Nope")
		h.config.Database.Path = filepath.Join(t.TempDir(), "history.db")
		h.fake.AddTrack("track:Cardigan artist:Taylor Swift", "spotify:track:cardigan", "Cardigan")

		if err := h.run("run"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		h.out.Reset()
		if err := h.run("history", "--json"); err != nil {
			t.Fatalf("history failed: %v", err)
		}

		var runs []runView
		if err := json.Unmarshal(h.out.Bytes(), &runs); err != nil {
			t.Fatalf("history output is not JSON: %v", err)
		}
		if len(runs) != 1 {
			t.Fatalf("expected 1 run, got %d", len(runs))
		}
		if runs[0].PlaylistID != "pl1" || runs[0].Requested != 2 || runs[0].Added != 1 {
			t.Errorf("unexpected run: %+v", runs[0])
		}

		h.out.Reset()
		if err := h.run("history", "--id", runs[0].ID); err != nil {
			t.Fatalf("history --id failed: %v", err)
		}
		out := h.out.String()
		if !strings.Contains(out, "✓ 1. Cardigan -> spotify:track:cardigan") {
			t.Errorf("expected resolved item, got:\n%s", out)
		}
		if !strings.Contains(out, "✗ 2. Nope (not found)") {
			t.Errorf("expected unresolved item, got:\n%s", out)
		}
	})

	t.Run("no-history skips recording", func(t *testing.T) {
		h := newHarness(t, "Cardigan")
		h.config.Database.Path = filepath.Join(t.TempDir(), "history.db")

		if err := h.run("run", "--no-history"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := os.Stat(h.config.Database.Path); !os.IsNotExist(err) {
			t.Error("expected no database file to be created")
		}
	})
}

func TestHistoryCommand(t *testing.T) {
	t.Run("empty history", func(t *testing.T) {
		h := newHarness(t)
		h.config.Database.Path = filepath.Join(t.TempDir(), "history.db")

		if err := h.run("history"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(h.out.String(), "No runs recorded") {
			t.Errorf("unexpected output: %q", h.out.String())
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		h := newHarness(t)
		h.config.Database.Path = filepath.Join(t.TempDir(), "history.db")

		if err := h.run("history", "--id", "missing"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("disabled history", func(t *testing.T) {
		h := newHarness(t)
		if err := h.run("history"); !errors.Is(err, shared.ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig, got %v", err)
		}
	})
}

func TestParseCommand(t *testing.T) {
	t.Run("text preview", func(t *testing.T) {
		h := newHarness(t, "Cardigan (feat. Bon Iver)", "Love Story")

		if err := h.run("parse"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		out := h.out.String()
		if !strings.Contains(out, "track:Cardigan artist:Taylor Swift") {
			t.Errorf("expected normalized query, got:\n%s", out)
		}
		if !strings.Contains(out, "2 entries") {
			t.Errorf("expected entry count, got:\n%s", out)
		}
		if h.provider.Calls() != 0 {
			t.Error("parse must not contact the provider")
		}
	})

	t.Run("json preview with artist override", func(t *testing.T) {
		h := newHarness(t, "Cardigan")

		if err := h.run("parse", "--json", "--artist", "Someone"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var entries []struct {
			Line  int    `json:"line"`
			Rank  string `json:"rank"`
			Title string `json:"title"`
			Query string `json:"query"`
		}
		if err := json.Unmarshal(h.out.Bytes(), &entries); err != nil {
			t.Fatalf("output is not JSON: %v", err)
		}
		if len(entries) != 1 || entries[0].Query != "track:Cardigan artist:Someone" || entries[0].Line != 2 {
			t.Errorf("unexpected entries: %+v", entries)
		}
	})

	t.Run("missing input", func(t *testing.T) {
		h := newHarness(t)
		err := h.run("parse", "--input", filepath.Join(t.TempDir(), "missing.txt"))

		var notFound *shared.SourceNotFoundError
		if !errors.As(err, &notFound) {
			t.Errorf("expected SourceNotFoundError, got %v", err)
		}
	})
}

func TestAuthCommand(t *testing.T) {
	t.Run("login reports identity", func(t *testing.T) {
		h := newHarness(t)

		if err := h.run("auth"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(h.out.String(), "Logged in as: Mollie | User ID: mollie") {
			t.Errorf("unexpected output: %q", h.out.String())
		}
		if h.provider.Calls() != 1 {
			t.Errorf("expected 1 provider call, got %d", h.provider.Calls())
		}
	})

	t.Run("login requires credentials", func(t *testing.T) {
		h := newHarness(t)
		h.config.Credentials.Spotify.ClientID = ""

		if err := h.run("auth"); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
		if h.provider.Calls() != 0 {
			t.Error("expected no provider calls")
		}
	})

	t.Run("force clears the cached token", func(t *testing.T) {
		h := newHarness(t)
		store := services.NewTokenStore(h.config.Credentials.Spotify.TokenPath)
		if err := store.Save(&oauth2.Token{AccessToken: "old"}); err != nil {
			t.Fatalf("failed to save token: %v", err)
		}

		if err := h.run("auth", "--force"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := os.Stat(store.Path()); !os.IsNotExist(err) {
			t.Error("expected cached token to be removed")
		}
	})

	t.Run("status and logout", func(t *testing.T) {
		h := newHarness(t)

		if err := h.run("auth", "status"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(h.out.String(), "Not authenticated") {
			t.Errorf("expected not authenticated, got %q", h.out.String())
		}

		store := services.NewTokenStore(h.config.Credentials.Spotify.TokenPath)
		token := &oauth2.Token{AccessToken: "a", RefreshToken: "r", Expiry: time.Now().Add(time.Hour)}
		if err := store.Save(token); err != nil {
			t.Fatalf("failed to save token: %v", err)
		}

		h.out.Reset()
		if err := h.run("auth", "status"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out := h.out.String()
		if !strings.Contains(out, "Token cached") || !strings.Contains(out, "expires in") || !strings.Contains(out, "Refresh token: present") {
			t.Errorf("unexpected status output: %q", out)
		}

		if err := h.run("auth", "logout"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := os.Stat(store.Path()); !os.IsNotExist(err) {
			t.Error("expected token file to be removed")
		}
	})
}

func TestSetupCommand(t *testing.T) {
	t.Run("config", func(t *testing.T) {
		h := newHarness(t)
		path := filepath.Join(t.TempDir(), "config.toml")

		if err := h.run("--config", path, "setup", "config"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		tu.AssertFileExists(t, path)
		if !strings.Contains(tu.MustReadFile(t, path), "[credentials.spotify]") {
			t.Error("expected example config content")
		}

		if err := h.run("--config", path, "setup", "config"); err == nil {
			t.Error("expected error when config already exists")
		}
	})

	t.Run("database", func(t *testing.T) {
		h := newHarness(t)
		h.config.Database.Path = filepath.Join(t.TempDir(), "setup.db")

		if err := h.run("setup", "database"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		tu.AssertFileExists(t, h.config.Database.Path)
		if !strings.Contains(h.out.String(), "Database ready") {
			t.Errorf("unexpected output: %q", h.out.String())
		}
	})

	t.Run("database creates a missing config file", func(t *testing.T) {
		wd := tu.MustGetwd(t)
		tu.MustChdir(t, t.TempDir())
		t.Cleanup(func() { tu.MustChdir(t, wd) })

		out := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Logger: shared.NewLogger(&strings.Builder{}), Output: out, ErrOutput: &bytes.Buffer{}})
		if err := newApp(runner).Run(context.Background(), []string{"rankify", "setup", "database"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		tu.AssertFileExists(t, "config.toml")
		tu.AssertFileExists(t, "rankify.db")
	})

	t.Run("database without a path", func(t *testing.T) {
		h := newHarness(t)
		if err := h.run("setup", "database"); !errors.Is(err, shared.ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig, got %v", err)
		}
	})
}
