// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/rankify/internal/services"
)

// FakeCatalog is an in-memory [services.Catalog] that records every call.
//
// Searches are answered from Results by exact query, then by Lookup; anything else returns no tracks.
type FakeCatalog struct {
	User         *services.User
	Results      map[string][]services.Track
	Lookup       func(query string) ([]services.Track, error)
	SearchErrors map[string]error // keyed by query
	SearchDelay  func(query string) time.Duration
	AppendErrors map[int]error // keyed by 1-based append call
	IdentifyErr  error
	CreateErr    error

	mu            sync.Mutex
	identifyCalls int
	searches      []string
	created       []services.Playlist
	appends       [][]string
}

// NewFakeCatalog returns a catalog logged in as "mollie".
func NewFakeCatalog() *FakeCatalog {
	return &FakeCatalog{
		User:    &services.User{ID: "mollie", DisplayName: "Mollie"},
		Results: map[string][]services.Track{},
	}
}

func (f *FakeCatalog) Identify(ctx context.Context) (*services.User, error) {
	f.mu.Lock()
	f.identifyCalls++
	f.mu.Unlock()

	if f.IdentifyErr != nil {
		return nil, f.IdentifyErr
	}
	return f.User, nil
}

func (f *FakeCatalog) CreatePlaylist(ctx context.Context, userID, name, description string, public bool) (*services.Playlist, error) {
	if f.CreateErr != nil {
		return nil, f.CreateErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	pl := services.Playlist{
		ID:          fmt.Sprintf("pl%d", len(f.created)+1),
		Name:        name,
		Description: description,
		Public:      public,
	}
	f.created = append(f.created, pl)
	return &pl, nil
}

func (f *FakeCatalog) Search(ctx context.Context, query string, kind services.SearchType, limit int) ([]services.Track, error) {
	f.mu.Lock()
	f.searches = append(f.searches, query)
	f.mu.Unlock()

	if f.SearchDelay != nil {
		select {
		case <-time.After(f.SearchDelay(query)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err, ok := f.SearchErrors[query]; ok {
		return nil, err
	}
	if tracks, ok := f.Results[query]; ok {
		return tracks, nil
	}
	if f.Lookup != nil {
		return f.Lookup(query)
	}
	return nil, nil
}

func (f *FakeCatalog) AppendItems(ctx context.Context, playlistID string, uris []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	call := len(f.appends) + 1
	f.appends = append(f.appends, append([]string(nil), uris...))
	return f.AppendErrors[call]
}

// AddTrack registers a single search result for query.
func (f *FakeCatalog) AddTrack(query, uri, title string) {
	f.Results[query] = append(f.Results[query], services.Track{ID: services.TrackIDFromURI(uri), URI: uri, Title: title})
}

func (f *FakeCatalog) IdentifyCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.identifyCalls
}

func (f *FakeCatalog) Searches() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.searches...)
}

func (f *FakeCatalog) Created() []services.Playlist {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]services.Playlist(nil), f.created...)
}

func (f *FakeCatalog) Appends() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]string(nil), f.appends...)
}

// Calls is the total number of catalog calls made.
func (f *FakeCatalog) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.identifyCalls + len(f.searches) + len(f.created) + len(f.appends)
}

// FakeProvider hands out a fixed catalog and counts requests.
type FakeProvider struct {
	Fake *FakeCatalog
	Err  error

	mu    sync.Mutex
	calls int
	creds []services.Credentials
}

func (p *FakeProvider) Catalog(ctx context.Context, creds services.Credentials) (services.Catalog, error) {
	p.mu.Lock()
	p.calls++
	p.creds = append(p.creds, creds)
	p.mu.Unlock()

	if p.Err != nil {
		return nil, p.Err
	}
	return p.Fake, nil
}

func (p *FakeProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// Credentials returns the credentials passed to each Catalog call.
func (p *FakeProvider) Credentials() []services.Credentials {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]services.Credentials(nil), p.creds...)
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// WriteRanking writes a ranking file with a header row and returns its path.
func WriteRanking(t *testing.T, titles ...string) string {
	t.Helper()
	content := "Rank\tSong\n"
	for i, title := range titles {
		content += fmt.Sprintf("%d\t%s\n", i+1, title)
	}

	path := filepath.Join(t.TempDir(), "ranking_list.txt")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write ranking file: %v", err)
	}
	return path
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
