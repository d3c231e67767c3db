// Spotify Web API implementation of [Catalog]
//
// Built on github.com/zmb3/spotify/v2; see https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/desertthunder/rankify/internal/shared"
	"github.com/zmb3/spotify/v2"
	"golang.org/x/time/rate"
)

const maxSearchLimit = 50

// SpotifyCatalog implements [Catalog] against the Spotify Web API.
//
// Every request waits on a client-side [rate.Limiter]; 429 responses are retried by the spotify client itself.
type SpotifyCatalog struct {
	client  *spotify.Client
	limiter *rate.Limiter
}

// NewSpotifyClient wraps an authenticated HTTP client (see [SpotifyProvider]) in a spotify client that
// retries rate-limited requests after the Retry-After delay.
func NewSpotifyClient(httpClient *http.Client, opts ...spotify.ClientOption) *spotify.Client {
	return spotify.New(httpClient, append([]spotify.ClientOption{spotify.WithRetry(true)}, opts...)...)
}

// NewSpotifyCatalog creates a catalog over client. A non-positive requestsPerSecond disables client-side limiting.
func NewSpotifyCatalog(client *spotify.Client, requestsPerSecond float64) *SpotifyCatalog {
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}

	return &SpotifyCatalog{
		client:  client,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Identify retrieves the current user's profile.
func (c *SpotifyCatalog) Identify(ctx context.Context) (*User, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	user, err := c.client.CurrentUser(ctx)
	if err != nil {
		return nil, wrapSpotifyError("get current user", err)
	}

	return &User{ID: user.ID, DisplayName: user.DisplayName}, nil
}

// CreatePlaylist creates a non-collaborative playlist for userID.
func (c *SpotifyCatalog) CreatePlaylist(ctx context.Context, userID, name, description string, public bool) (*Playlist, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	pl, err := c.client.CreatePlaylistForUser(ctx, userID, name, description, public, false)
	if err != nil {
		return nil, wrapSpotifyError("create playlist", err)
	}

	return &Playlist{
		ID:          pl.ID.String(),
		Name:        pl.Name,
		Description: pl.Description,
		Public:      pl.IsPublic,
		URL:         pl.ExternalURLs["spotify"],
	}, nil
}

// Search runs a track search. limit is clamped to [1, 50].
func (c *SpotifyCatalog) Search(ctx context.Context, query string, kind SearchType, limit int) ([]Track, error) {
	if kind != SearchTrack {
		return nil, fmt.Errorf("%w: unsupported search type %q", shared.ErrInvalidArgument, kind)
	}
	limit = max(1, min(limit, maxSearchLimit))

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	result, err := c.client.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(limit))
	if err != nil {
		return nil, wrapSpotifyError("search", err)
	}

	if result.Tracks == nil {
		return nil, nil
	}

	tracks := make([]Track, 0, len(result.Tracks.Tracks))
	for _, t := range result.Tracks.Tracks {
		track := Track{
			ID:       t.ID.String(),
			URI:      string(t.URI),
			Title:    t.Name,
			Album:    t.Album.Name,
			Duration: int(t.Duration) / 1000,
		}
		if len(t.Artists) > 0 {
			track.Artist = t.Artists[0].Name
		}
		tracks = append(tracks, track)
	}

	return tracks, nil
}

// AppendItems adds tracks to the end of a playlist in a single request.
func (c *SpotifyCatalog) AppendItems(ctx context.Context, playlistID string, uris []string) error {
	if len(uris) == 0 {
		return nil
	}
	if len(uris) > MaxAppendItems {
		return fmt.Errorf("%w: %d items exceeds the limit of %d per request", shared.ErrInvalidInput, len(uris), MaxAppendItems)
	}

	ids := make([]spotify.ID, len(uris))
	for i, uri := range uris {
		ids[i] = spotify.ID(TrackIDFromURI(uri))
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	if _, err := c.client.AddTracksToPlaylist(ctx, spotify.ID(playlistID), ids...); err != nil {
		return wrapSpotifyError("add tracks", err)
	}
	return nil
}

// wrapSpotifyError maps API failures onto the shared sentinel errors.
func wrapSpotifyError(op string, err error) error {
	var apiErr spotify.Error
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
		return fmt.Errorf("%w: %s: %v", shared.ErrNotAuthenticated, op, err)
	}
	return fmt.Errorf("%w: %s: %v", shared.ErrAPIRequest, op, err)
}
