package services

import (
	"context"
	"strings"

	"github.com/desertthunder/rankify/internal/shared"
)

// MaxAppendItems is the largest number of items one [Catalog.AppendItems] call accepts.
const MaxAppendItems = shared.MaxBatchSize

// SearchType selects the kind of catalog object a search returns.
type SearchType string

const (
	SearchTrack SearchType = "track"
)

// Catalog is the capability surface of a music streaming service used to build a playlist.
type Catalog interface {
	// Identify returns the authenticated user.
	Identify(ctx context.Context) (*User, error)

	// CreatePlaylist creates an empty playlist owned by userID.
	CreatePlaylist(ctx context.Context, userID, name, description string, public bool) (*Playlist, error)

	// Search returns up to limit results in the service's relevance order.
	Search(ctx context.Context, query string, kind SearchType, limit int) ([]Track, error)

	// AppendItems adds at most [MaxAppendItems] track URIs to the end of a playlist.
	AppendItems(ctx context.Context, playlistID string, uris []string) error
}

// User is the authenticated account.
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// Playlist represents a playlist created on the service.
type Playlist struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Public      bool   `json:"public"`
	URL         string `json:"url,omitempty"`
}

// Track represents a search result.
type Track struct {
	ID       string `json:"id"`
	URI      string `json:"uri"`
	Title    string `json:"title"`
	Artist   string `json:"artist,omitempty"`
	Album    string `json:"album,omitempty"`
	Duration int    `json:"duration,omitempty"` // Duration in seconds
}

const trackURIPrefix = "spotify:track:"

// TrackIDFromURI extracts the bare ID from a spotify:track: URI. Bare IDs are returned unchanged.
func TrackIDFromURI(uri string) string {
	return strings.TrimPrefix(uri, trackURIPrefix)
}
