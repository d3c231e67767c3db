package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// MaxBatchSize is the Spotify limit on items per "add items to playlist" request.
const MaxBatchSize = 100

// Config represents the application configuration loaded from a TOML file and overlaid with the environment.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Playlist    PlaylistConfig    `toml:"playlist"`
	Input       InputConfig       `toml:"input"`
	Pipeline    PipelineConfig    `toml:"pipeline"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Log         LogConfig         `toml:"log"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
	TokenPath    string `toml:"token_path"`
}

// PlaylistConfig describes the playlist created by a run and the artist every search is scoped to.
type PlaylistConfig struct {
	Artist      string `toml:"artist"`
	Name        string `toml:"name"`
	Description string `toml:"description"`
	Visibility  string `toml:"visibility"` // public or private
}

// Public reports whether the playlist should be created as public.
func (p PlaylistConfig) Public() bool {
	return strings.EqualFold(p.Visibility, "public")
}

// InputConfig points at the ranking file.
type InputConfig struct {
	Path string `toml:"path"`
}

// PipelineConfig tunes resolution and population.
type PipelineConfig struct {
	BatchSize   int     `toml:"batch_size"`
	Workers     int     `toml:"workers"`
	SearchLimit int     `toml:"search_limit"`
	SearchRate  float64 `toml:"search_rate"` // requests per second
}

// DatabaseConfig contains database connection settings. An empty path disables run history.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains settings for the local OAuth callback server.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// LogConfig sets the log level (debug, info, warn, error).
type LogConfig struct {
	Level string `toml:"level"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the values of [DefaultConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ResolveConfig builds the effective configuration: defaults, then the TOML file at path (if it exists),
// then a .env file in the working directory, then the process environment.
func ResolveConfig(path string) (*Config, error) {
	config := DefaultConfig()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			loaded, err := LoadConfig(path)
			if err != nil {
				return nil, err
			}
			config = loaded
		}
	}

	// godotenv never overrides variables that are already set.
	_ = godotenv.Load()

	if err := config.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	return config, nil
}

// ApplyEnv overlays environment values onto the config. getenv is usually [os.Getenv].
//
// Credentials accept both the SPOTIFY_-prefixed names and the bare CLIENT_ID, CLIENT_SECRET & REDIRECT_URI.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	setString := func(dst *string, keys ...string) {
		for _, key := range keys {
			if v := strings.TrimSpace(getenv(key)); v != "" {
				*dst = v
				return
			}
		}
	}

	setString(&c.Credentials.Spotify.ClientID, "SPOTIFY_CLIENT_ID", "CLIENT_ID")
	setString(&c.Credentials.Spotify.ClientSecret, "SPOTIFY_CLIENT_SECRET", "CLIENT_SECRET")
	setString(&c.Credentials.Spotify.RedirectURI, "SPOTIFY_REDIRECT_URI", "REDIRECT_URI")
	setString(&c.Credentials.Spotify.TokenPath, "RANKIFY_TOKEN_PATH")
	setString(&c.Playlist.Artist, "RANKIFY_ARTIST")
	setString(&c.Playlist.Name, "RANKIFY_PLAYLIST_NAME")
	setString(&c.Playlist.Description, "RANKIFY_PLAYLIST_DESCRIPTION")
	setString(&c.Playlist.Visibility, "RANKIFY_PLAYLIST_VISIBILITY")
	setString(&c.Input.Path, "RANKIFY_INPUT")
	setString(&c.Database.Path, "RANKIFY_DATABASE")
	setString(&c.Log.Level, "LOG_LEVEL")

	ints := []struct {
		key string
		dst *int
	}{
		{"RANKIFY_BATCH_SIZE", &c.Pipeline.BatchSize},
		{"RANKIFY_WORKERS", &c.Pipeline.Workers},
		{"RANKIFY_SEARCH_LIMIT", &c.Pipeline.SearchLimit},
	}
	for _, field := range ints {
		v := strings.TrimSpace(getenv(field.key))
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return &ConfigurationError{Field: field.key, Reason: fmt.Sprintf("%q is not an integer", v)}
		}
		*field.dst = n
	}

	if v := strings.TrimSpace(getenv("RANKIFY_SEARCH_RATE")); v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return &ConfigurationError{Field: "RANKIFY_SEARCH_RATE", Reason: fmt.Sprintf("%q is not a number", v)}
		}
		c.Pipeline.SearchRate = rate
	}

	return nil
}

// Validate checks everything a run needs before any remote call is made.
//
// Missing credentials are reported together in a single [ConfigurationError].
func (c *Config) Validate() error {
	var missing []string
	if c.Credentials.Spotify.ClientID == "" {
		missing = append(missing, "CLIENT_ID")
	}
	if c.Credentials.Spotify.ClientSecret == "" {
		missing = append(missing, "CLIENT_SECRET")
	}
	if c.Credentials.Spotify.RedirectURI == "" {
		missing = append(missing, "REDIRECT_URI")
	}
	if len(missing) > 0 {
		return &ConfigurationError{Missing: missing}
	}

	if c.Pipeline.BatchSize < 1 || c.Pipeline.BatchSize > MaxBatchSize {
		return &ConfigurationError{
			Field:  "pipeline.batch_size",
			Reason: fmt.Sprintf("must be between 1 and %d, got %d", MaxBatchSize, c.Pipeline.BatchSize),
		}
	}

	switch strings.ToLower(c.Playlist.Visibility) {
	case "public", "private":
	default:
		return &ConfigurationError{
			Field:  "playlist.visibility",
			Reason: fmt.Sprintf("must be public or private, got %q", c.Playlist.Visibility),
		}
	}

	if c.Input.Path == "" {
		return &ConfigurationError{Field: "input.path", Reason: "must not be empty"}
	}

	return nil
}
