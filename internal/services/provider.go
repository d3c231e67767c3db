package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/rankify/internal/shared"
	"golang.org/x/oauth2"
)

// Authorizer obtains a fresh token interactively, e.g. through a browser and a local callback server.
type Authorizer func(ctx context.Context, config *oauth2.Config) (*oauth2.Token, error)

// SpotifyProvider supplies authenticated Spotify catalogs.
//
// It reuses the token cached in its [TokenStore], falls back to the [Authorizer] when there is none,
// and persists every refreshed token.
type SpotifyProvider struct {
	tokens     *TokenStore
	authorize  Authorizer
	searchRate float64
	logger     *log.Logger
}

// NewSpotifyProvider creates a provider. authorize may be nil for non-interactive use.
func NewSpotifyProvider(tokens *TokenStore, authorize Authorizer, searchRate float64, logger *log.Logger) *SpotifyProvider {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &SpotifyProvider{
		tokens:     tokens,
		authorize:  authorize,
		searchRate: searchRate,
		logger:     logger,
	}
}

// Catalog validates creds and returns a ready-to-use [Catalog].
//
// Missing credentials fail with a [shared.ConfigurationError] before anything touches the network.
func (p *SpotifyProvider) Catalog(ctx context.Context, creds Credentials) (Catalog, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	config := creds.OAuthConfig()
	token, err := p.Token(ctx, config)
	if err != nil {
		return nil, err
	}

	source := &persistingTokenSource{
		base:   config.TokenSource(context.WithoutCancel(ctx), token),
		store:  p.tokens,
		last:   token.AccessToken,
		logger: p.logger,
	}

	httpClient := oauth2.NewClient(context.WithoutCancel(ctx), source)
	return NewSpotifyCatalog(NewSpotifyClient(httpClient), p.searchRate), nil
}

// Token returns the cached token, or runs the authorizer and caches its result.
func (p *SpotifyProvider) Token(ctx context.Context, config *oauth2.Config) (*oauth2.Token, error) {
	token, err := p.tokens.Load()
	if err == nil {
		return token, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		p.logger.Warn("ignoring unreadable token cache", "path", p.tokens.Path(), "error", err)
	}

	if p.authorize == nil {
		return nil, fmt.Errorf("%w: no cached token at %s, run `rankify auth` first", shared.ErrNotAuthenticated, p.tokens.Path())
	}

	token, err = p.authorize(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}

	if err := p.tokens.Save(token); err != nil {
		p.logger.Warn("failed to cache token", "path", p.tokens.Path(), "error", err)
	}
	return token, nil
}

// persistingTokenSource saves each newly issued access token to the store.
type persistingTokenSource struct {
	base   oauth2.TokenSource
	store  *TokenStore
	logger *log.Logger

	mu   sync.Mutex
	last string
}

func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	token, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	changed := token.AccessToken != s.last
	s.last = token.AccessToken
	s.mu.Unlock()

	if changed && s.store != nil {
		if err := s.store.Save(token); err != nil {
			s.logger.Warn("failed to persist refreshed token", "error", err)
		} else {
			s.logger.Debug("persisted refreshed token", "expiry", token.Expiry)
		}
	}
	return token, nil
}

type storedToken struct {
	AccessToken  string    `toml:"access_token"`
	TokenType    string    `toml:"token_type"`
	RefreshToken string    `toml:"refresh_token"`
	Expiry       time.Time `toml:"expiry"`
}

// TokenStore caches an OAuth token in a TOML file readable only by the owner.
type TokenStore struct {
	path string
}

// NewTokenStore creates a store backed by path.
func NewTokenStore(path string) *TokenStore {
	return &TokenStore{path: path}
}

// Path returns the backing file path.
func (s *TokenStore) Path() string {
	return s.path
}

// Load reads the cached token. A missing file is reported with an error wrapping [fs.ErrNotExist].
func (s *TokenStore) Load() (*oauth2.Token, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	var stored storedToken
	if err := toml.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("failed to parse token file: %w", err)
	}

	if stored.AccessToken == "" && stored.RefreshToken == "" {
		return nil, fmt.Errorf("%w: token file %s is empty", shared.ErrNotAuthenticated, s.path)
	}

	return &oauth2.Token{
		AccessToken:  stored.AccessToken,
		TokenType:    stored.TokenType,
		RefreshToken: stored.RefreshToken,
		Expiry:       stored.Expiry,
	}, nil
}

// Save writes token to the store, creating parent directories as needed.
func (s *TokenStore) Save(token *oauth2.Token) error {
	if token == nil {
		return fmt.Errorf("%w: nil token", shared.ErrInvalidArgument)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create token directory: %w", err)
		}
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open token file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(storedToken{
		AccessToken:  token.AccessToken,
		TokenType:    token.TokenType,
		RefreshToken: token.RefreshToken,
		Expiry:       token.Expiry,
	}); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

// Clear removes the cached token. Removing a missing file is not an error.
func (s *TokenStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove token file: %w", err)
	}
	return nil
}
