package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/desertthunder/rankify/internal/services"
	"github.com/desertthunder/rankify/internal/shared"
	"github.com/urfave/cli/v3"
)

// AuthLogin authorizes rankify with Spotify and caches the token.
//
// A cached token is reused unless --force is given, in which case it is discarded first and the browser flow runs again.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	cfg, err := r.resolveConfig(cmd)
	if err != nil {
		return err
	}

	creds := services.CredentialsFromConfig(cfg)
	if err := creds.Validate(); err != nil {
		return err
	}

	store := services.NewTokenStore(cfg.Credentials.Spotify.TokenPath)
	if cmd.Bool("force") {
		if err := store.Clear(); err != nil {
			return fmt.Errorf("failed to clear cached token: %w", err)
		}
		r.logger.Info("cleared cached token", "path", store.Path())
	}

	catalog, err := r.catalogProvider(cfg).Catalog(ctx, creds)
	if err != nil {
		return err
	}

	user, err := catalog.Identify(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}

	r.writePlain("%s Authorization successful\n", r.palette.OK("✓"))
	r.writePlain("%s Logged in as: %s | User ID: %s\n", r.palette.OK("✓"), user.DisplayName, user.ID)
	r.writePlain("%s Token cached at %s\n\n", r.palette.OK("✓"), store.Path())
	r.writePlain("%s\n", r.palette.Help("You can now use: rankify run"))

	return nil
}

// AuthStatus reports whether a token is cached and when its access token expires.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	cfg, err := r.resolveConfig(cmd)
	if err != nil {
		return err
	}

	store := services.NewTokenStore(cfg.Credentials.Spotify.TokenPath)
	token, err := store.Load()
	switch {
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, shared.ErrNotAuthenticated):
		return r.writePlain("%s Not authenticated (no token at %s)\n", r.palette.Err("✗"), store.Path())
	case err != nil:
		return err
	}

	r.writePlain("%s Token cached at %s\n", r.palette.OK("✓"), store.Path())
	if token.Expiry.IsZero() {
		return r.writePlain("Access token: no expiry\n")
	}
	if remaining := time.Until(token.Expiry); remaining > 0 {
		r.writePlain("Access token: expires in %s\n", remaining.Round(time.Second))
	} else {
		r.writePlain("Access token: %s\n", r.palette.Warn("expired"))
	}
	if token.RefreshToken != "" {
		r.writePlain("Refresh token: present\n")
	} else {
		r.writePlain("Refresh token: %s\n", r.palette.Warn("missing"))
	}
	return nil
}

// AuthLogout deletes the cached token.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	cfg, err := r.resolveConfig(cmd)
	if err != nil {
		return err
	}

	store := services.NewTokenStore(cfg.Credentials.Spotify.TokenPath)
	if err := store.Clear(); err != nil {
		return fmt.Errorf("failed to remove token: %w", err)
	}

	r.logger.Info("removed cached token", "path", store.Path())
	return r.writePlain("%s Logged out\n", r.palette.OK("✓"))
}
