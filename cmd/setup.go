package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/rankify/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupDatabase initializes the history database and runs migrations.
//
// When the config file does not exist yet it is created from the template first.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if r.config == nil && configPath != "" {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			r.logger.Info("config file not found, creating from template", "path", configPath)
			if err := shared.CreateConfigFile(configPath); err != nil {
				r.logger.Warn("failed to create config file, using defaults", "error", err)
			}
		}
	}

	cfg, err := r.resolveConfig(cmd)
	if err != nil {
		return err
	}

	if cfg.Database.Path == "" {
		return fmt.Errorf("%w: database.path is empty", shared.ErrMissingConfig)
	}

	r.logger.Info("initializing database", "path", cfg.Database.Path)

	db, err := shared.OpenHistoryDatabase(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to set up database: %w", err)
	}
	defer closeDatabase(r, db)

	r.logger.Infof("setup complete for database: %v", cfg.Database.Path)
	return r.writePlain("%s Database ready at %s\n", r.palette.OK("✓"), cfg.Database.Path)
}

// SetupConfig writes the embedded example configuration to the --config path.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")
	if configPath == "" {
		return fmt.Errorf("%w: --config path is empty", shared.ErrInvalidArgument)
	}

	if err := shared.CreateConfigFile(configPath); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", configPath)
	r.writePlain("%s Config written to %s\n", r.palette.OK("✓"), configPath)
	return r.writePlainln("%s", r.palette.Help("Set credentials.spotify.client_id, client_secret and redirect_uri, then run: rankify auth"))
}
