// Package server parses server command flags and composes the encounter entrypoint.
package server

import (
	"context"
	"flag"
	"fmt"

	"github.com/louisbranch/wildgrid/internal/encounter/app"
	entrypoint "github.com/louisbranch/wildgrid/internal/platform/cmd"
)

// Config holds server command configuration.
type Config struct {
	HTTPAddr    string `env:"WILDGRID_HTTP_ADDR"    envDefault:":8080"`
	StoragePath string `env:"WILDGRID_STORAGE_PATH" envDefault:"wildgrid.db"`
	TokenSecret string `env:"WILDGRID_TOKEN_SECRET"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "encounter HTTP listen address")
	fs.StringVar(&cfg.StoragePath, "storage-path", cfg.StoragePath, "SQLite database path")
	fs.StringVar(&cfg.TokenSecret, "token-secret", cfg.TokenSecret, "trainer token signing secret")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run builds the encounter app and serves until the context ends.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceServer, func(context.Context) error {
		if err := app.Run(ctx, app.Config{
			HTTPAddr:    cfg.HTTPAddr,
			StoragePath: cfg.StoragePath,
			TokenSecret: []byte(cfg.TokenSecret),
		}); err != nil {
			return fmt.Errorf("serve encounter: %w", err)
		}
		return nil
	})
}
