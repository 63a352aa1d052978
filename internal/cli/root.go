// Package cli wires the catalog's commands: the web server, the schema
// migration and the catalog export.
package cli

import (
	"context"
	"fmt"
	"os"

	"itemcatalog/internal/auth"
	"itemcatalog/internal/config"
	"itemcatalog/internal/database"
	"itemcatalog/internal/logger"
	"itemcatalog/internal/session"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
)

// NewRootCmd builds the catalog command tree. Every subcommand loads the
// configuration named by --config before it runs.
func NewRootCmd() *cobra.Command {
	var configFile string
	cfg := &config.Config{}

	root := &cobra.Command{
		Use:           "itemcatalog",
		Short:         "Item catalog web application",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(configFile)
			if err != nil {
				return err
			}
			*cfg = *loaded

			logger.Initialize(logger.ParseLevel(cfg.LogLevel), cfg.IsDevelopment())
			logger.SetLevel(logger.ParseLevel(cfg.LogLevel))
			return nil
		},
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: ./catalog.yaml)")

	root.AddCommand(newServeCmd(cfg))
	root.AddCommand(newMigrateCmd(cfg))
	root.AddCommand(newExportCmd(cfg))
	root.AddCommand(newArchiveCmd(cfg))
	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// openDatabase connects to the configured database and brings its schema up
// to date.
func openDatabase(ctx context.Context, cfg *config.Config) (*sqlx.DB, error) {
	db, err := database.Initialize(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	if err := database.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// newSessionStore builds the configured session store. The returned func
// releases its connections.
func newSessionStore(ctx context.Context, cfg *config.Config) (session.Store, func() error, error) {
	switch cfg.SessionBackend {
	case "redis":
		client, err := session.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Using Redis session store", "addr", cfg.RedisAddr)
		return session.NewRedisStore(client, cfg.SessionDuration, cfg.CookieSecure), client.Close, nil
	default:
		store, err := session.NewCookieStore(cfg.SecretKey, cfg.SessionDuration, cfg.CookieSecure)
		if err != nil {
			return nil, nil, err
		}
		return store, func() error { return nil }, nil
	}
}

// newProvider configures Google sign-in. Explicit client credentials win
// over the client secrets file.
func newProvider(cfg *config.Config) (*auth.Google, error) {
	clientID, clientSecret := cfg.GoogleClientID, cfg.GoogleClientSecret

	if clientID == "" {
		var err error
		clientID, clientSecret, err = auth.LoadClientSecrets(cfg.GoogleClientSecretsFile)
		if err != nil {
			return nil, fmt.Errorf("google sign-in is not configured: %w", err)
		}
	}

	return auth.NewGoogle(auth.GoogleConfig{
		ClientID:     clientID,
		ClientSecret: clientSecret,
	}), nil
}
