package main

import (
	"context"
	"fmt"
	"log"

	"github.com/jonathan/markitup/internal/config"
	"github.com/jonathan/markitup/internal/db"
	"github.com/jonathan/markitup/internal/server"
	"github.com/spf13/cobra"
)

var (
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard API server",
	Long: `Start an HTTP server that generates strategies and keeps their history.

History is stored in PostgreSQL when DATABASE_URL is set and in memory otherwise.
Set JWT_SECRET and DASHBOARD_PASSWORD_HASH to require a bearer token for changes.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (defaults to PORT or 8080)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Port = servePort
	}

	client, err := newClient(cfg)
	if err != nil {
		return err
	}

	store, err := openStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}

	srvCfg := server.Config{
		Port:       cfg.Port,
		ChromePath: cfg.ChromePath,
	}
	if config.JWTEnabled() {
		jwtCfg, err := config.NewJWTConfig()
		if err != nil {
			return fmt.Errorf("failed to create JWT config: %w", err)
		}
		creds, err := config.NewCredentials()
		if err != nil {
			return fmt.Errorf("failed to create dashboard credentials: %w", err)
		}
		srvCfg.JWT = jwtCfg
		srvCfg.Credentials = creds
	}

	srv, err := server.New(srvCfg, client, store)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	log.Printf("Using strategy API at %s", client.BaseURL())
	return srv.Start()
}

// openStore connects to PostgreSQL and migrates it, or falls back to an
// in-memory store when no database URL is configured.
func openStore(ctx context.Context, databaseURL string) (db.Store, error) {
	if databaseURL == "" {
		log.Printf("[store] DATABASE_URL not set; strategy history is kept in memory")
		return db.NewMemoryStore(), nil
	}

	database, err := db.Connect(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(ctx); err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}
