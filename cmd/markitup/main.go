// Package main provides the entry point for the markitup CLI and dashboard API server.
package main

import (
	"fmt"
	"os"

	"github.com/jonathan/markitup/internal/config"
	"github.com/jonathan/markitup/internal/strategy"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "markitup",
	Short: "Brand-inspired marketing strategy generator",
	Long: `markitup generates marketing strategy documents modeled on a well-known brand's methodology.

Generation calls the strategy API once; when it fails, a deterministic three-section
fallback strategy is produced instead so a usable document is always available.`,
	SilenceUsage: true,
}

var (
	configPath  string
	baseURLFlag string
	verbose     bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config.json file (values can be overridden by env and flags)")
	rootCmd.PersistentFlags().StringVar(&baseURLFlag, "base-url", "", "Strategy API root (defaults to MARKITUP_API_BASE_URL or "+strategy.DefaultBaseURL+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print detailed debug information")
}

// loadConfig resolves defaults, the config file and the environment, then
// applies the persistent flags that were set explicitly.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Resolve(configPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	if cmd.Flags().Changed("base-url") {
		cfg.BaseURL = baseURLFlag
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = verbose
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// newClient builds a strategy API client from the resolved configuration.
func newClient(cfg config.Config) (*strategy.Client, error) {
	client, err := strategy.New(cfg.StrategyConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create strategy client: %w", err)
	}
	return client, nil
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
