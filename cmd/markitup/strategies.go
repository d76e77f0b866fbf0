package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/jonathan/markitup/internal/strategy"
	"github.com/spf13/cobra"
)

var strategiesCmd = &cobra.Command{
	Use:   "strategies",
	Short: "Browse and manage strategies stored by the strategy API",
}

var strategiesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored strategies",
	Args:  cobra.NoArgs,
	RunE: withClient(func(ctx context.Context, c *strategy.Client, _ []string) (json.RawMessage, error) {
		return c.ListStrategies(ctx)
	}),
}

var strategiesGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one stored strategy",
	Args:  cobra.ExactArgs(1),
	RunE: withClient(func(ctx context.Context, c *strategy.Client, args []string) (json.RawMessage, error) {
		return c.GetStrategy(ctx, args[0])
	}),
}

var strategiesTemplatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List the strategy templates offered by the API",
	Args:  cobra.NoArgs,
	RunE: withClient(func(ctx context.Context, c *strategy.Client, _ []string) (json.RawMessage, error) {
		return c.Templates(ctx)
	}),
}

var strategiesOptimizeCmd = &cobra.Command{
	Use:   "optimize <id>",
	Short: "Ask the API to optimize a stored strategy",
	Args:  cobra.ExactArgs(1),
	RunE: withClient(func(ctx context.Context, c *strategy.Client, args []string) (json.RawMessage, error) {
		return c.OptimizeStrategy(ctx, args[0])
	}),
}

var remoteExportFormat string

var strategiesExportCmd = &cobra.Command{
	Use:   "export <id>",
	Short: "Export a stored strategy through the API",
	Args:  cobra.ExactArgs(1),
	RunE: withClient(func(ctx context.Context, c *strategy.Client, args []string) (json.RawMessage, error) {
		return c.ExportStrategy(ctx, args[0], remoteExportFormat)
	}),
}

var (
	sectionContent         string
	sectionKeyPoints       []string
	sectionRecommendations []string
)

var strategiesUpdateSectionCmd = &cobra.Command{
	Use:   "update-section <id> <section>",
	Short: "Replace one section of a stored strategy",
	Args:  cobra.ExactArgs(2),
	RunE: withClient(func(ctx context.Context, c *strategy.Client, args []string) (json.RawMessage, error) {
		return c.UpdateSection(ctx, args[0], args[1], strategy.SectionUpdate{
			Content:         sectionContent,
			KeyPoints:       sectionKeyPoints,
			Recommendations: sectionRecommendations,
		})
	}),
}

func init() {
	strategiesExportCmd.Flags().StringVarP(&remoteExportFormat, "format", "f", "pdf", "Export format understood by the API")

	strategiesUpdateSectionCmd.Flags().StringVar(&sectionContent, "content", "", "New section content")
	strategiesUpdateSectionCmd.Flags().StringSliceVar(&sectionKeyPoints, "key-point", nil, "Key point (repeatable)")
	strategiesUpdateSectionCmd.Flags().StringSliceVar(&sectionRecommendations, "recommendation", nil, "Recommendation (repeatable)")
	_ = strategiesUpdateSectionCmd.MarkFlagRequired("content")

	strategiesCmd.AddCommand(strategiesListCmd, strategiesGetCmd, strategiesTemplatesCmd,
		strategiesOptimizeCmd, strategiesExportCmd, strategiesUpdateSectionCmd)
	rootCmd.AddCommand(strategiesCmd)
}

// withClient adapts an API call into a command that prints the JSON response.
func withClient(call func(ctx context.Context, c *strategy.Client, args []string) (json.RawMessage, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		client, err := newClient(cfg)
		if err != nil {
			return err
		}

		raw, err := call(ctx, client, args)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), raw)
	}
}

// printJSON writes raw indented, or as-is when it is not valid JSON.
func printJSON(w io.Writer, raw json.RawMessage) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		buf.Reset()
		buf.Write(raw)
	}
	buf.WriteByte('\n')
	_, err := w.Write(buf.Bytes())
	return err
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the strategy API is reachable",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		client, err := newClient(cfg)
		if err != nil {
			return err
		}

		if !client.Health(ctx) {
			return fmt.Errorf("strategy API at %s is not healthy", client.BaseURL())
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "strategy API at %s is healthy\n", client.BaseURL())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
