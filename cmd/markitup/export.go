package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/jonathan/markitup/internal/rendering"
	"github.com/jonathan/markitup/internal/schemas"
	"github.com/jonathan/markitup/internal/types"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Convert a saved strategy document to another format",
	Long: `Reads a strategy document written with "generate --format json" (or an edited Markdown
file with --from markdown) and renders it as markdown, json, html, text or pdf.`,
	RunE: runExport,
}

var (
	exportIn     string
	exportFrom   string
	exportFormat string
	exportOut    string
)

func init() {
	exportCmd.Flags().StringVarP(&exportIn, "in", "i", "", "Path to the saved document")
	exportCmd.Flags().StringVar(&exportFrom, "from", "json", "Input format: json or markdown")
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "markdown", "Output format: markdown, json, html, text, pdf")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file (defaults to stdout; required for pdf)")
	_ = exportCmd.MarkFlagRequired("in")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	format, err := rendering.ParseFormat(exportFormat)
	if err != nil {
		return err
	}

	doc, err := readDocument(exportIn, exportFrom)
	if err != nil {
		return err
	}

	return writeDocument(ctx, rendering.NewExporter(cfg.ChromePath), doc, format, exportOut, cmd.OutOrStdout())
}

// readDocument loads a saved document. Markdown input becomes a customized
// document whose metadata only carries what the file states.
func readDocument(path, from string) (*types.StrategyDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	inFormat, err := rendering.ParseFormat(from)
	if err != nil {
		return nil, err
	}

	switch inFormat {
	case rendering.FormatJSON:
		if err := schemas.Validate(schemas.StrategyDocumentSchema, data); err != nil {
			return nil, fmt.Errorf("invalid document %s: %w", path, err)
		}
		var doc types.StrategyDocument
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse document: %w", err)
		}
		if len(doc.Sections) == 0 {
			return nil, fmt.Errorf("document %s has no sections", path)
		}
		return &doc, nil
	case rendering.FormatMarkdown:
		sections, err := rendering.ParseMarkdown(string(data))
		if err != nil {
			return nil, err
		}
		doc := &types.StrategyDocument{Sections: sections}
		doc.Metadata.Source = types.SourceUserCustomized
		return doc, nil
	default:
		return nil, fmt.Errorf("--from must be json or markdown, got %q", from)
	}
}
