package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/jonathan/markitup/internal/observability"
	"github.com/jonathan/markitup/internal/progress"
	"github.com/jonathan/markitup/internal/rendering"
	"github.com/jonathan/markitup/internal/server"
	"github.com/jonathan/markitup/internal/types"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a marketing strategy document",
	Long: `Generates one strategy from flags (or a --request JSON file), or many from a --batch file.

The document is written as Markdown by default; use --format for json, html, text or pdf.
If the strategy API is unreachable or returns an unusable response, a fallback strategy
is written and the run still succeeds.`,
	RunE: runGenerate,
}

var (
	genRequestPath string
	genBatchPath   string
	genCompany     string
	genIndustry    string
	genAudience    string
	genFocus       string
	genBudget      float64
	genTimeline    string
	genBrand       string
	genType        string
	genFormat      string
	genOut         string
	genOutDir      string
	genConcurrency int
	genProgress    bool
)

func init() {
	generateCmd.Flags().StringVar(&genRequestPath, "request", "", "Path to a JSON strategy request (flags override its fields)")
	generateCmd.Flags().StringVar(&genBatchPath, "batch", "", "Path to a JSON array of strategy requests")

	generateCmd.Flags().StringVar(&genCompany, "company", "", "Company name")
	generateCmd.Flags().StringVar(&genIndustry, "industry", "", "Industry")
	generateCmd.Flags().StringVar(&genAudience, "audience", "", "Target audience")
	generateCmd.Flags().StringVar(&genFocus, "focus", "", "Strategic focus")
	generateCmd.Flags().Float64Var(&genBudget, "budget", 0, "Marketing budget (optional)")
	generateCmd.Flags().StringVar(&genTimeline, "timeline", "", "Timeline (optional)")
	generateCmd.Flags().StringVar(&genBrand, "brand", "", "Brand whose methodology inspires the strategy")
	generateCmd.Flags().StringVar(&genType, "type", "", "Strategy type")

	generateCmd.Flags().StringVarP(&genFormat, "format", "f", "markdown", "Output format: markdown, json, html, text, pdf")
	generateCmd.Flags().StringVarP(&genOut, "out", "o", "", "Output file (defaults to stdout; required for pdf)")
	generateCmd.Flags().StringVar(&genOutDir, "out-dir", ".", "Output directory for --batch")
	generateCmd.Flags().IntVar(&genConcurrency, "concurrency", 4, "Parallel generations for --batch")
	generateCmd.Flags().BoolVar(&genProgress, "progress", false, "Show a progress bar on stderr while generating")

	generateCmd.MarkFlagsMutuallyExclusive("request", "batch")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	format, err := rendering.ParseFormat(genFormat)
	if err != nil {
		return err
	}
	client, err := newClient(cfg)
	if err != nil {
		return err
	}
	exporter := rendering.NewExporter(cfg.ChromePath)
	printer := observability.NewPrinter(os.Stderr)

	if genBatchPath != "" {
		reqs, err := readBatch(genBatchPath)
		if err != nil {
			return err
		}
		results := runBatch(ctx, client, exporter, reqs, format, genOutDir, genConcurrency)
		printer.PrintBatchSummary(results)
		for _, r := range results {
			if r.Err != nil {
				return fmt.Errorf("%d of %d strategies failed", countFailures(results), len(results))
			}
		}
		return nil
	}

	req, err := requestFromFlags(cmd)
	if err != nil {
		return err
	}
	if cfg.Verbose {
		printer.PrintRequest(&req)
	}

	var doc *types.StrategyDocument
	if genProgress {
		doc = generateWithProgress(ctx, client, req, progress.New(), printer)
	} else {
		doc = client.Generate(ctx, req)
	}
	if cfg.Verbose {
		printer.PrintDocument(doc)
	}

	return writeDocument(ctx, exporter, doc, format, genOut, cmd.OutOrStdout())
}

// requestFromFlags loads --request (if any), applies the explicitly set
// field flags and validates the result.
func requestFromFlags(cmd *cobra.Command) (types.StrategyRequest, error) {
	var req types.StrategyRequest
	if genRequestPath != "" {
		data, err := os.ReadFile(genRequestPath)
		if err != nil {
			return req, fmt.Errorf("failed to read request file: %w", err)
		}
		if err := json.Unmarshal(data, &req); err != nil {
			return req, fmt.Errorf("failed to parse request file: %w", err)
		}
	}

	flags := cmd.Flags()
	if flags.Changed("company") {
		req.CompanyName = genCompany
	}
	if flags.Changed("industry") {
		req.Industry = genIndustry
	}
	if flags.Changed("audience") {
		req.TargetAudience = genAudience
	}
	if flags.Changed("focus") {
		req.StrategicFocus = genFocus
	}
	if flags.Changed("budget") {
		req.Budget = genBudget
	}
	if flags.Changed("timeline") {
		req.Timeline = genTimeline
	}
	if flags.Changed("brand") {
		req.BrandInspiration = genBrand
	}
	if flags.Changed("type") {
		req.StrategyType = genType
	}

	if err := req.Validate(); err != nil {
		return req, fmt.Errorf("invalid strategy request: %w", err)
	}
	return req, nil
}

// readBatch reads a JSON array of requests and validates each one.
func readBatch(path string) ([]types.StrategyRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}
	var reqs []types.StrategyRequest
	if err := json.Unmarshal(data, &reqs); err != nil {
		return nil, fmt.Errorf("failed to parse batch file: %w", err)
	}
	if len(reqs) == 0 {
		return nil, fmt.Errorf("batch file %s contains no requests", path)
	}
	for i := range reqs {
		if err := reqs[i].Validate(); err != nil {
			return nil, fmt.Errorf("invalid request %d (%s): %w", i, reqs[i].CompanyName, err)
		}
	}
	return reqs, nil
}

// generateWithProgress runs the simulated progress bar while the generation
// call is in flight and finishes it at 100% once the document exists.
func generateWithProgress(ctx context.Context, gen server.Generator, req types.StrategyRequest, sim *progress.Simulator, printer *observability.Printer) *types.StrategyDocument {
	progressCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for u := range sim.Start(progressCtx) {
			if !u.Done {
				printer.PrintProgress(u)
			}
		}
	}()

	doc := gen.Generate(ctx, req)
	cancel()
	wg.Wait()
	printer.PrintProgress(sim.Complete())
	return doc
}

// runBatch generates every request with at most concurrency calls in flight
// and writes each document to outDir. Results keep the input order.
func runBatch(ctx context.Context, gen server.Generator, exporter *rendering.Exporter, reqs []types.StrategyRequest,
	format rendering.Format, outDir string, concurrency int) []observability.BatchResult {
	results := make([]observability.BatchResult, len(reqs))
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		for i, req := range reqs {
			results[i] = observability.BatchResult{Company: req.CompanyName, Err: err}
		}
		return results
	}

	g, gctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}
	names := outputNames(reqs, format)
	for i, req := range reqs {
		g.Go(func() error {
			doc := gen.Generate(gctx, req)
			path := filepath.Join(outDir, names[i])
			err := writeDocument(gctx, exporter, doc, format, path, io.Discard)
			results[i] = observability.BatchResult{
				Company: req.CompanyName,
				Source:  doc.Metadata.Source,
				Output:  path,
				Err:     err,
			}
			// Per-request failures are reported, not propagated
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func countFailures(results []observability.BatchResult) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// slugify turns a company name into a file-name-safe stem.
func slugify(name string) string {
	slug := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(name), "-"), "-")
	if slug == "" {
		return "strategy"
	}
	return slug
}

// outputNames assigns one unique file name per request. Repeated slugs get
// the first free "-2", "-3", ... suffix, including slugs that already end in
// a number.
func outputNames(reqs []types.StrategyRequest, format rendering.Format) []string {
	names := make([]string, len(reqs))
	used := make(map[string]bool, len(reqs))
	for i, req := range reqs {
		base := slugify(req.CompanyName)
		stem := base
		for n := 2; used[stem]; n++ {
			stem = fmt.Sprintf("%s-%d", base, n)
		}
		used[stem] = true
		names[i] = stem + "." + format.Extension()
	}
	return names
}

// writeDocument renders doc and writes it to path, or to stdout when path is
// empty or "-". Binary formats need a path.
func writeDocument(ctx context.Context, exporter *rendering.Exporter, doc *types.StrategyDocument,
	format rendering.Format, path string, stdout io.Writer) error {
	toStdout := path == "" || path == "-"
	if toStdout && format == rendering.FormatPDF {
		return fmt.Errorf("--out is required for pdf output")
	}

	data, err := exporter.Export(ctx, doc, format)
	if err != nil {
		return err
	}

	if toStdout {
		_, err := stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
