// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/markitup/internal/progress"
	"github.com/jonathan/markitup/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
	// barWidth is the number of cells in the progress bar
	barWidth = 30
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// truncate shortens s to at most n runes, marking the cut with "..."
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintRequest outputs the business context sent to the generator.
func (p *Printer) PrintRequest(req *types.StrategyRequest) {
	if req == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Company:   %s\n", req.CompanyName))
	sb.WriteString(fmt.Sprintf("Industry:  %s\n", req.Industry))
	sb.WriteString(fmt.Sprintf("Audience:  %s\n", req.TargetAudience))
	sb.WriteString(fmt.Sprintf("Focus:     %s\n", req.StrategicFocus))
	sb.WriteString(fmt.Sprintf("Brand:     %s\n", req.BrandInspiration))
	sb.WriteString(fmt.Sprintf("Type:      %s", req.StrategyType))
	if req.Budget > 0 {
		sb.WriteString(fmt.Sprintf("\nBudget:    %.2f", req.Budget))
	}
	if req.Timeline != "" {
		sb.WriteString(fmt.Sprintf("\nTimeline:  %s", req.Timeline))
	}

	p.printBox("STRATEGY REQUEST", sb.String())
}

// PrintDocument outputs a summary of a generated document and its provenance.
func (p *Printer) PrintDocument(doc *types.StrategyDocument) {
	if doc == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("ID:        %s\n", doc.ID))
	sb.WriteString(fmt.Sprintf("Source:    %s\n", doc.Metadata.Source))
	if doc.Metadata.FallbackReason != "" {
		sb.WriteString(fmt.Sprintf("Reason:    %s\n", doc.Metadata.FallbackReason))
	}
	sb.WriteString(fmt.Sprintf("Generated: %s\n", doc.Metadata.GeneratedAt.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Sections (%d):\n", len(doc.Sections)))

	count := min(len(doc.Sections), maxItemsToShow)
	for i := 0; i < count; i++ {
		section := doc.Sections[i]
		sb.WriteString(fmt.Sprintf("  • %s", section.Title))
		sb.WriteString(fmt.Sprintf(" [%d points, %d recs]\n", len(section.KeyPoints), len(section.Recommendations)))
	}
	if len(doc.Sections) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(doc.Sections)-maxItemsToShow))
	}

	title := "STRATEGY DOCUMENT"
	if doc.Metadata.Source == types.SourceFallback {
		title = "⚠ STRATEGY DOCUMENT (FALLBACK)"
	}
	p.printBox(title, strings.TrimSuffix(sb.String(), "\n"))
}

// PrintProgress redraws the progress bar on the current line and ends the
// line once the update is final.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintProgress(u progress.Update) {
	filled := u.Percent * barWidth / 100
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
	fmt.Fprintf(p.out, "\r%s %3d%%  %-40s", bar, u.Percent, u.Label)
	if u.Done {
		fmt.Fprintln(p.out)
	}
}

// BatchResult is one entry of a batch run summary.
type BatchResult struct {
	Company string
	Source  types.Source
	Output  string
	Err     error
}

// PrintBatchSummary outputs one line per request of a batch run.
func (p *Printer) PrintBatchSummary(results []BatchResult) {
	if len(results) == 0 {
		return
	}

	var sb strings.Builder
	fallbacks := 0
	failures := 0
	for i, r := range results {
		switch {
		case r.Err != nil:
			failures++
			sb.WriteString(fmt.Sprintf("✗ %s: %v", r.Company, r.Err))
		case r.Source == types.SourceFallback:
			fallbacks++
			sb.WriteString(fmt.Sprintf("⚠ %s → %s (fallback)", r.Company, r.Output))
		default:
			sb.WriteString(fmt.Sprintf("✓ %s → %s", r.Company, r.Output))
		}
		if i < len(results)-1 {
			sb.WriteString("\n")
		}
	}
	sb.WriteString(fmt.Sprintf("\n\n%d generated, %d fallback, %d failed", len(results)-failures, fallbacks, failures))

	p.printBox("BATCH SUMMARY", sb.String())
}
