package rendering

import (
	"context"
	"encoding/base64"
	"log"
	"os"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/jonathan/markitup/internal/types"
)

// DefaultPDFTimeout bounds a single headless print.
const DefaultPDFTimeout = 30 * time.Second

// PDFRenderer prints the HTML rendering of a document through headless Chrome.
type PDFRenderer struct {
	ChromePath string
	Timeout    time.Duration
	Verbose    bool
}

// NewPDFRenderer creates a renderer. An empty chromePath is resolved from the
// usual install locations, then left to chromedp's own lookup.
func NewPDFRenderer(chromePath string) *PDFRenderer {
	if chromePath == "" {
		chromePath = DetectChromePath()
	}
	return &PDFRenderer{
		ChromePath: chromePath,
		Timeout:    DefaultPDFTimeout,
	}
}

// Render returns the PDF bytes for doc.
func (r *PDFRenderer) Render(ctx context.Context, doc *types.StrategyDocument) ([]byte, error) {
	htmlDoc, err := HTML(doc)
	if err != nil {
		return nil, err
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultPDFTimeout
	}
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
	}
	if r.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(r.ChromePath))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(timeoutCtx, append(chromedp.DefaultExecAllocatorOptions[:], opts...)...)
	defer allocCancel()

	taskCtx, taskCancel := chromedp.NewContext(allocCtx)
	defer taskCancel()

	if r.Verbose {
		log.Printf("[export] printing PDF for %s (%d bytes of HTML)", doc.ID, len(htmlDoc))
	}

	var pdf []byte
	dataURL := "data:text/html;base64," + base64.StdEncoding.EncodeToString([]byte(htmlDoc))
	if err := chromedp.Run(taskCtx,
		chromedp.Navigate(dataURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			footer := `<div style="width:100%;text-align:center;font-size:9px;color:#666;">` +
				`Page <span class="pageNumber"></span> of <span class="totalPages"></span></div>`
			out, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithDisplayHeaderFooter(true).
				WithHeaderTemplate(`<div></div>`).
				WithFooterTemplate(footer).
				WithPaperWidth(8.5).
				WithPaperHeight(11).
				WithMarginTop(0.5).
				WithMarginBottom(0.75).
				WithMarginLeft(0.5).
				WithMarginRight(0.5).
				Do(ctx)
			if err != nil {
				return err
			}
			pdf = out
			return nil
		}),
	); err != nil {
		return nil, &RenderError{Message: "headless print failed", Cause: err}
	}

	if r.Verbose {
		log.Printf("[export] PDF ready: %d bytes", len(pdf))
	}
	return pdf, nil
}

// DetectChromePath returns the first Chrome or Chromium binary found in the
// usual locations, or "" when none exists.
func DetectChromePath() string {
	candidates := []string{
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/usr/bin/google-chrome",
		"/usr/bin/google-chrome-stable",
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
