package rendering

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/jonathan/markitup/internal/types"
)

// Format is an export format.
type Format string

// Supported export formats
const (
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
	FormatHTML     Format = "html"
	FormatText     Format = "text"
	FormatPDF      Format = "pdf"
)

var supportedFormats = []Format{FormatMarkdown, FormatJSON, FormatHTML, FormatText, FormatPDF}

func supportedFormatList() string {
	names := make([]string, len(supportedFormats))
	for i, f := range supportedFormats {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}

// ParseFormat resolves a format name. "md" and "txt" are accepted as aliases.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "markdown", "md":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	case "html":
		return FormatHTML, nil
	case "text", "txt":
		return FormatText, nil
	case "pdf":
		return FormatPDF, nil
	default:
		return "", &FormatError{Format: name}
	}
}

// ContentType returns the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatJSON:
		return "application/json"
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatPDF:
		return "application/pdf"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Extension returns the file extension for the format, without the dot.
func (f Format) Extension() string {
	switch f {
	case FormatMarkdown:
		return "md"
	case FormatText:
		return "txt"
	default:
		return string(f)
	}
}

// Exporter renders documents in any supported format.
type Exporter struct {
	PDF *PDFRenderer
}

// NewExporter creates an exporter whose PDF output uses chromePath.
func NewExporter(chromePath string) *Exporter {
	return &Exporter{PDF: NewPDFRenderer(chromePath)}
}

// Export renders doc in the given format.
func (e *Exporter) Export(ctx context.Context, doc *types.StrategyDocument, format Format) ([]byte, error) {
	switch format {
	case FormatMarkdown:
		return []byte(Markdown(doc)), nil
	case FormatJSON:
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, &RenderError{Message: "failed to marshal document", Cause: err}
		}
		return data, nil
	case FormatHTML:
		out, err := HTML(doc)
		if err != nil {
			return nil, err
		}
		return []byte(out), nil
	case FormatText:
		out, err := PlainText(doc)
		if err != nil {
			return nil, err
		}
		return []byte(out), nil
	case FormatPDF:
		pdf := e.PDF
		if pdf == nil {
			pdf = NewPDFRenderer("")
		}
		return pdf.Render(ctx, doc)
	default:
		return nil, &FormatError{Format: string(format)}
	}
}

// Export renders doc with a default exporter.
func Export(ctx context.Context, doc *types.StrategyDocument, format Format) ([]byte, error) {
	return NewExporter("").Export(ctx, doc, format)
}
