package rendering

import (
	"bytes"
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jonathan/markitup/internal/types"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var markdownConverter = goldmark.New(goldmark.WithExtensions(extension.GFM))

const pageStyle = "body{font-family:-apple-system,Segoe UI,Helvetica,Arial,sans-serif;color:#1f2937;max-width:820px;margin:0 auto;padding:2rem;line-height:1.55;} " +
	"h1{color:#581c87;margin-bottom:0.25rem;} h1+p em{color:#6b7280;} " +
	"h2{color:#111827;border-bottom:1px solid #e5e7eb;padding-bottom:0.25rem;margin-top:2rem;} " +
	"hr{border:0;border-top:1px solid #e5e7eb;margin:1.5rem 0;} " +
	"@media print{ @page{size:auto;margin:12mm;} body{padding:0;max-width:none;} }"

// convertMarkdown renders Markdown to an HTML fragment.
func convertMarkdown(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := markdownConverter.Convert([]byte(markdown), &buf); err != nil {
		return "", &RenderError{Message: "markdown convert", Cause: err}
	}
	return buf.String(), nil
}

// HTML renders a document as a standalone HTML page.
func HTML(doc *types.StrategyDocument) (string, error) {
	content, err := convertMarkdown(Markdown(doc))
	if err != nil {
		return "", err
	}

	title := html.EscapeString("Marketing Strategy for " + doc.Metadata.Context.CompanyName)
	return "<!doctype html><html><head><meta charset='utf-8'><title>" + title + "</title>" +
		"<style>" + pageStyle + "</style></head><body>" +
		"<article class='strategy' data-source='" + html.EscapeString(string(doc.Metadata.Source)) + "'>" +
		content +
		"</article></body></html>", nil
}

// PlainText renders a document without any markup, one block per line.
func PlainText(doc *types.StrategyDocument) (string, error) {
	content, err := convertMarkdown(Markdown(doc))
	if err != nil {
		return "", err
	}

	page, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return "", &RenderError{Message: "failed to parse HTML", Cause: err}
	}

	var lines []string
	page.Find("h1, h2, p, li").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text == "" {
			return
		}
		switch goquery.NodeName(s) {
		case "h1":
			lines = append(lines, text, strings.Repeat("=", len([]rune(text))))
		case "h2":
			lines = append(lines, "", text, strings.Repeat("-", len([]rune(text))))
		case "li":
			lines = append(lines, "  * "+text)
		default:
			if s.ParentsFiltered("li").Length() > 0 {
				return
			}
			lines = append(lines, text)
		}
	})

	return strings.Join(lines, "\n") + "\n", nil
}
