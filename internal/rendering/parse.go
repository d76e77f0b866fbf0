package rendering

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/jonathan/markitup/internal/types"
)

const (
	keyPointsLabel       = "Key Points:"
	recommendationsLabel = "Recommendations:"
)

type listTarget int

const (
	listNone listTarget = iota
	listKeyPoints
	listRecommendations
)

// ParseMarkdown reads sections back out of Markdown in the layout produced by
// Markdown. Every level-two heading starts a section; paragraphs become the
// content, and lists following a "Key Points:" or "Recommendations:" label
// fill the matching list. Anything before the first section is ignored.
// Section keys are derived from the titles.
func ParseMarkdown(markdown string) (types.Sections, error) {
	content, err := convertMarkdown(markdown)
	if err != nil {
		return nil, &ParseError{Message: "failed to convert markdown", Cause: err}
	}

	page, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, &ParseError{Message: "failed to parse HTML", Cause: err}
	}

	var (
		sections   types.Sections
		current    *types.StrategySection
		paragraphs []string
		target     = listNone
		usedKeys   = make(map[string]int)
	)

	flush := func() {
		if current == nil {
			return
		}
		current.Content = strings.Join(paragraphs, "\n\n")
		sections = append(sections, *current)
		current = nil
		paragraphs = nil
	}

	page.Find("body").Children().Each(func(_ int, s *goquery.Selection) {
		switch goquery.NodeName(s) {
		case "h2":
			flush()
			current = &types.StrategySection{
				Key:             uniqueKey(sectionKey(strings.TrimSpace(s.Text()), len(sections)+1), usedKeys),
				Title:           inlineMarkdown(s),
				KeyPoints:       []string{},
				Recommendations: []string{},
			}
			target = listNone
		case "p":
			if current == nil {
				return
			}
			switch strings.TrimSpace(s.Text()) {
			case keyPointsLabel:
				target = listKeyPoints
			case recommendationsLabel:
				target = listRecommendations
			default:
				if text := inlineMarkdown(s); text != "" {
					paragraphs = append(paragraphs, text)
				}
				target = listNone
			}
		case "ul", "ol":
			if current == nil {
				return
			}
			items := listItems(s)
			switch target {
			case listKeyPoints:
				current.KeyPoints = append(current.KeyPoints, items...)
			case listRecommendations:
				current.Recommendations = append(current.Recommendations, items...)
			default:
				for _, item := range items {
					paragraphs = append(paragraphs, "- "+item)
				}
			}
		case "hr":
			target = listNone
		}
	})
	flush()

	if len(sections) == 0 {
		return nil, &ParseError{Message: "no sections found", Cause: types.ErrEmptySections}
	}
	return sections, nil
}

func listItems(list *goquery.Selection) []string {
	items := make([]string, 0, list.Children().Length())
	list.ChildrenFiltered("li").Each(func(_ int, li *goquery.Selection) {
		if text := inlineMarkdown(li); text != "" {
			items = append(items, text)
		}
	})
	return items
}

// inlineMarkdown writes the inline content of sel back as Markdown so that
// emphasis, code spans and links survive an edit.
func inlineMarkdown(sel *goquery.Selection) string {
	var sb strings.Builder
	writeInline(&sb, sel)
	return strings.TrimSpace(sb.String())
}

func writeInline(sb *strings.Builder, sel *goquery.Selection) {
	sel.Contents().Each(func(_ int, node *goquery.Selection) {
		switch goquery.NodeName(node) {
		case "#text":
			sb.WriteString(node.Text())
		case "strong", "b":
			wrapInline(sb, node, "**", "**")
		case "em", "i":
			wrapInline(sb, node, "*", "*")
		case "del", "s":
			wrapInline(sb, node, "~~", "~~")
		case "code":
			sb.WriteString("`" + node.Text() + "`")
		case "a":
			href, _ := node.Attr("href")
			wrapInline(sb, node, "[", "]("+href+")")
		case "br":
			// goldmark keeps the line ending as text after <br>
			sb.WriteString("\\")
		case "p":
			if sb.Len() > 0 {
				sb.WriteString(" ")
			}
			writeInline(sb, node)
		default:
			writeInline(sb, node)
		}
	})
}

func wrapInline(sb *strings.Builder, node *goquery.Selection, prefix, suffix string) {
	sb.WriteString(prefix)
	writeInline(sb, node)
	sb.WriteString(suffix)
}

// sectionKey converts a title into a snake_case key, e.g. "Executive Summary"
// becomes "executive_summary".
func sectionKey(title string, position int) string {
	var sb strings.Builder
	underscore := false
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
			underscore = false
			continue
		}
		if sb.Len() > 0 && !underscore {
			sb.WriteRune('_')
			underscore = true
		}
	}
	key := strings.TrimSuffix(sb.String(), "_")
	if key == "" {
		return fmt.Sprintf("section_%d", position)
	}
	return key
}

func uniqueKey(key string, used map[string]int) string {
	used[key]++
	if n := used[key]; n > 1 {
		return fmt.Sprintf("%s_%d", key, n)
	}
	return key
}
