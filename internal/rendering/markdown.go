package rendering

import (
	"strings"

	"github.com/jonathan/markitup/internal/types"
)

// Markdown renders a document as the concatenated Markdown shown to the user.
// Sections are emitted in document order, each followed by a horizontal rule.
func Markdown(doc *types.StrategyDocument) string {
	var sb strings.Builder

	sb.WriteString("# Marketing Strategy for ")
	sb.WriteString(doc.Metadata.Context.CompanyName)
	sb.WriteString("\n*Inspired by ")
	sb.WriteString(doc.Metadata.Brand)
	sb.WriteString("'s Proven Methodology*\n\n")

	for _, section := range doc.Sections {
		writeSection(&sb, section)
	}

	return sb.String()
}

func writeSection(sb *strings.Builder, section types.StrategySection) {
	sb.WriteString("## ")
	sb.WriteString(section.Title)
	sb.WriteString("\n\n")
	sb.WriteString(section.Content)
	sb.WriteString("\n\n")

	sb.WriteString("**Key Points:**\n")
	writeBullets(sb, section.KeyPoints)
	sb.WriteString("\n\n")

	sb.WriteString("**Recommendations:**\n")
	writeBullets(sb, section.Recommendations)
	sb.WriteString("\n\n")

	sb.WriteString("---\n\n")
}

func writeBullets(sb *strings.Builder, items []string) {
	for i, item := range items {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("- ")
		sb.WriteString(item)
	}
}
