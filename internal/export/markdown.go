package export

import (
	"fmt"
	"strings"

	"inkwell/api/internal/block"
)

// BlocksToMarkdown renders a block list to Markdown. Numbered items are
// numbered within their contiguous run, restarting at 1 after any break.
func BlocksToMarkdown(title string, blocks []block.Block) string {
	var out strings.Builder
	if title != "" {
		fmt.Fprintf(&out, "# %s\n\n", title)
	}

	ordinal := 0
	for _, b := range blocks {
		if b.Type == block.TypeNumberedList {
			ordinal++
		} else {
			ordinal = 0
		}
		if md := renderBlockMarkdown(b, ordinal); md != "" {
			out.WriteString(md)
			out.WriteString("\n")
		}
	}
	return out.String()
}

func renderBlockMarkdown(b block.Block, ordinal int) string {
	switch b.Type {
	case block.TypeParagraph:
		return b.Content + "\n"
	case block.TypeHeading1:
		return "# " + b.Content + "\n"
	case block.TypeHeading2:
		return "## " + b.Content + "\n"
	case block.TypeHeading3:
		return "### " + b.Content + "\n"
	case block.TypeBulletList:
		return "- " + b.Content + "\n"
	case block.TypeNumberedList:
		return fmt.Sprintf("%d. %s\n", ordinal, b.Content)
	case block.TypeImage:
		if b.URL == "" {
			return ""
		}
		md := fmt.Sprintf("![%s](%s)\n", b.Alt, b.URL)
		if b.Caption != "" {
			md += "*" + b.Caption + "*\n"
		}
		return md
	case block.TypeTable:
		return renderTableMarkdown(b)
	case block.TypeEmbed:
		if b.URL == "" {
			return ""
		}
		label := b.Title
		if label == "" {
			label = b.URL
		}
		return fmt.Sprintf("[%s](%s)\n", label, b.URL)
	case block.TypeCode:
		lang := b.Language
		if lang == "" {
			lang = block.DefaultLanguage
		}
		return fmt.Sprintf("```%s\n%s\n```\n", lang, b.Code)
	default:
		return ""
	}
}

func renderTableMarkdown(b block.Block) string {
	if len(b.Rows) == 0 || len(b.Rows[0].Cells) == 0 {
		return ""
	}
	var out strings.Builder
	width := len(b.Rows[0].Cells)

	writeRow := func(row block.TableRow) {
		out.WriteString("|")
		for _, c := range row.Cells {
			out.WriteString(" " + strings.ReplaceAll(c.Content, "|", "\\|") + " |")
		}
		out.WriteString("\n")
	}

	rows := b.Rows
	if b.HasHeader {
		writeRow(rows[0])
		rows = rows[1:]
	} else {
		// Markdown tables need a header row; emit an empty one.
		out.WriteString("|" + strings.Repeat("   |", width) + "\n")
	}
	out.WriteString("|" + strings.Repeat(" --- |", width) + "\n")
	for _, row := range rows {
		writeRow(row)
	}
	return out.String()
}
