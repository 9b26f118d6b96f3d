package export

import (
	"fmt"
	"html"
	"strings"

	"inkwell/api/internal/block"
)

// BlocksToHTML renders a block list to HTML. Adjacent list blocks of the
// same kind collapse into a single <ul> or <ol>; each numbered run gets its
// own <ol> so numbering restarts where the run breaks.
func BlocksToHTML(blocks []block.Block) string {
	var out strings.Builder

	for i := 0; i < len(blocks); i++ {
		b := blocks[i]
		switch b.Type {
		case block.TypeBulletList, block.TypeNumberedList:
			tag := "ul"
			if b.Type == block.TypeNumberedList {
				tag = "ol"
			}
			out.WriteString("<" + tag + ">\n")
			for i < len(blocks) && blocks[i].Type == b.Type {
				fmt.Fprintf(&out, "<li>%s</li>\n", html.EscapeString(blocks[i].Content))
				i++
			}
			i--
			out.WriteString("</" + tag + ">\n")
		default:
			out.WriteString(renderBlockHTML(b))
		}
	}
	return out.String()
}

func renderBlockHTML(b block.Block) string {
	switch b.Type {
	case block.TypeParagraph:
		return fmt.Sprintf("<p>%s</p>\n", html.EscapeString(b.Content))
	case block.TypeHeading1:
		return fmt.Sprintf("<h1>%s</h1>\n", html.EscapeString(b.Content))
	case block.TypeHeading2:
		return fmt.Sprintf("<h2>%s</h2>\n", html.EscapeString(b.Content))
	case block.TypeHeading3:
		return fmt.Sprintf("<h3>%s</h3>\n", html.EscapeString(b.Content))
	case block.TypeBulletList, block.TypeNumberedList:
		// Runs are handled by BlocksToHTML; a lone item still renders.
		tag := "ul"
		if b.Type == block.TypeNumberedList {
			tag = "ol"
		}
		return fmt.Sprintf("<%s>\n<li>%s</li>\n</%s>\n", tag, html.EscapeString(b.Content), tag)
	case block.TypeImage:
		if b.URL == "" {
			return ""
		}
		var fig strings.Builder
		fig.WriteString("<figure>\n")
		fmt.Fprintf(&fig, "<img src=%q alt=%q>\n", b.URL, b.Alt)
		if b.Caption != "" {
			fmt.Fprintf(&fig, "<figcaption>%s</figcaption>\n", html.EscapeString(b.Caption))
		}
		fig.WriteString("</figure>\n")
		return fig.String()
	case block.TypeTable:
		return renderTableHTML(b)
	case block.TypeEmbed:
		return renderEmbedHTML(b)
	case block.TypeCode:
		lang := b.Language
		if lang == "" {
			lang = block.DefaultLanguage
		}
		return fmt.Sprintf("<pre><code class=\"language-%s\">%s</code></pre>\n", lang, html.EscapeString(b.Code))
	default:
		return ""
	}
}

func renderTableHTML(b block.Block) string {
	if len(b.Rows) == 0 {
		return ""
	}
	var out strings.Builder
	out.WriteString("<table>\n")
	rows := b.Rows
	if b.HasHeader {
		out.WriteString("<thead>\n<tr>\n")
		for _, c := range rows[0].Cells {
			fmt.Fprintf(&out, "<th>%s</th>\n", html.EscapeString(c.Content))
		}
		out.WriteString("</tr>\n</thead>\n")
		rows = rows[1:]
	}
	out.WriteString("<tbody>\n")
	for _, row := range rows {
		out.WriteString("<tr>\n")
		for _, c := range row.Cells {
			fmt.Fprintf(&out, "<td>%s</td>\n", html.EscapeString(c.Content))
		}
		out.WriteString("</tr>\n")
	}
	out.WriteString("</tbody>\n</table>\n")
	return out.String()
}

func renderEmbedHTML(b block.Block) string {
	if b.URL == "" {
		return ""
	}
	label := b.Title
	if label == "" {
		label = b.URL
	}
	switch b.EmbedType {
	case block.EmbedYouTube, block.EmbedVimeo:
		return fmt.Sprintf("<iframe src=%q title=%q allowfullscreen></iframe>\n", b.URL, label)
	default:
		return fmt.Sprintf("<p><a href=%q>%s</a></p>\n", b.URL, html.EscapeString(label))
	}
}
