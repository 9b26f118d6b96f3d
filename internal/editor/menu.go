package editor

import (
	"strings"

	"inkwell/api/internal/block"
)

// Option is one entry in the slash-command menu.
type Option struct {
	Type        block.Type `json:"type"`
	Label       string     `json:"label"`
	Description string     `json:"description"`
	Keywords    []string   `json:"keywords"`
}

var menuOptions = []Option{
	{Type: block.TypeParagraph, Label: "Paragraph", Description: "Plain text block", Keywords: []string{"text", "paragraph", "p"}},
	{Type: block.TypeHeading1, Label: "Heading 1", Description: "Large section heading", Keywords: []string{"heading", "h1", "title"}},
	{Type: block.TypeHeading2, Label: "Heading 2", Description: "Medium section heading", Keywords: []string{"heading", "h2", "subtitle"}},
	{Type: block.TypeHeading3, Label: "Heading 3", Description: "Small section heading", Keywords: []string{"heading", "h3"}},
	{Type: block.TypeImage, Label: "Image", Description: "Upload or embed an image", Keywords: []string{"image", "img", "picture", "photo"}},
	{Type: block.TypeTable, Label: "Table", Description: "Create a table", Keywords: []string{"table", "grid", "spreadsheet"}},
	{Type: block.TypeEmbed, Label: "Embed", Description: "Embed external content", Keywords: []string{"embed", "link", "iframe", "video"}},
	{Type: block.TypeCode, Label: "Code", Description: "Code block with syntax highlighting", Keywords: []string{"code", "programming", "snippet"}},
}

// MenuCatalog returns the full, unfiltered slash-command catalog.
func MenuCatalog() []Option {
	out := make([]Option, len(menuOptions))
	copy(out, menuOptions)
	return out
}

// FilterOptions narrows the catalog by case-insensitive substring match. A
// hit in the label, the description, or any keyword includes the candidate;
// the empty query matches everything.
func FilterOptions(query string) []Option {
	q := strings.ToLower(query)
	var out []Option
	for _, opt := range menuOptions {
		if matchesOption(opt, q) {
			out = append(out, opt)
		}
	}
	return out
}

func matchesOption(opt Option, q string) bool {
	if strings.Contains(strings.ToLower(opt.Label), q) {
		return true
	}
	if strings.Contains(strings.ToLower(opt.Description), q) {
		return true
	}
	for _, kw := range opt.Keywords {
		if strings.Contains(kw, q) {
			return true
		}
	}
	return false
}

// menuState tracks an open slash-command menu. start/end delimit the trigger
// substring ("/" plus the query) inside the block's content, so committing
// can strip exactly what the user typed.
type menuState struct {
	open     bool
	blockID  string
	query    string
	start    int
	end      int
	selected int
}

// slashTrigger reports whether text has an active slash command before
// cursor: a "/" at the start of the text or immediately after whitespace.
// Returns the slash position and the query typed after it.
func slashTrigger(text string, cursor int) (start int, query string, ok bool) {
	if cursor < 0 {
		cursor = 0
	}
	if cursor > len(text) {
		cursor = len(text)
	}
	before := text[:cursor]
	idx := strings.LastIndex(before, "/")
	if idx == -1 {
		return 0, "", false
	}
	if idx > 0 {
		prev := before[idx-1]
		if prev != ' ' && prev != '\t' && prev != '\n' {
			return 0, "", false
		}
	}
	return idx, before[idx+1:], true
}
