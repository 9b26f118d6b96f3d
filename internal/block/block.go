// Package block defines the content block model for pages: a discriminated
// union of typed blocks plus the pure operations the editor applies to them.
// Every consumer switches exhaustively on Type; adding a variant means
// extending those switches, never probing for payload fields at runtime.
package block

import (
	"time"

	"inkwell/api/internal/util"
)

type Type string

const (
	TypeParagraph    Type = "paragraph"
	TypeHeading1     Type = "heading1"
	TypeHeading2     Type = "heading2"
	TypeHeading3     Type = "heading3"
	TypeBulletList   Type = "bulletList"
	TypeNumberedList Type = "numberedList"
	TypeImage        Type = "image"
	TypeTable        Type = "table"
	TypeEmbed        Type = "embed"
	TypeCode         Type = "code"
)

// Types lists every block variant in catalog order.
var Types = []Type{
	TypeParagraph,
	TypeHeading1,
	TypeHeading2,
	TypeHeading3,
	TypeBulletList,
	TypeNumberedList,
	TypeImage,
	TypeTable,
	TypeEmbed,
	TypeCode,
}

func ValidType(t Type) bool {
	switch t {
	case TypeParagraph, TypeHeading1, TypeHeading2, TypeHeading3,
		TypeBulletList, TypeNumberedList, TypeImage, TypeTable, TypeEmbed, TypeCode:
		return true
	default:
		return false
	}
}

// IsTextBearing reports whether the variant carries a Content field that
// survives type conversion.
func IsTextBearing(t Type) bool {
	switch t {
	case TypeParagraph, TypeHeading1, TypeHeading2, TypeHeading3, TypeBulletList, TypeNumberedList:
		return true
	default:
		return false
	}
}

type TableCell struct {
	Content string `json:"content"`
}

type TableRow struct {
	Cells []TableCell `json:"cells"`
}

// Block is one unit of page content. Type discriminates which payload
// fields are meaningful; the rest stay at their zero value.
type Block struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// paragraph, heading1/2/3, bulletList, numberedList
	Content string `json:"content,omitempty"`

	// image (URL shared with embed). An image with an empty URL is the
	// editing placeholder state.
	URL     string `json:"url,omitempty"`
	Alt     string `json:"alt,omitempty"`
	Caption string `json:"caption,omitempty"`

	// table
	Rows      []TableRow `json:"rows,omitempty"`
	HasHeader bool       `json:"hasHeader,omitempty"`

	// embed
	EmbedType EmbedProvider `json:"embedType,omitempty"`
	Title     string        `json:"title,omitempty"`

	// code
	Code     string `json:"code,omitempty"`
	Language string `json:"language,omitempty"`
}

// New creates a block of the given type with a fresh id and that type's
// default payload. Unknown types fall back to paragraph.
func New(t Type) Block {
	now := time.Now().UTC()
	b := Block{
		ID:        util.NewID("blk"),
		Type:      t,
		CreatedAt: now,
		UpdatedAt: now,
	}

	switch t {
	case TypeParagraph, TypeHeading1, TypeHeading2, TypeHeading3, TypeBulletList, TypeNumberedList:
		// Content starts empty.
	case TypeImage:
		// URL empty: placeholder until the user uploads or links an image.
	case TypeTable:
		b.Rows = []TableRow{
			{Cells: []TableCell{{}, {}}},
			{Cells: []TableCell{{}, {}}},
		}
		b.HasHeader = true
	case TypeEmbed:
		b.EmbedType = EmbedGeneric
	case TypeCode:
		b.Language = DefaultLanguage
	default:
		b.Type = TypeParagraph
	}
	return b
}

// Patch carries a partial block update. Nil fields are left untouched.
type Patch struct {
	Content   *string
	URL       *string
	Alt       *string
	Caption   *string
	Rows      *[]TableRow
	HasHeader *bool
	EmbedType *EmbedProvider
	Title     *string
	Code      *string
	Language  *string
}

// Merge returns a copy of b with the patch applied and UpdatedAt refreshed.
// The input block is never mutated.
func Merge(b Block, patch Patch) Block {
	out := b
	if patch.Content != nil {
		out.Content = *patch.Content
	}
	if patch.URL != nil {
		out.URL = *patch.URL
		if out.Type == TypeEmbed {
			out.EmbedType = DetectEmbedType(out.URL)
		}
	}
	if patch.Alt != nil {
		out.Alt = *patch.Alt
	}
	if patch.Caption != nil {
		out.Caption = *patch.Caption
	}
	if patch.Rows != nil {
		out.Rows = copyRows(*patch.Rows)
	}
	if patch.HasHeader != nil {
		out.HasHeader = *patch.HasHeader
	}
	if patch.EmbedType != nil {
		out.EmbedType = *patch.EmbedType
	}
	if patch.Title != nil {
		out.Title = *patch.Title
	}
	if patch.Code != nil {
		out.Code = *patch.Code
	}
	if patch.Language != nil {
		out.Language = NormalizeLanguage(*patch.Language)
	}
	out.UpdatedAt = time.Now().UTC()
	return out
}

// Convert produces a block of newType that keeps b's identity so focus and
// position tracking survive the conversion. Content carries over when and
// only when both ends are text-bearing; any other pairing starts from the
// destination type's default payload. Conversion never fails.
func Convert(b Block, newType Type) Block {
	out := New(newType)
	out.ID = b.ID
	if IsTextBearing(b.Type) && IsTextBearing(out.Type) {
		out.Content = b.Content
	}
	return out
}

// Rectangular reports whether every table row has the same cell count. Only
// meaningful for table blocks; other variants are trivially rectangular.
func Rectangular(b Block) bool {
	if b.Type != TypeTable || len(b.Rows) == 0 {
		return true
	}
	width := len(b.Rows[0].Cells)
	for _, row := range b.Rows[1:] {
		if len(row.Cells) != width {
			return false
		}
	}
	return true
}

// PlainText extracts the searchable text of a block.
func PlainText(b Block) string {
	switch b.Type {
	case TypeParagraph, TypeHeading1, TypeHeading2, TypeHeading3, TypeBulletList, TypeNumberedList:
		return b.Content
	case TypeImage:
		return joinNonEmpty(b.Alt, b.Caption)
	case TypeTable:
		var parts []string
		for _, row := range b.Rows {
			for _, cell := range row.Cells {
				if cell.Content != "" {
					parts = append(parts, cell.Content)
				}
			}
		}
		return joinNonEmpty(parts...)
	case TypeEmbed:
		return b.Title
	case TypeCode:
		return b.Code
	default:
		return ""
	}
}

func joinNonEmpty(parts ...string) string {
	out := ""
	for _, p := range parts {
		if p == "" {
			continue
		}
		if out != "" {
			out += " "
		}
		out += p
	}
	return out
}

func copyRows(rows []TableRow) []TableRow {
	out := make([]TableRow, len(rows))
	for i, row := range rows {
		cells := make([]TableCell, len(row.Cells))
		copy(cells, row.Cells)
		out[i] = TableRow{Cells: cells}
	}
	return out
}
