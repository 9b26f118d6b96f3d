// Package export renders pages to HTML, Markdown, and PDF.
package export

import (
	"errors"
	"time"

	"inkwell/api/internal/block"
)

// Format represents the export output format.
type Format string

const (
	FormatHTML     Format = "html"
	FormatMarkdown Format = "markdown"
	FormatPDF      Format = "pdf"
)

func ValidFormat(f Format) bool {
	switch f {
	case FormatHTML, FormatMarkdown, FormatPDF:
		return true
	default:
		return false
	}
}

// Request contains parameters for an export operation.
type Request struct {
	PageID string
	Format Format
}

// PageInfo is the page data the exporter needs.
type PageInfo struct {
	ID            string
	Title         string
	WorkspaceID   string
	WorkspaceName string
	Blocks        []block.Block
	UpdatedAt     time.Time
}

// Result contains the export output.
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

var (
	// ErrContentUnavailable indicates page content could not be loaded.
	ErrContentUnavailable = errors.New("export content unavailable")
	// ErrPDFDependencyMissing indicates PDF export runtime dependencies are unavailable.
	ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
)
