package export

import (
	"context"
	"fmt"
	"html/template"
)

// PageStore loads the page data the exporter needs.
type PageStore interface {
	GetExportPage(ctx context.Context, pageID string) (PageInfo, error)
}

// Service provides page export functionality.
type Service struct {
	store PageStore
}

func NewService(store PageStore) *Service {
	return &Service{store: store}
}

// Export generates an export in the requested format.
func (s *Service) Export(ctx context.Context, req Request) (*Result, error) {
	info, err := s.store.GetExportPage(ctx, req.PageID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrContentUnavailable, err)
	}

	switch req.Format {
	case FormatMarkdown:
		md := BlocksToMarkdown(info.Title, info.Blocks)
		return &Result{
			Data:     []byte(md),
			Filename: sanitizeFilename(info.Title) + ".md",
			MimeType: "text/markdown; charset=utf-8",
		}, nil
	case FormatHTML, FormatPDF:
		doc, err := RenderPageHTML(TemplateData{
			Title:         info.Title,
			WorkspaceName: info.WorkspaceName,
			ContentHTML:   template.HTML(BlocksToHTML(info.Blocks)),
			UpdatedAt:     info.UpdatedAt,
		})
		if err != nil {
			return nil, fmt.Errorf("render template: %w", err)
		}
		if req.Format == FormatHTML {
			return &Result{
				Data:     []byte(doc),
				Filename: sanitizeFilename(info.Title) + ".html",
				MimeType: "text/html; charset=utf-8",
			}, nil
		}
		return exportPDF(doc, info.Title)
	default:
		return nil, fmt.Errorf("unsupported format: %s", req.Format)
	}
}
