package app

import (
	"context"
	"io"
	"net/http"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"inkwell/api/internal/block"
	"inkwell/api/internal/editor"
	"inkwell/api/internal/export"
	"inkwell/api/internal/history"
	"inkwell/api/internal/rbac"
	"inkwell/api/internal/search"
	"inkwell/api/internal/store"
	"inkwell/api/internal/util"
)

// pagePerms loads a page and resolves the caller's access through the page's
// workspace.
func (s *Service) pagePerms(ctx context.Context, sess Session, pageID string) (store.Page, rbac.PermissionCheck, error) {
	page, err := s.store.GetPage(ctx, pageID)
	if err != nil {
		return store.Page{}, rbac.PermissionCheck{}, err
	}
	ws, err := s.store.GetWorkspace(ctx, page.WorkspaceID)
	if err != nil {
		return store.Page{}, rbac.PermissionCheck{}, err
	}
	return page, ws.Permissions(sess.UserID), nil
}

type CreatePageInput struct {
	Title    string  `json:"title"`
	Icon     string  `json:"icon"`
	ParentID *string `json:"parentId"`
}

func (in CreatePageInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.Length(0, 300)),
		validation.Field(&in.Icon, validation.Length(0, 16)),
	)
}

func (s *Service) CreatePage(ctx context.Context, sess Session, workspaceID string, in CreatePageInput) (store.Page, error) {
	if err := in.Validate(); err != nil {
		return store.Page{}, validationError(err)
	}

	ws, perms, err := s.workspaceFor(ctx, sess, workspaceID)
	if err != nil {
		return store.Page{}, err
	}
	if !perms.CanEdit {
		return store.Page{}, errForbidden
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = "Untitled"
	}

	if in.ParentID != nil {
		parent, err := s.store.GetPage(ctx, *in.ParentID)
		if err != nil {
			return store.Page{}, err
		}
		if parent.WorkspaceID != ws.ID {
			return store.Page{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "parent page belongs to another workspace", nil)
		}
	}

	page := store.Page{
		ID:          util.NewID("pg"),
		WorkspaceID: ws.ID,
		Title:       title,
		Icon:        in.Icon,
		Blocks:      editor.Normalize(nil),
		ParentID:    in.ParentID,
		CreatedBy:   sess.UserID,
		UpdatedBy:   sess.UserID,
	}
	if err := s.store.CreatePage(ctx, page); err != nil {
		return store.Page{}, err
	}

	if err := s.history.EnsurePageRepo(page.ID, history.Snapshot{Title: page.Title, Blocks: page.Blocks}, sess.UserName); err != nil {
		s.log.WithFields(map[string]interface{}{
			"page":  page.ID,
			"error": err.Error(),
		}).Warn("page history init failed")
	}
	s.indexPage(page)

	return page, nil
}

func (s *Service) ListPages(ctx context.Context, sess Session, workspaceID string) ([]store.PageTreeNode, error) {
	_, perms, err := s.workspaceFor(ctx, sess, workspaceID)
	if err != nil {
		return nil, err
	}
	if !perms.CanView {
		return nil, errForbidden
	}
	rows, err := s.store.ListPages(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	return store.BuildPageTree(rows), nil
}

func (s *Service) GetPage(ctx context.Context, sess Session, pageID string) (store.Page, error) {
	page, perms, err := s.pagePerms(ctx, sess, pageID)
	if err != nil {
		return store.Page{}, err
	}
	if !perms.CanView {
		return store.Page{}, errForbidden
	}
	return page, nil
}

type SavePageInput struct {
	Title  string        `json:"title"`
	Blocks []block.Block `json:"blocks"`
}

func (in SavePageInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.Required, validation.Length(1, 300)),
	)
}

// SavePage persists the full block list, commits a history snapshot, and
// refreshes the search index.
func (s *Service) SavePage(ctx context.Context, sess Session, pageID string, in SavePageInput) (store.Page, error) {
	if err := in.Validate(); err != nil {
		return store.Page{}, validationError(err)
	}

	page, perms, err := s.pagePerms(ctx, sess, pageID)
	if err != nil {
		return store.Page{}, err
	}
	if !perms.CanEdit {
		return store.Page{}, errForbidden
	}

	page.Title = strings.TrimSpace(in.Title)
	page.Blocks = editor.Normalize(in.Blocks)
	page.UpdatedBy = sess.UserID

	if err := s.store.SavePageBlocks(ctx, page.ID, page.Title, page.Blocks, sess.UserID); err != nil {
		return store.Page{}, err
	}

	if _, err := s.history.Commit(page.ID, history.Snapshot{Title: page.Title, Blocks: page.Blocks}, sess.UserName, "Save page"); err != nil {
		s.log.WithFields(map[string]interface{}{
			"page":  page.ID,
			"error": err.Error(),
		}).Warn("page history commit failed")
	}
	s.indexPage(page)

	return page, nil
}

type RenamePageInput struct {
	Title string `json:"title"`
}

func (in RenamePageInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.Required, validation.Length(1, 300)),
	)
}

func (s *Service) RenamePage(ctx context.Context, sess Session, pageID string, in RenamePageInput) (store.Page, error) {
	if err := in.Validate(); err != nil {
		return store.Page{}, validationError(err)
	}

	page, perms, err := s.pagePerms(ctx, sess, pageID)
	if err != nil {
		return store.Page{}, err
	}
	if !perms.CanEdit {
		return store.Page{}, errForbidden
	}

	page.Title = strings.TrimSpace(in.Title)
	page.UpdatedBy = sess.UserID
	if err := s.store.UpdatePageTitle(ctx, page.ID, page.Title, page.Blocks, sess.UserID); err != nil {
		return store.Page{}, err
	}

	if _, err := s.history.Commit(page.ID, history.Snapshot{Title: page.Title, Blocks: page.Blocks}, sess.UserName, "Rename page"); err != nil {
		s.log.WithFields(map[string]interface{}{
			"page":  page.ID,
			"error": err.Error(),
		}).Warn("page history commit failed")
	}
	s.indexPage(page)

	return page, nil
}

type MovePageInput struct {
	ParentID  *string `json:"parentId"`
	SortOrder int     `json:"sortOrder"`
}

// MovePage reparents and reorders a page. Cycles are rejected by walking the
// proposed ancestor chain.
func (s *Service) MovePage(ctx context.Context, sess Session, pageID string, in MovePageInput) error {
	page, perms, err := s.pagePerms(ctx, sess, pageID)
	if err != nil {
		return err
	}
	if !perms.CanEdit {
		return errForbidden
	}

	if in.ParentID != nil {
		if *in.ParentID == page.ID {
			return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "a page cannot be its own parent", nil)
		}
		ancestor := *in.ParentID
		for depth := 0; depth < 64 && ancestor != ""; depth++ {
			node, err := s.store.GetPage(ctx, ancestor)
			if err != nil {
				return err
			}
			if node.WorkspaceID != page.WorkspaceID {
				return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "parent page belongs to another workspace", nil)
			}
			if node.ID == page.ID {
				return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "move would create a cycle", nil)
			}
			if node.ParentID == nil {
				break
			}
			ancestor = *node.ParentID
		}
	}

	return s.store.MovePage(ctx, page.ID, in.ParentID, in.SortOrder)
}

// DeletePage removes a page and its whole subtree, then scrubs the subtree
// from the search index.
func (s *Service) DeletePage(ctx context.Context, sess Session, pageID string) error {
	page, perms, err := s.pagePerms(ctx, sess, pageID)
	if err != nil {
		return err
	}
	if !perms.CanEdit {
		return errForbidden
	}

	doomed := []string{page.ID}
	if rows, err := s.store.ListPages(ctx, page.WorkspaceID); err == nil {
		doomed = subtreeIDs(rows, page.ID)
	}

	if err := s.store.DeletePage(ctx, page.ID); err != nil {
		return err
	}
	for _, id := range doomed {
		s.search.DeletePage(id)
	}
	return nil
}

// subtreeIDs returns the page and every descendant, from flat summaries.
func subtreeIDs(rows []store.PageSummary, rootID string) []string {
	children := make(map[string][]string)
	for _, r := range rows {
		if r.ParentID != nil {
			children[*r.ParentID] = append(children[*r.ParentID], r.ID)
		}
	}
	ids := []string{rootID}
	for i := 0; i < len(ids); i++ {
		ids = append(ids, children[ids[i]]...)
	}
	return ids
}

func (s *Service) indexPage(page store.Page) {
	var text strings.Builder
	for _, b := range page.Blocks {
		if t := block.PlainText(b); t != "" {
			if text.Len() > 0 {
				text.WriteByte(' ')
			}
			text.WriteString(t)
		}
	}
	s.search.IndexPage(search.PageRecord{
		ID:          page.ID,
		WorkspaceID: page.WorkspaceID,
		Title:       page.Title,
		Text:        text.String(),
	})
}

// SearchPages searches one workspace the caller can view.
func (s *Service) SearchPages(ctx context.Context, sess Session, workspaceID, q string, limit, offset int) (search.Response, error) {
	_, perms, err := s.workspaceFor(ctx, sess, workspaceID)
	if err != nil {
		return search.Response{}, err
	}
	if !perms.CanView {
		return search.Response{}, errForbidden
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.search.Search(search.Query{Text: q, WorkspaceID: workspaceID, Limit: limit, Offset: offset}), nil
}

func (s *Service) PageHistory(ctx context.Context, sess Session, pageID string, limit int) ([]history.CommitInfo, error) {
	_, perms, err := s.pagePerms(ctx, sess, pageID)
	if err != nil {
		return nil, err
	}
	if !perms.CanView {
		return nil, errForbidden
	}
	entries, err := s.history.History(pageID, limit)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []history.CommitInfo{}
	}
	return entries, nil
}

func (s *Service) PageContentAt(ctx context.Context, sess Session, pageID, hash string) (history.Snapshot, error) {
	_, perms, err := s.pagePerms(ctx, sess, pageID)
	if err != nil {
		return history.Snapshot{}, err
	}
	if !perms.CanView {
		return history.Snapshot{}, errForbidden
	}
	return s.history.ContentAt(pageID, hash)
}

func (s *Service) ExportPage(ctx context.Context, sess Session, pageID string, format export.Format) (*export.Result, error) {
	_, perms, err := s.pagePerms(ctx, sess, pageID)
	if err != nil {
		return nil, err
	}
	if !perms.CanView {
		return nil, errForbidden
	}
	return s.export.Export(ctx, export.Request{PageID: pageID, Format: format})
}

// UploadImage stores an image for an image block and returns its URL.
func (s *Service) UploadImage(ctx context.Context, sess Session, workspaceID, contentType string, size int64, body io.Reader) (string, error) {
	if s.uploads == nil {
		return "", domainError(http.StatusServiceUnavailable, "UPLOADS_UNAVAILABLE", "Object storage is not configured", nil)
	}
	_, perms, err := s.workspaceFor(ctx, sess, workspaceID)
	if err != nil {
		return "", err
	}
	if !perms.CanEdit {
		return "", errForbidden
	}
	url, err := s.uploads.Upload(ctx, workspaceID, contentType, size, body)
	if err != nil {
		return "", domainError(http.StatusUnprocessableEntity, "UPLOAD_REJECTED", err.Error(), nil)
	}
	return url, nil
}

// MenuOptions serves the slash-command catalog, filtered by query.
func (s *Service) MenuOptions(query string) []editor.Option {
	opts := editor.FilterOptions(query)
	if opts == nil {
		opts = []editor.Option{}
	}
	return opts
}

// exportPageStore adapts the data store for the export renderer.
type exportPageStore struct {
	store dataStore
}

func (e exportPageStore) GetExportPage(ctx context.Context, pageID string) (export.PageInfo, error) {
	page, err := e.store.GetPage(ctx, pageID)
	if err != nil {
		return export.PageInfo{}, err
	}
	ws, err := e.store.GetWorkspace(ctx, page.WorkspaceID)
	if err != nil {
		return export.PageInfo{}, err
	}
	return export.PageInfo{
		ID:            page.ID,
		Title:         page.Title,
		WorkspaceID:   page.WorkspaceID,
		WorkspaceName: ws.Name,
		Blocks:        page.Blocks,
		UpdatedAt:     page.UpdatedAt,
	}, nil
}
