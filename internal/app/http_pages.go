package app

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"inkwell/api/internal/export"
	"inkwell/api/internal/history"
	"inkwell/api/internal/store"
)

func (s *HTTPServer) handlePageRoutes(w http.ResponseWriter, r *http.Request, sess Session, parts []string) {
	pageID := parts[0]

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			page, err := s.service.GetPage(r.Context(), sess, pageID)
			if err != nil {
				status, code, message, details := mapError(err)
				writeError(w, status, code, message, details)
				return
			}
			writeJSON(w, http.StatusOK, pagePayload(page))
		case http.MethodPut:
			var body SavePageInput
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			page, err := s.service.SavePage(r.Context(), sess, pageID, body)
			if err != nil {
				status, code, message, details := mapError(err)
				writeError(w, status, code, message, details)
				return
			}
			writeJSON(w, http.StatusOK, pagePayload(page))
		case http.MethodDelete:
			if err := s.service.DeletePage(r.Context(), sess, pageID); err != nil {
				status, code, message, details := mapError(err)
				writeError(w, status, code, message, details)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
		return
	}

	if len(parts) == 2 && parts[1] == "rename" {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
			return
		}
		var body RenamePageInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		page, err := s.service.RenamePage(r.Context(), sess, pageID, body)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, pagePayload(page))
		return
	}

	if len(parts) == 2 && parts[1] == "move" {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
			return
		}
		var body MovePageInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		if err := s.service.MovePage(r.Context(), sess, pageID, body); err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if len(parts) == 2 && parts[1] == "export" {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
			return
		}
		var body struct {
			Format string `json:"format"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		format := export.Format(body.Format)
		if !export.ValidFormat(format) {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "format must be 'html', 'markdown', or 'pdf'", nil)
			return
		}
		result, err := s.service.ExportPage(r.Context(), sess, pageID, format)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		w.Header().Set("Content-Disposition", "attachment; filename=\""+result.Filename+"\"")
		w.Header().Set("Content-Type", result.MimeType)
		w.Write(result.Data)
		return
	}

	if len(parts) == 2 && parts[1] == "history" {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
			return
		}
		limit := 50
		if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "limit must be an integer", nil)
				return
			}
			limit = parsed
		}
		entries, err := s.service.PageHistory(r.Context(), sess, pageID, limit)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"history": historyPayload(entries)})
		return
	}

	if len(parts) == 3 && parts[1] == "history" {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
			return
		}
		snap, err := s.service.PageContentAt(r.Context(), sess, pageID, parts[2])
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"title":  snap.Title,
			"blocks": snap.Blocks,
		})
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func pagePayload(page store.Page) map[string]any {
	payload := map[string]any{
		"id":          page.ID,
		"workspaceId": page.WorkspaceID,
		"title":       page.Title,
		"icon":        page.Icon,
		"blocks":      page.Blocks,
		"parentId":    page.ParentID,
		"sortOrder":   page.SortOrder,
		"isPublic":    page.IsPublic,
		"createdBy":   page.CreatedBy,
		"createdAt":   page.CreatedAt.UTC().Format(time.RFC3339),
		"updatedAt":   page.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if page.UpdatedBy != "" {
		payload["updatedBy"] = page.UpdatedBy
	}
	return payload
}

func pageTreePayload(nodes []store.PageTreeNode) []map[string]any {
	out := make([]map[string]any, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, map[string]any{
			"id":        n.ID,
			"title":     n.Title,
			"icon":      n.Icon,
			"parentId":  n.ParentID,
			"sortOrder": n.SortOrder,
			"updatedAt": n.UpdatedAt.UTC().Format(time.RFC3339),
			"children":  pageTreePayload(n.Children),
		})
	}
	return out
}

func historyPayload(entries []history.CommitInfo) []map[string]any {
	out := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		out = append(out, map[string]any{
			"hash":      e.Hash,
			"message":   e.Message,
			"author":    e.Author,
			"createdAt": e.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return out
}
