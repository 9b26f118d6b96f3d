package app

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"inkwell/api/internal/rbac"
)

func TestPageLifecycleOverHTTP(t *testing.T) {
	fs := newFakeStore()
	server, _ := newTestServer(t, fs)
	ws, users := seedWorkspaceWithRoles(t, fs)
	token := tokenFor(t, users[rbac.RoleMember])

	// Create
	rr := doJSON(t, server, http.MethodPost, "/api/workspaces/"+ws.ID+"/pages", token, `{"title":"Trip Notes"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create page: expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	created := decodePayload(t, rr)
	pageID, _ := created["id"].(string)
	if pageID == "" {
		t.Fatalf("missing page id in %v", created)
	}
	// A new page starts with one empty paragraph.
	if blocks, ok := created["blocks"].([]any); !ok || len(blocks) != 1 {
		t.Fatalf("expected one seed block, got %v", created["blocks"])
	}

	// Save blocks
	saveBody := `{"title":"Trip Notes","blocks":[{"id":"b1","type":"heading1","content":"Day One"},{"id":"b2","type":"paragraph","content":"We arrived at noon."}]}`
	rr = doJSON(t, server, http.MethodPut, "/api/pages/"+pageID, token, saveBody)
	if rr.Code != http.StatusOK {
		t.Fatalf("save page: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	// Read back
	rr = doJSON(t, server, http.MethodGet, "/api/pages/"+pageID, token, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("get page: expected 200, got %d", rr.Code)
	}
	got := decodePayload(t, rr)
	if blocks, ok := got["blocks"].([]any); !ok || len(blocks) != 2 {
		t.Fatalf("expected 2 blocks after save, got %v", got["blocks"])
	}

	// Rename
	rr = doJSON(t, server, http.MethodPost, "/api/pages/"+pageID+"/rename", token, `{"title":"Travel Journal"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("rename page: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	// History records the initial snapshot plus both edits, newest first.
	rr = doJSON(t, server, http.MethodGet, "/api/pages/"+pageID+"/history", token, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("history: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	histPayload := decodePayload(t, rr)
	entries, ok := histPayload["history"].([]any)
	if !ok || len(entries) != 3 {
		t.Fatalf("expected 3 history entries, got %v", histPayload["history"])
	}
	head, _ := entries[0].(map[string]any)
	headHash, _ := head["hash"].(string)
	if headHash == "" {
		t.Fatalf("missing commit hash in %v", head)
	}

	// Snapshot content at head carries the rename.
	rr = doJSON(t, server, http.MethodGet, "/api/pages/"+pageID+"/history/"+headHash, token, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("content at: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	snap := decodePayload(t, rr)
	if snap["title"] != "Travel Journal" {
		t.Fatalf("snapshot title = %v, want Travel Journal", snap["title"])
	}

	// Delete
	rr = doJSON(t, server, http.MethodDelete, "/api/pages/"+pageID, token, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("delete page: expected 200, got %d", rr.Code)
	}
	rr = doJSON(t, server, http.MethodGet, "/api/pages/"+pageID, token, "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("get deleted page: expected 404, got %d", rr.Code)
	}
}

func TestPageTreeAndMove(t *testing.T) {
	fs := newFakeStore()
	server, svc := newTestServer(t, fs)
	ws, users := seedWorkspaceWithRoles(t, fs)
	sess := sessionFor(users[rbac.RoleMember])
	token := tokenFor(t, users[rbac.RoleMember])
	ctx := context.Background()

	parent, err := svc.CreatePage(ctx, sess, ws.ID, CreatePageInput{Title: "Parent"})
	if err != nil {
		t.Fatalf("create parent: %v", err)
	}
	child, err := svc.CreatePage(ctx, sess, ws.ID, CreatePageInput{Title: "Child", ParentID: &parent.ID})
	if err != nil {
		t.Fatalf("create child: %v", err)
	}

	rr := doJSON(t, server, http.MethodGet, "/api/workspaces/"+ws.ID+"/pages", token, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("list pages: expected 200, got %d", rr.Code)
	}
	payload := decodePayload(t, rr)
	roots, ok := payload["pages"].([]any)
	if !ok || len(roots) != 1 {
		t.Fatalf("expected 1 root page, got %v", payload["pages"])
	}
	root, _ := roots[0].(map[string]any)
	children, _ := root["children"].([]any)
	if len(children) != 1 {
		t.Fatalf("expected 1 child under root, got %v", root["children"])
	}

	// Reparenting under a descendant is refused.
	rr = doJSON(t, server, http.MethodPost, "/api/pages/"+parent.ID+"/move", token,
		`{"parentId":"`+child.ID+`","sortOrder":0}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("cycle move: expected 422, got %d body=%s", rr.Code, rr.Body.String())
	}

	// Making the child a sibling works.
	rr = doJSON(t, server, http.MethodPost, "/api/pages/"+child.ID+"/move", token,
		`{"parentId":null,"sortOrder":1}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("move to root: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, server, http.MethodGet, "/api/workspaces/"+ws.ID+"/pages", token, "")
	payload = decodePayload(t, rr)
	if roots, _ := payload["pages"].([]any); len(roots) != 2 {
		t.Fatalf("expected 2 root pages after move, got %v", payload["pages"])
	}
}

func TestExportPageOverHTTP(t *testing.T) {
	fs := newFakeStore()
	server, svc := newTestServer(t, fs)
	ws, users := seedWorkspaceWithRoles(t, fs)
	sess := sessionFor(users[rbac.RoleMember])
	token := tokenFor(t, users[rbac.RoleGuest])
	ctx := context.Background()

	page, err := svc.CreatePage(ctx, sess, ws.ID, CreatePageInput{Title: "Trip Notes"})
	if err != nil {
		t.Fatalf("create page: %v", err)
	}
	if _, err := svc.SavePage(ctx, sess, page.ID, SavePageInput{Title: "Trip Notes"}); err != nil {
		t.Fatalf("save page: %v", err)
	}

	// Guests can read, so they can export.
	rr := doJSON(t, server, http.MethodPost, "/api/pages/"+page.ID+"/export", token, `{"format":"markdown"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("export: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	if disp := rr.Header().Get("Content-Disposition"); !strings.Contains(disp, "Trip-Notes.md") {
		t.Fatalf("unexpected Content-Disposition %q", disp)
	}
	if !strings.Contains(rr.Body.String(), "# Trip Notes") {
		t.Fatalf("markdown body missing title: %q", rr.Body.String())
	}

	rr = doJSON(t, server, http.MethodPost, "/api/pages/"+page.ID+"/export", token, `{"format":"docx"}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad format: expected 422, got %d", rr.Code)
	}
}

func TestInvitationLifecycleOverHTTP(t *testing.T) {
	fs := newFakeStore()
	server, _ := newTestServer(t, fs)
	ws, users := seedWorkspaceWithRoles(t, fs)
	adminToken := tokenFor(t, users[rbac.RoleAdmin])

	rr := doJSON(t, server, http.MethodPost, "/api/workspaces/"+ws.ID+"/invitations", adminToken,
		`{"email":"newbie@example.com","role":"member"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("invite: expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	inv := decodePayload(t, rr)
	invToken, _ := inv["token"].(string)
	if invToken == "" {
		t.Fatalf("missing invitation token in %v", inv)
	}

	newbie := seedUser(t, fs, "Nina Newbie", "newbie@example.com")
	imposter := seedUser(t, fs, "Ivan Imposter", "imposter@example.com")

	// The invitation is bound to the invited email.
	rr = doJSON(t, server, http.MethodPost, "/api/invitations/"+invToken+"/accept", tokenFor(t, imposter), "")
	if rr.Code != http.StatusForbidden {
		t.Fatalf("imposter accept: expected 403, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, server, http.MethodPost, "/api/invitations/"+invToken+"/accept", tokenFor(t, newbie), "")
	if rr.Code != http.StatusOK {
		t.Fatalf("accept: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	got, err := fs.GetWorkspace(context.Background(), ws.ID)
	if err != nil {
		t.Fatalf("reload workspace: %v", err)
	}
	m := got.MemberByUser(newbie.ID)
	if m == nil {
		t.Fatal("accepted invitee is not a member")
	}
	if m.Role != rbac.RoleMember {
		t.Fatalf("invitee role = %s, want member", m.Role)
	}

	// A resolved invitation cannot be used again.
	rr = doJSON(t, server, http.MethodPost, "/api/invitations/"+invToken+"/accept", tokenFor(t, newbie), "")
	if rr.Code != http.StatusConflict {
		t.Fatalf("re-accept: expected 409, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestGuestInvitesBlockedBySettings(t *testing.T) {
	fs := newFakeStore()
	server, _ := newTestServer(t, fs)
	ws, users := seedWorkspaceWithRoles(t, fs)
	ownerToken := tokenFor(t, users[rbac.RoleOwner])

	rr := doJSON(t, server, http.MethodPut, "/api/workspaces/"+ws.ID+"/settings", ownerToken,
		`{"allowGuestInvites":false,"defaultPermission":"can_view"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("update settings: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, server, http.MethodPost, "/api/workspaces/"+ws.ID+"/invitations", ownerToken,
		`{"email":"visitor@example.com","role":"guest"}`)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("guest invite: expected 403, got %d body=%s", rr.Code, rr.Body.String())
	}
	if payload := decodePayload(t, rr); payload["code"] != "GUEST_INVITES_DISABLED" {
		t.Fatalf("expected GUEST_INVITES_DISABLED, got %v", payload["code"])
	}
}

func TestSearchRequiresWorkspaceMembership(t *testing.T) {
	fs := newFakeStore()
	server, _ := newTestServer(t, fs)
	ws, users := seedWorkspaceWithRoles(t, fs)
	stranger := seedUser(t, fs, "Sam Stranger", "stranger2@example.com")

	rr := doJSON(t, server, http.MethodGet, "/api/search?q=notes&workspaceId="+ws.ID, tokenFor(t, stranger), "")
	if rr.Code != http.StatusForbidden {
		t.Fatalf("stranger search: expected 403, got %d", rr.Code)
	}

	rr = doJSON(t, server, http.MethodGet, "/api/search?q=notes&workspaceId="+ws.ID, tokenFor(t, users[rbac.RoleGuest]), "")
	if rr.Code != http.StatusOK {
		t.Fatalf("guest search: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, server, http.MethodGet, "/api/search?q=notes", tokenFor(t, users[rbac.RoleGuest]), "")
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("search without workspace: expected 422, got %d", rr.Code)
	}
}

func TestEditorMenuEndpoint(t *testing.T) {
	fs := newFakeStore()
	server, _ := newTestServer(t, fs)
	_, users := seedWorkspaceWithRoles(t, fs)
	token := tokenFor(t, users[rbac.RoleMember])

	rr := doJSON(t, server, http.MethodGet, "/api/editor/menu", token, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("menu: expected 200, got %d", rr.Code)
	}
	payload := decodePayload(t, rr)
	options, ok := payload["options"].([]any)
	if !ok || len(options) != 8 {
		t.Fatalf("expected full catalog of 8 options, got %v", payload["options"])
	}

	rr = doJSON(t, server, http.MethodGet, "/api/editor/menu?q=head", token, "")
	payload = decodePayload(t, rr)
	options, _ = payload["options"].([]any)
	if len(options) != 3 {
		t.Fatalf("expected 3 heading options for 'head', got %d", len(options))
	}
}

func TestRenameRebuildsSearchText(t *testing.T) {
	fs := newFakeStore()
	server, _ := newTestServer(t, fs)
	ws, users := seedWorkspaceWithRoles(t, fs)
	token := tokenFor(t, users[rbac.RoleMember])

	rr := doJSON(t, server, http.MethodPost, "/api/workspaces/"+ws.ID+"/pages", token, `{"title":"Trip Notes"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create page: expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	pageID, _ := decodePayload(t, rr)["id"].(string)

	saveBody := `{"title":"Trip Notes","blocks":[{"id":"b1","type":"paragraph","content":"packing list"}]}`
	rr = doJSON(t, server, http.MethodPut, "/api/pages/"+pageID, token, saveBody)
	if rr.Code != http.StatusOK {
		t.Fatalf("save page: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	for _, title := range []string{"Interim Title", "Travel Journal"} {
		rr = doJSON(t, server, http.MethodPost, "/api/pages/"+pageID+"/rename", token, `{"title":"`+title+`"}`)
		if rr.Code != http.StatusOK {
			t.Fatalf("rename to %q: expected 200, got %d body=%s", title, rr.Code, rr.Body.String())
		}
	}

	text := fs.searchText[pageID]
	if !strings.Contains(text, "Travel Journal") || !strings.Contains(text, "packing list") {
		t.Fatalf("search text missing current title or block text: %q", text)
	}
	for _, stale := range []string{"Trip Notes", "Interim Title"} {
		if strings.Contains(text, stale) {
			t.Fatalf("search text still matches former title %q: %q", stale, text)
		}
	}
}

func TestPageTracksLastEditor(t *testing.T) {
	fs := newFakeStore()
	server, svc := newTestServer(t, fs)
	ws, users := seedWorkspaceWithRoles(t, fs)
	member := users[rbac.RoleMember]
	admin := users[rbac.RoleAdmin]

	page, err := svc.CreatePage(context.Background(), sessionFor(member), ws.ID, CreatePageInput{Title: "Minutes"})
	if err != nil {
		t.Fatalf("create page: %v", err)
	}
	if page.UpdatedBy != member.ID {
		t.Fatalf("new page UpdatedBy = %q, want creator %q", page.UpdatedBy, member.ID)
	}

	rr := doJSON(t, server, http.MethodPut, "/api/pages/"+page.ID, tokenFor(t, admin), `{"title":"Minutes","blocks":[]}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("save page: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	payload := decodePayload(t, rr)
	if payload["updatedBy"] != admin.ID {
		t.Fatalf("updatedBy = %v, want %q", payload["updatedBy"], admin.ID)
	}
	if isPublic, ok := payload["isPublic"].(bool); !ok || isPublic {
		t.Fatalf("isPublic = %v, want false", payload["isPublic"])
	}

	rr = doJSON(t, server, http.MethodPost, "/api/pages/"+page.ID+"/rename", tokenFor(t, member), `{"title":"Meeting Minutes"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("rename page: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	if got := decodePayload(t, rr)["updatedBy"]; got != member.ID {
		t.Fatalf("updatedBy after rename = %v, want %q", got, member.ID)
	}
}
