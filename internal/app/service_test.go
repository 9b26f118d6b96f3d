package app

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"inkwell/api/internal/auth"
	"inkwell/api/internal/authpw"
	"inkwell/api/internal/block"
	"inkwell/api/internal/config"
	"inkwell/api/internal/email"
	"inkwell/api/internal/history"
	"inkwell/api/internal/rbac"
	"inkwell/api/internal/session"
	"inkwell/api/internal/store"
	"inkwell/api/internal/util"
	"inkwell/api/internal/workspace"
	"inkwell/api/pkg/logger"
)

type passwordReset struct {
	userID    string
	expiresAt time.Time
	used      bool
}

// fakeStore is an in-memory double for both the data store and the auth
// user store.
type fakeStore struct {
	mu          sync.Mutex
	users       map[string]store.User
	emailIndex  map[string]string
	resets      map[string]passwordReset
	workspaces  map[string]workspace.Workspace
	invitations map[string]workspace.Invitation
	pages       map[string]store.Page
	searchText  map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:       make(map[string]store.User),
		emailIndex:  make(map[string]string),
		resets:      make(map[string]passwordReset),
		workspaces:  make(map[string]workspace.Workspace),
		invitations: make(map[string]workspace.Invitation),
		pages:       make(map[string]store.Page),
		searchText:  make(map[string]string),
	}
}

// fakeSearchText mirrors the store's rebuild-from-scratch contract for the
// FTS column: title plus the flattened block text, nothing carried over.
func fakeSearchText(title string, blocks []block.Block) string {
	text := title
	for _, b := range blocks {
		if t := block.PlainText(b); t != "" {
			text += " " + t
		}
	}
	return text
}

func (f *fakeStore) Ping(context.Context) error { return nil }

func (f *fakeStore) CreateUser(_ context.Context, user store.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[user.ID] = user
	f.emailIndex[strings.ToLower(user.Email)] = user.ID
	return nil
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id, ok := f.emailIndex[strings.ToLower(email)]; ok {
		return f.users[id], nil
	}
	return store.User{}, store.ErrNotFound
}

func (f *fakeStore) GetUserByID(_ context.Context, id string) (store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if user, ok := f.users[id]; ok {
		return user, nil
	}
	return store.User{}, store.ErrNotFound
}

func (f *fakeStore) UpdateUserVerificationToken(_ context.Context, userID, token string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	user.VerificationToken = token
	user.VerificationExpiresAt = &expiresAt
	f.users[userID] = user
	return nil
}

func (f *fakeStore) VerifyUserEmail(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, user := range f.users {
		if user.VerificationToken == token && token != "" {
			if user.VerificationExpiresAt != nil && time.Now().After(*user.VerificationExpiresAt) {
				return store.ErrNotFound
			}
			user.IsEmailVerified = true
			user.VerificationToken = ""
			f.users[id] = user
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeStore) UpdateUserPassword(_ context.Context, userID, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	user.PasswordHash = passwordHash
	f.users[userID] = user
	return nil
}

func (f *fakeStore) CreatePasswordReset(_ context.Context, userID, token string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets[token] = passwordReset{userID: userID, expiresAt: expiresAt}
	return nil
}

func (f *fakeStore) GetPasswordReset(_ context.Context, token string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.resets[token]
	if !ok || r.used || time.Now().After(r.expiresAt) {
		return "", store.ErrNotFound
	}
	return r.userID, nil
}

func (f *fakeStore) MarkPasswordResetUsed(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.resets[token]
	if !ok {
		return store.ErrNotFound
	}
	r.used = true
	f.resets[token] = r
	return nil
}

func (f *fakeStore) CreateWorkspace(_ context.Context, ws workspace.Workspace) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.workspaces[ws.ID] = ws
	return nil
}

func (f *fakeStore) GetWorkspace(_ context.Context, id string) (workspace.Workspace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ws, ok := f.workspaces[id]; ok {
		return ws, nil
	}
	return workspace.Workspace{}, store.ErrNotFound
}

func (f *fakeStore) ListWorkspacesForUser(_ context.Context, userID string) ([]workspace.Workspace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []workspace.Workspace
	for _, ws := range f.workspaces {
		if m := ws.MemberByUser(userID); m != nil {
			scoped := ws
			scoped.Members = nil
			scoped.Role = m.Role
			out = append(out, scoped)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) UpdateWorkspace(_ context.Context, ws workspace.Workspace) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.workspaces[ws.ID]; !ok {
		return store.ErrNotFound
	}
	f.workspaces[ws.ID] = ws
	return nil
}

func (f *fakeStore) DeleteWorkspace(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.workspaces[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.workspaces, id)
	for pid, p := range f.pages {
		if p.WorkspaceID == id {
			delete(f.pages, pid)
		}
	}
	return nil
}

func (f *fakeStore) AddMember(_ context.Context, m workspace.Member) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ws, ok := f.workspaces[m.WorkspaceID]
	if !ok {
		return store.ErrNotFound
	}
	for _, existing := range ws.Members {
		if existing.UserID == m.UserID {
			return nil
		}
	}
	ws.Members = append(ws.Members, m)
	f.workspaces[m.WorkspaceID] = ws
	return nil
}

func (f *fakeStore) UpdateMember(_ context.Context, memberID string, role rbac.Role, permissions []rbac.Permission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, ws := range f.workspaces {
		for i := range ws.Members {
			if ws.Members[i].ID == memberID {
				ws.Members[i].Role = role
				ws.Members[i].Permissions = permissions
				f.workspaces[id] = ws
				return nil
			}
		}
	}
	return store.ErrNotFound
}

func (f *fakeStore) RemoveMember(_ context.Context, memberID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, ws := range f.workspaces {
		for i := range ws.Members {
			if ws.Members[i].ID == memberID {
				ws.Members = append(ws.Members[:i], ws.Members[i+1:]...)
				f.workspaces[id] = ws
				return nil
			}
		}
	}
	return store.ErrNotFound
}

func (f *fakeStore) CreateInvitation(_ context.Context, inv workspace.Invitation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invitations[inv.Token] = inv
	return nil
}

func (f *fakeStore) ListInvitations(_ context.Context, workspaceID string) ([]workspace.Invitation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []workspace.Invitation
	for _, inv := range f.invitations {
		if inv.WorkspaceID == workspaceID {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (f *fakeStore) GetInvitationByToken(_ context.Context, token string) (workspace.Invitation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if inv, ok := f.invitations[token]; ok {
		return inv, nil
	}
	return workspace.Invitation{}, store.ErrNotFound
}

func (f *fakeStore) UpdateInvitationStatus(_ context.Context, inv workspace.Invitation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.invitations[inv.Token]; !ok {
		return store.ErrNotFound
	}
	f.invitations[inv.Token] = inv
	return nil
}

func (f *fakeStore) CreatePage(_ context.Context, p store.Page) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	f.pages[p.ID] = p
	f.searchText[p.ID] = fakeSearchText(p.Title, p.Blocks)
	return nil
}

func (f *fakeStore) GetPage(_ context.Context, id string) (store.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.pages[id]; ok {
		return p, nil
	}
	return store.Page{}, store.ErrNotFound
}

func (f *fakeStore) ListPages(_ context.Context, workspaceID string) ([]store.PageSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.PageSummary
	for _, p := range f.pages {
		if p.WorkspaceID != workspaceID {
			continue
		}
		out = append(out, store.PageSummary{
			ID:        p.ID,
			Title:     p.Title,
			Icon:      p.Icon,
			ParentID:  p.ParentID,
			SortOrder: p.SortOrder,
			UpdatedAt: p.UpdatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (f *fakeStore) UpdatePageTitle(_ context.Context, id, title string, blocks []block.Block, updatedBy string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pages[id]
	if !ok {
		return store.ErrNotFound
	}
	p.Title = title
	p.UpdatedBy = updatedBy
	p.UpdatedAt = time.Now().UTC()
	f.pages[id] = p
	f.searchText[id] = fakeSearchText(title, blocks)
	return nil
}

func (f *fakeStore) SavePageBlocks(_ context.Context, id, title string, blocks []block.Block, updatedBy string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pages[id]
	if !ok {
		return store.ErrNotFound
	}
	p.Title = title
	p.Blocks = blocks
	p.UpdatedBy = updatedBy
	p.UpdatedAt = time.Now().UTC()
	f.pages[id] = p
	f.searchText[id] = fakeSearchText(title, blocks)
	return nil
}

func (f *fakeStore) MovePage(_ context.Context, id string, parentID *string, sortOrder int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pages[id]
	if !ok {
		return store.ErrNotFound
	}
	p.ParentID = parentID
	p.SortOrder = sortOrder
	f.pages[id] = p
	return nil
}

func (f *fakeStore) DeletePage(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.pages[id]; !ok {
		return store.ErrNotFound
	}
	doomed := []string{id}
	for i := 0; i < len(doomed); i++ {
		delete(f.pages, doomed[i])
		delete(f.searchText, doomed[i])
		for pid, p := range f.pages {
			if p.ParentID != nil && *p.ParentID == doomed[i] {
				doomed = append(doomed, pid)
			}
		}
	}
	return nil
}

// memSessions is an in-memory session.Store.
type memSessions struct {
	mu      sync.Mutex
	refresh map[string]string
	revoked map[string]time.Time
}

func newMemSessions() *memSessions {
	return &memSessions{refresh: make(map[string]string), revoked: make(map[string]time.Time)}
}

func (m *memSessions) SaveRefreshSession(_ context.Context, tokenHash, userID string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refresh[tokenHash] = userID
	return nil
}

func (m *memSessions) LookupRefreshSession(_ context.Context, tokenHash string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	userID, ok := m.refresh[tokenHash]
	if !ok {
		return "", session.ErrSessionNotFound
	}
	return userID, nil
}

func (m *memSessions) RevokeRefreshSession(_ context.Context, tokenHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.refresh, tokenHash)
	return nil
}

func (m *memSessions) RevokeAccessToken(_ context.Context, jti string, exp time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[jti] = exp
	return nil
}

func (m *memSessions) IsAccessTokenRevoked(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.revoked[jti]
	return ok, nil
}

func testConfig() config.Config {
	return config.Config{
		TokenSecret: "test-secret",
		AccessTTL:   15 * time.Minute,
		RefreshTTL:  30 * 24 * time.Hour,
		AppBaseURL:  "http://localhost:3000",
	}
}

func newTestService(t *testing.T, fs *fakeStore) *Service {
	t.Helper()
	return newService(testConfig(), fs, Deps{
		Sessions: newMemSessions(),
		AuthPW:   authpw.NewService(fs),
		Email:    email.NewService(email.Config{}),
		History:  history.New(t.TempDir()),
		Log:      logger.NewLogger(),
	})
}

func seedUser(t *testing.T, fs *fakeStore, name, emailAddr string) store.User {
	t.Helper()
	user := store.User{
		ID:              util.NewID("usr"),
		Name:            name,
		Email:           emailAddr,
		IsEmailVerified: true,
	}
	if err := fs.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func seedWorkspaceWithRoles(t *testing.T, fs *fakeStore) (workspace.Workspace, map[rbac.Role]store.User) {
	t.Helper()
	users := map[rbac.Role]store.User{
		rbac.RoleOwner:  seedUser(t, fs, "Olive Owner", "owner@example.com"),
		rbac.RoleAdmin:  seedUser(t, fs, "Ada Admin", "admin@example.com"),
		rbac.RoleMember: seedUser(t, fs, "Mel Member", "member@example.com"),
		rbac.RoleGuest:  seedUser(t, fs, "Gus Guest", "guest@example.com"),
	}

	ws := workspace.New(workspace.CreateInput{
		Name:       "Engineering",
		OwnerID:    users[rbac.RoleOwner].ID,
		OwnerEmail: users[rbac.RoleOwner].Email,
		OwnerName:  users[rbac.RoleOwner].Name,
	})
	for _, role := range []rbac.Role{rbac.RoleAdmin, rbac.RoleMember, rbac.RoleGuest} {
		u := users[role]
		ws = ws.AddMember(u.ID, u.Email, u.Name, role, rbac.DefaultPermissions(role))
	}
	if err := fs.CreateWorkspace(context.Background(), ws); err != nil {
		t.Fatalf("seed workspace: %v", err)
	}
	return ws, users
}

func tokenFor(t *testing.T, user store.User) string {
	t.Helper()
	token, err := auth.IssueToken([]byte("test-secret"), auth.Claims{
		Sub:   user.ID,
		Name:  user.Name,
		Email: user.Email,
		JTI:   "jti-" + user.ID,
		Exp:   time.Now().Add(time.Hour).Unix(),
	})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

func sessionFor(user store.User) Session {
	return Session{
		UserID:    user.ID,
		UserName:  user.Name,
		Email:     user.Email,
		JTI:       "jti-" + user.ID,
		ExpiresAt: time.Now().Add(time.Hour),
	}
}

func TestSignUpThenVerifyThenSignIn(t *testing.T) {
	fs := newFakeStore()
	svc := newTestService(t, fs)
	ctx := context.Background()

	result, err := svc.SignUp(ctx, "new@example.com", "longenough", "New User")
	if err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}
	if !result.RequiresEmailVerify {
		t.Fatal("expected signup to require email verification")
	}

	signIn, err := svc.SignIn(ctx, "new@example.com", "longenough")
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	if !signIn.RequiresVerify {
		t.Fatal("unverified account must not get a session")
	}

	user, err := fs.GetUserByEmail(ctx, "new@example.com")
	if err != nil {
		t.Fatalf("lookup user: %v", err)
	}
	if err := svc.VerifyEmail(ctx, user.VerificationToken); err != nil {
		t.Fatalf("VerifyEmail() error = %v", err)
	}

	signIn, err = svc.SignIn(ctx, "new@example.com", "longenough")
	if err != nil {
		t.Fatalf("SignIn() after verify error = %v", err)
	}
	if signIn.RequiresVerify {
		t.Fatal("verified account still prompted for verification")
	}
	if signIn.Session.Token == "" || signIn.Session.RefreshToken == "" {
		t.Fatal("expected access and refresh tokens")
	}

	sess, err := svc.SessionFromToken(ctx, signIn.Session.Token)
	if err != nil {
		t.Fatalf("SessionFromToken() error = %v", err)
	}
	if sess.UserID != result.UserID {
		t.Fatalf("session user = %s, want %s", sess.UserID, result.UserID)
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	fs := newFakeStore()
	svc := newTestService(t, fs)
	ctx := context.Background()

	if _, err := svc.SignUp(ctx, "rot@example.com", "longenough", "Rot"); err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}
	user, _ := fs.GetUserByEmail(ctx, "rot@example.com")
	if err := svc.VerifyEmail(ctx, user.VerificationToken); err != nil {
		t.Fatalf("VerifyEmail() error = %v", err)
	}
	signIn, err := svc.SignIn(ctx, "rot@example.com", "longenough")
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}

	renewed, err := svc.Refresh(ctx, signIn.Session.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if renewed.RefreshToken == signIn.Session.RefreshToken {
		t.Fatal("refresh token was not rotated")
	}

	// The old refresh token is single use.
	if _, err := svc.Refresh(ctx, signIn.Session.RefreshToken); err == nil {
		t.Fatal("expected reuse of a rotated refresh token to fail")
	}
}

func TestLogoutRevokesAccessToken(t *testing.T) {
	fs := newFakeStore()
	svc := newTestService(t, fs)
	ctx := context.Background()

	if _, err := svc.SignUp(ctx, "out@example.com", "longenough", "Out"); err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}
	user, _ := fs.GetUserByEmail(ctx, "out@example.com")
	if err := svc.VerifyEmail(ctx, user.VerificationToken); err != nil {
		t.Fatalf("VerifyEmail() error = %v", err)
	}
	signIn, err := svc.SignIn(ctx, "out@example.com", "longenough")
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}

	sess, err := svc.SessionFromToken(ctx, signIn.Session.Token)
	if err != nil {
		t.Fatalf("SessionFromToken() error = %v", err)
	}
	if err := svc.Logout(ctx, sess, signIn.Session.RefreshToken); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}

	if _, err := svc.SessionFromToken(ctx, signIn.Session.Token); err == nil {
		t.Fatal("expected revoked access token to be rejected")
	}
	if _, err := svc.Refresh(ctx, signIn.Session.RefreshToken); err == nil {
		t.Fatal("expected revoked refresh token to be rejected")
	}
}

func TestPasswordResetFlow(t *testing.T) {
	fs := newFakeStore()
	svc := newTestService(t, fs)
	ctx := context.Background()

	if _, err := svc.SignUp(ctx, "forgot@example.com", "oldpassword", "Forgetful"); err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}
	user, _ := fs.GetUserByEmail(ctx, "forgot@example.com")
	if err := svc.VerifyEmail(ctx, user.VerificationToken); err != nil {
		t.Fatalf("VerifyEmail() error = %v", err)
	}

	// Unknown emails are silently accepted.
	if err := svc.RequestPasswordReset(ctx, "nobody@example.com"); err != nil {
		t.Fatalf("RequestPasswordReset(unknown) error = %v", err)
	}

	if err := svc.RequestPasswordReset(ctx, "forgot@example.com"); err != nil {
		t.Fatalf("RequestPasswordReset() error = %v", err)
	}
	var resetToken string
	for token := range fs.resets {
		resetToken = token
	}
	if resetToken == "" {
		t.Fatal("expected a reset token to be stored")
	}

	if err := svc.ResetPassword(ctx, resetToken, "newpassword"); err != nil {
		t.Fatalf("ResetPassword() error = %v", err)
	}

	if _, err := svc.SignIn(ctx, "forgot@example.com", "oldpassword"); err == nil {
		t.Fatal("old password still accepted")
	}
	if _, err := svc.SignIn(ctx, "forgot@example.com", "newpassword"); err != nil {
		t.Fatalf("SignIn() with new password error = %v", err)
	}
}
