package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"inkwell/api/internal/block"
	"inkwell/api/internal/rbac"
	"inkwell/api/internal/workspace"
)

var ErrNotFound = errors.New("not found")

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

// ---------------------------------------------------------------------------
// Users

func (s *PostgresStore) CreateUser(ctx context.Context, user User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, password_hash, is_email_verified, verification_token)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, user.ID, user.Name, user.Email, user.PasswordHash, user.IsEmailVerified, user.VerificationToken)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	const query = `
		SELECT id, name, email, password_hash, is_email_verified, created_at, updated_at
		FROM users WHERE LOWER(email) = LOWER($1)
	`
	var user User
	err := s.db.QueryRowContext(ctx, query, email).Scan(
		&user.ID, &user.Name, &user.Email, &user.PasswordHash,
		&user.IsEmailVerified, &user.CreatedAt, &user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("lookup user by email: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (User, error) {
	const query = `
		SELECT id, name, email, password_hash, is_email_verified, created_at, updated_at
		FROM users WHERE id = $1
	`
	var user User
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID, &user.Name, &user.Email, &user.PasswordHash,
		&user.IsEmailVerified, &user.CreatedAt, &user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("lookup user: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) UpdateUserVerificationToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET verification_token=$2, verification_expires_at=$3, updated_at=NOW()
		WHERE id=$1
	`, userID, token, expiresAt)
	if err != nil {
		return fmt.Errorf("set verification token: %w", err)
	}
	return nil
}

func (s *PostgresStore) VerifyUserEmail(ctx context.Context, token string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET is_email_verified=TRUE, verification_token='', verification_expires_at=NULL, updated_at=NOW()
		WHERE verification_token=$1 AND verification_token <> ''
			AND (verification_expires_at IS NULL OR verification_expires_at > NOW())
	`, token)
	if err != nil {
		return fmt.Errorf("verify email: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) UpdateUserPassword(ctx context.Context, userID, passwordHash string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET password_hash=$2, updated_at=NOW() WHERE id=$1
	`, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CreatePasswordReset(ctx context.Context, userID, token string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO password_resets (token, user_id, expires_at)
		VALUES ($1, $2, $3)
	`, token, userID, expiresAt)
	if err != nil {
		return fmt.Errorf("create password reset: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetPasswordReset(ctx context.Context, token string) (string, error) {
	var userID string
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id FROM password_resets
		WHERE token=$1 AND used_at IS NULL AND expires_at > NOW()
	`, token).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("lookup password reset: %w", err)
	}
	return userID, nil
}

func (s *PostgresStore) MarkPasswordResetUsed(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE password_resets SET used_at=NOW() WHERE token=$1`, token)
	if err != nil {
		return fmt.Errorf("mark password reset used: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Refresh sessions and access-token revocation. This is the SQL twin of the
// Redis session store, used when no Redis URL is configured.

func (s *PostgresStore) SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_sessions (token_hash, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token_hash) DO UPDATE SET user_id=EXCLUDED.user_id, expires_at=EXCLUDED.expires_at, revoked_at=NULL
	`, tokenHash, userID, expiresAt)
	if err != nil {
		return fmt.Errorf("save refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) LookupRefreshSession(ctx context.Context, tokenHash string) (string, error) {
	var userID string
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id FROM refresh_sessions
		WHERE token_hash=$1 AND revoked_at IS NULL AND expires_at > NOW()
	`, tokenHash).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("lookup refresh session: %w", err)
	}
	return userID, nil
}

func (s *PostgresStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE refresh_sessions SET revoked_at=NOW() WHERE token_hash=$1`, tokenHash)
	if err != nil {
		return fmt.Errorf("revoke refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) RevokeAccessToken(ctx context.Context, jti string, exp time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO revoked_access_tokens (jti, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (jti) DO NOTHING
	`, jti, exp)
	if err != nil {
		return fmt.Errorf("revoke access token: %w", err)
	}
	return nil
}

func (s *PostgresStore) IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error) {
	var revoked bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM revoked_access_tokens WHERE jti=$1 AND expires_at > NOW())
	`, jti).Scan(&revoked)
	if err != nil {
		return false, fmt.Errorf("check access token: %w", err)
	}
	return revoked, nil
}

// ---------------------------------------------------------------------------
// Workspaces

func (s *PostgresStore) CreateWorkspace(ctx context.Context, ws workspace.Workspace) error {
	settings, err := json.Marshal(ws.Settings)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create workspace: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO workspaces (id, name, description, icon, owner_id, settings, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, ws.ID, ws.Name, ws.Description, ws.Icon, ws.OwnerID, settings, ws.CreatedAt, ws.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert workspace: %w", err)
	}

	for _, m := range ws.Members {
		if err := insertMember(ctx, tx, m); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func insertMember(ctx context.Context, tx *sql.Tx, m workspace.Member) error {
	perms, err := json.Marshal(m.Permissions)
	if err != nil {
		return fmt.Errorf("marshal permissions: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO workspace_members (id, workspace_id, user_id, role, permissions, joined_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, m.ID, m.WorkspaceID, m.UserID, m.Role, perms, m.JoinedAt)
	if err != nil {
		return fmt.Errorf("insert member: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetWorkspace(ctx context.Context, id string) (workspace.Workspace, error) {
	const query = `
		SELECT id, name, description, icon, owner_id, settings, created_at, updated_at
		FROM workspaces WHERE id=$1
	`
	var ws workspace.Workspace
	var settings []byte
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&ws.ID, &ws.Name, &ws.Description, &ws.Icon, &ws.OwnerID,
		&settings, &ws.CreatedAt, &ws.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return workspace.Workspace{}, ErrNotFound
	}
	if err != nil {
		return workspace.Workspace{}, fmt.Errorf("lookup workspace: %w", err)
	}
	if err := json.Unmarshal(settings, &ws.Settings); err != nil {
		return workspace.Workspace{}, fmt.Errorf("unmarshal settings: %w", err)
	}

	ws.Members, err = s.listMembers(ctx, id)
	if err != nil {
		return workspace.Workspace{}, err
	}
	return ws, nil
}

func (s *PostgresStore) listMembers(ctx context.Context, workspaceID string) ([]workspace.Member, error) {
	const query = `
		SELECT wm.id, wm.workspace_id, wm.user_id, u.email, u.name, wm.role, wm.permissions, wm.joined_at
		FROM workspace_members wm
		JOIN users u ON u.id = wm.user_id
		WHERE wm.workspace_id = $1
		ORDER BY wm.joined_at
	`
	rows, err := s.db.QueryContext(ctx, query, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []workspace.Member
	for rows.Next() {
		var m workspace.Member
		var perms []byte
		if err := rows.Scan(&m.ID, &m.WorkspaceID, &m.UserID, &m.Email, &m.Name, &m.Role, &perms, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		if err := json.Unmarshal(perms, &m.Permissions); err != nil {
			return nil, fmt.Errorf("unmarshal permissions: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// ListWorkspacesForUser returns the workspaces a user belongs to, each with
// the user's role attached and without member lists.
func (s *PostgresStore) ListWorkspacesForUser(ctx context.Context, userID string) ([]workspace.Workspace, error) {
	const query = `
		SELECT w.id, w.name, w.description, w.icon, w.owner_id, w.settings, w.created_at, w.updated_at, wm.role
		FROM workspaces w
		JOIN workspace_members wm ON wm.workspace_id = w.id
		WHERE wm.user_id = $1
		ORDER BY w.created_at
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list workspaces: %w", err)
	}
	defer rows.Close()

	var out []workspace.Workspace
	for rows.Next() {
		var ws workspace.Workspace
		var settings []byte
		if err := rows.Scan(&ws.ID, &ws.Name, &ws.Description, &ws.Icon, &ws.OwnerID, &settings, &ws.CreatedAt, &ws.UpdatedAt, &ws.Role); err != nil {
			return nil, fmt.Errorf("scan workspace: %w", err)
		}
		if err := json.Unmarshal(settings, &ws.Settings); err != nil {
			return nil, fmt.Errorf("unmarshal settings: %w", err)
		}
		out = append(out, ws)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateWorkspace(ctx context.Context, ws workspace.Workspace) error {
	settings, err := json.Marshal(ws.Settings)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE workspaces SET name=$2, description=$3, icon=$4, settings=$5, updated_at=NOW()
		WHERE id=$1
	`, ws.ID, ws.Name, ws.Description, ws.Icon, settings)
	if err != nil {
		return fmt.Errorf("update workspace: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteWorkspace removes the workspace with its members, invitations, and
// pages in one transaction.
func (s *PostgresStore) DeleteWorkspace(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete workspace: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM pages WHERE workspace_id=$1`,
		`DELETE FROM workspace_invitations WHERE workspace_id=$1`,
		`DELETE FROM workspace_members WHERE workspace_id=$1`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return fmt.Errorf("delete workspace children: %w", err)
		}
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM workspaces WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete workspace: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Members

func (s *PostgresStore) AddMember(ctx context.Context, m workspace.Member) error {
	perms, err := json.Marshal(m.Permissions)
	if err != nil {
		return fmt.Errorf("marshal permissions: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO workspace_members (id, workspace_id, user_id, role, permissions, joined_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (workspace_id, user_id) DO NOTHING
	`, m.ID, m.WorkspaceID, m.UserID, m.Role, perms, m.JoinedAt)
	if err != nil {
		return fmt.Errorf("add member: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateMember(ctx context.Context, memberID string, role rbac.Role, permissions []rbac.Permission) error {
	perms, err := json.Marshal(permissions)
	if err != nil {
		return fmt.Errorf("marshal permissions: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE workspace_members SET role=$2, permissions=$3 WHERE id=$1
	`, memberID, role, perms)
	if err != nil {
		return fmt.Errorf("update member: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) RemoveMember(ctx context.Context, memberID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM workspace_members WHERE id=$1`, memberID)
	if err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ---------------------------------------------------------------------------
// Invitations

func (s *PostgresStore) CreateInvitation(ctx context.Context, inv workspace.Invitation) error {
	perms, err := json.Marshal(inv.Permissions)
	if err != nil {
		return fmt.Errorf("marshal permissions: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO workspace_invitations
			(id, workspace_id, email, role, permissions, invited_by, status, token, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, inv.ID, inv.WorkspaceID, inv.Email, inv.Role, perms, inv.InvitedBy, inv.Status, inv.Token, inv.CreatedAt, inv.ExpiresAt)
	if err != nil {
		return fmt.Errorf("insert invitation: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListInvitations(ctx context.Context, workspaceID string) ([]workspace.Invitation, error) {
	const query = `
		SELECT id, workspace_id, email, role, permissions, invited_by, status, token, created_at, expires_at, accepted_at
		FROM workspace_invitations
		WHERE workspace_id=$1
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	defer rows.Close()

	var out []workspace.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetInvitationByToken(ctx context.Context, token string) (workspace.Invitation, error) {
	const query = `
		SELECT id, workspace_id, email, role, permissions, invited_by, status, token, created_at, expires_at, accepted_at
		FROM workspace_invitations
		WHERE token=$1
	`
	row := s.db.QueryRowContext(ctx, query, token)
	inv, err := scanInvitation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return workspace.Invitation{}, ErrNotFound
	}
	return inv, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvitation(row rowScanner) (workspace.Invitation, error) {
	var inv workspace.Invitation
	var perms []byte
	err := row.Scan(
		&inv.ID, &inv.WorkspaceID, &inv.Email, &inv.Role, &perms, &inv.InvitedBy,
		&inv.Status, &inv.Token, &inv.CreatedAt, &inv.ExpiresAt, &inv.AcceptedAt,
	)
	if err != nil {
		return workspace.Invitation{}, err
	}
	if err := json.Unmarshal(perms, &inv.Permissions); err != nil {
		return workspace.Invitation{}, fmt.Errorf("unmarshal permissions: %w", err)
	}
	return inv, nil
}

func (s *PostgresStore) UpdateInvitationStatus(ctx context.Context, inv workspace.Invitation) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE workspace_invitations SET status=$2, accepted_at=$3 WHERE id=$1
	`, inv.ID, inv.Status, inv.AcceptedAt)
	if err != nil {
		return fmt.Errorf("update invitation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ---------------------------------------------------------------------------
// Pages. Blocks live as a JSONB array on the page row; search_text carries
// the flattened plain text for the FTS fallback.

func (s *PostgresStore) CreatePage(ctx context.Context, p Page) error {
	blocks, err := json.Marshal(p.Blocks)
	if err != nil {
		return fmt.Errorf("marshal blocks: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO pages (id, workspace_id, title, icon, blocks, search_text, parent_id, sort_order, is_public, created_by, updated_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, p.ID, p.WorkspaceID, p.Title, p.Icon, blocks, pageSearchText(p.Title, p.Blocks),
		p.ParentID, p.SortOrder, p.IsPublic, p.CreatedBy, p.UpdatedBy, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert page: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetPage(ctx context.Context, id string) (Page, error) {
	const query = `
		SELECT id, workspace_id, title, icon, blocks, parent_id, sort_order, is_public, created_by, updated_by, created_at, updated_at
		FROM pages WHERE id=$1
	`
	var p Page
	var blocks []byte
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.WorkspaceID, &p.Title, &p.Icon, &blocks,
		&p.ParentID, &p.SortOrder, &p.IsPublic, &p.CreatedBy, &p.UpdatedBy, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Page{}, ErrNotFound
	}
	if err != nil {
		return Page{}, fmt.Errorf("lookup page: %w", err)
	}
	if err := json.Unmarshal(blocks, &p.Blocks); err != nil {
		return Page{}, fmt.Errorf("unmarshal blocks: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) ListPages(ctx context.Context, workspaceID string) ([]PageSummary, error) {
	const query = `
		SELECT id, title, icon, parent_id, sort_order, updated_at
		FROM pages WHERE workspace_id=$1
		ORDER BY sort_order, created_at
	`
	rows, err := s.db.QueryContext(ctx, query, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	defer rows.Close()

	var out []PageSummary
	for rows.Next() {
		var p PageSummary
		if err := rows.Scan(&p.ID, &p.Title, &p.Icon, &p.ParentID, &p.SortOrder, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan page: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpdatePageTitle renames a page. The caller supplies the current block list
// so search_text can be rebuilt from scratch; deriving it from the stored
// value would leave stale titles matchable after every rename.
func (s *PostgresStore) UpdatePageTitle(ctx context.Context, id, title string, blocks []block.Block, updatedBy string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE pages SET title=$2, search_text=$3, updated_by=$4, updated_at=NOW() WHERE id=$1
	`, id, title, pageSearchText(title, blocks), updatedBy)
	if err != nil {
		return fmt.Errorf("rename page: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) SavePageBlocks(ctx context.Context, id, title string, blocks []block.Block, updatedBy string) error {
	payload, err := json.Marshal(blocks)
	if err != nil {
		return fmt.Errorf("marshal blocks: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE pages SET title=$2, blocks=$3, search_text=$4, updated_by=$5, updated_at=NOW() WHERE id=$1
	`, id, title, payload, pageSearchText(title, blocks), updatedBy)
	if err != nil {
		return fmt.Errorf("save page blocks: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) MovePage(ctx context.Context, id string, parentID *string, sortOrder int) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE pages SET parent_id=$2, sort_order=$3, updated_at=NOW() WHERE id=$1
	`, id, parentID, sortOrder)
	if err != nil {
		return fmt.Errorf("move page: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeletePage removes a page and every descendant in one statement.
func (s *PostgresStore) DeletePage(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `
		WITH RECURSIVE doomed AS (
			SELECT id FROM pages WHERE id=$1
			UNION ALL
			SELECT p.id FROM pages p JOIN doomed d ON p.parent_id = d.id
		)
		DELETE FROM pages WHERE id IN (SELECT id FROM doomed)
	`, id)
	if err != nil {
		return fmt.Errorf("delete page: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func pageSearchText(title string, blocks []block.Block) string {
	text := title
	for _, b := range blocks {
		if t := block.PlainText(b); t != "" {
			text += " " + t
		}
	}
	return text
}
