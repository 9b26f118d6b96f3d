package app

import (
	"context"
	"net/http"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"inkwell/api/internal/rbac"
	"inkwell/api/internal/workspace"
)

var (
	errForbidden = domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
)

func validationError(err error) error {
	if err == nil {
		return nil
	}
	return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), nil)
}

type CreateWorkspaceInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

func (in CreateWorkspaceInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, validation.Length(1, 120)),
		validation.Field(&in.Description, validation.Length(0, 500)),
		validation.Field(&in.Icon, validation.Length(0, 16)),
	)
}

func (s *Service) CreateWorkspace(ctx context.Context, sess Session, in CreateWorkspaceInput) (workspace.Workspace, error) {
	if err := in.Validate(); err != nil {
		return workspace.Workspace{}, validationError(err)
	}

	ws := workspace.New(workspace.CreateInput{
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Icon:        in.Icon,
		OwnerID:     sess.UserID,
		OwnerEmail:  sess.Email,
		OwnerName:   sess.UserName,
	})
	if err := s.store.CreateWorkspace(ctx, ws); err != nil {
		return workspace.Workspace{}, err
	}
	return ws, nil
}

func (s *Service) ListWorkspaces(ctx context.Context, sess Session) ([]workspace.Workspace, error) {
	list, err := s.store.ListWorkspacesForUser(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []workspace.Workspace{}
	}
	return list, nil
}

// workspaceFor loads a workspace and resolves the caller's access in it.
// Non-members get the zero check, which denies everything.
func (s *Service) workspaceFor(ctx context.Context, sess Session, workspaceID string) (workspace.Workspace, rbac.PermissionCheck, error) {
	ws, err := s.store.GetWorkspace(ctx, workspaceID)
	if err != nil {
		return workspace.Workspace{}, rbac.PermissionCheck{}, err
	}
	return ws, ws.Permissions(sess.UserID), nil
}

func (s *Service) GetWorkspace(ctx context.Context, sess Session, workspaceID string) (workspace.Workspace, error) {
	ws, perms, err := s.workspaceFor(ctx, sess, workspaceID)
	if err != nil {
		return workspace.Workspace{}, err
	}
	if !perms.CanView {
		return workspace.Workspace{}, errForbidden
	}
	return ws, nil
}

type UpdateWorkspaceInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Icon        *string `json:"icon"`
}

func (in UpdateWorkspaceInput) Validate() error {
	rules := []*validation.FieldRules{}
	if in.Name != nil {
		rules = append(rules, validation.Field(&in.Name, validation.Required, validation.Length(1, 120)))
	}
	if in.Description != nil {
		rules = append(rules, validation.Field(&in.Description, validation.Length(0, 500)))
	}
	return validation.ValidateStruct(&in, rules...)
}

func (s *Service) UpdateWorkspace(ctx context.Context, sess Session, workspaceID string, in UpdateWorkspaceInput) (workspace.Workspace, error) {
	if err := in.Validate(); err != nil {
		return workspace.Workspace{}, validationError(err)
	}

	ws, perms, err := s.workspaceFor(ctx, sess, workspaceID)
	if err != nil {
		return workspace.Workspace{}, err
	}
	if !perms.CanEditSettings {
		return workspace.Workspace{}, errForbidden
	}

	if in.Name != nil {
		ws.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		ws.Description = strings.TrimSpace(*in.Description)
	}
	if in.Icon != nil {
		ws.Icon = *in.Icon
	}
	ws.UpdatedAt = time.Now().UTC()

	if err := s.store.UpdateWorkspace(ctx, ws); err != nil {
		return workspace.Workspace{}, err
	}
	return ws, nil
}

func (s *Service) UpdateWorkspaceSettings(ctx context.Context, sess Session, workspaceID string, settings workspace.Settings) (workspace.Workspace, error) {
	if settings.DefaultPermission != "" && !rbac.ValidPermission(string(settings.DefaultPermission)) {
		return workspace.Workspace{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "unknown default permission", nil)
	}

	ws, perms, err := s.workspaceFor(ctx, sess, workspaceID)
	if err != nil {
		return workspace.Workspace{}, err
	}
	if !perms.CanEditSettings {
		return workspace.Workspace{}, errForbidden
	}

	if settings.DefaultPermission == "" {
		settings.DefaultPermission = ws.Settings.DefaultPermission
	}
	ws.Settings = settings
	ws.UpdatedAt = time.Now().UTC()

	if err := s.store.UpdateWorkspace(ctx, ws); err != nil {
		return workspace.Workspace{}, err
	}
	return ws, nil
}

func (s *Service) DeleteWorkspace(ctx context.Context, sess Session, workspaceID string) error {
	ws, perms, err := s.workspaceFor(ctx, sess, workspaceID)
	if err != nil {
		return err
	}
	if !perms.CanDelete {
		return errForbidden
	}

	// Drop the deleted workspace's pages from the search index before the
	// rows go away.
	pages, err := s.store.ListPages(ctx, ws.ID)
	if err == nil {
		for _, p := range pages {
			s.search.DeletePage(p.ID)
		}
	}

	return s.store.DeleteWorkspace(ctx, workspaceID)
}

type InviteMemberInput struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (in InviteMemberInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Email, validation.Required, is.Email),
		validation.Field(&in.Role, validation.Required, validation.By(func(any) error {
			if !rbac.ValidRole(in.Role) {
				return validation.NewError("validation_role", "must be owner, admin, member, or guest")
			}
			return nil
		})),
	)
}

func (s *Service) InviteMember(ctx context.Context, sess Session, workspaceID string, in InviteMemberInput) (workspace.Invitation, error) {
	if err := in.Validate(); err != nil {
		return workspace.Invitation{}, validationError(err)
	}
	role := rbac.Normalize(in.Role)
	if role == rbac.RoleOwner {
		return workspace.Invitation{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "cannot invite a second owner", nil)
	}

	ws, perms, err := s.workspaceFor(ctx, sess, workspaceID)
	if err != nil {
		return workspace.Invitation{}, err
	}
	if !perms.CanInvite {
		return workspace.Invitation{}, errForbidden
	}
	if role == rbac.RoleGuest && !ws.Settings.AllowGuestInvites {
		return workspace.Invitation{}, domainError(http.StatusForbidden, "GUEST_INVITES_DISABLED", "Guest invitations are disabled for this workspace", nil)
	}

	inviteEmail := strings.ToLower(strings.TrimSpace(in.Email))
	if m := memberByEmail(ws, inviteEmail); m != nil {
		return workspace.Invitation{}, domainError(http.StatusConflict, "ALREADY_MEMBER", "That user is already a member", nil)
	}

	inv := workspace.NewInvitation(workspace.InviteInput{
		WorkspaceID: ws.ID,
		Email:       inviteEmail,
		Role:        role,
		InvitedBy:   sess.UserID,
	})
	if err := s.store.CreateInvitation(ctx, inv); err != nil {
		return workspace.Invitation{}, err
	}

	s.sendInvitationMail(inv, ws.Name, sess.UserName)

	return inv, nil
}

func memberByEmail(ws workspace.Workspace, email string) *workspace.Member {
	for i := range ws.Members {
		if strings.EqualFold(ws.Members[i].Email, email) {
			return &ws.Members[i]
		}
	}
	return nil
}

func (s *Service) ListInvitations(ctx context.Context, sess Session, workspaceID string) ([]workspace.Invitation, error) {
	_, perms, err := s.workspaceFor(ctx, sess, workspaceID)
	if err != nil {
		return nil, err
	}
	if !perms.CanInvite && !perms.CanManageMembers {
		return nil, errForbidden
	}
	list, err := s.store.ListInvitations(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []workspace.Invitation{}
	}
	return list, nil
}

// AcceptInvitation resolves the token, joins the caller to the workspace,
// and returns the joined workspace. The invitation is bound to the email it
// was sent to.
func (s *Service) AcceptInvitation(ctx context.Context, sess Session, token string) (workspace.Workspace, error) {
	inv, err := s.store.GetInvitationByToken(ctx, token)
	if err != nil {
		return workspace.Workspace{}, err
	}
	if !strings.EqualFold(inv.Email, sess.Email) {
		return workspace.Workspace{}, domainError(http.StatusForbidden, "INVITATION_EMAIL_MISMATCH", "This invitation was sent to a different email address", nil)
	}

	accepted, acceptErr := inv.Accept(time.Now().UTC())
	// An overdue invitation flips to expired; persist that resolution even
	// though the accept itself failed.
	if accepted.Status != inv.Status {
		if err := s.store.UpdateInvitationStatus(ctx, accepted); err != nil {
			return workspace.Workspace{}, err
		}
	}
	if acceptErr != nil {
		return workspace.Workspace{}, acceptErr
	}

	ws, err := s.store.GetWorkspace(ctx, inv.WorkspaceID)
	if err != nil {
		return workspace.Workspace{}, err
	}
	ws = ws.AddMember(sess.UserID, sess.Email, sess.UserName, inv.Role, inv.Permissions)
	m := ws.MemberByUser(sess.UserID)
	if m != nil {
		if err := s.store.AddMember(ctx, *m); err != nil {
			return workspace.Workspace{}, err
		}
	}
	return ws, nil
}

func (s *Service) DeclineInvitation(ctx context.Context, sess Session, token string) error {
	inv, err := s.store.GetInvitationByToken(ctx, token)
	if err != nil {
		return err
	}
	if !strings.EqualFold(inv.Email, sess.Email) {
		return domainError(http.StatusForbidden, "INVITATION_EMAIL_MISMATCH", "This invitation was sent to a different email address", nil)
	}

	declined, declineErr := inv.Decline(time.Now().UTC())
	if declined.Status != inv.Status {
		if err := s.store.UpdateInvitationStatus(ctx, declined); err != nil {
			return err
		}
	}
	return declineErr
}

type UpdateMemberInput struct {
	Role        *string  `json:"role"`
	Permissions []string `json:"permissions"`
}

func (in UpdateMemberInput) Validate() error {
	if in.Role != nil && !rbac.ValidRole(*in.Role) {
		return validation.NewError("validation_role", "must be owner, admin, member, or guest")
	}
	for _, p := range in.Permissions {
		if !rbac.ValidPermission(p) {
			return validation.NewError("validation_permission", "unknown permission "+p)
		}
	}
	return nil
}

func (s *Service) UpdateMember(ctx context.Context, sess Session, workspaceID, memberID string, in UpdateMemberInput) (workspace.Workspace, error) {
	if err := in.Validate(); err != nil {
		return workspace.Workspace{}, validationError(err)
	}

	ws, perms, err := s.workspaceFor(ctx, sess, workspaceID)
	if err != nil {
		return workspace.Workspace{}, err
	}
	if !perms.CanManageMembers {
		return workspace.Workspace{}, errForbidden
	}

	var role *rbac.Role
	if in.Role != nil {
		r := rbac.Normalize(*in.Role)
		if r == rbac.RoleOwner {
			return workspace.Workspace{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "ownership is not transferable through member updates", nil)
		}
		role = &r
	}
	var permList *[]rbac.Permission
	if in.Permissions != nil {
		converted := make([]rbac.Permission, 0, len(in.Permissions))
		for _, p := range in.Permissions {
			converted = append(converted, rbac.Permission(p))
		}
		permList = &converted
	}

	updated, err := ws.UpdateMember(memberID, role, permList)
	if err != nil {
		return workspace.Workspace{}, err
	}

	m := memberByID(updated, memberID)
	if m == nil {
		return workspace.Workspace{}, workspace.ErrMemberNotFound
	}
	if err := s.store.UpdateMember(ctx, memberID, m.Role, m.Permissions); err != nil {
		return workspace.Workspace{}, err
	}
	return updated, nil
}

func memberByID(ws workspace.Workspace, memberID string) *workspace.Member {
	for i := range ws.Members {
		if ws.Members[i].ID == memberID {
			return &ws.Members[i]
		}
	}
	return nil
}

// RemoveMember removes a member. Managers can remove anyone but the owner;
// a member may always remove their own membership to leave the workspace.
func (s *Service) RemoveMember(ctx context.Context, sess Session, workspaceID, memberID string) (workspace.Workspace, error) {
	ws, perms, err := s.workspaceFor(ctx, sess, workspaceID)
	if err != nil {
		return workspace.Workspace{}, err
	}

	target := memberByID(ws, memberID)
	if target == nil {
		return workspace.Workspace{}, workspace.ErrMemberNotFound
	}
	leavingSelf := target.UserID == sess.UserID
	if !perms.CanManageMembers && !leavingSelf {
		return workspace.Workspace{}, errForbidden
	}

	updated, err := ws.RemoveMember(memberID)
	if err != nil {
		return workspace.Workspace{}, err
	}
	if err := s.store.RemoveMember(ctx, memberID); err != nil {
		return workspace.Workspace{}, err
	}
	return updated, nil
}
