// Package workspace models the tenant boundary: a workspace, its members,
// and the invitations that bring new members in. Operations are pure value
// transformations; persistence lives in the store.
package workspace

import (
	"errors"
	"time"

	"inkwell/api/internal/rbac"
	"inkwell/api/internal/util"
)

var (
	// ErrOwnerImmutable: the owner member can never be edited or removed.
	// The core re-validates this instead of trusting the UI to hide the
	// affordance.
	ErrOwnerImmutable = errors.New("workspace owner cannot be modified")
	ErrMemberNotFound = errors.New("member not found")
)

type Settings struct {
	AllowGuestInvites bool            `json:"allowGuestInvites"`
	DefaultPermission rbac.Permission `json:"defaultPermission"`
	RequireApproval   bool            `json:"requireApproval"`
	PublicPages       bool            `json:"publicPages"`
}

func DefaultSettings() Settings {
	return Settings{
		AllowGuestInvites: true,
		DefaultPermission: rbac.PermView,
		RequireApproval:   false,
		PublicPages:       false,
	}
}

type Member struct {
	ID          string            `json:"id"`
	WorkspaceID string            `json:"workspaceId"`
	UserID      string            `json:"userId"`
	Email       string            `json:"email"`
	Name        string            `json:"name"`
	Role        rbac.Role         `json:"role"`
	Permissions []rbac.Permission `json:"permissions"`
	JoinedAt    time.Time         `json:"joinedAt"`
}

type Workspace struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Icon        string    `json:"icon,omitempty"`
	OwnerID     string    `json:"ownerId"`
	Members     []Member  `json:"members,omitempty"`
	Settings    Settings  `json:"settings"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	// Role is the requesting user's role when the workspace was fetched
	// user-scoped; empty otherwise.
	Role rbac.Role `json:"role,omitempty"`
}

type CreateInput struct {
	Name        string
	Description string
	Icon        string
	OwnerID     string
	OwnerEmail  string
	OwnerName   string
}

// New creates a workspace with its creator seeded as the sole owner member.
func New(input CreateInput) Workspace {
	now := time.Now().UTC()
	id := util.NewID("ws")

	owner := Member{
		ID:          util.NewID("mbr"),
		WorkspaceID: id,
		UserID:      input.OwnerID,
		Email:       input.OwnerEmail,
		Name:        input.OwnerName,
		Role:        rbac.RoleOwner,
		Permissions: rbac.DefaultPermissions(rbac.RoleOwner),
		JoinedAt:    now,
	}

	return Workspace{
		ID:          id,
		Name:        input.Name,
		Description: input.Description,
		Icon:        input.Icon,
		OwnerID:     input.OwnerID,
		Members:     []Member{owner},
		Settings:    DefaultSettings(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// MemberByUser finds the membership for a user id, or nil.
func (w Workspace) MemberByUser(userID string) *Member {
	for i := range w.Members {
		if w.Members[i].UserID == userID {
			return &w.Members[i]
		}
	}
	return nil
}

// Permissions resolves the user's access. A user-scoped Role field wins;
// otherwise the member list is searched. Unknown users and empty member
// lists yield the zero check, which grants no access.
func (w Workspace) Permissions(userID string) rbac.PermissionCheck {
	if w.Role != "" {
		return rbac.ForRole(w.Role)
	}
	member := w.MemberByUser(userID)
	if member == nil {
		return rbac.PermissionCheck{}
	}
	return rbac.ForMember(member.Role, member.Permissions)
}

func (w Workspace) IsOwner(userID string) bool {
	if w.Role != "" {
		return w.Role == rbac.RoleOwner
	}
	return w.OwnerID == userID
}

func (w Workspace) IsAdminOrOwner(userID string) bool {
	if w.Role != "" {
		return w.Role == rbac.RoleOwner || w.Role == rbac.RoleAdmin
	}
	member := w.MemberByUser(userID)
	if member == nil {
		return false
	}
	return member.Role == rbac.RoleOwner || member.Role == rbac.RoleAdmin
}

// AddMember returns a copy of w with a new member appended.
func (w Workspace) AddMember(userID, email, name string, role rbac.Role, perms []rbac.Permission) Workspace {
	member := Member{
		ID:          util.NewID("mbr"),
		WorkspaceID: w.ID,
		UserID:      userID,
		Email:       email,
		Name:        name,
		Role:        role,
		Permissions: perms,
		JoinedAt:    time.Now().UTC(),
	}
	out := w
	out.Members = append(append([]Member{}, w.Members...), member)
	out.UpdatedAt = member.JoinedAt
	return out
}

// UpdateMember changes a member's role and/or permissions. Editing the
// owner is refused.
func (w Workspace) UpdateMember(memberID string, role *rbac.Role, perms *[]rbac.Permission) (Workspace, error) {
	out := w
	out.Members = append([]Member{}, w.Members...)
	for i := range out.Members {
		if out.Members[i].ID != memberID {
			continue
		}
		if out.Members[i].Role == rbac.RoleOwner {
			return w, ErrOwnerImmutable
		}
		if role != nil {
			if *role == rbac.RoleOwner {
				return w, ErrOwnerImmutable
			}
			out.Members[i].Role = *role
		}
		if perms != nil {
			out.Members[i].Permissions = append([]rbac.Permission{}, (*perms)...)
		}
		out.UpdatedAt = time.Now().UTC()
		return out, nil
	}
	return w, ErrMemberNotFound
}

// RemoveMember drops a member. Removing the owner is refused.
func (w Workspace) RemoveMember(memberID string) (Workspace, error) {
	for i := range w.Members {
		if w.Members[i].ID != memberID {
			continue
		}
		if w.Members[i].Role == rbac.RoleOwner {
			return w, ErrOwnerImmutable
		}
		out := w
		out.Members = append(append([]Member{}, w.Members[:i]...), w.Members[i+1:]...)
		out.UpdatedAt = time.Now().UTC()
		return out, nil
	}
	return w, ErrMemberNotFound
}
