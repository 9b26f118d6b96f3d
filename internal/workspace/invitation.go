package workspace

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"inkwell/api/internal/rbac"
	"inkwell/api/internal/util"
)

// InvitationTTL is how long an invitation stays acceptable.
const InvitationTTL = 7 * 24 * time.Hour

type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationDeclined InvitationStatus = "declined"
	InvitationExpired  InvitationStatus = "expired"
)

var (
	ErrInvitationExpired = errors.New("invitation expired")
	ErrInvitationClosed  = errors.New("invitation already resolved")
)

type Invitation struct {
	ID          string            `json:"id"`
	WorkspaceID string            `json:"workspaceId"`
	Email       string            `json:"email"`
	Role        rbac.Role         `json:"role"`
	Permissions []rbac.Permission `json:"permissions"`
	InvitedBy   string            `json:"invitedBy"`
	Status      InvitationStatus  `json:"status"`
	CreatedAt   time.Time         `json:"createdAt"`
	ExpiresAt   time.Time         `json:"expiresAt"`
	AcceptedAt  *time.Time        `json:"acceptedAt,omitempty"`
	Token       string            `json:"token"`
}

type InviteInput struct {
	WorkspaceID string
	Email       string
	Role        rbac.Role
	Permissions []rbac.Permission
	InvitedBy   string
}

// NewInvitation creates a pending invitation expiring seven days out.
func NewInvitation(input InviteInput) Invitation {
	now := time.Now().UTC()
	perms := input.Permissions
	if len(perms) == 0 {
		perms = rbac.DefaultPermissions(input.Role)
	}
	return Invitation{
		ID:          util.NewID("inv"),
		WorkspaceID: input.WorkspaceID,
		Email:       input.Email,
		Role:        input.Role,
		Permissions: perms,
		InvitedBy:   input.InvitedBy,
		Status:      InvitationPending,
		CreatedAt:   now,
		ExpiresAt:   now.Add(InvitationTTL),
		Token:       uuid.NewString(),
	}
}

// Valid reports whether the invitation can still be accepted at now. Only a
// pending invitation within its deadline is valid; expiry is checked lazily
// here, never by a background timer.
func (i Invitation) Valid(now time.Time) bool {
	return i.Status == InvitationPending && now.Before(i.ExpiresAt)
}

// Accept transitions a valid invitation to accepted. An overdue pending
// invitation is marked expired and the caller gets ErrInvitationExpired; a
// resolved one is left alone.
func (i Invitation) Accept(now time.Time) (Invitation, error) {
	if i.Status != InvitationPending {
		return i, ErrInvitationClosed
	}
	if !now.Before(i.ExpiresAt) {
		i.Status = InvitationExpired
		return i, ErrInvitationExpired
	}
	i.Status = InvitationAccepted
	at := now
	i.AcceptedAt = &at
	return i, nil
}

// Decline transitions a pending invitation to declined.
func (i Invitation) Decline(now time.Time) (Invitation, error) {
	if i.Status != InvitationPending {
		return i, ErrInvitationClosed
	}
	if !now.Before(i.ExpiresAt) {
		i.Status = InvitationExpired
		return i, ErrInvitationExpired
	}
	i.Status = InvitationDeclined
	return i, nil
}
