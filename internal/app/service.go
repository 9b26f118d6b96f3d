package app

import (
	"context"
	"time"

	"inkwell/api/internal/auth"
	"inkwell/api/internal/authpw"
	"inkwell/api/internal/block"
	"inkwell/api/internal/config"
	"inkwell/api/internal/email"
	"inkwell/api/internal/export"
	"inkwell/api/internal/history"
	"inkwell/api/internal/rbac"
	"inkwell/api/internal/search"
	"inkwell/api/internal/session"
	"inkwell/api/internal/store"
	"inkwell/api/internal/uploads"
	"inkwell/api/internal/util"
	"inkwell/api/internal/workspace"
	"inkwell/api/pkg/logger"
)

// Session is the resolved identity of one authenticated request.
type Session struct {
	Token        string
	RefreshToken string
	UserID       string
	UserName     string
	Email        string
	JTI          string
	ExpiresAt    time.Time
}

type dataStore interface {
	GetUserByID(ctx context.Context, id string) (store.User, error)
	GetUserByEmail(ctx context.Context, email string) (store.User, error)

	CreateWorkspace(ctx context.Context, ws workspace.Workspace) error
	GetWorkspace(ctx context.Context, id string) (workspace.Workspace, error)
	ListWorkspacesForUser(ctx context.Context, userID string) ([]workspace.Workspace, error)
	UpdateWorkspace(ctx context.Context, ws workspace.Workspace) error
	DeleteWorkspace(ctx context.Context, id string) error

	AddMember(ctx context.Context, m workspace.Member) error
	UpdateMember(ctx context.Context, memberID string, role rbac.Role, permissions []rbac.Permission) error
	RemoveMember(ctx context.Context, memberID string) error

	CreateInvitation(ctx context.Context, inv workspace.Invitation) error
	ListInvitations(ctx context.Context, workspaceID string) ([]workspace.Invitation, error)
	GetInvitationByToken(ctx context.Context, token string) (workspace.Invitation, error)
	UpdateInvitationStatus(ctx context.Context, inv workspace.Invitation) error

	CreatePage(ctx context.Context, p store.Page) error
	GetPage(ctx context.Context, id string) (store.Page, error)
	ListPages(ctx context.Context, workspaceID string) ([]store.PageSummary, error)
	UpdatePageTitle(ctx context.Context, id, title string, blocks []block.Block, updatedBy string) error
	SavePageBlocks(ctx context.Context, id, title string, blocks []block.Block, updatedBy string) error
	MovePage(ctx context.Context, id string, parentID *string, sortOrder int) error
	DeletePage(ctx context.Context, id string) error

	Ping(ctx context.Context) error
}

type historyService interface {
	EnsurePageRepo(pageID string, initial history.Snapshot, author string) error
	Commit(pageID string, snap history.Snapshot, author, message string) (history.CommitInfo, error)
	History(pageID string, limit int) ([]history.CommitInfo, error)
	ContentAt(pageID, hash string) (history.Snapshot, error)
}

// Deps carries the side services the core wires into request handling.
// Uploads may be nil when object storage is not configured.
type Deps struct {
	Sessions session.Store
	AuthPW   *authpw.Service
	Email    *email.Service
	Search   *search.Service
	History  historyService
	Uploads  *uploads.Service
	Log      logger.Logger
}

type Service struct {
	cfg      config.Config
	store    dataStore
	sessions session.Store
	authpw   *authpw.Service
	email    *email.Service
	search   *search.Service
	history  historyService
	uploads  *uploads.Service
	export   *export.Service
	log      logger.Logger
}

func New(cfg config.Config, dataStore *store.PostgresStore, deps Deps) *Service {
	return newService(cfg, dataStore, deps)
}

func newService(cfg config.Config, ds dataStore, deps Deps) *Service {
	if deps.Search == nil {
		deps.Search = search.NewService(nil, nil, deps.Log)
	}
	return &Service{
		cfg:      cfg,
		store:    ds,
		sessions: deps.Sessions,
		authpw:   deps.AuthPW,
		email:    deps.Email,
		search:   deps.Search,
		history:  deps.History,
		uploads:  deps.Uploads,
		export:   export.NewService(exportPageStore{store: ds}),
		log:      deps.Log,
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// SignUpResult is what the signup endpoint returns before the account is
// usable: verification is still pending.
type SignUpResult struct {
	UserID              string
	RequiresEmailVerify bool
}

func (s *Service) SignUp(ctx context.Context, email, password, name string) (SignUpResult, error) {
	resp, err := s.authpw.SignUp(ctx, authpw.SignUpRequest{
		Email:    email,
		Password: password,
		Name:     name,
	})
	if err != nil {
		return SignUpResult{}, err
	}

	s.sendVerificationMail(email, name, resp.VerificationToken)

	return SignUpResult{UserID: resp.UserID, RequiresEmailVerify: resp.RequiresEmailVerify}, nil
}

// SignInResult is either a live session or a verification prompt, never both.
type SignInResult struct {
	Session        Session
	RequiresVerify bool
}

func (s *Service) SignIn(ctx context.Context, email, password string) (SignInResult, error) {
	resp, err := s.authpw.SignIn(ctx, authpw.SignInRequest{Email: email, Password: password})
	if err != nil {
		return SignInResult{}, err
	}
	if resp.RequiresVerify {
		return SignInResult{RequiresVerify: true}, nil
	}

	sess, err := s.issueSession(ctx, resp.User)
	if err != nil {
		return SignInResult{}, err
	}
	return SignInResult{Session: sess}, nil
}

func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	return s.authpw.VerifyEmail(ctx, token)
}

// RequestPasswordReset never reports whether the email exists.
func (s *Service) RequestPasswordReset(ctx context.Context, emailAddr string) error {
	token, err := s.authpw.RequestPasswordReset(ctx, emailAddr)
	if err != nil {
		return err
	}
	if token == "" {
		return nil
	}

	userName := ""
	if user, err := s.store.GetUserByEmail(ctx, emailAddr); err == nil {
		userName = user.Name
	}
	s.sendPasswordResetMail(emailAddr, userName, token)
	return nil
}

func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	return s.authpw.ResetPassword(ctx, authpw.ResetPasswordRequest{Token: token, NewPassword: newPassword})
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	tokenHash := auth.HashToken(refreshToken)
	userID, err := s.sessions.LookupRefreshSession(ctx, tokenHash)
	if err != nil {
		return Session{}, err
	}
	if err := s.sessions.RevokeRefreshSession(ctx, tokenHash); err != nil {
		return Session{}, err
	}
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := util.NewID("jti")

	token, err := auth.IssueToken([]byte(s.cfg.TokenSecret), auth.Claims{
		Sub:   user.ID,
		Name:  user.Name,
		Email: user.Email,
		JTI:   jti,
		Exp:   expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, err
	}

	refresh := util.NewID("rft") + util.NewID("")
	refreshExpires := now.Add(s.cfg.RefreshTTL)
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), user.ID, refreshExpires); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       user.ID,
		UserName:     user.Name,
		Email:        user.Email,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.TokenSecret), token)
	if err != nil {
		return Session{}, err
	}
	revoked, err := s.sessions.IsAccessTokenRevoked(ctx, claims.JTI)
	if err != nil {
		return Session{}, err
	}
	if revoked {
		return Session{}, auth.ErrInvalidToken
	}

	user, err := s.store.GetUserByID(ctx, claims.Sub)
	if err != nil {
		return Session{}, err
	}

	return Session{
		Token:     token,
		UserID:    user.ID,
		UserName:  user.Name,
		Email:     user.Email,
		JTI:       claims.JTI,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

func (s *Service) Logout(ctx context.Context, session Session, refreshToken string) error {
	if session.JTI != "" {
		_ = s.sessions.RevokeAccessToken(ctx, session.JTI, session.ExpiresAt)
	}
	if refreshToken != "" {
		_ = s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken))
	}
	return nil
}

func (s *Service) sendVerificationMail(to, userName, token string) {
	if s.email == nil || !s.email.IsConfigured() || token == "" {
		return
	}
	url := s.cfg.AppBaseURL + "/verify-email?token=" + token
	go func() {
		if err := s.email.SendVerificationEmail(to, userName, url); err != nil {
			s.log.WithField("error", err.Error()).Warn("send verification email failed")
		}
	}()
}

func (s *Service) sendPasswordResetMail(to, userName, token string) {
	if s.email == nil || !s.email.IsConfigured() {
		return
	}
	url := s.cfg.AppBaseURL + "/reset-password?token=" + token
	go func() {
		if err := s.email.SendPasswordResetEmail(to, userName, url); err != nil {
			s.log.WithField("error", err.Error()).Warn("send password reset email failed")
		}
	}()
}

func (s *Service) sendInvitationMail(inv workspace.Invitation, workspaceName, inviterName string) {
	if s.email == nil || !s.email.IsConfigured() {
		return
	}
	url := s.cfg.AppBaseURL + "/invite?token=" + inv.Token
	go func() {
		if err := s.email.SendInvitationEmail(inv.Email, workspaceName, inviterName, string(inv.Role), url); err != nil {
			s.log.WithField("error", err.Error()).Warn("send invitation email failed")
		}
	}()
}
