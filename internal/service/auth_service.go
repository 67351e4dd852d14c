package service

import (
	"context"
	"errors"

	"github.com/dom/tps-identity/internal/authz"
	"github.com/dom/tps-identity/internal/domain"
	"github.com/dom/tps-identity/internal/identity"
	"github.com/dom/tps-identity/internal/metrics"
	"github.com/dom/tps-identity/internal/token"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	MsgRegistered    = "User registered successfully"
	MsgLoggedIn      = "Login successful"
	MsgLoggedOut     = "Logged out successfully. Please discard your token."
	MsgResetSent     = "Password reset instructions have been sent to your email"
	MsgResetComplete = "Password has been reset successfully"
	MsgPasswordSet   = "Password changed successfully"
	MsgProfileSaved  = "Profile updated successfully"
	MsgRoleSaved     = "User role updated successfully"
	MsgUserDeleted   = "User deleted successfully"
	MsgAdminCreated  = "Admin user created successfully"
)

type AuthService struct {
	dir     *identity.Directory
	ledger  *identity.Ledger
	issuer  *token.Issuer
	audit   *Auditor
	metrics metrics.Recorder
	log     *zap.Logger
}

func NewAuthService(dir *identity.Directory, ledger *identity.Ledger, issuer *token.Issuer, audit *Auditor, rec metrics.Recorder, log *zap.Logger) *AuthService {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &AuthService{
		dir:     dir,
		ledger:  ledger,
		issuer:  issuer,
		audit:   audit,
		metrics: rec,
		log:     log,
	}
}

type RegisterInput struct {
	Email    string
	Name     string
	Password string
}

type LoginInput struct {
	Email    string
	Password string
}

type AuthResult struct {
	User    domain.PublicUser
	Token   token.Token
	Message string
}

type ProfileInput struct {
	Email *string
	Name  *string
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	user, err := s.dir.Register(input.Email, input.Name, input.Password)
	if err != nil {
		s.metrics.RecordRegistration(outcomeOf(err))
		return nil, err
	}
	s.metrics.RecordRegistration("success")
	s.metrics.SetUsers(s.dir.Len())
	s.audit.Record(ctx, domain.AuditUserRegistered, nil, uuidPtr(user.ID), nil)

	tok, err := s.issuer.Issue(token.SubjectOf(user))
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Token: tok, Message: MsgRegistered}, nil
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	user, err := s.dir.Authenticate(input.Email, input.Password)
	if err != nil {
		s.metrics.RecordLogin(outcomeOf(err))
		switch {
		case errors.Is(err, domain.ErrCryptoFormat):
			s.credentialFault(ctx, nil, err)
		case errors.Is(err, identity.ErrInvalidCredentials):
			s.audit.Record(ctx, domain.AuditLoginFailed, nil, nil, nil)
		}
		return nil, err
	}
	s.metrics.RecordLogin("success")

	tok, err := s.issuer.Issue(token.SubjectOf(user))
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Token: tok, Message: MsgLoggedIn}, nil
}

// VerifyToken checks a bearer token and returns its claims.
func (s *AuthService) VerifyToken(raw string) (*token.SessionClaims, error) {
	claims, err := s.issuer.Verify(raw)
	if err != nil {
		s.metrics.RecordTokenVerification("rejected")
		return nil, err
	}
	s.metrics.RecordTokenVerification("accepted")
	return claims, nil
}

// Me returns the caller's own record. A valid token whose user has since
// been deleted yields domain.ErrNotFound.
func (s *AuthService) Me(ctx context.Context, claims *token.SessionClaims) (domain.PublicUser, error) {
	id, err := claims.UserID()
	if err != nil {
		return domain.PublicUser{}, token.ErrInvalidToken
	}
	return s.GetUser(ctx, claims, id)
}

func (s *AuthService) GetUser(ctx context.Context, claims *token.SessionClaims, id uuid.UUID) (domain.PublicUser, error) {
	if !authz.Allowed(claims, authz.ActionRead, id) {
		return domain.PublicUser{}, domain.ErrForbidden
	}
	user, ok := s.dir.FindByID(id)
	if !ok {
		return domain.PublicUser{}, domain.ErrNotFound
	}
	return user.Public(), nil
}

func (s *AuthService) UpdateProfile(ctx context.Context, claims *token.SessionClaims, id uuid.UUID, input ProfileInput) (domain.PublicUser, error) {
	if !authz.Allowed(claims, authz.ActionUpdate, id) {
		return domain.PublicUser{}, domain.ErrForbidden
	}
	user, err := s.dir.UpdateProfile(id, input.Email, input.Name)
	if err != nil {
		return domain.PublicUser{}, err
	}
	s.audit.Record(ctx, domain.AuditProfileUpdated, actorOf(claims), uuidPtr(id), map[string]any{
		"email_changed": input.Email != nil,
		"name_changed":  input.Name != nil,
	})
	return user, nil
}

func (s *AuthService) ChangePassword(ctx context.Context, claims *token.SessionClaims, id uuid.UUID, current, next string) error {
	if !authz.Allowed(claims, authz.ActionRotatePassword, id) {
		return domain.ErrForbidden
	}
	if err := s.dir.RotatePassword(id, current, next); err != nil {
		if errors.Is(err, domain.ErrCryptoFormat) {
			s.credentialFault(ctx, uuidPtr(id), err)
		}
		return err
	}
	s.audit.Record(ctx, domain.AuditPasswordChanged, actorOf(claims), uuidPtr(id), nil)
	return nil
}

func (s *AuthService) DeleteUser(ctx context.Context, claims *token.SessionClaims, id uuid.UUID) error {
	if !authz.Allowed(claims, authz.ActionDelete, id) {
		return domain.ErrForbidden
	}
	if err := s.dir.Delete(id); err != nil {
		return err
	}
	s.metrics.SetUsers(s.dir.Len())
	s.audit.Record(ctx, domain.AuditUserDeleted, actorOf(claims), uuidPtr(id), nil)
	return nil
}

func (s *AuthService) SetRole(ctx context.Context, claims *token.SessionClaims, id uuid.UUID, isAdmin bool) (domain.PublicUser, error) {
	if !authz.Allowed(claims, authz.ActionSetRole, id) {
		return domain.PublicUser{}, domain.ErrForbidden
	}
	user, err := s.dir.SetRole(id, isAdmin)
	if err != nil {
		return domain.PublicUser{}, err
	}
	s.audit.Record(ctx, domain.AuditRoleChanged, actorOf(claims), uuidPtr(id), map[string]any{
		"is_admin": isAdmin,
	})
	return user, nil
}

func (s *AuthService) ListUsers(ctx context.Context, claims *token.SessionClaims) ([]domain.PublicUser, error) {
	if !authz.Allowed(claims, authz.ActionList, uuid.Nil) {
		return nil, domain.ErrForbidden
	}
	return s.dir.List(), nil
}

func (s *AuthService) CreateAdmin(ctx context.Context, claims *token.SessionClaims, input RegisterInput) (domain.PublicUser, error) {
	if !authz.Allowed(claims, authz.ActionCreateAdmin, uuid.Nil) {
		return domain.PublicUser{}, domain.ErrForbidden
	}
	user, err := s.dir.CreateAdmin(input.Email, input.Name, input.Password)
	if err != nil {
		return domain.PublicUser{}, err
	}
	s.metrics.SetUsers(s.dir.Len())
	s.audit.Record(ctx, domain.AuditAdminCreated, actorOf(claims), uuidPtr(user.ID), nil)
	return user, nil
}

// RecentEvents returns persisted audit events for admins.
func (s *AuthService) RecentEvents(ctx context.Context, claims *token.SessionClaims, limit int) ([]domain.AuditEvent, error) {
	if !authz.Allowed(claims, authz.ActionWatchEvents, uuid.Nil) {
		return nil, domain.ErrForbidden
	}
	return s.audit.Recent(ctx, limit)
}

// CanWatchEvents reports whether claims may subscribe to the live audit stream.
func (s *AuthService) CanWatchEvents(claims *token.SessionClaims) bool {
	return authz.Allowed(claims, authz.ActionWatchEvents, uuid.Nil)
}

// ForgotPassword issues a reset token when email belongs to a user. The
// caller always gets the same acknowledgement. There is no mail transport;
// the token goes to the operator log.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) string {
	tok, err := s.ledger.Issue(email)
	switch {
	case err == nil:
		s.metrics.RecordReset("request", "issued")
		user, _ := s.dir.FindByEmail(email)
		s.audit.Record(ctx, domain.AuditResetRequested, nil, uuidPtr(user.ID), nil)
		s.log.Info("password reset token issued",
			zap.String("channel", "operator"),
			zap.String("user_id", user.ID.String()),
			zap.String("reset_token", tok),
		)
	case errors.Is(err, domain.ErrNotFound):
		s.metrics.RecordReset("request", "unknown_email")
	default:
		s.metrics.RecordReset("request", "error")
		s.log.Error("failed to issue reset token", zap.Error(err))
	}
	return MsgResetSent
}

func (s *AuthService) ResetPassword(ctx context.Context, tok, newPassword string) error {
	if err := s.ledger.Consume(tok, newPassword); err != nil {
		s.metrics.RecordReset("complete", outcomeOf(err))
		return err
	}
	s.metrics.RecordReset("complete", "success")
	s.audit.Record(ctx, domain.AuditResetCompleted, nil, nil, nil)
	return nil
}

// BootstrapAdmin creates the configured admin at startup. An existing user
// with that email is left untouched.
func (s *AuthService) BootstrapAdmin(ctx context.Context, input RegisterInput) error {
	if _, exists := s.dir.FindByEmail(input.Email); exists {
		s.log.Info("bootstrap admin already present", zap.String("email", input.Email))
		return nil
	}
	user, err := s.dir.CreateAdmin(input.Email, input.Name, input.Password)
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil
		}
		return err
	}
	s.metrics.SetUsers(s.dir.Len())
	s.audit.Record(ctx, domain.AuditAdminCreated, nil, uuidPtr(user.ID), map[string]any{
		"bootstrap": true,
	})
	s.log.Info("bootstrap admin created", zap.String("user_id", user.ID.String()))
	return nil
}

func (s *AuthService) credentialFault(ctx context.Context, subject *uuid.UUID, err error) {
	s.log.Error("stored credential could not be parsed", zap.Error(err))
	s.audit.Record(ctx, domain.AuditCredentialCorrupted, nil, subject, nil)
}

func actorOf(claims *token.SessionClaims) *uuid.UUID {
	id, err := claims.UserID()
	if err != nil {
		return nil
	}
	return &id
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, domain.ErrPolicyViolation):
		return "policy_violation"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, domain.ErrInvalidResetToken):
		return "invalid_token"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrCryptoFormat):
		return "crypto_format"
	default:
		return "error"
	}
}
