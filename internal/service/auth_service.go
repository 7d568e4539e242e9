package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/spec-kit/console-access/internal/auth"
	"github.com/spec-kit/console-access/internal/config"
	"github.com/spec-kit/console-access/internal/domain"
	"github.com/spec-kit/console-access/internal/events"
	"github.com/spec-kit/console-access/internal/observability"
	"github.com/spec-kit/console-access/internal/policy"
	"github.com/spec-kit/console-access/internal/repository"
	"github.com/spec-kit/console-access/internal/session"
	apperrors "github.com/spec-kit/console-access/pkg/util"
)

// Sign-in results reported to metrics.
const (
	signInSuccess            = "success"
	signInInvalidCredentials = "invalid_credentials"
	signInInactive           = "inactive"
	signInNoRole             = "no_role"
	signInRoleNotAssigned    = "role_not_assigned"
	signInUnknownRole        = "unknown_role"
	signInError              = "error"
)

// AuthService coordinates sign-in and sign-out.
type AuthService struct {
	users      repository.UserRepository
	grants     repository.PermissionRepository
	policies   policy.Source
	sessions   session.Store
	tokenMgr   *auth.TokenManager
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	bcryptCost int
}

// AuthDependencies encapsulates collaborators of the auth service.
type AuthDependencies struct {
	UserRepo       repository.UserRepository
	PermissionRepo repository.PermissionRepository
	Policies       policy.Source
	Sessions       session.Store
	Tokens         *auth.TokenManager
	Dispatcher     events.Dispatcher
	Metrics        *observability.Metrics
	Logger         *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	tokens := deps.Tokens
	if tokens == nil {
		tokens = auth.NewTokenManager(cfg.JWTSecret, cfg.Issuer, cfg.AccessTokenTTL())
	}
	return &AuthService{
		users:      deps.UserRepo,
		grants:     deps.PermissionRepo,
		policies:   deps.Policies,
		sessions:   deps.Sessions,
		tokenMgr:   tokens,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		bcryptCost: cfg.BcryptCost,
	}
}

// TokenManager exposes the token manager for the HTTP middleware.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// SignInResult is a successful sign-in.
type SignInResult struct {
	User       *domain.User
	Credential *domain.Credential
	// Roles lists every role assigned to the user; Credential.Role is the
	// one this session acts as.
	Roles []domain.RoleID
}

// SignIn verifies the password, picks the session role and persists the
// credential with the role's policy snapshot. The credential is stored
// before the token is returned. An empty role selects the user's only role,
// or the first in sorted order when several are assigned.
func (s *AuthService) SignIn(ctx context.Context, email, password string, role domain.RoleID) (res *SignInResult, err error) {
	ctx, span := observability.StartSpan(ctx, "auth.SignIn")
	defer span.End()

	result := signInError
	defer func() {
		s.metrics.RecordSignIn(result)
		observability.RecordError(span, err)
	}()

	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		result = signInInvalidCredentials
		return nil, apperrors.NewValidationError("email and password are required", nil)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			_ = auth.ComparePassword("", password)
			result = signInInvalidCredentials
			return nil, apperrors.NewUnauthorized("invalid email or password")
		}
		return nil, apperrors.NewInternalError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		result = signInInvalidCredentials
		return nil, apperrors.NewUnauthorized("invalid email or password")
	}
	if !user.Active {
		result = signInInactive
		return nil, apperrors.NewForbidden("this account is disabled")
	}

	roles, err := s.grants.UserRoleIDs(ctx, user.ID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	selected, err := selectRole(roles, role)
	if err != nil {
		if len(roles) == 0 {
			result = signInNoRole
		} else {
			result = signInRoleNotAssigned
		}
		return nil, err
	}
	span.SetAttributes(attribute.String("role", string(selected)))

	current, err := s.policies.Load(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("load policy: %w", err))
	}
	if !current.Table.Has(selected) {
		result = signInUnknownRole
		return nil, apperrors.NewDomainError("FORBIDDEN",
			fmt.Sprintf("role %q has no console access policy", selected),
			http.StatusForbidden, map[string]any{"role": selected})
	}

	sessionID := uuid.NewString()
	token, issuedAt, expiresAt, err := s.tokenMgr.GenerateToken(sessionID, user.ID, selected)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	cred := &domain.Credential{
		SessionID: sessionID,
		UserID:    user.ID,
		Role:      selected,
		Token:     token,
		ExpiresAt: expiresAt,
		IssuedAt:  issuedAt,
		Patterns:  current.Table.AllowedPatterns(selected),
	}
	if err := s.sessions.Save(ctx, cred); err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("save session: %w", err))
	}

	result = signInSuccess
	s.logger.Info("signed in",
		zap.String("user_id", user.ID),
		zap.String("session_id", sessionID),
		zap.String("role", string(selected)))
	publish(ctx, s.dispatcher, s.logger, events.Event{
		Type:    events.EventSignedIn,
		Subject: user.ID,
		Actor:   events.Actor{UserID: user.ID, SessionID: sessionID, Role: selected},
		Payload: events.SignedInPayload{Role: selected, ExpiresAt: expiresAt, Patterns: len(cred.Patterns)},
	})

	return &SignInResult{User: user, Credential: cred, Roles: roles}, nil
}

func selectRole(assigned []domain.RoleID, requested domain.RoleID) (domain.RoleID, error) {
	if len(assigned) == 0 {
		return "", apperrors.NewForbidden("no role is assigned to this account")
	}
	if requested == "" {
		return assigned[0], nil
	}
	for _, role := range assigned {
		if role == requested {
			return role, nil
		}
	}
	return "", apperrors.NewDomainError("FORBIDDEN",
		fmt.Sprintf("role %q is not assigned to this account", requested),
		http.StatusForbidden, map[string]any{"assigned_roles": assigned})
}

// SignOut removes the session's credential. Signing out an absent session
// succeeds.
func (s *AuthService) SignOut(ctx context.Context, sess *domain.Session) error {
	if sess == nil || sess.ID == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, sess.ID); err != nil {
		return apperrors.NewInternalError(fmt.Errorf("delete session: %w", err))
	}
	s.logger.Info("signed out", zap.String("user_id", sess.UserID), zap.String("session_id", sess.ID))
	publish(ctx, s.dispatcher, s.logger, events.Event{
		Type:    events.EventSignedOut,
		Subject: sess.UserID,
		Actor:   events.Actor{UserID: sess.UserID, SessionID: sess.ID, Role: sess.Role},
	})
	return nil
}

// EnsureUser creates the account with the given role if no user has the
// email yet. It is used to bootstrap the first administrator.
func (s *AuthService) EnsureUser(ctx context.Context, name, email, password string, role domain.RoleID) (*domain.User, bool, error) {
	existing, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, false, err
	}
	user := &domain.User{Name: name, Email: email, PasswordHash: hash, Active: true}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, false, err
	}
	if err := s.grants.ReplaceUserRoles(ctx, user.ID, []domain.RoleID{role}); err != nil {
		return nil, false, err
	}
	return user, true, nil
}
