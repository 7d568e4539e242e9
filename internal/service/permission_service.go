package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/spec-kit/console-access/internal/domain"
	"github.com/spec-kit/console-access/internal/events"
	"github.com/spec-kit/console-access/internal/observability"
	"github.com/spec-kit/console-access/internal/repository"
	apperrors "github.com/spec-kit/console-access/pkg/util"
)

// Sync operations reported to metrics.
const (
	opSyncPermissionsToRole = "sync_permissions_to_role"
	opSyncRolesToUser       = "sync_roles_to_user"
)

// PermissionService replaces role and user assignments on behalf of the
// permission screens. Changes apply to sessions started afterwards; sessions
// already issued keep their snapshot.
type PermissionService struct {
	permissions repository.PermissionRepository
	users       repository.UserRepository
	dispatcher  events.Dispatcher
	metrics     *observability.Metrics
	logger      *zap.Logger
}

// NewPermissionService builds the service.
func NewPermissionService(permissions repository.PermissionRepository, users repository.UserRepository, dispatcher events.Dispatcher, metrics *observability.Metrics, logger *zap.Logger) *PermissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PermissionService{
		permissions: permissions,
		users:       users,
		dispatcher:  dispatcher,
		metrics:     metrics,
		logger:      logger,
	}
}

// ListPermissions returns every permission.
func (s *PermissionService) ListPermissions(ctx context.Context) ([]domain.Permission, error) {
	permissions, err := s.permissions.ListPermissions(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return permissions, nil
}

// ListRoles returns every role.
func (s *PermissionService) ListRoles(ctx context.Context) ([]domain.Role, error) {
	roles, err := s.permissions.ListRoles(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return roles, nil
}

// RolePermissions returns the permission ids synced to a role.
func (s *PermissionService) RolePermissions(ctx context.Context, roleID string) ([]string, error) {
	role, err := s.requireRole(ctx, roleID)
	if err != nil {
		return nil, err
	}
	ids, err := s.permissions.RolePermissionIDs(ctx, role)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return ids, nil
}

// UserRoles returns the role ids synced to a user.
func (s *PermissionService) UserRoles(ctx context.Context, userID string) ([]domain.RoleID, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	ids, err := s.permissions.UserRoleIDs(ctx, userID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return ids, nil
}

// SyncPermissionsToRole makes permissionIDs the role's complete permission
// set. Repeating a sync with the same ids leaves the same state.
func (s *PermissionService) SyncPermissionsToRole(ctx context.Context, roleID string, permissionIDs []string) (err error) {
	ctx, span := observability.StartSpan(ctx, "permissions.SyncPermissionsToRole",
		attribute.String("role_id", roleID),
		attribute.Int("permission_count", len(permissionIDs)))
	defer span.End()
	defer func() { s.finish(opSyncPermissionsToRole, roleID, err); observability.RecordError(span, err) }()

	role, err := s.requireRole(ctx, roleID)
	if err != nil {
		return err
	}
	ids, err := normalizeIDs(permissionIDs)
	if err != nil {
		return apperrors.NewValidationError(err.Error(), map[string]any{"permission_ids": permissionIDs})
	}

	missing, err := s.permissions.MissingPermissions(ctx, ids)
	if err != nil {
		return apperrors.NewSyncFailure(fmt.Sprintf("could not verify the permissions for role %q; nothing was changed", role), err)
	}
	if len(missing) > 0 {
		return apperrors.NewValidationError("unknown permission ids", map[string]any{"permission_ids": missing})
	}

	previous, err := s.permissions.RolePermissionIDs(ctx, role)
	if err != nil {
		return apperrors.NewSyncFailure(fmt.Sprintf("could not read the permissions of role %q; nothing was changed", role), err)
	}
	if err := s.permissions.ReplaceRolePermissions(ctx, role, ids); err != nil {
		return apperrors.NewSyncFailure(fmt.Sprintf("failed to sync permissions to role %q; nothing was changed", role), err)
	}

	added, removed := diff(previous, ids)
	publish(ctx, s.dispatcher, s.logger, events.Event{
		Type:    events.EventRolePermissionsSynced,
		Subject: string(role),
		Actor:   actorFromContext(ctx),
		Payload: events.RolePermissionsSyncedPayload{Previous: previous, Current: ids, Added: added, Removed: removed},
	})
	return nil
}

// SyncRolesToUser makes roleIDs the user's complete role set. Repeating a
// sync with the same ids leaves the same state.
func (s *PermissionService) SyncRolesToUser(ctx context.Context, userID string, roleIDs []string) (err error) {
	ctx, span := observability.StartSpan(ctx, "permissions.SyncRolesToUser",
		attribute.String("user_id", userID),
		attribute.Int("role_count", len(roleIDs)))
	defer span.End()
	defer func() { s.finish(opSyncRolesToUser, userID, err); observability.RecordError(span, err) }()

	if err := s.requireUser(ctx, userID); err != nil {
		return err
	}
	normalized, err := normalizeIDs(roleIDs)
	if err != nil {
		return apperrors.NewValidationError(err.Error(), map[string]any{"role_ids": roleIDs})
	}
	ids := make([]domain.RoleID, len(normalized))
	for i, id := range normalized {
		ids[i] = domain.RoleID(id)
	}

	missing, err := s.permissions.MissingRoles(ctx, ids)
	if err != nil {
		return apperrors.NewSyncFailure("could not verify the roles for this user; nothing was changed", err)
	}
	if len(missing) > 0 {
		return apperrors.NewValidationError("unknown role ids", map[string]any{"role_ids": missing})
	}

	previous, err := s.permissions.UserRoleIDs(ctx, userID)
	if err != nil {
		return apperrors.NewSyncFailure("could not read the roles of this user; nothing was changed", err)
	}
	if err := s.permissions.ReplaceUserRoles(ctx, userID, ids); err != nil {
		return apperrors.NewSyncFailure("failed to sync roles to this user; nothing was changed", err)
	}

	added, removed := diff(roleStrings(previous), normalized)
	publish(ctx, s.dispatcher, s.logger, events.Event{
		Type:    events.EventUserRolesSynced,
		Subject: userID,
		Actor:   actorFromContext(ctx),
		Payload: events.UserRolesSyncedPayload{
			Previous: previous,
			Current:  ids,
			Added:    toRoleIDs(added),
			Removed:  toRoleIDs(removed),
		},
	})
	return nil
}

func (s *PermissionService) requireRole(ctx context.Context, roleID string) (domain.RoleID, error) {
	roleID = strings.TrimSpace(roleID)
	if roleID == "" {
		return "", apperrors.NewValidationError("role id is required", nil)
	}
	role, err := s.permissions.GetRole(ctx, domain.RoleID(roleID))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", apperrors.NewNotFound("role", map[string]any{"role_id": roleID})
		}
		return "", apperrors.NewSyncFailure(fmt.Sprintf("could not load role %q", roleID), err)
	}
	return role.ID, nil
}

func (s *PermissionService) requireUser(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return apperrors.NewValidationError("user id is required", nil)
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewNotFound("user", map[string]any{"user_id": userID})
		}
		return apperrors.NewSyncFailure("could not load the user", err)
	}
	return nil
}

func (s *PermissionService) finish(operation, subject string, err error) {
	if err == nil {
		s.metrics.RecordSync(operation, "success")
		s.logger.Info("sync applied", zap.String("operation", operation), zap.String("subject", subject))
		return
	}
	domainErr := apperrors.ToDomainError(err)
	s.metrics.RecordSync(operation, strings.ToLower(domainErr.Code))
	s.logger.Warn("sync rejected",
		zap.String("operation", operation),
		zap.String("subject", subject),
		zap.String("code", domainErr.Code),
		zap.Error(err))
}

// normalizeIDs trims, de-duplicates and sorts ids. Blank ids are rejected.
func normalizeIDs(ids []string) ([]string, error) {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, errors.New("ids must not be blank")
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func diff(previous, current []string) (added, removed []string) {
	before := make(map[string]struct{}, len(previous))
	for _, id := range previous {
		before[id] = struct{}{}
	}
	after := make(map[string]struct{}, len(current))
	for _, id := range current {
		after[id] = struct{}{}
		if _, ok := before[id]; !ok {
			added = append(added, id)
		}
	}
	for _, id := range previous {
		if _, ok := after[id]; !ok {
			removed = append(removed, id)
		}
	}
	return added, removed
}

func roleStrings(ids []domain.RoleID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

func toRoleIDs(ids []string) []domain.RoleID {
	out := make([]domain.RoleID, len(ids))
	for i, id := range ids {
		out[i] = domain.RoleID(id)
	}
	return out
}
