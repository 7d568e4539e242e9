package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/console-access/internal/domain"
	"github.com/spec-kit/console-access/internal/events"
	"github.com/spec-kit/console-access/internal/repository"
	apperrors "github.com/spec-kit/console-access/pkg/util"
)

// failingRepo fails the replace-all writes.
type failingRepo struct {
	*repository.Memory
	err error
}

func (f failingRepo) ReplaceRolePermissions(context.Context, domain.RoleID, []string) error {
	return f.err
}

func (f failingRepo) ReplaceUserRoles(context.Context, string, []domain.RoleID) error {
	return f.err
}

type PermissionServiceSuite struct {
	suite.Suite
	ctx      context.Context
	repo     *repository.Memory
	user     *domain.User
	service  *PermissionService
	received []events.Event
	logs     *observer.ObservedLogs
}

func TestPermissionServiceSuite(t *testing.T) {
	suite.Run(t, new(PermissionServiceSuite))
}

func (s *PermissionServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.repo = repository.NewMemory()
	s.repo.SeedPolicy(map[domain.RoleID][]string{
		domain.RoleAdmin: {"/", "/user/*", "/permission/*"},
		domain.RoleUser:  {"/", "/report/*"},
	})
	s.user = &domain.User{Name: "Ada", Email: "ada@example.com", Active: true}
	s.Require().NoError(s.repo.Create(s.ctx, s.user))

	core, logs := observer.New(zap.InfoLevel)
	s.logs = logs
	logger := zap.New(core)

	dispatcher := events.NewInMemoryDispatcher()
	s.received = nil
	record := func(_ context.Context, e events.Event) error {
		s.received = append(s.received, e)
		return nil
	}
	dispatcher.Subscribe(events.EventRolePermissionsSynced, record)
	dispatcher.Subscribe(events.EventUserRolesSynced, record)
	NewAuditService(dispatcher, logger).RegisterHandlers()

	s.service = NewPermissionService(s.repo, s.repo, dispatcher, nil, logger)
}

func (s *PermissionServiceSuite) requireStatus(err error, status int) *apperrors.DomainError {
	s.Require().Error(err)
	domainErr := apperrors.ToDomainError(err)
	s.Require().Equal(status, domainErr.HTTPStatus, err.Error())
	s.NotEmpty(domainErr.Message)
	return domainErr
}

func (s *PermissionServiceSuite) TestSyncPermissionsToRoleReplacesTheSet() {
	err := s.service.SyncPermissionsToRole(s.ctx, "user", []string{"report.any", " root ", "report.any"})
	s.Require().NoError(err)

	ids, err := s.service.RolePermissions(s.ctx, "user")
	s.Require().NoError(err)
	s.Equal([]string{"report.any", "root"}, ids)

	s.Require().NoError(s.service.SyncPermissionsToRole(s.ctx, "user", []string{"user.any"}))
	ids, err = s.service.RolePermissions(s.ctx, "user")
	s.Require().NoError(err)
	s.Equal([]string{"user.any"}, ids)

	s.Require().Len(s.received, 2)
	payload := s.received[1].Payload.(events.RolePermissionsSyncedPayload)
	s.Equal([]string{"user.any"}, payload.Added)
	s.Equal([]string{"report.any", "root"}, payload.Removed)
	s.Equal("user", s.received[1].Subject)
}

func (s *PermissionServiceSuite) TestSyncIsIdempotent() {
	ids := []string{"root", "permission.any"}

	s.Require().NoError(s.service.SyncPermissionsToRole(s.ctx, "admin", ids))
	first, err := s.repo.ListRoleResources(s.ctx)
	s.Require().NoError(err)

	s.Require().NoError(s.service.SyncPermissionsToRole(s.ctx, "admin", ids))
	second, err := s.repo.ListRoleResources(s.ctx)
	s.Require().NoError(err)
	s.Equal(first, second)

	roles := []string{"user", "admin"}
	s.Require().NoError(s.service.SyncRolesToUser(s.ctx, s.user.ID, roles))
	once, err := s.service.UserRoles(s.ctx, s.user.ID)
	s.Require().NoError(err)
	s.Require().NoError(s.service.SyncRolesToUser(s.ctx, s.user.ID, roles))
	twice, err := s.service.UserRoles(s.ctx, s.user.ID)
	s.Require().NoError(err)
	s.Equal(once, twice)
	s.Equal([]domain.RoleID{domain.RoleAdmin, domain.RoleUser}, twice)
}

func (s *PermissionServiceSuite) TestSyncToEmptySet() {
	s.Require().NoError(s.service.SyncPermissionsToRole(s.ctx, "user", nil))
	ids, err := s.service.RolePermissions(s.ctx, "user")
	s.Require().NoError(err)
	s.Empty(ids)

	s.Require().NoError(s.service.SyncRolesToUser(s.ctx, s.user.ID, []string{}))
	roles, err := s.service.UserRoles(s.ctx, s.user.ID)
	s.Require().NoError(err)
	s.Empty(roles)
}

func (s *PermissionServiceSuite) TestSyncValidation() {
	s.Run("unknown role", func() {
		err := s.service.SyncPermissionsToRole(s.ctx, "ghost", []string{"root"})
		s.requireStatus(err, http.StatusNotFound)
	})
	s.Run("blank role", func() {
		err := s.service.SyncPermissionsToRole(s.ctx, " ", []string{"root"})
		s.requireStatus(err, http.StatusBadRequest)
	})
	s.Run("unknown permissions are listed", func() {
		err := s.service.SyncPermissionsToRole(s.ctx, "user", []string{"root", "zzz", "aaa"})
		domainErr := s.requireStatus(err, http.StatusBadRequest)
		s.Equal([]string{"aaa", "zzz"}, domainErr.Details["permission_ids"])
	})
	s.Run("blank permission id", func() {
		err := s.service.SyncPermissionsToRole(s.ctx, "user", []string{"root", ""})
		s.requireStatus(err, http.StatusBadRequest)
	})
	s.Run("unknown user", func() {
		err := s.service.SyncRolesToUser(s.ctx, "nobody", []string{"user"})
		s.requireStatus(err, http.StatusNotFound)
	})
	s.Run("unknown roles are listed", func() {
		err := s.service.SyncRolesToUser(s.ctx, s.user.ID, []string{"user", "ghost"})
		domainErr := s.requireStatus(err, http.StatusBadRequest)
		s.Equal([]domain.RoleID{"ghost"}, domainErr.Details["role_ids"])
	})

	ids, err := s.service.RolePermissions(s.ctx, "user")
	s.Require().NoError(err)
	s.Equal([]string{"report.any", "root"}, ids, "rejected syncs must not change state")
	s.Empty(s.received)
}

func (s *PermissionServiceSuite) TestStorageFailureIsSyncFailed() {
	boom := errors.New("connection reset")
	service := NewPermissionService(failingRepo{Memory: s.repo, err: boom}, s.repo, nil, nil, zap.NewNop())

	err := service.SyncPermissionsToRole(s.ctx, "user", []string{"root"})
	domainErr := s.requireStatus(err, http.StatusBadGateway)
	s.Equal("SYNC_FAILED", domainErr.Code)
	s.Contains(domainErr.Message, `role "user"`)
	s.ErrorIs(err, boom)

	err = service.SyncRolesToUser(s.ctx, s.user.ID, []string{"user"})
	domainErr = s.requireStatus(err, http.StatusBadGateway)
	s.Equal("SYNC_FAILED", domainErr.Code)
}

func (s *PermissionServiceSuite) TestAuditTrail() {
	ctx := WithActor(s.ctx, events.Actor{UserID: "admin-1", SessionID: "sess-1", Role: domain.RoleAdmin})
	s.Require().NoError(s.service.SyncRolesToUser(ctx, s.user.ID, []string{"user"}))

	entries := s.logs.FilterMessage("UserRolesSynced").All()
	s.Require().Len(entries, 1)
	fields := entries[0].ContextMap()
	s.Equal(s.user.ID, fields["subject"])
	s.Equal("admin-1", fields["actor_user_id"])
	s.Equal("sess-1", fields["actor_session_id"])
}

func (s *PermissionServiceSuite) TestReadOperations() {
	permissions, err := s.service.ListPermissions(s.ctx)
	s.Require().NoError(err)
	s.Len(permissions, 4)

	roles, err := s.service.ListRoles(s.ctx)
	s.Require().NoError(err)
	s.Len(roles, 2)

	_, err = s.service.RolePermissions(s.ctx, "ghost")
	s.requireStatus(err, http.StatusNotFound)

	_, err = s.service.UserRoles(s.ctx, "ghost")
	s.requireStatus(err, http.StatusNotFound)
}

func TestNormalizeIDs(t *testing.T) {
	ids, err := normalizeIDs([]string{"b", "a", " b", "c "})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids)

	_, err = normalizeIDs([]string{"a", "  "})
	assert.Error(t, err)

	ids, err = normalizeIDs(nil)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestDiff(t *testing.T) {
	added, removed := diff([]string{"a", "b"}, []string{"b", "c"})
	assert.Equal(t, []string{"c"}, added)
	assert.Equal(t, []string{"a"}, removed)

	added, removed = diff([]string{"a"}, []string{"a"})
	assert.Empty(t, added)
	assert.Empty(t, removed)
}
