//go:build integration

package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/spec-kit/console-access/internal/domain"
	"github.com/spec-kit/console-access/internal/persistence"
	"github.com/spec-kit/console-access/internal/testutil/containers"
)

type PostgresRepositorySuite struct {
	suite.Suite
	ctx         context.Context
	users       UserRepository
	permissions PermissionRepository
}

func TestPostgresRepositorySuite(t *testing.T) {
	suite.Run(t, new(PostgresRepositorySuite))
}

func (s *PostgresRepositorySuite) SetupSuite() {
	s.ctx = context.Background()
	pool := containers.NewPostgres(s.T())
	s.Require().NoError(persistence.RunMigrations(s.ctx, pool, "../../migrations", zap.NewNop()))
	// A second run must be a no-op.
	s.Require().NoError(persistence.RunMigrations(s.ctx, pool, "../../migrations", zap.NewNop()))

	s.users = NewUserRepository(pool)
	s.permissions = NewPermissionRepository(pool)
}

func (s *PostgresRepositorySuite) TestSeededPolicy() {
	resources, err := s.permissions.ListRoleResources(s.ctx)
	s.Require().NoError(err)
	s.Contains(resources[domain.RoleAdmin], "/permission/role/:id")
	s.NotContains(resources[domain.RoleUser], "/user/*")
	s.Contains(resources[domain.RoleUser], "/branch/view/edit/:id")

	// Seeded ids follow PermissionIDFor so the memory store and Postgres agree.
	permissions, err := s.permissions.ListPermissions(s.ctx)
	s.Require().NoError(err)
	for _, p := range permissions {
		s.Equal(PermissionIDFor(p.Resource), p.ID)
	}
}

func (s *PostgresRepositorySuite) TestReplaceRolePermissionsIsIdempotent() {
	original, err := s.permissions.RolePermissionIDs(s.ctx, domain.RoleUser)
	s.Require().NoError(err)
	defer func() {
		s.Require().NoError(s.permissions.ReplaceRolePermissions(s.ctx, domain.RoleUser, original))
	}()

	ids := []string{"root", "report.any"}
	s.Require().NoError(s.permissions.ReplaceRolePermissions(s.ctx, domain.RoleUser, ids))
	first, err := s.permissions.RolePermissionIDs(s.ctx, domain.RoleUser)
	s.Require().NoError(err)

	s.Require().NoError(s.permissions.ReplaceRolePermissions(s.ctx, domain.RoleUser, ids))
	second, err := s.permissions.RolePermissionIDs(s.ctx, domain.RoleUser)
	s.Require().NoError(err)

	s.Equal([]string{"report.any", "root"}, first)
	s.Equal(first, second)
}

func (s *PostgresRepositorySuite) TestReplaceRolePermissionsRollsBackOnError() {
	before, err := s.permissions.RolePermissionIDs(s.ctx, domain.RoleAdmin)
	s.Require().NoError(err)

	err = s.permissions.ReplaceRolePermissions(s.ctx, domain.RoleAdmin, []string{"root", "does.not.exist"})
	s.Require().Error(err)

	after, err := s.permissions.RolePermissionIDs(s.ctx, domain.RoleAdmin)
	s.Require().NoError(err)
	s.Equal(before, after)
}

func (s *PostgresRepositorySuite) TestUserRoles() {
	user := &domain.User{Name: "Grace", Email: "grace@example.com", PasswordHash: "hash", Active: true}
	s.Require().NoError(s.users.Create(s.ctx, user))

	found, err := s.users.GetByEmail(s.ctx, "GRACE@example.com")
	s.Require().NoError(err)
	s.Equal(user.ID, found.ID)

	_, err = s.users.GetByID(s.ctx, "missing")
	s.ErrorIs(err, ErrNotFound)

	s.Require().NoError(s.permissions.ReplaceUserRoles(s.ctx, user.ID, []domain.RoleID{domain.RoleUser}))
	roles, err := s.permissions.UserRoleIDs(s.ctx, user.ID)
	s.Require().NoError(err)
	s.Equal([]domain.RoleID{domain.RoleUser}, roles)

	missing, err := s.permissions.MissingRoles(s.ctx, []domain.RoleID{domain.RoleAdmin, "ghost"})
	s.Require().NoError(err)
	s.Equal([]domain.RoleID{"ghost"}, missing)
}
