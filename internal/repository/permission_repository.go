package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/console-access/internal/domain"
)

// PermissionRepository manages roles, permissions and their assignments.
// Assignments are only ever replaced as a whole.
type PermissionRepository interface {
	ListPermissions(ctx context.Context) ([]domain.Permission, error)
	ListRoles(ctx context.Context) ([]domain.Role, error)
	GetRole(ctx context.Context, id domain.RoleID) (*domain.Role, error)
	// MissingPermissions returns the ids in ids that name no permission.
	MissingPermissions(ctx context.Context, ids []string) ([]string, error)
	// MissingRoles returns the ids in ids that name no role.
	MissingRoles(ctx context.Context, ids []domain.RoleID) ([]domain.RoleID, error)
	RolePermissionIDs(ctx context.Context, roleID domain.RoleID) ([]string, error)
	UserRoleIDs(ctx context.Context, userID string) ([]domain.RoleID, error)
	ReplaceRolePermissions(ctx context.Context, roleID domain.RoleID, permissionIDs []string) error
	ReplaceUserRoles(ctx context.Context, userID string, roleIDs []domain.RoleID) error
	// ListRoleResources returns every role with the resources of its
	// permissions. Roles without permissions map to an empty slice.
	ListRoleResources(ctx context.Context) (map[domain.RoleID][]string, error)
}

type permissionRepository struct {
	pool *pgxpool.Pool
}

// NewPermissionRepository returns a Postgres-backed implementation.
func NewPermissionRepository(pool *pgxpool.Pool) PermissionRepository {
	return &permissionRepository{pool: pool}
}

func (r *permissionRepository) ListPermissions(ctx context.Context) ([]domain.Permission, error) {
	const query = `
        SELECT id, name, resource, created_at
        FROM permissions ORDER BY resource, id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var permissions []domain.Permission
	for rows.Next() {
		var p domain.Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Resource, &p.CreatedAt); err != nil {
			return nil, err
		}
		permissions = append(permissions, p)
	}
	return permissions, rows.Err()
}

func (r *permissionRepository) ListRoles(ctx context.Context) ([]domain.Role, error) {
	const query = `SELECT id, name, created_at FROM roles ORDER BY id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []domain.Role
	for rows.Next() {
		var role domain.Role
		if err := rows.Scan(&role.ID, &role.Name, &role.CreatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func (r *permissionRepository) GetRole(ctx context.Context, id domain.RoleID) (*domain.Role, error) {
	const query = `SELECT id, name, created_at FROM roles WHERE id=$1`

	var role domain.Role
	if err := r.pool.QueryRow(ctx, query, string(id)).Scan(&role.ID, &role.Name, &role.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &role, nil
}

func (r *permissionRepository) MissingPermissions(ctx context.Context, ids []string) ([]string, error) {
	const query = `
        SELECT requested.id
        FROM unnest($1::text[]) AS requested(id)
        LEFT JOIN permissions p ON p.id = requested.id
        WHERE p.id IS NULL
        ORDER BY requested.id`

	return collectStrings(r.pool.Query(ctx, query, ids))
}

func (r *permissionRepository) MissingRoles(ctx context.Context, ids []domain.RoleID) ([]domain.RoleID, error) {
	const query = `
        SELECT requested.id
        FROM unnest($1::text[]) AS requested(id)
        LEFT JOIN roles r ON r.id = requested.id
        WHERE r.id IS NULL
        ORDER BY requested.id`

	missing, err := collectStrings(r.pool.Query(ctx, query, roleStrings(ids)))
	if err != nil {
		return nil, err
	}
	return toRoleIDs(missing), nil
}

func (r *permissionRepository) RolePermissionIDs(ctx context.Context, roleID domain.RoleID) ([]string, error) {
	const query = `
        SELECT permission_id FROM role_permissions
        WHERE role_id=$1 ORDER BY permission_id`

	return collectStrings(r.pool.Query(ctx, query, string(roleID)))
}

func (r *permissionRepository) UserRoleIDs(ctx context.Context, userID string) ([]domain.RoleID, error) {
	const query = `
        SELECT role_id FROM user_roles
        WHERE user_id=$1 ORDER BY role_id`

	ids, err := collectStrings(r.pool.Query(ctx, query, userID))
	if err != nil {
		return nil, err
	}
	return toRoleIDs(ids), nil
}

func (r *permissionRepository) ReplaceRolePermissions(ctx context.Context, roleID domain.RoleID, permissionIDs []string) error {
	const (
		clear  = `DELETE FROM role_permissions WHERE role_id=$1`
		insert = `
        INSERT INTO role_permissions (role_id, permission_id)
        SELECT $1, unnest($2::text[])`
	)

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, clear, string(roleID)); err != nil {
			return fmt.Errorf("clear role permissions: %w", err)
		}
		if len(permissionIDs) == 0 {
			return nil
		}
		if _, err := tx.Exec(ctx, insert, string(roleID), permissionIDs); err != nil {
			return fmt.Errorf("insert role permissions: %w", err)
		}
		return nil
	})
}

func (r *permissionRepository) ReplaceUserRoles(ctx context.Context, userID string, roleIDs []domain.RoleID) error {
	const (
		clear  = `DELETE FROM user_roles WHERE user_id=$1`
		insert = `
        INSERT INTO user_roles (user_id, role_id)
        SELECT $1, unnest($2::text[])`
	)

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, clear, userID); err != nil {
			return fmt.Errorf("clear user roles: %w", err)
		}
		if len(roleIDs) == 0 {
			return nil
		}
		if _, err := tx.Exec(ctx, insert, userID, roleStrings(roleIDs)); err != nil {
			return fmt.Errorf("insert user roles: %w", err)
		}
		return nil
	})
}

func (r *permissionRepository) ListRoleResources(ctx context.Context) (map[domain.RoleID][]string, error) {
	const query = `
        SELECT r.id, p.resource
        FROM roles r
        LEFT JOIN role_permissions rp ON rp.role_id = r.id
        LEFT JOIN permissions p ON p.id = rp.permission_id
        ORDER BY r.id, p.resource`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	resources := make(map[domain.RoleID][]string)
	for rows.Next() {
		var (
			role     string
			resource *string
		)
		if err := rows.Scan(&role, &resource); err != nil {
			return nil, err
		}
		id := domain.RoleID(role)
		if _, ok := resources[id]; !ok {
			resources[id] = []string{}
		}
		if resource != nil {
			resources[id] = append(resources[id], *resource)
		}
	}
	return resources, rows.Err()
}

func collectStrings(rows pgx.Rows, err error) ([]string, error) {
	if err != nil {
		return nil, err
	}
	values, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	if values == nil {
		values = []string{}
	}
	return values, nil
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
