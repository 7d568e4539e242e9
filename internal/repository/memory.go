package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/console-access/internal/domain"
)

// Memory is an in-process implementation of UserRepository and
// PermissionRepository. It backs the service when Postgres is not configured
// and in tests.
type Memory struct {
	mu              sync.RWMutex
	users           map[string]domain.User
	roles           map[domain.RoleID]domain.Role
	permissions     map[string]domain.Permission
	rolePermissions map[domain.RoleID]map[string]struct{}
	userRoles       map[string]map[domain.RoleID]struct{}
}

var (
	_ UserRepository       = (*Memory)(nil)
	_ PermissionRepository = (*Memory)(nil)
)

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{
		users:           make(map[string]domain.User),
		roles:           make(map[domain.RoleID]domain.Role),
		permissions:     make(map[string]domain.Permission),
		rolePermissions: make(map[domain.RoleID]map[string]struct{}),
		userRoles:       make(map[string]map[domain.RoleID]struct{}),
	}
}

// PermissionIDFor derives the stable permission id used for a resource
// pattern, e.g. "/branch/view/edit/:id" becomes "branch.view.edit.id".
func PermissionIDFor(resource string) string {
	var parts []string
	for _, segment := range strings.Split(resource, "/") {
		switch {
		case segment == "":
			continue
		case segment == "*":
			parts = append(parts, "any")
		default:
			parts = append(parts, strings.TrimPrefix(segment, ":"))
		}
	}
	if len(parts) == 0 {
		return "root"
	}
	return strings.Join(parts, ".")
}

// SeedPolicy creates one permission per distinct resource and grants each
// role the permissions of its patterns. Existing assignments of the listed
// roles are replaced.
func (m *Memory) SeedPolicy(roles map[domain.RoleID][]string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	for role, resources := range roles {
		if _, ok := m.roles[role]; !ok {
			m.roles[role] = domain.Role{ID: role, Name: titleCase(string(role)), CreatedAt: now}
		}
		granted := make(map[string]struct{}, len(resources))
		for _, resource := range resources {
			id := PermissionIDFor(resource)
			if _, ok := m.permissions[id]; !ok {
				m.permissions[id] = domain.Permission{ID: id, Name: id, Resource: resource, CreatedAt: now}
			}
			granted[id] = struct{}{}
		}
		m.rolePermissions[role] = granted
	}
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func (m *Memory) Create(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now
	m.users[user.ID] = *user
	return nil
}

func (m *Memory) GetByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

func (m *Memory) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, user := range m.users {
		if strings.EqualFold(user.Email, email) {
			u := user
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) ListPermissions(_ context.Context) ([]domain.Permission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.Permission, 0, len(m.permissions))
	for _, p := range m.permissions {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Resource != out[j].Resource {
			return out[i].Resource < out[j].Resource
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) ListRoles(_ context.Context) ([]domain.Role, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.Role, 0, len(m.roles))
	for _, role := range m.roles {
		out = append(out, role)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) GetRole(_ context.Context, id domain.RoleID) (*domain.Role, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	role, ok := m.roles[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &role, nil
}

func (m *Memory) MissingPermissions(_ context.Context, ids []string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	missing := []string{}
	for _, id := range ids {
		if _, ok := m.permissions[id]; !ok {
			missing = append(missing, id)
		}
	}
	sort.Strings(missing)
	return missing, nil
}

func (m *Memory) MissingRoles(_ context.Context, ids []domain.RoleID) ([]domain.RoleID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	missing := []domain.RoleID{}
	for _, id := range ids {
		if _, ok := m.roles[id]; !ok {
			missing = append(missing, id)
		}
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
	return missing, nil
}

func (m *Memory) RolePermissionIDs(_ context.Context, roleID domain.RoleID) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.rolePermissions[roleID]))
	for id := range m.rolePermissions[roleID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *Memory) UserRoleIDs(_ context.Context, userID string) ([]domain.RoleID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]domain.RoleID, 0, len(m.userRoles[userID]))
	for id := range m.userRoles[userID] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (m *Memory) ReplaceRolePermissions(_ context.Context, roleID domain.RoleID, permissionIDs []string) error {
	set := make(map[string]struct{}, len(permissionIDs))
	for _, id := range permissionIDs {
		set[id] = struct{}{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.rolePermissions[roleID] = set
	return nil
}

func (m *Memory) ReplaceUserRoles(_ context.Context, userID string, roleIDs []domain.RoleID) error {
	set := make(map[domain.RoleID]struct{}, len(roleIDs))
	for _, id := range roleIDs {
		set[id] = struct{}{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.userRoles[userID] = set
	return nil
}

func (m *Memory) ListRoleResources(_ context.Context) (map[domain.RoleID][]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[domain.RoleID][]string, len(m.roles))
	for id := range m.roles {
		resources := []string{}
		for permissionID := range m.rolePermissions[id] {
			if p, ok := m.permissions[permissionID]; ok {
				resources = append(resources, p.Resource)
			}
		}
		sort.Strings(resources)
		out[id] = resources
	}
	return out, nil
}
