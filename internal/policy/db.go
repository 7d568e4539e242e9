package policy

import (
	"context"
	"fmt"

	"github.com/spec-kit/console-access/internal/access"
	"github.com/spec-kit/console-access/internal/domain"
)

// GrantReader lists, for every role, the resources of the permissions synced
// to it. Roles without permissions must still be present with an empty slice.
type GrantReader interface {
	ListRoleResources(ctx context.Context) (map[domain.RoleID][]string, error)
}

// DBSource derives the policy table from the permission store, the same data
// the permission sync operations write. The store holds no navigation, so the
// menu comes from menu, usually the policy file. A nil menu means none.
type DBSource struct {
	grants GrantReader
	menu   MenuSource
}

// NewDBSource builds a database-backed source.
func NewDBSource(grants GrantReader, menu MenuSource) *DBSource {
	return &DBSource{grants: grants, menu: menu}
}

// Load implements Source.
func (s *DBSource) Load(ctx context.Context) (*Policy, error) {
	resources, err := s.grants.ListRoleResources(ctx)
	if err != nil {
		return nil, fmt.Errorf("load role grants: %w", err)
	}
	table, err := access.NewPolicyTable(resources)
	if err != nil {
		return nil, fmt.Errorf("compile role grants: %w", err)
	}
	menu, err := s.Menu(ctx)
	if err != nil {
		return nil, err
	}
	return &Policy{Table: table, Menu: menu}, nil
}

// Menu implements MenuSource.
func (s *DBSource) Menu(ctx context.Context) ([]domain.RouteEntry, error) {
	if s.menu == nil {
		return nil, nil
	}
	menu, err := s.menu.Menu(ctx)
	if err != nil {
		return nil, fmt.Errorf("load menu: %w", err)
	}
	return menu, nil
}

// StaticMenu is a fixed navigation tree.
type StaticMenu []domain.RouteEntry

// Menu implements MenuSource.
func (m StaticMenu) Menu(context.Context) ([]domain.RouteEntry, error) {
	return m, nil
}
