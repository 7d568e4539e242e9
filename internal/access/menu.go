package access

import "github.com/spec-kit/console-access/internal/domain"

// VisibleMenu filters the navigation tree down to what role may open. A leaf
// is kept when its path is allowed; a group is kept when its own path is
// allowed or any child survives. Titles play no part in the decision.
func VisibleMenu(entries []domain.RouteEntry, table *PolicyTable, role domain.RoleID) []domain.RouteEntry {
	visible := make([]domain.RouteEntry, 0, len(entries))
	for _, entry := range entries {
		children := VisibleMenu(entry.Children, table, role)
		pathAllowed := entry.Path != "" && table.Allows(role, entry.Path)
		if !pathAllowed && len(children) == 0 {
			continue
		}
		entry.Children = children
		if len(entry.Children) == 0 {
			entry.Children = nil
		}
		visible = append(visible, entry)
	}
	return visible
}

// MenuPaths returns every leaf and group path in the tree, depth first.
func MenuPaths(entries []domain.RouteEntry) []string {
	var paths []string
	for _, entry := range entries {
		if entry.Path != "" {
			paths = append(paths, entry.Path)
		}
		paths = append(paths, MenuPaths(entry.Children)...)
	}
	return paths
}
