package access

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spec-kit/console-access/internal/domain"
)

// PatternError reports a malformed pattern in a role's policy entry.
type PatternError struct {
	Role    domain.RoleID
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("role %q: %v", e.Role, e.Err)
}

func (e *PatternError) Unwrap() error {
	return e.Err
}

// PolicyTable maps each role to the ordered set of route patterns it may
// view. It is immutable once built and safe for concurrent readers. A nil
// table denies everything.
type PolicyTable struct {
	roles map[domain.RoleID][]Pattern
}

// NewPolicyTable compiles entries into a table. Duplicate patterns within a
// role are dropped, keeping the first occurrence. Every malformed pattern is
// reported; the table is not built if any are found.
func NewPolicyTable(entries map[domain.RoleID][]string) (*PolicyTable, error) {
	table := &PolicyTable{roles: make(map[domain.RoleID][]Pattern, len(entries))}
	var errs []error

	for _, role := range sortedRoles(entries) {
		raw := entries[role]
		seen := make(map[string]struct{}, len(raw))
		compiled := make([]Pattern, 0, len(raw))
		for _, pattern := range raw {
			if _, dup := seen[pattern]; dup {
				continue
			}
			seen[pattern] = struct{}{}
			p, err := CompilePattern(pattern)
			if err != nil {
				errs = append(errs, &PatternError{Role: role, Pattern: pattern, Err: err})
				continue
			}
			compiled = append(compiled, p)
		}
		table.roles[role] = compiled
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return table, nil
}

// SnapshotTable builds a single-role table from a credential's stored
// patterns. Malformed patterns are skipped rather than failing the request;
// they could never match anyway.
func SnapshotTable(role domain.RoleID, patterns []string) *PolicyTable {
	compiled := make([]Pattern, 0, len(patterns))
	for _, pattern := range patterns {
		if p, err := CompilePattern(pattern); err == nil {
			compiled = append(compiled, p)
		}
	}
	return &PolicyTable{roles: map[domain.RoleID][]Pattern{role: compiled}}
}

// AllowedPatterns returns a copy of the role's patterns, or an empty slice for
// unknown roles.
func (t *PolicyTable) AllowedPatterns(role domain.RoleID) []string {
	if t == nil {
		return []string{}
	}
	compiled := t.roles[role]
	out := make([]string, len(compiled))
	for i, p := range compiled {
		out[i] = p.String()
	}
	return out
}

// Has reports whether role has an entry, possibly empty.
func (t *PolicyTable) Has(role domain.RoleID) bool {
	if t == nil {
		return false
	}
	_, ok := t.roles[role]
	return ok
}

// Roles lists the roles present in the table in sorted order.
func (t *PolicyTable) Roles() []domain.RoleID {
	if t == nil {
		return nil
	}
	roles := make([]domain.RoleID, 0, len(t.roles))
	for role := range t.roles {
		roles = append(roles, role)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
	return roles
}

// Allows reports whether role may view path.
func (t *PolicyTable) Allows(role domain.RoleID, path string) bool {
	_, ok := t.match(role, path)
	return ok
}

func (t *PolicyTable) match(role domain.RoleID, path string) (Pattern, bool) {
	if t == nil {
		return Pattern{}, false
	}
	for _, p := range t.roles[role] {
		if p.Match(path) {
			return p, true
		}
	}
	return Pattern{}, false
}

func sortedRoles(entries map[domain.RoleID][]string) []domain.RoleID {
	roles := make([]domain.RoleID, 0, len(entries))
	for role := range entries {
		roles = append(roles, role)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
	return roles
}
