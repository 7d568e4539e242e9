package dto

import "github.com/spec-kit/console-access/internal/domain"

// PermissionResponse describes a permission.
type PermissionResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Resource string `json:"resource"`
}

// RoleResponse describes a role.
type RoleResponse struct {
	ID   domain.RoleID `json:"id"`
	Name string        `json:"name"`
}

// SyncPermissionsRequest replaces a role's permissions.
type SyncPermissionsRequest struct {
	PermissionIDs []string `json:"permission_ids"`
}

// SyncRolesRequest replaces a user's roles.
type SyncRolesRequest struct {
	RoleIDs []string `json:"role_ids"`
}

// RolePermissionsResponse lists a role's permission ids.
type RolePermissionsResponse struct {
	RoleID        string   `json:"role_id"`
	PermissionIDs []string `json:"permission_ids"`
}

// UserRolesResponse lists a user's role ids.
type UserRolesResponse struct {
	UserID  string          `json:"user_id"`
	RoleIDs []domain.RoleID `json:"role_ids"`
}

// NewPermissionResponses maps domain permissions.
func NewPermissionResponses(permissions []domain.Permission) []PermissionResponse {
	out := make([]PermissionResponse, 0, len(permissions))
	for _, p := range permissions {
		out = append(out, PermissionResponse{ID: p.ID, Name: p.Name, Resource: p.Resource})
	}
	return out
}

// NewRoleResponses maps domain roles.
func NewRoleResponses(roles []domain.Role) []RoleResponse {
	out := make([]RoleResponse, 0, len(roles))
	for _, r := range roles {
		out = append(out, RoleResponse{ID: r.ID, Name: r.Name})
	}
	return out
}
