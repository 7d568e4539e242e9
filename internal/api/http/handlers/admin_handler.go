package handlers

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/console-access/internal/api/dto"
	"github.com/spec-kit/console-access/internal/auth"
	"github.com/spec-kit/console-access/internal/domain"
	"github.com/spec-kit/console-access/internal/events"
	"github.com/spec-kit/console-access/internal/service"
)

// PermissionService backs the permission screens.
type PermissionService interface {
	ListPermissions(ctx context.Context) ([]domain.Permission, error)
	ListRoles(ctx context.Context) ([]domain.Role, error)
	RolePermissions(ctx context.Context, roleID string) ([]string, error)
	UserRoles(ctx context.Context, userID string) ([]domain.RoleID, error)
	SyncPermissionsToRole(ctx context.Context, roleID string, permissionIDs []string) error
	SyncRolesToUser(ctx context.Context, userID string, roleIDs []string) error
}

// AdminHandler exposes role and permission administration.
type AdminHandler struct {
	permissions PermissionService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(permissions PermissionService) *AdminHandler {
	return &AdminHandler{permissions: permissions}
}

// ListPermissions handles GET /admin/permissions.
func (h *AdminHandler) ListPermissions(c *fiber.Ctx) error {
	permissions, err := h.permissions.ListPermissions(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPermissionResponses(permissions)})
}

// ListRoles handles GET /admin/roles.
func (h *AdminHandler) ListRoles(c *fiber.Ctx) error {
	roles, err := h.permissions.ListRoles(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRoleResponses(roles)})
}

// RolePermissions handles GET /admin/roles/:id/permissions.
func (h *AdminHandler) RolePermissions(c *fiber.Ctx) error {
	roleID := c.Params("id")
	ids, err := h.permissions.RolePermissions(c.UserContext(), roleID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.RolePermissionsResponse{RoleID: roleID, PermissionIDs: ids}})
}

// SyncRolePermissions handles PUT /admin/roles/:id/permissions.
func (h *AdminHandler) SyncRolePermissions(c *fiber.Ctx) error {
	var req dto.SyncPermissionsRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.PermissionIDs == nil {
		return fiber.NewError(http.StatusBadRequest, "permission_ids required")
	}

	roleID := c.Params("id")
	ctx := actorContext(c)
	if err := h.permissions.SyncPermissionsToRole(ctx, roleID, req.PermissionIDs); err != nil {
		return err
	}
	ids, err := h.permissions.RolePermissions(ctx, roleID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.RolePermissionsResponse{RoleID: roleID, PermissionIDs: ids}})
}

// UserRoles handles GET /admin/users/:id/roles.
func (h *AdminHandler) UserRoles(c *fiber.Ctx) error {
	userID := c.Params("id")
	ids, err := h.permissions.UserRoles(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.UserRolesResponse{UserID: userID, RoleIDs: ids}})
}

// SyncUserRoles handles PUT /admin/users/:id/roles.
func (h *AdminHandler) SyncUserRoles(c *fiber.Ctx) error {
	var req dto.SyncRolesRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.RoleIDs == nil {
		return fiber.NewError(http.StatusBadRequest, "role_ids required")
	}

	userID := c.Params("id")
	ctx := actorContext(c)
	if err := h.permissions.SyncRolesToUser(ctx, userID, req.RoleIDs); err != nil {
		return err
	}
	ids, err := h.permissions.UserRoles(ctx, userID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.UserRolesResponse{UserID: userID, RoleIDs: ids}})
}

func actorContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	sess, _ := auth.SessionFromContext(c)
	if sess == nil {
		return ctx
	}
	return service.WithActor(ctx, events.Actor{UserID: sess.UserID, SessionID: sess.ID, Role: sess.Role})
}
