package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"equipment-tracker-backend/internal/apperr"
	"equipment-tracker-backend/internal/auth"
	"equipment-tracker-backend/internal/logging"
	"equipment-tracker-backend/internal/model"
)

// ListUsers handles GET /api/admin/users.
func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.store.ListUsers(c.Request.Context())
	if err != nil {
		fail(c, err, "failed to list users")
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

type createUserRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role"`
}

// CreateUser handles POST /api/admin/users. Only callers allowed to assign
// roles may create anything other than a plain user.
func (h *Handler) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "username and password are required")
		return
	}

	role := model.RoleUser
	if strings.TrimSpace(req.Role) != "" {
		r, err := model.ParseRole(req.Role)
		if err != nil {
			badRequest(c, err.Error())
			return
		}
		role = r
	}

	caller, _ := auth.CurrentPrincipal(c)
	if role != model.RoleUser && !caller.Role.Can(model.PermAssignRoles) {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error": gin.H{"code": "FORBIDDEN", "message": "only a superuser can create " + string(role) + " accounts"},
		})
		return
	}

	username := strings.TrimSpace(req.Username)
	if username == "" {
		badRequest(c, "username is required")
		return
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	user := &model.User{Username: username, PasswordHash: hash, Role: role}
	if err := h.store.CreateUser(c.Request.Context(), user); err != nil {
		fail(c, err, "failed to create user")
		return
	}

	logging.FromContext(c.Request.Context()).Info("user created",
		zap.String("created_by", caller.Username), zap.String("user", user.Username), zap.String("role", string(role)))
	c.JSON(http.StatusCreated, gin.H{"success": true, "user": user})
}

// DeleteUser handles DELETE /api/admin/users/:id.
func (h *Handler) DeleteUser(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	caller, _ := auth.CurrentPrincipal(c)
	if caller.UserID == id {
		badRequest(c, "you cannot delete your own account")
		return
	}

	target, err := h.store.GetUser(ctx, id)
	if err != nil {
		fail(c, err, "failed to delete user")
		return
	}
	if target.Role == model.RoleSuperuser {
		n, err := h.store.CountUsersByRole(ctx, model.RoleSuperuser)
		if err != nil {
			fail(c, err, "failed to delete user")
			return
		}
		if n <= 1 {
			fail(c, apperr.Validation("at least one superuser must remain"), "")
			return
		}
	}

	if err := h.store.DeleteUser(ctx, id); err != nil {
		fail(c, err, "failed to delete user")
		return
	}
	logging.FromContext(ctx).Info("user deleted",
		zap.String("deleted_by", caller.Username), zap.String("user", target.Username))
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ResetSystem handles POST /api/admin/reset.
func (h *Handler) ResetSystem(c *gin.Context) {
	if err := h.registry.Reset(c.Request.Context()); err != nil {
		fail(c, err, "reset failed")
		return
	}
	caller, _ := auth.CurrentPrincipal(c)
	logging.FromContext(c.Request.Context()).Warn("system reset", zap.String("by", caller.Username))
	c.JSON(http.StatusOK, gin.H{"success": true})
}
