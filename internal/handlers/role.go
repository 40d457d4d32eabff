package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	"github.com/codedeck/codedeck-backend/internal/platform/logger"
	"github.com/codedeck/codedeck-backend/internal/services"
)

type RoleHandler struct {
	log         *logger.Logger
	roleService services.RoleService
}

func NewRoleHandler(baseLog *logger.Logger, roleService services.RoleService) *RoleHandler {
	return &RoleHandler{
		log:         baseLog.With("handler", "RoleHandler"),
		roleService: roleService,
	}
}

// requireRoleManage gates the role admin surface behind the role.manage
// permission. No policies apply; roles are not owned resources.
func (h *RoleHandler) requireRoleManage(c *gin.Context) bool {
	userID, ok := identity(c)
	if !ok {
		return false
	}
	if _, err := h.roleService.Authorize(c.Request.Context(), userID, services.PermRoleManage); err != nil {
		RespondDomainError(c, err)
		return false
	}
	return true
}

func (h *RoleHandler) List(c *gin.Context) {
	if !h.requireRoleManage(c) {
		return
	}
	roles, err := h.roleService.ListRoles(c.Request.Context())
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"roles": roles})
}

func (h *RoleHandler) Create(c *gin.Context) {
	if !h.requireRoleManage(c) {
		return
	}
	var req struct {
		Name        string              `json:"name" binding:"required"`
		Description string              `json:"description"`
		Permissions []string            `json:"permissions"`
		Policies    map[string][]string `json:"policies"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	role, err := h.roleService.CreateRole(c.Request.Context(), req.Name, req.Description, req.Permissions, req.Policies)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondCreated(c, gin.H{"role": role})
}

func (h *RoleHandler) Update(c *gin.Context) {
	if !h.requireRoleManage(c) {
		return
	}
	roleID, ok := pathUUID(c, "roleId")
	if !ok {
		return
	}
	var req struct {
		Description *string              `json:"description"`
		Permissions *[]string            `json:"permissions"`
		Policies    *map[string][]string `json:"policies"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	updates := map[string]interface{}{}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Permissions != nil {
		raw, err := json.Marshal(*req.Permissions)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_body", err)
			return
		}
		updates["permissions"] = datatypes.JSON(raw)
	}
	if req.Policies != nil {
		raw, err := json.Marshal(*req.Policies)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_body", err)
			return
		}
		updates["policies"] = datatypes.JSON(raw)
	}
	role, err := h.roleService.UpdateRole(c.Request.Context(), roleID, updates)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"role": role})
}

func (h *RoleHandler) Delete(c *gin.Context) {
	if !h.requireRoleManage(c) {
		return
	}
	roleID, ok := pathUUID(c, "roleId")
	if !ok {
		return
	}
	if err := h.roleService.DeleteRole(c.Request.Context(), roleID); err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"status": "deleted"})
}
