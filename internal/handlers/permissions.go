package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/staydesk/staydesk/internal/authz"
	appErrors "github.com/staydesk/staydesk/pkg/errors"
	"github.com/staydesk/staydesk/pkg/metrics"
	"github.com/staydesk/staydesk/pkg/response"
)

// refreshAllPermission gates catalog-wide cache refreshes.
const refreshAllPermission = "permission.manage.all"

// PermissionHandler exposes the permission catalog and evaluation endpoints.
type PermissionHandler struct {
	checker *authz.Checker
}

func NewPermissionHandler(checker *authz.Checker) *PermissionHandler {
	return &PermissionHandler{checker: checker}
}

// GET /api/permissions
func (h *PermissionHandler) Catalog(c *gin.Context) {
	defs := authz.All()

	grouped := make(map[string][]*authz.Definition)
	for _, def := range defs {
		grouped[def.Category] = append(grouped[def.Category], def)
	}

	response.Success(c, http.StatusOK, gin.H{
		"permissions": defs,
		"categories":  grouped,
		"total":       len(defs),
	})
}

type checkRequest struct {
	Permission string `json:"permission" validate:"required"`
}

// POST /api/permissions/check
func (h *PermissionHandler) Check(c *gin.Context) {
	var body checkRequest
	if !bindAndValidate(c, &body) {
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	permission := strings.TrimSpace(body.Permission)
	decision, err := h.checker.CheckString(requestContext(c), userID, permission)
	if err != nil {
		metrics.PermissionChecks.WithLabelValues(permission, "error").Inc()
		response.Error(c, appErrors.NewBadRequest(err.Error()))
		return
	}

	outcome := "denied"
	if decision.Allowed {
		outcome = "allowed"
	}
	metrics.PermissionChecks.WithLabelValues(permission, outcome).Inc()

	response.Success(c, http.StatusOK, gin.H{
		"permission": permission,
		"allowed":    decision.Allowed,
		"reason":     decision.Reason,
		"cache_hit":  decision.CacheHit,
		"checked_at": decision.CheckedAt,
	})
}

type refreshRequestBody struct {
	All bool `json:"all"`
}

// POST /api/permissions/cache/refresh
//
// Refreshes the caller's resolved permission set. With {"all": true} the
// caller must hold permission.manage.all and every active user is refreshed.
func (h *PermissionHandler) RefreshCache(c *gin.Context) {
	var body refreshRequestBody
	if c.Request.Body != nil && c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			response.Error(c, appErrors.NewBadRequest("invalid JSON payload"))
			return
		}
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if body.All {
		decision, err := h.checker.CheckString(requestContext(c), userID, refreshAllPermission)
		if err != nil {
			response.Error(c, appErrors.ErrInternalServer)
			return
		}
		if !decision.Allowed {
			response.Error(c, appErrors.ErrForbidden)
			return
		}

		refreshed, err := h.checker.RefreshAll(requestContext(c))
		if err != nil {
			response.Error(c, appErrors.ErrInternalServer)
			return
		}
		response.Success(c, http.StatusOK, gin.H{"refreshed_users": refreshed})
		return
	}

	perms, err := h.checker.Refresh(requestContext(c), userID)
	if err != nil {
		response.Error(c, appErrors.ErrInternalServer)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"permissions": perms})
}

// GET /api/permissions/my
func (h *PermissionHandler) MyPermissions(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	perms, err := h.checker.GetUserPermissions(requestContext(c), userID)
	if err != nil {
		response.Error(c, appErrors.ErrInternalServer)
		return
	}
	response.Success(c, http.StatusOK, perms)
}
