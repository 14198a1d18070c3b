package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/staydesk/staydesk/internal/authz"
	"github.com/staydesk/staydesk/pkg/errors"
	"github.com/staydesk/staydesk/pkg/metrics"
	"github.com/staydesk/staydesk/pkg/response"
)

// RequirePermission checks that the authenticated user holds a grant covering
// the named permission, e.g. "schedule.read.property".
func RequirePermission(checker *authz.Checker, permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, ok := c.Get(CtxUserIDKey)
		if !ok {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}
		userID, _ := v.(string)
		decision, err := checker.CheckString(c.Request.Context(), userID, permission)
		if err != nil {
			// Internal error while checking permissions
			metrics.PermissionChecks.WithLabelValues(permission, "error").Inc()
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "error": gin.H{"code": errors.ErrInternalServer.Code, "message": "permission check failed"}})
			return
		}
		if !decision.Allowed {
			metrics.PermissionChecks.WithLabelValues(permission, "denied").Inc()
			response.Error(c, errors.ErrForbidden)
			c.Abort()
			return
		}
		metrics.PermissionChecks.WithLabelValues(permission, "allowed").Inc()
		c.Next()
	}
}
