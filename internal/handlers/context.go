package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/staydesk/staydesk/internal/middleware"
	"github.com/staydesk/staydesk/pkg/errors"
	"github.com/staydesk/staydesk/pkg/response"
)

// requestContext safely returns the request context with a background fallback for tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if req := c.Request; req != nil {
		return req.Context()
	}
	return context.Background()
}

// currentUserID pulls the authenticated user ID out of the request context,
// responding with 401 when it is absent.
func currentUserID(c *gin.Context) (string, bool) {
	v, ok := c.Get(middleware.CtxUserIDKey)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return "", false
	}
	userID, _ := v.(string)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return "", false
	}
	return userID, true
}
