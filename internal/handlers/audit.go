package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/staydesk/staydesk/internal/services"
	"github.com/staydesk/staydesk/pkg/response"
)

// AuditHandler exposes audit log queries.
type AuditHandler struct {
	service *services.AuditService
}

func NewAuditHandler(service *services.AuditService) *AuditHandler {
	return &AuditHandler{service: service}
}

// GET /api/audit
func (h *AuditHandler) List(c *gin.Context) {
	page := parseIntQuery(c, "page", 1)
	per := parseIntQuery(c, "per_page", 50)

	opts := services.AuditListOptions{
		Page:     page,
		PageSize: per,
		Filters:  auditFiltersFromQuery(c),
	}

	logs, total, err := h.service.List(requestContext(c), opts)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, logs, &response.Meta{Page: page, PerPage: per, Total: int(total)})
}

// GET /api/audit/export
func (h *AuditHandler) Export(c *gin.Context) {
	logs, err := h.service.Export(requestContext(c), auditFiltersFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, logs)
}

func auditFiltersFromQuery(c *gin.Context) services.AuditFilters {
	filters := services.AuditFilters{
		UserID:   c.Query("user_id"),
		Action:   c.Query("action"),
		Result:   c.Query("result"),
		Resource: c.Query("resource"),
	}
	if raw := strings.TrimSpace(c.Query("since")); raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			filters.Since = &ts
		}
	}
	if raw := strings.TrimSpace(c.Query("until")); raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			filters.Until = &ts
		}
	}
	return filters
}
