package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/staydesk/staydesk/internal/services"
	"github.com/staydesk/staydesk/pkg/errors"
	"github.com/staydesk/staydesk/pkg/response"
)

// UserHandler exposes user lifecycle operations: provisioning, tenancy
// placement, role assignment, and direct permission overrides.
type UserHandler struct {
	service *services.UserService
}

func NewUserHandler(service *services.UserService) *UserHandler {
	return &UserHandler{service: service}
}

type createUserRequest struct {
	Username       string   `json:"username" validate:"required,min=3,max=64"`
	Email          string   `json:"email" validate:"required,email"`
	Password       string   `json:"password" validate:"required,min=8"`
	FirstName      string   `json:"first_name" validate:"max=100"`
	LastName       string   `json:"last_name" validate:"max=100"`
	LegacyRole     string   `json:"legacy_role"`
	OrganizationID *string  `json:"organization_id"`
	PropertyID     *string  `json:"property_id"`
	DepartmentID   *string  `json:"department_id"`
	RoleIDs        []string `json:"role_ids"`
}

type updateUserRequest struct {
	Username   *string `json:"username"`
	Email      *string `json:"email"`
	FirstName  *string `json:"first_name"`
	LastName   *string `json:"last_name"`
	LegacyRole *string `json:"legacy_role"`
}

// GET /api/users
func (h *UserHandler) List(c *gin.Context) {
	page := parseIntQuery(c, "page", 1)
	per := parseIntQuery(c, "per_page", 20)

	opts := services.ListUsersOptions{
		Page:     page,
		PageSize: per,
		Filters: services.UserFilters{
			OrganizationID: c.Query("organization_id"),
			PropertyID:     c.Query("property_id"),
			DepartmentID:   c.Query("department_id"),
			LegacyRole:     c.Query("legacy_role"),
			Query:          c.Query("q"),
		},
	}
	if raw := strings.TrimSpace(c.Query("active")); raw != "" {
		active := raw == "true"
		opts.Filters.IsActive = &active
	}

	users, total, err := h.service.List(requestContext(c), opts)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, users, &response.Meta{Page: page, PerPage: per, Total: int(total)})
}

// GET /api/users/:id
func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.service.GetByID(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}

// POST /api/users
func (h *UserHandler) Create(c *gin.Context) {
	var body createUserRequest
	if !bindAndValidate(c, &body) {
		return
	}

	input := services.CreateUserInput{
		Username:       strings.TrimSpace(body.Username),
		Email:          strings.ToLower(strings.TrimSpace(body.Email)),
		Password:       body.Password,
		FirstName:      strings.TrimSpace(body.FirstName),
		LastName:       strings.TrimSpace(body.LastName),
		LegacyRole:     strings.TrimSpace(body.LegacyRole),
		OrganizationID: body.OrganizationID,
		PropertyID:     body.PropertyID,
		DepartmentID:   body.DepartmentID,
		RoleIDs:        body.RoleIDs,
	}

	user, err := h.service.Create(requestContext(c), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, user)
}

// PATCH /api/users/:id
func (h *UserHandler) Update(c *gin.Context) {
	var body updateUserRequest
	if !bindAndValidate(c, &body) {
		return
	}

	user, err := h.service.Update(requestContext(c), c.Param("id"), services.UpdateUserInput{
		Username:   body.Username,
		Email:      body.Email,
		FirstName:  body.FirstName,
		LastName:   body.LastName,
		LegacyRole: body.LegacyRole,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}

// PUT /api/users/:id/roles
func (h *UserHandler) SetRoles(c *gin.Context) {
	var body struct {
		RoleIDs []string `json:"role_ids"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, errors.ErrBadRequest)
		return
	}

	user, err := h.service.SetRoles(requestContext(c), c.Param("id"), body.RoleIDs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}

// GET /api/users/:id/permissions
func (h *UserHandler) Overrides(c *gin.Context) {
	user, err := h.service.GetByID(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, user.Permissions)
}

type overrideRequest struct {
	Permission string     `json:"permission" validate:"required"`
	Granted    *bool      `json:"granted" validate:"required"`
	ExpiresAt  *time.Time `json:"expires_at"`
}

// POST /api/users/:id/permissions
func (h *UserHandler) SetOverride(c *gin.Context) {
	var body overrideRequest
	if !bindAndValidate(c, &body) {
		return
	}

	grantedBy, _ := currentUserID(c)
	if grantedBy == "" {
		return
	}

	override, err := h.service.SetOverride(requestContext(c), c.Param("id"), services.OverrideInput{
		Permission: strings.TrimSpace(body.Permission),
		Granted:    *body.Granted,
		GrantedBy:  grantedBy,
		ExpiresAt:  body.ExpiresAt,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, override)
}

// DELETE /api/users/:id/permissions/:permissionID
func (h *UserHandler) RemoveOverride(c *gin.Context) {
	if err := h.service.RemoveOverride(requestContext(c), c.Param("id"), c.Param("permissionID")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"removed": true})
}

// PATCH /api/users/:id/active
func (h *UserHandler) SetActive(c *gin.Context) {
	var body struct {
		Active *bool `json:"active" validate:"required"`
	}
	if !bindAndValidate(c, &body) {
		return
	}

	if err := h.service.SetActive(requestContext(c), c.Param("id"), *body.Active); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"active": *body.Active})
}

// DELETE /api/users/:id
func (h *UserHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(requestContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
