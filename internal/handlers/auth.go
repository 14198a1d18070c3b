package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	iauth "github.com/staydesk/staydesk/internal/auth"
	"github.com/staydesk/staydesk/internal/auth/mfa"
	"github.com/staydesk/staydesk/internal/authz"
	"github.com/staydesk/staydesk/internal/middleware"
	"github.com/staydesk/staydesk/internal/models"
	appErrors "github.com/staydesk/staydesk/pkg/errors"
	"github.com/staydesk/staydesk/pkg/response"
)

// AuthHandler manages authentication flows (login/refresh/logout/me).
type AuthHandler struct {
	db       *gorm.DB
	sessions *iauth.SessionService
	authn    *iauth.Authenticator
	totp     *mfa.TOTPService
	checker  *authz.Checker
}

func NewAuthHandler(db *gorm.DB, sessions *iauth.SessionService, authn *iauth.Authenticator, totp *mfa.TOTPService, checker *authz.Checker) *AuthHandler {
	return &AuthHandler{db: db, sessions: sessions, authn: authn, totp: totp, checker: checker}
}

type loginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
	MFACode    string `json:"mfa_code"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}
	req.Identifier = strings.TrimSpace(req.Identifier)
	if req.Identifier == "" {
		response.Error(c, appErrors.NewBadRequest("identifier is required"))
		return
	}

	user, err := h.authn.Authenticate(iauth.AuthenticateInput{
		Identifier: req.Identifier,
		Password:   req.Password,
		IPAddress:  c.ClientIP(),
		UserAgent:  c.Request.UserAgent(),
	})
	if err != nil {
		// Normalise credential failures to 401 without leaking which part failed
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if user.MFAEnabled {
		if strings.TrimSpace(req.MFACode) == "" {
			response.Error(c, appErrors.ErrMFARequired)
			return
		}
		if !h.verifySecondFactor(user.ID, req.MFACode) {
			response.Error(c, appErrors.ErrMFAInvalid)
			return
		}
	}

	pair, _, err := h.sessions.CreateSession(user, iauth.SessionMetadata{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	perms, _ := h.checker.GetUserPermissions(requestContext(c), user.ID)

	payload := gin.H{
		"tokens":      tokenResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken},
		"user":        marshalAuthUser(user),
		"permissions": perms,
	}

	response.Success(c, http.StatusOK, payload)
}

// verifySecondFactor accepts either a live TOTP code or an unused backup code.
func (h *AuthHandler) verifySecondFactor(userID, code string) bool {
	if h.totp == nil {
		return false
	}
	if valid, err := h.totp.VerifyCode(userID, code); err == nil && valid {
		return true
	}
	used, err := h.totp.UseBackupCode(userID, code)
	return err == nil && used
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// POST /api/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if !bindAndValidate(c, &req) {
		return
	}
	req.RefreshToken = strings.TrimSpace(req.RefreshToken)
	if req.RefreshToken == "" {
		response.Error(c, appErrors.NewBadRequest("refresh token is required"))
		return
	}

	pair, _, err := h.sessions.RefreshSession(req.RefreshToken)
	if err != nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	response.Success(c, http.StatusOK, tokenResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	v, ok := c.Get(middleware.CtxSessionIDKey)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	sid, _ := v.(string)
	if sid == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.sessions.RevokeSession(sid); err != nil {
		if errors.Is(err, iauth.ErrSessionNotFound) {
			response.Error(c, appErrors.ErrNotFound)
			return
		}
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"revoked": true})
}

// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var user models.User
	if err := h.db.Preload("Organization").Preload("Property").Preload("Department").Take(&user, "id = ?", userID).Error; err != nil {
		response.Error(c, appErrors.ErrNotFound)
		return
	}

	perms, _ := h.checker.GetUserPermissions(requestContext(c), user.ID)

	payload := marshalAuthUser(&user)
	payload["permissions"] = perms

	response.Success(c, http.StatusOK, payload)
}

func marshalAuthUser(user *models.User) gin.H {
	if user == nil {
		return gin.H{}
	}
	return gin.H{
		"id":              user.ID,
		"username":        user.Username,
		"email":           user.Email,
		"first_name":      user.FirstName,
		"last_name":       user.LastName,
		"legacy_role":     user.LegacyRole,
		"is_active":       user.IsActive,
		"mfa_enabled":     user.MFAEnabled,
		"organization_id": user.OrganizationID,
		"property_id":     user.PropertyID,
		"department_id":   user.DepartmentID,
	}
}
