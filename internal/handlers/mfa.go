package handlers

import (
	"encoding/base64"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/staydesk/staydesk/internal/auth/mfa"
	"github.com/staydesk/staydesk/internal/models"
	appErrors "github.com/staydesk/staydesk/pkg/errors"
	"github.com/staydesk/staydesk/pkg/response"
)

// MFAHandler manages TOTP enrolment for the authenticated user.
type MFAHandler struct {
	db   *gorm.DB
	totp *mfa.TOTPService
}

func NewMFAHandler(db *gorm.DB, totp *mfa.TOTPService) *MFAHandler {
	return &MFAHandler{db: db, totp: totp}
}

type mfaCodeRequest struct {
	Code string `json:"code" validate:"required,min=6,max=16"`
}

type mfaEnrollResponse struct {
	Secret     string   `json:"secret"`
	OTPAuthURL string   `json:"otpauth_url"`
	QRCode     string   `json:"qr_code"`
	Backup     []string `json:"backup_codes"`
}

// POST /api/auth/mfa/enroll
//
// Provisions a fresh secret and backup codes. MFA stays disabled until the
// user confirms a live code via Verify.
func (h *MFAHandler) Enroll(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var user models.User
	if err := h.db.Take(&user, "id = ?", userID).Error; err != nil {
		response.Error(c, appErrors.ErrNotFound)
		return
	}

	key, backupCodes, err := h.totp.GenerateSecret(user.ID, user.Username)
	if err != nil {
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	qr, err := h.totp.GenerateQRCode(key)
	if err != nil {
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	payload := mfaEnrollResponse{
		Secret:     key.Secret(),
		OTPAuthURL: key.URL(),
		QRCode:     base64.StdEncoding.EncodeToString(qr),
		Backup:     backupCodes,
	}

	response.Success(c, http.StatusOK, payload)
}

// POST /api/auth/mfa/verify
//
// Verifies a TOTP code against the enrolled secret and activates MFA for the
// account.
func (h *MFAHandler) Verify(c *gin.Context) {
	var body mfaCodeRequest
	if !bindAndValidate(c, &body) {
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	valid, err := h.totp.VerifyCode(userID, body.Code)
	if err != nil {
		response.Error(c, appErrors.NewBadRequest("verification failed"))
		return
	}
	if !valid {
		response.Error(c, appErrors.ErrMFAInvalid)
		return
	}

	if err := h.db.Model(&models.User{}).Where("id = ?", userID).Update("mfa_enabled", true).Error; err != nil {
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"enabled": true})
}

// DELETE /api/auth/mfa
//
// Removes the enrolled secret after validating the provided code.
func (h *MFAHandler) Disable(c *gin.Context) {
	var body mfaCodeRequest
	if !bindAndValidate(c, &body) {
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	valid, err := h.totp.VerifyCode(userID, body.Code)
	if err != nil {
		response.Error(c, appErrors.NewBadRequest("verification failed"))
		return
	}
	if !valid {
		response.Error(c, appErrors.ErrMFAInvalid)
		return
	}

	if err := h.totp.Disable(userID); err != nil {
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	if err := h.db.Model(&models.User{}).Where("id = ?", userID).Update("mfa_enabled", false).Error; err != nil {
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"disabled": true})
}
