package handlers_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"

	"github.com/staydesk/staydesk/internal/handlers/testutil"
	"github.com/staydesk/staydesk/internal/models"
)

func TestAuthHandler_LoginRefreshLogout(t *testing.T) {
	env := testutil.NewEnv(t)
	admin := env.CreateUser("AuthPassw0rd!", models.LegacyRolePlatformAdmin)

	login := env.Login(admin.Username, "AuthPassw0rd!")
	token := login.Tokens.AccessToken
	require.NotEmpty(t, login.Permissions)

	me := env.Request(http.MethodGet, "/api/auth/me", nil, token)
	require.Equal(t, http.StatusOK, me.Code)
	meResp := testutil.DecodeResponse(t, me)
	require.True(t, meResp.Success)
	var meData map[string]any
	testutil.DecodeInto(t, meResp.Data, &meData)
	require.Equal(t, login.User.ID, meData["id"])
	require.Equal(t, login.User.Email, meData["email"])

	refreshPayload := map[string]string{"refresh_token": login.Tokens.RefreshToken}
	refresh := env.Request(http.MethodPost, "/api/auth/refresh", refreshPayload, "")
	require.Equal(t, http.StatusOK, refresh.Code, refresh.Body.String())
	var refreshed testutil.TokenPair
	testutil.DecodeInto(t, testutil.DecodeResponse(t, refresh).Data, &refreshed)
	require.NotEqual(t, "", refreshed.AccessToken)
	require.NotEqual(t, "", refreshed.RefreshToken)

	logout := env.Request(http.MethodPost, "/api/auth/logout", nil, token)
	require.Equal(t, http.StatusOK, logout.Code)

	unauth := env.Request(http.MethodGet, "/api/auth/me", nil, "")
	require.Equal(t, http.StatusUnauthorized, unauth.Code)
}

func TestAuthHandler_LoginValidation(t *testing.T) {
	env := testutil.NewEnv(t)

	payload := map[string]any{
		"identifier": " ",
		"password":   "",
	}

	resp := env.Request(http.MethodPost, "/api/auth/login", payload, "")
	require.Equal(t, http.StatusBadRequest, resp.Code)
	decoded := testutil.DecodeResponse(t, resp)
	require.False(t, decoded.Success)
	require.NotNil(t, decoded.Error)
	require.Equal(t, "BAD_REQUEST", decoded.Error.Code)
}

func TestAuthHandler_LoginRejectsBadPassword(t *testing.T) {
	env := testutil.NewEnv(t)
	user := env.CreateUser("CorrectHorse1!", models.LegacyRoleStaff)

	payload := map[string]string{
		"identifier": user.Username,
		"password":   "wrong-password",
	}
	resp := env.Request(http.MethodPost, "/api/auth/login", payload, "")
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestAuthHandler_MFAGatedLogin(t *testing.T) {
	env := testutil.NewEnv(t)
	user := env.CreateUser("MfaPassw0rd!", models.LegacyRoleStaff)

	login := env.Login(user.Username, "MfaPassw0rd!")
	token := login.Tokens.AccessToken

	// Enrol and activate MFA
	enroll := env.Request(http.MethodPost, "/api/auth/mfa/enroll", nil, token)
	require.Equal(t, http.StatusOK, enroll.Code, enroll.Body.String())
	var setup struct {
		Secret string   `json:"secret"`
		QRCode string   `json:"qr_code"`
		Backup []string `json:"backup_codes"`
	}
	testutil.DecodeInto(t, testutil.DecodeResponse(t, enroll).Data, &setup)
	require.NotEmpty(t, setup.Secret)
	require.NotEmpty(t, setup.QRCode)
	require.Len(t, setup.Backup, 10)

	code, err := totp.GenerateCode(setup.Secret, time.Now())
	require.NoError(t, err)

	verify := env.Request(http.MethodPost, "/api/auth/mfa/verify", map[string]string{"code": code}, token)
	require.Equal(t, http.StatusOK, verify.Code, verify.Body.String())

	// Password alone no longer suffices
	payload := map[string]string{"identifier": user.Username, "password": "MfaPassw0rd!"}
	blocked := env.Request(http.MethodPost, "/api/auth/login", payload, "")
	require.Equal(t, http.StatusUnauthorized, blocked.Code)
	require.Equal(t, "auth.mfa_required", testutil.DecodeResponse(t, blocked).Error.Code)

	// Wrong code is rejected
	payload["mfa_code"] = "000000"
	rejected := env.Request(http.MethodPost, "/api/auth/login", payload, "")
	require.Equal(t, http.StatusUnauthorized, rejected.Code)
	require.Equal(t, "auth.mfa_invalid", testutil.DecodeResponse(t, rejected).Error.Code)

	// Live code completes the login
	code, err = totp.GenerateCode(setup.Secret, time.Now())
	require.NoError(t, err)
	payload["mfa_code"] = code
	ok := env.Request(http.MethodPost, "/api/auth/login", payload, "")
	require.Equal(t, http.StatusOK, ok.Code, ok.Body.String())

	// A backup code works exactly once
	payload["mfa_code"] = setup.Backup[0]
	first := env.Request(http.MethodPost, "/api/auth/login", payload, "")
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())

	second := env.Request(http.MethodPost, "/api/auth/login", payload, "")
	require.Equal(t, http.StatusUnauthorized, second.Code)
}

func TestAuthHandler_MFADisable(t *testing.T) {
	env := testutil.NewEnv(t)
	user := env.CreateUser("MfaPassw0rd!", models.LegacyRoleStaff)
	token := env.Login(user.Username, "MfaPassw0rd!").Tokens.AccessToken

	enroll := env.Request(http.MethodPost, "/api/auth/mfa/enroll", nil, token)
	require.Equal(t, http.StatusOK, enroll.Code)
	var setup struct {
		Secret string `json:"secret"`
	}
	testutil.DecodeInto(t, testutil.DecodeResponse(t, enroll).Data, &setup)

	code, err := totp.GenerateCode(setup.Secret, time.Now())
	require.NoError(t, err)
	verify := env.Request(http.MethodPost, "/api/auth/mfa/verify", map[string]string{"code": code}, token)
	require.Equal(t, http.StatusOK, verify.Code)

	code, err = totp.GenerateCode(setup.Secret, time.Now())
	require.NoError(t, err)
	disable := env.Request(http.MethodDelete, "/api/auth/mfa", map[string]string{"code": code}, token)
	require.Equal(t, http.StatusOK, disable.Code, disable.Body.String())

	// Login no longer demands a second factor
	payload := map[string]string{"identifier": user.Username, "password": "MfaPassw0rd!"}
	resp := env.Request(http.MethodPost, "/api/auth/login", payload, "")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
}
