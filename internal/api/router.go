package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/staydesk/staydesk/internal/app"
	iauth "github.com/staydesk/staydesk/internal/auth"
	"github.com/staydesk/staydesk/internal/auth/mfa"
	"github.com/staydesk/staydesk/internal/authz"
	"github.com/staydesk/staydesk/internal/cache"
	"github.com/staydesk/staydesk/internal/handlers"
	"github.com/staydesk/staydesk/internal/middleware"
	"github.com/staydesk/staydesk/internal/services"
)

// NewRouter builds the Gin engine, wires middleware and registers all routes.
// The cache store may be nil, in which case permission caching falls back to
// the database-only path.
func NewRouter(db *gorm.DB, jwt *iauth.JWTService, cfg *app.Config, sessions *iauth.SessionService, rateStore middleware.RateStore, store cache.Store) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if jwt == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session service must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS())
	if cfg.Server.CSRF.Enabled {
		r.Use(middleware.CSRF())
	}
	// Basic rate limiting: 100 requests/minute per IP+path
	if rateStore != nil {
		r.Use(middleware.RateLimitWithStore(rateStore, 100, time.Minute))
	} else {
		r.Use(middleware.RateLimit(100, time.Minute))
	}

	// Health endpoint (public)
	if cfg.Monitoring.Health.Enabled {
		r.GET("/health", handlers.Health(db))
	}

	// Permission evaluation stack shared by middleware and handlers
	permCache, err := authz.NewCache(db, store, cfg.Cache.PermissionCacheTTL())
	if err != nil {
		return nil, err
	}
	checker, err := authz.NewChecker(db, permCache)
	if err != nil {
		return nil, err
	}

	authn, err := iauth.NewAuthenticator(db, cfg.Auth.CredentialServiceConfig())
	if err != nil {
		return nil, err
	}

	mfaKey, err := app.DecodeKey(cfg.Auth.MFA.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("mfa encryption key: %w", err)
	}
	if length := len(mfaKey); length != 16 && length != 24 && length != 32 {
		return nil, fmt.Errorf("invalid mfa encryption key length: expected 16, 24, or 32 bytes, got %d", length)
	}
	totp, err := mfa.NewTOTPService(db, mfaKey, mfa.WithIssuer(cfg.Auth.MFA.Issuer))
	if err != nil {
		return nil, err
	}

	auditService, err := services.NewAuditService(db)
	if err != nil {
		return nil, err
	}
	userService, err := services.NewUserService(db, permCache, auditService)
	if err != nil {
		return nil, err
	}
	roleService, err := services.NewRoleService(db, permCache, auditService)
	if err != nil {
		return nil, err
	}

	authHandler := handlers.NewAuthHandler(db, sessions, authn, totp, checker)
	mfaHandler := handlers.NewMFAHandler(db, totp)
	userHandler := handlers.NewUserHandler(userService)
	roleHandler := handlers.NewRoleHandler(roleService)
	permHandler := handlers.NewPermissionHandler(checker)
	auditHandler := handlers.NewAuditHandler(auditService)

	// Public auth routes
	auth := r.Group("/api/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
	}

	requireAuth := middleware.Auth(jwt)

	api := r.Group("/api")
	api.Use(requireAuth)

	// Authenticated auth routes
	api.GET("/auth/me", authHandler.Me)
	api.POST("/auth/logout", authHandler.Logout)
	api.POST("/auth/mfa/enroll", mfaHandler.Enroll)
	api.POST("/auth/mfa/verify", mfaHandler.Verify)
	api.DELETE("/auth/mfa", mfaHandler.Disable)

	// Permissions
	perms := api.Group("/permissions")
	{
		perms.GET("", middleware.RequirePermission(checker, "permission.read.organization"), permHandler.Catalog)
		perms.GET("/my", permHandler.MyPermissions)
		perms.POST("/check", permHandler.Check)
		perms.POST("/cache/refresh", permHandler.RefreshCache)
	}

	// Roles
	roles := api.Group("/roles")
	{
		roles.GET("", middleware.RequirePermission(checker, "role.read.property"), roleHandler.List)
		roles.GET("/:id", middleware.RequirePermission(checker, "role.read.property"), roleHandler.Get)
		roles.POST("", middleware.RequirePermission(checker, "role.create.organization"), roleHandler.Create)
		roles.PATCH("/:id", middleware.RequirePermission(checker, "role.update.organization"), roleHandler.Update)
		roles.PUT("/:id/permissions", middleware.RequirePermission(checker, "role.update.organization"), roleHandler.SetPermissions)
		roles.DELETE("/:id", middleware.RequirePermission(checker, "role.delete.organization"), roleHandler.Delete)
	}

	// Users
	users := api.Group("/users")
	{
		users.GET("", middleware.RequirePermission(checker, "user.read.property"), userHandler.List)
		users.GET("/:id", middleware.RequirePermission(checker, "user.read.property"), userHandler.Get)
		users.POST("", middleware.RequirePermission(checker, "user.create.property"), userHandler.Create)
		users.PATCH("/:id", middleware.RequirePermission(checker, "user.update.property"), userHandler.Update)
		users.PATCH("/:id/active", middleware.RequirePermission(checker, "user.update.property"), userHandler.SetActive)
		users.DELETE("/:id", middleware.RequirePermission(checker, "user.delete.property"), userHandler.Delete)
		users.PUT("/:id/roles", middleware.RequirePermission(checker, "role.assign.property"), userHandler.SetRoles)
		users.GET("/:id/permissions", middleware.RequirePermission(checker, "permission.read.organization"), userHandler.Overrides)
		users.POST("/:id/permissions", middleware.RequirePermission(checker, "permission.manage.organization"), userHandler.SetOverride)
		users.DELETE("/:id/permissions/:permissionID", middleware.RequirePermission(checker, "permission.manage.organization"), userHandler.RemoveOverride)
	}

	// Audit
	api.GET("/audit", middleware.RequirePermission(checker, "audit.read.property"), auditHandler.List)
	api.GET("/audit/export", middleware.RequirePermission(checker, "audit.export.organization"), auditHandler.Export)

	// Metrics endpoint
	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := cfg.Monitoring.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
