package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/staydesk/staydesk/internal/app"
	"github.com/staydesk/staydesk/internal/database"
	"github.com/staydesk/staydesk/internal/models"
	"github.com/staydesk/staydesk/pkg/crypto"
	"github.com/staydesk/staydesk/pkg/logger"
)

// Seeds the database schema, permission catalog, and system roles, then
// provisions a bootstrap platform admin when no active one exists.
func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("staydesk-seed", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)

	var (
		configPath string
		username   string
		email      string
		password   string
	)
	fs.StringVar(&configPath, "config", "", "Path to configuration directory")
	fs.StringVar(&username, "admin-username", "admin", "Bootstrap admin username")
	fs.StringVar(&email, "admin-email", "admin@staydesk.local", "Bootstrap admin email")
	fs.StringVar(&password, "admin-password", "", "Bootstrap admin password (generated when empty)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	var cfg *app.Config
	var err error
	if strings.TrimSpace(configPath) == "" {
		cfg, err = app.LoadConfig()
	} else {
		cfg, err = app.LoadConfig(configPath)
	}
	if err != nil {
		return err
	}

	if err := app.ConfigureLogging(cfg.Server.LogLevel); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer logger.Sync()

	log := logger.WithModule("seed")

	db, err := database.Open(cfg.Database.DatabaseOpenConfig())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrateAndSeed(db); err != nil {
		return fmt.Errorf("migrate and seed: %w", err)
	}
	log.Info("schema migrated, catalog and system roles seeded")

	var admins int64
	if err := db.Model(&models.User{}).
		Where("legacy_role = ? AND is_active = ?", models.LegacyRolePlatformAdmin, true).
		Count(&admins).Error; err != nil {
		return fmt.Errorf("count platform admins: %w", err)
	}
	if admins > 0 {
		log.Info("platform admin already present, skipping bootstrap", zap.Int64("count", admins))
		return nil
	}

	generated := false
	if strings.TrimSpace(password) == "" {
		password, err = crypto.GenerateToken(18)
		if err != nil {
			return fmt.Errorf("generate admin password: %w", err)
		}
		generated = true
	}

	hashed, err := crypto.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	admin := &models.User{
		Username:   strings.TrimSpace(username),
		Email:      strings.ToLower(strings.TrimSpace(email)),
		Password:   hashed,
		FirstName:  "Platform",
		LastName:   "Admin",
		LegacyRole: models.LegacyRolePlatformAdmin,
		IsActive:   true,
	}
	if err := db.Create(admin).Error; err != nil {
		return fmt.Errorf("create bootstrap admin: %w", err)
	}

	log.Info("bootstrap admin created",
		zap.String("username", admin.Username),
		zap.String("email", admin.Email))

	if generated {
		// Printed once; it is not stored anywhere in recoverable form.
		fmt.Printf("bootstrap admin password: %s\n", password)
	}

	return nil
}
