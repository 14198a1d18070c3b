package database

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func openMySQL(cfg Config) (*gorm.DB, error) {
	dsn, err := buildMySQLDSN(cfg)
	if err != nil {
		return nil, err
	}
	return gorm.Open(mysql.Open(dsn), &gorm.Config{})
}

// buildMySQLDSN produces a go-sql-driver DSN. parseTime must stay enabled
// for GORM time.Time scanning.
func buildMySQLDSN(cfg Config) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}
	if cfg.User == "" || cfg.Name == "" {
		return "", errors.New("mysql configuration requires user and database name")
	}

	credentials := cfg.User
	if cfg.Password != "" {
		credentials = fmt.Sprintf("%s:%s", cfg.User, cfg.Password)
	}

	defaults := map[string]string{
		"charset":   "utf8mb4",
		"parseTime": "True",
		"loc":       "Local",
	}
	pairs := make([]string, 0, len(defaults)+len(cfg.Options))
	for _, kv := range sortedOptions(cfg.Options, defaults) {
		pairs = append(pairs, fmt.Sprintf("%s=%s", kv[0], kv[1]))
	}

	return fmt.Sprintf("%s@tcp(%s:%d)/%s?%s",
		credentials,
		valueOr(cfg.Host, "localhost"),
		portOr(cfg.Port, 3306),
		cfg.Name,
		strings.Join(pairs, "&")), nil
}
