package database

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func openPostgres(cfg Config) (*gorm.DB, error) {
	dsn, err := buildPostgresDSN(cfg)
	if err != nil {
		return nil, err
	}
	return gorm.Open(postgres.Open(dsn), &gorm.Config{})
}

// buildPostgresDSN assembles a keyword/value DSN. An explicit cfg.DSN wins
// outright; sslmode defaults to disable unless overridden via Options.
func buildPostgresDSN(cfg Config) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}
	if cfg.User == "" || cfg.Name == "" {
		return "", errors.New("postgres configuration requires user and database name")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "host=%s", valueOr(cfg.Host, "localhost"))
	fmt.Fprintf(&b, " port=%d", portOr(cfg.Port, 5432))
	fmt.Fprintf(&b, " user=%s", cfg.User)
	fmt.Fprintf(&b, " dbname=%s", cfg.Name)
	if cfg.Password != "" {
		fmt.Fprintf(&b, " password=%s", cfg.Password)
	}

	for _, kv := range sortedOptions(cfg.Options, map[string]string{"sslmode": "disable"}) {
		fmt.Fprintf(&b, " %s=%s", kv[0], kv[1])
	}

	return b.String(), nil
}

func valueOr(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func portOr(port, fallback int) int {
	if port == 0 {
		return fallback
	}
	return port
}

// sortedOptions merges defaults under the caller's options and returns
// deterministic key/value pairs for DSN assembly.
func sortedOptions(options, defaults map[string]string) [][2]string {
	merged := make(map[string]string, len(options)+len(defaults))
	for key, value := range defaults {
		merged[key] = value
	}
	for key, value := range options {
		merged[key] = value
	}

	keys := make([]string, 0, len(merged))
	for key := range merged {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([][2]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, [2]string{key, merged[key]})
	}
	return pairs
}
