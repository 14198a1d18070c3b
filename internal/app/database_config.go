package app

import (
	"strings"

	"github.com/staydesk/staydesk/internal/database"
)

// DatabaseOpenConfig converts the application database configuration into the
// database package representation.
func (c DatabaseConfig) DatabaseOpenConfig() database.Config {
	return database.Config{
		Driver:   strings.ToLower(strings.TrimSpace(c.Driver)),
		Path:     c.Path,
		DSN:      c.DSN,
		Host:     c.Host,
		Port:     c.Port,
		Name:     c.Name,
		User:     c.User,
		Password: c.Password,
		Options:  c.Options,
	}
}
