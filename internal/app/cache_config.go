package app

import (
	"strings"
	"time"

	"github.com/staydesk/staydesk/internal/authz"
	"github.com/staydesk/staydesk/internal/cache"
)

// RedisClientConfig converts the application cache configuration into the cache package representation.
func (c CacheConfig) RedisClientConfig() cache.RedisConfig {
	return cache.RedisConfig{
		Address:  strings.TrimSpace(c.Redis.Address),
		Username: strings.TrimSpace(c.Redis.Username),
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
		TLS:      c.Redis.TLS,
		Timeout:  c.Redis.Timeout,
	}
}

// PermissionCacheTTL returns the configured permission cache lifetime.
func (c CacheConfig) PermissionCacheTTL() time.Duration {
	if c.PermissionTTL <= 0 {
		return authz.DefaultCacheTTL
	}
	return c.PermissionTTL
}
