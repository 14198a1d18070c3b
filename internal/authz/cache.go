package authz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/staydesk/staydesk/internal/cache"
	"github.com/staydesk/staydesk/internal/models"
	"github.com/staydesk/staydesk/pkg/metrics"
)

// DefaultCacheTTL bounds how long a resolved permission set is trusted
// before the next check rebuilds it.
const DefaultCacheTTL = 15 * time.Minute

const cacheKeyPrefix = "authz:perms:"

// Cache memoizes resolved permission sets per user. The PermissionCache
// table is authoritative; an optional cache.Store (Redis in production)
// fronts it for hot lookups.
type Cache struct {
	db    *gorm.DB
	store cache.Store
	ttl   time.Duration
	now   func() time.Time
}

// NewCache constructs a permission cache. The store may be nil, in which
// case only the database table is used.
func NewCache(db *gorm.DB, store cache.Store, ttl time.Duration) (*Cache, error) {
	if db == nil {
		return nil, errors.New("authz: cache requires a db")
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{db: db, store: store, ttl: ttl, now: time.Now}, nil
}

// WithClock overrides the cache clock, primarily for tests.
func (c *Cache) WithClock(now func() time.Time) *Cache {
	if now != nil {
		c.now = now
	}
	return c
}

// TTL exposes the configured entry lifetime.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Get returns the cached permission set for a user when present and fresh.
func (c *Cache) Get(ctx context.Context, userID string) (Set, bool, error) {
	if c.store != nil {
		payload, ok, err := c.store.Get(ctx, cacheKeyPrefix+userID)
		if err == nil && ok {
			set, decodeErr := decodeSet(payload)
			if decodeErr == nil {
				metrics.PermissionCacheLookups.WithLabelValues("hit").Inc()
				return set, true, nil
			}
		}
	}

	var entry models.PermissionCache
	err := c.db.WithContext(ctx).Take(&entry, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		metrics.PermissionCacheLookups.WithLabelValues("miss").Inc()
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("authz: read permission cache: %w", err)
	}

	if entry.Stale(c.now()) {
		metrics.PermissionCacheLookups.WithLabelValues("stale").Inc()
		return nil, false, nil
	}

	set, err := decodeSet([]byte(entry.Permissions))
	if err != nil {
		// A corrupt row is treated as a miss and rebuilt by the caller.
		metrics.PermissionCacheLookups.WithLabelValues("miss").Inc()
		return nil, false, nil
	}

	metrics.PermissionCacheLookups.WithLabelValues("hit").Inc()
	return set, true, nil
}

// Put stores the resolved set for a user, replacing any previous entry.
func (c *Cache) Put(ctx context.Context, userID string, set Set) error {
	payload, err := json.Marshal(set.Strings())
	if err != nil {
		return fmt.Errorf("authz: encode permission cache: %w", err)
	}

	now := c.now()
	entry := models.PermissionCache{
		UserID:      userID,
		Permissions: string(payload),
		ResolvedAt:  now,
		ExpiresAt:   now.Add(c.ttl),
	}

	err = c.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"permissions", "resolved_at", "expires_at", "updated_at"}),
		}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("authz: write permission cache: %w", err)
	}

	if c.store != nil {
		// Store failures are non-fatal; the table remains authoritative.
		_ = c.store.Set(ctx, cacheKeyPrefix+userID, payload, c.ttl)
	}

	return nil
}

// Invalidate drops cached sets for the supplied users.
func (c *Cache) Invalidate(ctx context.Context, userIDs ...string) error {
	if len(userIDs) == 0 {
		return nil
	}

	if err := c.db.WithContext(ctx).
		Where("user_id IN ?", userIDs).
		Delete(&models.PermissionCache{}).Error; err != nil {
		return fmt.Errorf("authz: invalidate permission cache: %w", err)
	}

	if c.store != nil {
		keys := make([]string, len(userIDs))
		for i, id := range userIDs {
			keys[i] = cacheKeyPrefix + id
		}
		_ = c.store.Delete(ctx, keys...)
	}

	return nil
}

// InvalidateRole drops cached sets for every user holding the role.
func (c *Cache) InvalidateRole(ctx context.Context, roleID string) error {
	var userIDs []string
	if err := c.db.WithContext(ctx).
		Table("user_custom_roles").
		Where("custom_role_id = ?", roleID).
		Pluck("user_id", &userIDs).Error; err != nil {
		return fmt.Errorf("authz: load role members: %w", err)
	}

	return c.Invalidate(ctx, userIDs...)
}

// PurgeExpired removes cache rows past their expiry; used by maintenance.
func (c *Cache) PurgeExpired(ctx context.Context) (int64, error) {
	result := c.db.WithContext(ctx).
		Where("expires_at <= ?", c.now()).
		Delete(&models.PermissionCache{})
	if result.Error != nil {
		return 0, fmt.Errorf("authz: purge permission cache: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func decodeSet(payload []byte) (Set, error) {
	var values []string
	if err := json.Unmarshal(payload, &values); err != nil {
		return nil, err
	}

	set := make(Set, len(values))
	for _, value := range values {
		triple, err := ParseTriple(value)
		if err != nil {
			return nil, err
		}
		set.Add(triple)
	}
	return set, nil
}
