package authz

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/staydesk/staydesk/internal/models"
)

// Decision is the outcome of a permission check.
type Decision struct {
	Allowed   bool      `json:"allowed"`
	Reason    string    `json:"reason"`
	CacheHit  bool      `json:"cache_hit"`
	CheckedAt time.Time `json:"checked_at"`
}

// Checker evaluates permission checks against resolved user permission sets,
// consulting the cache before falling back to full resolution.
type Checker struct {
	db       *gorm.DB
	resolver *Resolver
	cache    *Cache
	now      func() time.Time
}

// NewChecker constructs a permission checker. The cache is required: every
// miss both answers the check and repopulates the cache.
func NewChecker(db *gorm.DB, permCache *Cache) (*Checker, error) {
	if db == nil {
		return nil, errors.New("authz: checker requires a db")
	}
	if permCache == nil {
		return nil, errors.New("authz: checker requires a cache")
	}

	resolver, err := NewResolver(db)
	if err != nil {
		return nil, err
	}

	return &Checker{
		db:       db,
		resolver: resolver,
		cache:    permCache,
		now:      time.Now,
	}, nil
}

// WithClock overrides the checker clock, primarily for tests.
func (c *Checker) WithClock(now func() time.Time) *Checker {
	if now != nil {
		c.now = now
		c.resolver.WithClock(now)
		c.cache.WithClock(now)
	}
	return c
}

// Check determines whether the user holds a permission covering the
// requested triple. Unknown triples are errors; missing or inactive users
// produce a denial with a reason.
func (c *Checker) Check(ctx context.Context, userID string, requested Triple) (Decision, error) {
	decision := Decision{CheckedAt: c.now()}

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return decision, errors.New("authz: user id is required")
	}

	if !Defined(requested) {
		return decision, fmt.Errorf("%w %q", ErrUnknownPermission, requested.String())
	}

	set, cacheHit, err := c.permissionsFor(ctx, userID)
	switch {
	case errors.Is(err, ErrUserNotFound):
		decision.Reason = "user not found"
		return decision, nil
	case errors.Is(err, ErrUserInactive):
		decision.Reason = "user inactive"
		return decision, nil
	case err != nil:
		return decision, err
	}

	decision.CacheHit = cacheHit

	if grant, ok := set.CoveringGrant(requested); ok {
		decision.Allowed = true
		decision.Reason = fmt.Sprintf("covered by %s", grant.String())
		return decision, nil
	}

	decision.Reason = fmt.Sprintf("no grant covers %s", requested.String())
	return decision, nil
}

// CheckString parses a dotted permission string and evaluates it.
func (c *Checker) CheckString(ctx context.Context, userID, permission string) (Decision, error) {
	requested, err := ParseTriple(permission)
	if err != nil {
		return Decision{CheckedAt: c.now()}, err
	}
	return c.Check(ctx, userID, requested)
}

// GetUserPermissions returns the sorted resolved permission strings for the
// user, using the cache when fresh.
func (c *Checker) GetUserPermissions(ctx context.Context, userID string) ([]string, error) {
	set, _, err := c.permissionsFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	return set.Strings(), nil
}

// Refresh forces a rebuild of the user's cached permission set and returns
// the fresh strings.
func (c *Checker) Refresh(ctx context.Context, userID string) ([]string, error) {
	set, err := c.resolver.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Put(ctx, userID, set); err != nil {
		return nil, err
	}
	return set.Strings(), nil
}

// RefreshAll rebuilds cached sets for every live active user. Per-user
// failures are collected rather than aborting the sweep.
func (c *Checker) RefreshAll(ctx context.Context) (int, error) {
	var userIDs []string
	if err := c.db.WithContext(ctx).
		Model(&models.User{}).
		Where("is_active = ?", true).
		Pluck("id", &userIDs).Error; err != nil {
		return 0, fmt.Errorf("authz: list users: %w", err)
	}

	var errs error
	refreshed := 0
	for _, userID := range userIDs {
		if _, err := c.Refresh(ctx, userID); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("user %s: %w", userID, err))
			continue
		}
		refreshed++
	}

	return refreshed, errs
}

func (c *Checker) permissionsFor(ctx context.Context, userID string) (Set, bool, error) {
	set, hit, err := c.cache.Get(ctx, userID)
	if err == nil && hit {
		return set, true, nil
	}

	set, err = c.resolver.Resolve(ctx, userID)
	if err != nil {
		return nil, false, err
	}

	if err := c.cache.Put(ctx, userID, set); err != nil {
		return nil, false, err
	}

	return set, false, nil
}
