package authz

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/staydesk/staydesk/internal/models"
)

var (
	// ErrUserNotFound indicates the subject does not exist or is soft-deleted.
	ErrUserNotFound = errors.New("authz: user not found")
	// ErrUserInactive indicates the subject exists but has been deactivated.
	ErrUserInactive = errors.New("authz: user inactive")
)

// Resolver computes the full permission set for a user from roles, direct
// overrides, and the legacy enum fallback.
type Resolver struct {
	db  *gorm.DB
	now func() time.Time
}

// NewResolver constructs a Resolver backed by the provided database.
func NewResolver(db *gorm.DB) (*Resolver, error) {
	if db == nil {
		return nil, errors.New("authz: resolver requires a db")
	}
	return &Resolver{db: db, now: time.Now}, nil
}

// WithClock overrides the resolver clock, primarily for tests.
func (r *Resolver) WithClock(now func() time.Time) *Resolver {
	if now != nil {
		r.now = now
	}
	return r
}

// Resolve loads the user and produces their resolved permission set.
//
// Precedence: custom-role permissions are unioned; when the user holds no
// custom roles and no live direct overrides, the legacy enum role supplies
// the base set instead; direct grants add triples and direct denials remove
// the exact triple. Platform admins receive the entire catalog.
func (r *Resolver) Resolve(ctx context.Context, userID string) (Set, error) {
	user, err := r.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return r.resolveUser(user)
}

func (r *Resolver) loadUser(ctx context.Context, userID string) (*models.User, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: empty user id", ErrUserNotFound)
	}

	var user models.User
	err := r.db.WithContext(ctx).
		Preload("CustomRoles.Permissions").
		Preload("Permissions.Permission").
		First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("authz: load user: %w", err)
	}

	return &user, nil
}

func (r *Resolver) resolveUser(user *models.User) (Set, error) {
	if !user.IsActive {
		return nil, ErrUserInactive
	}

	if user.IsPlatformAdmin() {
		return NewSet(Triples()...), nil
	}

	now := r.now()

	overrides := make([]models.UserPermission, 0, len(user.Permissions))
	for _, up := range user.Permissions {
		if up.Expired(now) || up.Permission == nil {
			continue
		}
		overrides = append(overrides, up)
	}

	set := make(Set)
	for _, role := range user.CustomRoles {
		for _, perm := range role.Permissions {
			triple, err := ParseTriple(perm.String())
			if err != nil {
				return nil, fmt.Errorf("authz: role %s holds invalid permission: %w", role.ID, err)
			}
			set.Add(triple)
		}
	}

	// Legacy enum fallback applies only when nothing newer exists.
	if len(user.CustomRoles) == 0 && len(overrides) == 0 {
		return LegacyGrants(user.LegacyRole), nil
	}

	// Grants first so a denial of the same triple always wins.
	for _, up := range overrides {
		if !up.Granted {
			continue
		}
		triple, err := ParseTriple(up.Permission.String())
		if err != nil {
			return nil, fmt.Errorf("authz: override %s holds invalid permission: %w", up.ID, err)
		}
		set.Add(triple)
	}

	for _, up := range overrides {
		if up.Granted {
			continue
		}
		triple, err := ParseTriple(up.Permission.String())
		if err != nil {
			return nil, fmt.Errorf("authz: override %s holds invalid permission: %w", up.ID, err)
		}
		set.Remove(triple)
	}

	return set, nil
}
