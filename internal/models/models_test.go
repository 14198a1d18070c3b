package models

import (
	"testing"
	"time"
)

func TestBaseModelBeforeCreateGeneratesID(t *testing.T) {
	var base BaseModel
	if err := base.BeforeCreate(nil); err != nil {
		t.Fatalf("before create: %v", err)
	}
	if base.ID == "" {
		t.Fatal("expected base model ID to be generated")
	}
}

func TestEmbeddedModelsUseBaseBeforeCreate(t *testing.T) {
	cases := []struct {
		name  string
		model func() *BaseModel
	}{
		{"organization", func() *BaseModel {
			o := &Organization{}
			return &o.BaseModel
		}},
		{"property", func() *BaseModel {
			p := &Property{}
			return &p.BaseModel
		}},
		{"department", func() *BaseModel {
			d := &Department{}
			return &d.BaseModel
		}},
		{"permission", func() *BaseModel {
			p := &Permission{}
			return &p.BaseModel
		}},
		{"custom_role", func() *BaseModel {
			r := &CustomRole{}
			return &r.BaseModel
		}},
		{"user_permission", func() *BaseModel {
			up := &UserPermission{}
			return &up.BaseModel
		}},
		{"mfa_secret", func() *BaseModel {
			m := &MFASecret{}
			return &m.BaseModel
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			model := tc.model()
			if err := model.BeforeCreate(nil); err != nil {
				t.Fatalf("before create: %v", err)
			}
			if model.ID == "" {
				t.Fatal("expected ID to be generated")
			}
		})
	}
}

func TestUserBeforeCreateGeneratesID(t *testing.T) {
	u := &User{}
	if err := u.BeforeCreate(nil); err != nil {
		t.Fatalf("before create: %v", err)
	}
	if u.ID == "" {
		t.Fatal("expected user ID to be generated")
	}
}

func TestPermissionString(t *testing.T) {
	p := Permission{Resource: "schedule", Action: "approve", Scope: "department"}
	if got := p.String(); got != "schedule.approve.department" {
		t.Fatalf("unexpected permission string %q", got)
	}
}

func TestUserPermissionExpired(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	if (&UserPermission{}).Expired(now) {
		t.Fatal("override without expiry must not expire")
	}
	if !(&UserPermission{ExpiresAt: &past}).Expired(now) {
		t.Fatal("expected past expiry to report expired")
	}
	if (&UserPermission{ExpiresAt: &future}).Expired(now) {
		t.Fatal("future expiry must not report expired")
	}
}

func TestPermissionCacheStale(t *testing.T) {
	now := time.Now()
	entry := &PermissionCache{ExpiresAt: now.Add(time.Minute)}
	if entry.Stale(now) {
		t.Fatal("entry inside TTL must not be stale")
	}
	if !entry.Stale(now.Add(2 * time.Minute)) {
		t.Fatal("entry past TTL must be stale")
	}
}
