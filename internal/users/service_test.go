package users

import (
	"context"
	"errors"
	"testing"

	"test-report-backend/internal/shared/server/middleware"
)

func TestResolveIdentityMapsAccountState(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.Register(ctx, User{ID: "u1", Email: "a@example.com", FullName: "Ana"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := svc.Register(ctx, User{ID: "u2", Email: "b@example.com", Status: StatusInactive}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := svc.Register(ctx, User{ID: "u3", Email: "c@example.com", IsDeleted: true}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	active, err := svc.ResolveIdentity(ctx, "u1")
	if err != nil {
		t.Fatalf("ResolveIdentity: %v", err)
	}
	if !active.Active || active.Deleted || active.Name != "Ana" {
		t.Fatalf("active identity = %+v", active)
	}
	inactive, _ := svc.ResolveIdentity(ctx, "u2")
	if inactive.Active {
		t.Fatalf("expected inactive identity")
	}
	deleted, _ := svc.ResolveIdentity(ctx, "u3")
	if !deleted.Deleted {
		t.Fatalf("expected deleted identity")
	}
	if _, err := svc.ResolveIdentity(ctx, "nobody"); !errors.Is(err, middleware.ErrIdentityNotFound) {
		t.Fatalf("err = %v, want ErrIdentityNotFound", err)
	}
}

func TestRegisterRequiresEmail(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	if err := svc.Register(context.Background(), User{ID: "u1"}); err == nil {
		t.Fatalf("expected error")
	}
}
