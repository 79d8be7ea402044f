package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"google.golang.org/grpc/metadata"

	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/apperr"
	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/model"
)

type mockUserStore struct {
	users map[uuid.UUID]*model.User
}

func (m *mockUserStore) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, apperr.Validation(apperr.ErrNotFound, "user", id.String())
	}
	return u, nil
}

type mockTechStore struct {
	byUser map[uuid.UUID]*model.TechnicianProfile
}

func (m *mockTechStore) GetByUserID(_ context.Context, userID uuid.UUID) (*model.TechnicianProfile, error) {
	p, ok := m.byUser[userID]
	if !ok {
		return nil, apperr.Validation(apperr.ErrNotFound, "technician", userID.String())
	}
	return p, nil
}

func newResolver(users ...*model.User) (*Resolver, *mockTechStore) {
	us := &mockUserStore{users: map[uuid.UUID]*model.User{}}
	for _, u := range users {
		us.users[u.ID] = u
	}
	ts := &mockTechStore{byUser: map[uuid.UUID]*model.TechnicianProfile{}}
	return NewResolver(us, ts), ts
}

func TestResolve_Customer(t *testing.T) {
	u := &model.User{ID: uuid.New(), Role: model.RoleCustomer, Active: true}
	r, _ := newResolver(u)

	actor, err := r.Resolve(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if actor.ID != u.ID || actor.Role != model.RoleCustomer {
		t.Fatalf("unexpected actor %+v", actor)
	}
}

func TestResolve_TechnicianGetsProfile(t *testing.T) {
	u := &model.User{ID: uuid.New(), Role: model.RoleTechnician, Active: true}
	r, ts := newResolver(u)
	profile := &model.TechnicianProfile{ID: uuid.New(), UserID: u.ID}
	ts.byUser[u.ID] = profile

	actor, err := r.Resolve(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if actor.TechnicianID != profile.ID {
		t.Fatalf("expected technician profile %s, got %s", profile.ID, actor.TechnicianID)
	}
}

func TestResolve_Rejections(t *testing.T) {
	inactive := &model.User{ID: uuid.New(), Role: model.RoleStaff, Active: false}
	system := &model.User{ID: uuid.New(), Role: model.RoleSystem, Active: true}
	r, _ := newResolver(inactive, system)
	ctx := context.Background()

	if _, err := r.Resolve(ctx, uuid.Nil); !errors.Is(err, ErrMissingActor) {
		t.Fatalf("expected ErrMissingActor, got %v", err)
	}
	if _, err := r.Resolve(ctx, uuid.New()); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := r.Resolve(ctx, inactive.ID); !errors.Is(err, ErrUserInactive) || !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected inactive user to be forbidden, got %v", err)
	}
	if _, err := r.Resolve(ctx, system.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("system role must not be assumed by callers, got %v", err)
	}
}

func TestFromContext(t *testing.T) {
	u := &model.User{ID: uuid.New(), Role: model.RoleAdmin, Active: true}
	r, _ := newResolver(u)

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(ActorMetadataKey, u.ID.String()))
	actor, err := r.FromContext(ctx)
	if err != nil || actor.Role != model.RoleAdmin {
		t.Fatalf("unexpected actor %+v err %v", actor, err)
	}

	bad := metadata.NewIncomingContext(context.Background(), metadata.Pairs(ActorMetadataKey, "not-a-uuid"))
	if _, err := r.FromContext(bad); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := r.FromContext(context.Background()); !errors.Is(err, ErrMissingActor) {
		t.Fatalf("expected ErrMissingActor, got %v", err)
	}
}

func TestSystemFromContext(t *testing.T) {
	withSecret := func(v string) context.Context {
		return metadata.NewIncomingContext(context.Background(), metadata.Pairs(CallbackSecretMetadataKey, v))
	}

	actor, err := SystemFromContext(withSecret("s3cret"), "s3cret")
	if err != nil {
		t.Fatalf("valid secret: %v", err)
	}
	if actor.Role != model.RoleSystem {
		t.Fatalf("expected system actor, got %s", actor.Role)
	}

	tests := []struct {
		name   string
		ctx    context.Context
		secret string
	}{
		{"wrong secret", withSecret("guess"), "s3cret"},
		{"no metadata", context.Background(), "s3cret"},
		{"not configured", withSecret(""), ""},
	}
	for _, tt := range tests {
		if _, err := SystemFromContext(tt.ctx, tt.secret); !errors.Is(err, apperr.ErrForbidden) {
			t.Fatalf("%s: expected ErrForbidden, got %v", tt.name, err)
		}
	}
}
