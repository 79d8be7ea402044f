// Package identity resolves the caller of an operation into a workflow actor.
package identity

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"google.golang.org/grpc/metadata"

	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/apperr"
	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/model"
	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/workflow"
)

const (
	// ActorMetadataKey carries the caller's user id on incoming gRPC calls.
	ActorMetadataKey = "x-actor-id"
	// CallbackSecretMetadataKey carries the shared secret of gateway callbacks.
	CallbackSecretMetadataKey = "x-callback-secret"
)

var (
	ErrMissingActor      = errors.New("missing actor id")
	ErrUserInactive      = errors.New("user is inactive")
	ErrBadCallbackSecret = errors.New("invalid callback secret")
)

// UserStore is where users are looked up.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
}

// TechnicianStore maps technician users to their profile.
type TechnicianStore interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*model.TechnicianProfile, error)
}

// Resolver turns a user id into an Actor. The role always comes from storage,
// never from the caller.
type Resolver struct {
	users       UserStore
	technicians TechnicianStore
}

func NewResolver(users UserStore, technicians TechnicianStore) *Resolver {
	return &Resolver{users: users, technicians: technicians}
}

// Resolve:
//   - rejects a nil id;
//   - loads the user and checks it is active with a known role;
//   - attaches the technician profile of technician users.
func (r *Resolver) Resolve(ctx context.Context, userID uuid.UUID) (workflow.Actor, error) {
	if userID == uuid.Nil {
		return workflow.Actor{}, apperr.Validation(ErrMissingActor, "actor", "user id is required")
	}

	u, err := r.users.GetByID(ctx, userID)
	if err != nil {
		return workflow.Actor{}, err
	}
	if !u.Active {
		return workflow.Actor{}, fmt.Errorf("%w: %w", apperr.ErrForbidden, ErrUserInactive)
	}
	if !u.Role.Valid() || u.Role == model.RoleSystem {
		return workflow.Actor{}, fmt.Errorf("%w: role %q cannot act", apperr.ErrForbidden, u.Role)
	}

	actor := workflow.Actor{ID: u.ID, Role: u.Role}
	if u.Role == model.RoleTechnician {
		profile, err := r.technicians.GetByUserID(ctx, u.ID)
		if err != nil {
			return workflow.Actor{}, fmt.Errorf("technician profile of %s: %w", u.ID, err)
		}
		actor.TechnicianID = profile.ID
	}
	return actor, nil
}

// FromContext resolves the actor whose id is carried in incoming metadata.
func (r *Resolver) FromContext(ctx context.Context) (workflow.Actor, error) {
	id, err := ActorIDFromContext(ctx)
	if err != nil {
		return workflow.Actor{}, err
	}
	return r.Resolve(ctx, id)
}

// SystemFromContext admits an automated caller presenting secret in
// CallbackSecretMetadataKey and returns the system actor. An empty secret
// admits nobody.
func SystemFromContext(ctx context.Context, secret string) (workflow.Actor, error) {
	if secret == "" {
		return workflow.Actor{}, fmt.Errorf("%w: callbacks are not configured", apperr.ErrForbidden)
	}
	md, _ := metadata.FromIncomingContext(ctx)
	vals := md.Get(CallbackSecretMetadataKey)
	if len(vals) == 0 || subtle.ConstantTimeCompare([]byte(vals[0]), []byte(secret)) != 1 {
		return workflow.Actor{}, fmt.Errorf("%w: %w", apperr.ErrForbidden, ErrBadCallbackSecret)
	}
	return workflow.System, nil
}

// ActorIDFromContext reads ActorMetadataKey from incoming gRPC metadata.
func ActorIDFromContext(ctx context.Context) (uuid.UUID, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return uuid.Nil, apperr.Validation(ErrMissingActor, "actor", "no metadata")
	}
	vals := md.Get(ActorMetadataKey)
	if len(vals) == 0 || vals[0] == "" {
		return uuid.Nil, apperr.Validation(ErrMissingActor, "actor", ActorMetadataKey+" is required")
	}
	id, err := uuid.Parse(vals[0])
	if err != nil {
		return uuid.Nil, apperr.Validation(apperr.ErrInvalidInput, "actor", err.Error())
	}
	return id, nil
}
