package auth

import (
	"context"

	"go.uber.org/zap"
)

// Resolver turns a presented access token into a live actor. Token claims are
// treated as a cache of identity only: role and active status come from the
// actor record at resolution time, so a deactivated actor or a demoted role
// takes effect immediately, not at token expiry.
type Resolver struct {
	tokens *TokenService
	actors ActorStore
	log    *zap.Logger
}

// NewResolver constructs a Resolver.
func NewResolver(tokens *TokenService, actors ActorStore, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{tokens: tokens, actors: actors, log: log}
}

// Resolve verifies the access token and loads the actor it names. Every
// failure collapses to ErrUnauthenticated; the cause is logged for
// diagnostics only.
func (r *Resolver) Resolve(ctx context.Context, accessToken string) (*Actor, error) {
	claims, err := r.tokens.Verify(accessToken, TokenAccess)
	if err != nil {
		r.log.Debug("token verification failed", zap.Error(err))
		return nil, ErrUnauthenticated
	}
	actor, err := r.actors.Find(ctx, claims.Subject)
	if err != nil {
		r.log.Debug("token subject not found", zap.String("subject", claims.Subject))
		return nil, ErrUnauthenticated
	}
	if !actor.Active {
		r.log.Debug("deactivated actor presented a valid token", zap.String("actor_id", actor.ID))
		return nil, ErrUnauthenticated
	}
	return actor, nil
}

// RequireAdmin gates an operation on the admin role. Pure predicate, no I/O.
func RequireAdmin(actor *Actor) error {
	if actor == nil {
		return ErrUnauthenticated
	}
	if actor.Role != RoleAdmin {
		return ErrForbidden
	}
	return nil
}
