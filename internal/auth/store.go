package auth

import "context"

// ActorStore describes the persistence operations the auth subsystem needs.
// The credential store itself (password hashes, roles, affiliations) is an
// external collaborator reached only through this interface.
type ActorStore interface {
	Create(ctx context.Context, actor *Actor) error
	Find(ctx context.Context, id string) (*Actor, error)
	FindByUsername(ctx context.Context, username string) (*Actor, error)
	List(ctx context.Context, offset, limit int) ([]*Actor, error)
	Update(ctx context.Context, id string, upd ActorUpdate) (*Actor, error)
	TouchLastLogin(ctx context.Context, id string) error
}
