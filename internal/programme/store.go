package programme

import "context"

// feedCap bounds a single Feed call. The feed itself is unbounded; callers
// replaying very long histories page by created_at upstream of this cap.
const feedCap = 1000

// Store describes programme persistence. AppendUpdate is the contract the
// whole engine leans on: the update insert and the conditional status
// mutation are one atomic unit, serialized per programme.
type Store interface {
	Create(ctx context.Context, p *Programme) error
	Get(ctx context.Context, id string) (*Programme, error)
	// List returns programmes matching the filter ordered by due date
	// descending with NULLs last, ties broken by id so pagination stays
	// stable under concurrent inserts.
	List(ctx context.Context, f Filter, page Page) ([]Programme, error)
	Apply(ctx context.Context, id string, patch Patch) (*Programme, error)
	// AppendUpdate persists the update and, when newStatus is non-nil, moves
	// the programme's status in the same transaction. It fails with
	// ErrNotFound when the programme does not exist; it never records one
	// side without the other.
	AppendUpdate(ctx context.Context, u *Update, newStatus *Status) error
	// Feed returns the programme's updates ordered created_at ascending,
	// ties broken by id ascending, up to limit entries.
	Feed(ctx context.Context, programmeID string, limit int) ([]Update, error)
}
