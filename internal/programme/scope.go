package programme

import (
	"context"

	"progtrack.org/internal/auth"
	"progtrack.org/internal/directory"
)

// Closure supplies the district→division expansion the district-role
// predicate needs.
type Closure interface {
	DivisionsByDistrict(ctx context.Context, districtID string) ([]directory.Division, error)
}

// Filter is a resolved visibility predicate for one actor. The zero value
// matches nothing, so an unrecognized role fails closed by construction.
type Filter struct {
	// All short-circuits the predicate; only admins get it.
	All bool
	// DistrictID plus DistrictDivisions describe a district actor: the
	// district itself and the closure of divisions it contains.
	DistrictID        string
	DistrictDivisions []string
	// DivisionID describes a division actor.
	DivisionID string
}

// ComputeFilter derives the visibility filter for an actor, expanding the
// district closure when needed. Role comes from the live actor record.
func ComputeFilter(ctx context.Context, actor *auth.Actor, closure Closure) (Filter, error) {
	if actor == nil {
		return Filter{}, nil
	}
	switch actor.Role {
	case auth.RoleAdmin:
		return Filter{All: true}, nil
	case auth.RoleDistrict:
		f := Filter{DistrictID: actor.DistrictID}
		divisions, err := closure.DivisionsByDistrict(ctx, actor.DistrictID)
		if err != nil {
			return Filter{}, err
		}
		for _, d := range divisions {
			f.DistrictDivisions = append(f.DistrictDivisions, d.ID)
		}
		return f, nil
	case auth.RoleDivision:
		return Filter{DivisionID: actor.DivisionID}, nil
	default:
		// Fail closed: a role outside the enumeration sees nothing.
		return Filter{}, nil
	}
}

// Matches applies the filter to a single programme. Stores must implement
// the same predicate in their queries; this form is used for single-record
// authorization and by the in-memory store.
func (f Filter) Matches(p *Programme) bool {
	switch {
	case f.All:
		return true
	case f.DistrictID != "":
		if containsString(p.Districts, f.DistrictID) {
			return true
		}
		// A programme addressed to all divisions is visible to the district
		// whenever any of its member divisions is assigned.
		if p.ScopeMode == ScopeAllDivisions && intersects(p.Divisions, f.DistrictDivisions) {
			return true
		}
		return false
	case f.DivisionID != "":
		return containsString(p.Divisions, f.DivisionID)
	default:
		return false
	}
}

// StatusChangePolicy governs who may author status_change updates. The
// original system left this as an open permission check; it is configuration
// here rather than a hard-coded answer.
type StatusChangePolicy string

const (
	// StatusChangeAnyActor matches the predecessor: any authenticated active
	// actor may move status.
	StatusChangeAnyActor StatusChangePolicy = "any_actor"
	// StatusChangeAdminOrAssigned restricts status changes to admins and
	// actors within the programme's assigned scope.
	StatusChangeAdminOrAssigned StatusChangePolicy = "admin_or_assigned"
)

// ParseStatusChangePolicy validates a policy name.
func ParseStatusChangePolicy(raw string) (StatusChangePolicy, bool) {
	switch StatusChangePolicy(raw) {
	case StatusChangeAnyActor:
		return StatusChangeAnyActor, true
	case StatusChangeAdminOrAssigned:
		return StatusChangeAdminOrAssigned, true
	default:
		return "", false
	}
}

// AuthorizeMutation reports whether the actor may change programme core
// fields (title, due date, priority, assignment lists, portfolio). Only
// admins may; everyone else is limited to the activity feed.
func AuthorizeMutation(actor *auth.Actor, _ *Programme) bool {
	if actor == nil {
		return false
	}
	switch actor.Role {
	case auth.RoleAdmin:
		return true
	case auth.RoleDistrict, auth.RoleDivision:
		return false
	default:
		return false
	}
}

func containsString(haystack []string, needle string) bool {
	if needle == "" {
		return false
	}
	for _, v := range haystack {
		if v == needle {
			return true
		}
	}
	return false
}

func intersects(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, v := range a {
		set[v] = struct{}{}
	}
	for _, v := range b {
		if _, ok := set[v]; ok {
			return true
		}
	}
	return false
}
