package auth

import "time"

// Actor is an authenticated identity with a role and optional district or
// division affiliation. Actors are created and mutated by administrators
// only, and are never deleted: deactivation flips Active to false.
type Actor struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Name         string     `json:"name"`
	PasswordHash string     `json:"-"`
	Role         Role       `json:"role"`
	DistrictID   string     `json:"district_id,omitempty"`
	DivisionID   string     `json:"division_id,omitempty"`
	Active       bool       `json:"active"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
}

// Summary returns the fields safe to embed in API responses.
func (a Actor) Summary() ActorSummary {
	return ActorSummary{
		ID:         a.ID,
		Username:   a.Username,
		Name:       a.Name,
		Role:       a.Role,
		DistrictID: a.DistrictID,
		DivisionID: a.DivisionID,
		Active:     a.Active,
	}
}

// ActorSummary is the public projection of an actor.
type ActorSummary struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	Name       string `json:"name"`
	Role       Role   `json:"role"`
	DistrictID string `json:"district_id,omitempty"`
	DivisionID string `json:"division_id,omitempty"`
	Active     bool   `json:"active"`
}

// ActorUpdate carries optional admin mutations. Nil fields are untouched.
type ActorUpdate struct {
	Name       *string
	Password   *string
	Role       *Role
	DistrictID *string
	DivisionID *string
	Active     *bool
}
