// Package directory holds the organizational hierarchy: districts, the
// divisions they contain, and portfolios. The district→division closure it
// exposes is what lets district-level visibility expand to member divisions.
package directory

import (
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("directory: not found")
	ErrAlreadyExists = errors.New("directory: already exists")
	ErrInvalidInput  = errors.New("directory: invalid input")
)

// District is the top level of the hierarchy.
type District struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Division belongs to exactly one district.
type Division struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Code       string    `json:"code,omitempty"`
	DistrictID string    `json:"district_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// Portfolio groups programmes thematically (committees in the original
// deployment). Purely descriptive; it plays no part in scoping.
type Portfolio struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}
