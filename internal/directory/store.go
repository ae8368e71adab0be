package directory

import "context"

// Store describes directory persistence.
type Store interface {
	CreateDistrict(ctx context.Context, d *District) error
	ListDistricts(ctx context.Context) ([]District, error)

	CreateDivision(ctx context.Context, d *Division) error
	ListDivisions(ctx context.Context) ([]Division, error)
	// DivisionsByDistrict returns the closure of divisions administratively
	// contained in the district, in creation order.
	DivisionsByDistrict(ctx context.Context, districtID string) ([]Division, error)

	CreatePortfolio(ctx context.Context, p *Portfolio) error
	ListPortfolios(ctx context.Context) ([]Portfolio, error)
}
