package directory

import (
	"context"
	"fmt"
	"strings"
)

// Service wraps the store with input validation. Creation is gated on the
// admin role by the HTTP layer; listing is open to any authenticated actor.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

func (s *Service) CreateDistrict(ctx context.Context, name, code string) (District, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return District{}, fmt.Errorf("%w: district name is required", ErrInvalidInput)
	}
	d := District{Name: name, Code: strings.TrimSpace(code)}
	if err := s.store.CreateDistrict(ctx, &d); err != nil {
		return District{}, err
	}
	return d, nil
}

func (s *Service) ListDistricts(ctx context.Context) ([]District, error) {
	return s.store.ListDistricts(ctx)
}

func (s *Service) CreateDivision(ctx context.Context, name, code, districtID string) (Division, error) {
	name = strings.TrimSpace(name)
	districtID = strings.TrimSpace(districtID)
	if name == "" {
		return Division{}, fmt.Errorf("%w: division name is required", ErrInvalidInput)
	}
	if districtID == "" {
		return Division{}, fmt.Errorf("%w: district_id is required", ErrInvalidInput)
	}
	d := Division{Name: name, Code: strings.TrimSpace(code), DistrictID: districtID}
	if err := s.store.CreateDivision(ctx, &d); err != nil {
		return Division{}, err
	}
	return d, nil
}

func (s *Service) ListDivisions(ctx context.Context) ([]Division, error) {
	return s.store.ListDivisions(ctx)
}

func (s *Service) DivisionsByDistrict(ctx context.Context, districtID string) ([]Division, error) {
	districtID = strings.TrimSpace(districtID)
	if districtID == "" {
		return nil, fmt.Errorf("%w: district_id is required", ErrInvalidInput)
	}
	return s.store.DivisionsByDistrict(ctx, districtID)
}

func (s *Service) CreatePortfolio(ctx context.Context, name, description string) (Portfolio, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Portfolio{}, fmt.Errorf("%w: portfolio name is required", ErrInvalidInput)
	}
	p := Portfolio{Name: name, Description: strings.TrimSpace(description)}
	if err := s.store.CreatePortfolio(ctx, &p); err != nil {
		return Portfolio{}, err
	}
	return p, nil
}

func (s *Service) ListPortfolios(ctx context.Context) ([]Portfolio, error) {
	return s.store.ListPortfolios(ctx)
}
