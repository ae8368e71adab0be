package directory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"progtrack.org/internal/ids"
)

// InMemory implements Store for tests and database-free development.
type InMemory struct {
	mu         sync.RWMutex
	districts  map[string]District
	divisions  map[string]Division
	portfolios map[string]Portfolio
}

var _ Store = (*InMemory)(nil)

func NewInMemory() *InMemory {
	return &InMemory{
		districts:  make(map[string]District),
		divisions:  make(map[string]Division),
		portfolios: make(map[string]Portfolio),
	}
}

func (s *InMemory) CreateDistrict(ctx context.Context, d *District) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.districts {
		if existing.Name == d.Name {
			return fmt.Errorf("%w: district %q", ErrAlreadyExists, d.Name)
		}
	}
	if d.ID == "" {
		d.ID = ids.New()
	}
	d.CreatedAt = time.Now().UTC()
	s.districts[d.ID] = *d
	return nil
}

func (s *InMemory) ListDistricts(ctx context.Context) ([]District, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]District, 0, len(s.districts))
	for _, d := range s.districts {
		res = append(res, d)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Name < res[j].Name })
	return res, nil
}

func (s *InMemory) CreateDivision(ctx context.Context, d *Division) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.districts[d.DistrictID]; !ok {
		return fmt.Errorf("%w: district %s", ErrNotFound, d.DistrictID)
	}
	if d.ID == "" {
		d.ID = ids.New()
	}
	d.CreatedAt = time.Now().UTC()
	s.divisions[d.ID] = *d
	return nil
}

func (s *InMemory) ListDivisions(ctx context.Context) ([]Division, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]Division, 0, len(s.divisions))
	for _, d := range s.divisions {
		res = append(res, d)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Name < res[j].Name })
	return res, nil
}

func (s *InMemory) DivisionsByDistrict(ctx context.Context, districtID string) ([]Division, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []Division
	for _, d := range s.divisions {
		if d.DistrictID == districtID {
			res = append(res, d)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (s *InMemory) CreatePortfolio(ctx context.Context, p *Portfolio) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.portfolios {
		if existing.Name == p.Name {
			return fmt.Errorf("%w: portfolio %q", ErrAlreadyExists, p.Name)
		}
	}
	if p.ID == "" {
		p.ID = ids.New()
	}
	s.portfolios[p.ID] = *p
	return nil
}

func (s *InMemory) ListPortfolios(ctx context.Context) ([]Portfolio, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]Portfolio, 0, len(s.portfolios))
	for _, p := range s.portfolios {
		res = append(res, p)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Name < res[j].Name })
	return res, nil
}
