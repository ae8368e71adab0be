package programme

import (
	"context"
	"sort"
	"sync"
	"time"

	"progtrack.org/internal/ids"
)

// InMemory implements Store with in-process concurrency safety. Used by
// tests and by development setups without a database; the single mutex gives
// the same per-programme serialization the Postgres row lock provides.
type InMemory struct {
	mu         sync.RWMutex
	programmes map[string]*Programme
	updates    map[string][]Update
}

var _ Store = (*InMemory)(nil)

// NewInMemory creates an empty store.
func NewInMemory() *InMemory {
	return &InMemory{
		programmes: make(map[string]*Programme),
		updates:    make(map[string][]Update),
	}
}

func (s *InMemory) Create(ctx context.Context, p *Programme) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = ids.New()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.LastUpdatedAt = now
	cp := clone(p)
	s.programmes[p.ID] = &cp
	return nil
}

func (s *InMemory) Get(ctx context.Context, id string) (*Programme, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.programmes[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := clone(p)
	return &cp, nil
}

func (s *InMemory) List(ctx context.Context, f Filter, page Page) ([]Programme, error) {
	page = page.Normalize()
	s.mu.RLock()
	matched := make([]Programme, 0, len(s.programmes))
	for _, p := range s.programmes {
		if f.Matches(p) {
			matched = append(matched, clone(p))
		}
	}
	s.mu.RUnlock()

	// Newest due date first, NULLs last, id as the stable tie-break.
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		switch {
		case a.DueDate == nil && b.DueDate == nil:
			return a.ID > b.ID
		case a.DueDate == nil:
			return false
		case b.DueDate == nil:
			return true
		case !a.DueDate.Equal(*b.DueDate):
			return a.DueDate.After(*b.DueDate)
		default:
			return a.ID > b.ID
		}
	})

	if page.Offset >= len(matched) {
		return nil, nil
	}
	end := page.Offset + page.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[page.Offset:end], nil
}

func (s *InMemory) Apply(ctx context.Context, id string, patch Patch) (*Programme, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.programmes[id]
	if !ok {
		return nil, ErrNotFound
	}
	if patch.Title != nil {
		p.Title = *patch.Title
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.ClearDue {
		p.DueDate = nil
	} else if patch.DueDate != nil {
		t := *patch.DueDate
		p.DueDate = &t
	}
	if patch.Priority != nil {
		p.Priority = *patch.Priority
	}
	if patch.PortfolioID != nil {
		p.PortfolioID = *patch.PortfolioID
	}
	if patch.Frequency != nil {
		p.Frequency = *patch.Frequency
	}
	if patch.ScopeMode != nil {
		p.ScopeMode = *patch.ScopeMode
	}
	if patch.Districts != nil {
		p.Districts = append([]string(nil), patch.Districts...)
	}
	if patch.Divisions != nil {
		p.Divisions = append([]string(nil), patch.Divisions...)
	}
	if patch.Active != nil {
		p.Active = *patch.Active
	}
	if patch.Remarks != nil {
		p.Remarks = *patch.Remarks
	}
	if patch.Attachments != nil {
		p.Attachments = append([]Attachment(nil), patch.Attachments...)
	}
	p.LastUpdatedAt = time.Now().UTC()
	cp := clone(p)
	return &cp, nil
}

func (s *InMemory) AppendUpdate(ctx context.Context, u *Update, newStatus *Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.programmes[u.ProgrammeID]
	if !ok {
		return ErrNotFound
	}
	if u.ID == "" {
		u.ID = ids.New()
	}
	u.CreatedAt = time.Now().UTC()
	s.updates[p.ID] = append(s.updates[p.ID], *u)
	if newStatus != nil {
		p.Status = *newStatus
		p.LastUpdatedAt = u.CreatedAt
	}
	return nil
}

func (s *InMemory) Feed(ctx context.Context, programmeID string, limit int) ([]Update, error) {
	if limit <= 0 || limit > feedCap {
		limit = feedCap
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.programmes[programmeID]; !ok {
		return nil, ErrNotFound
	}
	feed := append([]Update(nil), s.updates[programmeID]...)
	sort.Slice(feed, func(i, j int) bool {
		if !feed[i].CreatedAt.Equal(feed[j].CreatedAt) {
			return feed[i].CreatedAt.Before(feed[j].CreatedAt)
		}
		return feed[i].ID < feed[j].ID
	})
	if len(feed) > limit {
		feed = feed[:limit]
	}
	return feed, nil
}

func clone(p *Programme) Programme {
	cp := *p
	if p.DueDate != nil {
		t := *p.DueDate
		cp.DueDate = &t
	}
	cp.Districts = append([]string(nil), p.Districts...)
	cp.Divisions = append([]string(nil), p.Divisions...)
	cp.Attachments = append([]Attachment(nil), p.Attachments...)
	return cp
}
