package auth

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"progtrack.org/internal/ids"
)

// InMemoryActorStore implements ActorStore for tests and database-free
// development.
type InMemoryActorStore struct {
	mu     sync.RWMutex
	actors map[string]Actor
}

var _ ActorStore = (*InMemoryActorStore)(nil)

func NewInMemoryActorStore() *InMemoryActorStore {
	return &InMemoryActorStore{actors: make(map[string]Actor)}
}

func (s *InMemoryActorStore) Create(ctx context.Context, actor *Actor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.actors {
		if existing.Username == actor.Username {
			return fmt.Errorf("%w: username %q", ErrAlreadyExists, actor.Username)
		}
	}
	if actor.ID == "" {
		actor.ID = ids.New()
	}
	actor.CreatedAt = time.Now().UTC()
	s.actors[actor.ID] = *actor
	return nil
}

func (s *InMemoryActorStore) Find(ctx context.Context, id string) (*Actor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.actors[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (s *InMemoryActorStore) FindByUsername(ctx context.Context, username string) (*Actor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.actors {
		if a.Username == username {
			cp := a
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *InMemoryActorStore) List(ctx context.Context, offset, limit int) ([]*Actor, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	s.mu.RLock()
	all := make([]Actor, 0, len(s.actors))
	for _, a := range s.actors {
		all = append(all, a)
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.Before(all[j].CreatedAt)
		}
		return all[i].ID < all[j].ID
	})
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	res := make([]*Actor, 0, end-offset)
	for i := offset; i < end; i++ {
		cp := all[i]
		res = append(res, &cp)
	}
	return res, nil
}

func (s *InMemoryActorStore) Update(ctx context.Context, id string, upd ActorUpdate) (*Actor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.actors[id]
	if !ok {
		return nil, ErrNotFound
	}
	if upd.Name != nil {
		a.Name = *upd.Name
	}
	if upd.Password != nil {
		a.PasswordHash = *upd.Password
	}
	if upd.Role != nil {
		a.Role = *upd.Role
	}
	if upd.DistrictID != nil {
		a.DistrictID = *upd.DistrictID
	}
	if upd.DivisionID != nil {
		a.DivisionID = *upd.DivisionID
	}
	if upd.Active != nil {
		a.Active = *upd.Active
	}
	s.actors[id] = a
	cp := a
	return &cp, nil
}

func (s *InMemoryActorStore) TouchLastLogin(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.actors[id]
	if !ok {
		return ErrNotFound
	}
	now := time.Now().UTC()
	a.LastLogin = &now
	s.actors[id] = a
	return nil
}
