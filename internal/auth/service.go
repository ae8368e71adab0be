package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// TokenPair is the result of a successful login or refresh.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// Service owns credential verification, token pair issuance, and actor
// administration.
type Service struct {
	tokens *TokenService
	actors ActorStore
	log    *zap.Logger
}

// NewService constructs the auth service.
func NewService(tokens *TokenService, actors ActorStore, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{tokens: tokens, actors: actors, log: log}
}

// Login verifies credentials and issues a token pair. Unknown username, wrong
// password, and deactivated actor all produce the same ErrUnauthenticated so
// the response cannot be used to enumerate usernames or probe account state.
func (s *Service) Login(ctx context.Context, username, password string) (TokenPair, *Actor, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return TokenPair{}, nil, ErrUnauthenticated
	}
	actor, err := s.actors.FindByUsername(ctx, username)
	if err != nil {
		// Burn a bcrypt comparison so an unknown username takes as long as a
		// wrong password.
		_ = VerifyPassword(dummyPasswordHash, password)
		return TokenPair{}, nil, ErrUnauthenticated
	}
	if err := VerifyPassword(actor.PasswordHash, password); err != nil {
		return TokenPair{}, nil, ErrUnauthenticated
	}
	if !actor.Active {
		s.log.Info("login attempt by deactivated actor", zap.String("actor_id", actor.ID))
		return TokenPair{}, nil, ErrUnauthenticated
	}

	pair, err := s.issuePair(actor)
	if err != nil {
		return TokenPair{}, nil, err
	}
	if err := s.actors.TouchLastLogin(ctx, actor.ID); err != nil {
		// Best effort; a failed timestamp must not fail the login.
		s.log.Warn("stamp last_login failed", zap.String("actor_id", actor.ID), zap.Error(err))
	}
	return pair, actor, nil
}

// Refresh exchanges a valid refresh token for a fresh pair. The actor record
// is re-read so a deactivation between issuance and refresh is honored.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, *Actor, error) {
	claims, err := s.tokens.Verify(refreshToken, TokenRefresh)
	if err != nil {
		s.log.Debug("refresh token verification failed", zap.Error(err))
		return TokenPair{}, nil, ErrUnauthenticated
	}
	actor, err := s.actors.Find(ctx, claims.Subject)
	if err != nil {
		return TokenPair{}, nil, ErrUnauthenticated
	}
	if !actor.Active {
		return TokenPair{}, nil, ErrUnauthenticated
	}
	pair, err := s.issuePair(actor)
	if err != nil {
		return TokenPair{}, nil, err
	}
	return pair, actor, nil
}

func (s *Service) issuePair(actor *Actor) (TokenPair, error) {
	summary := actor.Summary()
	access, accessExp, err := s.tokens.Issue(summary, TokenAccess)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, refreshExp, err := s.tokens.Issue(summary, TokenRefresh)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// CreateActorInput carries the fields for administrative actor creation.
type CreateActorInput struct {
	Username   string
	Name       string
	Password   string
	Role       Role
	DistrictID string
	DivisionID string
}

// CreateActor registers a new actor. Affiliation invariants are enforced
// here: a district actor must carry a district, a division actor a division.
func (s *Service) CreateActor(ctx context.Context, in CreateActorInput) (*Actor, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Name = strings.TrimSpace(in.Name)
	if in.Username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	if in.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if !in.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, in.Role)
	}
	if err := validateAffiliation(in.Role, in.DistrictID, in.DivisionID); err != nil {
		return nil, err
	}
	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	actor := &Actor{
		Username:     in.Username,
		Name:         in.Name,
		PasswordHash: hash,
		Role:         in.Role,
		DistrictID:   in.DistrictID,
		DivisionID:   in.DivisionID,
		Active:       true,
	}
	if err := s.actors.Create(ctx, actor); err != nil {
		return nil, err
	}
	return actor, nil
}

// UpdateActor applies an administrative update. Role changes re-validate the
// affiliation invariant against the resulting record.
func (s *Service) UpdateActor(ctx context.Context, id string, upd ActorUpdate) (*Actor, error) {
	current, err := s.actors.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	role := current.Role
	if upd.Role != nil {
		if !upd.Role.Valid() {
			return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, *upd.Role)
		}
		role = *upd.Role
	}
	districtID := current.DistrictID
	if upd.DistrictID != nil {
		districtID = *upd.DistrictID
	}
	divisionID := current.DivisionID
	if upd.DivisionID != nil {
		divisionID = *upd.DivisionID
	}
	if err := validateAffiliation(role, districtID, divisionID); err != nil {
		return nil, err
	}
	if upd.Password != nil {
		hash, err := HashPassword(*upd.Password)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		upd.Password = &hash
	}
	return s.actors.Update(ctx, id, upd)
}

// GetActor loads one actor by id.
func (s *Service) GetActor(ctx context.Context, id string) (*Actor, error) {
	return s.actors.Find(ctx, id)
}

// ListActors pages through all actors.
func (s *Service) ListActors(ctx context.Context, offset, limit int) ([]*Actor, error) {
	return s.actors.List(ctx, offset, limit)
}

func validateAffiliation(role Role, districtID, divisionID string) error {
	switch role {
	case RoleDistrict:
		if strings.TrimSpace(districtID) == "" {
			return fmt.Errorf("%w: district actor requires a district affiliation", ErrInvalidInput)
		}
	case RoleDivision:
		if strings.TrimSpace(divisionID) == "" {
			return fmt.Errorf("%w: division actor requires a division affiliation", ErrInvalidInput)
		}
	case RoleAdmin:
		// Affiliations are ignored for scoping; nothing to enforce.
	}
	return nil
}
