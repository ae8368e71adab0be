package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveLiveActor(t *testing.T) {
	svc, store := newTestService(t)
	created := seedActor(t, svc, CreateActorInput{
		Username:   "division-user",
		Name:       "Division User",
		Password:   "secret",
		Role:       RoleDivision,
		DivisionID: "div-1",
	})

	pair, _, err := svc.Login(context.Background(), "division-user", "secret")
	require.NoError(t, err)

	resolver := NewResolver(svc.tokens, store, nil)
	actor, err := resolver.Resolve(context.Background(), pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, created.ID, actor.ID)
	assert.Equal(t, RoleDivision, actor.Role)
}

func TestResolveSeesLiveRole(t *testing.T) {
	svc, store := newTestService(t)
	created := seedActor(t, svc, CreateActorInput{
		Username: "jsmith",
		Name:     "J. Smith",
		Password: "secret",
		Role:     RoleAdmin,
	})

	pair, _, err := svc.Login(context.Background(), "jsmith", "secret")
	require.NoError(t, err)

	// Demote after issuance; the old token must carry the new role.
	district := RoleDistrict
	districtID := "dist-1"
	_, err = svc.UpdateActor(context.Background(), created.ID, ActorUpdate{
		Role:       &district,
		DistrictID: &districtID,
	})
	require.NoError(t, err)

	resolver := NewResolver(svc.tokens, store, nil)
	actor, err := resolver.Resolve(context.Background(), pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, RoleDistrict, actor.Role)
}

func TestResolveRejectsDeactivated(t *testing.T) {
	svc, store := newTestService(t)
	created := seedActor(t, svc, CreateActorInput{
		Username: "jsmith",
		Name:     "J. Smith",
		Password: "secret",
		Role:     RoleAdmin,
	})

	pair, _, err := svc.Login(context.Background(), "jsmith", "secret")
	require.NoError(t, err)

	inactive := false
	_, err = svc.UpdateActor(context.Background(), created.ID, ActorUpdate{Active: &inactive})
	require.NoError(t, err)

	resolver := NewResolver(svc.tokens, store, nil)
	_, err = resolver.Resolve(context.Background(), pair.AccessToken)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestResolveRejectsRefreshToken(t *testing.T) {
	svc, store := newTestService(t)
	seedActor(t, svc, CreateActorInput{
		Username: "jsmith",
		Name:     "J. Smith",
		Password: "secret",
		Role:     RoleAdmin,
	})

	pair, _, err := svc.Login(context.Background(), "jsmith", "secret")
	require.NoError(t, err)

	resolver := NewResolver(svc.tokens, store, nil)
	_, err = resolver.Resolve(context.Background(), pair.RefreshToken)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestResolveRejectsExpiredToken(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	current := now
	tokens, err := NewTokenService("access-secret", "refresh-secret",
		WithClock(func() time.Time { return current }))
	require.NoError(t, err)

	store := NewInMemoryActorStore()
	svc := NewService(tokens, store, nil)
	seedActor(t, svc, CreateActorInput{
		Username: "jsmith",
		Name:     "J. Smith",
		Password: "secret",
		Role:     RoleAdmin,
	})

	pair, _, err := svc.Login(context.Background(), "jsmith", "secret")
	require.NoError(t, err)

	current = now.Add(31 * time.Minute)
	resolver := NewResolver(tokens, store, nil)
	_, err = resolver.Resolve(context.Background(), pair.AccessToken)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestRequireAdmin(t *testing.T) {
	assert.ErrorIs(t, RequireAdmin(nil), ErrUnauthenticated)
	assert.ErrorIs(t, RequireAdmin(&Actor{Role: RoleDistrict}), ErrForbidden)
	assert.NoError(t, RequireAdmin(&Actor{Role: RoleAdmin}))
}
