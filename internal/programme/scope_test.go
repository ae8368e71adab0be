package programme

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"progtrack.org/internal/auth"
	"progtrack.org/internal/directory"
)

func testClosure(t *testing.T) *directory.InMemory {
	t.Helper()
	dir := directory.NewInMemory()
	ctx := context.Background()
	require.NoError(t, dir.CreateDistrict(ctx, &directory.District{ID: "dist-1", Name: "North"}))
	require.NoError(t, dir.CreateDistrict(ctx, &directory.District{ID: "dist-2", Name: "South"}))
	require.NoError(t, dir.CreateDivision(ctx, &directory.Division{ID: "div-1", Name: "Alpha", DistrictID: "dist-1"}))
	require.NoError(t, dir.CreateDivision(ctx, &directory.Division{ID: "div-2", Name: "Beta", DistrictID: "dist-1"}))
	require.NoError(t, dir.CreateDivision(ctx, &directory.Division{ID: "div-3", Name: "Gamma", DistrictID: "dist-2"}))
	return dir
}

func TestComputeFilterAdmin(t *testing.T) {
	f, err := ComputeFilter(context.Background(), &auth.Actor{Role: auth.RoleAdmin}, testClosure(t))
	require.NoError(t, err)
	assert.True(t, f.All)
}

func TestComputeFilterDistrictExpandsClosure(t *testing.T) {
	actor := &auth.Actor{Role: auth.RoleDistrict, DistrictID: "dist-1"}
	f, err := ComputeFilter(context.Background(), actor, testClosure(t))
	require.NoError(t, err)
	assert.Equal(t, "dist-1", f.DistrictID)
	assert.ElementsMatch(t, []string{"div-1", "div-2"}, f.DistrictDivisions)
}

func TestComputeFilterDivision(t *testing.T) {
	actor := &auth.Actor{Role: auth.RoleDivision, DivisionID: "div-3"}
	f, err := ComputeFilter(context.Background(), actor, testClosure(t))
	require.NoError(t, err)
	assert.Equal(t, "div-3", f.DivisionID)
	assert.Empty(t, f.DistrictID)
}

func TestComputeFilterUnknownRoleFailsClosed(t *testing.T) {
	actor := &auth.Actor{Role: auth.Role("superuser")}
	f, err := ComputeFilter(context.Background(), actor, testClosure(t))
	require.NoError(t, err)
	assert.False(t, f.Matches(&Programme{Districts: []string{"dist-1"}}))
	assert.False(t, f.Matches(&Programme{}))
}

func TestFilterMatches(t *testing.T) {
	district := Filter{DistrictID: "dist-1", DistrictDivisions: []string{"div-1", "div-2"}}
	division := Filter{DivisionID: "div-1"}

	direct := &Programme{ScopeMode: ScopeDistrict, Districts: []string{"dist-1"}}
	assert.True(t, district.Matches(direct))
	assert.False(t, division.Matches(direct))

	viaClosure := &Programme{ScopeMode: ScopeAllDivisions, Divisions: []string{"div-2", "div-9"}}
	assert.True(t, district.Matches(viaClosure))
	assert.False(t, division.Matches(viaClosure))

	specific := &Programme{ScopeMode: ScopeSpecificList, Divisions: []string{"div-1"}}
	assert.True(t, division.Matches(specific))
	// A specific_list assignment does not leak up to the district through
	// the closure; only explicit district assignment or all_divisions does.
	assert.False(t, district.Matches(specific))

	elsewhere := &Programme{ScopeMode: ScopeDistrict, Districts: []string{"dist-2"}}
	assert.False(t, district.Matches(elsewhere))
	assert.False(t, division.Matches(elsewhere))

	assert.True(t, Filter{All: true}.Matches(elsewhere))
	assert.False(t, Filter{}.Matches(direct))
}

func TestAuthorizeMutationAdminOnly(t *testing.T) {
	assert.True(t, AuthorizeMutation(&auth.Actor{Role: auth.RoleAdmin}, nil))
	assert.False(t, AuthorizeMutation(&auth.Actor{Role: auth.RoleDistrict}, nil))
	assert.False(t, AuthorizeMutation(&auth.Actor{Role: auth.RoleDivision}, nil))
	assert.False(t, AuthorizeMutation(&auth.Actor{Role: auth.Role("superuser")}, nil))
	assert.False(t, AuthorizeMutation(nil, nil))
}

func TestParseStatusChangePolicy(t *testing.T) {
	p, ok := ParseStatusChangePolicy("any_actor")
	assert.True(t, ok)
	assert.Equal(t, StatusChangeAnyActor, p)

	p, ok = ParseStatusChangePolicy("admin_or_assigned")
	assert.True(t, ok)
	assert.Equal(t, StatusChangeAdminOrAssigned, p)

	_, ok = ParseStatusChangePolicy("everyone")
	assert.False(t, ok)
}
