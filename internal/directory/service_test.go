package directory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateDistrictValidation(t *testing.T) {
	svc := NewService(NewInMemory())
	ctx := context.Background()

	_, err := svc.CreateDistrict(ctx, "   ", "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	d, err := svc.CreateDistrict(ctx, "  North  ", "N01")
	require.NoError(t, err)
	assert.Equal(t, "North", d.Name)
	assert.NotEmpty(t, d.ID)

	_, err = svc.CreateDistrict(ctx, "North", "N02")
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestCreateDivisionRequiresDistrict(t *testing.T) {
	svc := NewService(NewInMemory())
	ctx := context.Background()

	_, err := svc.CreateDivision(ctx, "Alpha", "", "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.CreateDivision(ctx, "Alpha", "", "missing-district")
	assert.ErrorIs(t, err, ErrNotFound)

	d, err := svc.CreateDistrict(ctx, "North", "")
	require.NoError(t, err)
	div, err := svc.CreateDivision(ctx, "Alpha", "A01", d.ID)
	require.NoError(t, err)
	assert.Equal(t, d.ID, div.DistrictID)
}

func TestDivisionsByDistrictClosure(t *testing.T) {
	svc := NewService(NewInMemory())
	ctx := context.Background()

	north, err := svc.CreateDistrict(ctx, "North", "")
	require.NoError(t, err)
	south, err := svc.CreateDistrict(ctx, "South", "")
	require.NoError(t, err)

	_, err = svc.CreateDivision(ctx, "Alpha", "", north.ID)
	require.NoError(t, err)
	_, err = svc.CreateDivision(ctx, "Beta", "", north.ID)
	require.NoError(t, err)
	_, err = svc.CreateDivision(ctx, "Gamma", "", south.ID)
	require.NoError(t, err)

	closure, err := svc.DivisionsByDistrict(ctx, north.ID)
	require.NoError(t, err)
	names := make([]string, 0, len(closure))
	for _, d := range closure {
		names = append(names, d.Name)
	}
	assert.ElementsMatch(t, []string{"Alpha", "Beta"}, names)

	empty, err := svc.DivisionsByDistrict(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestCreatePortfolio(t *testing.T) {
	svc := NewService(NewInMemory())
	ctx := context.Background()

	_, err := svc.CreatePortfolio(ctx, "", "whatever")
	assert.ErrorIs(t, err, ErrInvalidInput)

	p, err := svc.CreatePortfolio(ctx, "Health", "health programmes")
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)

	_, err = svc.CreatePortfolio(ctx, "Health", "dup")
	assert.ErrorIs(t, err, ErrAlreadyExists)
}
