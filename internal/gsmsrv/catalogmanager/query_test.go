package catalogmanager

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/skymodel/skymodel/internal/gsmsrv/db/models"
	"github.com/skymodel/skymodel/internal/gsmsrv/gsmcommon"
	"github.com/skymodel/skymodel/internal/gsmsrv/healpix"
)

// commitSources stages and commits the given components as one catalogue
// version.
func commitSources(t *testing.T, ctx context.Context, m *Manager, store *stubStore, name, version string, comps ...*models.SkyComponentStaging) {
	t.Helper()
	uploadID := completedUpload(t, m, store, comps...)
	_, err := m.Commit(ctx, uploadID, testDescriptor(name, version))
	require.NoError(t, err)
}

func TestConeSearchCompleteness(t *testing.T) {
	m, store, ctx := newTestManager(t)

	commitSources(t, ctx, m, store, "TEST", "1.0.0",
		stagedComponent(t, "J1", 45.0, 2.0, 0.8, nil),
	)

	// a query centered exactly on the source must include it even with fov 0
	result, err := m.ConeSearch(ctx, ConeSearchParams{RA: 45.0, Dec: 2.0, FOVArcmin: 0})
	require.NoError(t, err)
	require.Len(t, result.Sources, 1)
	assert.Equal(t, "J1", result.Sources[0].ComponentID)
	assert.InDelta(t, 45.0, result.Sources[0].RA, 1e-9)
	assert.Equal(t, 0.8, result.Sources[0].IPol)

	// a small disc on the far side of the sky must exclude it
	result, err = m.ConeSearch(ctx, ConeSearchParams{RA: 200.0, Dec: -80.0, FOVArcmin: 10})
	require.NoError(t, err)
	assert.Empty(t, result.Sources)
}

func TestConeSearchNoFalseNegatives(t *testing.T) {
	m, store, ctx := newTestManager(t)

	rng := rand.New(rand.NewSource(7))
	var comps []*models.SkyComponentStaging
	for i := 0; i < 300; i++ {
		ra := rng.Float64() * 360.0
		dec := gsmcommon.RadToDeg(math.Asin(2.0*rng.Float64() - 1.0))
		comps = append(comps, stagedComponent(t, fmt.Sprintf("R%04d", i), ra, dec, 1.0, nil))
	}
	commitSources(t, ctx, m, store, "RANDOM", "1.0.0", comps...)

	for trial := 0; trial < 40; trial++ {
		ra := rng.Float64() * 360.0
		dec := gsmcommon.RadToDeg(math.Asin(2.0*rng.Float64() - 1.0))
		fov := rng.Float64() * 600.0 // up to 10 degrees
		radius := gsmcommon.ArcminToRad(fov)

		result, err := m.ConeSearch(ctx, ConeSearchParams{RA: ra, Dec: dec, FOVArcmin: fov})
		require.NoError(t, err)

		got := make(map[string]bool, len(result.Sources))
		for _, s := range result.Sources {
			got[s.ComponentID] = true
		}
		for _, c := range comps {
			sep := healpix.AngularSeparation(
				gsmcommon.DegToRad(ra), gsmcommon.DegToRad(dec), c.RA, c.Dec)
			if sep <= radius {
				assert.True(t, got[c.ComponentID],
					"source %s at separation %g rad missing from disc of radius %g rad", c.ComponentID, sep, radius)
			}
		}
	}
}

func TestConeSearchSpecIdxRoundTrip(t *testing.T) {
	m, store, ctx := newTestManager(t)

	commitSources(t, ctx, m, store, "TEST", "1.0.0",
		stagedComponent(t, "J1", 45.0, 2.0, 0.8, []float64{-0.42, 0.01}),
	)

	result, err := m.ConeSearch(ctx, ConeSearchParams{RA: 45.0, Dec: 2.0, FOVArcmin: 60})
	require.NoError(t, err)
	require.Len(t, result.Sources, 1)
	assert.Equal(t, []float64{-0.42, 0.01}, result.Sources[0].SpecIdx)
}

func TestConeSearchVersionResolution(t *testing.T) {
	m, store, ctx := newTestManager(t)

	// same sky position committed in two versions of GLEAM and one of TGSS
	commitSources(t, ctx, m, store, "GLEAM", "1.0.0",
		stagedComponent(t, "G-old", 45.0, 2.0, 1.0, nil))
	commitSources(t, ctx, m, store, "GLEAM", "2.0.0",
		stagedComponent(t, "G-new", 45.0, 2.0, 1.0, nil))
	commitSources(t, ctx, m, store, "TGSS", "1.0.0",
		stagedComponent(t, "T-1", 45.0, 2.0, 1.0, nil))

	search := func(name, version string) map[string]bool {
		result, err := m.ConeSearch(ctx, ConeSearchParams{
			RA: 45.0, Dec: 2.0, FOVArcmin: 60,
			CatalogueName: name, Version: version,
		})
		require.NoError(t, err)
		got := make(map[string]bool, len(result.Sources))
		for _, s := range result.Sources {
			got[s.ComponentID] = true
		}
		return got
	}

	// default: latest version of every catalogue
	got := search("", "")
	assert.True(t, got["G-new"])
	assert.True(t, got["T-1"])
	assert.False(t, got["G-old"])

	// catalogue name restricts to that catalogue's latest
	got = search("GLEAM", "")
	assert.True(t, got["G-new"])
	assert.False(t, got["T-1"])

	// pinned version wins over latest
	got = search("GLEAM", "1.0.0")
	assert.True(t, got["G-old"])
	assert.False(t, got["G-new"])

	// unknown catalogue or version yields an empty result, not an error
	assert.Empty(t, search("NVSS", ""))
	assert.Empty(t, search("GLEAM", "9.9.9"))
}

func TestConeSearchParamValidation(t *testing.T) {
	m, _, ctx := newTestManager(t)

	_, err := m.ConeSearch(ctx, ConeSearchParams{RA: 45.0, Dec: 95.0, FOVArcmin: 10})
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidQuery)

	_, err = m.ConeSearch(ctx, ConeSearchParams{RA: 45.0, Dec: 2.0, FOVArcmin: -1})
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidQuery)

	// RA outside [0, 360) is normalized, not rejected
	result, err := m.ConeSearch(ctx, ConeSearchParams{RA: 405.0, Dec: 2.0, FOVArcmin: 10})
	require.NoError(t, err)
	assert.NotNil(t, result)
}

func TestConeSearchEmptyCatalogue(t *testing.T) {
	m, _, ctx := newTestManager(t)

	result, err := m.ConeSearch(ctx, ConeSearchParams{RA: 45.0, Dec: 2.0, FOVArcmin: 10})
	require.NoError(t, err)
	assert.Empty(t, result.Sources)
	assert.Empty(t, result.Versions)
	assert.Equal(t, 0, result.Count)
}
