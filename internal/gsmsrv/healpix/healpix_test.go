package healpix

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPixelIndexRange(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, nside := range []int{1, 2, 16, 64, 4096} {
		npix := NumPixels(nside)
		for i := 0; i < 500; i++ {
			ra := rng.Float64() * 2 * math.Pi
			dec := math.Asin(2*rng.Float64() - 1)
			pix := PixelIndex(ra, dec, nside)
			assert.GreaterOrEqual(t, pix, int64(0))
			assert.Less(t, pix, npix)
		}
	}
}

func TestPixelIndexDeterministic(t *testing.T) {
	// same coordinate always lands in the same pixel, including RA aliases
	for _, nside := range []int{16, 4096} {
		p1 := PixelIndex(0.5, 0.3, nside)
		p2 := PixelIndex(0.5, 0.3, nside)
		assert.Equal(t, p1, p2)

		p3 := PixelIndex(0.5+2*math.Pi, 0.3, nside)
		assert.Equal(t, p1, p3)

		p4 := PixelIndex(0.5-2*math.Pi, 0.3, nside)
		assert.Equal(t, p1, p4)
	}
}

func TestPixelIndexPoles(t *testing.T) {
	for _, nside := range []int{1, 16, 1024} {
		npix := NumPixels(nside)
		north := PixelIndex(0, math.Pi/2, nside)
		south := PixelIndex(0, -math.Pi/2, nside)
		assert.GreaterOrEqual(t, north, int64(0))
		assert.Less(t, north, npix)
		assert.GreaterOrEqual(t, south, int64(0))
		assert.Less(t, south, npix)
		assert.NotEqual(t, north, south)
	}
}

func TestPixelCenterRoundTrip(t *testing.T) {
	// the center of every pixel must map back to that pixel
	for _, nside := range []int{1, 2, 4, 16} {
		npix := NumPixels(nside)
		for pix := int64(0); pix < npix; pix++ {
			ra, dec := PixelCenter(pix, nside)
			assert.Equal(t, pix, PixelIndex(ra, dec, nside), "nside=%d pix=%d", nside, pix)
		}
	}

	rng := rand.New(rand.NewSource(2))
	nside := 4096
	npix := NumPixels(nside)
	for i := 0; i < 2000; i++ {
		pix := rng.Int63n(npix)
		ra, dec := PixelCenter(pix, nside)
		assert.Equal(t, pix, PixelIndex(ra, dec, nside), "nside=%d pix=%d", nside, pix)
	}
}

func TestQueryDiscSuperset(t *testing.T) {
	// every source inside the disc must fall in a returned pixel
	rng := rand.New(rand.NewSource(3))
	nside := 16

	for trial := 0; trial < 50; trial++ {
		cra := rng.Float64() * 2 * math.Pi
		cdec := math.Asin(2*rng.Float64() - 1)
		radius := rng.Float64() * 0.3

		cover := QueryDisc(cra, cdec, radius, nside)
		covered := make(map[int64]bool, len(cover))
		for _, p := range cover {
			covered[p] = true
		}

		for i := 0; i < 200; i++ {
			// draw a point inside the disc
			d := radius * math.Sqrt(rng.Float64())
			bearing := rng.Float64() * 2 * math.Pi
			sdec := math.Asin(math.Sin(cdec)*math.Cos(d) + math.Cos(cdec)*math.Sin(d)*math.Cos(bearing))
			sra := cra + math.Atan2(math.Sin(bearing)*math.Sin(d)*math.Cos(cdec), math.Cos(d)-math.Sin(cdec)*math.Sin(sdec))

			require.LessOrEqual(t, AngularSeparation(cra, cdec, sra, sdec), radius+1e-9)
			pix := PixelIndex(sra, sdec, nside)
			assert.True(t, covered[pix], "source pixel %d missing from disc cover (trial %d)", pix, trial)
		}
	}
}

// offsetPoint returns the coordinate at great-circle distance d from
// (ra, dec) along the given bearing.
func offsetPoint(ra, dec, bearing, d float64) (float64, float64) {
	odec := math.Asin(math.Sin(dec)*math.Cos(d) + math.Cos(dec)*math.Sin(d)*math.Cos(bearing))
	ora := ra + math.Atan2(math.Sin(bearing)*math.Sin(d)*math.Cos(dec), math.Cos(d)-math.Sin(dec)*math.Sin(odec))
	return ora, odec
}

// bearingTo returns the initial bearing of the great circle from (ra1, dec1)
// toward (ra2, dec2).
func bearingTo(ra1, dec1, ra2, dec2 float64) float64 {
	dra := ra2 - ra1
	return math.Atan2(math.Sin(dra)*math.Cos(dec2), math.Cos(dec1)*math.Sin(dec2)-math.Sin(dec1)*math.Cos(dec2)*math.Cos(dra))
}

func TestMaxPixRadiusBound(t *testing.T) {
	// no point of a pixel may be farther from its center than maxPixRadius;
	// the polar cap corners are the worst offenders
	rng := rand.New(rand.NewSource(5))
	for _, nside := range []int{4, 8, 16, 64, 256} {
		bound := maxPixRadius(nside)
		for i := 0; i < 5000; i++ {
			ra := rng.Float64() * 2 * math.Pi
			dec := math.Asin(2*rng.Float64() - 1)
			pix := PixelIndex(ra, dec, nside)
			cra, cdec := PixelCenter(pix, nside)
			assert.LessOrEqual(t, AngularSeparation(ra, dec, cra, cdec), bound,
				"nside=%d pix=%d point (%f, %f)", nside, pix, ra, dec)
		}
	}

	// point near a polar cap boundary corner at nside 16, beyond 1/nside
	// from its pixel center
	ra, dec := 3.14150, 0.78469
	pix := PixelIndex(ra, dec, 16)
	cra, cdec := PixelCenter(pix, 16)
	assert.LessOrEqual(t, AngularSeparation(ra, dec, cra, cdec), maxPixRadius(16))
}

func TestQueryDiscCornerAdjacent(t *testing.T) {
	// a query center just outside a pixel, on the far side of a source from
	// that pixel's center, must still cover the source's pixel
	check := func(sra, sdec, radius float64, nside int) {
		pix := PixelIndex(sra, sdec, nside)
		cra, cdec := PixelCenter(pix, nside)
		away := bearingTo(sra, sdec, cra, cdec) + math.Pi
		qra, qdec := offsetPoint(sra, sdec, away, 0.9*radius)
		require.LessOrEqual(t, AngularSeparation(qra, qdec, sra, sdec), radius)

		for _, p := range QueryDisc(qra, qdec, radius, nside) {
			if p == pix {
				return
			}
		}
		t.Errorf("nside=%d: pixel %d of source (%f, %f) missing from cover of disc at (%f, %f) radius %f",
			nside, pix, sra, sdec, qra, qdec, radius)
	}

	// polar cap boundary corner cases
	check(3.14150, 0.78469, 0.02, 16)
	check(3.14150, 0.78469, 0.00125, 256)

	rng := rand.New(rand.NewSource(6))
	for _, nside := range []int{4, 8, 16, 64} {
		radius := 0.32 / float64(nside)
		for i := 0; i < 200; i++ {
			sra := rng.Float64() * 2 * math.Pi
			sdec := math.Asin(2*rng.Float64() - 1)
			check(sra, sdec, radius, nside)
		}
	}
}

func TestQueryDiscFullSky(t *testing.T) {
	cover := QueryDisc(0, 0, math.Pi, 2)
	assert.Len(t, cover, int(NumPixels(2)))
}

func TestChildRange(t *testing.T) {
	// ratio 4 means each coarse pixel spans 16 fine pixels
	lo, hi := ChildRange(0, 16, 64)
	assert.Equal(t, int64(0), lo)
	assert.Equal(t, int64(16), hi)

	lo, hi = ChildRange(5, 16, 64)
	assert.Equal(t, int64(80), lo)
	assert.Equal(t, int64(96), hi)

	// equal resolutions collapse to single-pixel ranges
	lo, hi = ChildRange(7, 64, 64)
	assert.Equal(t, int64(7), lo)
	assert.Equal(t, int64(8), hi)
}

func TestChildRangeContainment(t *testing.T) {
	// a fine pixel computed from a coordinate falls inside the child range of
	// the coarse pixel for the same coordinate
	rng := rand.New(rand.NewSource(4))
	coarse, fine := 16, 4096
	for i := 0; i < 500; i++ {
		ra := rng.Float64() * 2 * math.Pi
		dec := math.Asin(2*rng.Float64() - 1)
		cp := PixelIndex(ra, dec, coarse)
		fp := PixelIndex(ra, dec, fine)
		lo, hi := ChildRange(cp, coarse, fine)
		assert.GreaterOrEqual(t, fp, lo)
		assert.Less(t, fp, hi)
	}
}

func TestAngularSeparation(t *testing.T) {
	assert.InDelta(t, 0, AngularSeparation(1.2, 0.4, 1.2, 0.4), 1e-12)
	assert.InDelta(t, math.Pi/2, AngularSeparation(0, 0, math.Pi/2, 0), 1e-12)
	assert.InDelta(t, math.Pi, AngularSeparation(0, 0, math.Pi, 0), 1e-9)
	// symmetric
	a := AngularSeparation(0.3, -0.2, 2.8, 1.1)
	b := AngularSeparation(2.8, 1.1, 0.3, -0.2)
	assert.InDelta(t, a, b, 1e-12)
	// wraparound: 359deg to 1deg is 2deg apart at the equator
	sep := AngularSeparation(DegToRadForTest(359), 0, DegToRadForTest(1), 0)
	assert.InDelta(t, DegToRadForTest(2), sep, 1e-9)
}

func DegToRadForTest(deg float64) float64 {
	return deg * math.Pi / 180
}
