// Package healpix implements the nested-scheme HEALPix pixelization used for
// spatial indexing of sky components. All angles are in radians: ra is right
// ascension in [0, 2pi), dec is declination in [-pi/2, pi/2].
//
// The cone-search path relies on two properties of this package:
//   - PixelIndex is deterministic, so a coordinate always maps to one pixel
//     and boundary points cannot be double counted.
//   - QueryDisc returns a superset cover of the search disc. False positives
//     are filtered by an exact angular-separation check afterwards; false
//     negatives are not possible.
package healpix

import (
	"math"
)

// jrll and jpll locate each of the 12 base faces in ring coordinates.
var (
	jrll = [12]int64{2, 2, 2, 2, 3, 3, 3, 3, 4, 4, 4, 4}
	jpll = [12]int64{1, 3, 5, 7, 0, 2, 4, 6, 1, 3, 5, 7}
)

// NumPixels returns the total pixel count for the given nside.
func NumPixels(nside int) int64 {
	n := int64(nside)
	return 12 * n * n
}

// spreadBits spaces the bits of v so they occupy the even bit positions.
func spreadBits(v int64) int64 {
	x := v & 0xffffffff
	x = (x | x<<16) & 0x0000ffff0000ffff
	x = (x | x<<8) & 0x00ff00ff00ff00ff
	x = (x | x<<4) & 0x0f0f0f0f0f0f0f0f
	x = (x | x<<2) & 0x3333333333333333
	x = (x | x<<1) & 0x5555555555555555
	return x
}

// compressBits is the inverse of spreadBits for the even bit positions.
func compressBits(v int64) int64 {
	x := v & 0x5555555555555555
	x = (x | x>>1) & 0x3333333333333333
	x = (x | x>>2) & 0x0f0f0f0f0f0f0f0f
	x = (x | x>>4) & 0x00ff00ff00ff00ff
	x = (x | x>>8) & 0x0000ffff0000ffff
	x = (x | x>>16) & 0x00000000ffffffff
	return x
}

// xyfToNest converts face coordinates to a nested pixel index.
func xyfToNest(nside int, ix, iy, face int64) int64 {
	n := int64(nside)
	return face*n*n + spreadBits(ix) + spreadBits(iy)<<1
}

// nestToXYF converts a nested pixel index to face coordinates.
func nestToXYF(pix int64, nside int) (ix, iy, face int64) {
	n := int64(nside)
	npface := n * n
	face = pix / npface
	within := pix & (npface - 1)
	ix = compressBits(within)
	iy = compressBits(within >> 1)
	return ix, iy, face
}

// PixelIndex returns the nested-scheme pixel index for the given sky
// coordinate. The mapping is total over valid coordinates and deterministic
// on pixel boundaries.
func PixelIndex(ra, dec float64, nside int) int64 {
	n := int64(nside)
	z := math.Sin(dec)
	za := math.Abs(z)

	phi := math.Mod(ra, 2*math.Pi)
	if phi < 0 {
		phi += 2 * math.Pi
	}
	tt := phi / (math.Pi / 2) // in [0,4)

	var ix, iy, face int64
	if za <= 2.0/3.0 {
		// equatorial region
		temp1 := float64(n) * (0.5 + tt)
		temp2 := float64(n) * (z * 0.75)
		jp := int64(temp1 - temp2)
		jm := int64(temp1 + temp2)
		ifp := jp / n
		ifm := jm / n
		switch {
		case ifp == ifm:
			face = (ifp & 3) + 4
		case ifp < ifm:
			face = ifp & 3
		default:
			face = (ifm & 3) + 8
		}
		ix = jm & (n - 1)
		iy = n - (jp & (n - 1)) - 1
	} else {
		// polar caps
		ntt := int64(tt)
		if ntt >= 4 {
			ntt = 3
		}
		tp := tt - float64(ntt)
		tmp := float64(n) * math.Sqrt(3*(1-za))
		jp := int64(tp * tmp)
		jm := int64((1 - tp) * tmp)
		if jp >= n {
			jp = n - 1
		}
		if jm >= n {
			jm = n - 1
		}
		if z >= 0 {
			face = ntt
			ix = n - jm - 1
			iy = n - jp - 1
		} else {
			face = ntt + 8
			ix = jp
			iy = jm
		}
	}
	return xyfToNest(nside, ix, iy, face)
}

// PixelCenter returns the sky coordinate of the center of the given nested
// pixel.
func PixelCenter(pix int64, nside int) (ra, dec float64) {
	n := int64(nside)
	ix, iy, face := nestToXYF(pix, nside)

	jr := jrll[face]*n - ix - iy - 1

	var nr, kshift int64
	var z float64
	switch {
	case jr < n:
		// north polar cap
		nr = jr
		z = 1 - float64(nr*nr)/(3*float64(n*n))
		kshift = 0
	case jr > 3*n:
		// south polar cap
		nr = 4*n - jr
		z = float64(nr*nr)/(3*float64(n*n)) - 1
		kshift = 0
	default:
		// equatorial belt
		nr = n
		z = float64(2*n-jr) * 2 / (3 * float64(n))
		kshift = (jr - n) & 1
	}

	jp := (jpll[face]*nr + ix - iy + 1 + kshift) / 2
	if jp > 4*nr {
		jp -= 4 * nr
	}
	if jp < 1 {
		jp += 4 * nr
	}

	ra = (float64(jp) - float64(kshift+1)*0.5) * (math.Pi / (2 * float64(nr)))
	dec = math.Asin(z)
	return ra, dec
}

// maxPixRadius bounds the angular distance from any pixel center to the
// farthest point of that pixel. The worst pixels sit at the polar cap
// boundaries, where the center-to-corner distance approaches 1.17/nside;
// pi/(2*nside) stays above that at every resolution, so the padded disc
// cover remains a strict superset.
func maxPixRadius(nside int) float64 {
	return math.Pi / (2 * float64(nside))
}

// QueryDisc returns the nested pixel indices whose pixels may intersect the
// disc of the given angular radius around (ra, dec). The result is a superset
// of the pixels containing matching sources; callers apply an exact
// angular-separation filter to the candidates.
func QueryDisc(ra, dec, radius float64, nside int) []int64 {
	npix := NumPixels(nside)
	limit := radius + maxPixRadius(nside)
	if limit >= math.Pi {
		all := make([]int64, npix)
		for i := range all {
			all[i] = int64(i)
		}
		return all
	}

	var pixels []int64
	for pix := int64(0); pix < npix; pix++ {
		cra, cdec := PixelCenter(pix, nside)
		if AngularSeparation(ra, dec, cra, cdec) <= limit {
			pixels = append(pixels, pix)
		}
	}
	return pixels
}

// ChildRange returns the half-open range [lo, hi) of nested pixel indices at
// fineNside covered by the given pixel at coarseNside. The nested scheme makes
// every coarse pixel a contiguous run of fine pixels, which lets the store
// restrict scans with range predicates.
func ChildRange(coarse int64, coarseNside, fineNside int) (lo, hi int64) {
	ratio := int64(fineNside / coarseNside)
	span := ratio * ratio
	return coarse * span, (coarse + 1) * span
}

// AngularSeparation returns the great-circle distance between two sky
// coordinates. The Vincenty form stays numerically stable for both small
// separations and near-antipodal points.
func AngularSeparation(ra1, dec1, ra2, dec2 float64) float64 {
	dra := ra2 - ra1
	sinDra, cosDra := math.Sincos(dra)
	sinD1, cosD1 := math.Sincos(dec1)
	sinD2, cosD2 := math.Sincos(dec2)

	num := math.Hypot(cosD2*sinDra, cosD1*sinD2-sinD1*cosD2*cosDra)
	den := sinD1*sinD2 + cosD1*cosD2*cosDra
	return math.Atan2(num, den)
}
