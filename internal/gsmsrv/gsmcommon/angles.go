package gsmcommon

import "math"

// Coordinates cross the API boundary in degrees and are stored internally in
// radians. Field of view values arrive in arcminutes.

// DegToRad converts degrees to radians.
func DegToRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// RadToDeg converts radians to degrees.
func RadToDeg(rad float64) float64 {
	return rad * 180 / math.Pi
}

// ArcminToRad converts arcminutes to radians.
func ArcminToRad(arcmin float64) float64 {
	return DegToRad(arcmin / 60)
}

// NormalizeRADeg wraps a right ascension in degrees into [0, 360).
func NormalizeRADeg(ra float64) float64 {
	ra = math.Mod(ra, 360)
	if ra < 0 {
		ra += 360
	}
	return ra
}
