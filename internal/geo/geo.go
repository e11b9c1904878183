// Package geo contains the pure geographic math every ordering and navigation
// decision is built on: bearing, great-circle distance, signed angular delta,
// angle normalization, and a planar projection for the spatial walk.
package geo

import "math"

// EarthRadiusMeters is the mean Earth radius used by the haversine formula.
const EarthRadiusMeters = 6_371_000.0

// Coord is a WGS84 latitude/longitude pair in decimal degrees.
type Coord struct {
	Lat float64
	Lon float64
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

func degrees(rad float64) float64 {
	return rad * 180.0 / math.Pi
}

// Norm360 wraps any degree value into [0,360).
func Norm360(d float64) float64 {
	m := math.Mod(d, 360.0)
	if m < 0 {
		m += 360.0
	}
	return m
}

// Bearing returns the forward geodesic bearing from a to b in degrees
// clockwise from north, in [0,360). Coincident points return 0 by convention
// so downstream math never sees NaN.
func Bearing(a, b Coord) float64 {
	if a.Lat == b.Lat && a.Lon == b.Lon {
		return 0
	}
	phi1 := radians(a.Lat)
	phi2 := radians(b.Lat)
	dLambda := radians(b.Lon - a.Lon)

	y := math.Sin(dLambda) * math.Cos(phi2)
	x := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(dLambda)
	return Norm360(degrees(math.Atan2(y, x)))
}

// DistanceMeters returns the haversine great-circle distance between a and b.
func DistanceMeters(a, b Coord) float64 {
	dLat := radians(b.Lat - a.Lat)
	dLon := radians(b.Lon - a.Lon)

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat +
		math.Cos(radians(a.Lat))*math.Cos(radians(b.Lat))*sinLon*sinLon

	return 2 * EarthRadiusMeters * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// SignedAngleDelta returns the smallest signed rotation from b to a in
// degrees, in (-180, 180]. A small absolute result means "a is roughly the
// same direction as b".
func SignedAngleDelta(a, b float64) float64 {
	d := math.Mod(a-b, 360.0)
	if d <= -180 {
		d += 360
	} else if d > 180 {
		d -= 360
	}
	return d
}

// Project maps a coordinate onto a Web-Mercator-like plane. The scale is
// arbitrary but consistent, which is all the nearest-neighbor walk needs.
func Project(c Coord) (x, y float64) {
	x = (c.Lon + 180.0) / 360.0
	latRad := radians(clampLat(c.Lat))
	y = (1 - math.Log(math.Tan(latRad)+1/math.Cos(latRad))/math.Pi) / 2
	return x, y
}

// clampLat keeps latitudes inside the Mercator-projectable range.
func clampLat(lat float64) float64 {
	const limit = 85.05112878
	if lat > limit {
		return limit
	}
	if lat < -limit {
		return -limit
	}
	return lat
}
