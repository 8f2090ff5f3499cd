// Package geo implements the great-circle math shared by the path sampler,
// corridor generator and crossing analyzer: haversine distance, initial
// bearing, and destination-point-from-bearing, all on a spherical-Earth
// approximation with radius units.EarthRadiusKm.
package geo

import (
	"math"

	"github.com/navprofile/navprofile/internal/units"
)

// Point is a geographic point in WGS84 decimal degrees.
type Point struct {
	Lon float64
	Lat float64
}

func toRad(deg float64) float64 { return deg * math.Pi / 180.0 }
func toDeg(rad float64) float64 { return rad * 180.0 / math.Pi }

// HaversineKm returns the great-circle distance between two points in
// kilometers.
func HaversineKm(a, b Point) float64 {
	lat1, lat2 := toRad(a.Lat), toRad(b.Lat)
	dLat := toRad(b.Lat - a.Lat)
	dLon := toRad(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return units.EarthRadiusKm * c
}

// InitialBearingDeg returns the initial bearing from a to b, in degrees
// clockwise from true north, in [0, 360).
func InitialBearingDeg(a, b Point) float64 {
	lat1, lat2 := toRad(a.Lat), toRad(b.Lat)
	dLon := toRad(b.Lon - a.Lon)

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	theta := math.Atan2(y, x)
	return math.Mod(toDeg(theta)+360.0, 360.0)
}

// Destination returns the point reached by travelling distanceKm from p
// along initial bearing bearingDeg, on the WGS84-sphere approximation.
func Destination(p Point, bearingDeg, distanceKm float64) Point {
	angDist := distanceKm / units.EarthRadiusKm
	brng := toRad(bearingDeg)
	lat1 := toRad(p.Lat)
	lon1 := toRad(p.Lon)

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(angDist) +
		math.Cos(lat1)*math.Sin(angDist)*math.Cos(brng))
	lon2 := lon1 + math.Atan2(
		math.Sin(brng)*math.Sin(angDist)*math.Cos(lat1),
		math.Cos(angDist)-math.Sin(lat1)*math.Sin(lat2),
	)

	return Point{Lon: toDeg(lon2), Lat: toDeg(lat2)}
}

// Lerp linearly interpolates between a and b at fraction t in [0, 1].
func Lerp(a, b, t float64) float64 { return a + (b-a)*t }

// InterpolatePosition linearly interpolates longitude and latitude between
// a and b at fraction t in [0, 1]. Positions are interpolated linearly in
// (lon, lat) space per the sampler contract; this is an approximation that
// is acceptable at the segment lengths involved.
func InterpolatePosition(a, b Point, t float64) Point {
	return Point{
		Lon: Lerp(a.Lon, b.Lon, t),
		Lat: Lerp(a.Lat, b.Lat, t),
	}
}

// PerpendicularOffset returns the point obtained by offsetting p
// perpendicular to segmentBearingDeg by offsetKm, to the right (+90°) when
// offsetKm is positive and to the left (-90°) when negative.
func PerpendicularOffset(p Point, segmentBearingDeg, offsetKm float64) Point {
	side := 90.0
	dist := offsetKm
	if offsetKm < 0 {
		side = -90.0
		dist = -offsetKm
	}
	return Destination(p, math.Mod(segmentBearingDeg+side+360.0, 360.0), dist)
}
