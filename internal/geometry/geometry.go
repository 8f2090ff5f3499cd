// Package geometry builds closed lateral geometries for an airspace's
// Borders and tests point containment against them.
package geometry

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/navprofile/navprofile/internal/airspace"
)

const (
	circleVertexCount = 32
	kmPerDegLat       = 110.574
)

// Geometry is one closed lateral ring built from a Border, ready for
// point-in-polygon testing.
type Geometry struct {
	BorderID int64
	Ring     orb.Ring
	Bound    orb.Bound
}

// Build constructs one Geometry per valid Border of an airspace. A
// Polygon Border becomes its vertex ring directly; a Circle Border is
// approximated as a circleVertexCount-sided regular polygon. Borders with
// fewer than 3 resulting vertices are skipped, not errored — an airspace
// left with no valid Geometry at all has NoGeometry semantics at the
// caller (spatial index build skips it).
func Build(borders []airspace.Border) []Geometry {
	var out []Geometry
	for _, b := range borders {
		var ring orb.Ring
		switch b.Kind {
		case airspace.BorderPolygon:
			ring = polygonRing(b.Vertices)
		case airspace.BorderCircle:
			ring = circleRing(b.CenterLon, b.CenterLat, b.RadiusKm)
		}
		if len(ring) < 3 {
			continue
		}
		out = append(out, Geometry{
			BorderID: b.ID,
			Ring:     ring,
			Bound:    ring.Bound(),
		})
	}
	return out
}

func polygonRing(vertices []airspace.Vertex) orb.Ring {
	ring := make(orb.Ring, len(vertices))
	for i, v := range vertices {
		ring[i] = orb.Point{v.Lon, v.Lat}
	}
	return ring
}

// circleRing samples circleVertexCount equally spaced angles around
// (centerLon, centerLat) at radiusKm, converting to degrees using
// latitude-local scales. Intentionally low-fidelity: error is bounded by
// inscribed-polygon deviation (<0.5% at 32 vertices).
func circleRing(centerLon, centerLat, radiusKm float64) orb.Ring {
	kmPerDegLon := 111.320 * math.Cos(centerLat*math.Pi/180.0)
	if kmPerDegLon == 0 {
		kmPerDegLon = 1e-9
	}

	ring := make(orb.Ring, circleVertexCount)
	for i := 0; i < circleVertexCount; i++ {
		theta := 2 * math.Pi * float64(i) / float64(circleVertexCount)
		dLon := (radiusKm * math.Sin(theta)) / kmPerDegLon
		dLat := (radiusKm * math.Cos(theta)) / kmPerDegLat
		ring[i] = orb.Point{centerLon + dLon, centerLat + dLat}
	}
	return ring
}

// ContainsAny reports whether point lies within any of the given
// Geometries, treating them as a union (logical OR) as Borders of a
// single airspace are never an intersection. Orientation-independent:
// orb/planar's ray-casting does not depend on ring winding.
func ContainsAny(geoms []Geometry, point orb.Point) bool {
	for _, g := range geoms {
		if !g.Bound.Contains(point) {
			continue
		}
		if planar.RingContains(g.Ring, point) {
			return true
		}
	}
	return false
}
