// Package query implements the three-stage query engine: bounding-box
// candidate lookup, precise lateral containment, then vertical-band
// filtering (spec §4.5).
package query

import (
	"context"
	"log"
	"math"

	"github.com/paulmach/orb"

	"github.com/navprofile/navprofile/internal/airspace"
	"github.com/navprofile/navprofile/internal/geometry"
	"github.com/navprofile/navprofile/internal/spatialindex"
	"github.com/navprofile/navprofile/internal/store"
)

// Engine answers query(lon, lat, altitude_ft) against a built spatial
// index, geometry cache and airspace cache. Once built it is immutable
// and safe for concurrent Query calls, per spec §5.
type Engine struct {
	index     *spatialindex.Index
	geoms     map[int64][]geometry.Geometry
	airspaces map[int64]*airspace.Airspace
}

// Build loads every airspace with geometry from s, constructs its lateral
// geometry and indexes its bounding box. Airspaces whose Borders yield no
// valid Geometry (spec's NoGeometry case) are logged and excluded.
func Build(ctx context.Context, s store.Store) (*Engine, error) {
	ids, err := s.ListAirspaceIDsWithGeometry(ctx)
	if err != nil {
		return nil, airspace.NewError(airspace.StoreUnavailable, "list airspace ids", err)
	}

	e := &Engine{
		geoms:     make(map[int64][]geometry.Geometry),
		airspaces: make(map[int64]*airspace.Airspace),
	}
	var items []spatialindex.Item

	for _, id := range ids {
		a, err := s.GetAirspace(ctx, id)
		if err != nil || a == nil {
			log.Printf("query engine build: skipping airspace %d: %v", id, err)
			continue
		}

		borders, err := s.GetBorders(ctx, id)
		if err != nil {
			log.Printf("query engine build: skipping airspace %d borders: %v", id, err)
			continue
		}
		for i := range borders {
			if borders[i].Kind == airspace.BorderPolygon {
				vs, err := s.GetVertices(ctx, borders[i].ID)
				if err != nil {
					log.Printf("query engine build: skipping border %d vertices: %v", borders[i].ID, err)
					continue
				}
				borders[i].Vertices = vs
			}
		}

		geoms := geometry.Build(borders)
		if len(geoms) == 0 {
			log.Printf("query engine build: %s (%s) has no valid geometry, excluding", a.CodeID, airspace.NoGeometry)
			continue
		}

		e.geoms[id] = geoms
		e.airspaces[id] = a
		items = append(items, spatialindex.Item{
			AirspaceID: id,
			MinLon:     math.Min(geoms[0].Bound.Min[0], geoms[0].Bound.Max[0]),
			MinLat:     math.Min(geoms[0].Bound.Min[1], geoms[0].Bound.Max[1]),
			MaxLon:     math.Max(geoms[0].Bound.Min[0], geoms[0].Bound.Max[0]),
			MaxLat:     math.Max(geoms[0].Bound.Min[1], geoms[0].Bound.Max[1]),
		})
		unionBoundInto(&items[len(items)-1], geoms[1:])
	}

	e.index = spatialindex.Build(items)
	return e, nil
}

func unionBoundInto(item *spatialindex.Item, rest []geometry.Geometry) {
	for _, g := range rest {
		item.MinLon = math.Min(item.MinLon, g.Bound.Min[0])
		item.MinLat = math.Min(item.MinLat, g.Bound.Min[1])
		item.MaxLon = math.Max(item.MaxLon, g.Bound.Max[0])
		item.MaxLat = math.Max(item.MaxLat, g.Bound.Max[1])
	}
}

// Query returns every indexed airspace whose lateral geometry contains
// (lon, lat) and whose vertical band contains altitudeFt. Result order is
// not stable across calls; callers needing stable order must sort.
func (e *Engine) Query(lon, lat, altitudeFt float64) []airspace.Airspace {
	candidates := e.index.QueryPoint(lon, lat)
	point := orb.Point{lon, lat}

	var out []airspace.Airspace
	for _, id := range candidates {
		geoms, ok := e.geoms[id]
		if !ok || !geometry.ContainsAny(geoms, point) {
			continue
		}

		a := e.airspaces[id]
		lower, upper := a.Vertical.LowerFeet(), a.Vertical.UpperFeet()
		if altitudeFt < lower || altitudeFt > upper {
			continue
		}
		out = append(out, *a)
	}
	return out
}

// Airspace returns the cached airspace for id, or nil if not indexed.
func (e *Engine) Airspace(id int64) *airspace.Airspace { return e.airspaces[id] }
