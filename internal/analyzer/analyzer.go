// Package analyzer implements the crossing analyzer (spec §4.8):
// discovery over the corridor tube, actual-crossing detection along the
// nominal path, corridor-only backfill, and chronological ordering.
package analyzer

import (
	"math"
	"sort"

	"github.com/navprofile/navprofile/internal/airspace"
	"github.com/navprofile/navprofile/internal/query"
	"github.com/navprofile/navprofile/internal/sampler"
)

// unboundedSegmentIndex stands in for the "+∞" segment index spec §4.8
// assigns to corridor-only discoveries, so they sort after every actual
// crossing regardless of route length.
const unboundedSegmentIndex = math.MaxInt32

// Config holds the tunables spec §6 exposes for analysis.
type Config struct {
	CorridorHeightFt float64
	CorridorWidthKm  float64
	SampleDistanceKm float64
}

// DefaultConfig returns the documented defaults: 500ft corridor height,
// ~9.26km (5NM) corridor width, 5km sample spacing.
func DefaultConfig() Config {
	return Config{
		CorridorHeightFt: sampler.DefaultCorridorHeightFt,
		CorridorWidthKm:  sampler.DefaultCorridorWidthKm,
		SampleDistanceKm: sampler.DefaultSegmentDistanceKm,
	}
}

// Analyze returns the chronologically ordered Crossings for route against
// engine, per the four-phase algorithm in spec §4.8.
func Analyze(engine *query.Engine, route *airspace.FlightRoute, cfg Config) []airspace.Crossing {
	nominal := sampler.Sample(route, cfg.SampleDistanceKm)
	if len(nominal) < 2 {
		return nil
	}
	corridorExtra := sampler.Corridor(nominal, cfg.CorridorWidthKm)

	discoveryOrder := discover(engine, nominal, corridorExtra, cfg.CorridorHeightFt)

	var crossings []airspace.Crossing
	actualRecorded := make(map[int64]bool)

	totalDistance := nominal[len(nominal)-1].CumulativeDistanceKm
	n := len(nominal)
	for i, s := range nominal {
		for _, a := range queryIDSorted(engine, s.Lon, s.Lat, s.AltitudeFt) {
			if actualRecorded[a.ID] {
				continue
			}
			actualRecorded[a.ID] = true
			frac := 0.0
			if n > 1 {
				frac = float64(i) / float64(n-1)
			}
			crossings = append(crossings, toCrossing(a, i, totalDistance*frac, true))
		}
	}

	for _, id := range discoveryOrder {
		if actualRecorded[id] {
			continue
		}
		a := engine.Airspace(id)
		if a == nil {
			continue
		}
		crossings = append(crossings, toCrossing(a, unboundedSegmentIndex, 0, false))
	}

	sort.SliceStable(crossings, func(i, j int) bool {
		return crossings[i].FirstSampleIndex < crossings[j].FirstSampleIndex
	})
	return crossings
}

// discover runs Phase A: query every corridor-tube sample (nominal path
// plus lateral offsets) at every altitude test level, accumulating the
// set of candidate airspace ids in first-encounter order.
func discover(engine *query.Engine, nominal, extra []airspace.SamplePoint, corridorHeightFt float64) []int64 {
	seen := make(map[int64]bool)
	var order []int64

	all := make([]airspace.SamplePoint, 0, len(nominal)+len(extra))
	all = append(all, nominal...)
	all = append(all, extra...)

	for _, s := range all {
		for _, level := range sampler.AltitudeTestLevels(s.AltitudeFt, corridorHeightFt) {
			for _, a := range queryIDSorted(engine, s.Lon, s.Lat, level) {
				if !seen[a.ID] {
					seen[a.ID] = true
					order = append(order, a.ID)
				}
			}
		}
	}
	return order
}

// queryIDSorted wraps engine.Query and sorts by airspace id so that
// "first encounter" within a single query's result set is deterministic,
// since the query engine itself makes no ordering guarantee (spec §4.5).
func queryIDSorted(engine *query.Engine, lon, lat, altFt float64) []airspace.Airspace {
	results := engine.Query(lon, lat, altFt)
	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })
	return results
}

func toCrossing(a airspace.Airspace, segmentIndex int, cumulativeKm float64, isActual bool) airspace.Crossing {
	return airspace.Crossing{
		AirspaceID:           a.ID,
		CodeID:               a.CodeID,
		Name:                 a.Name,
		CodeType:             a.CodeType,
		Class:                a.Class,
		LowerFeet:            a.Vertical.LowerFeet(),
		UpperFeet:            a.Vertical.UpperFeet(),
		FirstSampleIndex:     segmentIndex,
		CumulativeDistanceKm: cumulativeKm,
		IsActual:             isActual,
	}
}
