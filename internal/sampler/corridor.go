package sampler

import (
	"github.com/navprofile/navprofile/internal/airspace"
	"github.com/navprofile/navprofile/internal/geo"
)

// DefaultCorridorWidthKm is the default lateral corridor half-width,
// roughly 5 nautical miles.
const DefaultCorridorWidthKm = 9.26

// DefaultCorridorHeightFt is the default vertical corridor half-height.
const DefaultCorridorHeightFt = 500.0

// Corridor emits, for each segment of the nominal path, two additional
// points offset perpendicular to the segment bearing by ±widthKm from the
// segment's leading sample (spec §4.7).
func Corridor(samples []airspace.SamplePoint, widthKm float64) []airspace.SamplePoint {
	if widthKm <= 0 {
		widthKm = DefaultCorridorWidthKm
	}

	var extra []airspace.SamplePoint
	for i := 0; i < len(samples)-1; i++ {
		a, b := samples[i], samples[i+1]
		bearing := geo.InitialBearingDeg(
			geo.Point{Lon: a.Lon, Lat: a.Lat},
			geo.Point{Lon: b.Lon, Lat: b.Lat},
		)

		right := geo.PerpendicularOffset(geo.Point{Lon: a.Lon, Lat: a.Lat}, bearing, widthKm)
		left := geo.PerpendicularOffset(geo.Point{Lon: a.Lon, Lat: a.Lat}, bearing, -widthKm)

		extra = append(extra,
			airspace.SamplePoint{Lon: right.Lon, Lat: right.Lat, AltitudeFt: a.AltitudeFt, CumulativeDistanceKm: a.CumulativeDistanceKm, SegmentIndex: a.SegmentIndex},
			airspace.SamplePoint{Lon: left.Lon, Lat: left.Lat, AltitudeFt: a.AltitudeFt, CumulativeDistanceKm: a.CumulativeDistanceKm, SegmentIndex: a.SegmentIndex},
		)
	}
	return extra
}

// AltitudeTestLevels returns the altitudes the query engine should test
// for one corridor sample at altFt, given corridor half-height heightFt:
// alt-H, alt, alt+H always; two additional mid-levels alt±H/2 when
// heightFt exceeds the 500 ft default.
func AltitudeTestLevels(altFt, heightFt float64) []float64 {
	if heightFt <= 0 {
		heightFt = DefaultCorridorHeightFt
	}
	levels := []float64{altFt - heightFt, altFt, altFt + heightFt}
	if heightFt > DefaultCorridorHeightFt {
		levels = append(levels, altFt-heightFt/2, altFt+heightFt/2)
	}
	return levels
}
