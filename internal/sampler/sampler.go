// Package sampler implements the path sampler (spec §4.6): interpolation
// for sparse routes, thinning for dense traces, and profile-aware altitude
// interpolation within a segment.
package sampler

import (
	"math"

	"github.com/navprofile/navprofile/internal/airspace"
	"github.com/navprofile/navprofile/internal/geo"
)

// DefaultSegmentDistanceKm is the default maximum spacing between
// consecutive interpolated samples on a sparse route.
const DefaultSegmentDistanceKm = 5.0

// traceThinTarget is the approximate point count a dense trace is thinned
// down to.
const traceThinTarget = 1000

// stepClimbThresholdFt is the |Δalt| above which a segment is treated as a
// step climb/descent instead of linear interpolation.
const stepClimbThresholdFt = 800.0

// stepClimbFraction is the fraction of segment distance over which a step
// climb/descent completes, per spec §4.6.1.
const stepClimbFraction = 0.3

// Sample produces a sequence of SamplePoints at approximately uniform
// cumulative distance, thinning dense traces and interpolating sparse
// routes. The final waypoint is always included.
func Sample(route *airspace.FlightRoute, segmentDistanceKm float64) []airspace.SamplePoint {
	wps := route.Waypoints
	if len(wps) == 0 {
		return nil
	}
	if len(wps) == 1 {
		w := wps[0]
		return []airspace.SamplePoint{{Lon: w.Lon, Lat: w.Lat, AltitudeFt: w.AltitudeFt}}
	}
	if route.IsTrace {
		return thinTrace(wps)
	}
	if segmentDistanceKm <= 0 {
		segmentDistanceKm = DefaultSegmentDistanceKm
	}
	return interpolateRoute(wps, segmentDistanceKm)
}

func toPoint(w airspace.Waypoint) geo.Point { return geo.Point{Lon: w.Lon, Lat: w.Lat} }

func interpolateRoute(wps []airspace.Waypoint, segDistKm float64) []airspace.SamplePoint {
	out := []airspace.SamplePoint{{Lon: wps[0].Lon, Lat: wps[0].Lat, AltitudeFt: wps[0].AltitudeFt}}
	cum := 0.0
	idx := 0

	for i := 0; i < len(wps)-1; i++ {
		a, b := wps[i], wps[i+1]
		segLen := geo.HaversineKm(toPoint(a), toPoint(b))

		interior := int(math.Floor(segLen/segDistKm)) - 1
		for k := 1; k <= interior; k++ {
			t := float64(k) * segDistKm / segLen
			pos := geo.InterpolatePosition(toPoint(a), toPoint(b), t)
			alt := interpolateAltitude(a.AltitudeFt, b.AltitudeFt, t)
			idx++
			out = append(out, airspace.SamplePoint{
				Lon: pos.Lon, Lat: pos.Lat, AltitudeFt: alt,
				CumulativeDistanceKm: cum + t*segLen, SegmentIndex: idx,
			})
		}

		cum += segLen
		idx++
		out = append(out, airspace.SamplePoint{
			Lon: b.Lon, Lat: b.Lat, AltitudeFt: b.AltitudeFt,
			CumulativeDistanceKm: cum, SegmentIndex: idx,
		})
	}
	return out
}

// interpolateAltitude implements the profile-aware classification from
// spec §4.6.1: segments with |Δalt| up to 800 ft interpolate linearly;
// larger deltas climb/descend over the first stepClimbFraction of the
// segment and hold the target altitude for the rest.
func interpolateAltitude(alt1, alt2, t float64) float64 {
	delta := alt2 - alt1
	if math.Abs(delta) <= stepClimbThresholdFt {
		return geo.Lerp(alt1, alt2, t)
	}
	if t <= stepClimbFraction {
		return geo.Lerp(alt1, alt2, t/stepClimbFraction)
	}
	return alt2
}

func thinTrace(wps []airspace.Waypoint) []airspace.SamplePoint {
	n := len(wps)
	step := int(math.Ceil(float64(n) / float64(traceThinTarget)))
	if step < 1 {
		step = 1
	}

	cum := make([]float64, n)
	for i := 1; i < n; i++ {
		cum[i] = cum[i-1] + geo.HaversineKm(toPoint(wps[i-1]), toPoint(wps[i]))
	}

	var out []airspace.SamplePoint
	idx := 0
	lastKept := -1
	for i := 0; i < n; i += step {
		out = append(out, sampleAt(wps, cum, i, idx))
		lastKept = i
		idx++
	}
	if lastKept != n-1 {
		out = append(out, sampleAt(wps, cum, n-1, idx))
	}
	return out
}

func sampleAt(wps []airspace.Waypoint, cum []float64, i, idx int) airspace.SamplePoint {
	w := wps[i]
	return airspace.SamplePoint{
		Lon: w.Lon, Lat: w.Lat, AltitudeFt: w.AltitudeFt,
		CumulativeDistanceKm: cum[i], SegmentIndex: idx,
	}
}
