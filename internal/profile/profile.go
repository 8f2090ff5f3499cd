// Package profile implements the altitude-profile corrector (spec §4.9):
// branch analysis, climb/descent feasibility, and synthetic transition
// waypoint insertion, following the "final descent anchored to the end
// of the last branch" design.
package profile

import (
	"fmt"
	"math"

	"github.com/navprofile/navprofile/internal/airspace"
	"github.com/navprofile/navprofile/internal/geo"
	"github.com/navprofile/navprofile/internal/units"
)

// levelToleranceFt is the |ΔH| below which a branch is classified LEVEL
// rather than CLIMB/DESCENT.
const levelToleranceFt = 50.0

// Config holds the performance assumptions the corrector uses to turn an
// altitude change into a required distance.
type Config struct {
	ClimbRateFpm   float64
	DescentRateFpm float64
	GroundSpeedKts float64
}

// DefaultConfig matches the documented defaults: 500 fpm climb and
// descent, 100 kt ground speed.
func DefaultConfig() Config {
	return Config{ClimbRateFpm: 500, DescentRateFpm: 500, GroundSpeedKts: 100}
}

// branchKind classifies a branch by its altitude change.
type branchKind int

const (
	branchLevel branchKind = iota
	branchClimb
	branchDescent
)

func classifyBranch(deltaFt float64) branchKind {
	switch {
	case math.Abs(deltaFt) < levelToleranceFt:
		return branchLevel
	case deltaFt > 0:
		return branchClimb
	default:
		return branchDescent
	}
}

// Warning records a branch where the target altitude cannot be reached
// within the branch's distance at the configured rate, per spec's
// AltitudeUnreachable error kind — attached to the result, not returned
// as an error.
type Warning struct {
	BranchIndex         int
	FromWaypoint        string
	ToWaypoint          string
	RequiredDistanceNm  float64
	AvailableDistanceNm float64
	AchievedAltitudeFt  float64
}

func (w Warning) String() string {
	return fmt.Sprintf("branch %d (%s -> %s): requires %.1f NM, only %.1f NM available, reaches %.0f ft",
		w.BranchIndex, w.FromWaypoint, w.ToWaypoint, w.RequiredDistanceNm, w.AvailableDistanceNm, w.AchievedAltitudeFt)
}

// Correct applies the flight-plan axioms (departure/destination altitude
// set from field elevation + 1000 ft, all other waypoints treated as
// target cruise altitudes) and inserts synthetic Climb_*/Descent_*
// transition waypoints wherever a branch requires a graduated climb or
// descent. overrides, keyed by waypoint name, lets a caller pin an
// intermediate waypoint to a cruise altitude other than its input value.
func Correct(route *airspace.FlightRoute, departureElevationFt, destinationElevationFt float64, cfg Config, overrides map[string]float64) ([]airspace.Waypoint, []Warning) {
	wps := route.Waypoints
	if len(wps) == 0 {
		return nil, nil
	}
	if len(wps) == 1 {
		w := wps[0]
		w.AltitudeFt = departureElevationFt + 1000
		return []airspace.Waypoint{w}, nil
	}

	target := make([]float64, len(wps))
	target[0] = departureElevationFt + 1000
	target[len(wps)-1] = destinationElevationFt + 1000
	for i := 1; i < len(wps)-1; i++ {
		if alt, ok := overrides[wps[i].Name]; ok {
			target[i] = alt
		} else {
			target[i] = wps[i].AltitudeFt
		}
	}

	out := []airspace.Waypoint{{Name: wps[0].Name, Lon: wps[0].Lon, Lat: wps[0].Lat, AltitudeFt: target[0]}}
	var warnings []Warning

	for i := 0; i < len(wps)-1; i++ {
		a, b := wps[i], wps[i+1]
		pa, pb := geo.Point{Lon: a.Lon, Lat: a.Lat}, geo.Point{Lon: b.Lon, Lat: b.Lat}
		branchDistNm := units.KmToNM(geo.HaversineKm(pa, pb))
		delta := target[i+1] - target[i]
		isFinal := i == len(wps)-2

		var rateFpm float64
		var prefix string
		switch classifyBranch(delta) {
		case branchClimb:
			rateFpm, prefix = cfg.ClimbRateFpm, "Climb"
		case branchDescent:
			rateFpm, prefix = cfg.DescentRateFpm, "Descent"
		}

		if prefix != "" {
			reqNm := requiredDistanceNm(delta, rateFpm, cfg.GroundSpeedKts)
			if reqNm >= branchDistNm {
				achieved := target[i] + math.Copysign(achievableDeltaFt(branchDistNm, rateFpm, cfg.GroundSpeedKts), delta)
				warnings = append(warnings, Warning{i, a.Name, b.Name, reqNm, branchDistNm, achieved})
			} else {
				out = append(out, transition(pa, pb, reqNm, branchDistNm, isFinal, target[i], target[i+1], prefix, b.Name, a.Name))
			}
		}

		out = append(out, airspace.Waypoint{Name: b.Name, Lon: b.Lon, Lat: b.Lat, AltitudeFt: target[i+1]})
	}

	return out, warnings
}

func requiredDistanceNm(deltaFt, rateFpm, groundSpeedKts float64) float64 {
	timeMin := math.Abs(deltaFt) / rateFpm
	return (groundSpeedKts / 60) * timeMin
}

// achievableDeltaFt returns the altitude change actually achievable over
// an unreachable branch's full distance, at rateFpm and groundSpeedKts —
// the "achievable altitude at end of branch" spec.md §8 scenario 6 names.
func achievableDeltaFt(branchDistNm, rateFpm, groundSpeedKts float64) float64 {
	timeAvailableMin := branchDistNm / (groundSpeedKts / 60)
	return rateFpm * timeAvailableMin
}

// transition computes the synthetic waypoint for one reachable CLIMB or
// DESCENT branch. For the final branch the split is anchored to the
// required distance from the branch's end (level flight continues, then
// the transition runs to exactly meet the destination altitude); every
// other branch anchors the split to the required distance from its
// start (the transition completes early, then the flight holds the
// target altitude).
func transition(pa, pb geo.Point, reqNm, branchDistNm float64, isFinal bool, currentAlt, targetAlt float64, prefix, nextName, prevName string) airspace.Waypoint {
	refName := nextName
	if prefix == "Descent" {
		refName = prevName
	}
	name := fmt.Sprintf("%s_%s_%d", prefix, refName, int(math.Round(targetAlt)))

	if isFinal {
		pos := geo.InterpolatePosition(pa, pb, 1-reqNm/branchDistNm)
		return airspace.Waypoint{Name: name, Lon: pos.Lon, Lat: pos.Lat, AltitudeFt: currentAlt}
	}

	pos := geo.InterpolatePosition(pa, pb, reqNm/branchDistNm)
	return airspace.Waypoint{Name: name, Lon: pos.Lon, Lat: pos.Lat, AltitudeFt: targetAlt}
}
