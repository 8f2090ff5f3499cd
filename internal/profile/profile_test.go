package profile

import (
	"math"
	"testing"

	"github.com/navprofile/navprofile/internal/airspace"
)

func TestClassifyBranch(t *testing.T) {
	cases := []struct {
		delta float64
		want  branchKind
	}{
		{0, branchLevel},
		{49, branchLevel},
		{-49, branchLevel},
		{500, branchClimb},
		{-500, branchDescent},
	}
	for _, c := range cases {
		if got := classifyBranch(c.delta); got != c.want {
			t.Errorf("classifyBranch(%v) = %v, want %v", c.delta, got, c.want)
		}
	}
}

// TestCorrectReachableClimb reproduces a reachable first-branch climb:
// departure field elevation 500ft, first waypoint cruise 9000ft, a branch
// long enough at 500fpm/100kt to complete the climb partway through.
func TestCorrectReachableClimb(t *testing.T) {
	route := &airspace.FlightRoute{Waypoints: []airspace.Waypoint{
		{Name: "DEP", Lon: 0, Lat: 0, AltitudeFt: 0},
		{Name: "WPT1", Lon: 1.0, Lat: 0, AltitudeFt: 9000},
		{Name: "ARR", Lon: 2.0, Lat: 0, AltitudeFt: 0},
	}}

	corrected, warnings := Correct(route, 500, 300, DefaultConfig(), nil)
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}

	if corrected[0].Name != "DEP" || corrected[0].AltitudeFt != 1500 {
		t.Errorf("first waypoint = %+v, want DEP at 1500ft (500+1000)", corrected[0])
	}

	var synthetic *airspace.Waypoint
	for i := range corrected {
		if corrected[i].Name == "Climb_WPT1_9000" {
			synthetic = &corrected[i]
		}
	}
	if synthetic == nil {
		t.Fatalf("expected a Climb_WPT1_9000 synthetic waypoint, got %+v", corrected)
	}
	// ΔH = 9000-1500 = 7500ft @ 500fpm = 15min; @100kt groundspeed = 25NM
	// required. First branch is ~111km (~60NM), so the climb completes
	// partway through: synthetic altitude is already the target.
	if synthetic.AltitudeFt != 9000 {
		t.Errorf("synthetic climb waypoint altitude = %v, want 9000 (target reached)", synthetic.AltitudeFt)
	}
	if synthetic.Lon <= 0 || synthetic.Lon >= 1.0 {
		t.Errorf("synthetic climb waypoint lon = %v, want strictly between DEP and WPT1", synthetic.Lon)
	}
}

// TestCorrectUnreachableBranch reproduces a branch too short to complete
// the required altitude change: a huge altitude delta over a tiny
// distance must produce a warning and no synthetic waypoint.
func TestCorrectUnreachableBranch(t *testing.T) {
	route := &airspace.FlightRoute{Waypoints: []airspace.Waypoint{
		{Name: "A", Lon: 0, Lat: 0, AltitudeFt: 0},
		{Name: "B", Lon: 0.01, Lat: 0, AltitudeFt: 15000},
		{Name: "C", Lon: 0.02, Lat: 0, AltitudeFt: 0},
	}}

	corrected, warnings := Correct(route, 0, 0, DefaultConfig(), nil)
	if len(warnings) == 0 {
		t.Fatal("expected at least one unreachable-branch warning")
	}
	for _, w := range corrected {
		if w.Name == "Climb_B_15000" {
			t.Errorf("unreachable branch should not emit a synthetic waypoint, got %+v", corrected)
		}
	}
}

// TestCorrectFinalDescentAnchoredAtEnd checks that the final branch's
// descent point is placed near the branch's end (close to destination),
// not near its start, and that it holds the pre-descent cruise altitude.
func TestCorrectFinalDescentAnchoredAtEnd(t *testing.T) {
	route := &airspace.FlightRoute{Waypoints: []airspace.Waypoint{
		{Name: "DEP", Lon: 0, Lat: 0, AltitudeFt: 0},
		{Name: "CRZ", Lon: 1.0, Lat: 0, AltitudeFt: 9000},
		{Name: "ARR", Lon: 2.0, Lat: 0, AltitudeFt: 0},
	}}

	corrected, warnings := Correct(route, 500, 300, DefaultConfig(), nil)
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}

	var synthetic *airspace.Waypoint
	for i := range corrected {
		if corrected[i].Name == "Descent_CRZ_1300" {
			synthetic = &corrected[i]
		}
	}
	if synthetic == nil {
		t.Fatalf("expected a Descent_CRZ_1300 synthetic waypoint, got %+v", corrected)
	}
	if synthetic.AltitudeFt != 9000 {
		t.Errorf("descent point should hold cruise altitude until descent begins, got %v", synthetic.AltitudeFt)
	}
	if synthetic.Lon <= 1.5 {
		t.Errorf("final descent should be anchored near the branch end (lon close to 2.0), got lon=%v", synthetic.Lon)
	}
}

func TestCorrectOverridesForceCruiseAltitude(t *testing.T) {
	route := &airspace.FlightRoute{Waypoints: []airspace.Waypoint{
		{Name: "DEP", Lon: 0, Lat: 0, AltitudeFt: 0},
		{Name: "WPT1", Lon: 1.0, Lat: 0, AltitudeFt: 9000},
		{Name: "ARR", Lon: 2.0, Lat: 0, AltitudeFt: 0},
	}}

	corrected, _ := Correct(route, 0, 0, DefaultConfig(), map[string]float64{"WPT1": 5000})

	for _, w := range corrected {
		if w.Name == "WPT1" && w.AltitudeFt != 5000 {
			t.Errorf("WPT1 altitude = %v, want overridden 5000", w.AltitudeFt)
		}
	}
}

func TestCorrectSingleWaypointRoute(t *testing.T) {
	route := &airspace.FlightRoute{Waypoints: []airspace.Waypoint{{Name: "ONLY", Lon: 0, Lat: 0, AltitudeFt: 5000}}}
	corrected, warnings := Correct(route, 500, 500, DefaultConfig(), nil)
	if len(warnings) != 0 {
		t.Errorf("single-waypoint route should not warn, got %v", warnings)
	}
	if len(corrected) != 1 || corrected[0].AltitudeFt != 1500 {
		t.Errorf("single-waypoint route = %+v, want altitude 1500 (departure elevation + 1000)", corrected)
	}
}

// TestCorrectUnreachableReportsAchievedAltitude reproduces spec.md §8
// scenario 6: departure 300ft field, waypoint 2 at 3,000ft cruise, 3NM
// branch distance, 500fpm climb, 100kt ground speed -> unreachable, with
// achievable altitude at branch end = 1,300 + 900 = 2,200ft.
func TestCorrectUnreachableReportsAchievedAltitude(t *testing.T) {
	const nmToDeg = 1.0 / 60.0 // 1 degree of longitude at the equator ~= 60NM
	route := &airspace.FlightRoute{Waypoints: []airspace.Waypoint{
		{Name: "DEP", Lon: 0, Lat: 0, AltitudeFt: 0},
		{Name: "WPT2", Lon: 3 * nmToDeg, Lat: 0, AltitudeFt: 3000},
		{Name: "ARR", Lon: 4 * nmToDeg, Lat: 0, AltitudeFt: 0},
	}}

	cfg := Config{ClimbRateFpm: 500, DescentRateFpm: 500, GroundSpeedKts: 100}
	_, warnings := Correct(route, 300, 300, cfg, nil)

	if len(warnings) == 0 {
		t.Fatal("expected an unreachable-branch warning")
	}
	w := warnings[0]
	if math.Abs(w.AchievedAltitudeFt-2200) > 50 {
		t.Errorf("AchievedAltitudeFt = %v, want ~2200ft", w.AchievedAltitudeFt)
	}
}

func TestRequiredDistanceNm(t *testing.T) {
	got := requiredDistanceNm(500, 500, 120)
	want := 2.0 // 1 min climb @ 120kt = 2NM
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("requiredDistanceNm = %v, want %v", got, want)
	}
}
