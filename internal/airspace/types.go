// Package airspace defines the core domain model: Airspace, Border, Vertex,
// VerticalLimits, Waypoint, FlightRoute, SamplePoint and Crossing.
package airspace

import "github.com/navprofile/navprofile/internal/units"

// Airspace is a controlled volume of air, as imported from one <Ase>
// element. Immutable after import; a re-import replaces it wholesale.
type Airspace struct {
	ID       int64
	Mid      string // optional AIXM mid, may be empty
	CodeID   string // raw codeId, not globally unique
	Name     string
	CodeType string // e.g. TMA, CTR, R, P, D, RAS, SECTOR, FIR
	Class    string // A-G, or "" if unknown

	Vertical *VerticalLimits // nil if no vertical information was present
}

// VerticalLimits is the vertical band of an airspace, kept in its native
// unit and reference alongside the value, per the "native unit plus
// reference" design: downstream callers can display "FL65" while the
// query engine still computes in feet.
type VerticalLimits struct {
	LowerValue float64
	LowerRef   units.VerticalRef
	HasLower   bool // false => surface (0 ft)

	UpperValue float64
	UpperRef   units.VerticalRef
	HasUpper   bool // false => unlimited
}

// LowerFeet returns the lower bound converted to feet AMSL. Missing lower
// is surface, 0 ft.
func (v *VerticalLimits) LowerFeet() float64 {
	if v == nil || !v.HasLower {
		return 0
	}
	return units.ToFeet(v.LowerValue, v.LowerRef)
}

// UpperFeet returns the upper bound converted to feet AMSL. Missing upper
// is unlimited, +Inf.
func (v *VerticalLimits) UpperFeet() float64 {
	if v == nil || !v.HasUpper {
		return units.PositiveInfinityFt
	}
	return units.ToFeet(v.UpperValue, v.UpperRef)
}

// BorderKind distinguishes the two Border variants.
type BorderKind int

const (
	BorderPolygon BorderKind = iota
	BorderCircle
)

// Border is one closed boundary contributing to an airspace's lateral
// extent. An airspace's borders are treated as a union (logical OR), never
// an intersection.
type Border struct {
	ID         int64
	AirspaceID int64
	Kind       BorderKind

	// Populated when Kind == BorderPolygon; vertices are ordered, first != last.
	Vertices []Vertex

	// Populated when Kind == BorderCircle.
	CenterLon float64
	CenterLat float64
	RadiusKm  float64
}

// Vertex is a geographic point carrying the sequence number that defines
// ring order within a polygon Border.
type Vertex struct {
	BorderID       int64
	SequenceNumber int
	Lon            float64
	Lat            float64
}

// Waypoint is a named point with an altitude in feet AMSL.
type Waypoint struct {
	Name       string
	Lon        float64
	Lat        float64
	AltitudeFt float64
}

// FlightRoute is an ordered sequence of Waypoints, either a sparse "route"
// (interpolation needed) or a dense "trace" (>50 waypoints at the source).
type FlightRoute struct {
	Waypoints []Waypoint
	IsTrace   bool
}

// SamplePoint is one point produced by the path sampler along a route.
type SamplePoint struct {
	Lon                  float64
	Lat                  float64
	AltitudeFt           float64
	CumulativeDistanceKm float64
	SegmentIndex         int
}

// Crossing records that an airspace was entered (actual) or merely lies
// within the corridor (proximity) of a flight path.
type Crossing struct {
	AirspaceID           int64
	CodeID               string
	Name                 string
	CodeType             string
	Class                string
	LowerFeet            float64
	UpperFeet            float64
	FirstSampleIndex     int
	CumulativeDistanceKm float64
	IsActual             bool
}

// criticalTypes are code_type values that, combined with class A, mark an
// airspace critical for display purposes (spec §4.8).
var criticalTypes = map[string]bool{
	"R": true,
	"P": true,
}

// IsCritical reports whether the airspace should be flagged critical: its
// code_type is R or P, or its class is A.
func (a *Airspace) IsCritical() bool {
	return criticalTypes[a.CodeType] || a.Class == "A"
}
