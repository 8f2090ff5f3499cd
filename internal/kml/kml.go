// Package kml parses flight-path KML documents into a FlightRoute: the
// first LineString/coordinates for position, and named Placemarks for
// waypoint names (spec §6).
package kml

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/navprofile/navprofile/internal/airspace"
	"github.com/navprofile/navprofile/internal/geo"
	"github.com/navprofile/navprofile/internal/units"
)

// traceThreshold is the point count above which a path is a dense trace
// rather than a sparse route, per spec §3/§4.6.
const traceThreshold = 50

// namedWaypointToleranceKm is how close a named Placemark's own Point must
// be to a LineString sample to claim its name.
const namedWaypointToleranceKm = 0.05

type root struct {
	Document document `xml:"Document"`
}

type document struct {
	Placemarks []placemark `xml:"Placemark"`
	Folders    []folder    `xml:"Folder"`
}

type folder struct {
	Placemarks []placemark `xml:"Placemark"`
}

type placemark struct {
	Name       string      `xml:"name"`
	Point      *point      `xml:"Point"`
	LineString *lineString `xml:"LineString"`
}

type point struct {
	Coordinates string `xml:"coordinates"`
}

type lineString struct {
	Coordinates string `xml:"coordinates"`
}

// Parse reads a KML document and produces a FlightRoute.
func Parse(r io.Reader) (*airspace.FlightRoute, error) {
	var doc root
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, airspace.NewError(airspace.MalformedSource, "decode kml", err)
	}

	placemarks := allPlacemarks(doc.Document)

	var lineCoords string
	var found bool
	for _, p := range placemarks {
		if p.LineString != nil && !found {
			lineCoords = p.LineString.Coordinates
			found = true
		}
	}
	if !found {
		return nil, airspace.NewError(airspace.MalformedSource, "no LineString/coordinates found in kml", nil)
	}

	positions, err := parseCoordinateTriples(lineCoords)
	if err != nil {
		return nil, airspace.NewError(airspace.MalformedSource, "parse LineString coordinates", err)
	}

	type named struct {
		name string
		lon  float64
		lat  float64
	}
	var namedWaypoints []named
	for _, p := range placemarks {
		if p.Point == nil || p.Name == "" || p.Name == "Navigation" {
			continue
		}
		lon, lat, _, err := parseOneCoordinate(p.Point.Coordinates)
		if err != nil {
			continue
		}
		namedWaypoints = append(namedWaypoints, named{name: p.Name, lon: lon, lat: lat})
	}

	waypoints := make([]airspace.Waypoint, len(positions))
	for i, pos := range positions {
		waypoints[i] = airspace.Waypoint{Lon: pos.lon, Lat: pos.lat, AltitudeFt: pos.altFt}
	}

	for _, nw := range namedWaypoints {
		best := -1
		bestDist := namedWaypointToleranceKm
		for i, pos := range positions {
			d := geo.HaversineKm(geo.Point{Lon: nw.lon, Lat: nw.lat}, geo.Point{Lon: pos.lon, Lat: pos.lat})
			if d <= bestDist {
				bestDist = d
				best = i
			}
		}
		if best >= 0 {
			waypoints[best].Name = nw.name
		}
	}

	return &airspace.FlightRoute{
		Waypoints: waypoints,
		IsTrace:   len(positions) > traceThreshold,
	}, nil
}

func allPlacemarks(doc document) []placemark {
	out := append([]placemark{}, doc.Placemarks...)
	for _, f := range doc.Folders {
		out = append(out, f.Placemarks...)
	}
	return out
}

type position struct {
	lon, lat, altFt float64
}

// parseCoordinateTriples parses whitespace- or comma-separated
// lon,lat,alt_meters triples, converting altitude to feet.
func parseCoordinateTriples(s string) ([]position, error) {
	fields := strings.Fields(s)
	positions := make([]position, 0, len(fields))
	for _, f := range fields {
		lon, lat, altM, err := parseOneCoordinate(f)
		if err != nil {
			return nil, err
		}
		positions = append(positions, position{lon: lon, lat: lat, altFt: units.MetersToFeet(altM)})
	}
	if len(positions) == 0 {
		return nil, fmt.Errorf("no coordinate triples found")
	}
	return positions, nil
}

func parseOneCoordinate(s string) (lon, lat, altM float64, err error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) < 2 {
		return 0, 0, 0, fmt.Errorf("coordinate %q: expected at least lon,lat", s)
	}
	lon, err = strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("coordinate %q: longitude: %w", s, err)
	}
	lat, err = strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("coordinate %q: latitude: %w", s, err)
	}
	if len(parts) >= 3 {
		altM, err = strconv.ParseFloat(parts[2], 64)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("coordinate %q: altitude: %w", s, err)
		}
	}
	return lon, lat, altM, nil
}
