// Package bus publishes and subscribes to live route-analysis requests
// over NATS, on the navprofile.routes.submit subject.
package bus

import (
	"encoding/json"
	"log"

	"github.com/nats-io/nats.go"

	"github.com/navprofile/navprofile/internal/airspace"
)

// SubmitSubject is the NATS subject live route-analysis requests are
// published and subscribed on.
const SubmitSubject = "navprofile.routes.submit"

// RouteMessage is the wire representation of a flight route submitted
// for analysis.
type RouteMessage struct {
	Waypoints []WaypointMessage `json:"waypoints"`
	IsTrace   bool              `json:"is_trace"`
}

// WaypointMessage is the wire representation of one waypoint.
type WaypointMessage struct {
	Name       string  `json:"name,omitempty"`
	Lon        float64 `json:"lon"`
	Lat        float64 `json:"lat"`
	AltitudeFt float64 `json:"altitude_ft"`
}

// CrossingMessage is the wire representation of one crossing in an
// analysis reply.
type CrossingMessage struct {
	AirspaceID           int64   `json:"airspace_id"`
	CodeID               string  `json:"code_id"`
	Name                 string  `json:"name"`
	CodeType             string  `json:"code_type"`
	CumulativeDistanceKm float64 `json:"cumulative_distance_km"`
	IsActual             bool    `json:"is_actual"`
}

func toRoute(m RouteMessage) *airspace.FlightRoute {
	route := &airspace.FlightRoute{IsTrace: m.IsTrace, Waypoints: make([]airspace.Waypoint, len(m.Waypoints))}
	for i, w := range m.Waypoints {
		route.Waypoints[i] = airspace.Waypoint{Name: w.Name, Lon: w.Lon, Lat: w.Lat, AltitudeFt: w.AltitudeFt}
	}
	return route
}

func toCrossingMessages(crossings []airspace.Crossing) []CrossingMessage {
	out := make([]CrossingMessage, len(crossings))
	for i, c := range crossings {
		out[i] = CrossingMessage{
			AirspaceID: c.AirspaceID, CodeID: c.CodeID, Name: c.Name, CodeType: c.CodeType,
			CumulativeDistanceKm: c.CumulativeDistanceKm, IsActual: c.IsActual,
		}
	}
	return out
}

// Bus wraps a NATS connection, publishing submitted routes and serving
// analysis requests.
type Bus struct {
	conn *nats.Conn
}

// Connect dials the NATS server at url.
func Connect(url string) (*Bus, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, err
	}
	return &Bus{conn: conn}, nil
}

// Close closes the underlying NATS connection without draining it.
func (b *Bus) Close() {
	b.conn.Close()
}

// PublishRoute publishes route on SubmitSubject, fire-and-forget.
func (b *Bus) PublishRoute(route RouteMessage) error {
	data, err := json.Marshal(route)
	if err != nil {
		return err
	}
	return b.conn.Publish(SubmitSubject, data)
}

// AnalyzeFunc analyzes a decoded route, returning its crossings.
type AnalyzeFunc func(route *airspace.FlightRoute) []airspace.Crossing

// Subscribe subscribes to SubmitSubject, invoking analyze for every
// received route. If the message carries a reply subject, the crossing
// list is published back to it; otherwise the result is only logged.
func (b *Bus) Subscribe(analyze AnalyzeFunc) (*nats.Subscription, error) {
	return b.conn.Subscribe(SubmitSubject, func(msg *nats.Msg) {
		var rm RouteMessage
		if err := json.Unmarshal(msg.Data, &rm); err != nil {
			log.Printf("bus: malformed route message: %v", err)
			return
		}

		crossings := analyze(toRoute(rm))

		if msg.Reply == "" {
			log.Printf("bus: analyzed route (%d waypoints) -> %d crossings", len(rm.Waypoints), len(crossings))
			return
		}

		reply, err := json.Marshal(toCrossingMessages(crossings))
		if err != nil {
			log.Printf("bus: failed to marshal reply: %v", err)
			return
		}
		if err := msg.Respond(reply); err != nil {
			log.Printf("bus: failed to respond: %v", err)
		}
	})
}
