// Package api provides the HTTP query/analysis service: airspace search,
// point queries against the Query Engine, crossing analysis, and
// altitude-profile correction.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/navprofile/navprofile/internal/airspace"
	"github.com/navprofile/navprofile/internal/analyzer"
	"github.com/navprofile/navprofile/internal/profile"
	"github.com/navprofile/navprofile/internal/query"
	"github.com/navprofile/navprofile/internal/store"
)

// Server provides REST API access to the Store, Query Engine, Crossing
// Analyzer and Profile Corrector.
type Server struct {
	engine      *query.Engine
	store       store.Store
	port        int
	authEnabled bool
	apiKeys     map[string]bool // Simple API key auth (when enabled).
}

// Config holds configuration for the API server.
type Config struct {
	Port        int
	AuthEnabled bool
	APIKeys     []string // List of valid API keys.
}

// NewServer creates a new API server over engine and st.
func NewServer(engine *query.Engine, st store.Store, cfg Config) *Server {
	keys := make(map[string]bool)
	for _, k := range cfg.APIKeys {
		if k != "" {
			keys[k] = true
		}
	}

	return &Server{
		engine:      engine,
		store:       st,
		port:        cfg.Port,
		authEnabled: cfg.AuthEnabled,
		apiKeys:     keys,
	}
}

// Router returns the configured chi router, ready to serve or embed.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(corsMiddleware)

	if s.authEnabled {
		r.Use(s.authMiddleware)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/airspaces/search", s.handleSearch)
		r.Get("/query", s.handleQuery)
		r.Post("/analyze", s.handleAnalyze)
		r.Post("/correct-profile", s.handleCorrectProfile)
	})

	return r
}

// Run starts the HTTP server.
func (s *Server) Run() error {
	addr := ":" + strconv.Itoa(s.port)
	return http.ListenAndServe(addr, s.Router())
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-API-Key")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey := r.Header.Get("X-API-Key")
		if apiKey == "" {
			auth := r.Header.Get("Authorization")
			if strings.HasPrefix(auth, "Bearer ") {
				apiKey = strings.TrimPrefix(auth, "Bearer ")
			}
		}
		if apiKey == "" {
			apiKey = r.URL.Query().Get("api_key")
		}

		if apiKey == "" {
			writeError(w, http.StatusUnauthorized, "API key required")
			return
		}
		if !s.apiKeys[apiKey] {
			writeError(w, http.StatusForbidden, "Invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// AirspaceResponse is the JSON representation of one airspace.
type AirspaceResponse struct {
	ID         int64   `json:"id"`
	CodeID     string  `json:"code_id"`
	Name       string  `json:"name"`
	CodeType   string  `json:"code_type"`
	Class      string  `json:"class,omitempty"`
	LowerFeet  float64 `json:"lower_ft"`
	UpperFeet  float64 `json:"upper_ft"`
	IsCritical bool    `json:"is_critical"`
}

func airspaceToResponse(a *airspace.Airspace) AirspaceResponse {
	return AirspaceResponse{
		ID: a.ID, CodeID: a.CodeID, Name: a.Name, CodeType: a.CodeType, Class: a.Class,
		LowerFeet: a.Vertical.LowerFeet(), UpperFeet: a.Vertical.UpperFeet(),
		IsCritical: a.IsCritical(),
	}
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := r.URL.Query().Get("name")
	codeType := r.URL.Query().Get("type")

	if name == "" && codeType == "" {
		writeError(w, http.StatusBadRequest, "name or type query parameter is required")
		return
	}

	var results []airspace.Airspace
	var err error
	if name != "" {
		results, err = s.store.SearchByName(ctx, name)
	} else {
		results, err = s.store.SearchByType(ctx, codeType)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := make([]AirspaceResponse, len(results))
	for i := range results {
		resp[i] = airspaceToResponse(&results[i])
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lon, errLon := strconv.ParseFloat(q.Get("lon"), 64)
	lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
	altFt, errAlt := strconv.ParseFloat(q.Get("alt_ft"), 64)
	if errLon != nil || errLat != nil || errAlt != nil {
		writeError(w, http.StatusBadRequest, "lon, lat and alt_ft query parameters are required and must be numeric")
		return
	}

	results := s.engine.Query(lon, lat, altFt)
	resp := make([]AirspaceResponse, len(results))
	for i := range results {
		resp[i] = airspaceToResponse(&results[i])
	}
	writeJSON(w, http.StatusOK, resp)
}

// WaypointJSON is the wire representation of a Waypoint.
type WaypointJSON struct {
	Name       string  `json:"name,omitempty"`
	Lon        float64 `json:"lon"`
	Lat        float64 `json:"lat"`
	AltitudeFt float64 `json:"altitude_ft"`
}

// AnalyzeRequest is the body of POST /api/v1/analyze.
type AnalyzeRequest struct {
	Waypoints        []WaypointJSON `json:"waypoints"`
	IsTrace          bool           `json:"is_trace"`
	CorridorHeightFt float64        `json:"corridor_height_ft,omitempty"`
	CorridorWidthKm  float64        `json:"corridor_width_km,omitempty"`
	SampleDistanceKm float64        `json:"sample_distance_km,omitempty"`
}

// CrossingJSON is the wire representation of one Crossing.
type CrossingJSON struct {
	AirspaceID           int64   `json:"airspace_id"`
	CodeID               string  `json:"code_id"`
	Name                 string  `json:"name"`
	CodeType             string  `json:"code_type"`
	Class                string  `json:"class,omitempty"`
	LowerFeet            float64 `json:"lower_ft"`
	UpperFeet            float64 `json:"upper_ft"`
	CumulativeDistanceKm float64 `json:"cumulative_distance_km"`
	IsActual             bool    `json:"is_actual"`
}

func crossingToJSON(c airspace.Crossing) CrossingJSON {
	return CrossingJSON{
		AirspaceID: c.AirspaceID, CodeID: c.CodeID, Name: c.Name, CodeType: c.CodeType, Class: c.Class,
		LowerFeet: c.LowerFeet, UpperFeet: c.UpperFeet,
		CumulativeDistanceKm: c.CumulativeDistanceKm, IsActual: c.IsActual,
	}
}

func requestToRoute(wps []WaypointJSON, isTrace bool) *airspace.FlightRoute {
	route := &airspace.FlightRoute{IsTrace: isTrace, Waypoints: make([]airspace.Waypoint, len(wps))}
	for i, w := range wps {
		route.Waypoints[i] = airspace.Waypoint{Name: w.Name, Lon: w.Lon, Lat: w.Lat, AltitudeFt: w.AltitudeFt}
	}
	return route
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if len(req.Waypoints) == 0 {
		writeError(w, http.StatusBadRequest, "waypoints is required")
		return
	}

	cfg := analyzer.DefaultConfig()
	if req.CorridorHeightFt > 0 {
		cfg.CorridorHeightFt = req.CorridorHeightFt
	}
	if req.CorridorWidthKm > 0 {
		cfg.CorridorWidthKm = req.CorridorWidthKm
	}
	if req.SampleDistanceKm > 0 {
		cfg.SampleDistanceKm = req.SampleDistanceKm
	}

	route := requestToRoute(req.Waypoints, req.IsTrace)
	crossings := analyzer.Analyze(s.engine, route, cfg)

	resp := make([]CrossingJSON, len(crossings))
	for i, c := range crossings {
		resp[i] = crossingToJSON(c)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"crossings": resp})
}

// CorrectProfileRequest is the body of POST /api/v1/correct-profile.
type CorrectProfileRequest struct {
	Waypoints              []WaypointJSON     `json:"waypoints"`
	DepartureElevationFt   float64            `json:"departure_elevation_ft"`
	DestinationElevationFt float64            `json:"destination_elevation_ft"`
	ClimbRateFpm           float64            `json:"climb_rate_fpm,omitempty"`
	DescentRateFpm         float64            `json:"descent_rate_fpm,omitempty"`
	GroundSpeedKts         float64            `json:"ground_speed_kts,omitempty"`
	CruiseOverrides        map[string]float64 `json:"cruise_overrides,omitempty"`
}

func (s *Server) handleCorrectProfile(w http.ResponseWriter, r *http.Request) {
	var req CorrectProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if len(req.Waypoints) == 0 {
		writeError(w, http.StatusBadRequest, "waypoints is required")
		return
	}

	cfg := profile.DefaultConfig()
	if req.ClimbRateFpm > 0 {
		cfg.ClimbRateFpm = req.ClimbRateFpm
	}
	if req.DescentRateFpm > 0 {
		cfg.DescentRateFpm = req.DescentRateFpm
	}
	if req.GroundSpeedKts > 0 {
		cfg.GroundSpeedKts = req.GroundSpeedKts
	}

	route := requestToRoute(req.Waypoints, false)
	corrected, warnings := profile.Correct(route, req.DepartureElevationFt, req.DestinationElevationFt, cfg, req.CruiseOverrides)

	wps := make([]WaypointJSON, len(corrected))
	for i, wp := range corrected {
		wps[i] = WaypointJSON{Name: wp.Name, Lon: wp.Lon, Lat: wp.Lat, AltitudeFt: wp.AltitudeFt}
	}
	warningStrings := make([]string, len(warnings))
	for i, wn := range warnings {
		warningStrings[i] = wn.String()
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"waypoints": wps, "warnings": warningStrings})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
