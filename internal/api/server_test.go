package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/navprofile/navprofile/internal/airspace"
	"github.com/navprofile/navprofile/internal/query"
	"github.com/navprofile/navprofile/internal/units"
)

// testStore is a minimal in-memory Store sufficient for exercising the API
// handlers without a real backend.
type testStore struct {
	airspaces []airspace.Airspace
	borders   map[int64][]airspace.Border
}

func (s *testStore) Reset(ctx context.Context) error { return nil }
func (s *testStore) InsertAirspace(ctx context.Context, a *airspace.Airspace) (int64, error) {
	return 0, nil
}
func (s *testStore) InsertBorder(ctx context.Context, b *airspace.Border) (int64, error) {
	return 0, nil
}
func (s *testStore) InsertVertices(ctx context.Context, borderID int64, vs []airspace.Vertex) error {
	return nil
}
func (s *testStore) Flush(ctx context.Context) error { return nil }

func (s *testStore) ListAirspaceIDsWithGeometry(ctx context.Context) ([]int64, error) {
	ids := make([]int64, len(s.airspaces))
	for i, a := range s.airspaces {
		ids[i] = a.ID
	}
	return ids, nil
}

func (s *testStore) GetAirspace(ctx context.Context, id int64) (*airspace.Airspace, error) {
	for i := range s.airspaces {
		if s.airspaces[i].ID == id {
			return &s.airspaces[i], nil
		}
	}
	return nil, nil
}

func (s *testStore) GetBorders(ctx context.Context, airspaceID int64) ([]airspace.Border, error) {
	return s.borders[airspaceID], nil
}

func (s *testStore) GetVertices(ctx context.Context, borderID int64) ([]airspace.Vertex, error) {
	return nil, nil
}

func (s *testStore) SearchByName(ctx context.Context, pattern string) ([]airspace.Airspace, error) {
	var out []airspace.Airspace
	for _, a := range s.airspaces {
		if a.Name == pattern {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *testStore) SearchByType(ctx context.Context, codeType string) ([]airspace.Airspace, error) {
	var out []airspace.Airspace
	for _, a := range s.airspaces {
		if a.CodeType == codeType {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *testStore) Close() error { return nil }

func buildTestServer(t *testing.T) *Server {
	t.Helper()
	st := &testStore{
		airspaces: []airspace.Airspace{
			{
				ID: 1, CodeID: "EGTT_CTR", Name: "LONDON CTR", CodeType: "CTR", Class: "D",
				Vertical: &airspace.VerticalLimits{HasLower: false, HasUpper: true, UpperValue: 2500, UpperRef: units.RefFT},
			},
		},
		borders: map[int64][]airspace.Border{
			1: {{ID: 1, AirspaceID: 1, Kind: airspace.BorderCircle, CenterLon: 0, CenterLat: 0, RadiusKm: 50}},
		},
	}
	engine, err := query.Build(context.Background(), st)
	if err != nil {
		t.Fatalf("query.Build: %v", err)
	}
	return NewServer(engine, st, Config{Port: 0})
}

func TestHandleHealth(t *testing.T) {
	s := buildTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestHandleSearchByName(t *testing.T) {
	s := buildTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/airspaces/search?name=LONDON+CTR", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got []AirspaceResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0].CodeID != "EGTT_CTR" {
		t.Errorf("got %+v, want one EGTT_CTR result", got)
	}
}

func TestHandleSearchRequiresNameOrType(t *testing.T) {
	s := buildTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/airspaces/search", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleQuery(t *testing.T) {
	s := buildTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/query?lon=0&lat=0&alt_ft=1000", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got []AirspaceResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0].CodeID != "EGTT_CTR" {
		t.Errorf("got %+v, want to be inside EGTT_CTR at 1000ft", got)
	}
}

func TestHandleQueryRejectsMissingParams(t *testing.T) {
	s := buildTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/query?lon=0&lat=0", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleAnalyze(t *testing.T) {
	s := buildTestServer(t)
	body := AnalyzeRequest{
		Waypoints: []WaypointJSON{
			{Name: "A", Lon: -1, Lat: 0, AltitudeFt: 1000},
			{Name: "B", Lon: 1, Lat: 0, AltitudeFt: 1000},
		},
	}
	buf, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", bytes.NewReader(buf))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", rec.Code, rec.Body.String())
	}
	var got struct {
		Crossings []CrossingJSON `json:"crossings"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Crossings) != 1 || got.Crossings[0].CodeID != "EGTT_CTR" {
		t.Errorf("got %+v, want a single EGTT_CTR crossing", got.Crossings)
	}
}

func TestHandleAnalyzeRejectsEmptyBody(t *testing.T) {
	s := buildTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleCorrectProfile(t *testing.T) {
	s := buildTestServer(t)
	body := CorrectProfileRequest{
		Waypoints: []WaypointJSON{
			{Name: "DEP", Lon: 0, Lat: 0, AltitudeFt: 0},
			{Name: "WPT1", Lon: 1.0, Lat: 0, AltitudeFt: 9000},
			{Name: "ARR", Lon: 2.0, Lat: 0, AltitudeFt: 0},
		},
		DepartureElevationFt:   500,
		DestinationElevationFt: 300,
	}
	buf, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/correct-profile", bytes.NewReader(buf))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", rec.Code, rec.Body.String())
	}
	var got struct {
		Waypoints []WaypointJSON `json:"waypoints"`
		Warnings  []string       `json:"warnings"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Waypoints[0].AltitudeFt != 1500 {
		t.Errorf("first waypoint altitude = %v, want 1500", got.Waypoints[0].AltitudeFt)
	}
}

func TestAuthMiddlewareRejectsMissingKey(t *testing.T) {
	st := &testStore{}
	engine, err := query.Build(context.Background(), st)
	if err != nil {
		t.Fatalf("query.Build: %v", err)
	}
	s := NewServer(engine, st, Config{AuthEnabled: true, APIKeys: []string{"secret"}})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req2.Header.Set("X-API-Key", "secret")
	rec2 := httptest.NewRecorder()
	s.Router().ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 with valid key", rec2.Code)
	}
}
