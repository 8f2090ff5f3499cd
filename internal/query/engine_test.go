package query

import (
	"context"
	"testing"

	"github.com/navprofile/navprofile/internal/airspace"
	"github.com/navprofile/navprofile/internal/units"
)

// memStore is a minimal in-memory store.Store for exercising the query
// engine without a real database backend.
type memStore struct {
	airspaces map[int64]*airspace.Airspace
	borders   map[int64][]airspace.Border
	vertices  map[int64][]airspace.Vertex
	order     []int64
}

func newMemStore() *memStore {
	return &memStore{
		airspaces: make(map[int64]*airspace.Airspace),
		borders:   make(map[int64][]airspace.Border),
		vertices:  make(map[int64][]airspace.Vertex),
	}
}

func (m *memStore) Reset(ctx context.Context) error { return nil }

func (m *memStore) InsertAirspace(ctx context.Context, a *airspace.Airspace) (int64, error) {
	id := int64(len(m.airspaces) + 1)
	cp := *a
	cp.ID = id
	m.airspaces[id] = &cp
	m.order = append(m.order, id)
	return id, nil
}

func (m *memStore) InsertBorder(ctx context.Context, b *airspace.Border) (int64, error) {
	id := int64(len(m.borders[b.AirspaceID]) + 1 + int64Sum(m.borders))
	cp := *b
	cp.ID = id
	m.borders[b.AirspaceID] = append(m.borders[b.AirspaceID], cp)
	return id, nil
}

func int64Sum(m map[int64][]airspace.Border) int64 {
	var n int64
	for _, v := range m {
		n += int64(len(v))
	}
	return n
}

func (m *memStore) InsertVertices(ctx context.Context, borderID int64, vertices []airspace.Vertex) error {
	m.vertices[borderID] = append(m.vertices[borderID], vertices...)
	return nil
}

func (m *memStore) Flush(ctx context.Context) error { return nil }

func (m *memStore) ListAirspaceIDsWithGeometry(ctx context.Context) ([]int64, error) {
	var ids []int64
	for id := range m.borders {
		if len(m.borders[id]) > 0 {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (m *memStore) GetAirspace(ctx context.Context, id int64) (*airspace.Airspace, error) {
	return m.airspaces[id], nil
}

func (m *memStore) GetBorders(ctx context.Context, airspaceID int64) ([]airspace.Border, error) {
	return m.borders[airspaceID], nil
}

func (m *memStore) GetVertices(ctx context.Context, borderID int64) ([]airspace.Vertex, error) {
	return m.vertices[borderID], nil
}

func (m *memStore) SearchByName(ctx context.Context, pattern string) ([]airspace.Airspace, error) {
	return nil, nil
}

func (m *memStore) SearchByType(ctx context.Context, codeType string) ([]airspace.Airspace, error) {
	return nil, nil
}

func (m *memStore) Close() error { return nil }

// buildScenario reproduces TESTABLE PROPERTIES scenario 3: a single
// airspace inside the [0,0]-[1,1] square, circular geometry centered
// (0.5,0.5) radius 50km, vertical 0-5000ft. The indexed bounding box is
// the circle's own, roughly [0.05,0.05]-[0.95,0.95].
func buildScenario(t *testing.T) *Engine {
	t.Helper()
	ctx := context.Background()
	s := newMemStore()

	asID, err := s.InsertAirspace(ctx, &airspace.Airspace{
		CodeID: "TEST1", Name: "TEST AIRSPACE", CodeType: "D",
		Vertical: &airspace.VerticalLimits{
			HasLower: true, LowerValue: 0, LowerRef: units.RefFT,
			HasUpper: true, UpperValue: 5000, UpperRef: units.RefFT,
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	borderID, err := s.InsertBorder(ctx, &airspace.Border{
		AirspaceID: asID, Kind: airspace.BorderCircle,
		CenterLon: 0.5, CenterLat: 0.5, RadiusKm: 50,
	})
	if err != nil {
		t.Fatal(err)
	}
	_ = borderID

	e, err := Build(ctx, s)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return e
}

func TestQueryThreeStageFilter(t *testing.T) {
	e := buildScenario(t)

	if got := e.Query(0.5, 0.5, 3000); len(got) != 1 {
		t.Errorf("Query(0.5,0.5,3000) = %d results, want 1", len(got))
	}
	if got := e.Query(0.5, 0.5, 6000); len(got) != 0 {
		t.Errorf("Query(0.5,0.5,6000) = %d results, want 0 (above vertical band)", len(got))
	}
	if got := e.Query(0.99, 0.99, 3000); len(got) != 0 {
		t.Errorf("Query(0.99,0.99,3000) = %d results, want 0 (inside the [0,0]-[1,1] square, outside the circle)", len(got))
	}
}

func TestQueryFlightLevelBoundary(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()

	asID, _ := s.InsertAirspace(ctx, &airspace.Airspace{
		CodeID: "FL65", CodeType: "TMA",
		Vertical: &airspace.VerticalLimits{
			HasLower: true, LowerValue: 0, LowerRef: units.RefFT,
			HasUpper: true, UpperValue: 65, UpperRef: units.RefFL,
		},
	})
	_, _ = s.InsertBorder(ctx, &airspace.Border{
		AirspaceID: asID, Kind: airspace.BorderCircle, CenterLon: 0, CenterLat: 0, RadiusKm: 100,
	})

	e, err := Build(ctx, s)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if got := e.Query(0, 0, 6500); len(got) != 1 {
		t.Errorf("Query at 6500ft = %d, want 1 (FL65 = 6500ft, inclusive upper bound)", len(got))
	}
	if got := e.Query(0, 0, 6501); len(got) != 0 {
		t.Errorf("Query at 6501ft = %d, want 0", len(got))
	}
}
