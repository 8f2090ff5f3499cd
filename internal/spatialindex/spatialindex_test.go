package spatialindex

import (
	"sort"
	"testing"
)

func buildTestIndex() *Index {
	return Build([]Item{
		{AirspaceID: 1, MinLon: 0, MinLat: 0, MaxLon: 1, MaxLat: 1},
		{AirspaceID: 2, MinLon: 5, MinLat: 5, MaxLon: 6, MaxLat: 6},
		{AirspaceID: 3, MinLon: 0.5, MinLat: 0.5, MaxLon: 1.5, MaxLat: 1.5},
	})
}

func TestQueryPoint(t *testing.T) {
	idx := buildTestIndex()

	got := idx.QueryPoint(0.75, 0.75)
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	if len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Errorf("QueryPoint(0.75, 0.75) = %v, want [1 3]", got)
	}

	got = idx.QueryPoint(100, 100)
	if len(got) != 0 {
		t.Errorf("QueryPoint(100, 100) = %v, want empty", got)
	}
}

func TestQueryBBox(t *testing.T) {
	idx := buildTestIndex()

	got := idx.QueryBBox(-1, -1, 2, 2)
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	if len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Errorf("QueryBBox = %v, want [1 3]", got)
	}
}

func TestBuildEmpty(t *testing.T) {
	idx := Build(nil)
	if got := idx.QueryPoint(0, 0); len(got) != 0 {
		t.Errorf("QueryPoint on empty index = %v, want empty", got)
	}
}
