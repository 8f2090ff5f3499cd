// Package spatialindex wraps a bulk-loaded R-tree over airspace bounding
// boxes for sub-millisecond candidate lookup (spec §4.4).
package spatialindex

import (
	"github.com/dhconnelly/rtreego"
)

// pointEpsilon gives a point query a vanishingly small but non-zero extent,
// since rtreego requires strictly positive rectangle side lengths.
const pointEpsilon = 1e-9

// Item is one entry to index: an airspace id and its bounding box in
// (lon, lat) order.
type Item struct {
	AirspaceID           int64
	MinLon, MinLat       float64
	MaxLon, MaxLat       float64
}

type entry struct {
	id   int64
	rect *rtreego.Rect
}

func (e *entry) Bounds() *rtreego.Rect { return e.rect }

func toRect(minLon, minLat, maxLon, maxLat float64) (*rtreego.Rect, error) {
	lenLon := maxLon - minLon
	lenLat := maxLat - minLat
	if lenLon <= 0 {
		lenLon = pointEpsilon
	}
	if lenLat <= 0 {
		lenLat = pointEpsilon
	}
	return rtreego.NewRect(rtreego.Point{minLon, minLat}, []float64{lenLon, lenLat})
}

// Index is a bulk-loaded, read-only R-tree over airspace bounding boxes.
type Index struct {
	tree *rtreego.Rtree
}

// Build constructs the index in one shot from the given items. Items whose
// bounding box cannot be represented (degenerate input) are skipped.
func Build(items []Item) *Index {
	objs := make([]rtreego.Spatial, 0, len(items))
	for _, it := range items {
		rect, err := toRect(it.MinLon, it.MinLat, it.MaxLon, it.MaxLat)
		if err != nil {
			continue
		}
		objs = append(objs, &entry{id: it.AirspaceID, rect: rect})
	}

	const minChildren, maxChildren = 25, 50
	tree := rtreego.NewTree(2, minChildren, maxChildren, objs...)
	return &Index{tree: tree}
}

// QueryPoint returns the airspace ids whose bounding box contains
// (lon, lat).
func (idx *Index) QueryPoint(lon, lat float64) []int64 {
	rect, err := toRect(lon, lat, lon, lat)
	if err != nil {
		return nil
	}
	return idx.search(rect)
}

// QueryBBox returns the airspace ids whose bounding box intersects the
// given query box.
func (idx *Index) QueryBBox(minLon, minLat, maxLon, maxLat float64) []int64 {
	rect, err := toRect(minLon, minLat, maxLon, maxLat)
	if err != nil {
		return nil
	}
	return idx.search(rect)
}

func (idx *Index) search(rect *rtreego.Rect) []int64 {
	results := idx.tree.SearchIntersect(rect)
	ids := make([]int64, 0, len(results))
	for _, r := range results {
		if e, ok := r.(*entry); ok {
			ids = append(ids, e.id)
		}
	}
	return ids
}
