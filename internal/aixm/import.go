// Package aixm streams an AIXM 4.5 document into an Airspace Store in two
// passes: airspaces first, then borders and vertices.
package aixm

import (
	"bufio"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"

	"github.com/navprofile/navprofile/internal/airspace"
	"github.com/navprofile/navprofile/internal/store"
	"github.com/navprofile/navprofile/internal/units"
)

// commitBatchSize bounds transaction cost by flushing the store every
// ≈1,000 elements, per the importer's failure/commit policy.
const commitBatchSize = 1000

// Importer streams an AIXM document into a store.Writer.
type Importer struct {
	Sink store.Writer

	// runID correlates log lines from a single Import call.
	runID string
}

// NewImporter returns an Importer writing to sink.
func NewImporter(sink store.Writer) *Importer {
	return &Importer{Sink: sink}
}

// Stats summarizes one Import call.
type Stats struct {
	AirspacesImported int
	AirspacesSkipped  int
	BordersImported   int
	VerticesImported  int
	VerticesSkipped   int
}

// Import performs the two-pass AIXM import over the file at path,
// transparently gunzipping if the source is gzip-compressed. Returns a
// *airspace.Error with Kind MalformedSource on a fatal top-level parse
// failure; per-element issues are logged and counted in Stats, never fatal.
func (imp *Importer) Import(ctx context.Context, path string) (*Stats, error) {
	imp.runID = uuid.NewString()
	log.Printf("aixm import %s: starting from %s", imp.runID, path)

	if err := imp.Sink.Reset(ctx); err != nil {
		return nil, airspace.NewError(airspace.StoreUnavailable, "reset store before import", err)
	}

	codeIDToAirspaceID := make(map[string]int64)

	stats := &Stats{}
	if err := imp.passOne(ctx, path, codeIDToAirspaceID, stats); err != nil {
		return nil, err
	}
	log.Printf("aixm import %s: pass 1 done, %s airspaces imported, %s skipped",
		imp.runID, humanize.Comma(int64(stats.AirspacesImported)), humanize.Comma(int64(stats.AirspacesSkipped)))

	if err := imp.passTwo(ctx, path, codeIDToAirspaceID, stats); err != nil {
		return nil, err
	}
	log.Printf("aixm import %s: pass 2 done, %s borders, %s vertices imported, %s vertices skipped",
		imp.runID, humanize.Comma(int64(stats.BordersImported)), humanize.Comma(int64(stats.VerticesImported)),
		humanize.Comma(int64(stats.VerticesSkipped)))

	if err := imp.Sink.Flush(ctx); err != nil {
		return nil, airspace.NewError(airspace.StoreUnavailable, "final flush", err)
	}
	return stats, nil
}

// openSource opens path and transparently wraps it in a gzip reader if the
// first two bytes carry the gzip magic number.
func openSource(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	br := bufio.NewReader(f)
	magic, err := br.Peek(2)
	if err != nil && err != io.EOF {
		_ = f.Close()
		return nil, err
	}
	if len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		return &gzipReadCloser{Reader: gz, underlying: f}, nil
	}
	return &plainReadCloser{Reader: br, underlying: f}, nil
}

type gzipReadCloser struct {
	*gzip.Reader
	underlying *os.File
}

func (g *gzipReadCloser) Close() error {
	_ = g.Reader.Close()
	return g.underlying.Close()
}

type plainReadCloser struct {
	io.Reader
	underlying *os.File
}

func (p *plainReadCloser) Close() error { return p.underlying.Close() }

func (imp *Importer) passOne(ctx context.Context, path string, codeIDToAirspaceID map[string]int64, stats *Stats) error {
	r, err := openSource(path)
	if err != nil {
		return airspace.NewError(airspace.MalformedSource, "open source for pass 1", err)
	}
	defer func() { _ = r.Close() }()

	dec := xml.NewDecoder(r)
	sinceCommit := 0

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return airspace.NewError(airspace.MalformedSource, "pass 1 xml decode", err)
		}

		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "Ase" {
			continue
		}

		var raw aseElement
		if err := dec.DecodeElement(&raw, &se); err != nil {
			log.Printf("aixm import %s: skipping malformed Ase element: %v", imp.runID, err)
			stats.AirspacesSkipped++
			continue
		}

		a, ok := raw.toAirspace()
		if !ok {
			log.Printf("aixm import %s: skipping Ase with no codeId", imp.runID)
			stats.AirspacesSkipped++
			continue
		}

		id, err := imp.Sink.InsertAirspace(ctx, a)
		if err != nil {
			return airspace.NewError(airspace.StoreUnavailable, "insert airspace", err)
		}
		codeIDToAirspaceID[a.CodeID] = id
		stats.AirspacesImported++

		sinceCommit++
		if sinceCommit >= commitBatchSize {
			if err := imp.Sink.Flush(ctx); err != nil {
				return airspace.NewError(airspace.StoreUnavailable, "batch flush", err)
			}
			sinceCommit = 0
		}
	}
	return nil
}

func (imp *Importer) passTwo(ctx context.Context, path string, codeIDToAirspaceID map[string]int64, stats *Stats) error {
	r, err := openSource(path)
	if err != nil {
		return airspace.NewError(airspace.MalformedSource, "open source for pass 2", err)
	}
	defer func() { _ = r.Close() }()

	dec := xml.NewDecoder(r)
	sinceCommit := 0

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return airspace.NewError(airspace.MalformedSource, "pass 2 xml decode", err)
		}

		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "Abd" {
			continue
		}

		var raw abdElement
		if err := dec.DecodeElement(&raw, &se); err != nil {
			log.Printf("aixm import %s: skipping malformed Abd element: %v", imp.runID, err)
			continue
		}

		codeID := raw.AbdUid.AseUid.CodeID
		airspaceID, known := codeIDToAirspaceID[codeID]
		if !known {
			log.Printf("aixm import %s: Abd references unknown codeId %q", imp.runID, codeID)
			continue
		}

		border := &airspace.Border{AirspaceID: airspaceID, Kind: airspace.BorderPolygon}
		borderID, err := imp.Sink.InsertBorder(ctx, border)
		if err != nil {
			return airspace.NewError(airspace.StoreUnavailable, "insert border", err)
		}
		stats.BordersImported++

		var vertices []airspace.Vertex
		for _, avx := range raw.Avx {
			v, err := avx.toVertex(borderID)
			if err != nil {
				log.Printf("aixm import %s: skipping malformed vertex: %v", imp.runID, err)
				stats.VerticesSkipped++
				continue
			}
			vertices = append(vertices, v)
			stats.VerticesImported++
		}

		if err := imp.Sink.InsertVertices(ctx, borderID, vertices); err != nil {
			return airspace.NewError(airspace.StoreUnavailable, "insert vertices", err)
		}

		sinceCommit++
		if sinceCommit >= commitBatchSize {
			if err := imp.Sink.Flush(ctx); err != nil {
				return airspace.NewError(airspace.StoreUnavailable, "batch flush", err)
			}
			sinceCommit = 0
		}
	}
	return nil
}

// aseElement mirrors the subset of <Ase> this importer consumes. Bare and
// namespace-qualified tag names both decode the same way: encoding/xml
// matches on local name when the struct tag carries none.
type aseElement struct {
	AseUid struct {
		Mid      string `xml:"mid,attr"`
		CodeType string `xml:"codeType"`
		CodeID   string `xml:"codeId"`
	} `xml:"AseUid"`
	TxtName         string `xml:"txtName"`
	CodeClass       string `xml:"codeClass"`
	ValDistVerUpper string `xml:"valDistVerUpper"`
	UomDistVerUpper string `xml:"uomDistVerUpper"`
	ValDistVerLower string `xml:"valDistVerLower"`
	UomDistVerLower string `xml:"uomDistVerLower"`
}

func (raw aseElement) toAirspace() (*airspace.Airspace, bool) {
	if raw.AseUid.CodeID == "" {
		return nil, false
	}

	a := &airspace.Airspace{
		Mid:      raw.AseUid.Mid,
		CodeID:   raw.AseUid.CodeID,
		Name:     raw.TxtName,
		CodeType: raw.AseUid.CodeType,
		Class:    raw.CodeClass,
	}

	vl, ok := parseVerticalLimits(raw)
	if ok {
		a.Vertical = vl
	}
	return a, true
}

func parseVerticalLimits(raw aseElement) (*airspace.VerticalLimits, bool) {
	vl := &airspace.VerticalLimits{}
	any := false

	if raw.ValDistVerLower != "" && raw.UomDistVerLower != "" {
		v, err := strconv.ParseFloat(raw.ValDistVerLower, 64)
		ref, refOK := units.ParseVerticalRef(raw.UomDistVerLower)
		if err == nil && refOK {
			vl.LowerValue = v
			vl.LowerRef = ref
			vl.HasLower = true
			any = true
		}
	}
	if raw.ValDistVerUpper != "" && raw.UomDistVerUpper != "" {
		v, err := strconv.ParseFloat(raw.ValDistVerUpper, 64)
		ref, refOK := units.ParseVerticalRef(raw.UomDistVerUpper)
		if err == nil && refOK {
			vl.UpperValue = v
			vl.UpperRef = ref
			vl.HasUpper = true
			any = true
		}
	}
	return vl, any
}

// abdElement mirrors the subset of <Abd> this importer consumes.
type abdElement struct {
	AbdUid struct {
		AseUid struct {
			CodeID string `xml:"codeId"`
		} `xml:"AseUid"`
	} `xml:"AbdUid"`
	Avx []avxElement `xml:"Avx"`
}

// avxElement mirrors one <Avx> vertex element.
type avxElement struct {
	GeoLat  string `xml:"geoLat"`
	GeoLong string `xml:"geoLong"`
	NoSeq   string `xml:"noSeq"`
}

func (raw avxElement) toVertex(borderID int64) (airspace.Vertex, error) {
	lat, err := units.ParseAIXMCoordinate(raw.GeoLat)
	if err != nil {
		return airspace.Vertex{}, fmt.Errorf("geoLat: %w", err)
	}
	lon, err := units.ParseAIXMCoordinate(raw.GeoLong)
	if err != nil {
		return airspace.Vertex{}, fmt.Errorf("geoLong: %w", err)
	}
	seq, err := strconv.Atoi(raw.NoSeq)
	if err != nil {
		return airspace.Vertex{}, fmt.Errorf("noSeq: %w", err)
	}

	return airspace.Vertex{
		BorderID:       borderID,
		SequenceNumber: seq,
		Lon:            lon,
		Lat:            lat,
	}, nil
}
