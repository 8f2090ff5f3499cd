package store

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/navprofile/navprofile/internal/airspace"
	"github.com/navprofile/navprofile/internal/units"
)

// clickHouseStore is the ClickHouse-backed Store, intended for national or
// continental datasets where the vertices table runs into the tens of
// millions of rows: MergeTree ordering by (border_id, sequence_number)
// keeps the per-border vertex scan that GetVertices needs sequential on
// disk, and batch inserts amortize the cost of import.
type clickHouseStore struct {
	conn      driver.Conn
	ids       idCounter
	borderIDs idCounter
}

func openClickHouse(ctx context.Context, cfg Config) (*clickHouseStore, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.ClickHouseHost, cfg.ClickHousePort)},
		Auth: clickhouse.Auth{
			Database: cfg.ClickHouseDatabase,
			Username: cfg.ClickHouseUser,
			Password: cfg.ClickHousePassword,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:     10 * time.Second,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
	})
	if err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}

	s := &clickHouseStore{conn: conn}
	if err := s.createSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *clickHouseStore) createSchema(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS airspaces (
			id UInt64,
			mid String,
			code_id String,
			name String,
			code_type String,
			class String
		) ENGINE = MergeTree() ORDER BY (code_id, id)`,

		`CREATE TABLE IF NOT EXISTS vertical_limits (
			airspace_id UInt64,
			lower_value Float64,
			lower_ref Int8,
			has_lower UInt8,
			upper_value Float64,
			upper_ref Int8,
			has_upper UInt8
		) ENGINE = MergeTree() ORDER BY airspace_id`,

		`CREATE TABLE IF NOT EXISTS borders (
			id UInt64,
			airspace_id UInt64,
			kind Int8,
			center_lon Float64,
			center_lat Float64,
			radius_km Float64
		) ENGINE = MergeTree() ORDER BY (airspace_id, id)`,

		`CREATE TABLE IF NOT EXISTS vertices (
			border_id UInt64,
			sequence_number UInt32,
			lon Float64,
			lat Float64
		) ENGINE = MergeTree() ORDER BY (border_id, sequence_number)`,
	}
	for _, q := range queries {
		if err := s.conn.Exec(ctx, q); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

// idCounter is a process-local monotonic counter used in place of
// auto-increment, which ClickHouse's MergeTree family does not provide.
type idCounter struct{ n int64 }

func (c *idCounter) next() int64 { c.n++; return c.n }

func (s *clickHouseStore) Reset(ctx context.Context) error {
	for _, table := range []string{"vertices", "borders", "vertical_limits", "airspaces"} {
		if err := s.conn.Exec(ctx, "TRUNCATE TABLE "+table); err != nil {
			return fmt.Errorf("reset %s: %w", table, err)
		}
	}
	s.ids = idCounter{}
	s.borderIDs = idCounter{}
	return nil
}

func (s *clickHouseStore) InsertAirspace(ctx context.Context, a *airspace.Airspace) (int64, error) {
	id := s.ids.next()
	err := s.conn.Exec(ctx,
		`INSERT INTO airspaces (id, mid, code_id, name, code_type, class) VALUES (?, ?, ?, ?, ?, ?)`,
		id, a.Mid, a.CodeID, a.Name, a.CodeType, a.Class)
	if err != nil {
		return 0, fmt.Errorf("insert airspace: %w", err)
	}

	if a.Vertical != nil {
		err := s.conn.Exec(ctx,
			`INSERT INTO vertical_limits (airspace_id, lower_value, lower_ref, has_lower, upper_value, upper_ref, has_upper)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id, a.Vertical.LowerValue, int8(a.Vertical.LowerRef), boolToUint8(a.Vertical.HasLower),
			a.Vertical.UpperValue, int8(a.Vertical.UpperRef), boolToUint8(a.Vertical.HasUpper))
		if err != nil {
			return 0, fmt.Errorf("insert vertical limits: %w", err)
		}
	}
	return id, nil
}

func (s *clickHouseStore) InsertBorder(ctx context.Context, b *airspace.Border) (int64, error) {
	id := s.borderIDs.next()
	err := s.conn.Exec(ctx,
		`INSERT INTO borders (id, airspace_id, kind, center_lon, center_lat, radius_km) VALUES (?, ?, ?, ?, ?, ?)`,
		id, b.AirspaceID, int8(b.Kind), b.CenterLon, b.CenterLat, b.RadiusKm)
	if err != nil {
		return 0, fmt.Errorf("insert border: %w", err)
	}
	return id, nil
}

// InsertVertices uses PrepareBatch/Append/Send, the teacher's bulk-insert
// idiom, since a single border can carry hundreds of vertices and per-row
// inserts would be prohibitively slow against ClickHouse.
func (s *clickHouseStore) InsertVertices(ctx context.Context, borderID int64, vertices []airspace.Vertex) error {
	if len(vertices) == 0 {
		return nil
	}
	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO vertices (border_id, sequence_number, lon, lat)`)
	if err != nil {
		return fmt.Errorf("insert vertices: %w", err)
	}
	for _, v := range vertices {
		if err := batch.Append(borderID, uint32(v.SequenceNumber), v.Lon, v.Lat); err != nil {
			return fmt.Errorf("insert vertices: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("insert vertices: %w", err)
	}
	return nil
}

func (s *clickHouseStore) Flush(ctx context.Context) error { return nil }

func (s *clickHouseStore) ListAirspaceIDsWithGeometry(ctx context.Context) ([]int64, error) {
	rows, err := s.conn.Query(ctx, `SELECT DISTINCT airspace_id FROM borders`)
	if err != nil {
		return nil, fmt.Errorf("list airspace ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("list airspace ids: %w", err)
		}
		ids = append(ids, int64(id))
	}
	return ids, rows.Err()
}

func (s *clickHouseStore) GetAirspace(ctx context.Context, id int64) (*airspace.Airspace, error) {
	row := s.conn.QueryRow(ctx,
		`SELECT a.id, a.mid, a.code_id, a.name, a.code_type, a.class,
		        v.lower_value, v.lower_ref, v.has_lower, v.upper_value, v.upper_ref, v.has_upper
		 FROM airspaces a LEFT JOIN vertical_limits v ON v.airspace_id = a.id
		 WHERE a.id = ?`, uint64(id))

	var a airspace.Airspace
	var rawID uint64
	var lowerValue, upperValue float64
	var lowerRef, upperRef int8
	var hasLower, hasUpper uint8

	err := row.Scan(&rawID, &a.Mid, &a.CodeID, &a.Name, &a.CodeType, &a.Class,
		&lowerValue, &lowerRef, &hasLower, &upperValue, &upperRef, &hasUpper)
	if err != nil {
		return nil, fmt.Errorf("get airspace: %w", err)
	}
	a.ID = int64(rawID)
	if hasLower != 0 || hasUpper != 0 {
		a.Vertical = &airspace.VerticalLimits{
			LowerValue: lowerValue, LowerRef: units.VerticalRef(lowerRef), HasLower: hasLower != 0,
			UpperValue: upperValue, UpperRef: units.VerticalRef(upperRef), HasUpper: hasUpper != 0,
		}
	}
	return &a, nil
}

func (s *clickHouseStore) GetBorders(ctx context.Context, airspaceID int64) ([]airspace.Border, error) {
	rows, err := s.conn.Query(ctx,
		`SELECT id, airspace_id, kind, center_lon, center_lat, radius_km FROM borders WHERE airspace_id = ?`,
		uint64(airspaceID))
	if err != nil {
		return nil, fmt.Errorf("get borders: %w", err)
	}
	defer rows.Close()

	var out []airspace.Border
	for rows.Next() {
		var id, asID uint64
		var kind int8
		var b airspace.Border
		if err := rows.Scan(&id, &asID, &kind, &b.CenterLon, &b.CenterLat, &b.RadiusKm); err != nil {
			return nil, fmt.Errorf("get borders: %w", err)
		}
		b.ID = int64(id)
		b.AirspaceID = int64(asID)
		b.Kind = airspace.BorderKind(kind)
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *clickHouseStore) GetVertices(ctx context.Context, borderID int64) ([]airspace.Vertex, error) {
	rows, err := s.conn.Query(ctx,
		`SELECT border_id, sequence_number, lon, lat FROM vertices WHERE border_id = ? ORDER BY sequence_number`,
		uint64(borderID))
	if err != nil {
		return nil, fmt.Errorf("get vertices: %w", err)
	}
	defer rows.Close()

	var out []airspace.Vertex
	for rows.Next() {
		var bID uint64
		var seq uint32
		var v airspace.Vertex
		if err := rows.Scan(&bID, &seq, &v.Lon, &v.Lat); err != nil {
			return nil, fmt.Errorf("get vertices: %w", err)
		}
		v.BorderID = int64(bID)
		v.SequenceNumber = int(seq)
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *clickHouseStore) SearchByName(ctx context.Context, pattern string) ([]airspace.Airspace, error) {
	rows, err := s.conn.Query(ctx,
		`SELECT a.id, a.mid, a.code_id, a.name, a.code_type, a.class,
		        v.lower_value, v.lower_ref, v.has_lower, v.upper_value, v.upper_ref, v.has_upper
		 FROM airspaces a LEFT JOIN vertical_limits v ON v.airspace_id = a.id
		 WHERE positionCaseInsensitive(a.name, ?) > 0`, pattern)
	if err != nil {
		return nil, fmt.Errorf("search by name: %w", err)
	}
	defer rows.Close()

	airspaces, err := scanAirspacesCH(rows)
	if err != nil {
		return nil, err
	}
	return dedupeByNameTypeLimits(airspaces), nil
}

func (s *clickHouseStore) SearchByType(ctx context.Context, codeType string) ([]airspace.Airspace, error) {
	rows, err := s.conn.Query(ctx,
		`SELECT a.id, a.mid, a.code_id, a.name, a.code_type, a.class,
		        v.lower_value, v.lower_ref, v.has_lower, v.upper_value, v.upper_ref, v.has_upper
		 FROM airspaces a LEFT JOIN vertical_limits v ON v.airspace_id = a.id
		 WHERE a.code_type = ?`, codeType)
	if err != nil {
		return nil, fmt.Errorf("search by type: %w", err)
	}
	defer rows.Close()

	return scanAirspacesCH(rows)
}

func (s *clickHouseStore) Close() error { return s.conn.Close() }

func scanAirspacesCH(rows driver.Rows) ([]airspace.Airspace, error) {
	var out []airspace.Airspace
	for rows.Next() {
		var a airspace.Airspace
		var rawID uint64
		var lowerValue, upperValue float64
		var lowerRef, upperRef int8
		var hasLower, hasUpper uint8

		if err := rows.Scan(&rawID, &a.Mid, &a.CodeID, &a.Name, &a.CodeType, &a.Class,
			&lowerValue, &lowerRef, &hasLower, &upperValue, &upperRef, &hasUpper); err != nil {
			return nil, fmt.Errorf("scan airspace: %w", err)
		}
		a.ID = int64(rawID)
		if hasLower != 0 || hasUpper != 0 {
			a.Vertical = &airspace.VerticalLimits{
				LowerValue: lowerValue, LowerRef: units.VerticalRef(lowerRef), HasLower: hasLower != 0,
				UpperValue: upperValue, UpperRef: units.VerticalRef(upperRef), HasUpper: hasUpper != 0,
			}
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func boolToUint8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
