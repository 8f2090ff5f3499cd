package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/navprofile/navprofile/internal/airspace"
	"github.com/navprofile/navprofile/internal/units"
)

// sqliteStore is the SQLite-backed Store, grounded on the read/write
// database/sql usage pattern: a single *sql.DB, query building with
// parameter placeholders, explicit NULL handling via sql.Null*.
type sqliteStore struct {
	db *sql.DB
}

func openSQLite(path string) (*sqliteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &sqliteStore{db: db}
	if err := s.createSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *sqliteStore) createSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS airspaces (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		mid TEXT,
		code_id TEXT NOT NULL,
		name TEXT,
		code_type TEXT,
		class TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_airspaces_code_id ON airspaces(code_id);

	CREATE TABLE IF NOT EXISTS vertical_limits (
		airspace_id INTEGER PRIMARY KEY,
		lower_value REAL,
		lower_ref INTEGER,
		has_lower INTEGER NOT NULL DEFAULT 0,
		upper_value REAL,
		upper_ref INTEGER,
		has_upper INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_vertical_limits_airspace_id ON vertical_limits(airspace_id);

	CREATE TABLE IF NOT EXISTS borders (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		airspace_id INTEGER NOT NULL,
		kind INTEGER NOT NULL,
		center_lon REAL,
		center_lat REAL,
		radius_km REAL
	);
	CREATE INDEX IF NOT EXISTS idx_borders_airspace_id ON borders(airspace_id);

	CREATE TABLE IF NOT EXISTS vertices (
		border_id INTEGER NOT NULL,
		sequence_number INTEGER NOT NULL,
		lon REAL NOT NULL,
		lat REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_vertices_border_seq ON vertices(border_id, sequence_number);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (s *sqliteStore) Reset(ctx context.Context) error {
	for _, table := range []string{"vertices", "borders", "vertical_limits", "airspaces"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("reset %s: %w", table, err)
		}
	}
	return nil
}

func (s *sqliteStore) InsertAirspace(ctx context.Context, a *airspace.Airspace) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO airspaces (mid, code_id, name, code_type, class) VALUES (?, ?, ?, ?, ?)`,
		a.Mid, a.CodeID, a.Name, a.CodeType, a.Class)
	if err != nil {
		return 0, fmt.Errorf("insert airspace: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert airspace: %w", err)
	}

	if a.Vertical != nil {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO vertical_limits (airspace_id, lower_value, lower_ref, has_lower, upper_value, upper_ref, has_upper)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id, a.Vertical.LowerValue, int(a.Vertical.LowerRef), boolToInt(a.Vertical.HasLower),
			a.Vertical.UpperValue, int(a.Vertical.UpperRef), boolToInt(a.Vertical.HasUpper))
		if err != nil {
			return 0, fmt.Errorf("insert vertical limits: %w", err)
		}
	}

	return id, nil
}

func (s *sqliteStore) InsertBorder(ctx context.Context, b *airspace.Border) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO borders (airspace_id, kind, center_lon, center_lat, radius_km) VALUES (?, ?, ?, ?, ?)`,
		b.AirspaceID, int(b.Kind), b.CenterLon, b.CenterLat, b.RadiusKm)
	if err != nil {
		return 0, fmt.Errorf("insert border: %w", err)
	}
	return res.LastInsertId()
}

func (s *sqliteStore) InsertVertices(ctx context.Context, borderID int64, vertices []airspace.Vertex) error {
	if len(vertices) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert vertices: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO vertices (border_id, sequence_number, lon, lat) VALUES (?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert vertices: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, v := range vertices {
		if _, err := stmt.ExecContext(ctx, borderID, v.SequenceNumber, v.Lon, v.Lat); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert vertex: %w", err)
		}
	}
	return tx.Commit()
}

func (s *sqliteStore) Flush(ctx context.Context) error { return nil }

func (s *sqliteStore) ListAirspaceIDsWithGeometry(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT airspace_id FROM borders`)
	if err != nil {
		return nil, fmt.Errorf("list airspace ids: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("list airspace ids: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *sqliteStore) GetAirspace(ctx context.Context, id int64) (*airspace.Airspace, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT a.id, a.mid, a.code_id, a.name, a.code_type, a.class,
		        v.lower_value, v.lower_ref, v.has_lower, v.upper_value, v.upper_ref, v.has_upper
		 FROM airspaces a LEFT JOIN vertical_limits v ON v.airspace_id = a.id
		 WHERE a.id = ?`, id)
	return scanAirspace(row)
}

func (s *sqliteStore) GetBorders(ctx context.Context, airspaceID int64) ([]airspace.Border, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, airspace_id, kind, center_lon, center_lat, radius_km FROM borders WHERE airspace_id = ?`,
		airspaceID)
	if err != nil {
		return nil, fmt.Errorf("get borders: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []airspace.Border
	for rows.Next() {
		var b airspace.Border
		var kind int
		var centerLon, centerLat, radiusKm sql.NullFloat64
		if err := rows.Scan(&b.ID, &b.AirspaceID, &kind, &centerLon, &centerLat, &radiusKm); err != nil {
			return nil, fmt.Errorf("get borders: %w", err)
		}
		b.Kind = airspace.BorderKind(kind)
		b.CenterLon = centerLon.Float64
		b.CenterLat = centerLat.Float64
		b.RadiusKm = radiusKm.Float64
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *sqliteStore) GetVertices(ctx context.Context, borderID int64) ([]airspace.Vertex, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT border_id, sequence_number, lon, lat FROM vertices WHERE border_id = ? ORDER BY sequence_number`,
		borderID)
	if err != nil {
		return nil, fmt.Errorf("get vertices: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []airspace.Vertex
	for rows.Next() {
		var v airspace.Vertex
		if err := rows.Scan(&v.BorderID, &v.SequenceNumber, &v.Lon, &v.Lat); err != nil {
			return nil, fmt.Errorf("get vertices: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *sqliteStore) SearchByName(ctx context.Context, pattern string) ([]airspace.Airspace, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT a.id, a.mid, a.code_id, a.name, a.code_type, a.class,
		        v.lower_value, v.lower_ref, v.has_lower, v.upper_value, v.upper_ref, v.has_upper
		 FROM airspaces a LEFT JOIN vertical_limits v ON v.airspace_id = a.id
		 WHERE a.name LIKE ? COLLATE NOCASE`,
		"%"+pattern+"%")
	if err != nil {
		return nil, fmt.Errorf("search by name: %w", err)
	}
	defer func() { _ = rows.Close() }()

	airspaces, err := scanAirspaces(rows)
	if err != nil {
		return nil, err
	}
	return dedupeByNameTypeLimits(airspaces), nil
}

func (s *sqliteStore) SearchByType(ctx context.Context, codeType string) ([]airspace.Airspace, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT a.id, a.mid, a.code_id, a.name, a.code_type, a.class,
		        v.lower_value, v.lower_ref, v.has_lower, v.upper_value, v.upper_ref, v.has_upper
		 FROM airspaces a LEFT JOIN vertical_limits v ON v.airspace_id = a.id
		 WHERE a.code_type = ?`, codeType)
	if err != nil {
		return nil, fmt.Errorf("search by type: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanAirspaces(rows)
}

func (s *sqliteStore) Close() error { return s.db.Close() }

// scanRow is satisfied by both *sql.Row and *sql.Rows.
type scanRow interface {
	Scan(dest ...interface{}) error
}

func scanAirspace(row scanRow) (*airspace.Airspace, error) {
	var a airspace.Airspace
	var mid, name, codeType, class sql.NullString
	var lowerValue, upperValue sql.NullFloat64
	var lowerRef, upperRef sql.NullInt64
	var hasLower, hasUpper sql.NullBool

	err := row.Scan(&a.ID, &mid, &a.CodeID, &name, &codeType, &class,
		&lowerValue, &lowerRef, &hasLower, &upperValue, &upperRef, &hasUpper)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan airspace: %w", err)
	}

	a.Mid = mid.String
	a.Name = name.String
	a.CodeType = codeType.String
	a.Class = class.String

	if hasLower.Valid || hasUpper.Valid {
		a.Vertical = &airspace.VerticalLimits{
			LowerValue: lowerValue.Float64,
			LowerRef:   units.VerticalRef(lowerRef.Int64),
			HasLower:   hasLower.Bool,
			UpperValue: upperValue.Float64,
			UpperRef:   units.VerticalRef(upperRef.Int64),
			HasUpper:   hasUpper.Bool,
		}
	}
	return &a, nil
}

func scanAirspaces(rows *sql.Rows) ([]airspace.Airspace, error) {
	var out []airspace.Airspace
	for rows.Next() {
		a, err := scanAirspace(rows)
		if err != nil {
			return nil, err
		}
		if a != nil {
			out = append(out, *a)
		}
	}
	return out, rows.Err()
}

// dedupeByNameTypeLimits collapses duplicates sharing name+code_type+vertical
// limits, preferring the one with a known class, per spec §4.2.
func dedupeByNameTypeLimits(in []airspace.Airspace) []airspace.Airspace {
	type key struct {
		name, codeType string
		lower, upper   float64
	}
	best := make(map[key]airspace.Airspace)
	var order []key

	for _, a := range in {
		k := key{name: strings.ToLower(a.Name), codeType: a.CodeType, lower: a.Vertical.LowerFeet(), upper: a.Vertical.UpperFeet()}
		existing, seen := best[k]
		if !seen {
			order = append(order, k)
			best[k] = a
			continue
		}
		if existing.Class == "" && a.Class != "" {
			best[k] = a
		}
	}

	out := make([]airspace.Airspace, 0, len(order))
	for _, k := range order {
		out = append(out, best[k])
	}
	return out
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
