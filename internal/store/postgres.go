package store

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/navprofile/navprofile/internal/airspace"
	"github.com/navprofile/navprofile/internal/units"
)

// postgresStore is the PostgreSQL-backed Store, grounded on the teacher's
// pgxpool connection-pool setup (bounded pool, explicit ping).
type postgresStore struct {
	pool *pgxpool.Pool
}

func openPostgres(ctx context.Context, cfg Config) (*postgresStore, error) {
	escapedPassword := url.QueryEscape(cfg.PostgresPassword)
	sslMode := cfg.PostgresSSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	connStr := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.PostgresUser, escapedPassword, cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresDatabase, sslMode)

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &postgresStore{pool: pool}
	if err := s.createSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *postgresStore) createSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS airspaces (
		id BIGSERIAL PRIMARY KEY,
		mid TEXT,
		code_id TEXT NOT NULL,
		name TEXT,
		code_type TEXT,
		class TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_airspaces_code_id ON airspaces(code_id);

	CREATE TABLE IF NOT EXISTS vertical_limits (
		airspace_id BIGINT PRIMARY KEY REFERENCES airspaces(id) ON DELETE CASCADE,
		lower_value DOUBLE PRECISION,
		lower_ref SMALLINT,
		has_lower BOOLEAN NOT NULL DEFAULT FALSE,
		upper_value DOUBLE PRECISION,
		upper_ref SMALLINT,
		has_upper BOOLEAN NOT NULL DEFAULT FALSE
	);
	CREATE INDEX IF NOT EXISTS idx_vertical_limits_airspace_id ON vertical_limits(airspace_id);

	CREATE TABLE IF NOT EXISTS borders (
		id BIGSERIAL PRIMARY KEY,
		airspace_id BIGINT NOT NULL REFERENCES airspaces(id) ON DELETE CASCADE,
		kind SMALLINT NOT NULL,
		center_lon DOUBLE PRECISION,
		center_lat DOUBLE PRECISION,
		radius_km DOUBLE PRECISION
	);
	CREATE INDEX IF NOT EXISTS idx_borders_airspace_id ON borders(airspace_id);

	CREATE TABLE IF NOT EXISTS vertices (
		border_id BIGINT NOT NULL REFERENCES borders(id) ON DELETE CASCADE,
		sequence_number INT NOT NULL,
		lon DOUBLE PRECISION NOT NULL,
		lat DOUBLE PRECISION NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_vertices_border_seq ON vertices(border_id, sequence_number);
	`
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (s *postgresStore) Reset(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `TRUNCATE vertices, borders, vertical_limits, airspaces RESTART IDENTITY CASCADE`)
	if err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	return nil
}

func (s *postgresStore) InsertAirspace(ctx context.Context, a *airspace.Airspace) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO airspaces (mid, code_id, name, code_type, class) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		a.Mid, a.CodeID, a.Name, a.CodeType, a.Class).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert airspace: %w", err)
	}

	if a.Vertical != nil {
		_, err := s.pool.Exec(ctx,
			`INSERT INTO vertical_limits (airspace_id, lower_value, lower_ref, has_lower, upper_value, upper_ref, has_upper)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			id, a.Vertical.LowerValue, int(a.Vertical.LowerRef), a.Vertical.HasLower,
			a.Vertical.UpperValue, int(a.Vertical.UpperRef), a.Vertical.HasUpper)
		if err != nil {
			return 0, fmt.Errorf("insert vertical limits: %w", err)
		}
	}

	return id, nil
}

func (s *postgresStore) InsertBorder(ctx context.Context, b *airspace.Border) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO borders (airspace_id, kind, center_lon, center_lat, radius_km) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		b.AirspaceID, int(b.Kind), b.CenterLon, b.CenterLat, b.RadiusKm).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert border: %w", err)
	}
	return id, nil
}

func (s *postgresStore) InsertVertices(ctx context.Context, borderID int64, vertices []airspace.Vertex) error {
	if len(vertices) == 0 {
		return nil
	}
	rows := make([][]interface{}, len(vertices))
	for i, v := range vertices {
		rows[i] = []interface{}{borderID, v.SequenceNumber, v.Lon, v.Lat}
	}
	_, err := s.pool.CopyFrom(ctx,
		pgx.Identifier{"vertices"},
		[]string{"border_id", "sequence_number", "lon", "lat"},
		pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("insert vertices: %w", err)
	}
	return nil
}

func (s *postgresStore) Flush(ctx context.Context) error { return nil }

func (s *postgresStore) ListAirspaceIDsWithGeometry(ctx context.Context) ([]int64, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT airspace_id FROM borders`)
	if err != nil {
		return nil, fmt.Errorf("list airspace ids: %w", err)
	}
	defer rows.Close()

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

func (s *postgresStore) GetAirspace(ctx context.Context, id int64) (*airspace.Airspace, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT a.id, a.mid, a.code_id, a.name, a.code_type, a.class,
		        v.lower_value, v.lower_ref, v.has_lower, v.upper_value, v.upper_ref, v.has_upper
		 FROM airspaces a LEFT JOIN vertical_limits v ON v.airspace_id = a.id
		 WHERE a.id = $1`, id)
	return scanAirspacePG(row)
}

func (s *postgresStore) GetBorders(ctx context.Context, airspaceID int64) ([]airspace.Border, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, airspace_id, kind, center_lon, center_lat, radius_km FROM borders WHERE airspace_id = $1`,
		airspaceID)
	if err != nil {
		return nil, fmt.Errorf("get borders: %w", err)
	}
	defer rows.Close()

	var out []airspace.Border
	for rows.Next() {
		var b airspace.Border
		var kind int
		var centerLon, centerLat, radiusKm *float64
		if err := rows.Scan(&b.ID, &b.AirspaceID, &kind, &centerLon, &centerLat, &radiusKm); err != nil {
			return nil, fmt.Errorf("get borders: %w", err)
		}
		b.Kind = airspace.BorderKind(kind)
		if centerLon != nil {
			b.CenterLon = *centerLon
		}
		if centerLat != nil {
			b.CenterLat = *centerLat
		}
		if radiusKm != nil {
			b.RadiusKm = *radiusKm
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *postgresStore) GetVertices(ctx context.Context, borderID int64) ([]airspace.Vertex, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT border_id, sequence_number, lon, lat FROM vertices WHERE border_id = $1 ORDER BY sequence_number`,
		borderID)
	if err != nil {
		return nil, fmt.Errorf("get vertices: %w", err)
	}
	defer rows.Close()

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

func (s *postgresStore) SearchByName(ctx context.Context, pattern string) ([]airspace.Airspace, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT a.id, a.mid, a.code_id, a.name, a.code_type, a.class,
		        v.lower_value, v.lower_ref, v.has_lower, v.upper_value, v.upper_ref, v.has_upper
		 FROM airspaces a LEFT JOIN vertical_limits v ON v.airspace_id = a.id
		 WHERE a.name ILIKE $1`, "%"+pattern+"%")
	if err != nil {
		return nil, fmt.Errorf("search by name: %w", err)
	}
	defer rows.Close()

	airspaces, err := scanAirspacesPG(rows)
	if err != nil {
		return nil, err
	}
	return dedupeByNameTypeLimits(airspaces), nil
}

func (s *postgresStore) SearchByType(ctx context.Context, codeType string) ([]airspace.Airspace, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT a.id, a.mid, a.code_id, a.name, a.code_type, a.class,
		        v.lower_value, v.lower_ref, v.has_lower, v.upper_value, v.upper_ref, v.has_upper
		 FROM airspaces a LEFT JOIN vertical_limits v ON v.airspace_id = a.id
		 WHERE a.code_type = $1`, codeType)
	if err != nil {
		return nil, fmt.Errorf("search by type: %w", err)
	}
	defer rows.Close()

	return scanAirspacesPG(rows)
}

func (s *postgresStore) Close() error {
	s.pool.Close()
	return nil
}

// pgRow is satisfied by both pgx.Row and pgx.Rows.
type pgRow interface {
	Scan(dest ...interface{}) error
}

func scanAirspacePG(row pgRow) (*airspace.Airspace, error) {
	var a airspace.Airspace
	var mid, name, codeType, class *string
	var lowerValue, upperValue *float64
	var lowerRef, upperRef *int
	var hasLower, hasUpper *bool

	err := row.Scan(&a.ID, &mid, &a.CodeID, &name, &codeType, &class,
		&lowerValue, &lowerRef, &hasLower, &upperValue, &upperRef, &hasUpper)
	if err != nil {
		if strings.Contains(err.Error(), "no rows") {
			return nil, nil
		}
		return nil, fmt.Errorf("scan airspace: %w", err)
	}

	if mid != nil {
		a.Mid = *mid
	}
	if name != nil {
		a.Name = *name
	}
	if codeType != nil {
		a.CodeType = *codeType
	}
	if class != nil {
		a.Class = *class
	}

	if hasLower != nil || hasUpper != nil {
		v := &airspace.VerticalLimits{}
		if lowerValue != nil {
			v.LowerValue = *lowerValue
		}
		if lowerRef != nil {
			v.LowerRef = units.VerticalRef(*lowerRef)
		}
		if hasLower != nil {
			v.HasLower = *hasLower
		}
		if upperValue != nil {
			v.UpperValue = *upperValue
		}
		if upperRef != nil {
			v.UpperRef = units.VerticalRef(*upperRef)
		}
		if hasUpper != nil {
			v.HasUpper = *hasUpper
		}
		a.Vertical = v
	}
	return &a, nil
}

func scanAirspacesPG(rows pgx.Rows) ([]airspace.Airspace, error) {
	var out []airspace.Airspace
	for rows.Next() {
		a, err := scanAirspacePG(rows)
		if err != nil {
			return nil, err
		}
		if a != nil {
			out = append(out, *a)
		}
	}
	return out, rows.Err()
}
