// Package config loads the navprofile configuration surface (spec §6)
// from a YAML file, overridable by NAVPROFILE_-prefixed environment
// variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/navprofile/navprofile/internal/store"
)

// Config is the full navprofile configuration surface: the store
// backend, the analyzer/profile tunables from spec §6, and the service
// wiring (HTTP API, NATS bus) added in SPEC_FULL.md.
type Config struct {
	Store Store `yaml:"store"`

	CorridorHeightFt float64  `yaml:"corridor_height_ft"`
	CorridorWidthNM  float64  `yaml:"corridor_width_nm"`
	SampleDistanceKm float64  `yaml:"sample_distance_km"`
	FilterTypes      []string `yaml:"filter_types"`

	ClimbRateFpm   float64 `yaml:"climb_rate_fpm"`
	DescentRateFpm float64 `yaml:"descent_rate_fpm"`
	GroundSpeedKts float64 `yaml:"ground_speed_kts"`

	API API `yaml:"api"`
	Bus Bus `yaml:"bus"`
}

// Store mirrors store.Config for YAML decoding (store.Backend is a
// plain string type, so it decodes directly).
type Store struct {
	Backend store.Backend `yaml:"backend"`

	SQLitePath string `yaml:"sqlite_path"`

	PostgresHost     string `yaml:"postgres_host"`
	PostgresPort     int    `yaml:"postgres_port"`
	PostgresDatabase string `yaml:"postgres_database"`
	PostgresUser     string `yaml:"postgres_user"`
	PostgresPassword string `yaml:"postgres_password"`
	PostgresSSLMode  string `yaml:"postgres_sslmode"`

	ClickHouseHost     string `yaml:"clickhouse_host"`
	ClickHousePort     int    `yaml:"clickhouse_port"`
	ClickHouseDatabase string `yaml:"clickhouse_database"`
	ClickHouseUser     string `yaml:"clickhouse_user"`
	ClickHousePassword string `yaml:"clickhouse_password"`
}

// ToStoreConfig converts the decoded Store section into store.Config.
func (s Store) ToStoreConfig() store.Config {
	return store.Config{
		Backend:            s.Backend,
		SQLitePath:         s.SQLitePath,
		PostgresHost:       s.PostgresHost,
		PostgresPort:       s.PostgresPort,
		PostgresDatabase:   s.PostgresDatabase,
		PostgresUser:       s.PostgresUser,
		PostgresPassword:   s.PostgresPassword,
		PostgresSSLMode:    s.PostgresSSLMode,
		ClickHouseHost:     s.ClickHouseHost,
		ClickHousePort:     s.ClickHousePort,
		ClickHouseDatabase: s.ClickHouseDatabase,
		ClickHouseUser:     s.ClickHouseUser,
		ClickHousePassword: s.ClickHousePassword,
	}
}

// API holds the HTTP query/analysis service's configuration.
type API struct {
	Port        int      `yaml:"port"`
	AuthEnabled bool     `yaml:"auth_enabled"`
	APIKeys     []string `yaml:"api_keys"`
}

// Bus holds the live route-analysis NATS bus's configuration.
type Bus struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
}

// Default returns the documented defaults from spec §6.
func Default() Config {
	return Config{
		Store: Store{Backend: store.BackendSQLite, SQLitePath: "navprofile.db"},

		CorridorHeightFt: 500,
		CorridorWidthNM:  5.0,
		SampleDistanceKm: 5.0,
		FilterTypes:      []string{"SECTOR", "FIR", "D-OTHER"},

		ClimbRateFpm:   500,
		DescentRateFpm: 500,
		GroundSpeedKts: 100,

		API: API{Port: 8080},
		Bus: Bus{Enabled: false, URL: "nats://127.0.0.1:4222"},
	}
}

// Load reads a YAML file at path (if non-empty and present) over top of
// Default, then applies NAVPROFILE_-prefixed environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("config: read %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

// applyEnvOverrides walks the NAVPROFILE_-prefixed environment variables
// this config surface recognizes, mutating cfg in place. Malformed
// numeric/bool values are left at their prior setting.
func applyEnvOverrides(cfg *Config) {
	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv("NAVPROFILE_" + name); ok {
			*dst = v
		}
	}
	f64 := func(name string, dst *float64) {
		if v, ok := os.LookupEnv("NAVPROFILE_" + name); ok {
			if parsed, err := strconv.ParseFloat(v, 64); err == nil {
				*dst = parsed
			}
		}
	}
	i := func(name string, dst *int) {
		if v, ok := os.LookupEnv("NAVPROFILE_" + name); ok {
			if parsed, err := strconv.Atoi(v); err == nil {
				*dst = parsed
			}
		}
	}
	b := func(name string, dst *bool) {
		if v, ok := os.LookupEnv("NAVPROFILE_" + name); ok {
			*dst = v == "1" || strings.EqualFold(v, "true")
		}
	}

	var backend string
	str("STORE_BACKEND", &backend)
	if backend != "" {
		cfg.Store.Backend = store.Backend(backend)
	}
	str("STORE_SQLITE_PATH", &cfg.Store.SQLitePath)
	str("STORE_POSTGRES_HOST", &cfg.Store.PostgresHost)
	i("STORE_POSTGRES_PORT", &cfg.Store.PostgresPort)
	str("STORE_POSTGRES_DATABASE", &cfg.Store.PostgresDatabase)
	str("STORE_POSTGRES_USER", &cfg.Store.PostgresUser)
	str("STORE_POSTGRES_PASSWORD", &cfg.Store.PostgresPassword)
	str("STORE_CLICKHOUSE_HOST", &cfg.Store.ClickHouseHost)
	i("STORE_CLICKHOUSE_PORT", &cfg.Store.ClickHousePort)
	str("STORE_CLICKHOUSE_DATABASE", &cfg.Store.ClickHouseDatabase)

	f64("CORRIDOR_HEIGHT_FT", &cfg.CorridorHeightFt)
	f64("CORRIDOR_WIDTH_NM", &cfg.CorridorWidthNM)
	f64("SAMPLE_DISTANCE_KM", &cfg.SampleDistanceKm)

	f64("CLIMB_RATE_FPM", &cfg.ClimbRateFpm)
	f64("DESCENT_RATE_FPM", &cfg.DescentRateFpm)
	f64("GROUND_SPEED_KTS", &cfg.GroundSpeedKts)

	i("API_PORT", &cfg.API.Port)
	b("API_AUTH_ENABLED", &cfg.API.AuthEnabled)

	b("BUS_ENABLED", &cfg.Bus.Enabled)
	str("BUS_URL", &cfg.Bus.URL)
}
