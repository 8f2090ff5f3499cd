package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/navprofile/navprofile/internal/store"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Store.Backend != store.BackendSQLite {
		t.Errorf("default backend = %q, want sqlite", cfg.Store.Backend)
	}
	if cfg.CorridorHeightFt != 500 {
		t.Errorf("CorridorHeightFt = %v, want 500", cfg.CorridorHeightFt)
	}
	if cfg.CorridorWidthNM != 5.0 {
		t.Errorf("CorridorWidthNM = %v, want 5.0", cfg.CorridorWidthNM)
	}
	if cfg.SampleDistanceKm != 5.0 {
		t.Errorf("SampleDistanceKm = %v, want 5.0", cfg.SampleDistanceKm)
	}
	if len(cfg.FilterTypes) != 3 {
		t.Errorf("FilterTypes = %v, want 3 entries", cfg.FilterTypes)
	}
}

func TestLoadMissingFileFallsBackToDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.CorridorHeightFt != 500 {
		t.Errorf("CorridorHeightFt = %v, want default 500", cfg.CorridorHeightFt)
	}
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "navprofile.yaml")
	yamlBody := `
store:
  backend: postgres
  postgres_host: db.internal
  postgres_port: 5433
corridor_height_ft: 1000
corridor_width_nm: 10
api:
  port: 9090
  auth_enabled: true
`
	if err := os.WriteFile(path, []byte(yamlBody), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Store.Backend != store.BackendPostgres {
		t.Errorf("Backend = %q, want postgres", cfg.Store.Backend)
	}
	if cfg.Store.PostgresHost != "db.internal" {
		t.Errorf("PostgresHost = %q, want db.internal", cfg.Store.PostgresHost)
	}
	if cfg.Store.PostgresPort != 5433 {
		t.Errorf("PostgresPort = %d, want 5433", cfg.Store.PostgresPort)
	}
	if cfg.CorridorHeightFt != 1000 {
		t.Errorf("CorridorHeightFt = %v, want 1000", cfg.CorridorHeightFt)
	}
	if cfg.CorridorWidthNM != 10 {
		t.Errorf("CorridorWidthNM = %v, want 10", cfg.CorridorWidthNM)
	}
	if !cfg.API.AuthEnabled {
		t.Error("AuthEnabled = false, want true")
	}
	if cfg.API.Port != 9090 {
		t.Errorf("API.Port = %d, want 9090", cfg.API.Port)
	}
	// Fields the fixture didn't set keep their defaults.
	if cfg.GroundSpeedKts != 100 {
		t.Errorf("GroundSpeedKts = %v, want default 100", cfg.GroundSpeedKts)
	}
}

func TestEnvOverridesTakePrecedenceOverYAML(t *testing.T) {
	t.Setenv("NAVPROFILE_CORRIDOR_HEIGHT_FT", "750")
	t.Setenv("NAVPROFILE_API_PORT", "1234")
	t.Setenv("NAVPROFILE_BUS_ENABLED", "true")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.CorridorHeightFt != 750 {
		t.Errorf("CorridorHeightFt = %v, want 750 from env", cfg.CorridorHeightFt)
	}
	if cfg.API.Port != 1234 {
		t.Errorf("API.Port = %d, want 1234 from env", cfg.API.Port)
	}
	if !cfg.Bus.Enabled {
		t.Error("Bus.Enabled = false, want true from env")
	}
}

func TestToStoreConfig(t *testing.T) {
	s := Store{Backend: store.BackendSQLite, SQLitePath: "test.db"}
	sc := s.ToStoreConfig()
	if sc.Backend != store.BackendSQLite || sc.SQLitePath != "test.db" {
		t.Errorf("ToStoreConfig() = %+v, want matching backend/path", sc)
	}
}
