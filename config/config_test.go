package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"impactx/simulator"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestDefaults(t *testing.T) {
	cfg, err := FromEnv(env(nil))
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.Addr != ":8080" || cfg.DataDir != "data" || cfg.Countdown != 60 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.Scenario.SizeM != 2500 || cfg.Scenario.SpeedKmS != 35 {
		t.Fatalf("unexpected scenario %+v", cfg.Scenario)
	}
	if cfg.NameTimeout != 30*time.Second {
		t.Fatalf("got name timeout %v", cfg.NameTimeout)
	}
}

func TestEnvOverrides(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{
		"IMPACTX_ADDR":          ":9000",
		"IMPACTX_DATA_DIR":      "/tmp/impactx",
		"IMPACTX_SIMULATOR_URL": "http://sim:5000",
		"IMPACTX_NAME_TIMEOUT":  "5s",
		"IMPACTX_SEED":          "42",
	}))
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.Addr != ":9000" || cfg.DataDir != "/tmp/impactx" || cfg.SimulatorURL != "http://sim:5000" {
		t.Fatalf("got %+v", cfg)
	}
	if cfg.NameTimeout != 5*time.Second || cfg.Seed != 42 {
		t.Fatalf("got %+v", cfg)
	}
}

func TestEnvRejectsGarbage(t *testing.T) {
	for _, m := range []map[string]string{
		{"IMPACTX_NAME_TIMEOUT": "soon"},
		{"IMPACTX_NAME_TIMEOUT": "-1s"},
		{"IMPACTX_SEED": "abc"},
		{"IMPACTX_CONFIG": "/does/not/exist.yaml"},
	} {
		if _, err := FromEnv(env(m)); err == nil {
			t.Errorf("%v: expected error", m)
		}
	}
}

func TestYAMLOverlayKeepsUnsetDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "impactx.yaml")
	yml := "scenario:\n  speed_km_s: 20\n  location: land\ncountdown_seconds: 30\n"
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := FromEnv(env(map[string]string{"IMPACTX_CONFIG": path}))
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.Scenario.SpeedKmS != 20 || cfg.Scenario.Location != simulator.Land {
		t.Fatalf("overlay not applied: %+v", cfg.Scenario)
	}
	if cfg.Scenario.SizeM != 2500 || cfg.Scenario.ImpactLat != 34.0522 {
		t.Fatalf("defaults lost: %+v", cfg.Scenario)
	}
	if cfg.Countdown != 30 {
		t.Fatalf("got countdown %d, want 30", cfg.Countdown)
	}
}

func TestYAMLInvalidScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	_ = os.WriteFile(path, []byte("scenario:\n  impact_lat: 120\n"), 0o644)
	if _, err := FromEnv(env(map[string]string{"IMPACTX_CONFIG": path})); err == nil {
		t.Fatal("expected validation error")
	}
}
