package config

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleYAML = `project:
  timestep_h: 1.0
  horizon_h: 12
  year: 2022
system:
  pv_nom_mw: 10
  wind_nom_mw: 6
  load_nom_mw: 8
  load_scale: 1
  load_scale_mode: max_to_nominal
  import_max_mw: 20
  export_max_mw: 20
  ely_nom_mw: 5
  fc_nom_mw: 4
  dg_nom_mw: 6
  eta_ely: 0.7
  eta_fc: 0.5
  eta_dg: 0.6
  h2_storage_mwh: 20
prices:
  import_f1_eur_per_kwh: 0.3
  import_f2_eur_per_kwh: 0.25
  import_f3_eur_per_kwh: 0.2
  fuel_eur_per_kwh: 0.45
  fuel_alt_eur_per_kwh: 0.6
solver:
  timeout_seconds: 30
`

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	cfg, err := Load(writeConfig(t, "config.yaml", sampleYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Project.HorizonH != 12 {
		t.Fatalf("expected horizon 12, got %d", cfg.Project.HorizonH)
	}
	if cfg.Solver.TimeoutSeconds != 30 {
		t.Fatalf("expected timeout 30, got %d", cfg.Solver.TimeoutSeconds)
	}
	if cfg.Prices.FuelAltEURPerKWh == nil || *cfg.Prices.FuelAltEURPerKWh != 0.6 {
		t.Fatalf("expected alternative fuel price 0.6, got %v", cfg.Prices.FuelAltEURPerKWh)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "config.yaml", "system:\n  pv_nom_mw: 1\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Project.TimestepH != 1 || cfg.Project.HorizonH != 24 {
		t.Fatalf("project defaults not applied: %+v", cfg.Project)
	}
	if len(cfg.Solver.Backends) != 3 || cfg.Solver.Backends[0] != "cbc" {
		t.Fatalf("backend defaults not applied: %v", cfg.Solver.Backends)
	}
	if cfg.Solver.MutualExclusion == nil || !*cfg.Solver.MutualExclusion {
		t.Fatalf("mutual exclusion must default to enabled")
	}
	if cfg.Solver.CurtailPenalty != 1 {
		t.Fatalf("expected curtail penalty 1, got %v", cfg.Solver.CurtailPenalty)
	}
	if cfg.Data.Dir != "data" || cfg.Store.Path != "gridmpc.db" {
		t.Fatalf("path defaults not applied: %+v %+v", cfg.Data, cfg.Store)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("GRIDMPC_SOLVER__TIMEOUT_SECONDS", "99")
	cfg, err := Load(writeConfig(t, "config.yaml", sampleYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Solver.TimeoutSeconds != 99 {
		t.Fatalf("env override ignored, got %d", cfg.Solver.TimeoutSeconds)
	}
}

func TestLoadRejectsUnknownFormat(t *testing.T) {
	if _, err := Load(writeConfig(t, "config.toml", "x = 1\n")); err == nil {
		t.Fatalf("expected format error")
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	if _, err := Load(writeConfig(t, "config.yaml", "solver:\n  backends: [gurobi]\n")); err == nil {
		t.Fatalf("expected unknown backend error")
	}
	if _, err := Load(writeConfig(t, "config.yaml", "system:\n  load_scale_mode: quadratic\n")); err == nil {
		t.Fatalf("expected scale mode error")
	}
	if _, err := Load(writeConfig(t, "config.yaml", "project:\n  start_hour: -3\n")); err == nil {
		t.Fatalf("expected start hour error")
	}
}

func TestSystemParamsConversion(t *testing.T) {
	cfg, err := Load(writeConfig(t, "config.yaml", sampleYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	params := cfg.SystemParams()
	if params.FuelPrice != 450 {
		t.Fatalf("fuel price conversion to EUR/MWh: expected 450, got %v", params.FuelPrice)
	}
	if !params.ExclusiveImpExp {
		t.Fatalf("mutual exclusion must be on by default")
	}
	if err := params.Validate(); err != nil {
		t.Fatalf("converted params invalid: %v", err)
	}
}
