package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gridmpc/gridmpc/config"
	"github.com/gridmpc/gridmpc/infra/store"
)

func fixtureConfig(t *testing.T, hours int) *config.Config {
	t.Helper()
	dir := t.TempDir()

	var ren, load, pun strings.Builder
	ren.WriteString("hour,pv_forecast_pu,pv_actual_pu,wind_forecast_pu,wind_actual_pu\n")
	load.WriteString("hour,load_forecast_kw,load_actual_kw\n")
	pun.WriteString("hour,pun_eur_per_mwh\n")
	for h := 0; h < hours; h++ {
		fmt.Fprintf(&ren, "%d,0.4,0.4,0.2,0.2\n", h)
		fmt.Fprintf(&load, "%d,6000,6000\n", h)
		fmt.Fprintf(&pun, "%d,120\n", h)
	}
	for name, content := range map[string]string{
		"renewables.csv": ren.String(),
		"load.csv":       load.String(),
		"pun.csv":        pun.String(),
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	cfg := &config.Config{}
	cfg.Project.TimestepH = 1
	cfg.Project.HorizonH = 2
	cfg.Project.Year = 2022
	cfg.System.PVNomMW = 10
	cfg.System.WindNomMW = 6
	cfg.System.LoadScale = 1
	cfg.System.ImportMaxMW = 20
	cfg.System.ExportMaxMW = 20
	cfg.System.ElyNomMW = 5
	cfg.System.FCNomMW = 4
	cfg.System.DGNomMW = 6
	cfg.System.EtaEly = 0.7
	cfg.System.EtaFC = 0.5
	cfg.System.EtaDG = 0.6
	cfg.System.H2StorageMWh = 20
	cfg.Prices.ImportF1EURPerKWh = 0.3
	cfg.Prices.ImportF2EURPerKWh = 0.25
	cfg.Prices.ImportF3EURPerKWh = 0.2
	cfg.Prices.FuelEURPerKWh = 0.45
	cfg.Solver.Backends = []string{"simplex"}
	cfg.Solver.CurtailPenalty = 1
	cfg.Data.Dir = dir
	cfg.Data.RenewablesFile = "renewables.csv"
	cfg.Data.LoadFile = "load.csv"
	cfg.Data.PricesFile = "pun.csv"
	cfg.Store.Path = filepath.Join(dir, "schedules.db")
	return cfg
}

func TestServiceRunScenariosEndToEnd(t *testing.T) {
	cfg := fixtureConfig(t, 6)
	svc, err := New(cfg)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	defer func() {
		if err := svc.Close(); err != nil {
			t.Errorf("close: %v", err)
		}
	}()

	table, err := svc.LoadTable()
	if err != nil {
		t.Fatalf("load table: %v", err)
	}

	results, err := svc.RunScenarios(context.Background(), table, []float64{0.45, 0.60})
	if err != nil {
		t.Fatalf("run scenarios: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for _, res := range results {
		if res.Err != nil {
			t.Fatalf("scenario %s failed: %v", res.Scenario.Label, res.Err)
		}
		// 6 hours, H=2: windows start at hours 0 through 3.
		if res.Schedule.Len() != 4 {
			t.Fatalf("scenario %s committed %d hours, want 4", res.Scenario.Label, res.Schedule.Len())
		}
	}
	if results[0].Scenario.Label != "cf045" || results[1].Scenario.Label != "cf060" {
		t.Fatalf("unexpected labels: %q %q", results[0].Scenario.Label, results[1].Scenario.Label)
	}

	st, err := store.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer st.Close()
	for _, res := range results {
		stored, err := st.Load(res.RunID)
		if err != nil {
			t.Fatalf("load run %s: %v", res.RunID, err)
		}
		if stored.Len() != res.Schedule.Len() {
			t.Fatalf("run %s: stored %d rows, committed %d", res.RunID, stored.Len(), res.Schedule.Len())
		}
	}
}

func TestServiceSolveHorizonFuelOverride(t *testing.T) {
	cfg := fixtureConfig(t, 4)
	svc, err := New(cfg)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	defer svc.Close()

	table, err := svc.LoadTable()
	if err != nil {
		t.Fatalf("load table: %v", err)
	}

	res, err := svc.SolveHorizon(context.Background(), table, 0, 2, 0, nil)
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if len(res.Decisions) != 2 {
		t.Fatalf("expected 2 decisions, got %d", len(res.Decisions))
	}
	if res.Backend == "" {
		t.Fatalf("result must carry the backend name")
	}

	fuel := 0.60
	if _, err := svc.SolveHorizon(context.Background(), table, 0, 2, 0, &fuel); err != nil {
		t.Fatalf("solve with fuel override: %v", err)
	}
}

func TestFuelLabel(t *testing.T) {
	cases := map[float64]string{
		0.45: "cf045",
		0.60: "cf060",
		1.20: "cf120",
	}
	for fuel, want := range cases {
		if got := fuelLabel(fuel); got != want {
			t.Fatalf("fuel %v: expected %s, got %s", fuel, want, got)
		}
	}
}
