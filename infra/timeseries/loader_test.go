package timeseries

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gridmpc/gridmpc/config"
	"github.com/gridmpc/gridmpc/core/model"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func fixtureDir(t *testing.T, hours int) string {
	t.Helper()
	dir := t.TempDir()

	var ren, load, pun strings.Builder
	ren.WriteString("hour,pv_forecast_pu,pv_actual_pu,wind_forecast_pu,wind_actual_pu\n")
	load.WriteString("hour,load_forecast_kw,load_actual_kw\n")
	pun.WriteString("hour,pun_eur_per_mwh\n")
	for h := 0; h < hours; h++ {
		fmt.Fprintf(&ren, "%d,0.5,0.45,0.25,0.2\n", h)
		fmt.Fprintf(&load, "%d,4000,5000\n", h)
		fmt.Fprintf(&pun, "%d,150\n", h)
	}
	writeFile(t, dir, "renewables.csv", ren.String())
	writeFile(t, dir, "load.csv", load.String())
	writeFile(t, dir, "pun.csv", pun.String())
	return dir
}

func fixtureConfig(dir string) *config.Config {
	cfg := &config.Config{}
	cfg.Project.TimestepH = 1
	cfg.Project.Year = 2022
	cfg.System.PVNomMW = 10
	cfg.System.WindNomMW = 6
	cfg.System.LoadScale = 1
	cfg.Prices.ImportF1EURPerKWh = 0.3
	cfg.Prices.ImportF2EURPerKWh = 0.25
	cfg.Prices.ImportF3EURPerKWh = 0.2
	cfg.Data.Dir = dir
	cfg.Data.RenewablesFile = "renewables.csv"
	cfg.Data.LoadFile = "load.csv"
	cfg.Data.PricesFile = "pun.csv"
	return cfg
}

func TestLoadUnitConversions(t *testing.T) {
	cfg := fixtureConfig(fixtureDir(t, 4))

	table, meta, err := Load(cfg)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if table.Hours() != 4 {
		t.Fatalf("expected 4 hours, got %d", table.Hours())
	}
	if table.PVMW[0] != 0.5*10 {
		t.Fatalf("pv per-unit scaling: expected 5, got %v", table.PVMW[0])
	}
	if table.WindMW[0] != 0.25*6 {
		t.Fatalf("wind per-unit scaling: expected 1.5, got %v", table.WindMW[0])
	}
	if table.LoadMW[0] != 4 {
		t.Fatalf("load kW to MW: expected 4, got %v", table.LoadMW[0])
	}
	if table.ExportPrice[0] != 150 {
		t.Fatalf("export price passthrough: expected 150, got %v", table.ExportPrice[0])
	}
	// Flat average of the bands, converted to EUR/MWh.
	want := (0.3 + 0.25 + 0.2) / 3 * 1000
	if math.Abs(table.ImportPrice[0]-want) > 1e-9 {
		t.Fatalf("flat import price: expected %v, got %v", want, table.ImportPrice[0])
	}
	if meta.LoadScale != 1 {
		t.Fatalf("expected scale 1, got %v", meta.LoadScale)
	}
}

func TestLoadTariffSchedule(t *testing.T) {
	cfg := fixtureConfig(fixtureDir(t, 4))
	cfg.Prices.UseTariffSchedule = true

	table, _, err := Load(cfg)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	// 2022-01-01 is a holiday: every hour takes the F3 price.
	for i, p := range table.ImportPrice {
		if p != 200 {
			t.Fatalf("hour %d: expected F3 price 200, got %v", i, p)
		}
	}
}

func TestLoadMaxToNominalScaling(t *testing.T) {
	cfg := fixtureConfig(fixtureDir(t, 3))
	cfg.System.LoadNomMW = 8
	cfg.System.LoadScaleMode = "max_to_nominal"

	table, meta, err := Load(cfg)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	// Actual peak is 5 MW, so the series is scaled by 8/5.
	if math.Abs(meta.LoadScale-1.6) > 1e-9 {
		t.Fatalf("expected scale 1.6, got %v", meta.LoadScale)
	}
	if math.Abs(table.LoadMW[0]-4*1.6) > 1e-9 {
		t.Fatalf("expected scaled load 6.4, got %v", table.LoadMW[0])
	}
}

func TestLoadOneBasedHours(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "renewables.csv",
		"hour,pv_forecast_pu,pv_actual_pu,wind_forecast_pu,wind_actual_pu\n1,0.1,0.1,0.1,0.1\n2,0.2,0.2,0.2,0.2\n")
	writeFile(t, dir, "load.csv",
		"hour,load_forecast_kw,load_actual_kw\n1,1000,1000\n2,2000,2000\n")
	writeFile(t, dir, "pun.csv",
		"hour,pun_eur_per_mwh\n1,100\n2,110\n")
	cfg := fixtureConfig(dir)

	table, _, err := Load(cfg)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if table.Hours() != 2 || table.LoadMW[0] != 1 {
		t.Fatalf("one-based hours not normalized: %v", table.LoadMW)
	}
}

func TestLoadMissingColumn(t *testing.T) {
	dir := fixtureDir(t, 2)
	writeFile(t, dir, "load.csv", "hour,load_forecast_kw\n0,4000\n1,4000\n")
	cfg := fixtureConfig(dir)

	if _, _, err := Load(cfg); err == nil || !strings.Contains(err.Error(), "load_actual_kw") {
		t.Fatalf("expected missing column error, got %v", err)
	}
}

func TestLoadEmptyLoadSeries(t *testing.T) {
	dir := fixtureDir(t, 2)
	writeFile(t, dir, "load.csv", "hour,load_forecast_kw,load_actual_kw\n")
	cfg := fixtureConfig(dir)

	_, _, err := Load(cfg)
	var shape *model.ShapeError
	if !errors.As(err, &shape) {
		t.Fatalf("expected shape error for header-only load file, got %v", err)
	}
}

func TestLoadShortPriceSeries(t *testing.T) {
	dir := fixtureDir(t, 3)
	writeFile(t, dir, "pun.csv", "hour,pun_eur_per_mwh\n0,100\n")
	cfg := fixtureConfig(dir)

	if _, _, err := Load(cfg); err == nil {
		t.Fatalf("expected short series error")
	}
}

func TestNormalizeHoursRepeatedDayPattern(t *testing.T) {
	raw := make([]float64, 48)
	for i := range raw {
		raw[i] = float64(i % 24)
	}
	hours := normalizeHours(raw)
	for i, h := range hours {
		if h != i {
			t.Fatalf("position %d: expected %d, got %d", i, i, h)
		}
	}
}
