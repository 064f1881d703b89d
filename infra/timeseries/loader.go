// Package timeseries loads the hourly forecast and price CSV files and
// converts them into a solver-ready scenario table: per-unit renewable
// profiles are scaled by nominal powers, the building load is converted from
// kW to MW and rescaled, and the import price series is built from the
// time-of-use tariff bands.
package timeseries

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gridmpc/gridmpc/config"
	"github.com/gridmpc/gridmpc/core/model"
	"github.com/gridmpc/gridmpc/infra/tariff"
)

// Meta records the scale factors applied while loading.
type Meta struct {
	PVNomMW   float64
	WindNomMW float64
	LoadScale float64
}

// Load reads the configured CSV files and assembles the scenario table.
func Load(cfg *config.Config) (*model.ScenarioTable, Meta, error) {
	dir := cfg.Data.Dir

	res, err := readCSV(filepath.Join(dir, cfg.Data.RenewablesFile),
		"hour", "pv_forecast_pu", "pv_actual_pu", "wind_forecast_pu", "wind_actual_pu")
	if err != nil {
		return nil, Meta{}, err
	}
	load, err := readCSV(filepath.Join(dir, cfg.Data.LoadFile),
		"hour", "load_forecast_kw", "load_actual_kw")
	if err != nil {
		return nil, Meta{}, err
	}
	pun, err := readCSV(filepath.Join(dir, cfg.Data.PricesFile),
		"hour", "pun_eur_per_mwh")
	if err != nil {
		return nil, Meta{}, err
	}

	if len(load["hour"]) == 0 {
		return nil, Meta{}, &model.ShapeError{Reason: "empty load series"}
	}
	loadHours := normalizeHours(load["hour"])

	scale := cfg.System.LoadScale
	if scale == 0 {
		scale = 1
	}
	if cfg.System.LoadScaleMode == "max_to_nominal" {
		peak := 0.0
		for _, v := range load["load_actual_kw"] {
			if v/1000 > peak {
				peak = v / 1000
			}
		}
		if peak > 0 {
			scale = cfg.System.LoadNomMW / peak
		}
	}

	// Inner join on the hour index: commit to the hours covered by the
	// load series, which must be contiguous from zero.
	n := len(loadHours)
	for i, h := range loadHours {
		if h != i {
			return nil, Meta{}, &model.ShapeError{Start: h, Reason: "load hours are not contiguous from zero"}
		}
	}
	if len(res["hour"]) < n || len(pun["hour"]) < n {
		return nil, Meta{}, &model.ShapeError{Reason: fmt.Sprintf(
			"renewables (%d) or prices (%d) shorter than load series (%d)",
			len(res["hour"]), len(pun["hour"]), n)}
	}

	table := &model.ScenarioTable{
		LoadMW:      make([]float64, n),
		PVMW:        make([]float64, n),
		WindMW:      make([]float64, n),
		ImportPrice: make([]float64, n),
		ExportPrice: make([]float64, n),
	}
	for i := 0; i < n; i++ {
		table.LoadMW[i] = load["load_forecast_kw"][i] / 1000 * scale
		table.PVMW[i] = res["pv_forecast_pu"][i] * cfg.System.PVNomMW
		table.WindMW[i] = res["wind_forecast_pu"][i] * cfg.System.WindNomMW
		table.ExportPrice[i] = pun["pun_eur_per_mwh"][i]
	}
	copy(table.ImportPrice, importPrices(cfg, n))

	if err := table.Validate(); err != nil {
		return nil, Meta{}, err
	}
	return table, Meta{PVNomMW: cfg.System.PVNomMW, WindNomMW: cfg.System.WindNomMW, LoadScale: scale}, nil
}

// importPrices builds the grid purchase price series in EUR/MWh, either from
// the ARERA band calendar or as the flat band average.
func importPrices(cfg *config.Config, hours int) []float64 {
	f1 := cfg.Prices.ImportF1EURPerKWh
	f2 := cfg.Prices.ImportF2EURPerKWh
	f3 := cfg.Prices.ImportF3EURPerKWh
	if cfg.Prices.UseTariffSchedule {
		prices := tariff.Prices(cfg.Project.Year, hours, f1, f2, f3)
		for i := range prices {
			prices[i] *= 1000 // EUR/kWh to EUR/MWh
		}
		return prices
	}
	avg := (f1 + f2 + f3) / 3 * 1000
	out := make([]float64, hours)
	for i := range out {
		out[i] = avg
	}
	return out
}

// normalizeHours rewrites raw hour indices into a 0-based sequence. One-based
// indices are shifted down; hour-of-day columns repeated across days are
// replaced by their position.
func normalizeHours(raw []float64) []int {
	hours := make([]int, len(raw))
	min, max := int(raw[0]), int(raw[0])
	for i, v := range raw {
		hours[i] = int(v)
		if hours[i] < min {
			min = hours[i]
		}
		if hours[i] > max {
			max = hours[i]
		}
	}
	if min == 1 {
		for i := range hours {
			hours[i]--
		}
		max--
	}
	if max <= 23 && len(hours) > 24 {
		for i := range hours {
			hours[i] = i
		}
	}
	return hours
}

// readCSV reads a headered CSV file into named columns. All listed columns
// must be present; extra columns are ignored.
func readCSV(path string, columns ...string) (map[string][]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("timeseries: %w", err)
	}
	defer f.Close()
	return parseCSV(f, path, columns...)
}

func parseCSV(r io.Reader, name string, columns ...string) (map[string][]float64, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("timeseries: read header of %s: %w", name, err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[h] = i
	}
	out := make(map[string][]float64, len(columns))
	for _, c := range columns {
		if _, ok := idx[c]; !ok {
			return nil, fmt.Errorf("timeseries: %s is missing column %q", name, c)
		}
		out[c] = nil
	}

	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("timeseries: %s line %d: %w", name, line, err)
		}
		for _, c := range columns {
			v, err := strconv.ParseFloat(rec[idx[c]], 64)
			if err != nil {
				return nil, fmt.Errorf("timeseries: %s line %d column %s: %w", name, line, c, err)
			}
			out[c] = append(out[c], v)
		}
	}
	return out, nil
}
