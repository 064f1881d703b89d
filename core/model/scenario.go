package model

import "fmt"

// ScenarioTable holds the hourly forecast and price series for the whole
// simulated period. The hour index is contiguous and zero-based.
type ScenarioTable struct {
	LoadMW       []float64 // forecast electrical load
	PVMW         []float64 // forecast photovoltaic production
	WindMW       []float64 // forecast wind production
	ImportPrice  []float64 // grid purchase price [EUR/MWh]
	ExportPrice  []float64 // grid sale price [EUR/MWh]
}

// Hours returns the number of hours covered by the table.
func (t *ScenarioTable) Hours() int { return len(t.LoadMW) }

// Validate checks that all series have the same length and at least one hour.
func (t *ScenarioTable) Validate() error {
	n := len(t.LoadMW)
	if n == 0 {
		return &ShapeError{Reason: "empty load series"}
	}
	if len(t.PVMW) != n || len(t.WindMW) != n || len(t.ImportPrice) != n || len(t.ExportPrice) != n {
		return &ShapeError{Reason: fmt.Sprintf(
			"series length mismatch: load=%d pv=%d wind=%d import=%d export=%d",
			n, len(t.PVMW), len(t.WindMW), len(t.ImportPrice), len(t.ExportPrice))}
	}
	return nil
}

// Window slices H hours starting at the given hour. The returned window
// shares the table's backing arrays and must be treated as read-only.
func (t *ScenarioTable) Window(start, horizon int, params SystemParams) (*ScenarioWindow, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if horizon < 1 {
		return nil, &ShapeError{Start: start, Reason: fmt.Sprintf("horizon %d < 1", horizon)}
	}
	if start < 0 || start+horizon > t.Hours() {
		return nil, &ShapeError{Start: start, Reason: fmt.Sprintf(
			"window [%d,%d) outside available hours [0,%d)", start, start+horizon, t.Hours())}
	}
	end := start + horizon
	return &ScenarioWindow{
		Start:       start,
		LoadMW:      t.LoadMW[start:end],
		PVMW:        t.PVMW[start:end],
		WindMW:      t.WindMW[start:end],
		ImportPrice: t.ImportPrice[start:end],
		ExportPrice: t.ExportPrice[start:end],
		Params:      params,
	}, nil
}

// Scale returns a copy of the table with the load series multiplied by
// factor. Used for nominal-load sensitivity scenarios.
func (t *ScenarioTable) Scale(factor float64) *ScenarioTable {
	cp := &ScenarioTable{
		LoadMW:      make([]float64, len(t.LoadMW)),
		PVMW:        append([]float64(nil), t.PVMW...),
		WindMW:      append([]float64(nil), t.WindMW...),
		ImportPrice: append([]float64(nil), t.ImportPrice...),
		ExportPrice: append([]float64(nil), t.ExportPrice...),
	}
	for i, v := range t.LoadMW {
		cp.LoadMW[i] = v * factor
	}
	return cp
}

// ScenarioWindow is an immutable view over H consecutive hours plus the
// system parameters needed to build one optimization horizon.
type ScenarioWindow struct {
	Start       int // absolute hour of the first entry
	LoadMW      []float64
	PVMW        []float64
	WindMW      []float64
	ImportPrice []float64
	ExportPrice []float64
	Params      SystemParams
}

// Hours returns the window length H.
func (w *ScenarioWindow) Hours() int { return len(w.LoadMW) }

// SystemParams describes the microgrid units and economics. Powers are in
// MW, energies in MWh, prices in EUR/MWh, efficiencies in (0,1].
type SystemParams struct {
	TimestepH float64 // hours per step

	ImportMaxMW float64
	ExportMaxMW float64

	ElyNomMW float64 // electrolyzer nominal power
	ElyMinMW float64 // electrolyzer minimum technical power
	FCNomMW  float64 // fuel cell nominal power
	FCMinMW  float64 // fuel cell minimum technical power
	DGNomMW  float64 // diesel generator nominal power
	DGMinMW  float64 // diesel generator minimum technical power

	EtaEly float64 // electrolyzer efficiency
	EtaFC  float64 // fuel cell efficiency
	EtaDG  float64 // diesel generator efficiency

	H2StorageMWh float64 // hydrogen storage capacity

	FuelPrice       float64 // diesel fuel price [EUR/MWh primary]
	CurtailPenalty  float64 // tie-break penalty on curtailed power [EUR/MWh]
	ExclusiveImpExp bool    // forbid simultaneous import and export
}

// Validate rejects parameter sets the optimization model cannot express.
func (p SystemParams) Validate() error {
	if p.TimestepH <= 0 {
		return fmt.Errorf("timestep must be positive, got %v", p.TimestepH)
	}
	if p.EtaEly <= 0 || p.EtaEly > 1 || p.EtaFC <= 0 || p.EtaFC > 1 || p.EtaDG <= 0 || p.EtaDG > 1 {
		return fmt.Errorf("efficiencies must lie in (0,1]: ely=%v fc=%v dg=%v", p.EtaEly, p.EtaFC, p.EtaDG)
	}
	if p.H2StorageMWh < 0 {
		return fmt.Errorf("storage capacity must be non-negative, got %v", p.H2StorageMWh)
	}
	if p.ElyMinMW > p.ElyNomMW || p.FCMinMW > p.FCNomMW || p.DGMinMW > p.DGNomMW {
		return fmt.Errorf("minimum technical power exceeds nominal power")
	}
	return nil
}

// ShapeError reports inconsistent input series or an out-of-range window.
type ShapeError struct {
	Start  int
	Reason string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("scenario shape error at hour %d: %s", e.Start, e.Reason)
}
