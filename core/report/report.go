// Package report aggregates energy and cost KPIs from a committed schedule.
package report

import (
	"fmt"

	"github.com/gridmpc/gridmpc/core/model"
)

// Summary holds the aggregate KPIs of one simulated period.
type Summary struct {
	Hours int `json:"hours"`

	EnergyLoadMWh   float64 `json:"energy_load_mwh"`
	EnergyPVMWh     float64 `json:"energy_pv_mwh"`
	EnergyWindMWh   float64 `json:"energy_wind_mwh"`
	EnergyImportMWh float64 `json:"energy_import_mwh"`
	EnergyExportMWh float64 `json:"energy_export_mwh"`
	EnergyDGMWh     float64 `json:"energy_dg_mwh"`
	EnergyElyMWh    float64 `json:"energy_ely_mwh"`
	EnergyFCMWh     float64 `json:"energy_fc_mwh"`
	EnergyCurtMWh   float64 `json:"energy_curt_mwh"`

	CostImportEUR   float64 `json:"cost_import_eur"`
	IncomeExportEUR float64 `json:"income_export_eur"`
	CostDGEUR       float64 `json:"cost_dg_eur"`
	NetCostEUR      float64 `json:"net_cost_eur"`

	// H2EquivalentCycles counts full charge/discharge cycles of the
	// hydrogen storage: throughput over twice the capacity.
	H2EquivalentCycles float64 `json:"h2_equivalent_cycles"`
	// H2RoundTripPct is recovered fuel-cell energy over electrolyzer
	// energy, in percent.
	H2RoundTripPct float64 `json:"h2_roundtrip_efficiency_pct"`
}

// Build computes the KPIs for the committed hours, joining each row with the
// scenario table by hour index.
func Build(table *model.ScenarioTable, schedule *model.CommittedSchedule, params model.SystemParams) (*Summary, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}
	dt := params.TimestepH
	s := &Summary{Hours: schedule.Len()}

	for _, row := range schedule.Rows {
		if row.Hour < 0 || row.Hour >= table.Hours() {
			return nil, fmt.Errorf("report: committed hour %d outside table range", row.Hour)
		}
		d := row.Decision

		s.EnergyLoadMWh += table.LoadMW[row.Hour] * dt
		s.EnergyPVMWh += table.PVMW[row.Hour] * dt
		s.EnergyWindMWh += table.WindMW[row.Hour] * dt
		s.EnergyImportMWh += d.ImportMW * dt
		s.EnergyExportMWh += d.ExportMW * dt
		s.EnergyDGMWh += d.DGMW * dt
		s.EnergyElyMWh += d.ElyMW * dt
		s.EnergyFCMWh += d.FCMW * dt
		s.EnergyCurtMWh += d.CurtailMW * dt

		s.CostImportEUR += d.ImportMW * table.ImportPrice[row.Hour] * dt
		s.IncomeExportEUR += d.ExportMW * table.ExportPrice[row.Hour] * dt
		s.CostDGEUR += d.DGMW * params.FuelPrice / params.EtaDG * dt
	}
	s.NetCostEUR = s.CostImportEUR - s.IncomeExportEUR + s.CostDGEUR

	if params.H2StorageMWh > 0 {
		s.H2EquivalentCycles = (s.EnergyElyMWh + s.EnergyFCMWh) / (2 * params.H2StorageMWh)
	}
	if s.EnergyElyMWh > 0 {
		s.H2RoundTripPct = s.EnergyFCMWh / s.EnergyElyMWh * 100
	}
	return s, nil
}
