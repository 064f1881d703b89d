package model

// DispatchDecision holds the optimal power setpoints for one hour.
// All powers are hourly averages in MW, SOC is the storage level in MWh at
// the end of the hour.
type DispatchDecision struct {
	ImportMW  float64 `json:"p_import_mw"`
	ExportMW  float64 `json:"p_export_mw"`
	ElyMW     float64 `json:"p_ely_mw"`
	FCMW      float64 `json:"p_fc_mw"`
	DGMW      float64 `json:"p_dg_mw"`
	CurtailMW float64 `json:"p_curt_mw"`
	SOCMWh    float64 `json:"soc_mwh"`

	// Operating states chosen by the solver. Ties between equally optimal
	// flag assignments may resolve differently across backends.
	DGOn  bool `json:"dg_on"`
	ElyOn bool `json:"ely_on"`
	FCOn  bool `json:"fc_on"`
}

// HorizonResult is the optimal dispatch for every hour of one window plus
// the total window cost.
type HorizonResult struct {
	Start     int // absolute hour of the first decision
	Decisions []DispatchDecision
	Objective float64 // total window cost [EUR]
	Backend   string  // backend that produced the solution
}

// CommittedRow is one hour of the receding-horizon output: the decision
// actually applied plus the objective of the horizon it was taken from.
type CommittedRow struct {
	Hour      int              `json:"hour"`
	Decision  DispatchDecision `json:"decision"`
	Objective float64          `json:"objective_eur"`
}

// CommittedSchedule is the append-only output of the receding-horizon
// controller. Rows are ordered by hour and never mutated once appended.
type CommittedSchedule struct {
	Rows []CommittedRow
}

// Append adds a committed hour. The controller is the single writer.
func (s *CommittedSchedule) Append(row CommittedRow) {
	s.Rows = append(s.Rows, row)
}

// LastSOC returns the storage level after the most recently committed hour,
// or the fallback when nothing has been committed yet.
func (s *CommittedSchedule) LastSOC(fallback float64) float64 {
	if len(s.Rows) == 0 {
		return fallback
	}
	return s.Rows[len(s.Rows)-1].Decision.SOCMWh
}

// Len returns the number of committed hours.
func (s *CommittedSchedule) Len() int { return len(s.Rows) }
