package config

import (
	"fmt"

	"github.com/gridmpc/gridmpc/core/model"
)

// Project holds simulation-wide parameters.
type Project struct {
	TimestepH  float64 `json:"timestep_h"`
	HorizonH   int     `json:"horizon_h"`
	StartHour  int     `json:"start_hour"`
	Year       int     `json:"year"`
	SOCInitMWh float64 `json:"soc_init_mwh"`
}

func (p *Project) SetDefaults() {
	if p.TimestepH == 0 {
		p.TimestepH = 1.0
	}
	if p.HorizonH == 0 {
		p.HorizonH = 24
	}
	if p.Year == 0 {
		p.Year = 2022
	}
}

func (p Project) Validate() error {
	if p.TimestepH <= 0 {
		return fmt.Errorf("project: timestep_h must be positive")
	}
	if p.HorizonH < 1 {
		return fmt.Errorf("project: horizon_h must be at least 1")
	}
	if p.StartHour < 0 {
		return fmt.Errorf("project: start_hour must be non-negative")
	}
	return nil
}

// System describes the microgrid units.
type System struct {
	PVNomMW   float64 `json:"pv_nom_mw"`
	WindNomMW float64 `json:"wind_nom_mw"`

	LoadNomMW     float64 `json:"load_nom_mw"`
	LoadScale     float64 `json:"load_scale"`
	LoadScaleMode string  `json:"load_scale_mode"` // "fixed" or "max_to_nominal"

	ImportMaxMW float64 `json:"import_max_mw"`
	ExportMaxMW float64 `json:"export_max_mw"`

	ElyNomMW float64 `json:"ely_nom_mw"`
	ElyMinMW float64 `json:"ely_min_mw"`
	FCNomMW  float64 `json:"fc_nom_mw"`
	FCMinMW  float64 `json:"fc_min_mw"`
	DGNomMW  float64 `json:"dg_nom_mw"`
	DGMinMW  float64 `json:"dg_min_mw"`

	EtaEly float64 `json:"eta_ely"`
	EtaFC  float64 `json:"eta_fc"`
	EtaDG  float64 `json:"eta_dg"`

	H2StorageMWh float64 `json:"h2_storage_mwh"`
}

func (s System) Validate() error {
	if s.LoadScaleMode != "" && s.LoadScaleMode != "fixed" && s.LoadScaleMode != "max_to_nominal" {
		return fmt.Errorf("system: unknown load_scale_mode %q", s.LoadScaleMode)
	}
	return nil
}

// Prices holds tariff bands and fuel cost, in EUR/kWh as in the source data.
type Prices struct {
	ImportF1EURPerKWh float64 `json:"import_f1_eur_per_kwh"`
	ImportF2EURPerKWh float64 `json:"import_f2_eur_per_kwh"`
	ImportF3EURPerKWh float64 `json:"import_f3_eur_per_kwh"`
	UseTariffSchedule bool    `json:"use_import_tariff_schedule"`

	FuelEURPerKWh    float64  `json:"fuel_eur_per_kwh"`
	FuelAltEURPerKWh *float64 `json:"fuel_alt_eur_per_kwh"`
}

// Solver selects backends and model variants.
type Solver struct {
	// Backends lists backend names in preference order.
	Backends []string `json:"backends"`
	// TimeoutSeconds bounds each individual solve. Zero disables.
	TimeoutSeconds int `json:"timeout_seconds"`
	// MutualExclusion forbids simultaneous grid import and export.
	MutualExclusion *bool `json:"mutual_exclusion"`
	// CurtailPenalty is the tie-break cost on curtailed power [EUR/MWh].
	CurtailPenalty float64 `json:"curtail_penalty_eur_per_mwh"`
}

func (s *Solver) SetDefaults() {
	if len(s.Backends) == 0 {
		s.Backends = []string{"cbc", "glpk", "simplex"}
	}
	if s.MutualExclusion == nil {
		v := true
		s.MutualExclusion = &v
	}
	if s.CurtailPenalty == 0 {
		s.CurtailPenalty = 1.0
	}
}

func (s Solver) Validate() error {
	for _, b := range s.Backends {
		switch b {
		case "cbc", "glpk", "simplex":
		default:
			return fmt.Errorf("solver: unknown backend %q", b)
		}
	}
	if s.TimeoutSeconds < 0 {
		return fmt.Errorf("solver: timeout_seconds must be non-negative")
	}
	return nil
}

// Data points at the input CSV files.
type Data struct {
	Dir            string `json:"dir"`
	RenewablesFile string `json:"renewables_file"`
	LoadFile       string `json:"load_file"`
	PricesFile     string `json:"prices_file"`
}

func (d *Data) SetDefaults() {
	if d.Dir == "" {
		d.Dir = "data"
	}
	if d.RenewablesFile == "" {
		d.RenewablesFile = "renewables.csv"
	}
	if d.LoadFile == "" {
		d.LoadFile = "load.csv"
	}
	if d.PricesFile == "" {
		d.PricesFile = "pun.csv"
	}
}

// Metrics configures the observability sinks.
type Metrics struct {
	PrometheusEnabled bool   `json:"prometheus_enabled"`
	PrometheusPort    string `json:"prometheus_port"`

	InfluxEnabled bool   `json:"influx_enabled"`
	InfluxURL     string `json:"influx_url"`
	InfluxToken   string `json:"influx_token"`
	InfluxOrg     string `json:"influx_org"`
	InfluxBucket  string `json:"influx_bucket"`
}

// MQTT configures the optional setpoint publisher.
type MQTT struct {
	Enabled     bool   `json:"enabled"`
	Broker      string `json:"broker"`
	ClientID    string `json:"client_id"`
	TopicPrefix string `json:"topic_prefix"`
	Username    string `json:"username"`
	Password    string `json:"password"`
}

// Store configures schedule persistence.
type Store struct {
	Path string `json:"path"`
}

func (s *Store) SetDefaults() {
	if s.Path == "" {
		s.Path = "gridmpc.db"
	}
}

// SystemParams assembles the solver-facing parameter set from the config
// sections. Fuel price is converted from EUR/kWh to EUR/MWh.
func (c *Config) SystemParams() model.SystemParams {
	return model.SystemParams{
		TimestepH:       c.Project.TimestepH,
		ImportMaxMW:     c.System.ImportMaxMW,
		ExportMaxMW:     c.System.ExportMaxMW,
		ElyNomMW:        c.System.ElyNomMW,
		ElyMinMW:        c.System.ElyMinMW,
		FCNomMW:         c.System.FCNomMW,
		FCMinMW:         c.System.FCMinMW,
		DGNomMW:         c.System.DGNomMW,
		DGMinMW:         c.System.DGMinMW,
		EtaEly:          c.System.EtaEly,
		EtaFC:           c.System.EtaFC,
		EtaDG:           c.System.EtaDG,
		H2StorageMWh:    c.System.H2StorageMWh,
		FuelPrice:       c.Prices.FuelEURPerKWh * 1000,
		CurtailPenalty:  c.Solver.CurtailPenalty,
		ExclusiveImpExp: c.Solver.MutualExclusion == nil || *c.Solver.MutualExclusion,
	}
}
