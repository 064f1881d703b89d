// Package app wires configuration, data loading, solver backends, metrics
// and the receding-horizon controller into a runnable service.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gridmpc/gridmpc/config"
	"github.com/gridmpc/gridmpc/core/controller"
	"github.com/gridmpc/gridmpc/core/horizon"
	"github.com/gridmpc/gridmpc/core/model"
	"github.com/gridmpc/gridmpc/infra/logger"
	"github.com/gridmpc/gridmpc/infra/metrics"
	"github.com/gridmpc/gridmpc/infra/mqtt"
	"github.com/gridmpc/gridmpc/infra/solver"
	"github.com/gridmpc/gridmpc/infra/store"
	"github.com/gridmpc/gridmpc/infra/timeseries"
)

// Service holds the assembled components of one gridmpc invocation.
type Service struct {
	Cfg *config.Config

	log   logger.Logger
	sink  metrics.Sink
	pub   mqtt.Publisher
	store *store.SQLiteStore
	hs    *horizon.Solver
}

// New builds a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("gridmpc")

	chain, err := solver.FromNames(cfg.Solver.Backends,
		solver.WithTimeout(time.Duration(cfg.Solver.TimeoutSeconds)*time.Second),
		solver.WithLogger(logg),
	)
	if err != nil {
		return nil, err
	}

	var sinks []metrics.Sink
	if cfg.Metrics.PrometheusEnabled {
		sink, err := metrics.NewPromSink(nil)
		if err != nil {
			return nil, fmt.Errorf("prom sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	if cfg.Metrics.InfluxEnabled {
		sinks = append(sinks, metrics.NewInfluxSinkWithFallback(
			cfg.Metrics.InfluxURL, cfg.Metrics.InfluxToken,
			cfg.Metrics.InfluxOrg, cfg.Metrics.InfluxBucket,
			logger.New("influx-sink")))
	}
	var sink metrics.Sink = metrics.NopSink{}
	if len(sinks) == 1 {
		sink = sinks[0]
	} else if len(sinks) > 1 {
		sink = metrics.NewMultiSink(sinks...)
	}

	var pub mqtt.Publisher
	if cfg.MQTT.Enabled {
		pub, err = mqtt.NewPahoPublisher(cfg.MQTT.Broker, cfg.MQTT.ClientID,
			cfg.MQTT.Username, cfg.MQTT.Password, cfg.MQTT.TopicPrefix)
		if err != nil {
			return nil, fmt.Errorf("mqtt publisher: %w", err)
		}
	}

	st, err := store.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("schedule store: %w", err)
	}

	return &Service{
		Cfg:   cfg,
		log:   logg,
		sink:  sink,
		pub:   pub,
		store: st,
		hs:    horizon.New(chain, logg),
	}, nil
}

// LoadTable reads the configured CSV inputs.
func (s *Service) LoadTable() (*model.ScenarioTable, error) {
	table, meta, err := timeseries.Load(s.Cfg)
	if err != nil {
		return nil, err
	}
	s.log.Infof("loaded %d hours (pv %.1f MW, wind %.1f MW, load scale %.3f)",
		table.Hours(), meta.PVNomMW, meta.WindNomMW, meta.LoadScale)
	return table, nil
}

// SolveHorizon runs a single-window optimization.
func (s *Service) SolveHorizon(ctx context.Context, table *model.ScenarioTable, start, horizonH int, socInit float64, fuelEURPerKWh *float64) (*model.HorizonResult, error) {
	params := s.Cfg.SystemParams()
	if fuelEURPerKWh != nil {
		params.FuelPrice = *fuelEURPerKWh * 1000
	}
	window, err := table.Window(start, horizonH, params)
	if err != nil {
		return nil, err
	}
	started := time.Now()
	res, err := s.hs.Solve(ctx, window, socInit)
	backend := ""
	objective := 0.0
	if res != nil {
		backend, objective = res.Backend, res.Objective
	}
	s.sink.RecordSolve(backend, time.Since(started), objective, err)
	return res, err
}

// RunScenarios executes the receding-horizon loop for each fuel price, in
// parallel, and persists every resulting schedule. A scenario that failed
// midway keeps its committed prefix.
func (s *Service) RunScenarios(ctx context.Context, table *model.ScenarioTable, fuelEURPerKWh []float64) ([]controller.ScenarioResult, error) {
	scenarios := make([]controller.Scenario, len(fuelEURPerKWh))
	for i, f := range fuelEURPerKWh {
		fuel := f * 1000
		scenarios[i] = controller.Scenario{
			FuelPrice: &fuel,
			Label:     fuelLabel(f),
		}
	}

	ctl, err := controller.New(s.instrumented(), s.Cfg.Project.HorizonH, s.log, controller.Hooks{
		OnCommit: func(row model.CommittedRow) {
			s.sink.RecordCommit(row)
			if s.pub != nil {
				if err := s.pub.PublishSetpoints(row); err != nil {
					s.log.Warnf("publish setpoints for hour %d: %v", row.Hour, err)
				}
			}
		},
	})
	if err != nil {
		return nil, err
	}

	results := ctl.RunScenarios(ctx, table, s.Cfg.SystemParams(),
		s.Cfg.Project.StartHour, s.Cfg.Project.SOCInitMWh, scenarios)

	for _, res := range results {
		for _, row := range res.Schedule.Rows {
			if err := s.store.Save(res.RunID, row); err != nil {
				return results, fmt.Errorf("persist run %s: %w", res.RunID, err)
			}
		}
	}
	return results, nil
}

// instrumented wraps the horizon solver so every solve is timed and
// reported to the metrics sink.
func (s *Service) instrumented() controller.HorizonSolver {
	return solveFunc(func(ctx context.Context, w *model.ScenarioWindow, socInit float64) (*model.HorizonResult, error) {
		started := time.Now()
		res, err := s.hs.Solve(ctx, w, socInit)
		backend := ""
		objective := 0.0
		if res != nil {
			backend, objective = res.Backend, res.Objective
		}
		s.sink.RecordSolve(backend, time.Since(started), objective, err)
		return res, err
	})
}

type solveFunc func(ctx context.Context, w *model.ScenarioWindow, socInit float64) (*model.HorizonResult, error)

func (f solveFunc) Solve(ctx context.Context, w *model.ScenarioWindow, socInit float64) (*model.HorizonResult, error) {
	return f(ctx, w, socInit)
}

// Close releases held resources.
func (s *Service) Close() error {
	if s.pub != nil {
		s.pub.Close()
	}
	return s.store.Close()
}

func fuelLabel(eurPerKWh float64) string {
	return fmt.Sprintf("cf%03.0f", eurPerKWh*100)
}
