package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gridmpc/gridmpc/core/model"
)

// PromSink records solver and dispatch metrics in Prometheus collectors.
type PromSink struct {
	solves    *prometheus.CounterVec
	solveTime *prometheus.HistogramVec
	objective prometheus.Gauge
	soc       prometheus.Gauge
	powers    *prometheus.GaugeVec
}

// NewPromSink registers the collectors on the provided registerer. If reg is
// nil, the default registerer is used. Already-registered collectors are
// reused.
func NewPromSink(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	solves := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gridmpc_solves_total",
		Help: "Total number of horizon solves",
	}, []string{"backend", "status"})
	solveTime := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gridmpc_solve_seconds",
		Help:    "Duration of one horizon solve",
		Buckets: prometheus.DefBuckets,
	}, []string{"backend"})
	objective := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gridmpc_horizon_objective_eur",
		Help: "Objective value of the most recent horizon solve",
	})
	soc := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gridmpc_soc_mwh",
		Help: "Hydrogen storage level after the last committed hour",
	})
	powers := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "gridmpc_committed_power_mw",
		Help: "Committed power setpoints of the last hour",
	}, []string{"unit"})

	if err := reg.Register(solves); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			solves = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(solveTime); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			solveTime = are.ExistingCollector.(*prometheus.HistogramVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(objective); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			objective = are.ExistingCollector.(prometheus.Gauge)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(soc); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			soc = are.ExistingCollector.(prometheus.Gauge)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(powers); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			powers = are.ExistingCollector.(*prometheus.GaugeVec)
		} else {
			return nil, err
		}
	}

	return &PromSink{solves: solves, solveTime: solveTime, objective: objective, soc: soc, powers: powers}, nil
}

// RecordSolve implements Sink.
func (s *PromSink) RecordSolve(backend string, d time.Duration, objective float64, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	s.solves.WithLabelValues(backend, status).Inc()
	s.solveTime.WithLabelValues(backend).Observe(d.Seconds())
	if err == nil {
		s.objective.Set(objective)
	}
}

// RecordCommit implements Sink.
func (s *PromSink) RecordCommit(row model.CommittedRow) {
	d := row.Decision
	s.soc.Set(d.SOCMWh)
	s.powers.WithLabelValues("import").Set(d.ImportMW)
	s.powers.WithLabelValues("export").Set(d.ExportMW)
	s.powers.WithLabelValues("electrolyzer").Set(d.ElyMW)
	s.powers.WithLabelValues("fuel_cell").Set(d.FCMW)
	s.powers.WithLabelValues("diesel").Set(d.DGMW)
	s.powers.WithLabelValues("curtailment").Set(d.CurtailMW)
}

// StartPromServer serves the default registry on /metrics until the context
// is cancelled.
func StartPromServer(ctx context.Context, port string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: ":" + port, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
