package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gridmpc/gridmpc/core/model"
)

type recordSink struct {
	solves  int
	commits int
}

func (r *recordSink) RecordSolve(string, time.Duration, float64, error) { r.solves++ }
func (r *recordSink) RecordCommit(model.CommittedRow)                   { r.commits++ }

func TestMultiSinkFansOut(t *testing.T) {
	a, b := &recordSink{}, &recordSink{}
	m := NewMultiSink(a, b)

	m.RecordSolve("simplex-bnb", time.Millisecond, 400, nil)
	m.RecordCommit(model.CommittedRow{Hour: 0})
	m.RecordSolve("cbc", time.Millisecond, 0, errors.New("boom"))

	if a.solves != 2 || b.solves != 2 {
		t.Fatalf("solves not fanned out: %d/%d", a.solves, b.solves)
	}
	if a.commits != 1 || b.commits != 1 {
		t.Fatalf("commits not fanned out: %d/%d", a.commits, b.commits)
	}
}

func TestPromSinkReregistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewPromSink(reg)
	if err != nil {
		t.Fatalf("first sink: %v", err)
	}
	second, err := NewPromSink(reg)
	if err != nil {
		t.Fatalf("second sink must reuse collectors: %v", err)
	}

	first.RecordSolve("cbc", 10*time.Millisecond, 400, nil)
	second.RecordSolve("cbc", 10*time.Millisecond, 380, nil)
	second.RecordCommit(model.CommittedRow{Hour: 3, Decision: model.DispatchDecision{ImportMW: 4, SOCMWh: 2}})

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	byName := map[string]bool{}
	for _, f := range families {
		byName[f.GetName()] = true
	}
	for _, want := range []string{"gridmpc_solves_total", "gridmpc_solve_seconds", "gridmpc_horizon_objective_eur", "gridmpc_soc_mwh", "gridmpc_committed_power_mw"} {
		if !byName[want] {
			t.Fatalf("metric %s not registered", want)
		}
	}
	for _, f := range families {
		if f.GetName() != "gridmpc_solves_total" {
			continue
		}
		total := 0.0
		for _, m := range f.GetMetric() {
			total += m.GetCounter().GetValue()
		}
		if total != 2 {
			t.Fatalf("expected 2 recorded solves across both sinks, got %v", total)
		}
	}
}

func TestNopSinkIsSafe(t *testing.T) {
	var s Sink = NopSink{}
	s.RecordSolve("", 0, 0, nil)
	s.RecordCommit(model.CommittedRow{})
}
