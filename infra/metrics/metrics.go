// Package metrics records solver and controller events in observability
// sinks. Prometheus and InfluxDB implementations are provided; a NopSink
// stands in when no sink is configured.
package metrics

import (
	"time"

	"github.com/gridmpc/gridmpc/core/model"
)

// Sink receives solve and commit events from the controller.
type Sink interface {
	// RecordSolve is called once per horizon solve.
	RecordSolve(backend string, duration time.Duration, objective float64, err error)
	// RecordCommit is called once per committed hour.
	RecordCommit(row model.CommittedRow)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) RecordSolve(string, time.Duration, float64, error) {}
func (NopSink) RecordCommit(model.CommittedRow)                   {}

// MultiSink fans events out to several sinks.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink combines sinks into one.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (m *MultiSink) RecordSolve(backend string, d time.Duration, obj float64, err error) {
	for _, s := range m.sinks {
		s.RecordSolve(backend, d, obj, err)
	}
}

func (m *MultiSink) RecordCommit(row model.CommittedRow) {
	for _, s := range m.sinks {
		s.RecordCommit(row)
	}
}
