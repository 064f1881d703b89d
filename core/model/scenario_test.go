package model

import (
	"errors"
	"testing"
)

func validParams() SystemParams {
	return SystemParams{
		TimestepH:    1,
		ImportMaxMW:  20,
		ExportMaxMW:  20,
		ElyNomMW:     5,
		FCNomMW:      4,
		DGNomMW:      6,
		EtaEly:       0.7,
		EtaFC:        0.5,
		EtaDG:        0.6,
		H2StorageMWh: 20,
		FuelPrice:    450,
	}
}

func table(n int) *ScenarioTable {
	t := &ScenarioTable{
		LoadMW:      make([]float64, n),
		PVMW:        make([]float64, n),
		WindMW:      make([]float64, n),
		ImportPrice: make([]float64, n),
		ExportPrice: make([]float64, n),
	}
	for i := 0; i < n; i++ {
		t.LoadMW[i] = float64(i + 1)
		t.ImportPrice[i] = 100
		t.ExportPrice[i] = 50
	}
	return t
}

func TestTableValidateMismatch(t *testing.T) {
	tab := table(4)
	tab.PVMW = tab.PVMW[:3]
	err := tab.Validate()
	var se *ShapeError
	if !errors.As(err, &se) {
		t.Fatalf("expected ShapeError, got %v", err)
	}
}

func TestWindowBounds(t *testing.T) {
	tab := table(10)
	w, err := tab.Window(2, 3, validParams())
	if err != nil {
		t.Fatalf("window: %v", err)
	}
	if w.Start != 2 || w.Hours() != 3 {
		t.Fatalf("bad window start=%d hours=%d", w.Start, w.Hours())
	}
	if w.LoadMW[0] != 3 {
		t.Fatalf("expected load 3 at window start, got %v", w.LoadMW[0])
	}

	if _, err := tab.Window(8, 3, validParams()); err == nil {
		t.Fatalf("expected out-of-range error")
	}
	if _, err := tab.Window(0, 0, validParams()); err == nil {
		t.Fatalf("expected horizon error")
	}
	if _, err := tab.Window(-1, 2, validParams()); err == nil {
		t.Fatalf("expected negative start error")
	}
}

func TestScaleCopiesTable(t *testing.T) {
	tab := table(3)
	scaled := tab.Scale(2)
	if scaled.LoadMW[1] != 4 {
		t.Fatalf("expected 4, got %v", scaled.LoadMW[1])
	}
	if tab.LoadMW[1] != 2 {
		t.Fatalf("original table mutated: %v", tab.LoadMW[1])
	}
	scaled.ImportPrice[0] = 999
	if tab.ImportPrice[0] == 999 {
		t.Fatalf("price series shared with original")
	}
}

func TestParamsValidate(t *testing.T) {
	p := validParams()
	if err := p.Validate(); err != nil {
		t.Fatalf("valid params rejected: %v", err)
	}

	p = validParams()
	p.TimestepH = 0
	if err := p.Validate(); err == nil {
		t.Fatalf("expected timestep error")
	}

	p = validParams()
	p.EtaFC = 1.2
	if err := p.Validate(); err == nil {
		t.Fatalf("expected efficiency error")
	}

	p = validParams()
	p.DGMinMW = p.DGNomMW + 1
	if err := p.Validate(); err == nil {
		t.Fatalf("expected min>nom error")
	}
}

func TestScheduleAppendAndLastSOC(t *testing.T) {
	s := &CommittedSchedule{}
	if got := s.LastSOC(3.3); got != 3.3 {
		t.Fatalf("empty schedule should fall back, got %v", got)
	}
	s.Append(CommittedRow{Hour: 0, Decision: DispatchDecision{SOCMWh: 1.5}})
	s.Append(CommittedRow{Hour: 1, Decision: DispatchDecision{SOCMWh: 2.5}})
	if got := s.LastSOC(0); got != 2.5 {
		t.Fatalf("expected 2.5, got %v", got)
	}
	if s.Len() != 2 {
		t.Fatalf("expected len 2, got %d", s.Len())
	}
}
