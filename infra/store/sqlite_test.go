package store

import (
	"path/filepath"
	"testing"

	"github.com/gridmpc/gridmpc/core/model"
)

func tempStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := st.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return st
}

func TestSaveAndLoadOrdered(t *testing.T) {
	st := tempStore(t)

	rows := []model.CommittedRow{
		{Hour: 2, Objective: 30, Decision: model.DispatchDecision{ImportMW: 3, SOCMWh: 1.5}},
		{Hour: 0, Objective: 10, Decision: model.DispatchDecision{ImportMW: 1}},
		{Hour: 1, Objective: 20, Decision: model.DispatchDecision{ElyMW: 8, SOCMWh: 5.6}},
	}
	for _, r := range rows {
		if err := st.Save("run-a", r); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	got, err := st.Load("run-a")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Len() != 3 {
		t.Fatalf("expected 3 rows, got %d", got.Len())
	}
	for i, r := range got.Rows {
		if r.Hour != i {
			t.Fatalf("rows not ordered by hour: %v", got.Rows)
		}
	}
	if got.Rows[1].Decision.ElyMW != 8 || got.Rows[1].Objective != 20 {
		t.Fatalf("row 1 mangled: %+v", got.Rows[1])
	}
}

func TestSaveUpserts(t *testing.T) {
	st := tempStore(t)

	if err := st.Save("run-a", model.CommittedRow{Hour: 0, Decision: model.DispatchDecision{ImportMW: 1}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := st.Save("run-a", model.CommittedRow{Hour: 0, Decision: model.DispatchDecision{ImportMW: 9}}); err != nil {
		t.Fatalf("resave: %v", err)
	}
	got, err := st.Load("run-a")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Len() != 1 || got.Rows[0].Decision.ImportMW != 9 {
		t.Fatalf("expected single updated row, got %+v", got.Rows)
	}
}

func TestRunsAreIsolated(t *testing.T) {
	st := tempStore(t)

	_ = st.Save("run-a", model.CommittedRow{Hour: 0})
	_ = st.Save("run-b", model.CommittedRow{Hour: 0})
	_ = st.Save("run-b", model.CommittedRow{Hour: 1})

	runs, err := st.Runs()
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %v", runs)
	}
	b, err := st.Load("run-b")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if b.Len() != 2 {
		t.Fatalf("expected 2 rows for run-b, got %d", b.Len())
	}
	empty, err := st.Load("run-c")
	if err != nil {
		t.Fatalf("load missing run: %v", err)
	}
	if empty.Len() != 0 {
		t.Fatalf("expected empty schedule for unknown run")
	}
}
