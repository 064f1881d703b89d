// Package store persists committed schedules in a SQLite database so
// interrupted runs can be inspected and resumed.
package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/gridmpc/gridmpc/core/model"
)

// SQLiteStore persists committed schedule rows keyed by run and hour.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database and ensures the schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	schema := `CREATE TABLE IF NOT EXISTS mpc_schedule (
        run_id TEXT,
        hour INTEGER,
        p_import_mw REAL,
        p_export_mw REAL,
        p_ely_mw REAL,
        p_fc_mw REAL,
        p_dg_mw REAL,
        p_curt_mw REAL,
        soc_mwh REAL,
        objective_eur REAL,
        PRIMARY KEY(run_id, hour)
    );`
	if _, err := db.Exec(schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Save inserts or replaces one committed row for the given run.
func (s *SQLiteStore) Save(runID string, row model.CommittedRow) error {
	d := row.Decision
	_, err := s.db.Exec(`INSERT INTO mpc_schedule
        (run_id, hour, p_import_mw, p_export_mw, p_ely_mw, p_fc_mw, p_dg_mw, p_curt_mw, soc_mwh, objective_eur)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(run_id, hour) DO UPDATE SET
        p_import_mw=excluded.p_import_mw,
        p_export_mw=excluded.p_export_mw,
        p_ely_mw=excluded.p_ely_mw,
        p_fc_mw=excluded.p_fc_mw,
        p_dg_mw=excluded.p_dg_mw,
        p_curt_mw=excluded.p_curt_mw,
        soc_mwh=excluded.soc_mwh,
        objective_eur=excluded.objective_eur`,
		runID, row.Hour, d.ImportMW, d.ExportMW, d.ElyMW, d.FCMW, d.DGMW, d.CurtailMW, d.SOCMWh, row.Objective)
	return err
}

// Load returns the schedule of one run ordered by hour.
func (s *SQLiteStore) Load(runID string) (*model.CommittedSchedule, error) {
	rows, err := s.db.Query(`SELECT hour, p_import_mw, p_export_mw, p_ely_mw, p_fc_mw, p_dg_mw, p_curt_mw, soc_mwh, objective_eur
        FROM mpc_schedule WHERE run_id = ? ORDER BY hour`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	schedule := &model.CommittedSchedule{}
	for rows.Next() {
		var r model.CommittedRow
		d := &r.Decision
		if err := rows.Scan(&r.Hour, &d.ImportMW, &d.ExportMW, &d.ElyMW, &d.FCMW, &d.DGMW, &d.CurtailMW, &d.SOCMWh, &r.Objective); err != nil {
			return nil, err
		}
		schedule.Append(r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return schedule, nil
}

// Runs lists the stored run ids.
func (s *SQLiteStore) Runs() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT run_id FROM mpc_schedule ORDER BY run_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }
