// Package export serializes committed schedules for downstream reporting.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/gridmpc/gridmpc/core/model"
)

// scheduleHeader is the column set consumed by the reporting tooling; order
// and names must stay stable.
var scheduleHeader = []string{
	"hour", "p_import_mw", "p_export_mw", "p_ely_mw", "p_fc_mw",
	"p_dg_mw", "p_curt_mw", "soc_mwh", "objective_eur",
}

// WriteJSON writes the committed schedule to w in JSON format.
func WriteJSON(w io.Writer, schedule *model.CommittedSchedule) error {
	enc := json.NewEncoder(w)
	return enc.Encode(schedule.Rows)
}

// WriteCSV writes the committed schedule to w with the reporting headers.
func WriteCSV(w io.Writer, schedule *model.CommittedSchedule) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(scheduleHeader); err != nil {
		return err
	}
	for _, row := range schedule.Rows {
		d := row.Decision
		rec := []string{
			strconv.Itoa(row.Hour),
			fmtFloat(d.ImportMW),
			fmtFloat(d.ExportMW),
			fmtFloat(d.ElyMW),
			fmtFloat(d.FCMW),
			fmtFloat(d.DGMW),
			fmtFloat(d.CurtailMW),
			fmtFloat(d.SOCMWh),
			fmtFloat(row.Objective),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a schedule previously written by WriteCSV.
func ReadCSV(r io.Reader) (*model.CommittedSchedule, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, err
	}
	if len(header) != len(scheduleHeader) {
		return nil, fmt.Errorf("export: schedule header has %d columns, want %d", len(header), len(scheduleHeader))
	}
	schedule := &model.CommittedSchedule{}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		vals := make([]float64, len(rec)-1)
		hour, err := strconv.Atoi(rec[0])
		if err != nil {
			return nil, err
		}
		for i, f := range rec[1:] {
			if vals[i], err = strconv.ParseFloat(f, 64); err != nil {
				return nil, err
			}
		}
		schedule.Append(model.CommittedRow{
			Hour: hour,
			Decision: model.DispatchDecision{
				ImportMW:  vals[0],
				ExportMW:  vals[1],
				ElyMW:     vals[2],
				FCMW:      vals[3],
				DGMW:      vals[4],
				CurtailMW: vals[5],
				SOCMWh:    vals[6],
			},
			Objective: vals[7],
		})
	}
	return schedule, nil
}

func fmtFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
