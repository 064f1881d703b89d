package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gridmpc/gridmpc/config"
	"github.com/gridmpc/gridmpc/core/model"
	"github.com/gridmpc/gridmpc/core/report"
	"github.com/gridmpc/gridmpc/infra/store"
	"github.com/gridmpc/gridmpc/infra/timeseries"
	"github.com/gridmpc/gridmpc/pkg/export"
)

var (
	reportRunID string
	reportCSV   string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarize energy and cost KPIs of a committed schedule",
	RunE:  buildReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportRunID, "run", "", "run ID to load from the schedule store")
	reportCmd.Flags().StringVar(&reportCSV, "csv", "", "schedule CSV file to summarize instead of a stored run")
	rootCmd.AddCommand(reportCmd)
}

func buildReport(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	schedule, err := loadSchedule(cfg)
	if err != nil {
		return err
	}
	if schedule.Len() == 0 {
		return fmt.Errorf("schedule is empty")
	}

	table, _, err := timeseries.Load(cfg)
	if err != nil {
		return fmt.Errorf("load timeseries: %w", err)
	}

	summary, err := report.Build(table, schedule, cfg.SystemParams())
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}

func loadSchedule(cfg *config.Config) (*model.CommittedSchedule, error) {
	if reportCSV != "" {
		f, err := os.Open(reportCSV)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return export.ReadCSV(f)
	}

	st, err := store.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("schedule store: %w", err)
	}
	defer st.Close()

	runID := reportRunID
	if runID == "" {
		runs, err := st.Runs()
		if err != nil {
			return nil, err
		}
		switch len(runs) {
		case 0:
			return nil, fmt.Errorf("no stored runs in %s", cfg.Store.Path)
		case 1:
			runID = runs[0]
		default:
			return nil, fmt.Errorf("%d stored runs, pick one with --run: %v", len(runs), runs)
		}
	}
	return st.Load(runID)
}
