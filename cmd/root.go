package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gridmpc/gridmpc/app"
	"github.com/gridmpc/gridmpc/config"
	"github.com/gridmpc/gridmpc/core/controller"
	"github.com/gridmpc/gridmpc/infra/logger"
	"github.com/gridmpc/gridmpc/infra/metrics"
	"github.com/gridmpc/gridmpc/pkg/export"
)

var (
	cfgPath    string
	fuelValues []float64
	outDir     string
)

var rootCmd = &cobra.Command{
	Use:   "gridmpc",
	Short: "Receding-horizon microgrid dispatch",
	RunE:  run,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "configuration file")
	rootCmd.Flags().Float64SliceVar(&fuelValues, "fuel-values", nil, "fuel prices to run, in EUR/kWh (default: from config)")
	rootCmd.Flags().StringVarP(&outDir, "out", "o", "out", "output directory for schedule CSVs")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

func run(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logg := logger.New("main")

	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logg.Errorf("service close: %v", err)
		}
	}()

	if cfg.Metrics.PrometheusEnabled {
		go func() {
			if err := metrics.StartPromServer(ctx, cfg.Metrics.PrometheusPort); err != nil {
				logg.Errorf("prom server: %v", err)
			}
		}()
	}

	table, err := svc.LoadTable()
	if err != nil {
		return fmt.Errorf("load timeseries: %w", err)
	}

	fuels := fuelValues
	if len(fuels) == 0 {
		fuels = []float64{cfg.Prices.FuelEURPerKWh}
		if cfg.Prices.FuelAltEURPerKWh != nil {
			fuels = append(fuels, *cfg.Prices.FuelAltEURPerKWh)
		}
	}

	results, err := svc.RunScenarios(ctx, table, fuels)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	var failed int
	for _, res := range results {
		name := "schedule.csv"
		if len(results) > 1 {
			name = fmt.Sprintf("schedule_%s.csv", res.Scenario.Label)
		}
		if err := writeScheduleCSV(filepath.Join(outDir, name), res); err != nil {
			return err
		}
		if res.Err != nil {
			logg.Errorf("run %s (%s) stopped after %d hours: %v",
				res.RunID, res.Scenario.Label, res.Schedule.Len(), res.Err)
			failed++
			continue
		}
		logg.Infof("run %s (%s): %d hours committed", res.RunID, res.Scenario.Label, res.Schedule.Len())
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d scenario runs failed", failed, len(results))
	}
	return nil
}

func writeScheduleCSV(path string, res controller.ScenarioResult) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := export.WriteCSV(f, res.Schedule); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
