package cmd

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gridmpc/gridmpc/app"
	"github.com/gridmpc/gridmpc/config"
	"github.com/gridmpc/gridmpc/infra/logger"
)

var (
	horizonStart   int
	horizonLength  int
	horizonSOCInit float64
	horizonFuel    float64
	horizonOut     string
)

var horizonCmd = &cobra.Command{
	Use:   "horizon",
	Short: "Solve a single optimization window without committing",
	RunE:  solveHorizon,
}

func init() {
	horizonCmd.Flags().IntVar(&horizonStart, "start", 0, "first hour of the window")
	horizonCmd.Flags().IntVar(&horizonLength, "horizon", 0, "window length in hours (default: from config)")
	horizonCmd.Flags().Float64Var(&horizonSOCInit, "soc-init", 0, "initial hydrogen storage level in MWh")
	horizonCmd.Flags().Float64Var(&horizonFuel, "fuel", 0, "fuel price override in EUR/kWh")
	horizonCmd.Flags().StringVarP(&horizonOut, "out", "o", "", "write the hourly plan as CSV to this file")
	rootCmd.AddCommand(horizonCmd)
}

func solveHorizon(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logg := logger.New("horizon-command")

	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logg.Errorf("service close: %v", err)
		}
	}()

	table, err := svc.LoadTable()
	if err != nil {
		return fmt.Errorf("load timeseries: %w", err)
	}

	length := horizonLength
	if length == 0 {
		length = cfg.Project.HorizonH
	}
	var fuel *float64
	if cmd.Flags().Changed("fuel") {
		fuel = &horizonFuel
	}

	res, err := svc.SolveHorizon(ctx, table, horizonStart, length, horizonSOCInit, fuel)
	if err != nil {
		return err
	}

	fmt.Printf("backend=%s objective=%.4f EUR\n", res.Backend, res.Objective)
	for i, d := range res.Decisions {
		fmt.Printf("h%-4d imp=%6.2f exp=%6.2f ely=%6.2f fc=%6.2f dg=%6.2f curt=%6.2f soc=%7.3f\n",
			res.Start+i, d.ImportMW, d.ExportMW, d.ElyMW, d.FCMW, d.DGMW, d.CurtailMW, d.SOCMWh)
	}

	if horizonOut == "" {
		return nil
	}
	f, err := os.Create(horizonOut)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(f)
	header := []string{"hour", "p_import_mw", "p_export_mw", "p_ely_mw", "p_fc_mw", "p_dg_mw", "p_curt_mw", "soc_mwh"}
	if err := cw.Write(header); err != nil {
		f.Close()
		return err
	}
	ff := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	for i, d := range res.Decisions {
		rec := []string{
			strconv.Itoa(res.Start + i),
			ff(d.ImportMW), ff(d.ExportMW), ff(d.ElyMW), ff(d.FCMW),
			ff(d.DGMW), ff(d.CurtailMW), ff(d.SOCMWh),
		}
		if err := cw.Write(rec); err != nil {
			f.Close()
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
