// Package controller implements the receding-horizon dispatch loop: at each
// hour a full-horizon optimization is solved, only the first hour's decision
// is committed, and the resulting storage state feeds the next step.
package controller

import (
	"context"
	"fmt"

	"github.com/gridmpc/gridmpc/core/horizon"
	"github.com/gridmpc/gridmpc/core/logger"
	"github.com/gridmpc/gridmpc/core/model"
)

// HorizonSolver is the single-window optimization the controller drives.
// *horizon.Solver implements it; tests may inject canned results.
type HorizonSolver interface {
	Solve(ctx context.Context, w *model.ScenarioWindow, socInit float64) (*model.HorizonResult, error)
}

// Hooks observe committed steps. Both fields are optional.
type Hooks struct {
	// OnCommit is called after each hour is appended to the schedule.
	OnCommit func(row model.CommittedRow)
}

// Controller advances hour by hour across the scenario table.
type Controller struct {
	solver  HorizonSolver
	horizon int
	log     logger.Logger
	hooks   Hooks
}

// New returns a Controller solving windows of the given length.
func New(solver HorizonSolver, horizonH int, log logger.Logger, hooks Hooks) (*Controller, error) {
	if solver == nil {
		return nil, fmt.Errorf("controller: nil solver")
	}
	if horizonH < 1 {
		return nil, fmt.Errorf("controller: horizon %d < 1", horizonH)
	}
	return &Controller{solver: solver, horizon: horizonH, log: log, hooks: hooks}, nil
}

// Run executes the receding-horizon loop from the start hour until the
// window no longer fits in the table. The schedule committed so far is
// returned alongside any error, so a failed run remains a valid, resumable
// artifact.
func (c *Controller) Run(ctx context.Context, table *model.ScenarioTable, params model.SystemParams, startHour int, socInit float64) (*model.CommittedSchedule, error) {
	if err := table.Validate(); err != nil {
		return &model.CommittedSchedule{}, err
	}

	schedule := &model.CommittedSchedule{}
	soc := socInit
	// The loop stops once the window would reach past the last available
	// hour: Done when hour+H > lastHour.
	lastHour := table.Hours() - 1

	for hour := startHour; hour+c.horizon <= lastHour; hour++ {
		if err := ctx.Err(); err != nil {
			return schedule, err
		}

		window, err := table.Window(hour, c.horizon, params)
		if err != nil {
			return schedule, err
		}

		res, err := c.solver.Solve(ctx, window, soc)
		if err != nil {
			return schedule, fmt.Errorf("solve at hour %d: %w", hour, err)
		}

		first := res.Decisions[0]
		soc = first.SOCMWh
		row := model.CommittedRow{Hour: hour, Decision: first, Objective: res.Objective}
		schedule.Append(row)
		if c.hooks.OnCommit != nil {
			c.hooks.OnCommit(row)
		}
		c.log.Debugw("committed hour", map[string]any{
			"hour":      hour,
			"soc_mwh":   soc,
			"objective": res.Objective,
		})
	}

	c.log.Infof("receding horizon done: %d hours committed", schedule.Len())
	return schedule, nil
}

var _ HorizonSolver = (*horizon.Solver)(nil)
