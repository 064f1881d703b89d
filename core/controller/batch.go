package controller

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/gridmpc/gridmpc/core/model"
)

// Scenario parameterizes one independent receding-horizon run. Nil fields
// keep the base value, so a zero override stays expressible.
type Scenario struct {
	// FuelPrice overrides SystemParams.FuelPrice [EUR/MWh].
	FuelPrice *float64
	// LoadScale multiplies the load series.
	LoadScale *float64
	// Label names the scenario in outputs, e.g. "cf045".
	Label string
}

// ScenarioResult pairs a scenario with its committed schedule. Err is set
// when the run stopped early; the schedule then holds the committed prefix.
type ScenarioResult struct {
	RunID    string
	Scenario Scenario
	Schedule *model.CommittedSchedule
	Err      error
}

// RunScenarios executes the scenarios in parallel. Runs are fully
// independent: each gets its own table copy and schedule, so no
// synchronization beyond the final gather is needed.
func (c *Controller) RunScenarios(ctx context.Context, table *model.ScenarioTable, params model.SystemParams, startHour int, socInit float64, scenarios []Scenario) []ScenarioResult {
	results := make([]ScenarioResult, len(scenarios))
	var wg sync.WaitGroup
	for i, sc := range scenarios {
		wg.Add(1)
		go func(i int, sc Scenario) {
			defer wg.Done()
			results[i] = c.runScenario(ctx, table, params, startHour, socInit, sc)
		}(i, sc)
	}
	wg.Wait()
	return results
}

func (c *Controller) runScenario(ctx context.Context, table *model.ScenarioTable, params model.SystemParams, startHour int, socInit float64, sc Scenario) ScenarioResult {
	runParams := params
	if sc.FuelPrice != nil {
		runParams.FuelPrice = *sc.FuelPrice
	}
	runTable := table
	if sc.LoadScale != nil && *sc.LoadScale != 1 {
		runTable = table.Scale(*sc.LoadScale)
	}

	res := ScenarioResult{RunID: uuid.NewString(), Scenario: sc}
	c.log.Infof("scenario %s (run %s): fuel=%.2f EUR/MWh", label(sc), res.RunID, runParams.FuelPrice)
	res.Schedule, res.Err = c.Run(ctx, runTable, runParams, startHour, socInit)
	return res
}

func label(sc Scenario) string {
	if sc.Label != "" {
		return sc.Label
	}
	if sc.FuelPrice != nil {
		return fmt.Sprintf("fuel_%.2f", *sc.FuelPrice)
	}
	return "base"
}
