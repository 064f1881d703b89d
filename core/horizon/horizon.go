// Package horizon builds and solves the single-window dispatch optimization:
// a mixed-integer program that meets the forecast load at minimum cost using
// grid exchange, the diesel generator and the hydrogen storage chain.
package horizon

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/gridmpc/gridmpc/core/logger"
	"github.com/gridmpc/gridmpc/core/milp"
	"github.com/gridmpc/gridmpc/core/model"
)

// DefaultCurtailPenalty breaks ties in favor of using renewable energy over
// curtailing it. It must stay small enough to never override a real
// economic trade-off.
const DefaultCurtailPenalty = 1.0

// balanceTol is the allowed energy-balance residual per hour, relative to
// the load scale. Larger residuals are logged, never fatal.
const balanceTol = 1e-6

// InfeasibleError reports a window with no feasible dispatch.
type InfeasibleError struct {
	StartHour int
}

func (e *InfeasibleError) Error() string {
	return fmt.Sprintf("horizon starting at hour %d is infeasible", e.StartHour)
}

// UnboundedError reports a window whose cost can decrease without limit.
type UnboundedError struct {
	StartHour int
}

func (e *UnboundedError) Error() string {
	return fmt.Sprintf("horizon starting at hour %d is unbounded", e.StartHour)
}

// Solver turns scenario windows into MILPs and solves them through a
// backend, usually a solver.Chain.
type Solver struct {
	backend milp.Backend
	log     logger.Logger
}

// New returns a Solver using the given backend and logger.
func New(backend milp.Backend, log logger.Logger) *Solver {
	return &Solver{backend: backend, log: log}
}

// vars holds the per-hour variable ids of one assembled program.
type vars struct {
	imp, exp, ely, fc, dg, curt []milp.VarID
	uDG, uEly, uFC              []milp.VarID
	uImp, uExp                  []milp.VarID
	soc                         []milp.VarID // H+1 entries, soc[0] fixed
}

// Solve builds and solves the window's program and returns the optimal
// dispatch for every hour plus the total window cost.
func (s *Solver) Solve(ctx context.Context, w *model.ScenarioWindow, socInit float64) (*model.HorizonResult, error) {
	if err := w.Params.Validate(); err != nil {
		return nil, err
	}
	if socInit < 0 || socInit > w.Params.H2StorageMWh {
		return nil, fmt.Errorf("initial SOC %v outside [0, %v]", socInit, w.Params.H2StorageMWh)
	}

	p, v, err := build(w, socInit)
	if err != nil {
		return nil, err
	}

	sol, err := s.backend.Solve(ctx, p)
	switch {
	case errors.Is(err, milp.ErrInfeasible):
		return nil, &InfeasibleError{StartHour: w.Start}
	case errors.Is(err, milp.ErrUnbounded):
		return nil, &UnboundedError{StartHour: w.Start}
	case err != nil:
		return nil, err
	}

	res := extract(w, sol, v)
	s.checkBalance(w, res)
	return res, nil
}

// build assembles the MILP for the window. Decision variables, big-M flag
// links, storage dynamics and the cost objective follow the structure laid
// out in the package documentation.
func build(w *model.ScenarioWindow, socInit float64) (*milp.Program, *vars, error) {
	h := w.Hours()
	sys := w.Params
	dt := sys.TimestepH

	if sys.ExclusiveImpExp && (math.IsInf(sys.ImportMaxMW, 1) || math.IsInf(sys.ExportMaxMW, 1)) {
		return nil, nil, fmt.Errorf("import/export mutual exclusion requires finite grid capacities")
	}

	p := milp.New()
	v := &vars{
		imp:  make([]milp.VarID, h),
		exp:  make([]milp.VarID, h),
		ely:  make([]milp.VarID, h),
		fc:   make([]milp.VarID, h),
		dg:   make([]milp.VarID, h),
		curt: make([]milp.VarID, h),
		uDG:  make([]milp.VarID, h),
		uEly: make([]milp.VarID, h),
		uFC:  make([]milp.VarID, h),
		soc:  make([]milp.VarID, h+1),
	}
	if sys.ExclusiveImpExp {
		v.uImp = make([]milp.VarID, h)
		v.uExp = make([]milp.VarID, h)
	}

	for t := 0; t < h; t++ {
		v.imp[t] = p.Continuous(fmt.Sprintf("p_import_%d", t), 0, sys.ImportMaxMW)
		v.exp[t] = p.Continuous(fmt.Sprintf("p_export_%d", t), 0, sys.ExportMaxMW)
		v.ely[t] = p.Continuous(fmt.Sprintf("p_ely_%d", t), 0, sys.ElyNomMW)
		v.fc[t] = p.Continuous(fmt.Sprintf("p_fc_%d", t), 0, sys.FCNomMW)
		v.dg[t] = p.Continuous(fmt.Sprintf("p_dg_%d", t), 0, sys.DGNomMW)
		v.curt[t] = p.Continuous(fmt.Sprintf("p_curt_%d", t), 0, math.Inf(1))
		v.uDG[t] = p.Binary(fmt.Sprintf("u_dg_%d", t))
		v.uEly[t] = p.Binary(fmt.Sprintf("u_ely_%d", t))
		v.uFC[t] = p.Binary(fmt.Sprintf("u_fc_%d", t))
		if sys.ExclusiveImpExp {
			v.uImp[t] = p.Binary(fmt.Sprintf("u_import_%d", t))
			v.uExp[t] = p.Binary(fmt.Sprintf("u_export_%d", t))
		}
	}
	v.soc[0] = p.Continuous("soc_0", socInit, socInit)
	for t := 1; t <= h; t++ {
		v.soc[t] = p.Continuous(fmt.Sprintf("soc_%d", t), 0, sys.H2StorageMWh)
	}

	for t := 0; t < h; t++ {
		// Energy balance: PV + Wind + Import + Diesel + FuelCell equals
		// Load + Electrolyzer + Export + Curtailment.
		p.AddConstraint(fmt.Sprintf("balance_%d", t), milp.EQ,
			w.LoadMW[t]-w.PVMW[t]-w.WindMW[t],
			milp.Term{Var: v.imp[t], Coef: 1},
			milp.Term{Var: v.dg[t], Coef: 1},
			milp.Term{Var: v.fc[t], Coef: 1},
			milp.Term{Var: v.ely[t], Coef: -1},
			milp.Term{Var: v.exp[t], Coef: -1},
			milp.Term{Var: v.curt[t], Coef: -1},
		)

		// SOC[t+1] = SOC[t] + dt*(eta_ely*P_ely - P_fc/eta_fc).
		p.AddConstraint(fmt.Sprintf("soc_dyn_%d", t), milp.EQ, 0,
			milp.Term{Var: v.soc[t+1], Coef: 1},
			milp.Term{Var: v.soc[t], Coef: -1},
			milp.Term{Var: v.ely[t], Coef: -dt * sys.EtaEly},
			milp.Term{Var: v.fc[t], Coef: dt / sys.EtaFC},
		)

		// Flag-linked unit bounds. The upper link forces the power to zero
		// when the unit is off; the lower link makes the minimum technical
		// power bite only while the unit runs.
		addUnitLinks(p, t, "ely", v.ely[t], v.uEly[t], sys.ElyMinMW, sys.ElyNomMW)
		addUnitLinks(p, t, "fc", v.fc[t], v.uFC[t], sys.FCMinMW, sys.FCNomMW)
		addUnitLinks(p, t, "dg", v.dg[t], v.uDG[t], sys.DGMinMW, sys.DGNomMW)

		if sys.ExclusiveImpExp {
			p.AddConstraint(fmt.Sprintf("grid_excl_%d", t), milp.LE, 1,
				milp.Term{Var: v.uImp[t], Coef: 1},
				milp.Term{Var: v.uExp[t], Coef: 1},
			)
			p.AddConstraint(fmt.Sprintf("imp_link_%d", t), milp.LE, 0,
				milp.Term{Var: v.imp[t], Coef: 1},
				milp.Term{Var: v.uImp[t], Coef: -sys.ImportMaxMW},
			)
			p.AddConstraint(fmt.Sprintf("exp_link_%d", t), milp.LE, 0,
				milp.Term{Var: v.exp[t], Coef: 1},
				milp.Term{Var: v.uExp[t], Coef: -sys.ExportMaxMW},
			)
		}

		p.AddObjective(v.imp[t], w.ImportPrice[t]*dt)
		p.AddObjective(v.exp[t], -w.ExportPrice[t]*dt)
		p.AddObjective(v.dg[t], sys.FuelPrice/sys.EtaDG*dt)
		p.AddObjective(v.curt[t], sys.CurtailPenalty*dt)
	}

	return p, v, nil
}

func addUnitLinks(p *milp.Program, t int, unit string, power, flag milp.VarID, minMW, nomMW float64) {
	p.AddConstraint(fmt.Sprintf("%s_max_%d", unit, t), milp.LE, 0,
		milp.Term{Var: power, Coef: 1},
		milp.Term{Var: flag, Coef: -nomMW},
	)
	p.AddConstraint(fmt.Sprintf("%s_min_%d", unit, t), milp.GE, 0,
		milp.Term{Var: power, Coef: 1},
		milp.Term{Var: flag, Coef: -minMW},
	)
}

// extract converts the raw solution into a HorizonResult, clamping solver
// noise below zero.
func extract(w *model.ScenarioWindow, sol *milp.Solution, v *vars) *model.HorizonResult {
	h := w.Hours()
	res := &model.HorizonResult{
		Start:     w.Start,
		Decisions: make([]model.DispatchDecision, h),
		Objective: sol.Objective,
		Backend:   sol.Backend,
	}
	for t := 0; t < h; t++ {
		res.Decisions[t] = model.DispatchDecision{
			ImportMW:  clampNonNeg(sol.Value(v.imp[t])),
			ExportMW:  clampNonNeg(sol.Value(v.exp[t])),
			ElyMW:     clampNonNeg(sol.Value(v.ely[t])),
			FCMW:      clampNonNeg(sol.Value(v.fc[t])),
			DGMW:      clampNonNeg(sol.Value(v.dg[t])),
			CurtailMW: clampNonNeg(sol.Value(v.curt[t])),
			SOCMWh:    clampNonNeg(sol.Value(v.soc[t+1])),
			DGOn:      sol.Value(v.uDG[t]) > 0.5,
			ElyOn:     sol.Value(v.uEly[t]) > 0.5,
			FCOn:      sol.Value(v.uFC[t]) > 0.5,
		}
	}
	return res
}

func clampNonNeg(x float64) float64 {
	if x < 0 {
		return 0
	}
	return x
}

// checkBalance verifies the energy-balance residual of every hour against
// the solver tolerance and logs violations.
func (s *Solver) checkBalance(w *model.ScenarioWindow, res *model.HorizonResult) {
	for t, d := range res.Decisions {
		residual := w.PVMW[t] + w.WindMW[t] + d.ImportMW + d.DGMW + d.FCMW -
			w.LoadMW[t] - d.ElyMW - d.ExportMW - d.CurtailMW
		scale := math.Max(1, math.Abs(w.LoadMW[t]))
		if math.Abs(residual) > balanceTol*scale {
			s.log.Warnf("energy balance residual %.3e at hour %d exceeds tolerance", residual, w.Start+t)
		}
	}
}
