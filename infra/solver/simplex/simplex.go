// Package simplex provides a pure-Go MILP backend. LP relaxations are solved
// with gonum's simplex implementation and binary variables are resolved by
// depth-first branch and bound. It is the portable fallback backend: it has
// no external dependencies and behaves deterministically, at the cost of
// speed on large programs.
package simplex

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/gridmpc/gridmpc/core/milp"
)

const (
	simplexTol   = 1e-9
	integralTol  = 1e-6
	pruneTol     = 1e-9
	defaultNodes = 200000
)

// Backend solves MILPs via LP relaxation plus branch and bound.
type Backend struct {
	// MaxNodes bounds the branch-and-bound tree size. Zero means the
	// default limit.
	MaxNodes int
}

// New returns a Backend with the default node limit.
func New() *Backend { return &Backend{} }

// Name implements milp.Backend.
func (b *Backend) Name() string { return "simplex-bnb" }

// Solve implements milp.Backend.
func (b *Backend) Solve(ctx context.Context, p *milp.Program) (*milp.Solution, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("simplex: %w", err)
	}
	maxNodes := b.MaxNodes
	if maxNodes <= 0 {
		maxNodes = defaultNodes
	}

	n := len(p.Vars)
	lo := make([]float64, n)
	hi := make([]float64, n)
	for i, v := range p.Vars {
		if math.IsInf(v.Lo, -1) {
			return nil, fmt.Errorf("simplex: variable %s has no lower bound", v.Name)
		}
		lo[i], hi[i] = v.Lo, v.Hi
	}

	var (
		incumbent *milp.Solution
		nodes     int
	)
	type node struct{ lo, hi []float64 }
	stack := []node{{lo: lo, hi: hi}}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		nodes++
		if nodes > maxNodes {
			return nil, fmt.Errorf("simplex: node limit %d exceeded", maxNodes)
		}
		nd := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		obj, x, err := solveRelaxation(p, nd.lo, nd.hi)
		switch {
		case errors.Is(err, lp.ErrInfeasible):
			if nodes == 1 && incumbent == nil && len(stack) == 0 {
				return nil, milp.ErrInfeasible
			}
			continue
		case errors.Is(err, lp.ErrUnbounded):
			if nodes == 1 {
				return nil, milp.ErrUnbounded
			}
			continue
		case err != nil:
			return nil, fmt.Errorf("simplex: relaxation failed: %w", err)
		}
		if incumbent != nil && obj >= incumbent.Objective-pruneTol {
			continue
		}

		branch := mostFractionalBinary(p, x)
		if branch < 0 {
			sol := &milp.Solution{Objective: obj, Values: make([]float64, n)}
			copy(sol.Values, x)
			for i, v := range p.Vars {
				if v.Kind == milp.Binary {
					sol.Values[i] = math.Round(sol.Values[i])
				}
			}
			incumbent = sol
			continue
		}

		zeroLo, zeroHi := cloneBounds(nd.lo), cloneBounds(nd.hi)
		zeroHi[branch] = 0
		oneLo, oneHi := cloneBounds(nd.lo), cloneBounds(nd.hi)
		oneLo[branch] = 1
		// Push the less promising side first so the nearer integer is
		// explored next; ties go to the zero branch.
		if x[branch] >= 0.5 {
			stack = append(stack, node{zeroLo, zeroHi}, node{oneLo, oneHi})
		} else {
			stack = append(stack, node{oneLo, oneHi}, node{zeroLo, zeroHi})
		}
	}

	if incumbent == nil {
		return nil, milp.ErrInfeasible
	}
	return incumbent, nil
}

func cloneBounds(b []float64) []float64 {
	return append([]float64(nil), b...)
}

// mostFractionalBinary returns the binary variable furthest from an integer
// value, or -1 when all binaries are integral.
func mostFractionalBinary(p *milp.Program, x []float64) int {
	best, bestFrac := -1, integralTol
	for i, v := range p.Vars {
		if v.Kind != milp.Binary {
			continue
		}
		frac := math.Abs(x[i] - math.Round(x[i]))
		if frac > bestFrac {
			best, bestFrac = i, frac
		}
	}
	return best
}

// solveRelaxation solves the LP relaxation of p with the node's variable
// bounds. Variables are shifted to y = x - lo so the standard-form
// requirement y >= 0 holds, and finite upper bounds become slack rows.
func solveRelaxation(p *milp.Program, lo, hi []float64) (float64, []float64, error) {
	n := len(p.Vars)

	type row struct {
		coeffs map[int]float64
		rhs    float64
	}
	var rows []row

	addRow := func(coeffs map[int]float64, rhs float64) {
		rows = append(rows, row{coeffs: coeffs, rhs: rhs})
	}

	// Constraint rows, rewritten over the shifted variables. LE rows get a
	// slack, GE rows are negated into LE, EQ rows stay as-is (marked by a
	// nil slack via rhsEq bookkeeping below).
	type pending struct {
		coeffs  map[int]float64
		rhs     float64
		isEqual bool
	}
	var pend []pending
	for _, c := range p.Constraints {
		coeffs := make(map[int]float64, len(c.Terms))
		shift := 0.0
		for _, t := range c.Terms {
			coeffs[int(t.Var)] += t.Coef
			shift += t.Coef * lo[t.Var]
		}
		rhs := c.RHS - shift
		switch c.Sense {
		case milp.EQ:
			pend = append(pend, pending{coeffs, rhs, true})
		case milp.LE:
			pend = append(pend, pending{coeffs, rhs, false})
		case milp.GE:
			neg := make(map[int]float64, len(coeffs))
			for i, v := range coeffs {
				neg[i] = -v
			}
			pend = append(pend, pending{neg, -rhs, false})
		}
	}
	// Upper-bound rows for the shifted variables.
	for i := 0; i < n; i++ {
		if math.IsInf(hi[i], 1) {
			continue
		}
		span := hi[i] - lo[i]
		if span < 0 {
			return 0, nil, lp.ErrInfeasible
		}
		pend = append(pend, pending{map[int]float64{i: 1}, span, false})
	}

	slacks := 0
	for _, q := range pend {
		if !q.isEqual {
			slacks++
		}
	}
	cols := n + slacks

	slack := n
	for _, q := range pend {
		coeffs := make(map[int]float64, len(q.coeffs)+1)
		for i, v := range q.coeffs {
			coeffs[i] = v
		}
		if !q.isEqual {
			coeffs[slack] = 1
			slack++
		}
		addRow(coeffs, q.rhs)
	}

	a := mat.NewDense(len(rows), cols, nil)
	bvec := make([]float64, len(rows))
	for r, rw := range rows {
		for i, v := range rw.coeffs {
			a.Set(r, i, v)
		}
		bvec[r] = rw.rhs
	}

	c := make([]float64, cols)
	offset := 0.0
	for _, t := range p.Objective {
		c[t.Var] += t.Coef
		offset += t.Coef * lo[t.Var]
	}

	opt, y, err := lp.Simplex(c, a, bvec, simplexTol, nil)
	if err != nil {
		return 0, nil, err
	}

	x := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = y[i] + lo[i]
	}
	return opt + offset, x, nil
}
