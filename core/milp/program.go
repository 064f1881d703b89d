// Package milp defines a backend-independent representation of mixed-integer
// linear programs: continuous or binary decision variables, linear
// constraints and a linear minimization objective. Solver back ends consume
// a Program and produce a Solution; no backend-specific types appear here.
package milp

import (
	"context"
	"fmt"
	"math"
)

// VarID indexes a variable inside its Program.
type VarID int

// Kind distinguishes continuous from binary variables.
type Kind int

const (
	Continuous Kind = iota
	Binary
)

// Var is a decision variable with inclusive bounds. Binary variables always
// carry bounds [0,1].
type Var struct {
	Name string
	Lo   float64
	Hi   float64
	Kind Kind
}

// Sense is the relational operator of a constraint.
type Sense int

const (
	LE Sense = iota // <=
	GE              // >=
	EQ              // ==
)

func (s Sense) String() string {
	switch s {
	case LE:
		return "<="
	case GE:
		return ">="
	default:
		return "="
	}
}

// Term is one coefficient of a linear expression.
type Term struct {
	Var  VarID
	Coef float64
}

// Constraint is a linear constraint sum(terms) sense RHS.
type Constraint struct {
	Name  string
	Terms []Term
	Sense Sense
	RHS   float64
}

// Program accumulates variables, constraints and a minimization objective.
type Program struct {
	Vars        []Var
	Constraints []Constraint
	Objective   []Term
}

// New returns an empty program.
func New() *Program { return &Program{} }

// Continuous adds a continuous variable bounded to [lo, hi] and returns its id.
func (p *Program) Continuous(name string, lo, hi float64) VarID {
	p.Vars = append(p.Vars, Var{Name: name, Lo: lo, Hi: hi, Kind: Continuous})
	return VarID(len(p.Vars) - 1)
}

// Binary adds a {0,1} variable and returns its id.
func (p *Program) Binary(name string) VarID {
	p.Vars = append(p.Vars, Var{Name: name, Lo: 0, Hi: 1, Kind: Binary})
	return VarID(len(p.Vars) - 1)
}

// AddConstraint appends a named linear constraint.
func (p *Program) AddConstraint(name string, sense Sense, rhs float64, terms ...Term) {
	p.Constraints = append(p.Constraints, Constraint{Name: name, Terms: terms, Sense: sense, RHS: rhs})
}

// AddObjective adds coef*var to the minimization objective.
func (p *Program) AddObjective(v VarID, coef float64) {
	p.Objective = append(p.Objective, Term{Var: v, Coef: coef})
}

// NumBinary reports how many binary variables the program contains.
func (p *Program) NumBinary() int {
	n := 0
	for _, v := range p.Vars {
		if v.Kind == Binary {
			n++
		}
	}
	return n
}

// Validate checks bounds consistency and term indices.
func (p *Program) Validate() error {
	for i, v := range p.Vars {
		if v.Lo > v.Hi {
			return fmt.Errorf("variable %s: lower bound %v exceeds upper bound %v", v.Name, v.Lo, v.Hi)
		}
		if math.IsNaN(v.Lo) || math.IsNaN(v.Hi) {
			return fmt.Errorf("variable %d (%s): NaN bound", i, v.Name)
		}
	}
	for _, c := range p.Constraints {
		for _, t := range c.Terms {
			if int(t.Var) < 0 || int(t.Var) >= len(p.Vars) {
				return fmt.Errorf("constraint %s references unknown variable %d", c.Name, t.Var)
			}
		}
	}
	for _, t := range p.Objective {
		if int(t.Var) < 0 || int(t.Var) >= len(p.Vars) {
			return fmt.Errorf("objective references unknown variable %d", t.Var)
		}
	}
	return nil
}

// Solution is the optimal assignment found by a backend. Values is indexed
// by VarID. Backend is filled in by the fallback adapter with the name of
// the backend that produced the solution.
type Solution struct {
	Objective float64
	Values    []float64
	Backend   string
}

// Value returns the assignment of the given variable.
func (s *Solution) Value(v VarID) float64 { return s.Values[v] }

// Backend solves a program to optimality. Implementations must return
// ErrInfeasible or ErrUnbounded (possibly wrapped) for those outcomes and
// ErrUnavailable when the backend cannot run at all on this host.
type Backend interface {
	Name() string
	Solve(ctx context.Context, p *Program) (*Solution, error)
}
