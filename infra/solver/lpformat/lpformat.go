// Package lpformat writes milp.Program values in CPLEX LP format, the
// interchange format understood by the cbc and glpsol executables.
package lpformat

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/gridmpc/gridmpc/core/milp"
)

// Write serializes p in CPLEX LP format. Constraint names must be unique;
// unnamed constraints are numbered.
func Write(w io.Writer, p *milp.Program) error {
	var sb strings.Builder

	sb.WriteString("Minimize\n obj:")
	if len(p.Objective) == 0 {
		// LP format requires at least one term in the objective.
		sb.WriteString(fmt.Sprintf(" 0 %s", p.Vars[0].Name))
	}
	for _, t := range p.Objective {
		writeTerm(&sb, t.Coef, p.Vars[t.Var].Name)
	}
	sb.WriteString("\nSubject To\n")

	for i, c := range p.Constraints {
		name := c.Name
		if name == "" {
			name = fmt.Sprintf("c%d", i)
		}
		sb.WriteString(fmt.Sprintf(" %s:", name))
		for _, t := range c.Terms {
			writeTerm(&sb, t.Coef, p.Vars[t.Var].Name)
		}
		sb.WriteString(fmt.Sprintf(" %s %s\n", c.Sense, fmtNum(c.RHS)))
	}

	sb.WriteString("Bounds\n")
	for _, v := range p.Vars {
		if v.Kind == milp.Binary {
			continue
		}
		switch {
		case v.Lo == v.Hi:
			sb.WriteString(fmt.Sprintf(" %s = %s\n", v.Name, fmtNum(v.Lo)))
		case math.IsInf(v.Hi, 1):
			if v.Lo != 0 {
				sb.WriteString(fmt.Sprintf(" %s >= %s\n", v.Name, fmtNum(v.Lo)))
			}
		default:
			sb.WriteString(fmt.Sprintf(" %s <= %s <= %s\n", fmtNum(v.Lo), v.Name, fmtNum(v.Hi)))
		}
	}

	if p.NumBinary() > 0 {
		sb.WriteString("Binary\n")
		for _, v := range p.Vars {
			if v.Kind == milp.Binary {
				sb.WriteString(fmt.Sprintf(" %s\n", v.Name))
			}
		}
	}
	sb.WriteString("End\n")

	_, err := io.WriteString(w, sb.String())
	return err
}

func writeTerm(sb *strings.Builder, coef float64, name string) {
	if coef >= 0 {
		sb.WriteString(fmt.Sprintf(" + %s %s", fmtNum(coef), name))
	} else {
		sb.WriteString(fmt.Sprintf(" - %s %s", fmtNum(-coef), name))
	}
}

func fmtNum(f float64) string {
	return fmt.Sprintf("%.12g", f)
}
