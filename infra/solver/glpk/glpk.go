// Package glpk runs the GLPK glpsol executable as a MILP backend. Like the
// cbc backend it communicates through an LP file and parses the plain-text
// solution report; it reports itself unavailable when glpsol is not on PATH.
package glpk

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gridmpc/gridmpc/core/milp"
	"github.com/gridmpc/gridmpc/infra/solver/lpformat"
)

// Backend shells out to the glpsol executable.
type Backend struct {
	// Path overrides the executable looked up on PATH. Used in tests.
	Path string
}

// New returns a Backend using glpsol from PATH.
func New() *Backend { return &Backend{} }

// Name implements milp.Backend.
func (b *Backend) Name() string { return "glpk" }

// Solve implements milp.Backend.
func (b *Backend) Solve(ctx context.Context, p *milp.Program) (*milp.Solution, error) {
	bin := b.Path
	if bin == "" {
		var err error
		bin, err = exec.LookPath("glpsol")
		if err != nil {
			return nil, fmt.Errorf("glpsol executable not found: %w", milp.ErrUnavailable)
		}
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("glpk: %w", err)
	}

	dir, err := os.MkdirTemp("", "glpk-*")
	if err != nil {
		return nil, fmt.Errorf("glpk: temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	lpPath := filepath.Join(dir, "model.lp")
	outPath := filepath.Join(dir, "model.out")
	f, err := os.Create(lpPath)
	if err != nil {
		return nil, fmt.Errorf("glpk: %w", err)
	}
	if err := lpformat.Write(f, p); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("glpk: write model: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("glpk: %w", err)
	}

	cmd := exec.CommandContext(ctx, bin, "--lp", lpPath, "-o", outPath)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("glpk: solver run failed: %w (output: %s)", err, firstLine(out))
	}

	rf, err := os.Open(outPath)
	if err != nil {
		return nil, fmt.Errorf("glpk: read solution: %w", err)
	}
	defer rf.Close()
	return parseReport(rf, p)
}

func firstLine(out []byte) string {
	s := strings.TrimSpace(string(out))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return s
}

// parseReport reads the human-readable report written by glpsol -o. The
// report carries a Status line, an Objective line and a column table with
// one activity value per variable.
func parseReport(r io.Reader, p *milp.Program) (*milp.Solution, error) {
	byName := make(map[string]milp.VarID, len(p.Vars))
	for i, v := range p.Vars {
		byName[v.Name] = milp.VarID(i)
	}

	sol := &milp.Solution{Values: make([]float64, len(p.Vars))}
	var (
		statusSeen bool
		inColumns  bool
	)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "Status:"):
			statusSeen = true
			status := strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(trimmed, "Status:")))
			switch {
			case strings.Contains(status, "EMPTY"), strings.Contains(status, "NO FEASIBLE"),
				strings.Contains(status, "INFEASIBLE"):
				return nil, milp.ErrInfeasible
			case strings.Contains(status, "UNBOUNDED"):
				return nil, milp.ErrUnbounded
			// "INTEGER NON-OPTIMAL" and "UNDEFINED" mean glpsol stopped
			// before proving optimality; they must not pass as solved.
			case strings.Contains(status, "NON-OPTIMAL"), strings.Contains(status, "UNDEFINED"):
				return nil, fmt.Errorf("glpk: solve stopped with status %q", status)
			case strings.Contains(status, "OPTIMAL"):
			default:
				return nil, fmt.Errorf("glpk: unexpected status %q", status)
			}
		case strings.HasPrefix(trimmed, "Objective:"):
			// "Objective:  obj = 400 (MINimum)"
			fields := strings.Fields(trimmed)
			for i, f := range fields {
				if f == "=" && i+1 < len(fields) {
					v, err := strconv.ParseFloat(fields[i+1], 64)
					if err != nil {
						return nil, fmt.Errorf("glpk: bad objective: %w", err)
					}
					sol.Objective = v
				}
			}
		case strings.Contains(line, "Column name"):
			inColumns = true
		case inColumns && strings.HasPrefix(trimmed, "Row name"):
			inColumns = false
		case inColumns:
			if trimmed == "" || strings.HasPrefix(trimmed, "---") {
				continue
			}
			fields := strings.Fields(trimmed)
			if len(fields) < 2 {
				continue
			}
			id, ok := byName[fields[1]]
			if !ok {
				continue
			}
			// The activity column follows the name and an optional
			// basis-status marker such as "*" or "NU".
			for _, f := range fields[2:] {
				v, err := strconv.ParseFloat(f, 64)
				if err == nil {
					sol.Values[id] = v
					break
				}
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("glpk: scan report: %w", err)
	}
	if !statusSeen {
		return nil, fmt.Errorf("glpk: no status line in report")
	}
	return sol, nil
}
