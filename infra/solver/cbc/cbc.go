// Package cbc runs the COIN-OR CBC command line solver as a MILP backend.
// The program is written to a temporary LP file, cbc is invoked on it and
// the solution file is parsed back. The backend reports itself unavailable
// when the cbc executable is not on PATH.
package cbc

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

// Backend shells out to the cbc executable.
type Backend struct {
	// Path overrides the executable looked up on PATH. Used in tests.
	Path string
}

// New returns a Backend using the cbc executable from PATH.
func New() *Backend { return &Backend{} }

// Name implements milp.Backend.
func (b *Backend) Name() string { return "cbc" }

// Solve implements milp.Backend.
func (b *Backend) Solve(ctx context.Context, p *milp.Program) (*milp.Solution, error) {
	bin := b.Path
	if bin == "" {
		var err error
		bin, err = exec.LookPath("cbc")
		if err != nil {
			return nil, fmt.Errorf("cbc executable not found: %w", milp.ErrUnavailable)
		}
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("cbc: %w", err)
	}

	dir, err := os.MkdirTemp("", "cbc-*")
	if err != nil {
		return nil, fmt.Errorf("cbc: temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	lpPath := filepath.Join(dir, "model.lp")
	solPath := filepath.Join(dir, "model.sol")
	f, err := os.Create(lpPath)
	if err != nil {
		return nil, fmt.Errorf("cbc: %w", err)
	}
	if err := lpformat.Write(f, p); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("cbc: write model: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("cbc: %w", err)
	}

	cmd := exec.CommandContext(ctx, bin, lpPath, "solve", "printingOptions", "all", "solution", solPath)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("cbc: solver run failed: %w (output: %s)", err, firstLine(out))
	}

	sf, err := os.Open(solPath)
	if err != nil {
		return nil, fmt.Errorf("cbc: read solution: %w", err)
	}
	defer sf.Close()
	return parseSolution(sf, p)
}

func firstLine(out []byte) string {
	s := strings.TrimSpace(string(out))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return s
}

// parseSolution reads a CBC solution file. The first line carries the status
// and objective, the remaining lines list "index name value reducedcost".
func parseSolution(r io.Reader, p *milp.Program) (*milp.Solution, error) {
	sc := bufio.NewScanner(r)
	if !sc.Scan() {
		return nil, fmt.Errorf("cbc: empty solution file")
	}
	header := strings.TrimSpace(sc.Text())
	low := strings.ToLower(header)
	switch {
	case strings.Contains(low, "infeasible"):
		return nil, milp.ErrInfeasible
	case strings.Contains(low, "unbounded"):
		return nil, milp.ErrUnbounded
	case strings.HasPrefix(low, "optimal"):
	default:
		return nil, fmt.Errorf("cbc: unexpected solver status %q", header)
	}

	obj, err := parseObjective(header)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]milp.VarID, len(p.Vars))
	for i, v := range p.Vars {
		byName[v.Name] = milp.VarID(i)
	}

	sol := &milp.Solution{Objective: obj, Values: make([]float64, len(p.Vars))}
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 3 {
			continue
		}
		id, ok := byName[fields[1]]
		if !ok {
			continue
		}
		val, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, fmt.Errorf("cbc: bad value for %s: %w", fields[1], err)
		}
		sol.Values[id] = val
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("cbc: scan solution: %w", err)
	}
	return sol, nil
}

func parseObjective(header string) (float64, error) {
	const marker = "objective value"
	i := strings.Index(strings.ToLower(header), marker)
	if i < 0 {
		return 0, fmt.Errorf("cbc: no objective in status line %q", header)
	}
	rest := strings.TrimSpace(header[i+len(marker):])
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return 0, fmt.Errorf("cbc: no objective in status line %q", header)
	}
	return strconv.ParseFloat(fields[0], 64)
}
