// Package solver assembles MILP back ends into a fallback chain. Backends
// are tried once each, in order of preference; a backend that errors or is
// unavailable on this host is skipped silently. Infeasible and unbounded
// outcomes are answers about the program, not backend failures, and abort
// the chain immediately.
package solver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gridmpc/gridmpc/core/logger"
	"github.com/gridmpc/gridmpc/core/milp"
	"github.com/gridmpc/gridmpc/infra/solver/cbc"
	"github.com/gridmpc/gridmpc/infra/solver/glpk"
	"github.com/gridmpc/gridmpc/infra/solver/simplex"
)

// ErrNoBackend indicates every backend in the chain failed or was
// unavailable.
var ErrNoBackend = errors.New("solver: no backend produced a result")

// Chain tries backends in order and normalizes their results.
type Chain struct {
	backends []milp.Backend
	timeout  time.Duration
	log      logger.Logger
}

// Option configures a Chain.
type Option func(*Chain)

// WithTimeout bounds each individual backend solve. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Chain) { c.timeout = d }
}

// WithLogger sets the chain's logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Chain) { c.log = l }
}

// NewChain builds a chain over the given backends, most preferred first.
func NewChain(backends []milp.Backend, opts ...Option) *Chain {
	c := &Chain{backends: backends, log: nopLogger{}}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Default returns the standard preference order: cbc, glpsol, then the
// pure-Go simplex branch-and-bound backend, which is always available.
func Default(opts ...Option) *Chain {
	return NewChain([]milp.Backend{cbc.New(), glpk.New(), simplex.New()}, opts...)
}

// FromNames builds a chain from backend names. Valid names are "cbc",
// "glpk" and "simplex".
func FromNames(names []string, opts ...Option) (*Chain, error) {
	var backends []milp.Backend
	for _, n := range names {
		switch n {
		case "cbc":
			backends = append(backends, cbc.New())
		case "glpk":
			backends = append(backends, glpk.New())
		case "simplex":
			backends = append(backends, simplex.New())
		default:
			return nil, fmt.Errorf("solver: unknown backend %q", n)
		}
	}
	if len(backends) == 0 {
		return nil, fmt.Errorf("solver: empty backend list")
	}
	return NewChain(backends, opts...), nil
}

// Name implements milp.Backend so a Chain can stand in wherever a single
// backend is expected.
func (c *Chain) Name() string { return "chain" }

// Solve implements milp.Backend. It returns the first successful backend's
// solution, tagged with that backend's name; intermediate failures are
// logged at debug level only.
func (c *Chain) Solve(ctx context.Context, p *milp.Program) (*milp.Solution, error) {
	var lastErr error
	for _, b := range c.backends {
		sol, err := c.solveOne(ctx, b, p)
		if err == nil {
			sol.Backend = b.Name()
			return sol, nil
		}
		if errors.Is(err, milp.ErrInfeasible) || errors.Is(err, milp.ErrUnbounded) {
			return nil, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.log.Debugf("backend %s failed, falling back: %v", b.Name(), err)
		lastErr = err
	}
	return nil, fmt.Errorf("%w: %v", ErrNoBackend, lastErr)
}

func (c *Chain) solveOne(ctx context.Context, b milp.Backend, p *milp.Program) (*milp.Solution, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return b.Solve(ctx, p)
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any)         {}
func (nopLogger) Debugw(string, map[string]any) {}
func (nopLogger) Infof(string, ...any)          {}
func (nopLogger) Warnf(string, ...any)          {}
func (nopLogger) Errorf(string, ...any)         {}
