package milp

import "errors"

// ErrInfeasible indicates no assignment satisfies all constraints.
var ErrInfeasible = errors.New("milp: infeasible")

// ErrUnbounded indicates the objective can decrease without limit.
var ErrUnbounded = errors.New("milp: unbounded")

// ErrUnavailable indicates the backend cannot run on this host, for example
// because its solver executable is not installed.
var ErrUnavailable = errors.New("milp: backend unavailable")
