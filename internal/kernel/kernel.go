// Package kernel implements the named polymorphic operators (sum, mul, sin,
// ...) that a graph node may compute, plus the ordered KernelSet indexed by
// function genes.
package kernel

import (
	"errors"
	"fmt"

	"dcgp/internal/taylor"
)

// ErrInvalidArgument is the sentinel wrapped by every malformed-input error
// this package returns.
var ErrInvalidArgument = errors.New("invalid argument")

// F64Func evaluates a kernel over float64 arguments.
type F64Func func(args []float64) float64

// TaylorFunc evaluates a kernel over truncated Taylor series arguments.
type TaylorFunc func(args []taylor.Series) taylor.Series

// PrintFunc renders a kernel's symbolic form from its argument strings.
type PrintFunc func(args []string) string

// Kernel is a named polymorphic operator: a closure table keyed by element
// type, dispatched by the caller rather than by inheritance, plus a
// dedicated symbolic printer. Evaluation is variadic-arity: a kernel's
// rules receive exactly as many elements as the host node's configured
// arity, not a fixed count of its own. MinArity is the fewest elements a
// rule can be meaningfully applied to (1 for every built-in, since a node
// always wires at least one input); it is not a per-kernel fixed arity.
type Kernel struct {
	Name     string
	MinArity int
	F64      F64Func
	Taylor   TaylorFunc
	Print    PrintFunc
}

func (k Kernel) checkArity(n int) error {
	if n < k.MinArity {
		return fmt.Errorf("%w: kernel %q expects at least %d argument(s), got %d", ErrInvalidArgument, k.Name, k.MinArity, n)
	}
	return nil
}

// EvalF64 evaluates the kernel's float64 rule after an arity check.
func (k Kernel) EvalF64(args []float64) (float64, error) {
	if err := k.checkArity(len(args)); err != nil {
		return 0, err
	}
	return k.F64(args), nil
}

// EvalTaylor evaluates the kernel's Taylor-series rule after an arity check.
func (k Kernel) EvalTaylor(args []taylor.Series) (taylor.Series, error) {
	if err := k.checkArity(len(args)); err != nil {
		return taylor.Series{}, err
	}
	return k.Taylor(args), nil
}

// Render produces the symbolic form of the kernel applied to the given
// argument strings. Rendering never alters numeric semantics.
func (k Kernel) Render(args []string) (string, error) {
	if err := k.checkArity(len(args)); err != nil {
		return "", err
	}
	return k.Print(args), nil
}
