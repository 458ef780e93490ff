package kernel

import (
	"fmt"
	"math"
	"strings"

	"dcgp/internal/taylor"
)

// pdivEpsilon is the protected-division threshold: divisors smaller than
// this in magnitude are treated as zero and pdiv falls back to 1 rather
// than propagating an infinity into the fitness.
const pdivEpsilon = 1e-12

// Sum returns the built-in n-ary addition kernel: the sum of every element
// it receives, whatever the host node's configured arity.
func Sum() Kernel {
	return Kernel{
		Name:     "sum",
		MinArity: 1,
		F64: func(a []float64) float64 {
			total := a[0]
			for _, v := range a[1:] {
				total += v
			}
			return total
		},
		Taylor: func(a []taylor.Series) taylor.Series {
			total := a[0]
			for _, v := range a[1:] {
				total = total.Add(v)
			}
			return total
		},
		Print: func(a []string) string { return fmt.Sprintf("(%s)", strings.Join(a, "+")) },
	}
}

// Diff returns the built-in n-ary subtraction kernel: the first element
// minus every element that follows it.
func Diff() Kernel {
	return Kernel{
		Name:     "diff",
		MinArity: 1,
		F64: func(a []float64) float64 {
			total := a[0]
			for _, v := range a[1:] {
				total -= v
			}
			return total
		},
		Taylor: func(a []taylor.Series) taylor.Series {
			total := a[0]
			for _, v := range a[1:] {
				total = total.Sub(v)
			}
			return total
		},
		Print: func(a []string) string { return fmt.Sprintf("(%s)", strings.Join(a, "-")) },
	}
}

// Mul returns the built-in n-ary multiplication kernel: the product of
// every element it receives.
func Mul() Kernel {
	return Kernel{
		Name:     "mul",
		MinArity: 1,
		F64: func(a []float64) float64 {
			total := a[0]
			for _, v := range a[1:] {
				total *= v
			}
			return total
		},
		Taylor: func(a []taylor.Series) taylor.Series {
			total := a[0]
			for _, v := range a[1:] {
				total = total.Mul(v)
			}
			return total
		},
		Print: func(a []string) string { return fmt.Sprintf("(%s)", strings.Join(a, "*")) },
	}
}

// Div returns the built-in n-ary division kernel: the first element divided
// successively by every element that follows it. Unlike Pdiv this is
// unprotected: a zero divisor propagates +/-Inf or NaN, matching plain
// arithmetic.
func Div() Kernel {
	return Kernel{
		Name:     "div",
		MinArity: 1,
		F64: func(a []float64) float64 {
			total := a[0]
			for _, v := range a[1:] {
				total /= v
			}
			return total
		},
		Taylor: func(a []taylor.Series) taylor.Series {
			total := a[0]
			for _, v := range a[1:] {
				total = total.Div(v)
			}
			return total
		},
		Print: func(a []string) string { return fmt.Sprintf("(%s)", strings.Join(a, "/")) },
	}
}

// Pdiv returns the protected-division kernel: the first element divided
// successively by every element that follows it, each division guarded so a
// divisor no larger than pdivEpsilon in magnitude makes that step's result 1
// instead of propagating an infinity into the fitness.
func Pdiv() Kernel {
	return Kernel{
		Name:     "pdiv",
		MinArity: 1,
		F64: func(a []float64) float64 {
			total := a[0]
			for _, v := range a[1:] {
				if math.Abs(v) > pdivEpsilon {
					total /= v
				} else {
					total = 1
				}
			}
			return total
		},
		Taylor: func(a []taylor.Series) taylor.Series {
			total := a[0]
			for _, v := range a[1:] {
				if math.Abs(v.ConstantCf()) > pdivEpsilon {
					total = total.Div(v)
				} else {
					total = taylor.Constant(v.NVars(), 1)
				}
			}
			return total
		},
		Print: func(a []string) string { return fmt.Sprintf("(%s)", strings.Join(a, "/")) },
	}
}

// Exp returns the built-in exponential kernel. Like every transcendental
// built-in, it acts on the first element it receives and ignores the rest,
// matching the original dCGP basis functions, which stay unary in effect
// even when called with a wider node arity.
func Exp() Kernel {
	return Kernel{
		Name:     "exp",
		MinArity: 1,
		F64:      func(a []float64) float64 { return math.Exp(a[0]) },
		Taylor: func(a []taylor.Series) taylor.Series {
			return a[0].Exp()
		},
		Print: func(a []string) string { return fmt.Sprintf("exp(%s)", a[0]) },
	}
}

// Log returns the built-in natural-log kernel.
func Log() Kernel {
	return Kernel{
		Name:     "log",
		MinArity: 1,
		F64:      func(a []float64) float64 { return math.Log(a[0]) },
		Taylor: func(a []taylor.Series) taylor.Series {
			return a[0].Log()
		},
		Print: func(a []string) string { return fmt.Sprintf("log(%s)", a[0]) },
	}
}

// Sin returns the built-in sine kernel.
func Sin() Kernel {
	return Kernel{
		Name:     "sin",
		MinArity: 1,
		F64:      func(a []float64) float64 { return math.Sin(a[0]) },
		Taylor: func(a []taylor.Series) taylor.Series {
			return a[0].Sin()
		},
		Print: func(a []string) string { return fmt.Sprintf("sin(%s)", a[0]) },
	}
}

// Cos returns the built-in cosine kernel.
func Cos() Kernel {
	return Kernel{
		Name:     "cos",
		MinArity: 1,
		F64:      func(a []float64) float64 { return math.Cos(a[0]) },
		Taylor: func(a []taylor.Series) taylor.Series {
			return a[0].Cos()
		},
		Print: func(a []string) string { return fmt.Sprintf("cos(%s)", a[0]) },
	}
}

// Tanh returns the built-in hyperbolic-tangent kernel.
func Tanh() Kernel {
	return Kernel{
		Name:     "tanh",
		MinArity: 1,
		F64:      func(a []float64) float64 { return math.Tanh(a[0]) },
		Taylor: func(a []taylor.Series) taylor.Series {
			return a[0].Tanh()
		},
		Print: func(a []string) string { return fmt.Sprintf("tanh(%s)", a[0]) },
	}
}

// Sig returns the built-in logistic-sigmoid kernel.
func Sig() Kernel {
	return Kernel{
		Name:     "sig",
		MinArity: 1,
		F64:      func(a []float64) float64 { return 1 / (1 + math.Exp(-a[0])) },
		Taylor: func(a []taylor.Series) taylor.Series {
			return a[0].Sigmoid()
		},
		Print: func(a []string) string { return fmt.Sprintf("sig(%s)", a[0]) },
	}
}

// ReLu returns the built-in rectified-linear kernel.
func ReLu() Kernel {
	return Kernel{
		Name:     "ReLu",
		MinArity: 1,
		F64: func(a []float64) float64 {
			if a[0] > 0 {
				return a[0]
			}
			return 0
		},
		Taylor: func(a []taylor.Series) taylor.Series {
			return a[0].ReLU()
		},
		Print: func(a []string) string { return fmt.Sprintf("ReLu(%s)", a[0]) },
	}
}

// ELU returns the built-in exponential-linear kernel (unit alpha).
func ELU() Kernel {
	return Kernel{
		Name:     "ELU",
		MinArity: 1,
		F64: func(a []float64) float64 {
			if a[0] >= 0 {
				return a[0]
			}
			return math.Exp(a[0]) - 1
		},
		Taylor: func(a []taylor.Series) taylor.Series {
			return a[0].ELU()
		},
		Print: func(a []string) string { return fmt.Sprintf("ELU(%s)", a[0]) },
	}
}

// ISRU returns the built-in inverse-square-root-unit kernel (unit alpha).
func ISRU() Kernel {
	return Kernel{
		Name:     "ISRU",
		MinArity: 1,
		F64: func(a []float64) float64 {
			return a[0] / math.Sqrt(1+a[0]*a[0])
		},
		Taylor: func(a []taylor.Series) taylor.Series {
			return a[0].ISRU()
		},
		Print: func(a []string) string { return fmt.Sprintf("ISRU(%s)", a[0]) },
	}
}

// ByName returns the built-in kernel with the given name, or false if the
// name is not a recognized built-in.
func ByName(name string) (Kernel, bool) {
	switch name {
	case "sum":
		return Sum(), true
	case "diff":
		return Diff(), true
	case "mul":
		return Mul(), true
	case "div":
		return Div(), true
	case "pdiv":
		return Pdiv(), true
	case "exp":
		return Exp(), true
	case "log":
		return Log(), true
	case "sin":
		return Sin(), true
	case "cos":
		return Cos(), true
	case "tanh":
		return Tanh(), true
	case "sig":
		return Sig(), true
	case "ReLu":
		return ReLu(), true
	case "ELU":
		return ELU(), true
	case "ISRU":
		return ISRU(), true
	default:
		return Kernel{}, false
	}
}

// DifferentiableActivationNames lists the kernels §4.3 permits for a
// WeightedExpression: the differentiable activations with a closed-form
// reverse-mode derivative.
func DifferentiableActivationNames() []string {
	return []string{"tanh", "sig", "ReLu", "ELU", "ISRU"}
}

// AllNames lists every built-in kernel name ByName recognizes, in
// declaration order.
func AllNames() []string {
	return []string{
		"sum", "diff", "mul", "div", "pdiv",
		"exp", "log", "sin", "cos", "tanh", "sig", "ReLu", "ELU", "ISRU",
	}
}

// IsDifferentiableActivation reports whether name is one of the kernels a
// WeightedExpression may use.
func IsDifferentiableActivation(name string) bool {
	for _, n := range DifferentiableActivationNames() {
		if n == name {
			return true
		}
	}
	return false
}
