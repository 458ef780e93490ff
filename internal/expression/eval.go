package expression

import (
	"fmt"

	"dcgp/internal/taylor"
)

// Call evaluates the expression at point, an n-vector, returning the
// m output values. Only active nodes are visited, in ascending (hence
// topological) node-index order.
func (e *Expression) Call(point []float64) ([]float64, error) {
	if len(point) != e.n {
		return nil, fmt.Errorf("%w: point has length %d, want n=%d", ErrInvalidArgument, len(point), e.n)
	}
	values := make([]float64, e.numNodes())
	for _, id := range e.active {
		if id < e.n {
			values[id] = point[id]
			continue
		}
		k, err := e.kernels.At(e.functionGeneOf(id))
		if err != nil {
			return nil, err
		}
		args := make([]float64, len(e.connectionsOf(id)))
		for i, src := range e.connectionsOf(id) {
			args[i] = values[src]
		}
		v, err := k.EvalF64(args)
		if err != nil {
			return nil, err
		}
		values[id] = v
	}
	out := make([]float64, e.m)
	for i := 0; i < e.m; i++ {
		out[i] = values[e.outputSelectorOf(i)]
	}
	return out, nil
}

// CallTaylor evaluates the expression at a point of Taylor series,
// propagating derivative information through every kernel. point must have
// length n; every element's NVars() must agree.
func (e *Expression) CallTaylor(point []taylor.Series) ([]taylor.Series, error) {
	if len(point) != e.n {
		return nil, fmt.Errorf("%w: point has length %d, want n=%d", ErrInvalidArgument, len(point), e.n)
	}
	values := make([]taylor.Series, e.numNodes())
	for _, id := range e.active {
		if id < e.n {
			values[id] = point[id]
			continue
		}
		k, err := e.kernels.At(e.functionGeneOf(id))
		if err != nil {
			return nil, err
		}
		conns := e.connectionsOf(id)
		args := make([]taylor.Series, len(conns))
		for i, src := range conns {
			args[i] = values[src]
		}
		v, err := k.EvalTaylor(args)
		if err != nil {
			return nil, err
		}
		values[id] = v
	}
	out := make([]taylor.Series, e.m)
	for i := 0; i < e.m; i++ {
		out[i] = values[e.outputSelectorOf(i)]
	}
	return out, nil
}

// Render returns the symbolic form of the expression given a name for each
// input variable. Rendering is purely a string-formatting concern and does
// not touch numeric evaluation.
func (e *Expression) Render(varNames []string) ([]string, error) {
	if len(varNames) != e.n {
		return nil, fmt.Errorf("%w: varNames has length %d, want n=%d", ErrInvalidArgument, len(varNames), e.n)
	}
	values := make([]string, e.numNodes())
	for _, id := range e.active {
		if id < e.n {
			values[id] = varNames[id]
			continue
		}
		k, err := e.kernels.At(e.functionGeneOf(id))
		if err != nil {
			return nil, err
		}
		conns := e.connectionsOf(id)
		args := make([]string, len(conns))
		for i, src := range conns {
			args[i] = values[src]
		}
		s, err := k.Render(args)
		if err != nil {
			return nil, err
		}
		values[id] = s
	}
	out := make([]string, e.m)
	for i := 0; i < e.m; i++ {
		out[i] = values[e.outputSelectorOf(i)]
	}
	return out, nil
}
