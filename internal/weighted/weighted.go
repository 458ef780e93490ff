// Package weighted implements WeightedExpression: a grid-encoded Expression
// extended with per-edge weights and per-node biases, forward evaluation
// with an affine pre-combination step, reverse-mode backpropagation, batched
// loss evaluation, and mini-batch stochastic gradient descent.
package weighted

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"dcgp/internal/expression"
	"dcgp/internal/kernel"
)

// ErrInvalidArgument is the sentinel wrapped by every malformed-input error
// this package returns.
var ErrInvalidArgument = errors.New("invalid argument")

// LossKind selects the loss function used by Loss, DLoss, and SGD.
type LossKind int

const (
	MSE LossKind = iota
	CE
)

// WeightedExpression is an Expression whose internal nodes compute an
// affine combination of their source values before applying a
// differentiable activation kernel.
type WeightedExpression struct {
	expr    *expression.Expression
	weights []float64
	biases  []float64
}

// New constructs a WeightedExpression. Identical to expression.New except
// the kernel set must be restricted to the differentiable activations
// {tanh, sig, ReLu, ELU, ISRU}; weights start at 1, biases at 0.
func New(cfg expression.Config) (*WeightedExpression, error) {
	if cfg.Kernels != nil {
		for _, name := range cfg.Kernels.Names() {
			if !kernel.IsDifferentiableActivation(name) {
				return nil, fmt.Errorf("%w: kernel %q is not a differentiable activation", ErrInvalidArgument, name)
			}
		}
	}
	e, err := expression.New(cfg)
	if err != nil {
		return nil, err
	}
	numEdges := 0
	for _, a := range cfg.Arity {
		numEdges += cfg.R * a
	}
	weights := make([]float64, numEdges)
	for i := range weights {
		weights[i] = 1
	}
	biases := make([]float64, cfg.R*cfg.C)
	return &WeightedExpression{expr: e, weights: weights, biases: biases}, nil
}

// Expression exposes the embedded graph (chromosome, bounds, active-node
// queries, mutation operators).
func (w *WeightedExpression) Expression() *expression.Expression { return w.expr }

// Weights returns a copy of the per-edge weight vector.
func (w *WeightedExpression) Weights() []float64 { return append([]float64(nil), w.weights...) }

// Biases returns a copy of the per-node bias vector.
func (w *WeightedExpression) Biases() []float64 { return append([]float64(nil), w.biases...) }

// SetWeight overwrites a single weight, after an index bound check.
func (w *WeightedExpression) SetWeight(i int, v float64) error {
	if i < 0 || i >= len(w.weights) {
		return fmt.Errorf("%w: weight index %d out of range [0,%d)", ErrInvalidArgument, i, len(w.weights))
	}
	w.weights[i] = v
	return nil
}

// SetBias overwrites a single bias, after an index bound check.
func (w *WeightedExpression) SetBias(i int, v float64) error {
	if i < 0 || i >= len(w.biases) {
		return fmt.Errorf("%w: bias index %d out of range [0,%d)", ErrInvalidArgument, i, len(w.biases))
	}
	w.biases[i] = v
	return nil
}

// SetWeights replaces the entire weight vector; its length must match.
func (w *WeightedExpression) SetWeights(weights []float64) error {
	if len(weights) != len(w.weights) {
		return fmt.Errorf("%w: weights has length %d, want %d", ErrInvalidArgument, len(weights), len(w.weights))
	}
	w.weights = append([]float64(nil), weights...)
	return nil
}

// SetBiases replaces the entire bias vector; its length must match.
func (w *WeightedExpression) SetBiases(biases []float64) error {
	if len(biases) != len(w.biases) {
		return fmt.Errorf("%w: biases has length %d, want %d", ErrInvalidArgument, len(biases), len(w.biases))
	}
	w.biases = append([]float64(nil), biases...)
	return nil
}

// SetOutputF rewrites the function gene of every node selected by an output
// selector to the given kernel index, pinning a classification/regression
// head. Output selectors that name an input node are left untouched (an
// input has no function gene).
func (w *WeightedExpression) SetOutputF(kernelIdx int) error {
	for i := 0; i < w.expr.M(); i++ {
		sel, err := w.expr.OutputSelector(i)
		if err != nil {
			return err
		}
		if sel < w.expr.N() {
			continue
		}
		if err := w.expr.SetFunctionGene(sel, kernelIdx); err != nil {
			return err
		}
	}
	return nil
}

// localDerivative computes the local derivative of the activation named
// name at the point where its output value is node and its pre-activation
// sum is z.
func localDerivative(name string, node, z float64) float64 {
	switch name {
	case "tanh":
		return 1 - node*node
	case "sig":
		return node * (1 - node)
	case "ReLu":
		if node > 0 {
			return 1
		}
		return 0
	case "ELU":
		if node > 0 {
			return 1
		}
		return node + 1
	case "ISRU":
		if z == 0 {
			return 1
		}
		return node * node * node / (z * z * z)
	default:
		return 1
	}
}

// forward walks the active nodes ascending, computing each internal node's
// affine pre-combination z_i = b_i + Σ_j w_ij·v_j, its activation, and the
// activation's local derivative. values and localDeriv are indexed by node
// id over the whole [0, NumNodes()) range; localDeriv is only meaningful for
// internal nodes (inputs implicitly carry the identity derivative, 1).
func (w *WeightedExpression) forward(point []float64) (values, localDeriv []float64, err error) {
	if len(point) != w.expr.N() {
		return nil, nil, fmt.Errorf("%w: point has length %d, want n=%d", ErrInvalidArgument, len(point), w.expr.N())
	}
	values = make([]float64, w.expr.NumNodes())
	localDeriv = make([]float64, w.expr.NumNodes())
	for _, id := range w.expr.ActiveNodes() {
		if id < w.expr.N() {
			values[id] = point[id]
			localDeriv[id] = 1
			continue
		}
		conns, err := w.expr.Connections(id)
		if err != nil {
			return nil, nil, err
		}
		base, err := w.expr.WeightBase(id)
		if err != nil {
			return nil, nil, err
		}
		intIdx, err := w.expr.InternalIndex(id)
		if err != nil {
			return nil, nil, err
		}
		z := w.biases[intIdx]
		for j, src := range conns {
			z += w.weights[base+j] * values[src]
		}
		fgene, err := w.expr.FunctionGene(id)
		if err != nil {
			return nil, nil, err
		}
		k, err := w.expr.Kernels().At(fgene)
		if err != nil {
			return nil, nil, err
		}
		v, err := k.EvalF64([]float64{z})
		if err != nil {
			return nil, nil, err
		}
		values[id] = v
		localDeriv[id] = localDerivative(k.Name, v, z)
	}
	return values, localDeriv, nil
}

// Call evaluates the WeightedExpression at point, returning the m output
// values.
func (w *WeightedExpression) Call(point []float64) ([]float64, error) {
	values, _, err := w.forward(point)
	if err != nil {
		return nil, err
	}
	out := make([]float64, w.expr.M())
	for i := range out {
		sel, err := w.expr.OutputSelector(i)
		if err != nil {
			return nil, err
		}
		out[i] = values[sel]
	}
	return out, nil
}

// Render produces the symbolic form of every output, walking the active
// subgraph the same way Call does. Each internal node renders as its affine
// pre-combination wrapped by its own activation kernel's printer —
// "f(b_i + w_i_0*src0 + w_i_1*src1 + ...)" — using a stable w_i_j/b_i
// naming scheme keyed by the node's internal index, so weight and bias
// indices in the printed form line up with SetWeight/SetBias.
func (w *WeightedExpression) Render(varNames []string) ([]string, error) {
	if len(varNames) != w.expr.N() {
		return nil, fmt.Errorf("%w: varNames has length %d, want n=%d", ErrInvalidArgument, len(varNames), w.expr.N())
	}
	values := make([]string, w.expr.NumNodes())
	for _, id := range w.expr.ActiveNodes() {
		if id < w.expr.N() {
			values[id] = varNames[id]
			continue
		}
		conns, err := w.expr.Connections(id)
		if err != nil {
			return nil, err
		}
		intIdx, err := w.expr.InternalIndex(id)
		if err != nil {
			return nil, err
		}
		terms := make([]string, len(conns)+1)
		terms[0] = fmt.Sprintf("b%d", intIdx)
		for j, src := range conns {
			terms[j+1] = fmt.Sprintf("w%d_%d*%s", intIdx, j, values[src])
		}
		affine := fmt.Sprintf("(%s)", strings.Join(terms, "+"))
		fgene, err := w.expr.FunctionGene(id)
		if err != nil {
			return nil, err
		}
		k, err := w.expr.Kernels().At(fgene)
		if err != nil {
			return nil, err
		}
		s, err := k.Render([]string{affine})
		if err != nil {
			return nil, err
		}
		values[id] = s
	}
	out := make([]string, w.expr.M())
	for i := range out {
		sel, err := w.expr.OutputSelector(i)
		if err != nil {
			return nil, err
		}
		out[i] = values[sel]
	}
	return out, nil
}

func softmax(logits []float64) []float64 {
	max := logits[0]
	for _, v := range logits[1:] {
		if v > max {
			max = v
		}
	}
	exps := make([]float64, len(logits))
	sum := 0.0
	for i, v := range logits {
		exps[i] = math.Exp(v - max)
		sum += exps[i]
	}
	for i := range exps {
		exps[i] /= sum
	}
	return exps
}

func validateKind(kind LossKind) error {
	if kind != MSE && kind != CE {
		return fmt.Errorf("%w: unknown loss kind %v", ErrInvalidArgument, kind)
	}
	return nil
}

// Loss returns the per-sample loss of kind for the given point/label pair.
func (w *WeightedExpression) Loss(point, label []float64, kind LossKind) (float64, error) {
	if err := validateKind(kind); err != nil {
		return 0, err
	}
	if len(label) != w.expr.M() {
		return 0, fmt.Errorf("%w: label has length %d, want m=%d", ErrInvalidArgument, len(label), w.expr.M())
	}
	out, err := w.Call(point)
	if err != nil {
		return 0, err
	}
	return evalLoss(out, label, kind), nil
}

func evalLoss(out, label []float64, kind LossKind) float64 {
	switch kind {
	case CE:
		p := softmax(out)
		loss := 0.0
		for i, l := range label {
			loss -= l * math.Log(p[i])
		}
		return loss
	default: // MSE
		loss := 0.0
		for i, l := range label {
			d := out[i] - l
			loss += d * d
		}
		return loss
	}
}

// DLoss computes the per-sample loss, the gradient of that loss with
// respect to every weight, and with respect to every bias, via reverse-mode
// backpropagation through the active subgraph.
func (w *WeightedExpression) DLoss(point, label []float64, kind LossKind) (loss float64, gradW, gradB []float64, err error) {
	if err := validateKind(kind); err != nil {
		return 0, nil, nil, err
	}
	if len(label) != w.expr.M() {
		return 0, nil, nil, fmt.Errorf("%w: label has length %d, want m=%d", ErrInvalidArgument, len(label), w.expr.M())
	}
	values, localDeriv, err := w.forward(point)
	if err != nil {
		return 0, nil, nil, err
	}
	out := make([]float64, w.expr.M())
	selectors := make([]int, w.expr.M())
	for i := range out {
		sel, err := w.expr.OutputSelector(i)
		if err != nil {
			return 0, nil, nil, err
		}
		selectors[i] = sel
		out[i] = values[sel]
	}
	loss = evalLoss(out, label, kind)

	acc := make([]float64, w.expr.NumNodes())
	switch kind {
	case CE:
		p := softmax(out)
		for i, sel := range selectors {
			acc[sel] += p[i] - label[i]
		}
	default: // MSE
		// The output node's local derivative is applied once, in the
		// backward sweep below, exactly as for the cross-entropy seed.
		for i, sel := range selectors {
			acc[sel] += 2 * (out[i] - label[i])
		}
	}

	gradW = make([]float64, len(w.weights))
	gradB = make([]float64, len(w.biases))
	active := w.expr.ActiveNodes()
	for idx := len(active) - 1; idx >= 0; idx-- {
		id := active[idx]
		if id < w.expr.N() {
			continue
		}
		full := localDeriv[id] * acc[id]
		conns, err := w.expr.Connections(id)
		if err != nil {
			return 0, nil, nil, err
		}
		base, err := w.expr.WeightBase(id)
		if err != nil {
			return 0, nil, nil, err
		}
		for j, src := range conns {
			gradW[base+j] += full * values[src]
			acc[src] += w.weights[base+j] * full
		}
		intIdx, err := w.expr.InternalIndex(id)
		if err != nil {
			return 0, nil, nil, err
		}
		gradB[intIdx] += full
	}
	return loss, gradW, gradB, nil
}

// BatchLoss averages Loss over a batch of points/labels.
func (w *WeightedExpression) BatchLoss(points, labels [][]float64, kind LossKind) (float64, error) {
	if err := validateBatch(points, labels); err != nil {
		return 0, err
	}
	total := 0.0
	for i := range points {
		l, err := w.Loss(points[i], labels[i], kind)
		if err != nil {
			return 0, err
		}
		total += l
	}
	return total / float64(len(points)), nil
}

// BatchDLoss averages both loss and gradients over a batch of
// points/labels.
func (w *WeightedExpression) BatchDLoss(points, labels [][]float64, kind LossKind) (loss float64, gradW, gradB []float64, err error) {
	if err := validateBatch(points, labels); err != nil {
		return 0, nil, nil, err
	}
	gradW = make([]float64, len(w.weights))
	gradB = make([]float64, len(w.biases))
	for i := range points {
		l, gw, gb, err := w.DLoss(points[i], labels[i], kind)
		if err != nil {
			return 0, nil, nil, err
		}
		loss += l
		for j := range gradW {
			gradW[j] += gw[j]
		}
		for j := range gradB {
			gradB[j] += gb[j]
		}
	}
	n := float64(len(points))
	loss /= n
	for j := range gradW {
		gradW[j] /= n
	}
	for j := range gradB {
		gradB[j] /= n
	}
	return loss, gradW, gradB, nil
}

func validateBatch(points, labels [][]float64) error {
	if len(points) != len(labels) {
		return fmt.Errorf("%w: %d points, %d labels", ErrInvalidArgument, len(points), len(labels))
	}
	if len(points) == 0 {
		return fmt.Errorf("%w: empty batch", ErrInvalidArgument)
	}
	return nil
}

// SGD runs one epoch of mini-batch stochastic gradient descent: the dataset
// is partitioned into contiguous batches of batchSize (a trailing short
// batch is allowed), and every weight/bias is updated by
// x ← x − (lr/batchSize)·g where g is the batch-averaged gradient.
func (w *WeightedExpression) SGD(points, labels [][]float64, lr float64, batchSize int, kind LossKind) error {
	if err := validateBatch(points, labels); err != nil {
		return err
	}
	if lr <= 0 {
		return fmt.Errorf("%w: lr must be > 0", ErrInvalidArgument)
	}
	if batchSize <= 0 {
		return fmt.Errorf("%w: batchSize must be > 0", ErrInvalidArgument)
	}
	if err := validateKind(kind); err != nil {
		return err
	}
	for start := 0; start < len(points); start += batchSize {
		end := start + batchSize
		if end > len(points) {
			end = len(points)
		}
		_, gradW, gradB, err := w.BatchDLoss(points[start:end], labels[start:end], kind)
		if err != nil {
			return err
		}
		scale := lr / float64(batchSize)
		for i := range w.weights {
			w.weights[i] -= scale * gradW[i]
		}
		for i := range w.biases {
			w.biases[i] -= scale * gradB[i]
		}
	}
	return nil
}
