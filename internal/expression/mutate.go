package expression

import "fmt"

// SetFunctionGene overwrites internal node id's function gene directly
// (bypassing random redraw), after validating both the node id and the
// kernel index against their bounds. Used by callers that need to pin a
// specific kernel rather than mutate at random (e.g. a classification
// head).
func (e *Expression) SetFunctionGene(id, kernelIdx int) error {
	if id < e.n || id >= e.numNodes() {
		return fmt.Errorf("%w: node id %d is not an internal node", ErrInvalidArgument, id)
	}
	bound := e.functionBound()
	if !bound.Contains(kernelIdx) {
		return fmt.Errorf("%w: kernel index %d out of bound [%d,%d]", ErrInvalidArgument, kernelIdx, bound.Lower, bound.Upper)
	}
	e.chromosome[e.nodeGeneOffset(id)] = kernelIdx
	e.refreshActive()
	return nil
}

// redraw samples a value in bound, uniformly, excluding exclude, via
// rejection sampling. If bound has no other admissible value (a kernel set
// or grid of width 1), it returns exclude unchanged, so the mutation is a
// no-op.
func (e *Expression) redraw(bound GeneBound, exclude int) int {
	if bound.Width() <= 1 {
		return exclude
	}
	for {
		v := bound.Lower + e.rng.Intn(bound.Width())
		if v != exclude {
			return v
		}
	}
}

// MutateGene redraws the gene at chromosome position pos to a different
// admissible value, then refreshes the active set.
func (e *Expression) MutateGene(pos int) error {
	bound, err := e.geneBound(pos)
	if err != nil {
		return err
	}
	e.chromosome[pos] = e.redraw(bound, e.chromosome[pos])
	e.refreshActive()
	return nil
}

// MutateGenes redraws every gene at the given positions as a single atomic
// operation: either all redraws succeed, or none are applied.
func (e *Expression) MutateGenes(positions []int) error {
	bounds := make([]GeneBound, len(positions))
	for i, pos := range positions {
		b, err := e.geneBound(pos)
		if err != nil {
			return err
		}
		bounds[i] = b
	}
	for i, pos := range positions {
		e.chromosome[pos] = e.redraw(bounds[i], e.chromosome[pos])
	}
	e.refreshActive()
	return nil
}

// MutateRandom redraws k genes chosen uniformly at random from the whole
// chromosome (active or not), with replacement across calls but without
// repeating a position within a single call.
func (e *Expression) MutateRandom(k int) error {
	if k < 0 {
		return fmt.Errorf("%w: k must be >= 0", ErrInvalidArgument)
	}
	positions := e.samplePositions(len(e.chromosome), k)
	return e.MutateGenes(positions)
}

// MutateActive redraws k genes chosen uniformly at random from the genes
// that currently influence some output (§4.2's active-gene set).
func (e *Expression) MutateActive(k int) error {
	if k < 0 {
		return fmt.Errorf("%w: k must be >= 0", ErrInvalidArgument)
	}
	pool := e.ActiveGenes()
	positions := e.samplePositionsFrom(pool, k)
	return e.MutateGenes(positions)
}

// MutateActiveFGene redraws k active function genes.
func (e *Expression) MutateActiveFGene(k int) error {
	return e.mutateActiveFiltered(k, e.isFunctionGene)
}

// MutateActiveCGene redraws k active connection genes.
func (e *Expression) MutateActiveCGene(k int) error {
	return e.mutateActiveFiltered(k, func(pos int) bool {
		return !e.isFunctionGene(pos) && !e.isOutputGene(pos)
	})
}

// MutateOGene redraws k output genes (always active by definition).
func (e *Expression) MutateOGene(k int) error {
	if k < 0 {
		return fmt.Errorf("%w: k must be >= 0", ErrInvalidArgument)
	}
	pool := make([]int, e.m)
	for i := range pool {
		pool[i] = e.outputGeneOffset(i)
	}
	positions := e.samplePositionsFrom(pool, k)
	return e.MutateGenes(positions)
}

func (e *Expression) mutateActiveFiltered(k int, keep func(pos int) bool) error {
	if k < 0 {
		return fmt.Errorf("%w: k must be >= 0", ErrInvalidArgument)
	}
	pool := make([]int, 0)
	for _, pos := range e.ActiveGenes() {
		if keep(pos) {
			pool = append(pool, pos)
		}
	}
	positions := e.samplePositionsFrom(pool, k)
	return e.MutateGenes(positions)
}

// samplePositions draws k distinct positions from [0, n) without
// replacement. If k exceeds n, every position is returned once.
func (e *Expression) samplePositions(n, k int) []int {
	pool := make([]int, n)
	for i := range pool {
		pool[i] = i
	}
	return e.samplePositionsFrom(pool, k)
}

func (e *Expression) samplePositionsFrom(pool []int, k int) []int {
	if k >= len(pool) {
		return append([]int(nil), pool...)
	}
	shuffled := append([]int(nil), pool...)
	e.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled[:k]
}
