// Package expression implements the grid-encoded DAG at the core of dCGP:
// a compact integer chromosome, its validity bounds, active-node analysis,
// generic kernel evaluation, and the mutation operators that keep the
// encoding valid by construction.
package expression

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"dcgp/internal/kernel"
)

// ErrInvalidArgument is the sentinel wrapped by every malformed-input error
// this package returns.
var ErrInvalidArgument = errors.New("invalid argument")

// Config describes the fixed grid shape of an Expression. Arity must have
// length C; use UniformArity to build one from a single scalar.
type Config struct {
	N, M, R, C, L int
	Arity         []int
	Kernels       *kernel.Set
	Seed          int64
}

// UniformArity returns a per-column arity slice of length c, every entry
// set to a.
func UniformArity(a, c int) []int {
	out := make([]int, c)
	for i := range out {
		out[i] = a
	}
	return out
}

// Expression is the grid-encoded DAG: n inputs feeding an r-row by c-column
// grid of internal nodes, m output selectors, all addressed by a single
// integer chromosome.
type Expression struct {
	n, m, r, c, l int
	arity         []int
	kernels       *kernel.Set
	chromosome    []int
	active        []int
	rng           *rand.Rand
}

func ensureRNG(rng *rand.Rand) *rand.Rand {
	if rng != nil {
		return rng
	}
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

func (cfg Config) validate() error {
	if cfg.N == 0 {
		return fmt.Errorf("%w: n must be > 0", ErrInvalidArgument)
	}
	if cfg.M == 0 {
		return fmt.Errorf("%w: m must be > 0", ErrInvalidArgument)
	}
	if cfg.R == 0 {
		return fmt.Errorf("%w: r must be > 0", ErrInvalidArgument)
	}
	if cfg.C == 0 {
		return fmt.Errorf("%w: c must be > 0", ErrInvalidArgument)
	}
	if cfg.L == 0 {
		return fmt.Errorf("%w: l (levels-back) must be > 0", ErrInvalidArgument)
	}
	if len(cfg.Arity) != cfg.C {
		return fmt.Errorf("%w: arity has length %d, want c=%d", ErrInvalidArgument, len(cfg.Arity), cfg.C)
	}
	for i, a := range cfg.Arity {
		if a < 1 {
			return fmt.Errorf("%w: arity[%d]=%d must be >= 1", ErrInvalidArgument, i, a)
		}
	}
	if cfg.Kernels == nil || cfg.Kernels.Len() == 0 {
		return fmt.Errorf("%w: kernel set must not be empty", ErrInvalidArgument)
	}
	return nil
}

// New constructs an Expression with a fresh chromosome drawn uniformly
// within bounds.
func New(cfg Config) (*Expression, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	e := &Expression{
		n: cfg.N, m: cfg.M, r: cfg.R, c: cfg.C, l: cfg.L,
		arity:   append([]int(nil), cfg.Arity...),
		kernels: cfg.Kernels,
		rng:     rand.New(rand.NewSource(cfg.Seed)),
	}
	e.chromosome = e.randomChromosome()
	e.refreshActive()
	return e, nil
}

// N, M, R, C, L expose the fixed grid shape.
func (e *Expression) N() int { return e.n }
func (e *Expression) M() int { return e.m }
func (e *Expression) R() int { return e.r }
func (e *Expression) C() int { return e.c }
func (e *Expression) L() int { return e.l }

// Arity returns a copy of the per-column arity.
func (e *Expression) Arity() []int { return append([]int(nil), e.arity...) }

// Kernels returns the expression's kernel set.
func (e *Expression) Kernels() *kernel.Set { return e.kernels }

// numInternal is the total number of internal grid nodes, r*c.
func (e *Expression) numInternal() int { return e.r * e.c }

// numNodes is the total addressable node count (inputs + internal).
func (e *Expression) numNodes() int { return e.n + e.numInternal() }

// columnOf returns the internal column index (0..c-1) of internal node id.
func (e *Expression) columnOf(id int) int {
	return (id - e.n) / e.r
}

// ColumnOf returns the internal column index (0..c-1) of internal node id.
// Fails with ErrInvalidArgument if id does not name an internal node.
func (e *Expression) ColumnOf(id int) (int, error) {
	if id < e.n || id >= e.numNodes() {
		return 0, fmt.Errorf("%w: node id %d is not an internal node", ErrInvalidArgument, id)
	}
	return e.columnOf(id), nil
}

// WeightBase returns the offset into a Σ r·aᵢ-length per-edge vector (such
// as WeightedExpression's weights) where internal node id's incoming-edge
// entries begin; id's arity-many entries occupy
// [WeightBase(id), WeightBase(id)+Arity()[col]).
func (e *Expression) WeightBase(id int) (int, error) {
	if id < e.n || id >= e.numNodes() {
		return 0, fmt.Errorf("%w: node id %d is not an internal node", ErrInvalidArgument, id)
	}
	col := e.columnOf(id)
	row := (id - e.n) % e.r
	offset := 0
	for j := 0; j < col; j++ {
		offset += e.r * e.arity[j]
	}
	return offset + row*e.arity[col], nil
}

// chromosomeLength returns Σ r(aᵢ+1) + m.
func (e *Expression) chromosomeLength() int {
	total := e.m
	for _, a := range e.arity {
		total += e.r * (a + 1)
	}
	return total
}

// nodeGeneOffset returns the chromosome index of internal node id's
// function gene.
func (e *Expression) nodeGeneOffset(id int) int {
	col := e.columnOf(id)
	row := (id - e.n) % e.r
	offset := 0
	for j := 0; j < col; j++ {
		offset += e.r * (e.arity[j] + 1)
	}
	return offset + row*(e.arity[col]+1)
}

// outputGeneOffset returns the chromosome index of the i-th (0-indexed)
// output gene.
func (e *Expression) outputGeneOffset(i int) int {
	return e.chromosomeLength() - e.m + i
}

// connectionBound returns the admissible range for connection genes of
// nodes in internal column j.
func (e *Expression) connectionBound(j int) GeneBound {
	return columnBound(e.n, e.r, e.l, j)
}

// outputBound returns the admissible range for output genes.
func (e *Expression) outputBound() GeneBound {
	return columnBound(e.n, e.r, e.l, e.c)
}

// functionBound returns the admissible range for function genes.
func (e *Expression) functionBound() GeneBound {
	return functionGeneBound(e.kernels.Len())
}

// GeneBound returns the admissible range for chromosome position pos,
// exposed for hosts (e.g. a symbolic-regression problem) that need to
// report bounds over the integer suffix of a mixed decision vector.
func (e *Expression) GeneBound(pos int) (GeneBound, error) {
	return e.geneBound(pos)
}

// ChromosomeLength returns the fixed chromosome length Σ r(aᵢ+1) + m.
func (e *Expression) ChromosomeLength() int { return e.chromosomeLength() }

// geneBound returns the admissible range for chromosome position i.
func (e *Expression) geneBound(pos int) (GeneBound, error) {
	if pos < 0 || pos >= len(e.chromosome) {
		return GeneBound{}, fmt.Errorf("%w: gene index %d out of range [0,%d)", ErrInvalidArgument, pos, len(e.chromosome))
	}
	if pos >= e.chromosomeLength()-e.m {
		return e.outputBound(), nil
	}
	// Locate which node's gene block pos falls in.
	offset := 0
	for j := 0; j < e.c; j++ {
		block := e.r * (e.arity[j] + 1)
		if pos < offset+block {
			within := (pos - offset) % (e.arity[j] + 1)
			if within == 0 {
				return e.functionBound(), nil
			}
			return e.connectionBound(j), nil
		}
		offset += block
	}
	return GeneBound{}, fmt.Errorf("%w: gene index %d out of range", ErrInvalidArgument, pos)
}

// isFunctionGene reports whether chromosome position pos is a function
// gene (as opposed to a connection or output gene).
func (e *Expression) isFunctionGene(pos int) bool {
	if pos >= e.chromosomeLength()-e.m {
		return false
	}
	offset := 0
	for j := 0; j < e.c; j++ {
		block := e.r * (e.arity[j] + 1)
		if pos < offset+block {
			return (pos-offset)%(e.arity[j]+1) == 0
		}
		offset += block
	}
	return false
}

// isOutputGene reports whether chromosome position pos is an output gene.
func (e *Expression) isOutputGene(pos int) bool {
	return pos >= e.chromosomeLength()-e.m
}

func (e *Expression) randomChromosome() []int {
	chromo := make([]int, e.chromosomeLength())
	pos := 0
	for j := 0; j < e.c; j++ {
		fb := e.functionBound()
		cb := e.connectionBound(j)
		for row := 0; row < e.r; row++ {
			chromo[pos] = fb.Lower + e.rng.Intn(fb.Width())
			pos++
			for k := 0; k < e.arity[j]; k++ {
				chromo[pos] = cb.Lower + e.rng.Intn(cb.Width())
				pos++
			}
		}
	}
	ob := e.outputBound()
	for i := 0; i < e.m; i++ {
		chromo[pos] = ob.Lower + e.rng.Intn(ob.Width())
		pos++
	}
	return chromo
}

// Chromosome returns a copy of the current chromosome.
func (e *Expression) Chromosome() []int {
	return append([]int(nil), e.chromosome...)
}

// Set replaces the chromosome, after validating length and bounds. No
// partial mutation is committed on failure.
func (e *Expression) Set(chromosome []int) error {
	if len(chromosome) != e.chromosomeLength() {
		return fmt.Errorf("%w: chromosome has length %d, want %d", ErrInvalidArgument, len(chromosome), e.chromosomeLength())
	}
	for pos, gene := range chromosome {
		bound, err := e.geneBound(pos)
		if err != nil {
			return err
		}
		if !bound.Contains(gene) {
			return fmt.Errorf("%w: gene %d at position %d out of bound [%d,%d]", ErrInvalidArgument, gene, pos, bound.Lower, bound.Upper)
		}
	}
	e.chromosome = append([]int(nil), chromosome...)
	e.refreshActive()
	return nil
}
