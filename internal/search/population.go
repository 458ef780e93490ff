package search

import "fmt"

// BasicPopulation is a minimal slice-based Population implementation for
// callers that don't already have their own. §6 leaves the population type
// to the host; this is the one this module provides for Runner and tests.
type BasicPopulation struct {
	x [][]float64
	f [][]float64
}

// NewBasicPopulation constructs a population from matching x/f slices.
func NewBasicPopulation(x, f [][]float64) (*BasicPopulation, error) {
	if len(x) != len(f) {
		return nil, fmt.Errorf("%w: %d decision vectors, %d fitness vectors", ErrInvalidArgument, len(x), len(f))
	}
	p := &BasicPopulation{
		x: make([][]float64, len(x)),
		f: make([][]float64, len(f)),
	}
	for i := range x {
		p.x[i] = append([]float64(nil), x[i]...)
		p.f[i] = append([]float64(nil), f[i]...)
	}
	return p, nil
}

func (p *BasicPopulation) Len() int { return len(p.x) }

func (p *BasicPopulation) GetX() [][]float64 {
	out := make([][]float64, len(p.x))
	for i, x := range p.x {
		out[i] = append([]float64(nil), x...)
	}
	return out
}

func (p *BasicPopulation) GetF() [][]float64 {
	out := make([][]float64, len(p.f))
	for i, f := range p.f {
		out[i] = append([]float64(nil), f...)
	}
	return out
}

func (p *BasicPopulation) SetXF(i int, x, f []float64) error {
	if i < 0 || i >= len(p.x) {
		return fmt.Errorf("%w: index %d out of range [0,%d)", ErrInvalidArgument, i, len(p.x))
	}
	p.x[i] = append([]float64(nil), x...)
	p.f[i] = append([]float64(nil), f...)
	return nil
}

func (p *BasicPopulation) PushBack(x, f []float64) {
	p.x = append(p.x, append([]float64(nil), x...))
	p.f = append(p.f, append([]float64(nil), f...))
}
