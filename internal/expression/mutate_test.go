package expression

import "testing"

func TestMutateGeneChangesOnlyTargetPosition(t *testing.T) {
	e := grammarCheckExpression(t)
	before := e.Chromosome()
	if err := e.MutateGene(0); err != nil {
		t.Fatalf("MutateGene: %v", err)
	}
	after := e.Chromosome()
	if after[0] == before[0] {
		t.Fatalf("position 0 unchanged: %d", after[0])
	}
	for i := 1; i < len(before); i++ {
		if after[i] != before[i] {
			t.Fatalf("position %d changed unexpectedly: %d -> %d", i, before[i], after[i])
		}
	}
}

func TestMutateGeneStaysWithinBound(t *testing.T) {
	e := grammarCheckExpression(t)
	for trial := 0; trial < 50; trial++ {
		if err := e.MutateGene(0); err != nil {
			t.Fatalf("MutateGene: %v", err)
		}
		bound, err := e.geneBound(0)
		if err != nil {
			t.Fatalf("geneBound: %v", err)
		}
		if !bound.Contains(e.Chromosome()[0]) {
			t.Fatalf("gene %d escaped bound [%d,%d]", e.Chromosome()[0], bound.Lower, bound.Upper)
		}
	}
}

func TestMutateGenesIsAtomicOnFailure(t *testing.T) {
	e := grammarCheckExpression(t)
	before := e.Chromosome()
	err := e.MutateGenes([]int{0, 1, len(before) + 5})
	if err == nil {
		t.Fatal("expected error for out-of-range position")
	}
	after := e.Chromosome()
	for i := range before {
		if after[i] != before[i] {
			t.Fatalf("chromosome mutated despite failed MutateGenes at position %d", i)
		}
	}
}

func TestMutateRandomProducesValidChromosome(t *testing.T) {
	e := grammarCheckExpression(t)
	if err := e.MutateRandom(5); err != nil {
		t.Fatalf("MutateRandom: %v", err)
	}
	// Re-Set with the resulting chromosome must succeed: the mutated
	// chromosome is valid by construction.
	if err := e.Set(e.Chromosome()); err != nil {
		t.Fatalf("mutated chromosome failed re-validation: %v", err)
	}
}

func TestMutateActiveOnlyTouchesActiveGenes(t *testing.T) {
	e := grammarCheckExpression(t)
	activeBefore := make(map[int]bool)
	for _, pos := range e.ActiveGenes() {
		activeBefore[pos] = true
	}
	before := e.Chromosome()
	if err := e.MutateActive(3); err != nil {
		t.Fatalf("MutateActive: %v", err)
	}
	after := e.Chromosome()
	for i := range before {
		if after[i] != before[i] && !activeBefore[i] {
			t.Fatalf("MutateActive touched inactive position %d", i)
		}
	}
}

func TestMutateActiveFGeneOnlyTouchesFunctionGenes(t *testing.T) {
	e := grammarCheckExpression(t)
	before := e.Chromosome()
	if err := e.MutateActiveFGene(2); err != nil {
		t.Fatalf("MutateActiveFGene: %v", err)
	}
	after := e.Chromosome()
	for i := range before {
		if after[i] != before[i] && !e.isFunctionGene(i) {
			t.Fatalf("MutateActiveFGene touched non-function position %d", i)
		}
	}
}

func TestMutateActiveCGeneOnlyTouchesConnectionGenes(t *testing.T) {
	e := grammarCheckExpression(t)
	before := e.Chromosome()
	if err := e.MutateActiveCGene(2); err != nil {
		t.Fatalf("MutateActiveCGene: %v", err)
	}
	after := e.Chromosome()
	for i := range before {
		if after[i] != before[i] {
			if e.isFunctionGene(i) || e.isOutputGene(i) {
				t.Fatalf("MutateActiveCGene touched non-connection position %d", i)
			}
		}
	}
}

func TestMutateOGeneOnlyTouchesOutputGenes(t *testing.T) {
	e := grammarCheckExpression(t)
	before := e.Chromosome()
	if err := e.MutateOGene(2); err != nil {
		t.Fatalf("MutateOGene: %v", err)
	}
	after := e.Chromosome()
	for i := range before {
		if after[i] != before[i] && !e.isOutputGene(i) {
			t.Fatalf("MutateOGene touched non-output position %d", i)
		}
	}
}

func TestMutateKUnaffectedByRepeatedZero(t *testing.T) {
	e := grammarCheckExpression(t)
	before := e.Chromosome()
	if err := e.MutateRandom(0); err != nil {
		t.Fatalf("MutateRandom(0): %v", err)
	}
	after := e.Chromosome()
	for i := range before {
		if after[i] != before[i] {
			t.Fatalf("MutateRandom(0) changed position %d", i)
		}
	}
}

func TestActiveSetIdempotentAfterRedundantSet(t *testing.T) {
	e := grammarCheckExpression(t)
	active1 := e.ActiveNodes()
	if err := e.Set(e.Chromosome()); err != nil {
		t.Fatalf("Set: %v", err)
	}
	active2 := e.ActiveNodes()
	if len(active1) != len(active2) {
		t.Fatalf("active set changed after re-Set with identical chromosome: %v vs %v", active1, active2)
	}
	for i := range active1 {
		if active1[i] != active2[i] {
			t.Fatalf("active set changed after re-Set with identical chromosome: %v vs %v", active1, active2)
		}
	}
}
