package search

import (
	"math"
	"sort"
)

// dominates reports whether f1 Pareto-dominates f2 under minimization: no
// worse in every objective and strictly better in at least one.
func dominates(f1, f2 []float64) bool {
	strictlyBetter := false
	for i := range f1 {
		if f1[i] > f2[i] {
			return false
		}
		if f1[i] < f2[i] {
			strictlyBetter = true
		}
	}
	return strictlyBetter
}

// nonDominatedSort partitions indices 0..len(fs)-1 into dominance layers
// (the fast non-dominated sort of Deb et al.), front 0 being the Pareto
// front.
func nonDominatedSort(fs [][]float64) [][]int {
	n := len(fs)
	dominationCount := make([]int, n)
	dominatedBy := make([][]int, n)
	var front0 []int
	for p := 0; p < n; p++ {
		for q := 0; q < n; q++ {
			if p == q {
				continue
			}
			if dominates(fs[p], fs[q]) {
				dominatedBy[p] = append(dominatedBy[p], q)
			} else if dominates(fs[q], fs[p]) {
				dominationCount[p]++
			}
		}
		if dominationCount[p] == 0 {
			front0 = append(front0, p)
		}
	}

	fronts := [][]int{front0}
	current := front0
	for len(current) > 0 {
		var next []int
		for _, p := range current {
			for _, q := range dominatedBy[p] {
				dominationCount[q]--
				if dominationCount[q] == 0 {
					next = append(next, q)
				}
			}
		}
		if len(next) > 0 {
			fronts = append(fronts, next)
		}
		current = next
	}
	return fronts
}

// crowdingDistance computes each index's crowding distance within a single
// front, the per-objective normalized-range tie-break NSGA-II uses when a
// front must be partially admitted.
func crowdingDistance(fs [][]float64, front []int) map[int]float64 {
	dist := make(map[int]float64, len(front))
	for _, i := range front {
		dist[i] = 0
	}
	if len(front) <= 2 {
		for _, i := range front {
			dist[i] = math.Inf(1)
		}
		return dist
	}

	nObj := len(fs[front[0]])
	for m := 0; m < nObj; m++ {
		sorted := append([]int(nil), front...)
		sort.Slice(sorted, func(a, b int) bool { return fs[sorted[a]][m] < fs[sorted[b]][m] })
		lo := fs[sorted[0]][m]
		hi := fs[sorted[len(sorted)-1]][m]
		dist[sorted[0]] = math.Inf(1)
		dist[sorted[len(sorted)-1]] = math.Inf(1)
		if hi == lo {
			continue
		}
		for i := 1; i < len(sorted)-1; i++ {
			dist[sorted[i]] += (fs[sorted[i+1]][m] - fs[sorted[i-1]][m]) / (hi - lo)
		}
	}
	return dist
}

// selectBestN selects n indices from fs via non-dominated sorting with a
// crowding-distance tie-break on the front that would otherwise overflow
// the selection, mirroring NSGA-II's environmental selection. Per §4.5
// step 5.
func selectBestN(fs [][]float64, n int) []int {
	fronts := nonDominatedSort(fs)
	selected := make([]int, 0, n)
	for _, front := range fronts {
		if len(selected)+len(front) <= n {
			selected = append(selected, front...)
			if len(selected) == n {
				break
			}
			continue
		}
		remaining := n - len(selected)
		dist := crowdingDistance(fs, front)
		sortedFront := append([]int(nil), front...)
		sort.Slice(sortedFront, func(a, b int) bool { return dist[sortedFront[a]] > dist[sortedFront[b]] })
		selected = append(selected, sortedFront[:remaining]...)
		break
	}
	return selected
}

// idealPoint returns the coordinate-wise minimum of a set of objective
// vectors.
func idealPoint(fs [][]float64) []float64 {
	if len(fs) == 0 {
		return nil
	}
	ideal := append([]float64(nil), fs[0]...)
	for _, f := range fs[1:] {
		for i, v := range f {
			if v < ideal[i] {
				ideal[i] = v
			}
		}
	}
	return ideal
}

// nadirPoint returns the coordinate-wise maximum of a set of objective
// vectors.
func nadirPoint(fs [][]float64) []float64 {
	if len(fs) == 0 {
		return nil
	}
	nadir := append([]float64(nil), fs[0]...)
	for _, f := range fs[1:] {
		for i, v := range f {
			if v > nadir[i] {
				nadir[i] = v
			}
		}
	}
	return nadir
}
