package tracker

import (
	"fmt"
	"math"
	"sort"
)

// Unmatched marks a detection that was not assigned to any track
const Unmatched = -1

// Matcher assigns a frame's detections to open tracks.  The cost matrix has
// one row per open track, ordered by ascending track id, and one column per
// detection in layer order.  Infeasible pairs hold +Inf.  Match returns the
// row matched to each column, or Unmatched.  A row is matched to at most one
// column.
type Matcher interface {
	Match(cost [][]float64, nDets int) ([]int, error)
}

// GreedyMatcher claims the cheapest feasible pairs first.  Equal costs are
// ordered by ascending row, then ascending column.
type GreedyMatcher struct{}

type costPair struct {
	row, col int
	cost     float64
}

// Match implements the Matcher interface
func (GreedyMatcher) Match(cost [][]float64, nDets int) ([]int, error) {

	assigned := newUnmatched(nDets)

	var pairs []costPair

	for i, row := range cost {
		for j, c := range row {
			if !math.IsInf(c, 1) {
				pairs = append(pairs, costPair{row: i, col: j, cost: c})
			}
		}
	}

	sort.SliceStable(pairs, func(a, b int) bool {
		if pairs[a].cost != pairs[b].cost {
			return pairs[a].cost < pairs[b].cost
		}
		if pairs[a].row != pairs[b].row {
			return pairs[a].row < pairs[b].row
		}
		return pairs[a].col < pairs[b].col
	})

	rowUsed := make([]bool, len(cost))

	for _, p := range pairs {
		if rowUsed[p.row] || assigned[p.col] != Unmatched {
			continue
		}
		rowUsed[p.row] = true
		assigned[p.col] = p.row
	}

	return assigned, nil
}

// LAPMatcher finds the assignment with the minimum total cost over all
// feasible pairs, using the Jonker-Volgenant linear assignment solver
type LAPMatcher struct{}

// Match implements the Matcher interface
func (LAPMatcher) Match(cost [][]float64, nDets int) ([]int, error) {

	assigned := newUnmatched(nDets)
	nTracks := len(cost)

	if nTracks == 0 || nDets == 0 {
		return assigned, nil
	}

	// scale feasible costs into [0, 1) so every feasible pair is cheaper than
	// leaving both its track and detection unmatched, maximizing the number
	// of matches before their total cost
	maxCost := 0.0

	for _, row := range cost {
		for _, c := range row {
			if !math.IsInf(c, 1) && c > maxCost {
				maxCost = c
			}
		}
	}

	scale := maxCost + 1
	const (
		dummyCost      = 1.0
		infeasibleCost = 10.0
	)

	// square matrix of size nTracks+nDets with dummy rows and columns
	n := nTracks + nDets
	ext := make([][]float64, n)

	for i := range ext {
		ext[i] = make([]float64, n)

		for j := range ext[i] {
			switch {
			case i < nTracks && j < nDets:
				if c := cost[i][j]; math.IsInf(c, 1) {
					ext[i][j] = infeasibleCost
				} else {
					ext[i][j] = c / scale
				}
			case i >= nTracks && j >= nDets:
				ext[i][j] = 0
			default:
				ext[i][j] = dummyCost
			}
		}
	}

	rowsol, _, err := solveLAP(ext)

	if err != nil {
		return nil, fmt.Errorf("linear assignment failed: %w", err)
	}

	for i := 0; i < nTracks; i++ {
		j := rowsol[i]

		if j < 0 || j >= nDets || math.IsInf(cost[i][j], 1) {
			continue
		}

		assigned[j] = i
	}

	return assigned, nil
}

// newUnmatched returns a slice of n Unmatched entries
func newUnmatched(n int) []int {
	res := make([]int, n)
	for i := range res {
		res[i] = Unmatched
	}
	return res
}

// MatcherByName returns the Matcher registered under the given name
func MatcherByName(name string) (Matcher, error) {
	switch name {
	case "", "greedy":
		return GreedyMatcher{}, nil
	case "lapjv":
		return LAPMatcher{}, nil
	default:
		return nil, fmt.Errorf("unknown matcher %q", name)
	}
}
