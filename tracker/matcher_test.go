package tracker

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var inf = math.Inf(1)

func TestGreedyMatcher(t *testing.T) {

	tests := []struct {
		name  string
		cost  [][]float64
		nDets int
		want  []int
	}{
		{
			name:  "no tracks",
			cost:  nil,
			nDets: 2,
			want:  []int{Unmatched, Unmatched},
		},
		{
			name: "cheapest first",
			cost: [][]float64{
				{4, 5},
				{5, inf},
			},
			nDets: 2,
			want:  []int{0, Unmatched},
		},
		{
			name: "tie broken by lower row",
			cost: [][]float64{
				{3},
				{3},
			},
			nDets: 1,
			want:  []int{0},
		},
		{
			name: "tie broken by lower column",
			cost: [][]float64{
				{2, 2},
			},
			nDets: 2,
			want:  []int{0, Unmatched},
		},
		{
			name: "all infeasible",
			cost: [][]float64{
				{inf, inf},
			},
			nDets: 2,
			want:  []int{Unmatched, Unmatched},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := GreedyMatcher{}.Match(tc.cost, tc.nDets)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestLAPMatcher(t *testing.T) {

	tests := []struct {
		name  string
		cost  [][]float64
		nDets int
		want  []int
	}{
		{
			name:  "no detections",
			cost:  [][]float64{{}, {}},
			nDets: 0,
			want:  []int{},
		},
		{
			name: "maximizes matches",
			cost: [][]float64{
				{4, 5},
				{5, inf},
			},
			nDets: 2,
			want:  []int{1, 0},
		},
		{
			name: "more tracks than detections",
			cost: [][]float64{
				{9},
				{1},
				{inf},
			},
			nDets: 1,
			want:  []int{1},
		},
		{
			name: "infeasible never matched",
			cost: [][]float64{
				{inf, 2},
			},
			nDets: 2,
			want:  []int{Unmatched, 0},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := LAPMatcher{}.Match(tc.cost, tc.nDets)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestMatcherByName(t *testing.T) {

	m, err := MatcherByName("greedy")
	require.NoError(t, err)
	assert.IsType(t, GreedyMatcher{}, m)

	m, err = MatcherByName("lapjv")
	require.NoError(t, err)
	assert.IsType(t, LAPMatcher{}, m)

	_, err = MatcherByName("hungarian")
	assert.Error(t, err)
}
