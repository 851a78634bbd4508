package tracker

import (
	"errors"
	"fmt"
)

// lapLarge is larger than any cost handed to the solver
const lapLarge = 1000000.0

// lapjv solves the dense square Linear Assignment Problem using the
// Jonker-Volgenant algorithm
type lapjv struct {
	n    int
	cost [][]float64
	// x holds the column assigned to each row
	x []int
	// y holds the row assigned to each column
	y []int
	// v holds the column dual values
	v []float64
	// free holds the rows left unassigned
	free []int
}

// solveLAP finds the minimum cost assignment of rows to columns of the square
// cost matrix.  It returns the column per row and the row per column.
func solveLAP(cost [][]float64) ([]int, []int, error) {

	n := len(cost)

	s := &lapjv{
		n:    n,
		cost: cost,
		x:    make([]int, n),
		y:    make([]int, n),
		v:    make([]float64, n),
		free: make([]int, n),
	}

	if n == 0 {
		return s.x, s.y, nil
	}

	for i := range cost {
		if len(cost[i]) != n {
			return nil, nil, fmt.Errorf("cost matrix row %d has %d columns, expected %d",
				i, len(cost[i]), n)
		}
	}

	nFree := s.reduceColumns()

	for pass := 0; nFree > 0 && pass < 2; pass++ {
		nFree = s.augmentRows(nFree)
	}

	if nFree > 0 {
		if err := s.augment(nFree); err != nil {
			return nil, nil, err
		}
	}

	return s.x, s.y, nil
}

// reduceColumns performs column reduction and reduction transfer, returning
// the number of free rows
func (s *lapjv) reduceColumns() int {

	unique := make([]bool, s.n)

	for i := 0; i < s.n; i++ {
		s.x[i] = -1
		s.v[i] = lapLarge
		s.y[i] = 0
		unique[i] = true
	}

	for i := 0; i < s.n; i++ {
		for j := 0; j < s.n; j++ {
			if c := s.cost[i][j]; c < s.v[j] {
				s.v[j] = c
				s.y[j] = i
			}
		}
	}

	for j := s.n - 1; j >= 0; j-- {
		i := s.y[j]

		if s.x[i] < 0 {
			s.x[i] = j
		} else {
			unique[i] = false
			s.y[j] = -1
		}
	}

	nFree := 0

	for i := 0; i < s.n; i++ {

		if s.x[i] < 0 {
			s.free[nFree] = i
			nFree++
			continue
		}

		if !unique[i] {
			continue
		}

		j := s.x[i]
		minVal := lapLarge

		for j2 := 0; j2 < s.n; j2++ {
			if j2 == j {
				continue
			}

			if c := s.cost[i][j2] - s.v[j2]; c < minVal {
				minVal = c
			}
		}

		s.v[j] -= minVal
	}

	return nFree
}

// augmentRows performs augmenting row reduction on the free rows, returning
// the number of rows still free
func (s *lapjv) augmentRows(nFree int) int {

	current := 0
	newFree := 0
	rrCnt := 0

	for current < nFree {

		rrCnt++
		freeI := s.free[current]
		current++

		// find the lowest and second lowest reduced cost of the row
		j1, j2 := 0, -1
		v1 := s.cost[freeI][0] - s.v[0]
		v2 := lapLarge

		for j := 1; j < s.n; j++ {
			c := s.cost[freeI][j] - s.v[j]

			if c >= v2 {
				continue
			}

			if c >= v1 {
				v2 = c
				j2 = j
			} else {
				v2 = v1
				v1 = c
				j2 = j1
				j1 = j
			}
		}

		i0 := s.y[j1]
		v1New := s.v[j1] - (v2 - v1)
		v1Lowers := v1New < s.v[j1]

		switch {
		case rrCnt < current*s.n:
			if v1Lowers {
				s.v[j1] = v1New
			} else if i0 >= 0 && j2 >= 0 {
				j1 = j2
				i0 = s.y[j2]
			}

			if i0 >= 0 {
				if v1Lowers {
					current--
					s.free[current] = i0
				} else {
					s.free[newFree] = i0
					newFree++
				}
			}

		case i0 >= 0:
			s.free[newFree] = i0
			newFree++
		}

		s.x[freeI] = j1
		s.y[j1] = freeI
	}

	return newFree
}

// augment assigns each remaining free row along a shortest augmenting path
func (s *lapjv) augment(nFree int) error {

	pred := make([]int, s.n)

	for _, freeI := range s.free[:nFree] {

		j := s.shortestPath(freeI, pred)

		if j < 0 || j >= s.n {
			return fmt.Errorf("augmenting path from row %d ended at column %d", freeI, j)
		}

		for k, i := 0, -1; i != freeI; k++ {
			if k >= s.n {
				return errors.New("augmenting path is longer than the cost matrix")
			}

			i = pred[j]
			s.y[j] = i
			j, s.x[i] = s.x[i], j
		}
	}

	return nil
}

// shortestPath runs a single modified Dijkstra search from the start row and
// returns the free column the path ends at
func (s *lapjv) shortestPath(start int, pred []int) int {

	lo, hi, ready := 0, 0, 0
	final := -1
	cols := make([]int, s.n)
	d := make([]float64, s.n)

	for j := 0; j < s.n; j++ {
		cols[j] = j
		pred[j] = start
		d[j] = s.cost[start][j] - s.v[j]
	}

	for final == -1 {
		// no columns left on the scan list
		if lo == hi {
			ready = lo
			hi = s.collectMin(lo, d, cols)

			for k := lo; k < hi; k++ {
				if s.y[cols[k]] < 0 {
					final = cols[k]
				}
			}
		}

		if final == -1 {
			final = s.scan(&lo, &hi, d, cols, pred)
		}
	}

	mind := d[cols[lo]]

	for k := 0; k < ready; k++ {
		j := cols[k]
		s.v[j] += d[j] - mind
	}

	return final
}

// collectMin moves the columns with minimum d from cols[lo:] to the front of
// the todo list and returns the new end of the scan list
func (s *lapjv) collectMin(lo int, d []float64, cols []int) int {

	hi := lo + 1
	mind := d[cols[lo]]

	for k := hi; k < s.n; k++ {
		j := cols[k]

		if d[j] > mind {
			continue
		}

		if d[j] < mind {
			hi = lo
			mind = d[j]
		}

		cols[k] = cols[hi]
		cols[hi] = j
		hi++
	}

	return hi
}

// scan relaxes the todo columns through each column on the scan list,
// returning a free column as soon as one is reached at minimum distance
func (s *lapjv) scan(lo, hi *int, d []float64, cols, pred []int) int {

	for *lo != *hi {

		j := cols[*lo]
		*lo++
		i := s.y[j]
		mind := d[j]
		h := s.cost[i][j] - s.v[j] - mind

		for k := *hi; k < s.n; k++ {
			j = cols[k]
			reduced := s.cost[i][j] - s.v[j] - h

			if reduced >= d[j] {
				continue
			}

			d[j] = reduced
			pred[j] = i

			if reduced == mind {
				if s.y[j] < 0 {
					return j
				}

				cols[k] = cols[*hi]
				cols[*hi] = j
				*hi++
			}
		}
	}

	return -1
}
