package jobmanager

import "math"

// forbidden marks an agent/job pair that must not be matched.
const forbidden = 1 << 40

// minCostMatching solves the assignment problem for a rows x cols cost
// matrix with the Hungarian method. It returns, per row, the matched
// column or -1. Pairs costing forbidden or more are never reported.
func minCostMatching(cost [][]int) []int {
	rows := len(cost)
	if rows == 0 {
		return nil
	}
	cols := len(cost[0])
	n := max(rows, cols)

	// Square, 1-indexed copy; padding rows and columns cost nothing.
	a := make([][]int, n+1)
	for i := range a {
		a[i] = make([]int, n+1)
	}
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			a[i+1][j+1] = cost[i][j]
		}
	}

	const inf = math.MaxInt / 4
	u := make([]int, n+1)
	v := make([]int, n+1)
	p := make([]int, n+1) // p[col] = row matched to col
	way := make([]int, n+1)

	for i := 1; i <= n; i++ {
		p[0] = i
		j0 := 0
		minv := make([]int, n+1)
		for j := range minv {
			minv[j] = inf
		}
		used := make([]bool, n+1)
		for {
			used[j0] = true
			i0, delta, j1 := p[j0], inf, 0
			for j := 1; j <= n; j++ {
				if used[j] {
					continue
				}
				cur := a[i0][j] - u[i0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}
			for j := 0; j <= n; j++ {
				if used[j] {
					u[p[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}
			j0 = j1
			if p[j0] == 0 {
				break
			}
		}
		for j0 != 0 {
			j1 := way[j0]
			p[j0] = p[j1]
			j0 = j1
		}
	}

	match := make([]int, rows)
	for i := range match {
		match[i] = -1
	}
	for j := 1; j <= n; j++ {
		i := p[j] - 1
		if i < rows && j-1 < cols && cost[i][j-1] < forbidden {
			match[i] = j - 1
		}
	}
	return match
}
