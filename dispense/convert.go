package dispense

// TargetsToSparse converts ragged label sequences into a
// sparse triple over a zero-padded [batch, maxLen] grid.
func TargetsToSparse(targets [][]int) *SparseTargets {
	return DenseToSparse(RowsToDense(targets))
}

// RowsToDense merges ragged rows into one dense zero-padded
// matrix whose width is the longest row.
func RowsToDense(rows [][]int) [][]int {
	maxLen := 0
	for _, r := range rows {
		if len(r) > maxLen {
			maxLen = len(r)
		}
	}
	res := make([][]int, len(rows))
	for i, r := range rows {
		res[i] = make([]int, maxLen)
		copy(res[i], r)
	}
	return res
}

// DenseToSparse records the nonzero entries of a dense
// matrix. Code 0 is the implicit blank and is never
// materialized.
func DenseToSparse(m [][]int) *SparseTargets {
	cols := 0
	if len(m) > 0 {
		cols = len(m[0])
	}
	res := &SparseTargets{Shape: [2]int{len(m), cols}}
	for i, row := range m {
		for j, v := range row {
			if v != 0 {
				res.Indices = append(res.Indices, [2]int{i, j})
				res.Values = append(res.Values, v)
			}
		}
	}
	return res
}

// SparseToDense expands a sparse triple back into a dense
// matrix of its logical shape.
func SparseToDense(s *SparseTargets) [][]int {
	res := make([][]int, s.Shape[0])
	for i := range res {
		res[i] = make([]int, s.Shape[1])
	}
	for i, idx := range s.Indices {
		res[idx[0]][idx[1]] = s.Values[i]
	}
	return res
}
