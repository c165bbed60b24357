package multilu

// Solve performs forward/back substitution over a blocked factor: given
// P·A·Q = L·U and a right-hand side b (length M), it returns x such that
// A·x ≈ b. The factor is walked forward (pivot-row gather, unit-lower
// solve, propagate into non-pivot rows) then backward (non-pivot-column
// gather, upper solve, scatter into the pivot columns), one dense
// triangular solve per block.
func Solve(factor *blockedFactor, b []float64) ([]float64, error) {
	if !factor.Valid() {
		return nil, ErrInvalidFactor
	}
	if len(b) != factor.M {
		return nil, wrapf(ErrMalformedInput, "rhs length %d, want %d", len(b), factor.M)
	}

	n := factor.N
	y := append([]float64(nil), b...)
	x := make([]float64, n)

	s := len(factor.Blocks)
	yBlock := make([][]float64, s)

	for k := 0; k < s; k++ {
		fb := factor.Blocks[k]
		rowB := len(fb.PivotRows)
		xblock := make([]float64, rowB)
		for i, r := range fb.PivotRows {
			xblock[i] = y[r]
		}
		if rowB > 0 {
			l1 := denseBlock{Rows: rowB, Cols: rowB, Ld: fb.LU1.Ld, Data: fb.LU1.Data}
			solveUnitLowerLeft(l1, denseBlock{Rows: rowB, Cols: 1, Ld: rowB, Data: xblock})
		}
		yBlock[k] = xblock

		m := len(fb.NonPivotRows)
		if m > 0 && rowB > 0 {
			for i, r := range fb.NonPivotRows {
				sum := y[r]
				for j := 0; j < rowB; j++ {
					sum -= fb.L2.at(i, j) * xblock[j]
				}
				y[r] = sum
			}
		}
	}

	for k := s - 1; k >= 0; k-- {
		fb := factor.Blocks[k]
		rowB := len(fb.PivotRows)
		bblock := append([]float64(nil), yBlock[k]...)

		ru := len(fb.NonPivotCols)
		if ru > 0 {
			t := make([]float64, ru)
			for i, c := range fb.NonPivotCols {
				t[i] = x[c]
			}
			for j := 0; j < rowB; j++ {
				sum := 0.0
				for i := 0; i < ru; i++ {
					sum += fb.Ut2.at(i, j) * t[i]
				}
				bblock[j] -= sum
			}
		}

		if rowB > 0 {
			u1 := denseBlock{Rows: rowB, Cols: rowB, Ld: fb.LU1.Ld, Data: fb.LU1.Data}
			solveUpperLeft(u1, denseBlock{Rows: rowB, Cols: 1, Ld: rowB, Data: bblock})
		}

		for i, c := range fb.PivotCols {
			x[c] = bblock[i]
		}
	}

	return x, nil
}
