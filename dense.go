package multilu

import (
	"math"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
)

// denseBlock is a column-major dense matrix with physical leading
// dimension Ld >= Rows, the concrete RealDouble shape backing LU1, L2,
// Ut2, and contribution-block storage. The dense kernels below are
// BLAS-style primitives backed by gonum.org/v1/gonum/blas/blas64, the
// way the rest of the corpus reaches for gonum's BLAS bindings rather
// than hand rolling Level 2/3 routines.
type denseBlock struct {
	Rows, Cols int
	Ld         int
	Data       []float64
}

func newDenseBlock(rows, cols, ld int) denseBlock {
	if ld < rows {
		ld = rows
	}
	if ld < 1 {
		ld = 1
	}
	return denseBlock{Rows: rows, Cols: cols, Ld: ld, Data: make([]float64, ld*cols)}
}

func (d denseBlock) at(i, j int) float64     { return d.Data[j*d.Ld+i] }
func (d denseBlock) set(i, j int, v float64) { d.Data[j*d.Ld+i] = v }
func (d denseBlock) col(j int) []float64     { return d.Data[j*d.Ld : j*d.Ld+d.Rows] }

// subBlock returns a view of the rows [rowOffset, rowOffset+rows) of d,
// sharing storage — used to split L2 off the bottom of LU1 after the
// dense LU step.
func subBlock(d denseBlock, rowOffset, rows int) denseBlock {
	return denseBlock{Rows: rows, Cols: d.Cols, Ld: d.Ld, Data: d.Data[rowOffset:]}
}

// compressBlock repacks d so its physical leading dimension equals its
// logical row count: used to compact LU1 after the dense LU step and Ut2
// after the triangular solve, both down to their actual occupied size.
func compressBlock(d denseBlock) denseBlock {
	if d.Ld == d.Rows {
		return d
	}
	out := newDenseBlock(d.Rows, d.Cols, d.Rows)
	for j := 0; j < d.Cols; j++ {
		copy(out.col(j), d.col(j))
	}
	return out
}

// asGeneral returns the row-major blas64.General view of dᵗ: since d is
// stored column-major with leading dimension d.Ld, reading the same
// bytes as row-major with stride d.Ld yields exactly the transpose. The
// rank-k update kernels below exploit this to drive blas64's Dgemm
// without copying, by swapping operand order and transpose flags.
func asGeneral(d denseBlock) blas64.General {
	return blas64.General{Rows: d.Cols, Cols: d.Rows, Stride: d.Ld, Data: d.Data}
}

// swapRows exchanges physical rows i and j of d in place.
func swapRows(d denseBlock, i, j int) {
	if i == j {
		return
	}
	impl := blas64.Implementation()
	impl.Dswap(d.Cols, d.Data[i:], d.Ld, d.Data[j:], d.Ld)
}

// luThresholdPartial factors the l x colB block in place with partial
// pivoting within a threshold band: the pivot candidate is the row of
// maximum modulus in the remaining sub-column; any row within thresh of
// that maximum is then eligible, and among eligible rows the one with
// smallest degree[row] is chosen (Markowitz-style tie-break).
// thresh == 1 disables the degree tie-break (only
// the largest-magnitude row is ever eligible). Returns the full row
// permutation applied (perm[i] is the index, into the caller's original
// row ordering, now occupying physical row i) and the number of pivots
// actually taken, rowB = min(l, colB); perm[0:rowB] are the pivot rows,
// perm[rowB:l] the rows that fall through to L2.
func luThresholdPartial(block denseBlock, thresh float64, degree []int) (perm []int, rowB int, err error) {
	l, colB := block.Rows, block.Cols
	rowB = min(colB, l)

	physRow := make([]int, l)
	for i := range physRow {
		physRow[i] = i
	}

	for k := 0; k < rowB; k++ {
		best := -1
		bestMag := 0.0
		for i := k; i < l; i++ {
			mag := math.Abs(block.at(i, k))
			if mag > bestMag {
				bestMag = mag
				best = i
			}
		}
		if best == -1 || bestMag == 0 {
			return nil, 0, wrapf(ErrNumericFailure, "zero pivot candidate in column %d", k)
		}

		if thresh < 1 && degree != nil {
			limit := thresh * bestMag
			chosen := best
			chosenDeg := degree[physRow[best]]
			for i := k; i < l; i++ {
				mag := math.Abs(block.at(i, k))
				if mag < limit {
					continue
				}
				if degree[physRow[i]] < chosenDeg {
					chosen, chosenDeg = i, degree[physRow[i]]
				}
			}
			best = chosen
		}

		if best != k {
			swapRows(block, k, best)
			physRow[k], physRow[best] = physRow[best], physRow[k]
		}

		pivotVal := block.at(k, k)
		for i := k + 1; i < l; i++ {
			factor := block.at(i, k) / pivotVal
			block.set(i, k, factor)
			for j := k + 1; j < colB; j++ {
				block.set(i, j, block.at(i, j)-factor*block.at(k, j))
			}
		}
	}

	return physRow, rowB, nil
}

// solveUnitLowerLeft solves L·X = B in place (X initially holds B),
// where l is a square unit-lower-triangular block.
func solveUnitLowerLeft(l, x denseBlock) {
	if l.Rows == 0 {
		return
	}
	impl := blas64.Implementation()
	for j := 0; j < x.Cols; j++ {
		impl.Dtrsv(blas.Upper, blas.Trans, blas.Unit, l.Rows, l.Data, l.Ld, x.col(j), 1)
	}
}

// solveUpperLeft solves U·X = B in place, where u is a square
// upper-triangular block with a general (non-unit) diagonal.
func solveUpperLeft(u, x denseBlock) {
	if u.Rows == 0 {
		return
	}
	impl := blas64.Implementation()
	for j := 0; j < x.Cols; j++ {
		impl.Dtrsv(blas.Lower, blas.Trans, blas.NonUnit, u.Rows, u.Data, u.Ld, x.col(j), 1)
	}
}

// solveUnitLowerRight solves X·Lᵗ = B in place, one row of X at a time,
// where l is a square unit-lower-triangular block. Used to transform
// Ut2 by L1's unit lower triangle after the row-focus step: Ut2·L1⁻ᵗ is
// the transpose of L1⁻¹·U2.
func solveUnitLowerRight(x, l denseBlock) {
	if l.Rows == 0 {
		return
	}
	impl := blas64.Implementation()
	for i := 0; i < x.Rows; i++ {
		impl.Dtrsv(blas.Upper, blas.Trans, blas.Unit, l.Rows, l.Data, l.Ld, x.Data[i:], x.Ld)
	}
}

// updateMinusABT computes C ← C − A·Bᵗ.
func updateMinusABT(c, a, b denseBlock) {
	if a.Cols == 0 || c.Rows == 0 || c.Cols == 0 {
		return
	}
	ga, gb, gc := asGeneral(a), asGeneral(b), asGeneral(c)
	blas64.Implementation().Dgemm(blas.Trans, blas.NoTrans,
		gc.Rows, gc.Cols, a.Cols,
		-1, gb.Data, gb.Stride, ga.Data, ga.Stride,
		1, gc.Data, gc.Stride)
}

// updateMinusAB computes C ← C − A·B.
func updateMinusAB(c, a, b denseBlock) {
	if a.Cols == 0 || c.Rows == 0 || c.Cols == 0 {
		return
	}
	ga, gb, gc := asGeneral(a), asGeneral(b), asGeneral(c)
	blas64.Implementation().Dgemm(blas.NoTrans, blas.NoTrans,
		gc.Rows, gc.Cols, a.Cols,
		-1, gb.Data, gb.Stride, ga.Data, ga.Stride,
		1, gc.Data, gc.Stride)
}

// updateMinusATB computes C ← C − Aᵗ·B.
func updateMinusATB(c, a, b denseBlock) {
	if a.Rows == 0 || c.Rows == 0 || c.Cols == 0 {
		return
	}
	ga, gb, gc := asGeneral(a), asGeneral(b), asGeneral(c)
	blas64.Implementation().Dgemm(blas.NoTrans, blas.Trans,
		gc.Rows, gc.Cols, a.Rows,
		-1, gb.Data, gb.Stride, ga.Data, ga.Stride,
		1, gc.Data, gc.Stride)
}
