package multilu

// factorBlock is the persistent per-supercolumn factor fragment: the
// pivot block LU1 (L's unit lower triangle and U's
// upper triangle, packed together), the sub-pivot lower panel L2, the
// transposed U row-panel Ut2, and the index bookkeeping needed to place
// this front's rows/columns back into the global permutation.
type factorBlock struct {
	PivotCols    []int
	PivotRows    []int
	NonPivotCols []int
	NonPivotRows []int

	LU1 denseBlock
	L2  denseBlock
	Ut2 denseBlock

	Contrib *contribBlock

	Valid bool
}

// newFactorBlock allocates LU1 and Ut2 at their symbolic upper bounds:
// LU1 is l_size x supercolumn_size, Ut2 is u_size x supercolumn_size,
// and PivotCols is seeded with the supercolumn's own column range.
func newFactorBlock(lSize, uSize int, pivotCols []int) *factorBlock {
	return &factorBlock{
		PivotCols: append([]int(nil), pivotCols...),
		LU1:       newDenseBlock(lSize, len(pivotCols), lSize),
		Ut2:       newDenseBlock(uSize, len(pivotCols), uSize),
		Valid:     true,
	}
}

// blockedFactor is the full factorization result: m, n, the matrix type,
// and the factor blocks in postorder.
type blockedFactor struct {
	M, N  int
	Type  MatrixType
	Etree eliminationTree
	Sym   *Symbolic

	Blocks []*factorBlock
}

// Valid walks the blocks and returns false on the first invalid one: a
// single invalid block invalidates the whole factor.
func (bf *blockedFactor) Valid() bool {
	for _, b := range bf.Blocks {
		if b == nil || !b.Valid {
			return false
		}
	}
	return true
}
