package multilu

import "fmt"

// CCSMatrix is a square sparse matrix in compressed-column storage: column
// j's entries are Rowind[Colptr[j]:Colptr[j+1]] / Values[Colptr[j]:Colptr[j+1]].
// Concrete Go shape is a column-major mirror of asmuelle-sparsem's
// row-major CSRMatrix.
type CCSMatrix struct {
	N      int
	Colptr []int
	Rowind []int
	Values []float64
	Type   MatrixType
}

// NewCCSMatrix validates and wraps the given CCS arrays. It requires
// m == n (the engine does not support rectangular A) and at least one
// nonzero per column.
func NewCCSMatrix(n int, colptr, rowind []int, values []float64, typ MatrixType) (*CCSMatrix, error) {
	if n <= 0 {
		return nil, wrapf(ErrMalformedInput, "invalid size %d", n)
	}
	if len(colptr) != n+1 {
		return nil, wrapf(ErrMalformedInput, "colptr length %d, want %d", len(colptr), n+1)
	}
	nnz := colptr[n]
	if len(rowind) < nnz || len(values) < nnz {
		return nil, wrapf(ErrMalformedInput, "rowind/values shorter than colptr[n]=%d", nnz)
	}
	for j := 0; j < n; j++ {
		if colptr[j] > colptr[j+1] {
			return nil, wrapf(ErrMalformedInput, "colptr not nondecreasing at column %d", j)
		}
		if colptr[j] == colptr[j+1] {
			return nil, wrapf(ErrMalformedInput, "empty column %d", j)
		}
		for k := colptr[j]; k < colptr[j+1]; k++ {
			if rowind[k] < 0 || rowind[k] >= n {
				return nil, wrapf(ErrMalformedInput, "row index %d out of range in column %d", rowind[k], j)
			}
		}
	}
	return &CCSMatrix{N: n, Colptr: colptr, Rowind: rowind, Values: values, Type: typ}, nil
}

// Nnz returns the number of stored nonzeros.
func (a *CCSMatrix) Nnz() int {
	return a.Colptr[a.N]
}

// transpose returns Aᵀ in CCS form. The engine keeps a private copy for
// row-oriented access during the row-focus step; this is not exposed as
// a general utility since transposition/permutation helpers are assumed
// to belong to an external CCS library.
func (a *CCSMatrix) transpose() *CCSMatrix {
	n := a.N
	colptr := make([]int, n+1)
	for k := 0; k < a.Nnz(); k++ {
		colptr[a.Rowind[k]+1]++
	}
	for j := 0; j < n; j++ {
		colptr[j+1] += colptr[j]
	}

	rowind := make([]int, a.Nnz())
	values := make([]float64, a.Nnz())
	next := make([]int, n)
	copy(next, colptr[:n])

	for j := 0; j < n; j++ {
		for k := a.Colptr[j]; k < a.Colptr[j+1]; k++ {
			i := a.Rowind[k]
			dst := next[i]
			rowind[dst] = j
			values[dst] = a.Values[k]
			next[i] = dst + 1
		}
	}

	return &CCSMatrix{N: n, Colptr: colptr, Rowind: rowind, Values: values, Type: a.Type}
}

// column returns the row indices and values of column j.
func (a *CCSMatrix) column(j int) ([]int, []float64) {
	lo, hi := a.Colptr[j], a.Colptr[j+1]
	return a.Rowind[lo:hi], a.Values[lo:hi]
}

func (a *CCSMatrix) String() string {
	return fmt.Sprintf("CCSMatrix{n=%d, nnz=%d, type=%s}", a.N, a.Nnz(), a.Type)
}
