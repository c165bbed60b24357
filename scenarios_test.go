package multilu

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Scenario 1: identity n=4 — every front is a trivial singleton pivot,
// L2 and Ut2 stay empty, and the solve is the identity map.
func TestScenario_IdentityFour(t *testing.T) {
	a := identityCCS(4)
	sym, err := SymbolicFactor(a, identityOrder(4), DefaultConfig())
	require.NoError(t, err)
	require.Equal(t, 4, sym.NumberSupercolumns)

	factor, err := NumericFactor(a, sym, 1.0, 0, 1, DefaultConfig())
	require.NoError(t, err)
	for _, fb := range factor.Blocks {
		assert.Equal(t, []float64{1}, fb.LU1.Data[:1])
		assert.Equal(t, 0, fb.L2.Rows)
		assert.Equal(t, 0, fb.Ut2.Rows)
	}

	x, err := Solve(factor, []float64{1, 2, 3, 4})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 4}, x)
}

// Scenario 2: A = [[0,1],[1,0]] forces a single supercolumn covering
// both columns, with row pivots swapped to [1,0] and L == I.
func TestScenario_DiagonalPivotingNeeded(t *testing.T) {
	a, err := NewCCSMatrix(2, []int{0, 1, 2}, []int{1, 0}, []float64{1, 1}, RealDouble)
	require.NoError(t, err)

	sym, err := SymbolicFactor(a, []int{0, 1}, DefaultConfig())
	require.NoError(t, err)
	require.Equal(t, 1, sym.NumberSupercolumns)

	factor, err := NumericFactor(a, sym, 1.0, 0, 1, DefaultConfig())
	require.NoError(t, err)
	require.Len(t, factor.Blocks, 1)

	fb := factor.Blocks[0]
	assert.Equal(t, []int{1, 0}, fb.PivotRows)
	// LU1 packs L's unit-lower strictly-lower part (all zero here, so
	// L == I) together with U's upper triangle [[1,0],[0,1]].
	assert.InDelta(t, 1.0, fb.LU1.at(0, 0), 1e-12)
	assert.InDelta(t, 0.0, fb.LU1.at(1, 0), 1e-12)
	assert.InDelta(t, 0.0, fb.LU1.at(0, 1), 1e-12)
	assert.InDelta(t, 1.0, fb.LU1.at(1, 1), 1e-12)

	x, err := Solve(factor, []float64{2, 3})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{3, 2}, x, 1e-12)
}

// Scenario 3: 5x5 arrowhead — columns 0..3 are all children of the
// dense last column/row.
func TestScenario_ArrowheadFive(t *testing.T) {
	a := arrowheadCCS()
	sym, err := SymbolicFactor(a, identityOrder(5), DefaultConfig())
	require.NoError(t, err)

	require.Equal(t, 5, sym.NumberSupercolumns)
	for i := 0; i < 4; i++ {
		assert.Equal(t, 4, sym.Etree.Parent[i])
	}
	assert.Equal(t, 0, sym.Etree.FirstDescIndex[4])
	assert.Equal(t, 3, sym.Etree.LastDescIndex[4])
}

// Scenario 3b: the arrowhead factored and solved end to end. Unlike the
// other scenarios, each leaf front here survives past its own
// supercolumn as a live 1x1 contribution block keyed on the shared
// closing row/column 4, which the root then has to align-add before
// its own LU step — the align-add path the contribution-free scenarios
// above never touch.
func TestScenario_ArrowheadFiveSolved(t *testing.T) {
	a := arrowheadCCS()
	sym, err := SymbolicFactor(a, identityOrder(5), DefaultConfig())
	require.NoError(t, err)

	factor, err := NumericFactor(a, sym, 1.0, 0, 1, DefaultConfig())
	require.NoError(t, err)

	// Each leaf front's LU1 has a single column but two rows (its own
	// pivot column plus the shared closing row 4), so rowB=1 < l=2 and
	// every leaf leaves a real 1x1 contribution block behind for the
	// root to consume.
	for i := 0; i < 4; i++ {
		require.Len(t, factor.Blocks[i].NonPivotRows, 1)
	}

	xExpected := []float64{2, 3, 5, 7, 11}
	b := matvec(a, xExpected)
	x, err := Solve(factor, b)
	require.NoError(t, err)
	assert.InDeltaSlice(t, xExpected, x, 1e-9)
}

// buildBidiagonalCCS returns the lower-bidiagonal n x n matrix with
// A[i][i] = 2 and A[i+1][i] = -1, in CCS form.
func buildBidiagonalCCS(n int) *CCSMatrix {
	colptr := make([]int, n+1)
	var rowind []int
	var values []float64
	for j := 0; j < n; j++ {
		rowind = append(rowind, j)
		values = append(values, 2)
		if j+1 < n {
			rowind = append(rowind, j+1)
			values = append(values, -1)
		}
		colptr[j+1] = len(rowind)
	}
	a, err := NewCCSMatrix(n, colptr, rowind, values, RealDouble)
	if err != nil {
		panic(err)
	}
	return a
}

func matvec(a *CCSMatrix, x []float64) []float64 {
	b := make([]float64, a.N)
	for j := 0; j < a.N; j++ {
		rows, vals := a.column(j)
		for i, r := range rows {
			b[r] += vals[i] * x[j]
		}
	}
	return b
}

// Scenario 4: only-child bidiagonal chain of size 100, capped at
// supercolumns of 10 columns, triggering the only-child optimization on
// every internal merged node while preserving algebraic correctness.
func TestScenario_OnlyChildBidiagonalChain(t *testing.T) {
	const n = 100
	a := buildBidiagonalCCS(n)
	cfg := NewConfig(WithMaxSupercolSize(10))

	sym, err := SymbolicFactor(a, identityOrder(n), cfg)
	require.NoError(t, err)
	assert.LessOrEqual(t, sym.NumberSupercolumns, 10)

	factor, err := NumericFactor(a, sym, 1.0, 0, 1, cfg)
	require.NoError(t, err)

	xExpected := make([]float64, n)
	for i := range xExpected {
		xExpected[i] = float64(i%7) + 1
	}
	b := matvec(a, xExpected)

	x, err := Solve(factor, b)
	require.NoError(t, err)

	maxDiff := 0.0
	for i := range x {
		diff := math.Abs(x[i] - xExpected[i])
		if diff > maxDiff {
			maxDiff = diff
		}
	}
	assert.Less(t, maxDiff, 1e-8)
}

// Scenario 5: a malformed matrix with an empty column must be rejected
// by symbolic analysis with ErrMalformedInput.
func TestScenario_EmptyColumnRejected(t *testing.T) {
	a := &CCSMatrix{
		N:      3,
		Colptr: []int{0, 1, 1, 2},
		Rowind: []int{0, 2},
		Values: []float64{1, 1},
		Type:   RealDouble,
	}
	_, err := SymbolicFactor(a, identityOrder(3), DefaultConfig())
	assert.ErrorIs(t, err, ErrMalformedInput)
}

// Scenario 7: a 5x5 lower-triangular matrix whose supercolumn partition,
// with relaxation off, is {0}, {1}, {2,3}, {4}: columns 2 and 3 merge
// into one two-column supercolumn whose children are the single-column
// supercolumns {0} and {1} (rows 2 and 3 link them to column 2), and
// with MaxSupercolSize capped at 2, column 4 cannot itself merge into
// {2,3} and becomes its parent. Because A is lower triangular, every
// pivot row's entries lie in columns that are already pivoted, so no
// front has non-pivot columns and no contribution block is created; the
// scenario checks the solve through a multi-column front with children.
func buildDoubleArrowheadCCS() *CCSMatrix {
	colptr := []int{0, 2, 4, 7, 9, 10}
	rowind := []int{
		0, 2, // col 0: rows 0, 2
		1, 3, // col 1: rows 1, 3
		2, 3, 4, // col 2: rows 2, 3, 4
		3, 4, // col 3: rows 3, 4
		4, // col 4: row 4
	}
	values := []float64{
		6, 1,
		6, 1,
		6, 1, 1,
		6, 1,
		6,
	}
	a, err := NewCCSMatrix(5, colptr, rowind, values, RealDouble)
	if err != nil {
		panic(err)
	}
	return a
}

func TestScenario_DoubleArrowheadSolved(t *testing.T) {
	a := buildDoubleArrowheadCCS()
	cfg := NewConfig(WithMaxSupercolSize(2), WithRelaxRuleSize(0))

	sym, err := SymbolicFactor(a, identityOrder(5), cfg)
	require.NoError(t, err)

	factor, err := NumericFactor(a, sym, 1.0, 0, 1, cfg)
	require.NoError(t, err)

	xExpected := []float64{2, 3, 5, 7, 11}
	b := matvec(a, xExpected)
	x, err := Solve(factor, b)
	require.NoError(t, err)
	assert.InDeltaSlice(t, xExpected, x, 1e-9)

	// Same matrix, factored in parallel, must give the same solution:
	// the {2,3} front is factored only after both child subtrees join.
	par, err := NumericFactor(a, sym, 1.0, 0, 4, cfg)
	require.NoError(t, err)
	xPar, err := Solve(par, b)
	require.NoError(t, err)
	assert.InDeltaSlice(t, xExpected, xPar, 1e-9)
}

// Scenario 6: threshold pivoting chooses the larger-magnitude row 1
// over row 0 even though row 0 sits on the diagonal.
func TestScenario_ThresholdPivoting(t *testing.T) {
	a, err := NewCCSMatrix(2, []int{0, 2, 4}, []int{0, 1, 0, 1}, []float64{1e-8, 1, 1, 1}, RealDouble)
	require.NoError(t, err)

	sym, err := SymbolicFactor(a, []int{0, 1}, DefaultConfig())
	require.NoError(t, err)

	factor, err := NumericFactor(a, sym, 0.1, 0, 1, DefaultConfig())
	require.NoError(t, err)

	fb := factor.Blocks[0]
	assert.Equal(t, 1, fb.PivotRows[0])
}
