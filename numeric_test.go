package multilu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColsPool_AcquireReleaseRoundTrip(t *testing.T) {
	p := newColsPool(4)
	buf := p.acquire()
	require.Len(t, buf, 4)
	for _, v := range buf {
		assert.Equal(t, none, v)
	}
	buf[0] = 7
	p.release(buf)

	buf2 := p.acquire()
	assert.Equal(t, 7, buf2[0]) // reused, not reset by the pool itself
}

func TestColsPool_AcquireWithoutReleaseAllocatesFresh(t *testing.T) {
	p := newColsPool(2)
	a := p.acquire()
	b := p.acquire()
	assert.NotSame(t, &a[0], &b[0])
}

func TestNumericFactor_RejectsUnsupportedType(t *testing.T) {
	a := identityCCS(2)
	a.Type = ComplexDouble
	sym, err := SymbolicFactor(identityCCS(2), identityOrder(2), DefaultConfig())
	require.NoError(t, err)

	_, err = NumericFactor(a, sym, 1.0, 0, 1, DefaultConfig())
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestNumericFactor_RejectsThresholdOutOfRange(t *testing.T) {
	a := identityCCS(2)
	sym, err := SymbolicFactor(a, identityOrder(2), DefaultConfig())
	require.NoError(t, err)

	_, err = NumericFactor(a, sym, 0, 0, 1, DefaultConfig())
	assert.ErrorIs(t, err, ErrMalformedInput)

	_, err = NumericFactor(a, sym, 1.5, 0, 1, DefaultConfig())
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestNumericFactor_SequentialAndParallelAgree(t *testing.T) {
	n := 20
	a := buildBidiagonalCCS(n)
	cfg := NewConfig(WithMaxSupercolSize(5))
	sym, err := SymbolicFactor(a, identityOrder(n), cfg)
	require.NoError(t, err)

	seq, err := NumericFactor(a, sym, 1.0, 0, 1, cfg)
	require.NoError(t, err)
	par, err := NumericFactor(a, sym, 1.0, 0, 4, cfg)
	require.NoError(t, err)

	require.Equal(t, len(seq.Blocks), len(par.Blocks))
	for i := range seq.Blocks {
		assert.Equal(t, seq.Blocks[i].PivotRows, par.Blocks[i].PivotRows)
		assert.Equal(t, seq.Blocks[i].PivotCols, par.Blocks[i].PivotCols)
	}
}

// TestNumericFactor_ParallelBranchingTreeMatchesSequential exercises a
// genuinely branching elimination tree under nproc > 1: the arrowhead's
// root has four children, so factorParallel's inner errgroup actually
// runs four factorOne calls concurrently (unlike a linear chain, where
// every inner group has exactly one child and nothing overlaps). Those
// four siblings each discover the same non-pivot row (the arrowhead's
// shared closing row) and contribution row/column, which is exactly the
// case a single shared map_rows/degree buffer would corrupt.
func TestNumericFactor_ParallelBranchingTreeMatchesSequential(t *testing.T) {
	a := arrowheadCCS()
	sym, err := SymbolicFactor(a, identityOrder(5), DefaultConfig())
	require.NoError(t, err)
	require.Equal(t, 5, sym.NumberSupercolumns)

	seq, err := NumericFactor(a, sym, 1.0, 0, 1, DefaultConfig())
	require.NoError(t, err)
	par, err := NumericFactor(a, sym, 1.0, 0, 4, DefaultConfig())
	require.NoError(t, err)

	require.Equal(t, len(seq.Blocks), len(par.Blocks))
	for i := range seq.Blocks {
		assert.Equal(t, seq.Blocks[i].PivotRows, par.Blocks[i].PivotRows)
		assert.Equal(t, seq.Blocks[i].PivotCols, par.Blocks[i].PivotCols)
		assert.Equal(t, seq.Blocks[i].LU1.Data, par.Blocks[i].LU1.Data)
	}

	xExpected := []float64{2, 3, 5, 7, 11}
	b := matvec(a, xExpected)
	x, err := Solve(par, b)
	require.NoError(t, err)
	assert.InDeltaSlice(t, xExpected, x, 1e-9)
}

func TestFactorAndSolve_MatchesManualPipeline(t *testing.T) {
	a := identityCCS(3)
	x, err := FactorAndSolve(a, identityOrder(3), []float64{5, 6, 7})
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 6, 7}, x)
}
