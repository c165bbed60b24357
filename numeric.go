package multilu

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// colsPool is a small mutex-guarded pool of n-sized int buffers, each
// reset to the sentinel -1 before release, handed one-per-worker during
// parallel traversal. Plain mutex+slice rather than sync.Pool: sync.Pool's
// reset-to-zero-value contract doesn't match the "reset to -1" sentinel
// convention this structure needs.
type colsPool struct {
	mu   sync.Mutex
	free [][]int
	n    int
}

func newColsPool(n int) *colsPool {
	return &colsPool{n: n}
}

func (p *colsPool) acquire() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if l := len(p.free); l > 0 {
		buf := p.free[l-1]
		p.free = p.free[:l-1]
		return buf
	}
	buf := make([]int, p.n)
	for i := range buf {
		buf[i] = none
	}
	return buf
}

func (p *colsPool) release(buf []int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.free = append(p.free, buf)
}

// numericContext carries the state shared across the whole numeric
// factorization pass: A and its transpose, the symbolic plan, a pair of
// map_rows/map_cols pools handing out private per-task workspaces, the
// per-row degree table, and the factor blocks being produced, indexed
// by supercolumn. rowPool and colPool exist because sibling fronts are
// factored concurrently by factorParallel and can legitimately touch
// the same row or column (e.g. an arrowhead matrix's dense closing
// row/column is a non-pivot member of every leaf front); colCleared is
// the one piece of state that is genuinely global and cumulative, so
// it is guarded by mu instead of pooled.
type numericContext struct {
	a, at  *CCSMatrix
	sym    *Symbolic
	cfg    Config
	thresh float64

	rowPool    *colsPool
	colPool    *colsPool
	rowDegree  []int
	colCleared []bool

	blocks []*factorBlock

	mu sync.RWMutex
}

// markColsCleared records cols as globally pivoted. Called once per
// supercolumn from factorOne, guarded because concurrently-running
// sibling fronts read colCleared from focusRows at the same time.
func (ctx *numericContext) markColsCleared(cols []int) {
	ctx.mu.Lock()
	for _, c := range cols {
		ctx.colCleared[c] = true
	}
	ctx.mu.Unlock()
}

func (ctx *numericContext) isColCleared(c int) bool {
	ctx.mu.RLock()
	cleared := ctx.colCleared[c]
	ctx.mu.RUnlock()
	return cleared
}

// NumericFactor walks the elimination tree (leaves first) and factors
// every supercolumn's front, producing a blockedFactor.
// nproc == 1 takes the strictly sequential path; nproc > 1 forks
// sibling subtrees via golang.org/x/sync/errgroup, joining before a
// parent's own front is assembled. maxDepth, if nonzero, is the depth
// (measured from the etree's roots) at which the traversal stops
// spawning and finishes the remaining subtree sequentially.
func NumericFactor(a *CCSMatrix, sym *Symbolic, thresh float64, maxDepth, nproc int, cfg Config) (*blockedFactor, error) {
	if a.Type < RealDouble || a.Type > ComplexSingle {
		return nil, wrapf(ErrMalformedInput, "invalid matrix type %d", int(a.Type))
	}
	if !a.Type.supported() {
		return nil, ErrUnsupportedType
	}
	if thresh <= 0 || thresh > 1 {
		return nil, wrapf(ErrMalformedInput, "thresh %v out of (0,1]", thresh)
	}
	if nproc <= 1 {
		// The sequential path also runs every align-add gather inline.
		cfg.AlignAddSmall = 0
	}

	n := a.N
	at := a.transpose()

	rowDegree := make([]int, n)
	for r := 0; r < n; r++ {
		rowDegree[r] = at.Colptr[r+1] - at.Colptr[r]
	}

	ctx := &numericContext{
		a: a, at: at, sym: sym, cfg: cfg, thresh: thresh,
		rowPool:    newColsPool(n),
		colPool:    newColsPool(n),
		rowDegree:  rowDegree,
		colCleared: make([]bool, n),
		blocks:     make([]*factorBlock, sym.NumberSupercolumns),
	}

	log := logger()

	var err error
	if nproc <= 1 {
		for k := 0; k < sym.NumberSupercolumns; k++ {
			if e := ctx.factorOne(k); e != nil {
				err = e
				break
			}
		}
	} else {
		err = ctx.factorParallel(maxDepth, nproc)
	}
	if err != nil {
		return nil, err
	}

	bf := &blockedFactor{M: n, N: n, Type: a.Type, Etree: sym.Etree, Sym: sym, Blocks: ctx.blocks}
	if !bf.Valid() {
		return nil, wrapf(ErrNumericFailure, "factor block invalid")
	}
	log.Debug("numeric factorization complete", zap.Int("supercolumns", sym.NumberSupercolumns))
	return bf, nil
}

// factorParallel forks each root's subtree concurrently and, inside a
// subtree, forks a node's children before joining to factor the node
// itself: child supercolumns are factored concurrently, and the join
// always precedes allocation of the parent's factor block.
//
// cfg.MinCoverSprsSpawn and cfg.MinSizeDenseSpawn gate the two spawn
// points below: a root whose subtree covers too few columns, or a child
// whose own front is too small, runs inline in the calling goroutine
// instead of paying for a new one. Either threshold set to -1 always
// spawns, matching the sequential-equivalent result in both cases — this
// only trades goroutine overhead against parallelism, never changes what
// gets computed.
func (ctx *numericContext) factorParallel(maxDepth, nproc int) error {
	g, gctx := errgroup.WithContext(context.Background())
	g.SetLimit(nproc)

	var walk func(node, depth int) error
	walk = func(node, depth int) error {
		if gctx.Err() != nil {
			return gctx.Err()
		}
		children := ctx.sym.Etree.childrenOf(node)
		if len(children) == 0 || (maxDepth > 0 && depth >= maxDepth) {
			return ctx.factorSubtreeSequential(node)
		}

		var inner errgroup.Group
		for _, c := range children {
			c := c
			if ctx.cfg.MinSizeDenseSpawn > 0 && ctx.sym.LSize[c] < ctx.cfg.MinSizeDenseSpawn {
				if err := walk(c, depth+1); err != nil {
					return err
				}
				continue
			}
			inner.Go(func() error { return walk(c, depth+1) })
		}
		if err := inner.Wait(); err != nil {
			return err
		}
		return ctx.factorOne(node)
	}

	for r := ctx.sym.Etree.FirstRoot; r != none; r = ctx.sym.Etree.NextChild[r] {
		r := r
		if ctx.cfg.MinCoverSprsSpawn > 0 && ctx.sym.SupercolumnCoveredColumns[r] < ctx.cfg.MinCoverSprsSpawn {
			if err := walk(r, 0); err != nil {
				return err
			}
			continue
		}
		g.Go(func() error { return walk(r, 0) })
	}
	return g.Wait()
}

// factorSubtreeSequential factors node's whole subtree (including node)
// without further forking, used once maxDepth is reached.
func (ctx *numericContext) factorSubtreeSequential(node int) error {
	lo := ctx.sym.Etree.FirstDescIndex[node]
	if lo == none {
		lo = node
	}
	for i := lo; i <= node; i++ {
		if err := ctx.factorOne(i); err != nil {
			return err
		}
	}
	return nil
}

// childrenOf returns the child supercolumn indices of node.
func (et *eliminationTree) childrenOf(node int) []int {
	var kids []int
	for c := et.FirstChild[node]; c != none; c = et.NextChild[c] {
		kids = append(kids, c)
	}
	return kids
}

// factorOne performs the full per-supercolumn pipeline: allocate, focus
// columns, dense LU of the L-portion, focus rows, triangular solve,
// build the new contribution block, align-add descendants into it,
// only-child rearrangement, and cleanup.
func (ctx *numericContext) factorOne(k int) error {
	sym := ctx.sym
	cols := sym.Columns[sym.StartSupercolumn[k] : sym.EndSupercolumn[k]+1]
	fb := newFactorBlock(sym.LSize[k], sym.USize[k], cols)
	ctx.blocks[k] = fb

	pivotLocal := make(map[int]int, len(cols))
	for i, c := range cols {
		pivotLocal[c] = i
	}

	// mapRows is this call's own row-discovery workspace, acquired from
	// the pool rather than read off ctx: factorParallel runs sibling
	// fronts concurrently, and siblings can legitimately discover the
	// same non-pivot row (an arrowhead's dense closing row, say), so a
	// single shared buffer would have two goroutines writing the same
	// slot.
	mapRows := ctx.rowPool.acquire()
	var rows []int
	defer func() {
		for _, r := range rows {
			mapRows[r] = none
		}
		ctx.rowPool.release(mapRows)
	}()

	var err error
	rows, err = ctx.focusColumns(k, fb, pivotLocal, mapRows)
	if err != nil {
		fb.Valid = false
		return err
	}

	l := len(rows)
	colB := len(cols)
	activeLU1 := denseBlock{Rows: l, Cols: colB, Ld: fb.LU1.Ld, Data: fb.LU1.Data}

	degree := make([]int, l)
	for i, r := range rows {
		degree[i] = ctx.rowDegree[r]
	}

	perm, rowB, err := luThresholdPartial(activeLU1, ctx.thresh, degree)
	if err != nil {
		fb.Valid = false
		return err
	}

	fb.PivotRows = make([]int, rowB)
	for i := 0; i < rowB; i++ {
		fb.PivotRows[i] = rows[perm[i]]
	}
	fb.NonPivotRows = make([]int, l-rowB)
	for i := rowB; i < l; i++ {
		fb.NonPivotRows[i-rowB] = rows[perm[i]]
	}

	compressed := compressBlock(denseBlock{Rows: l, Cols: colB, Ld: fb.LU1.Ld, Data: fb.LU1.Data})
	fb.L2 = subBlock(compressed, rowB, l-rowB)
	fb.LU1 = denseBlock{Rows: rowB, Cols: colB, Ld: compressed.Ld, Data: compressed.Data}

	ctx.markColsCleared(cols)

	nonPivotCols, err := ctx.focusRows(k, fb, rowB)
	if err != nil {
		fb.Valid = false
		return err
	}
	fb.NonPivotCols = nonPivotCols

	if rowB > 0 && len(nonPivotCols) > 0 {
		l1 := denseBlock{Rows: rowB, Cols: rowB, Ld: fb.LU1.Ld, Data: fb.LU1.Data}
		activeUt2 := denseBlock{Rows: len(nonPivotCols), Cols: rowB, Ld: fb.Ut2.Ld, Data: fb.Ut2.Data}
		solveUnitLowerRight(activeUt2, l1)
		fb.Ut2 = compressBlock(activeUt2)
	} else {
		fb.Ut2 = denseBlock{}
	}

	if err := ctx.buildContribution(k, fb, l, rowB, mapRows); err != nil {
		fb.Valid = false
		return err
	}

	ctx.onlyChildRearrange(k, fb)

	return nil
}

// focusColumns is the column-assembly step: gather descendant
// contribution-block columns matching this supercolumn's pivot columns,
// then the pivot columns of A itself, into LU1, using the caller's
// private mapRows buffer to accumulate values by row and discover new
// rows.
func (ctx *numericContext) focusColumns(k int, fb *factorBlock, pivotLocal map[int]int, mapRows []int) ([]int, error) {
	sym := ctx.sym
	var rows []int

	appendRow := func(r int) int {
		if idx := mapRows[r]; idx != none {
			return idx
		}
		idx := len(rows)
		rows = append(rows, r)
		mapRows[r] = idx
		return idx
	}

	lo := sym.Etree.FirstDescIndex[k]
	if lo == none {
		lo = k
	}
	for d := lo; d < k; d++ {
		child := ctx.blocks[d]
		if child == nil || child.Contrib.empty() {
			continue
		}
		cb := child.Contrib
		transferred := false
		j := 0
		for j < len(cb.Columns) {
			col := cb.Columns[j]
			localCol, ok := pivotLocal[col]
			if !ok {
				j++
				continue
			}
			srcCol := cb.ColLoc[col]
			for _, r := range cb.Rows {
				v := cb.Values.at(cb.RowLoc[r], srcCol)
				ri := appendRow(r)
				fb.LU1.set(ri, localCol, fb.LU1.at(ri, localCol)+v)
			}
			cb.removeCol(j)
			transferred = true
		}
		if transferred {
			cb.UMember = true
		}
		if cb.empty() {
			child.Contrib = nil
		}
	}

	for _, col := range pivotColumnsOf(ctx.sym, k) {
		localCol := pivotLocal[col]
		rowsA, valsA := ctx.a.column(col)
		if len(rowsA) == 0 {
			return nil, wrapf(ErrMalformedInput, "empty column %d", col)
		}
		for i, r := range rowsA {
			ri := appendRow(r)
			fb.LU1.set(ri, localCol, fb.LU1.at(ri, localCol)+valsA[i])
		}
	}

	return rows, nil
}

func pivotColumnsOf(sym *Symbolic, k int) []int {
	return sym.Columns[sym.StartSupercolumn[k] : sym.EndSupercolumn[k]+1]
}

// focusRows is the row-assembly step: for each pivot row, gather Aᵗ's
// row pattern restricted to not-yet-cleared columns, plus each live
// descendant contribution block's row, into Ut2. Returns the discovered
// non-pivot columns; the caller's map_cols buffer (acquired here) is
// released before returning.
func (ctx *numericContext) focusRows(k int, fb *factorBlock, rowB int) ([]int, error) {
	sym := ctx.sym
	localCols := ctx.colPool.acquire()
	defer func() {
		for _, c := range fb.NonPivotCols {
			localCols[c] = none
		}
		ctx.colPool.release(localCols)
	}()

	var nonPivotCols []int
	appendCol := func(c int) int {
		if idx := localCols[c]; idx != none {
			return idx
		}
		idx := len(nonPivotCols)
		nonPivotCols = append(nonPivotCols, c)
		localCols[c] = idx
		return idx
	}

	lo := sym.Etree.FirstDescIndex[k]
	if lo == none {
		lo = k
	}

	for ri, r := range fb.PivotRows {
		rowCols, rowVals := ctx.at.column(r)
		for i, c := range rowCols {
			if ctx.isColCleared(c) {
				continue
			}
			ci := appendCol(c)
			fb.Ut2.set(ci, ri, fb.Ut2.at(ci, ri)+rowVals[i])
		}

		for d := lo; d < k; d++ {
			child := ctx.blocks[d]
			if child == nil || child.Contrib.empty() {
				continue
			}
			cb := child.Contrib
			// r ranges over this front's pivot rows, a global row
			// index; hasRow is the logical-membership test (it is false
			// once an earlier align-add has compacted this row out of
			// cb.Rows), kept distinct from RowLoc, which is always the
			// row's physical slot in cb.Values; the removeCol calls
			// focusColumns made earlier in this same call touch neither.
			if !cb.hasRow(r) {
				continue
			}
			physRow := cb.RowLoc[r]
			for _, c := range cb.Columns {
				ci := appendCol(c)
				v := cb.Values.at(physRow, cb.ColLoc[c])
				fb.Ut2.set(ci, ri, fb.Ut2.at(ci, ri)+v)
			}
			cb.LMember = true
		}
	}

	// fb.NonPivotCols must be set before the deferred reset above runs.
	fb.NonPivotCols = nonPivotCols
	return nonPivotCols, nil
}

// buildContribution allocates the new contribution block (if nonempty)
// and performs contrib.values ← contrib.values − L2·Ut2ᵗ, then folds in
// the still-live descendant blocks via align-add. mapRows is the
// caller's private row-discovery buffer from focusColumns, reused here
// to re-key fb.NonPivotRows onto the new block's physical row slots.
func (ctx *numericContext) buildContribution(k int, fb *factorBlock, l, rowB int, mapRows []int) error {
	m := l - rowB
	ru := fb.Ut2.Rows
	if m <= 0 || ru <= 0 {
		ctx.clearDescendantFlags(k)
		return nil
	}

	cb := newContribBlock(fb.NonPivotRows, fb.NonPivotCols, m, ru)
	updateMinusABT(cb.Values, fb.L2, fb.Ut2)
	fb.Contrib = cb

	for _, r := range fb.NonPivotRows {
		mapRows[r] = cb.RowLoc[r]
	}
	localCols := ctx.colPool.acquire()
	for _, c := range fb.NonPivotCols {
		localCols[c] = cb.ColLoc[c]
	}

	sym := ctx.sym
	lo := sym.Etree.FirstDescIndex[k]
	if lo == none {
		lo = k
	}
	for d := lo; d < k; d++ {
		child := ctx.blocks[d]
		if child == nil || child.Contrib.empty() {
			continue
		}
		dcb := child.Contrib
		switch {
		case dcb.LMember && dcb.UMember:
			alignAddFull(cb.Values, dcb, mapRows, localCols, ctx.cfg)
			child.Contrib = nil
		case dcb.LMember:
			alignAddRows(cb.Values, dcb, mapRows, localCols, ctx.cfg)
			if dcb.empty() {
				child.Contrib = nil
			} else {
				dcb.LMember, dcb.UMember = false, false
			}
		case dcb.UMember:
			alignAddCols(cb.Values, dcb, mapRows, localCols, ctx.cfg)
			if dcb.empty() {
				child.Contrib = nil
			} else {
				dcb.LMember, dcb.UMember = false, false
			}
		default:
			dcb.LMember, dcb.UMember = false, false
		}
	}

	for _, c := range fb.NonPivotCols {
		localCols[c] = none
	}
	ctx.colPool.release(localCols)

	return nil
}

// clearDescendantFlags handles the case where this supercolumn produced
// no contribution block at all: clear L_member/U_member on all its
// descendants so no spurious contribution survives.
func (ctx *numericContext) clearDescendantFlags(k int) {
	sym := ctx.sym
	lo := sym.Etree.FirstDescIndex[k]
	if lo == none {
		lo = k
	}
	for d := lo; d < k; d++ {
		child := ctx.blocks[d]
		if child != nil && child.Contrib != nil {
			child.Contrib.LMember, child.Contrib.UMember = false, false
		}
	}
}

// onlyChildRearrange sorts fb's non-pivot columns (and the matching Ut2
// rows / contribution columns) so the ones covered by the parent
// supercolumn come first, enabling the parent to consume the leading
// block without reshuffling.
func (ctx *numericContext) onlyChildRearrange(k int, fb *factorBlock) {
	if fb.Contrib == nil || fb.Contrib.empty() {
		return
	}
	parent := ctx.sym.Etree.Parent[k]
	if parent == none || !ctx.sym.Etree.isOnlyChild(k) {
		return
	}

	parentCols := pivotColumnsOf(ctx.sym, parent)
	parentSet := make(map[int]bool, len(parentCols))
	for _, c := range parentCols {
		parentSet[c] = true
	}

	cb := fb.Contrib
	lead := 0
	for i := 0; i < len(cb.Columns); i++ {
		if parentSet[cb.Columns[i]] {
			if i != lead {
				swapContribCol(cb, fb, i, lead)
			}
			lead++
		}
	}
	cb.NumColsInParent = lead
}

func swapContribCol(cb *contribBlock, fb *factorBlock, i, j int) {
	cb.Columns[i], cb.Columns[j] = cb.Columns[j], cb.Columns[i]
	cb.ColLoc[cb.Columns[i]] = i
	cb.ColLoc[cb.Columns[j]] = j
	for r := 0; r < cb.Values.Rows; r++ {
		vi, vj := cb.Values.at(r, i), cb.Values.at(r, j)
		cb.Values.set(r, i, vj)
		cb.Values.set(r, j, vi)
	}
	if i < fb.Ut2.Rows && j < fb.Ut2.Rows {
		swapRows(fb.Ut2, i, j)
		fb.NonPivotCols[i], fb.NonPivotCols[j] = fb.NonPivotCols[j], fb.NonPivotCols[i]
	}
}
