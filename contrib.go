package multilu

import "golang.org/x/sync/errgroup"

// contribBlock is the Schur-complement fragment produced when a
// supercolumn is factored. Its logical m, n shrink
// monotonically as rows/columns are consumed by ancestors via align-add;
// consumption never moves the physical storage (Values, RowLoc, ColLoc),
// only the logical Rows/Columns lists compact. RowLoc/ColLoc are keyed by
// original row/column index and set at construction — removeRow/removeCol
// never touch them; the one later writer is onlyChildRearrange's column
// swap, which moves a column's values together with its ColLoc entry
// before any ancestor reads the block. RowLive/ColLive track which original indices are
// still logically present, for O(1) membership tests that don't require
// walking Rows/Columns.
type contribBlock struct {
	Values denseBlock

	Rows    []int
	Columns []int
	RowLoc  []int // rowLoc[r] = physical row slot for original row r, invariant after construction
	ColLoc  []int // colLoc[c] = physical column slot for original column c, rewritten only by swapContribCol
	RowLive []bool
	ColLive []bool

	NumColsInParent int
	LMember         bool
	UMember         bool
}

// newContribBlock allocates a contribution block of logical size m x n
// with identity row/column maps and zeroed values.
func newContribBlock(rows, cols []int, m, n int) *contribBlock {
	cb := &contribBlock{
		Values:  newDenseBlock(m, n, m),
		Rows:    append([]int(nil), rows...),
		Columns: append([]int(nil), cols...),
	}
	maxRow, maxCol := 0, 0
	for _, r := range rows {
		if r+1 > maxRow {
			maxRow = r + 1
		}
	}
	for _, c := range cols {
		if c+1 > maxCol {
			maxCol = c + 1
		}
	}
	cb.RowLoc = make([]int, maxRow)
	cb.ColLoc = make([]int, maxCol)
	cb.RowLive = make([]bool, maxRow)
	cb.ColLive = make([]bool, maxCol)
	for i, r := range rows {
		cb.RowLoc[r] = i
		cb.RowLive[r] = true
	}
	for j, c := range cols {
		cb.ColLoc[c] = j
		cb.ColLive[c] = true
	}
	return cb
}

func (cb *contribBlock) empty() bool {
	return cb == nil || len(cb.Rows) == 0 || len(cb.Columns) == 0
}

// hasRow reports whether original row r is still a logical member. Unlike
// RowLoc, which is a physical-slot lookup valid for any row ever present,
// this reflects current membership.
func (cb *contribBlock) hasRow(r int) bool {
	return r >= 0 && r < len(cb.RowLive) && cb.RowLive[r]
}

func (cb *contribBlock) hasCol(c int) bool {
	return c >= 0 && c < len(cb.ColLive) && cb.ColLive[c]
}

// removeRow compacts row logical-index idx out of Rows by swapping it
// with the tail entry. RowLoc is the row's physical slot in Values and
// never moves, so it is left untouched; only RowLive[row] (the row being
// dropped) flips to false.
func (cb *contribBlock) removeRow(idx int) {
	row := cb.Rows[idx]
	last := len(cb.Rows) - 1
	movedRow := cb.Rows[last]
	cb.Rows[idx] = movedRow
	cb.Rows = cb.Rows[:last]
	cb.RowLive[row] = false
}

func (cb *contribBlock) removeCol(idx int) {
	col := cb.Columns[idx]
	last := len(cb.Columns) - 1
	movedCol := cb.Columns[last]
	cb.Columns[idx] = movedCol
	cb.Columns = cb.Columns[:last]
	cb.ColLive[col] = false
}

// alignAddFull adds every (i, j) cell of src into dst, using mapRows and
// mapCols to translate src's original row/column indices into dst's
// physical slots. Used when src.LMember && src.UMember. Above
// cfg.AlignAddSmall columns, the gather splits into two sibling tasks
// over disjoint column halves: mapCols sends distinct src columns to
// distinct dst columns, so the halves touch disjoint dst memory (dst is
// column-major) and need no locking.
func alignAddFull(dst denseBlock, src *contribBlock, mapRows, mapCols []int, cfg Config) {
	if cfg.AlignAddSmall <= 0 || len(src.Columns) <= cfg.AlignAddSmall {
		alignAddFullRange(dst, src, mapRows, mapCols, src.Columns)
		return
	}
	mid := len(src.Columns) / 2
	var g errgroup.Group
	g.Go(func() error { alignAddFullRange(dst, src, mapRows, mapCols, src.Columns[:mid]); return nil })
	g.Go(func() error { alignAddFullRange(dst, src, mapRows, mapCols, src.Columns[mid:]); return nil })
	_ = g.Wait()
}

func alignAddFullRange(dst denseBlock, src *contribBlock, mapRows, mapCols, cols []int) {
	for _, col := range cols {
		jTo, ok := mapColTo(mapCols, col)
		if !ok {
			continue
		}
		srcPhysCol := src.ColLoc[col]
		for _, row := range src.Rows {
			iTo, ok := mapColTo(mapRows, row)
			if !ok {
				continue
			}
			srcPhysRow := src.RowLoc[row]
			dst.set(iTo, jTo, dst.at(iTo, jTo)+src.Values.at(srcPhysRow, srcPhysCol))
		}
	}
}

// alignAddRows adds only the rows of src whose image under mapRows is
// defined, then compacts the consumed rows out of src in place. Each of
// src's columns is mapped onto dst's physical columns via mapCols;
// columns with no image are skipped. The gather (read-only on src) runs over
// two row halves concurrently above cfg.AlignAddSmall, exactly like
// alignAddFull; the compaction that follows mutates src.Rows and so
// always runs single-threaded, after both halves have joined.
func alignAddRows(dst denseBlock, src *contribBlock, mapRows, mapCols []int, cfg Config) {
	rows := append([]int(nil), src.Rows...)
	if cfg.AlignAddSmall <= 0 || len(rows) <= cfg.AlignAddSmall {
		alignAddRowsRange(dst, src, mapRows, mapCols, rows)
	} else {
		mid := len(rows) / 2
		var g errgroup.Group
		g.Go(func() error { alignAddRowsRange(dst, src, mapRows, mapCols, rows[:mid]); return nil })
		g.Go(func() error { alignAddRowsRange(dst, src, mapRows, mapCols, rows[mid:]); return nil })
		_ = g.Wait()
	}

	i := 0
	for i < len(src.Rows) {
		row := src.Rows[i]
		if _, ok := mapColTo(mapRows, row); ok {
			src.removeRow(i)
			continue
		}
		i++
	}
}

func alignAddRowsRange(dst denseBlock, src *contribBlock, mapRows, mapCols, rows []int) {
	for _, row := range rows {
		iTo, ok := mapColTo(mapRows, row)
		if !ok {
			continue
		}
		srcPhysRow := src.RowLoc[row]
		for _, col := range src.Columns {
			jTo, ok := mapColTo(mapCols, col)
			if !ok {
				continue
			}
			srcPhysCol := src.ColLoc[col]
			dst.set(iTo, jTo, dst.at(iTo, jTo)+src.Values.at(srcPhysRow, srcPhysCol))
		}
	}
}

// alignAddCols is the column-symmetric counterpart of alignAddRows, for
// src.UMember && !src.LMember.
func alignAddCols(dst denseBlock, src *contribBlock, mapRows, mapCols []int, cfg Config) {
	cols := append([]int(nil), src.Columns...)
	if cfg.AlignAddSmall <= 0 || len(cols) <= cfg.AlignAddSmall {
		alignAddColsRange(dst, src, mapRows, mapCols, cols)
	} else {
		mid := len(cols) / 2
		var g errgroup.Group
		g.Go(func() error { alignAddColsRange(dst, src, mapRows, mapCols, cols[:mid]); return nil })
		g.Go(func() error { alignAddColsRange(dst, src, mapRows, mapCols, cols[mid:]); return nil })
		_ = g.Wait()
	}

	j := 0
	for j < len(src.Columns) {
		col := src.Columns[j]
		if _, ok := mapColTo(mapCols, col); ok {
			src.removeCol(j)
			continue
		}
		j++
	}
}

func alignAddColsRange(dst denseBlock, src *contribBlock, mapRows, mapCols, cols []int) {
	for _, col := range cols {
		jTo, ok := mapColTo(mapCols, col)
		if !ok {
			continue
		}
		srcPhysCol := src.ColLoc[col]
		for _, row := range src.Rows {
			iTo, ok := mapColTo(mapRows, row)
			if !ok {
				continue
			}
			srcPhysRow := src.RowLoc[row]
			dst.set(iTo, jTo, dst.at(iTo, jTo)+src.Values.at(srcPhysRow, srcPhysCol))
		}
	}
}

// mapColTo is a small helper around the map_rows/map_cols sentinel
// convention: a slot holds -1 (none) when unmapped.
func mapColTo(m []int, key int) (int, bool) {
	if key < 0 || key >= len(m) || m[key] == none {
		return 0, false
	}
	return m[key], true
}
