package multilu

import "go.uber.org/zap"

// Symbolic is the result of symbolic analysis: the applied
// column permutation, the supercolumn partition, and upper bounds on the
// rows of L / columns of U for each supercolumn's front.
type Symbolic struct {
	N int

	Columns []int // applied permutation: column preorder composed with postorder

	NumberSupercolumns        int
	StartSupercolumn          []int
	EndSupercolumn            []int
	SupercolumnSize           []int
	SupercolumnCoveredColumns []int
	LSize                     []int
	USize                     []int

	Etree eliminationTree
}

// SymbolicFactor computes the column elimination tree, an upper bound on
// fill, supercolumns, relaxation, and a postordering, for A under the
// given column preorder.
func SymbolicFactor(a *CCSMatrix, columnOrder []int, cfg Config) (*Symbolic, error) {
	log := logger()

	if err := validateColumnOrder(columnOrder, a.N); err != nil {
		return nil, err
	}

	at := a.transpose()

	parent, lSize, uSize, err := eliminationAnalysis(a, at, columnOrder, cfg)
	if err != nil {
		return nil, err
	}
	log.Debug("elimination analysis done", zap.Int("n", a.N))

	postorder, descCountOrg := dfPostorder(parent, a.N)

	oneChild := make([]bool, a.N)
	firstChild, nextChild := childListsFromPostorder(parent, postorder, a.N)
	for i, col := range postorder {
		if firstChild[col] != none && nextChild[firstChild[col]] == none {
			oneChild[i] = true
		}
	}

	columns := make([]int, a.N)
	descCount := make([]int, a.N)
	for i := 0; i < a.N; i++ {
		columns[i] = columnOrder[postorder[i]]
		descCount[i] = descCountOrg[postorder[i]]
	}
	log.Debug("postorder done", zap.Int("n", a.N))

	scNum, scSize, scParent, err := detectSupercolumns(a, columns, oneChild, descCount, lSize, uSize, postorder, cfg)
	if err != nil {
		return nil, err
	}
	log.Debug("supercolumns detected", zap.Int("count", scNum))

	sym := &Symbolic{
		N:                         a.N,
		Columns:                   columns,
		NumberSupercolumns:        scNum,
		SupercolumnSize:           scSize,
		StartSupercolumn:          make([]int, scNum),
		EndSupercolumn:            make([]int, scNum),
		SupercolumnCoveredColumns: make([]int, scNum),
		LSize:                     make([]int, scNum),
		USize:                     make([]int, scNum),
		Etree: eliminationTree{
			n:      scNum,
			Parent: scParent,
		},
	}

	firstcolInd := 0
	for i := 0; i < scNum; i++ {
		sym.LSize[i], sym.USize[i] = 0, 0
		for j := 0; j < scSize[i]; j++ {
			col := postorder[firstcolInd+j]
			sym.LSize[i] = max(sym.LSize[i], lSize[col]+j)
			sym.USize[i] = max(sym.USize[i], uSize[col]+j)
		}
		firstcolInd += scSize[i]
	}

	sym.complete()
	log.Debug("symbolic factorization complete", zap.Int("supercolumns", scNum))

	return sym, nil
}

func validateColumnOrder(columnOrder []int, n int) error {
	if len(columnOrder) != n {
		return wrapf(ErrMalformedInput, "column_order length %d, want %d", len(columnOrder), n)
	}
	seen := make([]bool, n)
	for _, c := range columnOrder {
		if c < 0 || c >= n || seen[c] {
			return wrapf(ErrMalformedInput, "column_order is not a permutation of 0..%d", n-1)
		}
		seen[c] = true
	}
	return nil
}

// childListsFromPostorder rebuilds first_child/next_child over the
// original (pre-postorder) column indices, needed before computing
// one-child status.
func childListsFromPostorder(parent []int, postorder []int, n int) (firstChild, nextChild []int) {
	firstChild = make([]int, n+1)
	nextChild = make([]int, n+1)
	for i := range firstChild {
		firstChild[i] = none
	}
	for i := n - 1; i >= 0; i-- {
		p := parent[i]
		if p == none {
			p = n
		}
		nextChild[i] = firstChild[p]
		firstChild[p] = i
	}
	return firstChild, nextChild
}

// eliminationAnalysis is a Gilbert-Ng/COLAMD-style row-merge analysis:
// each column's original row pattern is folded into a growing "superrow"
// via union-find over already-seen rows, giving per-column upper bounds
// l_size (rows of L) and u_size (columns of U).
func eliminationAnalysis(a, at *CCSMatrix, columnOrder []int, cfg Config) (parent, lSize, uSize []int, err error) {
	n := a.N
	uf := makeSets(n, cfg.UnionByRank)

	firstcol := make([]int, n)
	for i := range firstcol {
		firstcol[i] = none
	}
	root := make([]int, n)
	rdegs := make([]int, n)
	rnums := make([]int, n)
	colCleared := make([]bool, n)
	colMmb := make([]bool, n)

	arena := newRowArena(a.Nnz(), n, cfg.EANBuffer)
	for r := 0; r < n; r++ {
		rowPattern, _ := at.column(r)
		arena.seed(r, rowPattern)
	}

	parent = make([]int, n)
	lSize = make([]int, n)
	uSize = make([]int, n)

	pushed := make([]int, 0, n)

	for col := 0; col < n; col++ {
		orgCol := columnOrder[col]
		rows, _ := a.column(orgCol)
		if len(rows) == 0 {
			return nil, nil, nil, wrapf(ErrMalformedInput, "empty column %d", orgCol)
		}

		arena.reserve(n - col)

		cset := col
		root[cset] = col
		parent[col] = none
		rdegs[cset] = 0
		pushed = pushed[:0]

		rowStart := arena.beginAt()
		rowSize := 0

		for _, r := range rows {
			fcol := firstcol[r]
			if fcol == none {
				firstcol[r] = col
				rdegs[cset]++

				for _, c := range arena.span(r) {
					if !colCleared[c] && !colMmb[c] {
						arena.push(c)
						colMmb[c] = true
						pushed = append(pushed, c)
						rowSize++
					}
				}
				arena.free(r)
				continue
			}

			rset := uf.find(fcol)
			rroot := root[rset]
			if rroot == col {
				continue
			}

			rnum := rnums[rset]
			for _, c := range arena.span(rnum) {
				if !colCleared[c] && !colMmb[c] {
					arena.push(c)
					colMmb[c] = true
					pushed = append(pushed, c)
					rowSize++
				}
			}
			arena.free(rnum)

			parent[rroot] = col
			csetOld := cset
			cset = uf.union(cset, rset)
			rdegs[cset] = rdegs[csetOld] + rdegs[rset]
			root[cset] = col
		}

		lSize[col] = rdegs[cset]
		uSize[col] = rowSize
		if rdegs[cset] > 0 {
			rdegs[cset]--
		}

		rnums[cset] = rows[0]
		arena.commit(rnums[cset], rowStart)

		for _, c := range pushed {
			colMmb[c] = false
		}
		colCleared[orgCol] = true
	}

	return parent, lSize, uSize, nil
}

// detectSupercolumns groups columns (given in final permuted/postordered
// order) into supercolumns bounded by MaxSupercolSize and the overfill
// ratio, assigns supercolumn parents by re-running the row-merge union-find
// at supercolumn granularity, and relaxes leaf supercolumns into their
// parents when the parent's subtree is small.
func detectSupercolumns(a *CCSMatrix, columns []int, oneChild []bool, descCount, lSize, uSize, postorder []int, cfg Config) (scNum int, scSize, scParent []int, err error) {
	n := a.N
	uf := makeSets(n, cfg.UnionByRank)

	firstcol := make([]int, n)
	for i := range firstcol {
		firstcol[i] = none
	}
	root := make([]int, n)
	mapColSupercol := make([]int, n)
	lastcol := make([]int, n)

	fscSize := make([]int, n)
	fscParent := make([]int, n)
	for i := range fscParent {
		fscParent[i] = none
	}

	fscNum := -1
	maxLsize, maxUsize := 0, 0
	scLsize, scUsize := 0, 0

	for col := 0; col < n; col++ {
		orgCol := columns[col]
		rows, _ := a.column(orgCol)

		cset := col
		newSupercol := !oneChild[col] || (cfg.MaxSupercolSize > 0 && fscNum >= 0 && fscSize[fscNum] == cfg.MaxSupercolSize)

		root[cset] = col

		for _, r := range rows {
			fcol := firstcol[r]
			if fcol == none {
				firstcol[r] = col
				continue
			}
			rset := uf.find(fcol)
			rroot := root[rset]
			if rroot == col {
				continue
			}
			fscParent[mapColSupercol[rroot]] = col
			cset = uf.union(cset, rset)
			root[cset] = col
		}

		if !newSupercol {
			incSize := fscSize[fscNum] + 1
			maxLsize += lSize[postorder[col]]
			maxUsize += uSize[postorder[col]]
			scLsize = max(scLsize, lSize[postorder[col]]+fscSize[fscNum])
			scUsize = max(scUsize, uSize[postorder[col]]+fscSize[fscNum])
			if float64(scLsize)*float64(incSize) > cfg.MaxOverfillRatio*float64(maxLsize) ||
				float64(scUsize)*float64(incSize) > cfg.MaxOverfillRatio*float64(maxUsize) {
				newSupercol = true
			}
		}

		if newSupercol {
			fscNum++
			fscSize[fscNum] = 1
			lastcol[fscNum] = col
			mapColSupercol[col] = fscNum
			maxLsize, maxUsize = lSize[postorder[col]], uSize[postorder[col]]
			scLsize, scUsize = lSize[postorder[col]], uSize[postorder[col]]
		} else {
			fscSize[fscNum]++
			lastcol[fscNum] = col
			mapColSupercol[col] = fscNum
		}
	}
	fscNum++

	for i := 0; i < fscNum; i++ {
		if fscParent[i] != none {
			fscParent[i] = mapColSupercol[fscParent[i]]
		}
		if fscParent[i] == i {
			fscParent[i] = none
		}
	}

	if cfg.RelaxRuleSize > 1 {
		mapFscRsc := mapColSupercol // reuse, sized >= fscNum
		rscSize := make([]int, fscNum)
		rscLast := make([]int, fscNum)

		scNum = 0
		cscs := 0
		for i := 0; i < fscNum; i++ {
			cscs += fscSize[i]
			mapFscRsc[i] = scNum
			rscLast[scNum] = i
			if fscParent[i] != none && descCount[rscLast[fscParent[i]]] >= cfg.RelaxRuleSize {
				rscSize[scNum] = cscs
				cscs = 0
				scNum++
			}
		}
		rscSize[scNum] = cscs
		scNum++

		rscParent := make([]int, scNum)
		for i := 0; i < scNum; i++ {
			orgParent := fscParent[rscLast[i]]
			if orgParent != none {
				rscParent[i] = mapFscRsc[orgParent]
			} else {
				rscParent[i] = none
			}
		}
		return scNum, rscSize[:scNum], rscParent, nil
	}

	return fscNum, fscSize[:fscNum], fscParent[:fscNum], nil
}

// complete fills in start/end supercolumn ranges, the etree's child lists
// and descendant-index ranges, and supercolumn_covered_columns, mirroring
// complete_symbolic in the original.
func (sym *Symbolic) complete() {
	s := sym.NumberSupercolumns

	sym.StartSupercolumn[0] = 0
	sym.EndSupercolumn[0] = sym.SupercolumnSize[0] - 1
	for i := 1; i < s; i++ {
		sym.StartSupercolumn[i] = sym.EndSupercolumn[i-1] + 1
		sym.EndSupercolumn[i] = sym.StartSupercolumn[i] + sym.SupercolumnSize[i] - 1
	}

	sym.Etree.buildChildLists()
	sym.Etree.buildDescRanges()

	for i := 0; i < s; i++ {
		parent := sym.Etree.Parent[i]
		sym.SupercolumnCoveredColumns[i] += sym.SupercolumnSize[i]
		if parent != none {
			sym.SupercolumnCoveredColumns[parent] += sym.SupercolumnCoveredColumns[i]
		}
	}
}
