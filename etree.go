package multilu

// eliminationTree holds the column (or supercolumn) elimination tree in
// postorder. The tree is rooted at a virtual node one past the last real
// index; Parent[i] == none marks a root.
type eliminationTree struct {
	n int

	Parent         []int
	FirstChild     []int
	NextChild      []int
	FirstRoot      int
	FirstDescIndex []int
	LastDescIndex  []int
}

// dfPostorder computes the depth-first postorder of the tree given by
// parent (size n, values in 0..n-1 or none for a root), iteratively with
// two explicit stacks; the virtual root is index n.
func dfPostorder(parent []int, n int) (postorder, descCount []int) {
	firstChild := make([]int, n+1)
	nextChild := make([]int, n+1)
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

	postorder = make([]int, n)
	descCount = make([]int, n)

	stackVertex := make([]int, n+1)
	stackChild := make([]int, n+1)

	postnum := 0
	depth := 0
	stackVertex[0] = n
	stackChild[0] = firstChild[n]

	for depth >= 0 {
		if stackChild[depth] != none {
			child := stackChild[depth]
			stackVertex[depth+1] = child
			stackChild[depth+1] = firstChild[child]
			depth++
			continue
		}

		if stackVertex[depth] != n {
			v := stackVertex[depth]
			postorder[postnum] = v
			dc := 1
			for c := firstChild[v]; c != none; c = nextChild[c] {
				dc += descCount[c]
			}
			descCount[v] = dc
			postnum++
		}

		depth--
		if depth >= 0 {
			stackChild[depth] = nextChild[stackChild[depth]]
		}
	}

	return postorder, descCount
}

// buildChildLists fills FirstChild/NextChild/FirstRoot from Parent, for a
// tree of s nodes (s == number of supercolumns). Mirrors complete_symbolic.
func (et *eliminationTree) buildChildLists() {
	s := et.n
	et.FirstChild = make([]int, s)
	et.NextChild = make([]int, s)
	for i := range et.FirstChild {
		et.FirstChild[i] = none
		et.NextChild[i] = none
	}
	et.FirstRoot = none

	for i := 0; i < s; i++ {
		p := et.Parent[i]
		if p == none {
			et.NextChild[i] = et.FirstRoot
			et.FirstRoot = i
		} else {
			et.NextChild[i] = et.FirstChild[p]
			et.FirstChild[p] = i
		}
	}
}

// buildDescRanges fills FirstDescIndex/LastDescIndex, exploiting the fact
// that the node index order 0..s-1 is already a valid postorder of the
// final supercolumn tree (supercolumn indices were assigned in the column
// postorder that detectSupercolumns walked), so a single forward sweep
// suffices — no second DFS is needed (see complete_symbolic).
func (et *eliminationTree) buildDescRanges() {
	s := et.n
	et.FirstDescIndex = make([]int, s)
	et.LastDescIndex = make([]int, s)
	for i := range et.FirstDescIndex {
		et.FirstDescIndex[i] = none
		et.LastDescIndex[i] = none
	}

	for i := 0; i < s; i++ {
		parent := et.Parent[i]

		if et.FirstDescIndex[i] != none {
			et.LastDescIndex[i] = i - 1
		}

		if parent != none {
			if et.FirstDescIndex[parent] == none && et.FirstDescIndex[i] == none {
				et.FirstDescIndex[parent] = i
			}
			if et.FirstDescIndex[parent] == none && et.FirstDescIndex[i] != none {
				et.FirstDescIndex[parent] = et.FirstDescIndex[i]
			}
		}
	}
}

// isOnlyChild reports whether supercolumn i is the sole child of its
// parent (used by the only-child optimization).
func (et *eliminationTree) isOnlyChild(i int) bool {
	p := et.Parent[i]
	if p == none {
		return false
	}
	return et.FirstChild[p] == i && et.NextChild[i] == none
}
