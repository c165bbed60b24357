package multilu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Chain 0 -> 1 -> 2 (parent[0]=1, parent[1]=2, parent[2]=none).
func TestDfPostorder_Chain(t *testing.T) {
	parent := []int{1, 2, none}
	postorder, descCount := dfPostorder(parent, 3)
	assert.Equal(t, []int{0, 1, 2}, postorder)
	assert.Equal(t, []int{1, 2, 3}, descCount)
}

// Star: 0 and 1 are children of 2.
func TestDfPostorder_Star(t *testing.T) {
	parent := []int{2, 2, none}
	postorder, descCount := dfPostorder(parent, 3)
	require.Len(t, postorder, 3)
	assert.Equal(t, 2, postorder[2])
	assert.Equal(t, 3, descCount[2])
	assert.Equal(t, 1, descCount[0])
	assert.Equal(t, 1, descCount[1])
}

func TestEliminationTree_BuildChildListsAndRoot(t *testing.T) {
	et := eliminationTree{n: 3, Parent: []int{1, 2, none}}
	et.buildChildLists()
	assert.Equal(t, 2, et.FirstRoot)
	assert.Equal(t, 1, et.FirstChild[2])
	assert.Equal(t, 0, et.FirstChild[1])
	assert.Equal(t, none, et.NextChild[0])
}

func TestEliminationTree_BuildDescRanges(t *testing.T) {
	// Arrowhead-style: 0,1,2,3 all children of 4.
	et := eliminationTree{n: 5, Parent: []int{4, 4, 4, 4, none}}
	et.buildChildLists()
	et.buildDescRanges()
	assert.Equal(t, 0, et.FirstDescIndex[4])
	assert.Equal(t, 3, et.LastDescIndex[4])
}

func TestEliminationTree_IsOnlyChild(t *testing.T) {
	et := eliminationTree{n: 3, Parent: []int{1, 2, none}}
	et.buildChildLists()
	assert.True(t, et.isOnlyChild(0))
	assert.True(t, et.isOnlyChild(1))
	assert.False(t, et.isOnlyChild(2))
}

func TestEliminationTree_IsOnlyChildFalseWithSibling(t *testing.T) {
	et := eliminationTree{n: 3, Parent: []int{2, 2, none}}
	et.buildChildLists()
	assert.False(t, et.isOnlyChild(0))
	assert.False(t, et.isOnlyChild(1))
}

func TestEliminationTree_ChildrenOf(t *testing.T) {
	et := eliminationTree{n: 3, Parent: []int{2, 2, none}}
	et.buildChildLists()
	kids := et.childrenOf(2)
	assert.ElementsMatch(t, []int{0, 1}, kids)
	assert.Empty(t, et.childrenOf(0))
}
