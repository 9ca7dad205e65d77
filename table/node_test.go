package table

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"fourk/pager"
	"fourk/record"
)

func newTestPage(t *testing.T) *pager.Page {
	t.Helper()
	pg, err := pager.Open(afero.NewMemMapFs(), "/n.db")
	require.NoError(t, err)
	page, err := pg.Get(0)
	require.NoError(t, err)
	return page
}

func TestLeafNodeInsertKeepsSortedOrder(t *testing.T) {
	page := newTestPage(t)
	leaf := asLeaf(page)
	leaf.initialize(true, InvalidPageIdx)

	keys := []uint32{42, 7, 99}
	for _, k := range keys {
		idx := leaf.findKeyIndex(k)
		leaf.shiftCellsRight(idx)
		h := leaf.header()
		h.numCells++
		leaf.setHeader(h)
		require.NoError(t, leaf.setCell(idx, k, record.Row{ID: k}))
	}

	want := []uint32{7, 42, 99}
	for i, w := range want {
		require.Equal(t, w, leaf.key(uint32(i)))
	}
}

func TestLeafNodeHeaderRoundTrip(t *testing.T) {
	page := newTestPage(t)
	leaf := asLeaf(page)
	leaf.initialize(false, 3)
	h := leaf.header()
	require.False(t, h.isRoot)
	require.Equal(t, uint32(3), h.parentPg)
	require.Equal(t, uint32(InvalidPageIdx), h.nextLeaf)
}

func TestInternalNodeChildAccessors(t *testing.T) {
	page := newTestPage(t)
	node := asInternal(page)
	node.initialize(true, InvalidPageIdx)

	h := node.header()
	h.numKeys = 2
	h.rightChild = 30
	node.setHeader(h)
	node.setChild(0, 10)
	node.setKey(0, 100)
	node.setChild(1, 20)
	node.setKey(1, 200)

	c0, err := node.child(0)
	require.NoError(t, err)
	require.Equal(t, uint32(10), c0)

	c2, err := node.child(2)
	require.NoError(t, err)
	require.Equal(t, uint32(30), c2)

	require.Equal(t, uint32(0), node.findChildIndex(50))
	require.Equal(t, uint32(1), node.findChildIndex(150))
	require.Equal(t, uint32(2), node.findChildIndex(250))
}
