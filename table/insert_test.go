package table

import (
	"testing"

	"github.com/stretchr/testify/require"

	"fourk/record"
)

func insertSeq(t *testing.T, tbl *Table, from, to uint32) {
	t.Helper()
	for i := from; i <= to; i++ {
		require.NoError(t, tbl.Insert(i, record.Row{ID: i, Username: "u", Email: "u@x.com"}))
	}
}

// TestSplitBoundaryS4 is scenario S4 / property P7: inserting ids 1..14
// into a fresh database causes exactly one leaf split, leaving an
// internal root with one key over two leaves of size 7 each, linked by
// next_leaf.
func TestSplitBoundaryS4(t *testing.T) {
	tbl := newMemTable(t)
	insertSeq(t, tbl, 1, 14)

	root, err := tbl.pager.Get(rootPage)
	require.NoError(t, err)
	require.Equal(t, nodeInternal, readCommonHeader(root.Data[:]).kind)

	rootNode := asInternal(root)
	require.EqualValues(t, 1, rootNode.numKeys())

	leftIdx, err := rootNode.child(0)
	require.NoError(t, err)
	rightIdx, err := rootNode.child(1)
	require.NoError(t, err)

	leftPage, err := tbl.pager.Get(leftIdx)
	require.NoError(t, err)
	rightPage, err := tbl.pager.Get(rightIdx)
	require.NoError(t, err)

	left := asLeaf(leftPage)
	right := asLeaf(rightPage)
	require.EqualValues(t, LeafLeftSplitCount, left.numCells())
	require.EqualValues(t, LeafRightSplitCount, right.numCells())
	require.Equal(t, rightIdx, left.header().nextLeaf)

	for i := uint32(0); i < left.numCells(); i++ {
		require.Equal(t, i+1, left.key(i))
	}
	for i := uint32(0); i < right.numCells(); i++ {
		require.Equal(t, LeafLeftSplitCount+i+1, right.key(i))
	}
}

// TestSecondLeafSplitGrowsInternalRoot inserts past the first split
// boundary to force a second leaf split, which must grow the root's
// key count to 2 rather than promote a new root (the root is already
// internal).
func TestSecondLeafSplitGrowsInternalRoot(t *testing.T) {
	tbl := newMemTable(t)
	insertSeq(t, tbl, 1, 21)

	root, err := tbl.pager.Get(rootPage)
	require.NoError(t, err)
	require.Equal(t, nodeInternal, readCommonHeader(root.Data[:]).kind)
	require.EqualValues(t, 2, asInternal(root).numKeys())
}

// TestOutOfOrderInsertSplitsMidLeaf exercises insertion at a non-tail
// cell index, forcing leafSplitAndInsert to distribute an inserted key
// that lands in the middle of the combined cell run rather than at
// either end.
func TestOutOfOrderInsertSplitsMidLeaf(t *testing.T) {
	tbl := newMemTable(t)
	for _, k := range []uint32{2, 4, 6, 8, 10, 12, 14, 16, 18, 20, 22, 24, 26} {
		require.NoError(t, tbl.Insert(k, record.Row{ID: k, Username: "u", Email: "u@x.com"}))
	}
	// This insert lands inside the existing run, not at an edge.
	require.NoError(t, tbl.Insert(13, record.Row{ID: 13, Username: "mid", Email: "mid@x.com"}))

	cur, err := tbl.Start()
	require.NoError(t, err)
	var got []uint32
	for cur.Valid() {
		got = append(got, cur.Key())
		require.NoError(t, cur.Next())
	}
	want := []uint32{2, 4, 6, 8, 10, 12, 13, 14, 16, 18, 20, 22, 24, 26}
	require.Equal(t, want, got)
}

// TestManyLeafSplitsPromoteNewRootOnlyOnce confirms createNewRoot fires
// exactly when the root leaf first overflows, and further leaf splits
// only grow the existing internal root's key count.
func TestManyLeafSplitsPromoteNewRootOnlyOnce(t *testing.T) {
	tbl := newMemTable(t)
	insertSeq(t, tbl, 1, 13)
	root, err := tbl.pager.Get(rootPage)
	require.NoError(t, err)
	require.Equal(t, nodeLeaf, readCommonHeader(root.Data[:]).kind)

	require.NoError(t, tbl.Insert(14, record.Row{ID: 14, Username: "u", Email: "u@x.com"}))
	root, err = tbl.pager.Get(rootPage)
	require.NoError(t, err)
	require.Equal(t, nodeInternal, readCommonHeader(root.Data[:]).kind)

	insertSeq(t, tbl, 15, 200)
	root, err = tbl.pager.Get(rootPage)
	require.NoError(t, err)
	require.Equal(t, nodeInternal, readCommonHeader(root.Data[:]).kind)
	require.True(t, readCommonHeader(root.Data[:]).isRoot)

	// A second promotion would have pushed the leaves one level down.
	firstChild, err := asInternal(root).child(0)
	require.NoError(t, err)
	firstChildPage, err := tbl.pager.Get(firstChild)
	require.NoError(t, err)
	require.Equal(t, nodeLeaf, readCommonHeader(firstChildPage.Data[:]).kind)
}
