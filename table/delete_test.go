package table

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"fourk/record"
)

func row(k uint32) record.Row {
	return record.Row{ID: k, Username: "u", Email: "u@x.com"}
}

// leafSizes walks the tree and returns the cell count of every leaf in
// key order, for asserting occupancy invariants after a delete.
func leafSizes(t *testing.T, tbl *Table) []uint32 {
	t.Helper()
	var sizes []uint32
	var walk func(pageIdx uint32)
	walk = func(pageIdx uint32) {
		page, err := tbl.pager.Get(pageIdx)
		require.NoError(t, err)
		ch := readCommonHeader(page.Data[:])
		if ch.kind == nodeLeaf {
			sizes = append(sizes, asLeaf(page).numCells())
			return
		}
		node := asInternal(page)
		h := node.header()
		for i := uint32(0); i < h.numKeys; i++ {
			c, err := node.child(i)
			require.NoError(t, err)
			walk(c)
		}
		walk(h.rightChild)
	}
	walk(rootPage)
	return sizes
}

// TestMergeBoundaryCollapsesRootToLeaf is properties P8 (merge
// boundary) and P9 (root collapse) exercised together: a two-leaf tree
// with both leaves driven down to LeafMinCells, then one more delete
// forces a merge that empties the root's only key and collapses the
// root back to a single leaf with is_root set.
func TestMergeBoundaryCollapsesRootToLeaf(t *testing.T) {
	tbl := newMemTable(t)
	for i := uint32(1); i <= 14; i++ {
		require.NoError(t, tbl.Insert(i, row(i)))
	}
	// Splits into leaves {1..7} and {8..14}; bring each down to exactly
	// LeafMinCells(6) without yet underflowing either one.
	require.NoError(t, tbl.Delete(7))  // left: {1..6}
	require.NoError(t, tbl.Delete(8))  // right: {9..14}

	sizes := leafSizes(t, tbl)
	require.Equal(t, []uint32{LeafMinCells, LeafMinCells}, sizes)

	// One more delete anywhere must force a merge (no sibling has
	// surplus above LeafMinCells) and, since the root has only one key,
	// collapse the root down to a single leaf.
	require.NoError(t, tbl.Delete(1))

	root, err := tbl.pager.Get(rootPage)
	require.NoError(t, err)
	rh := readCommonHeader(root.Data[:])
	require.Equal(t, nodeLeaf, rh.kind)
	require.True(t, rh.isRoot)

	cur, err := tbl.Start()
	require.NoError(t, err)
	var got []uint32
	for cur.Valid() {
		got = append(got, cur.Key())
		require.NoError(t, cur.Next())
	}
	want := []uint32{2, 3, 4, 5, 6, 9, 10, 11, 12, 13, 14}
	require.Equal(t, want, got)
}

// TestScenarioS6DropAfterReopenKeepsLeavesAboveMinimum is scenario S6:
// after inserting 1..20, closing, and reopening, dropping id 10 must
// leave 19 rows in order with every leaf at or above LeafMinCells (or
// the tree collapsed to a single leaf).
func TestScenarioS6DropAfterReopenKeepsLeavesAboveMinimum(t *testing.T) {
	fs := afero.NewMemMapFs()
	tbl, err := Open(fs, "/s6.db")
	require.NoError(t, err)
	for i := uint32(1); i <= 20; i++ {
		require.NoError(t, tbl.Insert(i, row(i)))
	}
	require.NoError(t, tbl.Close())

	reopened, err := Open(fs, "/s6.db")
	require.NoError(t, err)
	require.NoError(t, reopened.Delete(10))

	cur, err := reopened.Start()
	require.NoError(t, err)
	var got []uint32
	for cur.Valid() {
		got = append(got, cur.Key())
		require.NoError(t, cur.Next())
	}
	var want []uint32
	for i := uint32(1); i <= 9; i++ {
		want = append(want, i)
	}
	for i := uint32(11); i <= 20; i++ {
		want = append(want, i)
	}
	require.Equal(t, want, got)
	require.Len(t, got, 19)

	sizes := leafSizes(t, reopened)
	if len(sizes) > 1 {
		for _, s := range sizes {
			require.GreaterOrEqual(t, s, uint32(LeafMinCells))
		}
	}
}

// TestDeepTreeDeleteExercisesInternalMergeAndRedistribute forces the
// tree to a 3rd level (internal root over internal children over
// leaves) by inserting enough sequential keys to overflow a single
// internal node's child capacity, then deletes everything, which must
// walk every rebalancing path: leaf redistribute/merge, and then
// internal-node redistribute/merge all the way up through the second
// internal level, finally collapsing the root back to a leaf.
func TestDeepTreeDeleteExercisesInternalMergeAndRedistribute(t *testing.T) {
	tbl := newMemTable(t)

	// An internal node holds at most InternalMaxKeys+1 (511) children,
	// and each leaf holds at most LeafMaxCells (13) rows, so forcing the
	// root's internal child count past 511 requires on the order of
	// 511*13 ~= 6600 sequential inserts. Comfortably clear that bar.
	const n = 8000
	for i := uint32(0); i < n; i++ {
		require.NoError(t, tbl.Insert(i, row(i)))
	}

	root, err := tbl.pager.Get(rootPage)
	require.NoError(t, err)
	require.Equal(t, nodeInternal, readCommonHeader(root.Data[:]).kind)

	child0, err := asInternal(root).child(0)
	require.NoError(t, err)
	childPage, err := tbl.pager.Get(child0)
	require.NoError(t, err)
	require.Equal(t, nodeInternal, readCommonHeader(childPage.Data[:]).kind,
		"expected a 3rd tree level: root's first child must itself be internal")

	// Delete every key, interleaved so both redistribute and merge
	// paths fire repeatedly instead of draining strictly left-to-right.
	for i := uint32(0); i < n; i += 2 {
		require.NoError(t, tbl.Delete(i))
	}
	for i := uint32(1); i < n; i += 2 {
		require.NoError(t, tbl.Delete(i))
	}

	cur, err := tbl.Start()
	require.NoError(t, err)
	require.False(t, cur.Valid())

	root, err = tbl.pager.Get(rootPage)
	require.NoError(t, err)
	rh := readCommonHeader(root.Data[:])
	require.Equal(t, nodeLeaf, rh.kind)
	require.True(t, rh.isRoot)
}
