package table

import "fourk/pager"

// rootPage is the fixed page index of the tree's root. create_new_root
// and handle_root_shrink both preserve this invariant: the root's own
// page number never changes across splits or collapses, only its
// contents do.
const rootPage uint32 = 0

// btree bundles the pager with the root-finding algorithms. table.Table
// holds one and adds the row-level operations the executor calls.
type btree struct {
	pager *pager.Pager
}

// findLeafPage descends from the root to the leaf page that contains
// key, or where key would be inserted.
func (t *btree) findLeafPage(key uint32) (uint32, error) {
	pageIdx := rootPage
	for {
		page, err := t.pager.Get(pageIdx)
		if err != nil {
			return 0, err
		}
		ch := readCommonHeader(page.Data[:])
		if ch.kind == nodeLeaf {
			return pageIdx, nil
		}
		node := asInternal(page)
		childIdx := node.findChildIndex(key)
		pageIdx, err = node.child(childIdx)
		if err != nil {
			return 0, err
		}
	}
}

// find locates the position of key: the leaf page it belongs on, the
// cell index it occupies (or would occupy), and whether it is present.
func (t *btree) find(key uint32) (pageIdx uint32, cellIdx uint32, found bool, err error) {
	pageIdx, err = t.findLeafPage(key)
	if err != nil {
		return 0, 0, false, err
	}
	page, err := t.pager.Get(pageIdx)
	if err != nil {
		return 0, 0, false, err
	}
	leaf := asLeaf(page)
	cellIdx = leaf.findKeyIndex(key)
	found = cellIdx < leaf.numCells() && leaf.key(cellIdx) == key
	return pageIdx, cellIdx, found, nil
}
