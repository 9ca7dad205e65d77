package table

import "fourk/record"

// Cursor supports forward iteration across the leaf chain, starting
// from the leftmost leaf or from a specific key.
type Cursor struct {
	tree    *btree
	pageIdx uint32
	cellIdx uint32
	done    bool
}

// Start returns a cursor positioned at the first row in key order.
func (t *btree) Start() (*Cursor, error) {
	pageIdx := rootPage
	for {
		page, err := t.pager.Get(pageIdx)
		if err != nil {
			return nil, err
		}
		ch := readCommonHeader(page.Data[:])
		if ch.kind == nodeLeaf {
			break
		}
		pageIdx, err = asInternal(page).child(0)
		if err != nil {
			return nil, err
		}
	}
	page, err := t.pager.Get(pageIdx)
	if err != nil {
		return nil, err
	}
	done := asLeaf(page).numCells() == 0
	return &Cursor{tree: t, pageIdx: pageIdx, cellIdx: 0, done: done}, nil
}

// Seek positions the cursor at the first key >= target.
func (t *btree) Seek(target uint32) (*Cursor, error) {
	pageIdx, cellIdx, _, err := t.find(target)
	if err != nil {
		return nil, err
	}
	page, err := t.pager.Get(pageIdx)
	if err != nil {
		return nil, err
	}
	leaf := asLeaf(page)
	for cellIdx >= leaf.numCells() {
		nextLeaf := leaf.header().nextLeaf
		if nextLeaf == InvalidPageIdx {
			return &Cursor{tree: t, pageIdx: pageIdx, cellIdx: cellIdx, done: true}, nil
		}
		pageIdx = nextLeaf
		page, err = t.pager.Get(pageIdx)
		if err != nil {
			return nil, err
		}
		leaf = asLeaf(page)
		cellIdx = 0
	}
	return &Cursor{tree: t, pageIdx: pageIdx, cellIdx: cellIdx, done: false}, nil
}

// Valid reports whether the cursor currently addresses a row.
func (c *Cursor) Valid() bool { return !c.done }

// Key returns the key at the cursor's current position.
func (c *Cursor) Key() uint32 {
	page, err := c.tree.pager.Get(c.pageIdx)
	if err != nil {
		return 0
	}
	return asLeaf(page).key(c.cellIdx)
}

// Row returns the row at the cursor's current position.
func (c *Cursor) Row() (record.Row, error) {
	page, err := c.tree.pager.Get(c.pageIdx)
	if err != nil {
		return record.Row{}, err
	}
	return asLeaf(page).row(c.cellIdx)
}

// Next advances the cursor to the following row, crossing into the
// sibling leaf via its next-leaf pointer when the current leaf is
// exhausted.
func (c *Cursor) Next() error {
	if c.done {
		return nil
	}
	page, err := c.tree.pager.Get(c.pageIdx)
	if err != nil {
		return err
	}
	leaf := asLeaf(page)
	c.cellIdx++
	if c.cellIdx < leaf.numCells() {
		return nil
	}

	nextLeaf := leaf.header().nextLeaf
	if nextLeaf == InvalidPageIdx {
		c.done = true
		return nil
	}
	c.pageIdx = nextLeaf
	c.cellIdx = 0
	nextPage, err := c.tree.pager.Get(nextLeaf)
	if err != nil {
		return err
	}
	if asLeaf(nextPage).numCells() == 0 {
		c.done = true
	}
	return nil
}
