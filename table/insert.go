package table

import (
	"github.com/pkg/errors"

	"fourk/record"
)

// ErrDuplicateKey is returned when an insert targets an id already
// present in the table.
var ErrDuplicateKey = errors.New("duplicate key")

// nodeMaxKeyAt returns the maximum key reachable under the page at idx.
func (t *btree) nodeMaxKeyAt(idx uint32) (uint32, error) {
	page, err := t.pager.Get(idx)
	if err != nil {
		return 0, err
	}
	return maxKeyOf(page, t.pager.Get)
}

// insert adds row under key, splitting nodes up the tree as needed.
func (t *btree) insert(key uint32, row record.Row) error {
	leafPageIdx, cellIdx, found, err := t.find(key)
	if err != nil {
		return err
	}
	if found {
		return ErrDuplicateKey
	}

	page, err := t.pager.Get(leafPageIdx)
	if err != nil {
		return err
	}
	leaf := asLeaf(page)

	if leaf.numCells() < LeafMaxCells {
		leaf.shiftCellsRight(cellIdx)
		h := leaf.header()
		h.numCells++
		leaf.setHeader(h)
		return leaf.setCell(cellIdx, key, row)
	}

	return t.leafSplitAndInsert(leafPageIdx, cellIdx, key, row)
}

// leafSplitAndInsert splits an overflowing leaf in two, inserting the
// new cell into whichever half it belongs on, then wires the new
// sibling into the parent (or promotes a new root).
func (t *btree) leafSplitAndInsert(oldPageIdx, cellIdx uint32, key uint32, row record.Row) error {
	oldPage, err := t.pager.Get(oldPageIdx)
	if err != nil {
		return err
	}
	oldNode := asLeaf(oldPage)
	oldMax := oldNode.maxKey()
	oldHeader := oldNode.header()

	newPageIdx, err := t.pager.Allocate()
	if err != nil {
		return err
	}
	newPage, err := t.pager.Get(newPageIdx)
	if err != nil {
		return err
	}
	newNode := asLeaf(newPage)
	newNode.initialize(false, oldHeader.parentPg)

	newNode.setHeader(leafHeader{
		commonHeader: newNode.header().commonHeader,
		numCells:     0,
		nextLeaf:     oldHeader.nextLeaf,
	})
	oldHeader.nextLeaf = newPageIdx

	// Collect the existing LeafMaxCells cells plus the new one, in
	// sorted order, by walking the combined index space from high to
	// low exactly as the reference splitter does.
	type cell struct {
		key uint32
		row record.Row
	}
	cells := make([]cell, LeafMaxCells+1)
	for i := int32(LeafMaxCells); i >= 0; i-- {
		idx := uint32(i)
		switch {
		case idx == cellIdx:
			cells[idx] = cell{key: key, row: row}
		case idx > cellIdx:
			r, err := oldNode.row(idx - 1)
			if err != nil {
				return err
			}
			cells[idx] = cell{key: oldNode.key(idx - 1), row: r}
		default:
			r, err := oldNode.row(idx)
			if err != nil {
				return err
			}
			cells[idx] = cell{key: oldNode.key(idx), row: r}
		}
	}

	for i := uint32(0); i < LeafLeftSplitCount; i++ {
		if err := oldNode.setCell(i, cells[i].key, cells[i].row); err != nil {
			return err
		}
	}
	for i := uint32(0); i < LeafRightSplitCount; i++ {
		if err := newNode.setCell(i, cells[LeafLeftSplitCount+i].key, cells[LeafLeftSplitCount+i].row); err != nil {
			return err
		}
	}

	oldHeader.numCells = LeafLeftSplitCount
	oldNode.setHeader(oldHeader)

	nh := newNode.header()
	nh.numCells = LeafRightSplitCount
	newNode.setHeader(nh)

	if oldHeader.isRoot {
		return t.createNewRoot(newPageIdx)
	}

	parentPageIdx := oldHeader.parentPg
	newMax := oldNode.maxKey()
	if err := t.updateInternalNodeKey(parentPageIdx, oldMax, newMax); err != nil {
		return err
	}
	return t.internalNodeInsert(parentPageIdx, newPageIdx)
}

// createNewRoot promotes the current root's contents to a freshly
// allocated left page and reinitializes the root page (always page 0)
// as an internal node with one key separating the new left page from
// rightChildPageIdx.
func (t *btree) createNewRoot(rightChildPageIdx uint32) error {
	rootPg, err := t.pager.Get(rootPage)
	if err != nil {
		return err
	}
	rightChildPg, err := t.pager.Get(rightChildPageIdx)
	if err != nil {
		return err
	}

	leftChildIdx, err := t.pager.Allocate()
	if err != nil {
		return err
	}
	leftChildPg, err := t.pager.Get(leftChildIdx)
	if err != nil {
		return err
	}

	rootWasInternal := readCommonHeader(rootPg.Data[:]).kind == nodeInternal
	if rootWasInternal {
		asInternal(rightChildPg).initialize(false, rootPage)
		asInternal(leftChildPg).initialize(false, rootPage)
	}

	// Copy the old root's entire buffer into the new left page, then
	// mark it non-root.
	leftChildPg.Data = rootPg.Data
	leftChildPg.MarkDirty()
	leftHdr := readCommonHeader(leftChildPg.Data[:])
	leftHdr.isRoot = false
	leftHdr.writeTo(leftChildPg.Data[:])

	if leftHdr.kind == nodeInternal {
		leftNode := asInternal(leftChildPg)
		lh := leftNode.header()
		for i := uint32(0); i < lh.numKeys; i++ {
			childIdx, err := leftNode.child(i)
			if err != nil {
				return err
			}
			childPg, err := t.pager.Get(childIdx)
			if err != nil {
				return err
			}
			ch := readCommonHeader(childPg.Data[:])
			ch.parentPg = leftChildIdx
			ch.writeTo(childPg.Data[:])
		}
		rc, err := leftNode.child(lh.numKeys)
		if err != nil {
			return err
		}
		rcPg, err := t.pager.Get(rc)
		if err != nil {
			return err
		}
		ch := readCommonHeader(rcPg.Data[:])
		ch.parentPg = leftChildIdx
		ch.writeTo(rcPg.Data[:])
	}

	asInternal(rootPg).initialize(true, InvalidPageIdx)
	leftMax, err := t.nodeMaxKeyAt(leftChildIdx)
	if err != nil {
		return err
	}
	root := asInternal(rootPg)
	rh := root.header()
	rh.numKeys = 1
	rh.rightChild = rightChildPageIdx
	root.setHeader(rh)
	root.setChild(0, leftChildIdx)
	root.setKey(0, leftMax)

	leftCh := readCommonHeader(leftChildPg.Data[:])
	leftCh.parentPg = rootPage
	leftCh.writeTo(leftChildPg.Data[:])
	rightCh := readCommonHeader(rightChildPg.Data[:])
	rightCh.parentPg = rootPage
	rightCh.writeTo(rightChildPg.Data[:])

	return nil
}

// updateInternalNodeKey rewrites the separator key matching oldKey to
// newKey, used when a child's maximum key changes after a split.
func (t *btree) updateInternalNodeKey(parentPageIdx, oldKey, newKey uint32) error {
	page, err := t.pager.Get(parentPageIdx)
	if err != nil {
		return err
	}
	node := asInternal(page)
	idx := node.findChildIndex(oldKey)
	node.setKey(idx, newKey)
	return nil
}

// internalNodeInsert adds childPageIdx as a new child of the internal
// node at parentPageIdx, splitting the parent if it is already full.
func (t *btree) internalNodeInsert(parentPageIdx, childPageIdx uint32) error {
	page, err := t.pager.Get(parentPageIdx)
	if err != nil {
		return err
	}
	parent := asInternal(page)
	childMax, err := t.nodeMaxKeyAt(childPageIdx)
	if err != nil {
		return err
	}
	index := parent.findChildIndex(childMax)
	h := parent.header()

	if h.numKeys >= InternalMaxKeys {
		return t.internalNodeSplitAndInsert(parentPageIdx, childPageIdx)
	}

	if h.rightChild == InvalidPageIdx {
		h.rightChild = childPageIdx
		parent.setHeader(h)
		return nil
	}

	rightMax, err := t.nodeMaxKeyAt(h.rightChild)
	if err != nil {
		return err
	}

	h.numKeys++
	parent.setHeader(h)

	if childMax > rightMax {
		parent.setChild(h.numKeys-1, h.rightChild)
		parent.setKey(h.numKeys-1, rightMax)
		h2 := parent.header()
		h2.rightChild = childPageIdx
		parent.setHeader(h2)
	} else {
		parent.shiftCellsRight(index)
		parent.setChild(index, childPageIdx)
		parent.setKey(index, childMax)
	}

	return t.setParent(childPageIdx, parentPageIdx)
}

func (t *btree) setParent(pageIdx, parentPageIdx uint32) error {
	page, err := t.pager.Get(pageIdx)
	if err != nil {
		return err
	}
	h := readCommonHeader(page.Data[:])
	h.parentPg = parentPageIdx
	h.writeTo(page.Data[:])
	page.MarkDirty()
	return nil
}

// internalNodeSplitAndInsert splits an overflowing internal node,
// moving its upper half of children into a new sibling and inserting
// the pending child into whichever half it belongs on.
func (t *btree) internalNodeSplitAndInsert(parentPageIdx, childPageIdx uint32) error {
	oldPageIdx := parentPageIdx
	oldPage, err := t.pager.Get(oldPageIdx)
	if err != nil {
		return err
	}
	oldMax, err := t.nodeMaxKeyAt(oldPageIdx)
	if err != nil {
		return err
	}
	childMax, err := t.nodeMaxKeyAt(childPageIdx)
	if err != nil {
		return err
	}

	newPageIdx, err := t.pager.Allocate()
	if err != nil {
		return err
	}

	splittingRoot := readCommonHeader(oldPage.Data[:]).isRoot

	var parentPageForSeparator uint32
	if splittingRoot {
		if err := t.createNewRoot(newPageIdx); err != nil {
			return err
		}
		rootPg, err := t.pager.Get(rootPage)
		if err != nil {
			return err
		}
		oldPageIdx, err = asInternal(rootPg).child(0)
		if err != nil {
			return err
		}
		oldPage, err = t.pager.Get(oldPageIdx)
		if err != nil {
			return err
		}
		parentPageForSeparator = rootPage
	} else {
		oldHdr := readCommonHeader(oldPage.Data[:])
		parentPageForSeparator = oldHdr.parentPg
		newPage, err := t.pager.Get(newPageIdx)
		if err != nil {
			return err
		}
		asInternal(newPage).initialize(false, oldHdr.parentPg)
	}

	oldNode := asInternal(oldPage)
	oldHeader := oldNode.header()

	curPageIdx := oldHeader.rightChild
	if err := t.internalNodeInsert(newPageIdx, curPageIdx); err != nil {
		return err
	}
	if err := t.setParent(curPageIdx, newPageIdx); err != nil {
		return err
	}
	oldHeader.rightChild = InvalidPageIdx
	oldNode.setHeader(oldHeader)

	for i := int32(InternalMaxKeys - 1); i > int32(InternalMaxKeys/2); i-- {
		cur, err := oldNode.child(uint32(i))
		if err != nil {
			return err
		}
		if err := t.internalNodeInsert(newPageIdx, cur); err != nil {
			return err
		}
		if err := t.setParent(cur, newPageIdx); err != nil {
			return err
		}
		oldHeader = oldNode.header()
		oldHeader.numKeys--
		oldNode.setHeader(oldHeader)
	}

	oldHeader = oldNode.header()
	lastChild, err := oldNode.child(oldHeader.numKeys - 1)
	if err != nil {
		return err
	}
	oldHeader.rightChild = lastChild
	oldHeader.numKeys--
	oldNode.setHeader(oldHeader)

	maxAfterSplit, err := t.nodeMaxKeyAt(oldPageIdx)
	if err != nil {
		return err
	}

	destPageIdx := newPageIdx
	if childMax < maxAfterSplit {
		destPageIdx = oldPageIdx
	}
	if err := t.internalNodeInsert(destPageIdx, childPageIdx); err != nil {
		return err
	}
	if err := t.setParent(childPageIdx, destPageIdx); err != nil {
		return err
	}

	newMaxAfterSplit, err := t.nodeMaxKeyAt(oldPageIdx)
	if err != nil {
		return err
	}
	if err := t.updateInternalNodeKey(parentPageForSeparator, oldMax, newMaxAfterSplit); err != nil {
		return err
	}

	if !splittingRoot {
		grandparent := readCommonHeader(oldPage.Data[:]).parentPg
		if err := t.internalNodeInsert(grandparent, newPageIdx); err != nil {
			return err
		}
		if err := t.setParent(newPageIdx, grandparent); err != nil {
			return err
		}
	}

	return nil
}
