package table

import (
	"github.com/pkg/errors"

	"fourk/fault"
)

// ErrKeyNotFound is returned when a delete or update targets an id that
// is not present. The executor treats this as a silent no-op per the
// reference implementation's execute_drop behavior.
var ErrKeyNotFound = errors.New("key not found")

// remove deletes key from the tree, rebalancing ancestors as needed.
func (t *btree) remove(key uint32) error {
	leafPageIdx, cellIdx, found, err := t.find(key)
	if err != nil {
		return err
	}
	if !found {
		return ErrKeyNotFound
	}

	page, err := t.pager.Get(leafPageIdx)
	if err != nil {
		return err
	}
	leaf := asLeaf(page)
	wasMax := cellIdx == leaf.numCells()-1
	leaf.shiftCellsLeft(cellIdx)
	h := leaf.header()
	h.numCells--
	leaf.setHeader(h)

	if h.isRoot {
		return nil
	}

	if wasMax && h.numCells > 0 {
		// The separator key in the parent pointed at the removed max;
		// refresh it to the leaf's new max.
		newMax := leaf.maxKey()
		if err := t.updateInternalNodeKey(h.parentPg, key, newMax); err != nil {
			return err
		}
	}

	if h.numCells >= LeafMinCells {
		return nil
	}

	return t.adjustAfterDelete(leafPageIdx)
}

// childIndexOf returns the index (0..numKeys inclusive) at which
// parent references child pageIdx.
func childIndexOf(parent *internalNode, pageIdx uint32) (uint32, error) {
	h := parent.header()
	for i := uint32(0); i < h.numKeys; i++ {
		c, err := parent.child(i)
		if err != nil {
			return 0, err
		}
		if c == pageIdx {
			return i, nil
		}
	}
	if h.rightChild == pageIdx {
		return h.numKeys, nil
	}
	return 0, fault.Newf("table: page %d is not a child of its recorded parent", pageIdx)
}

// adjustAfterDelete rebalances the node at pageIdx, which has dropped
// below its minimum occupancy: it borrows from a sibling if one has
// surplus, else merges with a sibling and recurses toward the root.
func (t *btree) adjustAfterDelete(pageIdx uint32) error {
	page, err := t.pager.Get(pageIdx)
	if err != nil {
		return err
	}
	ch := readCommonHeader(page.Data[:])
	if ch.isRoot {
		return t.handleRootShrink(pageIdx)
	}

	parentPage, err := t.pager.Get(ch.parentPg)
	if err != nil {
		return err
	}
	parent := asInternal(parentPage)
	idx, err := childIndexOf(parent, pageIdx)
	if err != nil {
		return err
	}
	ph := parent.header()

	var siblingIdx uint32
	var siblingIsLeft bool
	if idx < ph.numKeys {
		siblingIdx = idx + 1
		siblingIsLeft = false
	} else {
		siblingIdx = idx - 1
		siblingIsLeft = true
	}
	siblingPageIdx, err := parent.child(siblingIdx)
	if err != nil {
		return err
	}

	siblingHasSurplus, err := t.siblingHasSurplus(siblingPageIdx)
	if err != nil {
		return err
	}

	if siblingHasSurplus {
		return t.redistribute(pageIdx, siblingPageIdx, siblingIsLeft, ch.parentPg)
	}
	return t.merge(pageIdx, siblingPageIdx, siblingIsLeft, ch.parentPg)
}

func (t *btree) siblingHasSurplus(pageIdx uint32) (bool, error) {
	page, err := t.pager.Get(pageIdx)
	if err != nil {
		return false, err
	}
	ch := readCommonHeader(page.Data[:])
	if ch.kind == nodeLeaf {
		return asLeaf(page).numCells() > LeafMinCells, nil
	}
	return asInternal(page).numKeys() > InternalMinKeys, nil
}

// redistribute moves a single cell across the sibling boundary to
// bring the underflowing node back up to its minimum occupancy.
func (t *btree) redistribute(pageIdx, siblingPageIdx uint32, siblingIsLeft bool, parentPageIdx uint32) error {
	page, err := t.pager.Get(pageIdx)
	if err != nil {
		return err
	}
	siblingPage, err := t.pager.Get(siblingPageIdx)
	if err != nil {
		return err
	}
	parentPage, err := t.pager.Get(parentPageIdx)
	if err != nil {
		return err
	}
	parent := asInternal(parentPage)

	kind := readCommonHeader(page.Data[:]).kind
	if kind == nodeLeaf {
		node := asLeaf(page)
		sib := asLeaf(siblingPage)
		nh := node.header()
		sh := sib.header()

		if siblingIsLeft {
			// Borrow the sibling's last cell, prepend it.
			lastIdx := sh.numCells - 1
			k := sib.key(lastIdx)
			r, err := sib.row(lastIdx)
			if err != nil {
				return err
			}
			node.shiftCellsRight(0)
			if err := node.setCell(0, k, r); err != nil {
				return err
			}
			nh.numCells++
			node.setHeader(nh)

			sib.shiftCellsLeft(lastIdx)
			sh.numCells--
			sib.setHeader(sh)

			oldSibMax := k
			newSibMax := sib.maxKey()
			_ = oldSibMax
			idx := parent.findChildIndex(newSibMax)
			parent.setKey(idx, newSibMax)
		} else {
			// Borrow the sibling's first cell, append it.
			k := sib.key(0)
			r, err := sib.row(0)
			if err != nil {
				return err
			}
			if err := node.setCell(nh.numCells, k, r); err != nil {
				return err
			}
			nh.numCells++
			node.setHeader(nh)

			oldNodeMax := node.key(nh.numCells - 2)
			_ = oldNodeMax

			sib.shiftCellsLeft(0)
			sh.numCells--
			sib.setHeader(sh)

			newNodeMax := node.maxKey()
			idx := parent.findChildIndex(k)
			if idx > 0 {
				idx--
			}
			parent.setKey(idx, newNodeMax)
		}
		return nil
	}

	node := asInternal(page)
	sib := asInternal(siblingPage)
	nh := node.header()
	sh := sib.header()

	if siblingIsLeft {
		borrowChild, err := sib.child(sh.numKeys)
		if err != nil {
			return err
		}
		borrowKey := sib.key(sh.numKeys - 1)

		node.shiftCellsRight(0)
		node.setChild(0, borrowChild)
		oldLeftChild, err := node.child(1)
		if err != nil {
			return err
		}
		oldLeftMax, err := t.nodeMaxKeyAt(oldLeftChild)
		if err != nil {
			return err
		}
		node.setKey(0, oldLeftMax)
		nh.numKeys++
		node.setHeader(nh)

		shNew := sib.header()
		shNew.rightChild = sib.childAtCell(shNew.numKeys - 1)
		shNew.numKeys--
		sib.setHeader(shNew)

		if err := t.setParent(borrowChild, node.page.PageNum); err != nil {
			return err
		}

		idx := parent.findChildIndex(borrowKey)
		if idx > 0 {
			idx--
		}
		newSibMax, err := t.nodeMaxKeyAt(siblingPage.PageNum)
		if err != nil {
			return err
		}
		parent.setKey(idx, newSibMax)
	} else {
		borrowChild, err := sib.child(0)
		if err != nil {
			return err
		}
		oldNodeMax, err := t.nodeMaxKeyAt(node.header().rightChild)
		if err != nil {
			return err
		}

		node.setKey(nh.numKeys, oldNodeMax)
		node.setChild(nh.numKeys+1, borrowChild)
		newRight, err := node.child(nh.numKeys + 1)
		if err != nil {
			return err
		}
		nh.numKeys++
		nh.rightChild = newRight
		node.setHeader(nh)

		sib.shiftCellsLeft(0)
		shNew := sib.header()
		shNew.numKeys--
		sib.setHeader(shNew)

		if err := t.setParent(borrowChild, node.page.PageNum); err != nil {
			return err
		}

		newNodeMax, err := t.nodeMaxKeyAt(node.page.PageNum)
		if err != nil {
			return err
		}
		idx := parent.findChildIndex(oldNodeMax)
		if idx > 0 {
			idx--
		}
		parent.setKey(idx, newNodeMax)
	}
	return nil
}

// merge absorbs pageIdx's contents into siblingPageIdx (or vice versa),
// removes the vacated parent slot, and recurses the adjustment upward.
func (t *btree) merge(pageIdx, siblingPageIdx uint32, siblingIsLeft bool, parentPageIdx uint32) error {
	leftIdx, rightIdx := pageIdx, siblingPageIdx
	if siblingIsLeft {
		leftIdx, rightIdx = siblingPageIdx, pageIdx
	}

	leftPage, err := t.pager.Get(leftIdx)
	if err != nil {
		return err
	}
	rightPage, err := t.pager.Get(rightIdx)
	if err != nil {
		return err
	}
	parentPage, err := t.pager.Get(parentPageIdx)
	if err != nil {
		return err
	}
	parent := asInternal(parentPage)

	kind := readCommonHeader(leftPage.Data[:]).kind
	if kind == nodeLeaf {
		left := asLeaf(leftPage)
		right := asLeaf(rightPage)
		lh := left.header()
		rh := right.header()
		for i := uint32(0); i < rh.numCells; i++ {
			r, err := right.row(i)
			if err != nil {
				return err
			}
			if err := left.setCell(lh.numCells+i, right.key(i), r); err != nil {
				return err
			}
		}
		lh.numCells += rh.numCells
		lh.nextLeaf = rh.nextLeaf
		left.setHeader(lh)
	} else {
		left := asInternal(leftPage)
		right := asInternal(rightPage)
		lh := left.header()
		rh := right.header()

		sepIdx, err := childIndexOf(parent, rightIdx)
		if err != nil {
			return err
		}
		var sepKey uint32
		if sepIdx == parent.header().numKeys {
			sepKey, err = t.nodeMaxKeyAt(leftIdx)
		} else {
			sepKey = parent.key(sepIdx)
		}
		if err != nil {
			return err
		}

		left.setChild(lh.numKeys, lh.rightChild)
		left.setKey(lh.numKeys, sepKey)
		lh.numKeys++

		for i := uint32(0); i < rh.numKeys; i++ {
			c, err := right.child(i)
			if err != nil {
				return err
			}
			left.setChild(lh.numKeys+i, c)
			left.setKey(lh.numKeys+i, right.key(i))
			if err := t.setParent(c, leftIdx); err != nil {
				return err
			}
		}
		lh.numKeys += rh.numKeys
		lh.rightChild = rh.rightChild
		left.setHeader(lh)
		if err := t.setParent(lh.rightChild, leftIdx); err != nil {
			return err
		}
	}

	// Remove the vacated slot for rightIdx from parent and fix the
	// right-child/separator bookkeeping, then recurse upward.
	idx, err := childIndexOf(parent, rightIdx)
	if err != nil {
		return err
	}
	ph := parent.header()
	if idx == ph.numKeys {
		// rightIdx was the parent's right child; the new right child
		// is what used to be its last keyed child (now leftIdx, since
		// leftIdx absorbed right's contents and sits one slot left).
		if ph.numKeys == 0 {
			ph.rightChild = leftIdx
		} else {
			ph.rightChild = leftIdx
			ph.numKeys--
		}
		parent.setHeader(ph)
	} else {
		parent.shiftCellsLeft(idx)
		ph.numKeys--
		parent.setHeader(ph)
		// leftIdx sits in the keyed slot just before the removed one; its
		// separator becomes the merged node's max.
		newMax, err := t.nodeMaxKeyAt(leftIdx)
		if err != nil {
			return err
		}
		parent.setKey(idx-1, newMax)
	}

	if err := t.setParent(leftIdx, parentPageIdx); err != nil {
		return err
	}

	return t.adjustAfterDelete(parentPageIdx)
}

// handleRootShrink collapses a root that has been merged down to a
// single child: rather than relocating the root pointer (which would
// require persisting it separately across reopen), the surviving
// child's entire page is copied into page 0, preserving the invariant
// that the root always lives at page 0.
func (t *btree) handleRootShrink(rootPageIdx uint32) error {
	rootPg, err := t.pager.Get(rootPageIdx)
	if err != nil {
		return err
	}
	ch := readCommonHeader(rootPg.Data[:])
	if ch.kind == nodeLeaf {
		// A leaf root never shrinks below the tree; it's simply
		// allowed to be under-full since there is nowhere else to go.
		return nil
	}

	root := asInternal(rootPg)
	rh := root.header()
	if rh.numKeys > 0 {
		// Still has at least one key; nothing to collapse.
		return nil
	}

	childIdx := rh.rightChild
	childPg, err := t.pager.Get(childIdx)
	if err != nil {
		return err
	}

	rootPg.Data = childPg.Data
	rootPg.MarkDirty()
	h := readCommonHeader(rootPg.Data[:])
	h.isRoot = true
	h.parentPg = InvalidPageIdx
	h.writeTo(rootPg.Data[:])

	if h.kind == nodeInternal {
		node := asInternal(rootPg)
		nh := node.header()
		for i := uint32(0); i < nh.numKeys; i++ {
			c, err := node.child(i)
			if err != nil {
				return err
			}
			if err := t.setParent(c, rootPageIdx); err != nil {
				return err
			}
		}
		if err := t.setParent(nh.rightChild, rootPageIdx); err != nil {
			return err
		}
	}
	return nil
}
