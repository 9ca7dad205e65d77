package table

import (
	"encoding/binary"

	"fourk/fault"
	"fourk/pager"
	"fourk/record"
)

// leafNode is a typed view over a page holding data rows directly.
type leafNode struct {
	page *pager.Page
}

func asLeaf(p *pager.Page) *leafNode { return &leafNode{page: p} }

func (n *leafNode) header() leafHeader { return readLeafHeader(n.page.Data[:]) }

func (n *leafNode) setHeader(h leafHeader) {
	h.writeTo(n.page.Data[:])
	n.page.MarkDirty()
}

func (n *leafNode) initialize(isRoot bool, parent uint32) {
	n.setHeader(leafHeader{
		commonHeader: commonHeader{kind: nodeLeaf, isRoot: isRoot, parentPg: parent},
		numCells:     0,
		nextLeaf:     InvalidPageIdx,
	})
}

func (n *leafNode) numCells() uint32 { return n.header().numCells }

func (n *leafNode) cellOffset(i uint32) uint32 {
	return LeafHeaderSize + i*LeafCellSize
}

func (n *leafNode) key(i uint32) uint32 {
	off := n.cellOffset(i) + leafKeyOffset
	return binary.LittleEndian.Uint32(n.page.Data[off : off+4])
}

func (n *leafNode) setKey(i uint32, key uint32) {
	off := n.cellOffset(i) + leafKeyOffset
	binary.LittleEndian.PutUint32(n.page.Data[off:off+4], key)
	n.page.MarkDirty()
}

func (n *leafNode) rowBytes(i uint32) []byte {
	off := n.cellOffset(i) + leafValOffset
	return n.page.Data[off : off+uint32(record.RowSize)]
}

func (n *leafNode) row(i uint32) (record.Row, error) {
	return record.Deserialize(n.rowBytes(i))
}

func (n *leafNode) setCell(i uint32, key uint32, row record.Row) error {
	if err := record.Serialize(row, n.rowBytes(i)); err != nil {
		return err
	}
	n.setKey(i, key)
	return nil
}

// shiftCellsRight moves cells [from, numCells) one slot to the right to
// make room for an insertion at `from`.
func (n *leafNode) shiftCellsRight(from uint32) {
	h := n.header()
	for i := h.numCells; i > from; i-- {
		src := n.cellOffset(i - 1)
		dst := n.cellOffset(i)
		copy(n.page.Data[dst:dst+LeafCellSize], n.page.Data[src:src+LeafCellSize])
	}
	n.page.MarkDirty()
}

// shiftCellsLeft moves cells [from+1, numCells) one slot left, erasing
// the cell at `from`.
func (n *leafNode) shiftCellsLeft(from uint32) {
	h := n.header()
	for i := from; i+1 < h.numCells; i++ {
		src := n.cellOffset(i + 1)
		dst := n.cellOffset(i)
		copy(n.page.Data[dst:dst+LeafCellSize], n.page.Data[src:src+LeafCellSize])
	}
	n.page.MarkDirty()
}

// findKeyIndex returns the index of the first cell whose key is >=
// target (i.e. an insertion point / lower bound), via binary search.
func (n *leafNode) findKeyIndex(target uint32) uint32 {
	h := n.header()
	lo, hi := uint32(0), h.numCells
	for lo < hi {
		mid := lo + (hi-lo)/2
		if n.key(mid) < target {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// maxKey returns the largest key stored in this leaf.
func (n *leafNode) maxKey() uint32 {
	h := n.header()
	if h.numCells == 0 {
		return 0
	}
	return n.key(h.numCells - 1)
}

// internalNode is a typed view over a page holding routing keys and
// child page pointers.
type internalNode struct {
	page *pager.Page
}

func asInternal(p *pager.Page) *internalNode { return &internalNode{page: p} }

func (n *internalNode) header() internalHeader { return readInternalHeader(n.page.Data[:]) }

func (n *internalNode) setHeader(h internalHeader) {
	h.writeTo(n.page.Data[:])
	n.page.MarkDirty()
}

func (n *internalNode) initialize(isRoot bool, parent uint32) {
	n.setHeader(internalHeader{
		commonHeader: commonHeader{kind: nodeInternal, isRoot: isRoot, parentPg: parent},
		numKeys:      0,
		rightChild:   InvalidPageIdx,
	})
}

func (n *internalNode) numKeys() uint32 { return n.header().numKeys }

func (n *internalNode) cellOffset(i uint32) uint32 {
	return InternalHeaderSize + i*InternalCellSize
}

func (n *internalNode) key(i uint32) uint32 {
	off := n.cellOffset(i) + internalChildSize
	return binary.LittleEndian.Uint32(n.page.Data[off : off+4])
}

func (n *internalNode) setKey(i uint32, key uint32) {
	off := n.cellOffset(i) + internalChildSize
	binary.LittleEndian.PutUint32(n.page.Data[off:off+4], key)
	n.page.MarkDirty()
}

func (n *internalNode) childAtCell(i uint32) uint32 {
	off := n.cellOffset(i)
	return binary.LittleEndian.Uint32(n.page.Data[off : off+4])
}

func (n *internalNode) setChildAtCell(i uint32, child uint32) {
	off := n.cellOffset(i)
	binary.LittleEndian.PutUint32(n.page.Data[off:off+4], child)
	n.page.MarkDirty()
}

// child returns the i-th child pointer, where i may equal numKeys to
// fetch the rightmost child.
func (n *internalNode) child(i uint32) (uint32, error) {
	h := n.header()
	if i == h.numKeys {
		if h.rightChild == InvalidPageIdx {
			return 0, fault.New("table: internal node right child not yet initialized")
		}
		return h.rightChild, nil
	}
	if i > h.numKeys {
		return 0, fault.Newf("table: child index %d out of bounds (numKeys=%d)", i, h.numKeys)
	}
	return n.childAtCell(i), nil
}

func (n *internalNode) setChild(i uint32, child uint32) {
	h := n.header()
	if i == h.numKeys {
		h.rightChild = child
		n.setHeader(h)
		return
	}
	n.setChildAtCell(i, child)
}

// findChildIndex returns the index of the child that should be
// descended into to find key.
func (n *internalNode) findChildIndex(key uint32) uint32 {
	h := n.header()
	lo, hi := uint32(0), h.numKeys
	for lo < hi {
		mid := lo + (hi-lo)/2
		if n.key(mid) < key {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// shiftCellsRight moves cells [from, numKeys) one slot right.
func (n *internalNode) shiftCellsRight(from uint32) {
	h := n.header()
	for i := h.numKeys; i > from; i-- {
		src := n.cellOffset(i - 1)
		dst := n.cellOffset(i)
		copy(n.page.Data[dst:dst+InternalCellSize], n.page.Data[src:src+InternalCellSize])
	}
	n.page.MarkDirty()
}

// shiftCellsLeft moves cells [from+1, numKeys) one slot left.
func (n *internalNode) shiftCellsLeft(from uint32) {
	h := n.header()
	for i := from; i+1 < h.numKeys; i++ {
		src := n.cellOffset(i + 1)
		dst := n.cellOffset(i)
		copy(n.page.Data[dst:dst+InternalCellSize], n.page.Data[src:src+InternalCellSize])
	}
	n.page.MarkDirty()
}

// maxKey returns the largest routing key reachable from this subtree.
func (n *internalNode) maxKey(get func(uint32) (*pager.Page, error)) (uint32, error) {
	h := n.header()
	rightPg, err := n.child(h.numKeys)
	if err != nil {
		return 0, err
	}
	child, err := get(rightPg)
	if err != nil {
		return 0, err
	}
	return maxKeyOf(child, get)
}

// maxKeyOf recurses down the rightmost spine of the subtree rooted at
// page to find the maximum key it contains.
func maxKeyOf(page *pager.Page, get func(uint32) (*pager.Page, error)) (uint32, error) {
	ch := readCommonHeader(page.Data[:])
	if ch.kind == nodeLeaf {
		return asLeaf(page).maxKey(), nil
	}
	return asInternal(page).maxKey(get)
}
