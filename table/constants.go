// Package table implements the on-disk B+tree: page-typed node accessors,
// search, insert/split, delete/rebalance, a forward cursor, and the Table
// facade the executor drives.
package table

import (
	"math"
	"unsafe"

	"fourk/pager"
	"fourk/record"
)

// InvalidPageIdx marks an absent page reference: a leaf's next-leaf
// pointer when it is rightmost, or an internal node's right-child
// pointer before its first child is attached.
const InvalidPageIdx = math.MaxUint32

const (
	// Common node header layout.
	nodeTypeSize        = unsafe.Sizeof(uint8(0))
	nodeTypeOffset      = 0
	isRootSize          = unsafe.Sizeof(uint8(0))
	isRootOffset        = nodeTypeOffset + nodeTypeSize
	parentPointerSize   = unsafe.Sizeof(uint32(0))
	parentPointerOffset = isRootOffset + isRootSize
	// CommonHeaderSize is COMMON_NODE_HEADER_SIZE.
	CommonHeaderSize = uint32(nodeTypeSize + isRootSize + parentPointerSize)

	// Leaf node header layout.
	leafNumCellsSize    = unsafe.Sizeof(uint32(0))
	leafNumCellsOffset  = CommonHeaderSize
	leafNextLeafSize    = unsafe.Sizeof(uint32(0))
	leafNextLeafOffset  = leafNumCellsOffset + uint32(leafNumCellsSize)
	// LeafHeaderSize is LEAF_NODE_HEADER_SIZE.
	LeafHeaderSize = leafNumCellsOffset + uint32(leafNumCellsSize) + uint32(leafNextLeafSize)

	// Leaf cell layout: key then row.
	leafKeySize   = uint32(unsafe.Sizeof(uint32(0)))
	leafKeyOffset = 0
	leafValOffset = leafKeyOffset + leafKeySize
	// LeafCellSize is LEAF_NODE_CELL_SIZE.
	LeafCellSize = leafKeySize + uint32(record.RowSize)

	leafSpaceForCells = pager.PageSize - LeafHeaderSize
	// LeafMaxCells is LEAF_NODE_MAX_CELLS.
	LeafMaxCells = leafSpaceForCells / LeafCellSize
	// LeafRightSplitCount and LeafLeftSplitCount are the 7/7 split sizes.
	LeafRightSplitCount = (LeafMaxCells + 1) / 2
	LeafLeftSplitCount  = (LeafMaxCells + 1) - LeafRightSplitCount
	// LeafMinCells is the minimum occupancy a non-root leaf must keep.
	LeafMinCells = LeafMaxCells / 2

	// Internal node header layout.
	internalNumKeysSize     = unsafe.Sizeof(uint32(0))
	internalNumKeysOffset   = CommonHeaderSize
	internalRightChildSize  = unsafe.Sizeof(uint32(0))
	internalRightChildOffset = internalNumKeysOffset + uint32(internalNumKeysSize)
	// InternalHeaderSize is INTERNAL_NODE_HEADER_SIZE.
	InternalHeaderSize = internalNumKeysOffset + uint32(internalNumKeysSize) + uint32(internalRightChildSize)

	internalChildSize = uint32(unsafe.Sizeof(uint32(0)))
	internalKeySize   = uint32(unsafe.Sizeof(uint32(0)))
	// InternalCellSize is INTERNAL_NODE_CELL_SIZE: child pointer + key.
	InternalCellSize = internalChildSize + internalKeySize

	internalSpaceForCells = pager.PageSize - InternalHeaderSize
	// InternalMaxKeys is INTERNAL_NODE_MAX_KEYS.
	InternalMaxKeys = internalSpaceForCells / InternalCellSize
	// InternalMinKeys is the minimum a non-root internal node must keep.
	InternalMinKeys = InternalMaxKeys / 2
)
