package rbtree

import (
	"math"
	"unsafe"

	"github.com/Sumatoshi-tech/ordmap/pkg/safeconv"
)

const (
	// nilNode is the reserved index of an absent node.
	nilNode uint32 = 0
	// negativeLimitNode is the iterator position before the minimum.
	negativeLimitNode uint32 = math.MaxUint32
)

type node[K, V any] struct {
	key                 K
	value               V
	parent, left, right uint32
	color               Color
	freed               bool
}

// Allocator is the arena for the nodes of one or more trees.
type Allocator[K, V any] struct {
	storage []node[K, V]
	gaps    []uint32
}

// NewAllocator creates a new allocator for tree nodes.
func NewAllocator[K, V any]() *Allocator[K, V] {
	return &Allocator[K, V]{
		storage: []node[K, V]{},
		gaps:    []uint32{},
	}
}

// Size returns the number of allocated slots, including free ones and the
// reserved zero slot.
func (allocator *Allocator[K, V]) Size() int {
	return len(allocator.storage)
}

// Used returns the number of live nodes in the allocator.
func (allocator *Allocator[K, V]) Used() int {
	if len(allocator.storage) == 0 {
		return 0
	}

	return len(allocator.storage) - 1 - len(allocator.gaps)
}

// Footprint estimates the memory held by the node slots in bytes.
func (allocator *Allocator[K, V]) Footprint() uint64 {
	var zero node[K, V]

	return uint64(cap(allocator.storage)) * uint64(unsafe.Sizeof(zero))
}

// Clone copies an existing allocator.
func (allocator *Allocator[K, V]) Clone() *Allocator[K, V] {
	clone := &Allocator[K, V]{
		storage: make([]node[K, V], len(allocator.storage), cap(allocator.storage)),
		gaps:    make([]uint32, len(allocator.gaps)),
	}
	copy(clone.storage, allocator.storage)
	copy(clone.gaps, allocator.gaps)

	return clone
}

// malloc returns the index of a zeroed node. Freed slots are reused in LIFO
// order. The returned index may grow the storage slice, so callers must
// reload it afterwards.
func (allocator *Allocator[K, V]) malloc() uint32 {
	if gapCount := len(allocator.gaps); gapCount > 0 {
		nodeIdx := allocator.gaps[gapCount-1]
		allocator.gaps = allocator.gaps[:gapCount-1]
		allocator.storage[nodeIdx] = node[K, V]{}

		return nodeIdx
	}

	nodeLen := len(allocator.storage)
	if nodeLen == 0 {
		// Zero is reserved.
		allocator.storage = append(allocator.storage, node[K, V]{color: Black})
		nodeLen = 1
	}

	if uint64(nodeLen) >= uint64(negativeLimitNode) {
		// math.MaxUint32 is reserved too.
		panic("rbtree allocator exhausted the uint32 index space")
	}

	allocator.storage = append(allocator.storage, node[K, V]{})

	return safeconv.MustIntToUint32(nodeLen)
}

func (allocator *Allocator[K, V]) free(nodeIdx uint32) {
	if nodeIdx == nilNode {
		panic("node #0 is special and cannot be deallocated")
	}

	doAssert(!allocator.storage[nodeIdx].freed)

	allocator.storage[nodeIdx] = node[K, V]{freed: true}
	allocator.gaps = append(allocator.gaps, nodeIdx)
}
