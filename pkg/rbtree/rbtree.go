package rbtree

import (
	"cmp"
	"fmt"
)

// Tree is an ordered map from K to V balanced as a red-black tree.
//
// Keys are unique; inserting an existing key replaces its value in place.
// The tree owns its keys and values. All operations are O(log n).
type Tree[K, V any] struct {
	// Nodes allocator.
	allocator *Allocator[K, V]

	compare func(a, b K) int

	// Root of the tree.
	root uint32

	// The minimum and maximum nodes under the tree.
	minNode, maxNode uint32

	// Number of nodes under root, including the root.
	count int

	stats Stats
}

// Stats are cumulative counters of the work done by a tree.
type Stats struct {
	Inserts      uint64
	Overwrites   uint64
	Removals     uint64
	Rotations    uint64
	InsertFixups uint64
	DeleteFixups uint64
}

// New creates an empty tree ordered by the natural order of K.
func New[K cmp.Ordered, V any]() *Tree[K, V] {
	return NewFunc[K, V](cmp.Compare[K])
}

// NewFunc creates an empty tree ordered by compare, which must return a
// negative number, zero or a positive number as a is less than, equal to or
// greater than b.
func NewFunc[K, V any](compare func(a, b K) int) *Tree[K, V] {
	return NewWithAllocator(NewAllocator[K, V](), compare)
}

// NewWithAllocator creates an empty tree whose nodes live in allocator.
func NewWithAllocator[K, V any](allocator *Allocator[K, V], compare func(a, b K) int) *Tree[K, V] {
	return &Tree[K, V]{allocator: allocator, compare: compare}
}

func (tree *Tree[K, V]) storage() []node[K, V] {
	return tree.allocator.storage
}

// Allocator returns the bound nodes allocator.
func (tree *Tree[K, V]) Allocator() *Allocator[K, V] {
	return tree.allocator
}

// Len returns the number of elements in the tree.
func (tree *Tree[K, V]) Len() int {
	return tree.count
}

// Stats returns the cumulative operation counters.
func (tree *Tree[K, V]) Stats() Stats {
	return tree.stats
}

// Root returns an iterator at the root node, or Limit() if the tree is empty.
func (tree *Tree[K, V]) Root() Iterator[K, V] {
	return Iterator[K, V]{tree, tree.root}
}

// Get returns the value stored under key.
func (tree *Tree[K, V]) Get(key K) (V, bool) {
	nodeIdx := tree.find(key)
	if nodeIdx == nilNode {
		var zero V

		return zero, false
	}

	return tree.storage()[nodeIdx].value, true
}

// Contains reports whether key is in the tree.
func (tree *Tree[K, V]) Contains(key K) bool {
	return tree.find(key) != nilNode
}

// Find returns an iterator at the node holding key, or Limit() if there is
// no such node.
func (tree *Tree[K, V]) Find(key K) Iterator[K, V] {
	return Iterator[K, V]{tree, tree.find(key)}
}

// FindMinimum returns the leftmost node of the subtree rooted at sub.
// Returns Limit() when sub does not point to a node.
func (tree *Tree[K, V]) FindMinimum(sub Iterator[K, V]) Iterator[K, V] {
	if sub.Limit() || sub.NegativeLimit() {
		return tree.Limit()
	}

	return Iterator[K, V]{tree, minimum(sub.node, tree.storage())}
}

// FindMaximum returns the rightmost node of the subtree rooted at sub.
// Returns NegativeLimit() when sub does not point to a node.
func (tree *Tree[K, V]) FindMaximum(sub Iterator[K, V]) Iterator[K, V] {
	if sub.Limit() || sub.NegativeLimit() {
		return tree.NegativeLimit()
	}

	return Iterator[K, V]{tree, maximum(sub.node, tree.storage())}
}

// Min creates an iterator that points to the minimum item in the tree.
// If the tree is empty, returns Limit().
func (tree *Tree[K, V]) Min() Iterator[K, V] {
	return Iterator[K, V]{tree, tree.minNode}
}

// Max creates an iterator that points at the maximum item in the tree.
//
// If the tree is empty, returns NegativeLimit().
func (tree *Tree[K, V]) Max() Iterator[K, V] {
	if tree.maxNode == nilNode {
		return Iterator[K, V]{tree, negativeLimitNode}
	}

	return Iterator[K, V]{tree, tree.maxNode}
}

// Limit creates an iterator that points beyond the maximum item in the tree.
func (tree *Tree[K, V]) Limit() Iterator[K, V] {
	return Iterator[K, V]{tree, nilNode}
}

// NegativeLimit creates an iterator that points before the minimum item in the tree.
func (tree *Tree[K, V]) NegativeLimit() Iterator[K, V] {
	return Iterator[K, V]{tree, negativeLimitNode}
}

// FindGE finds the smallest element N such that N >= key, and returns the
// iterator pointing to the element. If no such element is found,
// returns tree.Limit().
func (tree *Tree[K, V]) FindGE(key K) Iterator[K, V] {
	nodeIdx, _ := tree.findGE(key)

	return Iterator[K, V]{tree, nodeIdx}
}

// FindLE finds the largest element N such that N <= key, and returns the
// iterator pointing to the element. If no such element is found,
// returns tree.NegativeLimit().
func (tree *Tree[K, V]) FindLE(key K) Iterator[K, V] {
	nodeIdx, exact := tree.findGE(key)
	if exact {
		return Iterator[K, V]{tree, nodeIdx}
	}

	if nodeIdx != nilNode {
		return Iterator[K, V]{tree, doPrev(nodeIdx, tree.storage())}
	}

	return tree.Max()
}

// Insert stores value under key. An existing value is overwritten and the
// shape of the tree is left untouched.
//
// The only failure is a corrupted tree (no root while Len() > 0), reported
// as ErrInvariant.
func (tree *Tree[K, V]) Insert(key K, value V) error {
	if tree.root == nilNode && tree.count > 0 {
		return fmt.Errorf("%w: no root with %d nodes", ErrInvariant, tree.count)
	}

	nodeIdx, created := tree.doInsert(key, value)
	if !created {
		tree.stats.Overwrites++

		return nil
	}

	tree.stats.Inserts++
	tree.insertFixup(nodeIdx)

	return nil
}

// Remove deletes key from the tree. Returns ErrNotFound if key is absent.
func (tree *Tree[K, V]) Remove(key K) error {
	nodeIdx := tree.find(key)
	if nodeIdx == nilNode {
		return fmt.Errorf("%w: %v", ErrNotFound, key)
	}

	tree.doDelete(nodeIdx)

	return nil
}

// DeleteWithIterator deletes the current item. The iterator is invalid
// afterwards.
//
// REQUIRES: !iter.Limit() && !iter.NegativeLimit().
func (tree *Tree[K, V]) DeleteWithIterator(iter Iterator[K, V]) {
	doAssert(!iter.Limit() && !iter.NegativeLimit())
	tree.doDelete(iter.node)
}

// Erase removes all the nodes from the tree.
func (tree *Tree[K, V]) Erase() {
	nodes := make([]uint32, 0, tree.count)

	for iter := tree.Min(); !iter.Limit(); iter = iter.Next() {
		nodes = append(nodes, iter.node)
	}

	for _, nd := range nodes {
		tree.allocator.free(nd)
	}

	tree.root = nilNode
	tree.minNode = nilNode
	tree.maxNode = nilNode
	tree.count = 0
}

// Clone performs a deep copy of the tree into a fresh allocator.
// The copy has the same shape and colors; its stats start from zero.
func (tree *Tree[K, V]) Clone() *Tree[K, V] {
	allocator := NewAllocator[K, V]()
	clone := NewWithAllocator(allocator, tree.compare)
	clone.count = tree.count

	nodeMap := map[uint32]uint32{nilNode: nilNode}
	origin := tree.storage()

	for iter := tree.Min(); !iter.Limit(); iter = iter.Next() {
		nodeMap[iter.node] = allocator.malloc()
	}

	cloneStorage := allocator.storage

	for iter := tree.Min(); !iter.Limit(); iter = iter.Next() {
		src := origin[iter.node]
		dst := &cloneStorage[nodeMap[iter.node]]
		dst.key = src.key
		dst.value = src.value
		dst.color = src.color
		dst.left = nodeMap[src.left]
		dst.right = nodeMap[src.right]
		dst.parent = nodeMap[src.parent]
	}

	clone.root = nodeMap[tree.root]
	clone.minNode = nodeMap[tree.minNode]
	clone.maxNode = nodeMap[tree.maxNode]

	return clone
}

// Private methods.

func getColor[K, V any](nodeIdx uint32, alloc []node[K, V]) Color {
	if nodeIdx == nilNode {
		return Black
	}

	return alloc[nodeIdx].color
}

func isLeftChild[K, V any](nodeIdx uint32, alloc []node[K, V]) bool {
	return nodeIdx == alloc[alloc[nodeIdx].parent].left
}

func isRightChild[K, V any](nodeIdx uint32, alloc []node[K, V]) bool {
	return nodeIdx == alloc[alloc[nodeIdx].parent].right
}

func minimum[K, V any](nodeIdx uint32, alloc []node[K, V]) uint32 {
	for alloc[nodeIdx].left != nilNode {
		nodeIdx = alloc[nodeIdx].left
	}

	return nodeIdx
}

func maximum[K, V any](nodeIdx uint32, alloc []node[K, V]) uint32 {
	for alloc[nodeIdx].right != nilNode {
		nodeIdx = alloc[nodeIdx].right
	}

	return nodeIdx
}

// Return the minimum node that's larger than N. Return nilNode if no such
// node is found.
func doNext[K, V any](nodeIdx uint32, alloc []node[K, V]) uint32 {
	if alloc[nodeIdx].right != nilNode {
		return minimum(alloc[nodeIdx].right, alloc)
	}

	for {
		parentIdx := alloc[nodeIdx].parent
		if parentIdx == nilNode {
			return nilNode
		}

		if isLeftChild(nodeIdx, alloc) {
			return parentIdx
		}

		nodeIdx = parentIdx
	}
}

// Return the maximum node that's smaller than N. Return negativeLimitNode
// if no such node is found.
func doPrev[K, V any](nodeIdx uint32, alloc []node[K, V]) uint32 {
	if alloc[nodeIdx].left != nilNode {
		return maximum(alloc[nodeIdx].left, alloc)
	}

	for {
		parentIdx := alloc[nodeIdx].parent
		if parentIdx == nilNode {
			return negativeLimitNode
		}

		if isRightChild(nodeIdx, alloc) {
			return parentIdx
		}

		nodeIdx = parentIdx
	}
}

func (tree *Tree[K, V]) recomputeMinNode() {
	tree.minNode = nilNode
	if tree.root != nilNode {
		tree.minNode = minimum(tree.root, tree.storage())
	}
}

func (tree *Tree[K, V]) recomputeMaxNode() {
	tree.maxNode = nilNode
	if tree.root != nilNode {
		tree.maxNode = maximum(tree.root, tree.storage())
	}
}

func (tree *Tree[K, V]) find(key K) uint32 {
	alloc := tree.storage()
	nodeIdx := tree.root

	for nodeIdx != nilNode {
		comp := tree.compare(key, alloc[nodeIdx].key)

		switch {
		case comp == 0:
			return nodeIdx
		case comp < 0:
			nodeIdx = alloc[nodeIdx].left
		default:
			nodeIdx = alloc[nodeIdx].right
		}
	}

	return nilNode
}

// Find a node whose key >= key. The 2nd return value is true iff the
// node's key equals key. Returns (nilNode, false) if all nodes in the tree
// are < key.
func (tree *Tree[K, V]) findGE(key K) (uint32, bool) {
	alloc := tree.storage()
	nodeIdx := tree.root

	for {
		if nodeIdx == nilNode {
			return nilNode, false
		}

		comp := tree.compare(key, alloc[nodeIdx].key)

		switch {
		case comp == 0:
			return nodeIdx, true
		case comp < 0:
			if alloc[nodeIdx].left == nilNode {
				return nodeIdx, false
			}

			nodeIdx = alloc[nodeIdx].left
		default:
			if alloc[nodeIdx].right == nilNode {
				return doNext(nodeIdx, alloc), false
			}

			nodeIdx = alloc[nodeIdx].right
		}
	}
}

// doInsert either overwrites the value of an existing node and returns
// (node, false) or links a new red leaf and returns (node, true).
func (tree *Tree[K, V]) doInsert(key K, value V) (uint32, bool) {
	if tree.root == nilNode {
		nodeIdx := tree.allocator.malloc()
		newNode := &tree.storage()[nodeIdx]
		newNode.key = key
		newNode.value = value
		newNode.color = Black
		tree.root = nodeIdx
		tree.minNode = nodeIdx
		tree.maxNode = nodeIdx
		tree.count++

		return nodeIdx, true
	}

	parent := tree.root
	alloc := tree.storage()

	var comp int

	for {
		comp = tree.compare(key, alloc[parent].key)
		if comp == 0 {
			alloc[parent].value = value

			return parent, false
		}

		next := alloc[parent].right
		if comp < 0 {
			next = alloc[parent].left
		}

		if next == nilNode {
			break
		}

		parent = next
	}

	nodeIdx := tree.allocator.malloc()
	alloc = tree.storage()
	newNode := &alloc[nodeIdx]
	newNode.key = key
	newNode.value = value
	newNode.parent = parent
	newNode.color = Red

	if comp < 0 {
		alloc[parent].left = nodeIdx
		if parent == tree.minNode {
			tree.minNode = nodeIdx
		}
	} else {
		alloc[parent].right = nodeIdx
		if parent == tree.maxNode {
			tree.maxNode = nodeIdx
		}
	}

	tree.count++

	return nodeIdx, true
}
