package rbtree

// Iterator points at a node of a tree, or at one of the two limits around
// it. It can walk in key order (Next, Prev) or along the tree links (Left,
// Right, Parent).
//
// Inserting keeps iterators valid. Removing a key invalidates every iterator
// on the tree: a node with two children takes over its successor's slot.
type Iterator[K, V any] struct {
	tree *Tree[K, V]
	node uint32
}

// Equal checks for the underlying nodes equality.
func (iter Iterator[K, V]) Equal(other Iterator[K, V]) bool {
	return iter.node == other.node
}

// Limit checks if the iterator points beyond the max element in the tree.
// Find and the link walkers also return it for a missing node.
func (iter Iterator[K, V]) Limit() bool {
	return iter.node == nilNode
}

// NegativeLimit checks if the iterator points before the minimum element in the tree.
func (iter Iterator[K, V]) NegativeLimit() bool {
	return iter.node == negativeLimitNode
}

// Valid reports whether the iterator points at a node.
func (iter Iterator[K, V]) Valid() bool {
	return !iter.Limit() && !iter.NegativeLimit()
}

// Min checks if the iterator points to the minimum element in the tree.
// Limits are never the minimum, even in an empty tree.
func (iter Iterator[K, V]) Min() bool {
	return iter.Valid() && iter.node == iter.tree.minNode
}

// Max checks if the iterator points to the maximum element in the tree.
func (iter Iterator[K, V]) Max() bool {
	return iter.Valid() && iter.node == iter.tree.maxNode
}

// Key returns the key of the current node, or the zero K at a limit.
func (iter Iterator[K, V]) Key() K {
	if !iter.Valid() {
		var zero K

		return zero
	}

	return iter.tree.storage()[iter.node].key
}

// Value returns the value of the current node, or the zero V at a limit.
func (iter Iterator[K, V]) Value() V {
	if !iter.Valid() {
		var zero V

		return zero
	}

	return iter.tree.storage()[iter.node].value
}

// SetValue replaces the value of the current node.
//
// REQUIRES: iter.Valid().
func (iter Iterator[K, V]) SetValue(value V) {
	doAssert(iter.Valid())
	iter.tree.storage()[iter.node].value = value
}

// Color returns the color of the current node. Limits are black, like the
// virtual leaves they stand for.
func (iter Iterator[K, V]) Color() Color {
	if !iter.Valid() {
		return Black
	}

	return iter.tree.storage()[iter.node].color
}

// Left returns the left child, or Limit() if there is none.
func (iter Iterator[K, V]) Left() Iterator[K, V] {
	if !iter.Valid() {
		return iter.tree.Limit()
	}

	return Iterator[K, V]{iter.tree, iter.tree.storage()[iter.node].left}
}

// Right returns the right child, or Limit() if there is none.
func (iter Iterator[K, V]) Right() Iterator[K, V] {
	if !iter.Valid() {
		return iter.tree.Limit()
	}

	return Iterator[K, V]{iter.tree, iter.tree.storage()[iter.node].right}
}

// Parent returns the parent node, or Limit() at the root.
func (iter Iterator[K, V]) Parent() Iterator[K, V] {
	if !iter.Valid() {
		return iter.tree.Limit()
	}

	return Iterator[K, V]{iter.tree, iter.tree.storage()[iter.node].parent}
}

// Next creates a new iterator that points to the successor of the current element.
//
// REQUIRES: !iter.Limit().
func (iter Iterator[K, V]) Next() Iterator[K, V] {
	doAssert(!iter.Limit())

	if iter.NegativeLimit() {
		return Iterator[K, V]{iter.tree, iter.tree.minNode}
	}

	return Iterator[K, V]{iter.tree, doNext(iter.node, iter.tree.storage())}
}

// Prev creates a new iterator that points to the predecessor of the current
// node.
//
// REQUIRES: !iter.NegativeLimit().
func (iter Iterator[K, V]) Prev() Iterator[K, V] {
	doAssert(!iter.NegativeLimit())

	if !iter.Limit() {
		return Iterator[K, V]{iter.tree, doPrev(iter.node, iter.tree.storage())}
	}

	return iter.tree.Max()
}
