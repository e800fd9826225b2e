package rbtree

import "fmt"

// Validate walks the whole tree and checks the red-black and search tree
// invariants together with the cached length and extremes. The first
// violation found is returned wrapped in ErrInvariant.
func (tree *Tree[K, V]) Validate() error {
	if tree.root == nilNode {
		if tree.count != 0 {
			return fmt.Errorf("%w: no root with %d nodes", ErrInvariant, tree.count)
		}

		if tree.minNode != nilNode || tree.maxNode != nilNode {
			return fmt.Errorf("%w: empty tree caches min #%d max #%d", ErrInvariant, tree.minNode, tree.maxNode)
		}

		return nil
	}

	alloc := tree.storage()

	if alloc[tree.root].parent != nilNode {
		return fmt.Errorf("%w: root #%d has parent #%d", ErrInvariant, tree.root, alloc[tree.root].parent)
	}

	if alloc[tree.root].color != Black {
		return fmt.Errorf("%w: root %v is red", ErrInvariant, alloc[tree.root].key)
	}

	walker := checker[K, V]{tree: tree, alloc: alloc}

	_, err := walker.walk(tree.root)
	if err != nil {
		return err
	}

	if walker.seen != tree.count {
		return fmt.Errorf("%w: reached %d nodes, length is %d", ErrInvariant, walker.seen, tree.count)
	}

	if tree.minNode != minimum(tree.root, alloc) || tree.maxNode != maximum(tree.root, alloc) {
		return fmt.Errorf("%w: stale min/max cache", ErrInvariant)
	}

	return nil
}

// Height returns the number of nodes on the longest root-to-leaf path.
func (tree *Tree[K, V]) Height() int {
	return height(tree.root, tree.storage())
}

// BlackHeight returns the number of black nodes on any path from the root
// down to a virtual leaf, not counting the leaf. It is only meaningful for
// a tree that passes Validate.
func (tree *Tree[K, V]) BlackHeight() int {
	alloc := tree.storage()
	blackHeight := 0

	for nodeIdx := tree.root; nodeIdx != nilNode; nodeIdx = alloc[nodeIdx].left {
		if alloc[nodeIdx].color == Black {
			blackHeight++
		}
	}

	return blackHeight
}

func height[K, V any](nodeIdx uint32, alloc []node[K, V]) int {
	if nodeIdx == nilNode {
		return 0
	}

	return 1 + max(height(alloc[nodeIdx].left, alloc), height(alloc[nodeIdx].right, alloc))
}

type checker[K, V any] struct {
	tree    *Tree[K, V]
	alloc   []node[K, V]
	prev    uint32
	seen    int
	started bool
}

// walk visits the subtree in order and returns its black height.
func (c *checker[K, V]) walk(nodeIdx uint32) (int, error) {
	if nodeIdx == nilNode {
		return 1, nil
	}

	current := c.alloc[nodeIdx]

	if current.freed {
		return 0, fmt.Errorf("%w: released node #%d is still linked", ErrInvariant, nodeIdx)
	}

	c.seen++
	if c.seen > c.tree.count {
		return 0, fmt.Errorf("%w: more nodes reachable than length %d", ErrInvariant, c.tree.count)
	}

	for _, child := range [2]uint32{current.left, current.right} {
		if child == nilNode {
			continue
		}

		if c.alloc[child].parent != nodeIdx {
			return 0, fmt.Errorf("%w: child %v of %v points back to #%d",
				ErrInvariant, c.alloc[child].key, current.key, c.alloc[child].parent)
		}

		if current.color == Red && c.alloc[child].color == Red {
			return 0, fmt.Errorf("%w: red node %v has red child %v", ErrInvariant, current.key, c.alloc[child].key)
		}
	}

	leftHeight, err := c.walk(current.left)
	if err != nil {
		return 0, err
	}

	if c.started && c.tree.compare(c.alloc[c.prev].key, current.key) >= 0 {
		return 0, fmt.Errorf("%w: key %v follows %v", ErrInvariant, current.key, c.alloc[c.prev].key)
	}

	c.prev = nodeIdx
	c.started = true

	rightHeight, err := c.walk(current.right)
	if err != nil {
		return 0, err
	}

	if leftHeight != rightHeight {
		return 0, fmt.Errorf("%w: black heights %d and %d under %v",
			ErrInvariant, leftHeight, rightHeight, current.key)
	}

	if current.color == Black {
		leftHeight++
	}

	return leftHeight, nil
}
