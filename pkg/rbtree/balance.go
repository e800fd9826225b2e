package rbtree

// slot is a position in the tree: either a real node or the black virtual
// leaf hanging off parent on the given side. Delete fixup starts from the
// slot the removed node vacated, which is often a virtual leaf.
type slot struct {
	node   uint32
	parent uint32
	left   bool
}

func (s slot) virtual() bool {
	return s.node == nilNode
}

func (tree *Tree[K, V]) slotOf(nodeIdx uint32) slot {
	alloc := tree.storage()
	parent := alloc[nodeIdx].parent

	return slot{
		node:   nodeIdx,
		parent: parent,
		left:   parent != nilNode && alloc[parent].left == nodeIdx,
	}
}

// insertFixup restores the colors after nodeIdx was linked as a red leaf.
// A missing uncle is a virtual leaf and is handled as a black one.
func (tree *Tree[K, V]) insertFixup(nodeIdx uint32) {
	alloc := tree.storage()

	for {
		parent := alloc[nodeIdx].parent
		if parent == nilNode || alloc[parent].color == Black {
			break
		}

		grandparent := alloc[parent].parent
		if grandparent == nilNode {
			break
		}

		tree.stats.InsertFixups++

		parentIsLeft := parent == alloc[grandparent].left

		uncle := alloc[grandparent].left
		if parentIsLeft {
			uncle = alloc[grandparent].right
		}

		// Red uncle: push the blackness down from the grandparent and
		// continue two levels up.
		if getColor(uncle, alloc) == Red {
			alloc[parent].color = Black
			alloc[uncle].color = Black
			alloc[grandparent].color = Red
			nodeIdx = grandparent

			continue
		}

		// Black uncle, inner child: turn it into the outer case.
		if parentIsLeft && nodeIdx == alloc[parent].right {
			tree.rotateLeft(parent)
			nodeIdx, parent = parent, nodeIdx
		} else if !parentIsLeft && nodeIdx == alloc[parent].left {
			tree.rotateRight(parent)
			nodeIdx, parent = parent, nodeIdx
		}

		// Black uncle, outer child.
		alloc[parent].color = Black
		alloc[grandparent].color = Red

		if parentIsLeft {
			tree.rotateRight(grandparent)
		} else {
			tree.rotateLeft(grandparent)
		}

		break
	}

	alloc[tree.root].color = Black
}

// doDelete unlinks nodeIdx, releases it and rebalances.
func (tree *Tree[K, V]) doDelete(nodeIdx uint32) {
	alloc := tree.storage()
	target := alloc[nodeIdx]
	removedColor := target.color

	var anchor slot

	switch {
	case target.left == nilNode:
		anchor = tree.slotOf(nodeIdx)
		anchor.node = target.right
		tree.transplant(nodeIdx, target.right)
	case target.right == nilNode:
		anchor = tree.slotOf(nodeIdx)
		anchor.node = target.left
		tree.transplant(nodeIdx, target.left)
	default:
		successor := minimum(target.right, alloc)
		removedColor = alloc[successor].color

		if alloc[successor].parent == nodeIdx {
			anchor = slot{node: alloc[successor].right, parent: successor, left: false}
		} else {
			anchor = slot{node: alloc[successor].right, parent: alloc[successor].parent, left: true}
			tree.transplant(successor, alloc[successor].right)
			alloc[successor].right = target.right
			alloc[target.right].parent = successor
		}

		tree.transplant(nodeIdx, successor)
		alloc[successor].left = target.left
		alloc[target.left].parent = successor
		alloc[successor].color = target.color
	}

	if removedColor == Black {
		tree.deleteFixup(anchor)
	}

	tree.allocator.free(nodeIdx)
	tree.count--
	tree.stats.Removals++

	if nodeIdx == tree.minNode {
		tree.recomputeMinNode()
	}

	if nodeIdx == tree.maxNode {
		tree.recomputeMaxNode()
	}
}

// deleteFixup removes the extra black carried by anchor after a black node
// was unlinked from above it.
//
//nolint:gocognit,cyclop // the four cases and their mirrors are one state machine.
func (tree *Tree[K, V]) deleteFixup(anchor slot) {
	alloc := tree.storage()

	for anchor.parent != nilNode && getColor(anchor.node, alloc) == Black {
		tree.stats.DeleteFixups++

		parent := anchor.parent

		if anchor.left {
			sib := alloc[parent].right
			doAssert(sib != nilNode)

			// Case 1: red sibling.
			if alloc[sib].color == Red {
				alloc[sib].color = Black
				alloc[parent].color = Red
				tree.rotateLeft(parent)
				sib = alloc[parent].right
				doAssert(sib != nilNode)
			}

			// Case 2: black sibling with black children.
			if getColor(alloc[sib].left, alloc) == Black && getColor(alloc[sib].right, alloc) == Black {
				alloc[sib].color = Red
				anchor = tree.slotOf(parent)

				continue
			}

			// Case 3: only the near nephew is red.
			if getColor(alloc[sib].right, alloc) == Black {
				alloc[alloc[sib].left].color = Black
				alloc[sib].color = Red
				tree.rotateRight(sib)
				sib = alloc[parent].right
			}

			// Case 4: the far nephew is red.
			alloc[sib].color = alloc[parent].color
			alloc[parent].color = Black
			alloc[alloc[sib].right].color = Black
			tree.rotateLeft(parent)
			anchor = tree.slotOf(tree.root)

			break
		}

		sib := alloc[parent].left
		doAssert(sib != nilNode)

		if alloc[sib].color == Red {
			alloc[sib].color = Black
			alloc[parent].color = Red
			tree.rotateRight(parent)
			sib = alloc[parent].left
			doAssert(sib != nilNode)
		}

		if getColor(alloc[sib].left, alloc) == Black && getColor(alloc[sib].right, alloc) == Black {
			alloc[sib].color = Red
			anchor = tree.slotOf(parent)

			continue
		}

		if getColor(alloc[sib].left, alloc) == Black {
			alloc[alloc[sib].right].color = Black
			alloc[sib].color = Red
			tree.rotateLeft(sib)
			sib = alloc[parent].left
		}

		alloc[sib].color = alloc[parent].color
		alloc[parent].color = Black
		alloc[alloc[sib].left].color = Black
		tree.rotateRight(parent)
		anchor = tree.slotOf(tree.root)

		break
	}

	if !anchor.virtual() {
		alloc[anchor.node].color = Black
	}
}

// transplant puts newn into the position of oldn under oldn's parent.
// newn may be nilNode.
func (tree *Tree[K, V]) transplant(oldn, newn uint32) {
	alloc := tree.storage()
	parent := alloc[oldn].parent

	switch {
	case parent == nilNode:
		tree.root = newn
	case oldn == alloc[parent].left:
		alloc[parent].left = newn
	default:
		alloc[parent].right = newn
	}

	if newn != nilNode {
		alloc[newn].parent = parent
	}
}

// rotateDirection performs a tree rotation in the specified direction.
// isLeft=true performs left rotation, isLeft=false performs right rotation.
// Colors are left as they are. Rotating towards a missing child is a no-op.
//
// Left rotation:
//
//	  X              Y
//	A   Y    =>    X   C
//	  B C        A B
//
// Right rotation:
//
//	    Y            X
//	  X   C  =>    A   Y
//	A B              B C
//
//nolint:dupword // ASCII art diagrams contain intentional repeated letters.
func (tree *Tree[K, V]) rotateDirection(pivot uint32, isLeft bool) {
	alloc := tree.storage()

	child := alloc[pivot].left
	if isLeft {
		child = alloc[pivot].right
	}

	if child == nilNode {
		return
	}

	tree.stats.Rotations++

	// Move the inner subtree.
	var innerSubtree uint32
	if isLeft {
		innerSubtree = alloc[child].left
		alloc[pivot].right = innerSubtree
	} else {
		innerSubtree = alloc[child].right
		alloc[pivot].left = innerSubtree
	}

	if innerSubtree != nilNode {
		alloc[innerSubtree].parent = pivot
	}

	tree.transplant(pivot, child)

	if isLeft {
		alloc[child].left = pivot
	} else {
		alloc[child].right = pivot
	}

	alloc[pivot].parent = child
}

func (tree *Tree[K, V]) rotateLeft(nodeIdx uint32) {
	tree.rotateDirection(nodeIdx, true)
}

func (tree *Tree[K, V]) rotateRight(nodeIdx uint32) {
	tree.rotateDirection(nodeIdx, false)
}
