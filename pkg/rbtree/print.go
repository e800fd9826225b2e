package rbtree

import (
	"fmt"
	"io"
	"strings"
)

// Dump writes one line per node in key order: key, value and color,
// separated by tabs.
func (tree *Tree[K, V]) Dump(w io.Writer) error {
	alloc := tree.storage()

	for iter := tree.Min(); !iter.Limit(); iter = iter.Next() {
		nd := &alloc[iter.node]

		_, err := fmt.Fprintf(w, "%v\t%v\t%s\n", nd.key, nd.value, nd.color)
		if err != nil {
			return fmt.Errorf("dump node %v: %w", nd.key, err)
		}
	}

	return nil
}

// String returns the Dump output.
func (tree *Tree[K, V]) String() string {
	var sb strings.Builder

	_ = tree.Dump(&sb) // strings.Builder never fails.

	return sb.String()
}

type branch int

const (
	branchRoot branch = iota
	branchLeft
	branchRight
)

// Sketch draws the tree on its side, right subtree on top, one node per
// line. The layout is meant for humans and may change.
func (tree *Tree[K, V]) Sketch(w io.Writer) error {
	if tree.root == nilNode {
		_, err := io.WriteString(w, "(empty)\n")

		return err //nolint:wrapcheck // nothing to add.
	}

	return tree.sketch(w, tree.root, "", branchRoot)
}

func (tree *Tree[K, V]) sketch(w io.Writer, nodeIdx uint32, prefix string, br branch) error {
	nd := tree.storage()[nodeIdx]

	if nd.right != nilNode {
		pad := "       "
		if br == branchLeft {
			pad = "|      "
		}

		err := tree.sketch(w, nd.right, prefix+pad, branchRight)
		if err != nil {
			return err
		}
	}

	var edge string

	switch br {
	case branchRoot:
		edge = "|------+ "
	case branchLeft:
		edge = "\\------+ "
	case branchRight:
		edge = "/------+ "
	}

	mark := "B"
	if nd.color == Red {
		mark = "R"
	}

	_, err := fmt.Fprintf(w, "%s%s%v:%v (%s)\n", prefix, edge, nd.key, nd.value, mark)
	if err != nil {
		return fmt.Errorf("sketch node %v: %w", nd.key, err)
	}

	if nd.left != nilNode {
		pad := "       "
		if br == branchRight {
			pad = "|      "
		}

		return tree.sketch(w, nd.left, prefix+pad, branchLeft)
	}

	return nil
}
