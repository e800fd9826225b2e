package rbtree

import "errors"

var (
	// ErrNotFound is returned when removing a key that is not in the tree.
	ErrNotFound = errors.New("key not found")

	// ErrInvariant reports a structural inconsistency in the tree.
	ErrInvariant = errors.New("red-black invariant violated")
)

func doAssert(condition bool) {
	if !condition {
		panic("rbtree internal assertion failed")
	}
}
