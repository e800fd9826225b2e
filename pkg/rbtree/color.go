package rbtree

// Color is the color of a tree node.
type Color bool

const (
	// Red nodes never have red children.
	Red Color = false
	// Black nodes count towards the black height.
	Black Color = true
)

func (c Color) String() string {
	if c == Black {
		return "Black"
	}

	return "Red"
}
