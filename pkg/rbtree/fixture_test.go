package rbtree_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/ordmap/pkg/rbtree"
)

var fixtureKeys = []int{10, 3, 1, 5, 20, 25, 30, 40, 8, 9, 50, 60}

// node describes an expected node by the path of links leading to it.
type node struct {
	path  string
	key   int
	color rbtree.Color
}

func follow(tb testing.TB, tree *rbtree.Tree[int, int], path string) rbtree.Iterator[int, int] {
	tb.Helper()

	iter := tree.Root()

	for _, step := range path {
		switch step {
		case 'L':
			iter = iter.Left()
		case 'R':
			iter = iter.Right()
		}

		require.True(tb, iter.Valid(), "no node at %q", path)
	}

	return iter
}

func assertShape(tb testing.TB, tree *rbtree.Tree[int, int], nodes []node) {
	tb.Helper()

	for _, want := range nodes {
		iter := follow(tb, tree, want.path)
		assert.Equal(tb, want.key, iter.Key(), "key at %q", want.path)
		assert.Equal(tb, want.color, iter.Color(), "color at %q", want.path)
	}
}

func fixtureTree(tb testing.TB) *rbtree.Tree[int, int] {
	tb.Helper()

	tree := rbtree.New[int, int]()

	for _, key := range fixtureKeys {
		require.NoError(tb, tree.Insert(key, key*10))
	}

	return tree
}

func TestFixtureInsert(t *testing.T) {
	t.Parallel()

	tree := fixtureTree(t)

	require.Equal(t, 12, tree.Len())
	require.NoError(t, tree.Validate())
	assertShape(t, tree, []node{
		{"", 10, rbtree.Black},
		{"L", 3, rbtree.Black},
		{"LL", 1, rbtree.Black},
		{"LR", 8, rbtree.Black},
		{"LRL", 5, rbtree.Red},
		{"LRR", 9, rbtree.Red},
		{"R", 25, rbtree.Black},
		{"RL", 20, rbtree.Black},
		{"RR", 40, rbtree.Red},
		{"RRL", 30, rbtree.Black},
		{"RRR", 50, rbtree.Black},
		{"RRRR", 60, rbtree.Red},
	})
	assert.Equal(t, 1, tree.FindMinimum(tree.Root()).Key())
	assert.Equal(t, 60, tree.FindMaximum(tree.Root()).Key())
}

func TestFixtureRemove(t *testing.T) {
	t.Parallel()

	tree := fixtureTree(t)

	require.NoError(t, tree.Remove(20))
	require.Equal(t, 11, tree.Len())
	require.NoError(t, tree.Validate())
	assert.True(t, tree.Find(20).Limit())
	assertShape(t, tree, []node{
		{"", 10, rbtree.Black},
		{"L", 3, rbtree.Black},
		{"LL", 1, rbtree.Black},
		{"LR", 8, rbtree.Black},
		{"LRL", 5, rbtree.Red},
		{"LRR", 9, rbtree.Red},
		{"R", 40, rbtree.Black},
		{"RL", 25, rbtree.Black},
		{"RLR", 30, rbtree.Red},
		{"RR", 50, rbtree.Black},
		{"RRR", 60, rbtree.Red},
	})
	assert.True(t, follow(t, tree, "RL").Left().Limit())

	require.NoError(t, tree.Remove(40))
	require.NoError(t, tree.Validate())
	assertShape(t, tree, []node{
		{"R", 50, rbtree.Black},
		{"RL", 25, rbtree.Black},
		{"RLR", 30, rbtree.Red},
		{"RR", 60, rbtree.Black},
	})

	err := tree.Remove(20)
	require.ErrorIs(t, err, rbtree.ErrNotFound)
	assert.Equal(t, 10, tree.Len())
}

func TestFixtureRemoveWithExtraKey(t *testing.T) {
	t.Parallel()

	tree := fixtureTree(t)
	require.NoError(t, tree.Insert(19, 190))
	require.Equal(t, 13, tree.Len())

	require.NoError(t, tree.Remove(20))
	require.Equal(t, 12, tree.Len())
	require.NoError(t, tree.Validate())
	assertShape(t, tree, []node{
		{"", 10, rbtree.Black},
		{"L", 3, rbtree.Black},
		{"LL", 1, rbtree.Black},
		{"LR", 8, rbtree.Black},
		{"LRL", 5, rbtree.Red},
		{"LRR", 9, rbtree.Red},
		{"R", 25, rbtree.Black},
		{"RL", 19, rbtree.Black},
		{"RR", 40, rbtree.Red},
		{"RRL", 30, rbtree.Black},
		{"RRR", 50, rbtree.Black},
		{"RRRR", 60, rbtree.Red},
	})
}

func TestFixtureRemoveEverything(t *testing.T) {
	t.Parallel()

	tree := fixtureTree(t)

	for idx, key := range fixtureKeys {
		require.NoError(t, tree.Remove(key))
		require.NoError(t, tree.Validate())
		assert.Equal(t, len(fixtureKeys)-idx-1, tree.Len())
	}

	assert.True(t, tree.Root().Limit())
}

func TestTraversalOrder(t *testing.T) {
	t.Parallel()

	tree := fixtureTree(t)

	var forward, backward []int

	for iter := tree.Min(); !iter.Limit(); iter = iter.Next() {
		forward = append(forward, iter.Key())
	}

	for iter := tree.Max(); !iter.NegativeLimit(); iter = iter.Prev() {
		backward = append(backward, iter.Key())
	}

	assert.Equal(t, []int{1, 3, 5, 8, 9, 10, 20, 25, 30, 40, 50, 60}, forward)
	assert.Equal(t, []int{60, 50, 40, 30, 25, 20, 10, 9, 8, 5, 3, 1}, backward)
	assert.Equal(t, 9, tree.FindLE(9).Key())
	assert.Equal(t, 10, tree.FindLE(19).Key())
	assert.Equal(t, 20, tree.FindGE(11).Key())
	assert.True(t, tree.FindGE(61).Limit())
}

func TestDump(t *testing.T) {
	t.Parallel()

	tree := rbtree.New[int, string]()
	require.NoError(t, tree.Insert(2, "two"))
	require.NoError(t, tree.Insert(1, "one"))
	require.NoError(t, tree.Insert(3, "three"))

	var buf bytes.Buffer

	require.NoError(t, tree.Dump(&buf))
	assert.Equal(t, "1\tone\tRed\n2\ttwo\tBlack\n3\tthree\tRed\n", buf.String())
	assert.Equal(t, buf.String(), tree.String())
	assert.Empty(t, rbtree.New[int, string]().String())
}

func TestSketch(t *testing.T) {
	t.Parallel()

	tree := rbtree.New[int, int]()
	require.NoError(t, tree.Insert(2, 2))
	require.NoError(t, tree.Insert(1, 1))
	require.NoError(t, tree.Insert(3, 3))

	var buf bytes.Buffer

	require.NoError(t, tree.Sketch(&buf))
	assert.Equal(t,
		"       /------+ 3:3 (R)\n"+
			"|------+ 2:2 (B)\n"+
			"       \\------+ 1:1 (R)\n",
		buf.String())

	buf.Reset()
	require.NoError(t, rbtree.New[int, int]().Sketch(&buf))
	assert.Equal(t, "(empty)\n", buf.String())
}

type failingWriter struct{}

var errWrite = errors.New("write failed")

func (failingWriter) Write([]byte) (int, error) {
	return 0, errWrite
}

func TestDumpPropagatesWriteErrors(t *testing.T) {
	t.Parallel()

	tree := fixtureTree(t)

	require.ErrorIs(t, tree.Dump(failingWriter{}), errWrite)
	require.ErrorIs(t, tree.Sketch(failingWriter{}), errWrite)
}

func TestCustomComparator(t *testing.T) {
	t.Parallel()

	// Reverse order.
	tree := rbtree.NewFunc[int, struct{}](func(a, b int) int { return b - a })

	for _, key := range fixtureKeys {
		require.NoError(t, tree.Insert(key, struct{}{}))
	}

	require.NoError(t, tree.Validate())
	assert.Equal(t, 60, tree.Min().Key())
	assert.Equal(t, 1, tree.Max().Key())
}

func TestColorString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Red", rbtree.Red.String())
	assert.Equal(t, "Black", rbtree.Black.String())
}
