// Package rbtree implements an ordered map on top of a red-black tree.
//
// Nodes live in an arena ([Allocator]) and refer to each other by uint32
// index; index zero is reserved and stands for an absent child, which the
// balancing code treats as a black leaf. Several trees may share one
// allocator. Neither trees nor allocators are safe for concurrent use.
package rbtree
