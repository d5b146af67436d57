// Package btree implements an in-memory B-tree of fixed-size, opaque objects.
//
// The tree does not interpret the bytes it stores. Ordering, key extraction
// and teardown notification are supplied as callbacks, so any fixed-width
// record can live in the tree. Objects are copied by value into contiguous
// per-node buffers; nothing handed back to the caller points into the tree
// except where documented.
package btree

import (
	"errors"
	"fmt"
)

// ErrKeyNotFound is returned by Find when no stored object matches the key.
var ErrKeyNotFound = errors.New("key not found")

// Options configure a Tree at construction time and are immutable afterwards.
type Options struct {
	// Degree is the minimum degree t (t >= 2). Every node holds at most
	// 2t-1 objects and 2t children; every non-root node holds at least t-1
	// objects.
	Degree int

	// ObjectSize is the exact byte width of every stored object.
	ObjectSize int

	// CompareObjects defines the total order on objects, returning
	// negative/zero/positive. It decides where inserts land; the tree does
	// not reject whatever duplicates it admits.
	CompareObjects func(a, b []byte) int

	// CompareKey compares a search key against an object key (as produced
	// by ExtractKey), with the same sign convention as CompareObjects. The
	// two comparators must agree in sign for any objects that can coexist
	// in the tree.
	CompareKey func(key, objKey []byte) int

	// ExtractKey returns the key region of an object. The result may alias
	// the object.
	ExtractKey func(obj []byte) []byte

	// ReleaseObject, when non-nil, is invoked exactly once per stored
	// object immediately before that object leaves the tree: on Delete, on
	// replacement during an internal delete, and on Close.
	ReleaseObject func(obj []byte)
}

// Tree is an in-memory B-tree of fixed-size objects.
//
// A Tree is not safe for concurrent use; every operation assumes exclusive
// access for its duration. Callbacks and walk visitors run synchronously on
// the calling goroutine and must not operate on the tree that invoked them.
// Slices they receive alias node storage and are valid only until the next
// mutating call.
type Tree struct {
	opts   Options
	root   *node
	length int
}

// New builds an empty tree from opts.
func New(opts Options) (*Tree, error) {
	if opts.Degree < 2 {
		return nil, fmt.Errorf("btree: minimum degree is %d, need at least 2", opts.Degree)
	}
	if opts.ObjectSize < 1 {
		return nil, fmt.Errorf("btree: object size is %d, need at least 1", opts.ObjectSize)
	}
	if opts.CompareObjects == nil || opts.CompareKey == nil || opts.ExtractKey == nil {
		return nil, errors.New("btree: CompareObjects, CompareKey and ExtractKey are required")
	}
	return &Tree{opts: opts}, nil
}

// Degree returns the minimum degree the tree was built with.
func (t *Tree) Degree() int {
	return t.opts.Degree
}

// ObjectSize returns the byte width of every stored object.
func (t *Tree) ObjectSize() int {
	return t.opts.ObjectSize
}

// maxObjects is the object capacity of a node: 2t-1.
func (t *Tree) maxObjects() int {
	return 2*t.opts.Degree - 1
}

// minObjects is the occupancy floor of a non-root node: t-1.
func (t *Tree) minObjects() int {
	return t.opts.Degree - 1
}

func (t *Tree) keyOf(obj []byte) []byte {
	return t.opts.ExtractKey(obj)
}

func (t *Tree) release(obj []byte) {
	if t.opts.ReleaseObject != nil {
		t.opts.ReleaseObject(obj)
	}
}
