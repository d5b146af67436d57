package btree

import "sort"

// node is a single B-tree node. Objects live in one contiguous buffer of
// ObjectSize-wide slots; children is nil for leaves. Storage is allocated at
// full capacity up front and unused slots stay zeroed, so an absent child is
// always an unambiguous nil.
type node struct {
	objects     []byte
	children    []*node
	numObjects  int
	numChildren int
	leaf        bool
}

func (t *Tree) newNode(leaf bool) *node {
	n := &node{
		objects: make([]byte, t.opts.ObjectSize*t.maxObjects()),
		leaf:    leaf,
	}
	if !leaf {
		n.children = make([]*node, t.maxObjects()+1)
	}
	return n
}

// object returns the storage slot holding object i of n.
func (t *Tree) object(n *node, i int) []byte {
	size := t.opts.ObjectSize
	return n.objects[i*size : (i+1)*size]
}

func (t *Tree) setObject(n *node, i int, obj []byte) {
	copy(t.object(n, i), obj)
}

// lowerBound returns the smallest index i in [0, numObjects] with
// key <= key(objects[i]), i.e. the position both search and delete descend
// through.
func (t *Tree) lowerBound(n *node, key []byte) int {
	return sort.Search(n.numObjects, func(i int) bool {
		return t.opts.CompareKey(key, t.keyOf(t.object(n, i))) <= 0
	})
}

// descentIndex returns the smallest index i with obj strictly less than
// objects[i]. Objects comparing equal descend to the right of their equals
// in n. insertNonFull sends an object equal to a median it has just lifted
// into n to the left of that median, so the insertion order of duplicates
// is not kept across splits.
func (t *Tree) descentIndex(n *node, obj []byte) int {
	return sort.Search(n.numObjects, func(i int) bool {
		return t.opts.CompareObjects(obj, t.object(n, i)) < 0
	})
}

// insertObjectAt shifts objects [pos, numObjects) one slot right and writes
// obj at pos. obj must not alias n's buffer.
func (t *Tree) insertObjectAt(n *node, pos int, obj []byte) {
	size := t.opts.ObjectSize
	if pos < n.numObjects {
		copy(n.objects[(pos+1)*size:(n.numObjects+1)*size], n.objects[pos*size:n.numObjects*size])
	}
	copy(n.objects[pos*size:(pos+1)*size], obj)
	n.numObjects++
}

// removeObjectAt shifts objects (pos, numObjects) one slot left and clears
// the vacated slot. Firing the release callback is the caller's business.
func (t *Tree) removeObjectAt(n *node, pos int) {
	size := t.opts.ObjectSize
	copy(n.objects[pos*size:], n.objects[(pos+1)*size:n.numObjects*size])
	clear(n.objects[(n.numObjects-1)*size : n.numObjects*size])
	n.numObjects--
}

func (n *node) insertChildAt(pos int, child *node) {
	if pos < n.numChildren {
		copy(n.children[pos+1:n.numChildren+1], n.children[pos:n.numChildren])
	}
	n.children[pos] = child
	n.numChildren++
}

func (n *node) removeChildAt(pos int) *node {
	child := n.children[pos]
	copy(n.children[pos:], n.children[pos+1:n.numChildren])
	n.children[n.numChildren-1] = nil
	n.numChildren--
	return child
}

// splitChild splits the full child at index i of x into two nodes holding
// t-1 objects each and lifts the median object into x. x itself must not be
// full, which the pre-emptive descent policy guarantees.
func (t *Tree) splitChild(x *node, i int) {
	d := t.opts.Degree
	size := t.opts.ObjectSize
	y := x.children[i]
	z := t.newNode(y.leaf)

	// Upper half of y moves into z.
	copy(z.objects, y.objects[d*size:(2*d-1)*size])
	z.numObjects = d - 1
	if !y.leaf {
		copy(z.children, y.children[d:2*d])
		for j := d; j < 2*d; j++ {
			y.children[j] = nil
		}
		z.numChildren = d
		y.numChildren = d
	}

	// The median separates the halves from its new slot in x.
	t.insertObjectAt(x, i, t.object(y, d-1))
	x.insertChildAt(i+1, z)
	clear(y.objects[(d-1)*size:])
	y.numObjects = d - 1
}
