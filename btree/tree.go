package btree

import "fmt"

// Len reports the number of objects currently stored.
func (t *Tree) Len() int {
	return t.length
}

// Height reports the number of node levels, 0 for an empty tree. All leaves
// sit at the same depth, so the leftmost path measures every path.
func (t *Tree) Height() int {
	h := 0
	for n := t.root; n != nil; {
		h++
		if n.leaf {
			break
		}
		n = n.children[0]
	}
	return h
}

// String summarizes the tree in one line.
func (t *Tree) String() string {
	return fmt.Sprintf("btree{degree: %d, objects: %d, height: %d}", t.opts.Degree, t.length, t.Height())
}

// Insert copies obj into the tree. obj must be exactly ObjectSize bytes.
// Duplicate handling is whatever CompareObjects admits; nothing is rejected
// here.
func (t *Tree) Insert(obj []byte) error {
	if len(obj) != t.opts.ObjectSize {
		return fmt.Errorf("btree: object is %d bytes, tree stores %d-byte objects", len(obj), t.opts.ObjectSize)
	}
	if t.root == nil {
		t.root = t.newNode(true)
		t.setObject(t.root, 0, obj)
		t.root.numObjects = 1
		t.length++
		return nil
	}
	if t.root.numObjects == t.maxObjects() {
		t.splitRoot()
	}
	t.insertNonFull(t.root, obj)
	t.length++
	return nil
}

// splitRoot grows the tree by one level: the old root becomes the left child
// of a fresh internal root and is split in place. This is the only path by
// which the tree gains height.
func (t *Tree) splitRoot() {
	newRoot := t.newNode(false)
	newRoot.children[0] = t.root
	newRoot.numChildren = 1
	t.splitChild(newRoot, 0)
	t.root = newRoot
}

// insertNonFull places obj somewhere below x, splitting any full child ahead
// of the descent so no node on the path can overflow. x itself must not be
// full.
func (t *Tree) insertNonFull(x *node, obj []byte) {
	i := t.descentIndex(x, obj)
	if x.leaf {
		t.insertObjectAt(x, i, obj)
		return
	}
	if x.children[i].numObjects == t.maxObjects() {
		t.splitChild(x, i)
		// The median that moved up may sit between obj and the old target.
		if t.opts.CompareObjects(obj, t.object(x, i)) > 0 {
			i++
		}
	}
	t.insertNonFull(x.children[i], obj)
}

// Find looks up the object matching key and copies it into buf, allocating a
// buffer when buf is nil or too small. It returns the filled buffer, or
// ErrKeyNotFound. Find never mutates the tree.
func (t *Tree) Find(key, buf []byte) ([]byte, error) {
	for n := t.root; n != nil; {
		i := t.lowerBound(n, key)
		if i < n.numObjects && t.opts.CompareKey(key, t.keyOf(t.object(n, i))) == 0 {
			if len(buf) < t.opts.ObjectSize {
				buf = make([]byte, t.opts.ObjectSize)
			}
			copy(buf, t.object(n, i))
			return buf[:t.opts.ObjectSize], nil
		}
		if n.leaf {
			break
		}
		n = n.children[i]
	}
	return nil, ErrKeyNotFound
}

// contains reports whether any stored object matches key, without copying.
func (t *Tree) contains(key []byte) bool {
	for n := t.root; n != nil; {
		i := t.lowerBound(n, key)
		if i < n.numObjects && t.opts.CompareKey(key, t.keyOf(t.object(n, i))) == 0 {
			return true
		}
		if n.leaf {
			break
		}
		n = n.children[i]
	}
	return false
}

// Walk visits every object in the ascending order defined by CompareObjects.
// The slice passed to visit aliases node storage; copy it to retain it.
func (t *Tree) Walk(visit func(obj []byte)) {
	if t.root != nil {
		t.walkNode(t.root, visit)
	}
}

func (t *Tree) walkNode(n *node, visit func(obj []byte)) {
	for i := 0; i < n.numObjects; i++ {
		if !n.leaf {
			t.walkNode(n.children[i], visit)
		}
		visit(t.object(n, i))
	}
	if !n.leaf {
		t.walkNode(n.children[n.numObjects], visit)
	}
}

// Close tears the whole tree down, firing ReleaseObject once per stored
// object. Children are destroyed before the objects of their parent, so the
// callback always sees a consistent subtree above the object it receives.
// The tree is empty afterwards.
func (t *Tree) Close() {
	if t.root != nil {
		t.destroy(t.root)
		t.root = nil
	}
	t.length = 0
}

func (t *Tree) destroy(n *node) {
	if !n.leaf {
		for i := 0; i <= n.numObjects; i++ {
			t.destroy(n.children[i])
			n.children[i] = nil
		}
		n.numChildren = 0
	}
	for i := 0; i < n.numObjects; i++ {
		t.release(t.object(n, i))
	}
	n.numObjects = 0
}
