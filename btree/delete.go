package btree

// Delete removes the first object matching key and reports whether anything
// was removed. Deleting an absent key is a strict no-op: the tree is probed
// first, because the fill-on-descent pass below merges and borrows on the
// way down and would otherwise restructure the tree while removing nothing.
func (t *Tree) Delete(key []byte) bool {
	if t.root == nil || !t.contains(key) {
		return false
	}
	deleted := t.deleteFrom(t.root, key, true)
	if t.root.numObjects == 0 {
		// Root collapse: the only path by which the tree loses height. An
		// emptied leaf root means the tree is now empty; an emptied internal
		// root hands the tree to its sole remaining child.
		if t.root.leaf {
			t.root = nil
		} else {
			t.root = t.root.children[0]
		}
	}
	if deleted {
		t.length--
	}
	return deleted
}

// deleteFrom removes key from the subtree rooted at x. Whenever it descends,
// the target child is first brought to at least t objects, so no node on the
// path can underflow. release controls whether the final leaf removal fires
// the callback; predecessor/successor recursions pass false because the
// removed bytes live on in an ancestor slot.
func (t *Tree) deleteFrom(x *node, key []byte, release bool) bool {
	i := t.lowerBound(x, key)
	found := i < x.numObjects && t.opts.CompareKey(key, t.keyOf(t.object(x, i))) == 0

	if x.leaf {
		if !found {
			return false
		}
		if release {
			t.release(t.object(x, i))
		}
		t.removeObjectAt(x, i)
		return true
	}

	if found {
		return t.deleteInternal(x, i, key, release)
	}

	// Descend. A child at minimum occupancy is filled first; the fill may
	// merge the rightmost child away, shifting the descent one slot left.
	last := i == x.numObjects
	if x.children[i].numObjects <= t.minObjects() {
		t.fillChild(x, i)
		if last && i > x.numObjects {
			i--
		}
	}
	return t.deleteFrom(x.children[i], key, release)
}

// deleteInternal removes the object at index i of internal node x. The slot
// cannot simply be vacated, so the object is replaced by its in-order
// predecessor or successor when a flanking child can spare one, and the
// replacement's source copy is then deleted from that child. With both
// children at minimum the separator is pulled down into a merge and the
// delete retries inside the merged child.
func (t *Tree) deleteInternal(x *node, i int, key []byte, release bool) bool {
	d := t.opts.Degree
	left, right := x.children[i], x.children[i+1]

	switch {
	case left.numObjects >= d:
		// The overwritten object is released here; the predecessor's leaf
		// copy is removed without releasing, since its bytes survive in this
		// slot.
		pred := make([]byte, t.opts.ObjectSize)
		copy(pred, t.maxObject(left))
		if release {
			t.release(t.object(x, i))
		}
		t.setObject(x, i, pred)
		return t.deleteFrom(left, t.keyOf(pred), false)

	case right.numObjects >= d:
		succ := make([]byte, t.opts.ObjectSize)
		copy(succ, t.minObject(right))
		if release {
			t.release(t.object(x, i))
		}
		t.setObject(x, i, succ)
		return t.deleteFrom(right, t.keyOf(succ), false)

	default:
		t.mergeChildren(x, i)
		return t.deleteFrom(x.children[i], key, release)
	}
}

// maxObject returns the slot of the rightmost object in the subtree rooted
// at n, the in-order predecessor of n's separator in the parent.
func (t *Tree) maxObject(n *node) []byte {
	for !n.leaf {
		n = n.children[n.numObjects]
	}
	return t.object(n, n.numObjects-1)
}

// minObject returns the slot of the leftmost object in the subtree rooted
// at n.
func (t *Tree) minObject(n *node) []byte {
	for !n.leaf {
		n = n.children[0]
	}
	return t.object(n, 0)
}

// fillChild brings x.children[i] above minimum occupancy before a descent:
// borrow from whichever sibling has spare objects, merge when neither does.
// After a merge the child at i may be gone; callers re-index.
func (t *Tree) fillChild(x *node, i int) {
	d := t.opts.Degree
	switch {
	case i > 0 && x.children[i-1].numObjects >= d:
		t.borrowFromLeft(x, i)
	case i < x.numObjects && x.children[i+1].numObjects >= d:
		t.borrowFromRight(x, i)
	case i < x.numObjects:
		t.mergeChildren(x, i)
	default:
		t.mergeChildren(x, i-1)
	}
}

// borrowFromLeft rotates the rightmost object of the left sibling through
// the separator at i-1 onto the front of x.children[i].
func (t *Tree) borrowFromLeft(x *node, i int) {
	child, sib := x.children[i], x.children[i-1]
	t.insertObjectAt(child, 0, t.object(x, i-1))
	if !child.leaf {
		child.insertChildAt(0, sib.children[sib.numChildren-1])
		sib.children[sib.numChildren-1] = nil
		sib.numChildren--
	}
	t.setObject(x, i-1, t.object(sib, sib.numObjects-1))
	clear(t.object(sib, sib.numObjects-1))
	sib.numObjects--
}

// borrowFromRight rotates the leftmost object of the right sibling through
// the separator at i onto the back of x.children[i].
func (t *Tree) borrowFromRight(x *node, i int) {
	child, sib := x.children[i], x.children[i+1]
	t.insertObjectAt(child, child.numObjects, t.object(x, i))
	if !child.leaf {
		child.insertChildAt(child.numChildren, sib.removeChildAt(0))
	}
	t.setObject(x, i, t.object(sib, 0))
	t.removeObjectAt(sib, 0)
}

// mergeChildren folds x.children[i+1] and the separator at index i into
// x.children[i], producing a single node of 2t-1 objects, then closes the
// gap in x. The right node is dropped; its objects moved, so no release
// fires.
func (t *Tree) mergeChildren(x *node, i int) {
	size := t.opts.ObjectSize
	left, right := x.children[i], x.children[i+1]

	t.setObject(left, left.numObjects, t.object(x, i))
	copy(left.objects[(left.numObjects+1)*size:], right.objects[:right.numObjects*size])
	if !left.leaf {
		copy(left.children[left.numChildren:], right.children[:right.numChildren])
		left.numChildren += right.numChildren
	}
	left.numObjects += 1 + right.numObjects

	t.removeObjectAt(x, i)
	x.removeChildAt(i + 1)
}
