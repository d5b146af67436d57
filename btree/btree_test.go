package btree

import (
	"bytes"
	"encoding/binary"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test objects are 16 bytes: an 8-byte big-endian id (the key) followed by
// an 8-byte payload.
const testObjectSize = 16

func testObject(id, payload uint64) []byte {
	obj := make([]byte, testObjectSize)
	binary.BigEndian.PutUint64(obj[:8], id)
	binary.BigEndian.PutUint64(obj[8:], payload)
	return obj
}

func testKey(id uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, id)
	return key
}

func testOptions(degree int, released *int) Options {
	opts := Options{
		Degree:     degree,
		ObjectSize: testObjectSize,
		CompareObjects: func(a, b []byte) int {
			return bytes.Compare(a[:8], b[:8])
		},
		CompareKey: func(key, objKey []byte) int {
			return bytes.Compare(key, objKey)
		},
		ExtractKey: func(obj []byte) []byte {
			return obj[:8]
		},
	}
	if released != nil {
		opts.ReleaseObject = func(obj []byte) {
			*released++
		}
	}
	return opts
}

func newTestTree(t *testing.T, degree int) *Tree {
	t.Helper()
	tr, err := New(testOptions(degree, nil))
	require.NoError(t, err)
	return tr
}

func insertIDs(t *testing.T, tr *Tree, ids ...uint64) {
	t.Helper()
	for _, id := range ids {
		require.NoError(t, tr.Insert(testObject(id, id*100)))
	}
}

func collectIDs(tr *Tree) []uint64 {
	var ids []uint64
	tr.Walk(func(obj []byte) {
		ids = append(ids, binary.BigEndian.Uint64(obj[:8]))
	})
	return ids
}

// leafIDs returns the ids stored directly in n, for structural assertions.
func leafIDs(tr *Tree, n *node) []uint64 {
	ids := make([]uint64, 0, n.numObjects)
	for i := 0; i < n.numObjects; i++ {
		ids = append(ids, binary.BigEndian.Uint64(tr.object(n, i)[:8]))
	}
	return ids
}

// permutation returns a deterministic shuffle of [0, n).
func permutation(n int) []int {
	r := rand.New(rand.NewSource(0x5eed))
	return r.Perm(n)
}

// checkInvariants verifies every structural invariant: occupancy bounds,
// in-node ordering, separator bounds, uniform leaf depth, child slot
// consistency, and that Len matches the walk.
func checkInvariants(t *testing.T, tr *Tree) {
	t.Helper()
	if tr.root == nil {
		require.Equal(t, 0, tr.Len())
		return
	}
	require.GreaterOrEqual(t, tr.root.numObjects, 1, "non-nil root must hold an object")

	leafDepth := -1
	var check func(n *node, depth int, isRoot bool)
	check = func(n *node, depth int, isRoot bool) {
		require.LessOrEqual(t, n.numObjects, tr.maxObjects())
		if !isRoot {
			require.GreaterOrEqual(t, n.numObjects, tr.minObjects())
		}
		for i := 1; i < n.numObjects; i++ {
			require.Negative(t, tr.opts.CompareObjects(tr.object(n, i-1), tr.object(n, i)),
				"objects within a node must be strictly ascending")
		}
		if n.leaf {
			require.Equal(t, 0, n.numChildren)
			require.Nil(t, n.children)
			if leafDepth == -1 {
				leafDepth = depth
			}
			require.Equal(t, leafDepth, depth, "all leaves must share one depth")
			return
		}
		require.Equal(t, n.numObjects+1, n.numChildren)
		for i := 0; i < n.numChildren; i++ {
			require.NotNil(t, n.children[i])
		}
		for i := n.numChildren; i < len(n.children); i++ {
			require.Nil(t, n.children[i], "vacated child slots must stay nil")
		}
		for i := 0; i < n.numObjects; i++ {
			require.Negative(t, tr.opts.CompareObjects(tr.maxObject(n.children[i]), tr.object(n, i)),
				"left subtree must stay below its separator")
			require.Negative(t, tr.opts.CompareObjects(tr.object(n, i), tr.minObject(n.children[i+1])),
				"right subtree must stay above its separator")
		}
		for i := 0; i < n.numChildren; i++ {
			check(n.children[i], depth+1, false)
		}
	}
	check(tr.root, 0, true)

	ids := collectIDs(tr)
	require.Len(t, ids, tr.Len())
	for i := 1; i < len(ids); i++ {
		require.Less(t, ids[i-1], ids[i], "walk must be strictly ascending")
	}
}

func TestNewValidatesOptions(t *testing.T) {
	opts := testOptions(3, nil)

	bad := opts
	bad.Degree = 1
	_, err := New(bad)
	assert.Error(t, err)

	bad = opts
	bad.ObjectSize = 0
	_, err = New(bad)
	assert.Error(t, err)

	bad = opts
	bad.CompareObjects = nil
	_, err = New(bad)
	assert.Error(t, err)

	bad = opts
	bad.CompareKey = nil
	_, err = New(bad)
	assert.Error(t, err)

	bad = opts
	bad.ExtractKey = nil
	_, err = New(bad)
	assert.Error(t, err)

	tr, err := New(opts)
	require.NoError(t, err)
	assert.Equal(t, 3, tr.Degree())
	assert.Equal(t, testObjectSize, tr.ObjectSize())
}

func TestInsertRejectsWrongWidth(t *testing.T) {
	tr := newTestTree(t, 3)
	assert.Error(t, tr.Insert(make([]byte, testObjectSize-1)))
	assert.Error(t, tr.Insert(make([]byte, testObjectSize+1)))
	assert.Equal(t, 0, tr.Len())
}

func TestEmptyTree(t *testing.T) {
	tr := newTestTree(t, 3)

	assert.Empty(t, collectIDs(tr))
	assert.Equal(t, 0, tr.Len())
	assert.Equal(t, 0, tr.Height())

	_, err := tr.Find(testKey(7), nil)
	assert.ErrorIs(t, err, ErrKeyNotFound)

	assert.False(t, tr.Delete(testKey(7)))
	checkInvariants(t, tr)

	tr.Close()
	assert.Equal(t, 0, tr.Len())
}

func TestSingleObjectRoot(t *testing.T) {
	tr := newTestTree(t, 3)
	insertIDs(t, tr, 42)

	require.Equal(t, 1, tr.Len())
	require.Equal(t, 1, tr.Height())
	require.True(t, tr.root.leaf)

	obj, err := tr.Find(testKey(42), nil)
	require.NoError(t, err)
	assert.Equal(t, testObject(42, 4200), obj)
	checkInvariants(t, tr)
}

func TestRootSplit(t *testing.T) {
	// Degree 2: nodes hold at most 3 objects and 4 children.
	tr := newTestTree(t, 2)
	insertIDs(t, tr, 10, 20, 30)
	require.Equal(t, 1, tr.Height())

	// The fourth insert finds the root full and grows the tree by a level.
	insertIDs(t, tr, 40)
	require.Equal(t, 2, tr.Height())
	require.Equal(t, []uint64{20}, leafIDs(tr, tr.root))
	require.Equal(t, []uint64{10}, leafIDs(tr, tr.root.children[0]))
	require.Equal(t, []uint64{30, 40}, leafIDs(tr, tr.root.children[1]))

	insertIDs(t, tr, 50)
	require.Equal(t, []uint64{30, 40, 50}, leafIDs(tr, tr.root.children[1]))

	assert.Equal(t, []uint64{10, 20, 30, 40, 50}, collectIDs(tr))
	checkInvariants(t, tr)
}

func TestFindCopiesIntoCallerBuffer(t *testing.T) {
	tr := newTestTree(t, 3)
	insertIDs(t, tr, 1, 2, 3)

	buf := make([]byte, testObjectSize)
	obj, err := tr.Find(testKey(2), buf)
	require.NoError(t, err)
	assert.Equal(t, testObject(2, 200), obj)
	assert.Same(t, &buf[0], &obj[0], "Find must fill the caller's buffer")

	// A short buffer is replaced, not overrun.
	short := make([]byte, 4)
	obj, err = tr.Find(testKey(3), short)
	require.NoError(t, err)
	assert.Equal(t, testObject(3, 300), obj)

	obj, err = tr.Find(testKey(9), buf)
	assert.ErrorIs(t, err, ErrKeyNotFound)
	assert.Nil(t, obj)
}

func TestFindDeterminism(t *testing.T) {
	tr := newTestTree(t, 2)
	ids := []uint64{13, 7, 29, 1, 55, 21, 34, 3, 8, 44, 17, 26}
	insertIDs(t, tr, ids...)

	for _, id := range ids {
		obj, err := tr.Find(testKey(id), nil)
		require.NoError(t, err)
		assert.Equal(t, testObject(id, id*100), obj, "id %d", id)
	}
}

func TestWalkOrder(t *testing.T) {
	tr := newTestTree(t, 2)
	insertIDs(t, tr, 9, 3, 7, 1, 5, 8, 2, 6, 4)
	assert.Equal(t, []uint64{1, 2, 3, 4, 5, 6, 7, 8, 9}, collectIDs(tr))
	checkInvariants(t, tr)
}

func TestDuplicatePolicyIsComparatorDefined(t *testing.T) {
	// With a comparator over the full object, records sharing an id but
	// differing in payload coexist; the tree itself rejects nothing.
	released := 0
	opts := testOptions(2, &released)
	opts.CompareObjects = func(a, b []byte) int {
		return bytes.Compare(a, b)
	}
	tr, err := New(opts)
	require.NoError(t, err)

	require.NoError(t, tr.Insert(testObject(5, 1)))
	require.NoError(t, tr.Insert(testObject(5, 2)))
	require.NoError(t, tr.Insert(testObject(3, 0)))
	require.Equal(t, 3, tr.Len())

	// Find returns the first object matching the key.
	obj, err := tr.Find(testKey(5), nil)
	require.NoError(t, err)
	assert.Equal(t, testObject(5, 1), obj)

	// Delete removes the first match only.
	require.True(t, tr.Delete(testKey(5)))
	require.Equal(t, 2, tr.Len())
	obj, err = tr.Find(testKey(5), nil)
	require.NoError(t, err)
	assert.Equal(t, testObject(5, 2), obj)

	tr.Close()
	assert.Equal(t, 3, released)
}

func TestCloseReleasesEveryObject(t *testing.T) {
	released := 0
	tr, err := New(testOptions(15, &released))
	require.NoError(t, err)

	const count = 128
	perm := permutation(count)
	for _, id := range perm {
		require.NoError(t, tr.Insert(testObject(uint64(id), uint64(id))))
	}
	require.Equal(t, count, tr.Len())

	want := make([]uint64, count)
	for i := range want {
		want[i] = uint64(i)
	}
	assert.Equal(t, want, collectIDs(tr))
	checkInvariants(t, tr)

	tr.Close()
	assert.Equal(t, count, released)
	assert.Equal(t, 0, tr.Len())
	assert.Empty(t, collectIDs(tr))
}

func TestCloseOrderReleasesChildrenFirst(t *testing.T) {
	// The callback must never run before the subtrees below its object are
	// gone: every id released from an internal node has to come after all
	// ids of its child subtrees.
	var released []uint64
	opts := testOptions(2, nil)
	opts.ReleaseObject = func(obj []byte) {
		released = append(released, binary.BigEndian.Uint64(obj[:8]))
	}
	tr, err := New(opts)
	require.NoError(t, err)
	for _, id := range permutation(32) {
		require.NoError(t, tr.Insert(testObject(uint64(id), 0)))
	}

	rootIDs := leafIDs(tr, tr.root)
	tr.Close()
	require.Len(t, released, 32)
	assert.Equal(t, rootIDs, released[32-len(rootIDs):], "root objects release last")
}
