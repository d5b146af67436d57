package btree

import (
	"encoding/hex"
	"strings"

	"github.com/xlab/treeprint"
)

// Visualizer renders the node structure of a Tree, one branch per node.
// Format, when set, turns an object into its display form; the default
// prints the object bytes as hex.
type Visualizer struct {
	Tree   *Tree
	Format func(obj []byte) string
}

// Visualize returns an ASCII rendering of the tree.
func (v *Visualizer) Visualize() string {
	tp := treeprint.NewWithRoot(v.Tree.String())
	if v.Tree.root != nil {
		v.addNode(tp, v.Tree.root)
	}
	return tp.String()
}

func (v *Visualizer) addNode(parent treeprint.Tree, n *node) {
	branch := parent.AddBranch(v.nodeLabel(n))
	if !n.leaf {
		for i := 0; i <= n.numObjects; i++ {
			v.addNode(branch, n.children[i])
		}
	}
}

func (v *Visualizer) nodeLabel(n *node) string {
	var b strings.Builder
	b.WriteByte('[')
	for i := 0; i < n.numObjects; i++ {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(v.format(v.Tree.object(n, i)))
	}
	b.WriteByte(']')
	return b.String()
}

func (v *Visualizer) format(obj []byte) string {
	if v.Format != nil {
		return v.Format(obj)
	}
	return hex.EncodeToString(obj)
}
