package value

import "errors"

// ErrSelfReference is returned when an append would make a node reachable
// from itself.
var ErrSelfReference = errors.New("tree cannot self reference")

// NodeID indexes a node in an Arena.
type NodeID int

// NoNode is the null child.
const NoNode NodeID = -1

const noTree = -1

// Side selects a child slot.
type Side int

const (
	Left Side = iota
	Right
)

func (s Side) String() string {
	if s == Left {
		return "left"
	}
	return "right"
}

// Arena stores every binary tree node and tree created during one run.
// Edges and owner back-references are indices into the arena.
type Arena struct {
	nodes []nodeData
	trees []treeData
}

type nodeData struct {
	left, right NodeID
	parent      NodeID
	val         Value
	depth       int
	tree        int
	path        string
	h           *Handle
}

type treeData struct {
	root NodeID
	name string
	h    *Handle
}

// NewArena returns an empty arena.
func NewArena() *Arena {
	return &Arena{}
}

// NewNode allocates an unattached node holding v.
func (a *Arena) NewNode(v Value, h *Handle) Node {
	a.nodes = append(a.nodes, nodeData{
		left:   NoNode,
		right:  NoNode,
		parent: NoNode,
		val:    Strip(v),
		tree:  noTree,
		h:     h,
	})
	return Node{a: a, id: NodeID(len(a.nodes) - 1)}
}

// NewTree allocates a tree named name rooted at root and attaches the whole
// subtree under root to it.
func (a *Arena) NewTree(name string, root Node, h *Handle) Tree {
	a.trees = append(a.trees, treeData{root: root.id, name: name, h: h})
	t := len(a.trees) - 1
	a.stamp(root.id, t, 0, name+".root")
	return Tree{a: a, id: t}
}

// stamp re-assigns owner, depth and path for the subtree at id.
func (a *Arena) stamp(id NodeID, tree, depth int, path string) {
	if id == NoNode {
		return
	}
	n := &a.nodes[id]
	n.tree = tree
	n.depth = depth
	if tree == noTree {
		n.path = ""
	} else {
		n.path = path
	}
	left, right := n.left, n.right
	a.stamp(left, tree, depth+1, path+".left")
	a.stamp(right, tree, depth+1, path+".right")
}

// reaches reports whether target is in the subtree rooted at from.
func (a *Arena) reaches(from, target NodeID) bool {
	if from == NoNode {
		return false
	}
	if from == target {
		return true
	}
	n := a.nodes[from]
	return a.reaches(n.left, target) || a.reaches(n.right, target)
}

// link sets the side slot of parent to child, which may be NoNode.
func (a *Arena) link(parent NodeID, side Side, child NodeID) {
	if side == Left {
		a.nodes[parent].left = child
	} else {
		a.nodes[parent].right = child
	}
	if child != NoNode {
		a.nodes[child].parent = parent
	}
}

// Append makes child the side child of parent. A child that already hangs
// under another parent is unlinked from it first, so it belongs to exactly
// one tree. It fails with ErrSelfReference, leaving the arena untouched,
// when child already belongs to parent's tree or parent is reachable from
// child.
func (a *Arena) Append(parent Node, side Side, child Node) error {
	p := a.nodes[parent.id]
	c := a.nodes[child.id]
	if a.reaches(child.id, parent.id) {
		return ErrSelfReference
	}
	if p.tree != noTree && c.tree == p.tree {
		return ErrSelfReference
	}
	if old, ok := parent.Child(side); ok && old.id != child.id {
		a.nodes[old.id].parent = NoNode
		a.stamp(old.id, noTree, 0, "")
	}
	from, fromSide, moved := child.Parent()
	if moved {
		a.link(from.id, fromSide, NoNode)
	}
	a.link(parent.id, side, child.id)
	switch {
	case p.tree != noTree:
		a.stamp(child.id, p.tree, p.depth+1, p.path+"."+side.String())
	case moved:
		a.stamp(child.id, noTree, p.depth+1, "")
	default:
		a.restampDepth(child.id, p.depth+1)
	}
	return nil
}

func (a *Arena) restampDepth(id NodeID, depth int) {
	if id == NoNode {
		return
	}
	a.nodes[id].depth = depth
	a.restampDepth(a.nodes[id].left, depth+1)
	a.restampDepth(a.nodes[id].right, depth+1)
}

// Detach clears the side child of parent and returns the removed subtree,
// which is no longer owned by any tree.
func (a *Arena) Detach(parent Node, side Side) (Node, bool) {
	child, ok := parent.Child(side)
	if !ok {
		return Node{}, false
	}
	a.link(parent.id, side, NoNode)
	a.nodes[child.id].parent = NoNode
	a.stamp(child.id, noTree, 0, "")
	return child, true
}

// Node is a reference to an arena node. Copies refer to the same node.
type Node struct {
	a        *Arena
	id       NodeID
	h        *Handle
	override bool
}

func (n Node) Kind() Kind { return KindNode }

func (n Node) Handle() *Handle {
	if n.override {
		return n.h
	}
	return n.a.nodes[n.id].h
}

func (n Node) WithHandle(h *Handle) Value {
	if h == n.a.nodes[n.id].h {
		n.h, n.override = nil, false
		return n
	}
	n.h, n.override = h, true
	return n
}

// ID returns the arena index of n.
func (n Node) ID() NodeID { return n.id }

// Value returns the primitive held by n.
func (n Node) Value() Value { return n.a.nodes[n.id].val }

// SetValue replaces the primitive held by n. The node keeps its handle.
func (n Node) SetValue(v Value) { n.a.nodes[n.id].val = Strip(v) }

// SetHandle binds the node's own visual handle.
func (n Node) SetHandle(h *Handle) { n.a.nodes[n.id].h = h }

// Depth is the distance from the root of the owning tree, or from the top of
// the detached subtree.
func (n Node) Depth() int { return n.a.nodes[n.id].depth }

// Path is the access path from the owning tree, e.g. "t.root.left".
// It is empty for unattached nodes.
func (n Node) Path() string { return n.a.nodes[n.id].path }

// Child returns the side child.
func (n Node) Child(side Side) (Node, bool) {
	d := n.a.nodes[n.id]
	id := d.left
	if side == Right {
		id = d.right
	}
	if id == NoNode {
		return Node{}, false
	}
	return Node{a: n.a, id: id}, true
}

// Parent returns the node n hangs under and the slot it occupies.
func (n Node) Parent() (Node, Side, bool) {
	p := n.a.nodes[n.id].parent
	if p == NoNode {
		return Node{}, Left, false
	}
	if n.a.nodes[p].left == n.id {
		return Node{a: n.a, id: p}, Left, true
	}
	return Node{a: n.a, id: p}, Right, true
}

// Attached reports whether n belongs to a tree.
func (n Node) Attached() bool { return n.a.nodes[n.id].tree != noTree }

// Tree returns the owning tree.
func (n Node) Tree() (Tree, bool) {
	t := n.a.nodes[n.id].tree
	if t == noTree {
		return Tree{}, false
	}
	return Tree{a: n.a, id: t}, true
}

// Reaches reports whether target is in the subtree rooted at n.
func (n Node) Reaches(target Node) bool {
	return n.a == target.a && n.a.reaches(n.id, target.id)
}

// Subtree lists the nodes under n in pre-order, n first.
func (n Node) Subtree() []Node {
	var out []Node
	var walk func(NodeID)
	walk = func(id NodeID) {
		if id == NoNode {
			return
		}
		out = append(out, Node{a: n.a, id: id})
		walk(n.a.nodes[id].left)
		walk(n.a.nodes[id].right)
	}
	walk(n.id)
	return out
}

// NodeCount is the number of nodes in the subtree rooted at n.
func (n Node) NodeCount() int {
	return n.a.count(n.id)
}

func (a *Arena) count(id NodeID) int {
	if id == NoNode {
		return 0
	}
	d := a.nodes[id]
	return 1 + a.count(d.left) + a.count(d.right)
}

func (n Node) String() string {
	d := n.a.nodes[n.id]
	s := d.val.String()
	for _, c := range []NodeID{d.left, d.right} {
		if c == NoNode {
			s += " null"
		} else {
			s += " (" + n.a.nodes[c].val.String() + "...)"
		}
	}
	return s
}

// Tree is a drawable binary tree owning a root node.
type Tree struct {
	a  *Arena
	id int
}

func (t Tree) Kind() Kind      { return KindTree }
func (t Tree) Handle() *Handle { return t.a.trees[t.id].h }

// WithHandle returns t unchanged; a tree has exactly one drawing.
func (t Tree) WithHandle(*Handle) Value { return t }

// Name is the identifier the tree was constructed under.
func (t Tree) Name() string { return t.a.trees[t.id].name }

// Root returns the root node.
func (t Tree) Root() Node { return Node{a: t.a, id: t.a.trees[t.id].root} }

// NodeCount is the number of attached nodes.
func (t Tree) NodeCount() int { return t.Root().NodeCount() }

// Same reports whether t and u are the same tree.
func (t Tree) Same(u Tree) bool { return t.a == u.a && t.id == u.id }

func (t Tree) String() string { return t.Root().String() }
