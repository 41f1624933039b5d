// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package tree implements a rooted phylogenetic tree
// read from a Newick string
// (or a Nexus file),
// with the absolute time
// and the height of each node.
//
// Time runs forward from the start of the root branch
// (time 0)
// to the most recent sample;
// height runs backwards,
// so the most recent samples have height 0.
package tree

import (
	"slices"
	"strconv"
	"strings"
)

// A Node is a node of a phylogenetic tree,
// either a sample
// (a leaf)
// or a coalescence.
type Node struct {
	parent   *Node
	children []*Node

	label string
	ann   map[string]string

	brLen  float64
	hasLen bool

	time   float64
	height float64
}

// NewNode creates a node with a label
// and the length of the branch to its parent.
// If parent is not nil,
// the node is added as the last child of parent.
// Times and heights are set
// when the tree is created with New.
func NewNode(parent *Node, label string, brLen float64) *Node {
	n := &Node{
		label:  label,
		brLen:  brLen,
		hasLen: true,
	}
	if parent != nil {
		parent.addChild(n)
	}
	return n
}

func (n *Node) addChild(c *Node) {
	n.children = append(n.children, c)
	c.parent = n
}

// Annotation returns the value of an annotation
// of the node.
func (n *Node) Annotation(key string) string {
	return n.ann[key]
}

// Annotations returns the keys of the annotations
// defined for the node,
// sorted alphabetically.
func (n *Node) Annotations() []string {
	keys := make([]string, 0, len(n.ann))
	for k := range n.ann {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// BranchLength returns the length of the branch
// that connects the node with its parent.
func (n *Node) BranchLength() float64 {
	return n.brLen
}

// Children returns the descendants of the node.
func (n *Node) Children() []*Node {
	return slices.Clone(n.children)
}

// HasLength returns true if a branch length
// was defined for the node.
func (n *Node) HasLength() bool {
	return n.hasLen
}

// Height returns the distance of the node
// from the most recent sample.
func (n *Node) Height() float64 {
	return n.height
}

// IsLeaf returns true if the node is a leaf.
func (n *Node) IsLeaf() bool {
	return len(n.children) == 0
}

// IsRoot returns true if the node is the root of the tree.
func (n *Node) IsRoot() bool {
	return n.parent == nil
}

// Label returns the label of the node.
func (n *Node) Label() string {
	return n.label
}

// Parent returns the parent of the node.
// The root has no parent.
func (n *Node) Parent() *Node {
	return n.parent
}

// Time returns the absolute time of the node.
func (n *Node) Time() float64 {
	return n.time
}

// preorder appends the node and its descendants
// in pre-order.
func (n *Node) preorder(ls []*Node) []*Node {
	ls = append(ls, n)
	for _, c := range n.children {
		ls = c.preorder(ls)
	}
	return ls
}

// A Tree is a rooted phylogenetic tree.
type Tree struct {
	root   *Node
	nodes  []*Node
	origin float64
}

// New creates a tree from a root node
// built with NewNode.
// It returns nil if root has a parent.
func New(root *Node) *Tree {
	if root.parent != nil {
		return nil
	}
	return newTree(root)
}

// newTree creates a tree from its root,
// and calculates the time and height of each node.
func newTree(root *Node) *Tree {
	t := &Tree{
		root:  root,
		nodes: root.preorder(nil),
	}

	// the slice is in pre-order,
	// so parents are always set before its children.
	var maxTime float64
	for _, n := range t.nodes {
		n.time = n.brLen
		if n.parent != nil {
			n.time += n.parent.time
		}
		if n.time > maxTime {
			maxTime = n.time
		}
	}
	for _, n := range t.nodes {
		n.height = maxTime - n.time
	}

	t.origin = root.height + root.brLen
	return t
}

// Leaves returns the leaves of the tree
// in pre-order.
func (t *Tree) Leaves() []*Node {
	var ls []*Node
	for _, n := range t.nodes {
		if n.IsLeaf() {
			ls = append(ls, n)
		}
	}
	return ls
}

// Len returns the number of nodes in the tree.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Nodes returns all the nodes of the tree
// in pre-order.
func (t *Tree) Nodes() []*Node {
	return slices.Clone(t.nodes)
}

// Origin returns the time between the start of the process
// and the most recent sample
// (i.e., the height of the root
// plus the length of the root branch).
func (t *Tree) Origin() float64 {
	return t.origin
}

// Root returns the root of the tree.
func (t *Tree) Root() *Node {
	return t.root
}

// Newick returns the tree as a Newick string.
func (t *Tree) Newick() string {
	var b strings.Builder
	t.root.newick(&b)
	b.WriteByte(';')
	return b.String()
}

func (n *Node) newick(b *strings.Builder) {
	if len(n.children) > 0 {
		b.WriteByte('(')
		for i, c := range n.children {
			if i > 0 {
				b.WriteByte(',')
			}
			c.newick(b)
		}
		b.WriteByte(')')
	}
	if n.label != "" {
		b.WriteString(quoteLabel(n.label))
	}
	if len(n.ann) > 0 {
		b.WriteString("[&")
		for i, k := range n.Annotations() {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(quoteLabel(k))
			b.WriteByte('=')
			b.WriteString(quoteLabel(n.ann[k]))
		}
		b.WriteByte(']')
	}
	if n.hasLen {
		b.WriteByte(':')
		b.WriteString(strconv.FormatFloat(n.brLen, 'g', -1, 64))
	}
}

// quoteLabel returns a label
// in a form that can be read back by Parse.
func quoteLabel(s string) string {
	if bareLabel.MatchString(s) {
		return s
	}
	if strings.ContainsRune(s, '\'') && !strings.ContainsRune(s, '"') {
		return `"` + s + `"`
	}
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
