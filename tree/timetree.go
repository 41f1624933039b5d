// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package tree

import "github.com/js-arias/timetree"

// MillionYears is the number of years
// in a time unit of a tree imported from a time-calibrated tree.
const MillionYears = 1_000_000

// FromTimetree creates a tree from a time-calibrated tree.
// Branch lengths are in million years,
// and terminals are labeled with the taxon names.
// The root has no branch length.
func FromTimetree(t *timetree.Tree) *Tree {
	root := &Node{}
	copyTimetree(t, t.Root(), root)
	return newTree(root)
}

func copyTimetree(t *timetree.Tree, id int, n *Node) {
	if t.IsTerm(id) {
		n.label = t.Taxon(id)
	}

	age := t.Age(id)
	for _, c := range t.Children(id) {
		nc := &Node{
			brLen:  float64(age-t.Age(c)) / MillionYears,
			hasLen: true,
		}
		n.addChild(nc)
		copyTimetree(t, c, nc)
	}
}
