// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package timeline implements the ordered sequence of dated events
// (samples and coalescences)
// of a transmission tree.
package timeline

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/js-arias/epitree/tree"
)

// ErrInput is returned when the event data is malformed.
var ErrInput = errors.New("invalid event data")

// Kind is the kind of an event.
type Kind int

// Valid event kinds.
const (
	// Sample is the collection of a sample
	// (a leaf of the tree).
	Sample Kind = iota

	// Coalescence is the merge of two or more lineages
	// (an internal node of the tree).
	Coalescence
)

func (k Kind) String() string {
	switch k {
	case Sample:
		return "sample"
	case Coalescence:
		return "coalescence"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind returns the kind
// with the indicated name.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sample", "leaf":
		return Sample, nil
	case "coalescence":
		return Coalescence, nil
	}
	return 0, fmt.Errorf("%w: unknown event kind %q", ErrInput, s)
}

// An Event is a dated event of a tree.
type Event struct {
	// Time is the absolute time of the event.
	Time float64

	Kind Kind

	// Label is the label of the tree node,
	// if any.
	Label string
}

// FromTree returns the events of a tree
// sorted by time.
// Events at the same time
// keep the pre-order of the nodes in the tree.
func FromTree(t *tree.Tree) []Event {
	nodes := t.Nodes()
	ev := make([]Event, 0, len(nodes))
	for _, n := range nodes {
		k := Coalescence
		if n.IsLeaf() {
			k = Sample
		}
		ev = append(ev, Event{
			Time:  n.Time(),
			Kind:  k,
			Label: n.Label(),
		})
	}
	Sort(ev)
	return ev
}

// Sort sorts the events by time.
// The sort is stable,
// so events at the same time
// keep its original order.
func Sort(ev []Event) {
	slices.SortStableFunc(ev, func(a, b Event) int {
		return cmp.Compare(a.Time, b.Time)
	})
}
