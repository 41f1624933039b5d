// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package outbreak simulates a stochastic SEIS epidemic
// forward in time,
// and returns the transmission tree
// of the sampled individuals.
package outbreak

import (
	"errors"
	"fmt"
	"math"

	"github.com/js-arias/epitree/seis"
	"github.com/js-arias/epitree/tree"
	"golang.org/x/exp/rand"
)

// ErrNoTree is returned when the epidemic ends
// with less than two samples.
var ErrNoTree = errors.New("less than two samples")

// Param is a collection of parameters
// of a simulation.
type Param struct {
	Params seis.Params

	// MaxTime is the time at which the simulation stops.
	// If zero,
	// there is no time limit.
	MaxTime float64

	// MaxSamples is the number of samples
	// at which the simulation stops.
	// If zero,
	// there is no sample limit.
	MaxSamples int
}

// An Outbreak is the result of a simulation.
type Outbreak struct {
	// Tree is the transmission tree
	// of the sampled individuals.
	// Time 0 is the infection of the index case.
	Tree *tree.Tree

	// Samples are the times of the samples
	// in the order in which they were taken.
	Samples []float64

	// End is the time at which the simulation stopped.
	End float64

	// Final is the state of the epidemic
	// at the end of the simulation.
	Final seis.State
}

// a node of the full genealogy
type node struct {
	time     float64
	parent   int
	children []int
	label    string
	sampled  bool
}

type genealogy struct {
	nodes []node
}

func (g *genealogy) add(parent int, t float64) int {
	g.nodes = append(g.nodes, node{time: t, parent: parent})
	id := len(g.nodes) - 1
	if parent >= 0 {
		g.nodes[parent].children = append(g.nodes[parent].children, id)
	}
	return id
}

// Simulate runs a SEIS epidemic
// started by a single infectious individual
// in an otherwise susceptible population.
//
// Infections,
// activations,
// and recoveries
// follow the rates of the seis package.
// Each infectious individual is sampled at rate psi;
// a sampled individual is removed from the infectious compartment
// (as in a recovery)
// and becomes a leaf of the tree.
// An infection splits the lineage of a random infectious individual,
// so internal nodes of the tree are transmissions.
//
// The simulation stops when there are no infected individuals,
// or when one of the limits of the parameters is reached.
// If the limits are both zero,
// it returns an error.
// If less than two individuals were sampled,
// it returns ErrNoTree.
func Simulate(p Param, rng *rand.Rand) (*Outbreak, error) {
	if err := p.Params.Validate(); err != nil {
		return nil, err
	}
	if p.MaxTime < 0 || math.IsNaN(p.MaxTime) || math.IsInf(p.MaxTime, 0) {
		return nil, fmt.Errorf("%w: maximum time: %g", seis.ErrInput, p.MaxTime)
	}
	if p.MaxSamples < 0 {
		return nil, fmt.Errorf("%w: maximum samples: %d", seis.ErrInput, p.MaxSamples)
	}
	if p.MaxTime == 0 && p.MaxSamples == 0 {
		return nil, fmt.Errorf("%w: undefined simulation limit", seis.ErrInput)
	}

	g := &genealogy{}
	s := seis.Seed(p.Params)

	// each infected individual is stored
	// as the last node of its lineage
	exposed := []int{}
	infectious := []int{g.add(-1, 0)}

	o := &Outbreak{}
	t := 0.0
	for len(exposed)+len(infectious) > 0 {
		if err := s.UpdatePropensities(p.Params); err != nil {
			return nil, err
		}
		prop := s.Propensities()
		total := prop.TotalNonSampling + prop.Sampling
		if total == 0 {
			break
		}

		t += rng.ExpFloat64() / total
		if p.MaxTime > 0 && t >= p.MaxTime {
			t = p.MaxTime
			break
		}

		u := rng.Float64() * total
		if u >= prop.TotalNonSampling {
			// sampling
			i := rng.Intn(len(infectious))
			leaf := g.add(infectious[i], t)
			g.nodes[leaf].sampled = true
			o.Samples = append(o.Samples, t)
			g.nodes[leaf].label = fmt.Sprintf("s%d", len(o.Samples))
			infectious = remove(infectious, i)
			if err := s.Fire(seis.Recovery); err != nil {
				return nil, err
			}
			if p.MaxSamples > 0 && len(o.Samples) >= p.MaxSamples {
				break
			}
			continue
		}

		r, err := s.Choose(u)
		if err != nil {
			return nil, err
		}
		switch r {
		case seis.Infection:
			i := rng.Intn(len(infectious))
			b := g.add(infectious[i], t)
			infectious[i] = b
			exposed = append(exposed, b)
		case seis.Activation:
			i := rng.Intn(len(exposed))
			infectious = append(infectious, exposed[i])
			exposed = remove(exposed, i)
		case seis.Recovery:
			i := rng.Intn(len(infectious))
			infectious = remove(infectious, i)
		}
		if err := s.Fire(r); err != nil {
			return nil, err
		}
		if s.E != len(exposed) || s.I != len(infectious) {
			return nil, fmt.Errorf("%w: state E=%d I=%d with %d exposed and %d infectious individuals", seis.ErrInvariant, s.E, s.I, len(exposed), len(infectious))
		}
	}
	o.End = t
	o.Final = s

	if len(o.Samples) < 2 {
		return o, fmt.Errorf("%w: got %d samples at time %g", ErrNoTree, len(o.Samples), t)
	}
	g.prune()
	o.Tree = tree.New(g.build(0, nil, 0))
	return o, nil
}

func remove(ls []int, i int) []int {
	last := len(ls) - 1
	ls[i] = ls[last]
	return ls[:last]
}

// prune removes the nodes
// without sampled descendants.
func (g *genealogy) prune() {
	// children are always added after its parents
	// so a reverse traversal visits children first.
	keep := make([]bool, len(g.nodes))
	for i := len(g.nodes) - 1; i >= 0; i-- {
		if g.nodes[i].sampled {
			keep[i] = true
		}
		if keep[i] && g.nodes[i].parent >= 0 {
			keep[g.nodes[i].parent] = true
		}
	}
	for i := range g.nodes {
		var children []int
		for _, c := range g.nodes[i].children {
			if keep[c] {
				children = append(children, c)
			}
		}
		g.nodes[i].children = children
	}
}

// build creates the tree nodes
// of the reconstructed tree,
// removing the nodes with a single descendant.
func (g *genealogy) build(id int, parent *tree.Node, from float64) *tree.Node {
	for len(g.nodes[id].children) == 1 {
		id = g.nodes[id].children[0]
	}
	n := tree.NewNode(parent, g.nodes[id].label, g.nodes[id].time-from)
	for _, c := range g.nodes[id].children {
		g.build(c, n, g.nodes[id].time)
	}
	return n
}
