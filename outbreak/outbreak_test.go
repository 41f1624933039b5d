// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package outbreak_test

import (
	"context"
	"errors"
	"math"
	"slices"
	"testing"

	"github.com/js-arias/epitree/outbreak"
	"github.com/js-arias/epitree/seis"
	"github.com/js-arias/epitree/smc"
	"github.com/js-arias/epitree/timeline"
	"github.com/js-arias/epitree/tree"
	"golang.org/x/exp/rand"
)

const tolerance = 1e-9

var params = seis.Params{Beta: 0.02, Alpha: 1, Gamma: 0.2, Psi: 0.1, N: 50}

func TestSimulate(t *testing.T) {
	p := outbreak.Param{Params: params, MaxSamples: 15}
	o := testOutbreak(t, p, 1)

	if len(o.Samples) != p.MaxSamples {
		t.Errorf("samples: got %d, want %d", len(o.Samples), p.MaxSamples)
	}
	if o.End != o.Samples[len(o.Samples)-1] {
		t.Errorf("end: got %.6f, want %.6f", o.End, o.Samples[len(o.Samples)-1])
	}
	if o.Final.S+o.Final.E+o.Final.I != params.N {
		t.Errorf("population not conserved: %+v", o.Final)
	}

	leaves := o.Tree.Leaves()
	if len(leaves) != len(o.Samples) {
		t.Fatalf("leaves: got %d, want %d", len(leaves), len(o.Samples))
	}
	for _, n := range o.Tree.Nodes() {
		if !n.IsLeaf() && len(n.Children()) != 2 {
			t.Errorf("node at time %.6f: got %d children, want 2", n.Time(), len(n.Children()))
		}
	}

	// the events of the tree
	// are the samples and the transmissions
	ev := timeline.FromTree(o.Tree)
	if len(ev) != 2*len(o.Samples)-1 {
		t.Fatalf("events: got %d, want %d", len(ev), 2*len(o.Samples)-1)
	}
	if ev[0].Kind != timeline.Coalescence {
		t.Errorf("first event: got %s, want %s", ev[0].Kind, timeline.Coalescence)
	}
	var samples []float64
	for _, e := range ev {
		if e.Kind == timeline.Sample {
			samples = append(samples, e.Time)
		}
	}
	want := slices.Clone(o.Samples)
	slices.Sort(want)
	for i, s := range samples {
		if math.Abs(s-want[i]) > tolerance {
			t.Errorf("sample %d: got time %.9f, want %.9f", i, s, want[i])
		}
	}

	// the Newick output keeps the times
	nt, err := tree.Parse(o.Tree.Newick())
	if err != nil {
		t.Fatalf("unable to parse simulated tree: %v", err)
	}
	got := timeline.FromTree(nt)
	if len(got) != len(ev) {
		t.Fatalf("events from Newick: got %d, want %d", len(got), len(ev))
	}
	for i := range ev {
		if got[i].Kind != ev[i].Kind || math.Abs(got[i].Time-ev[i].Time) > tolerance {
			t.Errorf("event %d: got %v, want %v", i, got[i], ev[i])
		}
	}
}

func TestSimulateTime(t *testing.T) {
	p := outbreak.Param{Params: params, MaxTime: 5}
	o := testOutbreak(t, p, 1)
	if o.End > p.MaxTime {
		t.Errorf("end: got %.6f, want <= %.6f", o.End, p.MaxTime)
	}
	for i, s := range o.Samples {
		if s > p.MaxTime {
			t.Errorf("sample %d: time %.6f after limit %.6f", i, s, p.MaxTime)
		}
	}
}

func TestReproducible(t *testing.T) {
	p := outbreak.Param{Params: params, MaxSamples: 10}
	o := testOutbreak(t, p, 7)
	again := testOutbreak(t, p, 7)
	if o.Tree.Newick() != again.Tree.Newick() {
		t.Errorf("same seed: got %q and %q", o.Tree.Newick(), again.Tree.Newick())
	}
}

func TestSimulateError(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	if _, err := outbreak.Simulate(outbreak.Param{Params: params}, rng); !errors.Is(err, seis.ErrInput) {
		t.Errorf("without limits: got error %v, want %v", err, seis.ErrInput)
	}
	bad := params
	bad.Psi = -1
	if _, err := outbreak.Simulate(outbreak.Param{Params: bad, MaxSamples: 10}, rng); !errors.Is(err, seis.ErrInput) {
		t.Errorf("negative psi: got error %v, want %v", err, seis.ErrInput)
	}

	// without transmission
	// only the index case can be sampled
	single := seis.Params{Gamma: 0.1, Psi: 1, N: 10}
	if _, err := outbreak.Simulate(outbreak.Param{Params: single, MaxSamples: 10}, rng); !errors.Is(err, outbreak.ErrNoTree) {
		t.Errorf("single case: got error %v, want %v", err, outbreak.ErrNoTree)
	}
}

func TestLikelihood(t *testing.T) {
	p := outbreak.Param{Params: params, MaxSamples: 15}
	o := testOutbreak(t, p, 3)
	ev := timeline.FromTree(o.Tree)

	fp := smc.Param{
		Params:    params,
		Particles: 500,
		Seed:      11,
	}
	f, err := smc.New(ev, fp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want, err := f.LogLike(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// a sampling rate a hundred times smaller
	fp.Params.Psi = params.Psi / 100
	f, err = smc.New(ev, fp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := f.LogLike(context.Background())
	if errors.Is(err, smc.ErrDegenerate) {
		return
	}
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got >= want {
		t.Errorf("log likelihood: far parameters %.6f, simulation parameters %.6f", got, want)
	}
}

// testOutbreak returns the first simulation
// with a tree
// (and all the samples, if the number of samples is limited),
// starting with the given seed.
func testOutbreak(t testing.TB, p outbreak.Param, seed uint64) *outbreak.Outbreak {
	t.Helper()

	for i := uint64(0); i < 100; i++ {
		rng := rand.New(rand.NewSource(seed + i))
		o, err := outbreak.Simulate(p, rng)
		if errors.Is(err, outbreak.ErrNoTree) {
			continue
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.MaxSamples > 0 && len(o.Samples) < p.MaxSamples {
			continue
		}
		return o
	}
	t.Fatalf("no tree after 100 simulations")
	return nil
}
