// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package smc

import (
	"fmt"
	"math"

	"github.com/js-arias/epitree/seis"
	"github.com/js-arias/epitree/timeline"
	"golang.org/x/exp/rand"
)

// A Point is the state of a particle
// at a given time.
type Point struct {
	Time    float64
	S, E, I int
}

// A Trajectory is the sequence of states
// of a particle during an interval.
type Trajectory []Point

func (tr *Trajectory) add(t float64, s *seis.State) {
	if tr == nil {
		return
	}
	*tr = append(*tr, Point{Time: t, S: s.S, E: s.E, I: s.I})
}

// Advance simulates the state of a particle
// from time t0
// to the time of the event ev,
// and returns the weight of the particle
// for that interval.
//
// Between events,
// infections, activations, and recoveries
// are simulated as a continuous-time Markov jump process.
// Sampling is not simulated:
// it only reduces the weight of the particle
// by the probability of not sampling
// during the interval.
// At the event,
// the weight is multiplied by the sampling rate psi
// if the event is a sample,
// or by the weight of the coalescent model
// if the event is a coalescence.
//
// If tr is not nil,
// the states visited by the particle are appended to it.
func Advance(s *seis.State, p seis.Params, c seis.Coalescent, t0 float64, ev timeline.Event, rng *rand.Rand, tr *Trajectory) (float64, error) {
	if ev.Time < t0 {
		return 0, fmt.Errorf("%w: event at time %g before interval start %g", seis.ErrInvariant, ev.Time, t0)
	}

	w := 1.0
	t := t0
	tr.add(t, s)
	for {
		if err := s.UpdatePropensities(p); err != nil {
			return 0, err
		}
		prop := s.Propensities()

		dt := math.Inf(1)
		if prop.TotalNonSampling > 0 {
			dt = rng.ExpFloat64() / prop.TotalNonSampling
		}
		done := false
		if t+dt > ev.Time {
			dt = ev.Time - t
			done = true
		}

		// probability of no sampling
		// during the sub-interval
		w *= math.Exp(-dt * prop.Sampling)
		t += dt
		if done {
			break
		}

		r, err := s.Choose(rng.Float64() * prop.TotalNonSampling)
		if err != nil {
			return 0, err
		}
		if err := s.Fire(r); err != nil {
			return 0, err
		}
		tr.add(t, s)
	}
	tr.add(ev.Time, s)

	switch ev.Kind {
	case timeline.Sample:
		w *= p.Psi
	case timeline.Coalescence:
		cw, err := c.Coalesce(s, p)
		if err != nil {
			return 0, err
		}
		w *= cw
	default:
		return 0, fmt.Errorf("%w: unknown event kind %d", seis.ErrInvariant, int(ev.Kind))
	}
	updateLineages(s, ev.Kind)

	return w, nil
}

// updateLineages updates the number of extant lineages
// after an event.
func updateLineages(s *seis.State, k timeline.Kind) {
	if k == timeline.Coalescence {
		s.Lineages++
		return
	}
	if s.Lineages > 0 {
		s.Lineages--
	}
}
