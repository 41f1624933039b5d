// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package seis implements the state
// of a stochastic Susceptible-Exposed-Infectious-Susceptible
// compartmental epidemic,
// and the rates
// (propensities)
// of its events.
package seis

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInput is returned when a model parameter is out of range.
	ErrInput = errors.New("invalid model parameter")

	// ErrInvariant is returned when a state of the epidemic
	// is inconsistent.
	// It always signals a bug.
	ErrInvariant = errors.New("invariant violation")
)

// Params are the parameters of the epidemic model.
type Params struct {
	// Beta is the infection rate.
	Beta float64

	// Alpha is the activation rate
	// (from exposed to infectious).
	Alpha float64

	// Gamma is the recovery rate
	// (from infectious to susceptible).
	Gamma float64

	// Psi is the per-lineage sampling rate.
	Psi float64

	// N is the size of the population.
	N int
}

// Validate returns an error
// if a parameter is out of range.
func (p Params) Validate() error {
	rates := []struct {
		name string
		v    float64
	}{
		{"beta", p.Beta},
		{"alpha", p.Alpha},
		{"gamma", p.Gamma},
		{"psi", p.Psi},
	}
	for _, r := range rates {
		if r.v < 0 || math.IsNaN(r.v) || math.IsInf(r.v, 0) {
			return fmt.Errorf("%w: %s: %g", ErrInput, r.name, r.v)
		}
	}
	if p.N < 1 {
		return fmt.Errorf("%w: population size: %d", ErrInput, p.N)
	}
	return nil
}

func (p Params) String() string {
	return fmt.Sprintf("beta=%g alpha=%g gamma=%g psi=%g N=%d", p.Beta, p.Alpha, p.Gamma, p.Psi, p.N)
}

// Reaction is a state-changing event of the epidemic.
type Reaction int

// Valid reactions.
const (
	// Infection moves an individual from S to E.
	Infection Reaction = iota

	// Activation moves an individual from E to I.
	Activation

	// Recovery moves an individual from I to S.
	Recovery
)

func (r Reaction) String() string {
	switch r {
	case Infection:
		return "infection"
	case Activation:
		return "activation"
	case Recovery:
		return "recovery"
	}
	return fmt.Sprintf("reaction(%d)", int(r))
}

// Propensities are the instantaneous rates
// of the events of the epidemic.
type Propensities struct {
	Infection  float64
	Activation float64
	Recovery   float64
	Sampling   float64

	// TotalNonSampling is the sum of the infection,
	// activation,
	// and recovery propensities.
	TotalNonSampling float64
}

// State is the state of a particle:
// the size of each compartment
// and the number of extant sampled lineages.
//
// A State is a plain value,
// so an assignment makes an independent copy.
type State struct {
	S, E, I int

	// Lineages is the number of extant lineages
	// of the tree.
	Lineages int

	prop Propensities
}

// Seed returns the canonical initial state:
// a single infectious individual
// that starts a single lineage.
func Seed(p Params) State {
	return State{
		S:        p.N - 1,
		I:        1,
		Lineages: 1,
	}
}

// Check returns an error if the compartment counts
// are inconsistent with the population size.
func (s *State) Check(p Params) error {
	if s.S < 0 || s.E < 0 || s.I < 0 {
		return fmt.Errorf("%w: negative compartment: S=%d E=%d I=%d", ErrInvariant, s.S, s.E, s.I)
	}
	if s.S+s.E+s.I > p.N {
		return fmt.Errorf("%w: compartments S=%d E=%d I=%d exceed population %d", ErrInvariant, s.S, s.E, s.I, p.N)
	}
	return nil
}

// UpdatePropensities recomputes the propensities
// from the current state.
func (s *State) UpdatePropensities(p Params) error {
	if err := s.Check(p); err != nil {
		return err
	}

	s.prop.Infection = p.Beta * float64(s.I) * float64(s.S)
	s.prop.Activation = p.Alpha * float64(s.E)
	s.prop.Recovery = p.Gamma * float64(s.I)
	s.prop.Sampling = p.Psi * float64(s.I)
	s.prop.TotalNonSampling = s.prop.Infection + s.prop.Activation + s.prop.Recovery
	return nil
}

// Propensities returns the propensities
// computed in the last update.
func (s *State) Propensities() Propensities {
	return s.prop
}

// ReplaceWith copies the content of another state.
func (s *State) ReplaceWith(o *State) {
	*s = *o
}

// Choose selects the reaction that fires
// using a value u,
// drawn uniformly in [0, TotalNonSampling).
func (s *State) Choose(u float64) (Reaction, error) {
	u -= s.prop.Infection
	if u < 0 {
		return Infection, nil
	}
	u -= s.prop.Activation
	if u < 0 {
		return Activation, nil
	}
	u -= s.prop.Recovery
	if u < 0 {
		return Recovery, nil
	}
	return 0, fmt.Errorf("%w: event selection fell through: remainder %g of total %g", ErrInvariant, u, s.prop.TotalNonSampling)
}

// Fire applies a reaction to the state.
func (s *State) Fire(r Reaction) error {
	switch r {
	case Infection:
		s.S--
		s.E++
	case Activation:
		s.E--
		s.I++
	case Recovery:
		s.I--
		s.S++
	default:
		return fmt.Errorf("%w: unknown reaction %d", ErrInvariant, int(r))
	}
	if s.S < 0 || s.E < 0 || s.I < 0 {
		return fmt.Errorf("%w: %s produces negative compartment: S=%d E=%d I=%d", ErrInvariant, r, s.S, s.E, s.I)
	}
	return nil
}
