// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package seis

import (
	"fmt"
	"strings"
)

// Coalescent is the contribution
// of a coalescence event
// to the weight of a particle.
type Coalescent interface {
	// Coalesce returns the likelihood density of a coalescence
	// given the state of a particle,
	// and updates the state,
	// if the model requires it.
	Coalesce(s *State, p Params) (float64, error)

	// String returns the name of the model.
	String() string
}

// Identity is a coalescent model
// in which a coalescence does not change the weight
// of a particle.
type Identity struct{}

// Coalesce returns 1.
func (Identity) Coalesce(s *State, p Params) (float64, error) {
	return 1, nil
}

func (Identity) String() string {
	return "identity"
}

// Transmission is a coalescent model
// in which a coalescence is an observed infection.
//
// The infection moves an individual from S to E,
// and the weight is the infection propensity
// times the probability that the infection
// joins a particular pair of the n = E+I infected individuals,
// 2/(n(n-1)).
// The weight is 0
// if there are no susceptible individuals,
// or if the number of infected individuals
// is smaller than the number of lineages
// that exist after the event.
type Transmission struct{}

// Coalesce implements the Coalescent interface.
func (Transmission) Coalesce(s *State, p Params) (float64, error) {
	if s.S < 1 {
		return 0, nil
	}
	if err := s.Fire(Infection); err != nil {
		return 0, err
	}
	if err := s.UpdatePropensities(p); err != nil {
		return 0, err
	}

	n := float64(s.E + s.I)
	if n < 2 || s.E+s.I < s.Lineages+1 {
		return 0, nil
	}
	return s.prop.Infection * 2 / (n * (n - 1)), nil
}

func (Transmission) String() string {
	return "transmission"
}

// ParseCoalescent returns the coalescent model
// with the indicated name.
func ParseCoalescent(name string) (Coalescent, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "identity":
		return Identity{}, nil
	case "transmission":
		return Transmission{}, nil
	}
	return nil, fmt.Errorf("%w: unknown coalescent model %q", ErrInput, name)
}
