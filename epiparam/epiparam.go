// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package epiparam implements reading and writing
// of the parameters of the epidemic model
// and the particle filter.
package epiparam

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/js-arias/epitree/seis"
	"github.com/js-arias/epitree/smc"
)

// Param is a keyword to identify
// the type of parameter in a parameter file.
type Param string

// Valid parameters
const (
	// Beta is the infection rate.
	Beta Param = "beta"

	// Alpha is the activation rate.
	Alpha Param = "alpha"

	// Gamma is the recovery rate.
	Gamma Param = "gamma"

	// Psi is the sampling rate.
	Psi Param = "psi"

	// N is the population size.
	N Param = "n"

	// Particles is the number of particles
	// of the filter.
	Particles Param = "particles"

	// Coalescent is the name of the coalescent model.
	Coalescent Param = "coalescent"

	// Seed is the seed of the random number streams.
	// A zero value means that a new seed is used
	// on each run.
	Seed Param = "seed"
)

// EP represents a collection of parameters
// of an epidemic.
type EP struct {
	name string // file name

	p         seis.Params
	particles int
	coal      string
	seed      uint64
}

// New creates a new parameter collection
// with default values.
func New(name string) *EP {
	return &EP{
		name: name,
		p: seis.Params{
			Beta:  0.01,
			Alpha: 0.1,
			Gamma: 0.1,
			Psi:   0.1,
			N:     100,
		},
		particles: 1000,
		coal:      "identity",
	}
}

var header = []string{
	"parameter",
	"value",
}

// Read reads a parameter file from a TSV file.
//
// The TSV must contains the following fields:
//
//   - parameter, the name of the parameter
//   - value, the value of the parameter
//
// Parameters not defined in the file
// retain its default value.
//
// Here is an example file:
//
//	# epitree parameters
//	parameter	value
//	beta	0.01
//	alpha	0.1
//	gamma	0.1
//	psi	0.1
//	n	100
//	particles	1000
//	coalescent	identity
//	seed	0
func Read(name string) (*EP, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ep, err := read(f, name)
	if err != nil {
		return nil, fmt.Errorf("on file %q: %w", name, err)
	}
	return ep, nil
}

func read(r io.Reader, name string) (*EP, error) {
	tsv := csv.NewReader(r)
	tsv.Comma = '\t'
	tsv.Comment = '#'

	head, err := tsv.Read()
	if err != nil {
		return nil, fmt.Errorf("header: %v", err)
	}
	fields := make(map[string]int, len(head))
	for i, h := range head {
		h = strings.ToLower(h)
		fields[h] = i
	}
	for _, h := range header {
		if _, ok := fields[h]; !ok {
			return nil, fmt.Errorf("expecting field %q", h)
		}
	}

	ep := New(name)
	for {
		row, err := tsv.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		ln, _ := tsv.FieldPos(0)
		if err != nil {
			return nil, fmt.Errorf("on row %d: %v", ln, err)
		}

		f := "parameter"
		p := Param(strings.ToLower(strings.TrimSpace(row[fields[f]])))

		f = "value"
		v := strings.TrimSpace(row[fields[f]])
		if err := ep.Set(p, v); err != nil {
			return nil, fmt.Errorf("on row %d, field %q: %w", ln, f, err)
		}
	}
	if err := ep.p.Validate(); err != nil {
		return nil, err
	}
	return ep, nil
}

// Set sets a parameter from a string value.
// Unknown parameters are ignored.
func (ep *EP) Set(p Param, v string) error {
	switch p {
	case Beta:
		return ep.setRate(&ep.p.Beta, p, v)
	case Alpha:
		return ep.setRate(&ep.p.Alpha, p, v)
	case Gamma:
		return ep.setRate(&ep.p.Gamma, p, v)
	case Psi:
		return ep.setRate(&ep.p.Psi, p, v)
	case N:
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", seis.ErrInput, p, err)
		}
		return ep.SetN(n)
	case Particles:
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", seis.ErrInput, p, err)
		}
		return ep.SetParticles(n)
	case Coalescent:
		return ep.SetCoalescent(v)
	case Seed:
		s, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", seis.ErrInput, p, err)
		}
		ep.seed = s
	}
	return nil
}

func (ep *EP) setRate(dst *float64, p Param, v string) error {
	r, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", seis.ErrInput, p, err)
	}
	old := *dst
	*dst = r
	if err := ep.p.Validate(); err != nil {
		*dst = old
		return err
	}
	return nil
}

// Coalescent returns the coalescent model.
func (ep *EP) Coalescent() seis.Coalescent {
	c, err := seis.ParseCoalescent(ep.coal)
	if err != nil {
		return seis.Identity{}
	}
	return c
}

// Name returns the name of the parameter file.
func (ep *EP) Name() string {
	return ep.name
}

// Params returns the parameters of the epidemic model.
func (ep *EP) Params() seis.Params {
	return ep.p
}

// Filter returns the parameters of a particle filter.
// If the seed is 0,
// a seed is taken from the clock.
func (ep *EP) Filter() smc.Param {
	seed := ep.seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return smc.Param{
		Params:     ep.p,
		Particles:  ep.particles,
		Coalescent: ep.Coalescent(),
		Seed:       seed,
	}
}

// Particles returns the number of particles
// of the filter.
func (ep *EP) Particles() int {
	return ep.particles
}

// Seed returns the seed of the random number streams.
func (ep *EP) Seed() uint64 {
	return ep.seed
}

// SetCoalescent sets the coalescent model.
func (ep *EP) SetCoalescent(name string) error {
	c, err := seis.ParseCoalescent(name)
	if err != nil {
		return err
	}
	ep.coal = c.String()
	return nil
}

// SetN sets the population size.
func (ep *EP) SetN(n int) error {
	if n < 1 {
		return fmt.Errorf("%w: population size: %d", seis.ErrInput, n)
	}
	ep.p.N = n
	return nil
}

// SetName sets the name of a parameter collection.
func (ep *EP) SetName(name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	ep.name = name
}

// SetParams sets the parameters of the epidemic model.
func (ep *EP) SetParams(p seis.Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	ep.p = p
	return nil
}

// SetParticles sets the number of particles.
func (ep *EP) SetParticles(n int) error {
	if n < 1 {
		return fmt.Errorf("%w: number of particles: %d", seis.ErrInput, n)
	}
	ep.particles = n
	return nil
}

// SetSeed sets the seed of the random number streams.
func (ep *EP) SetSeed(s uint64) {
	ep.seed = s
}

// Write writes a parameter collection into a file.
func (ep *EP) Write() (err error) {
	f, err := os.Create(ep.name)
	if err != nil {
		return err
	}
	defer func() {
		e := f.Close()
		if e != nil && err == nil {
			err = e
		}
	}()

	bw := bufio.NewWriter(f)
	fmt.Fprintf(bw, "# epitree parameters\n")
	fmt.Fprintf(bw, "# data save on: %s\n", time.Now().Format(time.RFC3339))
	tsv := csv.NewWriter(bw)
	tsv.Comma = '\t'
	tsv.UseCRLF = true

	if err := tsv.Write(header); err != nil {
		return fmt.Errorf("on file %q: while writing header: %v", ep.name, err)
	}

	rows := [][]string{
		{string(Beta), strconv.FormatFloat(ep.p.Beta, 'g', -1, 64)},
		{string(Alpha), strconv.FormatFloat(ep.p.Alpha, 'g', -1, 64)},
		{string(Gamma), strconv.FormatFloat(ep.p.Gamma, 'g', -1, 64)},
		{string(Psi), strconv.FormatFloat(ep.p.Psi, 'g', -1, 64)},
		{string(N), strconv.Itoa(ep.p.N)},
		{string(Particles), strconv.Itoa(ep.particles)},
		{string(Coalescent), ep.coal},
		{string(Seed), strconv.FormatUint(ep.seed, 10)},
	}
	for _, row := range rows {
		if err := tsv.Write(row); err != nil {
			return fmt.Errorf("on file %q: %v", ep.name, err)
		}
	}

	tsv.Flush()
	if err := tsv.Error(); err != nil {
		return fmt.Errorf("on file %q: while writing data: %v", ep.name, err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("on file %q: while writing data: %v", ep.name, err)
	}
	return nil
}
