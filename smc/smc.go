// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package smc implements a sequential Monte Carlo
// (particle filter)
// estimation of the likelihood
// of the parameters of an epidemic model
// given the events of a transmission tree.
package smc

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/js-arias/epitree/seis"
	"github.com/js-arias/epitree/timeline"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// ErrDegenerate is returned when all the particles
// of an interval have a weight of zero.
var ErrDegenerate = errors.New("degenerate particle filter")

// A DegenerateError is the error returned
// when all particle weights of an interval are zero.
type DegenerateError struct {
	// Interval is the index of the event
	// that closes the interval.
	Interval int

	Time float64
	Kind timeline.Kind

	Particles int
	Params    seis.Params
}

func (e *DegenerateError) Error() string {
	return fmt.Sprintf("%v: all %d particle weights are zero at interval %d (%s at time %g) with %s", ErrDegenerate, e.Particles, e.Interval, e.Kind, e.Time, e.Params)
}

func (e *DegenerateError) Unwrap() error {
	return ErrDegenerate
}

// Param is a collection of parameters
// for the initialization of a filter.
type Param struct {
	// Model parameters
	Params seis.Params

	// Number of particles
	Particles int

	// Coalescent model,
	// if nil,
	// coalescences are ignored
	// (the Identity model).
	Coalescent seis.Coalescent

	// Seed of the random number streams.
	// Two runs with the same seed
	// and the same parameters
	// return the same likelihood.
	Seed uint64

	// CPU is the number of goroutines
	// used to simulate the particles.
	// The default (zero) uses all available CPU.
	CPU int

	// If Record is true,
	// the trajectories of all particles are stored.
	Record bool

	// Logger for diagnostic messages,
	// if nil,
	// no message is logged.
	Logger *zap.Logger
}

// An Interval is the summary of an interval
// of the filter.
type Interval struct {
	// Index of the event
	// that closes the interval.
	Index int

	Time float64
	Kind timeline.Kind

	// LogMean is the logarithm of the mean weight
	// of the particles.
	LogMean float64

	// ESS is the effective sample size
	// of the particle weights.
	ESS float64
}

// A Filter is a particle filter
// over the events of a tree.
type Filter struct {
	ev []timeline.Event
	p  Param

	// double buffer of particles
	particles []seis.State
	next      []seis.State

	weights []float64
	errs    []error
	sampler distuv.Categorical
	src     *rand.PCGSource

	traj    [][]Trajectory
	summary []Interval
	logLike float64
}

// New creates a new filter for a sequence of events
// sorted by time.
func New(ev []timeline.Event, p Param) (*Filter, error) {
	if err := p.Params.Validate(); err != nil {
		return nil, err
	}
	if p.Particles < 1 {
		return nil, fmt.Errorf("%w: number of particles: %d", seis.ErrInput, p.Particles)
	}
	if len(ev) == 0 {
		return nil, fmt.Errorf("%w: empty event list", timeline.ErrInput)
	}
	for i, e := range ev {
		if math.IsNaN(e.Time) || math.IsInf(e.Time, 0) {
			return nil, fmt.Errorf("%w: event %d: invalid time %g", timeline.ErrInput, i, e.Time)
		}
	}
	if !slices.IsSortedFunc(ev, func(a, b timeline.Event) int {
		if a.Time < b.Time {
			return -1
		}
		if a.Time > b.Time {
			return 1
		}
		return 0
	}) {
		return nil, fmt.Errorf("%w: events not sorted by time", timeline.ErrInput)
	}
	if p.Coalescent == nil {
		p.Coalescent = seis.Identity{}
	}
	if p.Logger == nil {
		p.Logger = zap.NewNop()
	}

	f := &Filter{
		ev:        slices.Clone(ev),
		p:         p,
		particles: make([]seis.State, p.Particles),
		next:      make([]seis.State, p.Particles),
		weights:   make([]float64, p.Particles),
		errs:      make([]error, p.Particles),
		src:       &rand.PCGSource{},
	}
	return f, nil
}

// LogLike runs the particle filter
// and returns the natural logarithm
// of the likelihood estimate.
//
// The context is checked before each interval.
// If all the particles of an interval have a weight of zero,
// it returns a *DegenerateError.
func (f *Filter) LogLike(ctx context.Context) (float64, error) {
	f.logLike = 0
	f.summary = f.summary[:0]
	f.traj = nil
	if f.p.Record {
		f.traj = make([][]Trajectory, len(f.ev)-1)
	}

	// the first event sets the seed state
	seed := seis.Seed(f.p.Params)
	updateLineages(&seed, f.ev[0].Kind)
	for i := range f.particles {
		f.particles[i] = seed
	}

	pool := startPool(f.p.CPU)
	defer pool.end()

	for i := 1; i < len(f.ev); i++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		var rec []Trajectory
		if f.p.Record {
			rec = make([]Trajectory, len(f.particles))
			f.traj[i-1] = rec
		}
		pool.simulate(f, i, rec)
		for _, err := range f.errs {
			if err != nil {
				return 0, fmt.Errorf("interval %d: %w", i, err)
			}
		}

		sum := floats.Sum(f.weights)
		if math.IsNaN(sum) || math.IsInf(sum, 0) {
			return 0, fmt.Errorf("%w: interval %d: invalid sum of weights %g", seis.ErrInvariant, i, sum)
		}
		if sum == 0 {
			err := &DegenerateError{
				Interval:  i,
				Time:      f.ev[i].Time,
				Kind:      f.ev[i].Kind,
				Particles: len(f.particles),
				Params:    f.p.Params,
			}
			f.p.Logger.Warn("degenerate particle filter",
				zap.Int("interval", i),
				zap.Float64("time", f.ev[i].Time),
				zap.Stringer("kind", f.ev[i].Kind),
				zap.Stringer("params", f.p.Params),
			)
			return 0, err
		}

		logMean := math.Log(stat.Mean(f.weights, nil))
		f.logLike += logMean

		// normalize
		floats.Scale(1/sum, f.weights)
		ess := 1 / floats.Dot(f.weights, f.weights)
		f.summary = append(f.summary, Interval{
			Index:   i,
			Time:    f.ev[i].Time,
			Kind:    f.ev[i].Kind,
			LogMean: logMean,
			ESS:     ess,
		})
		f.p.Logger.Debug("interval",
			zap.Int("interval", i),
			zap.Float64("time", f.ev[i].Time),
			zap.Stringer("kind", f.ev[i].Kind),
			zap.Float64("logMean", logMean),
			zap.Float64("ess", ess),
		)

		if i < len(f.ev)-1 {
			f.resample(i)
		}
	}

	return f.logLike, nil
}

// resample draws a new generation of particles
// with replacement,
// using the normalized weights.
func (f *Filter) resample(interval int) {
	f.src.Seed(streamSeed(f.p.Seed, interval, len(f.particles)))
	if f.sampler.Len() != len(f.weights) {
		f.sampler = distuv.NewCategorical(f.weights, f.src)
	} else {
		f.sampler.ReweightAll(f.weights)
	}

	for i := range f.next {
		j := int(f.sampler.Rand())
		f.next[i].ReplaceWith(&f.particles[j])
	}
	f.particles, f.next = f.next, f.particles
}

// LogLikelihood returns the log likelihood
// of the last run of the filter.
func (f *Filter) LogLikelihood() float64 {
	return f.logLike
}

// Events returns the number of events of the filter.
func (f *Filter) Events() int {
	return len(f.ev)
}

// Summary returns the summary of each interval
// of the last run of the filter.
func (f *Filter) Summary() []Interval {
	return slices.Clone(f.summary)
}

// Trajectories returns the trajectories of the particles
// in the interval that ends with the indicated event.
// It returns nil if the trajectories were not recorded.
func (f *Filter) Trajectories(event int) []Trajectory {
	if event < 1 || event > len(f.traj) {
		return nil
	}
	return f.traj[event-1]
}
