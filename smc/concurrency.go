// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package smc

import (
	"runtime"
	"sync"

	"golang.org/x/exp/rand"
)

type partChanType struct {
	start, end int
	interval   int

	f   *Filter
	rec []Trajectory

	wg *sync.WaitGroup
}

type pool struct {
	cpu      int
	partChan chan partChanType
}

// startPool starts the goroutines
// used to simulate the particles.
// The default (zero) uses all available CPU.
func startPool(cpu int) *pool {
	if cpu <= 0 {
		cpu = runtime.NumCPU()
	}
	p := &pool{
		cpu:      cpu,
		partChan: make(chan partChanType, cpu*2),
	}
	for range cpu {
		go runParticles(p.partChan)
	}
	return p
}

// end closes the goroutines of the pool.
func (p *pool) end() {
	close(p.partChan)
}

// simulate advances all the particles of the filter
// up to the indicated event,
// and waits until all particles are done.
func (p *pool) simulate(f *Filter, interval int, rec []Trajectory) {
	n := len(f.particles)
	partBlock := n/(2*p.cpu) + 1

	var wg sync.WaitGroup
	for i := 0; i < n; i += partBlock {
		wg.Add(1)
		e := min(i+partBlock, n)
		p.partChan <- partChanType{
			start:    i,
			end:      e,
			interval: interval,
			f:        f,
			rec:      rec,
			wg:       &wg,
		}
	}
	wg.Wait()
}

func runParticles(c chan partChanType) {
	src := &rand.PCGSource{}
	rng := rand.New(src)

	for cc := range c {
		f := cc.f
		t0 := f.ev[cc.interval-1].Time
		ev := f.ev[cc.interval]
		for i := cc.start; i < cc.end; i++ {
			// each particle in each interval
			// has its own random stream,
			// so the result does not depend
			// on the number of goroutines.
			src.Seed(streamSeed(f.p.Seed, cc.interval, i))

			var tr *Trajectory
			if cc.rec != nil {
				tr = &cc.rec[i]
			}
			w, err := Advance(&f.particles[i], f.p.Params, f.p.Coalescent, t0, ev, rng, tr)
			f.weights[i] = w
			f.errs[i] = err
		}
		cc.wg.Done()
	}
}

// streamSeed returns the seed of the random stream
// for a particle in an interval.
// The value is mixed with the splitmix64 finalizer.
func streamSeed(seed uint64, interval, particle int) uint64 {
	z := seed
	z = mix(z + uint64(interval)*0x9e3779b97f4a7c15)
	z = mix(z + uint64(particle)*0xbf58476d1ce4e5b9)
	return z
}

func mix(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}
