// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package epiparam_test

import (
	"errors"
	"os"
	"testing"

	"github.com/js-arias/epitree/epiparam"
	"github.com/js-arias/epitree/seis"
)

func TestEpiParam(t *testing.T) {
	name := "tmp-epi-parameters-for-test.tab"
	ep := epiparam.New(name)
	testEP(t, ep, nil, name)

	if err := ep.SetParams(seis.Params{Beta: 0.002, Alpha: 0.5, Gamma: 0.25, Psi: 0.05, N: 500}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ep.SetParticles(250); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ep.SetCoalescent("Transmission"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ep.SetSeed(42)

	defer os.Remove(name)
	if err := ep.Write(); err != nil {
		t.Fatalf("error when writing data: %v", err)
	}

	np, err := epiparam.Read(name)
	if err != nil {
		t.Fatalf("error when reading data: %v", err)
	}
	testEP(t, np, ep, name)
}

func TestSetError(t *testing.T) {
	ep := epiparam.New("params.tab")

	tests := map[epiparam.Param]string{
		epiparam.Beta:       "-0.1",
		epiparam.Alpha:      "fast",
		epiparam.N:          "0",
		epiparam.Particles:  "-10",
		epiparam.Coalescent: "kingman",
		epiparam.Seed:       "-1",
	}
	for p, v := range tests {
		if err := ep.Set(p, v); !errors.Is(err, seis.ErrInput) {
			t.Errorf("%s=%s: got error %v, want %v", p, v, err, seis.ErrInput)
		}
	}
	testEP(t, ep, epiparam.New("params.tab"), "params.tab")

	if err := ep.Set("unknown", "1"); err != nil {
		t.Errorf("unknown parameter: unexpected error: %v", err)
	}
}

func TestReadError(t *testing.T) {
	name := "tmp-bad-epi-parameters-for-test.tab"
	data := "parameter\tvalue\nbeta\t0.1\npsi\tnone\n"
	if err := os.WriteFile(name, []byte(data), 0644); err != nil {
		t.Fatalf("unable to write file: %v", err)
	}
	defer os.Remove(name)

	if _, err := epiparam.Read(name); !errors.Is(err, seis.ErrInput) {
		t.Errorf("bad psi: got error %v, want %v", err, seis.ErrInput)
	}
}

func testEP(t testing.TB, ep, want *epiparam.EP, name string) {
	t.Helper()

	if want == nil {
		want = epiparam.New(name)
	}

	if ep.Name() != want.Name() {
		t.Errorf("name: got %q, want %q", ep.Name(), want.Name())
	}
	if ep.Params() != want.Params() {
		t.Errorf("params: got %v, want %v", ep.Params(), want.Params())
	}
	if ep.Particles() != want.Particles() {
		t.Errorf("particles: got %d, want %d", ep.Particles(), want.Particles())
	}
	if ep.Coalescent().String() != want.Coalescent().String() {
		t.Errorf("coalescent: got %q, want %q", ep.Coalescent(), want.Coalescent())
	}
	if ep.Seed() != want.Seed() {
		t.Errorf("seed: got %d, want %d", ep.Seed(), want.Seed())
	}
}

func TestFilter(t *testing.T) {
	ep := epiparam.New("params.tab")
	ep.SetSeed(7)
	if err := ep.SetCoalescent("transmission"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p := ep.Filter()
	if p.Params != ep.Params() {
		t.Errorf("params: got %v, want %v", p.Params, ep.Params())
	}
	if p.Particles != ep.Particles() {
		t.Errorf("particles: got %d, want %d", p.Particles, ep.Particles())
	}
	if p.Seed != 7 {
		t.Errorf("seed: got %d, want %d", p.Seed, 7)
	}
	if _, ok := p.Coalescent.(seis.Transmission); !ok {
		t.Errorf("coalescent: got %v, want %v", p.Coalescent, seis.Transmission{})
	}

	ep.SetSeed(0)
	if p := ep.Filter(); p.Seed == 0 {
		t.Errorf("clock seed: got 0")
	}
}
