// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package timeline_test

import (
	"bytes"
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/js-arias/epitree/timeline"
	"github.com/js-arias/epitree/tree"
)

func TestFromTree(t *testing.T) {
	tr, err := tree.Parse("((A:1,B:1)ab:0.5,(C:0.5,D:1.5)cd:0):1;")
	if err != nil {
		t.Fatalf("unable to parse tree: %v", err)
	}

	ev := timeline.FromTree(tr)
	want := []timeline.Event{
		{Time: 1, Kind: timeline.Coalescence},
		{Time: 1, Kind: timeline.Coalescence, Label: "cd"},
		{Time: 1.5, Kind: timeline.Coalescence, Label: "ab"},
		{Time: 1.5, Kind: timeline.Sample, Label: "C"},
		{Time: 2.5, Kind: timeline.Sample, Label: "A"},
		{Time: 2.5, Kind: timeline.Sample, Label: "B"},
		{Time: 2.5, Kind: timeline.Sample, Label: "D"},
	}
	testEvents(t, "from tree", ev, want)
}

func TestReadFlat(t *testing.T) {
	in := `# age flag
0.0 0
2.0 1
3.5 1
0.0 0
1.0 0
`
	ev, err := timeline.ReadFlat(strings.NewReader(in))
	if err != nil {
		t.Fatalf("unable to read events: %v", err)
	}

	want := []timeline.Event{
		{Time: 0, Kind: timeline.Coalescence},
		{Time: 1.5, Kind: timeline.Coalescence},
		{Time: 2.5, Kind: timeline.Sample},
		{Time: 3.5, Kind: timeline.Sample},
		{Time: 3.5, Kind: timeline.Sample},
	}
	testEvents(t, "flat", ev, want)
}

func TestReadFlatError(t *testing.T) {
	tests := map[string]string{
		"one field": "1.0\n",
		"bad age":   "x 0\n",
		"empty":     "# nothing\n",
	}
	for name, in := range tests {
		_, err := timeline.ReadFlat(strings.NewReader(in))
		if !errors.Is(err, timeline.ErrInput) {
			t.Errorf("%s: got error %v, want %v", name, err, timeline.ErrInput)
		}
	}
}

func TestTSV(t *testing.T) {
	want := []timeline.Event{
		{Time: 0, Kind: timeline.Coalescence},
		{Time: 0.5, Kind: timeline.Coalescence},
		{Time: 1.5, Kind: timeline.Sample, Label: "A"},
		{Time: 1.5, Kind: timeline.Sample, Label: "B"},
	}

	var buf bytes.Buffer
	if err := timeline.Write(&buf, want); err != nil {
		t.Fatalf("unable to write data: %v", err)
	}

	ev, err := timeline.Read(&buf)
	if err != nil {
		t.Logf("input data:\n%s\n", buf.String())
		t.Fatalf("unable to read data: %v", err)
	}
	testEvents(t, "tsv", ev, want)

	bad := map[string]string{
		"infinite time": "event\ttime\tkind\n0\t0\tsample\n1\tInf\tsample\n",
		"NaN time":      "event\ttime\tkind\n0\tNaN\tsample\n",
		"bad kind":      "event\ttime\tkind\n0\t1\tleaf-node\n",
		"no kind":       "event\ttime\n0\t1\n",
	}
	for name, in := range bad {
		if _, err := timeline.Read(strings.NewReader(in)); !errors.Is(err, timeline.ErrInput) {
			t.Errorf("%s: got error %v, want %v", name, err, timeline.ErrInput)
		}
	}
}

func testEvents(t testing.TB, name string, got, want []timeline.Event) {
	t.Helper()

	if len(got) != len(want) {
		t.Fatalf("%s: got %d events, want %d", name, len(got), len(want))
	}
	for i, e := range got {
		w := want[i]
		if math.Abs(e.Time-w.Time) > 1e-9 {
			t.Errorf("%s: event %d: time: got %.6f, want %.6f", name, i, e.Time, w.Time)
		}
		e.Time = w.Time
		if !reflect.DeepEqual(e, w) {
			t.Errorf("%s: event %d: got %v, want %v", name, i, e, w)
		}
	}
}
