// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package tree_test

import (
	"errors"
	"math"
	"reflect"
	"slices"
	"strings"
	"testing"

	"github.com/js-arias/epitree/tree"
	"github.com/js-arias/timetree"
)

const tolerance = 1e-9

func TestParse(t *testing.T) {
	tr, err := tree.Parse("((A:1,B:2)ab:0.5,'C d'[&type=\"I\",x=1]:2.5):1;")
	if err != nil {
		t.Fatalf("unable to parse tree: %v", err)
	}

	if n := tr.Len(); n != 5 {
		t.Errorf("nodes: got %d, want %d", n, 5)
	}

	root := tr.Root()
	if !root.IsRoot() {
		t.Errorf("root: node is not a root")
	}
	if !root.HasLength() || root.BranchLength() != 1 {
		t.Errorf("root branch: got %.6f, want %.6f", root.BranchLength(), 1.0)
	}

	want := map[string]struct {
		time, height float64
	}{
		"A":   {2.5, 1},
		"B":   {3.5, 0},
		"ab":  {1.5, 2},
		"C d": {3.5, 0},
		"":    {1, 2.5},
	}
	for _, n := range tr.Nodes() {
		w, ok := want[n.Label()]
		if !ok {
			t.Errorf("unexpected node %q", n.Label())
			continue
		}
		if math.Abs(n.Time()-w.time) > tolerance {
			t.Errorf("node %q: time: got %.6f, want %.6f", n.Label(), n.Time(), w.time)
		}
		if math.Abs(n.Height()-w.height) > tolerance {
			t.Errorf("node %q: height: got %.6f, want %.6f", n.Label(), n.Height(), w.height)
		}
	}

	if o := tr.Origin(); math.Abs(o-3.5) > tolerance {
		t.Errorf("origin: got %.6f, want %.6f", o, 3.5)
	}

	c := root.Children()[1]
	if c.Label() != "C d" {
		t.Fatalf("second child: got %q, want %q", c.Label(), "C d")
	}
	if v := c.Annotation("type"); v != "I" {
		t.Errorf("annotation %q: got %q, want %q", "type", v, "I")
	}
	if keys := c.Annotations(); !reflect.DeepEqual(keys, []string{"type", "x"}) {
		t.Errorf("annotations: got %v, want %v", keys, []string{"type", "x"})
	}
}

func TestParseLeaves(t *testing.T) {
	tr, err := tree.Parse("(A,B);")
	if err != nil {
		t.Fatalf("unable to parse tree: %v", err)
	}

	leaves := tr.Leaves()
	if len(leaves) != 2 {
		t.Fatalf("leaves: got %d, want %d", len(leaves), 2)
	}
	for i, name := range []string{"A", "B"} {
		l := leaves[i]
		if l.Label() != name {
			t.Errorf("leaf %d: got %q, want %q", i, l.Label(), name)
		}
		if l.HasLength() || l.BranchLength() != 0 {
			t.Errorf("leaf %q: got branch length %.6f, want 0", name, l.BranchLength())
		}
		if l.Parent() != tr.Root() {
			t.Errorf("leaf %q: parent is not the root", name)
		}
	}

	// only the first tree is returned
	tr, err = tree.Parse("(A,B);\n(C,(D,E));\n")
	if err != nil {
		t.Fatalf("unable to parse trees: %v", err)
	}
	if got := len(tr.Leaves()); got != 2 {
		t.Errorf("leaves of first tree: got %d, want %d", got, 2)
	}
}

func TestParseError(t *testing.T) {
	tests := map[string]string{
		"missing closing": "(A,B",
		"missing semi":    "(A,B)",
		"unknown char":    "(A,B)#;",
		"annotation":      "(A[&x],B);",
		"branch":          "(A:,B);",
		"bad length":      "(A:x1,B);",
		"negative length": "(A:-1,B);",
		"after semi":      "(A,B);)",
		"second tree":     "(A,B);(C,D",
	}

	for name, s := range tests {
		_, err := tree.Parse(s)
		if err == nil {
			t.Errorf("%s: expecting error for %q", name, s)
			continue
		}
		var pe *tree.ParseError
		if !errors.As(err, &pe) {
			t.Errorf("%s: got error %v, want a ParseError", name, err)
		}
	}
}

func TestTimeMonotonicity(t *testing.T) {
	tr, err := tree.Parse("(((A:1,B:0.5):2,(C:0.1,D:3):0.2):1,E:4.5);")
	if err != nil {
		t.Fatalf("unable to parse tree: %v", err)
	}

	var maxTime float64
	for _, n := range tr.Nodes() {
		if n.Time() > maxTime {
			maxTime = n.Time()
		}
		p := n.Parent()
		if p == nil {
			continue
		}
		if n.Time() < p.Time() {
			t.Errorf("node %q: time %.6f before parent time %.6f", n.Label(), n.Time(), p.Time())
		}
	}

	for _, n := range tr.Nodes() {
		if n.Height() < 0 {
			t.Errorf("node %q: negative height %.6f", n.Label(), n.Height())
		}
		if n.Time() == maxTime && n.Height() != 0 {
			t.Errorf("node %q: most recent node with height %.6f", n.Label(), n.Height())
		}
	}
}

func TestNewick(t *testing.T) {
	src := "((A:1,B:2)ab:0.5,'C d'[&type=I]:2.5):1;"
	tr, err := tree.Parse(src)
	if err != nil {
		t.Fatalf("unable to parse tree: %v", err)
	}

	nw := tr.Newick()
	t.Logf("newick: %s", nw)
	nt, err := tree.Parse(nw)
	if err != nil {
		t.Fatalf("unable to parse output tree %q: %v", nw, err)
	}
	testSameTree(t, nt, tr)

	// labels with quotes
	src = `((A:1,'it''s "B"'[&note='a''b"c']:2):0.5,"o'C":1);`
	tr, err = tree.Parse(src)
	if err != nil {
		t.Fatalf("unable to parse tree: %v", err)
	}
	leaves := tr.Leaves()
	want := []string{"A", `it's "B"`, "o'C"}
	for i, l := range leaves {
		if l.Label() != want[i] {
			t.Errorf("leaf %d: got label %q, want %q", i, l.Label(), want[i])
		}
	}
	if v := leaves[1].Annotation("note"); v != `a'b"c` {
		t.Errorf("annotation: got %q, want %q", v, `a'b"c`)
	}
	nw = tr.Newick()
	nt, err = tree.Parse(nw)
	if err != nil {
		t.Fatalf("unable to parse output tree %q: %v", nw, err)
	}
	testSameTree(t, nt, tr)
}

func TestReadNexus(t *testing.T) {
	nexus := `#NEXUS
begin trees;
	tree TREE1 = [&R] ((A:1,B:1):0.5,C:1.5);
end;
`
	tr, err := tree.Read(strings.NewReader(nexus))
	if err != nil {
		t.Fatalf("unable to read nexus: %v", err)
	}
	if n := len(tr.Leaves()); n != 3 {
		t.Errorf("leaves: got %d, want %d", n, 3)
	}
	if o := tr.Origin(); math.Abs(o-1.5) > tolerance {
		t.Errorf("origin: got %.6f, want %.6f", o, 1.5)
	}

	nw, err := tree.Read(strings.NewReader("\n((A:1,B:1):0.5,\n C:1.5);\n"))
	if err != nil {
		t.Fatalf("unable to read newick: %v", err)
	}
	testSameTree(t, nw, tr)

	if _, err := tree.Read(strings.NewReader("#nexus\nbegin trees;\nend;\n")); err == nil {
		t.Errorf("nexus without trees: expecting error")
	}
}

func TestFromTimetree(t *testing.T) {
	c, err := timetree.Newick(strings.NewReader("((A:10,B:10):5,C:15);"), "test", 0)
	if err != nil {
		t.Fatalf("unable to read timetree: %v", err)
	}
	names := c.Names()
	if len(names) != 1 {
		t.Fatalf("trees: got %d, want %d", len(names), 1)
	}

	tr := tree.FromTimetree(c.Tree(names[0]))
	var leaves []string
	for _, l := range tr.Leaves() {
		leaves = append(leaves, l.Label())
		if l.Height() > tolerance {
			t.Errorf("leaf %q: height %.6f, want 0", l.Label(), l.Height())
		}
	}
	slices.Sort(leaves)
	if want := []string{"A", "B", "C"}; !reflect.DeepEqual(leaves, want) {
		t.Errorf("leaves: got %v, want %v", leaves, want)
	}
	if h := tr.Root().Height(); math.Abs(h-15) > tolerance {
		t.Errorf("root height: got %.6f, want %.6f", h, 15.0)
	}
	if o := tr.Origin(); math.Abs(o-15) > tolerance {
		t.Errorf("origin: got %.6f, want %.6f", o, 15.0)
	}
}

// testSameTree compares the labels,
// branch lengths,
// and topology of two trees.
func testSameTree(t testing.TB, got, want *tree.Tree) {
	t.Helper()

	g := got.Nodes()
	w := want.Nodes()
	if len(g) != len(w) {
		t.Fatalf("nodes: got %d, want %d", len(g), len(w))
	}
	for i := range w {
		if g[i].Label() != w[i].Label() {
			t.Errorf("node %d: label: got %q, want %q", i, g[i].Label(), w[i].Label())
		}
		if math.Abs(g[i].BranchLength()-w[i].BranchLength()) > tolerance {
			t.Errorf("node %d: branch length: got %.6f, want %.6f", i, g[i].BranchLength(), w[i].BranchLength())
		}
		if len(g[i].Children()) != len(w[i].Children()) {
			t.Errorf("node %d: children: got %d, want %d", i, len(g[i].Children()), len(w[i].Children()))
		}
		for _, k := range w[i].Annotations() {
			if g[i].Annotation(k) != w[i].Annotation(k) {
				t.Errorf("node %d: annotation %q: got %q, want %q", i, k, g[i].Annotation(k), w[i].Annotation(k))
			}
		}
	}
}
