// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package sim implements a command to simulate
// random trees.
package sim

import (
	"bufio"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/js-arias/command"
	"github.com/js-arias/epitree/epiparam"
	"github.com/js-arias/epitree/outbreak"
	"github.com/js-arias/epitree/project"
	"github.com/js-arias/epitree/tree"
	"github.com/js-arias/timetree"
	"github.com/js-arias/timetree/simulate"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

var Command = &command.Command{
	Usage: `sim [-o|--output <prefix>] [--params <file>]
	[--trees <number>] [--terms <range>] [--time <value>]
	[--yule] [--age <range>]
	[--seed <value>] [<project-file>]`,
	Short: "simulate random trees",
	Long: `
Command sim creates one or more random transmission trees by simulating a SEIS
epidemic forward in time. The trees can be used to test the particle filter.

The epidemic starts with a single infectious individual. Each infectious
individual is sampled at rate psi; a sampled individual leaves the infectious
compartment and becomes a leaf of the tree. Internal nodes of the tree are the
transmissions between sampled lineages.

The parameters of the epidemic are read from the parameter file set with the
flag --params. If no file is given, the parameters of the project are used,
and if there is no project, the default parameters are used.

By default, 10 trees will be created. Use the flag --trees to define a
different number of trees.

By default, each tree will have between 10 and 30 samples. Use the flag
--terms to define a range. The range can be a single number (all simulated
trees will have the indicated number of samples) or a range separated by a
comma; for example, "10,30" defines the default range. For each tree a
number of samples in the range is drawn, and the simulation stops when that
number of samples is reached. Simulations that end with fewer samples are
discarded.

The flag --time sets a time limit for each simulation. If the limit is
reached, the tree is kept if it has at least the minimum number of samples.
By default, there is no time limit.

If the flag --yule is set, the trees are created using a Yule process. In that
case, the flag --age defines the range of the root age, in time units of the
tree. By default, the range is "1,5". The birth rate of the Yule process is
defined as rate = (ln(terms) - ln(2)) / rootAge. Yule trees are also written
into a tab-delimited tree file, with the name <prefix>-trees.tab.

The flag --seed sets the seed of the simulations. If 0, the default, a seed is
taken from the clock. Two runs with the same seed and parameters produce the
same trees. With --yule, the seed only controls the root age and the number of
samples of each tree, as the shape of the tree is drawn by the Yule simulator
of the time tree library.

The trees are written as Newick trees, one per line, with the name
<prefix>.nwk. By default the prefix is "sim". Use the flag --output, or -o,
to define a different prefix. A summary of each simulation is printed in the
standard output.

If a project file is given as argument, the Newick file will be added to the
project as the observed tree (the first tree of the file is used), or, with
--yule, the tree file will be added as the tree collection. If a parameter
file is given, it will be added to the project. If no project file exists, a
new project will be created.
	`,
	SetFlags: setFlags,
	Run:      run,
}

var output string
var paramFile string
var ageFlag string
var termFlag string
var timeFlag float64
var numTrees int
var seedFlag uint64
var yuleFlag bool

func setFlags(c *command.Command) {
	c.Flags().StringVar(&output, "output", "sim", "")
	c.Flags().StringVar(&output, "o", "sim", "")
	c.Flags().StringVar(&paramFile, "params", "", "")
	c.Flags().StringVar(&ageFlag, "age", "1,5", "")
	c.Flags().StringVar(&termFlag, "terms", "10,30", "")
	c.Flags().Float64Var(&timeFlag, "time", 0, "")
	c.Flags().IntVar(&numTrees, "trees", 10, "")
	c.Flags().Uint64Var(&seedFlag, "seed", 0, "")
	c.Flags().BoolVar(&yuleFlag, "yule", false, "")
}

// maxTries is the number of simulations
// tried for each tree.
const maxTries = 1000

func run(c *command.Command, args []string) error {
	if numTrees < 1 {
		return c.UsageError(fmt.Sprintf("flag --trees: invalid value %d", numTrees))
	}
	if timeFlag < 0 || math.IsNaN(timeFlag) || math.IsInf(timeFlag, 0) {
		return c.UsageError(fmt.Sprintf("flag --time: invalid value %g", timeFlag))
	}

	minTerm, maxTerm, err := parseIntRange(termFlag)
	if err != nil {
		return fmt.Errorf("flag --terms: %v", err)
	}
	if minTerm < 2 {
		return fmt.Errorf("flag --terms: expecting at least 2 samples")
	}

	seed := seedFlag
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	src := rand.NewSource(seed)
	termDist := distuv.Uniform{Min: float64(minTerm), Max: float64(maxTerm) + 1, Src: src}
	drawTerms := func() int {
		if maxTerm > minTerm {
			return min(int(termDist.Rand()), maxTerm)
		}
		return maxTerm
	}

	var p *project.Project
	if len(args) > 0 {
		p, err = openProject(args[0])
		if err != nil {
			return err
		}
	}

	if yuleFlag {
		treeFile, err := simYule(src, drawTerms, minTerm, maxTerm)
		if err != nil {
			return err
		}
		if p == nil {
			return nil
		}
		p.Add(project.Trees, treeFile)
		return p.Write()
	}

	ep, err := readParams(p)
	if err != nil {
		return err
	}
	if err := simSEIS(c, ep, rand.New(src), drawTerms, minTerm); err != nil {
		return err
	}
	if p == nil {
		return nil
	}
	p.Add(project.Tree, output+".nwk")
	if paramFile != "" {
		p.Add(project.Params, paramFile)
	}
	return p.Write()
}

func readParams(p *project.Project) (*epiparam.EP, error) {
	if paramFile != "" {
		return epiparam.Read(paramFile)
	}
	if p != nil {
		return p.Params()
	}
	return epiparam.New(""), nil
}

func simSEIS(c *command.Command, ep *epiparam.EP, rng *rand.Rand, drawTerms func() int, minTerm int) error {
	param := outbreak.Param{
		Params:  ep.Params(),
		MaxTime: timeFlag,
	}

	trees := make([]*tree.Tree, 0, numTrees)
	fmt.Fprintf(c.Stdout(), "# %s\n", param.Params)
	fmt.Fprintf(c.Stdout(), "tree\tsamples\tend\tS\tE\tI\n")
	for i := 0; i < numTrees; i++ {
		param.MaxSamples = drawTerms()

		var o *outbreak.Outbreak
		for try := 0; ; try++ {
			if try >= maxTries {
				return fmt.Errorf("tree %d: no simulation with at least %d samples after %d tries", i, minTerm, maxTries)
			}
			var err error
			o, err = outbreak.Simulate(param, rng)
			if errors.Is(err, outbreak.ErrNoTree) {
				continue
			}
			if err != nil {
				return err
			}
			if len(o.Samples) >= minTerm {
				break
			}
		}
		trees = append(trees, o.Tree)
		fmt.Fprintf(c.Stdout(), "%d\t%d\t%.6f\t%d\t%d\t%d\n", i, len(o.Samples), o.End, o.Final.S, o.Final.E, o.Final.I)
	}

	return writeNewick(output+".nwk", trees)
}

func simYule(src rand.Source, drawTerms func() int, minTerm, maxTerm int) (string, error) {
	minAge, maxAge, err := parseFloatRange(ageFlag)
	if err != nil {
		return "", fmt.Errorf("flag --age: %v", err)
	}
	if minAge <= 0 {
		return "", fmt.Errorf("flag --age: invalid age %g", minAge)
	}
	ageDist := distuv.Uniform{Min: minAge, Max: maxAge, Src: src}

	coll := timetree.NewCollection()
	for i := 0; i < numTrees; i++ {
		name := fmt.Sprintf("random-%d", i)

		var t *timetree.Tree
		for {
			age := maxAge
			if maxAge > minAge {
				age = ageDist.Rand()
			}
			root := int64(age * tree.MillionYears)

			terms := drawTerms()
			rate := (math.Log(float64(terms)) - math.Log(2)) / age
			var ok bool
			t, ok = simulate.Yule(name, rate, root, maxTerm*2)
			if !ok {
				continue
			}
			if tm := len(t.Terms()); tm >= minTerm && tm <= maxTerm {
				break
			}
		}
		t.Format()
		if err := coll.Add(t); err != nil {
			return "", err
		}
	}

	treeFile := output + "-trees.tab"
	if err := writeCollection(treeFile, coll); err != nil {
		return "", err
	}

	trees := make([]*tree.Tree, 0, numTrees)
	for _, tn := range coll.Names() {
		trees = append(trees, tree.FromTimetree(coll.Tree(tn)))
	}
	if err := writeNewick(output+".nwk", trees); err != nil {
		return "", err
	}
	return treeFile, nil
}

func openProject(name string) (*project.Project, error) {
	p, err := project.Read(name)
	if errors.Is(err, os.ErrNotExist) {
		p := project.New()
		p.SetName(name)
		return p, nil
	}
	if err != nil {
		return nil, fmt.Errorf("unable to open project %q: %v", name, err)
	}
	return p, nil
}

func writeCollection(name string, c *timetree.Collection) (err error) {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	defer func() {
		e := f.Close()
		if e != nil && err == nil {
			err = e
		}
	}()

	if err := c.TSV(f); err != nil {
		return fmt.Errorf("while writing to %q: %v", name, err)
	}
	return nil
}

func writeNewick(name string, trees []*tree.Tree) (err error) {
	f, err := os.Create(name)
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
	for _, t := range trees {
		fmt.Fprintf(bw, "%s\n", t.Newick())
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("while writing to %q: %v", name, err)
	}
	return nil
}

func parseFloatRange(s string) (min, max float64, err error) {
	f := strings.Split(s, ",")
	if len(f) == 1 {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid range %q: %v", s, err)
		}
		return v, v, nil
	}

	if len(f) != 2 {
		return 0, 0, fmt.Errorf("invalid range %q: expecting two values", s)
	}

	min, err = strconv.ParseFloat(f[0], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid range %q: %v", s, err)
	}
	max, err = strconv.ParseFloat(f[1], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid range %q: %v", s, err)
	}

	if max < min {
		min, max = max, min
	}
	return min, max, nil
}

func parseIntRange(s string) (min, max int, err error) {
	f := strings.Split(s, ",")
	if len(f) == 1 {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid range %q: %v", s, err)
		}
		return v, v, nil
	}

	if len(f) != 2 {
		return 0, 0, fmt.Errorf("invalid range %q: expecting two values", s)
	}

	min, err = strconv.Atoi(f[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid range %q: %v", s, err)
	}
	max, err = strconv.Atoi(f[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid range %q: %v", s, err)
	}

	if max < min {
		min, max = max, min
	}
	return min, max, nil
}
