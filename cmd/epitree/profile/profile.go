// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package profile implements a command to estimate
// the likelihood profile
// of a parameter of an epidemic.
package profile

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/js-arias/command"
	"github.com/js-arias/epitree/epiparam"
	"github.com/js-arias/epitree/project"
	"github.com/js-arias/epitree/smc"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

var Command = &command.Command{
	Usage: `profile --param <name> --range <min,max>
	[--steps <number>] [--source <name>]
	[--particles <number>] [--seed <value>]
	[-o|--output <file>] [--plot <file>]
	[--cpu <number>] <project-file>`,
	Short: "estimate a likelihood profile",
	Long: `
Command profile reads an epitree project and estimates the log-likelihood of
the parameters of the project over a grid of values of one parameter, keeping
the other parameters fixed.

The argument of the command is the name of the project file.

The flag --param is required and defines the parameter to be evaluated. Valid
values are "beta", "alpha", "gamma", "psi", and "n". The flag --range is
required and defines the range of values, as two numbers separated by a comma,
for example "0.001,0.1". By default 20 values are evaluated, use the flag
--steps to define a different number.

By default, the first source of events of the project is used. Use the flag
--source to select a different source.

The flags --particles and --seed override the number of particles and the
seed defined in the parameters of the project. The same seed is used for all
values of the grid.

By default, the profile will be printed in the standard output as a
tab-delimited table. Use the flag --output, or -o, to define an output file.
Use the flag --plot to define the name of an image file (in PNG format) with
the plot of the profile.

By default, all available CPU will be used in the calculations. Set the flag
--cpu to use a different number of CPUs.
	`,
	SetFlags: setFlags,
	Run:      run,
}

var paramFlag string
var rangeFlag string
var numSteps int
var source string
var numParticles int
var seedFlag uint64
var output string
var plotFile string
var numCPU int

func setFlags(c *command.Command) {
	c.Flags().StringVar(&paramFlag, "param", "", "")
	c.Flags().StringVar(&rangeFlag, "range", "", "")
	c.Flags().IntVar(&numSteps, "steps", 20, "")
	c.Flags().StringVar(&source, "source", "", "")
	c.Flags().IntVar(&numParticles, "particles", 0, "")
	c.Flags().Uint64Var(&seedFlag, "seed", 0, "")
	c.Flags().StringVar(&output, "output", "", "")
	c.Flags().StringVar(&output, "o", "", "")
	c.Flags().StringVar(&plotFile, "plot", "", "")
	c.Flags().IntVar(&numCPU, "cpu", 0, "")
}

type point struct {
	value   float64
	logLike float64
}

func run(c *command.Command, args []string) (err error) {
	if len(args) < 1 {
		return c.UsageError("expecting project file")
	}

	pn := epiparam.Param(strings.ToLower(paramFlag))
	switch pn {
	case epiparam.Beta, epiparam.Alpha, epiparam.Gamma, epiparam.Psi, epiparam.N:
	case "":
		return c.UsageError("flag --param undefined")
	default:
		return c.UsageError(fmt.Sprintf("flag --param: unknown parameter %q", paramFlag))
	}
	if rangeFlag == "" {
		return c.UsageError("flag --range undefined")
	}
	min, max, err := parseRange(rangeFlag)
	if err != nil {
		return fmt.Errorf("flag --range: %v", err)
	}
	if numSteps < 1 {
		return c.UsageError(fmt.Sprintf("flag --steps: invalid value %d", numSteps))
	}

	p, err := project.Read(args[0])
	if err != nil {
		return err
	}
	es, err := p.EventSet(source)
	if err != nil {
		return err
	}
	ep, err := p.Params()
	if err != nil {
		return err
	}
	if numParticles > 0 {
		if err := ep.SetParticles(numParticles); err != nil {
			return fmt.Errorf("flag --particles: %v", err)
		}
	}
	seed := ep.Filter().Seed
	if seedFlag != 0 {
		seed = seedFlag
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	pts := make([]point, 0, numSteps)
	for i := 0; i < numSteps; i++ {
		v := min
		if numSteps > 1 {
			v = min + (max-min)*float64(i)/float64(numSteps-1)
		}
		vs := strconv.FormatFloat(v, 'g', -1, 64)
		if pn == epiparam.N {
			v = math.Round(v)
			vs = strconv.Itoa(int(v))
		}
		if err := ep.Set(pn, vs); err != nil {
			return fmt.Errorf("flag --range: %v", err)
		}

		param := ep.Filter()
		param.Seed = seed
		param.CPU = numCPU
		f, err := smc.New(es.Events, param)
		if err != nil {
			return err
		}
		lk, err := f.LogLike(ctx)
		if errors.Is(err, smc.ErrDegenerate) {
			lk = math.Inf(-1)
		} else if err != nil {
			return err
		}
		pts = append(pts, point{value: v, logLike: lk})
	}

	if plotFile != "" {
		if err := plotProfile(pts, pn, es.Name); err != nil {
			return err
		}
	}

	var w io.Writer = c.Stdout()
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return err
		}
		defer func() {
			e := f.Close()
			if e != nil && err == nil {
				err = e
			}
		}()
		w = f
	}
	if err := writeProfile(w, pts, pn, es.Name, seed); err != nil {
		return fmt.Errorf("while writing profile: %v", err)
	}
	return nil
}

func parseRange(s string) (min, max float64, err error) {
	v := strings.Split(s, ",")
	min, err = strconv.ParseFloat(strings.TrimSpace(v[0]), 64)
	if err != nil {
		return 0, 0, err
	}
	if len(v) < 2 {
		return min, min, nil
	}
	max, err = strconv.ParseFloat(strings.TrimSpace(v[1]), 64)
	if err != nil {
		return 0, 0, err
	}
	if max < min {
		min, max = max, min
	}
	return min, max, nil
}

func writeProfile(w io.Writer, pts []point, pn epiparam.Param, name string, seed uint64) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# likelihood profile of %s\n", pn)
	fmt.Fprintf(bw, "# events: %s\n", name)
	fmt.Fprintf(bw, "# seed: %d\n", seed)
	fmt.Fprintf(bw, "# data save on: %s\n", time.Now().Format(time.RFC3339))

	tsv := csv.NewWriter(bw)
	tsv.Comma = '\t'
	tsv.UseCRLF = true

	if err := tsv.Write([]string{string(pn), "logLike"}); err != nil {
		return err
	}
	for _, pt := range pts {
		row := []string{
			strconv.FormatFloat(pt.value, 'g', -1, 64),
			strconv.FormatFloat(pt.logLike, 'f', 6, 64),
		}
		if err := tsv.Write(row); err != nil {
			return err
		}
	}

	tsv.Flush()
	if err := tsv.Error(); err != nil {
		return err
	}
	return bw.Flush()
}

func plotProfile(pts []point, pn epiparam.Param, name string) error {
	xys := make(plotter.XYs, 0, len(pts))
	for _, pt := range pts {
		if math.IsInf(pt.logLike, 0) {
			continue
		}
		xys = append(xys, plotter.XY{X: pt.value, Y: pt.logLike})
	}
	if len(xys) == 0 {
		return fmt.Errorf("all values of %s are degenerate", pn)
	}

	p := plot.New()
	p.Title.Text = name
	p.X.Label.Text = string(pn)
	p.Y.Label.Text = "log likelihood"

	ln, sc, err := plotter.NewLinePoints(xys)
	if err != nil {
		return err
	}
	p.Add(ln, sc)

	if err := p.Save(6*vg.Inch, 4*vg.Inch, plotFile); err != nil {
		return err
	}
	return nil
}
