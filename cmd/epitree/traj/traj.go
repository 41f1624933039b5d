// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package traj implements a command to write
// the trajectories of the particles
// of a particle filter.
package traj

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/js-arias/blind"
	"github.com/js-arias/command"
	"github.com/js-arias/epitree/project"
	"github.com/js-arias/epitree/smc"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

var Command = &command.Command{
	Usage: `traj [--source <name>]
	[-p|--particles <number>] [--seed <value>]
	[-o|--output <file>] [--plot <file>] [--lines <number>]
	[--cpu <number>] <project-file>`,
	Short: "write the trajectories of the particles",
	Long: `
Command traj reads an epitree project, runs the particle filter, and writes
the states visited by each particle in each interval between events.

The argument of the command is the name of the project file.

By default, the first source of events of the project is used. Use the flag
--source to select a different source.

As the trajectories of all particles are stored in memory, by default only
100 particles are used. Use the flag --particles, or -p, to define a different
number. The flag --seed overrides the seed defined in the parameters of the
project.

By default, the trajectories will be printed in the standard output as a
tab-delimited table with the following columns:

	- interval  the index of the event that closes the interval
	- particle  the index of the particle
	- time      the time of the state
	- S         the number of susceptible individuals
	- E         the number of exposed individuals
	- I         the number of infectious individuals

Use the flag --output, or -o, to define an output file.

Use the flag --plot to define the name of an image file (in PNG format) with
the number of infectious individuals over time. By default, 20 particles are
drawn, use the flag --lines to define a different number.

By default, all available CPU will be used in the calculations. Set the flag
--cpu to use a different number of CPUs.
	`,
	SetFlags: setFlags,
	Run:      run,
}

var source string
var numParticles int
var seedFlag uint64
var output string
var plotFile string
var numLines int
var numCPU int

func setFlags(c *command.Command) {
	c.Flags().StringVar(&source, "source", "", "")
	c.Flags().IntVar(&numParticles, "particles", 100, "")
	c.Flags().IntVar(&numParticles, "p", 100, "")
	c.Flags().Uint64Var(&seedFlag, "seed", 0, "")
	c.Flags().StringVar(&output, "output", "", "")
	c.Flags().StringVar(&output, "o", "", "")
	c.Flags().StringVar(&plotFile, "plot", "", "")
	c.Flags().IntVar(&numLines, "lines", 20, "")
	c.Flags().IntVar(&numCPU, "cpu", 0, "")
}

func run(c *command.Command, args []string) (err error) {
	if len(args) < 1 {
		return c.UsageError("expecting project file")
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

	param := ep.Filter()
	param.Particles = numParticles
	if seedFlag != 0 {
		param.Seed = seedFlag
	}
	param.CPU = numCPU
	param.Record = true

	f, err := smc.New(es.Events, param)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	lk, err := f.LogLike(ctx)
	if err != nil {
		return err
	}

	if plotFile != "" {
		if err := plotTrajectories(f, es.Name); err != nil {
			return err
		}
	}

	var w io.Writer = c.Stdout()
	if output != "" {
		out, err := os.Create(output)
		if err != nil {
			return err
		}
		defer func() {
			e := out.Close()
			if e != nil && err == nil {
				err = e
			}
		}()
		w = out
	}
	if err := writeTrajectories(w, f, es.Name, lk, param.Seed); err != nil {
		return fmt.Errorf("while writing trajectories: %v", err)
	}
	return nil
}

func writeTrajectories(w io.Writer, f *smc.Filter, name string, logLike float64, seed uint64) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# particle trajectories\n")
	fmt.Fprintf(bw, "# events: %s\n", name)
	fmt.Fprintf(bw, "# seed: %d, log likelihood: %.6f\n", seed, logLike)
	fmt.Fprintf(bw, "# data save on: %s\n", time.Now().Format(time.RFC3339))

	tsv := csv.NewWriter(bw)
	tsv.Comma = '\t'
	tsv.UseCRLF = true

	if err := tsv.Write([]string{"interval", "particle", "time", "S", "E", "I"}); err != nil {
		return err
	}
	for i := 1; i < f.Events(); i++ {
		for j, tr := range f.Trajectories(i) {
			for _, pt := range tr {
				row := []string{
					strconv.Itoa(i),
					strconv.Itoa(j),
					strconv.FormatFloat(pt.Time, 'f', 6, 64),
					strconv.Itoa(pt.S),
					strconv.Itoa(pt.E),
					strconv.Itoa(pt.I),
				}
				if err := tsv.Write(row); err != nil {
					return err
				}
			}
		}
	}

	tsv.Flush()
	if err := tsv.Error(); err != nil {
		return err
	}
	return bw.Flush()
}

func plotTrajectories(f *smc.Filter, name string) error {
	p := plot.New()
	p.Title.Text = name
	p.X.Label.Text = "time"
	p.Y.Label.Text = "infectious"

	lines := min(numLines, numParticles)
	for i := 1; i < f.Events(); i++ {
		traj := f.Trajectories(i)
		for j := 0; j < lines && j < len(traj); j++ {
			tr := traj[j]
			xys := make(plotter.XYs, 0, 2*len(tr))
			for k, pt := range tr {
				// step function
				if k > 0 {
					xys = append(xys, plotter.XY{X: pt.Time, Y: float64(tr[k-1].I)})
				}
				xys = append(xys, plotter.XY{X: pt.Time, Y: float64(pt.I)})
			}
			ln, err := plotter.NewLine(xys)
			if err != nil {
				return err
			}
			v := 0.0
			if lines > 1 {
				v = float64(j) / float64(lines-1)
			}
			ln.LineStyle.Color = blind.Sequential(blind.Iridescent, v)
			ln.LineStyle.Width = vg.Points(0.5)
			p.Add(ln)
		}
	}

	if err := p.Save(6*vg.Inch, 4*vg.Inch, plotFile); err != nil {
		return err
	}
	return nil
}
