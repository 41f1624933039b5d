// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package like implements a command to estimate
// the likelihood of the parameters of an epidemic
// using a particle filter.
package like

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"

	"github.com/js-arias/command"
	"github.com/js-arias/epitree/project"
	"github.com/js-arias/epitree/smc"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
)

var Command = &command.Command{
	Usage: `like [--source <name>] [--reps <number>]
	[--particles <number>] [--seed <value>]
	[--summary] [--verbose]
	[--cpu <number>] <project-file>`,
	Short: "estimate the likelihood of epidemic parameters",
	Long: `
Command like reads an epitree project and estimates the log-likelihood of the
parameters of the project given the events of each tree of the project, using
a particle filter.

The argument of the command is the name of the project file.

By default, the likelihood is calculated for all the sources of events of the
project: the events file, the observed tree, and each tree of the tree
collection. Use the flag --source to select a single source by its name.

The particle filter is a stochastic estimation. Use the flag --reps to run
the filter several times over each source, and report the mean and standard
deviation of the log-likelihood.

The flags --particles and --seed override the number of particles and the
seed defined in the parameters of the project.

The flag --summary prints, for each interval between events, the log of the
mean weight and the effective sample size of the particles. The flag
--verbose prints diagnostic messages of the particle filter to the standard
error.

By default, all available CPU will be used in the calculations. Set the flag
--cpu to use a different number of CPUs.
	`,
	SetFlags: setFlags,
	Run:      run,
}

var source string
var numReps int
var numParticles int
var seedFlag uint64
var numCPU int
var summaryFlag bool
var verbose bool

func setFlags(c *command.Command) {
	c.Flags().StringVar(&source, "source", "", "")
	c.Flags().IntVar(&numReps, "reps", 1, "")
	c.Flags().IntVar(&numParticles, "particles", 0, "")
	c.Flags().Uint64Var(&seedFlag, "seed", 0, "")
	c.Flags().IntVar(&numCPU, "cpu", 0, "")
	c.Flags().BoolVar(&summaryFlag, "summary", false, "")
	c.Flags().BoolVar(&verbose, "verbose", false, "")
}

func run(c *command.Command, args []string) error {
	if len(args) < 1 {
		return c.UsageError("expecting project file")
	}
	if numReps < 1 {
		return c.UsageError(fmt.Sprintf("flag --reps: invalid value %d", numReps))
	}

	p, err := project.Read(args[0])
	if err != nil {
		return err
	}

	ep, err := p.Params()
	if err != nil {
		return err
	}
	param := ep.Filter()
	if numParticles > 0 {
		param.Particles = numParticles
	}
	if seedFlag != 0 {
		param.Seed = seedFlag
	}
	param.CPU = numCPU

	if verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			return err
		}
		defer logger.Sync()
		param.Logger = logger
	}

	var sets []project.EventSet
	if source != "" {
		es, err := p.EventSet(source)
		if err != nil {
			return err
		}
		sets = append(sets, es)
	} else {
		sets, err = p.EventSets()
		if err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	w := c.Stdout()
	fmt.Fprintf(w, "# %s\n", param.Params)
	fmt.Fprintf(w, "# particles: %d, coalescent: %s, seed: %d\n", param.Particles, param.Coalescent, param.Seed)
	fmt.Fprintf(w, "source\tevents\tlogLike")
	if numReps > 1 {
		fmt.Fprintf(w, "\tsd\treps")
	}
	fmt.Fprintf(w, "\n")

	for _, es := range sets {
		vals := make([]float64, 0, numReps)
		base := param.Seed
		for r := 0; r < numReps; r++ {
			param.Seed = base + uint64(r)
			f, err := smc.New(es.Events, param)
			if err != nil {
				return fmt.Errorf("source %q: %v", es.Name, err)
			}
			lk, err := f.LogLike(ctx)
			if errors.Is(err, smc.ErrDegenerate) {
				lk = math.Inf(-1)
				if !verbose {
					fmt.Fprintf(c.Stderr(), "warning: source %q: %v\n", es.Name, err)
				}
			} else if err != nil {
				return fmt.Errorf("source %q: %v", es.Name, err)
			}
			vals = append(vals, lk)
			if summaryFlag {
				printSummary(w, es.Name, r, f.Summary())
			}
		}
		param.Seed = base

		if numReps == 1 {
			fmt.Fprintf(w, "%s\t%d\t%.6f\n", es.Name, len(es.Events), vals[0])
			continue
		}
		mean, sd := meanStdDev(vals)
		fmt.Fprintf(w, "%s\t%d\t%.6f\t%.6f\t%d\n", es.Name, len(es.Events), mean, sd, numReps)
	}
	return nil
}

// meanStdDev returns the mean and standard deviation
// of the replicates.
// If a replicate is degenerate,
// the mean is -Inf.
func meanStdDev(vals []float64) (mean, sd float64) {
	for _, v := range vals {
		if math.IsInf(v, -1) {
			return math.Inf(-1), math.NaN()
		}
	}
	return stat.MeanStdDev(vals, nil)
}

func printSummary(w io.Writer, name string, rep int, sum []smc.Interval) {
	fmt.Fprintf(w, "# %s: replicate %d\n", name, rep)
	fmt.Fprintf(w, "# interval\ttime\tkind\tlogMean\tESS\n")
	for _, s := range sum {
		fmt.Fprintf(w, "# %d\t%.6f\t%s\t%.6f\t%.2f\n", s.Index, s.Time, s.Kind, s.LogMean, s.ESS)
	}
}
