// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package prj implements a command to print
// the basic information of a project.
package prj

import (
	"fmt"
	"io"
	"math"

	"github.com/js-arias/command"
	"github.com/js-arias/epitree/project"
	"github.com/js-arias/epitree/timeline"
	"github.com/js-arias/epitree/tree"
)

var Command = &command.Command{
	Usage: "prj <project-file>",
	Short: "print information about a project",
	Long: `
Command prj reads an epitree project and prints the information of the
different project elements into the standard output.

The argument of the command is the name of the project file.
	`,
	Run: run,
}

func run(c *command.Command, args []string) error {
	if len(args) < 1 {
		return c.UsageError("expecting project file")
	}

	p, err := project.Read(args[0])
	if err != nil {
		return err
	}
	w := c.Stdout()

	if name := p.Path(project.Tree); name != "" {
		t, err := p.Tree()
		if err != nil {
			return err
		}
		printTree(w, name, t)
	}

	if name := p.Path(project.Trees); name != "" {
		tc, err := p.Trees()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "Tree collection:\n")
		fmt.Fprintf(w, "\tfile: %s\n", name)
		fmt.Fprintf(w, "\ttrees: %d\n", len(tc.Names()))
		fmt.Fprintf(w, "\n")
	}

	if name := p.Path(project.Events); name != "" {
		ev, err := p.Events()
		if err != nil {
			return err
		}
		printEvents(w, name, ev)
	}

	ep, err := p.Params()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Parameters:\n")
	if name := ep.Name(); name != "" {
		fmt.Fprintf(w, "\tfile: %s\n", name)
	} else {
		fmt.Fprintf(w, "\tfile: undefined (using defaults)\n")
	}
	fmt.Fprintf(w, "\tmodel: %s\n", ep.Params())
	fmt.Fprintf(w, "\tparticles: %d\n", ep.Particles())
	fmt.Fprintf(w, "\tcoalescent: %s\n", ep.Coalescent())
	fmt.Fprintf(w, "\n")

	return nil
}

func printTree(w io.Writer, name string, t *tree.Tree) {
	fmt.Fprintf(w, "Tree:\n")
	fmt.Fprintf(w, "\tfile: %s\n", name)
	fmt.Fprintf(w, "\tnodes: %d\n", t.Len())
	fmt.Fprintf(w, "\tsamples: %d\n", len(t.Leaves()))
	fmt.Fprintf(w, "\theight: %.6f\n", t.Root().Height())
	fmt.Fprintf(w, "\torigin: %.6f\n", t.Origin())
	fmt.Fprintf(w, "\n")
}

func printEvents(w io.Writer, name string, ev []timeline.Event) {
	var samples int
	max := -math.MaxFloat64
	for _, e := range ev {
		if e.Kind == timeline.Sample {
			samples++
		}
		if e.Time > max {
			max = e.Time
		}
	}
	fmt.Fprintf(w, "Events:\n")
	fmt.Fprintf(w, "\tfile: %s\n", name)
	fmt.Fprintf(w, "\tsamples: %d\n", samples)
	fmt.Fprintf(w, "\tcoalescences: %d\n", len(ev)-samples)
	fmt.Fprintf(w, "\ttime span: %.6f\n", max-ev[0].Time)
	fmt.Fprintf(w, "\n")
}
