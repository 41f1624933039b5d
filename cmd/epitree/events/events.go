// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package events implements a command to print
// the event timeline of an epitree project.
package events

import (
	"fmt"
	"io"
	"os"

	"github.com/js-arias/command"
	"github.com/js-arias/epitree/project"
	"github.com/js-arias/epitree/timeline"
)

var Command = &command.Command{
	Usage: `events [--source <name>] [--list]
	[-o|--output <file>] <project-file>`,
	Short: "print the event timeline of a project",
	Long: `
Command events reads the data of an epitree project and prints the timeline of
samples and coalescences used by the particle filter, as a tab-delimited file.

The argument of the command is the name of the project file.

A project can have more than one source of events: the events file, the
observed tree, and each tree of the tree collection. By default, the first
source is used. Use the flag --source to select a source by its name. The
flag --list prints the name of each source and its number of events.

By default, the timeline will be printed in the standard output. Use the flag
--output, or -o, to define an output file.
	`,
	SetFlags: setFlags,
	Run:      run,
}

var source string
var output string
var listFlag bool

func setFlags(c *command.Command) {
	c.Flags().StringVar(&source, "source", "", "")
	c.Flags().StringVar(&output, "output", "", "")
	c.Flags().StringVar(&output, "o", "", "")
	c.Flags().BoolVar(&listFlag, "list", false, "")
}

func run(c *command.Command, args []string) (err error) {
	if len(args) < 1 {
		return c.UsageError("expecting project file")
	}

	p, err := project.Read(args[0])
	if err != nil {
		return err
	}

	if listFlag {
		sets, err := p.EventSets()
		if err != nil {
			return err
		}
		for _, s := range sets {
			fmt.Fprintf(c.Stdout(), "%s\t%d\n", s.Name, len(s.Events))
		}
		return nil
	}

	es, err := p.EventSet(source)
	if err != nil {
		return err
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

	if err := timeline.Write(w, es.Events); err != nil {
		return fmt.Errorf("while writing events of %q: %v", es.Name, err)
	}
	return nil
}
