// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package add implements a command to add data files
// to an epitree project.
package add

import (
	"errors"
	"fmt"
	"os"

	"github.com/js-arias/command"
	"github.com/js-arias/epitree/epiparam"
	"github.com/js-arias/epitree/project"
	"github.com/js-arias/epitree/tree"
	"github.com/js-arias/timetree"
)

var Command = &command.Command{
	Usage: `add [--tree <file>] [--trees <file>]
	[--events <file>] [--params <file>]
	<project-file>`,
	Short: "add data files to an epitree project",
	Long: `
Command add reads one or more data files, checks that they are valid, and adds
them to an epitree project.

The argument of the command is the name of the project file. If no project
file exists, a new project will be created.

The flag --tree sets the observed tree, in Newick or Nexus format. The flag
--trees sets a tab-delimited file with a collection of time calibrated trees.
The flag --events sets an event file, either a flat file or a tab-delimited
file. The flag --params sets the parameter file.

If a file was already defined for a dataset, it will be replaced by the new
file.
	`,
	SetFlags: setFlags,
	Run:      run,
}

var treeFile string
var treesFile string
var eventsFile string
var paramsFile string

func setFlags(c *command.Command) {
	c.Flags().StringVar(&treeFile, "tree", "", "")
	c.Flags().StringVar(&treesFile, "trees", "", "")
	c.Flags().StringVar(&eventsFile, "events", "", "")
	c.Flags().StringVar(&paramsFile, "params", "", "")
}

func run(c *command.Command, args []string) error {
	if len(args) < 1 {
		return c.UsageError("expecting project file")
	}
	if treeFile == "" && treesFile == "" && eventsFile == "" && paramsFile == "" {
		return c.UsageError("expecting at least one data file")
	}

	p, err := openProject(args[0])
	if err != nil {
		return err
	}

	if treeFile != "" {
		t, err := readTree(treeFile)
		if err != nil {
			return err
		}
		p.Add(project.Tree, treeFile)
		fmt.Fprintf(c.Stdout(), "tree %q: %d samples, origin %.6f\n", treeFile, len(t.Leaves()), t.Origin())
	}

	if treesFile != "" {
		tc, err := readTreeCollection(treesFile)
		if err != nil {
			return err
		}
		p.Add(project.Trees, treesFile)
		fmt.Fprintf(c.Stdout(), "trees %q: %d trees\n", treesFile, len(tc.Names()))
	}

	if eventsFile != "" {
		prev := p.Add(project.Events, eventsFile)
		ev, err := p.Events()
		if err != nil {
			p.Add(project.Events, prev)
			return err
		}
		fmt.Fprintf(c.Stdout(), "events %q: %d events\n", eventsFile, len(ev))
	}

	if paramsFile != "" {
		if _, err := epiparam.Read(paramsFile); err != nil {
			return err
		}
		p.Add(project.Params, paramsFile)
	}

	if err := p.Write(); err != nil {
		return err
	}
	return nil
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

func readTree(name string) (*tree.Tree, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t, err := tree.Read(f)
	if err != nil {
		return nil, fmt.Errorf("on file %q: %v", name, err)
	}
	return t, nil
}

func readTreeCollection(name string) (*timetree.Collection, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	c, err := timetree.ReadTSV(f)
	if err != nil {
		return nil, fmt.Errorf("while reading file %q: %v", name, err)
	}
	return c, nil
}
