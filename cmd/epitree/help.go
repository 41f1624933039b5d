// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package main

import "github.com/js-arias/command"

func init() {
	app.Add(eventFilesGuide)
	app.Add(paramFilesGuide)
	app.Add(projectsGuide)
	app.Add(treeFilesGuide)
}

var projectsGuide = &command.Command{
	Usage: "projects",
	Short: "about project files",
	Long: `
Epitree reads several files to estimate the likelihood of an epidemic. To
reduce the burden of keeping track of many files, a single project file is
used to hold the reference of all files required in the analysis. This guide
explains the structure of the file, but most of the time, the best way to edit
or view this file is by using epitree commands.

A project file is a tab-delimited file with the following fields:

	- dataset  for the kind of file
	- path     for the path of the file

Here is an example file:

	# epitree project files
	dataset	path
	events	events.txt
	params	params.tab
	tree	flu.nwk

The valid file types are:

- Observed tree. Defined by the dataset keyword "tree". This file contains a
  single tree in Newick or Nexus format. The recommended way to add a tree is
  by using the command 'epitree add'.
- Tree collections. Defined by the dataset keyword "trees". This file contains
  one or more time-calibrated trees in the form of a tab-delimited file. It
  is usually created with the command 'epitree sim --yule'.
- Event timelines. Defined by the dataset keyword "events". This file
  contains the ages of the samples and coalescences, either as a flat file or
  as a tab-delimited file. The recommended way to add an event file is by
  using the command 'epitree add --events'.
- Parameters. Defined by the dataset keyword "params". This file contains the
  parameters of the epidemic model and the particle filter. The recommended
  way to edit the parameters is by using the command 'epitree param'.
	`,
}

var treeFilesGuide = &command.Command{
	Usage: "tree-files",
	Short: "about tree files",
	Long: `
The observed tree of an epitree project is stored in Newick format, as a
parenthetical expression ended by a semicolon. Branch lengths are given after
a colon, and a node without a length has a branch of length 0. Node labels
can be quoted with single or double quotes, and a node can have annotations
in square brackets with the form [&key=value,key=value], placed before the
branch length. For example:

	((A:1.0,B:2.0)ab:0.5,'C d'[&type=I]:2.5):1;

Trees can also be read from a Nexus file. In that case, the first "tree"
statement of the file is used, and a rooting comment ([&R] or [&U]) is
ignored.

The time of each node is measured forward, from the start of the root
branch. Samples (leaves) and coalescences (internal nodes) are converted into
an event timeline, sorted by time.

Time-calibrated trees can be stored in a tab-delimited file, with the
following columns:

	-tree    for the name of the tree.
	-node    for the ID of the node.
	-parent  for of ID of the parent node (-1 is used for the root).
	-age     the age of the node (in years).
	-taxon   the name of the node.

In an epitree project, the file that contains the observed tree is indicated
with the "tree" keyword, and the file with time calibrated trees is indicated
with the "trees" keyword.
	`,
}

var eventFilesGuide = &command.Command{
	Usage: "event-files",
	Short: "about event files",
	Long: `
An event file contains the samples and coalescences of a tree, without the
topology.

The flat form is a file with two columns separated by spaces: the age of the
event (measured backwards from the present) and a flag that is "0" for
samples, and any other value for coalescences. Lines starting with '#' are
ignored. Here is an example file:

	# age flag
	3.5 1
	2.0 1
	1.0 0
	0.0 0
	0.0 0

The tab-delimited form has the following columns:

	- event  the index of the event
	- time   the time of the event, measured from the oldest event
	- kind   either "sample" or "coalescence"
	- label  an optional label

Here is an example file:

	# event timeline
	event	time	kind	label
	0	0.000000	coalescence
	1	0.500000	coalescence
	2	1.500000	sample	A
	3	1.500000	sample	B
	4	1.500000	sample	C

In an epitree project, the file that contains the events is indicated with
the "events" keyword.
	`,
}

var paramFilesGuide = &command.Command{
	Usage: "param-files",
	Short: "about parameter files",
	Long: `
The parameters of the epidemic model and the particle filter are stored in a
tab-delimited file with the following fields:

	- parameter  the name of the parameter
	- value      the value of the parameter

The parameters are:

	- beta        the infection rate (default 0.01)
	- alpha       the activation rate (default 0.1)
	- gamma       the recovery rate (default 0.1)
	- psi         the sampling rate (default 0.1)
	- n           the population size (default 100)
	- particles   the number of particles (default 1000)
	- coalescent  the coalescent model, either "identity" or
	              "transmission" (default identity)
	- seed        the seed of the random numbers, 0 means that a new seed
	              is used on each run (default 0)

Here is an example file:

	# epitree parameters
	parameter	value
	beta	0.01
	alpha	0.1
	gamma	0.1
	psi	0.1
	n	100
	particles	1000
	coalescent	identity
	seed	0

In an epitree project, the file that contains the parameters is indicated
with the "params" keyword.
	`,
}
