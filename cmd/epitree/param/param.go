// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package param implements a command to manage
// the parameters of the epidemic model.
package param

import (
	"fmt"
	"io"

	"github.com/js-arias/command"
	"github.com/js-arias/epitree/epiparam"
	"github.com/js-arias/epitree/project"
)

var Command = &command.Command{
	Usage: `param [--add <param-file>] [--file <file-name>]
	[--beta <value>] [--alpha <value>] [--gamma <value>]
	[--psi <value>] [--n <value>]
	[--particles <value>] [--coalescent <model>] [--seed <value>]
	<project-file>`,
	Short: "manage epidemic model parameters",
	Long: `
Command param manages the parameters of the epidemic model and the particle
filter defined for an epitree project.

The argument of the command is the name of the project file.

By default, the command will print the currently defined parameters.

If the flag --add is defined, it will use the indicated file for the
parameters.

By default, any change on the parameters will be stored in the current
parameters file. If the project does not have a parameters file, a new one
will be created with the name 'params.tab'. Use the flag --file to define a
new parameters file.

The flags --beta, --alpha, --gamma, and --psi set the infection, activation,
recovery, and sampling rates. The flag --n sets the population size. The
flag --particles sets the number of particles of the filter. The flag
--coalescent sets the model used to weight the coalescences, valid values are:

	- identity      coalescences do not change the weight of a particle
	- transmission  a coalescence is an observed infection

The flag --seed sets the seed for the random numbers. If the seed is 0, a new
seed will be used in each run.

Type 'epitree help param-files' to learn more about the parameters file.
	`,
	SetFlags: setFlags,
	Run:      run,
}

var addFile string
var paramFile string

// values stores the flags of the parameters
// in the same order of the parameter file.
var values = []struct {
	p epiparam.Param
	v string
}{
	{p: epiparam.Beta},
	{p: epiparam.Alpha},
	{p: epiparam.Gamma},
	{p: epiparam.Psi},
	{p: epiparam.N},
	{p: epiparam.Particles},
	{p: epiparam.Coalescent},
	{p: epiparam.Seed},
}

func setFlags(c *command.Command) {
	c.Flags().StringVar(&addFile, "add", "", "")
	c.Flags().StringVar(&paramFile, "file", "", "")
	for i := range values {
		c.Flags().StringVar(&values[i].v, string(values[i].p), "", "")
	}
}

func run(c *command.Command, args []string) error {
	if len(args) < 1 {
		return c.UsageError("expecting project file")
	}

	p, err := project.Read(args[0])
	if err != nil {
		return err
	}

	if addFile != "" {
		if _, err := epiparam.Read(addFile); err != nil {
			return err
		}
		p.Add(project.Params, addFile)
		if err := p.Write(); err != nil {
			return err
		}
		return nil
	}

	ep, err := p.Params()
	if err != nil {
		return err
	}
	if ep.Name() == "" {
		ep.SetName("params.tab")
	}
	if paramFile != "" {
		ep.SetName(paramFile)
	}

	ed := false
	for _, v := range values {
		if v.v == "" {
			continue
		}
		if err := ep.Set(v.p, v.v); err != nil {
			return fmt.Errorf("flag --%s: %v", v.p, err)
		}
		ed = true
	}

	if p.Path(project.Params) != ep.Name() {
		if err := ep.Write(); err != nil {
			return err
		}
		p.Add(project.Params, ep.Name())
		if err := p.Write(); err != nil {
			return err
		}
		return nil
	}
	if ed {
		if err := ep.Write(); err != nil {
			return err
		}
		return nil
	}

	printParams(c.Stdout(), ep)
	return nil
}

func printParams(w io.Writer, ep *epiparam.EP) {
	p := ep.Params()
	fmt.Fprintf(w, "file:       %s\n", ep.Name())
	fmt.Fprintf(w, "beta:       %g\n", p.Beta)
	fmt.Fprintf(w, "alpha:      %g\n", p.Alpha)
	fmt.Fprintf(w, "gamma:      %g\n", p.Gamma)
	fmt.Fprintf(w, "psi:        %g\n", p.Psi)
	fmt.Fprintf(w, "N:          %d\n", p.N)
	fmt.Fprintf(w, "particles:  %d\n", ep.Particles())
	fmt.Fprintf(w, "coalescent: %s\n", ep.Coalescent())
	if s := ep.Seed(); s != 0 {
		fmt.Fprintf(w, "seed:       %d\n", s)
	}
}
