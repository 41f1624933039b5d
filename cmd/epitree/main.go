// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Epitree is a tool to estimate the likelihood
// of the parameters of an epidemic
// given a transmission tree.
package main

import (
	"github.com/js-arias/command"
	"github.com/js-arias/epitree/cmd/epitree/add"
	"github.com/js-arias/epitree/cmd/epitree/events"
	"github.com/js-arias/epitree/cmd/epitree/like"
	"github.com/js-arias/epitree/cmd/epitree/param"
	"github.com/js-arias/epitree/cmd/epitree/prj"
	"github.com/js-arias/epitree/cmd/epitree/profile"
	"github.com/js-arias/epitree/cmd/epitree/sim"
	"github.com/js-arias/epitree/cmd/epitree/traj"
)

var app = &command.Command{
	Usage: "epitree <command> [<argument>...]",
	Short: "a tool for epidemic likelihood on transmission trees",
}

func init() {
	app.Add(add.Command)
	app.Add(events.Command)
	app.Add(like.Command)
	app.Add(param.Command)
	app.Add(prj.Command)
	app.Add(profile.Command)
	app.Add(sim.Command)
	app.Add(traj.Command)
}

func main() {
	app.Main()
}
