// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package project

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/js-arias/epitree/epiparam"
	"github.com/js-arias/epitree/timeline"
	"github.com/js-arias/epitree/tree"
	"github.com/js-arias/timetree"
)

// Events returns the event timeline
// as defined in a project.
//
// If the project defines an events file,
// the events are read from that file,
// either as a TSV file
// or as a flat file of ages and flags.
// Otherwise the events are taken from the tree
// of the project.
func (p *Project) Events() ([]timeline.Event, error) {
	name := p.Path(Events)
	if name == "" {
		t, err := p.Tree()
		if err != nil {
			return nil, err
		}
		return timeline.FromTree(t), nil
	}

	data, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}

	var ev []timeline.Event
	if isFlat(data) {
		ev, err = timeline.ReadFlat(bytes.NewReader(data))
	} else {
		ev, err = timeline.Read(bytes.NewReader(data))
	}
	if err != nil {
		return nil, fmt.Errorf("on file %q: %w", name, err)
	}
	return ev, nil
}

// isFlat returns true if the first data line
// of an events file
// is not a TSV header.
func isFlat(data []byte) bool {
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		ln := strings.TrimSpace(sc.Text())
		if ln == "" || strings.HasPrefix(ln, "#") {
			continue
		}
		return !strings.Contains(strings.ToLower(ln), "kind")
	}
	return true
}

// Params reads the parameters file
// as defined in a project.
// If no file is defined,
// it returns the default parameters.
func (p *Project) Params() (*epiparam.EP, error) {
	name := p.Path(Params)
	if name == "" {
		return epiparam.New(""), nil
	}
	return epiparam.Read(name)
}

// Tree reads the observed tree
// as defined in a project.
func (p *Project) Tree() (*tree.Tree, error) {
	name := p.Path(Tree)
	if name == "" {
		return nil, fmt.Errorf("tree not defined in project %q", p.name)
	}

	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t, err := tree.Read(f)
	if err != nil {
		return nil, fmt.Errorf("on file %q: %w", name, err)
	}
	return t, nil
}

// Trees reads a collection of time calibrated trees
// as defined in a project.
func (p *Project) Trees() (*timetree.Collection, error) {
	name := p.Path(Trees)
	if name == "" {
		return nil, fmt.Errorf("trees not defined in project %q", p.name)
	}

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

// An EventSet is a named event timeline.
type EventSet struct {
	Name   string
	Events []timeline.Event
}

// EventSets returns all the event timelines
// defined in a project:
// the events file,
// the tree,
// and each tree of the tree collection,
// in that order.
func (p *Project) EventSets() ([]EventSet, error) {
	var sets []EventSet

	if name := p.Path(Events); name != "" {
		ev, err := p.Events()
		if err != nil {
			return nil, err
		}
		sets = append(sets, EventSet{Name: name, Events: ev})
	}

	if name := p.Path(Tree); name != "" {
		t, err := p.Tree()
		if err != nil {
			return nil, err
		}
		sets = append(sets, EventSet{Name: name, Events: timeline.FromTree(t)})
	}

	if p.Path(Trees) != "" {
		c, err := p.Trees()
		if err != nil {
			return nil, err
		}
		for _, tn := range c.Names() {
			t := c.Tree(tn)
			if t == nil {
				continue
			}
			sets = append(sets, EventSet{Name: tn, Events: timeline.FromTree(tree.FromTimetree(t))})
		}
	}

	if len(sets) == 0 {
		return nil, fmt.Errorf("no tree or events defined in project %q", p.name)
	}
	return sets, nil
}

// EventSet returns the event timeline
// with the indicated name.
// If name is empty,
// it returns the first event timeline
// of the project.
func (p *Project) EventSet(name string) (EventSet, error) {
	sets, err := p.EventSets()
	if err != nil {
		return EventSet{}, err
	}
	if name == "" {
		return sets[0], nil
	}
	for _, s := range sets {
		if s.Name == name {
			return s, nil
		}
	}
	return EventSet{}, fmt.Errorf("events %q not defined in project %q", name, p.name)
}
