// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package timeline

import (
	"bufio"
	"cmp"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
)

// ReadFlat reads events from a flat event file.
//
// Each line of the file contains two fields
// separated by spaces:
// the age of the event
// (measured backwards from the present),
// and a flag that is "0" for samples
// and any other value for coalescences.
// Blank lines and lines starting with '#' are ignored.
//
// Here is an example file:
//
//	# age flag
//	3.5 1
//	2.0 1
//	1.0 0
//	0.0 0
//	0.0 0
//
// Events are returned in time order,
// where the time is the distance from the oldest event.
func ReadFlat(r io.Reader) ([]Event, error) {
	type flatEvent struct {
		age  float64
		kind Kind
	}

	var fe []flatEvent
	sc := bufio.NewScanner(r)
	ln := 0
	for sc.Scan() {
		ln++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, fmt.Errorf("%w: on line %d: expecting 2 fields, found %d", ErrInput, ln, len(fields))
		}
		age, err := strconv.ParseFloat(fields[0], 64)
		if err != nil || math.IsNaN(age) || math.IsInf(age, 0) {
			return nil, fmt.Errorf("%w: on line %d: invalid age %q", ErrInput, ln, fields[0])
		}
		k := Coalescence
		if fields[1] == "0" {
			k = Sample
		}
		fe = append(fe, flatEvent{age: age, kind: k})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(fe) == 0 {
		return nil, fmt.Errorf("%w: no events", ErrInput)
	}

	slices.SortStableFunc(fe, func(a, b flatEvent) int {
		return cmp.Compare(b.age, a.age)
	})

	ev := make([]Event, 0, len(fe))
	for _, e := range fe {
		ev = append(ev, Event{
			Time: fe[0].age - e.age,
			Kind: e.kind,
		})
	}
	return ev, nil
}

var header = []string{
	"event",
	"time",
	"kind",
	"label",
}

// Read reads events from a TSV file.
//
// The TSV must contain the following fields:
//
//   - time, the time of the event
//   - kind, either "sample" or "coalescence"
//
// Optionally, it can contain the field label,
// with the label of the event.
//
// Here is an example file:
//
//	# event timeline
//	event	time	kind	label
//	0	0.000000	coalescence
//	1	0.500000	coalescence
//	2	1.500000	sample	A
//	3	1.500000	sample	B
//	4	1.500000	sample	C
func Read(r io.Reader) ([]Event, error) {
	tsv := csv.NewReader(r)
	tsv.Comma = '\t'
	tsv.Comment = '#'
	tsv.FieldsPerRecord = -1

	head, err := tsv.Read()
	if err != nil {
		return nil, fmt.Errorf("header: %v", err)
	}
	fields := make(map[string]int, len(head))
	for i, h := range head {
		h = strings.ToLower(strings.TrimSpace(h))
		fields[h] = i
	}
	for _, h := range []string{"time", "kind"} {
		if _, ok := fields[h]; !ok {
			return nil, fmt.Errorf("%w: expecting field %q", ErrInput, h)
		}
	}

	var ev []Event
	for {
		row, err := tsv.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		ln, _ := tsv.FieldPos(0)
		if err != nil {
			return nil, fmt.Errorf("on row %d: %v", ln, err)
		}

		f := "time"
		if fields[f] >= len(row) {
			return nil, fmt.Errorf("%w: on row %d: missing field %q", ErrInput, ln, f)
		}
		t, err := strconv.ParseFloat(row[fields[f]], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: on row %d, field %q: %v", ErrInput, ln, f, err)
		}
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil, fmt.Errorf("%w: on row %d, field %q: invalid time %q", ErrInput, ln, f, row[fields[f]])
		}

		f = "kind"
		if fields[f] >= len(row) {
			return nil, fmt.Errorf("%w: on row %d: missing field %q", ErrInput, ln, f)
		}
		k, err := ParseKind(row[fields[f]])
		if err != nil {
			return nil, fmt.Errorf("on row %d, field %q: %w", ln, f, err)
		}

		e := Event{
			Time: t,
			Kind: k,
		}
		if i, ok := fields["label"]; ok && i < len(row) {
			e.Label = row[i]
		}
		ev = append(ev, e)
	}

	Sort(ev)
	return ev, nil
}

// Write writes events into a TSV file.
func Write(w io.Writer, ev []Event) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# event timeline\n")
	fmt.Fprintf(bw, "# data save on: %s\n", time.Now().Format(time.RFC3339))

	tsv := csv.NewWriter(bw)
	tsv.Comma = '\t'
	tsv.UseCRLF = true

	if err := tsv.Write(header); err != nil {
		return fmt.Errorf("while writing header: %v", err)
	}
	for i, e := range ev {
		row := []string{
			strconv.Itoa(i),
			strconv.FormatFloat(e.Time, 'f', 6, 64),
			e.Kind.String(),
			e.Label,
		}
		if err := tsv.Write(row); err != nil {
			return err
		}
	}

	tsv.Flush()
	if err := tsv.Error(); err != nil {
		return fmt.Errorf("while writing data: %v", err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("while writing data: %v", err)
	}
	return nil
}
