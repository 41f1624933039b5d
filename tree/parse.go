// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package tree

import (
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// A ParseError is an error found while reading a tree.
type ParseError struct {
	// Pos is the byte offset of the error in the input.
	Pos int

	// Token is the kind of the offending token,
	// and Value its lexed value.
	Token string
	Value string

	Msg string
}

func (e *ParseError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("tree: at position %d: %s", e.Pos, e.Msg)
	}
	return fmt.Sprintf("tree: at position %d: %s: found %s %q", e.Pos, e.Msg, e.Token, e.Value)
}

type tokenKind int

const (
	tkEOF tokenKind = iota
	tkLParen
	tkRParen
	tkColon
	tkString
	tkOpenAnn
	tkEquals
	tkCloseAnn
	tkComma
	tkSemi
)

var tokenNames = map[tokenKind]string{
	tkEOF:      "end of input",
	tkLParen:   "'('",
	tkRParen:   "')'",
	tkColon:    "':'",
	tkString:   "string",
	tkOpenAnn:  "'[&'",
	tkEquals:   "'='",
	tkCloseAnn: "']'",
	tkComma:    "','",
	tkSemi:     "';'",
}

func (k tokenKind) String() string {
	return tokenNames[k]
}

// lexical rules are tried in order,
// the first match wins.
var lexRules = []struct {
	kind tokenKind
	re   *regexp.Regexp
}{
	{tkLParen, regexp.MustCompile(`^\(`)},
	{tkRParen, regexp.MustCompile(`^\)`)},
	{tkColon, regexp.MustCompile(`^:`)},
	{tkString, regexp.MustCompile(`^"[^"]*"`)},
	{tkString, regexp.MustCompile(`^'(?:[^']|'')*'`)},
	{tkString, regexp.MustCompile(`^[a-zA-Z0-9_.+\-]+`)},
	{tkOpenAnn, regexp.MustCompile(`^\[&`)},
	{tkEquals, regexp.MustCompile(`^=`)},
	{tkCloseAnn, regexp.MustCompile(`^\]`)},
	{tkComma, regexp.MustCompile(`^,`)},
	{tkSemi, regexp.MustCompile(`^;`)},
}

var bareLabel = regexp.MustCompile(`^[a-zA-Z0-9_.+\-]+$`)

type token struct {
	kind  tokenKind
	value string
	pos   int
}

func lex(s string) ([]token, error) {
	var tokens []token
	pos := 0
	for pos < len(s) {
		switch s[pos] {
		case ' ', '\t', '\n', '\r':
			pos++
			continue
		}

		matched := false
		for _, r := range lexRules {
			loc := r.re.FindStringIndex(s[pos:])
			if loc == nil {
				continue
			}
			v := s[pos : pos+loc[1]]
			if r.kind == tkString && len(v) >= 2 {
				switch {
				case v[0] == '"' && v[len(v)-1] == '"':
					v = v[1 : len(v)-1]
				case v[0] == '\'' && v[len(v)-1] == '\'':
					// a doubled single quote
					// is a literal quote
					v = strings.ReplaceAll(v[1:len(v)-1], "''", "'")
				}
			}
			tokens = append(tokens, token{kind: r.kind, value: v, pos: pos})
			pos += loc[1]
			matched = true
			break
		}
		if !matched {
			return nil, &ParseError{
				Pos: pos,
				Msg: fmt.Sprintf("unrecognized character %q", s[pos]),
			}
		}
	}
	tokens = append(tokens, token{kind: tkEOF, pos: len(s)})
	return tokens, nil
}

// A parser is the cursor over the token stream
// used by the grammar rules.
type parser struct {
	tokens []token
	idx    int
}

// accept consumes the current token
// if it is of the indicated kind.
func (p *parser) accept(k tokenKind) bool {
	if p.tokens[p.idx].kind != k {
		return false
	}
	p.idx++
	return true
}

// expect consumes a token of the indicated kind,
// or returns an error.
func (p *parser) expect(k tokenKind) (token, error) {
	tk := p.tokens[p.idx]
	if tk.kind != k {
		return tk, &ParseError{
			Pos:   tk.pos,
			Token: tk.kind.String(),
			Value: tk.value,
			Msg:   fmt.Sprintf("expecting %s", k),
		}
	}
	p.idx++
	return tk, nil
}

// last returns the last consumed token.
func (p *parser) last() token {
	return p.tokens[p.idx-1]
}

// Node := ('(' Node (',' Node)* ')')? Label? Annotations? (':' BranchLength)?
func (p *parser) node(parent *Node) (*Node, error) {
	n := &Node{}
	if parent != nil {
		parent.addChild(n)
	}

	if p.accept(tkLParen) {
		if _, err := p.node(n); err != nil {
			return nil, err
		}
		for p.accept(tkComma) {
			if _, err := p.node(n); err != nil {
				return nil, err
			}
		}
		if _, err := p.expect(tkRParen); err != nil {
			return nil, err
		}
	}

	if p.accept(tkString) {
		n.label = p.last().value
	}

	if p.accept(tkOpenAnn) {
		if err := p.annotation(n); err != nil {
			return nil, err
		}
		for p.accept(tkComma) {
			if err := p.annotation(n); err != nil {
				return nil, err
			}
		}
		if _, err := p.expect(tkCloseAnn); err != nil {
			return nil, err
		}
	}

	if p.accept(tkColon) {
		tk, err := p.expect(tkString)
		if err != nil {
			return nil, err
		}
		l, err := strconv.ParseFloat(tk.value, 64)
		if err != nil || math.IsNaN(l) || math.IsInf(l, 0) {
			return nil, &ParseError{
				Pos:   tk.pos,
				Token: tk.kind.String(),
				Value: tk.value,
				Msg:   "invalid branch length",
			}
		}
		if l < 0 {
			return nil, &ParseError{
				Pos:   tk.pos,
				Token: tk.kind.String(),
				Value: tk.value,
				Msg:   "negative branch length",
			}
		}
		n.brLen = l
		n.hasLen = true
	}

	return n, nil
}

// Annotation := Key '=' Value
func (p *parser) annotation(n *Node) error {
	k, err := p.expect(tkString)
	if err != nil {
		return err
	}
	if _, err := p.expect(tkEquals); err != nil {
		return err
	}
	v, err := p.expect(tkString)
	if err != nil {
		return err
	}

	if n.ann == nil {
		n.ann = make(map[string]string)
	}
	n.ann[k.value] = v.value
	return nil
}

// Parse reads a tree from a Newick string.
// The string must be terminated by a semicolon.
// If the string has more than one tree,
// only the first one is returned,
// but all of them must be valid trees.
func Parse(s string) (*Tree, error) {
	tokens, err := lex(s)
	if err != nil {
		return nil, err
	}

	p := &parser{tokens: tokens}
	root, err := p.node(nil)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tkSemi); err != nil {
		return nil, err
	}

	// any following text must be a sequence
	// of complete trees
	for !p.accept(tkEOF) {
		if _, err := p.node(nil); err != nil {
			return nil, err
		}
		if _, err := p.expect(tkSemi); err != nil {
			return nil, err
		}
	}

	return newTree(root), nil
}

// Read reads a tree from a reader.
//
// The input can be a Newick string
// or a Nexus file.
// If the input has more than one tree,
// only the first one is read.
// In a Nexus file
// (a file whose first line is "#NEXUS")
// the tree is read from the first line
// that starts with "tree ",
// using the text after the first equal sign,
// for example:
//
//	#NEXUS
//	begin trees;
//	tree TREE1 = [&R] ((A:1,B:1):0.5,C:1.5);
//	end;
func Read(r io.Reader) (*Tree, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	lines := strings.Split(string(data), "\n")
	first := 0
	for first < len(lines) && strings.TrimSpace(lines[first]) == "" {
		first++
	}
	if first == len(lines) {
		return nil, &ParseError{Msg: "empty input"}
	}

	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(lines[first])), "#nexus") {
		return Parse(strings.TrimSpace(string(data)))
	}

	for _, ln := range lines[first+1:] {
		ln = strings.TrimSpace(ln)
		if !strings.HasPrefix(strings.ToLower(ln), "tree ") {
			continue
		}
		i := strings.Index(ln, "=")
		if i < 0 {
			return nil, &ParseError{Msg: fmt.Sprintf("tree definition without '=': %q", ln)}
		}
		return Parse(dropRooting(strings.TrimSpace(ln[i+1:])))
	}
	return nil, &ParseError{Msg: "nexus file without tree definition"}
}

// dropRooting removes the rooting comment
// that can precede a tree in a Nexus file.
func dropRooting(s string) string {
	if len(s) < 4 {
		return s
	}
	switch strings.ToUpper(s[:4]) {
	case "[&R]", "[&U]":
		return strings.TrimSpace(s[4:])
	}
	return s
}
