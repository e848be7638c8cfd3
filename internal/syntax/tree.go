// Package syntax models constituency parse trees in the bracketed (Penn
// Treebank) notation produced by statistical parsers such as CoreNLP.
//
// A Tree is read-only once built. Leaves carry a word and no children;
// every other node carries a label (a phrase type such as NP, or a
// part-of-speech tag for preterminals).
package syntax

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrMalformedTree is returned by ParsePenn for unbalanced or empty input.
var ErrMalformedTree = errors.New("malformed tree")

// Tree is a node of a constituency parse tree.
type Tree struct {
	Label    string
	Children []*Tree
}

// TaggedWord pairs a leaf word with the tag of its preterminal parent.
type TaggedWord struct {
	Word string
	Tag  string
}

// NewLeaf returns a leaf node holding word.
func NewLeaf(word string) *Tree {
	return &Tree{Label: word}
}

// NewNode returns an interior node.
func NewNode(label string, children ...*Tree) *Tree {
	return &Tree{Label: label, Children: children}
}

// IsLeaf reports whether t has no children.
func (t *Tree) IsLeaf() bool {
	return len(t.Children) == 0
}

// IsPreterminal reports whether t has exactly one child and that child is a leaf.
func (t *Tree) IsPreterminal() bool {
	return len(t.Children) == 1 && t.Children[0].IsLeaf()
}

// IsPhrasal reports whether t has at least two children. Leaves,
// preterminals and unary links are not phrasal: a unary node dominates
// exactly the same words as its only child.
func (t *Tree) IsPhrasal() bool {
	return len(t.Children) >= 2
}

// Yield returns the leaf words dominated by t, left to right.
func (t *Tree) Yield() []string {
	var words []string
	t.walkLeaves(func(leaf, _ *Tree) {
		words = append(words, leaf.Label)
	})
	return words
}

// TaggedYield returns the leaf words dominated by t together with the tags
// of their preterminals. A leaf directly under a non-preterminal gets an
// empty tag.
func (t *Tree) TaggedYield() []TaggedWord {
	var tagged []TaggedWord
	t.walkLeaves(func(leaf, parent *Tree) {
		tag := ""
		if parent != nil && parent.IsPreterminal() {
			tag = parent.Label
		}
		tagged = append(tagged, TaggedWord{Word: leaf.Label, Tag: tag})
	})
	return tagged
}

func (t *Tree) walkLeaves(fn func(leaf, parent *Tree)) {
	var walk func(n, parent *Tree)
	walk = func(n, parent *Tree) {
		if n.IsLeaf() {
			fn(n, parent)
			return
		}
		for _, c := range n.Children {
			walk(c, n)
		}
	}
	walk(t, nil)
}

// Text returns the yield of t joined by single spaces.
func (t *Tree) Text() string {
	return strings.Join(t.Yield(), " ")
}

// WordCount returns the number of leaves whose tag begins with a letter.
// Punctuation tags (".", ",", "``", "-LRB-", ...) are not counted.
func (t *Tree) WordCount() int {
	n := 0
	for _, tw := range t.TaggedYield() {
		if r, _ := utf8.DecodeRuneInString(tw.Tag); tw.Tag != "" && unicode.IsLetter(r) {
			n++
		}
	}
	return n
}

// PreOrder returns every node of t in pre-order: a node precedes its
// descendants, and earlier siblings precede later ones.
func (t *Tree) PreOrder() []*Tree {
	var nodes []*Tree
	var walk func(n *Tree)
	walk = func(n *Tree) {
		nodes = append(nodes, n)
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(t)
	return nodes
}

// PhrasalNodes returns the phrasal nodes of t in pre-order.
func (t *Tree) PhrasalNodes() []*Tree {
	var nodes []*Tree
	for _, n := range t.PreOrder() {
		if n.IsPhrasal() {
			nodes = append(nodes, n)
		}
	}
	return nodes
}

// String renders t on one line in bracketed notation.
func (t *Tree) String() string {
	var sb strings.Builder
	t.writeFlat(&sb)
	return sb.String()
}

func (t *Tree) writeFlat(sb *strings.Builder) {
	if t.IsLeaf() {
		sb.WriteString(t.Label)
		return
	}
	sb.WriteByte('(')
	sb.WriteString(t.Label)
	for _, c := range t.Children {
		sb.WriteByte(' ')
		c.writeFlat(sb)
	}
	sb.WriteByte(')')
}

// PennString renders t in indented bracketed notation, one phrasal node per
// line, with preterminals kept inline.
func (t *Tree) PennString() string {
	var sb strings.Builder
	t.writePenn(&sb, 0)
	sb.WriteByte('\n')
	return sb.String()
}

func (t *Tree) writePenn(sb *strings.Builder, indent int) {
	if t.IsLeaf() || t.IsPreterminal() {
		t.writeFlat(sb)
		return
	}
	sb.WriteByte('(')
	sb.WriteString(t.Label)
	for _, c := range t.Children {
		if c.IsLeaf() || c.IsPreterminal() {
			sb.WriteByte(' ')
		} else {
			sb.WriteByte('\n')
			sb.WriteString(strings.Repeat("  ", indent+1))
		}
		c.writePenn(sb, indent+1)
	}
	sb.WriteByte(')')
}

// ParsePenn parses a single tree in bracketed notation, e.g.
//
//	(ROOT (S (NP (DT The) (NN fox)) (VP (VBZ jumps)) (. .)))
//
// Whitespace between tokens is insignificant.
func ParsePenn(s string) (*Tree, error) {
	toks := tokenize(s)
	if len(toks) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrMalformedTree)
	}
	p := &pennParser{toks: toks}
	t, err := p.parse()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.toks) {
		return nil, fmt.Errorf("%w: trailing input at token %d", ErrMalformedTree, p.pos)
	}
	return t, nil
}

type pennParser struct {
	toks []string
	pos  int
}

func (p *pennParser) parse() (*Tree, error) {
	if p.pos >= len(p.toks) {
		return nil, fmt.Errorf("%w: unexpected end of input", ErrMalformedTree)
	}
	tok := p.toks[p.pos]
	p.pos++
	switch tok {
	case ")":
		return nil, fmt.Errorf("%w: unexpected ')'", ErrMalformedTree)
	case "(":
	default:
		return NewLeaf(tok), nil
	}

	// A node may omit its label, as in "( (S ...) )".
	node := &Tree{}
	if p.pos < len(p.toks) && p.toks[p.pos] != "(" && p.toks[p.pos] != ")" {
		node.Label = p.toks[p.pos]
		p.pos++
	}
	for {
		if p.pos >= len(p.toks) {
			return nil, fmt.Errorf("%w: missing ')'", ErrMalformedTree)
		}
		if p.toks[p.pos] == ")" {
			p.pos++
			break
		}
		child, err := p.parse()
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, child)
	}
	if node.IsLeaf() {
		return nil, fmt.Errorf("%w: empty node %q", ErrMalformedTree, node.Label)
	}
	if node.Label == "" && len(node.Children) == 1 {
		return node.Children[0], nil
	}
	return node, nil
}

func tokenize(s string) []string {
	var toks []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			toks = append(toks, cur.String())
			cur.Reset()
		}
	}
	for _, r := range s {
		switch {
		case r == '(' || r == ')':
			flush()
			toks = append(toks, string(r))
		case unicode.IsSpace(r):
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return toks
}
