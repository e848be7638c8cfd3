package syntax

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const foxTree = `(ROOT (S (NP (DT The) (JJ quick) (JJ brown) (NN fox)) (VP (VBZ jumps) (PP (IN over) (NP (DT the) (JJ lazy) (NN dog)))) (. .)))`

func TestParsePenn_RoundTrip(t *testing.T) {
	tree, err := ParsePenn(foxTree)
	require.NoError(t, err)

	assert.Equal(t, "ROOT", tree.Label)
	assert.Equal(t, foxTree, tree.String())
	assert.Equal(t, "The quick brown fox jumps over the lazy dog .", tree.Text())
}

func TestParsePenn_UnlabeledRoot(t *testing.T) {
	tree, err := ParsePenn("( (S (NP (PRP I)) (VP (VBP run))) )")
	require.NoError(t, err)
	assert.Equal(t, "S", tree.Label)
}

func TestParsePenn_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: "   "},
		{name: "unbalanced open", input: "(S (NP (DT a)"},
		{name: "unbalanced close", input: "(S (NP (DT a))))"},
		{name: "stray close", input: ")"},
		{name: "empty node", input: "(S (NP))"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePenn(tt.input)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedTree))
		})
	}
}

func TestTree_WordCountSkipsPunctuation(t *testing.T) {
	tree, err := ParsePenn(`(ROOT (S (NP (NNP Alice)) (, ,) (VP (VBD said) (`+"``"+` `+"``"+`) (NP (-LRB- -LRB-) (NN hi) (-RRB- -RRB-))) (. .)))`)
	require.NoError(t, err)

	assert.Equal(t, 3, tree.WordCount())
	assert.Len(t, tree.Yield(), 8)
}

func TestTree_TaggedYield(t *testing.T) {
	tree, err := ParsePenn(foxTree)
	require.NoError(t, err)

	tagged := tree.TaggedYield()
	require.Len(t, tagged, 10)
	assert.Equal(t, TaggedWord{Word: "The", Tag: "DT"}, tagged[0])
	assert.Equal(t, TaggedWord{Word: ".", Tag: "."}, tagged[9])
}

func TestTree_PhrasalNodesPreOrder(t *testing.T) {
	tree, err := ParsePenn(foxTree)
	require.NoError(t, err)

	var labels []string
	for _, n := range tree.PhrasalNodes() {
		labels = append(labels, n.Label+":"+n.Text())
	}
	// ROOT is unary and every preterminal has a single child.
	assert.Equal(t, []string{
		"S:The quick brown fox jumps over the lazy dog .",
		"NP:The quick brown fox",
		"VP:jumps over the lazy dog",
		"PP:over the lazy dog",
		"NP:the lazy dog",
	}, labels)
}

func TestTree_PennString(t *testing.T) {
	tree, err := ParsePenn("(ROOT (S (NP (PRP I)) (VP (VBP run) (ADVP (RB fast)))))")
	require.NoError(t, err)

	want := "(ROOT\n  (S\n    (NP (PRP I))\n    (VP (VBP run)\n      (ADVP (RB fast)))))\n"
	assert.Equal(t, want, tree.PennString())

	reparsed, err := ParsePenn(tree.PennString())
	require.NoError(t, err)
	assert.Equal(t, tree.String(), reparsed.String())
}
