package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dangazineu/ghcollect/internal/errors"
)

func scalars(t *testing.T, n Node) []string {
	t.Helper()
	seq, ok := n.(*Sequence)
	require.True(t, ok, "expected sequence, got %T", n)
	var out []string
	for _, item := range seq.Items {
		s, ok := item.(*Scalar)
		require.True(t, ok, "expected scalar, got %T", item)
		out = append(out, s.Value)
	}
	return out
}

func lookup(t *testing.T, n Node, path ...string) Node {
	t.Helper()
	for _, key := range path {
		m, ok := n.(*Mapping)
		require.True(t, ok, "expected mapping at %q, got %T", key, n)
		n, ok = m.Get(key)
		require.True(t, ok, "missing key %q", key)
	}
	return n
}

func TestRemoveUnsupportedOS(t *testing.T) {
	doc, err := Parse([]byte(mavenWorkflow))
	require.NoError(t, err)

	require.NoError(t, doc.RemoveUnsupportedOS())

	root := doc.Root()
	matrix := lookup(t, root, "jobs", "build", "strategy", "matrix")

	// list entries are pruned, not replaced
	assert.Equal(t, []string{"ubuntu-latest"}, scalars(t, lookup(t, matrix, "os")))
	assert.Equal(t, []string{"11", "17"}, scalars(t, lookup(t, matrix, "java")))

	// keyed values nested in lists are replaced
	include := lookup(t, matrix, "include").(*Sequence)
	require.Len(t, include.Items, 1)
	assert.Equal(t, DefaultTarget, lookup(t, include.Items[0], "os").(*Scalar).Value)
	assert.Equal(t, "21", lookup(t, include.Items[0], "java").(*Scalar).Value)

	// expressions and non-target values are untouched
	assert.Equal(t, "${{ matrix.os }}", lookup(t, root, "jobs", "build", "runs-on").(*Scalar).Value)
	assert.Equal(t, "false", lookup(t, root, "jobs", "build", "strategy", "fail-fast").(*Scalar).Value)

	// scalar runs-on is replaced
	assert.Equal(t, DefaultTarget, lookup(t, root, "jobs", "lint", "runs-on").(*Scalar).Value)
}

func TestRemoveUnsupportedOSLeavesNoUnsupportedTargets(t *testing.T) {
	src := `name: matrix
jobs:
  a:
    runs-on: macos-12-xl
    strategy:
      matrix:
        platform:
          - windows-2019
          - [macos-13, ubuntu-20.04, macos-13-xl]
          - target: windows-latest
        exclude:
          - platform: macos-latest-xl
    steps: []
  b:
    runs-on: [self-hosted, windows-latest]
    steps: []
`
	doc, err := Parse([]byte(src))
	require.NoError(t, err)
	require.NoError(t, doc.RemoveUnsupportedOS())

	var walk func(Node)
	walk = func(n Node) {
		switch v := n.(type) {
		case *Scalar:
			assert.NotContains(t, UnsupportedTargets, v.Value)
		case *Sequence:
			for _, item := range v.Items {
				walk(item)
			}
		case *Mapping:
			for _, e := range v.Entries {
				walk(e.Value)
			}
		}
	}
	walk(lookup(t, doc.Root(), "jobs", "a"))

	platform := lookup(t, doc.Root(), "jobs", "a", "strategy", "matrix", "platform").(*Sequence)
	require.Len(t, platform.Items, 2)
	assert.Equal(t, []string{"ubuntu-20.04"}, scalars(t, platform.Items[0]))
	assert.Equal(t, DefaultTarget, lookup(t, platform.Items[1], "target").(*Scalar).Value)

	// a list-valued runs-on is outside strategy and is left alone
	assert.Equal(t, []string{"self-hosted", "windows-latest"}, scalars(t, lookup(t, doc.Root(), "jobs", "b", "runs-on")))
}

func TestRemoveUnsupportedOSIdempotent(t *testing.T) {
	once, err := Parse([]byte(mavenWorkflow))
	require.NoError(t, err)
	require.NoError(t, once.RemoveUnsupportedOS())

	twice, err := Parse([]byte(mavenWorkflow))
	require.NoError(t, err)
	require.NoError(t, twice.RemoveUnsupportedOS())
	require.NoError(t, twice.RemoveUnsupportedOS())

	a, err := once.Marshal()
	require.NoError(t, err)
	b, err := twice.Marshal()
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestRemoveUnsupportedOSStructuralErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "missing jobs", yaml: "name: CI\non: push\n"},
		{name: "jobs is a list", yaml: "name: CI\njobs: [a, b]\n"},
		{name: "job is a scalar", yaml: "name: CI\njobs:\n  a: nope\n"},
		{name: "empty document", yaml: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Parse([]byte(tt.yaml))
			require.NoError(t, err)
			err = doc.RemoveUnsupportedOS()
			require.Error(t, err)
			assert.True(t, errors.IsStructural(err), "expected structural error, got %v", err)
		})
	}
}
