package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

var defsDir = filepath.Join("testdata", "defs")

// execute runs cmd with args and returns its combined output.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// executeSplit runs cmd with args and returns stdout and stderr separately.
func executeSplit(t *testing.T, cmd *cobra.Command, args ...string) (string, string, error) {
	t.Helper()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// writeDefs writes a definitions directory whose scenarios may set
// inputs: _inputs to read a private copy of testdata/basic, so commands can
// write next to the staged files.
func writeDefs(t *testing.T, body string) (defs, inputs string) {
	t.Helper()
	root := t.TempDir()
	inputs = filepath.Join(root, "basic")
	copyDir(t, filepath.Join("testdata", "basic", "inputs"), filepath.Join(inputs, "inputs"))

	defs = filepath.Join(root, "defs")
	require.NoError(t, os.MkdirAll(defs, 0o755))
	src := fmt.Sprintf("package scenarios\n\n_inputs: %q\n\n%s\n", inputs, body)
	require.NoError(t, os.WriteFile(filepath.Join(defs, "scenarios.cue"), []byte(src), 0o644))
	return defs, inputs
}

func copyDir(t *testing.T, from, to string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(to, 0o755))
	entries, err := os.ReadDir(from)
	require.NoError(t, err)
	for _, e := range entries {
		data, err := os.ReadFile(filepath.Join(from, e.Name()))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(to, e.Name()), data, 0o644))
	}
}
