package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const hotColdCUE = `
program: "hot-cold"
bthreads: {
	hot: {repeat: 3, steps: [{sync: {request: ["hot"]}}]}
	cold: {repeat: 3, steps: [{sync: {request: ["cold"]}}]}
	interleave: {
		repeat: 3
		steps: [
			{sync: {waitFor: ["hot"], block: ["cold"]}},
			{sync: {waitFor: ["cold"], block: ["hot"]}},
		]
	}
}
`

const ticksCUE = `
program: "ticks"
params: limit: 3
bthreads: {
	ticker: {loop: true, steps: [{sync: {request: ["tick"]}}]}
	counter: {
		loop: true
		steps: [
			{sync: {waitFor: ["tick"]}},
			{incr: "ticks"},
			{assert: {var: "ticks", op: "<=", value: "$limit", message: "counter saw {ticks} ticks"}},
		]
	}
}
`

const deadlockCUE = `
program: "deadlock"
bthreads: {
	requester: steps: [{sync: {request: ["x"]}}]
	blocker: steps: [{sync: {waitFor: ["release"], block: ["x"]}}]
}
`

// writeProgram writes src to dir/name and returns the path.
func writeProgram(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

// execute runs cmd with args and returns its combined output.
func execute(cmd *cobra.Command, args ...string) (string, error) {
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// executeSplit runs cmd and returns stdout and stderr separately.
func executeSplit(cmd *cobra.Command, args ...string) (string, string, error) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}
