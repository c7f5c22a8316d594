// File: cmd/root_test.go
package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunExitCodes(t *testing.T) {
	// run() must report failure through its return value, not os.Exit,
	// so the deferred log flush always happens first.
	out := &bytes.Buffer{}
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)

	rootCmd.SetArgs([]string{"no-such-command"})
	assert.Equal(t, 1, run())

	rootCmd.SetArgs([]string{"--version"})
	assert.Equal(t, 0, run())
	assert.Contains(t, out.String(), Version)
}
