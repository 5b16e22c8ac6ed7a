package main

import (
	"bytes"

	"github.com/spf13/cobra"
)

// testCmd bundles a bare cobra.Command with its captured stdout buffer,
// so RunE helpers that write via cmd.OutOrStdout() can be asserted on
// without needing a full command tree or ExecuteContext round trip.
type testCmd struct {
	*cobra.Command
	out *bytes.Buffer
}

func newTestCmd() *testCmd {
	buf := &bytes.Buffer{}
	cmd := &cobra.Command{Use: "test"}
	cmd.SetOut(buf)
	return &testCmd{Command: cmd, out: buf}
}
