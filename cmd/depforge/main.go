// Command depforge resolves, checks out, and builds a manifest's
// dependencies, with one subcommand per stage: resolve, checkout,
// build, cache, graph, status.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/datawire/dlib/dlog"
	"github.com/spf13/cobra"

	"github.com/depforge/depforge/internal/cliutil"
	"github.com/depforge/depforge/internal/config"
)

var argparser = &cobra.Command{
	Use:   "depforge {[flags]|SUBCOMMAND...}",
	Short: "Resolve, check out, and build git-hosted dependencies",

	Args: cliutil.OnlySubcommands,
	RunE: cliutil.RunSubcommands,

	SilenceErrors: true, // main() reports the error itself after ExecuteContext returns
	SilenceUsage:  true, // our FlagErrorFunc already reports usage errors
}

func init() {
	argparser.SetFlagErrorFunc(cliutil.FlagErrorFunc)
}

// loadCtx is shared by every subcommand's RunE to build the ambient
// Ctx once flags have been parsed.
func loadCtx() (*config.Ctx, error) {
	return config.NewContext()
}

func main() {
	ctx := context.Background()

	if err := argparser.ExecuteContext(ctx); err != nil {
		dlog.Errorf(ctx, "%v", err)
		fmt.Fprintf(argparser.ErrOrStderr(), "%s: error: %v\n", argparser.CommandPath(), err)
		os.Exit(1)
	}
}
