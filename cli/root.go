// Package cli implements the nitpick command line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/coder/serpent"

	"github.com/nitpickhq/nitpick/buildinfo"
)

// RootCmd contains parameters and helpers shared across subcommands.
type RootCmd struct {
	verbose bool
}

func (r *RootCmd) Command() *serpent.Command {
	cmd := &serpent.Command{
		Use:   "nitpick",
		Short: "nitpick is a small issue tracker with per-user visit tracking.",
		Handler: func(inv *serpent.Invocation) error {
			return inv.Command.HelpHandler(inv)
		},
		Options: serpent.OptionSet{
			{
				Flag:          "verbose",
				FlagShorthand: "v",
				Env:           "NITPICK_VERBOSE",
				Description:   "Enable debug logging.",
				Value:         serpent.BoolOf(&r.verbose),
			},
		},
	}
	cmd.AddSubcommands(
		r.server(),
		r.version(),
	)
	return cmd
}

func (r *RootCmd) version() *serpent.Command {
	return &serpent.Command{
		Use:   "version",
		Short: "Show the nitpick version.",
		Handler: func(inv *serpent.Invocation) error {
			_, _ = fmt.Fprintln(inv.Stdout, buildinfo.Version())
			return nil
		},
	}
}

// Run executes the root command against os.Args.
func Run() {
	var root RootCmd
	err := root.Command().Invoke().WithOS().Run()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
