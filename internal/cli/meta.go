package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewMetaCommand creates the meta command.
func NewMetaCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "meta <meta-id>",
		Short: "Resolve a meta identifier against the definition store",
		Long: `Resolve a meta identifier the way the router does: parse it, look it
up in the definition store, and check its master and sub-meta references.

Undefined metas of the null and dynamic types resolve without a row.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMeta(rootOpts, args[0], cmd)
		},
	}
}

func runMeta(opts *RootOptions, id string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	rt, err := openRuntime(opts)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, err)
	}
	defer rt.Close()

	m, err := rt.router.Meta(cmd.Context(), id)
	if err != nil {
		return failRouting(formatter, err)
	}

	if formatter.Format == "json" {
		return formatter.Success(m)
	}

	fmt.Fprintln(formatter.Writer, m.String())
	if len(m.States) > 0 {
		fmt.Fprintf(formatter.Writer, "  states: %s\n", strings.Join(m.States, ", "))
	}
	if master := m.Master(); master != "" {
		fmt.Fprintf(formatter.Writer, "  master: %s\n", master)
	}
	if subs := m.SubMetas(); len(subs) > 0 {
		fmt.Fprintf(formatter.Writer, "  multi:  %s\n", strings.Join(subs, ", "))
	}
	return nil
}
