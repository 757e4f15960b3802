package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/nature/internal/model"
)

// NewRelationsCommand creates the relations command.
func NewRelationsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "relations <meta-id>",
		Short: "List the decoded relations leaving a meta",
		Long: `Load and decode the active relations whose upstream is the given meta,
one line per executor, before balancing.

Rows that fail to decode are skipped with a warning in the log.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRelations(rootOpts, args[0], cmd)
		},
	}
}

func runRelations(opts *RootOptions, from string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	rt, err := openRuntime(opts)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, err)
	}
	defer rt.Close()

	rels, err := rt.router.Relations(cmd.Context(), from)
	if err != nil {
		return failRouting(formatter, err)
	}

	if formatter.Format == "json" {
		return formatter.Success(rels)
	}

	if len(rels) == 0 {
		fmt.Fprintf(formatter.Writer, "No relations from %s\n", from)
		return nil
	}
	for _, r := range rels {
		fmt.Fprintf(formatter.Writer, "%s → %s  %s\n", r.From, r.To.String(), describeExecutor(r.Executor))
	}
	return nil
}

// describeExecutor renders an executor as "protocol:url [group] xweight".
func describeExecutor(e model.Executor) string {
	return fmt.Sprintf("%s:%s [%s] x%g", e.Protocol, e.URL, e.Group, e.Proportion)
}
