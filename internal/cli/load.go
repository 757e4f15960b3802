package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/nature/internal/store"
)

// LoadOptions holds flags for the load command.
type LoadOptions struct {
	*RootOptions
	SkipValidate bool
}

// LoadSummary reports what a load wrote.
type LoadSummary struct {
	DB        string `json:"db"`
	Metas     int    `json:"metas"`
	Relations int    `json:"relations"`
}

// NewLoadCommand creates the load command.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoadOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "load <specs-dir>",
		Short: "Compile specs and write them to the definition store",
		Long: `Compile and validate CUE meta and relation declarations, then upsert
the resulting rows into the definition database.

Existing rows with the same identifier (metas) or the same from/to pair
(relations) are replaced. Rows absent from the specs are left alone.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.SkipValidate, "skip-validate", false, "write rows without validating them first")

	return cmd
}

func runLoad(opts *LoadOptions, specsDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := cmd.Context()

	loadResult, err := loadSpecsOrFail(formatter, specsDir)
	if err != nil {
		return err
	}

	if !opts.SkipValidate {
		result := validateRows(ctx, loadResult, nil, formatter)
		if len(result.Errors) > 0 {
			result.Valid = false
			return outputValidationErrors(formatter, result)
		}
	}

	cfg, err := opts.Config()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, err)
	}
	st, err := store.Open(cfg.DB, store.WithBusyTimeout(cfg.BusyTimeout))
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, err)
	}
	defer st.Close()

	formatter.VerboseLog("Writing definitions to %s", cfg.DB)
	if err := store.WriteDefinitions(ctx, st, loadResult.Metas, loadResult.Relations); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, err)
	}

	summary := LoadSummary{
		DB:        cfg.DB,
		Metas:     len(loadResult.Metas),
		Relations: len(loadResult.Relations),
	}
	if formatter.Format == "json" {
		return formatter.Success(summary)
	}
	fmt.Fprintf(formatter.Writer, "✓ Loaded %d meta(s), %d relation(s) into %s\n",
		summary.Metas, summary.Relations, summary.DB)
	return nil
}
