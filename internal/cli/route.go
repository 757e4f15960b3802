package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/nature/internal/balance"
	"github.com/roach88/nature/internal/metrics"
	"github.com/roach88/nature/internal/mission"
	"github.com/roach88/nature/internal/model"
	"github.com/roach88/nature/internal/router"
	"github.com/roach88/nature/internal/testutil"
)

// RouteOptions holds flags for the route command.
type RouteOptions struct {
	*RootOptions
	Meta    string // read the instance from the store instead of a file
	ID      string
	Para    string
	Seed    uint64
	Now     int64 // unix seconds; 0 means the wall clock
	Metrics bool
}

// RouteResult is the JSON payload of the route command.
type RouteResult struct {
	Instance string             `json:"instance"`
	Meta     string             `json:"meta"`
	Missions []model.Mission    `json:"missions"`
	Metrics  map[string]float64 `json:"metrics,omitempty"` // counter totals, with --metrics
}

// NewRouteCommand creates the route command.
func NewRouteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RouteOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "route [instance.json]",
		Short: "Resolve the missions an instance triggers",
		Long: `Resolve the missions an instance triggers against the definition store.

The instance is read from a JSON file, or from the instance table when
--meta and --id are given. Missions are printed in relation order.`,
		Example: `  # Route an instance file
  nature route order.json

  # Route a stored instance with a reproducible balancer draw
  nature route --meta B:sale/order:1 --id 42 --seed 7`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoute(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Meta, "meta", "", "meta of a stored instance")
	cmd.Flags().StringVar(&opts.ID, "id", "", "id of a stored instance")
	cmd.Flags().StringVar(&opts.Para, "para", "", "para of a stored instance")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "balancer seed (overrides config)")
	cmd.Flags().Int64Var(&opts.Now, "now", 0, "unix time used for para-relative delays")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "print routing metrics to stderr")

	return cmd
}

func runRoute(opts *RouteOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := cmd.Context()

	// Exactly one instance source: a JSON file or a stored instance
	fromFile := len(args) == 1
	fromStore := opts.Meta != "" || opts.ID != ""
	switch {
	case fromFile && fromStore:
		return formatter.Fail(ExitCommandError, ErrCodeInput, errors.New("give an instance file or --meta/--id, not both"))
	case !fromFile && !fromStore:
		return formatter.Fail(ExitCommandError, ErrCodeInput, errors.New("an instance file or --meta and --id are required"))
	case fromStore && (opts.Meta == "" || opts.ID == ""):
		return formatter.Fail(ExitCommandError, ErrCodeInput, errors.New("--meta and --id must be given together"))
	}

	if opts.Metrics {
		metrics.Register()
	}

	// Flag overrides for the balancer seed and the mission clock
	var extra []router.Option
	if cmd.Flags().Changed("seed") {
		extra = append(extra, router.WithBalancer(balance.New(balance.WithSeed(opts.Seed))))
	}
	if opts.Now != 0 {
		extra = append(extra, router.WithResolver(mission.NewResolver(mission.WithClock(testutil.NewFixedClockUnix(opts.Now)))))
	}

	rt, err := openRuntime(opts.RootOptions, extra...)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, err)
	}
	defer rt.Close()

	// Read the instance
	var inst model.Instance
	if fromFile {
		inst, err = readInstanceFile(args[0])
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeInput, err)
		}
	} else {
		stored, err := rt.store.ReadInstance(ctx, opts.Meta, opts.ID, opts.Para)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, err)
		}
		if stored == nil {
			return formatter.Fail(ExitCommandError, ErrCodeInput,
				fmt.Errorf("instance %s/%s/%s not found", opts.Meta, opts.ID, opts.Para))
		}
		inst = *stored
	}
	formatter.VerboseLog("Routing instance %s of %s", inst.ID, inst.Meta)

	missions, err := rt.router.Route(ctx, inst)
	if err != nil {
		return failRouting(formatter, err)
	}

	result := RouteResult{Instance: inst.ID, Meta: inst.Meta, Missions: missions}

	// JSON output carries counter totals; text output gets the full
	// exposition on stderr.
	if opts.Metrics && formatter.Format == "json" {
		if result.Metrics, err = metrics.Totals(); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeRoute, err)
		}
	}

	if err := outputRoute(formatter, result); err != nil {
		return err
	}

	if opts.Metrics && formatter.Format != "json" {
		if err := metrics.WriteText(formatter.GetErrWriter()); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeRoute, err)
		}
	}
	return nil
}

// readInstanceFile decodes an instance from a JSON file.
func readInstanceFile(path string) (model.Instance, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Instance{}, fmt.Errorf("reading instance: %w", err)
	}
	var inst model.Instance
	if err := json.Unmarshal(data, &inst); err != nil {
		return model.Instance{}, fmt.Errorf("parsing instance %s: %w", path, err)
	}
	if inst.Meta == "" {
		return model.Instance{}, fmt.Errorf("instance %s: meta is required", path)
	}
	return inst, nil
}

func outputRoute(formatter *OutputFormatter, result RouteResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	if len(result.Missions) == 0 {
		fmt.Fprintf(formatter.Writer, "No missions for %s %s\n", result.Meta, result.Instance)
		return nil
	}

	fmt.Fprintf(formatter.Writer, "%d mission(s) for %s %s\n\n", len(result.Missions), result.Meta, result.Instance)
	for _, m := range result.Missions {
		fmt.Fprintf(formatter.Writer, "  → %s  %s", m.To.String(), describeExecutor(m.Executor))
		if m.Delay > 0 {
			fmt.Fprintf(formatter.Writer, "  delay %ds", m.Delay)
		}
		fmt.Fprintln(formatter.Writer)
	}
	return nil
}
