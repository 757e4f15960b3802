package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/nature/internal/balance"
	"github.com/roach88/nature/internal/config"
	"github.com/roach88/nature/internal/meta"
	"github.com/roach88/nature/internal/model"
	"github.com/roach88/nature/internal/relation"
	"github.com/roach88/nature/internal/router"
	"github.com/roach88/nature/internal/store"
)

// runtime is a definition store with a router reading through it.
type runtime struct {
	cfg    config.Config
	store  *store.Store
	router *router.Router
}

// newFormatter builds the formatter every command prints through.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}

// openRuntime opens the configured store and builds a router over it with
// the configured cache lifetimes and balancer seed. A zero seed means a
// clock-seeded balancer.
//
// Parameters:
//   - opts: root options carrying the loaded config
//   - extra: router options applied last, so command flags such as --seed
//     and --now override the config
//
// The caller must Close the runtime.
func openRuntime(opts *RootOptions, extra ...router.Option) (*runtime, error) {
	cfg, err := opts.Config()
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.DB, store.WithBusyTimeout(cfg.BusyTimeout))
	if err != nil {
		return nil, err
	}

	var balOpts []balance.Option
	if cfg.Balance.Seed != 0 {
		balOpts = append(balOpts, balance.WithSeed(cfg.Balance.Seed))
	}

	metas := meta.NewCache(meta.WithTTL(cfg.Cache.MetaTTL))
	rels := relation.NewCache(metas, relation.WithTTL(cfg.Cache.RelationTTL))
	routerOpts := append([]router.Option{
		router.WithMetaCache(metas),
		router.WithRelationCache(rels),
		router.WithBalancer(balance.New(balOpts...)),
	}, extra...)
	r := router.New(st, st, routerOpts...)

	return &runtime{cfg: cfg, store: st, router: r}, nil
}

// Close closes the store.
func (rt *runtime) Close() error {
	return rt.store.Close()
}

// failRouting maps a routing-layer error to an error code and exit code.
// Definition problems fail the command; origin problems are command errors.
//
//	NOT_DEFINED    -> ExitFailure, ErrCodeNotDefined
//	VERIFY         -> ExitFailure, ErrCodeRoute
//	ENVIRONMENT    -> ExitCommandError, ErrCodeStore
//	anything else  -> ExitCommandError, ErrCodeRoute
func failRouting(formatter *OutputFormatter, err error) error {
	switch {
	case model.IsNotDefinedError(err):
		return formatter.Fail(ExitFailure, ErrCodeNotDefined, err)
	case model.IsVerifyError(err):
		return formatter.Fail(ExitFailure, ErrCodeRoute, err)
	case model.IsEnvironmentError(err):
		return formatter.Fail(ExitCommandError, ErrCodeStore, err)
	default:
		return formatter.Fail(ExitCommandError, ErrCodeRoute, err)
	}
}
