package harness

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/nature/internal/balance"
	"github.com/roach88/nature/internal/compiler"
	"github.com/roach88/nature/internal/meta"
	"github.com/roach88/nature/internal/mission"
	"github.com/roach88/nature/internal/relation"
	"github.com/roach88/nature/internal/router"
	"github.com/roach88/nature/internal/store"
	"github.com/roach88/nature/internal/testutil"
)

// Run executes a scenario and returns the result.
//
// Each scenario gets a fresh in-memory store and fresh caches.
//
// Execution flow:
// 1. Compile every spec directory and load the rows into memory
// 2. Build a router with the scenario's seed and clock
// 3. Route the instance
// 4. Compare the missions, or the error, with the expectations
//
// The returned error reports a scenario that could not be executed at all;
// expectation mismatches are recorded in the Result.
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	// Compile specs into a fresh store
	mem, err := loadSpecs(ctx, scenario.Specs)
	if err != nil {
		return nil, err
	}

	// Fixed seed, clock and group labels keep the run deterministic
	metas := meta.NewCache()
	rt := router.New(mem, mem,
		router.WithMetaCache(metas),
		router.WithRelationCache(relation.NewCache(metas,
			relation.WithGroupIDGenerator(testutil.NewSequenceGenerator("group")))),
		router.WithBalancer(balance.New(balance.WithSeed(scenario.Seed))),
		router.WithResolver(mission.NewResolver(
			mission.WithClock(testutil.NewFixedClockUnix(scenario.Now)))),
	)

	// Route the instance
	result := NewResult()
	missions, routeErr := rt.Route(ctx, scenario.Instance.Instance())
	for _, m := range missions {
		result.Missions = append(result.Missions, Snapshot(m))
	}

	// A routing failure passes only when the scenario expects it
	if routeErr != nil {
		result.RouteError = routeErr.Error()
		switch {
		case scenario.Error == "":
			result.AddError(fmt.Sprintf("routing failed: %v", routeErr))
		case !strings.Contains(routeErr.Error(), scenario.Error):
			result.AddError(fmt.Sprintf("routing error %q does not contain %q", routeErr, scenario.Error))
		}
		return result, nil
	}
	if scenario.Error != "" {
		result.AddError(fmt.Sprintf("expected routing to fail with %q, got %d mission(s)", scenario.Error, len(missions)))
		return result, nil
	}

	// Compare missions with expectations
	for _, msg := range CompareMissions(scenario.Expect, result.Missions) {
		result.AddError(msg)
	}
	return result, nil
}

// loadSpecs compiles every directory and writes the rows to a fresh store.
func loadSpecs(ctx context.Context, dirs []string) (*store.Memory, error) {
	mem := store.NewMemory()
	for _, dir := range dirs {
		loaded, errs := compiler.LoadSpecs(dir, compiler.LoadModeFailFast)
		if len(errs) > 0 {
			return nil, fmt.Errorf("failed to compile specs %s: %w", dir, errors.Join(errs...))
		}
		if err := store.WriteDefinitions(ctx, mem, loaded.Metas, loaded.Relations); err != nil {
			return nil, err
		}
	}
	return mem, nil
}

// CompareMissions returns one message per difference between want and got.
// Missions are compared positionally, in router output order. An expected
// mission with no delay does not check the delay.
//
// Parameters:
//   - want: the scenario's expected missions
//   - got: snapshots of the resolved missions
//
// Returns nil if everything matches.
func CompareMissions(want []ExpectedMission, got []MissionSnapshot) []string {
	var errs []string
	if len(want) != len(got) {
		errs = append(errs, fmt.Sprintf("expected %d mission(s), got %d: %s", len(want), len(got), describe(got)))
	}

	// Compare the overlapping prefix even when the counts differ
	for i := range min(len(want), len(got)) {
		w, g := want[i], got[i]
		if w.To != g.To {
			errs = append(errs, fmt.Sprintf("mission[%d]: to = %s, want %s", i, g.To, w.To))
		}
		if w.Executor != g.Executor {
			errs = append(errs, fmt.Sprintf("mission[%d]: executor = %s, want %s", i, g.Executor, w.Executor))
		}
		if w.Delay != nil && *w.Delay != g.Delay {
			errs = append(errs, fmt.Sprintf("mission[%d]: delay = %d, want %d", i, g.Delay, *w.Delay))
		}
	}
	return errs
}

func describe(got []MissionSnapshot) string {
	parts := make([]string, 0, len(got))
	for _, m := range got {
		parts = append(parts, m.To+"@"+m.Executor)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
