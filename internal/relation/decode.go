package relation

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/roach88/nature/internal/meta"
	"github.com/roach88/nature/internal/model"
)

// Decode expands one relation row into one Relation per executor.
//
// Group labels: blank labels are ignored, two different non-empty labels in
// one row are rejected, and a row with no label at all gets one from gen.
// The chosen label is written to every executor of the row.
//
// The downstream meta is resolved through metas. Target-state demands must
// name states the downstream meta declares, and a stateless downstream may
// not carry any. A stateful downstream that declares no states accepts no
// demand.
//
// Errors are model errors. VERIFY and NOT_DEFINED concern this row only;
// ENVIRONMENT and SYSTEM come from the meta origin.
func Decode(ctx context.Context, raw model.RawRelation, metas *meta.Cache, metaGetter meta.Getter, gen GroupIDGenerator) ([]model.Relation, error) {
	from, err := meta.Parse(raw.From)
	if err != nil {
		return nil, err
	}

	var settings model.RelationSettings
	if strings.TrimSpace(raw.Settings) != "" {
		if err := json.Unmarshal([]byte(raw.Settings), &settings); err != nil {
			return nil, model.NewVerifyError("relation %s -> %s: invalid settings: %v", raw.From, raw.To, err)
		}
	}

	if len(settings.Executor) == 0 {
		return nil, model.NewVerifyError("relation %s -> %s: no executor", raw.From, raw.To)
	}
	if err := checkExecutors(raw, settings); err != nil {
		return nil, err
	}
	if settings.Delay < 0 {
		return nil, model.NewVerifyError("relation %s -> %s: negative delay %d", raw.From, raw.To, settings.Delay)
	}
	if d := settings.DelayOnPara; d != nil && d.Part < 0 {
		return nil, model.NewVerifyError("relation %s -> %s: negative delay_on_para part %d", raw.From, raw.To, d.Part)
	}

	group, err := groupLabel(raw, settings.Executor)
	if err != nil {
		return nil, err
	}

	to, err := metas.Get(ctx, raw.To, metaGetter)
	if err != nil {
		return nil, err
	}
	if err := checkTarget(to, settings.Target); err != nil {
		return nil, err
	}

	if group == "" {
		group = gen.Generate()
	}

	rels := make([]model.Relation, 0, len(settings.Executor))
	for _, exec := range settings.Executor {
		exec.Group = group
		rels = append(rels, model.Relation{
			From:          from.String(),
			To:            to.Clone(),
			Selector:      settings.Selector.Clone(),
			Executor:      exec,
			ConvertBefore: settings.ConvertBefore,
			ConvertAfter:  settings.ConvertAfter,
			UseUpstreamID: settings.UseUpstreamID,
			Target:        settings.Target.Clone(),
			Delay:         settings.Delay,
			DelayOnPara:   settings.DelayOnPara,
		})
	}
	return rels, nil
}

// groupLabel returns the row's single non-empty group label, or "" when no
// executor declares one.
func groupLabel(raw model.RawRelation, execs []model.Executor) (string, error) {
	var label string
	for _, e := range execs {
		if e.Group == "" {
			continue
		}
		if label != "" && e.Group != label {
			return "", model.NewVerifyError("relation %s -> %s: executors declare different groups %q and %q",
				raw.From, raw.To, label, e.Group)
		}
		label = e.Group
	}
	return label, nil
}

func checkExecutors(raw model.RawRelation, settings model.RelationSettings) error {
	lists := [][]model.Executor{settings.Executor, settings.ConvertBefore, settings.ConvertAfter}
	for _, list := range lists {
		for _, e := range list {
			if !model.ValidProtocols[e.Protocol] {
				return model.NewVerifyError("relation %s -> %s: unknown protocol %q", raw.From, raw.To, e.Protocol)
			}
			if e.URL == "" {
				return model.NewVerifyError("relation %s -> %s: executor has no url", raw.From, raw.To)
			}
			if e.Proportion < 0 {
				return model.NewVerifyError("relation %s -> %s: negative proportion %v", raw.From, raw.To, e.Proportion)
			}
		}
	}
	return nil
}

func checkTarget(to model.Meta, target *model.TargetDemand) error {
	names := target.StateNames()
	if len(names) == 0 {
		return nil
	}
	if !to.IsStateful() {
		return model.NewVerifyError("relation target %s is stateless but the relation demands states %v", to, names)
	}

	var undeclared []string
	for _, name := range names {
		if !to.HasState(name) {
			undeclared = append(undeclared, name)
		}
	}
	if len(undeclared) > 0 {
		return model.NewVerifyError("relation target %s does not declare states %v", to, undeclared)
	}
	return nil
}
