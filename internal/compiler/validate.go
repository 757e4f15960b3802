package compiler

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/nature/internal/meta"
	"github.com/roach88/nature/internal/model"
)

// Validation error codes
const (
	// General validation errors (E100)
	ErrUnsupportedType = "E100" // unsupported value type for validation

	// Meta errors (E201-E209)
	ErrMetaInvalidType    = "E201" // unknown meta type
	ErrMetaEmptyKey       = "E202" // key required for every type but N
	ErrMetaInvalidVersion = "E203" // version must be positive
	ErrMetaDuplicateState = "E204" // state declared twice
	ErrMetaInvalidConfig  = "E205" // config is not a setting object
	ErrMetaMultiNoSubs    = "E206" // M meta without sub-metas
	ErrMetaInvalidRef     = "E207" // master or sub-meta is not a valid identifier
	ErrMetaSubsNotMulti   = "E208" // sub-metas on a non-M meta
	ErrMetaReferenceCycle = "E209" // master or sub-meta references form a cycle

	// Relation errors (E301-E319)
	ErrRelationInvalidFrom     = "E301" // from is not a valid identifier
	ErrRelationInvalidTo       = "E302" // to is not a valid identifier
	ErrRelationInvalidSettings = "E303" // settings is not a settings object
	ErrRelationNoExecutor      = "E304" // at least one executor required
	ErrRelationBadProtocol     = "E305" // unknown executor protocol
	ErrRelationEmptyURL        = "E306" // executor url required
	ErrRelationBadProportion   = "E307" // proportion must not be negative
	ErrRelationGroupConflict   = "E308" // executors declare different groups
	ErrRelationNegativeDelay   = "E309" // delay or delay_on_para.part negative
	ErrRelationDeadSelector    = "E310" // name in both all and none
	ErrRelationTargetConflict  = "E311" // state both added and removed
	ErrRelationUnresolved      = "E312" // relation does not decode against the compiled metas
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate validates a compiled definition row against schema rules.
// Returns all errors found (does not fail-fast).
// Supports RawMeta and RawRelation types.
//
// Validate looks at one row at a time; references between rows (a
// relation naming an undefined meta, an undeclared target state) are
// checked by decoding relations against the compiled metas.
func Validate(v any) []ValidationError {
	switch row := v.(type) {
	case *model.RawMeta:
		return validateMeta(row)
	case model.RawMeta:
		return validateMeta(&row)
	case *model.RawRelation:
		return validateRelation(row)
	case model.RawRelation:
		return validateRelation(&row)
	default:
		return []ValidationError{{
			Field:   "type",
			Message: fmt.Sprintf("unsupported type: %T", v),
			Code:    ErrUnsupportedType,
		}}
	}
}

func validateMeta(raw *model.RawMeta) []ValidationError {
	var errs []ValidationError
	id := raw.MetaString()
	typ := model.MetaType(raw.MetaType)

	if !model.ValidMetaTypes[typ] {
		errs = append(errs, ValidationError{
			Field:   "meta_type",
			Message: fmt.Sprintf("%s: unknown meta type %q", id, raw.MetaType),
			Code:    ErrMetaInvalidType,
		})
	}

	if strings.TrimSpace(raw.MetaKey) == "" && typ != model.MetaNull {
		errs = append(errs, ValidationError{
			Field:   "meta_key",
			Message: fmt.Sprintf("%s: key is required", id),
			Code:    ErrMetaEmptyKey,
		})
	}

	if raw.Version <= 0 {
		errs = append(errs, ValidationError{
			Field:   "version",
			Message: fmt.Sprintf("%s: version must be positive, got %d", id, raw.Version),
			Code:    ErrMetaInvalidVersion,
		})
	}

	seen := make(map[string]bool)
	for name := range strings.SplitSeq(raw.States, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if seen[name] {
			errs = append(errs, ValidationError{
				Field:   "states",
				Message: fmt.Sprintf("%s: duplicate state %q", id, name),
				Code:    ErrMetaDuplicateState,
			})
		}
		seen[name] = true
	}

	var setting model.MetaSetting
	if cfg := strings.TrimSpace(raw.Config); cfg != "" {
		if err := json.Unmarshal([]byte(cfg), &setting); err != nil {
			return append(errs, ValidationError{
				Field:   "config",
				Message: fmt.Sprintf("%s: invalid config: %v", id, err),
				Code:    ErrMetaInvalidConfig,
			})
		}
	}

	if setting.Master != "" {
		if _, err := meta.Parse(setting.Master); err != nil {
			errs = append(errs, ValidationError{
				Field:   "config.master",
				Message: fmt.Sprintf("%s: %v", id, err),
				Code:    ErrMetaInvalidRef,
			})
		}
	}

	for i, sub := range setting.MultiMeta {
		if _, err := meta.Parse(sub); err != nil {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("config.multi_meta[%d]", i),
				Message: fmt.Sprintf("%s: %v", id, err),
				Code:    ErrMetaInvalidRef,
			})
		}
	}

	switch {
	case typ == model.MetaMulti && len(setting.MultiMeta) == 0:
		errs = append(errs, ValidationError{
			Field:   "config.multi_meta",
			Message: fmt.Sprintf("%s: multi meta must list at least one sub-meta", id),
			Code:    ErrMetaMultiNoSubs,
		})
	case typ != model.MetaMulti && len(setting.MultiMeta) > 0:
		errs = append(errs, ValidationError{
			Field:   "config.multi_meta",
			Message: fmt.Sprintf("%s: only M metas may list sub-metas", id),
			Code:    ErrMetaSubsNotMulti,
		})
	}

	return errs
}

func validateRelation(raw *model.RawRelation) []ValidationError {
	var errs []ValidationError
	label := raw.From + " -> " + raw.To

	if _, err := meta.Parse(raw.From); err != nil {
		errs = append(errs, ValidationError{
			Field:   "from",
			Message: err.Error(),
			Code:    ErrRelationInvalidFrom,
		})
	}
	if _, err := meta.Parse(raw.To); err != nil {
		errs = append(errs, ValidationError{
			Field:   "to",
			Message: err.Error(),
			Code:    ErrRelationInvalidTo,
		})
	}

	var settings model.RelationSettings
	if strings.TrimSpace(raw.Settings) != "" {
		if err := json.Unmarshal([]byte(raw.Settings), &settings); err != nil {
			return append(errs, ValidationError{
				Field:   "settings",
				Message: fmt.Sprintf("%s: invalid settings: %v", label, err),
				Code:    ErrRelationInvalidSettings,
			})
		}
	}

	if len(settings.Executor) == 0 {
		errs = append(errs, ValidationError{
			Field:   "executor",
			Message: fmt.Sprintf("%s: at least one executor is required", label),
			Code:    ErrRelationNoExecutor,
		})
	}

	lists := []struct {
		name  string
		execs []model.Executor
	}{
		{"executor", settings.Executor},
		{"convert_before", settings.ConvertBefore},
		{"convert_after", settings.ConvertAfter},
	}
	for _, list := range lists {
		for i, e := range list.execs {
			errs = append(errs, validateExecutor(e, fmt.Sprintf("%s[%d]", list.name, i), label)...)
		}
	}

	var group string
	for i, e := range settings.Executor {
		if e.Group == "" {
			continue
		}
		if group != "" && e.Group != group {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("executor[%d].group", i),
				Message: fmt.Sprintf("%s: group %q conflicts with %q", label, e.Group, group),
				Code:    ErrRelationGroupConflict,
			})
			continue
		}
		group = e.Group
	}

	if settings.Delay < 0 {
		errs = append(errs, ValidationError{
			Field:   "delay",
			Message: fmt.Sprintf("%s: delay must not be negative, got %d", label, settings.Delay),
			Code:    ErrRelationNegativeDelay,
		})
	}
	if d := settings.DelayOnPara; d != nil && d.Part < 0 {
		errs = append(errs, ValidationError{
			Field:   "delay_on_para.part",
			Message: fmt.Sprintf("%s: part must not be negative, got %d", label, d.Part),
			Code:    ErrRelationNegativeDelay,
		})
	}

	if sel := settings.Selector; sel != nil {
		errs = append(errs, deadSelector("selector.state", label, sel.StateAll, sel.StateNone)...)
		errs = append(errs, deadSelector("selector.context", label, sel.ContextAll, sel.ContextNone)...)
		errs = append(errs, deadSelector("selector.sys_context", label, sel.SysContextAll, sel.SysContextNone)...)
	}

	if t := settings.Target; t != nil && t.States != nil {
		for _, name := range t.States.Add {
			if slices.Contains(t.States.Remove, name) {
				errs = append(errs, ValidationError{
					Field:   "target.states",
					Message: fmt.Sprintf("%s: state %q is both added and removed", label, name),
					Code:    ErrRelationTargetConflict,
				})
			}
		}
	}

	return errs
}

func validateExecutor(e model.Executor, field, label string) []ValidationError {
	var errs []ValidationError

	if !model.ValidProtocols[e.Protocol] {
		errs = append(errs, ValidationError{
			Field:   field + ".protocol",
			Message: fmt.Sprintf("%s: unknown protocol %q", label, e.Protocol),
			Code:    ErrRelationBadProtocol,
		})
	}
	if strings.TrimSpace(e.URL) == "" {
		errs = append(errs, ValidationError{
			Field:   field + ".url",
			Message: fmt.Sprintf("%s: url is required", label),
			Code:    ErrRelationEmptyURL,
		})
	}
	if e.Proportion < 0 {
		errs = append(errs, ValidationError{
			Field:   field + ".proportion",
			Message: fmt.Sprintf("%s: proportion must not be negative, got %v", label, e.Proportion),
			Code:    ErrRelationBadProportion,
		})
	}

	return errs
}

// deadSelector reports names required by all and forbidden by none, which
// makes the selector unsatisfiable.
func deadSelector(field, label string, all, none []string) []ValidationError {
	var errs []ValidationError
	for _, name := range all {
		if slices.Contains(none, name) {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("%s: %q is both required and forbidden, the relation can never match", label, name),
				Code:    ErrRelationDeadSelector,
			})
		}
	}
	return errs
}
