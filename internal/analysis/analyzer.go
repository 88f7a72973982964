// Filename: analysis/analyzer.go
// Static source analyzer facade: turns a fetched source tree into entity
// descriptions by merging behavior-file declarations, markup view hints and
// access control rows.
package analysis

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/xkilldash9x/testforge/api/schemas"
	"github.com/xkilldash9x/testforge/internal/analysis/python"
	"github.com/xkilldash9x/testforge/internal/analysis/views"
)

// stateAttribute is the conventional name of the workflow status attribute.
const stateAttribute = "state"

// Analyzer is the static source analyzer.
type Analyzer struct {
	logger   *zap.Logger
	behavior *python.Analyzer
	markup   *views.Analyzer
}

// NewAnalyzer creates a new static source analyzer.
func NewAnalyzer(logger *zap.Logger) *Analyzer {
	return &Analyzer{
		logger:   logger.Named("static_analyzer"),
		behavior: python.NewAnalyzer(logger),
		markup:   views.NewAnalyzer(logger),
	}
}

// entityBuilder accumulates the declarations of one entity across files.
type entityBuilder struct {
	entity         schemas.EntityDescription
	declaredStates map[string][]string
	statusbar      []string
}

// Analyze parses every behavior and markup file of tree and returns the
// entities in the order they are first declared (files in sorted path order).
// A file that fails to parse is logged and skipped; schemas.ErrAnalysisFailed
// is returned only when behavior files exist and none of them parsed.
func (a *Analyzer) Analyze(ctx context.Context, tree schemas.SourceTree) ([]schemas.EntityDescription, error) {
	builders := map[string]*entityBuilder{}
	var order []string

	behaviorFiles := tree.Paths(schemas.FileBehavior)
	parsed := 0
	for _, path := range behaviorFiles {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		decls, err := a.behavior.AnalyzeFile(ctx, path, []byte(tree[path]))
		if err != nil {
			a.logger.Warn("Skipping behavior file that failed to parse",
				zap.String("file", path),
				zap.Error(err),
			)
			continue
		}
		parsed++
		for _, d := range decls {
			b, ok := builders[d.Entity.EntityName]
			if !ok {
				builders[d.Entity.EntityName] = &entityBuilder{
					entity:         d.Entity,
					declaredStates: d.DeclaredStates,
				}
				order = append(order, d.Entity.EntityName)
				continue
			}
			b.merge(d)
		}
	}
	if len(behaviorFiles) > 0 && parsed == 0 {
		return nil, fmt.Errorf("%w: none of %d behavior files could be parsed", schemas.ErrAnalysisFailed, len(behaviorFiles))
	}

	for _, path := range tree.Paths(schemas.FileMarkup) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		hints, err := a.markup.AnalyzeFile(path, []byte(tree[path]))
		if err != nil {
			a.logger.Warn("Skipping markup file that failed to parse",
				zap.String("file", path),
				zap.Error(err),
			)
			continue
		}
		for _, h := range hints {
			b, ok := builders[h.Entity]
			if !ok {
				a.logger.Debug("View references an entity not declared in this tree",
					zap.String("file", path),
					zap.String("entity", h.Entity),
				)
				continue
			}
			b.entity.Views.Triggers = append(b.entity.Views.Triggers, h.Triggers...)
			b.entity.Views.Attributes = append(b.entity.Views.Attributes, h.Fields...)
			if len(h.StatusbarStates) > 0 && len(b.statusbar) == 0 {
				b.statusbar = h.StatusbarStates
			}
		}
	}

	for _, path := range tree.Paths(schemas.FileAccess) {
		rules, err := ParseAccessRules([]byte(tree[path]))
		if err != nil {
			a.logger.Warn("Skipping access rules that failed to parse",
				zap.String("file", path),
				zap.Error(err),
			)
			continue
		}
		for _, name := range order {
			b := builders[name]
			b.entity.AccessRules = append(b.entity.AccessRules, rules[accessModelID(name)]...)
		}
	}

	entities := make([]schemas.EntityDescription, 0, len(order))
	for _, name := range order {
		b := builders[name]
		b.finish()
		entities = append(entities, b.entity)
	}

	a.logger.Info("Static analysis complete",
		zap.Int("behavior_files", len(behaviorFiles)),
		zap.Int("parsed", parsed),
		zap.Int("entities", len(entities)),
	)
	return entities, nil
}

// merge folds a later declaration of the same entity into the builder.
// Later members overlay earlier ones of the same name.
func (b *entityBuilder) merge(d python.Declaration) {
	e := &b.entity
	if e.Extends == "" {
		e.Extends = d.Entity.Extends
	}
	if d.Entity.Description != "" && e.Description == "" {
		e.Description = d.Entity.Description
	}

	for _, attr := range d.Entity.Attributes {
		if i := indexAttribute(e.Attributes, attr.Name); i >= 0 {
			e.Attributes[i] = overlayAttribute(e.Attributes[i], attr)
		} else {
			e.Attributes = append(e.Attributes, attr)
		}
	}
	for _, op := range d.Entity.Operations {
		if i := indexOperation(e.Operations, op.Name); i >= 0 {
			e.Operations[i] = op
		} else {
			e.Operations = append(e.Operations, op)
		}
	}
	for _, c := range d.Entity.Constraints {
		replaced := false
		for i := range e.Constraints {
			if e.Constraints[i].Operation == c.Operation {
				e.Constraints[i] = c
				replaced = true
			}
		}
		if !replaced {
			e.Constraints = append(e.Constraints, c)
		}
	}
	for _, sc := range d.Entity.SQLConstraints {
		replaced := false
		for i := range e.SQLConstraints {
			if e.SQLConstraints[i].Name == sc.Name {
				e.SQLConstraints[i] = sc
				replaced = true
			}
		}
		if !replaced {
			e.SQLConstraints = append(e.SQLConstraints, sc)
		}
	}
	for attr, states := range d.DeclaredStates {
		b.declaredStates[attr] = states
	}
}

// finish detects the state field and normalizes the view hints.
func (b *entityBuilder) finish() {
	e := &b.entity
	if attr, ok := e.Attribute(stateAttribute); ok && attr.Kind == schemas.KindSelection {
		states := b.declaredStates[stateAttribute]
		if len(states) == 0 {
			states = b.statusbar
		}
		if len(states) > 0 {
			e.StateField = &schemas.StateField{
				Attribute: stateAttribute,
				States:    append([]string(nil), states...),
			}
		}
	}

	e.Views.Attributes = uniqueSorted(e.Views.Attributes)
	e.Views.Triggers = uniqueTriggers(e.Views.Triggers)
}

func overlayAttribute(base, next schemas.AttributeDescription) schemas.AttributeDescription {
	out := base
	if next.FieldType != "" {
		out.FieldType = next.FieldType
		out.Kind = next.Kind
	}
	if next.Label != "" {
		out.Label = next.Label
	}
	out.Required = out.Required || next.Required
	out.Readonly = out.Readonly || next.Readonly
	if next.ComputedFrom != "" {
		out.ComputedFrom = next.ComputedFrom
		out.Kind = schemas.KindComputed
	}
	if len(next.Depends) > 0 {
		out.Depends = next.Depends
	}
	if next.Related != "" {
		out.Related = next.Related
	}
	if next.RelatedModel != "" {
		out.RelatedModel = next.RelatedModel
	}
	for _, opt := range next.Options {
		if !contains(out.Options, opt) {
			out.Options = append(out.Options, opt)
		}
	}
	return out
}

func indexAttribute(attrs []schemas.AttributeDescription, name string) int {
	for i, a := range attrs {
		if a.Name == name {
			return i
		}
	}
	return -1
}

func indexOperation(ops []schemas.OperationDescription, name string) int {
	for i, op := range ops {
		if op.Name == name {
			return i
		}
	}
	return -1
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func uniqueSorted(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := append([]string(nil), in...)
	sort.Strings(out)
	n := 1
	for i := 1; i < len(out); i++ {
		if out[i] != out[n-1] {
			out[n] = out[i]
			n++
		}
	}
	return out[:n]
}

func uniqueTriggers(in []schemas.ViewTrigger) []schemas.ViewTrigger {
	if len(in) == 0 {
		return nil
	}
	out := append([]schemas.ViewTrigger(nil), in...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		if out[i].View != out[j].View {
			return out[i].View < out[j].View
		}
		return out[i].Label < out[j].Label
	})
	n := 1
	for i := 1; i < len(out); i++ {
		if out[i] != out[n-1] {
			out[n] = out[i]
			n++
		}
	}
	return out[:n]
}
