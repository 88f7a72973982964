// Filename: prompt/prompt.go
// Renders entity descriptions, free-text requirements and failing scripts
// into instruction documents for the completion endpoint. Rendering is pure.
package prompt

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	"github.com/xkilldash9x/testforge/api/schemas"
)

// Requirement is a free-text functional requirement.
type Requirement struct {
	Name           string `json:"name"`
	Specification  string `json:"specification"`
	Preconditions  string `json:"preconditions"`
	Postconditions string `json:"postconditions"`
	ModuleName     string `json:"module_name"`
}

var categoryHints = map[schemas.ScenarioCategory]string{
	schemas.CategoryCRUD:       "create, read, update and delete records through the UI",
	schemas.CategoryValidation: "required fields, constraint messages and invalid input rejection",
	schemas.CategoryWorkflow:   "state transitions driven by the action buttons",
	schemas.CategorySecurity:   "access rights per user group",
	schemas.CategoryNegative:   "error paths, guarded actions and boundary values",
	schemas.CategoryFunctional: "end-to-end business behavior",
}

// Builder renders instruction documents. It is safe for concurrent use.
type Builder struct {
	entity      *template.Template
	requirement *template.Template
	improve     *template.Template
}

// NewBuilder parses the document templates.
func NewBuilder() (*Builder, error) {
	funcs := sprig.TxtFuncMap()
	funcs["permissions"] = permissions
	funcs["requiredNames"] = requiredNames
	funcs["actionNames"] = actionNames

	parse := func(name, body string) (*template.Template, error) {
		t := template.New(name).Funcs(funcs)
		for _, shared := range []string{coverageTemplate, outputFormatTemplate} {
			if _, err := t.Parse(shared); err != nil {
				return nil, fmt.Errorf("failed to parse shared template for %s: %w", name, err)
			}
		}
		if _, err := t.Parse(body); err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", name, err)
		}
		return t, nil
	}

	b := &Builder{}
	var err error
	if b.entity, err = parse("entity", entityTemplate); err != nil {
		return nil, err
	}
	if b.requirement, err = parse("requirement", requirementTemplate); err != nil {
		return nil, err
	}
	if b.improve, err = template.New("improve").Funcs(funcs).Parse(improveTemplate); err != nil {
		return nil, fmt.Errorf("failed to parse improve template: %w", err)
	}
	return b, nil
}

// SystemPrompt returns the role framing sent with every request.
func (b *Builder) SystemPrompt() string {
	return systemPrompt
}

type operationGroup struct {
	Title      string
	Operations []schemas.OperationDescription
}

type coverageView struct {
	MaxScenarios int
	Requested    []categoryView
	Excluded     []string
}

type categoryView struct {
	Name string
	Hint string
}

type outputView struct {
	Subject    string
	Categories []string
}

type entityView struct {
	Entity          schemas.EntityDescription
	Required        []schemas.AttributeDescription
	Relational      []schemas.AttributeDescription
	Selection       []schemas.AttributeDescription
	Computed        []schemas.AttributeDescription
	Other           []schemas.AttributeDescription
	OperationGroups []operationGroup
	Coverage        coverageView
	Output          outputView
}

// BuildEntityPrompt renders the generation document for one entity.
func (b *Builder) BuildEntityPrompt(entity schemas.EntityDescription, cov schemas.ScenarioCoverageConfig) (string, error) {
	view := entityView{
		Entity:   entity,
		Coverage: newCoverageView(cov),
		Output:   newOutputView(entity.EntityName),
	}

	for _, a := range entity.Attributes {
		switch {
		case a.Kind == schemas.KindComputed || a.ComputedFrom != "":
			view.Computed = append(view.Computed, a)
		case a.Required:
			view.Required = append(view.Required, a)
		case a.Kind == schemas.KindRelation:
			view.Relational = append(view.Relational, a)
		case a.Kind == schemas.KindSelection:
			view.Selection = append(view.Selection, a)
		default:
			view.Other = append(view.Other, a)
		}
	}
	// Required relations and selections are listed in their own group as well.
	for _, a := range view.Required {
		switch a.Kind {
		case schemas.KindRelation:
			view.Relational = append(view.Relational, a)
		case schemas.KindSelection:
			view.Selection = append(view.Selection, a)
		}
	}

	groups := []struct {
		title      string
		visibility schemas.Visibility
	}{
		{"Action triggers (buttons)", schemas.VisibilityAction},
		{"Computed triggers", schemas.VisibilityComputed},
		{"Change triggers (onchange)", schemas.VisibilityChange},
		{"Constraint triggers", schemas.VisibilityConstraint},
	}
	for _, g := range groups {
		group := operationGroup{Title: g.title}
		for _, op := range entity.Operations {
			if op.Visibility == g.visibility {
				group.Operations = append(group.Operations, op)
			}
		}
		view.OperationGroups = append(view.OperationGroups, group)
	}

	return render(b.entity, view)
}

type requirementView struct {
	Requirement Requirement
	Entities    []schemas.EntityDescription
	Coverage    coverageView
	Output      outputView
}

// BuildRequirementPrompt renders the generation document for a free-text
// requirement, with the module's entities as context.
func (b *Builder) BuildRequirementPrompt(req Requirement, entities []schemas.EntityDescription, cov schemas.ScenarioCoverageConfig) (string, error) {
	return render(b.requirement, requirementView{
		Requirement: req,
		Entities:    entities,
		Coverage:    newCoverageView(cov),
		Output:      newOutputView(req.Name),
	})
}

type improveView struct {
	Scenario schemas.TestScenario
	Error    string
}

// BuildImprovePrompt renders a request to fix a failing script. The answer
// is expected to be the corrected script only.
func (b *Builder) BuildImprovePrompt(scenario schemas.TestScenario, errorMessage string) (string, error) {
	return render(b.improve, improveView{Scenario: scenario, Error: errorMessage})
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render %s prompt: %w", t.Name(), err)
	}
	return strings.TrimSpace(buf.String()) + "\n", nil
}

func newCoverageView(cov schemas.ScenarioCoverageConfig) coverageView {
	view := coverageView{MaxScenarios: cov.MaxScenarios}
	if view.MaxScenarios <= 0 {
		view.MaxScenarios = schemas.DefaultCoverage().MaxScenarios
	}
	requested := map[schemas.ScenarioCategory]bool{}
	for _, c := range cov.Categories() {
		requested[c] = true
		view.Requested = append(view.Requested, categoryView{Name: string(c), Hint: categoryHints[c]})
	}
	if len(view.Requested) == 0 {
		view.Requested = append(view.Requested, categoryView{
			Name: string(schemas.CategoryFunctional),
			Hint: categoryHints[schemas.CategoryFunctional],
		})
	}
	for _, c := range schemas.DefaultCoverage().Categories() {
		if !requested[c] {
			view.Excluded = append(view.Excluded, string(c))
		}
	}
	return view
}

func newOutputView(subject string) outputView {
	var categories []string
	for _, c := range []schemas.ScenarioCategory{
		schemas.CategoryCRUD,
		schemas.CategoryValidation,
		schemas.CategoryWorkflow,
		schemas.CategorySecurity,
		schemas.CategoryNegative,
		schemas.CategoryFunctional,
	} {
		categories = append(categories, `"`+string(c)+`"`)
	}
	if subject == "" {
		subject = "record"
	}
	return outputView{Subject: subject, Categories: categories}
}

func permissions(r schemas.AccessRule) string {
	var perms []string
	for _, p := range []struct {
		name string
		set  bool
	}{
		{"read", r.PermRead},
		{"write", r.PermWrite},
		{"create", r.PermCreate},
		{"delete", r.PermUnlink},
	} {
		if p.set {
			perms = append(perms, p.name)
		}
	}
	if len(perms) == 0 {
		return "no access"
	}
	return strings.Join(perms, ", ")
}

func requiredNames(e schemas.EntityDescription) []string {
	var out []string
	for _, a := range e.Attributes {
		if a.Required {
			out = append(out, a.Name)
		}
	}
	return out
}

func actionNames(e schemas.EntityDescription) []string {
	var out []string
	for _, op := range e.Operations {
		if op.Visibility == schemas.VisibilityAction {
			out = append(out, op.Name)
		}
	}
	return out
}
