// Filename: fallback/generator.go
// Synthesizes a small deterministic scenario set straight from an entity
// description when the completion pipeline produced nothing usable.
package fallback

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/testforge/api/schemas"
)

// Tag carried by every generated scenario.
const Tag = "fallback"

// Generator builds baseline scenarios. It never fails and holds no state,
// so one instance can serve concurrent callers.
type Generator struct {
	logger *zap.Logger
}

// NewGenerator creates a fallback generator.
func NewGenerator(logger *zap.Logger) *Generator {
	return &Generator{logger: logger.Named("fallback")}
}

// builders run in order; each reports whether it applies to the entity.
var builders = []func(schemas.EntityDescription, string) (schemas.TestScenario, bool){
	crudScenario,
	validationScenario,
	workflowScenario,
}

// Generate returns the baseline scenarios for entity. The CRUD scenario is
// always present. A validation scenario is added whenever the entity has
// required attributes and a workflow scenario whenever it has a state field,
// regardless of the coverage selected for the completion prompt.
func (g *Generator) Generate(entity schemas.EntityDescription) []schemas.TestScenario {

	out := make([]schemas.TestScenario, 0, len(builders))
	for _, build := range builders {
		id := fmt.Sprintf("TC%03d", len(out)+1)
		if s, ok := build(entity, id); ok {
			out = append(out, s)
		}
	}

	g.logger.Info("Generated fallback scenarios",
		zap.String("entity", entity.EntityName),
		zap.Int("count", len(out)),
	)
	return out
}

// fillable reports whether the form exposes an input the test can set.
func fillable(a schemas.AttributeDescription) bool {
	return a.Kind != schemas.KindComputed && a.ComputedFrom == "" && a.Related == "" && !a.Readonly
}

// creationFields are the attributes a create test fills: the fillable
// required ones, or the first fillable text attribute when none is required.
func creationFields(entity schemas.EntityDescription) []schemas.AttributeDescription {
	var out []schemas.AttributeDescription
	for _, a := range entity.RequiredAttributes() {
		if fillable(a) {
			out = append(out, a)
		}
	}
	if len(out) > 0 {
		return out
	}
	for _, a := range entity.Attributes {
		if a.Kind == schemas.KindText && fillable(a) {
			return []schemas.AttributeDescription{a}
		}
	}
	return nil
}

// fill writes the keywords setting each attribute and returns one step per attribute.
func fill(s *suite, attrs []schemas.AttributeDescription) []schemas.TestStep {
	var steps []schemas.TestStep
	for _, a := range attrs {
		lines, ok := fillKeywords(a)
		if !ok {
			s.comment(fmt.Sprintf("%s (%s) has no direct input and must be set manually", a.Name, a.FieldType))
			continue
		}
		s.add(lines...)
		steps = append(steps, schemas.TestStep{
			Name:     "Fill " + a.Name,
			Action:   fmt.Sprintf("Set a valid value in %s", label(a)),
			Expected: "Value is accepted",
		})
	}
	return steps
}

func label(a schemas.AttributeDescription) string {
	if a.Label != "" {
		return fmt.Sprintf("%q (%s)", a.Label, a.Name)
	}
	return a.Name
}

func newSuite(entity schemas.EntityDescription, id, name, doc string, category schemas.ScenarioCategory) *suite {
	return &suite{
		documentation: fmt.Sprintf("Baseline %s test for %s", category, entity.EntityName),
		model:         entity.EntityName,
		testName:      id + " " + name,
		testDoc:       doc,
		tags:          []string{string(category), Tag},
	}
}

func openFormStep() schemas.TestStep {
	return schemas.TestStep{
		Name:     "Open form",
		Action:   "Open a new record form",
		Expected: "The form view is displayed",
	}
}

func crudScenario(entity schemas.EntityDescription, id string) (schemas.TestScenario, bool) {
	name := "Create " + title(entity.EntityName)
	doc := fmt.Sprintf("Create a %s record with valid values and save it.", entity.EntityName)
	s := newSuite(entity, id, name, doc, schemas.CategoryCRUD)

	steps := []schemas.TestStep{openFormStep()}
	s.add("Open New Record Form")
	steps = append(steps, fill(s, creationFields(entity))...)
	s.add(
		"Save Record",
		robotLine("Wait Until Page Does Not Contain Element", saveButtonLocator, "timeout=10s"),
		robotLine("Page Should Not Contain Element", dangerNotification),
	)
	steps = append(steps, schemas.TestStep{
		Name:     "Save",
		Action:   "Click Save",
		Expected: "The record is saved without error",
	})

	return schemas.TestScenario{
		ScenarioID:  id,
		Name:        name,
		Description: doc,
		Category:    schemas.CategoryCRUD,
		Tags:        Tag,
		Priority:    "high",
		Steps:       steps,
		ScriptBody:  s.render(),
	}, true
}

func validationScenario(entity schemas.EntityDescription, id string) (schemas.TestScenario, bool) {
	required := entity.RequiredAttributes()
	if len(required) == 0 {
		return schemas.TestScenario{}, false
	}
	omitted := required[0]
	var rest []schemas.AttributeDescription
	for _, a := range required[1:] {
		if fillable(a) {
			rest = append(rest, a)
		}
	}

	name := fmt.Sprintf("Create %s Without %s", title(entity.EntityName), title(omitted.Name))
	doc := fmt.Sprintf("Saving a %s record without the required field %s is rejected.", entity.EntityName, omitted.Name)
	s := newSuite(entity, id, name, doc, schemas.CategoryValidation)

	steps := []schemas.TestStep{openFormStep()}
	s.add("Open New Record Form")
	steps = append(steps, fill(s, rest)...)
	s.add(
		"Save Record",
		robotLine("Wait Until Page Contains Element", InvalidFieldLocator(omitted.Name), "timeout=10s"),
		robotLine("Page Should Contain Element", saveButtonLocator),
	)
	steps = append(steps, schemas.TestStep{
		Name:     "Save without " + omitted.Name,
		Action:   fmt.Sprintf("Leave %s empty and click Save", label(omitted)),
		Expected: fmt.Sprintf("The record is not saved and %s is highlighted as invalid", omitted.Name),
	})

	return schemas.TestScenario{
		ScenarioID:  id,
		Name:        name,
		Description: doc,
		Category:    schemas.CategoryValidation,
		Tags:        Tag,
		Priority:    "high",
		Steps:       steps,
		ScriptBody:  s.render(),
	}, true
}

func workflowScenario(entity schemas.EntityDescription, id string) (schemas.TestScenario, bool) {
	sf := entity.StateField
	if sf == nil || sf.Attribute == "" || len(sf.States) == 0 {
		return schemas.TestScenario{}, false
	}
	initial := sf.States[0]

	name := fmt.Sprintf("New %s Starts In %s", title(entity.EntityName), title(initial))
	doc := fmt.Sprintf("A newly saved %s record is in state %s.", entity.EntityName, initial)
	s := newSuite(entity, id, name, doc, schemas.CategoryWorkflow)

	steps := []schemas.TestStep{openFormStep()}
	s.add("Open New Record Form")
	steps = append(steps, fill(s, creationFields(entity))...)
	s.add(
		"Save Record",
		robotLine("Wait Until Page Contains Element", StatusbarLocator(sf.Attribute, initial), "timeout=10s"),
	)
	steps = append(steps, schemas.TestStep{
		Name:     "Check initial state",
		Action:   "Save the record and read the status bar",
		Expected: fmt.Sprintf("%s is '%s'", sf.Attribute, initial),
	})

	return schemas.TestScenario{
		ScenarioID:  id,
		Name:        name,
		Description: doc,
		Category:    schemas.CategoryWorkflow,
		Tags:        Tag,
		Priority:    "medium",
		Steps:       steps,
		ScriptBody:  s.render(),
	}, true
}
