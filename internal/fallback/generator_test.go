package fallback

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/testforge/api/schemas"
)

func newGenerator(t *testing.T) *Generator {
	t.Helper()
	return NewGenerator(zaptest.NewLogger(t))
}

// confirmableEntity has a required name, a draft/confirmed state and one action.
func confirmableEntity() schemas.EntityDescription {
	return schemas.EntityDescription{
		EntityName: "x.order",
		Attributes: []schemas.AttributeDescription{
			{Name: "name", Kind: schemas.KindText, FieldType: "Char", Required: true},
			{Name: "state", Kind: schemas.KindSelection, FieldType: "Selection", Options: []string{"draft", "confirmed"}},
		},
		Operations: []schemas.OperationDescription{
			{Name: "action_confirm", Visibility: schemas.VisibilityAction},
		},
		StateField: &schemas.StateField{Attribute: "state", States: []string{"draft", "confirmed"}},
	}
}

func categories(scenarios []schemas.TestScenario) []schemas.ScenarioCategory {
	out := make([]schemas.ScenarioCategory, 0, len(scenarios))
	for _, s := range scenarios {
		out = append(out, s.Category)
	}
	return out
}

func TestGenerate_HappyPath(t *testing.T) {
	g := newGenerator(t)

	scenarios := g.Generate(confirmableEntity())

	require.Len(t, scenarios, 3)
	assert.Equal(t,
		[]schemas.ScenarioCategory{schemas.CategoryCRUD, schemas.CategoryValidation, schemas.CategoryWorkflow},
		categories(scenarios))
	assert.Equal(t, "TC001", scenarios[0].ScenarioID)
	assert.Equal(t, "TC002", scenarios[1].ScenarioID)
	assert.Equal(t, "TC003", scenarios[2].ScenarioID)

	crud := scenarios[0]
	assert.Equal(t, "Create X Order", crud.Name)
	assert.Contains(t, crud.ScriptBody, "TC001 Create X Order\n")
	assert.Contains(t, crud.ScriptBody, "Input Text    //div[@name='name']//input    Test name")

	validation := scenarios[1]
	assert.Contains(t, validation.ScriptBody, InvalidFieldLocator("name"))
	assert.NotContains(t, validation.ScriptBody, "Input Text    //div[@name='name']//input")

	workflow := scenarios[2]
	assert.Contains(t, workflow.ScriptBody, StatusbarLocator("state", "draft"))
	assert.Equal(t, "state is 'draft'", workflow.Steps[len(workflow.Steps)-1].Expected)
}

func TestGenerate_BodiesAreWellFormedSuites(t *testing.T) {
	g := newGenerator(t)

	for _, s := range g.Generate(confirmableEntity()) {
		t.Run(string(s.Category), func(t *testing.T) {
			assert.NotEmpty(t, s.ScriptBody)
			assert.NotEqual(t, schemas.PlaceholderScriptBody, s.ScriptBody)
			assert.True(t, strings.HasPrefix(s.ScriptBody, "*** Settings ***\n"))
			for _, section := range []string{"*** Variables ***", "*** Test Cases ***", "*** Keywords ***"} {
				assert.Equal(t, 1, strings.Count(s.ScriptBody, section), section)
			}
			assert.Contains(t, s.ScriptBody, "Library    SeleniumLibrary")
			assert.Contains(t, s.ScriptBody, "${MODEL}    x.order")
			assert.Contains(t, s.ScriptBody, "[Tags]    "+string(s.Category)+"    fallback")
			assert.NotContains(t, s.ScriptBody, "\t")
			assert.NotEmpty(t, s.Steps)
		})
	}
}

func TestGenerate_CRUDAlwaysPresent(t *testing.T) {
	g := newGenerator(t)

	scenarios := g.Generate(schemas.EntityDescription{EntityName: "x.note"})

	require.Len(t, scenarios, 1)
	assert.Equal(t, schemas.CategoryCRUD, scenarios[0].Category)
}

func TestGenerate_WorkflowWithoutRequiredAttributes(t *testing.T) {
	entity := confirmableEntity()
	for i := range entity.Attributes {
		entity.Attributes[i].Required = false
	}

	scenarios := newGenerator(t).Generate(entity)

	assert.Equal(t, []schemas.ScenarioCategory{schemas.CategoryCRUD, schemas.CategoryWorkflow}, categories(scenarios))
	assert.Equal(t, "TC002", scenarios[1].ScenarioID)
}

func TestGenerate_Properties(t *testing.T) {
	g := newGenerator(t)

	entities := map[string]schemas.EntityDescription{
		"empty": {EntityName: "x.empty"},
		"required relation only": {
			EntityName: "x.line",
			Attributes: []schemas.AttributeDescription{
				{Name: "order_id", Kind: schemas.KindRelation, FieldType: "Many2one", Required: true},
			},
		},
		"required computed": {
			EntityName: "x.total",
			Attributes: []schemas.AttributeDescription{
				{Name: "total", Kind: schemas.KindComputed, ComputedFrom: "_compute_total", Required: true},
			},
		},
		"state without required": {
			EntityName: "x.task",
			Attributes: []schemas.AttributeDescription{
				{Name: "note", Kind: schemas.KindText, FieldType: "Text"},
			},
			StateField: &schemas.StateField{Attribute: "stage", States: []string{"new", "done"}},
		},
	}

	for name, entity := range entities {
		t.Run(name, func(t *testing.T) {
			scenarios := g.Generate(entity)
			require.NotEmpty(t, scenarios)
			assert.Equal(t, schemas.CategoryCRUD, scenarios[0].Category)

			cats := categories(scenarios)
			if len(entity.RequiredAttributes()) > 0 {
				assert.Contains(t, cats, schemas.CategoryValidation)
			} else {
				assert.NotContains(t, cats, schemas.CategoryValidation)
			}
			if entity.StateField != nil {
				require.Contains(t, cats, schemas.CategoryWorkflow)
				initial := entity.StateField.States[0]
				for _, s := range scenarios {
					if s.Category == schemas.CategoryWorkflow {
						assert.Contains(t, s.ScriptBody, StatusbarLocator(entity.StateField.Attribute, initial))
					}
				}
			} else {
				assert.NotContains(t, cats, schemas.CategoryWorkflow)
			}

			ids := map[string]bool{}
			for _, s := range scenarios {
				assert.NotEmpty(t, s.ScriptBody)
				assert.NotEqual(t, schemas.PlaceholderScriptBody, s.ScriptBody)
				assert.False(t, ids[s.ScenarioID], "duplicate id %s", s.ScenarioID)
				ids[s.ScenarioID] = true
			}
		})
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	g := newGenerator(t)
	assert.Equal(t, g.Generate(confirmableEntity()), g.Generate(confirmableEntity()))
}

func TestGenerate_FillsByKind(t *testing.T) {
	g := NewGenerator(zap.NewNop())
	entity := schemas.EntityDescription{
		EntityName: "x.contract",
		Attributes: []schemas.AttributeDescription{
			{Name: "partner_id", Kind: schemas.KindRelation, FieldType: "Many2one", Required: true},
			{Name: "active", Kind: schemas.KindBoolean, FieldType: "Boolean", Required: true},
			{Name: "kind", Kind: schemas.KindSelection, FieldType: "Selection", Options: []string{"fixed", "hourly"}, Required: true},
			{Name: "date_start", Kind: schemas.KindDate, FieldType: "Date", Required: true},
			{Name: "amount", Kind: schemas.KindNumber, FieldType: "Monetary", Required: true},
			{Name: "line_ids", Kind: schemas.KindRelation, FieldType: "One2many", Required: true},
			{Name: "code", Kind: schemas.KindText, FieldType: "Char", Required: true, Readonly: true},
		},
	}

	crud := g.Generate(entity)[0]
	body := crud.ScriptBody

	assert.Contains(t, body, "Input Text    //div[@name='partner_id']//input[contains(@class,'o_input')]    a")
	assert.Contains(t, body, "Click Element    "+autocompleteLocator)
	assert.Contains(t, body, "Select Checkbox    //div[@name='active']//input[@type='checkbox']")
	assert.Contains(t, body, `Select From List By Value    //div[@name='kind']//select    "fixed"`)
	assert.Contains(t, body, "o_datepicker_input")
	assert.Contains(t, body, "Input Text    //div[@name='amount']//input    10.00")
	assert.Contains(t, body, "# line_ids (One2many) has no direct input and must be set manually")
	assert.NotContains(t, body, "//div[@name='code']")
	// One step for opening the form, five fills, one save.
	assert.Len(t, crud.Steps, 7)
}

func TestFieldLocator_Default(t *testing.T) {
	loc := FieldLocator(schemas.AttributeDescription{Name: "x", Kind: schemas.KindOther})
	assert.Equal(t, "//div[@name='x']//input | //*[@name='x']", loc)
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "Sale Order", title("sale.order"))
	assert.Equal(t, "Partner Id", title("partner_id"))
	assert.Equal(t, "", title(""))
	assert.Equal(t, "Élève Note", title("élève.note"))
}
