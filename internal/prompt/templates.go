package prompt

// systemPrompt frames every generation request.
const systemPrompt = `You are an expert QA automation engineer specializing in Robot Framework test automation for Odoo ERP. You write precise, independent, executable test scenarios and always answer in the exact JSON format requested.`

const outputFormatTemplate = `{{define "output"}}## OUTPUT FORMAT

Return a single JSON object and nothing else. It must have a "test_scenarios" array; every element has exactly these keys:
- "name": short test name, e.g. "Create order with required fields"
- "test_id": sequential id "TC001", "TC002", ...
- "description": what the scenario verifies
- "category": one of {{join ", " .Categories}}
- "steps": array of {"name", "action", "expected"} objects
- "script_body": the complete Robot Framework suite for this scenario

` + "```json" + `
{
    "test_scenarios": [
        {
            "name": "Create {{.Subject}}",
            "test_id": "TC001",
            "description": "Create a record with all required fields and verify it is saved",
            "category": "crud",
            "steps": [{"name": "Open form", "action": "Click New", "expected": "Empty form is shown"}],
            "script_body": "*** Settings ***\nLibrary    SeleniumLibrary\n\n*** Test Cases ***\nTC001 Create Record\n    [Documentation]    Create a record\n    Click Element    //button[contains(@class,'o_list_button_add')]\n"
        }
    ]
}
` + "```" + `

IMPORTANT:
- Generate ONLY valid Robot Framework syntax, indented with 4 spaces
- Escape every newline inside "script_body" as \n so the JSON stays valid
- Use Odoo locators: field input //div[@name='FIELD']//input, buttons //button[@name='ACTION'], save //button[contains(@class,'o_form_button_save')]
- Handle Many2one fields with autocomplete: input text, wait, click the dropdown item
- Make every scenario independent and self-contained
{{end}}`

const coverageTemplate = `{{define "coverage"}}## COVERAGE

Generate at most {{.MaxScenarios}} scenarios in these categories:
{{- range .Requested}}
- {{.Name}}: {{.Hint}}
{{- end}}
{{- if .Excluded}}
Do not generate scenarios in these categories: {{join ", " .Excluded}}.
{{- end}}
{{end}}`

const entityTemplate = `Generate test scenarios for the Odoo model described below. The description was extracted by static analysis of the module source.

## ENTITY

**Name:** {{.Entity.EntityName}}
**Description:** {{default "none found" .Entity.Description}}
**Extends:** {{default "none found" .Entity.Extends}}
**Source file:** {{default "none found" .Entity.SourceFile}}

## ATTRIBUTES

**Required:**
{{- range .Required}}
- {{.Name}} ({{.FieldType}}){{with .Label}} "{{.}}"{{end}}
{{- else}}
- none found
{{- end}}

**Relational:**
{{- range .Relational}}
- {{.Name}} ({{.FieldType}}) -> {{default "unknown model" .RelatedModel}}
{{- else}}
- none found
{{- end}}

**Selection:**
{{- range .Selection}}
- {{.Name}}: {{if .Options}}{{join ", " .Options}}{{else}}options not statically known{{end}}
{{- else}}
- none found
{{- end}}

**Computed:**
{{- range .Computed}}
- {{.Name}}{{with .ComputedFrom}} <- {{.}}(){{end}}{{with .Depends}} (depends on {{join ", " .}}){{end}}
{{- else}}
- none found
{{- end}}

**Other:**
{{- range .Other}}
- {{.Name}} ({{.FieldType}}){{if .Readonly}} readonly{{end}}
{{- else}}
- none found
{{- end}}

## OPERATIONS
{{range .OperationGroups}}
**{{.Title}}:**
{{- range .Operations}}
- {{.Name}}(){{with .Dependencies}} [on {{join ", " .}}]{{end}}{{with .Doc}}: {{. | replace "\n" " "}}{{end}}
{{- range .Errors}}
  - raises {{.Type}}: "{{.Message}}"
{{- end}}
{{- range .Guards}}
  - guard: {{.}}
{{- end}}
{{- else}}
- none found
{{- end}}
{{end}}
## CONSTRAINTS

{{- range .Entity.Constraints}}
- {{.Operation}}(){{with .Fields}} validates {{join ", " .}}{{end}}{{with .Message}}: "{{.}}"{{end}}
{{- end}}
{{- range .Entity.SQLConstraints}}
- SQL {{.Name}} {{.Definition}}{{with .Message}}: "{{.}}"{{end}}
{{- end}}
{{- if and (not .Entity.Constraints) (not .Entity.SQLConstraints)}}
- none found
{{- end}}

## WORKFLOW

{{- with .Entity.StateField}}
**State field:** {{.Attribute}}
**States in order:** {{join " -> " .States}}
**Initial state:** {{first .States}}
{{- else}}
- none found
{{- end}}

## VIEWS

**Buttons:**
{{- range .Entity.Views.Triggers}}
- {{.Name}}{{with .Label}} "{{.}}"{{end}} ({{.Type}}){{with .States}} [states: {{.}}]{{end}}{{with .Invisible}} [invisible: {{.}}]{{end}}{{with .Attrs}} [attrs: {{.}}]{{end}}
{{- else}}
- none found
{{- end}}

**Fields shown:** {{if .Entity.Views.Attributes}}{{join ", " .Entity.Views.Attributes}}{{else}}none found{{end}}

## SECURITY

{{- range .Entity.AccessRules}}
- {{.ID}}{{with .Group}} (group {{.}}){{else}} (all users){{end}}: {{permissions .}}
{{- else}}
- none found
{{- end}}

{{template "coverage" .Coverage}}
{{template "output" .Output}}`

const requirementTemplate = `Generate test scenarios for the functional requirement below.

## REQUIREMENT

**Name:** {{.Requirement.Name}}
**Module:** {{default "none found" .Requirement.ModuleName}}

**Functional specification:**
{{default "none found" (trim .Requirement.Specification)}}

**Preconditions:**
{{default "none found" (trim .Requirement.Preconditions)}}

**Expected results:**
{{default "none found" (trim .Requirement.Postconditions)}}

## MODULE MODELS
{{range .Entities}}
**{{.EntityName}}**{{with .Description}} ({{.}}){{end}}
- required: {{with requiredNames .}}{{join ", " .}}{{else}}none found{{end}}
- actions: {{with actionNames .}}{{join ", " .}}{{else}}none found{{end}}
{{- with .StateField}}
- states: {{join " -> " .States}}
{{- end}}
{{else}}
- none found
{{end}}
{{template "coverage" .Coverage}}
{{template "output" .Output}}`

const improveTemplate = `A Robot Framework test has failed.

**Test name:** {{.Scenario.Name}}{{with .Scenario.ScenarioID}} ({{.}}){{end}}

**Original Robot code:**
` + "```robot" + `
{{trim .Scenario.ScriptBody}}
` + "```" + `

**Error message:**
{{default "none found" (trim .Error)}}

Analyze the error and provide a corrected version of the test.
Common issues to check:
- Incorrect XPath locators
- Missing wait statements
- Wrong element interactions
- Timing issues

Return ONLY the corrected Robot Framework code, no explanation needed.
`
