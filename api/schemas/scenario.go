package schemas

// ScenarioCategory is the coarse test category of a scenario.
type ScenarioCategory string

const (
	CategoryCRUD       ScenarioCategory = "crud"
	CategoryValidation ScenarioCategory = "validation"
	CategoryWorkflow   ScenarioCategory = "workflow"
	CategorySecurity   ScenarioCategory = "security"
	CategoryNegative   ScenarioCategory = "negative"
	CategoryFunctional ScenarioCategory = "functional"
)

// ValidCategory reports whether c is one of the known categories.
func ValidCategory(c ScenarioCategory) bool {
	switch c {
	case CategoryCRUD, CategoryValidation, CategoryWorkflow, CategorySecurity, CategoryNegative, CategoryFunctional:
		return true
	}
	return false
}

// PlaceholderScriptBody stands in for a body that could not be recovered.
const PlaceholderScriptBody = "*** Test Cases ***\nNot Implemented\n    [Documentation]    not implemented — manual follow-up required\n    Fail    not implemented — manual follow-up required\n"

// TestStep is one (name, action, expected outcome) triple.
type TestStep struct {
	Name     string `json:"name"`
	Action   string `json:"action"`
	Expected string `json:"expected"`
}

// TestScenario is one generated automated test case.
type TestScenario struct {
	ScenarioID  string           `json:"test_id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Category    ScenarioCategory `json:"category"`
	Tags        string           `json:"tags,omitempty"`
	Priority    string           `json:"priority,omitempty"`
	Steps       []TestStep       `json:"steps"`
	ScriptBody  string           `json:"script_body"`
}

// ScenarioCoverageConfig selects the test categories a generation should cover.
type ScenarioCoverageConfig struct {
	IncludeCRUD       bool `mapstructure:"include_crud" yaml:"include_crud"`
	IncludeValidation bool `mapstructure:"include_validation" yaml:"include_validation"`
	IncludeWorkflow   bool `mapstructure:"include_workflow" yaml:"include_workflow"`
	IncludeSecurity   bool `mapstructure:"include_security" yaml:"include_security"`
	IncludeNegative   bool `mapstructure:"include_negative" yaml:"include_negative"`
	MaxScenarios      int  `mapstructure:"max_scenarios" yaml:"max_scenarios"`
}

// DefaultCoverage enables every category with a cap of 25 scenarios.
func DefaultCoverage() ScenarioCoverageConfig {
	return ScenarioCoverageConfig{
		IncludeCRUD:       true,
		IncludeValidation: true,
		IncludeWorkflow:   true,
		IncludeSecurity:   true,
		IncludeNegative:   true,
		MaxScenarios:      25,
	}
}

// Categories lists the enabled categories in a fixed order.
func (c ScenarioCoverageConfig) Categories() []ScenarioCategory {
	var out []ScenarioCategory
	if c.IncludeCRUD {
		out = append(out, CategoryCRUD)
	}
	if c.IncludeValidation {
		out = append(out, CategoryValidation)
	}
	if c.IncludeWorkflow {
		out = append(out, CategoryWorkflow)
	}
	if c.IncludeSecurity {
		out = append(out, CategorySecurity)
	}
	if c.IncludeNegative {
		out = append(out, CategoryNegative)
	}
	return out
}
