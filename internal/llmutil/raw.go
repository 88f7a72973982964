package llmutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// payload is the envelope the completion is asked to return. test_cases is
// the legacy key for the same array.
type payload struct {
	TestScenarios []rawScenario `json:"test_scenarios"`
	TestCases     []rawScenario `json:"test_cases"`
}

// rawScenario is one scenario element as emitted by the model, before normalization.
type rawScenario struct {
	Name        flexString `json:"name"`
	TestID      flexString `json:"test_id"`
	ScenarioID  flexString `json:"scenario_id"`
	Description flexString `json:"description"`
	Category    flexString `json:"category"`
	Tags        flexString `json:"tags"`
	Priority    flexString `json:"priority"`
	Steps       []rawStep  `json:"steps"`
	ScriptBody  flexString `json:"script_body"`
	RobotCode   flexString `json:"robot_code"`
}

func (r rawScenario) body() string {
	if strings.TrimSpace(string(r.ScriptBody)) != "" {
		return string(r.ScriptBody)
	}
	return string(r.RobotCode)
}

func (r rawScenario) id() string {
	if r.TestID != "" {
		return string(r.TestID)
	}
	return string(r.ScenarioID)
}

// rawStep accepts {"name","action","expected"} objects, the step/expected_result
// aliases, and bare strings.
type rawStep struct {
	Name     string
	Action   string
	Expected string
}

func (s *rawStep) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		s.Action = text
		return nil
	}

	var obj struct {
		Name           flexString `json:"name"`
		Step           flexString `json:"step"`
		Action         flexString `json:"action"`
		Expected       flexString `json:"expected"`
		ExpectedResult flexString `json:"expected_result"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	s.Name = firstNonEmpty(string(obj.Name), string(obj.Step))
	s.Action = string(obj.Action)
	s.Expected = firstNonEmpty(string(obj.Expected), string(obj.ExpectedResult))
	return nil
}

// flexString decodes strings, numbers, booleans and string lists into a string.
// Lists are joined with ", ".
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
	case '[':
		var items []flexString
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		parts := make([]string, 0, len(items))
		for _, it := range items {
			if it != "" {
				parts = append(parts, string(it))
			}
		}
		*f = flexString(strings.Join(parts, ", "))
	case '{':
		return fmt.Errorf("cannot decode object into string field")
	default:
		*f = flexString(string(data))
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
