package analysis

import (
	"fmt"
	"strings"

	"github.com/xkilldash9x/testforge/api/schemas"
)

const (
	maxSuggestedStates      = 4
	maxSuggestedConstraints = 2
	maxSuggestedActions     = 3
	maxListedRequired       = 3
)

// SuggestTests lists, in plain text, the tests an operator can expect for an entity.
func SuggestTests(e schemas.EntityDescription) []string {
	out := []string{fmt.Sprintf("CRUD: Create/Read/Update/Delete %s", e.EntityName)}

	if required := e.RequiredAttributes(); len(required) > 0 {
		names := make([]string, 0, maxListedRequired)
		for i, a := range required {
			if i == maxListedRequired {
				break
			}
			names = append(names, a.Name)
		}
		list := strings.Join(names, ", ")
		if len(required) > maxListedRequired {
			list += "..."
		}
		out = append(out, fmt.Sprintf("Validation: Required fields (%s)", list))
	}

	if e.StateField != nil && len(e.StateField.States) > 0 {
		states := e.StateField.States
		if len(states) > maxSuggestedStates {
			states = states[:maxSuggestedStates]
		}
		path := strings.Join(states, " → ")
		if len(e.StateField.States) > maxSuggestedStates {
			path += " ..."
		}
		out = append(out, fmt.Sprintf("Workflow: State transitions (%s)", path))
	}

	for i, c := range e.Constraints {
		if i == maxSuggestedConstraints {
			break
		}
		line := fmt.Sprintf("Constraint: %s", c.Operation)
		if len(c.Fields) > 0 {
			line += fmt.Sprintf(" on %s", strings.Join(c.Fields, ", "))
		}
		out = append(out, line)
	}

	for i, op := range e.OperationsBy(schemas.VisibilityAction) {
		if i == maxSuggestedActions {
			break
		}
		out = append(out, fmt.Sprintf("Action: %s()", op.Name))
	}
	return out
}
