package llmutil

import (
	"fmt"
	"strings"

	"github.com/xkilldash9x/testforge/api/schemas"
)

// robotSeparator replaces escaped tabs; Robot Framework separates cells with
// two or more spaces.
const robotSeparator = "    "

var bodyUnescaper = strings.NewReplacer(`\r\n`, "\n", `\n`, "\n", `\t`, robotSeparator)

// normalize turns raw scenarios into TestScenario values: bodies are
// unescaped and never empty, categories are known lower-case values, and ids
// are present and unique.
func normalize(raw []rawScenario) []schemas.TestScenario {
	used := map[string]bool{}
	for _, r := range raw {
		if id := strings.TrimSpace(r.id()); id != "" {
			used[id] = false
		}
	}

	out := make([]schemas.TestScenario, 0, len(raw))
	for i, r := range raw {
		sc := schemas.TestScenario{
			Name:        strings.TrimSpace(string(r.Name)),
			Description: strings.TrimSpace(string(r.Description)),
			Category:    normalizeCategory(string(r.Category)),
			Tags:        strings.TrimSpace(string(r.Tags)),
			Priority:    strings.TrimSpace(string(r.Priority)),
			Steps:       make([]schemas.TestStep, 0, len(r.Steps)),
			ScriptBody:  normalizeBody(r.body()),
		}

		id := strings.TrimSpace(r.id())
		if id == "" || used[id] {
			id = nextID(i+1, used)
		}
		used[id] = true
		sc.ScenarioID = id

		if sc.Name == "" {
			sc.Name = "Unnamed Test " + id
		}
		for n, st := range r.Steps {
			step := schemas.TestStep{
				Name:     strings.TrimSpace(st.Name),
				Action:   strings.TrimSpace(st.Action),
				Expected: strings.TrimSpace(st.Expected),
			}
			if step.Name == "" {
				step.Name = fmt.Sprintf("Step %d", n+1)
			}
			sc.Steps = append(sc.Steps, step)
		}
		out = append(out, sc)
	}
	return out
}

// nextID returns the first TC%03d id at or after seq that is not taken.
// Ids seen anywhere in the result count as taken, so a synthesized id never
// collides with an explicit one further down.
func nextID(seq int, used map[string]bool) string {
	for ; ; seq++ {
		id := fmt.Sprintf("TC%03d", seq)
		if _, taken := used[id]; !taken {
			return id
		}
	}
}

func normalizeCategory(c string) schemas.ScenarioCategory {
	cat := schemas.ScenarioCategory(strings.ToLower(strings.TrimSpace(c)))
	if !schemas.ValidCategory(cat) {
		return schemas.CategoryFunctional
	}
	return cat
}

func normalizeBody(body string) string {
	body = bodyUnescaper.Replace(body)
	if strings.TrimSpace(body) == "" {
		return schemas.PlaceholderScriptBody
	}
	return body
}
