// internal/llmutil/recovery.go
// Recovers test scenarios from raw completion text. The strategies run in a
// fixed order and the first one yielding a scenario with a script body wins.
package llmutil

import (
	"encoding/json"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/testforge/api/schemas"
)

// Strategy names, in the order they are tried.
const (
	StrategyDirect     = "direct"
	StrategyControl    = "control_chars"
	StrategySalvage    = "regex_salvage"
	StrategyTruncation = "truncation_repair"
)

// salvageWindow bounds how far past a matched triple a script body is looked for.
const salvageWindow = 8000

var payloadKeys = []string{`"test_scenarios"`, `"test_cases"`}

var (
	jsonString = `"((?:[^"\\]|\\.)*)"`

	bodyKeyRegex = regexp.MustCompile(`"(?:script_body|robot_code)"\s*:\s*"`)
	bodyRegex    = regexp.MustCompile(`(?s)"(?:script_body|robot_code)"\s*:\s*` + jsonString)
	categoryRe   = regexp.MustCompile(`"category"\s*:\s*` + jsonString)

	// tripleRegexes match name/test_id/description in either leading order.
	tripleRegexes = []*regexp.Regexp{
		regexp.MustCompile(`(?s)"name"\s*:\s*` + jsonString + `\s*,\s*"test_id"\s*:\s*` + jsonString + `\s*,\s*"description"\s*:\s*` + jsonString),
		regexp.MustCompile(`(?s)"test_id"\s*:\s*` + jsonString + `\s*,\s*"name"\s*:\s*` + jsonString + `\s*,\s*"description"\s*:\s*` + jsonString),
	}
)

type strategy struct {
	name string
	run  func(text string) []rawScenario
}

// strategies is the ordered recovery chain. Each entry is a pure function.
var strategies = []strategy{
	{StrategyDirect, directExtraction},
	{StrategyControl, controlCharRepair},
	{StrategySalvage, regexSalvage},
	{StrategyTruncation, truncationRepair},
}

// Parser recovers scenarios from completion text.
type Parser struct {
	logger *zap.Logger
}

// NewParser creates a recovery parser.
func NewParser(logger *zap.Logger) *Parser {
	return &Parser{logger: logger.Named("recovery_parser")}
}

// Parse returns the normalized scenarios recovered from text. An empty result
// means every strategy was exhausted; callers fall back to deterministic generation.
func (p *Parser) Parse(text string) []schemas.TestScenario {
	scenarios, used := Recover(text)
	if len(scenarios) == 0 {
		p.logger.Debug("Parse recovery exhausted",
			zap.Int("length", len(text)),
			zap.String("excerpt", truncateString(text, 200)),
		)
		return scenarios
	}
	p.logger.Debug("Recovered scenarios from completion",
		zap.String("strategy", used),
		zap.Int("count", len(scenarios)),
	)
	return scenarios
}

// Recover runs the strategy chain and reports which strategy produced the
// result. A strategy whose scenarios all lack a body is kept only as a last
// resort if no later strategy does better.
func Recover(text string) ([]schemas.TestScenario, string) {
	var (
		partial     []rawScenario
		partialName string
	)
	for _, s := range strategies {
		raw := s.run(text)
		if len(raw) == 0 {
			continue
		}
		if hasBody(raw) {
			return normalize(raw), s.name
		}
		if partial == nil {
			partial, partialName = raw, s.name
		}
	}
	if partial != nil {
		return normalize(partial), partialName
	}
	return []schemas.TestScenario{}, ""
}

func hasBody(raw []rawScenario) bool {
	for _, r := range raw {
		if strings.TrimSpace(r.body()) != "" {
			return true
		}
	}
	return false
}

// candidateStart finds where the JSON payload begins: inside a json fence if
// there is one, otherwise the first brace before a payload key. It returns -1
// when the text holds nothing payload-like.
func candidateStart(text string) int {
	keyIdx := -1
	for _, key := range payloadKeys {
		if i := strings.Index(text, key); i >= 0 && (keyIdx < 0 || i < keyIdx) {
			keyIdx = i
		}
	}
	if keyIdx < 0 {
		return -1
	}
	if fence := strings.LastIndex(text[:keyIdx], "```"); fence >= 0 {
		if brace := strings.IndexByte(text[fence:keyIdx], '{'); brace >= 0 {
			return fence + brace
		}
	}
	return strings.LastIndex(text[:keyIdx], "{")
}

// candidate returns the complete-looking payload substring.
func candidate(text string) (string, bool) {
	if m := fenceOpenRegex.FindStringSubmatchIndex(text); m != nil {
		if end := balancedEnd(text, m[2]); end > 0 {
			return text[m[2]:end], true
		}
	}
	start := candidateStart(text)
	if start < 0 {
		return "", false
	}
	end := strings.LastIndex(text, "}")
	if end < start {
		return "", false
	}
	return text[start : end+1], true
}

// decodePayload strictly decodes an envelope object or a bare scenario array.
func decodePayload(s string) ([]rawScenario, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[") {
		var list []rawScenario
		if err := json.Unmarshal([]byte(s), &list); err != nil {
			return nil, err
		}
		return list, nil
	}
	var p payload
	if err := json.Unmarshal([]byte(s), &p); err != nil {
		return nil, err
	}
	if len(p.TestScenarios) > 0 {
		return p.TestScenarios, nil
	}
	return p.TestCases, nil
}

func directExtraction(text string) []rawScenario {
	c, ok := candidate(text)
	if !ok {
		return nil
	}
	raw, err := decodePayload(c)
	if err != nil {
		return nil
	}
	return raw
}

func controlCharRepair(text string) []rawScenario {
	c, ok := candidate(text)
	if !ok {
		return nil
	}
	repaired := escapeBodyControlChars(c)
	if repaired == c {
		return nil
	}
	raw, err := decodePayload(repaired)
	if err != nil {
		return nil
	}
	return raw
}

// escapeBodyControlChars re-escapes literal newline, carriage return and tab
// characters inside every script_body/robot_code string value. Everything
// outside those quoted spans is left untouched.
func escapeBodyControlChars(s string) string {
	locs := bodyKeyRegex.FindAllStringIndex(s, -1)
	if len(locs) == 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 64)
	last := 0
	for _, loc := range locs {
		if loc[0] < last {
			// The key text appeared inside a body already rewritten.
			continue
		}
		b.WriteString(s[last:loc[1]])
		i := loc[1]
		escaped := false
	scan:
		for ; i < len(s); i++ {
			c := s[i]
			switch {
			case escaped:
				escaped = false
				b.WriteByte(c)
			case c == '\\':
				escaped = true
				b.WriteByte(c)
			case c == '"':
				break scan
			case c == '\n':
				b.WriteString(`\n`)
			case c == '\r':
				b.WriteString(`\r`)
			case c == '\t':
				b.WriteString(`\t`)
			default:
				b.WriteByte(c)
			}
		}
		last = i
	}
	b.WriteString(s[last:])
	return b.String()
}

type tripleMatch struct {
	start, end            int
	name, id, description string
}

func findTriples(text string) []tripleMatch {
	var out []tripleMatch
	for ri, re := range tripleRegexes {
		for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
			t := tripleMatch{start: m[0], end: m[1]}
			first, second := text[m[2]:m[3]], text[m[4]:m[5]]
			if ri == 0 {
				t.name, t.id = first, second
			} else {
				t.id, t.name = first, second
			}
			t.description = text[m[6]:m[7]]
			out = append(out, t)
		}
	}
	// Order by position; both patterns cannot match the same span.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].start < out[j-1].start; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func regexSalvage(text string) []rawScenario {
	triples := findTriples(text)
	var out []rawScenario
	for i, t := range triples {
		// Scenarios whose object never closes were cut off mid-way.
		if open := enclosingObject(text, t.start); open < 0 || !objectCloses(text, open) {
			continue
		}

		windowEnd := len(text)
		if i+1 < len(triples) {
			windowEnd = triples[i+1].start
		}
		if windowEnd > t.end+salvageWindow {
			windowEnd = t.end + salvageWindow
		}
		window := text[t.end:windowEnd]

		r := rawScenario{
			Name:        flexString(decodeJSONString(t.name)),
			TestID:      flexString(decodeJSONString(t.id)),
			Description: flexString(decodeJSONString(t.description)),
		}
		if m := bodyRegex.FindStringSubmatch(window); len(m) > 1 {
			r.ScriptBody = flexString(decodeJSONString(m[1]))
		}
		if m := categoryRe.FindStringSubmatch(window); len(m) > 1 {
			r.Category = flexString(decodeJSONString(m[1]))
		}
		out = append(out, r)
	}
	return out
}

var looseUnescaper = strings.NewReplacer(`\"`, `"`, `\\`, `\`, `\/`, `/`, `\n`, "\n", `\r`, "\r", `\t`, "\t")

// decodeJSONString decodes the inside of a JSON string literal, tolerating
// literal control characters and invalid escapes.
func decodeJSONString(s string) string {
	var out string
	quoted := `"` + strings.NewReplacer("\n", `\n`, "\r", `\r`, "\t", `\t`).Replace(s) + `"`
	if err := json.Unmarshal([]byte(quoted), &out); err == nil {
		return out
	}
	return looseUnescaper.Replace(s)
}

func truncationRepair(text string) []rawScenario {
	start := candidateStart(text)
	if start < 0 {
		start = strings.IndexAny(text, "{[")
		if start < 0 {
			return nil
		}
	}
	s := text[start:]
	if fence := strings.LastIndex(s, "```"); fence >= 0 {
		s = s[:fence]
	}

	keyIdx := -1
	for _, key := range payloadKeys {
		if i := strings.Index(s, key); i >= 0 {
			keyIdx = i
			break
		}
	}

	var st scanState
	var cutStack []byte
	arrayAt, cut := -1, -1
	for i := 0; i < len(s); i++ {
		c := s[i]
		wasString := st.inString
		closed := st.step(c)
		if !wasString && c == '[' && arrayAt < 0 && i > keyIdx {
			arrayAt = len(st.stack)
		}
		if closed && c == '}' && arrayAt > 0 && len(st.stack) == arrayAt {
			cut = i + 1
			cutStack = append(cutStack[:0], st.stack...)
		}
	}
	if st.balanced() || cut < 0 {
		return nil
	}

	repaired := escapeBodyControlChars(s[:cut] + closers(cutStack))
	raw, err := decodePayload(repaired)
	if err != nil {
		return nil
	}
	return raw
}
