// Filename: views/views.go
// Reads UI markup files and extracts, per referenced entity, the action
// buttons and attribute names its views expose.
package views

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
	"go.uber.org/zap"

	"github.com/xkilldash9x/testforge/api/schemas"
)

const (
	viewModel       = "ir.ui.view"
	defaultButton   = "object"
	statusbarWidget = "statusbar"
	stateField      = "state"
)

// Hints is what one view record contributes to an entity.
type Hints struct {
	Entity   string
	View     string
	ViewType string
	Triggers []schemas.ViewTrigger
	Fields   []string
	// StatusbarStates lists the states a statusbar widget on the state field
	// declares visible, if the view has one.
	StatusbarStates []string
}

// Analyzer parses markup files into view hints.
type Analyzer struct {
	logger *zap.Logger
}

// NewAnalyzer creates a new markup analyzer.
func NewAnalyzer(logger *zap.Logger) *Analyzer {
	return &Analyzer{
		logger: logger.Named("view_analyzer"),
	}
}

// AnalyzeFile returns the hints of every view record in content, in document order.
// Malformed markup is returned as an error so the caller can skip the file.
func (a *Analyzer) AnalyzeFile(filename string, content []byte) ([]Hints, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(content); err != nil {
		return nil, fmt.Errorf("failed to parse markup %s: %w", filename, err)
	}
	if doc.Root() == nil {
		return nil, fmt.Errorf("markup %s has no root element", filename)
	}

	var out []Hints
	for _, record := range doc.FindElements("//record") {
		if record.SelectAttrValue("model", "") != viewModel {
			continue
		}
		h, ok := analyzeRecord(record)
		if !ok {
			continue
		}
		out = append(out, h)
	}

	a.logger.Debug("Analyzed markup file",
		zap.String("file", filename),
		zap.Int("views", len(out)),
	)
	return out, nil
}

func analyzeRecord(record *etree.Element) (Hints, bool) {
	model := record.FindElement("field[@name='model']")
	arch := record.FindElement("field[@name='arch']")
	if model == nil || arch == nil {
		return Hints{}, false
	}
	entity := strings.TrimSpace(model.Text())
	if entity == "" {
		return Hints{}, false
	}

	h := Hints{
		Entity: entity,
		View:   record.SelectAttrValue("id", ""),
	}
	if name := record.FindElement("field[@name='name']"); name != nil && h.View == "" {
		h.View = strings.TrimSpace(name.Text())
	}
	if children := arch.ChildElements(); len(children) > 0 {
		h.ViewType = children[0].Tag
	}

	seenField := map[string]bool{}
	seenTrigger := map[string]bool{}
	for _, child := range arch.ChildElements() {
		descend(child, func(el *etree.Element) {
			switch el.Tag {
			case "button":
				t, ok := trigger(el, h.View)
				if !ok {
					return
				}
				key := t.Name + "\x00" + t.Label
				if seenTrigger[key] {
					return
				}
				seenTrigger[key] = true
				h.Triggers = append(h.Triggers, t)
			case "field":
				name := el.SelectAttrValue("name", "")
				if name == "" {
					return
				}
				if !seenField[name] {
					seenField[name] = true
					h.Fields = append(h.Fields, name)
				}
				if name == stateField && el.SelectAttrValue("widget", "") == statusbarWidget {
					if states := splitList(el.SelectAttrValue("statusbar_visible", "")); len(states) > 0 {
						h.StatusbarStates = states
					}
				}
			}
		})
	}
	return h, true
}

// descend visits el and all of its element descendants in document order.
func descend(el *etree.Element, visit func(*etree.Element)) {
	visit(el)
	for _, child := range el.ChildElements() {
		descend(child, visit)
	}
}

func trigger(el *etree.Element, view string) (schemas.ViewTrigger, bool) {
	name := el.SelectAttrValue("name", "")
	if name == "" {
		return schemas.ViewTrigger{}, false
	}
	return schemas.ViewTrigger{
		Name:      name,
		Label:     el.SelectAttrValue("string", ""),
		Type:      el.SelectAttrValue("type", defaultButton),
		States:    el.SelectAttrValue("states", ""),
		Invisible: el.SelectAttrValue("invisible", ""),
		Attrs:     el.SelectAttrValue("attrs", ""),
		View:      view,
	}, true
}

// splitList splits a comma separated attribute value, dropping empty items.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
