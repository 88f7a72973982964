package fallback

import (
	"fmt"

	"github.com/xkilldash9x/testforge/api/schemas"
)

// Locators shared by every generated suite.
const (
	formViewLocator     = "//div[contains(@class,'o_form_view')]"
	saveButtonLocator   = "//button[contains(@class,'o_form_button_save')]"
	autocompleteLocator = "//ul[contains(@class,'o-autocomplete--dropdown-menu')]//li[1]"
	navbarLocator       = "//nav[contains(@class,'o_main_navbar')]"
	dangerNotification  = "//div[contains(@class,'o_notification') and contains(@class,'danger')]"
)

// FieldLocator returns the XPath of the input widget for an attribute.
func FieldLocator(a schemas.AttributeDescription) string {
	name := a.Name
	switch a.Kind {
	case schemas.KindText:
		if a.FieldType == "Text" || a.FieldType == "Html" {
			return fmt.Sprintf("//div[@name='%s']//textarea | //div[@name='%s']//div[contains(@class,'note-editable')]", name, name)
		}
		return fmt.Sprintf("//div[@name='%s']//input", name)
	case schemas.KindNumber:
		return fmt.Sprintf("//div[@name='%s']//input", name)
	case schemas.KindRelation:
		return fmt.Sprintf("//div[@name='%s']//input[contains(@class,'o_input')]", name)
	case schemas.KindBoolean:
		return fmt.Sprintf("//div[@name='%s']//input[@type='checkbox']", name)
	case schemas.KindSelection:
		return fmt.Sprintf("//div[@name='%s']//select", name)
	case schemas.KindDate:
		return fmt.Sprintf("//div[@name='%s']//input[contains(@class,'o_datepicker_input') or contains(@class,'o_input')]", name)
	default:
		return fmt.Sprintf("//div[@name='%s']//input | //*[@name='%s']", name, name)
	}
}

// InvalidFieldLocator matches the field widget once the client flags it as invalid.
func InvalidFieldLocator(name string) string {
	return fmt.Sprintf("//div[@name='%s' and contains(@class,'o_field_invalid')]", name)
}

// StatusbarLocator matches the highlighted status bar button for a state value.
func StatusbarLocator(field, state string) string {
	return fmt.Sprintf("//div[@name='%s']//button[contains(@class,'o_arrow_button_current') and @data-value='%s']", field, state)
}

// fillKeywords returns the Robot keyword lines that give attribute a a value.
// Attributes with no UI input (one2many and many2many) return false.
func fillKeywords(a schemas.AttributeDescription) ([]string, bool) {
	loc := FieldLocator(a)
	switch a.Kind {
	case schemas.KindText:
		return []string{robotLine("Input Text", loc, "Test "+a.Name)}, true
	case schemas.KindNumber:
		value := "10"
		if a.FieldType == "Float" || a.FieldType == "Monetary" {
			value = "10.00"
		}
		return []string{robotLine("Input Text", loc, value)}, true
	case schemas.KindRelation:
		if a.FieldType != "Many2one" {
			return nil, false
		}
		return []string{
			robotLine("Input Text", loc, "a"),
			robotLine("Wait Until Element Is Visible", autocompleteLocator, "timeout=10s"),
			robotLine("Click Element", autocompleteLocator),
		}, true
	case schemas.KindBoolean:
		return []string{robotLine("Select Checkbox", loc)}, true
	case schemas.KindSelection:
		if len(a.Options) > 0 {
			return []string{robotLine("Select From List By Value", loc, "\""+a.Options[0]+"\"")}, true
		}
		return []string{robotLine("Select From List By Index", loc, "1")}, true
	case schemas.KindDate:
		return []string{
			robotLine("Input Text", loc, "01/01/2030"),
			robotLine("Press Keys", loc, "ESCAPE"),
		}, true
	case schemas.KindBinary:
		return nil, false
	default:
		return []string{robotLine("Input Text", loc, "Test "+a.Name)}, true
	}
}
