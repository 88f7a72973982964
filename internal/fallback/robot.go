package fallback

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// separator is the Robot Framework cell separator.
const separator = "    "

// Suite-level variables every generated body declares.
var suiteVariables = [][2]string{
	{"${ODOO_URL}", "http://localhost:8069"},
	{"${BROWSER}", "headlesschrome"},
	{"${LOGIN}", "admin"},
	{"${PASSWORD}", "admin"},
}

func robotLine(keyword string, args ...string) string {
	return strings.Join(append([]string{keyword}, args...), separator)
}

// suite accumulates one single-test Robot Framework file.
type suite struct {
	documentation string
	model         string
	testName      string
	testDoc       string
	tags          []string
	body          []string
}

func (s *suite) add(lines ...string) {
	s.body = append(s.body, lines...)
}

func (s *suite) comment(text string) {
	s.body = append(s.body, "# "+text)
}

func (s *suite) render() string {
	var b strings.Builder
	b.WriteString("*** Settings ***\n")
	b.WriteString("Documentation" + separator + s.documentation + "\n")
	b.WriteString("Library" + separator + "SeleniumLibrary\n")
	b.WriteString("Suite Setup" + separator + "Login To Odoo\n")
	b.WriteString("Suite Teardown" + separator + "Close All Browsers\n")

	b.WriteString("\n*** Variables ***\n")
	for _, v := range suiteVariables {
		b.WriteString(v[0] + separator + v[1] + "\n")
	}
	b.WriteString("${MODEL}" + separator + s.model + "\n")

	b.WriteString("\n*** Test Cases ***\n")
	b.WriteString(s.testName + "\n")
	b.WriteString(separator + robotLine("[Documentation]", s.testDoc) + "\n")
	if len(s.tags) > 0 {
		b.WriteString(separator + robotLine("[Tags]", s.tags...) + "\n")
	}
	for _, line := range s.body {
		b.WriteString(separator + line + "\n")
	}

	b.WriteString("\n*** Keywords ***\n")
	b.WriteString("Login To Odoo\n")
	for _, line := range []string{
		robotLine("Open Browser", "${ODOO_URL}/web/login", "${BROWSER}"),
		robotLine("Input Text", "//input[@name='login']", "${LOGIN}"),
		robotLine("Input Password", "//input[@name='password']", "${PASSWORD}"),
		robotLine("Click Button", "//button[@type='submit']"),
		robotLine("Wait Until Page Contains Element", navbarLocator, "timeout=20s"),
	} {
		b.WriteString(separator + line + "\n")
	}
	b.WriteString("\nOpen New Record Form\n")
	for _, line := range []string{
		robotLine("Go To", "${ODOO_URL}/web#model=${MODEL}&view_type=form"),
		robotLine("Wait Until Page Contains Element", formViewLocator, "timeout=20s"),
	} {
		b.WriteString(separator + line + "\n")
	}
	b.WriteString("\nSave Record\n")
	b.WriteString(separator + robotLine("Click Element", saveButtonLocator) + "\n")
	return b.String()
}

// title turns an entity name such as sale.order into "Sale Order".
func title(entityName string) string {
	words := strings.FieldsFunc(entityName, func(r rune) bool {
		return r == '.' || r == '_' || r == ' '
	})
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}
