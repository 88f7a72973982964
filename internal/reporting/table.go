package reporting

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/xkilldash9x/testforge/api/schemas"
	"github.com/xkilldash9x/testforge/internal/analysis"
	"github.com/xkilldash9x/testforge/internal/orchestrator"
)

type tableReporter struct {
	w io.WriteCloser
}

// createTable creates a new table with standard styling
func (r *tableReporter) createTable(title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(r.w)
	t.SetStyle(table.StyleRounded)
	if title != "" {
		t.SetTitle(title)
	}
	return t
}

func (r *tableReporter) writeHeader(module string, commit schemas.CommitInfo) {
	fmt.Fprintf(r.w, "Module: %s\n", module)
	if commit.Hash != "" {
		fmt.Fprintf(r.w, "Commit: %s %s\n", shortHash(commit.Hash), firstLine(commit.Message))
	}
}

func (r *tableReporter) WriteAnalysis(a Analysis) error {
	r.writeHeader(a.Module, a.Commit)
	if len(a.Entities) == 0 {
		fmt.Fprintln(r.w, text.FgYellow.Sprint("No entities found"))
		return nil
	}

	entities := r.createTable("Entities")
	entities.AppendHeader(table.Row{"Entity", "Extends", "Attributes", "Required", "Operations", "States", "Access rules"})
	for _, e := range a.Entities {
		states := "-"
		if e.StateField != nil {
			states = strings.Join(e.StateField.States, " → ")
		}
		entities.AppendRow(table.Row{
			e.EntityName, orDash(e.Extends), len(e.Attributes), len(e.RequiredAttributes()),
			len(e.Operations), states, len(e.AccessRules),
		})
	}
	entities.Render()

	suggested := r.createTable("Suggested tests")
	suggested.AppendHeader(table.Row{"Entity", "Test"})
	suggested.SetColumnConfigs([]table.ColumnConfig{{Number: 1, AutoMerge: true}})
	for _, e := range a.Entities {
		for _, s := range analysis.SuggestTests(e) {
			suggested.AppendRow(table.Row{e.EntityName, s})
		}
	}
	suggested.Render()
	return nil
}

func (r *tableReporter) WriteRun(result *orchestrator.Result) error {
	r.writeHeader(result.Module, result.Commit)
	fmt.Fprintf(r.w, "Run: %s\n", result.RunID)

	scenarios := r.createTable("Scenarios")
	scenarios.AppendHeader(table.Row{"Entity", "Test ID", "Name", "Category", "Steps", "Source"})
	total := 0
	for _, group := range result.Groups() {
		origin := "ai"
		if result.UsedFallback[group] {
			origin = text.FgYellow.Sprint("fallback")
		}
		for _, s := range result.Scenarios[group] {
			scenarios.AppendRow(table.Row{group, s.ScenarioID, s.Name, string(s.Category), len(s.Steps), origin})
			total++
		}
	}
	scenarios.AppendFooter(table.Row{"", "", "", "", "Total", total})
	scenarios.Render()

	if len(result.Errors) > 0 {
		failures := r.createTable("Completion failures")
		failures.AppendHeader(table.Row{"Entity", "Error"})
		names := make([]string, 0, len(result.Errors))
		for name := range result.Errors {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			failures.AppendRow(table.Row{name, text.FgRed.Sprint(result.Errors[name])})
		}
		failures.Render()
	}
	return nil
}

func (r *tableReporter) WriteModules(modules []schemas.ModuleInfo) error {
	if len(modules) == 0 {
		fmt.Fprintln(r.w, text.FgYellow.Sprint("No modules found"))
		return nil
	}
	t := r.createTable("Modules")
	t.AppendHeader(table.Row{"Module", "Name", "Version", "Models", "Views", "Depends", "Path"})
	for _, m := range modules {
		t.AppendRow(table.Row{
			m.Name, m.DisplayName, orDash(m.Version), m.ModelCount, m.ViewCount,
			orDash(strings.Join(m.Depends, ", ")), m.Path,
		})
	}
	t.Render()
	return nil
}

func (r *tableReporter) Close() error {
	return r.w.Close()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
