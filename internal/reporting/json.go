package reporting

import (
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/testforge/api/schemas"
	"github.com/xkilldash9x/testforge/internal/analysis"
	"github.com/xkilldash9x/testforge/internal/orchestrator"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type jsonReporter struct {
	w io.WriteCloser
}

type analysisDocument struct {
	Analysis
	SuggestedTests map[string][]string `json:"suggested_tests"`
}

func (r *jsonReporter) WriteAnalysis(a Analysis) error {
	doc := analysisDocument{Analysis: a, SuggestedTests: make(map[string][]string, len(a.Entities))}
	for _, e := range a.Entities {
		doc.SuggestedTests[e.EntityName] = analysis.SuggestTests(e)
	}
	return r.encode(doc)
}

func (r *jsonReporter) WriteRun(result *orchestrator.Result) error {
	return r.encode(result)
}

func (r *jsonReporter) WriteModules(modules []schemas.ModuleInfo) error {
	if modules == nil {
		modules = []schemas.ModuleInfo{}
	}
	return r.encode(modules)
}

func (r *jsonReporter) encode(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	data = append(data, '\n')
	if _, err := r.w.Write(data); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func (r *jsonReporter) Close() error {
	return r.w.Close()
}
