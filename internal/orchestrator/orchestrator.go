// File: internal/orchestrator/orchestrator.go
// Description: Drives one generation run: fetch the module sources, analyze
// them into entity descriptions, then for each entity render a prompt, ask the
// completion endpoint, recover scenarios from the answer and fall back to the
// deterministic generator when nothing usable comes back.

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/testforge/api/schemas"
	"github.com/xkilldash9x/testforge/internal/config"
	"github.com/xkilldash9x/testforge/internal/fallback"
	"github.com/xkilldash9x/testforge/internal/llmutil"
	"github.com/xkilldash9x/testforge/internal/prompt"
	"github.com/xkilldash9x/testforge/internal/source"
)

// Fetcher obtains the sources of one module.
type Fetcher interface {
	Fetch(ctx context.Context, loc source.Location) (*source.Snapshot, error)
}

// Analyzer turns a source tree into entity descriptions.
type Analyzer interface {
	Analyze(ctx context.Context, tree schemas.SourceTree) ([]schemas.EntityDescription, error)
}

// Result is the outcome of one run.
type Result struct {
	RunID     string                            `json:"run_id"`
	Module    string                            `json:"module"`
	Commit    schemas.CommitInfo                `json:"commit"`
	Entities  []schemas.EntityDescription       `json:"entities"`
	Scenarios map[string][]schemas.TestScenario `json:"scenarios"`
	// Errors holds, per entity, the completion failure that forced a fallback.
	Errors       map[string]string `json:"errors,omitempty"`
	UsedFallback map[string]bool   `json:"used_fallback"`
}

// Groups lists the keys of Scenarios: entity names in analysis order, then
// any other group (such as a requirement) sorted by name.
func (r *Result) Groups() []string {
	out := make([]string, 0, len(r.Scenarios))
	seen := make(map[string]bool, len(r.Entities))
	for _, e := range r.Entities {
		if _, ok := r.Scenarios[e.EntityName]; ok && !seen[e.EntityName] {
			seen[e.EntityName] = true
			out = append(out, e.EntityName)
		}
	}
	var rest []string
	for name := range r.Scenarios {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

// EntityResult is the outcome of generating scenarios for one entity.
type EntityResult struct {
	Scenarios    []schemas.TestScenario
	UsedFallback bool
	// Err is the failure that forced the fallback, if any.
	Err error
}

// Pipeline wires the generation components together. Every call keeps its
// state local, so one Pipeline serves concurrent runs.
type Pipeline struct {
	fetcher  Fetcher
	analyzer Analyzer
	llm      schemas.LLMClient
	prompts  *prompt.Builder
	parser   *llmutil.Parser
	fallback *fallback.Generator
	coverage schemas.ScenarioCoverageConfig
	genCfg   config.GenerationConfig
	logger   *zap.Logger
}

// New creates a Pipeline. llm may be nil, in which case every entity is
// served by the fallback generator.
func New(
	cfg config.Interface,
	logger *zap.Logger,
	fetcher Fetcher,
	analyzer Analyzer,
	llm schemas.LLMClient,
) (*Pipeline, error) {
	if cfg == nil || logger == nil || fetcher == nil || analyzer == nil {
		return nil, fmt.Errorf("cannot initialize pipeline with nil dependencies")
	}
	prompts, err := prompt.NewBuilder()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize prompt builder: %w", err)
	}
	return &Pipeline{
		fetcher:  fetcher,
		analyzer: analyzer,
		llm:      llm,
		prompts:  prompts,
		parser:   llmutil.NewParser(logger),
		fallback: fallback.NewGenerator(logger),
		coverage: cfg.Coverage(),
		genCfg:   cfg.Generation(),
		logger:   logger.Named("pipeline"),
	}, nil
}

// Analyze fetches and analyzes the module at loc without generating anything.
func (p *Pipeline) Analyze(ctx context.Context, loc source.Location) (*source.Snapshot, []schemas.EntityDescription, error) {
	snap, err := p.fetcher.Fetch(ctx, loc)
	if err != nil {
		return nil, nil, err
	}
	entities, err := p.analyzer.Analyze(ctx, snap.Tree)
	if err != nil {
		return snap, nil, err
	}
	if len(entities) == 0 {
		return snap, nil, fmt.Errorf("%w: no entities declared in %s", schemas.ErrAnalysisFailed, loc)
	}
	return snap, entities, nil
}

// Run executes a full generation for the module at loc. Per-entity completion
// failures are absorbed by the fallback generator and reported in Result.Errors;
// only fetch and analysis failures, or cancellation, fail the run.
func (p *Pipeline) Run(ctx context.Context, loc source.Location) (*Result, error) {
	runID := uuid.NewString()
	start := time.Now()
	p.logger.Info("Starting generation run", zap.String("run_id", runID), zap.Stringer("location", loc))

	snap, entities, err := p.Analyze(ctx, loc)
	if err != nil {
		return nil, err
	}

	result := &Result{
		RunID:        runID,
		Module:       snap.Module,
		Commit:       snap.Commit,
		Entities:     entities,
		Scenarios:    make(map[string][]schemas.TestScenario, len(entities)),
		Errors:       map[string]string{},
		UsedFallback: make(map[string]bool, len(entities)),
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency())
	for _, entity := range entities {
		g.Go(func() error {
			out, err := p.GenerateForEntity(gctx, entity)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			result.Scenarios[entity.EntityName] = out.Scenarios
			result.UsedFallback[entity.EntityName] = out.UsedFallback
			if out.Err != nil {
				result.Errors[entity.EntityName] = out.Err.Error()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("generation run %s aborted: %w", runID, err)
	}

	p.logger.Info("Generation run complete",
		zap.String("run_id", runID),
		zap.Int("entities", len(entities)),
		zap.Int("failed_completions", len(result.Errors)),
		zap.Duration("duration", time.Since(start)),
	)
	return result, nil
}

func (p *Pipeline) concurrency() int {
	if p.genCfg.Concurrency > 0 {
		return p.genCfg.Concurrency
	}
	return 1
}

// GenerateForEntity produces the scenarios of one entity. The returned error
// is non-nil only when ctx is done; every other failure ends in the fallback.
func (p *Pipeline) GenerateForEntity(ctx context.Context, entity schemas.EntityDescription) (EntityResult, error) {
	logger := p.logger.With(zap.String("entity", entity.EntityName))

	userPrompt, err := p.prompts.BuildEntityPrompt(entity, p.coverage)
	if err != nil {
		return p.useFallback(logger, entity, fmt.Errorf("failed to render prompt: %w", err)), nil
	}

	scenarios, err := p.complete(ctx, entity.EntityName, userPrompt)
	if err != nil {
		if ctx.Err() != nil {
			return EntityResult{}, ctx.Err()
		}
		return p.useFallback(logger, entity, err), nil
	}
	if len(scenarios) == 0 {
		return p.useFallback(logger, entity, nil), nil
	}

	logger.Info("Recovered scenarios from completion", zap.Int("count", len(scenarios)))
	return EntityResult{Scenarios: p.truncate(scenarios)}, nil
}

// GenerateForRequirement produces scenarios for a free-text requirement
// against the entities of its module. It has no fallback: an empty result
// is returned as is.
func (p *Pipeline) GenerateForRequirement(ctx context.Context, req prompt.Requirement, entities []schemas.EntityDescription) ([]schemas.TestScenario, error) {
	userPrompt, err := p.prompts.BuildRequirementPrompt(req, entities, p.coverage)
	if err != nil {
		return nil, fmt.Errorf("failed to render requirement prompt: %w", err)
	}
	scenarios, err := p.complete(ctx, "requirement_"+req.Name, userPrompt)
	if err != nil {
		return nil, err
	}
	return p.truncate(scenarios), nil
}

// RunRequirement analyzes the module at loc and generates scenarios for req
// against its entities. The scenarios are grouped under the requirement name.
func (p *Pipeline) RunRequirement(ctx context.Context, loc source.Location, req prompt.Requirement) (*Result, error) {
	runID := uuid.NewString()
	snap, entities, err := p.Analyze(ctx, loc)
	if err != nil {
		return nil, err
	}
	if req.ModuleName == "" {
		req.ModuleName = snap.Module
	}
	scenarios, err := p.GenerateForRequirement(ctx, req, entities)
	if err != nil {
		return nil, err
	}
	p.logger.Info("Generated requirement scenarios",
		zap.String("run_id", runID),
		zap.String("requirement", req.Name),
		zap.Int("count", len(scenarios)),
	)
	return &Result{
		RunID:        runID,
		Module:       snap.Module,
		Commit:       snap.Commit,
		Entities:     entities,
		Scenarios:    map[string][]schemas.TestScenario{RequirementGroup(req.Name): scenarios},
		Errors:       map[string]string{},
		UsedFallback: map[string]bool{},
	}, nil
}

// RequirementGroup is the Result.Scenarios key of a requirement's scenarios.
func RequirementGroup(name string) string {
	return "requirement:" + name
}

// Improve asks the completion endpoint to fix the script body of a failing
// scenario and returns the corrected body.
func (p *Pipeline) Improve(ctx context.Context, scenario schemas.TestScenario, errorMessage string) (string, error) {
	if p.llm == nil {
		return "", fmt.Errorf("%w: no completion client configured", schemas.ErrCompletionFailed)
	}
	userPrompt, err := p.prompts.BuildImprovePrompt(scenario, errorMessage)
	if err != nil {
		return "", fmt.Errorf("failed to render improve prompt: %w", err)
	}
	resp, err := p.llm.Generate(ctx, schemas.GenerationRequest{
		SystemPrompt: p.prompts.SystemPrompt(),
		UserPrompt:   userPrompt,
	})
	if err != nil {
		return "", err
	}
	p.writeDebug("improve_"+scenario.ScenarioID, resp)

	body := llmutil.CleanCodeOutput(resp)
	if strings.TrimSpace(body) == "" {
		return "", fmt.Errorf("%w: empty script body in completion", schemas.ErrCompletionFailed)
	}
	return body, nil
}

// complete sends one prompt and recovers the scenarios from the answer.
func (p *Pipeline) complete(ctx context.Context, name, userPrompt string) ([]schemas.TestScenario, error) {
	if p.llm == nil {
		return nil, fmt.Errorf("%w: no completion client configured", schemas.ErrCompletionFailed)
	}
	resp, err := p.llm.Generate(ctx, schemas.GenerationRequest{
		SystemPrompt: p.prompts.SystemPrompt(),
		UserPrompt:   userPrompt,
		Options:      schemas.GenerationOptions{ForceJSONFormat: true},
	})
	if err != nil {
		if !errors.Is(err, schemas.ErrCompletionFailed) && ctx.Err() == nil {
			err = fmt.Errorf("%w: %w", schemas.ErrCompletionFailed, err)
		}
		return nil, err
	}
	p.writeDebug(name, resp)
	return p.parser.Parse(resp), nil
}

func (p *Pipeline) useFallback(logger *zap.Logger, entity schemas.EntityDescription, cause error) EntityResult {
	if cause != nil {
		logger.Warn("Completion failed, using fallback generator", zap.Error(cause))
	} else {
		logger.Warn("No scenarios recovered from completion, using fallback generator")
	}
	return EntityResult{
		Scenarios:    p.truncate(p.fallback.Generate(entity)),
		UsedFallback: true,
		Err:          cause,
	}
}

func (p *Pipeline) truncate(scenarios []schemas.TestScenario) []schemas.TestScenario {
	if limit := p.coverage.MaxScenarios; limit > 0 && len(scenarios) > limit {
		return scenarios[:limit]
	}
	return scenarios
}

// writeDebug stores a raw completion under the debug directory, if configured.
func (p *Pipeline) writeDebug(name, content string) {
	dir := p.genCfg.DebugDir
	if dir == "" {
		return
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		p.logger.Warn("Failed to create debug directory", zap.String("dir", dir), zap.Error(err))
		return
	}
	path := filepath.Join(dir, debugFileName(name))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		p.logger.Warn("Failed to write raw completion", zap.String("file", path), zap.Error(err))
		return
	}
	p.logger.Debug("Wrote raw completion", zap.String("file", path))
}

func debugFileName(name string) string {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			return r
		}
		return '_'
	}, name)
	return clean + ".txt"
}
