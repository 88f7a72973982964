// File: cmd/generate.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/testforge/api/schemas"
	"github.com/xkilldash9x/testforge/internal/config"
	"github.com/xkilldash9x/testforge/internal/observability"
	"github.com/xkilldash9x/testforge/internal/orchestrator"
	"github.com/xkilldash9x/testforge/internal/prompt"
	"github.com/xkilldash9x/testforge/internal/reporting"
	"github.com/xkilldash9x/testforge/internal/source"
	"github.com/xkilldash9x/testforge/internal/store"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// runStore persists a finished generation run.
type runStore interface {
	SaveRun(ctx context.Context, run *orchestrator.Result) error
}

// storeProvider creates the run store. Tests inject a provider returning a
// mock instead of opening a database connection.
type storeProvider interface {
	// Create returns the store, a cleanup function releasing its resources,
	// and an error if the store cannot be reached.
	Create(ctx context.Context, cfg config.Interface) (runStore, func(), error)
}

type defaultStoreProvider struct{}

// NewStoreProvider returns the PostgreSQL-backed store provider.
func NewStoreProvider() storeProvider {
	return &defaultStoreProvider{}
}

// Create connects to the configured database and makes sure the schema exists.
func (p *defaultStoreProvider) Create(ctx context.Context, cfg config.Interface) (runStore, func(), error) {
	logger := observability.GetLogger()
	if cfg.Database().URL == "" {
		return nil, nil, fmt.Errorf("database URL is not configured (TESTFORGE_DATABASE_URL)")
	}

	pool, err := pgxpool.New(ctx, cfg.Database().URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s, err := store.New(ctx, pool, logger)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to initialize store service: %w", err)
	}
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}

	cleanup := func() {
		pool.Close()
		logger.Debug("Database connection pool closed.")
	}
	return s, cleanup, nil
}

type generateOptions struct {
	module          string
	format          string
	output          string
	requirementFile string
	branch          string
	maxScenarios    int
	noAI            bool
}

func newGenerateCmd(provider storeProvider, newLLM llmFactory) *cobra.Command {
	opts := generateOptions{}

	generateCmd := &cobra.Command{
		Use:   "generate [path|url]",
		Short: "Generate UI test scenarios for a module",
		Long: `Analyzes a module and generates test scenarios for each of its entities with
the configured completion model. Entities the model cannot serve get template
scenarios instead. With --requirement, scenarios are generated for a single
business requirement read from a JSON file.

When database.enabled is set, the run is also persisted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			return runGenerate(ctx, observability.GetLogger(), cfg, targetArg(args), opts, newLLM, provider, cmd.OutOrStdout())
		},
	}

	flags := generateCmd.Flags()
	flags.StringVarP(&opts.module, "module", "m", "", "Module to generate for when the source holds several")
	flags.StringVarP(&opts.format, "format", "f", reporting.FormatTable, "Output format (table, json, robot)")
	flags.StringVarP(&opts.output, "output", "o", "", "Output file path, or directory for robot output")
	flags.StringVarP(&opts.requirementFile, "requirement", "r", "", "JSON file describing a business requirement")
	flags.StringVar(&opts.branch, "branch", "", "Repository branch (overrides source.branch)")
	flags.IntVar(&opts.maxScenarios, "max-scenarios", 0, "Maximum scenarios per entity (overrides coverage.max_scenarios)")
	flags.BoolVar(&opts.noAI, "no-ai", false, "Skip the completion model and emit template scenarios only")
	return generateCmd
}

// runGenerate contains the core, testable logic of the generate command.
func runGenerate(
	ctx context.Context,
	logger *zap.Logger,
	cfg config.Interface,
	target string,
	opts generateOptions,
	newLLM llmFactory,
	provider storeProvider,
	stdout io.Writer,
) error {
	if opts.maxScenarios > 0 {
		cov := cfg.Coverage()
		cov.MaxScenarios = opts.maxScenarios
		cfg.SetCoverage(cov)
	}
	if opts.branch != "" {
		src := cfg.Source()
		src.Branch = opts.branch
		cfg.SetSource(src)
	}

	var req *prompt.Requirement
	if opts.requirementFile != "" {
		r, err := loadRequirement(opts.requirementFile)
		if err != nil {
			return err
		}
		req = &r
	}

	var llm schemas.LLMClient
	if !opts.noAI {
		client, err := newLLM(ctx, cfg.AI(), logger)
		if err != nil {
			if req != nil {
				return fmt.Errorf("requirement generation needs a completion client: %w", err)
			}
			logger.Warn("Completion client unavailable; generating template scenarios only", zap.Error(err))
		} else {
			llm = client
			defer func() {
				if err := client.Close(); err != nil {
					logger.Warn("Failed to close completion client", zap.Error(err))
				}
			}()
		}
	} else if req != nil {
		return errors.New("--requirement cannot be combined with --no-ai")
	}

	pipeline, err := newPipeline(cfg, logger, llm)
	if err != nil {
		return err
	}

	loc := source.NewLocation(cfg.Source(), target, opts.module)
	logger.Info("Generating scenarios", zap.Stringer("location", loc), zap.Bool("ai", llm != nil))

	var result *orchestrator.Result
	if req != nil {
		result, err = pipeline.RunRequirement(ctx, loc, *req)
	} else {
		result, err = pipeline.Run(ctx, loc)
	}
	if err != nil {
		return err
	}

	if cfg.Database().Enabled {
		if err := saveRun(ctx, cfg, provider, result); err != nil {
			return err
		}
	}

	return withReporter(logger, opts.format, opts.output, stdout, func(r reporting.Reporter) error {
		return r.WriteRun(result)
	})
}

func saveRun(ctx context.Context, cfg config.Interface, provider storeProvider, result *orchestrator.Result) error {
	s, cleanup, err := provider.Create(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	if cleanup != nil {
		defer cleanup()
	}
	if err := s.SaveRun(ctx, result); err != nil {
		return fmt.Errorf("failed to persist run %s: %w", result.RunID, err)
	}
	return nil
}

// loadRequirement reads a requirement from a JSON file. Name and
// specification are mandatory.
func loadRequirement(path string) (prompt.Requirement, error) {
	var req prompt.Requirement
	data, err := os.ReadFile(path)
	if err != nil {
		return req, fmt.Errorf("failed to read requirement file: %w", err)
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return req, fmt.Errorf("failed to decode requirement file %s: %w", path, err)
	}
	if req.Name == "" || req.Specification == "" {
		return req, fmt.Errorf("requirement file %s must set name and specification", path)
	}
	return req, nil
}
