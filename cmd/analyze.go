// File: cmd/analyze.go
package cmd

import (
	"context"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/testforge/internal/config"
	"github.com/xkilldash9x/testforge/internal/observability"
	"github.com/xkilldash9x/testforge/internal/reporting"
	"github.com/xkilldash9x/testforge/internal/source"
)

type analyzeOptions struct {
	module string
	format string
	output string
}

func newAnalyzeCmd() *cobra.Command {
	opts := analyzeOptions{}

	analyzeCmd := &cobra.Command{
		Use:   "analyze [path|url]",
		Short: "Extract the entities of a module without generating tests",
		Long: `Fetches a module from a local path or a repository URL and prints the
entities found in its sources, with the tests suggested for each. Without an
argument the repository configured under source.url is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			return runAnalyze(ctx, observability.GetLogger(), cfg, targetArg(args), opts, cmd.OutOrStdout())
		},
	}

	analyzeCmd.Flags().StringVarP(&opts.module, "module", "m", "", "Module to analyze when the source holds several")
	analyzeCmd.Flags().StringVarP(&opts.format, "format", "f", reporting.FormatTable, "Output format (table, json)")
	analyzeCmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output file path. If unset, the report is printed to stdout.")
	return analyzeCmd
}

// runAnalyze contains the core, testable logic of the analyze command.
func runAnalyze(ctx context.Context, logger *zap.Logger, cfg config.Interface, target string, opts analyzeOptions, stdout io.Writer) error {
	pipeline, err := newPipeline(cfg, logger, nil)
	if err != nil {
		return err
	}

	loc := source.NewLocation(cfg.Source(), target, opts.module)
	logger.Info("Analyzing module", zap.Stringer("location", loc))

	snap, entities, err := pipeline.Analyze(ctx, loc)
	if err != nil {
		return err
	}

	return withReporter(logger, opts.format, opts.output, stdout, func(r reporting.Reporter) error {
		return r.WriteAnalysis(reporting.Analysis{Module: snap.Module, Commit: snap.Commit, Entities: entities})
	})
}

func targetArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
