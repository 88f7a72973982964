// File: cmd/pipeline.go
package cmd

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/xkilldash9x/testforge/api/schemas"
	"github.com/xkilldash9x/testforge/internal/analysis"
	"github.com/xkilldash9x/testforge/internal/config"
	"github.com/xkilldash9x/testforge/internal/network"
	"github.com/xkilldash9x/testforge/internal/orchestrator"
	"github.com/xkilldash9x/testforge/internal/reporting"
	"github.com/xkilldash9x/testforge/internal/source"
)

// llmFactory builds a completion client. Production code passes
// llmclient.NewClient; tests pass a factory returning a mock.
type llmFactory func(ctx context.Context, cfg config.AIConfig, logger *zap.Logger) (schemas.LLMClient, error)

// newPipeline wires the production fetcher and analyzer around llm, which may be nil.
func newPipeline(cfg config.Interface, logger *zap.Logger, llm schemas.LLMClient) (*orchestrator.Pipeline, error) {
	transport, err := network.NewSourceTransport(cfg.Source(), logger)
	if err != nil {
		return nil, err
	}
	fetcher := source.NewFetcher(cfg.Source(), transport, logger)
	analyzer := analysis.NewAnalyzer(logger)
	return orchestrator.New(cfg, logger, fetcher, analyzer, llm)
}

// withReporter opens a reporter, hands it to write and closes it.
func withReporter(logger *zap.Logger, format, output string, stdout io.Writer, write func(reporting.Reporter) error) error {
	reporter, err := reporting.New(format, output, stdout)
	if err != nil {
		return fmt.Errorf("failed to initialize reporter: %w", err)
	}
	defer func() {
		if err := reporter.Close(); err != nil {
			logger.Warn("Failed to close reporter cleanly.", zap.Error(err))
		}
	}()

	if err := write(reporter); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if output != "" {
		logger.Info("Report written", zap.String("path", output), zap.String("format", format))
	}
	return nil
}
