// File: cmd/improve.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/testforge/api/schemas"
	"github.com/xkilldash9x/testforge/internal/config"
	"github.com/xkilldash9x/testforge/internal/observability"
)

type improveOptions struct {
	scenarioFile string
	errorMessage string
	output       string
}

func newImproveCmd(newLLM llmFactory) *cobra.Command {
	opts := improveOptions{}

	improveCmd := &cobra.Command{
		Use:   "improve",
		Short: "Rewrite a failing scenario script",
		Long: `Sends a generated scenario and the error it failed with to the completion
model and prints the corrected script.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			return runImprove(ctx, observability.GetLogger(), cfg, opts, newLLM, cmd.OutOrStdout())
		},
	}

	improveCmd.Flags().StringVarP(&opts.scenarioFile, "scenario", "s", "", "JSON file holding the scenario to improve (required)")
	improveCmd.Flags().StringVarP(&opts.errorMessage, "error", "e", "", "Error message the scenario failed with (required)")
	improveCmd.Flags().StringVarP(&opts.output, "output", "o", "", "File to write the improved script to. If unset, it is printed to stdout.")
	_ = improveCmd.MarkFlagRequired("scenario")
	_ = improveCmd.MarkFlagRequired("error")
	return improveCmd
}

// runImprove contains the core, testable logic of the improve command.
func runImprove(ctx context.Context, logger *zap.Logger, cfg config.Interface, opts improveOptions, newLLM llmFactory, stdout io.Writer) error {
	if opts.errorMessage == "" {
		return errors.New("an error message is required")
	}

	data, err := os.ReadFile(opts.scenarioFile)
	if err != nil {
		return fmt.Errorf("failed to read scenario file: %w", err)
	}
	var scenario schemas.TestScenario
	if err := json.Unmarshal(data, &scenario); err != nil {
		return fmt.Errorf("failed to decode scenario file %s: %w", opts.scenarioFile, err)
	}
	if scenario.ScriptBody == "" {
		return fmt.Errorf("scenario in %s has no script body", opts.scenarioFile)
	}

	llm, err := newLLM(ctx, cfg.AI(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize completion client: %w", err)
	}
	defer func() {
		if err := llm.Close(); err != nil {
			logger.Warn("Failed to close completion client", zap.Error(err))
		}
	}()

	pipeline, err := newPipeline(cfg, logger, llm)
	if err != nil {
		return err
	}
	body, err := pipeline.Improve(ctx, scenario, opts.errorMessage)
	if err != nil {
		return err
	}

	if opts.output == "" {
		_, err := io.WriteString(stdout, body)
		return err
	}
	if err := os.WriteFile(opts.output, []byte(body), 0o644); err != nil {
		return fmt.Errorf("failed to write improved script: %w", err)
	}
	logger.Info("Improved script written", zap.String("path", opts.output), zap.String("scenario", scenario.ScenarioID))
	return nil
}
