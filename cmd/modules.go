// File: cmd/modules.go
package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/testforge/internal/observability"
	"github.com/xkilldash9x/testforge/internal/reporting"
	"github.com/xkilldash9x/testforge/internal/source"
)

func newModulesCmd() *cobra.Command {
	var format, output string

	modulesCmd := &cobra.Command{
		Use:   "modules [dir]",
		Short: "List the modules found under a directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}
			return runModules(cmd.Context(), observability.GetLogger(), root, format, output, cmd.OutOrStdout())
		},
	}

	modulesCmd.Flags().StringVarP(&format, "format", "f", reporting.FormatTable, "Output format (table, json)")
	modulesCmd.Flags().StringVarP(&output, "output", "o", "", "Output file path. If unset, the list is printed to stdout.")
	return modulesCmd
}

func runModules(ctx context.Context, logger *zap.Logger, root, format, output string, stdout io.Writer) error {
	dir, err := homedir.Expand(root)
	if err != nil {
		return fmt.Errorf("invalid directory %q: %w", root, err)
	}
	modules, err := source.DiscoverModules(ctx, dir)
	if err != nil {
		return err
	}
	logger.Debug("Discovered modules", zap.String("root", dir), zap.Int("count", len(modules)))

	return withReporter(logger, format, output, stdout, func(r reporting.Reporter) error {
		return r.WriteModules(modules)
	})
}
