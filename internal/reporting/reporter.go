// -- internal/reporting/reporter.go --
package reporting

import (
	"fmt"
	"io"
	"os"

	"github.com/xkilldash9x/testforge/api/schemas"
	"github.com/xkilldash9x/testforge/internal/orchestrator"
)

// Output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatRobot = "robot"
)

// Analysis is the outcome of analyzing one module without generating tests.
type Analysis struct {
	Module   string                      `json:"module"`
	Commit   schemas.CommitInfo          `json:"commit"`
	Entities []schemas.EntityDescription `json:"entities"`
}

// Reporter defines the interface for writing command results to an output.
type Reporter interface {
	WriteAnalysis(a Analysis) error
	WriteRun(result *orchestrator.Result) error
	WriteModules(modules []schemas.ModuleInfo) error
	// Close finalizes the report and closes any underlying resources (e.g., file handles).
	Close() error
}

// nopWriteCloser wraps an io.Writer and provides a no-op Close method.
type nopWriteCloser struct {
	io.Writer
}

func (nwc *nopWriteCloser) Close() error {
	return nil
}

// New creates a new reporter based on the specified format and output path.
// An empty path or "stdout" writes to stdout. The robot format writes one
// file per scenario and takes a directory as its output path.
func New(format, outputPath string, stdout io.Writer) (Reporter, error) {
	if format == FormatRobot {
		if outputPath == "" || outputPath == "stdout" {
			return nil, fmt.Errorf("robot output requires a directory path")
		}
		return newRobotReporter(outputPath)
	}
	if format != FormatTable && format != FormatJSON {
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}

	var writer io.WriteCloser
	if outputPath == "" || outputPath == "stdout" {
		// Wrap stdout so Close() is a no-op.
		writer = &nopWriteCloser{stdout}
	} else {
		f, err := os.Create(outputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file %s: %w", outputPath, err)
		}
		writer = f
	}

	if format == FormatJSON {
		return &jsonReporter{w: writer}, nil
	}
	return &tableReporter{w: writer}, nil
}
