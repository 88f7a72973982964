package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xkilldash9x/testforge/api/schemas"
	"github.com/xkilldash9x/testforge/internal/orchestrator"
)

// robotReporter exports each scenario's script body as a .robot file.
type robotReporter struct {
	dir string
}

func newRobotReporter(dir string) (*robotReporter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}
	return &robotReporter{dir: dir}, nil
}

func (r *robotReporter) WriteAnalysis(Analysis) error {
	return fmt.Errorf("robot output is only available for generated scenarios")
}

func (r *robotReporter) WriteModules([]schemas.ModuleInfo) error {
	return fmt.Errorf("robot output is only available for generated scenarios")
}

func (r *robotReporter) WriteRun(result *orchestrator.Result) error {
	for _, group := range result.Groups() {
		for _, s := range result.Scenarios[group] {
			path := filepath.Join(r.dir, RobotFileName(group, s.ScenarioID))
			if err := os.WriteFile(path, []byte(s.ScriptBody), 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}
		}
	}
	return nil
}

func (r *robotReporter) Close() error {
	return nil
}

// RobotFileName names the exported file of one scenario, e.g. sale_order_tc001.robot.
func RobotFileName(entity, testID string) string {
	base := strings.ToLower(strings.NewReplacer(".", "_", "/", "_", " ", "_", ":", "_").Replace(entity + "_" + testID))
	return base + ".robot"
}
