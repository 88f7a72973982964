// File: cmd/improve_test.go
package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/testforge/api/schemas"
	"github.com/xkilldash9x/testforge/internal/mocks"
)

const improvedAnswer = "Fixed locator.\n```robot\n*** Test Cases ***\nCreate Order\n    Click Button    //button[@name='save']\n```"

func writeScenario(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.json")
	data, err := json.Marshal(schemas.TestScenario{ScenarioID: "TC001", Name: "Create order", ScriptBody: body})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func improvingLLM(t *testing.T) *mocks.MockLLMClient {
	llm := new(mocks.MockLLMClient)
	llm.On("Generate", mock.Anything, mock.MatchedBy(func(req schemas.GenerationRequest) bool {
		return strings.Contains(req.UserPrompt, "Element not found")
	})).Return(improvedAnswer, nil).Once()
	llm.On("Close").Return(nil).Once()
	t.Cleanup(func() { llm.AssertExpectations(t) })
	return llm
}

func TestRunImprove(t *testing.T) {
	scenario := writeScenario(t, "*** Test Cases ***\nCreate Order\n    Click Button    save\n")

	t.Run("stdout", func(t *testing.T) {
		var out bytes.Buffer
		opts := improveOptions{scenarioFile: scenario, errorMessage: "Element not found: save"}
		require.NoError(t, runImprove(context.Background(), zap.NewNop(), testConfig(), opts, llmReturning(improvingLLM(t)), &out))
		assert.Equal(t, "*** Test Cases ***\nCreate Order\n    Click Button    //button[@name='save']\n", out.String())
	})

	t.Run("output file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "fixed.robot")
		var out bytes.Buffer
		opts := improveOptions{scenarioFile: scenario, errorMessage: "Element not found: save", output: path}
		require.NoError(t, runImprove(context.Background(), zap.NewNop(), testConfig(), opts, llmReturning(improvingLLM(t)), &out))
		assert.Empty(t, out.String())

		body, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(body), "*** Test Cases ***"))
	})
}

func TestRunImprove_Errors(t *testing.T) {
	t.Run("scenario without script", func(t *testing.T) {
		opts := improveOptions{scenarioFile: writeScenario(t, ""), errorMessage: "x"}
		err := runImprove(context.Background(), zap.NewNop(), testConfig(), opts, llmUnavailable, new(bytes.Buffer))
		assert.ErrorContains(t, err, "no script body")
	})

	t.Run("client unavailable", func(t *testing.T) {
		opts := improveOptions{scenarioFile: writeScenario(t, "*** Test Cases ***\n"), errorMessage: "x"}
		err := runImprove(context.Background(), zap.NewNop(), testConfig(), opts, llmUnavailable, new(bytes.Buffer))
		assert.ErrorContains(t, err, "failed to initialize completion client")
	})

	t.Run("missing file", func(t *testing.T) {
		opts := improveOptions{scenarioFile: filepath.Join(t.TempDir(), "nope.json"), errorMessage: "x"}
		err := runImprove(context.Background(), zap.NewNop(), testConfig(), opts, llmUnavailable, new(bytes.Buffer))
		assert.Error(t, err)
	})

	t.Run("required flags", func(t *testing.T) {
		_, err := executeCommand(t, "improve")
		assert.Error(t, err)
	})
}
