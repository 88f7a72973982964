// File: internal/mocks/mocks.go
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/testforge/api/schemas"
	"github.com/xkilldash9x/testforge/internal/config"
	"github.com/xkilldash9x/testforge/internal/orchestrator"
	"github.com/xkilldash9x/testforge/internal/source"
)

// -- Config Mock --

// MockConfig mocks the config.Interface.
type MockConfig struct {
	mock.Mock
}

// --- Getters ---

func (m *MockConfig) Logger() config.LoggerConfig {
	args := m.Called()
	return args.Get(0).(config.LoggerConfig)
}

func (m *MockConfig) AI() config.AIConfig {
	args := m.Called()
	return args.Get(0).(config.AIConfig)
}

func (m *MockConfig) Source() config.SourceConfig {
	args := m.Called()
	return args.Get(0).(config.SourceConfig)
}

func (m *MockConfig) Coverage() schemas.ScenarioCoverageConfig {
	args := m.Called()
	return args.Get(0).(schemas.ScenarioCoverageConfig)
}

func (m *MockConfig) Generation() config.GenerationConfig {
	args := m.Called()
	return args.Get(0).(config.GenerationConfig)
}

func (m *MockConfig) Database() config.DatabaseConfig {
	args := m.Called()
	return args.Get(0).(config.DatabaseConfig)
}

// --- Setters ---

func (m *MockConfig) SetCoverage(cov schemas.ScenarioCoverageConfig) {
	m.Called(cov)
}

func (m *MockConfig) SetSource(src config.SourceConfig) {
	m.Called(src)
}

// -- LLM Client Mock --

// MockLLMClient mocks the schemas.LLMClient interface.
type MockLLMClient struct {
	mock.Mock
}

// Generate provides a mock function for LLM calls.
func (m *MockLLMClient) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

// Close provides a mock function for releasing the client.
func (m *MockLLMClient) Close() error {
	return m.Called().Error(0)
}

// -- Source Fetcher Mock --

// MockFetcher mocks the orchestrator.Fetcher interface.
type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) Fetch(ctx context.Context, loc source.Location) (*source.Snapshot, error) {
	args := m.Called(ctx, loc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*source.Snapshot), args.Error(1)
}

// -- Analyzer Mock --

// MockAnalyzer mocks the orchestrator.Analyzer interface.
type MockAnalyzer struct {
	mock.Mock
}

func (m *MockAnalyzer) Analyze(ctx context.Context, tree schemas.SourceTree) ([]schemas.EntityDescription, error) {
	args := m.Called(ctx, tree)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]schemas.EntityDescription), args.Error(1)
}

// -- Store Mock --

// MockStore mocks the run sink used by the generate command.
type MockStore struct {
	mock.Mock
}

// SaveRun provides a mock function for persisting a generation run.
func (m *MockStore) SaveRun(ctx context.Context, run *orchestrator.Result) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}
