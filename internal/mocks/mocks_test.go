// internal/mocks/mocks_test.go
package mocks_test

import (
	"github.com/xkilldash9x/testforge/api/schemas"
	"github.com/xkilldash9x/testforge/internal/config"
	"github.com/xkilldash9x/testforge/internal/mocks"
	"github.com/xkilldash9x/testforge/internal/orchestrator"
)

// The mocks must keep satisfying the interfaces they stand in for.
var (
	_ config.Interface      = (*mocks.MockConfig)(nil)
	_ schemas.LLMClient     = (*mocks.MockLLMClient)(nil)
	_ orchestrator.Fetcher  = (*mocks.MockFetcher)(nil)
	_ orchestrator.Analyzer = (*mocks.MockAnalyzer)(nil)
)
