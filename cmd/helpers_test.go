// File: cmd/helpers_test.go
package cmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/testforge/api/schemas"
	"github.com/xkilldash9x/testforge/internal/config"
	"github.com/xkilldash9x/testforge/internal/mocks"
	"github.com/xkilldash9x/testforge/internal/orchestrator"
)

const manifestSrc = `{
    'name': 'Sales Approval',
    'version': '17.0.1.0',
    'depends': ['sale'],
}
`

const orderSrc = `from odoo import fields, models


class Order(models.Model):
    _name = 'x.order'
    _description = 'Order'

    name = fields.Char(string='Reference', required=True)
    amount = fields.Float()
    state = fields.Selection([('draft', 'Draft'), ('done', 'Done')], default='draft')
`

const orderCompletion = `{"test_scenarios":[
 {"test_id":"TC001","name":"Create order","description":"d","category":"crud","steps":[],"script_body":"*** Test Cases ***\nCreate Order\n    Log    ok\n"},
 {"test_id":"TC002","name":"Confirm order","description":"d","category":"workflow","steps":[],"script_body":"*** Test Cases ***\nConfirm Order\n    Log    ok\n"}
]}`

// writeModule lays out a one-model module and returns its directory.
func writeModule(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "sale_approval")
	files := map[string]string{
		"__manifest__.py":    manifestSrc,
		"__init__.py":        "from . import models\n",
		"models/__init__.py": "from . import order\n",
		"models/order.py":    orderSrc,
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

// createTempConfig writes content to a config file and returns its path.
func createTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func testConfig() *config.Config {
	return config.NewDefaultConfig()
}

// llmReturning is an llmFactory handing out client.
func llmReturning(client schemas.LLMClient) llmFactory {
	return func(context.Context, config.AIConfig, *zap.Logger) (schemas.LLMClient, error) {
		return client, nil
	}
}

// llmUnavailable is an llmFactory that always fails, like a missing API key.
func llmUnavailable(context.Context, config.AIConfig, *zap.Logger) (schemas.LLMClient, error) {
	return nil, errors.New("API key is required")
}

// fakeStoreProvider hands out a fixed store or error.
type fakeStoreProvider struct {
	store   *mocks.MockStore
	err     error
	cleaned bool
}

func (p *fakeStoreProvider) Create(context.Context, config.Interface) (runStore, func(), error) {
	if p.err != nil {
		return nil, nil, p.err
	}
	return p.store, func() { p.cleaned = true }, nil
}

// decodeRun parses the JSON run report written to out.
func decodeRun(t *testing.T, out []byte) orchestrator.Result {
	t.Helper()
	var result orchestrator.Result
	require.NoError(t, json.Unmarshal(out, &result))
	return result
}
