// File: cmd/modules_test.go
package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/testforge/api/schemas"
	"github.com/xkilldash9x/testforge/internal/reporting"
)

func TestRunModules(t *testing.T) {
	dir := writeModule(t)

	var out bytes.Buffer
	require.NoError(t, runModules(context.Background(), zap.NewNop(), dir, reporting.FormatJSON, "", &out))

	var modules []schemas.ModuleInfo
	require.NoError(t, json.Unmarshal(out.Bytes(), &modules))
	require.Len(t, modules, 1)
	assert.Equal(t, "sale_approval", modules[0].Name)
	assert.Equal(t, "Sales Approval", modules[0].DisplayName)
	assert.Equal(t, 1, modules[0].ModelCount)
}

func TestRunModules_Empty(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, runModules(context.Background(), zap.NewNop(), t.TempDir(), reporting.FormatJSON, "", &out))
	assert.JSONEq(t, "[]", out.String())
}
