package python

import (
	"context"
	"testing"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// parseCondition parses `if <expr>: pass` and returns the condition node.
func parseCondition(t *testing.T, expr string) (*sitter.Node, []byte) {
	t.Helper()
	src := []byte("if " + expr + ":\n    pass\n")
	root, closeTree, err := parse(context.Background(), src)
	require.NoError(t, err)
	t.Cleanup(closeTree)
	require.False(t, root.HasError(), "expression %q did not parse", expr)

	stmts := namedChildren(root)
	require.Len(t, stmts, 1)
	cond := stmts[0].ChildByFieldName("condition")
	require.NotNil(t, cond)
	return cond, src
}

func TestRenderCondition(t *testing.T) {
	tests := []struct {
		expr     string
		expected string
	}{
		{"not self.name", "not self.name"},
		{"self.amount < 0", "self.amount < 0"},
		{"rec.state != 'draft'", "rec.state != 'draft'"},
		{`rec.state == "done"`, "rec.state == 'done'"},
		{"self.partner_id is None", "self.partner_id is None"},
		{"self.partner_id is not None", "self.partner_id is not None"},
		{"self.state not in STATES", "self.state not in STATES"},
		{"self.code in codes", "self.code in codes"},
		{"0 < self.qty <= 10", "0 < self.qty <= 10"},
		{"self.a and not self.b", "self.a and not self.b"},
		{"(self.a or self.b) and self.c", "(self.a or self.b) and self.c"},
		{"self.a or self.b or self.c", "self.a or self.b or self.c"},
		{"self.discount > -1.5", "self.discount > -1.5"},
		{"lines[0].qty == 0", "lines[...].qty == 0"},
		{"self.active == False", "self.active == False"},
		{"flag", "flag"},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			cond, src := parseCondition(t, tt.expr)
			got, ok := RenderCondition(cond, src)
			require.True(t, ok)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestRenderCondition_Unrenderable(t *testing.T) {
	exprs := []string{
		"len(self.line_ids) == 0",
		"self.state in ('draft', 'sent')",
		"self.check()",
		"self.name == f'{x}'",
		"self.a and self.is_locked()",
		"not any(self.line_ids)",
		"self.total + 1 > 10",
	}

	for _, expr := range exprs {
		t.Run(expr, func(t *testing.T) {
			cond, src := parseCondition(t, expr)
			_, ok := RenderCondition(cond, src)
			assert.False(t, ok)
		})
	}
}
