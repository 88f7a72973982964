package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/testforge/api/schemas"
)

func TestParseAccessRules(t *testing.T) {
	rules, err := ParseAccessRules([]byte(accessCSV))
	require.NoError(t, err)

	require.Len(t, rules["model_sale_order"], 2)
	assert.Equal(t, schemas.AccessRule{
		ID:         "access_sale_order_user",
		Name:       "sale.order user",
		Group:      "base.group_user",
		PermRead:   true,
		PermWrite:  true,
		PermCreate: true,
	}, rules["model_sale_order"][0])
	require.Len(t, rules["model_helpdesk_ticket"], 1)
	assert.Equal(t, "", rules["model_helpdesk_ticket"][0].Group)
}

func TestParseAccessRules_Edges(t *testing.T) {
	rules, err := ParseAccessRules(nil)
	require.NoError(t, err)
	assert.Empty(t, rules)

	_, err = ParseAccessRules([]byte("id,name\na,b\n"))
	assert.Error(t, err, "missing model column")

	rules, err = ParseAccessRules([]byte("\ufeffid,model_id:id,perm_read\nx,model_a_b\n"))
	require.NoError(t, err)
	require.Len(t, rules["model_a_b"], 1)
	assert.False(t, rules["model_a_b"][0].PermRead, "short rows read missing columns as empty")
}

func TestAccessModelID(t *testing.T) {
	assert.Equal(t, "model_sale_order_line", accessModelID("sale.order.line"))
}
