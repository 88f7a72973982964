package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/testforge/api/schemas"
)

const orderModel = `from odoo import api, fields, models, _
from odoo.exceptions import UserError


class Order(models.Model):
    _name = 'sale.order'
    _description = 'Order'

    name = fields.Char(required=True)
    state = fields.Selection([('draft', 'Draft'), ('confirmed', 'Confirmed')], default='draft')

    def action_confirm(self):
        if self.state != 'draft':
            raise UserError(_("Already confirmed"))
        self.state = 'confirmed'
`

const orderExtension = `from odoo import fields, models


class OrderExtension(models.Model):
    _inherit = 'sale.order'

    name = fields.Char(string='Reference')
    note = fields.Text()

    def action_confirm(self):
        """Confirm and notify."""
        return super().action_confirm()

    def action_done(self):
        pass


class Partner(models.Model):
    _inherit = ['res.partner', 'mail.thread']

    ref = fields.Char()
`

const ticketModel = `from odoo import fields, models


def _states(self):
    return [('new', 'New'), ('closed', 'Closed')]


class Ticket(models.Model):
    _name = 'helpdesk.ticket'

    state = fields.Selection(_states)
`

const orderViews = `<odoo>
    <record id="order_form" model="ir.ui.view">
        <field name="model">sale.order</field>
        <field name="arch" type="xml">
            <form>
                <header>
                    <button name="action_confirm" string="Confirm" type="object"/>
                    <field name="state" widget="statusbar"/>
                </header>
                <field name="name"/>
            </form>
        </field>
    </record>
    <record id="ticket_form" model="ir.ui.view">
        <field name="model">helpdesk.ticket</field>
        <field name="arch" type="xml">
            <form>
                <button name="action_close" string="Close"/>
                <field name="state" widget="statusbar" statusbar_visible="new,closed"/>
            </form>
        </field>
    </record>
</odoo>
`

const accessCSV = `id,name,model_id:id,group_id:id,perm_read,perm_write,perm_create,perm_unlink
access_sale_order_user,sale.order user,model_sale_order,base.group_user,1,1,1,0
access_sale_order_manager,sale.order manager,sale.model_sale_order,sales_team.group_sale_manager,1,1,1,1
access_ticket,ticket,model_helpdesk_ticket,,1,0,0,0
`

func fullTree() schemas.SourceTree {
	return schemas.SourceTree{
		"__manifest__.py":               `{'name': 'Sales'}`,
		"models/__init__.py":            "from . import order\n",
		"models/order.py":               orderModel,
		"models/order_ext.py":           orderExtension,
		"models/ticket.py":              ticketModel,
		"views/order_views.xml":         orderViews,
		"security/ir.model.access.csv":  accessCSV,
		"static/description/index.html": "<html></html>",
	}
}

func TestAnalyze_MergesDeclarations(t *testing.T) {
	a := NewAnalyzer(zaptest.NewLogger(t))
	entities, err := a.Analyze(context.Background(), fullTree())
	require.NoError(t, err)

	names := make([]string, 0, len(entities))
	for _, e := range entities {
		names = append(names, e.EntityName)
	}
	assert.Equal(t, []string{"sale.order", "res.partner", "helpdesk.ticket"}, names)

	order := entities[0]
	assert.Equal(t, "Order", order.Description)
	assert.Equal(t, "sale.order", order.Extends, "extension chain recorded from the inheriting declaration")
	assert.Equal(t, "models/order.py", order.SourceFile)

	require.Len(t, order.Attributes, 3)
	name, _ := order.Attribute("name")
	assert.True(t, name.Required, "overlay keeps the original required flag")
	assert.Equal(t, "Reference", name.Label)
	_, hasNote := order.Attribute("note")
	assert.True(t, hasNote)

	require.Len(t, order.Operations, 2)
	assert.Equal(t, "action_confirm", order.Operations[0].Name)
	assert.Equal(t, "Confirm and notify.", order.Operations[0].Doc, "later definition replaces the earlier one")
	assert.Equal(t, "action_done", order.Operations[1].Name)

	require.NotNil(t, order.StateField)
	assert.Equal(t, schemas.StateField{Attribute: "state", States: []string{"draft", "confirmed"}}, *order.StateField)

	assert.Equal(t, []string{"name", "state"}, order.Views.Attributes)
	assert.Equal(t, []schemas.ViewTrigger{
		{Name: "action_confirm", Label: "Confirm", Type: "object", View: "order_form"},
	}, order.Views.Triggers)

	require.Len(t, order.AccessRules, 2)
	assert.Equal(t, "base.group_user", order.AccessRules[0].Group)
	assert.False(t, order.AccessRules[0].PermUnlink)
	assert.True(t, order.AccessRules[1].PermUnlink)

	partner := entities[1]
	assert.Equal(t, "res.partner, mail.thread", partner.Extends)
	assert.Nil(t, partner.StateField)
	assert.Empty(t, partner.AccessRules)
}

func TestAnalyze_StatusbarFallback(t *testing.T) {
	a := NewAnalyzer(zaptest.NewLogger(t))
	entities, err := a.Analyze(context.Background(), fullTree())
	require.NoError(t, err)

	ticket := entities[2]
	require.Equal(t, "helpdesk.ticket", ticket.EntityName)
	require.NotNil(t, ticket.StateField, "states come from the statusbar when the selection is dynamic")
	assert.Equal(t, []string{"new", "closed"}, ticket.StateField.States)
	require.Len(t, ticket.AccessRules, 1)
	assert.True(t, ticket.AccessRules[0].PermRead)
}

func TestAnalyze_HappyPathEntity(t *testing.T) {
	a := NewAnalyzer(zaptest.NewLogger(t))
	entities, err := a.Analyze(context.Background(), schemas.SourceTree{"models/order.py": orderModel})
	require.NoError(t, err)
	require.Len(t, entities, 1)

	e := entities[0]
	require.NotNil(t, e.StateField)
	assert.Equal(t, []string{"draft", "confirmed"}, e.StateField.States)
	require.Len(t, e.OperationsBy(schemas.VisibilityAction), 1)
	assert.Equal(t, []string{"self.state != 'draft'"}, e.Operations[0].Guards)
}

func TestAnalyze_SkipsBrokenFiles(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	a := NewAnalyzer(zap.New(core))

	tree := schemas.SourceTree{
		"models/order.py":  orderModel,
		"models/broken.py": "class Broken(models.Model:\n    _name = 'x'\n",
		"views/broken.xml": "<odoo><record>",
		"views/order.xml":  orderViews,
	}
	entities, err := a.Analyze(context.Background(), tree)
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, "sale.order", entities[0].EntityName)

	skipped := logs.FilterMessageSnippet("Skipping").All()
	require.Len(t, skipped, 2)
	files := []string{skipped[0].ContextMap()["file"].(string), skipped[1].ContextMap()["file"].(string)}
	assert.ElementsMatch(t, []string{"models/broken.py", "views/broken.xml"}, files)
}

func TestAnalyze_AllBehaviorFilesBroken(t *testing.T) {
	a := NewAnalyzer(zaptest.NewLogger(t))
	_, err := a.Analyze(context.Background(), schemas.SourceTree{
		"models/a.py": "def broken(:\n",
		"models/b.py": "class (:\n",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, schemas.ErrAnalysisFailed))
}

func TestAnalyze_NoBehaviorFiles(t *testing.T) {
	a := NewAnalyzer(zaptest.NewLogger(t))
	entities, err := a.Analyze(context.Background(), schemas.SourceTree{"views/order.xml": orderViews})
	require.NoError(t, err)
	assert.Empty(t, entities)
}

func TestAnalyze_Cancelled(t *testing.T) {
	a := NewAnalyzer(zaptest.NewLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := a.Analyze(ctx, fullTree())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnalyze_Idempotent(t *testing.T) {
	a := NewAnalyzer(zaptest.NewLogger(t))
	first, err := a.Analyze(context.Background(), fullTree())
	require.NoError(t, err)
	second, err := a.Analyze(context.Background(), fullTree())
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("analysis is not idempotent (-first +second):\n%s", diff)
	}
}

func TestAnalyze_UniqueNamesPerDeclaration(t *testing.T) {
	src := `class A(models.Model):
    _name = 'x.a'

class B(models.Model):
    _name = 'x.b'

class C(models.Model):
    _name = 'x.c'

class NotAnEntity:
    pass
`
	a := NewAnalyzer(zaptest.NewLogger(t))
	entities, err := a.Analyze(context.Background(), schemas.SourceTree{"models/x.py": src})
	require.NoError(t, err)
	require.Len(t, entities, 3)

	seen := map[string]bool{}
	for _, e := range entities {
		assert.False(t, seen[e.EntityName])
		seen[e.EntityName] = true
	}
}
