package python

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseManifest(t *testing.T) {
	src := `# -*- coding: utf-8 -*-
{
    'name': "Sales Extension",
    'version': '17.0.1.0.0',
    'summary': 'Adds approval steps',
    'depends': ['base', 'sale'],
    'data': [
        'security/ir.model.access.csv',
        'views/sale_views.xml',
    ],
    'installable': True,
    'license': 'LGPL-3',
}
`
	m, err := ParseManifest(context.Background(), []byte(src))
	require.NoError(t, err)
	assert.Equal(t, Manifest{
		Name:        "Sales Extension",
		Version:     "17.0.1.0.0",
		Summary:     "Adds approval steps",
		Depends:     []string{"base", "sale"},
		Data:        []string{"security/ir.model.access.csv", "views/sale_views.xml"},
		Installable: true,
	}, m)
}

func TestParseManifest_NotInstallable(t *testing.T) {
	m, err := ParseManifest(context.Background(), []byte(`{'name': 'Old', 'installable': False}`))
	require.NoError(t, err)
	assert.False(t, m.Installable)
	assert.Equal(t, "Old", m.Name)
}

func TestParseManifest_NoDict(t *testing.T) {
	_, err := ParseManifest(context.Background(), []byte("import os\n"))
	assert.Error(t, err)
}
