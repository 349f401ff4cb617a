package kernel

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadManifest(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []PluginDescriptor
		wantErr error
	}{
		{
			name:    "names",
			content: "- security\n- twig\n",
			want:    []PluginDescriptor{{Name: "security"}, {Name: "twig"}},
		},
		{
			name:    "maps with options",
			content: "- name: security\n  options:\n    firewall: main\n",
			want:    []PluginDescriptor{{Name: "security", Options: map[string]any{"firewall": "main"}}},
		},
		{
			name:    "empty list",
			content: "[]\n",
			want:    []PluginDescriptor{},
		},
		{name: "empty document", content: "", wantErr: ErrManifestFormat},
		{name: "map document", content: "security: true\n", wantErr: ErrManifestFormat},
		{name: "scalar document", content: "security\n", wantErr: ErrManifestFormat},
		{name: "entry without name", content: "- options: {}\n", wantErr: ErrManifestFormat},
		{name: "numeric entry", content: "- 42\n", wantErr: ErrManifestFormat},
		{name: "options not a map", content: "- name: twig\n  options: [1]\n", wantErr: ErrManifestFormat},
		{name: "invalid yaml", content: "- [unclosed\n", wantErr: ErrManifestFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeTree(t, map[string]string{ManifestFile: tt.content})
			got, err := LoadManifest(filepath.Join(dir, ManifestFile))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPluginRegistry(t *testing.T) {
	r := NewPluginRegistry()
	assert.Equal(t, []string{FrameworkPluginName}, r.Names())

	r.Register("twig", NewOptionsPlugin)
	assert.Equal(t, []string{FrameworkPluginName, "twig"}, r.Names())

	plugins, err := r.Build([]PluginDescriptor{{Name: FrameworkPluginName}, {Name: "twig", Options: map[string]any{"strict": true}}})
	require.NoError(t, err)
	require.Len(t, plugins, 2)

	c := NewContainer()
	for _, p := range plugins {
		require.NoError(t, p.Boot(c))
	}
	strict, ok := c.Parameter("twig.strict")
	assert.True(t, ok)
	assert.Equal(t, true, strict)
	_, ok = c.Service("framework")
	assert.True(t, ok)
}

func TestContainer_Reset(t *testing.T) {
	c := NewContainer()
	c.SetParameter("locale", "en")
	c.SetService("mailer", struct{}{})
	c.MergeExtension("twig", map[string]any{"a": 1})
	c.MergeExtension("twig", map[string]any{"b": 2})

	var r Resettable = c
	r.Reset()

	_, ok := c.Service("mailer")
	assert.False(t, ok)
	locale, ok := c.Parameter("locale")
	assert.True(t, ok)
	assert.Equal(t, "en", locale)
	ext, ok := c.Extension("twig")
	require.True(t, ok)
	assert.Equal(t, map[string]any{"a": 1, "b": 2}, ext)
}

func TestYAMLLoader_ImportCycle(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"a.yml": "imports: [b.yml]\nparameters: {from_a: true}\n",
		"b.yml": "imports: [{resource: a.yml}]\nparameters: {from_b: true}\n",
	})

	c := NewContainer()
	require.NoError(t, NewYAMLLoader(c, nil).Load(filepath.Join(dir, "a.yml")))

	_, ok := c.Parameter("from_a")
	assert.True(t, ok)
	_, ok = c.Parameter("from_b")
	assert.True(t, ok)
}

func TestYAMLLoader_Errors(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"bad_params.yml":  "parameters: [1, 2]\n",
		"bad_imports.yml": "imports: nope\n",
		"bad_section.yml": "twig: 3\n",
	})

	for _, name := range []string{"bad_params.yml", "bad_imports.yml", "bad_section.yml", "missing.yml"} {
		t.Run(name, func(t *testing.T) {
			err := NewYAMLLoader(NewContainer(), nil).Load(filepath.Join(dir, name))
			assert.Error(t, err)
		})
	}
}
