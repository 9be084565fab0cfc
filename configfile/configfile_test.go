package configfile_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/junioryono/unify"
	"github.com/junioryono/unify/configfile"
	"github.com/junioryono/unify/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const yamlDoc = `
nodeId: node-1
deploymentVersion: "1.2.3"
productionMode: true
properties:
  application.name: orders
  application.interfaces: [http, admin]
  application.commandinterface: false
  retries: 3
aliases:
  greeter: english
components:
  - name: english
    type: english
    description: English greeter
    preferred: true
    settings:
      greeting: hi
  - name: widget
    type: widget
    lifetime: transient
    settings:
      size: 7
      tags: [a, b]
      secret: s3cr3t
    hidden: [secret]
`

const hclDoc = `
node_id            = "node-1"
deployment_version = "1.2.3"
production_mode    = true

properties = {
  "application.name"             = "orders"
  "application.interfaces"       = ["http", "admin"]
  "application.commandinterface" = false
  retries                        = 3
}

aliases = {
  greeter = "english"
}

component "english" {
  type        = "english"
  description = "English greeter"
  preferred   = true
  settings = {
    greeting = "hi"
  }
}

component "widget" {
  type     = "widget"
  lifetime = "transient"
  hidden   = ["secret"]
  settings = {
    size   = 7
    tags   = ["a", "b"]
    secret = "s3cr3t"
  }
}
`

func TestLoad_Formats(t *testing.T) {
	tests := []struct {
		name string
		load func() (*configfile.Document, error)
	}{
		{"yaml", func() (*configfile.Document, error) { return configfile.LoadYAML(strings.NewReader(yamlDoc)) }},
		{"hcl", func() (*configfile.Document, error) { return configfile.LoadHCL([]byte(hclDoc), "app.hcl") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := tt.load()
			require.NoError(t, err)

			cfg, err := doc.Config(testutil.Types(t))
			require.NoError(t, err)

			assert.Equal(t, "node-1", cfg.NodeID())
			assert.Equal(t, "1.2.3", cfg.DeploymentVersion())
			assert.True(t, cfg.ProductionMode())
			assert.False(t, cfg.ClusterMode())

			assert.Equal(t, "orders", cfg.StringProperty(unify.PropertyApplicationName))
			assert.Equal(t, []string{"http", "admin"}, cfg.StringsProperty(unify.PropertyInterfaces))
			assert.False(t, cfg.BoolProperty(unify.PropertyCommandInterface))
			assert.Equal(t, "3", cfg.StringProperty("retries"))
			assert.Equal(t, map[string]string{"greeter": "english"}, cfg.Aliases())

			byName := make(map[string]unify.Descriptor)
			for _, d := range cfg.Descriptors() {
				byName[d.Name] = d
			}
			require.Len(t, byName, 2)

			english := byName["english"]
			assert.True(t, english.Preferred)
			assert.Equal(t, "English greeter", english.Description)
			assert.Equal(t, unify.Singleton, english.Lifetime)

			widget := byName["widget"]
			assert.Equal(t, unify.Transient, widget.Lifetime)
			assert.Equal(t, []string{"7"}, widget.Settings["size"].Values)
			assert.Equal(t, []string{"a", "b"}, widget.Settings["tags"].Values)
			assert.True(t, widget.Settings["secret"].Hidden)
			assert.False(t, widget.Settings["size"].Hidden)
		})
	}
}

func TestLoad_StartsContainer(t *testing.T) {
	doc, err := configfile.LoadYAML(strings.NewReader(yamlDoc))
	require.NoError(t, err)
	delete(doc.Properties, unify.PropertyInterfaces)

	cfg, err := doc.Config(testutil.Types(t))
	require.NoError(t, err)

	c := testutil.Start(t, cfg)

	g := testutil.Get[testutil.Greeter](t, c, "greeter")
	assert.Equal(t, "hi bob", g.Greet("bob"))

	w := testutil.Get[*testutil.Widget](t, c, "widget")
	assert.Equal(t, 7, w.Size)
	assert.Equal(t, []string{"a", "b"}, w.Tags)
	assert.Equal(t, "s3cr3t", w.Secret)
}

func TestLoadYAML_Errors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{"unknown field", "nodeID: x\n", "nodeID"},
		{"missing type", "components:\n  - name: a\n", "components[0].type is required"},
		{"missing name", "components:\n  - type: widget\n", "components[0].name is required"},
		{"bad lifetime", "components:\n  - name: a\n    type: widget\n    lifetime: forever\n", "lifetime must be one of"},
		{"cluster without node id", "clusterMode: true\n", "nodeId is required"},
		{"nested setting", "components:\n  - name: a\n    type: widget\n    settings:\n      size: {x: 1}\n", "scalar or a list"},
		{"nested list setting", "components:\n  - name: a\n    type: widget\n    settings:\n      tags: [[a]]\n", "must be scalars"},
		{"empty alias target", "aliases:\n  greeter: \"\"\n", "aliases[greeter] is required"},
		{"malformed", "components: [", "decode yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := configfile.LoadYAML(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("empty document", func(t *testing.T) {
		doc, err := configfile.LoadYAML(strings.NewReader(""))
		require.NoError(t, err)
		assert.Empty(t, doc.Components)
	})
}

func TestLoadHCL_Errors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{"syntax", `component "a" {`, "parse"},
		{"missing type", `component "a" {}`, "decode"},
		{"unknown attribute", `colour = "red"`, "decode"},
		{"properties not an object", `properties = "x"`, "expected an object"},
		{"nested property", `properties = { a = { b = 1 } }`, `property "a"`},
		{"nested setting", "component \"a\" {\n  type = \"widget\"\n  settings = { size = [[1]] }\n}", `setting "size"`},
		{"bad lifetime", "component \"a\" {\n  type = \"widget\"\n  lifetime = \"forever\"\n}", "lifetime must be one of"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := configfile.LoadHCL([]byte(tt.doc), "bad.hcl")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDocument_Apply(t *testing.T) {
	tests := []struct {
		name    string
		doc     configfile.Document
		wantErr string
	}{
		{
			name:    "unknown type",
			doc:     configfile.Document{Components: []configfile.Component{{Name: "a", Type: "nothing"}}},
			wantErr: `unknown type "nothing"`,
		},
		{
			name:    "capability type",
			doc:     configfile.Document{Components: []configfile.Component{{Name: "a", Type: "greeter"}}},
			wantErr: "capability",
		},
		{
			name: "hidden setting without a value",
			doc: configfile.Document{Components: []configfile.Component{
				{Name: "a", Type: "widget", Hidden: []string{"secret"}},
			}},
			wantErr: `hidden setting "secret"`,
		},
		{
			name:    "unsupported property value",
			doc:     configfile.Document{Properties: map[string]any{"x": map[string]any{"y": 1}}},
			wantErr: `property "x"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.doc.Config(testutil.Types(t))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("requires a type registry", func(t *testing.T) {
		var doc configfile.Document
		_, err := doc.Config(nil)
		assert.Error(t, err)
	})
}

func TestLoad_Files(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		return path
	}

	base := write("base.yaml", yamlDoc)
	override := write("override.hcl", `
component "english" {
  type      = "french"
  overwrite = true
}
`)
	conflict := write("conflict.yml", "components:\n  - name: widget\n    type: english\n")

	t.Run("later files overwrite marked components", func(t *testing.T) {
		cfg, err := configfile.Load(testutil.Types(t), base, override)
		require.NoError(t, err)
		assert.Empty(t, cfg.Conflicts())

		for _, d := range cfg.Descriptors() {
			if d.Name == "english" {
				assert.Equal(t, "FrenchGreeter", d.Type.Name())
			}
		}
	})

	t.Run("unmarked duplicates are conflicts", func(t *testing.T) {
		cfg, err := configfile.Load(testutil.Types(t), base, conflict)
		require.NoError(t, err)
		require.Len(t, cfg.Conflicts(), 1)
		assert.Equal(t, "widget", cfg.Conflicts()[0].Name)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		_, err := configfile.LoadFile(write("app.toml", ""))
		assert.ErrorContains(t, err, "unsupported file extension")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := configfile.LoadFile(filepath.Join(dir, "missing.yaml"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}
