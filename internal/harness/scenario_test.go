package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/post_comments.yaml")
	require.NoError(t, err)

	assert.Equal(t, "post_comments", s.Name)
	assert.Equal(t, filepath.Join("testdata", "scenarios", "..", "schemas"), s.Schema)
	assert.Equal(t, "c", s.IDPrefix)
	assert.Len(t, s.Setup, 4)
	require.Len(t, s.Steps, 3)

	assert.Equal(t, KindRead, s.Steps[0].Kind())
	assert.Equal(t, "pub", s.Steps[0].Request["state"])
	require.NotNil(t, s.Steps[0].Expect.RowCount)
	assert.Equal(t, 2, *s.Steps[0].Expect.RowCount)

	assert.Equal(t, KindWrite, s.Steps[1].Kind())
	assert.Nil(t, s.Steps[1].Expect)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_AbsoluteSchemaKept(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "s.yaml")
	content := "name: s\ndescription: d\nschema: /abs/schemas\nsteps:\n  - table: posts\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "/abs/schemas", s.Schema)
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "unknown field",
			yaml: "name: s\ndescription: d\nstep: []\n",
			want: "failed to parse YAML",
		},
		{
			name: "missing name",
			yaml: "description: d\nsteps:\n  - table: t\n",
			want: "name is required",
		},
		{
			name: "missing description",
			yaml: "name: s\nsteps:\n  - table: t\n",
			want: "description is required",
		},
		{
			name: "no steps",
			yaml: "name: s\ndescription: d\n",
			want: "steps list is required",
		},
		{
			name: "no table",
			yaml: "name: s\ndescription: d\nsteps:\n  - request: {id: 1}\n",
			want: "steps[0]: table or model is required",
		},
		{
			name: "write and delete",
			yaml: "name: s\ndescription: d\nsteps:\n  - table: t\n    write: {id: 1}\n    delete: [1]\n",
			want: "mutually exclusive",
		},
		{
			name: "request on write",
			yaml: "name: s\ndescription: d\nsteps:\n  - table: t\n    write: {id: 1}\n    request: {id: 1}\n",
			want: "request is only allowed on reads",
		},
		{
			name: "empty delete",
			yaml: "name: s\ndescription: d\nsteps:\n  - table: t\n    delete: []\n",
			want: "delete needs at least one key",
		},
		{
			name: "sql on write",
			yaml: "name: s\ndescription: d\nsteps:\n  - table: t\n    write: {id: 1}\n    expect: {sql: SELECT 1}\n",
			want: "only error may be expected from a write",
		},
		{
			name: "negative row count",
			yaml: "name: s\ndescription: d\nsteps:\n  - table: t\n    expect: {row_count: -1}\n",
			want: "row_count must be non-negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestStepKind(t *testing.T) {
	assert.Equal(t, KindRead, Step{Table: "t"}.Kind())
	assert.Equal(t, KindRead, Step{Table: "t", Request: map[string]any{}}.Kind())
	assert.Equal(t, KindWrite, Step{Table: "t", Write: map[string]any{}}.Kind())
	assert.Equal(t, KindDelete, Step{Table: "t", Delete: []any{"p1"}}.Kind())
}
