package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeScenario writes content next to an empty program file and returns
// the scenario path.
func writeScenario(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "program.cue"), []byte(`name: "p"`), 0644))
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/hot_cold.yaml")
	require.NoError(t, err)

	assert.Equal(t, "hot_cold", scenario.Name)
	assert.Equal(t, filepath.Join("testdata", "programs", "hot-cold.cue"), scenario.Program,
		"program path resolves against the scenario directory")
	require.Len(t, scenario.Triggers, 1)
	assert.Equal(t, "start", scenario.Triggers[0].Type)
	require.Len(t, scenario.Assertions, 4)
	assert.Equal(t, AssertTraceExact, scenario.Assertions[0].Type)
	assert.Equal(t, []string{"start", "hot", "cold", "hot", "cold", "hot", "cold"}, scenario.Assertions[0].Events)
}

func TestLoadScenario_TriggerData(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/restricted.yaml")
	require.NoError(t, err)

	require.Len(t, scenario.Triggers, 2)
	assert.Equal(t, "RESTRICTED_EVENT", scenario.Triggers[0].ExpectError)
	assert.Equal(t, map[string]any{"by": "scenario", "attempt": 1}, scenario.Triggers[1].Data)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_ProgramNotFound(t *testing.T) {
	path := writeScenario(t, `
name: test
program: missing.cue
assertions:
  - type: trace_exact
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "program not found")
}

func TestLoadScenario_AbsoluteProgramKept(t *testing.T) {
	abs, err := filepath.Abs("testdata/programs/hot-cold.cue")
	require.NoError(t, err)
	path := writeScenario(t, `
name: test
program: `+abs+`
assertions:
  - type: trace_exact
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, abs, scenario.Program)
}

func TestParseScenario_UnknownField(t *testing.T) {
	_, err := ParseScenario([]byte(`
name: test
program: p.cue
assertion:
  - type: trace_exact
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name: "missing name",
			content: `
program: p.cue
assertions: [{type: trace_exact}]
`,
			want: "name is required",
		},
		{
			name: "missing program",
			content: `
name: t
assertions: [{type: trace_exact}]
`,
			want: "program is required",
		},
		{
			name: "no assertions",
			content: `
name: t
program: p.cue
`,
			want: "assertions list is required",
		},
		{
			name: "negative max steps",
			content: `
name: t
program: p.cue
max_steps: -1
assertions: [{type: trace_exact}]
`,
			want: "max_steps must be non-negative",
		},
		{
			name: "unknown strategy",
			content: `
name: t
program: p.cue
strategy: fastest
assertions: [{type: trace_exact}]
`,
			want: "unknown strategy",
		},
		{
			name: "trigger without type",
			content: `
name: t
program: p.cue
triggers: [{data: 1}]
assertions: [{type: trace_exact}]
`,
			want: "triggers[0]: type is required",
		},
		{
			name: "float trigger data",
			content: `
name: t
program: p.cue
triggers: [{type: temp, data: 36.6}]
assertions: [{type: trace_exact}]
`,
			want: "floats are forbidden",
		},
		{
			name: "unknown expect_error",
			content: `
name: t
program: p.cue
triggers: [{type: a, expect_error: BOOM}]
assertions: [{type: trace_exact}]
`,
			want: `unknown expect_error "BOOM"`,
		},
		{
			name: "unknown assertion type",
			content: `
name: t
program: p.cue
assertions: [{type: final_state}]
`,
			want: `unknown assertion type "final_state"`,
		},
		{
			name: "trace_order without events",
			content: `
name: t
program: p.cue
assertions: [{type: trace_order}]
`,
			want: "events list is required for trace_order",
		},
		{
			name: "trace_count without event",
			content: `
name: t
program: p.cue
assertions: [{type: trace_count, count: 1}]
`,
			want: "event is required for trace_count",
		},
		{
			name: "trace_count negative",
			content: `
name: t
program: p.cue
assertions: [{type: trace_count, event: a, count: -1}]
`,
			want: "count must be non-negative",
		},
		{
			name: "trace_contains without event",
			content: `
name: t
program: p.cue
assertions: [{type: trace_contains}]
`,
			want: "event is required for trace_contains",
		},
		{
			name: "pending without strand",
			content: `
name: t
program: p.cue
assertions: [{type: pending}]
`,
			want: "strand is required for pending",
		},
		{
			name: "terminated without strand",
			content: `
name: t
program: p.cue
assertions: [{type: terminated}]
`,
			want: "strand is required for terminated",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseScenario_EmptyTraceExactAllowed(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: quiet
program: p.cue
assertions:
  - type: trace_exact
    events: []
`))
	require.NoError(t, err)
	assert.Empty(t, scenario.Triggers)
}

func TestParseScenario_SeedPresence(t *testing.T) {
	body := `
name: seeded
program: p.cue
assertions:
  - type: trace_count
    event: go
    count: 1
`
	unset, err := ParseScenario([]byte(body))
	require.NoError(t, err)
	assert.Nil(t, unset.Seed)

	zero, err := ParseScenario([]byte(body + "seed: 0\n"))
	require.NoError(t, err)
	require.NotNil(t, zero.Seed)
	assert.Equal(t, int64(0), *zero.Seed)
}
