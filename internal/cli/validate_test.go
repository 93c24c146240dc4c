package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateValidProgram(t *testing.T) {
	out, _, err := execute(t, "validate", "testdata/programs/hot-cold.cue")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Program hot-cold valid (3 strands)")
}

func TestValidateValidProgramJSON(t *testing.T) {
	out, _, err := execute(t, "--format", "json", "validate", "testdata/programs/hot-cold.cue")
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, "hot-cold", resp.Data.Program)
	assert.Equal(t, 3, resp.Data.Strands)
}

func TestValidateWarningsDoNotFail(t *testing.T) {
	out, _, err := execute(t, "validate", "testdata/programs/warn.cue")
	require.NoError(t, err)
	assert.Contains(t, out, "warning E203: strand.idle.rules[0].waitFor[0]")
	assert.Contains(t, out, "✓ Program warn valid")
}

func TestValidateErrors(t *testing.T) {
	out, _, err := execute(t, "validate", "testdata/programs/invalid.cue")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "validation failed with 3 error(s)")

	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, "E205: strategy")
	assert.Contains(t, out, "E202: strand.idle.rules")
	assert.Contains(t, out, "E204: strand.noType.rules[0].request[0].type")
}

func TestValidateErrorsJSON(t *testing.T) {
	out, _, err := execute(t, "--format", "json", "validate", "testdata/programs/invalid.cue")
	require.Error(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
		Error  *CLIError        `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	require.Len(t, resp.Data.Errors, 3)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E205", resp.Error.Code)
}

func TestValidateLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		path string
		code string
	}{
		{"missing file", "testdata/programs/nope.cue", ErrCodeNotFound},
		{"syntax error", "testdata/programs/broken.cue", ErrCodeLoadFailed},
		{"not a program", "testdata/programs/nameless.cue", ErrCodeBuildFailed},
		{"empty directory", t.TempDir(), ErrCodeNoFiles},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(t, "validate", tt.path)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.code)
			assert.Contains(t, out, "Error ["+tt.code+"]")
		})
	}
}

func TestValidateRequiresOneArg(t *testing.T) {
	_, _, err := execute(t, "validate")
	require.Error(t, err)
}
