package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Success(map[string]string{"sql": "SELECT 1"}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, map[string]any{"sql": "SELECT 1"}, resp.Data)
	assert.Nil(t, resp.Error)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Error("E005", "schemas directory not found", []string{"x"}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E005", resp.Error.Code)
	assert.Equal(t, "schemas directory not found", resp.Error.Message)
	assert.Equal(t, []any{"x"}, resp.Error.Details)
}

func TestOutputFormatter_TextError(t *testing.T) {
	tests := []struct {
		name        string
		verbose     bool
		wantDetails bool
	}{
		{"quiet", false, false},
		{"verbose", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{Format: "text", Writer: buf, Verbose: tt.verbose}

			require.NoError(t, formatter.Error("E008", "unknown field", "users.email"))
			assert.Contains(t, buf.String(), "Error [E008]: unknown field")
			if tt.wantDetails {
				assert.Contains(t, buf.String(), "Details: users.email")
			} else {
				assert.NotContains(t, buf.String(), "Details:")
			}
		})
	}
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		buf := &bytes.Buffer{}
		formatter := &OutputFormatter{Format: "text", Writer: buf}
		formatter.VerboseLog("Validating table: %s", "users")
		assert.Empty(t, buf.String())
	})

	t.Run("falls back to writer", func(t *testing.T) {
		buf := &bytes.Buffer{}
		formatter := &OutputFormatter{Format: "text", Writer: buf, Verbose: true}
		formatter.VerboseLog("Validating table: %s", "users")
		assert.Equal(t, "Validating table: users\n", buf.String())
	})

	t.Run("json goes to err writer", func(t *testing.T) {
		out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
		formatter := &OutputFormatter{Format: "json", Writer: out, ErrWriter: errOut, Verbose: true}
		formatter.VerboseLog("Validating table: %s", "users")
		assert.Empty(t, out.String())
		assert.Equal(t, "Validating table: users\n", errOut.String())
	})
}

func TestGetExitCode(t *testing.T) {
	base := errors.New("boom")

	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(base))
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad path")))
	assert.Equal(t, ExitCommandError, GetExitCode(fmt.Errorf("wrapped: %w", NewExitError(ExitCommandError, "bad path"))))

	wrapped := WrapExitError(ExitFailure, "render failed", base)
	assert.Equal(t, "render failed: boom", wrapped.Error())
	assert.ErrorIs(t, wrapped, base)
	assert.Equal(t, "bad path", NewExitError(ExitCommandError, "bad path").Error())
}
