package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qcase/internal/ir"
)

var (
	testSchemas   = filepath.Join("..", "..", "testdata", "schemas")
	testScenarios = filepath.Join("..", "..", "testdata", "scenarios")
	testInvalid   = filepath.Join("..", "..", "testdata", "invalid")
)

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "qcase", cmd.Use)
	assert.Contains(t, cmd.Long, "allow-list")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"validate", "render", "fetch", "test"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "", configFlag.DefValue)
}

func TestQueryCommandFlags(t *testing.T) {
	for _, name := range []string{"render", "fetch"} {
		t.Run(name, func(t *testing.T) {
			cmd, _, err := NewRootCommand().Find([]string{name})
			require.NoError(t, err)
			for _, flag := range []string{"table", "model", "request", "assocs"} {
				assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %s", flag)
			}
		})
	}

	fetchCmd, _, err := NewRootCommand().Find([]string{"fetch"})
	require.NoError(t, err)
	for _, flag := range []string{"driver", "dsn", "start", "limit"} {
		assert.NotNil(t, fetchCmd.Flags().Lookup(flag), "flag %s", flag)
	}
}

func TestRootCommand_InvalidFormat(t *testing.T) {
	_, err := execute(t, "--format", "xml", "validate", testSchemas)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), `invalid format "xml"`)
}

func TestRootCommand_ConfigSchemasDir(t *testing.T) {
	abs, err := filepath.Abs(testSchemas)
	require.NoError(t, err)

	cfgPath := filepath.Join(t.TempDir(), "qcase.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("schemas_dir: "+abs+"\n"), 0644))

	out, err := execute(t, "--config", cfgPath, "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ All schemas valid (3 tables, 1 models)")
}

func TestRootCommand_BadConfig(t *testing.T) {
	_, err := execute(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "validate", testSchemas)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load config")
}

func TestRootCommand_Version(t *testing.T) {
	out, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, "qcase version "+ir.Version+"\n", out)
}
