package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRootCmd(t *testing.T) {
	cmd := NewRootCmd()

	assert.Equal(t, "sqlshift", cmd.Use)
	assert.True(t, cmd.SilenceUsage)
	assert.True(t, cmd.SilenceErrors)

	for _, name := range []string{
		"config", "dialect", "strict-mode", "retry-count",
		"max-metrics", "scope", "rules-file", "state-path", "verbose",
	} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), "persistent flag %q should exist", name)
	}

	subs := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		subs[sub.Name()] = true
	}
	for _, name := range []string{
		"transpile", "validate", "rules", "metrics",
		"history", "dialects", "version", "completion",
	} {
		assert.True(t, subs[name], "subcommand %q should be registered", name)
	}
}

func TestRootCmdHelp(t *testing.T) {
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--help"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "sqlshift")
	assert.Contains(t, out.String(), "transpile")
}
