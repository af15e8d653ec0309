package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"report", "runs", "serve"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "invest-cli", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestReportCommand_Flags(t *testing.T) {
	require.NotNil(t, reportCmd.Flags().Lookup("url"))
	require.NotNil(t, reportCmd.Flags().Lookup("principal-uf"))
	require.NotNil(t, reportCmd.Flags().Lookup("rent-clp"))
}

func TestRunsCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range runsCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["list"])
	assert.True(t, names["show"])
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag)
	assert.Equal(t, "0", flag.DefValue)
}
