package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmds := rootCmd.Commands()

	// Collect subcommand names.
	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	// Verify expected subcommands are registered.
	expected := []string{"serve", "rank", "points", "stats", "search", "geocode", "explore", "export", "cache"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "gridfinder", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("source"))
}

func TestRankCommand_Flags(t *testing.T) {
	for _, name := range []string{"lat", "lng", "high-score-only", "min-score", "categories", "format"} {
		assert.NotNil(t, rankCmd.Flags().Lookup(name), "rank should have --%s flag", name)
	}
	assert.Equal(t, "all", rankCmd.Flags().Lookup("categories").DefValue)
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestExportCommand_Flags(t *testing.T) {
	assert.Equal(t, "csv", exportCmd.Flags().Lookup("format").DefValue)
	assert.NotNil(t, exportCmd.Flags().Lookup("out"))
	assert.NotNil(t, exportCmd.Flags().Lookup("top"))
}

func TestCacheCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range cacheCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"migrate", "purge"} {
		assert.True(t, names[name], "cache should have subcommand %q", name)
	}
}
