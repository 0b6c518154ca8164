package commands

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		importAgent, insightsAgent = "", ""
	})
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "import", "insights", "reactor"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}

func TestImportRequiresAgent(t *testing.T) {
	_, err := run(t, "import", "listings.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--agent")
}

func TestImportRequiresFile(t *testing.T) {
	_, err := run(t, "import")
	assert.Error(t, err)

	_, err = run(t, "import", "--agent", "agent-1", filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestInsightsRequiresAgent(t *testing.T) {
	_, err := run(t, "insights")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--agent")
}
