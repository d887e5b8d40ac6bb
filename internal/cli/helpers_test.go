package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

// resetGlobals clears flag-backed globals so commands run in isolation.
func resetGlobals(t *testing.T) {
	t.Helper()

	reset := func() {
		cfgFile = ""
		logLevel = ""
		pidFile = ""
		checkPrefixes = nil
		checkBaseDir = ""
		stopTimeout = 30
		resetFlags(rootCmd)
	}
	reset()
	t.Cleanup(reset)
}

// resetFlags restores every flag in the command tree to its default and
// clears its changed state, including cobra's lazily added help flag.
func resetFlags(cmd *cobra.Command) {
	restore := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(restore)
	cmd.PersistentFlags().VisitAll(restore)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

// execute runs the root command with args and returns its output.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	cmd := GetRootCmd()
	output := &bytes.Buffer{}
	cmd.SetOut(output)
	cmd.SetErr(output)
	cmd.SetIn(bytes.NewBufferString(stdin))
	cmd.SetArgs(args)
	t.Cleanup(func() {
		cmd.SetOut(nil)
		cmd.SetErr(nil)
		cmd.SetIn(nil)
		cmd.SetArgs(nil)
	})

	err := cmd.Execute()
	return output.String(), err
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "logstream.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}
