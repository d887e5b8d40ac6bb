package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStopCommand(t *testing.T) {
	t.Run("timeout flag", func(t *testing.T) {
		flag := stopCmd.Flags().Lookup("timeout")
		require.NotNil(t, flag)
		assert.Equal(t, "30", flag.DefValue)
	})

	t.Run("not running", func(t *testing.T) {
		resetGlobals(t)

		_, err := execute(t, "", "stop", "--pid-file", filepath.Join(t.TempDir(), "none.pid"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "server is not running")
	})
}
