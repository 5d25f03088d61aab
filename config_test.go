package traceback

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadConfigAtPath(t *testing.T) {
	t.Run("missing file yields defaults", func(t *testing.T) {
		cfg, err := ReadConfigAtPath(filepath.Join(t.TempDir(), "absent.toml"))
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("partial file is backfilled", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "tracebackrc")
		require.NoError(t, os.WriteFile(path, []byte(
			"MaxAdjacencyDistance = 6\n"+
				"HeaderKeywords = [\"function \", \"command line..\", \"BufRead Autocommands for \"]\n",
		), 0o644))

		cfg, err := ReadConfigAtPath(path)
		require.NoError(t, err)
		assert.Equal(t, 6, cfg.MaxAdjacencyDistance)
		assert.Len(t, cfg.HeaderKeywords, 3)
		// Everything not set falls back to the defaults.
		assert.Equal(t, DefaultConfig().FramePrefixes, cfg.FramePrefixes)
		assert.Equal(t, DefaultConfig().SkipPathPrefixes, cfg.SkipPathPrefixes)
		assert.Equal(t, DefaultConfig().HTTPListenAddr, cfg.HTTPListenAddr)
	})

	t.Run("malformed file is an error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "tracebackrc")
		require.NoError(t, os.WriteFile(path, []byte("MaxAdjacencyDistance = [not toml"), 0o644))
		_, err := ReadConfigAtPath(path)
		assert.Error(t, err)
	})
}
