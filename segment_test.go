package traceback

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func segmentWithDefaults(raw string, distance int) []logBlock {
	return segmentLog(raw, distance, defaultConfig.SkipPathPrefixes)
}

func TestSegmentLog(t *testing.T) {
	t.Run("fewer than three lines", func(t *testing.T) {
		assert.Empty(t, segmentWithDefaults("", 3))
		assert.Empty(t, segmentWithDefaults("one line", 3))
		assert.Empty(t, segmentWithDefaults("one\ntwo", 3))
	})

	t.Run("blank line runs are dropped", func(t *testing.T) {
		raw := "\n\nError detected while processing function Foo:\n\n\nline 4:\n\nE121: nope\n\n"
		blocks := segmentWithDefaults(raw, 3)
		require.Len(t, blocks, 1)
		assert.Equal(t, "line 4:", blocks[0].lineNumber)
		assert.Equal(t, "E121: nope", blocks[0].message)
	})

	t.Run("single block", func(t *testing.T) {
		raw := strings.Join([]string{
			"older unrelated message",
			"Error detected while processing function Foo:",
			"line    7:",
			"E712: something broke",
		}, "\n")
		blocks := segmentWithDefaults(raw, 3)
		require.Len(t, blocks, 1)
		assert.Equal(t, "Error detected while processing function Foo:", blocks[0].header)
	})

	t.Run("pseudo file descriptor headers are skipped", func(t *testing.T) {
		raw := strings.Join([]string{
			"Error detected while processing /proc/self/fd/22:",
			"line 1:",
			"E484: cannot open",
		}, "\n")
		assert.Empty(t, segmentWithDefaults(raw, 3))

		raw = strings.Join([]string{
			"Error detected while processing /dev/fd/63:",
			"line 1:",
			"E484: cannot open",
		}, "\n")
		assert.Empty(t, segmentWithDefaults(raw, 3))
	})

	t.Run("header requires a line number successor", func(t *testing.T) {
		raw := strings.Join([]string{
			"Error detected while processing function Foo:",
			"not a line number",
			"E000: whatever",
		}, "\n")
		assert.Empty(t, segmentWithDefaults(raw, 3))
	})

	t.Run("adjacent blocks are both included, chronologically", func(t *testing.T) {
		raw := strings.Join([]string{
			"Error detected while processing function Old:",
			"line 1:",
			"E100: first",
			"Error detected while processing function New:",
			"line 2:",
			"E200: second",
		}, "\n")
		blocks := segmentWithDefaults(raw, 3)
		require.Len(t, blocks, 2)
		assert.Contains(t, blocks[0].header, "Old")
		assert.Contains(t, blocks[1].header, "New")
	})

	t.Run("distant earlier block stops the scan", func(t *testing.T) {
		raw := strings.Join([]string{
			"Error detected while processing function Old:",
			"line 1:",
			"E100: first",
			"some unrelated output",
			"more unrelated output",
			"Error detected while processing function New:",
			"line 2:",
			"E200: second",
		}, "\n")
		blocks := segmentWithDefaults(raw, 3)
		require.Len(t, blocks, 1)
		assert.Contains(t, blocks[0].header, "New")

		// A wider adjacency window reaches the earlier block again.
		blocks = segmentWithDefaults(raw, 5)
		require.Len(t, blocks, 2)
		assert.Contains(t, blocks[0].header, "Old")
	})
}
