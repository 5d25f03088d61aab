package traceback

import (
	"regexp"
	"strings"
)

// headerPrefix starts every line with which the runtime announces an error in
// its message log. The remainder of the line carries the flattened call chain,
// terminated by a colon.
const headerPrefix = "Error detected while processing "

// lineNumberRE matches the second line of an error block, which carries the
// line number relative to the innermost function's body.
var lineNumberRE = regexp.MustCompile(`^line\s+(\d+)`)

// logBlock is one three-line error occurrence isolated from the log.
type logBlock struct {
	header     string
	lineNumber string
	message    string
}

// splitLogLines breaks the raw log into its non-empty lines. The log source is
// known to emit spurious blank lines, so runs of them are dropped outright.
func splitLogLines(raw string) []string {
	var lines []string
	for _, l := range strings.Split(raw, "\n") {
		if strings.TrimSpace(l) == "" {
			continue
		}
		lines = append(lines, l)
	}
	return lines
}

// segmentLog scans the log tail backwards and isolates the blocks belonging to
// the most recent error, or to a tight run of adjacent errors. Scanning stops
// once more than maxAdjacencyDistance lines have passed since the last header
// found; anything further back is unrelated history. Blocks are returned in
// chronological order.
func segmentLog(raw string, maxAdjacencyDistance int, skipPathPrefixes []string) []logBlock {
	lines := splitLogLines(raw)
	if len(lines) < 3 {
		return nil
	}

	var blocks []logBlock
	lastHeader := -1
	for i := len(lines) - 3; i >= 0; i-- {
		if lastHeader >= 0 && lastHeader-i > maxAdjacencyDistance {
			break
		}
		if !isHeaderLine(lines[i], skipPathPrefixes) {
			continue
		}
		if !lineNumberRE.MatchString(lines[i+1]) {
			continue
		}
		blocks = append(blocks, logBlock{
			header:     lines[i],
			lineNumber: lines[i+1],
			message:    lines[i+2],
		})
		lastHeader = i
	}

	// The scan found them newest-first; consumers present errors in the order
	// they occurred.
	for l, r := 0, len(blocks)-1; l < r; l, r = l+1, r-1 {
		blocks[l], blocks[r] = blocks[r], blocks[l]
	}
	return blocks
}

// isHeaderLine reports whether line announces an error whose context can be
// resolved to real source. Headers referencing a process file descriptor
// pseudo-path are skipped; they would only produce dead entries.
func isHeaderLine(line string, skipPathPrefixes []string) bool {
	if !strings.HasPrefix(line, headerPrefix) {
		return false
	}
	for _, p := range skipPathPrefixes {
		if strings.Contains(line, p) {
			return false
		}
	}
	return true
}
