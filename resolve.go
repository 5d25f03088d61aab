package traceback

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

var (
	// frameTokenRE matches a raw frame token: a function name or file path
	// followed by a bracketed line offset.
	frameTokenRE = regexp.MustCompile(`^(.+)\[(\d+)\]$`)

	// lastSetRE matches the introspection line reporting where a function was
	// defined. The trailing line number is present on some backends only.
	lastSetRE = regexp.MustCompile(`Last set from\s+(.+?)(?:\s+line\s+(\d+))?$`)

	// scriptLocalRE matches the mangling prefix the runtime applies to
	// script-local function names.
	scriptLocalRE = regexp.MustCompile(`^<SNR>\d+_`)
)

// ResolvedFrame is one navigable frame of a reconstructed stack. File and Line
// point at the source location where the call actually occurred.
type ResolvedFrame struct {
	Text string
	File string
	Line int
}

// Resolver turns raw frame tokens into source locations by combining the
// introspection service's answers with the in-function offsets recorded in
// the log.
type Resolver struct {
	Functions Introspector
	FS        FileSystem
	Logger    *zap.Logger
}

// Resolve maps a raw frame token to its source location. index is the 0-based
// position this frame will occupy among the successfully resolved frames of
// its record. The boolean result is false when the frame cannot be resolved;
// that is not an error, the frame is simply omitted from the final list.
func (r *Resolver) Resolve(token string, index int) (*ResolvedFrame, bool) {
	m := frameTokenRE.FindStringSubmatch(token)
	if m == nil {
		r.logger().Debug("frame token does not match name[offset]", zap.String("token", token))
		return nil, false
	}
	name := m[1]
	offset, _ := strconv.Atoi(m[2])

	// A file-typed token was reached by sourcing; its offset is already an
	// absolute line in that file and needs no introspection.
	if isFileToken(token) {
		if !r.FS.IsReadable(name) {
			r.logger().Debug("sourced file is not readable", zap.String("path", name))
			return nil, false
		}
		return &ResolvedFrame{File: name, Line: offset}, true
	}

	definition, err := r.Functions.Introspect(name)
	if err != nil || len(definition) < 2 {
		r.logger().Debug("introspection unavailable for function",
			zap.String("function", name), zap.Error(err))
		return nil, false
	}

	lm := lastSetRE.FindStringSubmatch(definition[1])
	if lm == nil || lm[1] == "" {
		r.logger().Debug("introspection carries no source path",
			zap.String("function", name), zap.String("line", definition[1]))
		return nil, false
	}
	path := lm[1]
	if !r.FS.IsReadable(path) {
		r.logger().Debug("source file is not readable", zap.String("path", path))
		return nil, false
	}

	var line int
	if lm[2] != "" {
		// The backend embedded the defining line; the absolute line is the
		// definition's base plus the in-function offset.
		base, _ := strconv.Atoi(lm[2])
		line = base + offset
	} else {
		// Older backends report only the path. Locate the definition by
		// scanning the file for the function's signature.
		var ok bool
		line, ok = r.scanForDefinition(path, name, offset)
		if !ok {
			return nil, false
		}
	}

	return &ResolvedFrame{
		Text: fmt.Sprintf("%d. %s", index, token),
		File: path,
		Line: line,
	}, true
}

// scanForDefinition reads path and scans from the given start index for a line
// declaring name. It returns the 1-based line of the match.
func (r *Resolver) scanForDefinition(path, name string, start int) (int, bool) {
	lines, err := r.FS.ReadLines(path)
	if err != nil {
		r.logger().Debug("reading source file failed", zap.String("path", path), zap.Error(err))
		return 0, false
	}
	re, err := definitionPattern(name)
	if err != nil {
		r.logger().Debug("building definition pattern failed",
			zap.String("function", name), zap.Error(err))
		return 0, false
	}
	if start < 0 {
		start = 0
	}
	for i := start; i < len(lines); i++ {
		if re.MatchString(lines[i]) {
			return i + 1, true
		}
	}
	r.logger().Debug("definition not found in source file",
		zap.String("function", name), zap.String("path", path))
	return 0, false
}

// definitionPattern builds the signature pattern for a function declaration.
// The declaration keyword may be abbreviated down to "fu". A script-local name
// is mangled in the log but declared with an "s:" prefix in its file, so both
// forms are accepted.
func definitionPattern(name string) (*regexp.Regexp, error) {
	alternatives := regexp.QuoteMeta(name)
	if prefix := scriptLocalRE.FindString(name); prefix != "" {
		bare := strings.TrimPrefix(name, prefix)
		alternatives = regexp.QuoteMeta(name) + `|s:` + regexp.QuoteMeta(bare)
	}
	return regexp.Compile(`^\s*fu(?:n(?:c(?:t(?:i(?:o(?:n)?)?)?)?)?)?!?\s+(?:` + alternatives + `)\b`)
}

func (r *Resolver) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}
