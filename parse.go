package traceback

import (
	"fmt"
	"strings"
)

// chainDelimiter separates the flattened call chain segments inside an error
// header, outermost call first.
const chainDelimiter = ".."

// ErrorRecord is the structured form of one error block: the message the
// runtime printed, plus the call chain as discrete Name[Offset] frame tokens
// ordered innermost first. A record always carries at least one frame; it is
// never mutated after parseBlock returns it.
type ErrorRecord struct {
	Message string
	Frames  []string
}

// parseBlock converts one segmented block into an ErrorRecord. The flattened
// chain string is tokenized here, once; no downstream component re-tokenizes
// it. headerKeywords are leading keywords stripped from the chain as a whole,
// framePrefixes are noise prefixes stripped from individual segments when a
// chain crosses a sourced-script boundary. A header shape that does not match
// the expected format yields ErrUnparseable rather than a guessed record.
func parseBlock(block logBlock, headerKeywords, framePrefixes []string) (*ErrorRecord, error) {
	m := lineNumberRE.FindStringSubmatch(block.lineNumber)
	if m == nil {
		return nil, fmt.Errorf("%w: malformed line number %q", ErrUnparseable, block.lineNumber)
	}
	relativeLine := m[1]

	if !strings.HasPrefix(block.header, headerPrefix) {
		return nil, fmt.Errorf("%w: unrecognized header %q", ErrUnparseable, block.header)
	}
	chain := strings.TrimPrefix(block.header, headerPrefix)
	if !strings.HasSuffix(chain, ":") {
		return nil, fmt.Errorf("%w: header missing trailing colon: %q", ErrUnparseable, block.header)
	}
	chain = strings.TrimSuffix(chain, ":")
	for _, kw := range headerKeywords {
		if strings.HasPrefix(chain, kw) {
			chain = strings.TrimPrefix(chain, kw)
			break
		}
	}
	if chain == "" {
		return nil, fmt.Errorf("%w: empty call chain in header %q", ErrUnparseable, block.header)
	}

	// The innermost segment carries no offset of its own; the relative line
	// number from the block completes it.
	flattened := chain + "[" + relativeLine + "]"

	segments := strings.Split(flattened, chainDelimiter)
	frames := make([]string, 0, len(segments))
	for i := len(segments) - 1; i >= 0; i-- {
		token := stripFramePrefix(segments[i], framePrefixes)
		frames = append(frames, token)
		// A segment naming a source file was reached by direct sourcing, not
		// by a call; it ends the chain.
		if isFileToken(token) {
			break
		}
	}

	return &ErrorRecord{Message: block.message, Frames: frames}, nil
}

func stripFramePrefix(token string, framePrefixes []string) string {
	for _, p := range framePrefixes {
		if strings.HasPrefix(token, p) {
			return strings.TrimPrefix(token, p)
		}
	}
	return token
}

// isFileToken reports whether a frame token names a source file rather than a
// function. Function names never contain path separators or dots.
func isFileToken(token string) bool {
	name := token
	if m := frameTokenRE.FindStringSubmatch(token); m != nil {
		name = m[1]
	}
	return strings.ContainsAny(name, `/\.`)
}
