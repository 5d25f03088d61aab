package traceback

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

// Mark: - LogSource implementations

// FileLogSource serves the diagnostic history from a log file, typically
// captured with `:redir > file | silent messages | redir END`.
type FileLogSource struct {
	Path string
}

func (s FileLogSource) Messages() (string, error) {
	b, err := os.ReadFile(s.Path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// StringLogSource serves a fixed log snapshot. This type is intended for
// testing purposes.
type StringLogSource string

func (s StringLogSource) Messages() (string, error) {
	return string(s), nil
}

// Mark: - FileSystem implementation

// OSFileSystem implements FileSystem on the host filesystem.
type OSFileSystem struct{}

func (OSFileSystem) IsReadable(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	_ = f.Close()
	return true
}

func (OSFileSystem) ReadLines(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return strings.Split(strings.TrimSuffix(string(b), "\n"), "\n"), nil
}

// Mark: - Introspector implementations

// dumpSignatureRE matches the first line of a function listing in a
// `:verbose function` dump.
var dumpSignatureRE = regexp.MustCompile(`^fu(?:n(?:c(?:t(?:i(?:o(?:n)?)?)?)?)?)?!?\s+([^ (]+)\(`)

// DumpIntrospector serves introspection answers from a dump of the runtime's
// own `:verbose function` output, captured the same way as the message log.
// Each listing starts with the function's signature, followed by the
// "Last set from" attribution line, and ends with "endfunction".
type DumpIntrospector struct {
	defs map[string][]string
}

// ParseFunctionDump reads a `:verbose function` dump from r.
func ParseFunctionDump(r io.Reader) (*DumpIntrospector, error) {
	defs := map[string][]string{}
	current := ""

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if current == "" {
			if m := dumpSignatureRE.FindStringSubmatch(line); m != nil {
				current = m[1]
				defs[current] = []string{line}
			}
			continue
		}
		defs[current] = append(defs[current], line)
		if line == "endfunction" {
			current = ""
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return &DumpIntrospector{defs: defs}, nil
}

func (d *DumpIntrospector) Introspect(name string) ([]string, error) {
	def, ok := d.defs[name]
	if !ok {
		return nil, fmt.Errorf("unknown function %q", name)
	}
	return def, nil
}

// NopIntrospector knows no functions. With it, only message rows and sourced
// file frames make it into the entry list.
type NopIntrospector struct{}

func (NopIntrospector) Introspect(string) ([]string, error) {
	return nil, nil
}

// Mark: - Sink implementation

// WriterSink renders entries to w in grep format, one row per line. Navigable
// rows print as "file:line: text"; message rows print bare.
type WriterSink struct {
	W io.Writer
}

func (s WriterSink) Display(list EntryList) error {
	for _, it := range list.Items {
		var err error
		if it.File == "" {
			_, err = fmt.Fprintln(s.W, it.Text)
		} else {
			_, err = fmt.Fprintf(s.W, "%s:%d: %s\n", it.File, it.Line, it.Text)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
