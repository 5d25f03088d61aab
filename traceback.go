// Package traceback reconstructs navigable call-stack traces from the flat
// error log a Vim-like runtime appends to when something fails inside nested
// function calls. The log records each error as three text lines with the call
// chain flattened into a single delimited string; this package locates the
// most recent error, parses the chain back into discrete frames, resolves each
// frame to the file and absolute line where the call occurred, and hands an
// ordered entry list to a presentation sink.
package traceback

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultTitle is the title given to the entry list handed to the sink.
const DefaultTitle = "Stack trace"

// LogSource provides the runtime's full diagnostic message history as one
// newline-delimited string, most recent message last.
type LogSource interface {
	Messages() (string, error)
}

// Introspector reports how a named function was defined. The returned listing
// mirrors the runtime's own output: the signature first, then a line of the
// form "Last set from <path>" with an optional " line <n>" suffix. An unknown
// name yields an empty listing or an error.
type Introspector interface {
	Introspect(name string) ([]string, error)
}

// FileSystem is the minimal filesystem surface the resolver needs: a
// readability probe and a line reader for the pattern-scan fallback.
type FileSystem interface {
	IsReadable(path string) bool
	ReadLines(path string) ([]string, error)
}

// Sink accepts the final entry list, replacing whatever it displayed before.
type Sink interface {
	Display(list EntryList) error
}

// Tracer runs the reconstruction pipeline: segment the log, parse each block,
// resolve the frames, and hand the entries to the sink. It holds no state
// between invocations; every call to Trace works from a fresh log snapshot and
// fresh introspection answers.
type Tracer struct {
	Log       LogSource
	Functions Introspector
	FS        FileSystem
	Sink      Sink
	Logger    *zap.Logger
	Config    Config
}

// NewTracer returns a Tracer wired to the given collaborators, with a no-op
// logger and the default configuration.
func NewTracer(log LogSource, functions Introspector, fs FileSystem, sink Sink) *Tracer {
	return &Tracer{
		Log:       log,
		Functions: functions,
		FS:        fs,
		Sink:      sink,
		Logger:    zap.NewNop(),
		Config:    DefaultConfig(),
	}
}

// Trace runs one full pipeline invocation. distance overrides the configured
// maximum adjacency distance when positive. It returns ErrNoTrace when the log
// holds nothing parseable, ErrUnparseable when every located block failed to
// parse, and otherwise the sink's error, if any. Per-frame resolution failures
// never surface; the affected frames are simply omitted from the list.
func (t *Tracer) Trace(distance int) error {
	logger := t.logger().With(zap.String("invocation_id", uuid.NewString()))
	if distance <= 0 {
		distance = t.Config.MaxAdjacencyDistance
	}

	raw, err := t.Log.Messages()
	if err != nil {
		return err
	}

	blocks := segmentLog(raw, distance, t.Config.SkipPathPrefixes)
	if len(blocks) == 0 {
		logger.Info("no error block found in log tail")
		return ErrNoTrace
	}

	records := make([]*ErrorRecord, 0, len(blocks))
	for _, b := range blocks {
		rec, err := parseBlock(b, t.Config.HeaderKeywords, t.Config.FramePrefixes)
		if err != nil {
			logger.Warn("skipping unparseable error block",
				zap.String("header", b.header), zap.Error(err))
			continue
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return ErrUnparseable
	}

	resolver := &Resolver{Functions: t.Functions, FS: t.FS, Logger: logger}
	items := buildEntries(records, resolver)
	if len(items) == 0 {
		return ErrUnparseable
	}

	logger.Debug("stack trace reconstructed",
		zap.Int("records", len(records)), zap.Int("entries", len(items)))
	return t.Sink.Display(EntryList{Title: DefaultTitle, Items: items})
}

func (t *Tracer) logger() *zap.Logger {
	if t.Logger == nil {
		return zap.NewNop()
	}
	return t.Logger
}
