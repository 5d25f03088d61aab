package traceback

import (
	"encoding/json"
	"fmt"
)

// EntryKind distinguishes the message row of an error from its frame rows.
type EntryKind int

const (
	EntryError EntryKind = iota
	EntryInfo
)

func (e EntryKind) String() string {
	switch e {
	case EntryError:
		return "error"
	case EntryInfo:
		return "info"
	default:
		return "unknown"
	}
}

func (e EntryKind) Name() string {
	switch e {
	case EntryError:
		return "EntryError"
	case EntryInfo:
		return "EntryInfo"
	default:
		return "EntryKindUnknown"
	}
}

func (e EntryKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.String())
}

func (e *EntryKind) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	switch s {
	case "error":
		*e = EntryError
	case "info":
		*e = EntryInfo
	default:
		return fmt.Errorf("unknown entry kind %q", s)
	}
	return nil
}

// Entry is one row of the navigable list handed to the presentation sink.
// File is empty when the row is not navigable; BufferID is 0 when the location
// is not tied to an open buffer.
type Entry struct {
	Text     string    `json:"text"`
	File     string    `json:"file,omitempty"`
	Line     int       `json:"line"`
	BufferID int       `json:"buffer_id"`
	Kind     EntryKind `json:"kind"`
}

// EntryList is the full, freshly allocated result of one pipeline invocation.
type EntryList struct {
	Title string  `json:"title"`
	Items []Entry `json:"items"`
}

// buildEntries flattens the parsed records into a single display list: per
// record one error row carrying the message, then one info row per frame that
// resolved, innermost first. Frames that fail resolution are omitted with no
// placeholder; a partially resolved stack is still useful.
func buildEntries(records []*ErrorRecord, r *Resolver) []Entry {
	var items []Entry
	for _, rec := range records {
		items = append(items, Entry{Text: rec.Message, Kind: EntryError})
		resolved := 0
		for _, token := range rec.Frames {
			frame, ok := r.Resolve(token, resolved)
			if !ok {
				continue
			}
			resolved++
			items = append(items, Entry{
				Text: frame.Text,
				File: frame.File,
				Line: frame.Line,
				Kind: EntryInfo,
			})
		}
	}
	return items
}
