package traceback

import "fmt"

// ErrNoTrace indicates that the log snapshot contained no parseable error
// block. This is the expected result when no error happened recently, and
// should be surfaced as an informational message rather than a failure.
var ErrNoTrace = fmt.Errorf("no error trace found in log")

// ErrUnparseable indicates that an error block was located in the log but
// could not be converted into a navigable record. Callers should surface it as
// a warning and leave any previously displayed list untouched.
var ErrUnparseable = fmt.Errorf("error trace could not be parsed")
