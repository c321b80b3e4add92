package dataset

import (
	"errors"
	"fmt"
)

// ErrEmptyDataset means cleaning removed every record. It is distinct from
// an empty post-filter result, which is a normal outcome and not an error.
var ErrEmptyDataset = errors.New("dataset: no records remain after cleaning")

// SourceUnavailableError reports a source file that is missing, unreadable
// or not shaped like the retail export. Fatal at startup.
type SourceUnavailableError struct {
	Path string
	Err  error
}

func (e *SourceUnavailableError) Error() string {
	return fmt.Sprintf("dataset: source %q unavailable: %v", e.Path, e.Err)
}

func (e *SourceUnavailableError) Unwrap() error { return e.Err }

// MalformedDateError reports an unparseable invoice date on a record that
// survived cleaning. The whole load fails rather than silently dropping a
// valid sale, which would corrupt every KPI downstream.
type MalformedDateError struct {
	Line  int
	Value string
}

func (e *MalformedDateError) Error() string {
	return fmt.Sprintf("dataset: line %d: unparseable invoice date %q", e.Line, e.Value)
}

// MalformedNumberError reports an unparseable quantity or price. Numeric
// fields are parsed before the non-positive rule, so this fails the load
// for any record that passed the customer and cancellation checks.
type MalformedNumberError struct {
	Line  int
	Field string
	Value string
}

func (e *MalformedNumberError) Error() string {
	return fmt.Sprintf("dataset: line %d: unparseable %s %q", e.Line, e.Field, e.Value)
}
