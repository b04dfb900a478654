package value

import "fmt"

// Error reports that a byte slice could not be interpreted as a
// well-formed Fleece value at the position being read — a truncated
// document, an out-of-range pointer, or an accessor called against a
// value of the wrong Tag.
type Error struct {
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("fleece/value: %s", e.Reason)
}

func errorf(format string, args ...any) *Error {
	return &Error{Reason: fmt.Sprintf(format, args...)}
}
