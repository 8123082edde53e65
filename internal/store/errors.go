package store

import (
	"errors"
	"fmt"
)

// NotFoundError reports an operation against an id that does not exist
// in storage.
type NotFoundError struct {
	Kind string // "diagram" or "element"
	ID   int64  // diagram id
	Ref  string // element id, when Kind is "element"
}

func (e *NotFoundError) Error() string {
	if e.Ref != "" {
		return fmt.Sprintf("%s %q not found in diagram %d", e.Kind, e.Ref, e.ID)
	}
	return fmt.Sprintf("%s %d not found", e.Kind, e.ID)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// CorruptDataError reports a stored JSON payload that failed to
// deserialize on read. It is never silently swallowed into an empty
// result.
type CorruptDataError struct {
	Table  string
	Column string
	RowID  int64
	Err    error
}

func (e *CorruptDataError) Error() string {
	return fmt.Sprintf("corrupt %s.%s for row %d: %v", e.Table, e.Column, e.RowID, e.Err)
}

func (e *CorruptDataError) Unwrap() error { return e.Err }
