package core

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoValidRows is returned by Persist when an ingest produced nothing to store.
var ErrNoValidRows = errors.New("no valid rows to persist")

// ErrNoImages reports a batch with no usable image references.
var ErrNoImages = errors.New("no usable images in batch")

// ErrUnmatchedRecords reports a reconciliation that left records unpaired.
var ErrUnmatchedRecords = errors.New("unmatched records")

// StructuralInputError reports input that is not shaped like a table or a
// schema at all. It is the only terminal error of the normalization stages.
type StructuralInputError struct {
	Input  string // "schema", "headers" or "rows"
	Reason string
}

func (e *StructuralInputError) Error() string {
	return fmt.Sprintf("invalid input: %s: %s", e.Input, e.Reason)
}

// MissingHeadersError reports essential fields with no bound header.
// Ingest returns it as data; callers that need an error value wrap it.
type MissingHeadersError struct {
	Fields []string
}

func (e *MissingHeadersError) Error() string {
	return "missing essential headers: " + strings.Join(e.Fields, ", ")
}

// IsStructural reports whether err is a StructuralInputError.
func IsStructural(err error) bool {
	var se *StructuralInputError
	return errors.As(err, &se)
}
