package doc

import (
	"errors"
	"fmt"
)

// Leaf reduction errors. These keep their identity through location wrapping,
// so errors.Is works against the innermost cause.
var (
	ErrAppendWrongType = errors.New("'append' strategy expects arrays")
	ErrSumWrongType    = errors.New("'sum' strategy expects numbers")
	ErrSumOverflow     = errors.New("'sum' resulted in numeric overflow")
	ErrMergeWrongType  = errors.New("'merge' strategy expects objects or arrays")
	ErrSetWrongType    = errors.New("'set' strategy expects objects having only 'add', 'intersect', and 'remove' properties of a consistent type")
	ErrSchemaWrongType = errors.New("'jsonSchemaMerge' strategy expects objects containing JSON schemas")
	ErrNotAssociative  = errors.New("encountered a non-associative reduction in an unexpected context")
)

// ConflictError reports two distinct reduction strategies annotated at the
// same document location. First and Second follow the deterministic tape
// order, not the order the strategies appear in the schema.
type ConflictError struct {
	First, Second *Strategy
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflicting strategies %s and %s at the same document location", e.First, e.Second)
}

// ReduceError wraps a leaf reduction error with the document location at
// which it occurred and renderings of the operands there.
type ReduceError struct {
	Ptr string
	LHS string
	RHS string
	Err error
}

func reduceErr(ptr string, lhs, rhs Node, err error) error {
	return &ReduceError{Ptr: ptr, LHS: debugString(lhs), RHS: debugString(rhs), Err: err}
}

func (e *ReduceError) Unwrap() error {
	return e.Err
}

func (e *ReduceError) Error() string {
	return fmt.Sprintf("at %q with left %s and right %s: %v", e.Ptr, e.LHS, e.RHS, e.Err)
}

// ArchiveError reports a malformed document archive.
type ArchiveError struct {
	Offset int
	Reason string
}

func (e *ArchiveError) Error() string {
	return fmt.Sprintf("invalid archive at offset %d: %s", e.Offset, e.Reason)
}

// ValidationError reports the first constraint a document failed during
// schema validation.
type ValidationError struct {
	Ptr     string
	Keyword string
	Detail  string
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("document location %q fails %q", e.Ptr, e.Keyword)
	}
	return fmt.Sprintf("document location %q fails %q: %s", e.Ptr, e.Keyword, e.Detail)
}
