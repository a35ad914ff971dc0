package apperr

import (
	"errors"
	"fmt"
)

type ValidationError struct {
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func NewValidation(msg string) *ValidationError {
	return &ValidationError{Message: msg}
}

func NewValidationWrap(msg string, err error) *ValidationError {
	return &ValidationError{Message: msg, Err: err}
}

// CursorError reports a failure to open, page or close the row cursor.
type CursorError struct {
	Op  string
	Err error
}

func (e *CursorError) Error() string {
	return fmt.Sprintf("cursor %s: %v", e.Op, e.Err)
}

func (e *CursorError) Unwrap() error {
	return e.Err
}

func NewCursor(op string, err error) *CursorError {
	return &CursorError{Op: op, Err: err}
}

// MalformedRowError reports a raw row that cannot be mapped to a record.
// Position is the zero-based index of the row in the stream, Column the
// offending column name.
type MalformedRowError struct {
	Position int64
	Column   string
	Err      error
}

func (e *MalformedRowError) Error() string {
	return fmt.Sprintf("malformed row %d: column %q: %v", e.Position, e.Column, e.Err)
}

func (e *MalformedRowError) Unwrap() error {
	return e.Err
}

func NewMalformedRow(position int64, column string, err error) *MalformedRowError {
	return &MalformedRowError{Position: position, Column: column, Err: err}
}

// WriteError reports a batch sink failure. Batch is the 1-based sequence
// number of the batch that failed.
type WriteError struct {
	Batch int
	Size  int
	Err   error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write batch %d (%d items): %v", e.Batch, e.Size, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

func NewWrite(batch, size int, err error) *WriteError {
	return &WriteError{Batch: batch, Size: size, Err: err}
}

// CancellationError reports that the consumer stopped the stream before it
// reached its end.
type CancellationError struct {
	Err error
}

func (e *CancellationError) Error() string {
	if e.Err != nil {
		return "stream cancelled: " + e.Err.Error()
	}
	return "stream cancelled"
}

func (e *CancellationError) Unwrap() error {
	return e.Err
}

func NewCancellation(err error) *CancellationError {
	return &CancellationError{Err: err}
}

// PanicError carries a value recovered from a panic inside a pipeline run.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("pipeline panic: %v", e.Value)
}

func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

func NewPanic(v any) *PanicError {
	return &PanicError{Value: v}
}

// Kind names the taxonomy entry of err, or "unknown" for untyped errors.
func Kind(err error) string {
	var (
		ce *CursorError
		me *MalformedRowError
		we *WriteError
		ca *CancellationError
		ve *ValidationError
		pe *PanicError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &pe):
		return "panic"
	case errors.As(err, &ca):
		return "cancellation"
	case errors.As(err, &me):
		return "malformed_row"
	case errors.As(err, &we):
		return "write"
	case errors.As(err, &ce):
		return "cursor"
	case errors.As(err, &ve):
		return "validation"
	default:
		return "unknown"
	}
}
